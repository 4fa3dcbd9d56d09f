package client

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// EmbedCmd creates the embed command.
func EmbedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "embed <text>",
		Short: "Print the embedding vector of a text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runEmbed(cmd.OutOrStdout(), api, args[0], outputJSON)
		},
	}
}

func runEmbed(w io.Writer, api *APIClient, text string, outputJSON bool) error {
	resp, err := api.Post("/embed", map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}

	out, err := decodeData[struct {
		Embedding []float32 `json:"embedding"`
	}](resp)
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(w, out)
	}

	parts := make([]string, len(out.Embedding))
	for i, v := range out.Embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	fmt.Fprintf(w, "dimension: %d\n[%s]\n", len(out.Embedding), strings.Join(parts, ", "))
	return nil
}

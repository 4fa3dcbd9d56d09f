package client

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	var (
		title      string
		documentID int64
	)

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a file as a searchable document",
		Long: `Extracts, chunks and embeds a file and stores it as a document.

With --document the chunks of an existing document are replaced instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runIngest(cmd.OutOrStdout(), api, args[0], title, documentID, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title (defaults to the file name)")
	cmd.Flags().Int64VarP(&documentID, "document", "d", 0, "Reingest into an existing document")

	return cmd
}

func runIngest(w io.Writer, api *APIClient, file, title string, documentID int64, outputJSON bool) error {
	var (
		resp *APIResponse
		err  error
	)
	if documentID > 0 {
		resp, err = api.UploadFiles(fmt.Sprintf("/documents/%d/reingest", documentID), "file", []string{file}, nil)
	} else {
		var values map[string]string
		if title != "" {
			values = map[string]string{"title": title}
		}
		resp, err = api.UploadFiles("/ingest", "file", []string{file}, values)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	result, err := decodeData[IngestResult](resp)
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(w, result)
	}
	fmt.Fprintf(w, "Ingested document %d (%d chunks)\n", result.DocumentID, result.ChunkCount)
	return nil
}

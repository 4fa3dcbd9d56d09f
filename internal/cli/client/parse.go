package client

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ParseCmd creates the parse command.
func ParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file>...",
		Short: "Extract plain text from files",
		Long: `Uploads files and prints their extracted text.

A single file uses the one-shot endpoint. Several files are streamed: one
result is printed per file as soon as the server finishes it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return runParse(cmd.OutOrStdout(), api, args[0], outputJSON)
			}
			return runParseBatch(cmd.OutOrStdout(), api, args, outputJSON)
		},
	}

	return cmd
}

func runParse(w io.Writer, api *APIClient, file string, outputJSON bool) error {
	resp, err := api.UploadFiles("/parse", "file", []string{file}, nil)
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	result, err := decodeData[ParseResult](resp)
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(w, result)
	}
	printParseResult(w, result)
	if result.Status == parseStatusFailed {
		return fmt.Errorf("%s: %s", result.FileName, result.Error)
	}
	return nil
}

func runParseBatch(w io.Writer, api *APIClient, files []string, outputJSON bool) error {
	var failed int
	finished := false

	err := api.StreamUpload("/parse/batch", "files", files, func(line json.RawMessage) error {
		var r ParseResult
		if err := json.Unmarshal(line, &r); err != nil {
			return fmt.Errorf("failed to parse stream record: %w", err)
		}

		switch r.Status {
		case parseStatusFinished:
			finished = true
		case parseStatusFailed:
			failed++
		}

		if outputJSON {
			_, err := fmt.Fprintln(w, string(line))
			return err
		}
		if !finished {
			printParseResult(w, r)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batch parse failed: %w", err)
	}
	if !finished {
		return fmt.Errorf("batch parse ended before all files were processed")
	}
	if failed > 0 && !outputJSON {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func printParseResult(w io.Writer, r ParseResult) {
	fmt.Fprintf(w, "==> %s [%s]\n", r.FileName, r.Status)
	if r.Error != "" {
		fmt.Fprintf(w, "error: %s\n", r.Error)
	}
	if r.Text != "" {
		fmt.Fprintln(w, r.Text)
	}
}

package client

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// DocsCmd creates the docs parent command.
func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"documents"},
		Short:   "Manage ingested documents",
	}

	cmd.AddCommand(docsListCmd())
	cmd.AddCommand(docsGetCmd())
	cmd.AddCommand(docsRenameCmd())
	cmd.AddCommand(docsDeleteCmd())

	return cmd
}

func docsListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runDocsList(cmd.OutOrStdout(), api, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of documents")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func docsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocumentID(args[0])
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get(fmt.Sprintf("/documents/%d", id))
			if err != nil {
				if IsNotFound(err) {
					return fmt.Errorf("document %d not found", id)
				}
				return err
			}
			return printDocument(cmd.OutOrStdout(), resp, outputJSON)
		},
	}
}

func docsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Change a document title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocumentID(args[0])
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Patch(fmt.Sprintf("/documents/%d", id), map[string]string{"title": args[1]})
			if err != nil {
				return fmt.Errorf("rename failed: %w", err)
			}
			return printDocument(cmd.OutOrStdout(), resp, outputJSON)
		},
	}
}

func docsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document with its chunks and archived original",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDocumentID(args[0])
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			if _, err := api.Delete(fmt.Sprintf("/documents/%d", id)); err != nil {
				if IsNotFound(err) {
					return fmt.Errorf("document %d not found", id)
				}
				return fmt.Errorf("delete failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted document %d\n", id)
			return nil
		},
	}
}

func runDocsList(w io.Writer, api *APIClient, limit int, cursor string, outputJSON bool) error {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	resp, err := api.Get("/documents?" + q.Encode())
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	list, err := decodeData[DocumentList](resp)
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(w, list)
	}
	if len(list.Items) == 0 {
		fmt.Fprintln(w, "No documents.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tTITLE")
	for _, d := range list.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", d.ID, d.CreatedAt, d.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if list.HasMore && list.Cursor != "" {
		fmt.Fprintf(w, "\nMore documents available. Use --cursor %s\n", list.Cursor)
	}
	return nil
}

func printDocument(w io.Writer, resp *APIResponse, outputJSON bool) error {
	doc, err := decodeData[Document](resp)
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(w, doc)
	}
	fmt.Fprintf(w, "ID: %d\n", doc.ID)
	fmt.Fprintf(w, "Title: %s\n", doc.Title)
	fmt.Fprintf(w, "Created: %s\n", doc.CreatedAt)
	return nil
}

func parseDocumentID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", s)
	}
	return id, nil
}

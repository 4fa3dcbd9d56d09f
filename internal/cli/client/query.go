package client

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

type queryRequest struct {
	Query  string  `json:"query"`
	DocIDs []int64 `json:"doc_ids,omitempty"`
	TopK   int     `json:"top_k,omitempty"`
}

type rankRequest struct {
	Query            string  `json:"query"`
	DocIDs           []int64 `json:"doc_ids,omitempty"`
	ChunksToConsider int     `json:"chunks_to_consider,omitempty"`
	TopKDocs         int     `json:"top_k_docs,omitempty"`
}

// QueryCmd creates the query command.
func QueryCmd() *cobra.Command {
	var (
		docIDs []int64
		topK   int
	)

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Find the chunks most similar to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runQuery(cmd.OutOrStdout(), api, queryRequest{Query: args[0], DocIDs: docIDs, TopK: topK}, outputJSON)
		},
	}

	cmd.Flags().Int64SliceVar(&docIDs, "doc", nil, "Restrict to these document ids (repeatable)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to return (server default when 0)")

	return cmd
}

// RankCmd creates the rank command.
func RankCmd() *cobra.Command {
	var (
		docIDs   []int64
		chunks   int
		topKDocs int
	)

	cmd := &cobra.Command{
		Use:   "rank <text>",
		Short: "Rank documents by how many of their chunks match a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runRank(cmd.OutOrStdout(), api, rankRequest{
				Query:            args[0],
				DocIDs:           docIDs,
				ChunksToConsider: chunks,
				TopKDocs:         topKDocs,
			}, outputJSON)
		},
	}

	cmd.Flags().Int64SliceVar(&docIDs, "doc", nil, "Restrict to these document ids (repeatable)")
	cmd.Flags().IntVar(&chunks, "chunks", 0, "Nearest chunks to aggregate (server default when 0)")
	cmd.Flags().IntVarP(&topKDocs, "top-k", "k", 0, "Number of documents to return (server default when 0)")

	return cmd
}

func runQuery(w io.Writer, api *APIClient, req queryRequest, outputJSON bool) error {
	resp, err := api.Post("/query", req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	hits, err := decodeData[[]ChunkHit](resp)
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(w, hits)
	}
	if len(hits) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "Found %d chunks:\n\n", len(hits))
	for i, h := range hits {
		fmt.Fprintf(w, "%d. document %d (distance %.4f)\n", i+1, h.DocumentID, h.Distance)
		fmt.Fprintf(w, "   %s\n", truncate(strings.Join(strings.Fields(h.Text), " "), 200))
		fmt.Fprintf(w, "   Chunk: %s\n", h.ChunkID)
		if i < len(hits)-1 {
			fmt.Fprintln(w, strings.Repeat("-", 40))
		}
	}
	return nil
}

func runRank(w io.Writer, api *APIClient, req rankRequest, outputJSON bool) error {
	resp, err := api.Post("/query/documents", req)
	if err != nil {
		return fmt.Errorf("rank failed: %w", err)
	}

	ranks, err := decodeData[[]DocumentRank](resp)
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(w, ranks)
	}
	if len(ranks) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-12s %-8s %s\n", "DOCUMENT", "MATCHES", "AVG SIMILARITY")
	for _, r := range ranks {
		fmt.Fprintf(w, "%-12d %-8d %.4f\n", r.DocumentID, r.MatchCount, r.AvgSimilarity)
	}
	return nil
}

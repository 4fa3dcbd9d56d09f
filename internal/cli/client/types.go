package client

import (
	"encoding/json"
	"fmt"
	"io"
)

// ParseResult mirrors one record of the parse endpoints.
type ParseResult struct {
	FileName string `json:"file_name"`
	Status   string `json:"status"`
	Error    string `json:"error"`
	Text     string `json:"text"`
}

const (
	parseStatusFailed   = "Failed"
	parseStatusFinished = "Finished"
)

type IngestResult struct {
	DocumentID int64 `json:"document_id"`
	ChunkCount int   `json:"chunk_count"`
}

type Document struct {
	ID        int64  `json:"id"`
	OwnerID   *int64 `json:"owner_id,omitempty"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

type DocumentList struct {
	Items   []Document `json:"items"`
	Cursor  string     `json:"cursor,omitempty"`
	HasMore bool       `json:"has_more"`
}

type ChunkHit struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID int64   `json:"document_id"`
	Text       string  `json:"text"`
	Distance   float64 `json:"distance"`
}

type DocumentRank struct {
	DocumentID    int64   `json:"document_id"`
	MatchCount    int     `json:"match_count"`
	AvgSimilarity float64 `json:"avg_similarity"`
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func decodeData[T any](resp *APIResponse) (T, error) {
	var out T
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return out, fmt.Errorf("failed to parse response: %w", err)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

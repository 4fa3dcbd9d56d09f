// Package pagination encodes keyset cursors for listing endpoints. A cursor
// is the id and creation time of the last row on a page, so the next page
// starts strictly after that (created_at, id) pair.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

const sep = "|"

var (
	ErrInvalidCursor = errors.New("invalid cursor format")

	enc = base64.RawURLEncoding
)

type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// Int64ID is LastID for tables keyed by bigint.
func (c *Cursor) Int64ID() (int64, error) {
	id, err := strconv.ParseInt(c.LastID, 10, 64)
	if err != nil {
		return 0, ErrInvalidCursor
	}
	return id, nil
}

// EncodeCursor returns "" for an empty id, which clients read as the last page.
func EncodeCursor(lastID string, ts time.Time) string {
	if lastID == "" {
		return ""
	}
	return enc.EncodeToString([]byte(lastID + sep + ts.UTC().Format(time.RFC3339Nano)))
}

func EncodeInt64Cursor(lastID int64, ts time.Time) string {
	return EncodeCursor(strconv.FormatInt(lastID, 10), ts)
}

// DecodeCursor reverses EncodeCursor. "" yields a nil cursor, meaning the
// first page.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := enc.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	id, stamp, found := strings.Cut(string(raw), sep)
	if !found || id == "" {
		return nil, ErrInvalidCursor
	}
	ts, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{LastID: id, Timestamp: ts}, nil
}

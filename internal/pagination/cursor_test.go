package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 9, 10, 11, 12, 123456000, time.FixedZone("x", 3600))

	encoded := EncodeInt64Cursor(42, ts)
	require.NotEmpty(t, encoded)

	c, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "42", c.LastID)
	assert.True(t, c.Timestamp.Equal(ts))
	assert.Equal(t, time.UTC, c.Timestamp.Location())

	id, err := c.Int64ID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestDecodeCursor_Empty(t *testing.T) {
	c, err := DecodeCursor("")
	assert.NoError(t, err)
	assert.Nil(t, c)
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor_Invalid(t *testing.T) {
	cases := map[string]string{
		"not base64":   "%%%",
		"no separator": base64.RawURLEncoding.EncodeToString([]byte("42")),
		"bad time":     base64.RawURLEncoding.EncodeToString([]byte("42|yesterday")),
		"empty id":     base64.RawURLEncoding.EncodeToString([]byte("|2024-01-01T00:00:00Z")),
	}
	for name, cursor := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCursor(cursor)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

func TestCursor_Int64ID_NotNumeric(t *testing.T) {
	c := &Cursor{LastID: "0b7e-uuid"}
	_, err := c.Int64ID()
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

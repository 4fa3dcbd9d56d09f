package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResultConstructors(t *testing.T) {
	ok := ParseSuccess("a.txt", "hello")
	assert.Equal(t, ParseStatusSuccess, ok.Status)
	assert.Empty(t, ok.Error)
	assert.Equal(t, "hello", ok.Text)

	failed := ParseFailure("b.pdf", errors.New("boom"))
	assert.Equal(t, ParseStatusFailed, failed.Status)
	assert.Equal(t, "boom", failed.Error)
	assert.Empty(t, failed.Text)
	assert.False(t, failed.IsSentinel())
}

func TestFinishedSentinel_WireFormat(t *testing.T) {
	sentinel := FinishedSentinel()
	require.True(t, sentinel.IsSentinel())

	data, err := json.Marshal(sentinel)
	require.NoError(t, err)
	assert.JSONEq(t, `{"file_name":"","status":"Finished","error":"","text":""}`, string(data))
}

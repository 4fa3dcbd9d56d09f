package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockParseService struct {
	mock.Mock
}

func (m *MockParseService) ParseFile(ctx context.Context, f service.Upload) (domain.ParseResult, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(domain.ParseResult), args.Error(1)
}

func (m *MockParseService) ParseBatch(ctx context.Context, files []service.Upload) iter.Seq[domain.ParseResult] {
	args := m.Called(ctx, files)
	return args.Get(0).(iter.Seq[domain.ParseResult])
}

func uploadContent(t *testing.T, u service.Upload) string {
	t.Helper()
	rc, err := u.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestParseHandler_Parse(t *testing.T) {
	mockSvc := new(MockParseService)
	handler := NewParseHandler(mockSvc, nil)

	mockSvc.On("ParseFile", mock.Anything, mock.MatchedBy(func(u service.Upload) bool {
		return u.FileName == "notes.txt" && u.ContentType == "text/plain" && uploadContent(t, u) == "hello"
	})).Return(domain.ParseSuccess("notes.txt", "hello"), nil)

	req := multipartRequest(t, "/parse", "file", []testFile{{"notes.txt", "text/plain", "hello"}}, nil)
	w := httptest.NewRecorder()

	handler.Parse(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"file_name":"notes.txt","status":"Success","error":"","text":"hello"}}`, w.Body.String())
	mockSvc.AssertExpectations(t)
}

func TestParseHandler_Parse_FailedResultIsOK(t *testing.T) {
	mockSvc := new(MockParseService)
	handler := NewParseHandler(mockSvc, nil)
	mockSvc.On("ParseFile", mock.Anything, mock.Anything).
		Return(domain.ParseResult{FileName: "bad.pdf", Status: domain.ParseStatusFailed, Error: "corrupt"}, nil)

	req := multipartRequest(t, "/parse", "file", []testFile{{"bad.pdf", "application/pdf", "%PDF"}}, nil)
	w := httptest.NewRecorder()
	handler.Parse(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Failed", decodeData(t, w)["status"])
}

func TestParseHandler_Parse_AudioPrecheck(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"too large", domain.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"too long", domain.ErrDurationExceeded, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockParseService)
			handler := NewParseHandler(mockSvc, nil)
			mockSvc.On("ParseFile", mock.Anything, mock.Anything).Return(domain.ParseResult{}, tt.err)

			req := multipartRequest(t, "/parse", "file", []testFile{{"a.mp3", "audio/mpeg", "ID3"}}, nil)
			w := httptest.NewRecorder()
			handler.Parse(w, req)

			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

func TestParseHandler_Parse_NoFile(t *testing.T) {
	handler := NewParseHandler(new(MockParseService), nil)

	req := multipartRequest(t, "/parse", "file", nil, map[string]string{"title": "x"})
	w := httptest.NewRecorder()
	handler.Parse(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no file uploaded")
}

func TestParseHandler_Parse_NotMultipart(t *testing.T) {
	handler := NewParseHandler(new(MockParseService), nil)

	w := httptest.NewRecorder()
	handler.Parse(w, requestWithOwner(http.MethodPost, "/parse", []byte(`{}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid multipart form")
}

func TestParseHandler_ParseBatch(t *testing.T) {
	mockSvc := new(MockParseService)
	handler := NewParseHandler(mockSvc, nil)

	results := []domain.ParseResult{
		domain.ParseSuccess("a.txt", "alpha"),
		{FileName: "b.pdf", Status: domain.ParseStatusFailed, Error: "corrupt"},
		domain.FinishedSentinel(),
	}
	mockSvc.On("ParseBatch", mock.Anything, mock.MatchedBy(func(files []service.Upload) bool {
		return len(files) == 2 && files[0].FileName == "a.txt" && files[1].FileName == "b.pdf"
	})).Return(slices.Values(results))

	req := multipartRequest(t, "/parse/batch", "files", []testFile{
		{"a.txt", "text/plain", "alpha"},
		{"b.pdf", "application/pdf", "%PDF"},
	}, nil)
	w := httptest.NewRecorder()

	handler.ParseBatch(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))
	assert.True(t, w.Flushed)

	lines := strings.Split(strings.TrimSuffix(w.Body.String(), "\n"), "\n")
	require.Len(t, lines, len(results))
	assert.JSONEq(t, `{"file_name":"","status":"Finished","error":"","text":""}`, lines[len(lines)-1])

	var got []domain.ParseResult
	scanner := bufio.NewScanner(w.Body)
	for scanner.Scan() {
		var rec domain.ParseResult
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		got = append(got, rec)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, results, got)
	mockSvc.AssertExpectations(t)
}

func TestParseHandler_ParseBatch_NoFiles(t *testing.T) {
	handler := NewParseHandler(new(MockParseService), nil)

	req := multipartRequest(t, "/parse/batch", "files", nil, nil)
	w := httptest.NewRecorder()
	handler.ParseBatch(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

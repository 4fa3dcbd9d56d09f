package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriber_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer groq-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-large-v3-turbo", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "audio.mp3", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "fake-mp3-bytes", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"task":"transcribe","language":"english","duration":3.5,"text":"hello world"}`))
	}))
	defer server.Close()

	tr := NewTranscriber(TranscriptionConfig{APIKey: "groq-key", BaseURL: server.URL})
	out, err := tr.Transcribe(context.Background(), extract.TranscriptionRequest{
		FileName:    "audio.mp3",
		ContentType: "audio/mpeg",
		Audio:       strings.NewReader("fake-mp3-bytes"),
	})

	require.NoError(t, err)
	assert.Equal(t, "hello world", out.Text)
	assert.Equal(t, "english", out.Language)
}

func TestTranscriber_ErrorCarriesStatusAndBody(t *testing.T) {
	body := `{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	tr := NewTranscriber(TranscriptionConfig{APIKey: "bad", BaseURL: server.URL})
	_, err := tr.Transcribe(context.Background(), extract.TranscriptionRequest{
		FileName: "audio.wav",
		Audio:    strings.NewReader("RIFF"),
	})

	var te *domain.TranscriptionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
	assert.Equal(t, body, te.Body)
	assert.ErrorIs(t, err, domain.ErrTranscriptionFailed)
}

func TestNewTranscriber_Defaults(t *testing.T) {
	tr := NewTranscriber(TranscriptionConfig{APIKey: "k"})

	assert.Equal(t, DefaultTranscriptionModel, tr.model)
	assert.NotNil(t, tr.client)
}

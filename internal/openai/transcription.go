package openai

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/extract"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultTranscriptionBaseURL = "https://api.groq.com/openai/v1"
	DefaultTranscriptionModel   = "whisper-large-v3-turbo"
	defaultTranscriptionTimeout = 5 * time.Minute
	maxErrorBodyBytes           = 64 << 10
)

type TranscriptionConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Transcriber sends audio to an OpenAI-compatible speech-to-text endpoint.
type Transcriber struct {
	client *openai.Client
	model  string
}

// NewTranscriber builds a transcription client. Any non-2xx answer is
// returned as *domain.TranscriptionError with the body kept verbatim.
func NewTranscriber(cfg TranscriptionConfig) *Transcriber {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTranscriptionBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultTranscriptionModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTranscriptionTimeout}
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &statusDoer{next: httpClient}

	return &Transcriber{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}
}

func (t *Transcriber) Transcribe(ctx context.Context, req extract.TranscriptionRequest) (*extract.Transcription, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: req.FileName,
		Reader:   req.Audio,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, err
	}
	return &extract.Transcription{Text: resp.Text, Language: resp.Language}, nil
}

// statusDoer intercepts error responses before go-openai decodes them, so
// callers see the collaborator's status and raw body.
type statusDoer struct {
	next *http.Client
}

func (d *statusDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.next.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return nil, &domain.TranscriptionError{StatusCode: resp.StatusCode, Body: string(body)}
}

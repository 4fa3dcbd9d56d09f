package client

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIKey = "DOCRAG_API_KEY"
	envAPIURL = "DOCRAG_API_URL"

	defaultAPIURL = "http://localhost:8080"

	requestTimeout = 30 * time.Second
	// Uploads wait for extraction, transcription and embedding server side.
	uploadTimeout = 15 * time.Minute
)

// APIClient calls the docragd HTTP API with a bearer API key.
type APIClient struct {
	baseURL string
	apiKey  string
	calls   *http.Client
	uploads *http.Client
}

// NewAPIClientWithCmd resolves the key and URL field by field: the
// --api-key/--api-url flags, then DOCRAG_API_KEY/DOCRAG_API_URL (a .env file
// counts), then the saved credentials. The URL falls back to localhost.
// A nil cmd skips the flags.
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	_ = godotenv.Load()

	var flagKey, flagURL string
	if cmd != nil {
		flagKey, _ = cmd.Flags().GetString("api-key")
		flagURL, _ = cmd.Flags().GetString("api-url")
	}
	apiKey := cmp.Or(flagKey, os.Getenv(envAPIKey))
	baseURL := cmp.Or(flagURL, os.Getenv(envAPIURL))

	if apiKey == "" || baseURL == "" {
		saved, err := LoadCredentials()
		if err != nil {
			return nil, err
		}
		if saved != nil {
			apiKey = cmp.Or(apiKey, saved.APIKey)
			baseURL = cmp.Or(baseURL, saved.APIURL)
		}
	}

	if apiKey == "" {
		return nil, fmt.Errorf("no API key: run 'docrag auth login' or set %s", envAPIKey)
	}
	return NewAPIClientWithConfig(apiKey, cmp.Or(baseURL, defaultAPIURL)), nil
}

func NewAPIClientWithConfig(apiKey, baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		calls:   &http.Client{Timeout: requestTimeout},
		uploads: &http.Client{Timeout: uploadTimeout},
	}
}

// APIResponse is the server's JSON envelope. Data is left raw for the
// caller to decode into the endpoint's type.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// APIError is a 4xx or 5xx answer. Code is the server's domain error code
// when the body carried one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	status := fmt.Sprint(e.StatusCode)
	if e.Code != "" {
		status += " " + e.Code
	}
	return fmt.Sprintf("API error (%s): %s", status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func (c *APIClient) Get(path string) (*APIResponse, error) {
	return c.call(http.MethodGet, path, nil)
}

func (c *APIClient) Post(path string, body any) (*APIResponse, error) {
	return c.call(http.MethodPost, path, body)
}

func (c *APIClient) Patch(path string, body any) (*APIResponse, error) {
	return c.call(http.MethodPatch, path, body)
}

func (c *APIClient) Delete(path string) (*APIResponse, error) {
	return c.call(http.MethodDelete, path, nil)
}

func (c *APIClient) call(method, path string, body any) (*APIResponse, error) {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.roundTrip(c.calls, req)
}

// open sends req with credentials and returns the response when the status
// is a success. The caller closes the body.
func (c *APIClient) open(client *http.Client, req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, decodeAPIError(resp.StatusCode, raw)
	}
	return resp, nil
}

func (c *APIClient) roundTrip(client *http.Client, req *http.Request) (*APIResponse, error) {
	resp, err := c.open(client, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	out := &APIResponse{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return out, nil
}

func decodeAPIError(status int, body []byte) error {
	var env APIResponse
	if json.Unmarshal(body, &env) != nil || env.Error == "" {
		return &APIError{StatusCode: status, Message: string(bytes.TrimSpace(body))}
	}
	return &APIError{StatusCode: status, Code: env.Code, Message: env.Error}
}

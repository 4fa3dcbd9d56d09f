package client

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// maxRecordBytes bounds one NDJSON line. A parsed record carries the whole
// extracted text of a file.
const maxRecordBytes = 64 << 20

// UploadFiles posts files as multipart parts named field, along with the
// given form values, and decodes the JSON envelope.
func (c *APIClient) UploadFiles(path, field string, files []string, values map[string]string) (*APIResponse, error) {
	req, err := c.newUploadRequest(path, field, files, values)
	if err != nil {
		return nil, err
	}
	return c.roundTrip(c.uploads, req)
}

// StreamUpload posts files like UploadFiles and hands each line of the
// NDJSON response to onRecord as soon as it arrives. An error from onRecord
// stops reading.
func (c *APIClient) StreamUpload(path, field string, files []string, onRecord func(json.RawMessage) error) error {
	req, err := c.newUploadRequest(path, field, files, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.open(c.uploads, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	lines.Buffer(make([]byte, 0, 64<<10), maxRecordBytes)
	for lines.Scan() {
		line := bytes.TrimSpace(lines.Bytes())
		if len(line) == 0 {
			continue
		}
		// Scanner reuses its buffer on the next Scan.
		if err := onRecord(bytes.Clone(line)); err != nil {
			return err
		}
	}
	if err := lines.Err(); err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}
	return nil
}

// newUploadRequest writes the multipart body from a goroutine into a pipe,
// so file contents are streamed rather than held in memory. Files are
// checked up front so a typo fails before anything is sent.
func (c *APIClient) newUploadRequest(path, field string, files []string, values map[string]string) (*http.Request, error) {
	for _, name := range files {
		if _, err := os.Stat(name); err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
	}

	body, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	go func() {
		pw.CloseWithError(writeForm(form, field, files, values))
	}()
	return req, nil
}

func writeForm(form *multipart.Writer, field string, files []string, values map[string]string) error {
	for k, v := range values {
		if err := form.WriteField(k, v); err != nil {
			return err
		}
	}
	for _, name := range files {
		if err := copyFilePart(form, field, name); err != nil {
			return err
		}
	}
	return form.Close()
}

func copyFilePart(form *multipart.Writer, field, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     field,
		"filename": filepath.Base(name),
	}))
	header.Set("Content-Type", contentTypeFor(name))

	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

// uploadTypes covers the formats the server extracts. The mime package's
// builtin table misses several of them when no system mime.types exists.
var uploadTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".html": "text/html",
	".htm":  "text/html",
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".flac": "audio/flac",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/m4a",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".webm": "audio/webm",
}

func contentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := uploadTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

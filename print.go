package cloudprint

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// PrintJob describes a job submission. Non-empty Settings values take
// precedence over the named fields.
type PrintJob struct {
	PrinterID   string
	Content     string // base64 data or a URL, opaque to the client
	ContentType string
	Title       string // defaults to "UNTITLED JOB <id>"
	Settings    map[string]string
}

// Job is the job record echoed back by the submit endpoint.
type Job struct {
	ID          string `json:"id"`
	PrinterID   string `json:"printerid"`
	PrinterName string `json:"printerName,omitempty"`
	Title       string `json:"title"`
	ContentType string `json:"contentType,omitempty"`
	Status      string `json:"status"`
}

// SubmitResponse represents the response from submitting a print job.
// Raw holds the body exactly as the provider sent it.
type SubmitResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Job     *Job            `json:"job,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// form merges the job's fields into a copy of its settings.
func (j *PrintJob) form() url.Values {
	settings := make(map[string]string, len(j.Settings)+4)
	for k, v := range j.Settings {
		settings[k] = v
	}
	if id, ok := settings["printerId"]; ok {
		if settings["printerid"] == "" {
			settings["printerid"] = id
		}
		delete(settings, "printerId")
	}

	title := j.Title
	if title == "" {
		title = "UNTITLED JOB " + uuid.NewString()
	}

	fallbacks := []struct {
		key   string
		value string
	}{
		{"title", title},
		{"contentType", j.ContentType},
		{"printerid", j.PrinterID},
		{"content", j.Content},
	}
	for _, f := range fallbacks {
		if settings[f.key] == "" && f.value != "" {
			settings[f.key] = f.value
		}
	}

	form := make(url.Values, len(settings))
	for k, v := range settings {
		if v != "" {
			form.Set(k, v)
		}
	}
	return form
}

// Submit sends a print job to the submit endpoint.
func (c *Client) Submit(ctx context.Context, job *PrintJob) (*SubmitResponse, error) {
	form := job.form()

	return withAuthRetry(ctx, c, func(ctx context.Context, token string) (*SubmitResponse, error) {
		resp, err := c.doRequest(ctx, submitEndpoint, form, token)
		if err != nil {
			return nil, fmt.Errorf("submitting job: %w", err)
		}

		var raw json.RawMessage
		if err := parseResponse(resp, &raw); err != nil {
			return nil, fmt.Errorf("parsing submit response: %w", err)
		}

		submitResp := &SubmitResponse{Raw: raw}
		if err := json.Unmarshal(raw, submitResp); err != nil {
			return nil, fmt.Errorf("decoding submit response: %w", err)
		}
		return submitResp, nil
	})
}

// Print submits content to a printer with a generated title.
func (c *Client) Print(ctx context.Context, printerID, content, contentType string) (*SubmitResponse, error) {
	return c.Submit(ctx, &PrintJob{
		PrinterID:   printerID,
		Content:     content,
		ContentType: contentType,
	})
}

// PrintWithSettings submits a job described entirely by provider settings,
// e.g. {"printerid": "...", "title": "...", "ticket": "..."}.
func (c *Client) PrintWithSettings(ctx context.Context, settings map[string]string) (*SubmitResponse, error) {
	return c.Submit(ctx, &PrintJob{Settings: settings})
}

// PrintFile prints a local file, sending its content base64 encoded.
func (c *Client) PrintFile(ctx context.Context, printerID, title, filePath string) (*SubmitResponse, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	if _, err := io.Copy(enc, f); err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding file: %w", err)
	}

	return c.Submit(ctx, &PrintJob{
		PrinterID:   printerID,
		Title:       title,
		Content:     buf.String(),
		ContentType: contentTypeFor(filePath),
		Settings:    map[string]string{"contentTransferEncoding": "base64"},
	})
}

// contentTypeFor determines the MIME type from the file extension.
func contentTypeFor(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		return "application/pdf"
	case ".pcl":
		return "application/vnd.hp-PCL"
	case ".ps":
		return "application/postscript"
	case ".xps":
		return "application/vnd.ms-xpsdocument"
	case ".txt":
		return "text/plain"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/pdf"
	}
}

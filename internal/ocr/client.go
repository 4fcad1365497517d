package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultMaxPollAttempts = 60
	defaultPollDelay       = 10 * time.Second
)

// Document lifecycle on the remote service: uploaded -> queued/processing ->
// processed | failed. Anything else is treated as protocol drift and retried.
var inFlightStatuses = map[string]struct{}{
	"new":        {},
	"uploaded":   {},
	"queued":     {},
	"pending":    {},
	"processing": {},
}

// Clock abstracts the inter-poll delay so tests can drive the poll loop
// without wall-clock waits.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Config struct {
	BaseURL string
	APIKey  string

	MaxPollAttempts int
	PollDelay       time.Duration
}

// Client submits PDFs to the handwriting-recognition service and polls for
// the transcription. OCR is best-effort: Transcribe reports failures as an
// empty transcript, never as an error to the caller.
type Client struct {
	client      *resty.Client
	clock       Clock
	maxAttempts int
	pollDelay   time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = defaultMaxPollAttempts
	}
	if cfg.PollDelay <= 0 {
		cfg.PollDelay = defaultPollDelay
	}

	return &Client{
		client:      resty.New().SetBaseURL(cfg.BaseURL).SetAuthToken(cfg.APIKey),
		clock:       realClock{},
		maxAttempts: cfg.MaxPollAttempts,
		pollDelay:   cfg.PollDelay,
	}
}

func (c *Client) Transcribe(ctx context.Context, filePath string) string {
	documentId, err := c.upload(ctx, filePath)
	if err != nil {
		slog.Error("ocr upload failed", "file", filePath, "error", err)
		return ""
	}

	slog.Info("ocr document uploaded", "file", filePath, "document_id", documentId)

	text, err := c.poll(ctx, documentId)
	if err != nil {
		slog.Error("ocr transcription failed", "document_id", documentId, "error", err)
		return ""
	}
	return text
}

type uploadResponse struct {
	Id     string `json:"id"`
	Status string `json:"status"`
}

func (c *Client) upload(ctx context.Context, filePath string) (string, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetFile("file", filePath).
		SetFormData(map[string]string{
			"action":       "transcribe",
			"delete_after": "604800",
		}).
		Post("/documents")
	if err != nil {
		return "", fmt.Errorf("error submitting document: %w", err)
	}

	if !res.IsSuccess() {
		return "", fmt.Errorf("ocr service rejected upload: status %d: %s", res.StatusCode(), res.String())
	}

	var uploaded uploadResponse
	if err := json.Unmarshal(res.Body(), &uploaded); err != nil {
		return "", fmt.Errorf("error parsing upload response: %w", err)
	}
	if uploaded.Id == "" {
		return "", fmt.Errorf("upload response missing document id")
	}

	return uploaded.Id, nil
}

// poll drives the document to a terminal state, bounded by maxAttempts so a
// stuck remote document can never block a batch indefinitely.
func (c *Client) poll(ctx context.Context, documentId string) (string, error) {
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.clock.Sleep(ctx, c.pollDelay); err != nil {
				return "", fmt.Errorf("ocr polling cancelled: %w", err)
			}
		}

		res, err := c.client.R().SetContext(ctx).Get("/documents/" + documentId)
		if err != nil {
			slog.Warn("ocr status request failed, retrying", "document_id", documentId, "error", err)
			continue
		}

		body := bytes.TrimSpace(res.Body())
		if len(body) == 0 {
			slog.Debug("empty ocr status body, retrying", "document_id", documentId)
			continue
		}

		var status pollResponse
		if err := json.Unmarshal(body, &status); err != nil {
			slog.Warn("unparseable ocr status body, retrying", "document_id", documentId, "error", err)
			continue
		}

		switch {
		case status.Status == "processed":
			return extractTranscript(body), nil
		case status.Status == "failed":
			return "", fmt.Errorf("ocr processing failed for document %s", documentId)
		default:
			if _, known := inFlightStatuses[status.Status]; !known {
				slog.Warn("unknown ocr document status, retrying", "document_id", documentId, "status", status.Status)
			}
		}
	}

	return "", fmt.Errorf("ocr polling exhausted %d attempts for document %s", c.maxAttempts, documentId)
}

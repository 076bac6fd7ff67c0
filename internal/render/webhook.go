package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/franz/tutorial-bot/internal/util"
)

const (
	// DefaultWebhookURL is the local n8n generation webhook
	DefaultWebhookURL = "http://localhost:5678/webhook/generate-tutorial"

	// DefaultWebhookTimeout bounds a whole generation request; the workflow
	// answers only after the video has been submitted for rendering.
	DefaultWebhookTimeout = 5 * time.Minute

	// UserAgent identifies the harness to the webhook and the render API
	UserAgent = "tbot/1.0 (tutorial-bot)"
)

// Webhook triggers tutorial generation
type Webhook struct {
	url        string
	httpClient *http.Client
}

// NewWebhook creates a webhook client. Empty or zero arguments use defaults.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if url == "" {
		url = DefaultWebhookURL
	}
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// URL returns the webhook endpoint
func (w *Webhook) URL() string {
	return w.url
}

// Trigger posts req to the webhook and decodes the generation result.
// The request is not retried: the workflow is not idempotent.
func (w *Webhook) Trigger(ctx context.Context, req Request) (*Generation, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	util.DebugLog("Webhook: POST %s topic=%q style=%q duration=%d", w.url, req.Topic, req.Style, req.Duration)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", UserAgent)

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	var gen Generation
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &gen, nil
}

// statusError reads a short excerpt of the body into the error.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("%w %d", util.ErrUnexpectedStatus, resp.StatusCode)
	}
	return fmt.Errorf("%w %d: %s", util.ErrUnexpectedStatus, resp.StatusCode, msg)
}

package render

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/franz/tutorial-bot/internal/util"
)

const (
	// DefaultAPIBase is the Shotstack edit API
	DefaultAPIBase = "https://api.shotstack.io"

	// DefaultEnv is the Shotstack stage used when none is configured
	DefaultEnv = "sandbox"

	// DefaultPollInterval is the pause between status checks
	DefaultPollInterval = 5 * time.Second

	// DefaultMaxAttempts caps polling at about five minutes
	DefaultMaxAttempts = 60

	// PlaceholderAPIKey is the value shipped in sample configs
	PlaceholderAPIKey = "your-shotstack-key"
)

// Render states reported by Shotstack
const (
	StatusQueued    = "queued"
	StatusFetching  = "fetching"
	StatusRendering = "rendering"
	StatusSaving    = "saving"
	StatusDone      = "done"
	StatusFailed    = "failed"
)

// PollerConfig holds render status polling configuration
type PollerConfig struct {
	APIKey      string
	Env         string
	BaseURL     string
	Interval    time.Duration
	MaxAttempts int
	Retry       *util.RetryConfig
}

// Poller follows a render until it finishes
type Poller struct {
	cfg        PollerConfig
	httpClient *http.Client
	limiter    *rate.Limiter

	// OnPoll, if set, is called after every successful status check.
	OnPoll func(attempt int, detail *RenderDetail)
}

type statusResponse struct {
	Success  bool         `json:"success"`
	Message  string       `json:"message"`
	Response RenderDetail `json:"response"`
}

// NewPoller creates a poller. Zero fields in cfg use defaults.
func NewPoller(cfg PollerConfig) *Poller {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Env == "" {
		cfg.Env = DefaultEnv
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAPIBase
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Retry == nil {
		cfg.Retry = util.RemoteRetryConfig()
	}
	return &Poller{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(cfg.Interval), 1),
	}
}

// Configured reports whether a real API key is set.
func (p *Poller) Configured() bool {
	return p.cfg.APIKey != "" && p.cfg.APIKey != PlaceholderAPIKey
}

// StatusURL returns the status endpoint for renderID
func (p *Poller) StatusURL(renderID string) string {
	return fmt.Sprintf("%s/%s/render/%s", p.cfg.BaseURL, p.cfg.Env, url.PathEscape(renderID))
}

// Wait polls until the render is done or failed. Checks are spaced by the
// poll interval. A failed render returns its detail with util.ErrRenderFailed;
// running out of attempts returns the last detail with util.ErrRenderTimeout.
func (p *Poller) Wait(ctx context.Context, renderID string) (*RenderDetail, error) {
	if !p.Configured() {
		return nil, util.ErrNoAPIKey
	}
	if renderID == "" {
		return nil, fmt.Errorf("render ID cannot be empty")
	}

	var last *RenderDetail
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return last, err
		}

		detail, err := util.RetryWithBackoff(ctx, p.cfg.Retry, func() (*RenderDetail, error) {
			return p.Status(ctx, renderID)
		}, "render status")
		if err != nil {
			return last, err
		}
		last = detail
		if p.OnPoll != nil {
			p.OnPoll(attempt, detail)
		}

		switch detail.Status {
		case StatusDone:
			return detail, nil
		case StatusFailed:
			msg := detail.Error
			if msg == "" {
				msg = "no error message"
			}
			return detail, fmt.Errorf("%w: %s", util.ErrRenderFailed, msg)
		case StatusQueued, StatusFetching, StatusRendering, StatusSaving:
			util.DebugLog("Render %s: %s (%.0f%%), attempt %d/%d",
				renderID, detail.Status, detail.Progress, attempt, p.cfg.MaxAttempts)
		default:
			util.InfoLog("  Status: %s", detail.Status)
		}
	}

	return last, fmt.Errorf("%w after %d checks", util.ErrRenderTimeout, p.cfg.MaxAttempts)
}

// Status fetches the current render record once.
func (p *Poller) Status(ctx context.Context, renderID string) (*RenderDetail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.StatusURL(renderID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var result statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Response.ID == "" {
		result.Response.ID = renderID
	}
	return &result.Response, nil
}

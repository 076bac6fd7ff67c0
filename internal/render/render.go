// Package render drives the tutorial video workflow end to end: it triggers a
// generation through the automation webhook, follows the render on Shotstack
// and optionally downloads the finished video.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Request defaults
const (
	DefaultStyle    = "cinematic editorial"
	DefaultDuration = 45
)

// NotAvailable is printed for fields the webhook or the render API left empty.
const NotAvailable = "N/A"

// Request is the payload posted to the generation webhook
type Request struct {
	Topic    string `json:"topic"`
	Style    string `json:"style"`
	Duration int    `json:"duration"`
}

// WithDefaults returns a copy of r with blank fields filled in.
func (r Request) WithDefaults() Request {
	r.Topic = strings.TrimSpace(r.Topic)
	r.Style = strings.TrimSpace(r.Style)
	if r.Style == "" {
		r.Style = DefaultStyle
	}
	if r.Duration <= 0 {
		r.Duration = DefaultDuration
	}
	return r
}

// Validate checks that the request can be sent.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("topic is required")
	}
	if r.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %d", r.Duration)
	}
	return nil
}

// Generation is the webhook's answer to a trigger
type Generation struct {
	Status   string        `json:"status"`
	RenderID string        `json:"render_id"`
	VideoURL string        `json:"video_url"`
	Response *RenderDetail `json:"response,omitempty"`
}

// RenderDetail is the render record returned by Shotstack
type RenderDetail struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	URL      string  `json:"url"`
	Error    string  `json:"error"`
	Duration float64 `json:"duration"`
	Size     int64   `json:"size"`
}

// TestCase is a named, ready-made request
type TestCase struct {
	Name string
	Request
}

// CustomName labels requests entered by hand.
const CustomName = "Custom"

var testCases = []TestCase{
	{
		Name: "Portrait Photography",
		Request: Request{
			Topic:    "professional portrait photography techniques",
			Style:    "cinematic editorial",
			Duration: 45,
		},
	},
	{
		Name: "Product Photography",
		Request: Request{
			Topic:    "luxury watch photography with reflections",
			Style:    "commercial advertising",
			Duration: 50,
		},
	},
	{
		Name: "Fashion Editorial",
		Request: Request{
			Topic:    "high fashion editorial with motion",
			Style:    "vogue magazine style",
			Duration: 60,
		},
	},
}

// TestCases returns the built-in cases. Selection numbers start at 1; 0 is
// reserved for custom input.
func TestCases() []TestCase {
	out := make([]TestCase, len(testCases))
	copy(out, testCases)
	return out
}

// SelectCase returns built-in case n (1-based).
func SelectCase(n int) (TestCase, error) {
	if n < 1 || n > len(testCases) {
		return TestCase{}, fmt.Errorf("invalid choice %d: pick 0-%d", n, len(testCases))
	}
	return testCases[n-1], nil
}

// DownloadName builds the local file name for a finished video.
func DownloadName(testName string, t time.Time) string {
	return fmt.Sprintf("tutorial_%s_%s.mp4",
		strings.ReplaceAll(testName, " ", "_"), t.Format("20060102_150405"))
}

// Analyze summarizes a generation as printable lines.
func Analyze(g *Generation) []string {
	if g == nil {
		return []string{"No result to analyze"}
	}
	lines := []string{
		"Status: " + orNA(g.Status, "unknown"),
		"Render ID: " + orNA(g.RenderID, NotAvailable),
		"Video URL: " + orNA(g.VideoURL, NotAvailable),
	}
	if d := g.Response; d != nil {
		duration, size := NotAvailable, NotAvailable
		if d.Duration > 0 {
			duration = fmt.Sprintf("%.1fs", d.Duration)
		}
		if d.Size > 0 {
			size = fmt.Sprintf("%s (%d bytes)", humanize.Bytes(uint64(d.Size)), d.Size)
		}
		lines = append(lines, "Duration: "+duration, "Size: "+size)
	}
	return lines
}

// HasVideo reports whether url points at something downloadable.
func HasVideo(url string) bool {
	url = strings.TrimSpace(url)
	return url != "" && url != NotAvailable
}

func orNA(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

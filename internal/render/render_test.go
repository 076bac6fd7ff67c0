package render

import (
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWebhookURL = "http://n8n.test/webhook/generate-tutorial"
	testAPIBase    = "https://api.shotstack.test"
	testVideoURL   = "https://cdn.shotstack.test/renders/abc123.mp4"
)

func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

// sequenceResponder answers with each body in turn, repeating the last one.
func sequenceResponder(bodies ...string) httpmock.Responder {
	var mu sync.Mutex
	i := 0
	return func(*http.Request) (*http.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		body := bodies[min(i, len(bodies)-1)]
		i++
		resp := httpmock.NewStringResponse(http.StatusOK, body)
		resp.Header.Set("Content-Type", "application/json")
		return resp, nil
	}
}

func statusBody(status string, progress int, extra string) string {
	body := `{"success":true,"message":"OK","response":{"id":"abc123","status":"` + status + `","progress":` + strconv.Itoa(progress)
	if extra != "" {
		body += "," + extra
	}
	return body + "}}"
}

func TestRequestWithDefaults(t *testing.T) {
	r := Request{Topic: "  night street photography "}.WithDefaults()
	assert.Equal(t, "night street photography", r.Topic)
	assert.Equal(t, DefaultStyle, r.Style)
	assert.Equal(t, DefaultDuration, r.Duration)

	r = Request{Topic: "x", Style: "noir", Duration: 30}.WithDefaults()
	assert.Equal(t, "noir", r.Style)
	assert.Equal(t, 30, r.Duration)
}

func TestRequestValidate(t *testing.T) {
	assert.Error(t, Request{Topic: " ", Duration: 45}.Validate())
	assert.Error(t, Request{Topic: "x", Duration: 0}.Validate())
	assert.NoError(t, Request{Topic: "x", Duration: 45}.Validate())
}

func TestTestCases(t *testing.T) {
	cases := TestCases()
	require.Len(t, cases, 3)
	assert.Equal(t, "Portrait Photography", cases[0].Name)
	assert.Equal(t, 45, cases[0].Duration)
	assert.Equal(t, "commercial advertising", cases[1].Style)
	assert.Equal(t, 50, cases[1].Duration)
	assert.Equal(t, "high fashion editorial with motion", cases[2].Topic)
	assert.Equal(t, 60, cases[2].Duration)

	// Callers get a copy.
	cases[0].Name = "changed"
	assert.Equal(t, "Portrait Photography", TestCases()[0].Name)
}

func TestSelectCase(t *testing.T) {
	tc, err := SelectCase(3)
	require.NoError(t, err)
	assert.Equal(t, "Fashion Editorial", tc.Name)

	for _, n := range []int{0, 4, -1} {
		_, err := SelectCase(n)
		assert.Error(t, err, "choice %d", n)
	}
}

func TestDownloadName(t *testing.T) {
	ts := time.Date(2026, 10, 15, 9, 5, 7, 0, time.UTC)
	assert.Equal(t, "tutorial_Portrait_Photography_20261015_090507.mp4", DownloadName("Portrait Photography", ts))
	assert.Equal(t, "tutorial_Custom_20261015_090507.mp4", DownloadName(CustomName, ts))
}

func TestAnalyze(t *testing.T) {
	assert.Equal(t, []string{"No result to analyze"}, Analyze(nil))

	lines := Analyze(&Generation{})
	assert.Equal(t, []string{"Status: unknown", "Render ID: N/A", "Video URL: N/A"}, lines)

	lines = Analyze(&Generation{
		Status:   "success",
		RenderID: "abc123",
		VideoURL: testVideoURL,
		Response: &RenderDetail{Duration: 45.2, Size: 2500000},
	})
	require.Len(t, lines, 5)
	assert.Equal(t, "Status: success", lines[0])
	assert.Equal(t, "Duration: 45.2s", lines[3])
	assert.Equal(t, "Size: 2.5 MB (2500000 bytes)", lines[4])

	lines = Analyze(&Generation{Response: &RenderDetail{}})
	assert.Equal(t, "Duration: N/A", lines[3])
	assert.Equal(t, "Size: N/A", lines[4])
}

func TestHasVideo(t *testing.T) {
	assert.True(t, HasVideo(testVideoURL))
	assert.False(t, HasVideo(""))
	assert.False(t, HasVideo("N/A"))
}

package render

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/franz/tutorial-bot/internal/report"
	"github.com/franz/tutorial-bot/internal/store"
	"github.com/franz/tutorial-bot/internal/util"
)

const totalSteps = 5

// Harness runs one test case through trigger, poll, download and summary
type Harness struct {
	Webhook    *Webhook
	Poller     *Poller
	Downloader *Downloader
	OutputDir  string
	Store      *store.Store
	Logger     *report.EventLogger

	// ConfirmDownload is asked before downloading. Nil means never download.
	ConfirmDownload func(url string) bool

	// Now defaults to time.Now.
	Now func() time.Time
}

// Outcome describes one harness run
type Outcome struct {
	JobID        string
	TestName     string
	Generation   *Generation
	Detail       *RenderDetail
	RenderID     string
	VideoURL     string
	DownloadPath string
	Downloaded   int64
	Status       string
	Elapsed      time.Duration

	// Failure is the render service's error for a failed render.
	Failure string
}

func (h *Harness) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Run executes tc. Only a failed trigger or a cancelled context end the run
// with an error. A render reported as failed is recorded with StatusFailed and
// the run still analyzes and summarizes; a missing API key, a poll timeout or
// a failed download are reported and the run continues.
func (h *Harness) Run(ctx context.Context, tc TestCase) (*Outcome, error) {
	start := h.now()
	req := tc.Request.WithDefaults()
	out := &Outcome{
		JobID:    uuid.NewString(),
		TestName: tc.Name,
		Status:   store.StatusTriggered,
	}
	job := &store.RenderJob{
		JobID:       out.JobID,
		TestName:    tc.Name,
		Topic:       req.Topic,
		Style:       req.Style,
		DurationSec: req.Duration,
		CreatedAt:   start,
	}

	h.save(job, out, nil)

	err := h.run(ctx, req, job, out)
	out.Elapsed = h.now().Sub(start)

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		out.Status = store.StatusInterrupted
	default:
		out.Status = store.StatusFailed
	}
	h.save(job, out, err)

	if err != nil {
		h.Logger.LogError(report.EventError, out.JobID, err)
		return out, err
	}

	h.summary(out)
	return out, nil
}

func (h *Harness) run(ctx context.Context, req Request, job *store.RenderJob, out *Outcome) error {
	util.StepLog(1, totalSteps, "Triggering video generation...")
	util.InfoLog("  Topic: %s", req.Topic)
	util.InfoLog("  Style: %s", req.Style)
	util.InfoLog("  Duration: %ds", req.Duration)

	triggerStart := time.Now()
	gen, err := h.Webhook.Trigger(ctx, req)
	renderID := ""
	if gen != nil {
		renderID = gen.RenderID
	}
	h.Logger.LogTrigger(out.JobID, req.Topic, renderID, time.Since(triggerStart), err)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	util.SuccessLog("Generation triggered successfully")

	out.Generation = gen
	out.RenderID = gen.RenderID
	out.VideoURL = gen.VideoURL
	h.save(job, out, nil)

	if out.RenderID != "" {
		if err := h.poll(ctx, out); err != nil {
			return err
		}
	}

	if HasVideo(out.VideoURL) && h.ConfirmDownload != nil && h.ConfirmDownload(out.VideoURL) {
		if err := h.download(ctx, out); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			util.ErrorLog("Download error: %v", err)
		}
	}

	util.StepLog(4, totalSteps, "Analyzing output...")
	for _, line := range Analyze(out.Generation) {
		util.InfoLog("  %s", line)
	}
	return nil
}

func (h *Harness) poll(ctx context.Context, out *Outcome) error {
	if h.Poller == nil || !h.Poller.Configured() {
		util.WarnLog("Shotstack API key not configured, skipping status check")
		return nil
	}

	util.StepLog(2, totalSteps, "Checking render status...")
	lastStatus := ""
	h.Poller.OnPoll = func(attempt int, d *RenderDetail) {
		h.Logger.LogPoll(out.JobID, out.RenderID, d.Status, d.Progress, attempt)
		if d.Status != lastStatus {
			util.InfoLog("  Status: %s - Progress: %.0f%%", d.Status, d.Progress)
			lastStatus = d.Status
		}
	}

	detail, err := h.Poller.Wait(ctx, out.RenderID)
	out.Detail = detail
	switch {
	case err == nil:
		util.SuccessLog("Rendering complete!")
		out.Status = store.StatusRendered
		if detail.URL != "" {
			out.VideoURL = detail.URL
		}
		if out.Generation.Response == nil {
			out.Generation.Response = detail
		}
		return nil
	case errors.Is(err, util.ErrRenderFailed):
		util.ErrorLog("Rendering failed!")
		if detail != nil {
			util.ErrorLog("  Error: %s", orNA(detail.Error, NotAvailable))
		}
		out.Status = store.StatusFailed
		out.Failure = err.Error()
		h.Logger.LogError(report.EventError, out.JobID, err)
		return nil
	case errors.Is(err, util.ErrRenderTimeout):
		util.WarnLog("Timeout waiting for render")
		out.Status = store.StatusTimedOut
		return nil
	case errors.Is(err, context.Canceled):
		return err
	default:
		util.ErrorLog("Error checking status: %v", err)
		return nil
	}
}

func (h *Harness) download(ctx context.Context, out *Outcome) error {
	util.StepLog(3, totalSteps, "Downloading video...")

	dir := h.OutputDir
	if dir == "" {
		dir = "."
	}
	dest := filepath.Join(dir, DownloadName(out.TestName, h.now()))

	d := h.Downloader
	if d == nil {
		d = NewDownloader()
	}
	start := time.Now()
	n, err := d.Download(ctx, out.VideoURL, dest)
	h.Logger.LogDownload(out.JobID, out.VideoURL, dest, n, time.Since(start), err)
	if err != nil {
		return err
	}

	out.DownloadPath = dest
	out.Downloaded = n
	util.SuccessLog("Video saved: %s (%s)", dest, humanize.Bytes(uint64(n)))
	return nil
}

func (h *Harness) summary(out *Outcome) {
	util.HeaderLog("Summary")
	util.InfoLog("  Test: %s", out.TestName)
	util.InfoLog("  Total time: %.1fs", out.Elapsed.Seconds())
	util.InfoLog("  Video URL: %s", orNA(out.VideoURL, NotAvailable))
	util.InfoLog("  Render ID: %s", orNA(out.RenderID, NotAvailable))
	util.StepLog(5, totalSteps, "Test completed!")
}

// save records the job; failures only warn.
func (h *Harness) save(job *store.RenderJob, out *Outcome, runErr error) {
	if h.Store == nil {
		return
	}
	job.RenderID = out.RenderID
	job.Status = out.Status
	job.VideoURL = out.VideoURL
	job.DownloadPath = out.DownloadPath
	job.Elapsed = out.Elapsed
	switch {
	case runErr != nil:
		job.Error = runErr.Error()
	case out.Failure != "":
		job.Error = out.Failure
	}
	if err := h.Store.SaveRenderJob(job); err != nil {
		util.WarnLog("Failed to record render job: %v", err)
	}
}

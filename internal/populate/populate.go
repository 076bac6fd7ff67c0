// Package populate refreshes the music library table on the media host from
// the audio files found under its music root.
package populate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/franz/tutorial-bot/internal/library"
	"github.com/franz/tutorial-bot/internal/remote"
	"github.com/franz/tutorial-bot/internal/report"
	"github.com/franz/tutorial-bot/internal/store"
	"github.com/franz/tutorial-bot/internal/util"
)

// Defaults for the media host layout.
const (
	DefaultRoot         = "/var/www/music"
	DefaultLocalScript  = "/tmp/populate_music.sql"
	DefaultRemoteScript = "/tmp/populate_music.sql"
	DefaultPsqlCommand  = "docker exec -i postgres psql -U n8n -d n8n"
)

const totalSteps = 5

// Config holds populate configuration
type Config struct {
	Host         remote.Host
	HostName     string
	Root         string
	Extensions   []string
	Table        string
	LocalScript  string
	RemoteScript string
	PsqlCommand  string
	LockPath     string
	DryRun       bool
	Store        *store.Store
	Logger       *report.EventLogger

	// Now defaults to time.Now. It stamps last_synced and the run record.
	Now func() time.Time
}

// Populator runs the list, classify, generate, upload and execute pipeline
type Populator struct {
	cfg Config
}

// Result describes one populate run
type Result struct {
	RunID      string
	Catalog    *library.Catalog
	Listed     int
	Inserts    int
	ScriptPath string
	Script     string
	ExitCode   int    // -1 when the script was not executed
	Output     string // stdout of the SQL execution (the summary query)
	TotalRows  int    // -1 when unknown
	Duration   time.Duration
}

// New validates cfg and fills in defaults.
func New(cfg *Config) (*Populator, error) {
	c := *cfg
	if c.Host == nil {
		return nil, fmt.Errorf("%w: remote host is required", util.ErrInvalidConfig)
	}
	if c.Root == "" {
		c.Root = DefaultRoot
	}
	if c.Table == "" {
		c.Table = library.DefaultTable
	}
	if !library.ValidTableName(c.Table) {
		return nil, fmt.Errorf("%w: invalid table name %q", util.ErrInvalidConfig, c.Table)
	}
	if c.LocalScript == "" {
		c.LocalScript = DefaultLocalScript
	}
	if c.RemoteScript == "" {
		c.RemoteScript = DefaultRemoteScript
	}
	if c.PsqlCommand == "" {
		c.PsqlCommand = DefaultPsqlCommand
	}
	if c.LockPath == "" {
		c.LockPath = filepath.Join(os.TempDir(), "tbot-populate.lock")
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return &Populator{cfg: c}, nil
}

// ExecuteCommand returns the remote command that feeds the script to psql.
func (p *Populator) ExecuteCommand() string {
	return fmt.Sprintf("%s < %s", p.cfg.PsqlCommand, remote.ShellQuote(p.cfg.RemoteScript))
}

// CountCommand returns the remote command that prints the table's row count.
func (p *Populator) CountCommand() string {
	return fmt.Sprintf("%s -t -c %s", p.cfg.PsqlCommand, remote.ShellQuote(library.CountQuery(p.cfg.Table)))
}

// Run executes the pipeline once. Only one run per lock file may be active.
func (p *Populator) Run(ctx context.Context) (*Result, error) {
	lock := flock.New(p.cfg.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", p.cfg.LockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock held: %s)", util.ErrLocked, p.cfg.LockPath)
	}
	defer lock.Unlock()

	start := p.cfg.Now()
	result := &Result{
		RunID:     uuid.NewString(),
		ExitCode:  -1,
		TotalRows: -1,
	}
	run := &store.PopulateRun{
		RunID:     result.RunID,
		Host:      p.cfg.HostName,
		Root:      p.cfg.Root,
		Table:     p.cfg.Table,
		StartedAt: start,
		DryRun:    p.cfg.DryRun,
		TotalRows: -1,
		ExitCode:  -1,
	}
	p.recordStart(run)

	runErr := p.run(ctx, start, result)
	result.Duration = p.cfg.Now().Sub(start)

	p.recordFinish(run, result, runErr)
	if runErr != nil {
		p.cfg.Logger.LogError(report.EventError, result.RunID, runErr)
		return result, runErr
	}
	return result, nil
}

func (p *Populator) run(ctx context.Context, start time.Time, result *Result) error {
	log := p.cfg.Logger

	util.StepLog(1, totalSteps, "Listing audio files under %s", p.cfg.Root)
	lines, err := remote.ListAudio(ctx, p.cfg.Host, p.cfg.Root, p.cfg.Extensions)
	log.LogList(result.RunID, p.cfg.Root, len(lines), err)
	if err != nil {
		return err
	}
	result.Listed = len(lines)

	util.StepLog(2, totalSteps, "Classifying %d files by mood", len(lines))
	catalog := &library.Catalog{}
	for _, line := range lines {
		if reason := catalog.Add(line); reason != library.Kept {
			util.DebugLog("Skipping %s line: %s", reason, line)
			log.LogSkip(result.RunID, line, reason.String())
		}
	}
	result.Catalog = catalog

	util.InfoLog("Found tracks:")
	for _, mc := range catalog.Counts() {
		util.InfoLog("  %s: %d tracks", mc.Mood, mc.Count)
		log.LogClassify(result.RunID, string(mc.Mood), mc.Count)
	}
	if catalog.Skipped() > 0 {
		util.InfoLog("  skipped: %d (%d malformed, %d outside a mood folder)",
			catalog.Skipped(), catalog.Malformed, catalog.Unclassified)
	}

	util.StepLog(3, totalSteps, "Generating SQL")
	tracks := catalog.Tracks()
	stmts := library.RenderSQL(tracks, library.RenderOptions{Table: p.cfg.Table, SyncedAt: start})
	script := library.Script(stmts)
	result.Inserts = len(tracks)
	result.Script = script

	if err := writeScript(p.cfg.LocalScript, script); err != nil {
		return err
	}
	result.ScriptPath = p.cfg.LocalScript
	log.LogGenerate(result.RunID, p.cfg.LocalScript, len(tracks), int64(len(script)))
	util.DebugLog("Wrote %d statements to %s", len(stmts), p.cfg.LocalScript)

	if p.cfg.DryRun {
		util.WarnLog("Dry run: not uploading or executing %s", p.cfg.LocalScript)
		return nil
	}

	util.StepLog(4, totalSteps, "Uploading to %s:%s", p.cfg.HostName, p.cfg.RemoteScript)
	uploadStart := time.Now()
	err = p.cfg.Host.Upload(ctx, p.cfg.RemoteScript, strings.NewReader(script))
	log.LogUpload(result.RunID, p.cfg.RemoteScript, int64(len(script)), time.Since(uploadStart), err)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	util.StepLog(5, totalSteps, "Executing SQL in database")
	execStart := time.Now()
	res, err := p.cfg.Host.Run(ctx, p.ExecuteCommand())
	if err != nil {
		log.LogExecute(result.RunID, -1, time.Since(execStart), err)
		return fmt.Errorf("sql execution failed: %w", err)
	}
	result.ExitCode = res.ExitCode
	result.Output = res.Stdout
	log.LogExecute(result.RunID, res.ExitCode, time.Since(execStart), res.Err())

	if out := strings.TrimRight(res.Stdout, "\n"); out != "" {
		for _, line := range strings.Split(out, "\n") {
			util.InfoLog("  %s", line)
		}
	}
	if !res.OK() {
		util.ErrorLog("Error executing SQL:")
		for _, line := range remote.SplitLines(res.Stderr) {
			util.ErrorLog("  %s", line)
		}
		return fmt.Errorf("sql execution failed: %w", res.Err())
	}
	util.SuccessLog("Music library database populated successfully")

	total, err := p.countRows(ctx)
	if err != nil {
		util.WarnLog("Could not read total row count: %v", err)
		return nil
	}
	result.TotalRows = total
	util.InfoLog("Total tracks in database: %d", total)
	return nil
}

func (p *Populator) countRows(ctx context.Context) (int, error) {
	res, err := p.cfg.Host.Run(ctx, p.CountCommand())
	if err != nil {
		return -1, err
	}
	if !res.OK() {
		return -1, res.Err()
	}
	return ParseCount(res.Stdout)
}

// ParseCount reads the tuples-only output of a COUNT(*) query.
func ParseCount(out string) (int, error) {
	s := strings.TrimSpace(out)
	if s == "" {
		return -1, errors.New("empty count output")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1, fmt.Errorf("unexpected count output %q: %w", s, err)
	}
	return n, nil
}

func writeScript(path, script string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create script directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		return fmt.Errorf("failed to write SQL script: %w", err)
	}
	return nil
}

func (p *Populator) recordStart(run *store.PopulateRun) {
	if p.cfg.Store == nil {
		return
	}
	if err := p.cfg.Store.InsertRun(run); err != nil {
		util.WarnLog("Failed to record run start: %v", err)
	}
}

func (p *Populator) recordFinish(run *store.PopulateRun, result *Result, runErr error) {
	if p.cfg.Store == nil {
		return
	}

	run.CompletedAt = p.cfg.Now()
	run.Listed = result.Listed
	if c := result.Catalog; c != nil {
		run.Energetic = c.Count(library.MoodEnergetic)
		run.Calm = c.Count(library.MoodCalm)
		run.Dramatic = c.Count(library.MoodDramatic)
		run.Inspirational = c.Count(library.MoodInspirational)
		run.Skipped = c.Skipped()
	}
	run.TotalRows = result.TotalRows
	run.ExitCode = result.ExitCode

	switch {
	case runErr != nil:
		run.Status = store.StatusFailed
		run.Error = runErr.Error()
	case p.cfg.DryRun:
		run.Status = store.StatusDryRun
	default:
		run.Status = store.StatusSuccess
	}

	if err := p.cfg.Store.FinishRun(run); err != nil {
		util.WarnLog("Failed to record run result: %v", err)
	}
}

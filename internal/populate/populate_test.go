package populate

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/tutorial-bot/internal/remote"
	"github.com/franz/tutorial-bot/internal/report"
	"github.com/franz/tutorial-bot/internal/store"
	"github.com/franz/tutorial-bot/internal/util"
)

// fakeHost answers commands by prefix and captures uploads.
type fakeHost struct {
	listing   string
	execCode  int
	execOut   string
	execErr   string
	countOut  string
	uploadErr error

	commands []string
	uploads  map[string]string
}

func (f *fakeHost) Run(_ context.Context, command string) (*remote.Result, error) {
	f.commands = append(f.commands, command)
	switch {
	case strings.HasPrefix(command, "find "):
		return &remote.Result{Stdout: f.listing}, nil
	case strings.Contains(command, " -t -c "):
		return &remote.Result{Stdout: f.countOut}, nil
	case strings.Contains(command, " < "):
		return &remote.Result{Stdout: f.execOut, Stderr: f.execErr, ExitCode: f.execCode}, nil
	}
	return nil, errors.New("unexpected command: " + command)
}

func (f *fakeHost) Upload(_ context.Context, remotePath string, r io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if f.uploads == nil {
		f.uploads = make(map[string]string)
	}
	f.uploads[remotePath] = string(data)
	return nil
}

const sampleListing = `/var/www/music/energetic/track1.mp3|track1.mp3
/var/www/music/calm/O'Brien's Mix.wav|O'Brien's Mix.wav
/var/www/music/unsorted/loose.mp3|loose.mp3
not a record
/var/www/music/dramatic/storm.m4a|storm.m4a
`

func newTestPopulator(t *testing.T, host *fakeHost, mutate func(*Config)) (*Populator, *store.Store) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := &Config{
		Host:         host,
		HostName:     "media.example.net",
		LocalScript:  filepath.Join(dir, "out", "populate_music.sql"),
		RemoteScript: "/tmp/populate_music.sql",
		LockPath:     filepath.Join(dir, "populate.lock"),
		Store:        st,
		Logger:       report.NullLogger(),
		Now: func() time.Time {
			return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	p, err := New(cfg)
	require.NoError(t, err)
	return p, st
}

func TestPopulateSuccess(t *testing.T) {
	host := &fakeHost{
		listing:  sampleListing,
		execOut:  "TRUNCATE TABLE\nINSERT 0 1\n",
		countOut: "     3\n",
	}
	p, st := newTestPopulator(t, host, nil)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, result.Listed)
	assert.Equal(t, 3, result.Inserts)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 1, result.Catalog.Malformed)
	assert.Equal(t, 1, result.Catalog.Unclassified)

	// The local script and the uploaded script are the same text.
	local, err := os.ReadFile(result.ScriptPath)
	require.NoError(t, err)
	assert.Equal(t, string(local), host.uploads["/tmp/populate_music.sql"])

	script := string(local)
	assert.True(t, strings.HasPrefix(script, "-- Clear existing entries\nTRUNCATE TABLE music_library;"))
	assert.Contains(t, script, "'O''Brien''s Mix'")
	assert.Contains(t, script, "TIMESTAMP WITH TIME ZONE '2026-10-15 12:00:00+00:00'")
	assert.True(t, strings.HasSuffix(script, "ORDER BY mood;"))
	assert.Less(t, strings.Index(script, "track1"), strings.Index(script, "O''Brien"), "energetic before calm")
	assert.Less(t, strings.Index(script, "O''Brien"), strings.Index(script, "storm"), "calm before dramatic")

	require.Len(t, host.commands, 3)
	assert.Equal(t, "docker exec -i postgres psql -U n8n -d n8n < /tmp/populate_music.sql", host.commands[1])
	assert.Equal(t, "docker exec -i postgres psql -U n8n -d n8n -t -c 'SELECT COUNT(*) FROM music_library;'", host.commands[2])

	run, err := st.GetRun(result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, store.StatusSuccess, run.Status)
	assert.Equal(t, 1, run.Energetic)
	assert.Equal(t, 1, run.Calm)
	assert.Equal(t, 1, run.Dramatic)
	assert.Equal(t, 0, run.Inspirational)
	assert.Equal(t, 2, run.Skipped)
	assert.Equal(t, 3, run.TotalRows)
	assert.Equal(t, "media.example.net", run.Host)
}

func TestPopulateExecutionFailure(t *testing.T) {
	host := &fakeHost{
		listing:  sampleListing,
		execCode: 1,
		execErr:  "ERROR:  relation \"music_library\" does not exist\n",
	}
	p, st := newTestPopulator(t, host, nil)

	result, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrRemoteCommand)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, -1, result.TotalRows)
	assert.Len(t, host.commands, 2, "count query must not run after a failed load")

	run, err := st.GetRun(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, run.Status)
	assert.Equal(t, 1, run.ExitCode)
	assert.Contains(t, run.Error, "does not exist")
}

func TestPopulateDryRun(t *testing.T) {
	host := &fakeHost{listing: sampleListing}
	p, st := newTestPopulator(t, host, func(c *Config) { c.DryRun = true })

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, host.uploads)
	assert.Len(t, host.commands, 1, "only the lister runs")
	assert.Equal(t, -1, result.ExitCode)
	_, err = os.Stat(result.ScriptPath)
	assert.NoError(t, err)

	run, err := st.GetRun(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusDryRun, run.Status)
	assert.True(t, run.DryRun)
}

func TestPopulateEmptyLibrary(t *testing.T) {
	host := &fakeHost{listing: "", countOut: "0"}
	p, _ := newTestPopulator(t, host, nil)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserts)
	assert.Equal(t, 0, result.TotalRows)

	script := host.uploads["/tmp/populate_music.sql"]
	assert.Contains(t, script, "TRUNCATE TABLE music_library;")
	assert.Contains(t, script, "GROUP BY mood")
	assert.NotContains(t, script, "INSERT INTO")
}

func TestPopulateUploadFailure(t *testing.T) {
	host := &fakeHost{listing: sampleListing, uploadErr: errors.New("sftp: permission denied")}
	p, st := newTestPopulator(t, host, nil)

	result, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload failed")
	assert.Len(t, host.commands, 1)

	run, _ := st.GetRun(result.RunID)
	assert.Equal(t, store.StatusFailed, run.Status)
}

func TestPopulateCountUnreadable(t *testing.T) {
	host := &fakeHost{listing: sampleListing, countOut: "psql: warning"}
	p, _ := newTestPopulator(t, host, nil)

	result, err := p.Run(context.Background())
	require.NoError(t, err, "an unreadable count is only a warning")
	assert.Equal(t, -1, result.TotalRows)
}

func TestPopulateLocked(t *testing.T) {
	host := &fakeHost{listing: sampleListing}
	lockPath := filepath.Join(t.TempDir(), "held.lock")
	p, _ := newTestPopulator(t, host, func(c *Config) { c.LockPath = lockPath })

	other := flock.New(lockPath)
	ok, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer other.Unlock()

	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, util.ErrLocked)
	assert.Empty(t, host.commands)
}

func TestNewValidation(t *testing.T) {
	_, err := New(&Config{})
	assert.ErrorIs(t, err, util.ErrInvalidConfig)

	_, err = New(&Config{Host: &fakeHost{}, Table: "music; DROP TABLE x"})
	assert.ErrorIs(t, err, util.ErrInvalidConfig)

	p, err := New(&Config{Host: &fakeHost{}, PsqlCommand: "psql -d media", RemoteScript: "/srv/sql/load me.sql", Table: "public.tracks"})
	require.NoError(t, err)
	assert.Equal(t, "psql -d media < '/srv/sql/load me.sql'", p.ExecuteCommand())
	assert.Equal(t, "psql -d media -t -c 'SELECT COUNT(*) FROM public.tracks;'", p.CountCommand())
}

func TestParseCount(t *testing.T) {
	n, err := ParseCount("   42\n\n")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = ParseCount("")
	assert.Error(t, err)

	_, err = ParseCount("ERROR")
	assert.Error(t, err)
}

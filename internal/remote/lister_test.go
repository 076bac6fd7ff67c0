package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/tutorial-bot/internal/util"
)

// fakeRunner replays canned results and records commands.
type fakeRunner struct {
	results  map[string]*Result
	fallback *Result
	err      error
	commands []string
}

func (f *fakeRunner) Run(_ context.Context, command string) (*Result, error) {
	f.commands = append(f.commands, command)
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[command]; ok {
		return r, nil
	}
	if f.fallback != nil {
		return f.fallback, nil
	}
	return &Result{}, nil
}

func TestListAudioCommand(t *testing.T) {
	got := ListAudioCommand("/var/www/music", nil)
	want := `find /var/www/music -type f \( -iname '*.mp3' -o -iname '*.wav' -o -iname '*.m4a' \) -printf '%p|%f\n'`
	assert.Equal(t, want, got)

	got = ListAudioCommand("/srv/my music", []string{"FLAC", ".flac", " ogg "})
	want = `find '/srv/my music' -type f \( -iname '*.flac' -o -iname '*.ogg' \) -printf '%p|%f\n'`
	assert.Equal(t, want, got)
}

func TestNormalizeExtensions(t *testing.T) {
	assert.Equal(t, DefaultExtensions, NormalizeExtensions(nil))
	assert.Equal(t, DefaultExtensions, NormalizeExtensions([]string{"", " "}))
	assert.Equal(t, []string{".mp3", ".opus"}, NormalizeExtensions([]string{"MP3", "opus", ".mp3"}))
}

func TestListAudio(t *testing.T) {
	runner := &fakeRunner{fallback: &Result{
		Stdout: "/var/www/music/calm/a.mp3|a.mp3\r\n\n/var/www/music/energetic/b.wav|b.wav\n",
	}}

	lines, err := ListAudio(context.Background(), runner, "/var/www/music", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/var/www/music/calm/a.mp3|a.mp3",
		"/var/www/music/energetic/b.wav|b.wav",
	}, lines)
	require.Len(t, runner.commands, 1)
	assert.Contains(t, runner.commands[0], "find /var/www/music")
}

func TestListAudioPartialFailure(t *testing.T) {
	runner := &fakeRunner{fallback: &Result{
		Stdout:   "/m/calm/a.mp3|a.mp3\n",
		Stderr:   "find: '/m/private': Permission denied",
		ExitCode: 1,
	}}

	lines, err := ListAudio(context.Background(), runner, "/m", nil)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestListAudioFailure(t *testing.T) {
	runner := &fakeRunner{fallback: &Result{
		Stderr:   "find: '/nope': No such file or directory",
		ExitCode: 1,
	}}
	_, err := ListAudio(context.Background(), runner, "/nope", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrRemoteCommand)
	assert.Contains(t, err.Error(), "No such file")

	transport := &fakeRunner{err: errors.New("connection reset by peer")}
	_, err = ListAudio(context.Background(), transport, "/m", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"":                `''`,
		"/var/www/music":  "/var/www/music",
		"my music":        `'my music'`,
		"it's":            `'it'\''s'`,
		"*.mp3":           `'*.mp3'`,
		"$(rm -rf /)":     `'$(rm -rf /)'`,
		"n8n@host:5432":   "n8n@host:5432",
	}
	for in, want := range tests {
		assert.Equal(t, want, ShellQuote(in), "ShellQuote(%q)", in)
	}
}

func TestResultErr(t *testing.T) {
	var nilResult *Result
	assert.False(t, nilResult.OK())

	ok := &Result{Stdout: "fine"}
	assert.NoError(t, ok.Err())

	failed := &Result{Stdout: "only stdout", ExitCode: 2}
	err := failed.Err()
	assert.ErrorIs(t, err, util.ErrRemoteCommand)
	assert.Contains(t, err.Error(), "exit status 2: only stdout")
}

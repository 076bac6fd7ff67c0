// Package remote runs shell commands on, and copies files to, the media host.
package remote

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/franz/tutorial-bot/internal/util"
)

// Result is the outcome of a remote command that ran to completion.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK reports whether the command exited with status 0.
func (r *Result) OK() bool {
	return r != nil && r.ExitCode == 0
}

// Err converts a non-zero exit into an error wrapping util.ErrRemoteCommand.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	if r == nil {
		return fmt.Errorf("%w: no result", util.ErrRemoteCommand)
	}
	msg := strings.TrimSpace(r.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(r.Stdout)
	}
	return fmt.Errorf("%w: exit status %d: %s", util.ErrRemoteCommand, r.ExitCode, msg)
}

// Runner executes a shell command on the remote host. A command that runs and
// exits non-zero is reported through Result.ExitCode, not as an error.
type Runner interface {
	Run(ctx context.Context, command string) (*Result, error)
}

// Uploader delivers bytes to a path on the remote host.
type Uploader interface {
	Upload(ctx context.Context, remotePath string, r io.Reader) error
}

// Host is both a Runner and an Uploader.
type Host interface {
	Runner
	Uploader
}

// ShellQuote quotes s for a POSIX shell.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("/._-+:@%=,", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

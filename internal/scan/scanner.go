// Package scan lists audio files from a local directory tree in the same
// "path|filename" form the remote lister prints, so a local mirror of the
// music root can be classified without SSH.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/franz/tutorial-bot/internal/remote"
	"github.com/franz/tutorial-bot/internal/util"
)

// Scanner discovers audio files in a directory tree
type Scanner struct {
	extensions map[string]bool
}

// New creates a Scanner matching exts case-insensitively. Empty exts use
// remote.DefaultExtensions.
func New(exts []string) *Scanner {
	extMap := make(map[string]bool)
	for _, ext := range remote.NormalizeExtensions(exts) {
		extMap[ext] = true
	}
	return &Scanner{extensions: extMap}
}

// Result represents a scan result
type Result struct {
	Lines  []string
	Errors []error
}

// Scan walks root and returns one "path|filename" line per audio file.
// Unreadable entries are logged and skipped.
func (s *Scanner) Scan(ctx context.Context, root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	util.InfoLog("Starting scan of: %s", root)
	result := &Result{}

	// Disable the spinner when stderr is piped or redirected
	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stderr.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			util.WarnLog("Error accessing path %s: %v", path, err)
			result.Errors = append(result.Errors, fmt.Errorf("access error: %s: %w", path, err))
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if s.isAudioFile(path) {
			result.Lines = append(result.Lines, filepath.ToSlash(path)+"|"+d.Name())
			if bar != nil {
				bar.Add(1)
			}
		}
		return nil
	})

	if bar != nil {
		bar.Finish()
	}

	if walkErr != nil {
		return result, fmt.Errorf("walk error: %w", walkErr)
	}

	util.SuccessLog("Scan complete: %d audio files, %d errors", len(result.Lines), len(result.Errors))
	return result, nil
}

// isAudioFile checks if a file has a supported audio extension
func (s *Scanner) isAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return s.extensions[ext]
}

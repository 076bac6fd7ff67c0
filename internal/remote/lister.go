package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/franz/tutorial-bot/internal/util"
)

// DefaultExtensions are the audio types the library keeps.
var DefaultExtensions = []string{".mp3", ".wav", ".m4a"}

// NormalizeExtensions lowercases extensions, adds a leading dot and drops
// blanks and duplicates. An empty result falls back to DefaultExtensions.
func NormalizeExtensions(exts []string) []string {
	seen := make(map[string]bool, len(exts))
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultExtensions...)
	}
	return out
}

// ListAudioCommand builds a find invocation printing one "path|filename" line
// per audio file under root. Extension matching is case-insensitive.
func ListAudioCommand(root string, exts []string) string {
	exts = NormalizeExtensions(exts)
	names := make([]string, 0, len(exts))
	for _, ext := range exts {
		names = append(names, "-iname "+ShellQuote("*"+ext))
	}
	return fmt.Sprintf(`find %s -type f \( %s \) -printf '%%p|%%f\n'`,
		ShellQuote(root), strings.Join(names, " -o "))
}

// ListAudio runs the lister on the remote host and returns its non-empty lines.
// A non-zero exit with partial output (e.g. unreadable subdirectories) is
// logged and tolerated; a non-zero exit with no output is an error.
func ListAudio(ctx context.Context, runner Runner, root string, exts []string) ([]string, error) {
	cmd := ListAudioCommand(root, exts)
	util.DebugLog("Listing audio files: %s", cmd)

	res, err := runner.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	lines := SplitLines(res.Stdout)
	if !res.OK() {
		if len(lines) == 0 {
			return nil, fmt.Errorf("failed to list %s: %w", root, res.Err())
		}
		util.WarnLog("Lister exited with status %d, continuing with %d entries: %s",
			res.ExitCode, len(lines), strings.TrimSpace(res.Stderr))
	}
	return lines, nil
}

// SplitLines splits command output into lines, dropping blank lines and
// trailing carriage returns.
func SplitLines(out string) []string {
	raw := strings.Split(out, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

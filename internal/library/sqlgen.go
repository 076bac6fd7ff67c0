package library

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// DefaultTable is the table the music library lives in.
const DefaultTable = "music_library"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidTableName reports whether name is a plain (optionally schema-qualified)
// SQL identifier that can be interpolated without quoting.
func ValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}

// RenderOptions controls SQL generation.
type RenderOptions struct {
	// Table defaults to DefaultTable.
	Table string
	// SyncedAt is written to last_synced. Zero means the database clock (NOW()).
	SyncedAt time.Time
}

// Quote renders s as a single-quoted SQL string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (o RenderOptions) table() string {
	if o.Table == "" {
		return DefaultTable
	}
	return o.Table
}

func (o RenderOptions) syncedAt() string {
	if o.SyncedAt.IsZero() {
		return "NOW()"
	}
	return "TIMESTAMP WITH TIME ZONE " + Quote(o.SyncedAt.Format("2006-01-02 15:04:05-07:00"))
}

// RenderSQL builds the full-replace statement sequence: a truncate, one insert
// per track in mood-table order (input order within a mood), and a per-mood
// count. The truncate and the summary are emitted even when tracks is empty.
// tracks itself is not reordered.
func RenderSQL(tracks []Track, opts RenderOptions) []string {
	table := opts.table()
	synced := opts.syncedAt()

	tracks = append([]Track(nil), tracks...)
	sort.SliceStable(tracks, func(i, j int) bool {
		return moodIndex(tracks[i].Mood) < moodIndex(tracks[j].Mood)
	})

	stmts := make([]string, 0, len(tracks)+6)
	stmts = append(stmts,
		"-- Clear existing entries",
		fmt.Sprintf("TRUNCATE TABLE %s;", table),
		"",
	)

	for _, t := range tracks {
		stmts = append(stmts, fmt.Sprintf(
			"INSERT INTO %s (motion_array_id, track_name, genre, mood, local_path, last_synced)\nVALUES (md5(%s), %s, %s, %s, %s, %s);",
			table,
			Quote(t.Filename),
			Quote(t.TrackName),
			Quote(string(t.Genre)),
			Quote(string(t.Mood)),
			Quote(t.Path),
			synced,
		))
	}

	stmts = append(stmts,
		"",
		"-- Show summary",
		fmt.Sprintf("SELECT mood, COUNT(*) as track_count FROM %s GROUP BY mood ORDER BY mood;", table),
	)
	return stmts
}

// Script joins statements into the text of a SQL file.
func Script(stmts []string) string {
	return strings.Join(stmts, "\n")
}

// CountQuery returns the total-row query run after a successful load.
func CountQuery(table string) string {
	if table == "" {
		table = DefaultTable
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s;", table)
}

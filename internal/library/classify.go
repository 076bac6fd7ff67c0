package library

import "strings"

// RawEntry is one "path|filename" record produced by the remote lister.
type RawEntry struct {
	Path     string
	Filename string
}

// Track is a RawEntry that matched a mood.
type Track struct {
	Filename  string
	TrackName string
	Path      string
	Mood      Mood
	Genre     Genre
}

// DropReason says why a line produced no track.
type DropReason int

const (
	Kept DropReason = iota
	DropMalformed
	DropUnclassified
)

func (r DropReason) String() string {
	switch r {
	case DropMalformed:
		return "malformed"
	case DropUnclassified:
		return "unclassified"
	default:
		return "kept"
	}
}

// ParseLine splits a lister record on its first '|'.
func ParseLine(line string) (RawEntry, bool) {
	path, filename, ok := strings.Cut(line, "|")
	if !ok {
		return RawEntry{}, false
	}
	return RawEntry{Path: path, Filename: filename}, true
}

// MatchMood returns the first mood, in table order, whose "/{mood}/" segment
// occurs in path.
func MatchMood(path string) (MoodGenre, bool) {
	for _, mg := range moodTable {
		if strings.Contains(path, mg.Mood.pattern()) {
			return mg, true
		}
	}
	return MoodGenre{}, false
}

// TrackName strips the final extension only: "my.song.v2.mp3" -> "my.song.v2".
func TrackName(filename string) string {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		return filename[:i]
	}
	return filename
}

// Classify turns one lister line into a Track.
func Classify(line string) (Track, bool) {
	track, reason := classify(line)
	return track, reason == Kept
}

func classify(line string) (Track, DropReason) {
	entry, ok := ParseLine(line)
	if !ok {
		return Track{}, DropMalformed
	}
	mg, ok := MatchMood(entry.Path)
	if !ok {
		return Track{}, DropUnclassified
	}
	return Track{
		Filename:  entry.Filename,
		TrackName: TrackName(entry.Filename),
		Path:      entry.Path,
		Mood:      mg.Mood,
		Genre:     mg.Genre,
	}, Kept
}

// Catalog holds classified tracks grouped by mood.
type Catalog struct {
	byMood       map[Mood][]Track
	Malformed    int
	Unclassified int
}

// ClassifyAll classifies every line, keeping discovery order within each mood.
// Malformed and unclassified lines are counted and dropped.
func ClassifyAll(lines []string) *Catalog {
	c := &Catalog{byMood: make(map[Mood][]Track, len(moodTable))}
	for _, line := range lines {
		c.Add(line)
	}
	return c
}

// Add classifies one line into the catalog and reports what happened to it.
func (c *Catalog) Add(line string) DropReason {
	if c.byMood == nil {
		c.byMood = make(map[Mood][]Track, len(moodTable))
	}
	track, reason := classify(line)
	switch reason {
	case DropMalformed:
		c.Malformed++
	case DropUnclassified:
		c.Unclassified++
	default:
		c.byMood[track.Mood] = append(c.byMood[track.Mood], track)
	}
	return reason
}

// Tracks returns every track in mood-table order, then discovery order.
func (c *Catalog) Tracks() []Track {
	out := make([]Track, 0, c.Len())
	for _, mg := range moodTable {
		out = append(out, c.byMood[mg.Mood]...)
	}
	return out
}

// ByMood returns the tracks of a single mood in discovery order.
func (c *Catalog) ByMood(m Mood) []Track {
	return c.byMood[m]
}

// Count returns how many tracks were classified under a mood.
func (c *Catalog) Count(m Mood) int {
	return len(c.byMood[m])
}

// Len returns the total number of classified tracks.
func (c *Catalog) Len() int {
	n := 0
	for _, tracks := range c.byMood {
		n += len(tracks)
	}
	return n
}

// Skipped returns the number of dropped lines.
func (c *Catalog) Skipped() int {
	return c.Malformed + c.Unclassified
}

// MoodCount is a per-mood tally, used for summaries.
type MoodCount struct {
	Mood  Mood
	Genre Genre
	Count int
}

// Counts returns one entry per mood in table order, zero counts included.
func (c *Catalog) Counts() []MoodCount {
	out := make([]MoodCount, 0, len(moodTable))
	for _, mg := range moodTable {
		out = append(out, MoodCount{Mood: mg.Mood, Genre: mg.Genre, Count: c.Count(mg.Mood)})
	}
	return out
}

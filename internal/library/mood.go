package library

// Mood is a category label encoded as a directory name in the music tree.
type Mood string

// Genre is the genre tag stored alongside a mood.
type Genre string

const (
	MoodEnergetic     Mood = "energetic"
	MoodCalm          Mood = "calm"
	MoodDramatic      Mood = "dramatic"
	MoodInspirational Mood = "inspirational"
)

const (
	GenreElectronic Genre = "electronic"
	GenreAmbient    Genre = "ambient"
	GenreCinematic  Genre = "cinematic"
	GenreUplifting  Genre = "uplifting"
)

// MoodGenre pairs a mood with its genre tag.
type MoodGenre struct {
	Mood  Mood
	Genre Genre
}

// moodTable is both the match order and the genre lookup.
// A path containing several mood segments resolves to the earliest entry here.
var moodTable = []MoodGenre{
	{MoodEnergetic, GenreElectronic},
	{MoodCalm, GenreAmbient},
	{MoodDramatic, GenreCinematic},
	{MoodInspirational, GenreUplifting},
}

// Moods returns the moods in match order.
func Moods() []MoodGenre {
	out := make([]MoodGenre, len(moodTable))
	copy(out, moodTable)
	return out
}

// GenreFor returns the genre for a mood, or false for an unknown mood.
func GenreFor(m Mood) (Genre, bool) {
	for _, mg := range moodTable {
		if mg.Mood == m {
			return mg.Genre, true
		}
	}
	return "", false
}

// moodIndex is m's position in moodTable; unknown moods sort last.
func moodIndex(m Mood) int {
	for i, mg := range moodTable {
		if mg.Mood == m {
			return i
		}
	}
	return len(moodTable)
}

// pattern returns the path substring that selects this mood.
func (m Mood) pattern() string {
	return "/" + string(m) + "/"
}

func (m Mood) String() string { return string(m) }

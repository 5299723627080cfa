package model

import "time"

// Weekday is the closed set of schedule keys. The labels are the Japanese
// single-character weekday names, ordered to line up with time.Weekday
// (Sunday = 0), so WeekdayOf is a direct index.
type Weekday string

const (
	Sunday    Weekday = "日"
	Monday    Weekday = "月"
	Tuesday   Weekday = "火"
	Wednesday Weekday = "水"
	Thursday  Weekday = "木"
	Friday    Weekday = "金"
	Saturday  Weekday = "土"
)

// Weekdays lists all valid schedule keys in time.Weekday order.
var Weekdays = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// WeekdayOf returns the schedule key for t's weekday.
func WeekdayOf(t time.Time) Weekday {
	return Weekdays[int(t.Weekday())]
}

// Valid reports whether w is one of the seven weekday labels.
func (w Weekday) Valid() bool {
	for _, d := range Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// Schedule maps a weekday to the posting times for that day.
// Times are zero-padded "HH:MM" strings, deduplicated and sorted ascending
// (lexicographic order equals chronological order for this format). The
// settings service enforces both invariants on save; the matcher relies
// on exact string equality against this representation.
type Schedule map[Weekday][]string

// Settings holds a user's content generation preferences. One row per user,
// replaced wholesale on save — there is no partial merge.
type Settings struct {
	UserID              string    `json:"-"                   db:"user_id"`
	Keywords            []string  `json:"keywords"            db:"keywords"`
	StyleInstructions   string    `json:"styleInstructions"   db:"style_instructions"`
	CaptionInstructions string    `json:"captionInstructions" db:"caption_instructions"`
	Schedule            Schedule  `json:"schedule"            db:"schedule"`
	UpdatedAt           time.Time `json:"updatedAt"           db:"updated_at"`
}

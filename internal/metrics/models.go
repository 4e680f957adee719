package metrics

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Mood is the self-reported mood of a logged day. Values outside the known
// set are kept as-is.
type Mood string

const (
	MoodHappy    Mood = "Happy"
	MoodNeutral  Mood = "Neutral"
	MoodTired    Mood = "Tired"
	MoodStressed Mood = "Stressed"
)

// Moods lists the known moods in form order.
var Moods = []Mood{MoodHappy, MoodNeutral, MoodTired, MoodStressed}

var moodEmojis = map[Mood]string{
	MoodHappy:    "😊",
	MoodNeutral:  "😐",
	MoodTired:    "😴",
	MoodStressed: "😫",
}

// Emoji returns the icon for m, or "" for an unknown mood.
func (m Mood) Emoji() string {
	return moodEmojis[m]
}

// Known reports whether m is one of the enumerated moods.
func (m Mood) Known() bool {
	_, ok := moodEmojis[m]
	return ok
}

// Label renders the mood with its icon when one exists.
func (m Mood) Label() string {
	if e := m.Emoji(); e != "" {
		return e + " " + string(m)
	}
	return string(m)
}

const dayLayout = "2006-01-02"

// Day is a calendar date with no meaningful time of day. It is stored as UTC
// midnight of the wall date it was captured with.
type Day struct {
	t time.Time
}

// NewDay returns the calendar date of t as seen in t's own location.
func NewDay(t time.Time) Day {
	return Day{t: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDay accepts a bare date (2006-01-02) or an RFC3339 timestamp. For
// timestamps the date is taken from the wall clock in the offset written,
// so 2024-01-05T23:00:00-05:00 is January 5th everywhere.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dayLayout, s); err == nil {
		return NewDay(t), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return NewDay(t), nil
	}
	return Day{}, fmt.Errorf("parse day %q: unrecognized format", s)
}

// MustDay is ParseDay for literals known to be valid.
func MustDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Day) IsZero() bool { return d.t.IsZero() }
func (d Day) Time() time.Time { return d.t }
func (d Day) String() string { return d.t.Format(dayLayout) }
func (d Day) Before(o Day) bool { return d.t.Before(o.t) }

// Format renders the date with a time layout, e.g. "1/2/2006".
func (d Day) Format(layout string) string {
	return d.t.Format(layout)
}

func (d Day) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.t.Format(time.RFC3339))
}

func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		*d = Day{}
		return nil
	}
	parsed, err := ParseDay(s)
	if err != nil {
		*d = Day{}
		return nil
	}
	*d = parsed
	return nil
}

// MetricRecord is one logged day.
type MetricRecord struct {
	ID         string  `json:"_id,omitempty"`
	Date       Day     `json:"date"`
	Steps      int     `json:"steps"`
	SleepHours float64 `json:"sleep"`
	Mood       Mood    `json:"mood"`
	Notes      string  `json:"notes"`
}

// DateRange selects which records are fetched. Start <= End is enforced by
// the selection layer.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// DefaultRange covers the seven calendar days before now plus today, as
// dated in now's location. Like every other range it spans whole UTC days,
// which is how record dates are stored.
func DefaultRange(now time.Time) DateRange {
	r, _ := RangeFromDays(now.AddDate(0, 0, -7).Format(dayLayout), now.Format(dayLayout))
	return r
}

// RangeFromDays builds a range covering two YYYY-MM-DD days completely,
// from midnight UTC on start to the last second of end.
func RangeFromDays(start, end string) (DateRange, error) {
	s, err := time.Parse(dayLayout, strings.TrimSpace(start))
	if err != nil {
		return DateRange{}, fmt.Errorf("start date: %w", err)
	}
	e, err := time.Parse(dayLayout, strings.TrimSpace(end))
	if err != nil {
		return DateRange{}, fmt.Errorf("end date: %w", err)
	}
	r := DateRange{Start: s, End: e.Add(24*time.Hour - time.Second)}
	return r, r.Validate()
}

// Validate reports an inverted range.
func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return &ValidationError{Field: "endDate", Reason: "must not be before start date"}
	}
	return nil
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s – %s", r.Start.Format("Jan 02, 2006"), r.End.Format("Jan 02, 2006"))
}

// SummaryStats is the gateway-computed aggregate over a user's records. Any
// field may be absent.
type SummaryStats struct {
	AverageSteps      *float64 `json:"avgSteps,omitempty"`
	AverageSleepHours *float64 `json:"avgSleep,omitempty"`
	MostCommonMood    *string  `json:"commonMood,omitempty"`
	TotalEntries      *int     `json:"totalEntries,omitempty"`
}

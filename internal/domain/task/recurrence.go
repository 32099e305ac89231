package task

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frequency is how often a recurring task repeats.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Recurrence describes how a task repeats. Exactly one discriminant field is
// set depending on Frequency: TimeOfDay (daily), DayOfWeek (weekly),
// DayOfMonth (monthly), MonthOfYear+DayOfMonth (yearly). All occurrences are
// computed in UTC.
type Recurrence struct {
	Frequency   Frequency     `json:"frequency"`
	TimeOfDay   *ClockTime    `json:"time_of_day,omitempty"`
	DayOfWeek   *time.Weekday `json:"day_of_week,omitempty"`
	DayOfMonth  *int          `json:"day_of_month,omitempty"`
	MonthOfYear *time.Month   `json:"month_of_year,omitempty"`
}

// ClockTime is a wall-clock time of day without a date.
type ClockTime struct {
	Hour   int
	Minute int
}

// MarshalJSON encodes the time as "HH:MM".
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("%02d:%02d", c.Hour, c.Minute))
}

// UnmarshalJSON decodes "HH:MM".
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return fmt.Errorf("parse time of day %q: %w", s, err)
	}
	c.Hour = parsed.Hour()
	c.Minute = parsed.Minute()
	return nil
}

// NextOccurrence computes the next instant the recurrence fires strictly
// after ref. It always projects forward: a daily 09:00 rule evaluated at
// 10:00 yields 09:00 tomorrow, never an instant in the past. Days of month
// that overflow a short month clamp to that month's last day.
func (r *Recurrence) NextOccurrence(ref time.Time) time.Time {
	ref = ref.UTC()

	switch r.Frequency {
	case FrequencyDaily:
		return r.nextDaily(ref)
	case FrequencyWeekly:
		return r.nextWeekly(ref)
	case FrequencyMonthly:
		return r.nextMonthly(ref)
	case FrequencyYearly:
		return r.nextYearly(ref)
	}
	// Unknown frequencies are rejected by Validate before reaching here.
	return ref.AddDate(0, 0, 1)
}

func (r *Recurrence) nextDaily(ref time.Time) time.Time {
	tod := ClockTime{}
	if r.TimeOfDay != nil {
		tod = *r.TimeOfDay
	}
	candidate := time.Date(ref.Year(), ref.Month(), ref.Day(), tod.Hour, tod.Minute, 0, 0, time.UTC)
	if !candidate.After(ref) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func (r *Recurrence) nextWeekly(ref time.Time) time.Time {
	target := time.Sunday
	if r.DayOfWeek != nil {
		target = *r.DayOfWeek
	}
	midnight := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(target) - int(ref.Weekday()) + 7) % 7
	candidate := midnight.AddDate(0, 0, offset)
	if !candidate.After(ref) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

func (r *Recurrence) nextMonthly(ref time.Time) time.Time {
	day := 1
	if r.DayOfMonth != nil {
		day = *r.DayOfMonth
	}
	candidate := dateClamped(ref.Year(), ref.Month(), day)
	if !candidate.After(ref) {
		candidate = dateClamped(ref.Year(), ref.Month()+1, day)
	}
	return candidate
}

func (r *Recurrence) nextYearly(ref time.Time) time.Time {
	month := time.January
	if r.MonthOfYear != nil {
		month = *r.MonthOfYear
	}
	day := 1
	if r.DayOfMonth != nil {
		day = *r.DayOfMonth
	}
	candidate := dateClamped(ref.Year(), month, day)
	if !candidate.After(ref) {
		candidate = dateClamped(ref.Year()+1, month, day)
	}
	return candidate
}

// dateClamped builds a UTC midnight date, clamping day to the month's length
// (day 31 in February yields February 28/29). Month may be +1 past December;
// time.Date normalizes it into the next year.
func dateClamped(year int, month time.Month, day int) time.Time {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstOfNext.AddDate(0, 0, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

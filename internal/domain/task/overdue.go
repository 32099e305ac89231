package task

import "time"

// OverdueInfo is the derived overdue classification of a task at one instant.
type OverdueInfo struct {
	Overdue bool `json:"overdue"`
	Days    int  `json:"days"`
}

// Evaluate classifies a task as overdue at the given instant and computes the
// display magnitude in whole days. It never mutates the task and never
// returns a negative magnitude. A completed task is never overdue.
func Evaluate(t *Task, now time.Time) OverdueInfo {
	if t.Status == StatusCompleted {
		return OverdueInfo{}
	}
	due := t.DueAt()
	if due == nil || !due.Before(now) {
		return OverdueInfo{}
	}

	info := OverdueInfo{Overdue: true}
	if t.Kind == KindRecurring && t.Recurrence != nil {
		switch t.Recurrence.Frequency {
		case FrequencyWeekly:
			target := time.Sunday
			if t.Recurrence.DayOfWeek != nil {
				target = *t.Recurrence.DayOfWeek
			}
			info.Days = overdueDaysWeekly(target, now)
		case FrequencyMonthly:
			day := 1
			if t.Recurrence.DayOfMonth != nil {
				day = *t.Recurrence.DayOfMonth
			}
			info.Days = overdueDaysMonthly(day, now)
		default:
			info.Days = overdueDaysElapsed(*due, now)
		}
	} else {
		info.Days = overdueDaysElapsed(*due, now)
	}
	return info
}

// overdueDaysElapsed is the whole-day difference between now and the due
// instant, clamped to zero. Used for one-time, daily and yearly tasks.
func overdueDaysElapsed(due, now time.Time) int {
	days := int(now.Sub(due).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// overdueDaysWeekly is the day-of-week distance from the target weekday to
// today, mod 7.
func overdueDaysWeekly(target time.Weekday, now time.Time) int {
	return (int(now.UTC().Weekday()) - int(target) + 7) % 7
}

// overdueDaysMonthly is how far past the scheduled day of month today is,
// clamped to zero.
func overdueDaysMonthly(dayOfMonth int, now time.Time) int {
	days := now.UTC().Day() - dayOfMonth
	if days < 0 {
		return 0
	}
	return days
}

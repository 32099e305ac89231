package task

import (
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck/internal/domain"
)

// validStatuses enumerates the storable task statuses.
var validStatuses = map[Status]bool{
	StatusCreated:   true,
	StatusPending:   true,
	StatusCompleted: true,
}

// ValidStatus reports whether s is a storable status value.
func ValidStatus(s Status) bool {
	return validStatuses[s]
}

// Validate checks that a CreateRequest is well formed: exactly one of
// due date (one-time) or recurrence (recurring) is populated, and the
// recurrence rule carries the discriminant its frequency requires.
func (r *CreateRequest) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("title is required: %w", domain.ErrValidation)
	}
	switch r.Kind {
	case KindOneTime:
		if r.DueDate == nil {
			return fmt.Errorf("due_date is required for one-time tasks: %w", domain.ErrValidation)
		}
		if r.Recurrence != nil {
			return fmt.Errorf("recurrence is not allowed for one-time tasks: %w", domain.ErrValidation)
		}
	case KindRecurring:
		if r.DueDate != nil {
			return fmt.Errorf("due_date is not allowed for recurring tasks: %w", domain.ErrValidation)
		}
		if r.Recurrence == nil {
			return fmt.Errorf("recurrence is required for recurring tasks: %w", domain.ErrValidation)
		}
		if err := r.Recurrence.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid kind %q: %w", r.Kind, domain.ErrValidation)
	}
	return nil
}

// Validate checks the recurrence rule has the discriminant field required by
// its frequency and that the field values are in range.
func (r *Recurrence) Validate() error {
	switch r.Frequency {
	case FrequencyDaily:
		if r.TimeOfDay == nil {
			return fmt.Errorf("time_of_day is required for daily recurrence: %w", domain.ErrValidation)
		}
		if r.TimeOfDay.Hour < 0 || r.TimeOfDay.Hour > 23 || r.TimeOfDay.Minute < 0 || r.TimeOfDay.Minute > 59 {
			return fmt.Errorf("time_of_day %02d:%02d is out of range: %w", r.TimeOfDay.Hour, r.TimeOfDay.Minute, domain.ErrValidation)
		}
	case FrequencyWeekly:
		if r.DayOfWeek == nil {
			return fmt.Errorf("day_of_week is required for weekly recurrence: %w", domain.ErrValidation)
		}
		if *r.DayOfWeek < time.Sunday || *r.DayOfWeek > time.Saturday {
			return fmt.Errorf("day_of_week %d is out of range: %w", *r.DayOfWeek, domain.ErrValidation)
		}
	case FrequencyMonthly:
		if err := checkDayOfMonth(r.DayOfMonth); err != nil {
			return err
		}
	case FrequencyYearly:
		if r.MonthOfYear == nil {
			return fmt.Errorf("month_of_year is required for yearly recurrence: %w", domain.ErrValidation)
		}
		if *r.MonthOfYear < time.January || *r.MonthOfYear > time.December {
			return fmt.Errorf("month_of_year %d is out of range: %w", *r.MonthOfYear, domain.ErrValidation)
		}
		if err := checkDayOfMonth(r.DayOfMonth); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid frequency %q: %w", r.Frequency, domain.ErrValidation)
	}
	return nil
}

func checkDayOfMonth(day *int) error {
	if day == nil {
		return fmt.Errorf("day_of_month is required: %w", domain.ErrValidation)
	}
	if *day < 1 || *day > 31 {
		return fmt.Errorf("day_of_month %d is out of range [1,31]: %w", *day, domain.ErrValidation)
	}
	return nil
}

// Validate checks a Patch against the task kind invariants: a due date only
// makes sense on a one-time task and a recurrence rule only on a recurring
// one. The kind itself cannot change.
func (p *Patch) Validate(kind Kind) error {
	if p.DueDate != nil && kind != KindOneTime {
		return fmt.Errorf("due_date can only be set on one-time tasks: %w", domain.ErrValidation)
	}
	if p.Recurrence != nil {
		if kind != KindRecurring {
			return fmt.Errorf("recurrence can only be set on recurring tasks: %w", domain.ErrValidation)
		}
		if err := p.Recurrence.Validate(); err != nil {
			return err
		}
	}
	if p.Title != nil && *p.Title == "" {
		return fmt.Errorf("title cannot be empty: %w", domain.ErrValidation)
	}
	return nil
}

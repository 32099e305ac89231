package task

import (
	"errors"
	"testing"
	"time"

	"github.com/opsdeck/opsdeck/internal/domain"
)

func TestCanToggle(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusCreated, StatusCompleted, true},
		{StatusPending, StatusCompleted, true},
		{StatusCompleted, StatusPending, true},
		{StatusCompleted, StatusCompleted, false},
		{StatusCreated, StatusPending, false},
		{StatusPending, StatusCreated, false},
		{StatusCompleted, StatusCreated, false},
		{StatusCreated, StatusCreated, false},
	}
	for _, c := range cases {
		if got := CanToggle(c.from, c.to); got != c.want {
			t.Errorf("CanToggle(%q, %q) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCheckToggle_IllegalWrapsSentinel(t *testing.T) {
	err := CheckToggle(StatusCompleted, StatusCompleted)
	if !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestComplete_OneTimeIsTerminal(t *testing.T) {
	tk := &Task{
		Kind:    KindOneTime,
		Status:  StatusPending,
		DueDate: timePtr(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
	}
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	outcome, err := Complete(tk, now)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := outcome.(TerminalCompletion); !ok {
		t.Fatalf("expected TerminalCompletion, got %T", outcome)
	}
	if tk.Status != StatusCompleted {
		t.Fatalf("expected completed status, got %q", tk.Status)
	}
	if !tk.StatusChangedAt.Equal(now) {
		t.Fatalf("expected StatusChangedAt %v, got %v", now, tk.StatusChangedAt)
	}
}

func TestComplete_AlreadyCompletedRejected(t *testing.T) {
	tk := &Task{Kind: KindOneTime, Status: StatusCompleted}

	_, err := Complete(tk, time.Now())

	if !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

// Completing a recurring task re-arms it: the next due date advances and the
// stored status returns to pending rather than staying completed.
func TestComplete_RecurringRearms(t *testing.T) {
	tk := &Task{
		Kind:       KindRecurring,
		Status:     StatusPending,
		Recurrence: &Recurrence{Frequency: FrequencyWeekly, DayOfWeek: weekday(time.Monday)},
	}
	// 2024-03-12 is a Tuesday.
	now := time.Date(2024, 3, 12, 11, 0, 0, 0, time.UTC)

	outcome, err := Complete(tk, now)
	if err != nil {
		t.Fatal(err)
	}

	rearmed, ok := outcome.(Rearmed)
	if !ok {
		t.Fatalf("expected Rearmed, got %T", outcome)
	}
	wantNext := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)
	if !rearmed.NextDueDate.Equal(wantNext) {
		t.Fatalf("expected next due %v, got %v", wantNext, rearmed.NextDueDate)
	}
	if tk.Status == StatusCompleted {
		t.Fatal("recurring task must not stay completed after completion")
	}
	if tk.NextDueDate == nil || !tk.NextDueDate.Equal(wantNext) {
		t.Fatalf("expected task NextDueDate %v, got %v", wantNext, tk.NextDueDate)
	}
	if !rearmed.NextDueDate.After(now) {
		t.Fatal("re-armed due date must be in the future")
	}
}

func TestReopen_CompletedBackToPending(t *testing.T) {
	tk := &Task{Kind: KindOneTime, Status: StatusCompleted}
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	if err := Reopen(tk, now); err != nil {
		t.Fatal(err)
	}
	if tk.Status != StatusPending {
		t.Fatalf("expected pending, got %q", tk.Status)
	}
}

func TestReopen_NonCompletedRejected(t *testing.T) {
	tk := &Task{Kind: KindOneTime, Status: StatusCreated}

	if err := Reopen(tk, time.Now()); !errors.Is(err, domain.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestNormalize_RearmsCompletedRecurring(t *testing.T) {
	tk := &Task{
		Kind:       KindRecurring,
		Status:     StatusCompleted,
		Recurrence: &Recurrence{Frequency: FrequencyDaily, TimeOfDay: clock(8, 0)},
	}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tk.Normalize(now)

	if tk.Status == StatusCompleted {
		t.Fatal("expected Normalize to re-arm recurring task out of completed")
	}
	if tk.NextDueDate == nil || !tk.NextDueDate.After(now) {
		t.Fatalf("expected future NextDueDate, got %v", tk.NextDueDate)
	}
}

func TestNormalize_LeavesOneTimeAlone(t *testing.T) {
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tk := &Task{Kind: KindOneTime, Status: StatusCompleted, DueDate: &due}

	tk.Normalize(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	if tk.Status != StatusCompleted {
		t.Fatal("one-time completion is terminal")
	}
}

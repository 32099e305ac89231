package task

import (
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck/internal/domain"
)

// toggleTransitions is the legal-transition set for user-triggered toggles
// and board drags. Created and pending both complete; completed reopens to
// pending. The created->pending promotion happens server-side outside this
// core and is accepted as an externally-asserted status, never toggled here.
var toggleTransitions = map[Status]map[Status]bool{
	StatusCreated:   {StatusCompleted: true},
	StatusPending:   {StatusCompleted: true},
	StatusCompleted: {StatusPending: true},
}

// CanToggle reports whether a user action may move a task from one status
// to another.
func CanToggle(from, to Status) bool {
	return toggleTransitions[from][to]
}

// CheckToggle returns ErrIllegalTransition when the requested toggle is not
// in the legal-transition set.
func CheckToggle(from, to Status) error {
	if !CanToggle(from, to) {
		return fmt.Errorf("cannot move task from %q to %q: %w", from, to, domain.ErrIllegalTransition)
	}
	return nil
}

// CompletionOutcome is the result of completing a task: terminal for a
// one-time task, re-armed with a fresh due date for a recurring one. The
// sealed interface keeps callers from treating a re-armed task as closed.
type CompletionOutcome interface {
	isCompletionOutcome()
}

// TerminalCompletion marks a one-time task as finished for good.
type TerminalCompletion struct{}

// Rearmed carries the next due date a recurring task advanced to.
type Rearmed struct {
	NextDueDate time.Time
}

func (TerminalCompletion) isCompletionOutcome() {}
func (Rearmed) isCompletionOutcome()            {}

// Complete applies the "mark done" toggle to the task in memory. For a
// recurring task the next occurrence is computed from now and the stored
// status re-arms to pending; for a one-time task the status becomes
// completed and stays there. Callers persist the mutation and append the
// status-log entry only once the store confirms.
func Complete(t *Task, now time.Time) (CompletionOutcome, error) {
	if err := CheckToggle(t.Status, StatusCompleted); err != nil {
		return nil, err
	}

	t.StatusChangedAt = now

	if t.Kind == KindRecurring && t.Recurrence != nil {
		next := t.Recurrence.NextOccurrence(now)
		t.NextDueDate = &next
		t.Status = StatusPending
		return Rearmed{NextDueDate: next}, nil
	}

	t.Status = StatusCompleted
	return TerminalCompletion{}, nil
}

// Reopen moves a completed one-time task back to pending.
func Reopen(t *Task, now time.Time) error {
	if err := CheckToggle(t.Status, StatusPending); err != nil {
		return err
	}
	t.Status = StatusPending
	t.StatusChangedAt = now
	return nil
}

// NewLogEntry builds the audit record for a confirmed transition.
func NewLogEntry(taskID string, status Status, changedBy string, changedAt time.Time) StatusLogEntry {
	return StatusLogEntry{
		TaskID:    taskID,
		Status:    status,
		ChangedBy: changedBy,
		ChangedAt: changedAt,
	}
}

// Package task defines the Task domain entity and its scheduling rules.
package task

import "time"

// Kind distinguishes one-shot tasks from repeating ones.
type Kind string

const (
	KindOneTime   Kind = "one_time"
	KindRecurring Kind = "recurring"
)

// Status represents the stored state of a task. Overdue is never stored;
// it is derived at read time from the due instant and the clock.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Task represents a to-do item owned by one staff member and assigned to another.
type Task struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Kind            Kind        `json:"kind"`
	DueDate         *time.Time  `json:"due_date,omitempty"`
	Recurrence      *Recurrence `json:"recurrence,omitempty"`
	NextDueDate     *time.Time  `json:"next_due_date,omitempty"`
	Status          Status      `json:"status"`
	CreatedBy       string      `json:"created_by"`
	AssignedTo      string      `json:"assigned_to"`
	Version         int         `json:"version"`
	CreatedAt       time.Time   `json:"created_at"`
	StatusChangedAt time.Time   `json:"status_changed_at"`
}

// StatusLogEntry is one append-only audit record of a status transition.
type StatusLogEntry struct {
	TaskID    string    `json:"task_id"`
	Status    Status    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

// CreateRequest holds the fields needed to create a new task. NextDueDate is
// derived by the service for recurring tasks before the draft reaches the
// store; it never comes off the wire.
type CreateRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Kind        Kind        `json:"kind"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
	CreatedBy   string      `json:"created_by"`
	AssignedTo  string      `json:"assigned_to"`
	NextDueDate *time.Time  `json:"-"`
}

// Patch holds the mutable fields for a partial update. Nil fields are left
// untouched. Kind is immutable after creation and is deliberately absent.
type Patch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
	AssignedTo  *string     `json:"assigned_to,omitempty"`
	NextDueDate *time.Time  `json:"-"`
}

// DueAt returns the instant the task is expected to be done by: the fixed due
// date for one-time tasks, the computed next occurrence for recurring ones.
func (t *Task) DueAt() *time.Time {
	if t.Kind == KindRecurring {
		return t.NextDueDate
	}
	return t.DueDate
}

// Normalize refreshes derived state at read time: a recurring task gets its
// NextDueDate recomputed when stale, and a recurring task left marked
// completed by an earlier completion re-arms back to pending.
func (t *Task) Normalize(now time.Time) {
	if t.Kind != KindRecurring || t.Recurrence == nil {
		return
	}
	if t.Status == StatusCompleted {
		t.Status = StatusPending
	}
	if t.NextDueDate == nil {
		next := t.Recurrence.NextOccurrence(now)
		t.NextDueDate = &next
	}
}

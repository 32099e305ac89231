// Package service contains the application services wiring domain logic to ports.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsdeck/opsdeck/internal/domain"
	"github.com/opsdeck/opsdeck/internal/domain/task"
	"github.com/opsdeck/opsdeck/internal/port/messagequeue"
	"github.com/opsdeck/opsdeck/internal/port/taskstore"
)

// TaskView is a task decorated with its derived overdue state. The overdue
// fields are computed at read time and never persisted.
type TaskView struct {
	task.Task
	Overdue     bool `json:"overdue"`
	OverdueDays int  `json:"overdue_days"`
}

// TaskService handles task lifecycle: create, read, update, delete, and the
// direct (non-board) completion path.
type TaskService struct {
	store taskstore.Store
	queue messagequeue.Queue
	now   func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(store taskstore.Store, queue messagequeue.Queue) *TaskService {
	return &TaskService{store: store, queue: queue, now: time.Now}
}

// List returns tasks for one owner perspective, each normalized and decorated
// with overdue state as of now.
func (s *TaskService) List(ctx context.Context, filter taskstore.Filter) ([]TaskView, error) {
	tasks, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()

	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, s.view(&tasks[i], now))
	}
	return views, nil
}

// Get returns one task decorated with overdue state.
func (s *TaskService) Get(ctx context.Context, id string) (*TaskView, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.view(t, s.now())
	return &v, nil
}

// Create validates the request, derives the first occurrence for recurring
// tasks, and persists the draft.
func (s *TaskService) Create(ctx context.Context, req task.CreateRequest) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Kind == task.KindRecurring {
		next := req.Recurrence.NextOccurrence(s.now())
		req.NextDueDate = &next
	}

	created, err := s.store.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.queue, messagequeue.SubjectTaskCreated, messagequeue.TaskCreatedPayload{
		TaskID:     created.ID,
		Title:      created.Title,
		Kind:       string(created.Kind),
		CreatedBy:  created.CreatedBy,
		AssignedTo: created.AssignedTo,
	})
	return created, nil
}

// Update applies a partial edit. When the recurrence rule changes the cached
// next occurrence is recomputed so reads never see a date derived from the
// old rule.
func (s *TaskService) Update(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch.Validate(cur.Kind); err != nil {
		return nil, err
	}
	if patch.Recurrence != nil {
		next := patch.Recurrence.NextOccurrence(s.now())
		patch.NextDueDate = &next
	}
	return s.store.Update(ctx, id, patch)
}

// Delete removes a task. The status log keeps its rows.
func (s *TaskService) Delete(ctx context.Context, id, actor string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	publish(ctx, s.queue, messagequeue.SubjectTaskDeleted, messagequeue.TaskDeletedPayload{
		TaskID:    id,
		DeletedBy: actor,
	})
	return nil
}

// Complete marks a task done on behalf of actor. A one-time task lands on
// completed; a recurring task re-arms to pending with its next occurrence.
// The status log records the completion either way, and only after the store
// confirms the change.
func (s *TaskService) Complete(ctx context.Context, id, actor string) (task.CompletionOutcome, *task.Task, error) {
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()

	draft := *cur
	outcome, err := task.Complete(&draft, now)
	if err != nil {
		return nil, nil, err
	}

	updated, err := s.store.UpdateStatus(ctx, id, draft.Status, draft.NextDueDate)
	if err != nil {
		return nil, nil, err
	}

	s.appendLog(ctx, task.NewLogEntry(id, task.StatusCompleted, actor, now))
	publish(ctx, s.queue, messagequeue.SubjectTaskStatusChanged, messagequeue.TaskStatusChangedPayload{
		TaskID:    id,
		Status:    string(task.StatusCompleted),
		ChangedBy: actor,
		ChangedAt: now,
	})

	if rearmed, ok := outcome.(task.Rearmed); ok {
		publish(ctx, s.queue, messagequeue.SubjectTaskRearmed, messagequeue.TaskRearmedPayload{
			TaskID:      id,
			NextDueDate: rearmed.NextDueDate,
			CompletedBy: actor,
		})
	}
	return outcome, updated, nil
}

// AssertStatus records a status asserted by an outside system, such as the
// created-to-pending promotion that happens when an assignee first views a
// task. The value is validated for shape only; the toggle rules do not apply
// here.
func (s *TaskService) AssertStatus(ctx context.Context, id string, status task.Status, actor string) (*task.Task, error) {
	if !task.ValidStatus(status) {
		return nil, fmt.Errorf("unknown status %q: %w", status, domain.ErrValidation)
	}
	now := s.now()

	updated, err := s.store.UpdateStatus(ctx, id, status, nil)
	if err != nil {
		return nil, err
	}

	s.appendLog(ctx, task.NewLogEntry(id, status, actor, now))
	publish(ctx, s.queue, messagequeue.SubjectTaskStatusChanged, messagequeue.TaskStatusChangedPayload{
		TaskID:    id,
		Status:    string(status),
		ChangedBy: actor,
		ChangedAt: now,
	})
	return updated, nil
}

// StatusLog returns the append-only audit trail for a task.
func (s *TaskService) StatusLog(ctx context.Context, taskID string) ([]task.StatusLogEntry, error) {
	return s.store.ListStatusLog(ctx, taskID)
}

func (s *TaskService) view(t *task.Task, now time.Time) TaskView {
	t.Normalize(now)
	info := task.Evaluate(t, now)
	return TaskView{Task: *t, Overdue: info.Overdue, OverdueDays: info.Days}
}

// appendLog records an audit entry after a confirmed change. A log failure
// is reported but does not undo the change itself.
func (s *TaskService) appendLog(ctx context.Context, entry task.StatusLogEntry) {
	if err := s.store.AppendStatusLog(ctx, entry); err != nil {
		slog.Error("append status log", "task_id", entry.TaskID, "error", err)
	}
}

// publish sends a lifecycle event, logging instead of failing when the queue
// is down.
func publish(ctx context.Context, q messagequeue.Queue, subject string, payload any) {
	if q == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal queue payload", "subject", subject, "error", err)
		return
	}
	if err := q.Publish(ctx, subject, data); err != nil {
		slog.Error("publish queue message", "subject", subject, "error", err)
	}
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opsdeck/opsdeck/internal/domain"
	"github.com/opsdeck/opsdeck/internal/domain/task"
	"github.com/opsdeck/opsdeck/internal/port/messagequeue"
	"github.com/opsdeck/opsdeck/internal/port/taskstore"
)

// mockStore implements taskstore.Store in memory for testing.
type mockStore struct {
	mu    sync.Mutex
	tasks []task.Task
	log   []task.StatusLogEntry

	updateErr   error
	updateCalls int
	updateGate  chan struct{} // when set, UpdateStatus blocks until the gate closes
}

func (s *mockStore) List(_ context.Context, filter taskstore.Filter) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []task.Task
	for _, t := range s.tasks {
		switch {
		case filter.Owner == "":
		case filter.Role == taskstore.RoleAssigned:
			if t.AssignedTo != filter.Owner {
				continue
			}
		default:
			if t.CreatedBy != filter.Owner {
				continue
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *mockStore) Get(_ context.Context, id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
}

func (s *mockStore) Create(_ context.Context, req task.CreateRequest) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := task.Task{
		ID:          fmt.Sprintf("t%d", len(s.tasks)+1),
		Title:       req.Title,
		Description: req.Description,
		Kind:        req.Kind,
		DueDate:     req.DueDate,
		Recurrence:  req.Recurrence,
		NextDueDate: req.NextDueDate,
		Status:      task.StatusCreated,
		CreatedBy:   req.CreatedBy,
		AssignedTo:  req.AssignedTo,
		Version:     1,
		CreatedAt:   time.Now(),
	}
	s.tasks = append(s.tasks, t)
	cp := t
	return &cp, nil
}

func (s *mockStore) UpdateStatus(_ context.Context, id string, status task.Status, nextDue *time.Time) (*task.Task, error) {
	if s.updateGate != nil {
		<-s.updateGate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.updateCalls++
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i].Status = status
			if nextDue != nil {
				s.tasks[i].NextDueDate = nextDue
			}
			s.tasks[i].Version++
			s.tasks[i].StatusChangedAt = time.Now()
			cp := s.tasks[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
}

func (s *mockStore) Update(_ context.Context, id string, patch task.Patch) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		if patch.Title != nil {
			s.tasks[i].Title = *patch.Title
		}
		if patch.Description != nil {
			s.tasks[i].Description = *patch.Description
		}
		if patch.DueDate != nil {
			s.tasks[i].DueDate = patch.DueDate
		}
		if patch.Recurrence != nil {
			s.tasks[i].Recurrence = patch.Recurrence
		}
		if patch.AssignedTo != nil {
			s.tasks[i].AssignedTo = *patch.AssignedTo
		}
		if patch.NextDueDate != nil {
			s.tasks[i].NextDueDate = patch.NextDueDate
		}
		s.tasks[i].Version++
		cp := s.tasks[i]
		return &cp, nil
	}
	return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
}

func (s *mockStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
}

func (s *mockStore) AppendStatusLog(_ context.Context, entry task.StatusLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, entry)
	return nil
}

func (s *mockStore) ListStatusLog(_ context.Context, taskID string) ([]task.StatusLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []task.StatusLogEntry
	for _, e := range s.log {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *mockStore) logEntries() []task.StatusLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]task.StatusLogEntry(nil), s.log...)
}

// mockQueue implements messagequeue.Queue for testing.
type mockQueue struct {
	mu        sync.Mutex
	published []struct {
		subject string
		data    []byte
	}
	handler messagequeue.Handler
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, struct {
		subject string
		data    []byte
	}{subject, data})
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, _ string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	q.handler = h
	q.mu.Unlock()
	return func() {}, nil
}

// deliver feeds a message to the registered handler, as the queue would.
func (q *mockQueue) deliver(ctx context.Context, subject string, data []byte) error {
	q.mu.Lock()
	h := q.handler
	q.mu.Unlock()
	return h(ctx, subject, data)
}

func (q *mockQueue) Close() error { return nil }

func (q *mockQueue) subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []string
	for _, p := range q.published {
		out = append(out, p.subject)
	}
	return out
}

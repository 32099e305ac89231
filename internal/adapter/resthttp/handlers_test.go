package resthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opsdeck/opsdeck/internal/adapter/resthttp"
	"github.com/opsdeck/opsdeck/internal/domain"
	"github.com/opsdeck/opsdeck/internal/domain/task"
	"github.com/opsdeck/opsdeck/internal/middleware"
	"github.com/opsdeck/opsdeck/internal/port/taskstore"
	"github.com/opsdeck/opsdeck/internal/service"
)

// memStore implements taskstore.Store for testing.
type memStore struct {
	mu    sync.Mutex
	seq   int
	tasks map[string]task.Task
	log   []task.StatusLogEntry
}

func newMemStore() *memStore {
	return &memStore{tasks: make(map[string]task.Task)}
}

func (m *memStore) seed(t task.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
}

func (m *memStore) List(_ context.Context, filter taskstore.Filter) ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []task.Task
	for _, t := range m.tasks {
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

func (m *memStore) Get(_ context.Context, id string) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	return &t, nil
}

func (m *memStore) Create(_ context.Context, req task.CreateRequest) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := task.Task{
		ID:          fmt.Sprintf("t%d", m.seq),
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
	m.tasks[t.ID] = t
	return &t, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, status task.Status, nextDue *time.Time) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	t.Status = status
	if nextDue != nil {
		t.NextDueDate = nextDue
	}
	t.Version++
	t.StatusChangedAt = time.Now()
	m.tasks[id] = t
	return &t, nil
}

func (m *memStore) Update(_ context.Context, id string, patch task.Patch) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	if patch.Recurrence != nil {
		t.Recurrence = patch.Recurrence
	}
	if patch.AssignedTo != nil {
		t.AssignedTo = *patch.AssignedTo
	}
	if patch.NextDueDate != nil {
		t.NextDueDate = patch.NextDueDate
	}
	t.Version++
	m.tasks[id] = t
	return &t, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	delete(m.tasks, id)
	return nil
}

func (m *memStore) AppendStatusLog(_ context.Context, entry task.StatusLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, entry)
	return nil
}

func (m *memStore) ListStatusLog(_ context.Context, taskID string) ([]task.StatusLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []task.StatusLogEntry
	for _, e := range m.log {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestRouter(store taskstore.Store) chi.Router {
	tasks := service.NewTaskService(store, nil)
	board := service.NewBoardService(store, nil, nil)
	h := resthttp.NewHandlers(tasks, board, nil)

	r := chi.NewRouter()
	r.Use(middleware.ActingIdentity)
	resthttp.MountRoutes(r, h)
	return r
}

func doRequest(t *testing.T, router chi.Router, method, path, actor string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if actor != "" {
		req.Header.Set(middleware.HeaderActingStaff, actor)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestCreateAndGetTask(t *testing.T) {
	router := newTestRouter(newMemStore())

	due := time.Now().Add(72 * time.Hour).UTC()
	rec := doRequest(t, router, http.MethodPost, "/api/v1/tasks", "alice", map[string]any{
		"title":    "File expense report",
		"kind":     "one_time",
		"due_date": due.Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[task.Task](t, rec)
	if created.CreatedBy != "alice" {
		t.Errorf("expected created_by alice, got %q", created.CreatedBy)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/tasks/"+created.ID, "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode[service.TaskView](t, rec)
	if got.Overdue {
		t.Error("future-due task must not be overdue")
	}
}

func TestCreateTaskRequiresActor(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tasks", "", map[string]any{
		"title": "anonymous", "kind": "one_time",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	router := newTestRouter(newMemStore())

	// one-time without a due date
	rec := doRequest(t, router, http.MethodPost, "/api/v1/tasks", "alice", map[string]any{
		"title": "No due date", "kind": "one_time",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetTaskNotFound(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/tasks/nope", "alice", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCompleteRecurringTaskRearms(t *testing.T) {
	store := newMemStore()
	wd := time.Monday
	store.seed(task.Task{
		ID: "t1", Title: "Weekly report", Kind: task.KindRecurring,
		Status:     task.StatusPending,
		Recurrence: &task.Recurrence{Frequency: task.FrequencyWeekly, DayOfWeek: &wd},
		CreatedBy:  "alice", AssignedTo: "bob",
	})
	router := newTestRouter(store)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tasks/t1/complete", "bob", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Task        task.Task  `json:"task"`
		Outcome     string     `json:"outcome"`
		NextDueDate *time.Time `json:"next_due_date"`
	}](t, rec)
	if resp.Outcome != "rearmed" {
		t.Errorf("expected rearmed outcome, got %q", resp.Outcome)
	}
	if resp.NextDueDate == nil {
		t.Error("expected a next due date on rearm")
	}
	if resp.Task.Status != task.StatusPending {
		t.Errorf("expected re-armed task pending, got %q", resp.Task.Status)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/tasks/t1/status-log", "bob", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	log := decode[[]task.StatusLogEntry](t, rec)
	if len(log) != 1 || log[0].Status != task.StatusCompleted || log[0].ChangedBy != "bob" {
		t.Fatalf("expected one completed entry by bob, got %+v", log)
	}
}

func TestCompleteCompletedTaskConflicts(t *testing.T) {
	store := newMemStore()
	store.seed(task.Task{
		ID: "t1", Kind: task.KindOneTime, Status: task.StatusCompleted, CreatedBy: "alice",
	})
	router := newTestRouter(store)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tasks/t1/complete", "alice", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestChangeStatusAsserted(t *testing.T) {
	store := newMemStore()
	due := time.Now().Add(time.Hour)
	store.seed(task.Task{
		ID: "t1", Kind: task.KindOneTime, Status: task.StatusCreated,
		DueDate: &due, CreatedBy: "alice", AssignedTo: "bob",
	})
	router := newTestRouter(store)

	rec := doRequest(t, router, http.MethodPatch, "/api/v1/tasks/t1/status", "bob", map[string]any{
		"status": "pending", "asserted": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPatch, "/api/v1/tasks/t1/status", "bob", map[string]any{
		"status": "archived", "asserted": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestGetBoardBuckets(t *testing.T) {
	store := newMemStore()
	past := time.Now().Add(-72 * time.Hour)
	future := time.Now().Add(72 * time.Hour)
	store.seed(task.Task{ID: "t1", Kind: task.KindOneTime, Status: task.StatusPending,
		DueDate: &past, CreatedBy: "alice", CreatedAt: time.Now()})
	store.seed(task.Task{ID: "t2", Kind: task.KindOneTime, Status: task.StatusPending,
		DueDate: &future, CreatedBy: "alice", CreatedAt: time.Now()})
	router := newTestRouter(store)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/board?owner=alice&role=created", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	board := decode[service.Board](t, rec)
	if len(board.Overdue) != 1 || board.Overdue[0].ID != "t1" {
		t.Errorf("expected t1 in overdue bucket, got %+v", board.Overdue)
	}
	if len(board.Pending) != 1 || board.Pending[0].ID != "t2" {
		t.Errorf("expected t2 in pending bucket, got %+v", board.Pending)
	}
}

func TestDeleteTask(t *testing.T) {
	store := newMemStore()
	store.seed(task.Task{ID: "t1", Kind: task.KindOneTime, Status: task.StatusPending, CreatedBy: "alice"})
	router := newTestRouter(store)

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/tasks/t1", "alice", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = doRequest(t, router, http.MethodGet, "/api/v1/tasks/t1", "alice", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

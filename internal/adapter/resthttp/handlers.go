package resthttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opsdeck/opsdeck/internal/domain/task"
	"github.com/opsdeck/opsdeck/internal/middleware"
	"github.com/opsdeck/opsdeck/internal/port/taskstore"
	"github.com/opsdeck/opsdeck/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Tasks *service.TaskService
	Board *service.BoardService
	Staff *service.StaffService
}

// NewHandlers creates the handler set.
func NewHandlers(tasks *service.TaskService, board *service.BoardService, staff *service.StaffService) *Handlers {
	return &Handlers{Tasks: tasks, Board: board, Staff: staff}
}

// requireActor extracts the acting staff id, rejecting requests without one.
func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := middleware.ActorFrom(r.Context())
	if actor == "" {
		writeError(w, http.StatusUnauthorized, middleware.HeaderActingStaff+" header is required")
		return "", false
	}
	return actor, true
}

func roleParam(r *http.Request) taskstore.Role {
	if r.URL.Query().Get("role") == string(taskstore.RoleAssigned) {
		return taskstore.RoleAssigned
	}
	return taskstore.RoleCreated
}

// ListTasks returns tasks for one owner perspective. The owner defaults to
// the acting staff member.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = middleware.ActorFrom(r.Context())
	}

	views, err := h.Tasks.List(r.Context(), taskstore.Filter{Owner: owner, Role: roleParam(r)})
	if err != nil {
		writeDomainError(w, err, "tasks not found")
		return
	}
	if views == nil {
		views = []service.TaskView{}
	}
	writeJSON(w, http.StatusOK, views)
}

// CreateTask creates a task authored by the acting staff member.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[task.CreateRequest](w, r)
	if !ok {
		return
	}
	req.CreatedBy = actor
	if req.AssignedTo == "" {
		req.AssignedTo = actor
	}

	created, err := h.Tasks.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetTask returns one task with its derived overdue state.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	view, err := h.Tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateTask applies a partial edit to a task.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireActor(w, r); !ok {
		return
	}
	patch, ok := readJSON[task.Patch](w, r)
	if !ok {
		return
	}

	updated, err := h.Tasks.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteTask removes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.Tasks.Delete(r.Context(), id, actor); err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	h.Board.Forget(id)
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status task.Status `json:"status"`

	// Asserted marks a status recorded on behalf of an outside system, such
	// as the created-to-pending promotion on first view. Asserted statuses
	// bypass the toggle rules; everything else goes through the board's
	// optimistic transition path.
	Asserted bool `json:"asserted,omitempty"`
}

type transitionResponse struct {
	Task        *task.Task `json:"task"`
	Outcome     string     `json:"outcome"`
	NextDueDate *time.Time `json:"next_due_date,omitempty"`
}

func toTransitionResponse(outcome task.CompletionOutcome, updated *task.Task) transitionResponse {
	resp := transitionResponse{Task: updated, Outcome: "confirmed"}
	switch o := outcome.(type) {
	case task.Rearmed:
		resp.Outcome = "rearmed"
		resp.NextDueDate = &o.NextDueDate
	case task.TerminalCompletion:
		resp.Outcome = "completed"
	}
	return resp
}

// ChangeTaskStatus moves a task to a new status, either via the toggle rules
// or as an externally-asserted value.
func (h *Handlers) ChangeTaskStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[statusRequest](w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if req.Asserted {
		updated, err := h.Tasks.AssertStatus(r.Context(), id, req.Status, actor)
		if err != nil {
			writeDomainError(w, err, "task not found")
			return
		}
		writeJSON(w, http.StatusOK, transitionResponse{Task: updated, Outcome: "confirmed"})
		return
	}

	outcome, updated, err := h.Board.Transition(r.Context(), id, req.Status, actor)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, toTransitionResponse(outcome, updated))
}

// CompleteTask marks a task done through the optimistic transition path.
func (h *Handlers) CompleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	outcome, updated, err := h.Board.Transition(r.Context(), chi.URLParam(r, "id"), task.StatusCompleted, actor)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, toTransitionResponse(outcome, updated))
}

type statusLogEntryResponse struct {
	task.StatusLogEntry
	ChangedByName string `json:"changed_by_name,omitempty"`
}

// GetStatusLog returns the append-only transition history for a task, with
// staff ids resolved to display names where the directory knows them.
func (h *Handlers) GetStatusLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entries, err := h.Tasks.StatusLog(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}

	out := make([]statusLogEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := statusLogEntryResponse{StatusLogEntry: e}
		if h.Staff != nil {
			resp.ChangedByName = h.Staff.DisplayName(r.Context(), e.ChangedBy)
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetBoard returns the bucketed board for one owner perspective.
func (h *Handlers) GetBoard(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = middleware.ActorFrom(r.Context())
	}
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner is required")
		return
	}

	board, err := h.Board.View(r.Context(), owner, roleParam(r))
	if err != nil {
		writeDomainError(w, err, "board not found")
		return
	}
	writeJSON(w, http.StatusOK, board)
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/opsdeck/opsdeck/internal/adapter/otel"
	"github.com/opsdeck/opsdeck/internal/domain"
	"github.com/opsdeck/opsdeck/internal/domain/task"
	"github.com/opsdeck/opsdeck/internal/port/messagequeue"
	"github.com/opsdeck/opsdeck/internal/port/taskstore"
)

// Board is one owner perspective bucketed by status. The buckets are
// disjoint: a created or pending task that is overdue appears only in the
// overdue bucket.
type Board struct {
	Owner     string     `json:"owner"`
	Role      string     `json:"role"`
	Created   []TaskView `json:"created"`
	Pending   []TaskView `json:"pending"`
	Overdue   []TaskView `json:"overdue"`
	Completed []TaskView `json:"completed"`
}

// BoardService keeps an in-memory working copy of tasks and runs status
// transitions against it optimistically: the copy changes first, the store
// confirms or the copy rolls back. At most one transition per task may be in
// flight at a time.
type BoardService struct {
	store   taskstore.Store
	queue   messagequeue.Queue
	metrics *otel.Metrics
	now     func() time.Time

	mu       sync.Mutex
	tasks    map[string]task.Task
	inflight map[string]string // task id -> command id
}

// NewBoardService creates a new BoardService.
func NewBoardService(store taskstore.Store, queue messagequeue.Queue, metrics *otel.Metrics) *BoardService {
	return &BoardService{
		store:    store,
		queue:    queue,
		metrics:  metrics,
		now:      time.Now,
		tasks:    make(map[string]task.Task),
		inflight: make(map[string]string),
	}
}

// transitionCommand carries everything one optimistic transition needs to
// confirm against the store or undo in memory.
type transitionCommand struct {
	id      string
	taskID  string
	target  task.Status
	actor   string
	at      time.Time
	prev    task.Task
	draft   task.Task
	outcome task.CompletionOutcome
}

// Refresh reloads the working copy for one owner, fetching the created-by
// and assigned-to perspectives concurrently. Tasks with a transition in
// flight keep their optimistic state.
func (b *BoardService) Refresh(ctx context.Context, owner string) error {
	ctx, span := otel.StartRefreshSpan(ctx, owner)
	defer span.End()
	start := time.Now()

	var createdBy, assignedTo []task.Task
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		createdBy, err = b.store.List(gctx, taskstore.Filter{Owner: owner, Role: taskstore.RoleCreated})
		return err
	})
	g.Go(func() error {
		var err error
		assignedTo, err = b.store.List(gctx, taskstore.Filter{Owner: owner, Role: taskstore.RoleAssigned})
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("refresh board for %s: %w", owner, err)
	}

	now := b.now()
	b.mu.Lock()
	for _, t := range append(createdBy, assignedTo...) {
		if _, busy := b.inflight[t.ID]; busy {
			continue
		}
		t.Normalize(now)
		b.tasks[t.ID] = t
	}
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.BoardRefreshSeconds.Record(ctx, time.Since(start).Seconds())
	}
	return nil
}

// Snapshot buckets the working copy for one owner perspective. Overdue state
// is evaluated at call time and never stored.
func (b *BoardService) Snapshot(owner string, role taskstore.Role) Board {
	now := b.now()
	board := Board{Owner: owner, Role: string(role)}

	b.mu.Lock()
	views := make([]TaskView, 0, len(b.tasks))
	for _, t := range b.tasks {
		switch role {
		case taskstore.RoleAssigned:
			if t.AssignedTo != owner {
				continue
			}
		default:
			if t.CreatedBy != owner {
				continue
			}
		}
		info := task.Evaluate(&t, now)
		views = append(views, TaskView{Task: t, Overdue: info.Overdue, OverdueDays: info.Days})
	}
	b.mu.Unlock()

	sort.Slice(views, func(i, j int) bool {
		if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].CreatedAt.After(views[j].CreatedAt)
		}
		return views[i].ID < views[j].ID
	})

	for _, v := range views {
		switch {
		case v.Status == task.StatusCompleted:
			board.Completed = append(board.Completed, v)
		case v.Overdue:
			board.Overdue = append(board.Overdue, v)
		case v.Status == task.StatusPending:
			board.Pending = append(board.Pending, v)
		default:
			board.Created = append(board.Created, v)
		}
	}
	return board
}

// View refreshes and buckets in one call, for the read endpoint.
func (b *BoardService) View(ctx context.Context, owner string, role taskstore.Role) (Board, error) {
	if err := b.Refresh(ctx, owner); err != nil {
		return Board{}, err
	}
	return b.Snapshot(owner, role), nil
}

// Transition moves a task to the target status optimistically: the working
// copy changes first, then the store confirms. On a store failure the copy
// rolls back to its prior state and the error surfaces to the caller. A task
// with a transition already in flight rejects further transitions until the
// first one settles.
func (b *BoardService) Transition(ctx context.Context, taskID string, target task.Status, actor string) (task.CompletionOutcome, *task.Task, error) {
	if err := b.ensure(ctx, taskID); err != nil {
		return nil, nil, err
	}

	cmd, err := b.applyOptimistic(taskID, target, actor)
	if err != nil {
		if b.metrics != nil {
			b.metrics.TransitionsRejected.Add(ctx, 1)
		}
		return nil, nil, err
	}

	ctx, span := otel.StartTransitionSpan(ctx, taskID, string(cmd.prev.Status), string(target))
	defer span.End()

	updated, err := b.confirm(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		b.rollback(ctx, cmd)
		return nil, nil, err
	}
	b.notify(ctx, cmd)
	return cmd.outcome, updated, nil
}

// ensure loads a task into the working copy if a refresh has not brought it
// in yet.
func (b *BoardService) ensure(ctx context.Context, taskID string) error {
	b.mu.Lock()
	_, ok := b.tasks[taskID]
	b.mu.Unlock()
	if ok {
		return nil
	}

	t, err := b.store.Get(ctx, taskID)
	if err != nil {
		return err
	}
	t.Normalize(b.now())

	b.mu.Lock()
	if _, busy := b.inflight[taskID]; !busy {
		b.tasks[taskID] = *t
	}
	b.mu.Unlock()
	return nil
}

// applyOptimistic validates the toggle, mutates the working copy, and marks
// the task in flight, all under the board lock.
func (b *BoardService) applyOptimistic(taskID string, target task.Status, actor string) (*transitionCommand, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	if _, busy := b.inflight[taskID]; busy {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrTransitionInFlight)
	}

	cmd := &transitionCommand{
		id:     uuid.NewString(),
		taskID: taskID,
		target: target,
		actor:  actor,
		at:     b.now(),
		prev:   cur,
	}

	draft := cur
	var err error
	switch target {
	case task.StatusCompleted:
		cmd.outcome, err = task.Complete(&draft, cmd.at)
	case task.StatusPending:
		err = task.Reopen(&draft, cmd.at)
	default:
		err = task.CheckToggle(cur.Status, target)
	}
	if err != nil {
		return nil, err
	}

	cmd.draft = draft
	b.tasks[taskID] = draft
	b.inflight[taskID] = cmd.id
	return cmd, nil
}

// confirm persists the optimistic change. The working copy is settled and
// the audit entry appended while the board lock is held, so the log keeps
// store-confirmation order across concurrent transitions on different tasks.
func (b *BoardService) confirm(ctx context.Context, cmd *transitionCommand) (*task.Task, error) {
	updated, err := b.store.UpdateStatus(ctx, cmd.taskID, cmd.draft.Status, cmd.draft.NextDueDate)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.tasks[cmd.taskID] = *updated
	delete(b.inflight, cmd.taskID)
	if err := b.store.AppendStatusLog(ctx, task.NewLogEntry(cmd.taskID, cmd.target, cmd.actor, cmd.at)); err != nil {
		slog.Error("append status log", "task_id", cmd.taskID, "command_id", cmd.id, "error", err)
	}
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.TransitionsConfirmed.Add(ctx, 1)
		if _, ok := cmd.outcome.(task.Rearmed); ok {
			b.metrics.TasksRearmed.Add(ctx, 1)
		}
	}
	return updated, nil
}

// rollback restores the pre-transition snapshot after a store failure.
func (b *BoardService) rollback(ctx context.Context, cmd *transitionCommand) {
	b.mu.Lock()
	b.tasks[cmd.taskID] = cmd.prev
	delete(b.inflight, cmd.taskID)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.Rollbacks.Add(ctx, 1)
	}
	slog.Warn("transition rolled back",
		"task_id", cmd.taskID, "command_id", cmd.id,
		"from", cmd.prev.Status, "to", cmd.target)
}

// notify publishes a confirmed transition. WebSocket clients hear about it
// through the event bridge, the same path changes from other instances take.
func (b *BoardService) notify(ctx context.Context, cmd *transitionCommand) {
	publish(ctx, b.queue, messagequeue.SubjectTaskStatusChanged, messagequeue.TaskStatusChangedPayload{
		TaskID:    cmd.taskID,
		Status:    string(cmd.target),
		ChangedBy: cmd.actor,
		ChangedAt: cmd.at,
	})
	if rearmed, ok := cmd.outcome.(task.Rearmed); ok {
		publish(ctx, b.queue, messagequeue.SubjectTaskRearmed, messagequeue.TaskRearmedPayload{
			TaskID:      cmd.taskID,
			NextDueDate: rearmed.NextDueDate,
			CompletedBy: cmd.actor,
		})
	}
}

// Forget drops a task from the working copy after it is deleted upstream.
func (b *BoardService) Forget(taskID string) {
	b.mu.Lock()
	delete(b.tasks, taskID)
	delete(b.inflight, taskID)
	b.mu.Unlock()
}

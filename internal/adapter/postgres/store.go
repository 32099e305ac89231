package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdeck/opsdeck/internal/domain"
	"github.com/opsdeck/opsdeck/internal/domain/task"
	"github.com/opsdeck/opsdeck/internal/port/taskstore"
)

const taskColumns = `id, title, description, kind, due_date, recurrence, next_due_date, status, created_by, assigned_to, version, created_at, status_changed_at`

// Store implements taskstore.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) List(ctx context.Context, filter taskstore.Filter) ([]task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := []any{}
	switch {
	case filter.Owner == "":
		// no filter
	case filter.Role == taskstore.RoleAssigned:
		query += ` WHERE assigned_to = $1`
		args = append(args, filter.Owner)
	default:
		query += ` WHERE created_by = $1`
		args = append(args, filter.Owner)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get task %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) Create(ctx context.Context, req task.CreateRequest) (*task.Task, error) {
	recurrenceJSON, err := marshalRecurrence(req.Recurrence)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (title, description, kind, due_date, recurrence, next_due_date, created_by, assigned_to)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+taskColumns,
		req.Title, req.Description, string(req.Kind), req.DueDate, recurrenceJSON, req.NextDueDate, req.CreatedBy, req.AssignedTo)

	t, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &t, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status task.Status, nextDue *time.Time) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE tasks
		 SET status = $2, next_due_date = COALESCE($3, next_due_date), status_changed_at = now(), version = version + 1
		 WHERE id = $1
		 RETURNING `+taskColumns,
		id, string(status), nextDue)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update task status %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update task status %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) Update(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	recurrenceJSON, err := marshalRecurrence(patch.Recurrence)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE tasks
		 SET title = COALESCE($2, title),
		     description = COALESCE($3, description),
		     due_date = COALESCE($4, due_date),
		     recurrence = COALESCE($5, recurrence),
		     assigned_to = COALESCE($6, assigned_to),
		     next_due_date = COALESCE($7, next_due_date),
		     version = version + 1
		 WHERE id = $1
		 RETURNING `+taskColumns,
		id, patch.Title, patch.Description, patch.DueDate, recurrenceJSON, patch.AssignedTo, patch.NextDueDate)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update task %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete task %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// AppendStatusLog inserts one audit record. The table has no update or
// delete path; rows live as long as the database does, surviving task
// deletion.
func (s *Store) AppendStatusLog(ctx context.Context, entry task.StatusLogEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO task_status_log (task_id, status, changed_by, changed_at)
		 VALUES ($1, $2, $3, $4)`,
		entry.TaskID, string(entry.Status), entry.ChangedBy, entry.ChangedAt)
	if err != nil {
		return fmt.Errorf("append status log %s: %w", entry.TaskID, err)
	}
	return nil
}

func (s *Store) ListStatusLog(ctx context.Context, taskID string) ([]task.StatusLogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT task_id, status, changed_by, changed_at
		 FROM task_status_log WHERE task_id = $1 ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list status log %s: %w", taskID, err)
	}
	defer rows.Close()

	var entries []task.StatusLogEntry
	for rows.Next() {
		var e task.StatusLogEntry
		var status string
		if err := rows.Scan(&e.TaskID, &status, &e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status log: %w", err)
		}
		e.Status = task.Status(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

func scanTask(row scannable) (task.Task, error) {
	var t task.Task
	var kind, status string
	var recurrenceJSON []byte

	err := row.Scan(&t.ID, &t.Title, &t.Description, &kind, &t.DueDate, &recurrenceJSON,
		&t.NextDueDate, &status, &t.CreatedBy, &t.AssignedTo, &t.Version, &t.CreatedAt, &t.StatusChangedAt)
	if err != nil {
		return task.Task{}, err
	}

	t.Kind = task.Kind(kind)
	t.Status = task.Status(status)
	if len(recurrenceJSON) > 0 {
		var r task.Recurrence
		if err := json.Unmarshal(recurrenceJSON, &r); err != nil {
			return task.Task{}, fmt.Errorf("unmarshal recurrence for task %s: %w", t.ID, err)
		}
		t.Recurrence = &r
	}
	return t, nil
}

// marshalRecurrence converts a rule to JSONB, keeping SQL NULL for nil.
func marshalRecurrence(r *task.Recurrence) (any, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal recurrence: %w", err)
	}
	return data, nil
}

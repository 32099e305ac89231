// Package taskstore defines the task repository gateway port (interface).
package taskstore

import (
	"context"
	"time"

	"github.com/opsdeck/opsdeck/internal/domain/task"
)

// Role selects which side of a task's ownership a listing filters on.
type Role string

const (
	RoleCreated  Role = "created"  // tasks created by the owner
	RoleAssigned Role = "assigned" // tasks assigned to the owner
)

// Filter narrows a task listing to one owner perspective. An empty Owner
// lists every task.
type Filter struct {
	Owner string
	Role  Role
}

// Store is the port interface for the external task repository. Any call may
// fail with a transport or store error; callers treat such a failure as "the
// change did not happen".
type Store interface {
	List(ctx context.Context, filter Filter) ([]task.Task, error)
	Get(ctx context.Context, id string) (*task.Task, error)
	Create(ctx context.Context, req task.CreateRequest) (*task.Task, error)

	// UpdateStatus persists a status change, and for a re-armed recurring
	// task the advanced next due date alongside it.
	UpdateStatus(ctx context.Context, id string, status task.Status, nextDue *time.Time) (*task.Task, error)

	Update(ctx context.Context, id string, patch task.Patch) (*task.Task, error)
	Delete(ctx context.Context, id string) error

	// AppendStatusLog records a confirmed transition. The log is append-only;
	// entries are never mutated or deleted.
	AppendStatusLog(ctx context.Context, entry task.StatusLogEntry) error
	ListStatusLog(ctx context.Context, taskID string) ([]task.StatusLogEntry, error)
}

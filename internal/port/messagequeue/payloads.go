package messagequeue

import "time"

// TaskCreatedPayload is the schema for tasks.created messages.
type TaskCreatedPayload struct {
	TaskID     string `json:"task_id"`
	Title      string `json:"title"`
	Kind       string `json:"kind"`
	CreatedBy  string `json:"created_by"`
	AssignedTo string `json:"assigned_to"`
}

// TaskStatusChangedPayload is the schema for tasks.status_changed messages.
type TaskStatusChangedPayload struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

// TaskRearmedPayload is the schema for tasks.rearmed messages, published when
// completing a recurring task advances its next occurrence.
type TaskRearmedPayload struct {
	TaskID      string    `json:"task_id"`
	NextDueDate time.Time `json:"next_due_date"`
	CompletedBy string    `json:"completed_by"`
}

// TaskDeletedPayload is the schema for tasks.deleted messages.
type TaskDeletedPayload struct {
	TaskID    string `json:"task_id"`
	DeletedBy string `json:"deleted_by"`
}

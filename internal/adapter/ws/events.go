package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventTaskStatus  = "task.status"
	EventTaskRearmed = "task.rearmed"
	EventBoardStale  = "board.stale"
)

// TaskStatusEvent is broadcast when a task's status change is confirmed.
type TaskStatusEvent struct {
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	ChangedBy string `json:"changed_by"`
}

// TaskRearmedEvent is broadcast when completing a recurring task advances its
// next occurrence.
type TaskRearmedEvent struct {
	TaskID      string `json:"task_id"`
	NextDueDate string `json:"next_due_date"`
}

// BoardStaleEvent tells clients to refetch the board after create/delete.
type BoardStaleEvent struct {
	Owner string `json:"owner,omitempty"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}

package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/opsdeck/opsdeck/internal/adapter/ws"
	"github.com/opsdeck/opsdeck/internal/port/broadcast"
	"github.com/opsdeck/opsdeck/internal/port/messagequeue"
)

// StartEventBridge subscribes to the task lifecycle subjects and forwards
// them to connected WebSocket clients. With several instances behind a load
// balancer this is what keeps a client's board fresh when the change was
// confirmed by another instance. The returned function cancels the
// subscription.
func StartEventBridge(ctx context.Context, queue messagequeue.Queue, hub broadcast.Broadcaster) (func(), error) {
	return queue.Subscribe(ctx, "tasks.>", func(ctx context.Context, subject string, data []byte) error {
		switch subject {
		case messagequeue.SubjectTaskStatusChanged:
			var p messagequeue.TaskStatusChangedPayload
			if err := json.Unmarshal(data, &p); err != nil {
				slog.Warn("malformed status event", "subject", subject, "error", err)
				return nil
			}
			hub.BroadcastEvent(ctx, ws.EventTaskStatus, ws.TaskStatusEvent{
				TaskID: p.TaskID, Status: p.Status, ChangedBy: p.ChangedBy,
			})
		case messagequeue.SubjectTaskRearmed:
			var p messagequeue.TaskRearmedPayload
			if err := json.Unmarshal(data, &p); err != nil {
				slog.Warn("malformed rearm event", "subject", subject, "error", err)
				return nil
			}
			hub.BroadcastEvent(ctx, ws.EventTaskRearmed, ws.TaskRearmedEvent{
				TaskID: p.TaskID, NextDueDate: p.NextDueDate.Format(time.RFC3339),
			})
		default:
			// created / deleted just invalidate whatever board is showing
			hub.BroadcastEvent(ctx, ws.EventBoardStale, ws.BoardStaleEvent{})
		}
		return nil
	})
}

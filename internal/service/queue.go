package service

import (
	"context"
)

// TaskQueue hands mediator cycle work to a background consumer. The state
// machine only emits the task; model inference latency never sits on the
// message-send or vote response path.
type TaskQueue interface {
	EnqueueMediatorCycle(ctx context.Context, issueID, reason string) error
}

// Pusher delivers a best-effort push notification to a device token.
// Failures never propagate into the triggering transition.
type Pusher interface {
	Push(ctx context.Context, token, title, body string, data map[string]string) error
}

// Fanout publishes notification events for realtime clients, best-effort.
type Fanout interface {
	PublishNotification(ctx context.Context, userID string, data []byte) error
}

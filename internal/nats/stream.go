package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/safetalk/mediation-platform/internal/model"
	"github.com/safetalk/mediation-platform/pkg/logger"
)

const (
	// StreamName is the JetStream stream holding mediator tasks and
	// notification fan-out events.
	StreamName = "MEDIATION"

	// SubjectPrefix is the root subject for all platform events.
	SubjectPrefix = "mediation"

	// TaskSubjectPrefix carries mediator cycle tasks.
	TaskSubjectPrefix = SubjectPrefix + ".task"

	// NotifySubjectPrefix carries per-user notification events.
	NotifySubjectPrefix = SubjectPrefix + ".notify"
)

// StreamManager owns the MEDIATION stream. It implements both
// service.TaskQueue (mediator cycle tasks) and service.Fanout (notification
// events consumed by delivery-channel subscribers).
type StreamManager struct {
	js     jetstream.JetStream
	logger *logger.Logger
}

// NewStreamManager creates a stream manager on the given JetStream context.
func NewStreamManager(js jetstream.JetStream, log *logger.Logger) *StreamManager {
	return &StreamManager{js: js, logger: log}
}

// EnsureStream creates or updates the MEDIATION stream.
func (sm *StreamManager) EnsureStream(ctx context.Context) error {
	cfg := jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Mediator tasks and notification events",
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      24 * time.Hour,
		MaxBytes:    256 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	}

	_, err := sm.js.CreateOrUpdateStream(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", StreamName, err)
	}

	sm.logger.Info("JetStream stream ready", zap.String("stream", StreamName))
	return nil
}

// EnqueueMediatorCycle publishes a mediator task for the issue. The worker
// consumes these and runs one proposal cycle per task.
func (sm *StreamManager) EnqueueMediatorCycle(ctx context.Context, issueID, reason string) error {
	task := model.MediatorTask{
		IssueID:    issueID,
		Reason:     reason,
		EnqueuedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal mediator task: %w", err)
	}

	subject := fmt.Sprintf("%s.cycle.%s", TaskSubjectPrefix, issueID)
	if _, err := sm.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish mediator task: %w", err)
	}

	sm.logger.Debug("mediator task published",
		zap.String("issue_id", issueID),
		zap.String("reason", reason))
	return nil
}

// PublishNotification publishes a notification event for the user so
// delivery-channel subscribers can fan it out.
func (sm *StreamManager) PublishNotification(ctx context.Context, userID string, data []byte) error {
	subject := fmt.Sprintf("%s.%s", NotifySubjectPrefix, userID)
	if _, err := sm.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish notification event: %w", err)
	}
	return nil
}

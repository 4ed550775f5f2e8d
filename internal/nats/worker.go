package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/safetalk/mediation-platform/internal/model"
	"github.com/safetalk/mediation-platform/pkg/logger"
)

// Runner executes one mediator cycle for an issue.
type Runner interface {
	RunCycle(ctx context.Context, issueID string) error
}

// Worker consumes mediator tasks from the MEDIATION stream with a durable
// consumer and hands each one to the runner.
type Worker struct {
	js      jetstream.JetStream
	runner  Runner
	logger  *logger.Logger
	consume jetstream.ConsumeContext
}

// NewWorker creates a mediator task worker.
func NewWorker(js jetstream.JetStream, runner Runner, log *logger.Logger) *Worker {
	return &Worker{js: js, runner: runner, logger: log}
}

// Start creates the durable consumer and begins consuming tasks. A task is
// acked on success or on a nil no-op; transient failures are nak'd so
// JetStream redelivers.
func (w *Worker) Start(ctx context.Context) error {
	consumer, err := w.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       "mediator-worker",
		FilterSubject: TaskSubjectPrefix + ".>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    5,
		MaxAckPending: 16,
	})
	if err != nil {
		return fmt.Errorf("failed to create mediator consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		w.handle(msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	w.consume = cc

	w.logger.Info("mediator worker started", zap.String("stream", StreamName))
	return nil
}

// Stop halts consumption. In-flight tasks finish.
func (w *Worker) Stop() {
	if w.consume != nil {
		w.consume.Stop()
	}
}

func (w *Worker) handle(msg jetstream.Msg) {
	var task model.MediatorTask
	if err := json.Unmarshal(msg.Data(), &task); err != nil {
		w.logger.Error("malformed mediator task, dropping",
			zap.String("subject", msg.Subject()),
			zap.Error(err))
		_ = msg.Ack()
		return
	}

	w.logger.Info("mediator task received",
		zap.String("issue_id", task.IssueID),
		zap.String("reason", task.Reason))

	if err := w.runner.RunCycle(context.Background(), task.IssueID); err != nil {
		w.logger.Error("mediator cycle failed",
			zap.String("issue_id", task.IssueID),
			zap.Error(err))
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safetalk/mediation-platform/internal/model"
	"github.com/safetalk/mediation-platform/internal/store"
	"github.com/safetalk/mediation-platform/pkg/logger"
	"github.com/safetalk/mediation-platform/pkg/metrics"
)

// NotificationService persists notifications and fans them out to the
// addressee's registered channels. Delivery is fire-and-forget relative to
// the state machine: the workflow's correctness never depends on push or
// realtime delivery succeeding.
type NotificationService struct {
	store  *store.Store
	pusher Pusher
	fanout Fanout
	logger *logger.Logger
}

// NewNotificationService creates a new notification service.
func NewNotificationService(st *store.Store, pusher Pusher, fanout Fanout, log *logger.Logger) *NotificationService {
	return &NotificationService{store: st, pusher: pusher, fanout: fanout, logger: log}
}

// Send persists the notification row, then attempts push and realtime
// delivery best-effort.
func (s *NotificationService) Send(ctx context.Context, userID string, typ model.NotificationType, payload model.NotificationPayload) (*model.SendNotificationResponse, error) {
	n := &model.Notification{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Type:      typ,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, wrap(KindTransient, "failed to store notification", err)
	}
	metrics.NotificationsTotal.WithLabelValues(string(typ)).Inc()

	pushSent := s.deliverPush(ctx, n)
	s.deliverFanout(ctx, n)

	return &model.SendNotificationResponse{Notification: n, PushSent: pushSent}, nil
}

// MarkRead flips the read flag on a notification owned by userID.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	err := s.store.MarkNotificationRead(ctx, notificationID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return E(KindNotFound, "notification not found")
	}
	if err != nil {
		return wrap(KindTransient, "failed to mark notification read", err)
	}
	return nil
}

// RegisterPushToken stores the user's device token for push delivery.
func (s *NotificationService) RegisterPushToken(ctx context.Context, userID, token string) error {
	err := s.store.SetPushToken(ctx, userID, token)
	if errors.Is(err, store.ErrNotFound) {
		return E(KindNotFound, "user not found")
	}
	if err != nil {
		return wrap(KindTransient, "failed to register push token", err)
	}
	return nil
}

func (s *NotificationService) deliverPush(ctx context.Context, n *model.Notification) bool {
	if s.pusher == nil {
		return false
	}
	user, err := s.store.UserByID(ctx, n.UserID)
	if err != nil || user.FCMToken == nil || *user.FCMToken == "" {
		return false
	}

	title, body := notificationContent(n.Type, n.Payload)
	data := map[string]string{
		"notification_id": n.ID,
		"type":            string(n.Type),
	}
	if n.Payload.IssueID != "" {
		data["issue_id"] = n.Payload.IssueID
	}
	if n.Payload.ProposalID != "" {
		data["proposal_id"] = n.Payload.ProposalID
	}

	if err := s.pusher.Push(ctx, *user.FCMToken, title, body, data); err != nil {
		s.logger.Warn("push delivery failed",
			zap.String("user_id", n.UserID),
			zap.Error(err))
		metrics.PushDeliveriesTotal.WithLabelValues("error").Inc()
		return false
	}
	metrics.PushDeliveriesTotal.WithLabelValues("ok").Inc()
	return true
}

func (s *NotificationService) deliverFanout(ctx context.Context, n *model.Notification) {
	if s.fanout == nil {
		return
	}
	data, err := json.Marshal(n)
	if err != nil {
		return
	}
	if err := s.fanout.PublishNotification(ctx, n.UserID, data); err != nil {
		s.logger.Warn("notification fanout failed",
			zap.String("user_id", n.UserID),
			zap.Error(err))
	}
}

func notificationContent(typ model.NotificationType, payload model.NotificationPayload) (title, body string) {
	switch typ {
	case model.NotificationNewIssue:
		title = "New Issue Started"
		body = "Your co-parent has started a new issue discussion."
	case model.NotificationProposalReady:
		title = "Solution Proposal Ready"
		body = "A new solution proposal is ready for your review."
	case model.NotificationIssueResolved:
		title = "Issue Resolved!"
		body = "An issue has been successfully resolved."
	default:
		title = "SafeTalk Notification"
		body = "You have a new notification."
	}
	if payload.Message != "" {
		body = payload.Message
	}
	return title, body
}

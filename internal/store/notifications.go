package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/safetalk/mediation-platform/internal/model"
)

// CreateNotification inserts a notification row.
func (s *Store) CreateNotification(ctx context.Context, n *model.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, payload, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, string(payload), n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// UnreadNotifications returns the user's unread notifications, newest first.
func (s *Store) UnreadNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, payload, is_read, created_at
		FROM notifications WHERE user_id = ? AND is_read = 0
		ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifs []model.Notification
	for rows.Next() {
		var n model.Notification
		var payload string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &payload, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &n.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

// MarkNotificationRead flips is_read for a notification owned by userID.
// Returns ErrNotFound when the row does not exist or belongs to someone else.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

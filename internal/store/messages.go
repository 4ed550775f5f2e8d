package store

import (
	"context"
	"fmt"

	"github.com/safetalk/mediation-platform/internal/model"
)

// CreateMessage inserts a message row. Messages are immutable; there is no
// update path.
func (s *Store) CreateMessage(ctx context.Context, m *model.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, issue_id, sender_type, sender_id, content, mediator_summary, is_flagged, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.IssueID, m.SenderType, m.SenderID, m.Content, m.MediatorSummary, m.IsFlagged, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// RecentMessages returns the newest messages for an issue, most recent first.
func (s *Store) RecentMessages(ctx context.Context, issueID string, limit int) ([]model.Message, error) {
	return s.queryMessages(ctx, `
		SELECT id, issue_id, sender_type, sender_id, content, mediator_summary, is_flagged, created_at
		FROM messages WHERE issue_id = ?
		ORDER BY created_at DESC LIMIT ?`, issueID, limit)
}

// UserMessages returns all user-authored messages for an issue in send order.
// The mediator cycle partitions these by sender.
func (s *Store) UserMessages(ctx context.Context, issueID string) ([]model.Message, error) {
	return s.queryMessages(ctx, `
		SELECT id, issue_id, sender_type, sender_id, content, mediator_summary, is_flagged, created_at
		FROM messages WHERE issue_id = ? AND sender_type = ?
		ORDER BY created_at ASC`, issueID, model.SenderUser)
}

// UserMessageCount returns the number of user-authored messages on an issue.
func (s *Store) UserMessageCount(ctx context.Context, issueID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE issue_id = ? AND sender_type = ?`,
		issueID, model.SenderUser,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.IssueID, &m.SenderType, &m.SenderID, &m.Content,
			&m.MediatorSummary, &m.IsFlagged, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

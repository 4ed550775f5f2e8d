package store

import (
	"context"
	"fmt"

	"github.com/safetalk/mediation-platform/internal/model"
)

// RecordAIEvent appends an agent invocation to the audit log.
func (s *Store) RecordAIEvent(ctx context.Context, e *model.AIEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_events (id, issue_id, agent, input, output, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.IssueID, e.Agent, e.Input, e.Output, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ai event: %w", err)
	}
	return nil
}

// AIEventsForIssue returns the audit trail for an issue in order.
func (s *Store) AIEventsForIssue(ctx context.Context, issueID string) ([]model.AIEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_id, agent, input, output, created_at
		FROM ai_events WHERE issue_id = ? ORDER BY created_at ASC`, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ai events: %w", err)
	}
	defer rows.Close()

	var events []model.AIEvent
	for rows.Next() {
		var e model.AIEvent
		if err := rows.Scan(&e.ID, &e.IssueID, &e.Agent, &e.Input, &e.Output, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ai event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

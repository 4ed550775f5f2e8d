package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safetalk/mediation-platform/internal/model"
)

const issueColumns = `id, partner_a_id, partner_b_id, status, summary, red_flagged, created_at, resolved_at`

// CreateIssue inserts a new issue after re-checking, inside the same
// transaction, that the unordered pair has no other active issue. Returns
// ErrActiveIssue otherwise.
func (s *Store) CreateIssue(ctx context.Context, issue *model.Issue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM issues
		WHERE status IN (?, ?)
		  AND ((partner_a_id = ? AND partner_b_id = ?) OR (partner_a_id = ? AND partner_b_id = ?))`,
		model.IssueInProgress, model.IssueProposalSent,
		issue.PartnerAID, issue.PartnerBID, issue.PartnerBID, issue.PartnerAID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check active issues: %w", err)
	}
	if count > 0 {
		return ErrActiveIssue
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO issues (id, partner_a_id, partner_b_id, status, summary, red_flagged, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.ID, issue.PartnerAID, issue.PartnerBID, issue.Status, issue.Summary,
		issue.RedFlagged, issue.CreatedAt, issue.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert issue: %w", err)
	}

	return tx.Commit()
}

// IssueByID fetches an issue by ID.
func (s *Store) IssueByID(ctx context.Context, id string) (*model.Issue, error) {
	return s.scanIssue(s.db.QueryRowContext(ctx,
		`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id))
}

// ActiveIssueForPair returns the single active issue for the unordered pair,
// or ErrNotFound.
func (s *Store) ActiveIssueForPair(ctx context.Context, userA, userB string) (*model.Issue, error) {
	return s.scanIssue(s.db.QueryRowContext(ctx, `
		SELECT `+issueColumns+` FROM issues
		WHERE status IN (?, ?)
		  AND ((partner_a_id = ? AND partner_b_id = ?) OR (partner_a_id = ? AND partner_b_id = ?))
		LIMIT 1`,
		model.IssueInProgress, model.IssueProposalSent,
		userA, userB, userB, userA,
	))
}

// ResolvedIssuesForPair returns the pair's resolved issues, most recent first.
func (s *Store) ResolvedIssuesForPair(ctx context.Context, userA, userB string, limit int) ([]model.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+issueColumns+` FROM issues
		WHERE status = ?
		  AND ((partner_a_id = ? AND partner_b_id = ?) OR (partner_a_id = ? AND partner_b_id = ?))
		ORDER BY resolved_at DESC
		LIMIT ?`,
		model.IssueResolved, userA, userB, userB, userA, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolved issues: %w", err)
	}
	defer rows.Close()

	var issues []model.Issue
	for rows.Next() {
		var i model.Issue
		if err := rows.Scan(&i.ID, &i.PartnerAID, &i.PartnerBID, &i.Status, &i.Summary,
			&i.RedFlagged, &i.CreatedAt, &i.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

// HaltIssue transitions an issue to halted and sets the red flag. The guard
// on the current status makes the transition at-most-once: a second caller,
// or a call against a terminal issue, gets ErrStateConflict.
func (s *Store) HaltIssue(ctx context.Context, id string) error {
	return s.guardedTransition(ctx, `
		UPDATE issues SET status = ?, red_flagged = 1
		WHERE id = ? AND status IN (?, ?)`,
		model.IssueHalted, id, model.IssueInProgress, model.IssueProposalSent)
}

// MarkProposalSent transitions in_progress -> proposal_sent.
func (s *Store) MarkProposalSent(ctx context.Context, id string) error {
	return s.guardedTransition(ctx, `
		UPDATE issues SET status = ? WHERE id = ? AND status = ?`,
		model.IssueProposalSent, id, model.IssueInProgress)
}

// ResolveIssue transitions proposal_sent -> resolved and stamps resolved_at.
func (s *Store) ResolveIssue(ctx context.Context, id string, at time.Time) error {
	return s.guardedTransition(ctx, `
		UPDATE issues SET status = ?, resolved_at = ? WHERE id = ? AND status = ?`,
		model.IssueResolved, at, id, model.IssueProposalSent)
}

// ReopenIssue transitions proposal_sent -> in_progress after a rejected
// proposal.
func (s *Store) ReopenIssue(ctx context.Context, id string) error {
	return s.guardedTransition(ctx, `
		UPDATE issues SET status = ? WHERE id = ? AND status = ?`,
		model.IssueInProgress, id, model.IssueProposalSent)
}

func (s *Store) guardedTransition(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update issue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStateConflict
	}
	return nil
}

func (s *Store) scanIssue(row *sql.Row) (*model.Issue, error) {
	var i model.Issue
	err := row.Scan(&i.ID, &i.PartnerAID, &i.PartnerBID, &i.Status, &i.Summary,
		&i.RedFlagged, &i.CreatedAt, &i.ResolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan issue: %w", err)
	}
	return &i, nil
}

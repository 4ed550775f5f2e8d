package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safetalk/mediation-platform/internal/model"
)

const proposalColumns = `id, issue_id, version, content, internal_score, is_compromise, accepted_by_a, accepted_by_b, created_at`

// CreateProposal inserts a versioned proposal. The (issue_id, version) unique
// constraint rejects a duplicate attempt at the same version.
func (s *Store) CreateProposal(ctx context.Context, p *model.Proposal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mediator_logs (id, issue_id, version, content, internal_score, is_compromise, accepted_by_a, accepted_by_b, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.IssueID, p.Version, p.Content, p.InternalScore, p.IsCompromise,
		voteToColumn(p.AcceptedByA), voteToColumn(p.AcceptedByB), p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert proposal: %w", err)
	}
	return nil
}

// ProposalByID fetches a proposal by ID.
func (s *Store) ProposalByID(ctx context.Context, id string) (*model.Proposal, error) {
	return s.scanProposal(s.db.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM mediator_logs WHERE id = ?`, id))
}

// LatestProposal returns the highest-version proposal for an issue, or
// ErrNotFound when none exists.
func (s *Store) LatestProposal(ctx context.Context, issueID string) (*model.Proposal, error) {
	return s.scanProposal(s.db.QueryRowContext(ctx, `
		SELECT `+proposalColumns+` FROM mediator_logs
		WHERE issue_id = ? ORDER BY version DESC LIMIT 1`, issueID))
}

// ProposalContents returns every proposal body for an issue in version order,
// for feeding prior rejected attempts back to the generator.
func (s *Store) ProposalContents(ctx context.Context, issueID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content FROM mediator_logs WHERE issue_id = ? ORDER BY version ASC`, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposals: %w", err)
	}
	defer rows.Close()

	var contents []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		contents = append(contents, c)
	}
	return contents, rows.Err()
}

// ProposalCount returns the number of proposals recorded for an issue.
func (s *Store) ProposalCount(ctx context.Context, issueID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mediator_logs WHERE issue_id = ?`, issueID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count proposals: %w", err)
	}
	return count, nil
}

// CastVote records one partner's vote with a compare-and-set on the single
// vote column: the update only lands while the column is still NULL, so a
// repeat vote returns ErrVoteCast and concurrent votes from the two partners
// never clobber each other. Returns the refreshed proposal.
func (s *Store) CastVote(ctx context.Context, proposalID string, isPartnerA, accept bool) (*model.Proposal, error) {
	column := "accepted_by_b"
	if isPartnerA {
		column = "accepted_by_a"
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE mediator_logs SET `+column+` = ? WHERE id = ? AND `+column+` IS NULL`,
		boolToInt(accept), proposalID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cast vote: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Distinguish a missing proposal from an already-cast vote.
		if _, err := s.ProposalByID(ctx, proposalID); err != nil {
			return nil, err
		}
		return nil, ErrVoteCast
	}

	return s.ProposalByID(ctx, proposalID)
}

func (s *Store) scanProposal(row *sql.Row) (*model.Proposal, error) {
	var p model.Proposal
	var a, b sql.NullInt64
	err := row.Scan(&p.ID, &p.IssueID, &p.Version, &p.Content, &p.InternalScore,
		&p.IsCompromise, &a, &b, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan proposal: %w", err)
	}
	p.AcceptedByA = columnToVote(a)
	p.AcceptedByB = columnToVote(b)
	return &p, nil
}

// Vote tri-state maps to NULL (not voted), 1 (accepted), 0 (rejected).
func voteToColumn(v model.Vote) any {
	switch v {
	case model.VoteAccepted:
		return 1
	case model.VoteRejected:
		return 0
	default:
		return nil
	}
}

func columnToVote(n sql.NullInt64) model.Vote {
	if !n.Valid {
		return model.VoteNone
	}
	if n.Int64 != 0 {
		return model.VoteAccepted
	}
	return model.VoteRejected
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

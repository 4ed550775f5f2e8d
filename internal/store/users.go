package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safetalk/mediation-platform/internal/model"
)

// CreateUser inserts a new user row. Returns ErrDuplicate when the email or
// partner code collides with an existing row.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, partner_code, connected_user_id, fcm_token, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PartnerCode, u.ConnectedUserID, u.FCMToken, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UserByID fetches a user by ID.
func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, name, email, partner_code, connected_user_id, fcm_token, created_at
		FROM users WHERE id = ?`, id))
}

// UserByPartnerCode fetches a user by partner code.
func (s *Store) UserByPartnerCode(ctx context.Context, code string) (*model.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, name, email, partner_code, connected_user_id, fcm_token, created_at
		FROM users WHERE partner_code = ?`, code))
}

// ConnectPartners links the two users in a single transaction. Each update is
// guarded on the side still being unconnected, so a concurrent connect on
// either user rolls the whole operation back; partial application is never
// observable.
func (s *Store) ConnectPartners(ctx context.Context, userID, partnerID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, pair := range [][2]string{{userID, partnerID}, {partnerID, userID}} {
		res, err := tx.ExecContext(ctx, `
			UPDATE users SET connected_user_id = ?
			WHERE id = ? AND connected_user_id IS NULL`,
			pair[1], pair[0],
		)
		if err != nil {
			return fmt.Errorf("failed to connect users: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAlreadyConnected
		}
	}

	return tx.Commit()
}

// SetPushToken stores a device push token for the user.
func (s *Store) SetPushToken(ctx context.Context, userID, token string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET fcm_token = ? WHERE id = ?`, token, userID)
	if err != nil {
		return fmt.Errorf("failed to set push token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PartnerCode, &u.ConnectedUserID, &u.FCMToken, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safetalk/mediation-platform/internal/model"
	"github.com/safetalk/mediation-platform/internal/store"
	"github.com/safetalk/mediation-platform/pkg/logger"
)

// Partner codes avoid ambiguous characters (0/O, 1/I).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const codeLength = 6

// PairingService maintains the symmetric 1:1 connection between two user
// accounts.
type PairingService struct {
	store    *store.Store
	notifier *NotificationService
	logger   *logger.Logger
}

// NewPairingService creates a new pairing service.
func NewPairingService(st *store.Store, notifier *NotificationService, log *logger.Logger) *PairingService {
	return &PairingService{store: st, notifier: notifier, logger: log}
}

// CreateUser registers a new account with a freshly generated partner code.
func (s *PairingService) CreateUser(ctx context.Context, name, email string) (*model.User, error) {
	for attempt := 0; attempt < 5; attempt++ {
		u := &model.User{
			ID:          uuid.Must(uuid.NewV7()).String(),
			Name:        name,
			Email:       email,
			PartnerCode: generatePartnerCode(),
			CreatedAt:   time.Now().UTC(),
		}
		err := s.store.CreateUser(ctx, u)
		if errors.Is(err, store.ErrDuplicate) {
			// Either the email exists or the code collided; a code collision
			// is worth one more roll.
			if _, lookupErr := s.store.UserByPartnerCode(ctx, u.PartnerCode); lookupErr == nil {
				continue
			}
			return nil, E(KindConflict, "an account with this email already exists")
		}
		if err != nil {
			return nil, wrap(KindTransient, "failed to create user", err)
		}
		return u, nil
	}
	return nil, E(KindTransient, "failed to allocate a partner code")
}

// Connect links the requesting user with the owner of code. The two-sided
// update is transactional: on failure of either half, neither side appears
// connected.
func (s *PairingService) Connect(ctx context.Context, userID, code string) (*model.ConnectPartnerResponse, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	requester, err := s.store.UserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, E(KindNotFound, "user profile not found")
	}
	if err != nil {
		return nil, wrap(KindTransient, "failed to load user", err)
	}
	if requester.ConnectedUserID != nil {
		return nil, E(KindConflict, "already connected to a partner")
	}

	partner, err := s.store.UserByPartnerCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, E(KindValidation, "invalid partner code")
	}
	if err != nil {
		return nil, wrap(KindTransient, "failed to look up partner code", err)
	}
	if partner.ID == requester.ID {
		return nil, E(KindValidation, "cannot connect to your own code")
	}
	if partner.ConnectedUserID != nil {
		return nil, E(KindConflict, "partner is already connected to someone else")
	}

	if err := s.store.ConnectPartners(ctx, requester.ID, partner.ID); err != nil {
		if errors.Is(err, store.ErrAlreadyConnected) {
			return nil, E(KindConflict, "already connected to a partner")
		}
		return nil, wrap(KindTransient, "failed to connect partners", err)
	}

	s.logger.Info("partners connected",
		zap.String("user_id", requester.ID),
		zap.String("partner_id", partner.ID))

	// The original client surfaces connection events through the new_issue
	// notification type.
	s.notify(ctx, requester.ID, fmt.Sprintf("Connected with %s", displayName(partner)))
	s.notify(ctx, partner.ID, fmt.Sprintf("Connected with %s", displayName(requester)))

	return &model.ConnectPartnerResponse{
		Partner: model.PartnerSummary{ID: partner.ID, Name: partner.Name, Email: partner.Email},
	}, nil
}

func (s *PairingService) notify(ctx context.Context, userID, message string) {
	if _, err := s.notifier.Send(ctx, userID, model.NotificationNewIssue,
		model.NotificationPayload{Message: message}); err != nil {
		s.logger.Warn("connection notification failed",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

func generatePartnerCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; fall back to a
		// uuid-derived code rather than panic.
		id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
		return id[:codeLength]
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}

func displayName(u *model.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

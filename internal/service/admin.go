package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
)

// AdminService holds privileged operations gated on the actor's is_admin flag.
type AdminService struct {
	store domain.Transactor
	clock Clock
}

// NewAdminService creates a new AdminService on the wall clock.
func NewAdminService(store domain.Transactor) *AdminService {
	return &AdminService{store: store, clock: time.Now}
}

// WithClock replaces the clock that stamps balance updates.
func (s *AdminService) WithClock(clock Clock) *AdminService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// AdjustCredits sets the target's balance to credits (an absolute value, not
// a delta). Every successful call is written to the audit log.
func (s *AdminService) AdjustCredits(ctx context.Context, adminID, targetID, credits int64) (*domain.User, error) {
	if credits < 0 {
		return nil, fmt.Errorf("%w: credits must be non-negative", domain.ErrInvalidInput)
	}

	var (
		updated    *domain.User
		oldCredits int64
	)
	now := s.clock().UTC()
	err := s.store.WithinTx(ctx, func(tx domain.Store) error {
		if err := requireAdmin(ctx, tx.Users(), adminID); err != nil {
			return err
		}

		target, err := tx.Users().GetByID(ctx, targetID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrTargetNotFound
			}
			return fmt.Errorf("get target user: %w", err)
		}
		oldCredits = target.Credits

		updated, err = tx.Ledger().SetBalance(ctx, targetID, credits, now)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrTargetNotFound
			}
			return fmt.Errorf("set balance: %w", err)
		}
		return nil
	})
	if err != nil {
		slog.Warn("admin credit adjustment rejected",
			"admin_id", adminID, "target_id", targetID, "requested_credits", credits, "error", err)
		return nil, err
	}

	slog.Info("admin credit adjustment",
		"admin_id", adminID,
		"target_id", targetID,
		"old_credits", oldCredits,
		"new_credits", updated.Credits,
	)
	return updated, nil
}

// RequireAdmin reports whether userID may perform admin operations.
func (s *AdminService) RequireAdmin(ctx context.Context, userID int64) error {
	return requireAdmin(ctx, s.store.Users(), userID)
}

func requireAdmin(ctx context.Context, users domain.UserRepository, userID int64) error {
	actor, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrAdminNotFound
		}
		return fmt.Errorf("get admin user: %w", err)
	}
	if !actor.IsAdmin {
		return domain.ErrForbidden
	}
	return nil
}

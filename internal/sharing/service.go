// Package sharing implements the owner-facing commands that hand out, change and
// withdraw access to an account, the permission request workflow, and the read
// models built on them. Every command runs as one unit of work and records
// exactly one audit entry.
package sharing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fundshare/fundshare/internal/access"
	"github.com/fundshare/fundshare/internal/accounts"
	"github.com/fundshare/fundshare/internal/audit"
	"github.com/fundshare/fundshare/internal/grants"
	"github.com/fundshare/fundshare/internal/permissions"
	"github.com/fundshare/fundshare/internal/shared"
)

// Actor identifies who issues a command and where it came from.
type Actor struct {
	UserID int64
	Origin shared.Origin
}

// GrantInput describes a grant or update command.
type GrantInput struct {
	AccountID int64
	UserID    int64
	Level     permissions.Level
}

// Service orchestrates sharing commands and queries.
type Service struct {
	store   Storage
	writer  *audit.Writer
	logger  *slog.Logger
	metrics access.DecisionRecorder
	now     func() time.Time
}

// NewService constructs the sharing service.
func NewService(store Storage, writer *audit.Writer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, writer: writer, logger: logger, now: time.Now}
}

// WithMetrics attaches an access decision recorder to every evaluator the service builds.
func (s *Service) WithMetrics(m access.DecisionRecorder) *Service {
	s.metrics = m
	return s
}

// Evaluator returns an evaluator over the non-transactional stores.
func (s *Service) Evaluator() *access.Evaluator {
	return s.evaluator(s.store)
}

func (s *Service) evaluator(tx Tx) *access.Evaluator {
	eval := access.NewEvaluator(tx.Accounts(), tx.Grants())
	if s.metrics != nil {
		eval = eval.WithMetrics(s.metrics)
	}
	return eval
}

// GrantPermission gives input.UserID the requested level, overwriting any existing grant.
// Granting on an account that is not shared turns sharing on.
func (s *Service) GrantPermission(ctx context.Context, actor Actor, input GrantInput) (grants.Grant, error) {
	if err := validateGrantInput(input); err != nil {
		return grants.Grant{}, err
	}
	var out grants.Grant
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		snap, err := s.evaluator(tx).AuthorizeOwner(ctx, input.AccountID, actor.UserID)
		if err != nil {
			return err
		}
		if snap.Account.IsOwner(input.UserID) {
			return fmt.Errorf("the owner already holds full access: %w", shared.ErrInvalidRequest)
		}
		res, err := tx.Grants().Upsert(ctx, grants.Grant{
			AccountID: input.AccountID,
			UserID:    input.UserID,
			Level:     input.Level,
			GrantedBy: actor.UserID,
		})
		if err != nil {
			return err
		}
		enabled, err := enableSharing(ctx, tx, snap.Account)
		if err != nil {
			return err
		}
		out = res.Grant
		details := map[string]any{
			"user_id": input.UserID,
			"level":   input.Level.String(),
		}
		if !res.Created {
			details["previous_level"] = res.Previous.String()
		}
		if enabled {
			details["sharing_enabled"] = true
		}
		s.recordAudit(ctx, tx, actor, input.AccountID, audit.ActionPermissionGranted, details)
		return nil
	})
	if err != nil {
		return grants.Grant{}, err
	}
	s.logger.Info("permission granted",
		slog.Int64("account_id", input.AccountID),
		slog.Int64("user_id", input.UserID),
		slog.String("level", input.Level.String()))
	return out, nil
}

// UpdatePermission changes the level of an existing grant.
func (s *Service) UpdatePermission(ctx context.Context, actor Actor, input GrantInput) (grants.Grant, error) {
	if err := validateGrantInput(input); err != nil {
		return grants.Grant{}, err
	}
	var out grants.Grant
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := s.evaluator(tx).AuthorizeOwner(ctx, input.AccountID, actor.UserID); err != nil {
			return err
		}
		if _, err := tx.Grants().Get(ctx, input.AccountID, input.UserID); err != nil {
			return fmt.Errorf("sharing: update permission: %w", err)
		}
		res, err := tx.Grants().Upsert(ctx, grants.Grant{
			AccountID: input.AccountID,
			UserID:    input.UserID,
			Level:     input.Level,
			GrantedBy: actor.UserID,
		})
		if err != nil {
			return err
		}
		out = res.Grant
		s.recordAudit(ctx, tx, actor, input.AccountID, audit.ActionPermissionModified, map[string]any{
			"user_id":        input.UserID,
			"level":          input.Level.String(),
			"previous_level": res.Previous.String(),
		})
		return nil
	})
	if err != nil {
		return grants.Grant{}, err
	}
	return out, nil
}

// RevokePermission deletes the grant of userID on accountID.
func (s *Service) RevokePermission(ctx context.Context, actor Actor, accountID, userID int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := s.evaluator(tx).AuthorizeOwner(ctx, accountID, actor.UserID); err != nil {
			return err
		}
		removed, err := tx.Grants().Remove(ctx, accountID, userID)
		if err != nil {
			return fmt.Errorf("sharing: revoke permission: %w", err)
		}
		s.recordAudit(ctx, tx, actor, accountID, audit.ActionPermissionRevoked, map[string]any{
			"user_id":        userID,
			"previous_level": removed.Level.String(),
		})
		return nil
	})
}

// SetSharing turns sharing on or off. Grants are kept either way; the evaluator
// ignores them while the account is not shared. The next grant or approval
// turns sharing back on.
func (s *Service) SetSharing(ctx context.Context, actor Actor, accountID int64, enabled bool) (accounts.Account, error) {
	var out accounts.Account
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		snap, err := s.evaluator(tx).AuthorizeOwner(ctx, accountID, actor.UserID)
		if err != nil {
			return err
		}
		updated, err := tx.Accounts().SetShared(ctx, accountID, enabled)
		if err != nil {
			return err
		}
		out = updated
		s.recordAudit(ctx, tx, actor, accountID, audit.ActionAccountModified, map[string]any{
			"shared":          enabled,
			"previous_shared": snap.Account.Shared,
		})
		return nil
	})
	return out, err
}

// DeleteAccount removes the account with its grants and requests. Audit entries survive.
func (s *Service) DeleteAccount(ctx context.Context, actor Actor, accountID int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := s.evaluator(tx).AuthorizeOwner(ctx, accountID, actor.UserID); err != nil {
			return err
		}
		if err := tx.Accounts().Delete(ctx, accountID); err != nil {
			return err
		}
		s.recordAudit(ctx, tx, actor, accountID, audit.ActionAccountModified, map[string]any{"deleted": true})
		return nil
	})
}

// enableSharing turns sharing on for acc when a grant is handed out on it and
// reports whether the flag changed.
func enableSharing(ctx context.Context, tx Tx, acc accounts.Account) (bool, error) {
	if acc.Shared {
		return false, nil
	}
	if _, err := tx.Accounts().SetShared(ctx, acc.ID, true); err != nil {
		return false, fmt.Errorf("sharing: enable sharing on account %d: %w", acc.ID, err)
	}
	return true, nil
}

func validateGrantInput(input GrantInput) error {
	if input.AccountID <= 0 || input.UserID <= 0 {
		return fmt.Errorf("account and user are required: %w", shared.ErrInvalidRequest)
	}
	if !input.Level.Valid() {
		return fmt.Errorf("level must be one of VIEW_ONLY, TRANSACTION_ONLY, FULL_ACCESS: %w", shared.ErrInvalidRequest)
	}
	return nil
}

// recordAudit appends inside the unit of work. A degraded write has already been
// logged and counted by the writer and never fails the command.
func (s *Service) recordAudit(ctx context.Context, tx Tx, actor Actor, accountID int64, action audit.ActionType, details map[string]any) {
	if s.writer == nil {
		return
	}
	err := s.writer.In(tx.Audit()).Append(ctx, audit.Record{
		AccountID:   accountID,
		ActorUserID: actor.UserID,
		Action:      action,
		Details:     details,
		Origin:      actor.Origin.Address,
		ClientAgent: actor.Origin.ClientAgent,
	})
	if err != nil && !errors.Is(err, shared.ErrAuditWriteDegraded) {
		s.logger.Error("audit append", slog.String("action", string(action)), slog.Any("error", err))
	}
}

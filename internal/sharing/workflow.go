package sharing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/fundshare/fundshare/internal/access"
	"github.com/fundshare/fundshare/internal/audit"
	"github.com/fundshare/fundshare/internal/grants"
	"github.com/fundshare/fundshare/internal/permissions"
	"github.com/fundshare/fundshare/internal/requests"
	"github.com/fundshare/fundshare/internal/shared"
)

// MaxMessageLength bounds request and review messages, in characters.
const MaxMessageLength = 500

// CreateRequestInput describes a permission request.
type CreateRequestInput struct {
	AccountID int64
	Level     permissions.Level
	Message   string
}

// CreateRequest asks the owner of an account for a higher level. The caller must
// already hold an active grant on the account.
func (s *Service) CreateRequest(ctx context.Context, actor Actor, input CreateRequestInput) (requests.Request, error) {
	if !input.Level.Valid() {
		return requests.Request{}, fmt.Errorf("level must be one of VIEW_ONLY, TRANSACTION_ONLY, FULL_ACCESS: %w", shared.ErrInvalidRequest)
	}
	message, err := normalizeMessage(input.Message)
	if err != nil {
		return requests.Request{}, err
	}
	var out requests.Request
	err = s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		snap, err := s.evaluator(tx).Load(ctx, input.AccountID, actor.UserID)
		if err != nil {
			return err
		}
		if snap.Owner() {
			return fmt.Errorf("owners cannot request access to their own account: %w", shared.ErrInvalidRequest)
		}
		if snap.Level() == permissions.LevelNone {
			return fmt.Errorf("sharing: request on account %d: %w", input.AccountID, shared.ErrNotFound)
		}
		if snap.Granted.Includes(input.Level) {
			return fmt.Errorf("requested level must be higher than the current %s: %w", snap.Granted, shared.ErrInvalidRequest)
		}
		if _, err := tx.Requests().FindPending(ctx, input.AccountID, actor.UserID); err == nil {
			return fmt.Errorf("sharing: request on account %d: %w", input.AccountID, shared.ErrDuplicateRequest)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		created, err := tx.Requests().Insert(ctx, requests.Request{
			AccountID:      input.AccountID,
			RequesterID:    actor.UserID,
			RequestedLevel: input.Level,
			CurrentLevel:   snap.Granted,
			Message:        message,
		})
		if err != nil {
			return err
		}
		out = created
		s.recordAudit(ctx, tx, actor, input.AccountID, audit.ActionPermissionRequested, map[string]any{
			"request_id":      created.ID,
			"requested_level": created.RequestedLevel.String(),
			"current_level":   created.CurrentLevel.String(),
			"message":         message,
		})
		return nil
	})
	if err != nil {
		return requests.Request{}, err
	}
	s.logger.Info("permission requested",
		slog.Int64("account_id", out.AccountID),
		slog.Int64("request_id", out.ID),
		slog.String("level", out.RequestedLevel.String()))
	return out, nil
}

// ApproveRequest approves a pending request and sets the requester's grant to the
// requested level in the same unit of work. The requester must still hold a grant.
func (s *Service) ApproveRequest(ctx context.Context, actor Actor, requestID int64, message string) (requests.Request, error) {
	message, err := normalizeMessage(message)
	if err != nil {
		return requests.Request{}, err
	}
	var out requests.Request
	err = s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		req, snap, err := s.loadForReview(ctx, tx, requestID, actor.UserID)
		if err != nil {
			return err
		}
		approved, err := req.Approve(actor.UserID, message, s.now())
		if err != nil {
			return err
		}
		if _, err := tx.Grants().Get(ctx, req.AccountID, req.RequesterID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("requester no longer has access to the account: %w", shared.ErrInvalidState)
			}
			return err
		}
		if err := tx.Requests().Update(ctx, approved); err != nil {
			return err
		}
		res, err := tx.Grants().Upsert(ctx, grants.Grant{
			AccountID: req.AccountID,
			UserID:    req.RequesterID,
			Level:     req.RequestedLevel,
			GrantedBy: actor.UserID,
		})
		if err != nil {
			return err
		}
		enabled, err := enableSharing(ctx, tx, snap.Account)
		if err != nil {
			return err
		}
		out = approved
		details := map[string]any{
			"request_id":     req.ID,
			"requester_id":   req.RequesterID,
			"reviewer_id":    actor.UserID,
			"level":          req.RequestedLevel.String(),
			"previous_level": res.Previous.String(),
			"message":        message,
		}
		if enabled {
			details["sharing_enabled"] = true
		}
		s.recordAudit(ctx, tx, actor, req.AccountID, audit.ActionPermissionRequestApproved, details)
		return nil
	})
	if err != nil {
		return requests.Request{}, err
	}
	return out, nil
}

// DenyRequest rejects a pending request without touching grants.
func (s *Service) DenyRequest(ctx context.Context, actor Actor, requestID int64, message string) (requests.Request, error) {
	message, err := normalizeMessage(message)
	if err != nil {
		return requests.Request{}, err
	}
	var out requests.Request
	err = s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		req, _, err := s.loadForReview(ctx, tx, requestID, actor.UserID)
		if err != nil {
			return err
		}
		denied, err := req.Deny(actor.UserID, message, s.now())
		if err != nil {
			return err
		}
		if err := tx.Requests().Update(ctx, denied); err != nil {
			return err
		}
		out = denied
		s.recordAudit(ctx, tx, actor, req.AccountID, audit.ActionPermissionRequestDenied, map[string]any{
			"request_id":   req.ID,
			"requester_id": req.RequesterID,
			"reviewer_id":  actor.UserID,
			"level":        req.RequestedLevel.String(),
			"message":      message,
		})
		return nil
	})
	if err != nil {
		return requests.Request{}, err
	}
	return out, nil
}

// CancelRequest withdraws a pending request. Only the requester may cancel.
func (s *Service) CancelRequest(ctx context.Context, actor Actor, requestID int64) (requests.Request, error) {
	var out requests.Request
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		req, err := tx.Requests().GetForUpdate(ctx, requestID)
		if err != nil {
			return fmt.Errorf("sharing: cancel request: %w", err)
		}
		if req.RequesterID != actor.UserID {
			return fmt.Errorf("sharing: cancel request %d: %w", req.ID, shared.ErrForbidden)
		}
		cancelled, err := req.Cancel(s.now())
		if err != nil {
			return err
		}
		if err := tx.Requests().Update(ctx, cancelled); err != nil {
			return err
		}
		out = cancelled
		s.recordAudit(ctx, tx, actor, req.AccountID, audit.ActionPermissionRequestCanceled, map[string]any{
			"request_id": req.ID,
			"level":      req.RequestedLevel.String(),
		})
		return nil
	})
	if err != nil {
		return requests.Request{}, err
	}
	return out, nil
}

// loadForReview locks the request and checks the reviewer owns its account.
func (s *Service) loadForReview(ctx context.Context, tx Tx, requestID, reviewerID int64) (requests.Request, access.Snapshot, error) {
	req, err := tx.Requests().GetForUpdate(ctx, requestID)
	if err != nil {
		return requests.Request{}, access.Snapshot{}, fmt.Errorf("sharing: review request: %w", err)
	}
	snap, err := s.evaluator(tx).AuthorizeOwner(ctx, req.AccountID, reviewerID)
	if err != nil {
		return requests.Request{}, snap, fmt.Errorf("sharing: review request %d: %w", req.ID, err)
	}
	return req, snap, nil
}

func normalizeMessage(raw string) (string, error) {
	message := strings.TrimSpace(raw)
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return "", fmt.Errorf("message exceeds %d characters: %w", MaxMessageLength, shared.ErrInvalidRequest)
	}
	return message, nil
}

package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/fundshare/fundshare/internal/accounts"
	"github.com/fundshare/fundshare/internal/grants"
	"github.com/fundshare/fundshare/internal/permissions"
	"github.com/fundshare/fundshare/internal/shared"
)

// DecisionRecorder counts authorization outcomes.
type DecisionRecorder interface {
	ObserveAccessDecision(capability, outcome string)
}

// Decision outcomes.
const (
	OutcomeAllowed     = "allowed"
	OutcomeForbidden   = "forbidden"
	OutcomeHidden      = "not_found"
	OutcomeUnavailable = "unavailable"
)

// Snapshot is everything known about one user's relationship to one account.
type Snapshot struct {
	Account accounts.Account
	Found   bool
	UserID  int64
	Granted permissions.Level
}

// Owner reports whether the user owns the account.
func (s Snapshot) Owner() bool {
	return s.Found && IsOwner(s.Account, s.UserID)
}

// Level returns the user's effective level.
func (s Snapshot) Level() permissions.Level {
	if !s.Found {
		return permissions.LevelNone
	}
	return EffectiveLevel(s.Account, s.UserID, s.Granted)
}

// Can reports whether the user holds capability c.
func (s Snapshot) Can(c permissions.Capability) bool {
	return s.Found && HasCapability(s.Account, s.UserID, s.Granted, c)
}

// Evaluator answers access questions against the current store state. Missing
// accounts or grants yield false; any other lookup failure is reported as
// shared.ErrEvaluationUnavailable.
type Evaluator struct {
	accounts accounts.Reader
	grants   grants.Reader
	metrics  DecisionRecorder
}

// NewEvaluator constructs an evaluator.
func NewEvaluator(accountReader accounts.Reader, grantReader grants.Reader) *Evaluator {
	return &Evaluator{accounts: accountReader, grants: grantReader}
}

// WithMetrics attaches a decision recorder.
func (e *Evaluator) WithMetrics(m DecisionRecorder) *Evaluator {
	clone := *e
	clone.metrics = m
	return &clone
}

// Load resolves the relationship between userID and accountID.
func (e *Evaluator) Load(ctx context.Context, accountID, userID int64) (Snapshot, error) {
	snap := Snapshot{UserID: userID}
	acc, err := e.accounts.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return snap, nil
		}
		return snap, fmt.Errorf("access: load account %d: %v: %w", accountID, err, shared.ErrEvaluationUnavailable)
	}
	snap.Account = acc
	snap.Found = true
	if acc.IsOwner(userID) {
		return snap, nil
	}
	grant, err := e.grants.Get(ctx, accountID, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return snap, nil
		}
		return snap, fmt.Errorf("access: load grant on account %d: %v: %w", accountID, err, shared.ErrEvaluationUnavailable)
	}
	snap.Granted = grant.Level
	return snap, nil
}

// IsOwner reports whether userID owns accountID.
func (e *Evaluator) IsOwner(ctx context.Context, accountID, userID int64) (bool, error) {
	snap, err := e.Load(ctx, accountID, userID)
	return snap.Owner(), err
}

// HasAnyAccess reports whether userID owns or holds an active grant on accountID.
func (e *Evaluator) HasAnyAccess(ctx context.Context, accountID, userID int64) (bool, error) {
	snap, err := e.Load(ctx, accountID, userID)
	return snap.Level() != permissions.LevelNone, err
}

// HasCapability reports whether userID may perform actions of class c on accountID.
func (e *Evaluator) HasCapability(ctx context.Context, accountID, userID int64, c permissions.Capability) (bool, error) {
	snap, err := e.Load(ctx, accountID, userID)
	return snap.Can(c), err
}

// CanManagePermissions reports whether userID may change grants on accountID.
func (e *Evaluator) CanManagePermissions(ctx context.Context, accountID, userID int64) (bool, error) {
	snap, err := e.Load(ctx, accountID, userID)
	return snap.Found && CanManagePermissions(snap.Account, userID), err
}

// Authorize returns the snapshot when userID holds capability c. Callers with no
// access at all get shared.ErrNotFound; callers with insufficient access get
// shared.ErrForbidden.
func (e *Evaluator) Authorize(ctx context.Context, accountID, userID int64, c permissions.Capability) (Snapshot, error) {
	snap, err := e.Load(ctx, accountID, userID)
	if err != nil {
		e.observe(string(c), OutcomeUnavailable)
		return snap, err
	}
	return snap, e.decide(snap, string(c), snap.Can(c))
}

// AuthorizeOwner returns the snapshot when userID owns accountID. Everyone else,
// including callers naming an account that does not exist, gets shared.ErrForbidden.
func (e *Evaluator) AuthorizeOwner(ctx context.Context, accountID, userID int64) (Snapshot, error) {
	snap, err := e.Load(ctx, accountID, userID)
	if err != nil {
		e.observe("OWNER", OutcomeUnavailable)
		return snap, err
	}
	if !snap.Owner() {
		e.observe("OWNER", OutcomeForbidden)
		return snap, fmt.Errorf("access: OWNER on account %d: %w", accountID, shared.ErrForbidden)
	}
	e.observe("OWNER", OutcomeAllowed)
	return snap, nil
}

func (e *Evaluator) decide(snap Snapshot, label string, allowed bool) error {
	switch {
	case allowed:
		e.observe(label, OutcomeAllowed)
		return nil
	case snap.Level() == permissions.LevelNone:
		e.observe(label, OutcomeHidden)
		return fmt.Errorf("access: account %d: %w", snap.Account.ID, shared.ErrNotFound)
	default:
		e.observe(label, OutcomeForbidden)
		return fmt.Errorf("access: %s on account %d: %w", label, snap.Account.ID, shared.ErrForbidden)
	}
}

func (e *Evaluator) observe(capability, outcome string) {
	if e.metrics != nil {
		e.metrics.ObserveAccessDecision(capability, outcome)
	}
}

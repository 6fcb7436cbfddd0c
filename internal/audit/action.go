// Package audit appends and queries the immutable log of security-relevant actions.
package audit

import (
	"fmt"

	"github.com/fundshare/fundshare/internal/shared"
)

// ActionType is the closed set of audited actions.
type ActionType string

const (
	ActionPermissionGranted         ActionType = "PERMISSION_GRANTED"
	ActionPermissionModified        ActionType = "PERMISSION_MODIFIED"
	ActionPermissionRevoked         ActionType = "PERMISSION_REVOKED"
	ActionPermissionRequested       ActionType = "PERMISSION_REQUESTED"
	ActionPermissionRequestApproved ActionType = "PERMISSION_REQUEST_APPROVED"
	ActionPermissionRequestDenied   ActionType = "PERMISSION_REQUEST_DENIED"
	ActionPermissionRequestCanceled ActionType = "PERMISSION_REQUEST_CANCELLED"
	ActionAccountViewed             ActionType = "ACCOUNT_VIEWED"
	ActionAccountModified           ActionType = "ACCOUNT_MODIFIED"
	ActionTransactionAdded          ActionType = "TRANSACTION_ADDED"
	ActionTransactionModified       ActionType = "TRANSACTION_MODIFIED"
	ActionTransactionDeleted        ActionType = "TRANSACTION_DELETED"
)

var knownActions = map[ActionType]struct{}{
	ActionPermissionGranted:         {},
	ActionPermissionModified:        {},
	ActionPermissionRevoked:         {},
	ActionPermissionRequested:       {},
	ActionPermissionRequestApproved: {},
	ActionPermissionRequestDenied:   {},
	ActionPermissionRequestCanceled: {},
	ActionAccountViewed:             {},
	ActionAccountModified:           {},
	ActionTransactionAdded:          {},
	ActionTransactionModified:       {},
	ActionTransactionDeleted:        {},
}

// Valid reports whether a is a member of the closed set.
func (a ActionType) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// ParseAction parses an optional action filter value.
func ParseAction(raw string) (ActionType, error) {
	a := ActionType(raw)
	if raw == "" || a.Valid() {
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q: %w", raw, shared.ErrInvalidRequest)
}

// Package access decides whether a user may act on an account. The predicates in
// this file are pure; Evaluator feeds them from the stores.
package access

import (
	"github.com/fundshare/fundshare/internal/accounts"
	"github.com/fundshare/fundshare/internal/permissions"
)

// IsOwner reports an exact identity match on the account owner.
func IsOwner(acc accounts.Account, userID int64) bool {
	return acc.IsOwner(userID)
}

// EffectiveLevel returns the level user holds on acc given their stored grant
// level (LevelNone when there is no grant). Owners always hold FullAccess.
// Grants on an account that is not shared are retained but inactive.
func EffectiveLevel(acc accounts.Account, userID int64, granted permissions.Level) permissions.Level {
	if IsOwner(acc, userID) {
		return permissions.FullAccess
	}
	if !acc.Shared || !granted.Valid() {
		return permissions.LevelNone
	}
	return granted
}

// HasAnyAccess reports whether user is the owner or holds an active grant.
func HasAnyAccess(acc accounts.Account, userID int64, granted permissions.Level) bool {
	return EffectiveLevel(acc, userID, granted) != permissions.LevelNone
}

// HasCapability reports whether user may perform actions of class c.
func HasCapability(acc accounts.Account, userID int64, granted permissions.Level, c permissions.Capability) bool {
	if IsOwner(acc, userID) {
		return true
	}
	return EffectiveLevel(acc, userID, granted).Allows(c)
}

// CanManagePermissions reports whether user may grant, modify or revoke access.
// Only the owner can, whether or not the account is shared yet.
func CanManagePermissions(acc accounts.Account, userID int64) bool {
	return IsOwner(acc, userID)
}

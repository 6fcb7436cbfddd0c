// Package permissions defines the graded permission levels an account owner can
// hand out and the capabilities they unlock.
package permissions

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Level is an ordered permission grade. The zero value means "no level".
type Level int

const (
	// LevelNone is the absence of any grant.
	LevelNone Level = 0
	// ViewOnly allows reading the account.
	ViewOnly Level = 1
	// TransactionOnly allows reading and managing transactions.
	TransactionOnly Level = 2
	// FullAccess allows modifying the account itself. It never implies ownership.
	FullAccess Level = 3
)

var levelNames = map[Level]string{
	ViewOnly:        "VIEW_ONLY",
	TransactionOnly: "TRANSACTION_ONLY",
	FullAccess:      "FULL_ACCESS",
}

// Levels lists every grantable level in ascending order.
func Levels() []Level {
	return []Level{ViewOnly, TransactionOnly, FullAccess}
}

// Valid reports whether l is one of the grantable levels.
func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

// Includes reports whether l grants at least as much as other.
func (l Level) Includes(other Level) bool {
	return l >= other
}

// CanView reports whether l allows reading the account.
func (l Level) CanView() bool {
	return l.Valid() && l.Includes(ViewOnly)
}

// CanManageTransactions reports whether l allows transaction management.
func (l Level) CanManageTransactions() bool {
	return l.Valid() && l.Includes(TransactionOnly)
}

// CanModifyAccount reports whether l allows account modification.
func (l Level) CanModifyAccount() bool {
	return l.Valid() && l.Includes(FullAccess)
}

// String returns the canonical upper-case name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	if l == LevelNone {
		return "NONE"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel parses the canonical name, case-insensitively.
func ParseLevel(raw string) (Level, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	for level, name := range levelNames {
		if name == normalized {
			return level, nil
		}
	}
	return LevelNone, fmt.Errorf("permissions: unknown level %q", raw)
}

// MarshalJSON encodes the level by name.
func (l Level) MarshalJSON() ([]byte, error) {
	if l == LevelNone {
		return []byte("null"), nil
	}
	if !l.Valid() {
		return nil, fmt.Errorf("permissions: cannot encode %s", l)
	}
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a level name.
func (l *Level) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = LevelNone
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseLevel(raw)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

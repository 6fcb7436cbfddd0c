package permissions

import (
	"fmt"
	"strings"
)

// Capability is the abstract action class being authorized.
type Capability string

const (
	// CapabilityView covers reading the account and its transactions.
	CapabilityView Capability = "VIEW"
	// CapabilityTransaction covers adding, editing and deleting transactions.
	CapabilityTransaction Capability = "TRANSACTION"
	// CapabilityFull covers modifying the account.
	CapabilityFull Capability = "FULL"
)

// Threshold returns the minimum level that unlocks c.
func (c Capability) Threshold() (Level, error) {
	switch c {
	case CapabilityView:
		return ViewOnly, nil
	case CapabilityTransaction:
		return TransactionOnly, nil
	case CapabilityFull:
		return FullAccess, nil
	default:
		return LevelNone, fmt.Errorf("permissions: unknown capability %q", string(c))
	}
}

// ParseCapability parses a capability name.
func ParseCapability(raw string) (Capability, error) {
	c := Capability(strings.ToUpper(strings.TrimSpace(raw)))
	if _, err := c.Threshold(); err != nil {
		return "", err
	}
	return c, nil
}

// Allows reports whether a grant at level l unlocks capability c.
func (l Level) Allows(c Capability) bool {
	threshold, err := c.Threshold()
	if err != nil || !l.Valid() {
		return false
	}
	return l.Includes(threshold)
}

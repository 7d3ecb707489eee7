package entities

import (
	"fmt"
	"strings"
)

// DeviceFamily groups network operating systems sharing prompt, paging and
// escalation conventions.
type DeviceFamily string

const (
	FamilyGenericLine        DeviceFamily = "generic-line"
	FamilyPrivilegedEscalate DeviceFamily = "privileged-escalation-required"
	FamilyUnknown            DeviceFamily = "unknown"
)

// Families lists every valid family in display order.
func Families() []DeviceFamily {
	return []DeviceFamily{FamilyGenericLine, FamilyPrivilegedEscalate, FamilyUnknown}
}

// ParseFamily normalizes a family name. Empty input is FamilyUnknown.
func ParseFamily(s string) (DeviceFamily, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return FamilyUnknown, nil
	}
	for _, f := range Families() {
		if string(f) == normalized {
			return f, nil
		}
	}
	return "", fmt.Errorf("device family %q is invalid, must be one of %s, %s or %s",
		s, FamilyGenericLine, FamilyPrivilegedEscalate, FamilyUnknown)
}

// Known reports whether the family has its own prompt table.
func (f DeviceFamily) Known() bool {
	return f == FamilyGenericLine || f == FamilyPrivilegedEscalate
}

// RequiresEscalation reports whether sessions of this family enter privileged mode.
func (f DeviceFamily) RequiresEscalation() bool {
	return f == FamilyPrivilegedEscalate
}

func (f DeviceFamily) String() string {
	if f == "" {
		return string(FamilyUnknown)
	}
	return string(f)
}

package enums

import "fmt"

// VariantStatus tracks the lifecycle of a serialized inventory unit.
type VariantStatus string

const (
	// VariantStatusAvailable is the zero state of an unassigned unit.
	VariantStatusAvailable VariantStatus = "available"
	VariantStatusAssigned  VariantStatus = "assigned"
	VariantStatusActive    VariantStatus = "active"
	VariantStatusSuspended VariantStatus = "suspended"
	VariantStatusReplaced  VariantStatus = "replaced"
	VariantStatusSold      VariantStatus = "sold"
	VariantStatusDefective VariantStatus = "defective"
)

var validVariantStatuses = []VariantStatus{
	VariantStatusAvailable,
	VariantStatusAssigned,
	VariantStatusActive,
	VariantStatusSuspended,
	VariantStatusReplaced,
	VariantStatusSold,
	VariantStatusDefective,
}

// variantStatusTransitions enumerates every legal status move. Statuses
// absent from the map (sold, replaced) are terminal.
var variantStatusTransitions = map[VariantStatus][]VariantStatus{
	VariantStatusAvailable: {VariantStatusAssigned, VariantStatusSold, VariantStatusDefective},
	VariantStatusAssigned:  {VariantStatusActive, VariantStatusSuspended, VariantStatusReplaced, VariantStatusSold, VariantStatusDefective},
	VariantStatusActive:    {VariantStatusSuspended, VariantStatusReplaced, VariantStatusSold, VariantStatusDefective},
	VariantStatusSuspended: {VariantStatusActive, VariantStatusReplaced, VariantStatusDefective},
	VariantStatusDefective: {VariantStatusReplaced},
}

// String implements fmt.Stringer.
func (v VariantStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VariantStatus.
func (v VariantStatus) IsValid() bool {
	for _, candidate := range validVariantStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (v VariantStatus) IsTerminal() bool {
	_, ok := variantStatusTransitions[v]
	return !ok && v.IsValid()
}

// CanTransitionTo reports whether moving from v to next is legal.
func (v VariantStatus) CanTransitionTo(next VariantStatus) bool {
	for _, candidate := range variantStatusTransitions[v] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseVariantStatus converts raw input into a VariantStatus.
func ParseVariantStatus(value string) (VariantStatus, error) {
	for _, candidate := range validVariantStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid variant status %q", value)
}

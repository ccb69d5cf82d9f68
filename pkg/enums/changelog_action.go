package enums

import "fmt"

// ChangelogAction labels an append-only audit entry on a variant.
// Lifecycle reasons such as "membership_cancelled" are recorded verbatim
// alongside these canonical actions, so IsValid is intentionally not the
// gate for persisting a row.
type ChangelogAction string

const (
	ChangelogActionAssign     ChangelogAction = "ASSIGN"
	ChangelogActionSuspend    ChangelogAction = "SUSPEND"
	ChangelogActionReactivate ChangelogAction = "REACTIVATE"
	ChangelogActionReplace    ChangelogAction = "REPLACE"
	ChangelogActionUpdate     ChangelogAction = "UPDATE"
	ChangelogActionSell       ChangelogAction = "SELL"
)

var validChangelogActions = []ChangelogAction{
	ChangelogActionAssign,
	ChangelogActionSuspend,
	ChangelogActionReactivate,
	ChangelogActionReplace,
	ChangelogActionUpdate,
	ChangelogActionSell,
}

// String implements fmt.Stringer.
func (c ChangelogAction) String() string {
	return string(c)
}

// IsValid reports whether the value is a canonical ChangelogAction.
func (c ChangelogAction) IsValid() bool {
	for _, candidate := range validChangelogActions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChangelogAction converts raw input into a ChangelogAction.
func ParseChangelogAction(value string) (ChangelogAction, error) {
	for _, candidate := range validChangelogActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid changelog action %q", value)
}

package enums

import "fmt"

// MembershipStatus mirrors the CRM's membership lifecycle states.
type MembershipStatus string

const (
	MembershipStatusNew       MembershipStatus = "new"
	MembershipStatusCurrent   MembershipStatus = "current"
	MembershipStatusPending   MembershipStatus = "pending"
	MembershipStatusCancelled MembershipStatus = "cancelled"
	MembershipStatusExpired   MembershipStatus = "expired"
	MembershipStatusDeceased  MembershipStatus = "deceased"
)

var validMembershipStatuses = []MembershipStatus{
	MembershipStatusNew,
	MembershipStatusCurrent,
	MembershipStatusPending,
	MembershipStatusCancelled,
	MembershipStatusExpired,
	MembershipStatusDeceased,
}

// String implements fmt.Stringer.
func (m MembershipStatus) String() string {
	return string(m)
}

// IsValid reports whether the value matches a known MembershipStatus.
func (m MembershipStatus) IsValid() bool {
	for _, candidate := range validMembershipStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMembershipStatus converts raw input into a MembershipStatus.
func ParseMembershipStatus(value string) (MembershipStatus, error) {
	for _, candidate := range validMembershipStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid membership status %q", value)
}

package integration

import "github.com/google/uuid"

// MembershipCreatedEvent is emitted by the host CRM when a membership is
// created. ProductID optionally requests an explicit unit assignment.
type MembershipCreatedEvent struct {
	MembershipID     int64
	ContactID        int64
	MembershipTypeID int64
	ContributionID   *int64
	ProductID        *uuid.UUID
	PhoneNumber      *string
}

// MembershipStatusChangedEvent is emitted when a membership moves to a
// new host status (new, current, cancelled, expired, deceased, pending).
type MembershipStatusChangedEvent struct {
	MembershipID   int64
	ContactID      int64
	Status         string
	ContributionID *int64
}

// ContributionCompletedEvent is emitted when a host contribution settles.
type ContributionCompletedEvent struct {
	ContributionID int64
	ContactID      int64
}

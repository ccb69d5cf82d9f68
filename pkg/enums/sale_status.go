package enums

import "fmt"

// SaleStatus tracks the lifecycle of a sales order.
type SaleStatus string

const (
	SaleStatusPlaced     SaleStatus = "placed"
	SaleStatusProcessing SaleStatus = "processing"
	SaleStatusShipped    SaleStatus = "shipped"
	SaleStatusCompleted  SaleStatus = "completed"
	SaleStatusCancelled  SaleStatus = "cancelled"
	// SaleStatusRenewal marks bookkeeping orders created on membership
	// renewal. They never enter the fulfillment pipeline.
	SaleStatusRenewal SaleStatus = "renewal"
)

var validSaleStatuses = []SaleStatus{
	SaleStatusPlaced,
	SaleStatusProcessing,
	SaleStatusShipped,
	SaleStatusCompleted,
	SaleStatusCancelled,
	SaleStatusRenewal,
}

var saleStatusTransitions = map[SaleStatus][]SaleStatus{
	SaleStatusPlaced:     {SaleStatusProcessing, SaleStatusShipped, SaleStatusCompleted, SaleStatusCancelled},
	SaleStatusProcessing: {SaleStatusShipped, SaleStatusCompleted, SaleStatusCancelled},
	SaleStatusShipped:    {SaleStatusCompleted},
	SaleStatusRenewal:    {SaleStatusCompleted, SaleStatusCancelled},
}

// String implements fmt.Stringer.
func (s SaleStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleStatus.
func (s SaleStatus) IsValid() bool {
	for _, candidate := range validSaleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s SaleStatus) CanTransitionTo(next SaleStatus) bool {
	for _, candidate := range saleStatusTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseSaleStatus converts raw input into a SaleStatus.
func ParseSaleStatus(value string) (SaleStatus, error) {
	for _, candidate := range validSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}

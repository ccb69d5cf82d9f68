package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/memberstock-backend/pkg/enums"
)

// Sale is an order header. ContactID, ContributionID and MembershipID
// reference host CRM records.
type Sale struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code               string           `gorm:"column:code;not null;uniqueIndex"`
	ContactID          int64            `gorm:"column:contact_id;not null;index"`
	ContributionID     *int64           `gorm:"column:contribution_id;index"`
	MembershipID       *int64           `gorm:"column:membership_id;index"`
	Status             enums.SaleStatus `gorm:"column:status;not null;default:'placed'"`
	IsPaid             bool             `gorm:"column:is_paid;not null;default:false"`
	IsFulfilled        bool             `gorm:"column:is_fulfilled;not null;default:false"`
	IsShippingRequired bool             `gorm:"column:is_shipping_required;not null;default:false"`
	NeedsAssignment    bool             `gorm:"column:needs_assignment;not null;default:false"`
	HasAssignment      bool             `gorm:"column:has_assignment;not null;default:false"`
	SaleDate           time.Time        `gorm:"column:sale_date;not null"`
	Details            []SaleDetail     `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

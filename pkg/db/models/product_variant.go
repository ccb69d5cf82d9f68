package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/memberstock-backend/pkg/enums"
)

// ProductVariant is one serialized, assignable unit of a product.
// ContactID and MembershipID reference host CRM records; a variant with
// both nil and no sale attached is in the assignable pool.
type ProductVariant struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID           uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	ContactID           *int64              `gorm:"column:contact_id;index"`
	MembershipID        *int64              `gorm:"column:membership_id;index"`
	SaleID              *uuid.UUID          `gorm:"column:sale_id;type:uuid"`
	UniqueID            string              `gorm:"column:unique_id;not null;uniqueIndex"`
	PhoneNumber         *string             `gorm:"column:phone_number"`
	Details             *string             `gorm:"column:details"`
	Status              enums.VariantStatus `gorm:"column:status;not null;default:'available'"`
	ReplacedByVariantID *uuid.UUID          `gorm:"column:replaced_by_variant_id;type:uuid"`
	ReplacedVariantID   *uuid.UUID          `gorm:"column:replaced_variant_id;type:uuid"`
	WarrantyStartDate   *time.Time          `gorm:"column:warranty_start_date"`
	WarrantyEndDate     *time.Time          `gorm:"column:warranty_end_date"`
	IsActive            bool                `gorm:"column:is_active;not null;default:true"`
	IsPrimary           bool                `gorm:"column:is_primary;not null;default:false"`
	IsSuspended         bool                `gorm:"column:is_suspended;not null;default:false"`
	IsProblem           bool                `gorm:"column:is_problem;not null;default:false"`
	IsReplaced          bool                `gorm:"column:is_replaced;not null;default:false"`
	ReplacedDate        *time.Time          `gorm:"column:replaced_date"`
	Product             *Product            `gorm:"foreignKey:ProductID"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

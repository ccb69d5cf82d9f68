package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/memberstock-backend/pkg/enums"
)

// SaleDetail is a sale line item. ProductTitle, Subtitle and
// PurchasePrice are snapshots taken at sale time so later catalog edits
// never rewrite history.
type SaleDetail struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID         uuid.UUID            `gorm:"column:sale_id;type:uuid;not null;index"`
	VariantID      *uuid.UUID           `gorm:"column:variant_id;type:uuid"`
	WarehouseID    *uuid.UUID           `gorm:"column:warehouse_id;type:uuid"`
	Quantity       int                  `gorm:"column:quantity;not null;default:1"`
	PurchasePrice  decimal.Decimal      `gorm:"column:purchase_price;type:numeric(12,2);not null"`
	ProductTitle   string               `gorm:"column:product_title;not null"`
	Subtitle       *string              `gorm:"column:subtitle"`
	LineType       enums.SaleDetailType `gorm:"column:line_type;not null;default:'device'"`
	MembershipID   *int64               `gorm:"column:membership_id"`
	ContributionID *int64               `gorm:"column:contribution_id"`
	Variant        *ProductVariant      `gorm:"foreignKey:VariantID"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}

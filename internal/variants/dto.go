package variants

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/memberstock-backend/pkg/db/models"
	"github.com/angelmondragon/memberstock-backend/pkg/enums"
)

// VariantDTO is the read model for a serialized unit.
type VariantDTO struct {
	ID                  uuid.UUID           `json:"id"`
	ProductID           uuid.UUID           `json:"product_id"`
	ProductLabel        *string             `json:"product_label,omitempty"`
	ProductCode         *string             `json:"product_code,omitempty"`
	ContactID           *int64              `json:"contact_id,omitempty"`
	MembershipID        *int64              `json:"membership_id,omitempty"`
	SaleID              *uuid.UUID          `json:"sale_id,omitempty"`
	UniqueID            string              `json:"unique_id"`
	PhoneNumber         *string             `json:"phone_number,omitempty"`
	Details             *string             `json:"details,omitempty"`
	Status              enums.VariantStatus `json:"status"`
	ReplacedByVariantID *uuid.UUID          `json:"replaced_by_variant_id,omitempty"`
	ReplacedVariantID   *uuid.UUID          `json:"replaced_variant_id,omitempty"`
	WarrantyStartDate   *time.Time          `json:"warranty_start_date,omitempty"`
	WarrantyEndDate     *time.Time          `json:"warranty_end_date,omitempty"`
	IsActive            bool                `json:"is_active"`
	IsPrimary           bool                `json:"is_primary"`
	IsSuspended         bool                `json:"is_suspended"`
	IsProblem           bool                `json:"is_problem"`
	IsReplaced          bool                `json:"is_replaced"`
	ReplacedDate        *time.Time          `json:"replaced_date,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// NewVariantDTO maps the model plus its optional product preload.
func NewVariantDTO(variant *models.ProductVariant) *VariantDTO {
	if variant == nil {
		return nil
	}
	dto := &VariantDTO{
		ID:                  variant.ID,
		ProductID:           variant.ProductID,
		ContactID:           variant.ContactID,
		MembershipID:        variant.MembershipID,
		SaleID:              variant.SaleID,
		UniqueID:            variant.UniqueID,
		PhoneNumber:         variant.PhoneNumber,
		Details:             variant.Details,
		Status:              variant.Status,
		ReplacedByVariantID: variant.ReplacedByVariantID,
		ReplacedVariantID:   variant.ReplacedVariantID,
		WarrantyStartDate:   variant.WarrantyStartDate,
		WarrantyEndDate:     variant.WarrantyEndDate,
		IsActive:            variant.IsActive,
		IsPrimary:           variant.IsPrimary,
		IsSuspended:         variant.IsSuspended,
		IsProblem:           variant.IsProblem,
		IsReplaced:          variant.IsReplaced,
		ReplacedDate:        variant.ReplacedDate,
		CreatedAt:           variant.CreatedAt,
		UpdatedAt:           variant.UpdatedAt,
	}
	if variant.Product != nil {
		label := variant.Product.Label
		code := variant.Product.Code
		dto.ProductLabel = &label
		dto.ProductCode = &code
	}
	return dto
}

// CreateVariantInput holds the validated payload to register a unit.
type CreateVariantInput struct {
	ProductID         uuid.UUID
	UniqueID          string
	PhoneNumber       *string
	Details           *string
	WarrantyStartDate *time.Time
	WarrantyEndDate   *time.Time
	IsPrimary         bool
}

// UpdateVariantInput holds optional mutation values for a unit.
type UpdateVariantInput struct {
	PhoneNumber       *string
	Details           *string
	WarrantyStartDate *time.Time
	WarrantyEndDate   *time.Time
	IsPrimary         *bool
	IsProblem         *bool
}

// AssignOptions carries optional attributes applied when a unit is claimed.
type AssignOptions struct {
	PhoneNumber       *string
	WarrantyStartDate *time.Time
}

// ReplaceInput configures a unit swap. When NewVariantID is nil the
// replacement is claimed from the product's available pool.
type ReplaceInput struct {
	NewVariantID *uuid.UUID
	IsWarranty   bool
	Source       *string
}

// ReplacementDTO is the read model for a completed swap.
type ReplacementDTO struct {
	ID           uuid.UUID  `json:"id"`
	ContactID    int64      `json:"contact_id"`
	OldVariantID uuid.UUID  `json:"old_variant_id"`
	NewVariantID uuid.UUID  `json:"new_variant_id"`
	IsWarranty   bool       `json:"is_warranty"`
	Source       *string    `json:"source,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	NewVariant   *VariantDTO `json:"new_variant,omitempty"`
}

// ChangelogEntryDTO is the read model for one audit row.
type ChangelogEntryDTO struct {
	ID        uuid.UUID  `json:"id"`
	VariantID uuid.UUID  `json:"variant_id"`
	Action    string     `json:"action"`
	BatchID   *uuid.UUID `json:"batch_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// BatchStatusResult reports a bulk status update.
type BatchStatusResult struct {
	BatchID uuid.UUID   `json:"batch_id"`
	Updated []uuid.UUID `json:"updated"`
	Skipped []uuid.UUID `json:"skipped"`
}

package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/memberstock-backend/pkg/db/models"
	"github.com/angelmondragon/memberstock-backend/pkg/enums"
	"github.com/angelmondragon/memberstock-backend/pkg/pagination"
)

// SaleDTO is the order header read model.
type SaleDTO struct {
	ID                 uuid.UUID        `json:"id"`
	Code               string           `json:"code"`
	ContactID          int64            `json:"contact_id"`
	ContributionID     *int64           `json:"contribution_id,omitempty"`
	MembershipID       *int64           `json:"membership_id,omitempty"`
	Status             enums.SaleStatus `json:"status"`
	IsPaid             bool             `json:"is_paid"`
	IsFulfilled        bool             `json:"is_fulfilled"`
	IsShippingRequired bool             `json:"is_shipping_required"`
	NeedsAssignment    bool             `json:"needs_assignment"`
	HasAssignment      bool             `json:"has_assignment"`
	SaleDate           time.Time        `json:"sale_date"`
	Details            []SaleDetailDTO  `json:"details,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// SaleDetailDTO is the line item read model.
type SaleDetailDTO struct {
	ID              uuid.UUID            `json:"id"`
	SaleID          uuid.UUID            `json:"sale_id"`
	VariantID       *uuid.UUID           `json:"variant_id,omitempty"`
	VariantUniqueID *string              `json:"variant_unique_id,omitempty"`
	WarehouseID     *uuid.UUID           `json:"warehouse_id,omitempty"`
	Quantity        int                  `json:"quantity"`
	PurchasePrice   decimal.Decimal      `json:"purchase_price"`
	ProductTitle    string               `json:"product_title"`
	Subtitle        *string              `json:"subtitle,omitempty"`
	LineType        enums.SaleDetailType `json:"line_type"`
	MembershipID    *int64               `json:"membership_id,omitempty"`
	ContributionID  *int64               `json:"contribution_id,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// NewSaleDTO maps the model plus any preloaded details.
func NewSaleDTO(sale *models.Sale) *SaleDTO {
	if sale == nil {
		return nil
	}
	dto := &SaleDTO{
		ID:                 sale.ID,
		Code:               sale.Code,
		ContactID:          sale.ContactID,
		ContributionID:     sale.ContributionID,
		MembershipID:       sale.MembershipID,
		Status:             sale.Status,
		IsPaid:             sale.IsPaid,
		IsFulfilled:        sale.IsFulfilled,
		IsShippingRequired: sale.IsShippingRequired,
		NeedsAssignment:    sale.NeedsAssignment,
		HasAssignment:      sale.HasAssignment,
		SaleDate:           sale.SaleDate,
		CreatedAt:          sale.CreatedAt,
		UpdatedAt:          sale.UpdatedAt,
	}
	for i := range sale.Details {
		dto.Details = append(dto.Details, newSaleDetailDTO(&sale.Details[i]))
	}
	return dto
}

func newSaleDetailDTO(detail *models.SaleDetail) SaleDetailDTO {
	dto := SaleDetailDTO{
		ID:             detail.ID,
		SaleID:         detail.SaleID,
		VariantID:      detail.VariantID,
		WarehouseID:    detail.WarehouseID,
		Quantity:       detail.Quantity,
		PurchasePrice:  detail.PurchasePrice,
		ProductTitle:   detail.ProductTitle,
		Subtitle:       detail.Subtitle,
		LineType:       detail.LineType,
		MembershipID:   detail.MembershipID,
		ContributionID: detail.ContributionID,
		CreatedAt:      detail.CreatedAt,
	}
	if detail.Variant != nil {
		uniqueID := detail.Variant.UniqueID
		dto.VariantUniqueID = &uniqueID
	}
	return dto
}

// CreateSaleInput holds the validated payload to open an order.
type CreateSaleInput struct {
	ContactID          int64
	ContributionID     *int64
	MembershipID       *int64
	IsShippingRequired bool
	NeedsAssignment    bool
	Status             enums.SaleStatus
	Lines              []SaleLineInput
}

// SaleLineInput captures one line item snapshot at order time.
type SaleLineInput struct {
	VariantID      *uuid.UUID
	WarehouseID    *uuid.UUID
	Quantity       int
	Price          decimal.Decimal
	Title          string
	Subtitle       *string
	LineType       enums.SaleDetailType
	ContributionID *int64
}

// AssignmentInput pairs a line item with the unit fulfilling it.
type AssignmentInput struct {
	SaleDetailID uuid.UUID
	VariantID    uuid.UUID
}

// NeedingAssignmentRow is one entry in the fulfillment queue.
type NeedingAssignmentRow struct {
	ID        uuid.UUID        `json:"id"`
	Code      string           `json:"code"`
	ContactID int64            `json:"contact_id"`
	SaleDate  time.Time        `json:"sale_date"`
	Status    enums.SaleStatus `json:"status"`
	ItemCount int              `json:"item_count"`
}

// Statistics summarizes sales over a period.
type Statistics struct {
	Period         enums.StatsPeriod `json:"period"`
	TotalSales     int               `json:"total_sales"`
	CompletedSales int               `json:"completed_sales"`
	ShippedSales   int               `json:"shipped_sales"`
	PendingSales   int               `json:"pending_sales"`
	TotalValue     decimal.Decimal   `json:"total_value"`
}

// ListSalesInput bundles filters with pagination.
type ListSalesInput struct {
	Pagination pagination.Params
	ContactID  *int64
	Status     *enums.SaleStatus
}

// SaleListResult is one page of order headers.
type SaleListResult struct {
	Sales      []SaleDTO `json:"sales"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/memberstock-backend/pkg/db/models"
	"github.com/angelmondragon/memberstock-backend/pkg/enums"
	"github.com/angelmondragon/memberstock-backend/pkg/pagination"
)

// ProductDTO is the catalog read model returned by the service.
type ProductDTO struct {
	ID                uuid.UUID       `json:"id"`
	Label             string          `json:"label"`
	Code              string          `json:"code"`
	Description       *string         `json:"description,omitempty"`
	Brand             *string         `json:"brand,omitempty"`
	CategoryID        *uuid.UUID      `json:"category_id,omitempty"`
	CategoryTitle     *string         `json:"category_title,omitempty"`
	WarehouseID       *uuid.UUID      `json:"warehouse_id,omitempty"`
	WarehouseName     *string         `json:"warehouse_name,omitempty"`
	ListedPrice       decimal.Decimal `json:"listed_price"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	QuantityAvailable int             `json:"quantity_available"`
	MinimumStockLevel int             `json:"minimum_stock_level"`
	MaximumStockLevel int             `json:"maximum_stock_level"`
	ReorderPoint      int             `json:"reorder_point"`
	UOM               *string         `json:"uom,omitempty"`
	PackedWeight      *float64        `json:"packed_weight,omitempty"`
	PackedHeight      *float64        `json:"packed_height,omitempty"`
	PackedWidth       *float64        `json:"packed_width,omitempty"`
	PackedDepth       *float64        `json:"packed_depth,omitempty"`
	IsSerialized      bool            `json:"is_serialized"`
	IsDiscontinued    bool            `json:"is_discontinued"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewProductDTO maps the model plus preloaded associations.
func NewProductDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:                product.ID,
		Label:             product.Label,
		Code:              product.Code,
		Description:       product.Description,
		Brand:             product.Brand,
		CategoryID:        product.CategoryID,
		WarehouseID:       product.WarehouseID,
		ListedPrice:       product.ListedPrice,
		CurrentPrice:      product.CurrentPrice,
		QuantityAvailable: product.QuantityAvailable,
		MinimumStockLevel: product.MinimumStockLevel,
		MaximumStockLevel: product.MaximumStockLevel,
		ReorderPoint:      product.ReorderPoint,
		UOM:               product.UOM,
		PackedWeight:      product.PackedWeight,
		PackedHeight:      product.PackedHeight,
		PackedWidth:       product.PackedWidth,
		PackedDepth:       product.PackedDepth,
		IsSerialized:      product.IsSerialized,
		IsDiscontinued:    product.IsDiscontinued,
		IsActive:          product.IsActive,
		CreatedAt:         product.CreatedAt,
		UpdatedAt:         product.UpdatedAt,
	}
	if product.Category != nil {
		title := product.Category.Title
		dto.CategoryTitle = &title
	}
	if product.Warehouse != nil {
		name := product.Warehouse.Name
		dto.WarehouseName = &name
	}
	return dto
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Label             string
	Code              string
	Description       *string
	Brand             *string
	CategoryID        *uuid.UUID
	WarehouseID       *uuid.UUID
	ListedPrice       decimal.Decimal
	CurrentPrice      decimal.Decimal
	QuantityAvailable int
	MinimumStockLevel int
	MaximumStockLevel int
	ReorderPoint      int
	UOM               *string
	PackedWeight      *float64
	PackedHeight      *float64
	PackedWidth       *float64
	PackedDepth       *float64
	IsSerialized      bool
	IsActive          bool
	MembershipTypes   []MembershipTypeInput
}

// MembershipTypeInput links the product to a host membership type.
type MembershipTypeInput struct {
	MembershipTypeID    int64
	IsSerializedForType bool
	AutoAssign          bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Label             *string
	Code              *string
	Description       *string
	Brand             *string
	CategoryID        *uuid.UUID
	WarehouseID       *uuid.UUID
	ListedPrice       *decimal.Decimal
	CurrentPrice      *decimal.Decimal
	QuantityAvailable *int
	MinimumStockLevel *int
	MaximumStockLevel *int
	ReorderPoint      *int
	UOM               *string
	PackedWeight      *float64
	PackedHeight      *float64
	PackedWidth       *float64
	PackedDepth       *float64
	IsSerialized      *bool
	IsDiscontinued    *bool
	IsActive          *bool
	MembershipTypes   *[]MembershipTypeInput
}

// ProductListFilters narrows the catalog listing.
type ProductListFilters struct {
	Query            string
	CategoryID       *uuid.UUID
	WarehouseID      *uuid.UUID
	MembershipTypeID *int64
	IsSerialized     *bool
	IsActive         *bool
	IsDiscontinued   *bool
}

// ListProductsInput bundles filters with pagination.
type ListProductsInput struct {
	Pagination pagination.Params
	Filters    ProductListFilters
}

// ProductListResult is one page of catalog summaries.
type ProductListResult struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// ProductSummary is the trimmed listing row.
type ProductSummary struct {
	ID                uuid.UUID       `json:"id"`
	Label             string          `json:"label"`
	Code              string          `json:"code"`
	Brand             *string         `json:"brand,omitempty"`
	CategoryTitle     *string         `json:"category_title,omitempty"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	QuantityAvailable int             `json:"quantity_available"`
	IsSerialized      bool            `json:"is_serialized"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func toSummaries(rows []models.Product) []ProductSummary {
	summaries := make([]ProductSummary, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		summaries = append(summaries, ProductSummary{
			ID:                row.ID,
			Label:             row.Label,
			Code:              row.Code,
			Brand:             row.Brand,
			CurrentPrice:      row.CurrentPrice,
			QuantityAvailable: row.QuantityAvailable,
			IsSerialized:      row.IsSerialized,
			IsActive:          row.IsActive,
			CreatedAt:         row.CreatedAt,
			UpdatedAt:         row.UpdatedAt,
		})
	}
	return summaries
}

// InventoryStatus is the stock report for one product.
type InventoryStatus struct {
	ProductID         uuid.UUID         `json:"product_id"`
	Label             string            `json:"label"`
	Code              string            `json:"code"`
	Status            enums.StockStatus `json:"status"`
	QuantityAvailable int               `json:"quantity_available"`
	MinimumStockLevel int               `json:"minimum_stock_level"`
	MaximumStockLevel int               `json:"maximum_stock_level"`
	ReorderPoint      int               `json:"reorder_point"`
	NeedsReorder      bool              `json:"needs_reorder"`
	VariantsAvailable int               `json:"variants_available"`
	VariantsAssigned  int               `json:"variants_assigned"`
}

// MembershipTypeMapping is the read model for a product/membership-type link.
type MembershipTypeMapping struct {
	ID                  uuid.UUID `json:"id"`
	ProductID           uuid.UUID `json:"product_id"`
	MembershipTypeID    int64     `json:"membership_type_id"`
	IsSerializedForType bool      `json:"is_serialized_for_type"`
	AutoAssign          bool      `json:"auto_assign"`
}

// NewMembershipTypeMapping maps the model row.
func NewMembershipTypeMapping(row models.ProductMembershipType) MembershipTypeMapping {
	return MembershipTypeMapping{
		ID:                  row.ID,
		ProductID:           row.ProductID,
		MembershipTypeID:    row.MembershipTypeID,
		IsSerializedForType: row.IsSerializedForType,
		AutoAssign:          row.AutoAssign,
	}
}

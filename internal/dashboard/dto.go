package dashboard

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/memberstock-backend/internal/products"
	"github.com/angelmondragon/memberstock-backend/internal/sales"
	"github.com/angelmondragon/memberstock-backend/internal/variants"
)

// ProductStats summarizes the catalog.
type ProductStats struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	Serialized   int `json:"serialized"`
	Discontinued int `json:"discontinued"`
}

// VariantStats counts serialized units per lifecycle status.
type VariantStats struct {
	Available int `json:"available"`
	Assigned  int `json:"assigned"`
	Active    int `json:"active"`
	Suspended int `json:"suspended"`
	Defective int `json:"defective"`
	Sold      int `json:"sold"`
	Replaced  int `json:"replaced"`
}

// WarehouseStats summarizes stock held per warehouse.
type WarehouseStats struct {
	WarehouseID   uuid.UUID `json:"warehouse_id"`
	WarehouseName string    `json:"warehouse_name"`
	ProductCount  int       `json:"product_count"`
	QuantityTotal int       `json:"quantity_total"`
}

// SalesOverview carries the rolling sales statistics windows.
type SalesOverview struct {
	Today sales.Statistics `json:"today"`
	Week  sales.Statistics `json:"week"`
	Month sales.Statistics `json:"month"`
}

// ChangelogEntry is one recent audit-trail row with unit context.
type ChangelogEntry struct {
	ID              uuid.UUID  `json:"id"`
	VariantID       uuid.UUID  `json:"variant_id"`
	VariantUniqueID string     `json:"variant_unique_id"`
	ProductLabel    string     `json:"product_label"`
	Action          string     `json:"action"`
	BatchID         *uuid.UUID `json:"batch_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Alerts lists the conditions an operator should act on.
type Alerts struct {
	ReorderNeeded          []products.InventoryStatus   `json:"reorder_needed"`
	ExpiringWarranties     []variants.VariantDTO        `json:"expiring_warranties"`
	DefectiveUnits         []variants.VariantDTO        `json:"defective_units"`
	SalesNeedingAssignment []sales.NeedingAssignmentRow `json:"sales_needing_assignment"`
}

// Dashboard is the aggregate admin landing payload.
type Dashboard struct {
	Products        ProductStats     `json:"products"`
	Variants        VariantStats     `json:"variants"`
	Sales           SalesOverview    `json:"sales"`
	Warehouses      []WarehouseStats `json:"warehouses"`
	RecentSales     []sales.SaleDTO  `json:"recent_sales"`
	RecentChangelog []ChangelogEntry `json:"recent_changelog"`
	Alerts          Alerts           `json:"alerts"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

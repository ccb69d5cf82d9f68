package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Serialized products track individual units
// as ProductVariant rows; non-serialized products only carry counts.
type Product struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Label             string           `gorm:"column:label;not null"`
	Code              string           `gorm:"column:code;not null;uniqueIndex"`
	Description       *string          `gorm:"column:description"`
	Brand             *string          `gorm:"column:brand"`
	CategoryID        *uuid.UUID       `gorm:"column:category_id;type:uuid"`
	WarehouseID       *uuid.UUID       `gorm:"column:warehouse_id;type:uuid"`
	ListedPrice       decimal.Decimal  `gorm:"column:listed_price;type:numeric(12,2);not null"`
	CurrentPrice      decimal.Decimal  `gorm:"column:current_price;type:numeric(12,2);not null"`
	QuantityAvailable int              `gorm:"column:quantity_available;not null;default:0"`
	MinimumStockLevel int              `gorm:"column:minimum_stock_level;not null;default:0"`
	MaximumStockLevel int              `gorm:"column:maximum_stock_level;not null;default:0"`
	ReorderPoint      int              `gorm:"column:reorder_point;not null;default:0"`
	UOM               *string          `gorm:"column:uom"`
	PackedWeight      *float64         `gorm:"column:packed_weight;type:numeric(10,2)"`
	PackedHeight      *float64         `gorm:"column:packed_height;type:numeric(10,2)"`
	PackedWidth       *float64         `gorm:"column:packed_width;type:numeric(10,2)"`
	PackedDepth       *float64         `gorm:"column:packed_depth;type:numeric(10,2)"`
	IsSerialized      bool             `gorm:"column:is_serialized;not null;default:false"`
	IsDiscontinued    bool             `gorm:"column:is_discontinued;not null;default:false"`
	IsActive          bool             `gorm:"column:is_active;not null;default:true"`
	Category          *ProductCategory `gorm:"foreignKey:CategoryID"`
	Warehouse         *Warehouse       `gorm:"foreignKey:WarehouseID"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

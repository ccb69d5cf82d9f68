package models

import (
	"time"

	"github.com/google/uuid"
)

// VariantReplacement records a unit swap for a contact, linking the
// retired unit to its successor.
type VariantReplacement struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ContactID    int64     `gorm:"column:contact_id;not null;index"`
	OldVariantID uuid.UUID `gorm:"column:old_variant_id;type:uuid;not null"`
	NewVariantID uuid.UUID `gorm:"column:new_variant_id;type:uuid;not null"`
	IsWarranty   bool      `gorm:"column:is_warranty;not null;default:false"`
	Source       *string   `gorm:"column:source"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

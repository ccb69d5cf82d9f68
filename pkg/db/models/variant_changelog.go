package models

import (
	"time"

	"github.com/google/uuid"
)

// VariantChangelog is an append-only audit entry for a variant. Action
// holds either a canonical enums.ChangelogAction or a lifecycle reason
// such as "membership_cancelled". BatchID groups entries written by a
// single bulk operation.
type VariantChangelog struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VariantID uuid.UUID  `gorm:"column:variant_id;type:uuid;not null;index"`
	Action    string     `gorm:"column:action;not null"`
	BatchID   *uuid.UUID `gorm:"column:batch_id;type:uuid;index"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

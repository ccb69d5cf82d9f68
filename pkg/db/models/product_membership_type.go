package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductMembershipType links a product to a CRM membership type. The
// membership type lives in the host CRM and is referenced by ID only.
type ProductMembershipType struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID           uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_membership_type"`
	MembershipTypeID    int64     `gorm:"column:membership_type_id;not null;uniqueIndex:idx_product_membership_type"`
	IsSerializedForType bool      `gorm:"column:is_serialized_for_type;not null;default:false"`
	AutoAssign          bool      `gorm:"column:auto_assign;not null;default:false"`
	Product             *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
}

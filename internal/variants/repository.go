package variants

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/memberstock-backend/pkg/db/models"
	"github.com/angelmondragon/memberstock-backend/pkg/enums"
)

// poolPredicate selects units still claimable: unowned, unsold, active.
const poolPredicate = "contact_id IS NULL AND sale_id IS NULL AND is_active = ? AND status = ?"

// Repository wires together variant persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the variant without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindByIDWithProduct loads the variant with its product preloaded.
func (r *Repository) FindByIDWithProduct(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).Preload("Product").First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindByUniqueID loads the variant carrying the given serial.
func (r *Repository) FindByUniqueID(ctx context.Context, uniqueID string) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "unique_id = ?", uniqueID).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// Create inserts a new variant row.
func (r *Repository) Create(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	if err := r.db.WithContext(ctx).Create(variant).Error; err != nil {
		return nil, err
	}
	return variant, nil
}

// Update saves an existing variant row.
func (r *Repository) Update(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	if err := r.db.WithContext(ctx).Save(variant).Error; err != nil {
		return nil, err
	}
	return variant, nil
}

// ListAvailable returns the product's claimable pool oldest first.
func (r *Repository) ListAvailable(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error) {
	var rows []models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Where(poolPredicate, true, enums.VariantStatusAvailable).
		Order("created_at ASC, id ASC").
		Find(&rows).
		Error
	return rows, err
}

// OldestAvailableID picks the next claim candidate for the product.
// gorm.ErrRecordNotFound signals pool exhaustion.
func (r *Repository) OldestAvailableID(ctx context.Context, productID uuid.UUID) (uuid.UUID, error) {
	var row struct{ ID uuid.UUID }
	err := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Select("id").
		Where("product_id = ?", productID).
		Where(poolPredicate, true, enums.VariantStatusAvailable).
		Order("created_at ASC, id ASC").
		Take(&row).
		Error
	if err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}

// ClaimFields carries the values written onto a variant by a claim.
type ClaimFields struct {
	ContactID         int64
	MembershipID      *int64
	PhoneNumber       *string
	WarrantyStartDate time.Time
	WarrantyEndDate   time.Time
	IsPrimary         bool
}

// Claim attempts to take the candidate out of the pool with one
// conditional update. A false return means another claimer won the race
// (or the unit left the pool) and the caller should pick a new candidate.
func (r *Repository) Claim(ctx context.Context, candidateID uuid.UUID, fields ClaimFields) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", candidateID).
		Where(poolPredicate, true, enums.VariantStatusAvailable).
		Updates(map[string]any{
			"contact_id":          fields.ContactID,
			"membership_id":       fields.MembershipID,
			"phone_number":        fields.PhoneNumber,
			"status":              enums.VariantStatusAssigned,
			"warranty_start_date": fields.WarrantyStartDate,
			"warranty_end_date":   fields.WarrantyEndDate,
			"is_primary":          fields.IsPrimary,
			"is_suspended":        false,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByMembership returns the membership's units, optionally only active ones.
func (r *Repository) ListByMembership(ctx context.Context, membershipID int64, activeOnly bool) ([]models.ProductVariant, error) {
	query := r.db.WithContext(ctx).Where("membership_id = ?", membershipID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var rows []models.ProductVariant
	err := query.Order("created_at DESC, id DESC").Find(&rows).Error
	return rows, err
}

// ListByContact returns the contact's units with products preloaded, newest first.
func (r *Repository) ListByContact(ctx context.Context, contactID int64) ([]models.ProductVariant, error) {
	var rows []models.ProductVariant
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("contact_id = ?", contactID).
		Order("created_at DESC, id DESC").
		Find(&rows).
		Error
	return rows, err
}

// CountByContact counts the contact's units.
func (r *Repository) CountByContact(ctx context.Context, contactID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("contact_id = ?", contactID).
		Count(&count).
		Error
	return count, err
}

// ListProblem returns active units flagged defective or problematic.
func (r *Repository) ListProblem(ctx context.Context) ([]models.ProductVariant, error) {
	var rows []models.ProductVariant
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("is_active = ?", true).
		Where("is_problem = ? OR status = ?", true, enums.VariantStatusDefective).
		Order("updated_at DESC").
		Find(&rows).
		Error
	return rows, err
}

// ListExpiringWarranties returns assigned units whose warranty lapses
// inside the window.
func (r *Repository) ListExpiringWarranties(ctx context.Context, from, to time.Time) ([]models.ProductVariant, error) {
	var rows []models.ProductVariant
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("is_active = ? AND contact_id IS NOT NULL", true).
		Where("warranty_end_date IS NOT NULL AND warranty_end_date >= ? AND warranty_end_date <= ?", from, to).
		Order("warranty_end_date ASC").
		Find(&rows).
		Error
	return rows, err
}

// AppendChangelog writes one audit row.
func (r *Repository) AppendChangelog(ctx context.Context, variantID uuid.UUID, action string, batchID *uuid.UUID) error {
	entry := models.VariantChangelog{
		ID:        uuid.New(),
		VariantID: variantID,
		Action:    action,
		BatchID:   batchID,
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

// ListChangelog returns the variant's audit trail, newest first.
func (r *Repository) ListChangelog(ctx context.Context, variantID uuid.UUID, limit int) ([]models.VariantChangelog, error) {
	query := r.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.VariantChangelog
	err := query.Find(&rows).Error
	return rows, err
}

// ListRecentChangelog returns the latest audit rows across all variants.
func (r *Repository) ListRecentChangelog(ctx context.Context, limit int) ([]models.VariantChangelog, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.VariantChangelog
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

// CreateReplacement records a completed swap.
func (r *Repository) CreateReplacement(ctx context.Context, replacement *models.VariantReplacement) error {
	return r.db.WithContext(ctx).Create(replacement).Error
}

// ListReplacementsByContact returns the contact's swap history, newest first.
func (r *Repository) ListReplacementsByContact(ctx context.Context, contactID int64) ([]models.VariantReplacement, error) {
	var rows []models.VariantReplacement
	err := r.db.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Order("created_at DESC, id DESC").
		Find(&rows).
		Error
	return rows, err
}

// CountByStatus tallies active variants per lifecycle status.
func (r *Repository) CountByStatus(ctx context.Context) (map[enums.VariantStatus]int, error) {
	type statusCount struct {
		Status enums.VariantStatus
		Total  int64
	}
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.VariantStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = int(row.Total)
	}
	return counts, nil
}

// IsNotFound reports whether err is the GORM missing-record sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/memberstock-backend/pkg/db/models"
	"github.com/angelmondragon/memberstock-backend/pkg/enums"
	"github.com/angelmondragon/memberstock-backend/pkg/pagination"
)

// Repository wires together order persistence helpers.
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

// FindByID loads the order header without details.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// CodeExists reports whether an order already carries the code.
func (r *Repository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("code = ?", code).
		Count(&count).
		Error
	return count > 0, err
}

// Create inserts a new order header.
func (r *Repository) Create(ctx context.Context, sale *models.Sale) (*models.Sale, error) {
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		return nil, err
	}
	return sale, nil
}

// Update saves an existing order header.
func (r *Repository) Update(ctx context.Context, sale *models.Sale) (*models.Sale, error) {
	if err := r.db.WithContext(ctx).Save(sale).Error; err != nil {
		return nil, err
	}
	return sale, nil
}

// GetWithDetails loads the order with line items and their variants.
func (r *Repository) GetWithDetails(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("Details", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Details.Variant").
		First(&sale, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// CreateDetail inserts one line item.
func (r *Repository) CreateDetail(ctx context.Context, detail *models.SaleDetail) error {
	return r.db.WithContext(ctx).Create(detail).Error
}

// FindDetail loads one line item.
func (r *Repository) FindDetail(ctx context.Context, id uuid.UUID) (*models.SaleDetail, error) {
	var detail models.SaleDetail
	if err := r.db.WithContext(ctx).First(&detail, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &detail, nil
}

// SetDetailVariant attaches a unit to the line item.
func (r *Repository) SetDetailVariant(ctx context.Context, detailID, variantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.SaleDetail{}).
		Where("id = ?", detailID).
		UpdateColumn("variant_id", variantID).
		Error
}

// ListNeedingAssignment returns the fulfillment queue oldest first.
func (r *Repository) ListNeedingAssignment(ctx context.Context) ([]NeedingAssignmentRow, error) {
	var rows []NeedingAssignmentRow
	err := r.db.WithContext(ctx).
		Table("sales s").
		Select("s.id, s.code, s.contact_id, s.sale_date, s.status, COUNT(sd.id) AS item_count").
		Joins("LEFT JOIN sale_details sd ON sd.sale_id = s.id").
		Where("s.needs_assignment = ?", true).
		Where("s.status IN ?", []enums.SaleStatus{enums.SaleStatusPlaced, enums.SaleStatusProcessing}).
		Group("s.id, s.code, s.contact_id, s.sale_date, s.status").
		Order("s.sale_date ASC").
		Scan(&rows).
		Error
	return rows, err
}

// ListByContribution returns orders tied to a host contribution.
func (r *Repository) ListByContribution(ctx context.Context, contributionID int64) ([]models.Sale, error) {
	var rows []models.Sale
	err := r.db.WithContext(ctx).
		Where("contribution_id = ?", contributionID).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// ListRecent returns orders placed since the cutoff, newest first.
func (r *Repository) ListRecent(ctx context.Context, since time.Time, limit int) ([]models.Sale, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.Sale
	err := r.db.WithContext(ctx).
		Where("sale_date >= ?", since).
		Order("sale_date DESC, id DESC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

// CountActiveVariantsForMembership counts live units held by the membership.
func (r *Repository) CountActiveVariantsForMembership(ctx context.Context, membershipID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("membership_id = ? AND is_active = ?", membershipID, true).
		Count(&count).
		Error
	return count, err
}

type statisticsRecord struct {
	TotalSales     int64
	CompletedSales int64
	ShippedSales   int64
	PendingSales   int64
	TotalValue     decimal.NullDecimal
}

// Statistics aggregates order counts and line value since the window start.
func (r *Repository) Statistics(ctx context.Context, since time.Time) (*statisticsRecord, error) {
	var record statisticsRecord
	err := r.db.WithContext(ctx).
		Table("sales s").
		Select(`
			COUNT(DISTINCT s.id) AS total_sales,
			COUNT(DISTINCT CASE WHEN s.status = 'completed' THEN s.id END) AS completed_sales,
			COUNT(DISTINCT CASE WHEN s.status = 'shipped' THEN s.id END) AS shipped_sales,
			COUNT(DISTINCT CASE WHEN s.status = 'placed' THEN s.id END) AS pending_sales,
			SUM(sd.purchase_price * sd.quantity) AS total_value`).
		Joins("LEFT JOIN sale_details sd ON sd.sale_id = s.id").
		Where("s.sale_date >= ?", since).
		Scan(&record).
		Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

type saleListQuery struct {
	Pagination pagination.Params
	ContactID  *int64
	Status     *enums.SaleStatus
}

// List pages through order headers newest first.
func (r *Repository) List(ctx context.Context, query saleListQuery) ([]models.Sale, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.Sale{})
	if query.ContactID != nil {
		qb = qb.Where("contact_id = ?", *query.ContactID)
	}
	if query.Status != nil {
		qb = qb.Where("status = ?", *query.Status)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Sale
	if err := qb.Order("created_at DESC, id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

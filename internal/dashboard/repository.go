package dashboard

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/memberstock-backend/pkg/db/models"
)

// Repository runs the dashboard's aggregate queries.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type productCountsRecord struct {
	Total        int64
	Active       int64
	Serialized   int64
	Discontinued int64
}

// ProductCounts aggregates catalog totals in one pass.
func (r *Repository) ProductCounts(ctx context.Context) (*productCountsRecord, error) {
	var record productCountsRecord
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select(`
			COUNT(*) AS total,
			COUNT(CASE WHEN is_active THEN 1 END) AS active,
			COUNT(CASE WHEN is_serialized THEN 1 END) AS serialized,
			COUNT(CASE WHEN is_discontinued THEN 1 END) AS discontinued`).
		Scan(&record).
		Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

type variantStatusCount struct {
	Status string
	Count  int64
}

// VariantStatusCounts groups units by lifecycle status.
func (r *Repository) VariantStatusCounts(ctx context.Context) ([]variantStatusCount, error) {
	var rows []variantStatusCount
	err := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).
		Error
	return rows, err
}

// WarehouseStats sums catalog stock per warehouse.
func (r *Repository) WarehouseStats(ctx context.Context) ([]WarehouseStats, error) {
	var rows []WarehouseStats
	err := r.db.WithContext(ctx).
		Table("warehouses w").
		Select(`
			w.id AS warehouse_id,
			w.name AS warehouse_name,
			COUNT(p.id) AS product_count,
			COALESCE(SUM(p.quantity_available), 0) AS quantity_total`).
		Joins("LEFT JOIN products p ON p.warehouse_id = w.id").
		Group("w.id, w.name").
		Order("w.name ASC").
		Scan(&rows).
		Error
	return rows, err
}

// RecentSales returns orders placed since the cutoff, newest first.
func (r *Repository) RecentSales(ctx context.Context, since time.Time, limit int) ([]models.Sale, error) {
	var rows []models.Sale
	err := r.db.WithContext(ctx).
		Where("sale_date >= ?", since).
		Order("sale_date DESC, id DESC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

type recentChangelogRow struct {
	models.VariantChangelog
	VariantUniqueID string
	ProductLabel    string
}

// RecentChangelog returns the latest audit rows with unit context.
func (r *Repository) RecentChangelog(ctx context.Context, limit int) ([]recentChangelogRow, error) {
	var rows []recentChangelogRow
	err := r.db.WithContext(ctx).
		Table("variant_changelogs vc").
		Select("vc.*, pv.unique_id AS variant_unique_id, p.label AS product_label").
		Joins("JOIN product_variants pv ON pv.id = vc.variant_id").
		Joins("JOIN products p ON p.id = pv.product_id").
		Order("vc.created_at DESC, vc.id DESC").
		Limit(limit).
		Scan(&rows).
		Error
	return rows, err
}

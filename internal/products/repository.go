package products

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/memberstock-backend/pkg/db/models"
	"github.com/angelmondragon/memberstock-backend/pkg/pagination"
)

// Repository wires together catalog persistence helpers.
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

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByCode loads the product carrying the given catalog code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductDetail fetches a product with category and warehouse preloaded.
func (r *Repository) GetProductDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Warehouse").
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts a new product row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct updates an existing product row.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProductRow removes the product record only. Callers are expected
// to clear dependent rows first inside the same transaction.
func (r *Repository) DeleteProductRow(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// DecrementQuantity reduces on-hand stock by qty, clamping at zero.
func (r *Repository) DecrementQuantity(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET quantity_available = CASE
			WHEN quantity_available - ? < 0 THEN 0
			ELSE quantity_available - ?
		END
		WHERE id = ?`, qty, qty, productID).Error
}

// ReplaceMembershipTypes replaces every membership-type mapping for the product.
func (r *Repository) ReplaceMembershipTypes(ctx context.Context, productID uuid.UUID, rows []models.ProductMembershipType) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductMembershipType{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

// ListMembershipTypes returns the mappings configured for a product.
func (r *Repository) ListMembershipTypes(ctx context.Context, productID uuid.UUID) ([]models.ProductMembershipType, error) {
	var rows []models.ProductMembershipType
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("membership_type_id ASC").
		Find(&rows).
		Error
	return rows, err
}

// ListByMembershipType returns active products linked to a host membership type.
func (r *Repository) ListByMembershipType(ctx context.Context, membershipTypeID int64) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Joins("JOIN product_membership_types pmt ON pmt.product_id = products.id").
		Where("pmt.membership_type_id = ?", membershipTypeID).
		Where("products.is_active = ?", true).
		Where("products.is_discontinued = ?", false).
		Order("products.label ASC").
		Find(&rows).
		Error
	return rows, err
}

// ListAutoAssignProducts returns products whose mapping for the membership
// type is flagged for automatic assignment.
func (r *Repository) ListAutoAssignProducts(ctx context.Context, membershipTypeID int64) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Joins("JOIN product_membership_types pmt ON pmt.product_id = products.id").
		Where("pmt.membership_type_id = ? AND pmt.auto_assign = ?", membershipTypeID, true).
		Where("products.is_active = ?", true).
		Order("products.label ASC").
		Find(&rows).
		Error
	return rows, err
}

// CountSaleReferences counts sale line items touching any of the
// product's variants. A non-zero count blocks deletion.
func (r *Repository) CountSaleReferences(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("sale_details sd").
		Joins("JOIN product_variants pv ON pv.id = sd.variant_id").
		Where("pv.product_id = ?", productID).
		Count(&count).
		Error
	return count, err
}

// DeleteVariantChangelogs clears audit rows for the product's variants.
func (r *Repository) DeleteVariantChangelogs(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		DELETE FROM variant_changelogs
		WHERE variant_id IN (SELECT id FROM product_variants WHERE product_id = ?)`, productID).Error
}

// DeleteVariants removes all variant rows belonging to the product.
func (r *Repository) DeleteVariants(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&models.ProductVariant{}).Error
}

// DeleteMembershipTypes removes the product's membership-type mappings.
func (r *Repository) DeleteMembershipTypes(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&models.ProductMembershipType{}).Error
}

// VariantCounts tallies the product's pool by assignment state.
type VariantCounts struct {
	Available int
	Assigned  int
}

// CountVariants computes the available/assigned split for a product's
// active units.
func (r *Repository) CountVariants(ctx context.Context, productID uuid.UUID) (VariantCounts, error) {
	var counts VariantCounts

	base := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("product_id = ? AND is_active = ?", productID, true)
	}

	var available int64
	if err := base().Where("contact_id IS NULL AND sale_id IS NULL").Count(&available).Error; err != nil {
		return counts, err
	}
	var assigned int64
	if err := base().Where("contact_id IS NOT NULL").Count(&assigned).Error; err != nil {
		return counts, err
	}

	counts.Available = int(available)
	counts.Assigned = int(assigned)
	return counts, nil
}

// ListNeedingReorder returns active products whose effective availability
// sits at or below the reorder point, scarcest first. Serialized products
// count their active unsold units; bulk products use on-hand quantity.
func (r *Repository) ListNeedingReorder(ctx context.Context) ([]models.Product, error) {
	const effectiveAvailability = "(CASE WHEN products.is_serialized THEN COALESCE(pool.unit_count, 0) ELSE products.quantity_available END)"

	var rows []models.Product
	err := r.db.WithContext(ctx).
		Table("products").
		Select("products.*").
		Joins(`LEFT JOIN (
			SELECT product_id, COUNT(*) AS unit_count
			FROM product_variants
			WHERE contact_id IS NULL AND sale_id IS NULL AND is_active = ?
			GROUP BY product_id
		) pool ON pool.product_id = products.id`, true).
		Where("products.is_active = ? AND products.is_discontinued = ?", true, false).
		Where(effectiveAvailability+" <= products.reorder_point").
		Order(effectiveAvailability + " ASC").
		Find(&rows).
		Error
	return rows, err
}

type productListQuery struct {
	Pagination pagination.Params
	Filters    ProductListFilters
}

// ListProductSummaries pages through the catalog newest first.
func (r *Repository) ListProductSummaries(ctx context.Context, query productListQuery) (*ProductListResult, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Table("products p").
		Select(strings.Join([]string{
			"p.id",
			"p.label",
			"p.code",
			"p.brand",
			"c.title AS category_title",
			"p.current_price",
			"p.quantity_available",
			"p.is_serialized",
			"p.is_active",
			"p.created_at",
			"p.updated_at",
		}, ", ")).
		Joins("LEFT JOIN product_categories c ON c.id = p.category_id")

	filter := query.Filters
	if filter.CategoryID != nil {
		qb = qb.Where("p.category_id = ?", *filter.CategoryID)
	}
	if filter.WarehouseID != nil {
		qb = qb.Where("p.warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.IsSerialized != nil {
		qb = qb.Where("p.is_serialized = ?", *filter.IsSerialized)
	}
	if filter.IsActive != nil {
		qb = qb.Where("p.is_active = ?", *filter.IsActive)
	}
	if filter.IsDiscontinued != nil {
		qb = qb.Where("p.is_discontinued = ?", *filter.IsDiscontinued)
	}
	if filter.MembershipTypeID != nil {
		qb = qb.Joins("JOIN product_membership_types pmt ON pmt.product_id = p.id").
			Where("pmt.membership_type_id = ?", *filter.MembershipTypeID)
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where(
			"(LOWER(p.label) LIKE ? OR LOWER(p.code) LIKE ? OR LOWER(COALESCE(p.description, '')) LIKE ? OR LOWER(COALESCE(p.brand, '')) LIKE ?)",
			pattern, pattern, pattern, pattern,
		)
	}

	if cursor != nil {
		qb = qb.Where("(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("p.created_at DESC").Order("p.id DESC").Limit(limitWithBuffer)

	var records []productSummaryRecord
	if err := qb.Scan(&records).Error; err != nil {
		return nil, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > pageSize {
		resultRows = records[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]ProductSummary, 0, len(resultRows))
	for _, record := range resultRows {
		summaries = append(summaries, record.toSummary())
	}

	return &ProductListResult{
		Products:   summaries,
		NextCursor: nextCursor,
	}, nil
}

type productSummaryRecord struct {
	ID                uuid.UUID
	Label             string
	Code              string
	Brand             sql.NullString
	CategoryTitle     sql.NullString
	CurrentPrice      decimal.Decimal
	QuantityAvailable int
	IsSerialized      bool
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (r productSummaryRecord) toSummary() ProductSummary {
	return ProductSummary{
		ID:                r.ID,
		Label:             r.Label,
		Code:              r.Code,
		Brand:             nullStringPtr(r.Brand),
		CategoryTitle:     nullStringPtr(r.CategoryTitle),
		CurrentPrice:      r.CurrentPrice,
		QuantityAvailable: r.QuantityAvailable,
		IsSerialized:      r.IsSerialized,
		IsActive:          r.IsActive,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

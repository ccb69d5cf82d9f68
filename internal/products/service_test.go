package products

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/memberstock-backend/pkg/db"
	"github.com/angelmondragon/memberstock-backend/pkg/db/models"
	"github.com/angelmondragon/memberstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
	"github.com/angelmondragon/memberstock-backend/pkg/pagination"
)

func setupProductTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  label TEXT NOT NULL,
  code TEXT NOT NULL UNIQUE,
  description TEXT,
  brand TEXT,
  category_id TEXT,
  warehouse_id TEXT,
  listed_price NUMERIC NOT NULL DEFAULT 0,
  current_price NUMERIC NOT NULL DEFAULT 0,
  quantity_available INTEGER NOT NULL DEFAULT 0,
  minimum_stock_level INTEGER NOT NULL DEFAULT 0,
  maximum_stock_level INTEGER NOT NULL DEFAULT 0,
  reorder_point INTEGER NOT NULL DEFAULT 0,
  uom TEXT,
  packed_weight NUMERIC,
  packed_height NUMERIC,
  packed_width NUMERIC,
  packed_depth NUMERIC,
  is_serialized INTEGER NOT NULL DEFAULT 0,
  is_discontinued INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS product_categories (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  slug TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS warehouses (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  address TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS product_membership_types (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  membership_type_id INTEGER NOT NULL,
  is_serialized_for_type INTEGER NOT NULL DEFAULT 0,
  auto_assign INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  UNIQUE (product_id, membership_type_id)
);`, `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  contact_id INTEGER,
  membership_id INTEGER,
  sale_id TEXT,
  unique_id TEXT NOT NULL UNIQUE,
  phone_number TEXT,
  details TEXT,
  status TEXT NOT NULL DEFAULT 'available',
  replaced_by_variant_id TEXT,
  replaced_variant_id TEXT,
  warranty_start_date DATETIME,
  warranty_end_date DATETIME,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_primary INTEGER NOT NULL DEFAULT 0,
  is_suspended INTEGER NOT NULL DEFAULT 0,
  is_problem INTEGER NOT NULL DEFAULT 0,
  is_replaced INTEGER NOT NULL DEFAULT 0,
  replaced_date DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS variant_changelogs (
  id TEXT PRIMARY KEY,
  variant_id TEXT NOT NULL,
  action TEXT NOT NULL,
  batch_id TEXT,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS sales (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  contact_id INTEGER NOT NULL,
  contribution_id INTEGER,
  membership_id INTEGER,
  status TEXT NOT NULL DEFAULT 'placed',
  is_paid INTEGER NOT NULL DEFAULT 0,
  is_fulfilled INTEGER NOT NULL DEFAULT 0,
  is_shipping_required INTEGER NOT NULL DEFAULT 0,
  needs_assignment INTEGER NOT NULL DEFAULT 0,
  has_assignment INTEGER NOT NULL DEFAULT 0,
  sale_date DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS sale_details (
  id TEXT PRIMARY KEY,
  sale_id TEXT NOT NULL,
  variant_id TEXT,
  warehouse_id TEXT,
  quantity INTEGER NOT NULL DEFAULT 1,
  purchase_price NUMERIC NOT NULL DEFAULT 0,
  product_title TEXT NOT NULL,
  subtitle TEXT,
  line_type TEXT NOT NULL DEFAULT 'device',
  membership_id INTEGER,
  contribution_id INTEGER,
  created_at DATETIME
);`}
	for _, ddl := range statements {
		require.NoError(t, conn.Exec(ddl).Error)
	}
	return conn
}

func newProductService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "products-test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	svc, err := NewService(NewRepository(conn), db.NewWithConn(conn), logg)
	require.NoError(t, err)
	return svc
}

func baseCreateInput(code string) CreateProductInput {
	return CreateProductInput{
		Label:        "Hearing Device " + code,
		Code:         code,
		ListedPrice:  decimal.NewFromInt(250),
		CurrentPrice: decimal.NewFromInt(199),
		IsActive:     true,
	}
}

func TestCreateProductWithMembershipMappings(t *testing.T) {
	conn := setupProductTestDB(t)
	svc := newProductService(t, conn)
	ctx := context.Background()

	input := baseCreateInput("HD-100")
	input.IsSerialized = true
	input.MembershipTypes = []MembershipTypeInput{
		{MembershipTypeID: 3, IsSerializedForType: true},
		{MembershipTypeID: 5, AutoAssign: true},
	}

	created, err := svc.CreateProduct(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "HD-100", created.Code)
	assert.True(t, created.IsSerialized)

	mappings, err := svc.GetMembershipTypeMappings(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	assert.Equal(t, int64(3), mappings[0].MembershipTypeID)
	assert.True(t, mappings[0].IsSerializedForType)
	assert.Equal(t, int64(5), mappings[1].MembershipTypeID)
	assert.True(t, mappings[1].AutoAssign)
}

func TestCreateProductRejectsDuplicateCode(t *testing.T) {
	conn := setupProductTestDB(t)
	svc := newProductService(t, conn)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, baseCreateInput("HD-200"))
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, baseCreateInput("HD-200"))
	require.Error(t, err)
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestCreateProductRejectsDuplicateMembershipTypes(t *testing.T) {
	conn := setupProductTestDB(t)
	svc := newProductService(t, conn)
	ctx := context.Background()

	input := baseCreateInput("HD-300")
	input.MembershipTypes = []MembershipTypeInput{
		{MembershipTypeID: 3},
		{MembershipTypeID: 3},
	}

	_, err := svc.CreateProduct(ctx, input)
	require.Error(t, err)
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestUpdateProductValidatesThresholds(t *testing.T) {
	conn := setupProductTestDB(t)
	svc := newProductService(t, conn)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, baseCreateInput("HD-400"))
	require.NoError(t, err)

	minimum := 10
	maximum := 5
	_, err = svc.UpdateProduct(ctx, created.ID, UpdateProductInput{
		MinimumStockLevel: &minimum,
		MaximumStockLevel: &maximum,
	})
	require.Error(t, err)
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	label := "Renamed Device"
	updated, err := svc.UpdateProduct(ctx, created.ID, UpdateProductInput{Label: &label})
	require.NoError(t, err)
	assert.Equal(t, "Renamed Device", updated.Label)
}

func TestDeleteProductBlockedBySaleReferences(t *testing.T) {
	conn := setupProductTestDB(t)
	svc := newProductService(t, conn)
	ctx := context.Background()

	input := baseCreateInput("HD-500")
	input.IsSerialized = true
	created, err := svc.CreateProduct(ctx, input)
	require.NoError(t, err)

	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: created.ID,
		UniqueID:  "SN-500",
		Status:    enums.VariantStatusSold,
	}
	require.NoError(t, conn.Create(variant).Error)

	sale := &models.Sale{
		ID:        uuid.New(),
		Code:      "ORD-TEST500",
		ContactID: 42,
		Status:    enums.SaleStatusCompleted,
		SaleDate:  variant.CreatedAt,
	}
	require.NoError(t, conn.Create(sale).Error)
	detail := &models.SaleDetail{
		ID:           uuid.New(),
		SaleID:       sale.ID,
		VariantID:    &variant.ID,
		Quantity:     1,
		ProductTitle: created.Label,
	}
	require.NoError(t, conn.Create(detail).Error)

	err = svc.DeleteProduct(ctx, created.ID)
	require.Error(t, err)
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestDeleteProductCascadesOwnedRows(t *testing.T) {
	conn := setupProductTestDB(t)
	svc := newProductService(t, conn)
	ctx := context.Background()

	input := baseCreateInput("HD-600")
	input.IsSerialized = true
	input.MembershipTypes = []MembershipTypeInput{{MembershipTypeID: 3}}
	created, err := svc.CreateProduct(ctx, input)
	require.NoError(t, err)

	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: created.ID,
		UniqueID:  "SN-600",
		Status:    enums.VariantStatusAvailable,
		IsActive:  true,
	}
	require.NoError(t, conn.Create(variant).Error)
	changelog := &models.VariantChangelog{
		ID:        uuid.New(),
		VariantID: variant.ID,
		Action:    enums.ChangelogActionUpdate.String(),
	}
	require.NoError(t, conn.Create(changelog).Error)

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))

	for table, model := range map[string]any{
		"products":                 &models.Product{},
		"product_variants":         &models.ProductVariant{},
		"variant_changelogs":       &models.VariantChangelog{},
		"product_membership_types": &models.ProductMembershipType{},
	} {
		var count int64
		require.NoError(t, conn.Model(model).Count(&count).Error, table)
		assert.Zero(t, count, table)
	}
}

func TestInventoryStatusForSerializedProduct(t *testing.T) {
	conn := setupProductTestDB(t)
	svc := newProductService(t, conn)
	ctx := context.Background()

	input := baseCreateInput("HD-700")
	input.IsSerialized = true
	input.MinimumStockLevel = 2
	input.MaximumStockLevel = 10
	input.ReorderPoint = 2
	created, err := svc.CreateProduct(ctx, input)
	require.NoError(t, err)

	contactID := int64(42)
	seed := []*models.ProductVariant{
		{ID: uuid.New(), ProductID: created.ID, UniqueID: "SN-700-A", Status: enums.VariantStatusAvailable, IsActive: true},
		{ID: uuid.New(), ProductID: created.ID, UniqueID: "SN-700-B", Status: enums.VariantStatusAvailable, IsActive: true},
		{ID: uuid.New(), ProductID: created.ID, UniqueID: "SN-700-C", Status: enums.VariantStatusActive, ContactID: &contactID, IsActive: true},
	}
	for _, v := range seed {
		require.NoError(t, conn.Create(v).Error)
	}

	status, err := svc.GetInventoryStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.QuantityAvailable)
	assert.Equal(t, 2, status.VariantsAvailable)
	assert.Equal(t, 1, status.VariantsAssigned)
	assert.Equal(t, enums.StockStatusLowStock, status.Status)
	assert.True(t, status.NeedsReorder)
}

func TestInventoryStatusForBulkProduct(t *testing.T) {
	conn := setupProductTestDB(t)
	svc := newProductService(t, conn)
	ctx := context.Background()

	input := baseCreateInput("HD-800")
	input.QuantityAvailable = 25
	input.MinimumStockLevel = 5
	input.MaximumStockLevel = 50
	input.ReorderPoint = 8
	created, err := svc.CreateProduct(ctx, input)
	require.NoError(t, err)

	status, err := svc.GetInventoryStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, status.QuantityAvailable)
	assert.Equal(t, enums.StockStatusInStock, status.Status)
	assert.False(t, status.NeedsReorder)
}

func TestUpdateInventoryAfterSaleClampsAtZero(t *testing.T) {
	conn := setupProductTestDB(t)
	svc := newProductService(t, conn)
	ctx := context.Background()

	input := baseCreateInput("HD-900")
	input.QuantityAvailable = 5
	created, err := svc.CreateProduct(ctx, input)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateInventoryAfterSale(ctx, created.ID, 10))
	status, err := svc.GetInventoryStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, status.QuantityAvailable)
	assert.Equal(t, enums.StockStatusOutOfStock, status.Status)

	// Zero and negative quantities decrement one unit.
	require.NoError(t, svc.UpdateInventoryAfterSale(ctx, created.ID, 0))
	status, err = svc.GetInventoryStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, status.QuantityAvailable)
}

func TestReorderReportListsLowProducts(t *testing.T) {
	conn := setupProductTestDB(t)
	svc := newProductService(t, conn)
	ctx := context.Background()

	low := baseCreateInput("HD-110")
	low.QuantityAvailable = 2
	low.ReorderPoint = 3
	_, err := svc.CreateProduct(ctx, low)
	require.NoError(t, err)

	healthy := baseCreateInput("HD-120")
	healthy.QuantityAvailable = 40
	healthy.ReorderPoint = 3
	_, err = svc.CreateProduct(ctx, healthy)
	require.NoError(t, err)

	// Serialized products count their unsold units, not the bulk
	// quantity column, so an empty pool needs reorder even with a
	// stale on-hand figure.
	emptyPool := baseCreateInput("HD-125")
	emptyPool.IsSerialized = true
	emptyPool.QuantityAvailable = 40
	emptyPool.ReorderPoint = 3
	_, err = svc.CreateProduct(ctx, emptyPool)
	require.NoError(t, err)

	stockedPool := baseCreateInput("HD-126")
	stockedPool.IsSerialized = true
	stockedPool.ReorderPoint = 3
	stocked, err := svc.CreateProduct(ctx, stockedPool)
	require.NoError(t, err)
	for _, serial := range []string{"SN-126-A", "SN-126-B", "SN-126-C", "SN-126-D", "SN-126-E"} {
		variant := &models.ProductVariant{
			ID:        uuid.New(),
			ProductID: stocked.ID,
			UniqueID:  serial,
			Status:    enums.VariantStatusAvailable,
			IsActive:  true,
		}
		require.NoError(t, conn.Create(variant).Error)
	}

	report, err := svc.GetReorderReport(ctx)
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, "HD-125", report[0].Code)
	assert.Equal(t, 0, report[0].QuantityAvailable)
	assert.True(t, report[0].NeedsReorder)
	assert.Equal(t, "HD-110", report[1].Code)
	assert.True(t, report[1].NeedsReorder)
}

func TestGetProductsForMembershipType(t *testing.T) {
	conn := setupProductTestDB(t)
	svc := newProductService(t, conn)
	ctx := context.Background()

	linked := baseCreateInput("HD-130")
	linked.MembershipTypes = []MembershipTypeInput{{MembershipTypeID: 9}}
	_, err := svc.CreateProduct(ctx, linked)
	require.NoError(t, err)

	unlinked := baseCreateInput("HD-140")
	_, err = svc.CreateProduct(ctx, unlinked)
	require.NoError(t, err)

	rows, err := svc.GetProductsForMembershipType(ctx, 9)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "HD-130", rows[0].Code)
	assert.Equal(t, "Hearing Device HD-130", rows[0].Label)
	assert.True(t, rows[0].CurrentPrice.Equal(decimal.NewFromInt(199)))
	assert.True(t, rows[0].IsActive)

	auto, err := svc.GetAutoAssignProducts(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, auto)
}

func TestListProductsSearchAndMembershipFilter(t *testing.T) {
	conn := setupProductTestDB(t)
	svc := newProductService(t, conn)
	ctx := context.Background()

	described := baseCreateInput("HD-150")
	description := "Rechargeable behind-the-ear device"
	described.Description = &description
	described.MembershipTypes = []MembershipTypeInput{{MembershipTypeID: 11}}
	_, err := svc.CreateProduct(ctx, described)
	require.NoError(t, err)

	plain := baseCreateInput("HD-160")
	_, err = svc.CreateProduct(ctx, plain)
	require.NoError(t, err)

	// Free text matches the description, not just label and code.
	result, err := svc.ListProducts(ctx, ListProductsInput{
		Pagination: pagination.Params{Limit: 10},
		Filters:    ProductListFilters{Query: "rechargeable"},
	})
	require.NoError(t, err)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "HD-150", result.Products[0].Code)

	membershipTypeID := int64(11)
	result, err = svc.ListProducts(ctx, ListProductsInput{
		Pagination: pagination.Params{Limit: 10},
		Filters:    ProductListFilters{MembershipTypeID: &membershipTypeID},
	})
	require.NoError(t, err)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "HD-150", result.Products[0].Code)

	other := int64(12)
	result, err = svc.ListProducts(ctx, ListProductsInput{
		Pagination: pagination.Params{Limit: 10},
		Filters:    ProductListFilters{MembershipTypeID: &other},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Products)
}

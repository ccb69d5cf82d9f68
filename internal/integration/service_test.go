package integration

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/memberstock-backend/internal/products"
	"github.com/angelmondragon/memberstock-backend/internal/sales"
	"github.com/angelmondragon/memberstock-backend/internal/variants"
	"github.com/angelmondragon/memberstock-backend/pkg/config"
	"github.com/angelmondragon/memberstock-backend/pkg/db"
	"github.com/angelmondragon/memberstock-backend/pkg/db/models"
	"github.com/angelmondragon/memberstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
)

func setupIntegrationTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:integration_" + uuid.NewString() + "?mode=memory&cache=shared"
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
CREATE TABLE IF NOT EXISTS variant_replacements (
  id TEXT PRIMARY KEY,
  contact_id INTEGER NOT NULL,
  old_variant_id TEXT NOT NULL,
  new_variant_id TEXT NOT NULL,
  is_warranty INTEGER NOT NULL DEFAULT 0,
  source TEXT,
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

type integrationFixture struct {
	conn     *gorm.DB
	svc      Service
	products products.Service
	sales    sales.Service
}

func newIntegrationFixture(t *testing.T) *integrationFixture {
	t.Helper()

	conn := setupIntegrationTestDB(t)
	client := db.NewWithConn(conn)
	logg := logger.New(logger.Options{ServiceName: "integration-test", Level: logger.ParseLevel("debug"), Output: io.Discard})

	prodRepo := products.NewRepository(conn)
	prodSvc, err := products.NewService(prodRepo, client, logg)
	require.NoError(t, err)

	varSvc, err := variants.NewService(variants.NewRepository(conn), client, prodRepo, logg, config.InventoryConfig{})
	require.NoError(t, err)

	saleSvc, err := sales.NewService(sales.NewRepository(conn), variants.NewRepository(conn), client, logg)
	require.NoError(t, err)

	svc, err := NewService(prodSvc, varSvc, saleSvc, logg)
	require.NoError(t, err)

	return &integrationFixture{conn: conn, svc: svc, products: prodSvc, sales: saleSvc}
}

func (f *integrationFixture) seedProduct(t *testing.T, code string, quantity int, serials ...string) *products.ProductDTO {
	t.Helper()

	created, err := f.products.CreateProduct(context.Background(), products.CreateProductInput{
		Label:             "Hearing Device " + code,
		Code:              code,
		ListedPrice:       decimal.NewFromInt(250),
		CurrentPrice:      decimal.NewFromInt(199),
		QuantityAvailable: quantity,
		IsSerialized:      true,
		IsActive:          true,
	})
	require.NoError(t, err)

	base := time.Now().UTC()
	for i, serial := range serials {
		variant := &models.ProductVariant{
			ID:        uuid.New(),
			ProductID: created.ID,
			UniqueID:  serial,
			Status:    enums.VariantStatusAvailable,
			IsActive:  true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.conn.Create(variant).Error)
	}
	return created
}

func TestHandleMembershipCreatedExplicitProduct(t *testing.T) {
	f := newIntegrationFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "HD-100", 3, "SN-100-A")
	contributionID := int64(900)

	err := f.svc.HandleMembershipCreated(ctx, MembershipCreatedEvent{
		MembershipID:   77,
		ContactID:      42,
		ContributionID: &contributionID,
		ProductID:      &product.ID,
	})
	require.NoError(t, err)

	var variant models.ProductVariant
	require.NoError(t, f.conn.First(&variant, "unique_id = ?", "SN-100-A").Error)
	assert.Equal(t, enums.VariantStatusAssigned, variant.Status)
	require.NotNil(t, variant.ContactID)
	assert.Equal(t, int64(42), *variant.ContactID)
	require.NotNil(t, variant.MembershipID)
	assert.Equal(t, int64(77), *variant.MembershipID)

	status, err := f.products.GetInventoryStatus(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, status.VariantsAvailable)
	assert.Equal(t, 1, status.VariantsAssigned)

	var row models.Product
	require.NoError(t, f.conn.First(&row, "id = ?", product.ID).Error)
	assert.Equal(t, 2, row.QuantityAvailable)

	var sale models.Sale
	require.NoError(t, f.conn.First(&sale, "contribution_id = ?", contributionID).Error)
	assert.True(t, sale.IsShippingRequired)
	assert.Equal(t, int64(42), sale.ContactID)

	var detail models.SaleDetail
	require.NoError(t, f.conn.First(&detail, "sale_id = ?", sale.ID).Error)
	require.NotNil(t, detail.VariantID)
	assert.Equal(t, variant.ID, *detail.VariantID)
	assert.Equal(t, product.Label, detail.ProductTitle)
}

func TestHandleMembershipCreatedPoolExhausted(t *testing.T) {
	f := newIntegrationFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "HD-200", 0)

	err := f.svc.HandleMembershipCreated(ctx, MembershipCreatedEvent{
		MembershipID: 77,
		ContactID:    42,
		ProductID:    &product.ID,
	})
	require.Error(t, err)
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestHandleMembershipCreatedNoAutoAssignConfig(t *testing.T) {
	f := newIntegrationFixture(t)
	ctx := context.Background()

	f.seedProduct(t, "HD-300", 0, "SN-300-A")

	err := f.svc.HandleMembershipCreated(ctx, MembershipCreatedEvent{
		MembershipID:     77,
		ContactID:        42,
		MembershipTypeID: 3,
	})
	require.NoError(t, err)

	var variant models.ProductVariant
	require.NoError(t, f.conn.First(&variant, "unique_id = ?", "SN-300-A").Error)
	assert.Equal(t, enums.VariantStatusAvailable, variant.Status)
	assert.Nil(t, variant.ContactID)
}

func TestHandleMembershipCreatedValidatesIdentifiers(t *testing.T) {
	f := newIntegrationFixture(t)

	err := f.svc.HandleMembershipCreated(context.Background(), MembershipCreatedEvent{})
	require.Error(t, err)
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestHandleMembershipStatusChangedSuspendsOnCancel(t *testing.T) {
	f := newIntegrationFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "HD-400", 0)
	contactID := int64(42)
	membershipID := int64(77)
	variant := &models.ProductVariant{
		ID:           uuid.New(),
		ProductID:    product.ID,
		ContactID:    &contactID,
		MembershipID: &membershipID,
		UniqueID:     "SN-400-A",
		Status:       enums.VariantStatusActive,
		IsActive:     true,
	}
	require.NoError(t, f.conn.Create(variant).Error)

	err := f.svc.HandleMembershipStatusChanged(ctx, MembershipStatusChangedEvent{
		MembershipID: membershipID,
		ContactID:    contactID,
		Status:       "Cancelled",
	})
	require.NoError(t, err)

	var suspended models.ProductVariant
	require.NoError(t, f.conn.First(&suspended, "id = ?", variant.ID).Error)
	assert.Equal(t, enums.VariantStatusSuspended, suspended.Status)
	assert.True(t, suspended.IsSuspended)

	var log models.VariantChangelog
	require.NoError(t, f.conn.First(&log, "variant_id = ?", variant.ID).Error)
	assert.Equal(t, "membership_cancelled", log.Action)
}

func TestHandleMembershipStatusChangedRenewalReactivates(t *testing.T) {
	f := newIntegrationFixture(t)
	ctx := context.Background()

	product := f.seedProduct(t, "HD-500", 0)
	contactID := int64(42)
	membershipID := int64(77)
	variant := &models.ProductVariant{
		ID:           uuid.New(),
		ProductID:    product.ID,
		ContactID:    &contactID,
		MembershipID: &membershipID,
		UniqueID:     "SN-500-A",
		Status:       enums.VariantStatusSuspended,
		IsActive:     true,
		IsSuspended:  true,
	}
	require.NoError(t, f.conn.Create(variant).Error)

	err := f.svc.HandleMembershipStatusChanged(ctx, MembershipStatusChangedEvent{
		MembershipID: membershipID,
		ContactID:    contactID,
		Status:       "current",
	})
	require.NoError(t, err)

	var reactivated models.ProductVariant
	require.NoError(t, f.conn.First(&reactivated, "id = ?", variant.ID).Error)
	assert.Equal(t, enums.VariantStatusActive, reactivated.Status)
	assert.False(t, reactivated.IsSuspended)

	var sale models.Sale
	require.NoError(t, f.conn.First(&sale, "membership_id = ?", membershipID).Error)
	assert.Equal(t, enums.SaleStatusRenewal, sale.Status)
}

func TestHandleMembershipStatusChangedIgnoresPending(t *testing.T) {
	f := newIntegrationFixture(t)

	err := f.svc.HandleMembershipStatusChanged(context.Background(), MembershipStatusChangedEvent{
		MembershipID: 77,
		ContactID:    42,
		Status:       "pending",
	})
	require.NoError(t, err)
}

func TestHandleContributionCompletedClosesOrders(t *testing.T) {
	f := newIntegrationFixture(t)
	ctx := context.Background()

	contributionID := int64(900)
	sale, err := f.sales.CreateSale(ctx, sales.CreateSaleInput{
		ContactID:      42,
		ContributionID: &contributionID,
	})
	require.NoError(t, err)

	err = f.svc.HandleContributionCompleted(ctx, ContributionCompletedEvent{
		ContributionID: contributionID,
		ContactID:      42,
	})
	require.NoError(t, err)

	reloaded, err := f.sales.GetSaleWithDetails(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusCompleted, reloaded.Status)
	assert.True(t, reloaded.IsPaid)
	assert.True(t, reloaded.IsFulfilled)
}

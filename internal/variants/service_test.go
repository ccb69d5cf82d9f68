package variants

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/memberstock-backend/internal/products"
	"github.com/angelmondragon/memberstock-backend/pkg/config"
	"github.com/angelmondragon/memberstock-backend/pkg/db"
	"github.com/angelmondragon/memberstock-backend/pkg/db/models"
	"github.com/angelmondragon/memberstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
)

func setupVariantTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:variants_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	productsDDL := `
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
);`
	variantsDDL := `
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
);`
	changelogsDDL := `
CREATE TABLE IF NOT EXISTS variant_changelogs (
  id TEXT PRIMARY KEY,
  variant_id TEXT NOT NULL,
  action TEXT NOT NULL,
  batch_id TEXT,
  created_at DATETIME
);`
	replacementsDDL := `
CREATE TABLE IF NOT EXISTS variant_replacements (
  id TEXT PRIMARY KEY,
  contact_id INTEGER NOT NULL,
  old_variant_id TEXT NOT NULL,
  new_variant_id TEXT NOT NULL,
  is_warranty INTEGER NOT NULL DEFAULT 0,
  source TEXT,
  created_at DATETIME
);`
	require.NoError(t, conn.Exec(productsDDL).Error)
	require.NoError(t, conn.Exec(variantsDDL).Error)
	require.NoError(t, conn.Exec(changelogsDDL).Error)
	require.NoError(t, conn.Exec(replacementsDDL).Error)
	return conn
}

func newVariantService(t *testing.T, conn *gorm.DB) *service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "variants-test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	svc, err := NewService(
		NewRepository(conn),
		db.NewWithConn(conn),
		products.NewRepository(conn),
		logg,
		config.InventoryConfig{},
	)
	require.NoError(t, err)
	return svc.(*service)
}

func newSerializedProduct(t *testing.T, conn *gorm.DB, code string) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:           uuid.New(),
		Label:        "Hearing Device " + code,
		Code:         code,
		IsSerialized: true,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func newPoolVariant(t *testing.T, conn *gorm.DB, productID uuid.UUID, uniqueID string, createdAt time.Time) *models.ProductVariant {
	t.Helper()

	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: productID,
		UniqueID:  uniqueID,
		Status:    enums.VariantStatusAvailable,
		IsActive:  true,
		CreatedAt: createdAt,
	}
	require.NoError(t, conn.Create(variant).Error)
	return variant
}

func TestCreateVariantValidatesProductAndSerial(t *testing.T) {
	conn := setupVariantTestDB(t)
	svc := newVariantService(t, conn)
	ctx := context.Background()

	product := newSerializedProduct(t, conn, "HD-100")

	created, err := svc.CreateVariant(ctx, CreateVariantInput{ProductID: product.ID, UniqueID: "SN-001"})
	require.NoError(t, err)
	assert.Equal(t, enums.VariantStatusAvailable, created.Status)
	assert.True(t, created.IsActive)

	_, err = svc.CreateVariant(ctx, CreateVariantInput{ProductID: product.ID, UniqueID: "SN-001"})
	require.Error(t, err)
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	bulk := &models.Product{ID: uuid.New(), Label: "Batteries", Code: "BAT-10", IsActive: true}
	require.NoError(t, conn.Create(bulk).Error)
	_, err = svc.CreateVariant(ctx, CreateVariantInput{ProductID: bulk.ID, UniqueID: "SN-002"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestAssignToContactClaimsOldestUnit(t *testing.T) {
	conn := setupVariantTestDB(t)
	svc := newVariantService(t, conn)
	ctx := context.Background()

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	product := newSerializedProduct(t, conn, "HD-200")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	oldest := newPoolVariant(t, conn, product.ID, "SN-OLD", base)
	newPoolVariant(t, conn, product.ID, "SN-NEW", base.Add(time.Hour))

	membershipID := int64(77)
	dto, assigned, err := svc.AssignToContact(ctx, product.ID, 42, &membershipID, AssignOptions{})
	require.NoError(t, err)
	require.True(t, assigned)
	assert.Equal(t, oldest.ID, dto.ID)
	assert.Equal(t, enums.VariantStatusAssigned, dto.Status)
	require.NotNil(t, dto.ContactID)
	assert.Equal(t, int64(42), *dto.ContactID)
	require.NotNil(t, dto.MembershipID)
	assert.Equal(t, int64(77), *dto.MembershipID)
	assert.True(t, dto.IsPrimary)
	require.NotNil(t, dto.WarrantyEndDate)
	assert.WithinDuration(t, fixed.AddDate(0, 12, 0), *dto.WarrantyEndDate, time.Second)

	pool, err := svc.GetAvailableVariants(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, "SN-NEW", pool[0].UniqueID)

	log, err := svc.GetChangelog(ctx, oldest.ID, 10)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, enums.ChangelogActionAssign.String(), log[0].Action)
}

func TestAssignToContactPoolExhaustion(t *testing.T) {
	conn := setupVariantTestDB(t)
	svc := newVariantService(t, conn)
	ctx := context.Background()

	product := newSerializedProduct(t, conn, "HD-300")

	dto, assigned, err := svc.AssignToContact(ctx, product.ID, 42, nil, AssignOptions{})
	require.NoError(t, err)
	assert.False(t, assigned)
	assert.Nil(t, dto)
}

func TestSuspendAndReactivateLifecycle(t *testing.T) {
	conn := setupVariantTestDB(t)
	svc := newVariantService(t, conn)
	ctx := context.Background()

	product := newSerializedProduct(t, conn, "HD-400")
	newPoolVariant(t, conn, product.ID, "SN-400", time.Now().UTC())

	dto, assigned, err := svc.AssignToContact(ctx, product.ID, 42, nil, AssignOptions{})
	require.NoError(t, err)
	require.True(t, assigned)

	require.NoError(t, svc.Suspend(ctx, dto.ID, "membership_cancelled"))
	suspended, err := svc.GetVariant(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.VariantStatusSuspended, suspended.Status)
	assert.True(t, suspended.IsSuspended)

	require.NoError(t, svc.Reactivate(ctx, dto.ID, "membership_renewed"))
	active, err := svc.GetVariant(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.VariantStatusActive, active.Status)
	assert.False(t, active.IsSuspended)

	log, err := svc.GetChangelog(ctx, dto.ID, 10)
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, "membership_renewed", log[0].Action)
	assert.Equal(t, "membership_cancelled", log[1].Action)
}

func TestSuspendRejectsPoolUnit(t *testing.T) {
	conn := setupVariantTestDB(t)
	svc := newVariantService(t, conn)
	ctx := context.Background()

	product := newSerializedProduct(t, conn, "HD-500")
	variant := newPoolVariant(t, conn, product.ID, "SN-500", time.Now().UTC())

	err := svc.Suspend(ctx, variant.ID, "")
	require.Error(t, err)
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestReplaceWarrantyInheritsHolderAndActivates(t *testing.T) {
	conn := setupVariantTestDB(t)
	svc := newVariantService(t, conn)
	ctx := context.Background()

	fixed := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	product := newSerializedProduct(t, conn, "HD-600")

	contactID := int64(42)
	membershipID := int64(9)
	phone := "555-0100"
	warrantyStart := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	warrantyEnd := warrantyStart.AddDate(0, 12, 0)
	old := &models.ProductVariant{
		ID:                uuid.New(),
		ProductID:         product.ID,
		ContactID:         &contactID,
		MembershipID:      &membershipID,
		PhoneNumber:       &phone,
		UniqueID:          "SN-600-OLD",
		Status:            enums.VariantStatusActive,
		WarrantyStartDate: &warrantyStart,
		WarrantyEndDate:   &warrantyEnd,
		IsActive:          true,
		IsPrimary:         true,
	}
	require.NoError(t, conn.Create(old).Error)
	fresh := newPoolVariant(t, conn, product.ID, "SN-600-NEW", time.Now().UTC())

	result, err := svc.Replace(ctx, old.ID, ReplaceInput{IsWarranty: true})
	require.NoError(t, err)
	assert.Equal(t, old.ID, result.OldVariantID)
	assert.Equal(t, fresh.ID, result.NewVariantID)
	assert.True(t, result.IsWarranty)

	replacement := result.NewVariant
	require.NotNil(t, replacement)
	assert.Equal(t, enums.VariantStatusActive, replacement.Status)
	assert.True(t, replacement.IsActive)
	require.NotNil(t, replacement.ContactID)
	assert.Equal(t, contactID, *replacement.ContactID)
	require.NotNil(t, replacement.MembershipID)
	assert.Equal(t, membershipID, *replacement.MembershipID)
	require.NotNil(t, replacement.PhoneNumber)
	assert.Equal(t, phone, *replacement.PhoneNumber)
	assert.True(t, replacement.IsPrimary)
	// The new unit starts its own one-year warranty regardless of how
	// much of the old window remained.
	require.NotNil(t, replacement.WarrantyStartDate)
	require.NotNil(t, replacement.WarrantyEndDate)
	assert.WithinDuration(t, fixed, *replacement.WarrantyStartDate, time.Second)
	assert.WithinDuration(t, fixed.AddDate(0, 12, 0), *replacement.WarrantyEndDate, time.Second)

	retired, err := svc.GetVariant(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.VariantStatusReplaced, retired.Status)
	assert.True(t, retired.IsReplaced)
	assert.False(t, retired.IsActive)
	assert.False(t, retired.IsPrimary)
	require.NotNil(t, retired.ReplacedByVariantID)
	assert.Equal(t, fresh.ID, *retired.ReplacedByVariantID)

	var rows []models.VariantReplacement
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, contactID, rows[0].ContactID)
}

func TestReplacePaidStartsNewWarranty(t *testing.T) {
	conn := setupVariantTestDB(t)
	svc := newVariantService(t, conn)
	ctx := context.Background()

	fixed := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	product := newSerializedProduct(t, conn, "HD-700")
	contactID := int64(42)
	warrantyStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	warrantyEnd := warrantyStart.AddDate(0, 12, 0)
	old := &models.ProductVariant{
		ID:                uuid.New(),
		ProductID:         product.ID,
		ContactID:         &contactID,
		UniqueID:          "SN-700-OLD",
		Status:            enums.VariantStatusActive,
		WarrantyStartDate: &warrantyStart,
		WarrantyEndDate:   &warrantyEnd,
		IsActive:          true,
	}
	require.NoError(t, conn.Create(old).Error)
	newPoolVariant(t, conn, product.ID, "SN-700-NEW", time.Now().UTC())

	result, err := svc.Replace(ctx, old.ID, ReplaceInput{IsWarranty: false})
	require.NoError(t, err)
	require.NotNil(t, result.NewVariant)
	assert.Equal(t, enums.VariantStatusActive, result.NewVariant.Status)
	require.NotNil(t, result.NewVariant.WarrantyStartDate)
	require.NotNil(t, result.NewVariant.WarrantyEndDate)
	assert.WithinDuration(t, fixed, *result.NewVariant.WarrantyStartDate, time.Second)
	assert.WithinDuration(t, fixed.AddDate(0, 12, 0), *result.NewVariant.WarrantyEndDate, time.Second)
}

func TestReplaceRequiresAssignedUnit(t *testing.T) {
	conn := setupVariantTestDB(t)
	svc := newVariantService(t, conn)
	ctx := context.Background()

	product := newSerializedProduct(t, conn, "HD-800")
	variant := newPoolVariant(t, conn, product.ID, "SN-800", time.Now().UTC())

	_, err := svc.Replace(ctx, variant.ID, ReplaceInput{})
	require.Error(t, err)
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestReplaceWithoutPoolUnit(t *testing.T) {
	conn := setupVariantTestDB(t)
	svc := newVariantService(t, conn)
	ctx := context.Background()

	product := newSerializedProduct(t, conn, "HD-900")
	contactID := int64(42)
	old := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: product.ID,
		ContactID: &contactID,
		UniqueID:  "SN-900-OLD",
		Status:    enums.VariantStatusActive,
		IsActive:  true,
	}
	require.NoError(t, conn.Create(old).Error)

	_, err := svc.Replace(ctx, old.ID, ReplaceInput{})
	require.Error(t, err)
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestBatchUpdateStatusSkipsIllegalMoves(t *testing.T) {
	conn := setupVariantTestDB(t)
	svc := newVariantService(t, conn)
	ctx := context.Background()

	product := newSerializedProduct(t, conn, "HD-110")
	movable := newPoolVariant(t, conn, product.ID, "SN-110-A", time.Now().UTC())

	sold := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: product.ID,
		UniqueID:  "SN-110-B",
		Status:    enums.VariantStatusSold,
	}
	require.NoError(t, conn.Create(sold).Error)

	result, err := svc.BatchUpdateStatus(ctx, []uuid.UUID{movable.ID, sold.ID}, enums.VariantStatusDefective)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{movable.ID}, result.Updated)
	assert.Equal(t, []uuid.UUID{sold.ID}, result.Skipped)

	flagged, err := svc.GetVariant(ctx, movable.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.VariantStatusDefective, flagged.Status)
	assert.True(t, flagged.IsProblem)

	log, err := svc.GetChangelog(ctx, movable.ID, 10)
	require.NoError(t, err)
	require.Len(t, log, 1)
	require.NotNil(t, log[0].BatchID)
	assert.Equal(t, result.BatchID, *log[0].BatchID)
}

func TestMembershipBulkSuspendAndReactivate(t *testing.T) {
	conn := setupVariantTestDB(t)
	svc := newVariantService(t, conn)
	ctx := context.Background()

	product := newSerializedProduct(t, conn, "HD-120")
	membershipID := int64(300)
	otherMembership := int64(301)
	contactID := int64(42)

	for i, serial := range []string{"SN-120-A", "SN-120-B"} {
		variant := &models.ProductVariant{
			ID:           uuid.New(),
			ProductID:    product.ID,
			ContactID:    &contactID,
			MembershipID: &membershipID,
			UniqueID:     serial,
			Status:       enums.VariantStatusActive,
			IsActive:     true,
			CreatedAt:    time.Now().UTC().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, conn.Create(variant).Error)
	}
	outsider := &models.ProductVariant{
		ID:           uuid.New(),
		ProductID:    product.ID,
		ContactID:    &contactID,
		MembershipID: &otherMembership,
		UniqueID:     "SN-120-C",
		Status:       enums.VariantStatusActive,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(outsider).Error)

	suspended, err := svc.SuspendForMembership(ctx, membershipID, "membership_cancelled")
	require.NoError(t, err)
	assert.Equal(t, 2, suspended)

	untouched, err := svc.GetVariant(ctx, outsider.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.VariantStatusActive, untouched.Status)

	reactivated, err := svc.ReactivateForMembership(ctx, membershipID, "membership_renewed")
	require.NoError(t, err)
	assert.Equal(t, 2, reactivated)
}

func TestGetExpiringWarrantiesWindow(t *testing.T) {
	conn := setupVariantTestDB(t)
	svc := newVariantService(t, conn)
	ctx := context.Background()

	fixed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	product := newSerializedProduct(t, conn, "HD-130")
	contactID := int64(42)

	soonEnd := fixed.AddDate(0, 0, 10)
	farEnd := fixed.AddDate(0, 6, 0)
	for serial, end := range map[string]time.Time{"SN-130-SOON": soonEnd, "SN-130-FAR": farEnd} {
		end := end
		variant := &models.ProductVariant{
			ID:              uuid.New(),
			ProductID:       product.ID,
			ContactID:       &contactID,
			UniqueID:        serial,
			Status:          enums.VariantStatusActive,
			WarrantyEndDate: &end,
			IsActive:        true,
		}
		require.NoError(t, conn.Create(variant).Error)
	}

	rows, err := svc.GetExpiringWarranties(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SN-130-SOON", rows[0].UniqueID)
}

func TestContactInventory(t *testing.T) {
	conn := setupVariantTestDB(t)
	svc := newVariantService(t, conn)
	ctx := context.Background()

	product := newSerializedProduct(t, conn, "HD-140")
	newPoolVariant(t, conn, product.ID, "SN-140", time.Now().UTC())

	_, assigned, err := svc.AssignToContact(ctx, product.ID, 42, nil, AssignOptions{})
	require.NoError(t, err)
	require.True(t, assigned)

	rows, err := svc.GetContactInventory(ctx, 42)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].ProductLabel)
	assert.Equal(t, product.Label, *rows[0].ProductLabel)

	count, err := svc.CountContactInventory(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

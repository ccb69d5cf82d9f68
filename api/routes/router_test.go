package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/memberstock-backend/internal/dashboard"
	"github.com/angelmondragon/memberstock-backend/internal/hooks"
	"github.com/angelmondragon/memberstock-backend/internal/integration"
	"github.com/angelmondragon/memberstock-backend/internal/products"
	"github.com/angelmondragon/memberstock-backend/internal/sales"
	"github.com/angelmondragon/memberstock-backend/internal/variants"
	"github.com/angelmondragon/memberstock-backend/pkg/auth"
	"github.com/angelmondragon/memberstock-backend/pkg/config"
	"github.com/angelmondragon/memberstock-backend/pkg/db"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
	"github.com/angelmondragon/memberstock-backend/pkg/metrics"
)

func setupRouterTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:router_" + uuid.NewString() + "?mode=memory&cache=shared"
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

type routerFixture struct {
	handler  http.Handler
	cfg      *config.Config
	products products.Service
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	conn := setupRouterTestDB(t)
	client := db.NewWithConn(conn)
	logg := logger.New(logger.Options{ServiceName: "router-test", Level: logger.ParseLevel("debug"), Output: io.Discard})

	prodRepo := products.NewRepository(conn)
	prodSvc, err := products.NewService(prodRepo, client, logg)
	require.NoError(t, err)

	varSvc, err := variants.NewService(variants.NewRepository(conn), client, prodRepo, logg, config.InventoryConfig{})
	require.NoError(t, err)

	saleSvc, err := sales.NewService(sales.NewRepository(conn), variants.NewRepository(conn), client, logg)
	require.NoError(t, err)

	dashSvc, err := dashboard.NewService(dashboard.NewRepository(conn), prodSvc, varSvc, saleSvc, logg)
	require.NoError(t, err)

	integSvc, err := integration.NewService(prodSvc, varSvc, saleSvc, logg)
	require.NoError(t, err)

	dispatcher, err := hooks.NewDispatcher(integSvc, nil, logg)
	require.NoError(t, err)

	// Zero webhook window/limit disables rate limiting so the suite can
	// run without a Redis backend.
	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-test-secret", Issuer: "memberstock-test", ExpirationMinutes: 60},
		CRM: config.CRMConfig{WebhookSecret: "hook-secret", AllowedOrigin: "https://crm.example.org"},
	}

	registry := prometheus.NewRegistry()
	handler := NewRouter(
		cfg,
		logg,
		nil,
		nil,
		registry,
		metrics.NewHTTPMetrics(registry),
		prodSvc,
		varSvc,
		saleSvc,
		dashSvc,
		dispatcher,
	)
	return &routerFixture{handler: handler, cfg: cfg, products: prodSvc}
}

func (f *routerFixture) mintToken(t *testing.T, permissions ...string) string {
	t.Helper()
	token, err := auth.MintAccessToken(f.cfg.JWT, time.Now(), auth.AccessTokenPayload{
		ContactID:   42,
		Permissions: permissions,
	})
	require.NoError(t, err)
	return token
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func TestRouterHealthLive(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-MemberStock-Env"))
	assert.Contains(t, resp.Body.String(), `"live"`)
}

func TestRouterExposesMetrics(t *testing.T) {
	f := newRouterFixture(t)

	// Drive one request through the metrics middleware first.
	f.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))

	resp := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "http_request_duration_seconds")
}

func TestRouterRequiresAuth(t *testing.T) {
	f := newRouterFixture(t)

	for _, path := range []string{
		"/api/v1/products",
		"/api/v1/sales",
		"/api/v1/dashboard",
	} {
		resp := f.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, resp.Code, path)
	}
}

func TestRouterEnforcesPermissions(t *testing.T) {
	f := newRouterFixture(t)
	viewToken := f.mintToken(t, auth.PermissionViewInventory)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+viewToken)
	resp := f.do(req)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+viewToken)
	resp = f.do(req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRouterListsProducts(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.products.CreateProduct(context.Background(), products.CreateProductInput{
		Label:        "Hearing Device HD-700",
		Code:         "HD-700",
		ListedPrice:  decimal.NewFromInt(250),
		CurrentPrice: decimal.NewFromInt(199),
		IsActive:     true,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+f.mintToken(t, auth.PermissionViewInventory))
	resp := f.do(req)
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Contains(t, string(envelope.Data), "HD-700")
}

func TestRouterServesDashboard(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+f.mintToken(t, auth.PermissionViewInventory))
	resp := f.do(req)
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope struct {
		Data struct {
			Products struct {
				Total int `json:"total"`
			} `json:"products"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, 0, envelope.Data.Products.Total)
}

func TestRouterHookRequiresIdempotencyKey(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hooks/crm",
		strings.NewReader(`{"event":"membership.create","data":{}}`))
	resp := f.do(req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "Idempotency-Key")
}

func TestRouterCORSPreflight(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	req.Header.Set("Origin", "https://crm.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := f.do(req)
	assert.Equal(t, "https://crm.example.org", resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterUnknownRoute(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// Unmatched paths under /api/v1 still pass through auth first.
	resp = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	req.Header.Set("Authorization", "Bearer "+f.mintToken(t, auth.PermissionViewInventory))
	resp = f.do(req)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

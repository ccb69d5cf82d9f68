package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/memberstock-backend/api/controllers"
	"github.com/angelmondragon/memberstock-backend/api/middleware"
	"github.com/angelmondragon/memberstock-backend/internal/dashboard"
	"github.com/angelmondragon/memberstock-backend/internal/hooks"
	"github.com/angelmondragon/memberstock-backend/internal/products"
	"github.com/angelmondragon/memberstock-backend/internal/sales"
	"github.com/angelmondragon/memberstock-backend/internal/variants"
	"github.com/angelmondragon/memberstock-backend/pkg/auth"
	"github.com/angelmondragon/memberstock-backend/pkg/config"
	"github.com/angelmondragon/memberstock-backend/pkg/db"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
	"github.com/angelmondragon/memberstock-backend/pkg/metrics"
	"github.com/angelmondragon/memberstock-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	productService products.Service,
	variantService variants.Service,
	saleService sales.Service,
	dashboardService dashboard.Service,
	dispatcher *hooks.Dispatcher,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.CRM.AllowedOrigin),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	hookPolicy := middleware.NewRateLimitPolicy(
		"webhook",
		cfg.CRM.WebhookRateWindow,
		cfg.CRM.WebhookRateLimit,
	)
	r.Route("/api/v1/hooks", func(r chi.Router) {
		r.Use(middleware.RateLimit(hookPolicy, redisClient, logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Post("/crm", controllers.CRMHook(dispatcher, cfg.CRM.WebhookSecret, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		view := middleware.RequirePermission(auth.PermissionViewInventory, logg)
		edit := middleware.RequirePermission(auth.PermissionEditInventory, logg)
		remove := middleware.RequirePermission(auth.PermissionDeleteInventory, logg)

		r.Route("/products", func(r chi.Router) {
			r.With(view).Get("/", controllers.ListProducts(productService, logg))
			r.With(edit).Post("/", controllers.CreateProduct(productService, logg))
			r.Route("/{productId}", func(r chi.Router) {
				r.With(view).Get("/", controllers.GetProduct(productService, logg))
				r.With(edit).Patch("/", controllers.UpdateProduct(productService, logg))
				r.With(remove).Delete("/", controllers.DeleteProduct(productService, logg))
				r.With(view).Get("/inventory", controllers.ProductInventory(productService, logg))
				r.With(view).Get("/variants", controllers.ProductAvailableVariants(variantService, logg))
				r.With(view).Get("/membership-types", controllers.ProductMembershipTypes(productService, logg))
				r.With(edit).Post("/assign", controllers.AssignProduct(variantService, logg))
			})
		})

		r.With(view).Get("/membership-types/{membershipTypeId}/products",
			controllers.MembershipTypeProducts(productService, logg))

		r.Route("/reports", func(r chi.Router) {
			r.Use(view)
			r.Get("/reorder", controllers.ReorderReport(productService, logg))
			r.Get("/defective", controllers.DefectiveReport(variantService, logg))
			r.Get("/expiring-warranties", controllers.ExpiringWarranties(variantService, logg))
		})

		r.Route("/variants", func(r chi.Router) {
			r.With(edit).Post("/", controllers.CreateVariant(variantService, logg))
			r.With(edit).Post("/batch-status", controllers.BatchUpdateVariantStatus(variantService, logg))
			r.Route("/{variantId}", func(r chi.Router) {
				r.With(view).Get("/", controllers.GetVariant(variantService, logg))
				r.With(edit).Patch("/", controllers.UpdateVariant(variantService, logg))
				r.With(edit).Post("/suspend", controllers.SuspendVariant(variantService, logg))
				r.With(edit).Post("/reactivate", controllers.ReactivateVariant(variantService, logg))
				r.With(edit).Post("/replace", controllers.ReplaceVariant(variantService, logg))
				r.With(view).Get("/changelog", controllers.VariantChangelog(variantService, logg))
			})
		})

		r.Route("/sales", func(r chi.Router) {
			r.With(view).Get("/", controllers.ListSales(saleService, logg))
			r.With(edit).Post("/", controllers.CreateSale(saleService, logg))
			r.With(view).Get("/needing-assignment", controllers.SalesNeedingAssignment(saleService, logg))
			r.With(view).Get("/statistics", controllers.SalesStatistics(saleService, logg))
			r.Route("/{saleId}", func(r chi.Router) {
				r.With(view).Get("/", controllers.GetSale(saleService, logg))
				r.With(edit).Post("/status", controllers.UpdateSaleStatus(saleService, logg))
				r.With(edit).Post("/assign", controllers.AssignSaleProducts(saleService, logg))
			})
		})

		r.With(view).Get("/dashboard", controllers.GetDashboard(dashboardService, logg))

		r.Route("/contacts/{contactId}/inventory", func(r chi.Router) {
			r.Use(view)
			r.Get("/", controllers.ContactInventory(variantService, logg))
			r.Get("/count", controllers.ContactInventoryCount(variantService, logg))
		})
	})

	return r
}

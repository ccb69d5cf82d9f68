package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/memberstock-backend/internal/hooks"
	"github.com/angelmondragon/memberstock-backend/internal/integration"
	"github.com/angelmondragon/memberstock-backend/internal/products"
	"github.com/angelmondragon/memberstock-backend/internal/sales"
	"github.com/angelmondragon/memberstock-backend/internal/variants"
	"github.com/angelmondragon/memberstock-backend/pkg/config"
	"github.com/angelmondragon/memberstock-backend/pkg/db"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
	"github.com/angelmondragon/memberstock-backend/pkg/metrics"
	"github.com/angelmondragon/memberstock-backend/pkg/pubsub"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "hooks-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "hooks-worker"

	logg = logger.New(logger.Options{
		ServiceName: "hooks-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	registry := prometheus.NewRegistry()
	hookMetrics := metrics.NewHookMetrics(registry)

	productService, err := products.NewService(products.NewRepository(dbClient.DB()), dbClient, logg)
	requireResource(ctx, logg, "product service", err)

	variantService, err := variants.NewService(variants.NewRepository(dbClient.DB()), dbClient, products.NewRepository(dbClient.DB()), logg, cfg.Inventory)
	requireResource(ctx, logg, "variant service", err)

	saleService, err := sales.NewService(sales.NewRepository(dbClient.DB()), variants.NewRepository(dbClient.DB()), dbClient, logg)
	requireResource(ctx, logg, "sale service", err)

	integrationService, err := integration.NewService(productService, variantService, saleService, logg)
	requireResource(ctx, logg, "integration service", err)

	dispatcher, err := hooks.NewDispatcher(integrationService, hookMetrics, logg)
	requireResource(ctx, logg, "hook dispatcher", err)

	consumer, err := hooks.NewConsumer(dispatcher, pubsubClient.HookSubscription(), logg)
	requireResource(ctx, logg, "hook consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
	})
	logg.Info(runCtx, "hooks worker ready")

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "hooks worker not working", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

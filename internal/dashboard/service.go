package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/memberstock-backend/internal/products"
	"github.com/angelmondragon/memberstock-backend/internal/sales"
	"github.com/angelmondragon/memberstock-backend/internal/variants"
	"github.com/angelmondragon/memberstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
)

const (
	recentSalesWindowDays = 7
	recentSalesLimit      = 10
	recentChangelogLimit  = 20
)

// Service assembles the admin dashboard payload.
type Service interface {
	GetDashboard(ctx context.Context) (*Dashboard, error)
}

type service struct {
	repo     *Repository
	products products.Service
	variants variants.Service
	sales    sales.Service
	log      *logger.Logger
	now      func() time.Time
}

// NewService constructs the dashboard service.
func NewService(repo *Repository, productSvc products.Service, variantSvc variants.Service, saleSvc sales.Service, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dashboard repository required")
	}
	if productSvc == nil {
		return nil, fmt.Errorf("product service required")
	}
	if variantSvc == nil {
		return nil, fmt.Errorf("variant service required")
	}
	if saleSvc == nil {
		return nil, fmt.Errorf("sale service required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		products: productSvc,
		variants: variantSvc,
		sales:    saleSvc,
		log:      log,
		now:      time.Now,
	}, nil
}

// GetDashboard gathers catalog, unit, order and alert summaries into one
// payload for the admin landing view.
func (s *service) GetDashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	dash := &Dashboard{GeneratedAt: now}

	counts, err := s.repo.ProductCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count products")
	}
	dash.Products = ProductStats{
		Total:        int(counts.Total),
		Active:       int(counts.Active),
		Serialized:   int(counts.Serialized),
		Discontinued: int(counts.Discontinued),
	}

	statusCounts, err := s.repo.VariantStatusCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count variants")
	}
	dash.Variants = buildVariantStats(statusCounts)

	for _, window := range []struct {
		period enums.StatsPeriod
		target *sales.Statistics
	}{
		{enums.StatsPeriodToday, &dash.Sales.Today},
		{enums.StatsPeriodWeek, &dash.Sales.Week},
		{enums.StatsPeriodMonth, &dash.Sales.Month},
	} {
		stats, err := s.sales.GetStatistics(ctx, window.period)
		if err != nil {
			return nil, err
		}
		*window.target = *stats
	}

	warehouses, err := s.repo.WarehouseStats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate warehouses")
	}
	dash.Warehouses = warehouses

	recent, err := s.repo.RecentSales(ctx, now.AddDate(0, 0, -recentSalesWindowDays), recentSalesLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent sales")
	}
	for i := range recent {
		dash.RecentSales = append(dash.RecentSales, *sales.NewSaleDTO(&recent[i]))
	}

	changelog, err := s.repo.RecentChangelog(ctx, recentChangelogLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent changelog")
	}
	for _, row := range changelog {
		dash.RecentChangelog = append(dash.RecentChangelog, ChangelogEntry{
			ID:              row.ID,
			VariantID:       row.VariantID,
			VariantUniqueID: row.VariantUniqueID,
			ProductLabel:    row.ProductLabel,
			Action:          row.Action,
			BatchID:         row.BatchID,
			CreatedAt:       row.CreatedAt,
		})
	}

	alerts, err := s.buildAlerts(ctx)
	if err != nil {
		return nil, err
	}
	dash.Alerts = *alerts

	return dash, nil
}

func (s *service) buildAlerts(ctx context.Context) (*Alerts, error) {
	reorder, err := s.products.GetReorderReport(ctx)
	if err != nil {
		return nil, err
	}
	expiring, err := s.variants.GetExpiringWarranties(ctx)
	if err != nil {
		return nil, err
	}
	defective, err := s.variants.GetDefectiveReport(ctx)
	if err != nil {
		return nil, err
	}
	needingAssignment, err := s.sales.GetSalesNeedingAssignment(ctx)
	if err != nil {
		return nil, err
	}
	return &Alerts{
		ReorderNeeded:          reorder,
		ExpiringWarranties:     expiring,
		DefectiveUnits:         defective,
		SalesNeedingAssignment: needingAssignment,
	}, nil
}

func buildVariantStats(rows []variantStatusCount) VariantStats {
	var stats VariantStats
	for _, row := range rows {
		switch enums.VariantStatus(row.Status) {
		case enums.VariantStatusAvailable:
			stats.Available = int(row.Count)
		case enums.VariantStatusAssigned:
			stats.Assigned = int(row.Count)
		case enums.VariantStatusActive:
			stats.Active = int(row.Count)
		case enums.VariantStatusSuspended:
			stats.Suspended = int(row.Count)
		case enums.VariantStatusDefective:
			stats.Defective = int(row.Count)
		case enums.VariantStatusSold:
			stats.Sold = int(row.Count)
		case enums.VariantStatusReplaced:
			stats.Replaced = int(row.Count)
		}
	}
	return stats
}

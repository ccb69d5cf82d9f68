package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/memberstock-backend/internal/variants"
	"github.com/angelmondragon/memberstock-backend/pkg/db"
	"github.com/angelmondragon/memberstock-backend/pkg/db/models"
	"github.com/angelmondragon/memberstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
)

// Service exposes order management operations.
type Service interface {
	CreateSale(ctx context.Context, input CreateSaleInput) (*SaleDTO, error)
	CreateFromContribution(ctx context.Context, contributionID, contactID int64, membershipID *int64, lines []SaleLineInput) (*SaleDTO, error)
	CreateFromMembershipRenewal(ctx context.Context, membershipID, contactID int64, contributionID *int64) (*SaleDTO, bool, error)
	GetSaleWithDetails(ctx context.Context, saleID uuid.UUID) (*SaleDTO, error)
	UpdateStatus(ctx context.Context, saleID uuid.UUID, status enums.SaleStatus) (*SaleDTO, error)
	AssignProducts(ctx context.Context, saleID uuid.UUID, assignments []AssignmentInput) (*SaleDTO, error)
	CompleteForContribution(ctx context.Context, contributionID int64) (int, error)
	GetSalesNeedingAssignment(ctx context.Context) ([]NeedingAssignmentRow, error)
	GetStatistics(ctx context.Context, period enums.StatsPeriod) (*Statistics, error)
	ListSales(ctx context.Context, input ListSalesInput) (*SaleListResult, error)
}

type service struct {
	repo        *Repository
	variantRepo *variants.Repository
	dbClient    *db.Client
	log         *logger.Logger
	now         func() time.Time
}

// NewService constructs an order service instance.
func NewService(repo *Repository, variantRepo *variants.Repository, dbClient *db.Client, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if variantRepo == nil {
		return nil, fmt.Errorf("variant repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		variantRepo: variantRepo,
		dbClient:    dbClient,
		log:         log,
		now:         time.Now,
	}, nil
}

// CreateSale opens an order with a freshly minted code and its line
// item snapshots.
func (s *service) CreateSale(ctx context.Context, input CreateSaleInput) (*SaleDTO, error) {
	if input.ContactID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact_id must be positive")
	}
	status := input.Status
	if status == "" {
		status = enums.SaleStatusPlaced
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sale status")
	}
	for _, line := range input.Lines {
		if err := validateLine(line); err != nil {
			return nil, err
		}
	}

	var createdID uuid.UUID
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		code, err := s.generateOrderCode(ctx, txRepo)
		if err != nil {
			return err
		}

		sale := &models.Sale{
			ID:                 uuid.New(),
			Code:               code,
			ContactID:          input.ContactID,
			ContributionID:     input.ContributionID,
			MembershipID:       input.MembershipID,
			Status:             status,
			IsShippingRequired: input.IsShippingRequired,
			NeedsAssignment:    input.NeedsAssignment,
			SaleDate:           s.now(),
		}
		if _, err := txRepo.Create(ctx, sale); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "order code collision")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert sale")
		}
		createdID = sale.ID

		for _, line := range input.Lines {
			if err := txRepo.CreateDetail(ctx, buildDetail(sale.ID, line, input.MembershipID)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert sale detail")
			}
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
	}

	return s.GetSaleWithDetails(ctx, createdID)
}

// CreateFromContribution opens a shipping order for a completed host
// contribution, queuing it for unit assignment.
func (s *service) CreateFromContribution(ctx context.Context, contributionID, contactID int64, membershipID *int64, lines []SaleLineInput) (*SaleDTO, error) {
	if contributionID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contribution_id must be positive")
	}
	return s.CreateSale(ctx, CreateSaleInput{
		ContactID:          contactID,
		ContributionID:     &contributionID,
		MembershipID:       membershipID,
		IsShippingRequired: true,
		NeedsAssignment:    true,
		Lines:              lines,
	})
}

// CreateFromMembershipRenewal opens a renewal order when the membership
// holds live units. The false return means no units, no order.
func (s *service) CreateFromMembershipRenewal(ctx context.Context, membershipID, contactID int64, contributionID *int64) (*SaleDTO, bool, error) {
	count, err := s.repo.CountActiveVariantsForMembership(ctx, membershipID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count membership variants")
	}
	if count == 0 {
		return nil, false, nil
	}

	sale, err := s.CreateSale(ctx, CreateSaleInput{
		ContactID:      contactID,
		ContributionID: contributionID,
		MembershipID:   &membershipID,
		Status:         enums.SaleStatusRenewal,
	})
	if err != nil {
		return nil, false, err
	}
	return sale, true, nil
}

// GetSaleWithDetails loads the order with line items.
func (s *service) GetSaleWithDetails(ctx context.Context, saleID uuid.UUID) (*SaleDTO, error) {
	sale, err := s.repo.GetWithDetails(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return NewSaleDTO(sale), nil
}

// UpdateStatus moves the order along its lifecycle. Shipping marks the
// order fulfilled; completion also marks it paid.
func (s *service) UpdateStatus(ctx context.Context, saleID uuid.UUID, status enums.SaleStatus) (*SaleDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sale status")
	}

	sale, err := s.repo.FindByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}

	if !sale.Status.CanTransitionTo(status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move sale from %s to %s", sale.Status, status))
	}

	sale.Status = status
	switch status {
	case enums.SaleStatusShipped:
		sale.IsFulfilled = true
	case enums.SaleStatusCompleted:
		sale.IsFulfilled = true
		sale.IsPaid = true
	}

	if _, err := s.repo.Update(ctx, sale); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update sale")
	}
	return s.GetSaleWithDetails(ctx, saleID)
}

// AssignProducts attaches pool units to the order's line items, marks
// the units sold, and flips the assignment flags.
func (s *service) AssignProducts(ctx context.Context, saleID uuid.UUID, assignments []AssignmentInput) (*SaleDTO, error) {
	if len(assignments) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignments is required")
	}

	sale, err := s.repo.FindByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txVariants := s.variantRepo.WithTx(tx)

		for _, assignment := range assignments {
			detail, err := txRepo.FindDetail(ctx, assignment.SaleDetailID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "sale detail not found")
				}
				return err
			}
			if detail.SaleID != saleID {
				return pkgerrors.New(pkgerrors.CodeValidation, "sale detail does not belong to sale")
			}

			variant, err := txVariants.FindByID(ctx, assignment.VariantID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
				}
				return err
			}
			if !variant.Status.CanTransitionTo(enums.VariantStatusSold) {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("variant %s cannot be sold from status %s", variant.ID, variant.Status))
			}

			if err := txRepo.SetDetailVariant(ctx, detail.ID, variant.ID); err != nil {
				return err
			}

			variant.SaleID = &saleID
			variant.Status = enums.VariantStatusSold
			variant.IsActive = false
			if _, err := txVariants.Update(ctx, variant); err != nil {
				return err
			}
			if err := txVariants.AppendChangelog(ctx, variant.ID, enums.ChangelogActionSell.String(), nil); err != nil {
				return err
			}
		}

		sale.HasAssignment = true
		sale.NeedsAssignment = false
		_, err := txRepo.Update(ctx, sale)
		return err
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign products")
	}

	return s.GetSaleWithDetails(ctx, saleID)
}

// CompleteForContribution closes every order tied to the contribution
// whose current status allows completion. Returns how many were closed.
func (s *service) CompleteForContribution(ctx context.Context, contributionID int64) (int, error) {
	if contributionID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "contribution_id must be positive")
	}

	rows, err := s.repo.ListByContribution(ctx, contributionID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales by contribution")
	}

	completed := 0
	for i := range rows {
		sale := &rows[i]
		if !sale.Status.CanTransitionTo(enums.SaleStatusCompleted) {
			continue
		}
		sale.Status = enums.SaleStatusCompleted
		sale.IsFulfilled = true
		sale.IsPaid = true
		if _, err := s.repo.Update(ctx, sale); err != nil {
			return completed, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update sale")
		}
		completed++
	}
	return completed, nil
}

// GetSalesNeedingAssignment returns the fulfillment queue oldest first.
func (s *service) GetSalesNeedingAssignment(ctx context.Context) ([]NeedingAssignmentRow, error) {
	rows, err := s.repo.ListNeedingAssignment(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales needing assignment")
	}
	return rows, nil
}

// GetStatistics aggregates order counts and value over the period.
func (s *service) GetStatistics(ctx context.Context, period enums.StatsPeriod) (*Statistics, error) {
	if !period.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid stats period")
	}

	record, err := s.repo.Statistics(ctx, period.WindowStart(s.now()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate statistics")
	}

	totalValue := decimal.Zero
	if record.TotalValue.Valid {
		totalValue = record.TotalValue.Decimal
	}

	return &Statistics{
		Period:         period,
		TotalSales:     int(record.TotalSales),
		CompletedSales: int(record.CompletedSales),
		ShippedSales:   int(record.ShippedSales),
		PendingSales:   int(record.PendingSales),
		TotalValue:     totalValue,
	}, nil
}

// ListSales pages through order headers newest first.
func (s *service) ListSales(ctx context.Context, input ListSalesInput) (*SaleListResult, error) {
	rows, nextCursor, err := s.repo.List(ctx, saleListQuery{
		Pagination: input.Pagination,
		ContactID:  input.ContactID,
		Status:     input.Status,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}

	dtos := make([]SaleDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewSaleDTO(&rows[i]))
	}
	return &SaleListResult{Sales: dtos, NextCursor: nextCursor}, nil
}

func validateLine(line SaleLineInput) error {
	if line.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
	}
	if line.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "line price must be non-negative")
	}
	if line.Title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "line title is required")
	}
	if line.LineType != "" && !line.LineType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid line type")
	}
	return nil
}

func buildDetail(saleID uuid.UUID, line SaleLineInput, membershipID *int64) *models.SaleDetail {
	lineType := line.LineType
	if lineType == "" {
		lineType = enums.SaleDetailTypeDevice
	}
	return &models.SaleDetail{
		ID:             uuid.New(),
		SaleID:         saleID,
		VariantID:      line.VariantID,
		WarehouseID:    line.WarehouseID,
		Quantity:       line.Quantity,
		PurchasePrice:  line.Price,
		ProductTitle:   line.Title,
		Subtitle:       line.Subtitle,
		LineType:       lineType,
		MembershipID:   membershipID,
		ContributionID: line.ContributionID,
	}
}

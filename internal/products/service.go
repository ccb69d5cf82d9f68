package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/memberstock-backend/pkg/db"
	"github.com/angelmondragon/memberstock-backend/pkg/db/models"
	"github.com/angelmondragon/memberstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
)

// Service exposes catalog management operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProductsForMembershipType(ctx context.Context, membershipTypeID int64) ([]ProductSummary, error)
	GetAutoAssignProducts(ctx context.Context, membershipTypeID int64) ([]ProductSummary, error)
	GetMembershipTypeMappings(ctx context.Context, productID uuid.UUID) ([]MembershipTypeMapping, error)
	GetInventoryStatus(ctx context.Context, productID uuid.UUID) (*InventoryStatus, error)
	UpdateInventoryAfterSale(ctx context.Context, productID uuid.UUID, quantity int) error
	GetReorderReport(ctx context.Context) ([]InventoryStatus, error)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	log      *logger.Logger
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, dbClient *db.Client, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, dbClient: dbClient, log: log}, nil
}

// CreateProduct creates the product with its membership-type mappings.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	input.Label = strings.TrimSpace(input.Label)
	input.Code = strings.TrimSpace(input.Code)

	if err := validateCatalogFields(input.Label, input.Code, input.ListedPrice, input.CurrentPrice); err != nil {
		return nil, err
	}
	if err := validateStockThresholds(input.MinimumStockLevel, input.MaximumStockLevel, input.ReorderPoint); err != nil {
		return nil, err
	}
	if input.QuantityAvailable < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity_available must be non-negative")
	}
	if err := ensureUniqueMembershipTypes(input.MembershipTypes); err != nil {
		return nil, err
	}
	if err := s.ensureCodeAvailable(ctx, input.Code, uuid.Nil); err != nil {
		return nil, err
	}

	var createdID uuid.UUID
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		product := &models.Product{
			ID:                uuid.New(),
			Label:             input.Label,
			Code:              input.Code,
			Description:       input.Description,
			Brand:             input.Brand,
			CategoryID:        input.CategoryID,
			WarehouseID:       input.WarehouseID,
			ListedPrice:       input.ListedPrice,
			CurrentPrice:      input.CurrentPrice,
			QuantityAvailable: input.QuantityAvailable,
			MinimumStockLevel: input.MinimumStockLevel,
			MaximumStockLevel: input.MaximumStockLevel,
			ReorderPoint:      input.ReorderPoint,
			UOM:               input.UOM,
			PackedWeight:      input.PackedWeight,
			PackedHeight:      input.PackedHeight,
			PackedWidth:       input.PackedWidth,
			PackedDepth:       input.PackedDepth,
			IsSerialized:      input.IsSerialized,
			IsActive:          input.IsActive,
		}

		created, err := txRepo.CreateProduct(ctx, product)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product code already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		createdID = created.ID

		if len(input.MembershipTypes) > 0 {
			rows := buildMembershipTypeRows(created.ID, input.MembershipTypes)
			if err := txRepo.ReplaceMembershipTypes(ctx, created.ID, rows); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replace membership types")
			}
		}

		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	product, err := s.repo.GetProductDetail(ctx, createdID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product detail")
	}
	return NewProductDTO(product), nil
}

// UpdateProduct updates an existing product and its mappings.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if input.Code != nil {
		code := strings.TrimSpace(*input.Code)
		if code == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "code cannot be empty")
		}
		if err := s.ensureCodeAvailable(ctx, code, productID); err != nil {
			return nil, err
		}
		input.Code = &code
	}
	if input.MembershipTypes != nil {
		if err := ensureUniqueMembershipTypes(*input.MembershipTypes); err != nil {
			return nil, err
		}
	}

	applyUpdateToProduct(product, input)

	if err := validateCatalogFields(product.Label, product.Code, product.ListedPrice, product.CurrentPrice); err != nil {
		return nil, err
	}
	if err := validateStockThresholds(product.MinimumStockLevel, product.MaximumStockLevel, product.ReorderPoint); err != nil {
		return nil, err
	}
	if product.QuantityAvailable < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity_available must be non-negative")
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if _, err := txRepo.UpdateProduct(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product code already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}

		if input.MembershipTypes != nil {
			rows := buildMembershipTypeRows(product.ID, *input.MembershipTypes)
			if err := txRepo.ReplaceMembershipTypes(ctx, product.ID, rows); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replace membership types")
			}
		}

		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	updated, err := s.repo.GetProductDetail(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product detail")
	}
	return NewProductDTO(updated), nil
}

// DeleteProduct removes a product plus its variants, changelogs and
// mappings. Products referenced by sale line items are never deleted.
func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	references, err := s.repo.CountSaleReferences(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count sale references")
	}
	if references > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "cannot delete product with existing sales records")
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.DeleteVariantChangelogs(ctx, productID); err != nil {
			return err
		}
		if err := txRepo.DeleteVariants(ctx, productID); err != nil {
			return err
		}
		if err := txRepo.DeleteMembershipTypes(ctx, productID); err != nil {
			return err
		}
		return txRepo.DeleteProductRow(ctx, productID)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

// GetProduct loads the catalog detail view.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.GetProductDetail(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(product), nil
}

// ListProducts pages through the catalog.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	result, err := s.repo.ListProductSummaries(ctx, productListQuery{
		Pagination: input.Pagination,
		Filters:    input.Filters,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return result, nil
}

// GetProductsForMembershipType lists products linked to the host membership type.
func (s *service) GetProductsForMembershipType(ctx context.Context, membershipTypeID int64) ([]ProductSummary, error) {
	rows, err := s.repo.ListByMembershipType(ctx, membershipTypeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products for membership type")
	}
	return toSummaries(rows), nil
}

// GetAutoAssignProducts lists products flagged for automatic assignment.
// The shipped configuration surface never sets the flag, so this returns
// an empty slice until an admin opts a mapping in.
func (s *service) GetAutoAssignProducts(ctx context.Context, membershipTypeID int64) ([]ProductSummary, error) {
	rows, err := s.repo.ListAutoAssignProducts(ctx, membershipTypeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list auto-assign products")
	}
	return toSummaries(rows), nil
}

// GetMembershipTypeMappings lists a product's membership-type links.
func (s *service) GetMembershipTypeMappings(ctx context.Context, productID uuid.UUID) ([]MembershipTypeMapping, error) {
	rows, err := s.repo.ListMembershipTypes(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list membership type mappings")
	}
	mappings := make([]MembershipTypeMapping, 0, len(rows))
	for _, row := range rows {
		mappings = append(mappings, NewMembershipTypeMapping(row))
	}
	return mappings, nil
}

// GetInventoryStatus classifies the product's stock position.
func (s *service) GetInventoryStatus(ctx context.Context, productID uuid.UUID) (*InventoryStatus, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return s.buildInventoryStatus(ctx, product)
}

// UpdateInventoryAfterSale decrements on-hand stock, clamping at zero.
func (s *service) UpdateInventoryAfterSale(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}
	if err := s.repo.DecrementQuantity(ctx, productID, quantity); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement quantity")
	}
	return nil
}

// GetReorderReport lists products at or below their reorder point.
func (s *service) GetReorderReport(ctx context.Context) ([]InventoryStatus, error) {
	rows, err := s.repo.ListNeedingReorder(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reorder candidates")
	}

	report := make([]InventoryStatus, 0, len(rows))
	for i := range rows {
		status, err := s.buildInventoryStatus(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		report = append(report, *status)
	}
	return report, nil
}

func (s *service) buildInventoryStatus(ctx context.Context, product *models.Product) (*InventoryStatus, error) {
	counts := VariantCounts{}
	if product.IsSerialized {
		var err error
		counts, err = s.repo.CountVariants(ctx, product.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count variants")
		}
	}

	available := product.QuantityAvailable
	if product.IsSerialized {
		available = counts.Available
	}

	return &InventoryStatus{
		ProductID:         product.ID,
		Label:             product.Label,
		Code:              product.Code,
		Status:            enums.ClassifyStock(available, product.MinimumStockLevel, product.MaximumStockLevel),
		QuantityAvailable: available,
		MinimumStockLevel: product.MinimumStockLevel,
		MaximumStockLevel: product.MaximumStockLevel,
		ReorderPoint:      product.ReorderPoint,
		NeedsReorder:      available <= product.ReorderPoint,
		VariantsAvailable: counts.Available,
		VariantsAssigned:  counts.Assigned,
	}, nil
}

func (s *service) ensureCodeAvailable(ctx context.Context, code string, selfID uuid.UUID) error {
	existing, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product code")
	}
	if existing.ID != selfID {
		return pkgerrors.New(pkgerrors.CodeConflict, "product code already exists")
	}
	return nil
}

func validateCatalogFields(label, code string, listed, current decimal.Decimal) error {
	if label == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "label is required")
	}
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if listed.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "listed_price must be non-negative")
	}
	if current.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "current_price must be non-negative")
	}
	return nil
}

func validateStockThresholds(minimum, maximum, reorderPoint int) error {
	if minimum < 0 || maximum < 0 || reorderPoint < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock thresholds must be non-negative")
	}
	if maximum > 0 && minimum >= maximum {
		return pkgerrors.New(pkgerrors.CodeValidation, "minimum_stock_level must be below maximum_stock_level")
	}
	if reorderPoint < minimum {
		return pkgerrors.New(pkgerrors.CodeValidation, "reorder_point must be at or above minimum_stock_level")
	}
	return nil
}

func ensureUniqueMembershipTypes(mappings []MembershipTypeInput) error {
	seen := make(map[int64]struct{}, len(mappings))
	for _, mapping := range mappings {
		if mapping.MembershipTypeID <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "membership_type_id must be positive")
		}
		if _, ok := seen[mapping.MembershipTypeID]; ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate membership_type_id")
		}
		seen[mapping.MembershipTypeID] = struct{}{}
	}
	return nil
}

func buildMembershipTypeRows(productID uuid.UUID, mappings []MembershipTypeInput) []models.ProductMembershipType {
	rows := make([]models.ProductMembershipType, 0, len(mappings))
	for _, mapping := range mappings {
		rows = append(rows, models.ProductMembershipType{
			ID:                  uuid.New(),
			ProductID:           productID,
			MembershipTypeID:    mapping.MembershipTypeID,
			IsSerializedForType: mapping.IsSerializedForType,
			AutoAssign:          mapping.AutoAssign,
		})
	}
	return rows
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) {
	if input.Label != nil {
		product.Label = strings.TrimSpace(*input.Label)
	}
	if input.Code != nil {
		product.Code = *input.Code
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Brand != nil {
		product.Brand = input.Brand
	}
	if input.CategoryID != nil {
		product.CategoryID = input.CategoryID
	}
	if input.WarehouseID != nil {
		product.WarehouseID = input.WarehouseID
	}
	if input.ListedPrice != nil {
		product.ListedPrice = *input.ListedPrice
	}
	if input.CurrentPrice != nil {
		product.CurrentPrice = *input.CurrentPrice
	}
	if input.QuantityAvailable != nil {
		product.QuantityAvailable = *input.QuantityAvailable
	}
	if input.MinimumStockLevel != nil {
		product.MinimumStockLevel = *input.MinimumStockLevel
	}
	if input.MaximumStockLevel != nil {
		product.MaximumStockLevel = *input.MaximumStockLevel
	}
	if input.ReorderPoint != nil {
		product.ReorderPoint = *input.ReorderPoint
	}
	if input.UOM != nil {
		product.UOM = input.UOM
	}
	if input.PackedWeight != nil {
		product.PackedWeight = input.PackedWeight
	}
	if input.PackedHeight != nil {
		product.PackedHeight = input.PackedHeight
	}
	if input.PackedWidth != nil {
		product.PackedWidth = input.PackedWidth
	}
	if input.PackedDepth != nil {
		product.PackedDepth = input.PackedDepth
	}
	if input.IsSerialized != nil {
		product.IsSerialized = *input.IsSerialized
	}
	if input.IsDiscontinued != nil {
		product.IsDiscontinued = *input.IsDiscontinued
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
}

package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/memberstock-backend/api/responses"
	"github.com/angelmondragon/memberstock-backend/api/validators"
	productsvc "github.com/angelmondragon/memberstock-backend/internal/products"
	variantsvc "github.com/angelmondragon/memberstock-backend/internal/variants"
	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
	"github.com/angelmondragon/memberstock-backend/pkg/pagination"
)

// CreateProduct registers a catalog entry with its membership-type mappings.
func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// UpdateProduct applies a partial catalog mutation.
func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), productID, payload.toUpdateInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// DeleteProduct removes a product that has no sale history.
func DeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

// GetProduct returns the catalog detail view.
func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ListProducts pages through the catalog with optional filters.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := parseProductFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), productsvc.ListProductsInput{
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
			Filters: filters,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ProductInventory reports the product's stock classification.
func ProductInventory(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.GetInventoryStatus(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}

// ProductAvailableVariants lists the unassigned unit pool for a product.
func ProductAvailableVariants(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variants, err := svc.GetAvailableVariants(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"variants": variants})
	}
}

// AssignProduct claims an available unit from the product's pool for a contact.
func AssignProduct(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, assigned, err := svc.AssignToContact(r.Context(), productID, payload.ContactID, payload.MembershipID, variantsvc.AssignOptions{
			PhoneNumber:       payload.PhoneNumber,
			WarrantyStartDate: payload.WarrantyStartDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !assigned {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeConflict, "no available unit for requested product"))
			return
		}

		responses.WriteSuccess(w, variant)
	}
}

// ProductMembershipTypes lists a product's membership-type links.
func ProductMembershipTypes(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mappings, err := svc.GetMembershipTypeMappings(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"membership_types": mappings})
	}
}

// MembershipTypeProducts lists products linked to a host membership type.
func MembershipTypeProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		membershipTypeID, err := pathInt64(r, "membershipTypeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, err := svc.GetProductsForMembershipType(r.Context(), membershipTypeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}

// ReorderReport lists products at or below their reorder point.
func ReorderReport(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.GetReorderReport(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"products": report})
	}
}

type createProductRequest struct {
	Label             string                      `json:"label" validate:"required"`
	Code              string                      `json:"code" validate:"required"`
	Description       *string                     `json:"description,omitempty"`
	Brand             *string                     `json:"brand,omitempty"`
	CategoryID        *string                     `json:"category_id,omitempty"`
	WarehouseID       *string                     `json:"warehouse_id,omitempty"`
	ListedPrice       decimal.Decimal             `json:"listed_price"`
	CurrentPrice      decimal.Decimal             `json:"current_price"`
	QuantityAvailable int                         `json:"quantity_available" validate:"min=0"`
	MinimumStockLevel int                         `json:"minimum_stock_level" validate:"min=0"`
	MaximumStockLevel int                         `json:"maximum_stock_level" validate:"min=0"`
	ReorderPoint      int                         `json:"reorder_point" validate:"min=0"`
	UOM               *string                     `json:"uom,omitempty"`
	PackedWeight      *float64                    `json:"packed_weight,omitempty" validate:"omitempty,gte=0"`
	PackedHeight      *float64                    `json:"packed_height,omitempty" validate:"omitempty,gte=0"`
	PackedWidth       *float64                    `json:"packed_width,omitempty" validate:"omitempty,gte=0"`
	PackedDepth       *float64                    `json:"packed_depth,omitempty" validate:"omitempty,gte=0"`
	IsSerialized      bool                        `json:"is_serialized"`
	IsActive          *bool                       `json:"is_active,omitempty"`
	MembershipTypes   []membershipMappingRequest  `json:"membership_types,omitempty"`
}

type membershipMappingRequest struct {
	MembershipTypeID    int64 `json:"membership_type_id" validate:"required,min=1"`
	IsSerializedForType bool  `json:"is_serialized_for_type"`
	AutoAssign          bool  `json:"auto_assign"`
}

func (req createProductRequest) toCreateInput() (productsvc.CreateProductInput, error) {
	categoryID, err := optionalUUID(req.CategoryID, "category_id")
	if err != nil {
		return productsvc.CreateProductInput{}, err
	}
	warehouseID, err := optionalUUID(req.WarehouseID, "warehouse_id")
	if err != nil {
		return productsvc.CreateProductInput{}, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	mappings := make([]productsvc.MembershipTypeInput, 0, len(req.MembershipTypes))
	for _, mapping := range req.MembershipTypes {
		mappings = append(mappings, productsvc.MembershipTypeInput{
			MembershipTypeID:    mapping.MembershipTypeID,
			IsSerializedForType: mapping.IsSerializedForType,
			AutoAssign:          mapping.AutoAssign,
		})
	}

	return productsvc.CreateProductInput{
		Label:             strings.TrimSpace(req.Label),
		Code:              strings.TrimSpace(req.Code),
		Description:       req.Description,
		Brand:             req.Brand,
		CategoryID:        categoryID,
		WarehouseID:       warehouseID,
		ListedPrice:       req.ListedPrice,
		CurrentPrice:      req.CurrentPrice,
		QuantityAvailable: req.QuantityAvailable,
		MinimumStockLevel: req.MinimumStockLevel,
		MaximumStockLevel: req.MaximumStockLevel,
		ReorderPoint:      req.ReorderPoint,
		UOM:               req.UOM,
		PackedWeight:      req.PackedWeight,
		PackedHeight:      req.PackedHeight,
		PackedWidth:       req.PackedWidth,
		PackedDepth:       req.PackedDepth,
		IsSerialized:      req.IsSerialized,
		IsActive:          isActive,
		MembershipTypes:   mappings,
	}, nil
}

type updateProductRequest struct {
	Label             *string                     `json:"label,omitempty"`
	Code              *string                     `json:"code,omitempty"`
	Description       *string                     `json:"description,omitempty"`
	Brand             *string                     `json:"brand,omitempty"`
	CategoryID        *uuid.UUID                  `json:"category_id,omitempty"`
	WarehouseID       *uuid.UUID                  `json:"warehouse_id,omitempty"`
	ListedPrice       *decimal.Decimal            `json:"listed_price,omitempty"`
	CurrentPrice      *decimal.Decimal            `json:"current_price,omitempty"`
	QuantityAvailable *int                        `json:"quantity_available,omitempty" validate:"omitempty,min=0"`
	MinimumStockLevel *int                        `json:"minimum_stock_level,omitempty" validate:"omitempty,min=0"`
	MaximumStockLevel *int                        `json:"maximum_stock_level,omitempty" validate:"omitempty,min=0"`
	ReorderPoint      *int                        `json:"reorder_point,omitempty" validate:"omitempty,min=0"`
	UOM               *string                     `json:"uom,omitempty"`
	PackedWeight      *float64                    `json:"packed_weight,omitempty" validate:"omitempty,gte=0"`
	PackedHeight      *float64                    `json:"packed_height,omitempty" validate:"omitempty,gte=0"`
	PackedWidth       *float64                    `json:"packed_width,omitempty" validate:"omitempty,gte=0"`
	PackedDepth       *float64                    `json:"packed_depth,omitempty" validate:"omitempty,gte=0"`
	IsSerialized      *bool                       `json:"is_serialized,omitempty"`
	IsDiscontinued    *bool                       `json:"is_discontinued,omitempty"`
	IsActive          *bool                       `json:"is_active,omitempty"`
	MembershipTypes   *[]membershipMappingRequest `json:"membership_types,omitempty"`
}

func (req updateProductRequest) toUpdateInput() productsvc.UpdateProductInput {
	input := productsvc.UpdateProductInput{
		Label:             req.Label,
		Code:              req.Code,
		Description:       req.Description,
		Brand:             req.Brand,
		CategoryID:        req.CategoryID,
		WarehouseID:       req.WarehouseID,
		ListedPrice:       req.ListedPrice,
		CurrentPrice:      req.CurrentPrice,
		QuantityAvailable: req.QuantityAvailable,
		MinimumStockLevel: req.MinimumStockLevel,
		MaximumStockLevel: req.MaximumStockLevel,
		ReorderPoint:      req.ReorderPoint,
		UOM:               req.UOM,
		PackedWeight:      req.PackedWeight,
		PackedHeight:      req.PackedHeight,
		PackedWidth:       req.PackedWidth,
		PackedDepth:       req.PackedDepth,
		IsSerialized:      req.IsSerialized,
		IsDiscontinued:    req.IsDiscontinued,
		IsActive:          req.IsActive,
	}
	if req.MembershipTypes != nil {
		mappings := make([]productsvc.MembershipTypeInput, 0, len(*req.MembershipTypes))
		for _, mapping := range *req.MembershipTypes {
			mappings = append(mappings, productsvc.MembershipTypeInput{
				MembershipTypeID:    mapping.MembershipTypeID,
				IsSerializedForType: mapping.IsSerializedForType,
				AutoAssign:          mapping.AutoAssign,
			})
		}
		input.MembershipTypes = &mappings
	}
	return input
}

type assignProductRequest struct {
	ContactID         int64      `json:"contact_id" validate:"required,min=1"`
	MembershipID      *int64     `json:"membership_id,omitempty" validate:"omitempty,min=1"`
	PhoneNumber       *string    `json:"phone_number,omitempty"`
	WarrantyStartDate *time.Time `json:"warranty_start_date,omitempty"`
}

func parseProductFilters(r *http.Request) (productsvc.ProductListFilters, error) {
	query := r.URL.Query()
	filters := productsvc.ProductListFilters{
		Query: validators.SanitizeString(query.Get("q"), 120),
	}

	if raw := strings.TrimSpace(query.Get("category_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category_id")
		}
		filters.CategoryID = &id
	}
	if raw := strings.TrimSpace(query.Get("warehouse_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid warehouse_id")
		}
		filters.WarehouseID = &id
	}
	if raw := strings.TrimSpace(query.Get("membership_type_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid membership_type_id")
		}
		filters.MembershipTypeID = &id
	}

	for key, target := range map[string]**bool{
		"is_serialized":   &filters.IsSerialized,
		"is_active":       &filters.IsActive,
		"is_discontinued": &filters.IsDiscontinued,
	} {
		raw := strings.TrimSpace(query.Get(key))
		if raw == "" {
			continue
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be boolean").
				WithDetails(map[string]any{"field": key})
		}
		*target = &value
	}

	return filters, nil
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}

func pathInt64(r *http.Request, key string) (int64, error) {
	raw := chi.URLParam(r, key)
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+key)
	}
	return value, nil
}

func optionalUUID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return &id, nil
}

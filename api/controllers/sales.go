package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/memberstock-backend/api/responses"
	"github.com/angelmondragon/memberstock-backend/api/validators"
	salesvc "github.com/angelmondragon/memberstock-backend/internal/sales"
	"github.com/angelmondragon/memberstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
	"github.com/angelmondragon/memberstock-backend/pkg/pagination"
)

// ListSales pages through order headers with optional filters.
func ListSales(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := salesvc.ListSalesInput{
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("contact_id")); raw != "" {
			contactID, err := parseQueryInt64(raw, "contact_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.ContactID = &contactID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseSaleStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &status
		}

		result, err := svc.ListSales(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// CreateSale opens an order with its line item snapshots.
func CreateSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.CreateSale(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

// GetSale returns the order header with its line items.
func GetSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := pathUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.GetSaleWithDetails(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}

// UpdateSaleStatus moves the order through its lifecycle.
func UpdateSaleStatus(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := pathUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload saleStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseSaleStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		sale, err := svc.UpdateStatus(r.Context(), saleID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}

// AssignSaleProducts pairs pending line items with serialized units.
func AssignSaleProducts(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := pathUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignments := make([]salesvc.AssignmentInput, 0, len(payload.Assignments))
		for _, row := range payload.Assignments {
			detailID, err := uuid.Parse(strings.TrimSpace(row.SaleDetailID))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sale_detail_id"))
				return
			}
			variantID, err := uuid.Parse(strings.TrimSpace(row.VariantID))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant_id"))
				return
			}
			assignments = append(assignments, salesvc.AssignmentInput{
				SaleDetailID: detailID,
				VariantID:    variantID,
			})
		}

		sale, err := svc.AssignProducts(r.Context(), saleID, assignments)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}

// SalesNeedingAssignment lists the fulfillment queue.
func SalesNeedingAssignment(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.GetSalesNeedingAssignment(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"sales": rows})
	}
}

// SalesStatistics summarizes orders over the requested period.
func SalesStatistics(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period := enums.StatsPeriodToday
		if raw := strings.TrimSpace(r.URL.Query().Get("period")); raw != "" {
			parsed, err := enums.ParseStatsPeriod(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid period"))
				return
			}
			period = parsed
		}

		stats, err := svc.GetStatistics(r.Context(), period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}

type createSaleRequest struct {
	ContactID          int64                   `json:"contact_id" validate:"required,min=1"`
	ContributionID     *int64                  `json:"contribution_id,omitempty" validate:"omitempty,min=1"`
	MembershipID       *int64                  `json:"membership_id,omitempty" validate:"omitempty,min=1"`
	IsShippingRequired bool                    `json:"is_shipping_required"`
	NeedsAssignment    bool                    `json:"needs_assignment"`
	Status             *string                 `json:"status,omitempty"`
	Lines              []createSaleLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type createSaleLineRequest struct {
	VariantID      *string         `json:"variant_id,omitempty"`
	WarehouseID    *string         `json:"warehouse_id,omitempty"`
	Quantity       int             `json:"quantity" validate:"required,min=1"`
	Price          decimal.Decimal `json:"price"`
	Title          string          `json:"title" validate:"required"`
	Subtitle       *string         `json:"subtitle,omitempty"`
	LineType       string          `json:"line_type" validate:"required"`
	ContributionID *int64          `json:"contribution_id,omitempty" validate:"omitempty,min=1"`
}

func (req createSaleRequest) toCreateInput() (salesvc.CreateSaleInput, error) {
	input := salesvc.CreateSaleInput{
		ContactID:          req.ContactID,
		ContributionID:     req.ContributionID,
		MembershipID:       req.MembershipID,
		IsShippingRequired: req.IsShippingRequired,
		NeedsAssignment:    req.NeedsAssignment,
	}

	if req.Status != nil {
		status, err := enums.ParseSaleStatus(strings.TrimSpace(*req.Status))
		if err != nil {
			return salesvc.CreateSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		input.Status = status
	}

	for _, line := range req.Lines {
		lineType, err := enums.ParseSaleDetailType(strings.TrimSpace(line.LineType))
		if err != nil {
			return salesvc.CreateSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line_type")
		}

		variantID, err := optionalUUID(line.VariantID, "variant_id")
		if err != nil {
			return salesvc.CreateSaleInput{}, err
		}
		warehouseID, err := optionalUUID(line.WarehouseID, "warehouse_id")
		if err != nil {
			return salesvc.CreateSaleInput{}, err
		}

		input.Lines = append(input.Lines, salesvc.SaleLineInput{
			VariantID:      variantID,
			WarehouseID:    warehouseID,
			Quantity:       line.Quantity,
			Price:          line.Price,
			Title:          strings.TrimSpace(line.Title),
			Subtitle:       line.Subtitle,
			LineType:       lineType,
			ContributionID: line.ContributionID,
		})
	}

	return input, nil
}

type saleStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type assignSaleRequest struct {
	Assignments []assignSaleRow `json:"assignments" validate:"required,min=1,dive"`
}

type assignSaleRow struct {
	SaleDetailID string `json:"sale_detail_id" validate:"required"`
	VariantID    string `json:"variant_id" validate:"required"`
}

func parseQueryInt64(raw, field string) (int64, error) {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a positive integer").
			WithDetails(map[string]any{"field": field})
	}
	return value, nil
}

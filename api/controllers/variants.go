package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/memberstock-backend/api/responses"
	"github.com/angelmondragon/memberstock-backend/api/validators"
	variantsvc "github.com/angelmondragon/memberstock-backend/internal/variants"
	"github.com/angelmondragon/memberstock-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
)

const maxChangelogLimit = 200

// CreateVariant registers a serialized unit into the product's pool.
func CreateVariant(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createVariantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(strings.TrimSpace(payload.ProductID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product_id"))
			return
		}

		variant, err := svc.CreateVariant(r.Context(), variantsvc.CreateVariantInput{
			ProductID:         productID,
			UniqueID:          strings.TrimSpace(payload.UniqueID),
			PhoneNumber:       payload.PhoneNumber,
			Details:           payload.Details,
			WarrantyStartDate: payload.WarrantyStartDate,
			WarrantyEndDate:   payload.WarrantyEndDate,
			IsPrimary:         payload.IsPrimary,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, variant)
	}
}

// GetVariant returns a single unit with its product summary.
func GetVariant(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := pathUUID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.GetVariant(r.Context(), variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, variant)
	}
}

// UpdateVariant applies a partial mutation to a unit.
func UpdateVariant(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := pathUUID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateVariantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.UpdateVariant(r.Context(), variantID, variantsvc.UpdateVariantInput{
			PhoneNumber:       payload.PhoneNumber,
			Details:           payload.Details,
			WarrantyStartDate: payload.WarrantyStartDate,
			WarrantyEndDate:   payload.WarrantyEndDate,
			IsPrimary:         payload.IsPrimary,
			IsProblem:         payload.IsProblem,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, variant)
	}
}

// SuspendVariant pauses service on an assigned unit.
func SuspendVariant(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := pathUUID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload statusReasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Suspend(r.Context(), variantID, strings.TrimSpace(payload.Reason)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"suspended": true})
	}
}

// ReactivateVariant resumes service on a suspended unit.
func ReactivateVariant(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := pathUUID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload statusReasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Reactivate(r.Context(), variantID, strings.TrimSpace(payload.Reason)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"reactivated": true})
	}
}

// ReplaceVariant swaps a unit for a specific or pool-claimed replacement.
func ReplaceVariant(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := pathUUID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload replaceVariantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := variantsvc.ReplaceInput{
			IsWarranty: payload.IsWarranty,
			Source:     payload.Source,
		}
		if payload.NewVariantID != nil {
			newID, err := uuid.Parse(strings.TrimSpace(*payload.NewVariantID))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid new_variant_id"))
				return
			}
			input.NewVariantID = &newID
		}

		replacement, err := svc.Replace(r.Context(), variantID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, replacement)
	}
}

// BatchUpdateVariantStatus moves a set of units to one status under a
// shared batch id.
func BatchUpdateVariantStatus(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload batchStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseVariantStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		ids := make([]uuid.UUID, 0, len(payload.VariantIDs))
		for _, raw := range payload.VariantIDs {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant id"))
				return
			}
			ids = append(ids, id)
		}

		result, err := svc.BatchUpdateStatus(r.Context(), ids, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// VariantChangelog lists a unit's audit trail, newest first.
func VariantChangelog(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := pathUUID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, maxChangelogLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.GetChangelog(r.Context(), variantID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"changelog": entries})
	}
}

// DefectiveReport lists units flagged as defective or problematic.
func DefectiveReport(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variants, err := svc.GetDefectiveReport(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"variants": variants})
	}
}

// ExpiringWarranties lists assigned units whose warranty window is closing.
func ExpiringWarranties(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variants, err := svc.GetExpiringWarranties(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"variants": variants})
	}
}

type createVariantRequest struct {
	ProductID         string     `json:"product_id" validate:"required"`
	UniqueID          string     `json:"unique_id" validate:"required"`
	PhoneNumber       *string    `json:"phone_number,omitempty"`
	Details           *string    `json:"details,omitempty"`
	WarrantyStartDate *time.Time `json:"warranty_start_date,omitempty"`
	WarrantyEndDate   *time.Time `json:"warranty_end_date,omitempty"`
	IsPrimary         bool       `json:"is_primary"`
}

type updateVariantRequest struct {
	PhoneNumber       *string    `json:"phone_number,omitempty"`
	Details           *string    `json:"details,omitempty"`
	WarrantyStartDate *time.Time `json:"warranty_start_date,omitempty"`
	WarrantyEndDate   *time.Time `json:"warranty_end_date,omitempty"`
	IsPrimary         *bool      `json:"is_primary,omitempty"`
	IsProblem         *bool      `json:"is_problem,omitempty"`
}

type statusReasonRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type replaceVariantRequest struct {
	NewVariantID *string `json:"new_variant_id,omitempty"`
	IsWarranty   bool    `json:"is_warranty"`
	Source       *string `json:"source,omitempty"`
}

type batchStatusRequest struct {
	VariantIDs []string `json:"variant_ids" validate:"required,min=1,dive,required"`
	Status     string   `json:"status" validate:"required"`
}

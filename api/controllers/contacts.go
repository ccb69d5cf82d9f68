package controllers

import (
	"net/http"

	"github.com/angelmondragon/memberstock-backend/api/responses"
	variantsvc "github.com/angelmondragon/memberstock-backend/internal/variants"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
)

// ContactInventory lists the units currently assigned to a contact.
func ContactInventory(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contactID, err := pathInt64(r, "contactId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variants, err := svc.GetContactInventory(r.Context(), contactID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"variants": variants})
	}
}

// ContactInventoryCount returns how many units a contact holds.
func ContactInventoryCount(svc variantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contactID, err := pathInt64(r, "contactId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := svc.CountContactInventory(r.Context(), contactID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"count": count})
	}
}

package controllers

import (
	"net/http"

	"github.com/angelmondragon/memberstock-backend/api/responses"
	dashboardsvc "github.com/angelmondragon/memberstock-backend/internal/dashboard"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
)

// GetDashboard returns the admin landing summary.
func GetDashboard(svc dashboardsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dash, err := svc.GetDashboard(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dash)
	}
}

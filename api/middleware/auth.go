package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/memberstock-backend/api/responses"
	pkgAuth "github.com/angelmondragon/memberstock-backend/pkg/auth"
	"github.com/angelmondragon/memberstock-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
)

// Auth validates a host-issued bearer token and seeds the request
// context with the contact and permission claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithContactID(r.Context(), claims.ContactID)
			ctx = WithPermissions(ctx, claims.Permissions)

			if logg != nil {
				ctx = logg.WithContactID(ctx, claims.ContactID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

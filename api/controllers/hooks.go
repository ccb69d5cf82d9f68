package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/memberstock-backend/api/responses"
	"github.com/angelmondragon/memberstock-backend/internal/hooks"
	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
	"github.com/angelmondragon/memberstock-backend/pkg/logger"
)

const hookSignatureHeader = "X-MemberStock-Signature"

// CRMHook ingests membership and contribution events posted by the host
// CRM. Handler failures are acknowledged anyway so the CRM does not
// retry forever; the error lands in the logs and metrics instead.
func CRMHook(dispatcher *hooks.Dispatcher, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if dispatcher == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hook dispatcher unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if secret != "" {
			signature := strings.TrimSpace(r.Header.Get(hookSignatureHeader))
			if signature == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "hook signature missing"))
				return
			}
			if !validateHookSignature(body, secret, signature) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid hook signature"))
				return
			}
		}

		var payload hooks.Payload
		if err := json.Unmarshal(body, &payload); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode hook payload"))
			return
		}
		if strings.TrimSpace(payload.Event) == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event is required"))
			return
		}

		accepted := true
		if err := dispatcher.Dispatch(ctx, payload); err != nil {
			accepted = false
		}

		responses.WriteSuccess(w, map[string]any{
			"event":    payload.Event,
			"accepted": accepted,
		})
	}
}

func validateHookSignature(body []byte, secret, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

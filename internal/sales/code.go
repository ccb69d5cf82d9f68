package sales

import (
	"context"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/memberstock-backend/pkg/errors"
)

const (
	orderCodePrefix      = "ORD-"
	orderCodeMaxAttempts = 10
)

// newOrderCodeToken returns an uppercase hex token derived from the
// microsecond clock, matching the legacy order code shape.
func newOrderCodeToken(now time.Time) string {
	return strings.ToUpper(strconv.FormatInt(now.UnixMicro(), 16))
}

// generateOrderCode mints a code and re-checks uniqueness, looping with a
// fresh clock reading until an unused code lands.
func (s *service) generateOrderCode(ctx context.Context, repo *Repository) (string, error) {
	for attempt := 0; attempt < orderCodeMaxAttempts; attempt++ {
		code := orderCodePrefix + newOrderCodeToken(s.now())
		exists, err := repo.CodeExists(ctx, code)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order code")
		}
		if !exists {
			return code, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeDependency, "order code generation exhausted attempts")
}

package middleware

import "context"

type contextKey string

const (
	ctxContactID   contextKey = "contact_id"
	ctxPermissions contextKey = "permissions"
)

// ContactIDFromContext returns the authenticated contact, 0 when absent.
func ContactIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxContactID).(int64); ok {
		return v
	}
	return 0
}

// PermissionsFromContext returns the token's permission grants.
func PermissionsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxPermissions).([]string); ok {
		return v
	}
	return nil
}

// HasPermission reports whether the request carries the permission.
func HasPermission(ctx context.Context, permission string) bool {
	for _, granted := range PermissionsFromContext(ctx) {
		if granted == permission {
			return true
		}
	}
	return false
}

// WithContactID injects the contact identifier into the context.
func WithContactID(ctx context.Context, contactID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxContactID, contactID)
}

// WithPermissions injects the permission grants into the context.
func WithPermissions(ctx context.Context, permissions []string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPermissions, permissions)
}

package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Inventory permissions carried on host-issued tokens.
const (
	PermissionViewInventory   = "view_inventory"
	PermissionEditInventory   = "edit_inventory"
	PermissionDeleteInventory = "delete_inventory"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	ContactID   int64
	DisplayName string
	Permissions []string
	JTI         string
}

// AccessTokenClaims represents the typed JWT the host CRM issues for
// the inventory API.
type AccessTokenClaims struct {
	ContactID   int64    `json:"contact_id"`
	DisplayName string   `json:"display_name,omitempty"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// HasPermission reports whether the token carries the permission.
func (c *AccessTokenClaims) HasPermission(permission string) bool {
	if c == nil {
		return false
	}
	for _, granted := range c.Permissions {
		if granted == permission {
			return true
		}
	}
	return false
}

package enums

import "fmt"

// SaleDetailType labels what kind of line item a sale detail row holds.
type SaleDetailType string

const (
	SaleDetailTypeDevice            SaleDetailType = "device"
	SaleDetailTypeMembershipProduct SaleDetailType = "membership_product"
	SaleDetailTypeAccessory         SaleDetailType = "accessory"
	SaleDetailTypeShipping          SaleDetailType = "shipping"
)

var validSaleDetailTypes = []SaleDetailType{
	SaleDetailTypeDevice,
	SaleDetailTypeMembershipProduct,
	SaleDetailTypeAccessory,
	SaleDetailTypeShipping,
}

// String implements fmt.Stringer.
func (s SaleDetailType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleDetailType.
func (s SaleDetailType) IsValid() bool {
	for _, candidate := range validSaleDetailTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleDetailType converts raw input into a SaleDetailType.
func ParseSaleDetailType(value string) (SaleDetailType, error) {
	for _, candidate := range validSaleDetailTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale detail type %q", value)
}

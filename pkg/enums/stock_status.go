package enums

// StockStatus classifies a product's on-hand quantity against its
// configured thresholds. Classification precedence is out_of_stock,
// low_stock, overstock, then in_stock.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
	StockStatusOverstock  StockStatus = "overstock"
)

// String implements fmt.Stringer.
func (s StockStatus) String() string {
	return string(s)
}

// ClassifyStock derives the status for an available quantity given the
// minimum and maximum thresholds. Stock at or above the maximum counts
// as overstock; a zero maximum disables the overstock check.
func ClassifyStock(available, minimum, maximum int) StockStatus {
	switch {
	case available <= 0:
		return StockStatusOutOfStock
	case available <= minimum:
		return StockStatusLowStock
	case maximum > 0 && available >= maximum:
		return StockStatusOverstock
	default:
		return StockStatusInStock
	}
}

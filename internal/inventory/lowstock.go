package inventory

import "github.com/stockypocky/stockyweb/internal/model"

// LowStockRatio is the quantity/threshold ratio at or below which an item
// counts as low.
const LowStockRatio = 0.2

// IsLowStock reports whether quantity is at most 20% of threshold.
//
// A threshold of zero or less means the item has no restock target, so it is
// never reported as low regardless of quantity.
func IsLowStock(quantity, threshold int) bool {
	if threshold <= 0 {
		return false
	}
	return float64(quantity)/float64(threshold) <= LowStockRatio
}

// LowStockItems keeps the rows of list that are low on stock, in order.
func LowStockItems(list []model.ItemListDisplay) []model.ItemListDisplay {
	result := make([]model.ItemListDisplay, 0)
	for _, d := range list {
		if IsLowStock(d.StockQuantity, d.Threshold) {
			result = append(result, d)
		}
	}
	return result
}

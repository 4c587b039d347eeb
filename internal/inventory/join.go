package inventory

import "github.com/stockypocky/stockyweb/internal/model"

// UncategorizedName is shown for items whose category no longer exists.
const UncategorizedName = "未分類"

// JoinItems flattens items with their category name and stock row. Output
// order follows items; nothing is dropped. Missing references fall back to
// defaults instead of failing.
func JoinItems(items []model.Item, categories []model.Category, stocks []model.Stock) []model.ItemListDisplay {
	categoryNames := make(map[int64]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}
	stockByItem := make(map[int64]model.Stock, len(stocks))
	for _, s := range stocks {
		stockByItem[s.ItemID] = s
	}

	result := make([]model.ItemListDisplay, 0, len(items))
	for _, item := range items {
		d := model.ItemListDisplay{
			ID:           item.ID,
			Name:         item.Name,
			CategoryID:   item.CategoryID,
			CategoryName: UncategorizedName,
			IsFavorite:   item.IsFavorite,
			ImageURL:     item.ImageURL,
		}
		if name, ok := categoryNames[item.CategoryID]; ok {
			d.CategoryName = name
		}
		if s, ok := stockByItem[item.ID]; ok {
			d.StockQuantity = s.Quantity
			d.Threshold = s.Threshold
			d.Location = s.Location
		}
		result = append(result, d)
	}
	return result
}

// JoinShoppingList attaches item details to shopping list entries.
func JoinShoppingList(items []model.Item, entries []model.ShoppingListEntry) []model.ShoppingListDisplay {
	byID := indexItems(items)
	result := make([]model.ShoppingListDisplay, 0, len(entries))
	for _, e := range entries {
		d := model.ShoppingListDisplay{
			ID:       e.ID,
			Quantity: e.Quantity,
			Checked:  e.Checked,
			ItemID:   e.ItemID,
			AddedAt:  e.AddedAt,
		}
		if item, ok := byID[e.ItemID]; ok {
			d.Name = item.Name
			d.ImageURL = item.ImageURL
			d.Notes = item.Notes
		}
		result = append(result, d)
	}
	return result
}

// JoinShoppingRecords attaches item details to purchase records.
func JoinShoppingRecords(items []model.Item, records []model.ShoppingRecord) []model.ShoppingRecordDisplay {
	byID := indexItems(items)
	result := make([]model.ShoppingRecordDisplay, 0, len(records))
	for _, r := range records {
		d := model.ShoppingRecordDisplay{
			ID:       r.ID,
			ItemID:   r.ItemID,
			Quantity: r.Quantity,
			Price:    r.Price,
			Store:    r.Store,
			BoughtAt: r.BoughtAt,
		}
		if item, ok := byID[r.ItemID]; ok {
			d.Name = item.Name
			d.ImageURL = item.ImageURL
		}
		result = append(result, d)
	}
	return result
}

func indexItems(items []model.Item) map[int64]model.Item {
	m := make(map[int64]model.Item, len(items))
	for _, item := range items {
		m[item.ID] = item
	}
	return m
}

package inventory

import (
	"strings"

	"github.com/stockypocky/stockyweb/internal/model"
)

type ItemFilterMode string

const (
	FilterAll      ItemFilterMode = "all"
	FilterFavorite ItemFilterMode = "favorite"
	FilterLow      ItemFilterMode = "low"
	FilterCategory ItemFilterMode = "category"
)

// ItemFilter narrows the joined item list. Search matches item names
// case-insensitively; CategoryName only applies in FilterCategory mode, and
// an empty CategoryName keeps every item.
type ItemFilter struct {
	Search       string
	Mode         ItemFilterMode
	CategoryName string
}

func FilterItems(list []model.ItemListDisplay, f ItemFilter) []model.ItemListDisplay {
	search := strings.ToLower(f.Search)
	result := make([]model.ItemListDisplay, 0, len(list))
	for _, d := range list {
		if search != "" && !strings.Contains(strings.ToLower(d.Name), search) {
			continue
		}
		switch f.Mode {
		case FilterFavorite:
			if !d.IsFavorite {
				continue
			}
		case FilterLow:
			if !IsLowStock(d.StockQuantity, d.Threshold) {
				continue
			}
		case FilterCategory:
			if f.CategoryName != "" && d.CategoryName != f.CategoryName {
				continue
			}
		}
		result = append(result, d)
	}
	return result
}

func FilterCategories(categories []model.Category, search string) []model.Category {
	search = strings.ToLower(search)
	result := make([]model.Category, 0, len(categories))
	for _, c := range categories {
		if search == "" || strings.Contains(strings.ToLower(c.Name), search) {
			result = append(result, c)
		}
	}
	return result
}

type MemoFilter string

const (
	MemoAll        MemoFilter = "all"
	MemoIncomplete MemoFilter = "incomplete"
	MemoComplete   MemoFilter = "complete"
)

func FilterMemos(memos []model.Memo, f MemoFilter) []model.Memo {
	result := make([]model.Memo, 0, len(memos))
	for _, m := range memos {
		if f == MemoComplete && !m.IsDone {
			continue
		}
		if f == MemoIncomplete && m.IsDone {
			continue
		}
		result = append(result, m)
	}
	return result
}

package inventory

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockypocky/stockyweb/internal/model"
)

type MonthlySpending struct {
	Month time.Time       `json:"month"`
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

type SpendingTotal struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

func recordAmount(r model.ShoppingRecord) decimal.Decimal {
	return r.Price.Mul(decimal.NewFromInt(int64(r.Quantity)))
}

// SpendingByMonth totals price × quantity per calendar month in loc,
// newest month first.
func SpendingByMonth(records []model.ShoppingRecord, loc *time.Location) []MonthlySpending {
	if loc == nil {
		loc = time.Local
	}
	totals := make(map[time.Time]decimal.Decimal)
	for _, r := range records {
		if r.BoughtAt.IsZero() {
			continue
		}
		month := StartOfMonth(r.BoughtAt.In(loc))
		totals[month] = totals[month].Add(recordAmount(r))
	}

	result := make([]MonthlySpending, 0, len(totals))
	for month, total := range totals {
		result = append(result, MonthlySpending{Month: month, Label: month.Format("2006/01"), Total: total})
	}
	slices.SortFunc(result, func(a, b MonthlySpending) int {
		return b.Month.Compare(a.Month)
	})
	return result
}

// SpendingByItem totals spending per item, largest first. Records whose item
// is gone are skipped.
func SpendingByItem(items []model.Item, records []model.ShoppingRecord) []SpendingTotal {
	byID := indexItems(items)
	totals := make(map[int64]decimal.Decimal)
	for _, r := range records {
		if _, ok := byID[r.ItemID]; !ok {
			continue
		}
		totals[r.ItemID] = totals[r.ItemID].Add(recordAmount(r))
	}

	result := make([]SpendingTotal, 0, len(totals))
	for id, total := range totals {
		result = append(result, SpendingTotal{ID: id, Name: byID[id].Name, Total: total})
	}
	sortTotals(result)
	return result
}

// SpendingByCategory totals spending per category, largest first. Records
// whose item or category is gone are skipped.
func SpendingByCategory(items []model.Item, categories []model.Category, records []model.ShoppingRecord) []SpendingTotal {
	byID := indexItems(items)
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	totals := make(map[int64]decimal.Decimal)
	for _, r := range records {
		item, ok := byID[r.ItemID]
		if !ok {
			continue
		}
		if _, ok := names[item.CategoryID]; !ok {
			continue
		}
		totals[item.CategoryID] = totals[item.CategoryID].Add(recordAmount(r))
	}

	result := make([]SpendingTotal, 0, len(totals))
	for id, total := range totals {
		result = append(result, SpendingTotal{ID: id, Name: names[id], Total: total})
	}
	sortTotals(result)
	return result
}

func sortTotals(totals []SpendingTotal) {
	slices.SortFunc(totals, func(a, b SpendingTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

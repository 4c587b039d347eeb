package inventory

import (
	"testing"

	"github.com/stockypocky/stockyweb/internal/model"
)

func sampleList() []model.ItemListDisplay {
	return []model.ItemListDisplay{
		{ID: 1, Name: "Milk", CategoryName: "Dairy", StockQuantity: 1, Threshold: 5, IsFavorite: true},
		{ID: 2, Name: "Oat Milk", CategoryName: "Dairy", StockQuantity: 4, Threshold: 5},
		{ID: 3, Name: "Rice", CategoryName: "Pantry", StockQuantity: 0, Threshold: 0, IsFavorite: true},
		{ID: 4, Name: "Soap", CategoryName: UncategorizedName, StockQuantity: 0, Threshold: 3},
	}
}

func listIDs(list []model.ItemListDisplay) []int {
	out := make([]int, len(list))
	for i, d := range list {
		out[i] = int(d.ID)
	}
	return out
}

func TestFilterItems(t *testing.T) {
	tests := []struct {
		name   string
		filter ItemFilter
		want   []int
	}{
		{"all", ItemFilter{Mode: FilterAll}, []int{1, 2, 3, 4}},
		{"empty mode", ItemFilter{}, []int{1, 2, 3, 4}},
		{"search is case-insensitive", ItemFilter{Search: "MILK"}, []int{1, 2}},
		{"favorite", ItemFilter{Mode: FilterFavorite}, []int{1, 3}},
		{"low", ItemFilter{Mode: FilterLow}, []int{1, 4}},
		{"category", ItemFilter{Mode: FilterCategory, CategoryName: "Dairy"}, []int{1, 2}},
		{"category unselected", ItemFilter{Mode: FilterCategory}, []int{1, 2, 3, 4}},
		{"search then low", ItemFilter{Search: "milk", Mode: FilterLow}, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := listIDs(FilterItems(sampleList(), tt.filter))
			if !equalIDs(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterCategories(t *testing.T) {
	categories := []model.Category{{ID: 1, Name: "Dairy"}, {ID: 2, Name: "Drinks"}, {ID: 3, Name: "Pantry"}}
	got := FilterCategories(categories, "d")
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("categories = %+v, want ids [1 2]", got)
	}
	if all := FilterCategories(categories, ""); len(all) != 3 {
		t.Errorf("len = %d, want 3", len(all))
	}
}

func TestFilterMemos(t *testing.T) {
	memos := []model.Memo{{ID: 1, IsDone: true}, {ID: 2}, {ID: 3, IsDone: true}}

	if got := FilterMemos(memos, MemoComplete); len(got) != 2 {
		t.Errorf("complete = %d, want 2", len(got))
	}
	if got := FilterMemos(memos, MemoIncomplete); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("incomplete = %+v, want [2]", got)
	}
	if got := FilterMemos(memos, MemoAll); len(got) != 3 {
		t.Errorf("all = %d, want 3", len(got))
	}
}

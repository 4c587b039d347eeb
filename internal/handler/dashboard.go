package handler

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/stockypocky/stockyweb/internal/api"
	"github.com/stockypocky/stockyweb/internal/auth"
	"github.com/stockypocky/stockyweb/internal/inventory"
	"github.com/stockypocky/stockyweb/internal/model"
)

const (
	dashboardShoppingPreview = 5
	dashboardMemoPreview     = 3
)

// snapshot is the set of reference collections most screens join.
type snapshot struct {
	items      []model.Item
	categories []model.Category
	stocks     []model.Stock
}

func (s snapshot) joined() []model.ItemListDisplay {
	return inventory.JoinItems(s.items, s.categories, s.stocks)
}

// fetchSnapshot loads items, categories and stocks concurrently. All three
// must succeed.
func fetchSnapshot(ctx context.Context, c *api.Client) (snapshot, error) {
	var s snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { s.items, err = c.ListItems(gctx); return err })
	g.Go(func() (err error) { s.categories, err = c.ListCategories(gctx); return err })
	g.Go(func() (err error) { s.stocks, err = c.ListStocks(gctx); return err })
	return s, g.Wait()
}

type DashboardHandler struct {
	up Upstream
}

func NewDashboardHandler(up Upstream) *DashboardHandler {
	return &DashboardHandler{up: up}
}

type dashboardScreen struct {
	Username     string                      `json:"username"`
	LowStock     []model.ItemListDisplay     `json:"low_stock"`
	ShoppingList []model.ShoppingListDisplay `json:"shopping_list"`
	Memos        []model.Memo                `json:"memos"`
}

// Show handles GET /screens/dashboard.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	c := h.up.clientFor(r)

	var (
		snap    snapshot
		entries []model.ShoppingListEntry
		memos   []model.Memo
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) { snap, err = fetchSnapshot(ctx, c); return err })
	g.Go(func() (err error) { entries, err = c.ListShoppingList(ctx); return err })
	g.Go(func() (err error) { memos, err = c.ListMemos(ctx); return err })
	if err := g.Wait(); err != nil {
		h.up.fail(w, r, "dashboard", err)
		return
	}

	pending := make([]model.ShoppingListEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Checked {
			pending = append(pending, e)
		}
	}
	shopping := inventory.JoinShoppingList(snap.items, pending)
	if len(shopping) > dashboardShoppingPreview {
		shopping = shopping[:dashboardShoppingPreview]
	}

	open := inventory.FilterMemos(memos, inventory.MemoIncomplete)
	if len(open) > dashboardMemoPreview {
		open = open[:dashboardMemoPreview]
	}

	ac, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, dashboardScreen{
		Username:     ac.Username,
		LowStock:     inventory.LowStockItems(snap.joined()),
		ShoppingList: shopping,
		Memos:        open,
	})
}

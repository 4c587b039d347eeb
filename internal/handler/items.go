package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stockypocky/stockyweb/internal/api"
	"github.com/stockypocky/stockyweb/internal/inventory"
	"github.com/stockypocky/stockyweb/internal/model"
	"github.com/stockypocky/stockyweb/internal/stock"
	"github.com/stockypocky/stockyweb/internal/upload"
	"github.com/stockypocky/stockyweb/internal/websocket"
)

const detailHistoryCount = 3

const (
	msgItemNameRequired = "アイテム名は必須です。"
	msgItemCreated      = "アイテムを登録しました。"
	msgItemUpdated      = "アイテムを更新しました。"
	msgItemDeleted      = "アイテムを削除しました。"
	msgStockUpdated     = "在庫を更新しました。"
)

type ItemHandler struct {
	up       Upstream
	adjuster *stock.Adjuster
	uploader *upload.Uploader
}

func NewItemHandler(up Upstream, adjuster *stock.Adjuster, uploader *upload.Uploader) *ItemHandler {
	return &ItemHandler{up: up, adjuster: adjuster, uploader: uploader}
}

type itemListScreen struct {
	Items      []model.ItemListDisplay `json:"items"`
	Categories []model.Category        `json:"categories"`
	Total      int                     `json:"total"`
}

// List handles GET /screens/items?search=&filter=&category=
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	snap, err := fetchSnapshot(r.Context(), h.up.clientFor(r))
	if err != nil {
		h.up.fail(w, r, "item list", err)
		return
	}

	q := r.URL.Query()
	mode := inventory.ItemFilterMode(q.Get("filter"))
	if mode == "" {
		mode = inventory.FilterAll
	}
	all := snap.joined()
	writeJSON(w, http.StatusOK, itemListScreen{
		Items: inventory.FilterItems(all, inventory.ItemFilter{
			Search:       strings.TrimSpace(q.Get("search")),
			Mode:         mode,
			CategoryName: q.Get("category"),
		}),
		Categories: snap.categories,
		Total:      len(all),
	})
}

type historyRow struct {
	ID        int64  `json:"id"`
	Change    int    `json:"change"`
	Reason    string `json:"reason"`
	Memo      string `json:"memo"`
	CreatedAt string `json:"created_at"`
}

func (h *ItemHandler) historyRows(history []model.StockHistory, n int) []historyRow {
	recent := inventory.Recent(history, func(s model.StockHistory) time.Time { return s.CreatedAt.Time }, n)
	rows := make([]historyRow, 0, len(recent))
	for _, s := range recent {
		rows = append(rows, historyRow{
			ID:        s.ID,
			Change:    s.Change,
			Reason:    s.Reason,
			Memo:      s.Memo,
			CreatedAt: inventory.FormatTime(s.CreatedAt.Time, h.up.location()),
		})
	}
	return rows
}

type itemDetailScreen struct {
	Item     model.Item            `json:"item"`
	Display  model.ItemListDisplay `json:"display"`
	LowStock bool                  `json:"low_stock"`
	History  []historyRow          `json:"history"`
}

// fetchItem loads one item with its stock and history. A missing stock row
// reads as zero stock.
func fetchItem(ctx context.Context, c *api.Client, id int64) (model.Item, []model.Category, model.Stock, []model.StockHistory, error) {
	var (
		item       model.Item
		categories []model.Category
		st         model.Stock
		history    []model.StockHistory
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { item, err = c.GetItem(gctx, id); return err })
	g.Go(func() (err error) { categories, err = c.ListCategories(gctx); return err })
	g.Go(func() error {
		s, err := c.GetItemStock(gctx, id)
		if api.StatusCode(err) == http.StatusNotFound {
			return nil
		}
		st = s
		return err
	})
	g.Go(func() (err error) { history, err = c.ListStockHistory(gctx, id); return err })
	err := g.Wait()
	return item, categories, st, history, err
}

func display(item model.Item, categories []model.Category, st model.Stock) model.ItemListDisplay {
	var stocks []model.Stock
	if st.ItemID == item.ID {
		stocks = []model.Stock{st}
	}
	return inventory.JoinItems([]model.Item{item}, categories, stocks)[0]
}

// Detail handles GET /screens/items/{id}.
func (h *ItemHandler) Detail(w http.ResponseWriter, r *http.Request) {
	h.detail(w, r, detailHistoryCount)
}

// History handles GET /screens/items/{id}/history.
func (h *ItemHandler) History(w http.ResponseWriter, r *http.Request) {
	h.detail(w, r, -1)
}

func (h *ItemHandler) detail(w http.ResponseWriter, r *http.Request, historyCount int) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}

	item, categories, st, history, err := fetchItem(r.Context(), h.up.clientFor(r), id)
	if err != nil {
		h.up.fail(w, r, "item detail", err)
		return
	}

	d := display(item, categories, st)
	writeJSON(w, http.StatusOK, itemDetailScreen{
		Item:     item,
		Display:  d,
		LowStock: inventory.IsLowStock(d.StockQuantity, d.Threshold),
		History:  h.historyRows(history, historyCount),
	})
}

// itemForm is the new/edit item form. The stock fields are only read on
// create; later changes go through the stock adjustment flow.
type itemForm struct {
	model.ItemRequest
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
	Location  string `json:"location"`
}

func (f *itemForm) normalize() error {
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return errors.New(msgItemNameRequired)
	}
	if f.Quantity < 0 || f.Threshold < 0 || f.DefaultQuantity < 0 {
		return errors.New(msgInvalidInput)
	}
	return nil
}

type createdItem struct {
	Item  model.Item  `json:"item"`
	Stock model.Stock `json:"stock"`
}

// Create handles POST /items. The stock row is created alongside the item;
// if that fails the item is deleted again.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form itemForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}
	if err := form.normalize(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := h.up.clientFor(r)
	item, err := c.CreateItem(r.Context(), form.ItemRequest)
	if err != nil {
		h.up.fail(w, r, "create item", err)
		return
	}
	st, err := c.CreateStock(r.Context(), model.StockCreateRequest{
		Quantity:  form.Quantity,
		Threshold: form.Threshold,
		Location:  form.Location,
		ItemID:    item.ID,
	})
	if err != nil {
		// Drop the half-created item so it does not linger without stock.
		if derr := c.DeleteItem(context.WithoutCancel(r.Context()), item.ID); derr != nil {
			h.up.Logger.Error("remove item after stock failure", "item_id", item.ID, "error", derr)
		}
		h.up.fail(w, r, "create stock", err)
		return
	}

	h.up.broadcast(r, websocket.EntityItem, websocket.ActionCreated, item.ID)
	writeJSON(w, http.StatusCreated, mutationResponse{
		Message: msgItemCreated,
		Data:    createdItem{Item: item, Stock: st},
	})
}

// Update handles PUT /items/{id}. A replaced photo that was uploaded here is
// removed from storage.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	var form itemForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}
	if err := form.normalize(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := h.up.clientFor(r)
	existing, err := c.GetItem(r.Context(), id)
	if err != nil {
		h.up.fail(w, r, "get item", err)
		return
	}
	item, err := c.UpdateItem(r.Context(), id, form.ItemRequest)
	if err != nil {
		h.up.fail(w, r, "update item", err)
		return
	}
	if existing.ImageURL != item.ImageURL {
		h.deleteImage(r.Context(), existing.ImageURL)
	}

	h.up.broadcast(r, websocket.EntityItem, websocket.ActionUpdated, id)
	writeJSON(w, http.StatusOK, mutationResponse{Message: msgItemUpdated, Data: item})
}

// Delete handles DELETE /items/{id}.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}

	c := h.up.clientFor(r)
	existing, err := c.GetItem(r.Context(), id)
	if err != nil {
		h.up.fail(w, r, "get item", err)
		return
	}
	if err := c.DeleteItem(r.Context(), id); err != nil {
		h.up.fail(w, r, "delete item", err)
		return
	}
	h.deleteImage(r.Context(), existing.ImageURL)

	h.up.broadcast(r, websocket.EntityItem, websocket.ActionDeleted, id)
	writeJSON(w, http.StatusOK, mutationResponse{Message: msgItemDeleted})
}

func (h *ItemHandler) deleteImage(ctx context.Context, url string) {
	if h.uploader == nil || url == "" {
		return
	}
	if err := h.uploader.Delete(ctx, url); err != nil {
		h.up.Logger.Warn("delete item image", "url", url, "error", err)
	}
}

type stockForm struct {
	Mode model.StockAction `json:"mode"`
	stock.ManualInput
}

type stockErrorResponse struct {
	Error string `json:"error"`
	stock.Result
}

// AdjustStock handles POST /items/{id}/stock. On a backend failure the
// response carries the refetched stock with rolled_back set.
func (h *ItemHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	var form stockForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}
	if !form.Mode.Valid() {
		writeError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}

	c := h.up.clientFor(r)
	var (
		item       model.Item
		categories []model.Category
		st         model.Stock
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) { item, err = c.GetItem(ctx, id); return err })
	g.Go(func() (err error) { categories, err = c.ListCategories(ctx); return err })
	g.Go(func() error {
		s, err := c.GetItemStock(ctx, id)
		if api.StatusCode(err) == http.StatusNotFound {
			return nil
		}
		st = s
		return err
	})
	if err := g.Wait(); err != nil {
		h.up.fail(w, r, "load stock", err)
		return
	}

	res, err := h.adjuster.Adjust(r.Context(), c, display(item, categories, st), form.Mode, form.ManualInput)
	switch {
	case errors.Is(err, stock.ErrInvalidInput), errors.Is(err, stock.ErrInvalidMode):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, api.ErrUnauthorized):
		h.up.fail(w, r, "adjust stock", err)
		return
	case err != nil:
		status, msg := errorStatus(err)
		writeJSON(w, status, stockErrorResponse{Error: msg, Result: res})
		return
	}

	h.up.broadcast(r, websocket.EntityStock, websocket.ActionUpdated, id)
	writeJSON(w, http.StatusOK, mutationResponse{Message: msgStockUpdated, Data: res})
}

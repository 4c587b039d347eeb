package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/stockypocky/stockyweb/internal/inventory"
	"github.com/stockypocky/stockyweb/internal/model"
	"github.com/stockypocky/stockyweb/internal/websocket"
)

const (
	msgShoppingItemRequired = "アイテムを選択してください。"
	msgShoppingAdded        = "買い物リストに追加しました。"
	msgShoppingChecked      = "買い物リストを更新しました。"
	msgShoppingRemoved      = "買い物リストから削除しました。"
	msgRecordRequired       = "個数、価格、購入店舗は必須です。"
	msgRecordEditRequired   = "個数、価格、購入店舗、操作、理由は必須です。"
	msgPriceWhole           = "価格は円単位の整数で入力してください。"
	msgRecordCreated        = "購入を記録しました。"
	msgRecordUpdated        = "購入記録を更新しました。"
	msgRecordDeleted        = "購入記録を削除しました。"
)

type ShoppingHandler struct {
	up  Upstream
	now func() time.Time
}

func NewShoppingHandler(up Upstream) *ShoppingHandler {
	return &ShoppingHandler{up: up, now: time.Now}
}

type shoppingListScreen struct {
	Entries []model.ShoppingListDisplay `json:"entries"`
	Items   []model.Item                `json:"items"`
}

// List handles GET /screens/shopping-list.
func (h *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	c := h.up.clientFor(r)

	var (
		items   []model.Item
		entries []model.ShoppingListEntry
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) { items, err = c.ListItems(ctx); return err })
	g.Go(func() (err error) { entries, err = c.ListShoppingList(ctx); return err })
	if err := g.Wait(); err != nil {
		h.up.fail(w, r, "shopping list", err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, shoppingListScreen{
		Entries: inventory.JoinShoppingList(items, entries),
		Items:   items,
	})
}

// Add handles POST /shopping-list. Quantity defaults to one.
func (h *ShoppingHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req model.ShoppingListRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}
	if req.ItemID <= 0 {
		writeError(w, http.StatusBadRequest, msgShoppingItemRequired)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}

	entry, err := h.up.clientFor(r).AddShoppingListEntry(r.Context(), req)
	if err != nil {
		h.up.fail(w, r, "add shopping list entry", err)
		return
	}

	h.up.broadcast(r, websocket.EntityShoppingList, websocket.ActionCreated, entry.ID)
	writeJSON(w, http.StatusCreated, mutationResponse{Message: msgShoppingAdded, Data: entry})
}

// Check handles POST /shopping-list/{id}/check.
func (h *ShoppingHandler) Check(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	var req struct {
		Checked bool `json:"checked"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}

	entry, err := h.up.clientFor(r).CheckShoppingListEntry(r.Context(), id, req.Checked)
	if err != nil {
		h.up.fail(w, r, "check shopping list entry", err)
		return
	}

	h.up.broadcast(r, websocket.EntityShoppingList, websocket.ActionUpdated, id)
	writeJSON(w, http.StatusOK, mutationResponse{Message: msgShoppingChecked, Data: entry})
}

// Remove handles DELETE /shopping-list/{id}.
func (h *ShoppingHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	if err := h.up.clientFor(r).DeleteShoppingListEntry(r.Context(), id); err != nil {
		h.up.fail(w, r, "delete shopping list entry", err)
		return
	}

	h.up.broadcast(r, websocket.EntityShoppingList, websocket.ActionDeleted, id)
	writeJSON(w, http.StatusOK, mutationResponse{Message: msgShoppingRemoved})
}

type recordRow struct {
	model.ShoppingRecordDisplay
	BoughtAtText string `json:"bought_at_text"`
}

type recordsScreen struct {
	Mode  string                             `json:"mode"`
	Week  *inventory.WeekBuckets[recordRow]  `json:"week,omitempty"`
	Month *inventory.MonthBuckets[recordRow] `json:"month,omitempty"`
	Total int                                `json:"total"`
}

func (h *ShoppingHandler) rows(items []model.Item, records []model.ShoppingRecord) []recordRow {
	joined := inventory.JoinShoppingRecords(items, records)
	rows := make([]recordRow, 0, len(joined))
	for _, d := range joined {
		rows = append(rows, recordRow{
			ShoppingRecordDisplay: d,
			BoughtAtText:          inventory.FormatTime(d.BoughtAt.Time, h.up.location()),
		})
	}
	// Newest first inside every bucket.
	return inventory.Recent(rows, boughtAt, -1)
}

func boughtAt(r recordRow) time.Time {
	return r.BoughtAt.Time
}

// Records handles GET /screens/shopping-records?mode=week|month. Week is the
// default.
func (h *ShoppingHandler) Records(w http.ResponseWriter, r *http.Request) {
	c := h.up.clientFor(r)

	var (
		items   []model.Item
		records []model.ShoppingRecord
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) { items, err = c.ListItems(ctx); return err })
	g.Go(func() (err error) { records, err = c.ListShoppingRecords(ctx); return err })
	if err := g.Wait(); err != nil {
		h.up.fail(w, r, "shopping records", err)
		return
	}

	rows := h.rows(items, records)
	now := h.now().In(h.up.location())
	screen := recordsScreen{Mode: r.URL.Query().Get("mode"), Total: len(rows)}
	switch screen.Mode {
	case "month":
		b := inventory.PartitionByMonth(rows, boughtAt, now)
		screen.Month = &b
	default:
		screen.Mode = "week"
		b := inventory.PartitionByWeek(rows, boughtAt, now)
		screen.Week = &b
	}
	writeJSON(w, http.StatusOK, screen)
}

type recordDetailScreen struct {
	Record recordRow  `json:"record"`
	Item   model.Item `json:"item"`
}

// Record handles GET /screens/shopping-records/{id}.
func (h *ShoppingHandler) Record(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}

	c := h.up.clientFor(r)
	rec, err := c.GetShoppingRecord(r.Context(), id)
	if err != nil {
		h.up.fail(w, r, "shopping record", err)
		return
	}
	item, err := c.GetItem(r.Context(), rec.ItemID)
	if err != nil {
		h.up.fail(w, r, "shopping record item", err)
		return
	}

	writeJSON(w, http.StatusOK, recordDetailScreen{
		Record: h.rows([]model.Item{item}, []model.ShoppingRecord{rec})[0],
		Item:   item,
	})
}

type recordForm struct {
	ItemID   int64             `json:"item_id"`
	Quantity int               `json:"quantity"`
	Price    decimal.Decimal   `json:"price"`
	Store    string            `json:"store"`
	BoughtAt model.Timestamp   `json:"bought_at"`
	Reason   string            `json:"reason"`
	Action   model.StockAction `json:"action"`
}

// request builds the backend payload. A missing bought_at takes fallback.
func (f *recordForm) request(fallback model.Timestamp) model.ShoppingRecordRequest {
	at := f.BoughtAt
	if at.IsZero() {
		at = fallback
	}
	return model.ShoppingRecordRequest{
		ItemID:   f.ItemID,
		Quantity: f.Quantity,
		Price:    f.Price,
		Store:    strings.TrimSpace(f.Store),
		BoughtAt: at,
	}
}

func (f *recordForm) valid() bool {
	return f.ItemID > 0 && f.Quantity > 0 && !f.Price.IsNegative() && strings.TrimSpace(f.Store) != ""
}

// checkForm writes a 400 and returns false when the form cannot be sent.
func (f *recordForm) checkForm(w http.ResponseWriter, ok bool, msg string) bool {
	if !ok {
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	if !f.Price.IsInteger() {
		writeError(w, http.StatusBadRequest, msgPriceWhole)
		return false
	}
	return true
}

// Buy handles POST /shopping-records. The backend raises the stock and
// removes the item from the shopping list.
func (h *ShoppingHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var form recordForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}
	if !form.checkForm(w, form.valid(), msgRecordRequired) {
		return
	}

	now := model.NewTimestamp(h.now().UTC())
	rec, err := h.up.clientFor(r).CreateShoppingRecord(r.Context(), form.request(now))
	if err != nil {
		h.up.fail(w, r, "create shopping record", err)
		return
	}

	h.up.broadcast(r, websocket.EntityShoppingRecord, websocket.ActionCreated, rec.ID)
	h.up.broadcast(r, websocket.EntityStock, websocket.ActionUpdated, rec.ItemID)
	writeJSON(w, http.StatusCreated, mutationResponse{Message: msgRecordCreated, Data: rec})
}

// Edit handles PUT /shopping-records/{id}. A correction names the stock
// action and the reason so the backend can adjust stock to match. Without
// bought_at the stored purchase time is kept.
func (h *ShoppingHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	var form recordForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}
	form.Reason = strings.TrimSpace(form.Reason)
	if !form.checkForm(w, form.valid() && form.Reason != "" && form.Action.Valid(), msgRecordEditRequired) {
		return
	}

	c := h.up.clientFor(r)
	var stored model.Timestamp
	if form.BoughtAt.IsZero() {
		current, err := c.GetShoppingRecord(r.Context(), id)
		if err != nil {
			h.up.fail(w, r, "shopping record", err)
			return
		}
		stored = current.BoughtAt
	}

	rec, err := c.UpdateShoppingRecord(r.Context(), id, model.ShoppingRecordUpdateRequest{
		ShoppingRecordRequest: form.request(stored),
		Reason:                form.Reason,
		Action:                form.Action,
	})
	if err != nil {
		h.up.fail(w, r, "update shopping record", err)
		return
	}

	h.up.broadcast(r, websocket.EntityShoppingRecord, websocket.ActionUpdated, id)
	h.up.broadcast(r, websocket.EntityStock, websocket.ActionUpdated, rec.ItemID)
	writeJSON(w, http.StatusOK, mutationResponse{Message: msgRecordUpdated, Data: rec})
}

// DeleteRecord handles DELETE /shopping-records/{id}.
func (h *ShoppingHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	if err := h.up.clientFor(r).DeleteShoppingRecord(r.Context(), id); err != nil {
		h.up.fail(w, r, "delete shopping record", err)
		return
	}

	h.up.broadcast(r, websocket.EntityShoppingRecord, websocket.ActionDeleted, id)
	writeJSON(w, http.StatusOK, mutationResponse{Message: msgRecordDeleted})
}

type summaryScreen struct {
	Total      decimal.Decimal             `json:"total"`
	ThisMonth  decimal.Decimal             `json:"this_month"`
	ByMonth    []inventory.MonthlySpending `json:"by_month"`
	ByItem     []inventory.SpendingTotal   `json:"by_item"`
	ByCategory []inventory.SpendingTotal   `json:"by_category"`
}

// Summary handles GET /screens/shopping-records/summary.
func (h *ShoppingHandler) Summary(w http.ResponseWriter, r *http.Request) {
	c := h.up.clientFor(r)

	var (
		snap    snapshot
		records []model.ShoppingRecord
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) { snap.items, err = c.ListItems(ctx); return err })
	g.Go(func() (err error) { snap.categories, err = c.ListCategories(ctx); return err })
	g.Go(func() (err error) { records, err = c.ListShoppingRecords(ctx); return err })
	if err := g.Wait(); err != nil {
		h.up.fail(w, r, "spending summary", err)
		return
	}

	loc := h.up.location()
	byMonth := inventory.SpendingByMonth(records, loc)
	screen := summaryScreen{
		Total:      decimal.Zero,
		ThisMonth:  decimal.Zero,
		ByMonth:    byMonth,
		ByItem:     inventory.SpendingByItem(snap.items, records),
		ByCategory: inventory.SpendingByCategory(snap.items, snap.categories, records),
	}
	current := inventory.StartOfMonth(h.now().In(loc))
	for _, m := range byMonth {
		screen.Total = screen.Total.Add(m.Total)
		if m.Month.Equal(current) {
			screen.ThisMonth = m.Total
		}
	}
	writeJSON(w, http.StatusOK, screen)
}

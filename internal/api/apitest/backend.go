// Package apitest provides an in-memory StockyPocky backend for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockypocky/stockyweb/internal/model"
)

const (
	Email    = "alice@example.com"
	Password = "secret"
	Username = "alice"
	UserID   = "7b0c5f0e-1b0a-4c53-9d8e-4f3c2a1b0c9d"
)

// Backend is a fake REST backend. Its collections are exported so tests can
// seed and inspect them; hold Mu while touching them concurrently.
type Backend struct {
	Mu sync.Mutex

	Token string

	Categories      []model.Category
	Items           []model.Item
	Stocks          []model.Stock
	StockHistory    []model.StockHistory
	ShoppingList    []model.ShoppingListEntry
	ShoppingRecords []model.ShoppingRecord
	Memos           []model.Memo

	// StockUpdates records every stock update body received.
	StockUpdates []model.StockUpdateRequest

	failures map[string]int
	nextID   int64
	server   *httptest.Server
}

// New starts a fake backend. It is closed when the test ends.
func New(t interface{ Cleanup(func()) }) *Backend {
	b := &Backend{
		Token:    "Bearer test-token",
		failures: make(map[string]int),
		nextID:   1000,
	}
	b.server = httptest.NewServer(b.routes())
	t.Cleanup(b.server.Close)
	return b
}

func (b *Backend) URL() string {
	return b.server.URL
}

// Close stops the server so later requests fail at the network level.
func (b *Backend) Close() {
	b.server.Close()
}

// Fail makes the next request matching "METHOD /path" answer with status.
func (b *Backend) Fail(pattern string, status int) {
	b.Mu.Lock()
	b.failures[pattern] = status
	b.Mu.Unlock()
}

func (b *Backend) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", b.login)
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) { ok(w, "Logged out successfully") })
	mux.HandleFunc("GET /users/me", b.authed(func(w http.ResponseWriter, r *http.Request) {
		ok(w, model.User{ID: UserID, Email: Email, Name: Username})
	}))

	mux.HandleFunc("GET /categories", b.authed(func(w http.ResponseWriter, r *http.Request) { ok(w, b.Categories) }))
	mux.HandleFunc("GET /categories/{id}", b.authed(b.getCategory))
	mux.HandleFunc("POST /categories", b.authed(b.createCategory))
	mux.HandleFunc("PUT /categories/{id}", b.authed(b.updateCategory))
	mux.HandleFunc("DELETE /categories/{id}", b.authed(b.deleteCategory))

	mux.HandleFunc("GET /items", b.authed(func(w http.ResponseWriter, r *http.Request) { ok(w, b.Items) }))
	mux.HandleFunc("GET /items/{id}", b.authed(b.getItem))
	mux.HandleFunc("POST /items", b.authed(b.createItem))
	mux.HandleFunc("PUT /items/{id}", b.authed(b.updateItem))
	mux.HandleFunc("DELETE /items/{id}", b.authed(b.deleteItem))
	mux.HandleFunc("GET /items/{id}/stock", b.authed(b.getStock))
	mux.HandleFunc("PUT /items/{id}/stock", b.authed(b.updateStock))
	mux.HandleFunc("GET /items/{id}/stock-history", b.authed(b.listHistory))
	mux.HandleFunc("GET /stocks", b.authed(func(w http.ResponseWriter, r *http.Request) { ok(w, b.Stocks) }))
	mux.HandleFunc("POST /stocks", b.authed(b.createStock))

	mux.HandleFunc("GET /shopping-list", b.authed(func(w http.ResponseWriter, r *http.Request) { ok(w, b.ShoppingList) }))
	mux.HandleFunc("POST /shopping-list", b.authed(b.addShoppingList))
	mux.HandleFunc("PUT /shopping-list/{id}", b.authed(b.checkShoppingList))
	mux.HandleFunc("DELETE /shopping-list/{id}", b.authed(b.deleteShoppingList))

	mux.HandleFunc("GET /shopping-records", b.authed(func(w http.ResponseWriter, r *http.Request) { ok(w, b.ShoppingRecords) }))
	mux.HandleFunc("GET /shopping-records/{id}", b.authed(b.getRecord))
	mux.HandleFunc("POST /shopping-records", b.authed(b.createRecord))
	mux.HandleFunc("PUT /shopping-records/{id}", b.authed(b.updateRecord))
	mux.HandleFunc("DELETE /shopping-records/{id}", b.authed(b.deleteRecord))

	mux.HandleFunc("GET /memos", b.authed(func(w http.ResponseWriter, r *http.Request) { ok(w, b.Memos) }))
	mux.HandleFunc("GET /memos/{id}", b.authed(b.getMemo))
	mux.HandleFunc("POST /memos", b.authed(b.createMemo))
	mux.HandleFunc("PUT /memos/{id}", b.authed(b.updateMemo))
	mux.HandleFunc("DELETE /memos/{id}", b.authed(b.deleteMemo))
	return mux
}

func (b *Backend) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.Mu.Lock()
		defer b.Mu.Unlock()

		key := r.Method + " " + r.URL.Path
		if status, found := b.failures[key]; found {
			delete(b.failures, key)
			fail(w, status, "injected failure")
			return
		}
		if r.Header.Get("Authorization") != b.Token {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Could not validate credentials"})
			return
		}
		h(w, r)
	}
}

func ok(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func fail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id
}

func (b *Backend) newID() int64 {
	b.nextID++
	return b.nextID
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	if status, found := b.failures["POST /auth/login"]; found {
		delete(b.failures, "POST /auth/login")
		fail(w, status, "injected failure")
		return
	}

	var req model.LoginRequest
	json.NewDecoder(r.Body).Decode(&req)
	if req.Email != Email {
		fail(w, http.StatusNotFound, "User not found")
		return
	}
	if req.Password != Password {
		fail(w, http.StatusUnauthorized, "Invalid password")
		return
	}
	ok(w, model.LoginResult{Token: b.Token, Name: Username})
}

func (b *Backend) getCategory(w http.ResponseWriter, r *http.Request) {
	for _, c := range b.Categories {
		if c.ID == pathID(r) {
			ok(w, c)
			return
		}
	}
	fail(w, http.StatusNotFound, "Category not found")
}

func (b *Backend) createCategory(w http.ResponseWriter, r *http.Request) {
	var req model.CategoryRequest
	json.NewDecoder(r.Body).Decode(&req)
	c := model.Category{ID: b.newID(), Name: req.Name, Icon: req.Icon, UserID: UserID}
	b.Categories = append(b.Categories, c)
	ok(w, c)
}

func (b *Backend) updateCategory(w http.ResponseWriter, r *http.Request) {
	var req model.CategoryRequest
	json.NewDecoder(r.Body).Decode(&req)
	for i := range b.Categories {
		if b.Categories[i].ID == pathID(r) {
			b.Categories[i].Name = req.Name
			b.Categories[i].Icon = req.Icon
			ok(w, b.Categories[i])
			return
		}
	}
	fail(w, http.StatusNotFound, "Category not found")
}

func (b *Backend) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	for _, item := range b.Items {
		if item.CategoryID == id {
			fail(w, http.StatusBadRequest, "Category has items")
			return
		}
	}
	for i, c := range b.Categories {
		if c.ID == id {
			b.Categories = append(b.Categories[:i], b.Categories[i+1:]...)
			ok(w, c)
			return
		}
	}
	fail(w, http.StatusNotFound, "Category not found")
}

func (b *Backend) getItem(w http.ResponseWriter, r *http.Request) {
	for _, item := range b.Items {
		if item.ID == pathID(r) {
			ok(w, item)
			return
		}
	}
	fail(w, http.StatusNotFound, "Item not found")
}

func itemFromRequest(req model.ItemRequest) model.Item {
	return model.Item{
		Name:            req.Name,
		Brand:           req.Brand,
		Unit:            req.Unit,
		ImageURL:        req.ImageURL,
		DefaultQuantity: req.DefaultQuantity,
		Notes:           req.Notes,
		IsFavorite:      req.IsFavorite,
		UserID:          UserID,
		CategoryID:      req.CategoryID,
	}
}

func (b *Backend) createItem(w http.ResponseWriter, r *http.Request) {
	var req model.ItemRequest
	json.NewDecoder(r.Body).Decode(&req)
	item := itemFromRequest(req)
	item.ID = b.newID()
	b.Items = append(b.Items, item)
	ok(w, item)
}

func (b *Backend) updateItem(w http.ResponseWriter, r *http.Request) {
	var req model.ItemRequest
	json.NewDecoder(r.Body).Decode(&req)
	for i := range b.Items {
		if b.Items[i].ID == pathID(r) {
			updated := itemFromRequest(req)
			updated.ID = b.Items[i].ID
			b.Items[i] = updated
			ok(w, updated)
			return
		}
	}
	fail(w, http.StatusNotFound, "Item not found")
}

func (b *Backend) deleteItem(w http.ResponseWriter, r *http.Request) {
	for i, item := range b.Items {
		if item.ID == pathID(r) {
			b.Items = append(b.Items[:i], b.Items[i+1:]...)
			ok(w, item)
			return
		}
	}
	fail(w, http.StatusNotFound, "Item not found")
}

func (b *Backend) getStock(w http.ResponseWriter, r *http.Request) {
	for _, s := range b.Stocks {
		if s.ItemID == pathID(r) {
			ok(w, s)
			return
		}
	}
	fail(w, http.StatusNotFound, "Stock not found")
}

func (b *Backend) updateStock(w http.ResponseWriter, r *http.Request) {
	var req model.StockUpdateRequest
	json.NewDecoder(r.Body).Decode(&req)
	b.StockUpdates = append(b.StockUpdates, req)

	itemID := pathID(r)
	for i := range b.Stocks {
		s := &b.Stocks[i]
		if s.ItemID != itemID {
			continue
		}
		before := s.Quantity
		switch req.Action {
		case model.StockIncrease:
			s.Quantity++
		case model.StockDecrease:
			if s.Quantity > 0 {
				s.Quantity--
			}
		default:
			s.Quantity = req.Quantity
			s.Threshold = req.Threshold
			s.Location = req.Location
		}
		b.StockHistory = append(b.StockHistory, model.StockHistory{
			ID:        b.newID(),
			Change:    s.Quantity - before,
			Reason:    req.Reason,
			Memo:      req.Memo,
			UserID:    UserID,
			ItemID:    itemID,
			CreatedAt: model.NewTimestamp(time.Now().UTC()),
		})
		ok(w, *s)
		return
	}
	fail(w, http.StatusNotFound, "Stock not found")
}

func (b *Backend) listHistory(w http.ResponseWriter, r *http.Request) {
	result := []model.StockHistory{}
	for _, h := range b.StockHistory {
		if h.ItemID == pathID(r) {
			result = append(result, h)
		}
	}
	ok(w, result)
}

func (b *Backend) createStock(w http.ResponseWriter, r *http.Request) {
	var req model.StockCreateRequest
	json.NewDecoder(r.Body).Decode(&req)
	s := model.Stock{ID: b.newID(), Quantity: req.Quantity, Threshold: req.Threshold, Location: req.Location, UserID: UserID, ItemID: req.ItemID}
	b.Stocks = append(b.Stocks, s)
	ok(w, s)
}

func (b *Backend) addShoppingList(w http.ResponseWriter, r *http.Request) {
	var req model.ShoppingListRequest
	json.NewDecoder(r.Body).Decode(&req)
	e := model.ShoppingListEntry{ID: b.newID(), Quantity: req.Quantity, ItemID: req.ItemID, UserID: UserID, AddedAt: model.NewTimestamp(time.Now().UTC())}
	b.ShoppingList = append(b.ShoppingList, e)
	ok(w, e)
}

func (b *Backend) checkShoppingList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Checked bool `json:"checked"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	for i := range b.ShoppingList {
		if b.ShoppingList[i].ID == pathID(r) {
			b.ShoppingList[i].Checked = req.Checked
			ok(w, b.ShoppingList[i])
			return
		}
	}
	fail(w, http.StatusNotFound, "ShoppingList not found")
}

func (b *Backend) deleteShoppingList(w http.ResponseWriter, r *http.Request) {
	for i, e := range b.ShoppingList {
		if e.ID == pathID(r) {
			b.ShoppingList = append(b.ShoppingList[:i], b.ShoppingList[i+1:]...)
			ok(w, e)
			return
		}
	}
	fail(w, http.StatusNotFound, "ShoppingList not found")
}

func (b *Backend) getRecord(w http.ResponseWriter, r *http.Request) {
	for _, rec := range b.ShoppingRecords {
		if rec.ID == pathID(r) {
			ok(w, rec)
			return
		}
	}
	fail(w, http.StatusNotFound, "ShoppingRecord not found")
}

// recordBody mirrors the backend schema, where price is a JSON integer.
type recordBody struct {
	ItemID   int64           `json:"item_id"`
	Quantity int             `json:"quantity"`
	Price    int64           `json:"price"`
	Store    string          `json:"store"`
	BoughtAt model.Timestamp `json:"bought_at"`
	Reason   string          `json:"reason"`
	Action   string          `json:"action"`
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (recordBody, bool) {
	var req recordBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusUnprocessableEntity, err.Error())
		return req, false
	}
	return req, true
}

func (b *Backend) createRecord(w http.ResponseWriter, r *http.Request) {
	req, valid := decodeRecord(w, r)
	if !valid {
		return
	}
	rec := model.ShoppingRecord{ID: b.newID(), ItemID: req.ItemID, Quantity: req.Quantity, Price: decimal.NewFromInt(req.Price), Store: req.Store, BoughtAt: req.BoughtAt, UserID: UserID}
	b.ShoppingRecords = append(b.ShoppingRecords, rec)
	for i := range b.Stocks {
		if b.Stocks[i].ItemID == req.ItemID {
			b.Stocks[i].Quantity += req.Quantity
		}
	}
	for i, e := range b.ShoppingList {
		if e.ItemID == req.ItemID {
			b.ShoppingList = append(b.ShoppingList[:i], b.ShoppingList[i+1:]...)
			break
		}
	}
	ok(w, rec)
}

func (b *Backend) updateRecord(w http.ResponseWriter, r *http.Request) {
	req, valid := decodeRecord(w, r)
	if !valid {
		return
	}
	for i := range b.ShoppingRecords {
		rec := &b.ShoppingRecords[i]
		if rec.ID != pathID(r) {
			continue
		}
		rec.ItemID = req.ItemID
		rec.Quantity = req.Quantity
		rec.Price = decimal.NewFromInt(req.Price)
		rec.Store = req.Store
		rec.BoughtAt = req.BoughtAt
		ok(w, *rec)
		return
	}
	fail(w, http.StatusNotFound, "ShoppingRecord not found")
}

func (b *Backend) deleteRecord(w http.ResponseWriter, r *http.Request) {
	for i, rec := range b.ShoppingRecords {
		if rec.ID == pathID(r) {
			b.ShoppingRecords = append(b.ShoppingRecords[:i], b.ShoppingRecords[i+1:]...)
			ok(w, rec)
			return
		}
	}
	fail(w, http.StatusNotFound, "ShoppingRecord not found")
}

func (b *Backend) getMemo(w http.ResponseWriter, r *http.Request) {
	for _, m := range b.Memos {
		if m.ID == pathID(r) {
			ok(w, m)
			return
		}
	}
	fail(w, http.StatusNotFound, "Memo not found")
}

func memoFromRequest(req model.MemoRequest) model.Memo {
	return model.Memo{Title: req.Title, Content: req.Content, Type: req.Type, IsDone: req.IsDone, Tags: req.Tags, UserID: UserID}
}

func (b *Backend) createMemo(w http.ResponseWriter, r *http.Request) {
	var req model.MemoRequest
	json.NewDecoder(r.Body).Decode(&req)
	m := memoFromRequest(req)
	m.ID = b.newID()
	b.Memos = append(b.Memos, m)
	ok(w, m)
}

func (b *Backend) updateMemo(w http.ResponseWriter, r *http.Request) {
	var req model.MemoRequest
	json.NewDecoder(r.Body).Decode(&req)
	for i := range b.Memos {
		if b.Memos[i].ID == pathID(r) {
			m := memoFromRequest(req)
			m.ID = b.Memos[i].ID
			b.Memos[i] = m
			ok(w, m)
			return
		}
	}
	fail(w, http.StatusNotFound, "Memo not found")
}

func (b *Backend) deleteMemo(w http.ResponseWriter, r *http.Request) {
	for i, m := range b.Memos {
		if m.ID == pathID(r) {
			b.Memos = append(b.Memos[:i], b.Memos[i+1:]...)
			ok(w, m)
			return
		}
	}
	fail(w, http.StatusNotFound, "Memo not found")
}

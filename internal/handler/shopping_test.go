package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockypocky/stockyweb/internal/model"
)

// Wednesday; the week starts Monday 2026-10-12.
var shoppingNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func newShoppingHandler(env *testEnv) *ShoppingHandler {
	h := NewShoppingHandler(env.up)
	h.now = func() time.Time { return shoppingNow }
	return h
}

func seedRecords(env *testEnv) {
	env.seedInventory()
	env.backend.ShoppingRecords = []model.ShoppingRecord{
		{ID: 1, ItemID: 1, Quantity: 2, Price: decimal.RequireFromString("198"), Store: "スーパー", BoughtAt: model.NewTimestamp(time.Date(2026, 10, 6, 10, 0, 0, 0, time.UTC))},
		{ID: 2, ItemID: 3, Quantity: 1, Price: decimal.RequireFromString("1980"), Store: "米屋", BoughtAt: model.NewTimestamp(time.Date(2026, 10, 13, 18, 30, 0, 0, time.UTC))},
		{ID: 3, ItemID: 1, Quantity: 1, Price: decimal.RequireFromString("210"), Store: "コンビニ", BoughtAt: model.NewTimestamp(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC))},
	}
}

func TestShoppingRecordsByWeek(t *testing.T) {
	env := setupHandlerTest(t)
	seedRecords(env)

	rec := serve(newShoppingHandler(env).Records, env.request("GET", "/screens/shopping-records", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	screen := decodeBody[recordsScreen](t, rec)

	if screen.Mode != "week" || screen.Week == nil {
		t.Fatalf("screen = %+v, want week buckets", screen)
	}
	if len(screen.Week.ThisWeek) != 1 || screen.Week.ThisWeek[0].ID != 2 {
		t.Errorf("this week = %+v", screen.Week.ThisWeek)
	}
	if len(screen.Week.LastWeek) != 1 || screen.Week.LastWeek[0].ID != 1 {
		t.Errorf("last week = %+v", screen.Week.LastWeek)
	}
	if len(screen.Week.Older) != 1 || screen.Week.Older[0].ID != 3 {
		t.Errorf("older = %+v", screen.Week.Older)
	}
	if got := screen.Week.ThisWeek[0]; got.Name != "Rice" || got.BoughtAtText != "2026/10/13 18:30:00" {
		t.Errorf("row = %+v", got)
	}
}

func TestShoppingRecordsByMonth(t *testing.T) {
	env := setupHandlerTest(t)
	seedRecords(env)

	rec := serve(newShoppingHandler(env).Records, env.request("GET", "/screens/shopping-records?mode=month", nil))
	screen := decodeBody[recordsScreen](t, rec)

	if screen.Month == nil {
		t.Fatalf("screen = %+v, want month buckets", screen)
	}
	if len(screen.Month.ThisMonth) != 2 || screen.Month.ThisMonth[0].ID != 2 {
		t.Errorf("this month = %+v, want [2 1]", screen.Month.ThisMonth)
	}
	if len(screen.Month.LastMonth) != 1 || len(screen.Month.Older) != 0 {
		t.Errorf("last month = %d, older = %d", len(screen.Month.LastMonth), len(screen.Month.Older))
	}
}

func TestShoppingBuyRaisesStock(t *testing.T) {
	env := setupHandlerTest(t)
	env.seedInventory()
	env.backend.ShoppingList = []model.ShoppingListEntry{{ID: 5, ItemID: 1, Quantity: 2}}

	body := map[string]any{"item_id": 1, "quantity": 3, "price": "158", "store": "スーパー"}
	rec := serve(newShoppingHandler(env).Buy, env.request("POST", "/shopping-records", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	env.backend.Mu.Lock()
	defer env.backend.Mu.Unlock()
	if got := env.backend.Stocks[0].Quantity; got != 4 {
		t.Errorf("Milk stock = %d, want 4", got)
	}
	if len(env.backend.ShoppingList) != 0 {
		t.Errorf("shopping list = %+v, want empty", env.backend.ShoppingList)
	}
	if !env.backend.ShoppingRecords[0].BoughtAt.Equal(shoppingNow) {
		t.Errorf("bought_at = %v, want %v", env.backend.ShoppingRecords[0].BoughtAt.Time, shoppingNow)
	}
}

func TestShoppingBuyValidation(t *testing.T) {
	env := setupHandlerTest(t)

	body := map[string]any{"item_id": 1, "quantity": 0, "price": "100", "store": "x"}
	rec := serve(newShoppingHandler(env).Buy, env.request("POST", "/shopping-records", body))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestShoppingEditRequiresReasonAndAction(t *testing.T) {
	env := setupHandlerTest(t)
	seedRecords(env)
	h := newShoppingHandler(env)

	body := map[string]any{"item_id": 1, "quantity": 1, "price": "198", "store": "スーパー"}
	rec := serve(h.Edit, withID(env.request("PUT", "/shopping-records/1", body), "1"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := errorMessage(t, rec); got != msgRecordEditRequired {
		t.Errorf("error = %q", got)
	}

	body["reason"] = "数量の修正"
	body["action"] = "decrease"
	rec = serve(h.Edit, withID(env.request("PUT", "/shopping-records/1", body), "1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	env.backend.Mu.Lock()
	defer env.backend.Mu.Unlock()
	if got := env.backend.ShoppingRecords[0].Quantity; got != 1 {
		t.Errorf("quantity = %d, want 1", got)
	}
}

func TestShoppingSummary(t *testing.T) {
	env := setupHandlerTest(t)
	seedRecords(env)

	rec := serve(newShoppingHandler(env).Summary, env.request("GET", "/screens/shopping-records/summary", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	screen := decodeBody[summaryScreen](t, rec)

	// 2×198 + 1980 + 210
	if !screen.Total.Equal(decimal.NewFromInt(2586)) {
		t.Errorf("total = %s, want 2586", screen.Total)
	}
	if !screen.ThisMonth.Equal(decimal.NewFromInt(2376)) {
		t.Errorf("this month = %s, want 2376", screen.ThisMonth)
	}
	if len(screen.ByCategory) != 1 || screen.ByCategory[0].Name != "食品" {
		t.Errorf("by category = %+v", screen.ByCategory)
	}
	if len(screen.ByItem) != 2 || screen.ByItem[0].Name != "Rice" {
		t.Errorf("by item = %+v, want Rice first", screen.ByItem)
	}
}

func TestShoppingListAddDefaultsQuantity(t *testing.T) {
	env := setupHandlerTest(t)
	env.seedInventory()
	h := newShoppingHandler(env)

	rec := serve(h.Add, env.request("POST", "/shopping-list", map[string]any{"item_id": 3}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(h.List, env.request("GET", "/screens/shopping-list", nil))
	screen := decodeBody[shoppingListScreen](t, rec)
	if len(screen.Entries) != 1 || screen.Entries[0].Name != "Rice" || screen.Entries[0].Quantity != 1 {
		t.Errorf("entries = %+v", screen.Entries)
	}
}

func TestShoppingListCheck(t *testing.T) {
	env := setupHandlerTest(t)
	env.backend.ShoppingList = []model.ShoppingListEntry{{ID: 5, ItemID: 1, Quantity: 2}}

	rec := serve(newShoppingHandler(env).Check, withID(env.request("POST", "/shopping-list/5/check", map[string]bool{"checked": true}), "5"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	env.backend.Mu.Lock()
	defer env.backend.Mu.Unlock()
	if !env.backend.ShoppingList[0].Checked {
		t.Error("entry should be checked")
	}
}

func TestShoppingEditKeepsBoughtAt(t *testing.T) {
	env := setupHandlerTest(t)
	seedRecords(env)
	want := env.backend.ShoppingRecords[0].BoughtAt.Time

	body := map[string]any{"item_id": 1, "quantity": 1, "price": "250", "store": "スーパー", "reason": "価格の修正", "action": "decrease"}
	rec := serve(newShoppingHandler(env).Edit, withID(env.request("PUT", "/shopping-records/1", body), "1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	env.backend.Mu.Lock()
	defer env.backend.Mu.Unlock()
	got := env.backend.ShoppingRecords[0]
	if !got.BoughtAt.Equal(want) {
		t.Errorf("bought_at = %v, want %v", got.BoughtAt.Time, want)
	}
	if !got.Price.Equal(decimal.NewFromInt(250)) {
		t.Errorf("price = %s, want 250", got.Price)
	}
}

func TestShoppingRejectsFractionalPrice(t *testing.T) {
	env := setupHandlerTest(t)
	seedRecords(env)
	h := newShoppingHandler(env)

	body := map[string]any{"item_id": 1, "quantity": 1, "price": "198.5", "store": "スーパー"}
	rec := serve(h.Buy, env.request("POST", "/shopping-records", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("buy status = %d, want 400", rec.Code)
	}
	if got := errorMessage(t, rec); got != msgPriceWhole {
		t.Errorf("error = %q", got)
	}

	body["reason"] = "価格の修正"
	body["action"] = "decrease"
	rec = serve(h.Edit, withID(env.request("PUT", "/shopping-records/1", body), "1"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("edit status = %d, want 400", rec.Code)
	}

	env.backend.Mu.Lock()
	defer env.backend.Mu.Unlock()
	if len(env.backend.ShoppingRecords) != 3 {
		t.Errorf("records = %d, want 3", len(env.backend.ShoppingRecords))
	}
}

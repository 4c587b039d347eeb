package handler

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stockypocky/stockyweb/internal/model"
	"github.com/stockypocky/stockyweb/internal/productinfo"
	"github.com/stockypocky/stockyweb/internal/push"
	"github.com/stockypocky/stockyweb/internal/upload"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCategoryListCountsItems(t *testing.T) {
	env := setupHandlerTest(t)
	env.seedInventory()

	rec := serve(NewCategoryHandler(env.up).List, env.request("GET", "/screens/categories", nil))
	rows := decodeBody[[]categoryRow](t, rec)
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Name != "食品" || rows[0].ItemCount != 2 || rows[1].ItemCount != 0 {
		t.Errorf("rows = %+v", rows)
	}

	rec = serve(NewCategoryHandler(env.up).List, env.request("GET", "/screens/categories?search=%E6%97%A5", nil))
	rows = decodeBody[[]categoryRow](t, rec)
	if len(rows) != 1 || rows[0].Name != "日用品" {
		t.Errorf("search rows = %+v", rows)
	}
}

func TestCategoryDeleteInUse(t *testing.T) {
	env := setupHandlerTest(t)
	env.seedInventory()
	h := NewCategoryHandler(env.up)

	rec := serve(h.Delete, withID(env.request("DELETE", "/categories/1", nil), "1"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if got := errorMessage(t, rec); got != msgCategoryInUse {
		t.Errorf("error = %q, want %q", got, msgCategoryInUse)
	}

	rec = serve(h.Delete, withID(env.request("DELETE", "/categories/2", nil), "2"))
	if rec.Code != http.StatusOK {
		t.Errorf("unused category: status = %d, want 200", rec.Code)
	}
}

func TestCategoryCreateRequiresName(t *testing.T) {
	env := setupHandlerTest(t)

	rec := serve(NewCategoryHandler(env.up).Create, env.request("POST", "/categories", map[string]string{"name": ""}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMemoListFilter(t *testing.T) {
	env := setupHandlerTest(t)
	env.backend.Memos = []model.Memo{
		{ID: 1, Title: "a"},
		{ID: 2, Title: "b", IsDone: true},
		{ID: 3, Title: "c"},
	}
	h := NewMemoHandler(env.up)

	tests := []struct {
		filter string
		want   int
	}{
		{"", 3},
		{"incomplete", 2},
		{"complete", 1},
		{"bogus", 3},
	}
	for _, tt := range tests {
		rec := serve(h.List, env.request("GET", "/screens/memos?filter="+tt.filter, nil))
		screen := decodeBody[memoListScreen](t, rec)
		if len(screen.Memos) != tt.want {
			t.Errorf("filter %q: %d memos, want %d", tt.filter, len(screen.Memos), tt.want)
		}
		if screen.Incomplete != 2 {
			t.Errorf("filter %q: incomplete = %d, want 2", tt.filter, screen.Incomplete)
		}
	}
}

func TestMemoCreateTrimsTags(t *testing.T) {
	env := setupHandlerTest(t)

	body := map[string]any{"title": "買い物", "content": "牛乳", "tags": []string{" 食品 ", ""}}
	rec := serve(NewMemoHandler(env.up).Create, env.request("POST", "/memos", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	env.backend.Mu.Lock()
	defer env.backend.Mu.Unlock()
	if tags := env.backend.Memos[0].Tags; len(tags) != 1 || tags[0] != "食品" {
		t.Errorf("tags = %q", tags)
	}
}

func TestSelectionRoundTrip(t *testing.T) {
	env := setupHandlerTest(t)
	h := NewSelectionHandler(env.selections, discardLogger())

	req := env.request("POST", "/selections/item", map[string]any{"id": 3, "name": "Rice"})
	req.SetPathValue("kind", "item")
	if rec := serve(h.Set, req); rec.Code != http.StatusNoContent {
		t.Fatalf("set status = %d", rec.Code)
	}

	req = env.request("GET", "/selections/item", nil)
	req.SetPathValue("kind", "item")
	rec := serve(h.Get, req)
	got := decodeBody[map[string]any](t, rec)
	if got["name"] != "Rice" {
		t.Errorf("selection = %v", got)
	}

	req = env.request("GET", "/selections/memo", nil)
	req.SetPathValue("kind", "memo")
	if rec := serve(h.Get, req); rec.Code != http.StatusNotFound {
		t.Errorf("empty selection status = %d, want 404", rec.Code)
	}

	req = env.request("POST", "/selections/user", map[string]any{"id": 1})
	req.SetPathValue("kind", "user")
	if rec := serve(h.Set, req); rec.Code != http.StatusNotFound {
		t.Errorf("unknown kind status = %d, want 404", rec.Code)
	}
}

func TestPushSubscribeBrowserShape(t *testing.T) {
	env := setupHandlerTest(t)
	h := NewPushHandler(env.pushStore, push.NewService(push.Config{VAPIDPublicKey: "pub"}), discardLogger())

	body := map[string]any{
		"endpoint": "https://push.example.com/abc",
		"keys":     map[string]string{"p256dh": "key", "auth": "secret"},
	}
	rec := serve(h.Subscribe, env.request("POST", "/push/subscribe", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	subs, err := env.pushStore.ListByUser(env.session.UserID)
	if err != nil || len(subs) != 1 {
		t.Fatalf("subs = %+v, err = %v", subs, err)
	}
	if subs[0].P256dhKey != "key" || subs[0].AuthKey != "secret" {
		t.Errorf("sub = %+v", subs[0])
	}

	rec = serve(h.Unsubscribe, withID(env.request("DELETE", "/push/subscriptions/x", nil), fmt.Sprint(subs[0].ID)))
	if rec.Code != http.StatusOK {
		t.Fatalf("unsubscribe status = %d", rec.Code)
	}
	if subs, _ := env.pushStore.ListByUser(env.session.UserID); len(subs) != 0 {
		t.Errorf("subs after unsubscribe = %+v", subs)
	}
}

func TestPushSubscribeRejectsPlainHTTP(t *testing.T) {
	env := setupHandlerTest(t)
	h := NewPushHandler(env.pushStore, push.NewService(push.Config{}), discardLogger())

	body := map[string]string{"endpoint": "http://push.example.com/abc", "p256dh": "k", "auth": "a"}
	if rec := serve(h.Subscribe, env.request("POST", "/push/subscribe", body)); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestVAPIDKey(t *testing.T) {
	env := setupHandlerTest(t)
	h := NewPushHandler(env.pushStore, push.NewService(push.Config{VAPIDPublicKey: "BPub"}), discardLogger())

	rec := serve(h.GetVAPIDKey, env.request("GET", "/push/vapid-key", nil))
	if got := decodeBody[map[string]string](t, rec)["public_key"]; got != "BPub" {
		t.Errorf("public_key = %q", got)
	}
}

func TestUploadDisabled(t *testing.T) {
	env := setupHandlerTest(t)
	h := NewUploadHandler(upload.NewUploader(upload.S3Config{}, discardLogger()), discardLogger())

	req := env.request("POST", "/uploads/images", nil)
	req.Body = io.NopCloser(bytes.NewReader([]byte("not an image")))
	rec := serve(h.Image, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestLookup(t *testing.T) {
	env := setupHandlerTest(t)
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
<meta property="og:title" content="おいしい牛乳 1L">
<meta property="og:image" content="/img/milk.jpg">
<meta property="product:brand" content="明治">
</head></html>`)
	}))
	defer page.Close()

	h := NewLookupHandler(productinfo.NewClient(productinfo.Config{AllowPrivate: true}), discardLogger())
	rec := serve(h.Lookup, env.request("POST", "/items/lookup", map[string]string{"url": page.URL + "/p/1"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	p := decodeBody[productinfo.Product](t, rec)
	if p.Name != "おいしい牛乳 1L" || p.Brand != "明治" || p.ImageURL != page.URL+"/img/milk.jpg" {
		t.Errorf("product = %+v", p)
	}

	rec = serve(h.Lookup, env.request("POST", "/items/lookup", map[string]string{"url": ""}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty url status = %d, want 400", rec.Code)
	}
}

package handler

import (
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/stockypocky/stockyweb/internal/api"
	"github.com/stockypocky/stockyweb/internal/inventory"
	"github.com/stockypocky/stockyweb/internal/model"
	"github.com/stockypocky/stockyweb/internal/websocket"
)

const (
	msgCategoryNameRequired = "カテゴリ名は必須です。"
	msgCategoryInUse        = "カテゴリに紐づくアイテムがあります。"
	msgCategoryCreated      = "カテゴリを登録しました。"
	msgCategoryUpdated      = "カテゴリを更新しました。"
	msgCategoryDeleted      = "カテゴリを削除しました。"
)

type CategoryHandler struct {
	up Upstream
}

func NewCategoryHandler(up Upstream) *CategoryHandler {
	return &CategoryHandler{up: up}
}

type categoryRow struct {
	model.Category
	ItemCount int `json:"item_count"`
}

// List handles GET /screens/categories?search=
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	c := h.up.clientFor(r)

	var (
		categories []model.Category
		items      []model.Item
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) { categories, err = c.ListCategories(ctx); return err })
	g.Go(func() (err error) { items, err = c.ListItems(ctx); return err })
	if err := g.Wait(); err != nil {
		h.up.fail(w, r, "category list", err)
		return
	}

	counts := make(map[int64]int)
	for _, item := range items {
		counts[item.CategoryID]++
	}

	filtered := inventory.FilterCategories(categories, strings.TrimSpace(r.URL.Query().Get("search")))
	rows := make([]categoryRow, 0, len(filtered))
	for _, cat := range filtered {
		rows = append(rows, categoryRow{Category: cat, ItemCount: counts[cat.ID]})
	}
	writeJSON(w, http.StatusOK, rows)
}

func decodeCategory(r *http.Request) (model.CategoryRequest, string) {
	var req model.CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		return req, msgInvalidInput
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return req, msgCategoryNameRequired
	}
	return req, ""
}

// Create handles POST /categories.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, msg := decodeCategory(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	cat, err := h.up.clientFor(r).CreateCategory(r.Context(), req)
	if err != nil {
		h.up.fail(w, r, "create category", err)
		return
	}

	h.up.broadcast(r, websocket.EntityCategory, websocket.ActionCreated, cat.ID)
	writeJSON(w, http.StatusCreated, mutationResponse{Message: msgCategoryCreated, Data: cat})
}

// Update handles PUT /categories/{id}.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	req, msg := decodeCategory(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	cat, err := h.up.clientFor(r).UpdateCategory(r.Context(), id, req)
	if err != nil {
		h.up.fail(w, r, "update category", err)
		return
	}

	h.up.broadcast(r, websocket.EntityCategory, websocket.ActionUpdated, id)
	writeJSON(w, http.StatusOK, mutationResponse{Message: msgCategoryUpdated, Data: cat})
}

// Delete handles DELETE /categories/{id}. The backend refuses while items
// still belong to the category.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}

	if err := h.up.clientFor(r).DeleteCategory(r.Context(), id); err != nil {
		if api.StatusCode(err) == http.StatusBadRequest {
			writeError(w, http.StatusConflict, msgCategoryInUse)
			return
		}
		h.up.fail(w, r, "delete category", err)
		return
	}

	h.up.broadcast(r, websocket.EntityCategory, websocket.ActionDeleted, id)
	writeJSON(w, http.StatusOK, mutationResponse{Message: msgCategoryDeleted})
}

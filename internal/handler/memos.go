package handler

import (
	"net/http"
	"strings"

	"github.com/stockypocky/stockyweb/internal/inventory"
	"github.com/stockypocky/stockyweb/internal/model"
	"github.com/stockypocky/stockyweb/internal/websocket"
)

const (
	msgMemoTitleRequired = "タイトルは必須です。"
	msgMemoCreated       = "メモを登録しました。"
	msgMemoUpdated       = "メモを更新しました。"
	msgMemoDeleted       = "メモを削除しました。"
)

type MemoHandler struct {
	up Upstream
}

func NewMemoHandler(up Upstream) *MemoHandler {
	return &MemoHandler{up: up}
}

type memoListScreen struct {
	Filter     inventory.MemoFilter `json:"filter"`
	Memos      []model.Memo         `json:"memos"`
	Incomplete int                  `json:"incomplete"`
}

// List handles GET /screens/memos?filter=all|incomplete|complete
func (h *MemoHandler) List(w http.ResponseWriter, r *http.Request) {
	memos, err := h.up.clientFor(r).ListMemos(r.Context())
	if err != nil {
		h.up.fail(w, r, "memo list", err)
		return
	}

	filter := inventory.MemoFilter(r.URL.Query().Get("filter"))
	switch filter {
	case inventory.MemoIncomplete, inventory.MemoComplete:
	default:
		filter = inventory.MemoAll
	}
	writeJSON(w, http.StatusOK, memoListScreen{
		Filter:     filter,
		Memos:      inventory.FilterMemos(memos, filter),
		Incomplete: len(inventory.FilterMemos(memos, inventory.MemoIncomplete)),
	})
}

// Detail handles GET /screens/memos/{id}.
func (h *MemoHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	memo, err := h.up.clientFor(r).GetMemo(r.Context(), id)
	if err != nil {
		h.up.fail(w, r, "memo detail", err)
		return
	}
	if memo.Tags == nil {
		memo.Tags = []string{}
	}
	writeJSON(w, http.StatusOK, memo)
}

func decodeMemo(r *http.Request) (model.MemoRequest, string) {
	var req model.MemoRequest
	if err := decodeJSON(r, &req); err != nil {
		return req, msgInvalidInput
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return req, msgMemoTitleRequired
	}
	tags := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	req.Tags = tags
	return req, ""
}

// Create handles POST /memos.
func (h *MemoHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, msg := decodeMemo(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	memo, err := h.up.clientFor(r).CreateMemo(r.Context(), req)
	if err != nil {
		h.up.fail(w, r, "create memo", err)
		return
	}

	h.up.broadcast(r, websocket.EntityMemo, websocket.ActionCreated, memo.ID)
	writeJSON(w, http.StatusCreated, mutationResponse{Message: msgMemoCreated, Data: memo})
}

// Update handles PUT /memos/{id}. Toggling is_done goes through here too.
func (h *MemoHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	req, msg := decodeMemo(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	memo, err := h.up.clientFor(r).UpdateMemo(r.Context(), id, req)
	if err != nil {
		h.up.fail(w, r, "update memo", err)
		return
	}

	h.up.broadcast(r, websocket.EntityMemo, websocket.ActionUpdated, id)
	writeJSON(w, http.StatusOK, mutationResponse{Message: msgMemoUpdated, Data: memo})
}

// Delete handles DELETE /memos/{id}.
func (h *MemoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	if err := h.up.clientFor(r).DeleteMemo(r.Context(), id); err != nil {
		h.up.fail(w, r, "delete memo", err)
		return
	}

	h.up.broadcast(r, websocket.EntityMemo, websocket.ActionDeleted, id)
	writeJSON(w, http.StatusOK, mutationResponse{Message: msgMemoDeleted})
}

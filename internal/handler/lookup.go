package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stockypocky/stockyweb/internal/productinfo"
)

const (
	msgLookupURLRequired = "URLを入力してください。"
	msgLookupNotFound    = "商品情報が見つかりませんでした。"
	msgLookupFailed      = "商品情報を取得できませんでした。"
)

type LookupHandler struct {
	client *productinfo.Client
	logger *slog.Logger
}

func NewLookupHandler(c *productinfo.Client, logger *slog.Logger) *LookupHandler {
	return &LookupHandler{client: c, logger: logger}
}

// Lookup handles POST /items/lookup with {"url": "..."} and returns the
// product name, brand and image read from the page.
func (h *LookupHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, msgLookupURLRequired)
		return
	}

	product, err := h.client.Lookup(r.Context(), req.URL)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, product)
	case errors.Is(err, context.Canceled):
	case errors.Is(err, productinfo.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, msgInvalidInput)
	case errors.Is(err, productinfo.ErrNotFound):
		writeError(w, http.StatusNotFound, msgLookupNotFound)
	default:
		h.logger.Warn("product lookup failed", "url", req.URL, "error", err)
		writeError(w, http.StatusBadGateway, msgLookupFailed)
	}
}

package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/stockypocky/stockyweb/internal/auth"
	"github.com/stockypocky/stockyweb/internal/model"
	"github.com/stockypocky/stockyweb/internal/store"
)

const maxSelectionBytes = 64 << 10

// SelectionHandler remembers the entity picked on a list screen so the
// detail and edit screens can open without another lookup.
type SelectionHandler struct {
	selections *store.SelectionStore
	logger     *slog.Logger
}

func NewSelectionHandler(ss *store.SelectionStore, logger *slog.Logger) *SelectionHandler {
	return &SelectionHandler{selections: ss, logger: logger}
}

func selectionKind(r *http.Request) (model.SelectionKind, bool) {
	kind := model.SelectionKind(r.PathValue("kind"))
	return kind, kind.Valid()
}

// Set handles POST /selections/{kind}. The body is stored as-is.
func (h *SelectionHandler) Set(w http.ResponseWriter, r *http.Request) {
	kind, ok := selectionKind(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxSelectionBytes+1))
	if err != nil || len(data) > maxSelectionBytes || !json.Valid(data) {
		writeError(w, http.StatusBadRequest, msgInvalidInput)
		return
	}

	ac, _ := auth.FromContext(r.Context())
	if err := h.selections.Set(ac.SessionID, kind, data); err != nil {
		h.logger.Error("store selection", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Get handles GET /selections/{kind}.
func (h *SelectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind, ok := selectionKind(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	ac, _ := auth.FromContext(r.Context())
	data, err := h.selections.Get(ac.SessionID, kind)
	if err != nil {
		h.logger.Error("load selection", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if data == nil {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

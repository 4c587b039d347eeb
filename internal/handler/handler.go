package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/stockypocky/stockyweb/internal/api"
	"github.com/stockypocky/stockyweb/internal/auth"
	"github.com/stockypocky/stockyweb/internal/middleware"
	"github.com/stockypocky/stockyweb/internal/store"
	"github.com/stockypocky/stockyweb/internal/websocket"
)

const (
	msgServerError    = "サーバーエラーが発生しました。"
	msgNetworkError   = "ネットワークエラーが発生しました。"
	msgSessionExpired = "セッションの有効期限が切れました。再度ログインしてください。"
	msgInvalidInput   = "入力内容が正しくありません。"
	msgInvalidID      = "IDが正しくありません。"
	msgNotFound       = "データが見つかりません。"
)

// Upstream carries what every screen handler needs to reach the backend on
// behalf of the session user.
type Upstream struct {
	Client   *api.Client
	Sessions *store.SessionStore
	Hub      *websocket.Hub
	Location *time.Location
	Logger   *slog.Logger
	// SecureCookie marks session cookies Secure behind a TLS proxy.
	SecureCookie bool
}

// clientFor returns a backend client authenticated as the session user.
func (u Upstream) clientFor(r *http.Request) *api.Client {
	return u.Client.WithToken(auth.Token(r.Context()))
}

func (u Upstream) location() *time.Location {
	if u.Location == nil {
		return time.Local
	}
	return u.Location
}

func (u Upstream) broadcast(r *http.Request, entity, action string, id int64) {
	if u.Hub != nil {
		u.Hub.BroadcastTo(auth.UserID(r.Context()), websocket.NewMessage(entity, action, id, nil))
	}
}

// fail maps a backend error onto the response. A backend 401 means the
// stored token is no longer accepted, so the session is dropped.
func (u Upstream) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		u.Logger.Debug("request cancelled", "op", op)
	case errors.Is(err, api.ErrUnauthorized):
		u.Logger.Info("backend rejected token, logging out", "op", op)
		u.hardLogout(w, r)
	default:
		u.Logger.Error("backend request failed", "op", op, "status", api.StatusCode(err), "error", err)
		status, msg := errorStatus(err)
		writeError(w, status, msg)
	}
}

// errorStatus returns the browser-facing status and message for a backend
// error other than 401.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, api.ErrNetwork):
		return http.StatusServiceUnavailable, msgNetworkError
	case api.StatusCode(err) == http.StatusNotFound:
		return http.StatusNotFound, msgNotFound
	}
	return http.StatusBadGateway, msgServerError
}

func (u Upstream) hardLogout(w http.ResponseWriter, r *http.Request) {
	if ac, ok := auth.FromContext(r.Context()); ok && u.Sessions != nil {
		if err := u.Sessions.Delete(ac.SessionID); err != nil {
			u.Logger.Error("delete session", "session_id", ac.SessionID, "error", err)
		}
	}
	middleware.ClearSessionCookie(w, r, u.SecureCookie)

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msgSessionExpired, "redirect": "/login"})
}

// mutationResponse is returned by every successful write so the browser can
// show a toast.
type mutationResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

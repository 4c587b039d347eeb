package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/stockypocky/stockyweb/internal/api"
	"github.com/stockypocky/stockyweb/internal/auth"
	"github.com/stockypocky/stockyweb/internal/middleware"
	"github.com/stockypocky/stockyweb/internal/store"
)

const (
	msgUserNotFound     = "ユーザーが見つかりません。"
	msgWrongPassword    = "パスワードが違います。"
	msgMissingLogin     = "メールアドレスとパスワードを入力してください。"
	msgLoggedOut        = "ログアウトしました。"
	msgSessionStoreFail = "ログインに失敗しました。"
)

type AuthHandler struct {
	up           Upstream
	selections   *store.SelectionStore
	secureCookie bool
	now          func() time.Time
}

func NewAuthHandler(up Upstream, selections *store.SelectionStore, secureCookie bool) *AuthHandler {
	return &AuthHandler{up: up, selections: selections, secureCookie: secureCookie, now: time.Now}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
	Redirect  string    `json:"redirect,omitempty"`
}

// Login handles POST /login. It accepts a JSON body or a form post.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, msgInvalidInput)
			return
		}
	} else {
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, msgMissingLogin)
		return
	}

	res, err := h.up.Client.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch api.StatusCode(err) {
		case http.StatusNotFound:
			writeError(w, http.StatusUnauthorized, msgUserNotFound)
		case http.StatusUnauthorized:
			writeError(w, http.StatusUnauthorized, msgWrongPassword)
		default:
			h.up.fail(w, r, "login", err)
		}
		return
	}

	// The token's subject is the display name, so the stable user id comes
	// from /users/me.
	user, err := h.up.Client.WithToken(res.Token).Me(r.Context())
	if err != nil {
		h.up.fail(w, r, "load user", err)
		return
	}
	username := res.Name
	if username == "" {
		username = user.Name
	}

	sess, err := h.up.Sessions.Create(user.ID, username, res.Token, h.now())
	if err != nil {
		h.up.Logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, msgSessionStoreFail)
		return
	}

	middleware.SetSessionCookie(w, r, sess, h.secureCookie)
	h.up.Logger.Info("user logged in", "user_id", sess.UserID)

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/")
	}
	writeJSON(w, http.StatusOK, sessionResponse{Username: sess.Username, ExpiresAt: sess.ExpiresAt, Redirect: "/"})
}

// Logout handles POST /logout. The backend call is best effort; the local
// session is removed regardless.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	if err := h.up.clientFor(r).Logout(r.Context()); err != nil {
		h.up.Logger.Warn("backend logout failed", "error", err)
	}
	if err := h.selections.Clear(ac.SessionID); err != nil {
		h.up.Logger.Error("clear selections", "session_id", ac.SessionID, "error", err)
	}
	if err := h.up.Sessions.Delete(ac.SessionID); err != nil {
		h.up.Logger.Error("delete session", "session_id", ac.SessionID, "error", err)
	}
	middleware.ClearSessionCookie(w, r, h.secureCookie)

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msgLoggedOut, "redirect": "/login"})
}

// Session handles GET /session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{Username: ac.Username, ExpiresAt: ac.ExpiresAt})
}

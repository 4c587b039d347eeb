package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stockypocky/stockyweb/internal/auth"
	"github.com/stockypocky/stockyweb/internal/model"
	"github.com/stockypocky/stockyweb/internal/store"
)

const SessionCookieName = "stocky_session"

// publicPaths are reachable without a session. Entries ending in "/" match
// as prefixes.
var publicPaths = []string{
	"/login",
	"/health",
	"/static/",
}

func IsPublic(path string) bool {
	for _, p := range publicPaths {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

// RequireAuth validates the session cookie and populates AuthContext.
// Expired sessions are deleted and the browser is sent to /login?expired=1.
// secure must match the flag the cookie was issued with.
func RequireAuth(sessions *store.SessionStore, now func() time.Time, secure bool, logger *slog.Logger) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				RedirectToLogin(w, r, false)
				return
			}

			sess, err := sessions.GetByKey(cookie.Value)
			if err != nil {
				logger.Error("load session", "error", err)
			}
			if err != nil || sess == nil {
				ClearSessionCookie(w, r, secure)
				RedirectToLogin(w, r, false)
				return
			}

			if sess.Expired(now()) {
				if err := sessions.Delete(sess.ID); err != nil {
					logger.Error("delete expired session", "session_id", sess.ID, "error", err)
				}
				ClearSessionCookie(w, r, secure)
				RedirectToLogin(w, r, true)
				return
			}

			ac := auth.AuthContext{
				SessionID: sess.ID,
				UserID:    sess.UserID,
				Username:  sess.Username,
				Token:     sess.Token,
				ExpiresAt: sess.ExpiresAt,
			}

			noteUser(r.Context(), ac.UserID)
			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetSessionCookie issues the cookie for sess. It expires with the session.
func SetSessionCookie(w http.ResponseWriter, r *http.Request, sess *model.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.Key,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure || r.TLS != nil,
	})
}

// ClearSessionCookie expires the session cookie with the same attributes
// SetSessionCookie used.
func ClearSessionCookie(w http.ResponseWriter, r *http.Request, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure || r.TLS != nil,
	})
}

// RedirectToLogin is HTMX-aware: it returns an HX-Redirect header instead of
// a 303 for HTMX requests, and a 401 JSON body for fetch clients.
func RedirectToLogin(w http.ResponseWriter, r *http.Request, expired bool) {
	target := "/login"
	if expired {
		target = "/login?expired=1"
	}

	switch {
	case r.Header.Get("HX-Request") == "true":
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
	case strings.Contains(r.Header.Get("Accept"), "application/json"):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "redirect": target})
	default:
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

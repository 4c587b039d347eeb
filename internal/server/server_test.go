package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stockypocky/stockyweb/internal/api"
	"github.com/stockypocky/stockyweb/internal/api/apitest"
	"github.com/stockypocky/stockyweb/internal/database"
	"github.com/stockypocky/stockyweb/internal/middleware"
	"github.com/stockypocky/stockyweb/internal/model"
	"github.com/stockypocky/stockyweb/internal/productinfo"
	"github.com/stockypocky/stockyweb/internal/push"
	"github.com/stockypocky/stockyweb/internal/secret"
	"github.com/stockypocky/stockyweb/internal/upload"
)

func setupServer(t *testing.T, pushSvc *push.Service) (*Server, *apitest.Backend) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	box, err := secret.NewBox("test-secret", []byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("new box: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := apitest.New(t)
	srv := New(db, box,
		api.NewClient(api.Config{BaseURL: backend.URL()}),
		upload.NewUploader(upload.S3Config{}, logger),
		productinfo.NewClient(productinfo.Config{}),
		pushSvc,
		Config{Location: time.UTC},
		logger,
	)
	return srv, backend
}

func login(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"email":"`+apitest.Email+`","password":"`+apitest.Password+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatal("login set no session cookie")
	return nil
}

func TestHealth(t *testing.T) {
	srv, _ := setupServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestProtectedRouteRequiresSession(t *testing.T) {
	srv, _ := setupServer(t, nil)

	req := httptest.NewRequest("GET", "/screens/dashboard", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLoginThenScreens(t *testing.T) {
	srv, backend := setupServer(t, nil)
	backend.Items = []model.Item{{ID: 1, Name: "Milk"}}
	backend.Stocks = []model.Stock{{ID: 10, ItemID: 1, Quantity: 1, Threshold: 3}}
	h := srv.Router()
	cookie := login(t, h)

	for _, path := range []string{"/screens/dashboard", "/screens/items", "/screens/items/1", "/screens/shopping-records?mode=month", "/session"} {
		req := httptest.NewRequest("GET", path, nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d: %s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestLogoutEndsSession(t *testing.T) {
	srv, _ := setupServer(t, nil)
	h := srv.Router()
	cookie := login(t, h)

	req := httptest.NewRequest("POST", "/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/screens/dashboard", nil)
	req.Header.Set("Accept", "application/json")
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout status = %d, want 401", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	srv, _ := setupServer(t, nil)
	h := srv.Router()

	var last *httptest.ResponseRecorder
	for range loginLimit + 1 {
		req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"email":"x@example.com","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", last.Code)
	}
	var body map[string]string
	json.NewDecoder(last.Body).Decode(&body)
	if body["error"] != middleware.RateLimitMessage {
		t.Errorf("error = %q", body["error"])
	}
}

func TestPushRoutesFollowService(t *testing.T) {
	tests := []struct {
		name string
		svc  *push.Service
		want int
	}{
		{"disabled", nil, http.StatusNotFound},
		{"enabled", push.NewService(push.Config{VAPIDPublicKey: "pub", VAPIDPrivateKey: "priv"}), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := setupServer(t, tt.svc)
			h := srv.Router()
			cookie := login(t, h)

			req := httptest.NewRequest("GET", "/push/vapid-key", nil)
			req.AddCookie(cookie)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if (srv.PushScheduler() != nil) != (tt.svc != nil) {
				t.Errorf("scheduler presence does not follow push service")
			}
		})
	}
}

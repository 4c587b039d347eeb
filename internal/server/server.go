package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/stockypocky/stockyweb/internal/api"
	"github.com/stockypocky/stockyweb/internal/handler"
	"github.com/stockypocky/stockyweb/internal/middleware"
	"github.com/stockypocky/stockyweb/internal/productinfo"
	"github.com/stockypocky/stockyweb/internal/push"
	"github.com/stockypocky/stockyweb/internal/secret"
	"github.com/stockypocky/stockyweb/internal/stock"
	"github.com/stockypocky/stockyweb/internal/store"
	"github.com/stockypocky/stockyweb/internal/upload"
	ws "github.com/stockypocky/stockyweb/internal/websocket"
)

// Login attempts allowed per client address per window.
const (
	loginLimit  = 10
	loginWindow = time.Minute
)

type Config struct {
	SecureCookie  bool
	AllowOrigins  []string
	StaticDir     string
	Location      *time.Location
	AlertInterval time.Duration
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	authH         *handler.AuthHandler
	dashboardH    *handler.DashboardHandler
	itemH         *handler.ItemHandler
	categoryH     *handler.CategoryHandler
	shoppingH     *handler.ShoppingHandler
	memoH         *handler.MemoHandler
	selectionH    *handler.SelectionHandler
	uploadH       *handler.UploadHandler
	lookupH       *handler.LookupHandler
	pushH         *handler.PushHandler
	sessionStore  *store.SessionStore
	pushStore     *store.PushStore
	rateLimiter   *middleware.RateLimiter
	pushScheduler *push.Scheduler
	cfg           Config
	logger        *slog.Logger
}

// New wires stores, handlers and background services. pushSvc may be nil, in
// which case push routes and the low-stock scheduler are disabled.
func New(db *sql.DB, box *secret.Box, client *api.Client, uploader *upload.Uploader, lookup *productinfo.Client, pushSvc *push.Service, cfg Config, logger *slog.Logger) *Server {
	if cfg.StaticDir == "" {
		cfg.StaticDir = "web/static"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	sessionStore := store.NewSessionStore(db, box)
	selectionStore := store.NewSelectionStore(db)
	pushSt := store.NewPushStore(db)

	up := handler.Upstream{
		Client:   client,
		Sessions: sessionStore,
		Hub:      hub,
		Location: cfg.Location,
		Logger:   logger.With("component", "upstream"),

		SecureCookie: cfg.SecureCookie,
	}

	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	if pushSvc != nil {
		pushSched = push.NewScheduler(pushSvc, pushSt, sessionStore, client, cfg.AlertInterval, logger)
		pushH = handler.NewPushHandler(pushSt, pushSvc, logger.With("component", "push_handler"))
	}

	adjuster := stock.NewAdjuster(logger.With("component", "stock"))

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(up, selectionStore, cfg.SecureCookie),
		dashboardH:    handler.NewDashboardHandler(up),
		itemH:         handler.NewItemHandler(up, adjuster, uploader),
		categoryH:     handler.NewCategoryHandler(up),
		shoppingH:     handler.NewShoppingHandler(up),
		memoH:         handler.NewMemoHandler(up),
		selectionH:    handler.NewSelectionHandler(selectionStore, logger.With("component", "selection")),
		uploadH:       handler.NewUploadHandler(uploader, logger.With("component", "upload")),
		lookupH:       handler.NewLookupHandler(lookup, logger.With("component", "lookup")),
		pushH:         pushH,
		sessionStore:  sessionStore,
		pushStore:     pushSt,
		rateLimiter:   middleware.NewRateLimiter(),
		pushScheduler: pushSched,
		cfg:           cfg,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// PushScheduler returns the low-stock alert scheduler, or nil when push is
// not configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.StaticDir))))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, nil, s.cfg.SecureCookie, s.logger.With("component", "auth"))
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.ByIP, loginLimit, loginWindow)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /session", s.authH.Session)

	mux.HandleFunc("GET /screens/dashboard", s.dashboardH.Show)

	// Items and stock
	mux.HandleFunc("GET /screens/items", s.itemH.List)
	mux.HandleFunc("GET /screens/items/{id}", s.itemH.Detail)
	mux.HandleFunc("GET /screens/items/{id}/history", s.itemH.History)
	mux.HandleFunc("POST /items", s.itemH.Create)
	mux.HandleFunc("PUT /items/{id}", s.itemH.Update)
	mux.HandleFunc("DELETE /items/{id}", s.itemH.Delete)
	mux.HandleFunc("POST /items/{id}/stock", s.itemH.AdjustStock)
	mux.HandleFunc("POST /items/lookup", s.lookupH.Lookup)

	// Categories
	mux.HandleFunc("GET /screens/categories", s.categoryH.List)
	mux.HandleFunc("POST /categories", s.categoryH.Create)
	mux.HandleFunc("PUT /categories/{id}", s.categoryH.Update)
	mux.HandleFunc("DELETE /categories/{id}", s.categoryH.Delete)

	// Shopping list
	mux.HandleFunc("GET /screens/shopping-list", s.shoppingH.List)
	mux.HandleFunc("POST /shopping-list", s.shoppingH.Add)
	mux.HandleFunc("POST /shopping-list/{id}/check", s.shoppingH.Check)
	mux.HandleFunc("DELETE /shopping-list/{id}", s.shoppingH.Remove)

	// Shopping records
	mux.HandleFunc("GET /screens/shopping-records", s.shoppingH.Records)
	mux.HandleFunc("GET /screens/shopping-records/summary", s.shoppingH.Summary)
	mux.HandleFunc("GET /screens/shopping-records/{id}", s.shoppingH.Record)
	mux.HandleFunc("POST /shopping-records", s.shoppingH.Buy)
	mux.HandleFunc("PUT /shopping-records/{id}", s.shoppingH.Edit)
	mux.HandleFunc("DELETE /shopping-records/{id}", s.shoppingH.DeleteRecord)

	// Memos
	mux.HandleFunc("GET /screens/memos", s.memoH.List)
	mux.HandleFunc("GET /screens/memos/{id}", s.memoH.Detail)
	mux.HandleFunc("POST /memos", s.memoH.Create)
	mux.HandleFunc("PUT /memos/{id}", s.memoH.Update)
	mux.HandleFunc("DELETE /memos/{id}", s.memoH.Delete)

	mux.HandleFunc("GET /selections/{kind}", s.selectionH.Get)
	mux.HandleFunc("POST /selections/{kind}", s.selectionH.Set)

	mux.HandleFunc("POST /uploads/images", s.uploadH.Image)

	if s.pushH != nil {
		mux.HandleFunc("GET /push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("GET /push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("DELETE /push/subscriptions/{id}", s.pushH.Unsubscribe)
	}

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.cfg.AllowOrigins))
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stockypocky/stockyweb/internal/api"
	"github.com/stockypocky/stockyweb/internal/config"
	"github.com/stockypocky/stockyweb/internal/database"
	"github.com/stockypocky/stockyweb/internal/logging"
	"github.com/stockypocky/stockyweb/internal/productinfo"
	"github.com/stockypocky/stockyweb/internal/push"
	"github.com/stockypocky/stockyweb/internal/secret"
	"github.com/stockypocky/stockyweb/internal/server"
	"github.com/stockypocky/stockyweb/internal/store"
	"github.com/stockypocky/stockyweb/internal/upload"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	settings := store.NewSettingsStore(db)
	salt, err := settings.TokenSalt()
	if err != nil {
		slog.Error("failed to load token salt", "error", err)
		os.Exit(1)
	}
	box, err := secret.NewBox(cfg.SessionSecret, salt)
	if err != nil {
		slog.Error("failed to derive token key", "error", err)
		os.Exit(1)
	}

	pushCfg, err := resolveVAPIDKeys(settings, cfg.Push)
	if err != nil {
		slog.Error("failed to prepare VAPID keys", "error", err)
		os.Exit(1)
	}

	uploader := upload.NewUploader(cfg.S3, logger.With("component", "upload"))
	if !uploader.Enabled() {
		slog.Warn("S3 not configured, image upload disabled")
	}

	srv := server.New(db, box,
		api.NewClient(api.Config{BaseURL: cfg.APIURL, Timeout: cfg.APITimeout}),
		uploader,
		productinfo.NewClient(productinfo.Config{}),
		push.NewService(pushCfg),
		server.Config{
			SecureCookie:  cfg.SecureCookie,
			AllowOrigins:  cfg.AllowOrigins,
			Location:      cfg.Location,
			AlertInterval: cfg.AlertInterval,
		},
		logger,
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	srv.PushScheduler().Start(bgCtx)

	// Background cleanup goroutine
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(time.Now()); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-bgCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("stockyweb starting", "addr", httpServer.Addr, "api", cfg.APIURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	bgCancel()
	srv.PushScheduler().Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// resolveVAPIDKeys prefers keys from the environment, then keys persisted in
// settings, and otherwise generates and persists a new pair.
func resolveVAPIDKeys(settings *store.SettingsStore, cfg push.Config) (push.Config, error) {
	if cfg.VAPIDPublicKey != "" {
		return cfg, nil
	}

	pub, pubErr := settings.Get(store.SettingVAPIDPublicKey)
	priv, privErr := settings.Get(store.SettingVAPIDPrivateKey)
	if pubErr == nil && privErr == nil {
		cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey = pub, priv
		return cfg, nil
	}
	for _, err := range []error{pubErr, privErr} {
		if err != nil && !errors.Is(err, store.ErrSettingNotFound) {
			return cfg, err
		}
	}

	pub, priv, err := push.GenerateVAPIDKeys()
	if err != nil {
		return cfg, err
	}
	if err := settings.Set(store.SettingVAPIDPublicKey, pub); err != nil {
		return cfg, err
	}
	if err := settings.Set(store.SettingVAPIDPrivateKey, priv); err != nil {
		return cfg, err
	}
	slog.Info("generated VAPID keys")
	cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey = pub, priv
	return cfg, nil
}

// Package config reads STOCKY_* settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/stockypocky/stockyweb/internal/push"
	"github.com/stockypocky/stockyweb/internal/upload"
)

type Config struct {
	Port          string
	DBPath        string
	APIURL        string
	APITimeout    time.Duration
	LogLevel      string
	LogFormat     string
	Location      *time.Location
	SessionSecret string
	SecureCookie  bool
	AllowOrigins  []string
	S3            upload.S3Config
	Push          push.Config
	AlertInterval time.Duration
}

// LoadDotEnv loads the given files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration using getenv, typically os.Getenv.
func Load(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv("STOCKY_" + key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Port:          get("PORT", "8080"),
		DBPath:        get("DB_PATH", "stockyweb.db"),
		APIURL:        get("API_URL", "http://localhost:8000"),
		LogLevel:      get("LOG_LEVEL", "info"),
		LogFormat:     get("LOG_FORMAT", "text"),
		SessionSecret: get("SESSION_SECRET", ""),
		S3: upload.S3Config{
			Endpoint:  get("S3_ENDPOINT", ""),
			Bucket:    get("S3_BUCKET", ""),
			Region:    get("S3_REGION", "auto"),
			AccessKey: get("S3_ACCESS_KEY", ""),
			SecretKey: get("S3_SECRET_KEY", ""),
			PublicURL: get("S3_PUBLIC_URL", ""),
		},
		Push: push.Config{
			VAPIDPublicKey:  get("VAPID_PUBLIC_KEY", ""),
			VAPIDPrivateKey: get("VAPID_PRIVATE_KEY", ""),
			Subscriber:      get("VAPID_SUBSCRIBER", ""),
		},
	}

	var err error
	if cfg.APITimeout, err = time.ParseDuration(get("API_TIMEOUT", "10s")); err != nil {
		return Config{}, fmt.Errorf("STOCKY_API_TIMEOUT: %w", err)
	}
	if cfg.AlertInterval, err = time.ParseDuration(get("ALERT_INTERVAL", "15m")); err != nil {
		return Config{}, fmt.Errorf("STOCKY_ALERT_INTERVAL: %w", err)
	}
	if cfg.SecureCookie, err = strconv.ParseBool(get("SECURE_COOKIE", "false")); err != nil {
		return Config{}, fmt.Errorf("STOCKY_SECURE_COOKIE: %w", err)
	}
	if cfg.Location, err = time.LoadLocation(get("TIMEZONE", "Asia/Tokyo")); err != nil {
		return Config{}, fmt.Errorf("STOCKY_TIMEZONE: %w", err)
	}
	if origins := get("ALLOW_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, o)
			}
		}
	}

	if cfg.SessionSecret == "" {
		return Config{}, errors.New("STOCKY_SESSION_SECRET is required")
	}
	if cfg.S3.Bucket != "" && cfg.S3.PublicURL == "" {
		return Config{}, errors.New("STOCKY_S3_PUBLIC_URL is required when STOCKY_S3_BUCKET is set")
	}
	if (cfg.Push.VAPIDPublicKey == "") != (cfg.Push.VAPIDPrivateKey == "") {
		return Config{}, errors.New("STOCKY_VAPID_PUBLIC_KEY and STOCKY_VAPID_PRIVATE_KEY must be set together")
	}

	return cfg, nil
}

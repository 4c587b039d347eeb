package store

import (
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/stockypocky/stockyweb/internal/secret"
)

// ErrSettingNotFound is returned by Get for a missing key.
var ErrSettingNotFound = errors.New("setting not found")

const (
	settingTokenSalt       = "token_salt"
	SettingVAPIDPublicKey  = "vapid_public_key"
	SettingVAPIDPrivateKey = "vapid_private_key"
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q: %w", key, ErrSettingNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// TokenSalt returns the salt used to derive the token encryption key,
// creating and persisting one on first use.
func (s *SettingsStore) TokenSalt() ([]byte, error) {
	value, err := s.Get(settingTokenSalt)
	if err == nil {
		salt, decodeErr := base64.StdEncoding.DecodeString(value)
		if decodeErr != nil {
			return nil, fmt.Errorf("decode token salt: %w", decodeErr)
		}
		return salt, nil
	}
	if !errors.Is(err, ErrSettingNotFound) {
		return nil, err
	}

	salt, err := secret.GenerateSalt()
	if err != nil {
		return nil, err
	}
	if err := s.Set(settingTokenSalt, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, err
	}
	return salt, nil
}

package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stockypocky/stockyweb/internal/model"
	"github.com/stockypocky/stockyweb/internal/secret"
)

// SessionLifetime caps a session regardless of the token's own expiry.
const SessionLifetime = 2*time.Hour + 30*time.Minute

type SessionStore struct {
	db  *sql.DB
	box *secret.Box
}

func NewSessionStore(db *sql.DB, box *secret.Box) *SessionStore {
	return &SessionStore{db: db, box: box}
}

// SessionExpiry returns the earlier of issuedAt+SessionLifetime and the
// token's exp claim. The token is decoded without verifying its signature;
// the backend remains the authority on validity.
func SessionExpiry(token string, issuedAt time.Time) time.Time {
	expiry := issuedAt.Add(SessionLifetime)

	raw := strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return expiry
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return expiry
	}
	if exp.Time.Before(expiry) {
		return exp.Time
	}
	return expiry
}

func generateKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Create stores a session for a freshly issued backend token.
func (s *SessionStore) Create(userID, username, token string, issuedAt time.Time) (*model.Session, error) {
	key, err := generateKey()
	if err != nil {
		return nil, err
	}
	enc, err := s.box.Seal([]byte(token))
	if err != nil {
		return nil, fmt.Errorf("encrypt token: %w", err)
	}

	issuedAt = dbTime(issuedAt)
	expiresAt := dbTime(SessionExpiry(token, issuedAt))

	result, err := s.db.Exec(
		`INSERT INTO sessions (key, user_id, username, token_enc, issued_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		key, userID, username, enc, issuedAt, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &model.Session{
		ID:        id,
		Key:       key,
		UserID:    userID,
		Username:  username,
		Token:     token,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}, nil
}

const sessionColumns = `id, key, user_id, username, token_enc, issued_at, expires_at, created_at`

func (s *SessionStore) scanSession(scanner interface{ Scan(...any) error }) (*model.Session, error) {
	var sess model.Session
	var enc []byte
	if err := scanner.Scan(&sess.ID, &sess.Key, &sess.UserID, &sess.Username, &enc, &sess.IssuedAt, &sess.ExpiresAt, &sess.CreatedAt); err != nil {
		return nil, err
	}
	token, err := s.box.Open(enc)
	if err != nil {
		return nil, fmt.Errorf("decrypt session token: %w", err)
	}
	sess.Token = string(token)
	return &sess, nil
}

// GetByKey returns the session for a cookie value, or nil if none exists.
// Expired sessions are returned; callers decide what to do with them.
func (s *SessionStore) GetByKey(key string) (*model.Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE key = ?`, key)
	sess, err := s.scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// LatestByUserID returns the most recently issued live session of a user.
func (s *SessionStore) LatestByUserID(userID string, now time.Time) (*model.Session, error) {
	row := s.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? AND expires_at > ? ORDER BY issued_at DESC, id DESC LIMIT 1`,
		userID, dbTime(now),
	)
	sess, err := s.scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest session: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteByUserID(userID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete sessions by user: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions whose expiry is at or before now.
func (s *SessionStore) DeleteExpired(now time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, dbTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

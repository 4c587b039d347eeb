package store

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stockypocky/stockyweb/internal/secret"
)

func setupSessionTestDB(t *testing.T) *SessionStore {
	t.Helper()
	box, err := secret.NewBox("test-secret", []byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("new box: %v", err)
	}
	return NewSessionStore(setupTestDB(t), box)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": exp.Unix(),
	}).SignedString([]byte("backend-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + tok
}

func TestSessionCreate(t *testing.T) {
	ss := setupSessionTestDB(t)
	issued := time.Date(2026, 2, 4, 6, 0, 0, 0, time.UTC)

	sess, err := ss.Create("user-1", "alice", "Bearer opaque", issued)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Key) != 64 { // 32 bytes hex-encoded
		t.Errorf("key length = %d, want 64", len(sess.Key))
	}
	if !sess.ExpiresAt.Equal(issued.Add(SessionLifetime)) {
		t.Errorf("expires_at = %v, want %v", sess.ExpiresAt, issued.Add(SessionLifetime))
	}

	var enc []byte
	ss.db.QueryRow(`SELECT token_enc FROM sessions WHERE id = ?`, sess.ID).Scan(&enc)
	if string(enc) == "Bearer opaque" {
		t.Error("token stored in plaintext")
	}
}

func TestSessionGetByKey(t *testing.T) {
	ss := setupSessionTestDB(t)
	created, _ := ss.Create("user-1", "alice", "Bearer opaque", time.Now())

	sess, err := ss.GetByKey(created.Key)
	if err != nil {
		t.Fatalf("get by key: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session, got nil")
	}
	if sess.ID != created.ID || sess.Token != "Bearer opaque" || sess.Username != "alice" {
		t.Errorf("session = %+v", sess)
	}
	if !sess.ExpiresAt.Equal(created.ExpiresAt) {
		t.Errorf("expires_at = %v, want %v", sess.ExpiresAt, created.ExpiresAt)
	}
}

func TestSessionGetByKeyNotFound(t *testing.T) {
	ss := setupSessionTestDB(t)

	sess, err := ss.GetByKey("nonexistent")
	if err != nil {
		t.Fatalf("get by key: %v", err)
	}
	if sess != nil {
		t.Error("expected nil for nonexistent key")
	}
}

func TestSessionExpiryUsesEarlierTokenExp(t *testing.T) {
	issued := time.Date(2026, 2, 4, 6, 0, 0, 0, time.UTC)
	exp := issued.Add(time.Hour)

	got := SessionExpiry(signedToken(t, exp), issued)
	if !got.Equal(exp) {
		t.Errorf("expiry = %v, want %v", got, exp)
	}

	late := issued.Add(3 * time.Hour)
	got = SessionExpiry(signedToken(t, late), issued)
	if !got.Equal(issued.Add(SessionLifetime)) {
		t.Errorf("expiry = %v, want lifetime cap %v", got, issued.Add(SessionLifetime))
	}
}

func TestSessionDelete(t *testing.T) {
	ss := setupSessionTestDB(t)
	created, _ := ss.Create("user-1", "alice", "tok", time.Now())

	if err := ss.Delete(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	sess, err := ss.GetByKey(created.Key)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if sess != nil {
		t.Error("expected nil after delete")
	}
}

func TestSessionDeleteByUserID(t *testing.T) {
	ss := setupSessionTestDB(t)
	ss.Create("user-1", "alice", "tok", time.Now())
	ss.Create("user-1", "alice", "tok", time.Now())
	ss.Create("user-2", "bob", "tok", time.Now())

	if err := ss.DeleteByUserID("user-1"); err != nil {
		t.Fatalf("delete by user id: %v", err)
	}

	var count int
	ss.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 session left, got %d", count)
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	ss := setupSessionTestDB(t)
	now := time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC)

	old, _ := ss.Create("user-1", "alice", "tok", now.Add(-3*time.Hour))
	fresh, _ := ss.Create("user-1", "alice", "tok", now.Add(-time.Hour))

	n, err := ss.DeleteExpired(now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if sess, _ := ss.GetByKey(old.Key); sess != nil {
		t.Error("expired session survived")
	}
	if sess, _ := ss.GetByKey(fresh.Key); sess == nil {
		t.Error("live session was deleted")
	}
}

func TestSessionLatestByUserID(t *testing.T) {
	ss := setupSessionTestDB(t)
	now := time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC)

	ss.Create("user-1", "alice", "old-token", now.Add(-3*time.Hour))
	ss.Create("user-1", "alice", "new-token", now.Add(-time.Minute))

	sess, err := ss.LatestByUserID("user-1", now)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if sess == nil || sess.Token != "new-token" {
		t.Errorf("session = %+v, want new-token", sess)
	}

	none, err := ss.LatestByUserID("user-2", now)
	if err != nil {
		t.Fatalf("latest for unknown user: %v", err)
	}
	if none != nil {
		t.Error("expected nil for user without sessions")
	}
}

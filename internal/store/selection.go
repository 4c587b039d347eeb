package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stockypocky/stockyweb/internal/model"
)

// SelectionStore remembers the entity a session picked on a list screen so
// the detail screen can render without refetching it.
type SelectionStore struct {
	db *sql.DB
}

func NewSelectionStore(db *sql.DB) *SelectionStore {
	return &SelectionStore{db: db}
}

func (s *SelectionStore) Set(sessionID int64, kind model.SelectionKind, data json.RawMessage) error {
	if !kind.Valid() {
		return fmt.Errorf("set selection: unknown kind %q", kind)
	}
	_, err := s.db.Exec(
		`INSERT INTO selections (session_id, kind, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id, kind) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		sessionID, string(kind), string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set selection: %w", err)
	}
	return nil
}

// Get returns the stored selection, or nil if nothing was selected.
func (s *SelectionStore) Get(sessionID int64, kind model.SelectionKind) (json.RawMessage, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM selections WHERE session_id = ? AND kind = ?`, sessionID, string(kind)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get selection: %w", err)
	}
	return json.RawMessage(data), nil
}

// Load decodes the stored selection into dst. It reports whether one existed.
func (s *SelectionStore) Load(sessionID int64, kind model.SelectionKind, dst any) (bool, error) {
	data, err := s.Get(sessionID, kind)
	if err != nil || data == nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode selection: %w", err)
	}
	return true, nil
}

func (s *SelectionStore) Clear(sessionID int64) error {
	_, err := s.db.Exec(`DELETE FROM selections WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("clear selections: %w", err)
	}
	return nil
}

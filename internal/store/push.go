package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/stockypocky/stockyweb/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const subscriptionColumns = `id, user_id, endpoint, p256dh_key, auth_key, device_name, created_at`

// CreateSubscription stores a browser subscription. Re-subscribing the same
// endpoint updates its keys and owner.
func (s *PushStore) CreateSubscription(userID, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	var id int64
	err := s.db.QueryRow(
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh_key, auth_key, device_name)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET user_id = excluded.user_id, p256dh_key = excluded.p256dh_key,
		   auth_key = excluded.auth_key, device_name = excluded.device_name
		 RETURNING id`,
		userID, endpoint, p256dh, auth, deviceName,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create push subscription: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *PushStore) GetByID(id int64, userID string) (*model.PushSubscription, error) {
	sub, err := scanSubscription(s.db.QueryRow(
		`SELECT `+subscriptionColumns+` FROM push_subscriptions WHERE id = ? AND user_id = ?`, id, userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return sub, nil
}

func (s *PushStore) ListByUser(userID string) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+subscriptionColumns+` FROM push_subscriptions WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions by user: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// ListUserIDs returns distinct users that have push subscriptions.
func (s *PushStore) ListUserIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT user_id FROM push_subscriptions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list push user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PushStore) DeleteSubscription(id int64, userID string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

func (s *PushStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}

// AlertedItemIDs returns the items a user has already been alerted about.
func (s *PushStore) AlertedItemIDs(userID string) (map[int64]bool, error) {
	rows, err := s.db.Query(`SELECT item_id FROM low_stock_alerts WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list low stock alerts: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan low stock alert: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// RecordAlert records that a low-stock notification was sent (for dedup).
func (s *PushStore) RecordAlert(userID string, itemID int64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO low_stock_alerts (user_id, item_id, notified_at) VALUES (?, ?, ?)`,
		userID, itemID, time.Now().UTC().Truncate(time.Second),
	)
	if err != nil {
		return fmt.Errorf("record low stock alert: %w", err)
	}
	return nil
}

// ClearAlert forgets an alert once the item has recovered.
func (s *PushStore) ClearAlert(userID string, itemID int64) error {
	_, err := s.db.Exec(`DELETE FROM low_stock_alerts WHERE user_id = ? AND item_id = ?`, userID, itemID)
	if err != nil {
		return fmt.Errorf("clear low stock alert: %w", err)
	}
	return nil
}

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := scanner.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt); err != nil {
		return nil, err
	}
	return &sub, nil
}

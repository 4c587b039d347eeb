package model

import "time"

type PushSubscription struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// LowStockAlert records that a user was notified about an item running low.
// The row is removed once the item recovers so the next dip alerts again.
type LowStockAlert struct {
	UserID     string    `json:"user_id"`
	ItemID     int64     `json:"item_id"`
	NotifiedAt time.Time `json:"notified_at"`
}

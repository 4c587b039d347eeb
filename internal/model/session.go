package model

import "time"

type Session struct {
	ID        int64     `json:"id"`
	Key       string    `json:"-"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Token     string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SelectionKind names an entity that can be remembered between a list screen
// and its detail screen.
type SelectionKind string

const (
	SelectCategory       SelectionKind = "category"
	SelectItem           SelectionKind = "item"
	SelectMemo           SelectionKind = "memo"
	SelectShoppingRecord SelectionKind = "shopping_record"
)

func (k SelectionKind) Valid() bool {
	switch k {
	case SelectCategory, SelectItem, SelectMemo, SelectShoppingRecord:
		return true
	}
	return false
}

package model

import "github.com/shopspring/decimal"

// Prices are whole yen and the backend types them as JSON integers.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type ShoppingListEntry struct {
	ID       int64     `json:"id"`
	Quantity int       `json:"quantity"`
	Checked  bool      `json:"checked"`
	UserID   string    `json:"user_id"`
	ItemID   int64     `json:"item_id"`
	AddedAt  Timestamp `json:"added_at"`
}

type ShoppingListRequest struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

type ShoppingListDisplay struct {
	ID       int64     `json:"id"`
	Quantity int       `json:"quantity"`
	Checked  bool      `json:"checked"`
	ItemID   int64     `json:"item_id"`
	AddedAt  Timestamp `json:"added_at"`
	Name     string    `json:"name"`
	ImageURL string    `json:"image_url"`
	Notes    string    `json:"notes"`
}

type ShoppingRecord struct {
	ID       int64           `json:"id"`
	ItemID   int64           `json:"item_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Store    string          `json:"store"`
	BoughtAt Timestamp       `json:"bought_at"`
	UserID   string          `json:"user_id"`
}

type ShoppingRecordRequest struct {
	ItemID   int64           `json:"item_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Store    string          `json:"store"`
	BoughtAt Timestamp       `json:"bought_at"`
}

// ShoppingRecordUpdateRequest corrects a purchase. Reason and Action are
// forwarded to the backend, which adjusts the stock accordingly.
type ShoppingRecordUpdateRequest struct {
	ShoppingRecordRequest
	Reason string      `json:"reason"`
	Action StockAction `json:"action"`
}

type ShoppingRecordDisplay struct {
	ID       int64           `json:"id"`
	ItemID   int64           `json:"item_id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Store    string          `json:"store"`
	ImageURL string          `json:"image_url"`
	BoughtAt Timestamp       `json:"bought_at"`
}

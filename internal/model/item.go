package model

type Item struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Brand           string `json:"brand"`
	Unit            string `json:"unit"`
	ImageURL        string `json:"image_url"`
	DefaultQuantity int    `json:"default_quantity"`
	Notes           string `json:"notes"`
	IsFavorite      bool   `json:"is_favorite"`
	UserID          string `json:"user_id"`
	CategoryID      int64  `json:"category_id"`
}

type ItemRequest struct {
	Name            string `json:"name"`
	Brand           string `json:"brand"`
	Unit            string `json:"unit"`
	ImageURL        string `json:"image_url"`
	DefaultQuantity int    `json:"default_quantity"`
	Notes           string `json:"notes"`
	IsFavorite      bool   `json:"is_favorite"`
	CategoryID      int64  `json:"category_id"`
}

// ItemListDisplay is the flattened item × stock × category row shown on
// the dashboard and item list.
type ItemListDisplay struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	CategoryID    int64  `json:"category_id"`
	CategoryName  string `json:"category_name"`
	StockQuantity int    `json:"stock_quantity"`
	IsFavorite    bool   `json:"is_favorite"`
	Threshold     int    `json:"threshold"`
	ImageURL      string `json:"image_url"`
	Location      string `json:"location"`
}

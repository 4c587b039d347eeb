package model

type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Icon   string `json:"icon"`
	UserID string `json:"user_id"`
}

type CategoryRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

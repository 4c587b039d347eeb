package model

type Stock struct {
	ID        int64  `json:"id"`
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
	Location  string `json:"location"`
	UserID    string `json:"user_id"`
	ItemID    int64  `json:"item_id"`
}

type StockHistory struct {
	ID        int64     `json:"id"`
	Change    int       `json:"change"`
	Reason    string    `json:"reason"`
	Memo      string    `json:"memo"`
	UserID    string    `json:"user_id"`
	ItemID    int64     `json:"item_id"`
	CreatedAt Timestamp `json:"created_at"`
}

type StockAction string

const (
	StockIncrease StockAction = "increase"
	StockDecrease StockAction = "decrease"
	StockManual   StockAction = "manual"
)

func (a StockAction) Valid() bool {
	switch a {
	case StockIncrease, StockDecrease, StockManual:
		return true
	}
	return false
}

// StockUpdateRequest is the body of PUT /items/{id}/stock.
type StockUpdateRequest struct {
	Reason    string      `json:"reason"`
	Action    StockAction `json:"action"`
	Quantity  int         `json:"quantity"`
	Memo      string      `json:"memo"`
	Threshold int         `json:"threshold"`
	Location  string      `json:"location"`
}

// StockCreateRequest is the body of POST /stocks.
type StockCreateRequest struct {
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
	Location  string `json:"location"`
	ItemID    int64  `json:"item_id"`
}

// Package stock implements the stock adjustment protocol: increase and
// decrease by one, or a manual overwrite of quantity, threshold and location.
package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stockypocky/stockyweb/internal/api"
	"github.com/stockypocky/stockyweb/internal/model"
)

// ErrInvalidInput is returned when a manual adjustment is missing a field.
var ErrInvalidInput = errors.New("個数、理由、場所、閾値は必須です。")

// ErrInvalidMode is returned for an unknown adjustment mode.
var ErrInvalidMode = errors.New("invalid stock action")

// ManualInput carries the form fields of a manual adjustment. Quantity and
// Threshold are pointers so an omitted field can be told apart from zero.
type ManualInput struct {
	Quantity  *int   `json:"quantity"`
	Threshold *int   `json:"threshold"`
	Location  string `json:"location"`
	Reason    string `json:"reason"`
	Memo      string `json:"memo"`
}

func IncreaseReason(name string) string {
	return "Increase " + name + " Stock"
}

func DecreaseReason(name string) string {
	return "Decrease " + name + " Stock"
}

// BuildRequest returns the update body for mode. Increase and decrease keep
// the item's current threshold and location.
func BuildRequest(mode model.StockAction, item model.ItemListDisplay, in ManualInput) (model.StockUpdateRequest, error) {
	switch mode {
	case model.StockIncrease:
		return model.StockUpdateRequest{
			Reason:    IncreaseReason(item.Name),
			Action:    mode,
			Quantity:  1,
			Threshold: item.Threshold,
			Location:  item.Location,
		}, nil
	case model.StockDecrease:
		return model.StockUpdateRequest{
			Reason:    DecreaseReason(item.Name),
			Action:    mode,
			Quantity:  1,
			Threshold: item.Threshold,
			Location:  item.Location,
		}, nil
	case model.StockManual:
		if in.Quantity == nil || in.Threshold == nil || in.Location == "" || in.Reason == "" {
			return model.StockUpdateRequest{}, ErrInvalidInput
		}
		if *in.Quantity < 0 || *in.Threshold < 0 {
			return model.StockUpdateRequest{}, ErrInvalidInput
		}
		return model.StockUpdateRequest{
			Reason:    in.Reason,
			Action:    mode,
			Quantity:  *in.Quantity,
			Memo:      in.Memo,
			Threshold: *in.Threshold,
			Location:  in.Location,
		}, nil
	}
	return model.StockUpdateRequest{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
}

// Apply returns the display state after req succeeds.
func Apply(item model.ItemListDisplay, req model.StockUpdateRequest) model.ItemListDisplay {
	switch req.Action {
	case model.StockIncrease:
		item.StockQuantity++
	case model.StockDecrease:
		if item.StockQuantity > 0 {
			item.StockQuantity--
		}
	case model.StockManual:
		item.StockQuantity = req.Quantity
		item.Threshold = req.Threshold
		item.Location = req.Location
	}
	return item
}

// StockAPI is the subset of the backend client the adjuster needs.
type StockAPI interface {
	UpdateItemStock(ctx context.Context, itemID int64, req model.StockUpdateRequest) (model.Stock, error)
	GetItemStock(ctx context.Context, itemID int64) (model.Stock, error)
}

// Result is the outcome of an adjustment. On failure Item holds the
// refetched backend state, or the last known state if the refetch failed
// too, and RolledBack is set.
type Result struct {
	Item       model.ItemListDisplay `json:"item"`
	RolledBack bool                  `json:"rolled_back"`
}

type Adjuster struct {
	logger *slog.Logger
}

func NewAdjuster(logger *slog.Logger) *Adjuster {
	return &Adjuster{logger: logger.With("component", "stock")}
}

// Adjust submits one adjustment for item. Validation errors are returned
// without contacting the backend. A backend failure returns both the
// rolled back Result and the error.
func (a *Adjuster) Adjust(ctx context.Context, client StockAPI, item model.ItemListDisplay, mode model.StockAction, in ManualInput) (Result, error) {
	req, err := BuildRequest(mode, item, in)
	if err != nil {
		return Result{Item: item}, err
	}

	if _, err := client.UpdateItemStock(ctx, item.ID, req); err != nil {
		a.logger.Warn("stock update failed, refetching", "item_id", item.ID, "action", mode, "error", err)
		return Result{Item: a.refetch(ctx, client, item), RolledBack: true}, fmt.Errorf("update stock: %w", err)
	}

	a.logger.Info("stock updated", "item_id", item.ID, "action", mode)
	return Result{Item: Apply(item, req)}, nil
}

func (a *Adjuster) refetch(ctx context.Context, client StockAPI, item model.ItemListDisplay) model.ItemListDisplay {
	current, err := client.GetItemStock(ctx, item.ID)
	if err != nil {
		a.logger.Warn("stock refetch failed", "item_id", item.ID, "error", err)
		return item
	}
	item.StockQuantity = current.Quantity
	item.Threshold = current.Threshold
	item.Location = current.Location
	return item
}

var _ StockAPI = (*api.Client)(nil)

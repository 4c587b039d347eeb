package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stockypocky/stockyweb/internal/model"
)

func (c *Client) ListItems(ctx context.Context) ([]model.Item, error) {
	return call[[]model.Item](ctx, c, http.MethodGet, "/items", nil)
}

func (c *Client) GetItem(ctx context.Context, id int64) (model.Item, error) {
	return call[model.Item](ctx, c, http.MethodGet, fmt.Sprintf("/items/%d", id), nil)
}

func (c *Client) CreateItem(ctx context.Context, req model.ItemRequest) (model.Item, error) {
	return call[model.Item](ctx, c, http.MethodPost, "/items", req)
}

func (c *Client) UpdateItem(ctx context.Context, id int64, req model.ItemRequest) (model.Item, error) {
	return call[model.Item](ctx, c, http.MethodPut, fmt.Sprintf("/items/%d", id), req)
}

func (c *Client) DeleteItem(ctx context.Context, id int64) error {
	_, err := call[any](ctx, c, http.MethodDelete, fmt.Sprintf("/items/%d", id), nil)
	return err
}

func (c *Client) GetItemStock(ctx context.Context, itemID int64) (model.Stock, error) {
	return call[model.Stock](ctx, c, http.MethodGet, fmt.Sprintf("/items/%d/stock", itemID), nil)
}

// UpdateItemStock applies a stock adjustment. The backend records the
// matching stock history entry.
func (c *Client) UpdateItemStock(ctx context.Context, itemID int64, req model.StockUpdateRequest) (model.Stock, error) {
	return call[model.Stock](ctx, c, http.MethodPut, fmt.Sprintf("/items/%d/stock", itemID), req)
}

func (c *Client) ListStockHistory(ctx context.Context, itemID int64) ([]model.StockHistory, error) {
	return call[[]model.StockHistory](ctx, c, http.MethodGet, fmt.Sprintf("/items/%d/stock-history", itemID), nil)
}

func (c *Client) ListStocks(ctx context.Context) ([]model.Stock, error) {
	return call[[]model.Stock](ctx, c, http.MethodGet, "/stocks", nil)
}

func (c *Client) CreateStock(ctx context.Context, req model.StockCreateRequest) (model.Stock, error) {
	return call[model.Stock](ctx, c, http.MethodPost, "/stocks", req)
}

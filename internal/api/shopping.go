package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stockypocky/stockyweb/internal/model"
)

func (c *Client) ListShoppingList(ctx context.Context) ([]model.ShoppingListEntry, error) {
	return call[[]model.ShoppingListEntry](ctx, c, http.MethodGet, "/shopping-list", nil)
}

func (c *Client) GetShoppingListEntry(ctx context.Context, id int64) (model.ShoppingListEntry, error) {
	return call[model.ShoppingListEntry](ctx, c, http.MethodGet, fmt.Sprintf("/shopping-list/%d", id), nil)
}

func (c *Client) AddShoppingListEntry(ctx context.Context, req model.ShoppingListRequest) (model.ShoppingListEntry, error) {
	return call[model.ShoppingListEntry](ctx, c, http.MethodPost, "/shopping-list", req)
}

func (c *Client) CheckShoppingListEntry(ctx context.Context, id int64, checked bool) (model.ShoppingListEntry, error) {
	body := struct {
		Checked bool `json:"checked"`
	}{checked}
	return call[model.ShoppingListEntry](ctx, c, http.MethodPut, fmt.Sprintf("/shopping-list/%d", id), body)
}

func (c *Client) DeleteShoppingListEntry(ctx context.Context, id int64) error {
	_, err := call[any](ctx, c, http.MethodDelete, fmt.Sprintf("/shopping-list/%d", id), nil)
	return err
}

func (c *Client) ListShoppingRecords(ctx context.Context) ([]model.ShoppingRecord, error) {
	return call[[]model.ShoppingRecord](ctx, c, http.MethodGet, "/shopping-records", nil)
}

func (c *Client) GetShoppingRecord(ctx context.Context, id int64) (model.ShoppingRecord, error) {
	return call[model.ShoppingRecord](ctx, c, http.MethodGet, fmt.Sprintf("/shopping-records/%d", id), nil)
}

// CreateShoppingRecord logs a purchase. The backend raises the item's stock
// and clears its shopping list entry.
func (c *Client) CreateShoppingRecord(ctx context.Context, req model.ShoppingRecordRequest) (model.ShoppingRecord, error) {
	return call[model.ShoppingRecord](ctx, c, http.MethodPost, "/shopping-records", req)
}

func (c *Client) UpdateShoppingRecord(ctx context.Context, id int64, req model.ShoppingRecordUpdateRequest) (model.ShoppingRecord, error) {
	return call[model.ShoppingRecord](ctx, c, http.MethodPut, fmt.Sprintf("/shopping-records/%d", id), req)
}

func (c *Client) DeleteShoppingRecord(ctx context.Context, id int64) error {
	_, err := call[any](ctx, c, http.MethodDelete, fmt.Sprintf("/shopping-records/%d", id), nil)
	return err
}

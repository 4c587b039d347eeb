package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stockypocky/stockyweb/internal/model"
)

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	return call[[]model.Category](ctx, c, http.MethodGet, "/categories", nil)
}

func (c *Client) GetCategory(ctx context.Context, id int64) (model.Category, error) {
	return call[model.Category](ctx, c, http.MethodGet, fmt.Sprintf("/categories/%d", id), nil)
}

func (c *Client) CreateCategory(ctx context.Context, req model.CategoryRequest) (model.Category, error) {
	return call[model.Category](ctx, c, http.MethodPost, "/categories", req)
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, req model.CategoryRequest) (model.Category, error) {
	return call[model.Category](ctx, c, http.MethodPut, fmt.Sprintf("/categories/%d", id), req)
}

// DeleteCategory removes a category. The backend refuses with 400 while
// items still reference it.
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	_, err := call[any](ctx, c, http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil)
	return err
}

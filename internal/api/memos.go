package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stockypocky/stockyweb/internal/model"
)

func (c *Client) ListMemos(ctx context.Context) ([]model.Memo, error) {
	return call[[]model.Memo](ctx, c, http.MethodGet, "/memos", nil)
}

func (c *Client) GetMemo(ctx context.Context, id int64) (model.Memo, error) {
	return call[model.Memo](ctx, c, http.MethodGet, fmt.Sprintf("/memos/%d", id), nil)
}

func (c *Client) CreateMemo(ctx context.Context, req model.MemoRequest) (model.Memo, error) {
	return call[model.Memo](ctx, c, http.MethodPost, "/memos", req)
}

func (c *Client) UpdateMemo(ctx context.Context, id int64, req model.MemoRequest) (model.Memo, error) {
	return call[model.Memo](ctx, c, http.MethodPut, fmt.Sprintf("/memos/%d", id), req)
}

func (c *Client) DeleteMemo(ctx context.Context, id int64) error {
	_, err := call[any](ctx, c, http.MethodDelete, fmt.Sprintf("/memos/%d", id), nil)
	return err
}

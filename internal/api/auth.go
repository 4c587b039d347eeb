package api

import (
	"context"
	"net/http"

	"github.com/stockypocky/stockyweb/internal/model"
)

// Login exchanges credentials for a bearer token. The backend answers 404
// for an unknown email and 401 for a wrong password.
func (c *Client) Login(ctx context.Context, email, password string) (model.LoginResult, error) {
	return call[model.LoginResult](ctx, c, http.MethodPost, "/auth/login", model.LoginRequest{Email: email, Password: password})
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := call[any](ctx, c, http.MethodPost, "/auth/logout", nil)
	return err
}

func (c *Client) Me(ctx context.Context) (model.User, error) {
	return call[model.User](ctx, c, http.MethodGet, "/users/me", nil)
}

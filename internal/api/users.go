package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nhle/campushub/internal/model"
)

// Login exchanges a username-or-email and password for a session token.
func (c *Client) Login(
	ctx context.Context,
	identifier string,
	password string,
) (*LoginResult, error) {
	var resp loginResponse
	body := loginRequest{Identifier: identifier, Password: password}
	if err := c.do(ctx, http.MethodPost, "/users/login", "", body, &resp); err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}
	if resp.Token == "" {
		return nil, errors.New("logging in: server returned no token")
	}

	return &LoginResult{
		Token: resp.Token,
		User: model.User{
			ID:       string(resp.UserID),
			Username: resp.Username,
			Role:     resp.Role,
		},
	}, nil
}

// CheckUser validates token and returns the account it belongs to.
func (c *Client) CheckUser(ctx context.Context, token string) (*model.User, error) {
	var resp checkUserResponse
	if err := c.do(ctx, http.MethodGet, "/users/check-user", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("checking user: %w", err)
	}

	return &model.User{
		ID:       string(resp.UserID),
		Username: resp.Username,
		Role:     resp.Role,
	}, nil
}

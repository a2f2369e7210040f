package apiclient

import (
	"context"
	"net/http"

	"romaneio-service/internal/models"
)

func (c *Client) Login(ctx context.Context, email, password string) (*models.Token, error) {
	var tok models.Token
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

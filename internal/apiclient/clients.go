package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"romaneio-service/internal/models"
)

func (c *Client) ListClients(ctx context.Context, search string) ([]models.Client, error) {
	q := url.Values{}
	if s := strings.TrimSpace(search); s != "" {
		q.Set("search", s)
	}

	var out []models.Client
	if err := c.do(ctx, http.MethodGet, "/clients/", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateClient(ctx context.Context, in models.ClientInput) (*models.Client, error) {
	var cl models.Client
	if err := c.do(ctx, http.MethodPost, "/clients/", nil, in, &cl); err != nil {
		return nil, err
	}
	return &cl, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.do(ctx, http.MethodGet, "/categories/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PlanUsage(ctx context.Context) (*models.PlanUsage, error) {
	var usage models.PlanUsage
	if err := c.do(ctx, http.MethodGet, "/plans/usage", nil, nil, &usage); err != nil {
		return nil, err
	}
	return &usage, nil
}

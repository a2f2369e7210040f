package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"romaneio-service/internal/models"
)

func (c *Client) CreateMovement(ctx context.Context, in models.MovementCreate) (*models.Movement, error) {
	var m models.Movement
	if err := c.do(ctx, http.MethodPost, "/inventory/movements", nil, in, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) ListMovements(ctx context.Context, f models.MovementFilter) ([]models.Movement, error) {
	q := url.Values{}
	if f.ProductID != nil {
		q.Set("product_id", strconv.Itoa(*f.ProductID))
	}
	if f.Skip > 0 {
		q.Set("skip", strconv.Itoa(f.Skip))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}

	var out []models.Movement
	if err := c.do(ctx, http.MethodGet, "/inventory/movements", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StockLevels(ctx context.Context) ([]models.StockLevel, error) {
	var out []models.StockLevel
	if err := c.do(ctx, http.MethodGet, "/inventory/stock-levels", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

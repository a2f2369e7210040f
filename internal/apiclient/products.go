package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"romaneio-service/internal/models"
)

// GetProductByBarcode consulta GET /products/barcode/{code}; el código se recorta
func (c *Client) GetProductByBarcode(ctx context.Context, code string) (*models.Product, error) {
	var p models.Product
	path := "/products/barcode/" + url.PathEscape(strings.TrimSpace(code))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts consulta la lista paginada; Search busca por nombre, código o SKU
func (c *Client) ListProducts(ctx context.Context, f models.ProductFilter) (*models.ProductPage, error) {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(f.PerPage))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	if f.CategoryID != nil {
		q.Set("category_id", strconv.Itoa(*f.CategoryID))
	}
	if f.SortBy != "" {
		q.Set("sort_by", f.SortBy)
	}
	if f.Order != "" {
		q.Set("order", f.Order)
	}

	var page models.ProductPage
	if err := c.do(ctx, http.MethodGet, "/products/", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SearchProducts atajo de ListProducts usado por la resolución y el autocompletado
func (c *Client) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	page, err := c.ListProducts(ctx, models.ProductFilter{Search: query})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (c *Client) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodPost, "/products/", nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

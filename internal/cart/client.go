package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrCatalogNotFound    = errors.New("catalog product not found")
	ErrCatalogBadStatus   = errors.New("catalog bad status")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrCatalogBadProduct  = errors.New("catalog returned invalid product")
)

const defaultCatalogTimeout = 3 * time.Second

// Catalog is what the cart needs from the remote product/stock service.
type Catalog interface {
	GetStock(ctx context.Context, productID int64) (Stock, error)
	GetProduct(ctx context.Context, productID int64) (Product, error)
}

type CatalogClient struct {
	BaseURL string
	Client  *http.Client
}

func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout <= 0 {
		timeout = defaultCatalogTimeout
	}
	return &CatalogClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (c *CatalogClient) GetStock(ctx context.Context, productID int64) (Stock, error) {
	var st Stock
	if err := c.getJSON(ctx, fmt.Sprintf("%s/stock/%d", c.BaseURL, productID), &st); err != nil {
		return Stock{}, err
	}
	return st, nil
}

func (c *CatalogClient) GetProduct(ctx context.Context, productID int64) (Product, error) {
	var p Product
	if err := c.getJSON(ctx, fmt.Sprintf("%s/products/%d", c.BaseURL, productID), &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (c *CatalogClient) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrCatalogNotFound
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status=%d", ErrCatalogBadStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}

// Package warehance is a client for the Warehance warehouse and order-management REST API.
package warehance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// APIKeyHeader carries the per-account API key.
const APIKeyHeader = "API-Key"

// Resource is a top-level collection of the API.
type Resource string

const (
	ResourceOrders     Resource = "orders"
	ResourceProducts   Resource = "products"
	ResourceShipments  Resource = "shipments"
	ResourceReturns    Resource = "returns"
	ResourceClients    Resource = "clients"
	ResourceStores     Resource = "stores"
	ResourceWarehouses Resource = "warehouses"
	ResourceBills      Resource = "bills"
	ResourceInventory  Resource = "inventory"
)

// OrderBy is the sort direction.
type OrderBy string

const (
	OrderAsc  OrderBy = "asc"
	OrderDesc OrderBy = "desc"
)

// Doer sends HTTP requests. *http.Client and httplb clients satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Envelope wraps every response.
type Envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	RequestID  string          `json:"request_id"`
	Data       json.RawMessage `json:"data,omitempty"`
	Errors     []APIError      `json:"errors,omitempty"`
}

// ListParams are the paging and sorting parameters shared by list endpoints.
// SortBy is resource specific and is passed through unchecked.
type ListParams struct {
	Limit   int
	Offset  int
	OrderBy OrderBy
	SortBy  string
	Extra   url.Values
}

// Values encodes the parameters as a query string.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	for k, vals := range p.Extra {
		for _, val := range vals {
			v.Add(k, val)
		}
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		v.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.OrderBy != "" {
		v.Set("order_by", string(p.OrderBy))
	}
	if p.SortBy != "" {
		v.Set("sort_by", p.SortBy)
	}
	return v
}

// Page is a decoded list response.
type Page[T any] struct {
	TotalCount    int `json:"total_count"`
	FilteredCount int `json:"filtered_count"`
	Items         []T `json:"items"`
}

// Client talks to one Warehance account.
type Client struct {
	baseURL string
	apiKey  string
	http    Doer
	logger  *zap.Logger
}

// NewClient creates a client. doer defaults to http.DefaultClient.
func NewClient(baseURL, apiKey string, doer Doer, logger *zap.Logger) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: doer, logger: logger}
}

// Do sends one request and decodes the envelope. A non-2xx status or a non-empty errors[]
// is returned as *Error.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*Envelope, error) {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= 300 {
			return nil, &Error{StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if env.StatusCode == 0 {
		env.StatusCode = resp.StatusCode
	}
	if resp.StatusCode >= 300 || len(env.Errors) > 0 {
		c.logger.Debug("warehance error response",
			zap.String("path", path), zap.Int("status", resp.StatusCode), zap.String("request_id", env.RequestID))
		return &env, &Error{StatusCode: resp.StatusCode, RequestID: env.RequestID, Errors: env.Errors}
	}
	return &env, nil
}

// List fetches one page of a resource. Items are read from the key named after the resource.
func List[T any](ctx context.Context, c *Client, resource Resource, p ListParams) (*Page[T], error) {
	env, err := c.Do(ctx, http.MethodGet, string(resource), p.Values(), nil)
	if err != nil {
		return nil, err
	}
	return decodePage[T](env.Data, string(resource))
}

// Get fetches one object of a resource by id.
func Get[T any](ctx context.Context, c *Client, resource Resource, id string) (*T, error) {
	env, err := c.Do(ctx, http.MethodGet, string(resource)+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", resource, err)
	}
	return &out, nil
}

// Ping verifies the API key by listing a single store.
func (c *Client) Ping(ctx context.Context) error {
	_, err := List[json.RawMessage](ctx, c, ResourceStores, ListParams{Limit: 1})
	return err
}

// decodePage reads a list page. A success envelope without data is an empty page.
func decodePage[T any](data json.RawMessage, key string) (*Page[T], error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Page[T]{Items: []T{}}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	page := &Page[T]{}
	if raw, ok := fields["total_count"]; ok {
		if err := json.Unmarshal(raw, &page.TotalCount); err != nil {
			return nil, fmt.Errorf("decode total_count: %w", err)
		}
	}
	if raw, ok := fields["filtered_count"]; ok {
		if err := json.Unmarshal(raw, &page.FilteredCount); err != nil {
			return nil, fmt.Errorf("decode filtered_count: %w", err)
		}
	}
	raw, ok := fields[key]
	if !ok {
		raw, ok = fields["items"]
	}
	if ok {
		if err := json.Unmarshal(raw, &page.Items); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

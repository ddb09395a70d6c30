// Package xlsdb is the client for the sheet-backed tabular store. The store
// exposes four filter-predicate operations over HTTP; every request carries
// the spreadsheet identity and a service-account credential pair.
package xlsdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StoreError is a typed failure carrying the operation name and underlying
// cause. The client performs no retries; callers decide failure handling.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("xlsdb: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Options configures a Client.
type Options struct {
	// BaseURL is the store endpoint, e.g. "http://localhost:5050/xlsDB".
	BaseURL string
	// SheetID and SheetName scope every operation to one table.
	SheetID   string
	SheetName string
	// ClientEmail and PrivateKey are the service-account credential pair.
	ClientEmail string
	PrivateKey  string
	// HTTPClient overrides the default client (30s timeout) when set.
	HTTPClient *http.Client
}

// Client talks to one table of the xlsDB store.
type Client struct {
	baseURL     string
	sheetID     string
	sheetName   string
	clientEmail string
	privateKey  string
	httpClient  *http.Client
}

// NewClient creates a client for the table identified in opts.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:     opts.BaseURL,
		sheetID:     opts.SheetID,
		sheetName:   opts.SheetName,
		clientEmail: opts.ClientEmail,
		privateKey:  opts.PrivateKey,
		httpClient:  httpClient,
	}
}

// FindOne returns the first row matching the where filter, or nil when the
// store reports no match.
func (c *Client) FindOne(ctx context.Context, where map[string]interface{}) (map[string]interface{}, error) {
	body := c.requestBody()
	body["where"] = where

	var row map[string]interface{}
	if err := c.do(ctx, http.MethodPost, "/get-one", body, &row); err != nil {
		return nil, &StoreError{Op: "findOne", Err: err}
	}
	if len(row) == 0 {
		return nil, nil
	}
	return row, nil
}

// FindAll returns every row matching the where filter.
func (c *Client) FindAll(ctx context.Context, where map[string]interface{}) ([]map[string]interface{}, error) {
	body := c.requestBody()
	body["where"] = where

	var rows []map[string]interface{}
	if err := c.do(ctx, http.MethodPost, "/get-all", body, &rows); err != nil {
		return nil, &StoreError{Op: "findAll", Err: err}
	}
	return rows, nil
}

// Create appends one row with the given column values.
func (c *Client) Create(ctx context.Context, values map[string]interface{}) error {
	body := c.requestBody()
	body["values"] = values

	if err := c.do(ctx, http.MethodPost, "/add", body, nil); err != nil {
		return &StoreError{Op: "create", Err: err}
	}
	return nil
}

// Update rewrites matching rows with newValues.
func (c *Client) Update(ctx context.Context, where, newValues map[string]interface{}) error {
	body := c.requestBody()
	body["where"] = where
	body["newValues"] = newValues

	if err := c.do(ctx, http.MethodPut, "/update", body, nil); err != nil {
		return &StoreError{Op: "update", Err: err}
	}
	return nil
}

// requestBody builds the common envelope every operation sends: table
// identity plus credentials, matching the store's expected schema.
func (c *Client) requestBody() map[string]interface{} {
	return map[string]interface{}{
		"sheetId":            c.sheetID,
		"sheetName":          c.sheetName,
		"serviceClientEmail": c.clientEmail,
		"servicePrivateKey":  c.privateKey,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body map[string]interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("store returned status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

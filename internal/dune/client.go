package dune

import (
	"bytes"
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

const apiKeyHeader = "X-DUNE-API-KEY"

var ErrTableNotFound = errors.New("table not found")

type Config struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	Transport http.RoundTripper
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dune api status=%d body=%s", e.StatusCode, e.Body)
}

type UploadCSVRequest struct {
	TableName   string `json:"table_name"`
	Data        string `json:"data"`
	Description string `json:"description,omitempty"`
	IsPrivate   bool   `json:"is_private"`
}

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		client:  &http.Client{Timeout: timeout, Transport: cfg.Transport},
	}, nil
}

// DeleteTable drops namespace.tableName. A missing table yields ErrTableNotFound.
func (c *Client) DeleteTable(ctx context.Context, namespace, tableName string) error {
	if strings.TrimSpace(namespace) == "" || strings.TrimSpace(tableName) == "" {
		return fmt.Errorf("namespace and table name are required")
	}
	endpoint := fmt.Sprintf("%s/api/v1/table/%s/%s", c.baseURL, url.PathEscape(namespace), url.PathEscape(tableName))
	status, body, err := c.do(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("delete table %s.%s: %w", namespace, tableName, err)
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("delete table %s.%s: %w", namespace, tableName, ErrTableNotFound)
	}
	if status >= 400 {
		return fmt.Errorf("delete table %s.%s: %w", namespace, tableName, &APIError{StatusCode: status, Body: strings.TrimSpace(string(body))})
	}
	return nil
}

// UploadCSV creates a table from a CSV payload and reports the API's success flag.
func (c *Client) UploadCSV(ctx context.Context, req UploadCSVRequest) (bool, error) {
	if strings.TrimSpace(req.TableName) == "" {
		return false, fmt.Errorf("table name is required")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return false, fmt.Errorf("marshal upload request: %w", err)
	}
	status, body, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/v1/table/upload/csv", payload)
	if err != nil {
		return false, fmt.Errorf("upload table %s: %w", req.TableName, err)
	}
	if status >= 400 {
		return false, fmt.Errorf("upload table %s: %w", req.TableName, &APIError{StatusCode: status, Body: strings.TrimSpace(string(body))})
	}

	var parsed struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("decode upload response: %w", err)
	}
	return parsed.Success, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// Package d1 implements store.Executor over the Cloudflare D1 HTTP API.
package d1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/store"
)

const (
	DefaultBaseURL        = "https://api.cloudflare.com/client/v4"
	defaultTimeoutSeconds = 30
)

var (
	// ErrNotConfigured is returned when credentials are missing.
	ErrNotConfigured = errors.New("d1 credentials are not configured")
	// ErrQueryFailed is returned when D1 reports failure without a message.
	ErrQueryFailed = errors.New("d1 query failed")
)

// Config identifies one D1 database.
type Config struct {
	AccountID  string
	DatabaseID string
	APIToken   string
	BaseURL    string
}

// Missing lists the environment keys of credentials that are absent.
func (c Config) Missing() []string {
	var missing []string

	if c.AccountID == "" {
		missing = append(missing, "CLOUDFLARE_ACCOUNT_ID")
	}

	if c.DatabaseID == "" {
		missing = append(missing, "CLOUDFLARE_DATABASE_ID")
	}

	if c.APIToken == "" {
		missing = append(missing, "CLOUDFLARE_API_TOKEN")
	}

	return missing
}

// APIError is a failure reported by D1 in the response envelope.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("d1 error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
}

type queryRequest struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// batchRequest binds params per statement and runs the whole list as one transaction.
type batchRequest struct {
	Batch []queryRequest `json:"batch"`
}

type envelope struct {
	Result  []store.Result `json:"result"`
	Success bool           `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Client executes SQL against a D1 database.
type Client struct {
	config     Config
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(config Config, opts ...Option) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}

	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Query(ctx context.Context, sql string, params ...any) (*store.Result, error) {
	results, err := c.post(ctx, queryRequest{SQL: sql, Params: normalize(params)})
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &store.Result{}, nil
	}

	return &results[0], nil
}

// Batch sends every statement in one batch request. D1 runs the batch as a single
// transaction and returns one result per statement, in order.
func (c *Client) Batch(ctx context.Context, statements []store.Statement) ([]store.Result, error) {
	if len(statements) == 0 {
		return nil, store.ErrEmptyBatch
	}

	batch := make([]queryRequest, 0, len(statements))

	for _, stmt := range statements {
		batch = append(batch, queryRequest{
			SQL:    strings.TrimRight(strings.TrimSpace(stmt.SQL), ";"),
			Params: normalize(stmt.Params),
		})
	}

	results, err := c.post(ctx, batchRequest{Batch: batch})
	if err != nil {
		return nil, err
	}

	if len(results) != len(statements) {
		return nil, fmt.Errorf("%w: expected %d results, got %d", ErrQueryFailed, len(statements), len(results))
	}

	return results, nil
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Query(ctx, "SELECT 1")

	return err
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/accounts/%s/d1/database/%s/query", c.config.BaseURL, c.config.AccountID, c.config.DatabaseID)
}

func (c *Client) post(ctx context.Context, payload any) ([]store.Result, error) {
	if len(c.config.Missing()) > 0 {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("d1 request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 300 {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		}

		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(env.Errors) > 0 {
		return nil, &APIError{StatusCode: resp.StatusCode, Code: env.Errors[0].Code, Message: env.Errors[0].Message}
	}

	if !env.Success || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w (status %d)", ErrQueryFailed, resp.StatusCode)
	}

	return env.Result, nil
}

// normalize converts values D1 cannot bind directly.
func normalize(params []any) []any {
	out := make([]any, len(params))

	for i, p := range params {
		switch v := p.(type) {
		case bool:
			if v {
				out[i] = 1
			} else {
				out[i] = 0
			}
		case time.Time:
			out[i] = v.UTC().Format("2006-01-02 15:04:05")
		case *int64:
			if v == nil {
				out[i] = nil
			} else {
				out[i] = *v
			}
		default:
			out[i] = v
		}
	}

	return out
}

// Package zapi is a client for the Z-API WhatsApp gateway.
package zapi

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
)

const (
	DefaultBaseURL        = "https://api.z-api.io"
	defaultTimeoutSeconds = 30
)

// ErrNotConfigured is returned when a call is attempted without credentials.
var ErrNotConfigured = errors.New("z-api credentials are not configured")

// Config carries the Z-API instance credentials.
type Config struct {
	InstanceID    string
	InstanceToken string
	ClientToken   string
	BaseURL       string
}

// Missing lists the environment keys of credentials that are absent.
func (c Config) Missing() []string {
	var missing []string

	if c.InstanceID == "" {
		missing = append(missing, "ZAPI_INSTANCE_ID")
	}

	if c.InstanceToken == "" {
		missing = append(missing, "ZAPI_INSTANCE_TOKEN")
	}

	if c.ClientToken == "" {
		missing = append(missing, "ZAPI_CLIENT_TOKEN")
	}

	return missing
}

// APIError is returned when Z-API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("z-api returned status %d: %s", e.StatusCode, e.Body)
}

// Status is the connectivity snapshot reported by the instance.
type Status struct {
	Connected           bool            `json:"connected"`
	Session             bool            `json:"session"`
	SmartphoneConnected bool            `json:"smartphoneConnected"`
	Error               string          `json:"error,omitempty"`
	Raw                 json.RawMessage `json:"-"`
}

// Client talks to one Z-API instance.
type Client struct {
	config     Config
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a client for the given instance.
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

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// SendText sends a plain text message and returns the decoded provider response.
func (c *Client) SendText(ctx context.Context, phone, message string) (map[string]any, error) {
	payload, err := json.Marshal(map[string]string{"phone": phone, "message": message})
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "send-text", payload)
	if err != nil {
		return nil, err
	}

	result := make(map[string]any)
	if len(bytes.TrimSpace(body)) == 0 {
		return result, nil
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return map[string]any{"raw": string(body)}, nil
	}

	return result, nil
}

// Status fetches the instance connectivity status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	body, err := c.do(ctx, http.MethodGet, "status", nil)
	if err != nil {
		return nil, err
	}

	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	status.Raw = json.RawMessage(body)

	return &status, nil
}

func (c *Client) endpoint(action string) string {
	return fmt.Sprintf("%s/instances/%s/token/%s/%s", c.config.BaseURL, c.config.InstanceID, c.config.InstanceToken, action)
}

func (c *Client) do(ctx context.Context, method, action string, payload []byte) ([]byte, error) {
	if len(c.config.Missing()) > 0 {
		return nil, ErrNotConfigured
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(action), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create z-api request: %w", err)
	}

	req.Header.Set("Client-Token", c.config.ClientToken)

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("z-api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read z-api response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

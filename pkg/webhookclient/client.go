// Package webhookclient posts sample submissions to a running relay.
package webhookclient

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

const (
	FormatJSON = "json"
	FormatForm = "form"
)

var ErrUnsupportedFormat = errors.New("unsupported payload format")

type Client struct {
	httpClient *http.Client
	baseURL    string
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Request is one sample submission. Form payloads use the nested fields[<id>][value] keys
// the form builder sends.
type Request struct {
	FormID string
	Format string
	Fields map[string]string
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// Pretty returns the body indented when it is JSON and as-is otherwise.
func (r *Response) Pretty() string {
	var out bytes.Buffer
	if err := json.Indent(&out, r.Body, "", "  "); err != nil {
		return string(r.Body)
	}

	return out.String()
}

func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	body, contentType, err := encode(req)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/webhook/" + url.PathEscape(req.FormID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)

	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       payload,
		Duration:   time.Since(start),
	}, nil
}

func encode(req Request) ([]byte, string, error) {
	switch req.Format {
	case "", FormatJSON:
		body, err := json.Marshal(req.Fields)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode fields: %w", err)
		}

		return body, "application/json", nil
	case FormatForm:
		values := url.Values{}
		for key, value := range req.Fields {
			values.Set("fields["+key+"][value]", value)
		}

		return []byte(values.Encode()), "application/x-www-form-urlencoded", nil
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}

// SampleData returns a submission that matches the legacy field aliases.
func SampleData() map[string]string {
	return map[string]string{
		"name":    "John Doe",
		"email":   "john.doe@example.com",
		"phone":   "+1 234 567 8900",
		"company": "Acme Corp",
		"message": "This is a test message from the webhook testing tool.",
	}
}

// ParseFields turns key=value pairs into a field map.
func ParseFields(pairs []string) (map[string]string, error) {
	fields := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", pair)
		}

		fields[strings.TrimSpace(key)] = value
	}

	return fields, nil
}

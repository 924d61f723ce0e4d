package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/beachmessages/relay/internal/domain"
)

// Client talks to the message queue REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client. baseURL is the server root, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the bearer token sent when marking messages delivered.
func (c *Client) SetToken(token string) {
	c.token = token
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s: %s", e.Status, e.Code, e.Message)
}

// Is lets callers match a 404 against domain.ErrMessageNotFound.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrMessageNotFound:
		return e.Status == http.StatusNotFound
	case domain.ErrInvalidID:
		return e.Code == "invalid_id"
	case domain.ErrInvalidMessage:
		return e.Code == "invalid_message"
	}
	return false
}

type createMessageRequest struct {
	Text       string `json:"text"`
	SenderName string `json:"senderName,omitempty"`
}

func (c *Client) CreateMessage(ctx context.Context, text, senderName string) (*domain.Message, error) {
	var resp domain.Message
	if err := c.send(ctx, http.MethodPost, "/api/messages", createMessageRequest{Text: text, SenderName: senderName}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pending returns undelivered messages, oldest first.
func (c *Client) Pending(ctx context.Context) ([]*domain.Message, error) {
	return c.list(ctx, "/api/messages/pending")
}

// Delivered returns delivered messages, most recently delivered first.
func (c *Client) Delivered(ctx context.Context) ([]*domain.Message, error) {
	return c.list(ctx, "/api/messages/delivered")
}

// All returns every message, newest first.
func (c *Client) All(ctx context.Context) ([]*domain.Message, error) {
	return c.list(ctx, "/api/messages")
}

func (c *Client) MarkDelivered(ctx context.Context, id int64) (*domain.Message, error) {
	var resp domain.Message
	path := fmt.Sprintf("/api/messages/%d/deliver", id)
	if err := c.send(ctx, http.MethodPatch, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) list(ctx context.Context, path string) ([]*domain.Message, error) {
	var resp []*domain.Message
	if err := c.send(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, path string, body, dest any) error {
	bodyReader := io.Reader(http.NoBody)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var env struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
			apiErr.Code = env.Error
			apiErr.Message = env.Message
		} else {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Message = string(body)
		}
		return apiErr
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// IsNotFound reports whether err is a 404 from the queue API.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrMessageNotFound)
}

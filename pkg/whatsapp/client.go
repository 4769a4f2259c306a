// Package whatsapp talks to a go-whatsapp-web-multidevice style gateway over
// its REST API.
package whatsapp

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

	"github.com/cenkalti/backoff/v5"
)

const (
	jidSuffix    = "@s.whatsapp.net"
	sendAttempts = 3
)

type Client struct {
	baseURL  string
	username string
	password string
	device   string
	http     *http.Client
}

type SendMessageRequest struct {
	Phone       string `json:"phone"`
	Message     string `json:"message"`
	IsForwarded bool   `json:"is_forwarded"`
	Duration    int    `json:"duration,omitempty"`
}

type SendMessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		MessageID string `json:"message_id"`
		Status    string `json:"status"`
	} `json:"data"`
}

// GatewayError is a non-2xx answer from the gateway.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("whatsapp gateway returned %d: %s", e.StatusCode, e.Body)
}

// NewClient builds a client for the gateway at baseURL. device is the path
// segment the gateway uses to pick the paired session.
func NewClient(baseURL, username, password, device string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		device:   strings.Trim(device, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// SendMessage delivers a text message to an Indonesian number in any common
// notation (08xx, +62 8xx, 62xx). Transport failures and 5xx answers are
// retried a few times; everything else fails at once.
func (c *Client) SendMessage(ctx context.Context, phone, message string) (*SendMessageResponse, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return nil, fmt.Errorf("invalid phone number %q", phone)
	}

	payload, err := json.Marshal(SendMessageRequest{Phone: normalized + jidSuffix, Message: message})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request data: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond

	return backoff.Retry(ctx, func() (*SendMessageResponse, error) {
		return c.post(ctx, payload)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(sendAttempts))
}

func (c *Client) post(ctx context.Context, payload []byte) (*SendMessageResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("send/message"), bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		gwErr := &GatewayError{StatusCode: resp.StatusCode, Body: string(body)}
		if resp.StatusCode < http.StatusInternalServerError {
			return nil, backoff.Permanent(gwErr)
		}
		return nil, gwErr
	}

	var out SendMessageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to parse response: %w", err))
	}
	if !out.Success {
		return &out, backoff.Permanent(errors.New("whatsapp gateway rejected message: " + out.Message))
	}
	return &out, nil
}

func (c *Client) endpoint(action string) string {
	if c.device == "" {
		return c.baseURL + "/" + action
	}
	return c.baseURL + "/" + c.device + "/" + action
}

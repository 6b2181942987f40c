// Package practicum implements the client for the Practicum homework_statuses API.
package practicum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const (
	maxResponseBytes = 1 << 20
	// MaxErrorBodyRunes caps the body kept in UpstreamError so it stays
	// short enough to be relayed in a chat message.
	MaxErrorBodyRunes = 512
)

// TransportError wraps a failure to reach the API or read its answer.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to the Practicum API failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError is a non-200 answer from the API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("endpoint returned an error: %d, %s", e.StatusCode, e.Body)
}

// DecodeError is a 200 answer whose body is not valid JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode the Practicum API response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ClientConfig contains configuration for the API client.
type ClientConfig struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
}

// Client fetches homework status updates.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *logrus.Entry
}

// NewClient creates a new API client.
func NewClient(config ClientConfig, logger *logrus.Entry) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// FetchUpdates requests statuses changed since fromDate (Unix seconds) and
// returns the raw JSON document.
func (c *Client) FetchUpdates(ctx context.Context, fromDate int64) (json.RawMessage, error) {
	u, err := url.Parse(c.config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", c.config.Endpoint, err)
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(fromDate, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.config.Token)
	req.Header.Set("Accept", "application/json")

	c.logger.WithField("from_date", fromDate).Debug("Requesting homework statuses")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: truncateRunes(string(body), MaxErrorBodyRunes)}
	}

	var payload json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return payload, nil
}

// truncateRunes cuts s to at most n runes, marking the cut with an ellipsis.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

// Package upstream talks to the room-booking API.
//
// The client performs exactly one GET per FetchRooms call. It never retries
// and never caches; the scraper's polling interval is the retry policy.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/roomexporter/internal/domain/model"
	"github.com/okian/roomexporter/pkg/logger"
)

// SchemaVersion identifies the upstream JSON contract this client decodes.
const SchemaVersion = "v1"

const (
	roomsPath        = "/api/rooms"
	defaultUserAgent = "roomexporter"
	maxErrorBody     = 512
)

// Client fetches room snapshots from the upstream API.
type Client struct {
	http      *http.Client
	roomsURL  string
	userAgent string
	logger    logger.Logger
}

// New validates baseURL and returns a Client for it. The base must be an
// absolute http or https URL; a trailing slash is tolerated.
func New(baseURL string, opts ...Option) (*Client, error) {
	roomsURL, err := RoomsURL(baseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		// No Timeout: the transport default applies and the caller's
		// context bounds the request.
		http:      &http.Client{},
		roomsURL:  roomsURL,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RoomsURL joins baseURL with the rooms endpoint path.
func RoomsURL(baseURL string) (string, error) {
	raw := strings.TrimSpace(baseURL)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidBaseURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidBaseURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}
	return strings.TrimRight(u.String(), "/") + roomsPath, nil
}

// URL returns the rooms endpoint this client calls.
func (c *Client) URL() string { return c.roomsURL }

// FetchRooms performs one GET against the rooms endpoint and decodes the
// body. Errors are *FetchError values classified as ErrConnection, ErrStatus
// or ErrDecode.
func (c *Client) FetchRooms(ctx context.Context) ([]model.Room, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.roomsURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: ErrConnection, URL: c.roomsURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: ErrConnection, URL: c.roomsURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &FetchError{
			Kind:       ErrStatus,
			URL:        c.roomsURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: ErrConnection, URL: c.roomsURL, Err: fmt.Errorf("read body: %w", err)}
	}
	rooms, err := decodeRooms(body)
	if err != nil {
		return nil, &FetchError{Kind: ErrDecode, URL: c.roomsURL, Err: err}
	}

	if c.logger != nil {
		c.logger.Debug(ctx, "fetched rooms",
			logger.String("url", c.roomsURL),
			logger.Int("rooms", len(rooms)),
			logger.Duration("elapsed", time.Since(start)))
	}
	return rooms, nil
}

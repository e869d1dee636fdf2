// Package backend is a client for the hotel reservation REST API.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/luxstay/receipt-engine/internal/booking"
)

// DefaultBaseURL is used when no base URL is configured
const DefaultBaseURL = "http://localhost:8080"

const maxResponseBytes = 1 << 20

const apiPrefix = "/api/v2"

// ErrNotFound is returned when the backend answers 404
var ErrNotFound = errors.New("not found")

// HTTPError is a non-2xx response from the backend
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed (HTTP %d)", e.Status)
}

// Is makes a 404 HTTPError match ErrNotFound
func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client fetches reservations and rooms
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for baseURL. A nil httpClient gets a client
// with a 10 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// Reservation fetches /api/v2/reservations/{id}
func (c *Client) Reservation(ctx context.Context, id string) (*booking.Reservation, error) {
	var resv booking.Reservation
	if err := c.get(ctx, &resv, "reservations", id); err != nil {
		return nil, fmt.Errorf("reservation %s: %w", id, err)
	}
	return &resv, nil
}

// Room fetches /api/v2/rooms/{id}
func (c *Client) Room(ctx context.Context, id string) (*booking.Room, error) {
	var room booking.Room
	if err := c.get(ctx, &room, "rooms", id); err != nil {
		return nil, fmt.Errorf("room %s: %w", id, err)
	}
	return &room, nil
}

// ReservationWithRoom fetches a reservation and, when it references one,
// its room.
func (c *Client) ReservationWithRoom(ctx context.Context, id string) (*booking.Reservation, *booking.Room, error) {
	resv, err := c.Reservation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !resv.HasRoom() {
		return resv, nil, nil
	}

	room, err := c.Room(ctx, fmt.Sprint(*resv.RoomID))
	if err != nil {
		return nil, nil, err
	}
	return resv, room, nil
}

// get fetches apiPrefix/segments... below the base URL. Segments are
// escaped once, so ids containing '/' or '%' stay a single segment.
func (c *Client) get(ctx context.Context, result any, segments ...string) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", c.baseURL, err)
	}
	decoded := strings.TrimSuffix(u.Path, "/") + apiPrefix
	escaped := strings.TrimSuffix(u.EscapedPath(), "/") + apiPrefix
	for _, seg := range segments {
		decoded += "/" + seg
		escaped += "/" + url.PathEscape(seg)
	}
	u.Path, u.RawPath = decoded, escaped

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", u.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage prefers the backend's own message or error field
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)

	if msg := booking.Pick(payload.Message, payload.Error); msg != "" {
		return msg
	}
	if status == http.StatusNotFound {
		return "Not found (404)."
	}
	return fmt.Sprintf("Request failed (HTTP %d).", status)
}

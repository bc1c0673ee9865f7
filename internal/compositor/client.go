// internal/compositor/client.go
package compositor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"roadbook/pkg/credentials"
)

const authTokenHeader = "auth-token"

type session struct {
	token      string
	obtainedAt time.Time
}

// Client wraps one microsite's authenticated access to the Travel Compositor
// API. The token session is guarded by a mutex so concurrent resolver calls
// share a single login per tenant.
type Client struct {
	cfg     credentials.TenantConfig
	baseURL string
	httpc   *http.Client
	log     *zap.SugaredLogger

	mu      sync.Mutex
	session *session
}

func New(cfg credentials.TenantConfig, baseURL string, timeout time.Duration, log *zap.SugaredLogger) *Client {
	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *Client) MicrositeID() string { return c.cfg.MicrositeID }

// Authenticate performs a fresh login and replaces the stored session.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"username":    c.cfg.Username,
		"password":    c.cfg.Password,
		"micrositeId": c.cfg.MicrositeID,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/authentication/authenticate", bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{MicrositeID: c.cfg.MicrositeID, Op: "authenticate", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", &TransportError{MicrositeID: c.cfg.MicrositeID, Op: "authenticate", Err: err}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &AuthError{MicrositeID: c.cfg.MicrositeID, Status: resp.StatusCode, Body: string(raw)}
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.Token == "" {
		return "", &AuthError{MicrositeID: c.cfg.MicrositeID, Status: resp.StatusCode, Body: "no token in response"}
	}
	c.mu.Lock()
	c.session = &session{token: out.Token, obtainedAt: time.Now()}
	c.mu.Unlock()
	c.log.Debugw("authenticated", "microsite", c.cfg.MicrositeID)
	return out.Token, nil
}

// token returns the cached session token, logging in first when absent.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.session != nil {
		t := c.session.token
		c.mu.Unlock()
		return t, nil
	}
	c.mu.Unlock()
	return c.Authenticate(ctx)
}

// Do issues an authenticated request. A 401 invalidates the stored session so
// the next call re-authenticates; the 401 itself is returned, not retried.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &TransportError{MicrositeID: c.cfg.MicrositeID, Op: "request", Err: err}
	}
	req.Header.Set(authTokenHeader, tok)
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &TransportError{MicrositeID: c.cfg.MicrositeID, Op: "request", Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
	}
	return resp, nil
}

// GetBooking looks a booking up directly by reference.
func (c *Client) GetBooking(ctx context.Context, ref string) (*Booking, error) {
	path := fmt.Sprintf("/booking/getBookings/%s/%s", url.PathEscape(c.cfg.MicrositeID), url.PathEscape(ref))
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{MicrositeID: c.cfg.MicrositeID, Status: resp.StatusCode, Body: string(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NotFoundError{MicrositeID: c.cfg.MicrositeID, Reference: ref, Status: resp.StatusCode}
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &TransportError{MicrositeID: c.cfg.MicrositeID, Op: "decode booking", Err: err}
	}
	// Some microsites wrap the record in a "booking" envelope.
	if inner, ok := payload["booking"].(map[string]any); ok {
		payload = inner
	}
	b := &Booking{Raw: payload}
	if b.ID() == "" {
		return nil, &NotFoundError{MicrositeID: c.cfg.MicrositeID, Reference: ref, Status: resp.StatusCode}
	}
	return b, nil
}

// ListBookings fetches a date-ranged page of bookings, used as a fallback
// scan when direct lookup misses.
func (c *Client) ListBookings(ctx context.Context, from, to string, first, limit int) ([]Booking, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	q.Set("first", strconv.Itoa(first))
	q.Set("limit", strconv.Itoa(limit))
	path := fmt.Sprintf("/booking/getBookings/%s?%s", url.PathEscape(c.cfg.MicrositeID), q.Encode())
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{MicrositeID: c.cfg.MicrositeID, Status: resp.StatusCode, Body: string(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NotFoundError{MicrositeID: c.cfg.MicrositeID, Reference: "", Status: resp.StatusCode}
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &TransportError{MicrositeID: c.cfg.MicrositeID, Op: "decode listing", Err: err}
	}
	var items []any
	for _, key := range []string{"bookedTrip", "bookedTrips", "bookings"} {
		if arr, ok := payload[key].([]any); ok {
			items = arr
			break
		}
	}
	out := make([]Booking, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, Booking{Raw: m})
		}
	}
	return out, nil
}

package apex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Credentials authenticates against one controller.
type Credentials struct {
	Username string
	Password string
}

// Client is a REST client for one Apex controller host. The device
// speaks JSON behind a session-cookie login; every request after login
// carries the connect.sid cookie.
type Client struct {
	host     string
	creds    Credentials
	sessions *SessionCache
	client   *http.Client
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

// NewClient constructs a client for a controller host. The session
// cache may be shared across clients for different hosts.
func NewClient(host string, creds Credentials, sessions *SessionCache, opts ...ClientOption) (*Client, error) {
	if host == "" {
		return nil, errors.New("apex: empty host")
	}
	if sessions == nil {
		sessions = NewSessionCache()
	}
	client := &Client{
		host:     host,
		creds:    creds,
		sessions: sessions,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Host returns the controller host this client talks to.
func (c *Client) Host() string { return c.host }

// login performs POST /rest/login and returns the session token.
func (c *Client) login(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"login":       c.creds.Username,
		"password":    c.creds.Password,
		"remember_me": false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("http://%s/rest/login", c.host), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Version", "1")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", fmt.Sprintf("http://%s/", c.host))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("login http %d: %w", resp.StatusCode, ErrAuth)
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("login decode: %w", ErrAuth)
	}
	if body.ConnectSID == "" {
		return "", fmt.Errorf("login missing connect.sid: %w", ErrAuth)
	}
	return body.ConnectSID, nil
}

// GetInstantLog fetches event-driven records for the window starting at
// startDay (YYMMDD) and spanning numDays days.
func (c *Client) GetInstantLog(ctx context.Context, startDay string, numDays int) (*InstantLog, error) {
	path := fmt.Sprintf("/rest/ilog?days=%d&sdate=%s", windowDays(numDays), startDay)
	var body instantLogResponse
	if err := c.getJSON(ctx, path, "/apex/ilog", &body); err != nil {
		return nil, err
	}
	if body.ILog == nil {
		return nil, fmt.Errorf("ilog envelope missing: %w", ErrSchema)
	}
	for _, record := range body.ILog.Record {
		if record.Date.IsZero() {
			return nil, fmt.Errorf("ilog record without date: %w", ErrSchema)
		}
	}
	return body.ILog, nil
}

// GetTrendLog fetches regularly sampled records for the window starting
// at startDay (YYMMDD) and spanning numDays days.
func (c *Client) GetTrendLog(ctx context.Context, startDay string, numDays int) (*TrendLog, error) {
	path := fmt.Sprintf("/rest/tlog?days=%d&sdate=%s", windowDays(numDays), startDay)
	var body trendLogResponse
	if err := c.getJSON(ctx, path, "/apex/tlog", &body); err != nil {
		return nil, err
	}
	if body.TLog == nil {
		return nil, fmt.Errorf("tlog envelope missing: %w", ErrSchema)
	}
	for _, record := range body.TLog.Record {
		if record.Date.IsZero() || record.DID == "" {
			return nil, fmt.Errorf("tlog record malformed: %w", ErrSchema)
		}
	}
	return body.TLog, nil
}

// GetStatus fetches the live snapshot of the controller.
func (c *Client) GetStatus(ctx context.Context) (*Status, error) {
	var body Status
	if err := c.getJSON(ctx, "/rest/status", "/apex/status", &body); err != nil {
		return nil, err
	}
	if body.System == nil {
		return nil, fmt.Errorf("status envelope missing system: %w", ErrSchema)
	}
	return &body, nil
}

func (c *Client) getJSON(ctx context.Context, path, referer string, out any) error {
	token, err := c.sessions.Token(ctx, c.host, c.creds.Username, c.login)
	if err != nil {
		return err
	}

	// Cache-busting timestamp, same as the device's own web UI.
	url := fmt.Sprintf("http://%s%s", c.host, path)
	if bytes.ContainsRune([]byte(path), '?') {
		url += "&_=" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	} else {
		url += "?_=" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Version", "1")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", fmt.Sprintf("http://%s%s", c.host, referer))
	req.AddCookie(&http.Cookie{Name: "connect.sid", Value: token})

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.sessions.Invalidate(c.host, c.creds.Username)
		return fmt.Errorf("session rejected (http %d): %w", resp.StatusCode, ErrAuth)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("apex: http %d on %s", resp.StatusCode, path)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		if errors.Is(err, ErrSchema) {
			return err
		}
		return fmt.Errorf("decode %s: %w", path, ErrSchema)
	}
	return nil
}

// windowDays bounds the query window, defaulting to the device's own
// 7-day default when unset.
func windowDays(numDays int) int {
	if numDays <= 0 {
		return 7
	}
	return numDays
}

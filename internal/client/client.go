// Package client talks to a running gaslog appliance over HTTP.
package client

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

	"github.com/fakeyudi/gaslog/internal/recording"
	"github.com/fakeyudi/gaslog/internal/server"
)

const defaultTimeout = 10 * time.Second

// ErrNotFound is returned when the appliance answers 404.
var ErrNotFound = errors.New("not found")

// StatusError is returned for any other unexpected status code.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client is a thin wrapper over the appliance's HTTP routes.
type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a client for the appliance at baseURL, e.g.
// "http://localhost:8080". A nil hc selects a client with a 10s timeout.
func New(baseURL string, hc *http.Client) (*Client, error) {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", baseURL)
	}
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{base: u, http: hc}, nil
}

// Control sends one recording action.
func (c *Client) Control(ctx context.Context, a recording.Action) error {
	q := url.Values{"action": {string(a)}}
	resp, err := c.do(ctx, http.MethodPost, "/control", q)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Latest returns the value of GET /data; empty before the first reading.
func (c *Client) Latest(ctx context.Context) (string, error) {
	var body server.DataResponse
	if err := c.getJSON(ctx, "/data", &body); err != nil {
		return "", err
	}
	return body.Data, nil
}

// Status returns the appliance's state snapshot.
func (c *Client) Status(ctx context.Context) (*server.StatusResponse, error) {
	var body server.StatusResponse
	if err := c.getJSON(ctx, "/status", &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Files lists stopped sessions in stop order.
func (c *Client) Files(ctx context.Context) ([]string, error) {
	var body server.FilesResponse
	if err := c.getJSON(ctx, "/files", &body); err != nil {
		return nil, err
	}
	if body.Files == nil {
		body.Files = []string{}
	}
	return body.Files, nil
}

// ViewFile downloads a session file.
func (c *Client) ViewFile(ctx context.Context, name string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/view_file/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// do issues the request and returns the response for any 2xx status. path
// must already be escaped.
func (c *Client) do(ctx context.Context, method, path string, q url.Values) (*http.Response, error) {
	target := strings.TrimSuffix(c.base.String(), "/") + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 == 2 {
		return resp, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return nil, &StatusError{Method: method, URL: target, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// outcome classifies a single event submission.
type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
	outcomeRejected
	outcomeFailed
)

// errStatus is returned for unexpected HTTP statuses.
var errStatus = errors.New("unexpected status")

// client wraps http.Client with the service's base URL.
type client struct {
	http *http.Client
	base string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}, base: baseURL}
}

func (c *client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

// getJSON decodes a 200 response of GET path into v.
func (c *client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: GET %s: %d %s", errStatus, path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// health checks GET /healthz.
func (c *client) health(ctx context.Context) error {
	var body map[string]string
	return c.getJSON(ctx, "/healthz", &body)
}

// submit posts one event. 4xx responses other than 429 count as rejected.
func (c *client) submit(ctx context.Context, ev *Event) outcome {
	resp, err := c.do(ctx, http.MethodPost, "/events", ev)
	if err != nil {
		return outcomeFailed
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusAccepted:
		return outcomeAccepted
	case resp.StatusCode == http.StatusOK:
		var ack AckResponse
		if err := json.NewDecoder(resp.Body).Decode(&ack); err == nil && !ack.Duplicate {
			return outcomeAccepted
		}
		return outcomeDuplicate
	case resp.StatusCode == http.StatusTooManyRequests:
		return outcomeFailed
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}

// pending reads the queued plus in-flight event count from GET /stats.
func (c *client) pending(ctx context.Context) (int, error) {
	var stats map[string]any
	if err := c.getJSON(ctx, "/stats", &stats); err != nil {
		return 0, err
	}
	n, _ := stats["pending"].(float64)
	return int(n), nil
}

func (c *client) rank(ctx context.Context, userID int64, metric string) (Entry, error) {
	var e Entry
	path := "/rank/" + strconv.FormatInt(userID, 10) + "?metric=" + url.QueryEscape(metric)
	if err := c.getJSON(ctx, path, &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (c *client) leaderboard(ctx context.Context, metric string, limit int) ([]Entry, error) {
	var entries []Entry
	path := "/leaderboard?metric=" + url.QueryEscape(metric) + "&limit=" + strconv.Itoa(limit)
	if err := c.getJSON(ctx, path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Package remote is the client side of the backend API: the people and
// availability queries, the keyed upsert and the change-notification feed.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	ws "github.com/coder/websocket"
	"github.com/dukerupert/freeday/internal/model"
)

// ErrStatus is wrapped by every error caused by a non-2xx response.
var ErrStatus = errors.New("unexpected status")

const (
	minReconnectDelay = time.Second
	maxReconnectDelay = 30 * time.Second
)

// Config holds backend connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to one backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the backend at cfg.BaseURL.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type upsertRequest struct {
	PersonID  string `json:"person_id"`
	Day       string `json:"day"`
	Available bool   `json:"available"`
}

// notification mirrors the hub's message envelope.
type notification struct {
	Type string                 `json:"type"`
	Row  *model.AvailabilityRow `json:"row"`
}

// ListPeople fetches the whole roster.
func (c *Client) ListPeople(ctx context.Context) ([]model.Person, error) {
	var people []model.Person
	if err := c.do(ctx, http.MethodGet, "/api/people", nil, &people); err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	return people, nil
}

// ListAvailability fetches every row with from <= day <= to.
func (c *Client) ListAvailability(ctx context.Context, from, to string) ([]model.AvailabilityRow, error) {
	q := url.Values{"from": {from}, "to": {to}}
	var rows []model.AvailabilityRow
	if err := c.do(ctx, http.MethodGet, "/api/availability?"+q.Encode(), nil, &rows); err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return rows, nil
}

// UpsertAvailability inserts or overwrites the (personID, day) row.
func (c *Client) UpsertAvailability(ctx context.Context, personID, day string, available bool) error {
	body, err := json.Marshal(upsertRequest{PersonID: personID, Day: day, Available: available})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	if err := c.do(ctx, http.MethodPut, "/api/availability", body, nil); err != nil {
		return fmt.Errorf("upsert availability: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		if e.Error != "" {
			return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, e.Error)
		}
		return fmt.Errorf("%w %d", ErrStatus, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) wsURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// Subscribe connects to the change feed and calls handler for every
// availability row it announces. The first connection attempt is made
// synchronously; after that the feed reconnects with backoff until the
// returned unsubscribe func is called. handler runs on the feed goroutine.
func (c *Client) Subscribe(ctx context.Context, handler func(model.AvailabilityRow)) (func(), error) {
	conn, _, err := ws.Dial(ctx, c.wsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial change feed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.feed(ctx, conn, handler)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func (c *Client) feed(ctx context.Context, conn *ws.Conn, handler func(model.AvailabilityRow)) {
	delay := minReconnectDelay
	for {
		if conn != nil {
			err := c.read(ctx, conn, handler)
			conn.CloseNow()
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("change feed disconnected", "error", err)
			delay = minReconnectDelay
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		var err error
		conn, _, err = ws.Dial(ctx, c.wsURL(), nil)
		if err != nil {
			c.logger.Debug("change feed redial", "error", err, "retry_in", delay)
			conn = nil
			delay = min(delay*2, maxReconnectDelay)
			continue
		}
		c.logger.Info("change feed reconnected")
	}
}

func (c *Client) read(ctx context.Context, conn *ws.Conn, handler func(model.AvailabilityRow)) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var n notification
		if err := json.Unmarshal(data, &n); err != nil {
			c.logger.Debug("ignore malformed notification", "error", err)
			continue
		}
		if n.Row == nil {
			continue
		}
		handler(*n.Row)
	}
}

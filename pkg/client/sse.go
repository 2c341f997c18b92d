package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skydesk/skydesk/internal/logging"
	"github.com/skydesk/skydesk/pkg/protocol"
)

// ChangeFeed subscribes to the tree service's server-sent change events.
type ChangeFeed struct {
	baseURL      string
	httpClient   *http.Client
	reconnectMin time.Duration
	reconnectMax time.Duration

	mu        sync.RWMutex
	authToken string
}

// NewChangeFeed creates a change-event subscriber.
func NewChangeFeed(baseURL string) *ChangeFeed {
	return &ChangeFeed{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 0, // event stream stays open
		},
		reconnectMin: 1 * time.Second,
		reconnectMax: 30 * time.Second,
	}
}

// SetAuthToken sets the bearer token for feed requests.
func (c *ChangeFeed) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authToken = token
}

// Subscribe connects to the event endpoint and returns a channel of change
// events. The channel closes when ctx is cancelled; disconnects are retried
// with exponential backoff in between.
func (c *ChangeFeed) Subscribe(ctx context.Context) <-chan protocol.ChangeEvent {
	events := make(chan protocol.ChangeEvent, 100)
	go c.subscribeLoop(ctx, events)
	return events
}

func (c *ChangeFeed) subscribeLoop(ctx context.Context, events chan<- protocol.ChangeEvent) {
	defer close(events)

	reconnectDelay := c.reconnectMin

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := c.connect(ctx, events)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			logging.Warn("change feed disconnected",
				zap.Error(err),
				zap.Duration("reconnect_in", reconnectDelay))

			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}

			reconnectDelay *= 2
			if reconnectDelay > c.reconnectMax {
				reconnectDelay = c.reconnectMax
			}
			continue
		}

		reconnectDelay = c.reconnectMin
	}
}

func (c *ChangeFeed) connect(ctx context.Context, events chan<- protocol.ChangeEvent) error {
	url := c.baseURL + "/api/v1/events"

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	c.mu.RLock()
	token := c.authToken
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	logging.Debug("change feed connected", zap.String("url", url))

	scanner := bufio.NewScanner(resp.Body)
	var data string

	for scanner.Scan() {
		line := scanner.Text()

		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if line == "" {
			if data != "" {
				var event protocol.ChangeEvent
				if json.Unmarshal([]byte(data), &event) == nil {
					select {
					case events <- event:
					default:
						logging.Debug("change event dropped (channel full)")
					}
				}
			}
			data = ""
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}

	return fmt.Errorf("connection closed")
}

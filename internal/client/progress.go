package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultReconnectDelay = 5 * time.Second

// Client talks to the conversion server.
type Client struct {
	BaseURL        string
	HTTP           *http.Client
	ReconnectDelay time.Duration
	logger         *log.Logger
}

// New creates a client for the server at baseURL.
func New(baseURL string, logger *log.Logger) *Client {
	return &Client{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		HTTP:           &http.Client{},
		ReconnectDelay: defaultReconnectDelay,
		logger:         logger,
	}
}

// WatchProgress follows the progress stream of sessionID and passes every
// message to fn until ctx is done. A dropped stream is reopened, at most once
// per ReconnectDelay. ready, when non-nil, is closed after the first
// successful connect.
func (c *Client) WatchProgress(ctx context.Context, sessionID string, ready chan<- struct{}, fn func(message string)) error {
	limiter := rate.NewLimiter(rate.Every(c.ReconnectDelay), 1)
	var once sync.Once
	connected := func() {
		if ready != nil {
			once.Do(func() { close(ready) })
		}
	}

	for {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		err := c.stream(ctx, sessionID, connected, fn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Printf("progress stream for %s ended: %v", sessionID, err)
	}
}

func (c *Client) stream(ctx context.Context, sessionID string, connected func(), fn func(string)) error {
	endpoint := c.BaseURL + "/events/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("events: unexpected status %d", resp.StatusCode)
	}
	connected()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		var event struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &event); err != nil {
			c.logger.Printf("skip malformed event: %v", err)
			continue
		}
		fn(event.Message)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

// StatusError is a non-success response from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}

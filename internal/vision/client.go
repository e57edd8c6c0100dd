package vision

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/naveenkul/pocket-soul/internal/analysis/emotion"
)

// Snapshot mirrors one frame of the vision sidecar's stream.
type Snapshot struct {
	FaceDetected  bool   `json:"faceDetected"`
	FingerCount   int    `json:"fingerCount"`
	HandsDetected int    `json:"handsDetected"`
	Gesture       string `json:"gesture"`
	Timestamp     string `json:"timestamp"`
}

// Client consumes the vision sidecar's presence stream and exposes the
// latest sample as emotion context. A nil client, or one without a
// configured URL, degrades to unknown context.
type Client struct {
	url string
	log zerolog.Logger

	mu       sync.RWMutex
	last     Snapshot
	observed time.Time
}

// NewClient builds a presence client; url may be empty to disable it.
func NewClient(url string, log zerolog.Logger) *Client {
	return &Client{
		url: url,
		log: log.With().Str("component", "vision").Logger(),
	}
}

// Start consumes the stream until ctx is cancelled, reconnecting with
// backoff. It is a no-op when no URL is configured.
func (c *Client) Start(ctx context.Context) {
	if c == nil || c.url == "" {
		return
	}
	go c.run(ctx)
}

func (c *Client) run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := c.consume(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn().Err(err).Dur("retryIn", backoff).Msg("vision stream disconnected")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *Client) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.log.Info().Str("url", c.url).Msg("vision stream connected")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var snap Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			return err
		}

		c.mu.Lock()
		c.last = snap
		c.observed = time.Now()
		c.mu.Unlock()
	}
}

// Context reports the latest presence sample as emotion context.
func (c *Client) Context() emotion.Context {
	if c == nil || c.url == "" {
		return emotion.Context{}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.observed.IsZero() {
		return emotion.Context{}
	}
	return emotion.Context{
		Known:       true,
		UserPresent: c.last.FaceDetected,
		Observed:    c.observed,
	}
}

// Last returns the raw latest snapshot for status endpoints.
func (c *Client) Last() (Snapshot, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last, c.observed
}

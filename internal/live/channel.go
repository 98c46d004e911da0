// Package live maintains the push connection to the backend and delivers
// its events to the UI loop. One channel per process; consumers filter by
// chat id.
package live

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tgdesk/tgdesk/internal/logging"
)

// Event names on the wire.
const (
	EventMessageNew     = "message.new"
	EventMessageDeleted = "message.deleted"
	EventChatPatched    = "chat.patched"
)

// Event is one push frame. Data stays raw until a consumer knows the shape
// for the event name.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("live: decode %s: %w", e.Event, err)
	}
	return nil
}

// Reconnect backoff: grows linearly with the attempt count up to a cap, so
// a flapping backend is retried quickly and a dead one is not hammered.
const (
	DefaultBackoffBase = time.Second
	DefaultBackoffCap  = 5 * time.Second
)

// Channel is a self-reconnecting event stream. Events arrive on Events()
// until Close; a dropped connection is redialed transparently, and the
// consumer must merge idempotently since frames sent during the gap are
// lost.
type Channel struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	log    zerolog.Logger

	backoffBase time.Duration
	backoffCap  time.Duration

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Channel.
type Option func(*Channel)

// WithToken sends a bearer token during the handshake.
func WithToken(token string) Option {
	return func(c *Channel) {
		if token != "" {
			c.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithLogger attaches a logger for connection lifecycle events.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Channel) { c.log = log }
}

// WithBackoff overrides the reconnect timing, mainly for tests.
func WithBackoff(base, cap time.Duration) Option {
	return func(c *Channel) {
		c.backoffBase = base
		c.backoffCap = cap
	}
}

// Dial starts the channel against a ws:// or wss:// URL. It returns
// immediately; the first connection attempt happens in the background.
func Dial(url string, opts ...Option) *Channel {
	c := &Channel{
		url:         url,
		header:      make(http.Header),
		dialer:      websocket.DefaultDialer,
		log:         zerolog.Nop(),
		backoffBase: DefaultBackoffBase,
		backoffCap:  DefaultBackoffCap,
		events:      make(chan Event, 64),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.run()
	return c
}

// Events returns the stream. It is closed after Close.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Close stops delivery permanently. Safe to call more than once.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *Channel) run() {
	defer close(c.events)

	attempt := 0
	for {
		select {
		case <-c.done:
			return
		default:
		}

		conn, _, err := c.dialer.Dial(c.url, c.header)
		if err != nil {
			attempt++
			// Handshake errors and the URL can carry the token.
			c.log.Warn().Str("url", logging.Redact(c.url)).
				Str("error", logging.Redact(err.Error())).
				Int("attempt", attempt).Msg("live connect failed")
			if !c.sleep(c.backoff(attempt)) {
				return
			}
			continue
		}

		c.log.Info().Str("url", logging.Redact(c.url)).Msg("live channel connected")
		attempt = 0
		c.readLoop(conn)
		conn.Close()

		select {
		case <-c.done:
			return
		default:
		}
		attempt++
		if !c.sleep(c.backoff(attempt)) {
			return
		}
	}
}

// readLoop pumps frames until the connection breaks or the channel closes.
func (c *Channel) readLoop(conn *websocket.Conn) {
	// Unblock the read when Close fires.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-c.done:
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			select {
			case <-c.done:
			default:
				c.log.Warn().Err(err).Msg("live channel dropped")
			}
			return
		}
		if ev.Event == "" {
			continue
		}
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *Channel) backoff(attempt int) time.Duration {
	d := time.Duration(attempt) * c.backoffBase
	if d > c.backoffCap {
		d = c.backoffCap
	}
	return d
}

// sleep waits d or until Close; false means the channel is closing.
func (c *Channel) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-c.done:
		return false
	}
}

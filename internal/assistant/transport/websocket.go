package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	errx "github.com/arckit11/v-novaa/internal/core/error"
	logx "github.com/arckit11/v-novaa/pkg/logger"
)

var (
	// ErrNotConnected is returned by Send without a live connection.
	ErrNotConnected = errors.New("speech transport not connected")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("speech transport closed")
)

const eventBuffer = 64

// Client is a websocket speech transport. One connection is live at a time;
// the event channel outlives reconnects and closes on Close.
type Client struct {
	cfg    model.TransportConfig
	dialer *websocket.Dialer

	events  chan model.TransportEvent
	closing chan struct{}

	mu     sync.Mutex
	conn   *connection
	closed bool

	// tracks Start calls and read loops that may still emit
	loops sync.WaitGroup
}

type connection struct {
	ws       *websocket.Conn
	writeMu  sync.Mutex
	done     chan struct{}
	stopping atomic.Bool
}

func New(cfg model.TransportConfig) *Client {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Client{
		cfg:     cfg,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout, Proxy: http.ProxyFromEnvironment},
		events:  make(chan model.TransportEvent, eventBuffer),
		closing: make(chan struct{}),
	}
}

func (c *Client) Events() <-chan model.TransportEvent {
	return c.events
}

// Start dials the transport, replacing any live connection, and opens the session.
func (c *Client) Start(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.loops.Add(1)
	defer c.loops.Done()
	prev := c.conn
	c.conn = nil
	c.mu.Unlock()
	if prev != nil {
		prev.shutdown()
	}

	wsURL, err := buildURL(c.cfg.URL, sessionID)
	if err != nil {
		return err
	}
	headers := http.Header{}
	if c.cfg.APIKey != "" {
		headers.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	ws, resp, err := c.dialer.DialContext(dialCtx, wsURL, headers)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			te := &model.TransportError{Type: "start-method-error", Message: "unauthorized", Status: resp.StatusCode}
			c.emit(model.TransportEvent{Kind: model.EventError, Err: te, At: time.Now()}, true)
			return errx.WrapTransport(te)
		}
		return errx.WrapTransport(fmt.Errorf("dial speech transport: %w", err))
	}

	conn := &connection{ws: ws, done: make(chan struct{})}
	err = conn.writeJSON(c.cfg.WriteTimeout, outbound{
		Type:        "start",
		SessionID:   sessionID,
		AssistantID: c.cfg.AssistantID,
	})
	if err != nil {
		_ = ws.Close()
		return errx.WrapTransport(fmt.Errorf("open speech session: %w", err))
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ws.Close()
		return ErrClosed
	}
	c.conn = conn
	c.loops.Add(1)
	c.mu.Unlock()

	go c.readLoop(conn)
	logx.Debug().Str("session_id", sessionID).Msg("speech transport connected")
	return nil
}

// Stop ends the session and closes the connection. It is a no-op when disconnected.
func (c *Client) Stop() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.shutdown()
}

// Send asks the transport to speak u.
func (c *Client) Send(_ context.Context, u model.SystemUtterance) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errx.WrapTransport(ErrNotConnected)
	}
	if err := conn.writeJSON(c.cfg.WriteTimeout, outbound{Type: "add-message", Message: &u}); err != nil {
		return errx.WrapTransport(fmt.Errorf("send utterance: %w", err))
	}
	return nil
}

// Close stops the connection and closes the event channel.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closing)
	c.mu.Unlock()

	err := c.Stop()
	c.loops.Wait()
	close(c.events)
	return err
}

func (conn *connection) writeJSON(timeout time.Duration, v any) error {
	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	if err := conn.ws.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return conn.ws.WriteJSON(v)
}

// shutdown says goodbye, closes the socket and waits for the read loop.
func (conn *connection) shutdown() error {
	if !conn.stopping.CompareAndSwap(false, true) {
		<-conn.done
		return nil
	}
	_ = conn.writeJSON(time.Second, outbound{Type: "stop"})

	conn.writeMu.Lock()
	_ = conn.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.writeMu.Unlock()

	err := conn.ws.Close()
	<-conn.done
	return err
}

func (c *Client) readLoop(conn *connection) {
	defer c.loops.Done()
	defer close(conn.done)

	for {
		_, payload, err := conn.ws.ReadMessage()
		if err != nil {
			if conn.stopping.Load() {
				return
			}
			c.detach(conn)
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.emit(model.TransportEvent{Kind: model.EventSessionEnded, At: time.Now()}, true)
				return
			}
			c.emit(model.TransportEvent{
				Kind: model.EventError,
				Err:  &model.TransportError{Type: "transport-error", Message: err.Error()},
				At:   time.Now(),
			}, true)
			return
		}

		var msg inbound
		if err := json.Unmarshal(payload, &msg); err != nil {
			logx.Debug().Err(err).Msg("ignoring malformed transport message")
			continue
		}
		ev, ok := msg.event()
		if !ok {
			continue
		}
		ev.At = time.Now()
		// transcripts are shed under backpressure, lifecycle events are not
		c.emit(ev, ev.Kind != model.EventTranscript)
	}
}

// detach forgets conn if it is still the live connection.
func (c *Client) detach(conn *connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
}

func (c *Client) emit(ev model.TransportEvent, block bool) {
	if block {
		select {
		case c.events <- ev:
		case <-c.closing:
		}
		return
	}
	select {
	case c.events <- ev:
	case <-c.closing:
	default:
		logx.Warn().Str("kind", string(ev.Kind)).Msg("transport event buffer full, dropping event")
	}
}

func buildURL(base, sessionID string) (string, error) {
	base = strings.TrimSpace(base)
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid speech transport url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("invalid speech transport url scheme %q", u.Scheme)
	}
	if sessionID != "" {
		q := u.Query()
		q.Set("session_id", sessionID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

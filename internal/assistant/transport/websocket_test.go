package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/arckit11/v-novaa/internal/assistant/model"
	errx "github.com/arckit11/v-novaa/internal/core/error"
)

type fakeServer struct {
	*httptest.Server
	conns    chan *websocket.Conn
	received chan map[string]any
	auth     chan string
	query    chan string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		conns:    make(chan *websocket.Conn, 4),
		received: make(chan map[string]any, 16),
		auth:     make(chan string, 4),
		query:    make(chan string, 4),
	}
	upgrader := websocket.Upgrader{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer bad" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fs.auth <- r.Header.Get("Authorization")
		fs.query <- r.URL.Query().Get("session_id")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.conns <- conn
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg map[string]any
			if json.Unmarshal(payload, &msg) == nil {
				fs.received <- msg
			}
		}
	}))
	return fs
}

func (fs *fakeServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.URL, "http")
}

func (fs *fakeServer) conn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-fs.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted a connection")
		return nil
	}
}

func (fs *fakeServer) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case m := <-fs.received:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("server received nothing")
		return nil
	}
}

func nextEvent(t *testing.T, c *Client) model.TransportEvent {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no transport event")
		return model.TransportEvent{}
	}
}

func newClient(fs *fakeServer, key string) *Client {
	return New(model.TransportConfig{URL: fs.wsURL(), APIKey: key, AssistantID: "asst-1"})
}

func TestStartSendsSessionFrame(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	fs := newFakeServer(t)
	defer fs.Close()
	c := newClient(fs, "secret")
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), "sess-1"))
	_ = fs.conn(t)

	assert.Equal(t, "Bearer secret", <-fs.auth)
	assert.Equal(t, "sess-1", <-fs.query)
	start := fs.next(t)
	assert.Equal(t, "start", start["type"])
	assert.Equal(t, "sess-1", start["sessionId"])
	assert.Equal(t, "asst-1", start["assistantId"])
}

func TestInboundEventsDecoded(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	fs := newFakeServer(t)
	defer fs.Close()
	c := newClient(fs, "")
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), "s"))
	srv := fs.conn(t)
	_ = fs.next(t)

	require.NoError(t, srv.WriteMessage(websocket.TextMessage, []byte(`{"type":"call-start"}`)))
	require.NoError(t, srv.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, srv.WriteMessage(websocket.TextMessage, []byte(`{"type":"mystery"}`)))
	require.NoError(t, srv.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"transcript","role":"user","transcript":"show me hoodies","transcriptType":"final"}`)))
	require.NoError(t, srv.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"transcript","role":"assistant","transcript":"sure","transcriptType":"partial"}`)))
	require.NoError(t, srv.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"error","error":{"type":"daily-error","msg":"Meeting has ended"}}`)))

	ev := nextEvent(t, c)
	assert.Equal(t, model.EventSessionStarted, ev.Kind)

	ev = nextEvent(t, c)
	require.Equal(t, model.EventTranscript, ev.Kind)
	assert.Equal(t, model.RoleUser, ev.Transcript.Role)
	assert.Equal(t, "show me hoodies", ev.Transcript.Text)
	assert.True(t, ev.Transcript.IsFinal)
	assert.False(t, ev.At.IsZero())

	ev = nextEvent(t, c)
	assert.Equal(t, model.RoleAssistant, ev.Transcript.Role)
	assert.False(t, ev.Transcript.IsFinal)

	ev = nextEvent(t, c)
	require.Equal(t, model.EventError, ev.Kind)
	require.NotNil(t, ev.Err)
	assert.Equal(t, "daily-error", ev.Err.Type)
	assert.Equal(t, "Meeting has ended", ev.Err.Message)
}

func TestSendWritesAddMessage(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	fs := newFakeServer(t)
	defer fs.Close()
	c := newClient(fs, "")
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), "s"))
	_ = fs.conn(t)
	_ = fs.next(t)

	require.NoError(t, c.Send(context.Background(), model.SystemUtterance{Role: "system", Content: "hello"}))
	msg := fs.next(t)
	assert.Equal(t, "add-message", msg["type"])
	inner, ok := msg["message"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "system", inner["role"])
	assert.Equal(t, "hello", inner["content"])
}

func TestSendWithoutConnection(t *testing.T) {
	c := New(model.TransportConfig{URL: "ws://127.0.0.1:1"})
	defer c.Close()

	err := c.Send(context.Background(), model.SystemUtterance{Role: "system", Content: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err, 0))
}

func TestStopIsQuiet(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	fs := newFakeServer(t)
	defer fs.Close()
	c := newClient(fs, "")
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), "s"))
	_ = fs.conn(t)
	_ = fs.next(t)

	require.NoError(t, c.Stop())
	assert.Equal(t, "stop", fs.next(t)["type"])
	assert.NoError(t, c.Stop())

	select {
	case ev := <-c.Events():
		t.Fatalf("unexpected event after Stop: %v", ev.Kind)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestServerCloseEndsSession(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	fs := newFakeServer(t)
	defer fs.Close()
	c := newClient(fs, "")
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), "s"))
	srv := fs.conn(t)
	_ = fs.next(t)

	require.NoError(t, srv.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second)))

	ev := nextEvent(t, c)
	assert.Equal(t, model.EventSessionEnded, ev.Kind)

	err := c.Send(context.Background(), model.SystemUtterance{Role: "system", Content: "x"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestAbruptDropIsError(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	fs := newFakeServer(t)
	defer fs.Close()
	c := newClient(fs, "")
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), "s"))
	srv := fs.conn(t)
	_ = fs.next(t)
	require.NoError(t, srv.Close())

	ev := nextEvent(t, c)
	require.Equal(t, model.EventError, ev.Kind)
	assert.Equal(t, "transport-error", ev.Err.Type)
}

func TestUnauthorizedHandshake(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	fs := newFakeServer(t)
	defer fs.Close()
	c := newClient(fs, "bad")
	defer c.Close()

	err := c.Start(context.Background(), "s")
	require.Error(t, err)

	var te *model.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusUnauthorized, te.Status)

	ev := nextEvent(t, c)
	require.Equal(t, model.EventError, ev.Kind)
	assert.Equal(t, http.StatusUnauthorized, ev.Err.Status)
}

func TestCloseClosesEvents(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	fs := newFakeServer(t)
	defer fs.Close()
	c := newClient(fs, "")

	require.NoError(t, c.Start(context.Background(), "s"))
	_ = fs.conn(t)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	_, ok := <-c.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, c.Start(context.Background(), "s"), ErrClosed)
}

func TestBuildURL(t *testing.T) {
	u, err := buildURL("https://voice.example.com/v1?x=1", "abc")
	require.NoError(t, err)
	assert.Equal(t, "wss://voice.example.com/v1?session_id=abc&x=1", u)

	_, err = buildURL("ftp://nope", "")
	assert.Error(t, err)
}

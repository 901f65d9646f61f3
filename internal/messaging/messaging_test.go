package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lance13c/shopassist/internal/store"
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (s *recordingSink) PostMessage(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return s.err
}

func (s *recordingSink) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.msgs...)
}

func TestNewMessage_EncodesPayload(t *testing.T) {
	msg, err := NewMessage(ActionUpdateSettings, store.Settings{AutoFillEnabled: true, FillDelayMs: 250, PaymentMethod: "cod"})
	require.NoError(t, err)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"action":"updateSettings"`)
	assert.Contains(t, string(raw), `"autoFill":true`)
	assert.Contains(t, string(raw), `"fillDelay":250`)

	var settings store.Settings
	require.NoError(t, msg.Decode(&settings))
	assert.True(t, settings.AutoFillEnabled)
	assert.Equal(t, 250, settings.FillDelayMs)
}

func TestNewMessage_NoData(t *testing.T) {
	msg, err := NewMessage(ActionSkipWaiting, nil)
	require.NoError(t, err)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"skipWaiting"}`, string(raw))
	assert.Error(t, msg.Decode(&struct{}{}))
}

func TestNotifier_FansOutAndJoinsErrors(t *testing.T) {
	first := &recordingSink{}
	failing := &recordingSink{err: errors.New("page closed")}
	last := &recordingSink{}

	n := NewNotifier(first, failing)
	n.Add(last)

	err := TriggerAutoFill(context.Background(), n, store.Profile{Name: "Budi", Phone: "08123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page closed")

	for _, sink := range []*recordingSink{first, failing, last} {
		msgs := sink.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, ActionTriggerAutoFill, msgs[0].Action)
	}

	var profile store.Profile
	require.NoError(t, last.Messages()[0].Decode(&profile))
	assert.Equal(t, "Budi", profile.Name)
}

func startHub(t *testing.T, origins []string) (*Hub, *httptest.Server, context.CancelFunc) {
	t.Helper()
	hub := NewHub(origins)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	return hub, srv, cancel
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHub_BroadcastsToClients(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub, srv, cancel := startHub(t, nil)
	defer srv.Close()
	defer func() {
		cancel()
		<-hub.Done()
	}()

	a := dial(t, srv)
	defer a.Close()
	b := dial(t, srv)
	defer b.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 5*time.Millisecond)

	msg, err := NewMessage(ActionUpdateSettings, store.DefaultSettings())
	require.NoError(t, err)
	require.NoError(t, hub.PostMessage(context.Background(), msg))

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got Message
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, ActionUpdateSettings, got.Action)
	}
}

func TestHub_DispatchesInboundActions(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub, srv, cancel := startHub(t, nil)
	defer srv.Close()
	defer func() {
		cancel()
		<-hub.Done()
	}()

	received := make(chan Message, 1)
	hub.Handle(ActionSkipWaiting, func(ctx context.Context, msg Message) error {
		received <- msg
		return nil
	})

	conn := dial(t, srv)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "unknown"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "skipWaiting"}))

	select {
	case msg := <-received:
		assert.Equal(t, ActionSkipWaiting, msg.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("skipWaiting handler was not called")
	}
}

func TestHub_ClientLeaves(t *testing.T) {
	hub, srv, cancel := startHub(t, nil)
	defer srv.Close()
	defer cancel()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub, srv, cancel := startHub(t, []string{"http://shop.example"})
	defer srv.Close()
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, map[string][]string{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
	assert.Equal(t, 0, hub.Clients())

	ok, _, err := websocket.DefaultDialer.Dial(url, map[string][]string{"Origin": {"http://shop.example"}})
	require.NoError(t, err)
	ok.Close()
}

func TestHub_PostAfterStop(t *testing.T) {
	hub, srv, cancel := startHub(t, nil)
	defer srv.Close()

	cancel()
	<-hub.Done()

	msg, err := NewMessage(ActionSkipWaiting, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, hub.PostMessage(context.Background(), msg), ErrHubStopped)
}

func TestClient_RelaysThroughHub(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub, srv, cancel := startHub(t, nil)
	defer srv.Close()
	defer func() {
		cancel()
		<-hub.Done()
	}()
	hub.Relay(ActionUpdateSettings, ActionTriggerAutoFill)

	handled := make(chan Message, 1)
	hub.Handle(ActionTriggerAutoFill, func(ctx context.Context, msg Message) error {
		handled <- msg
		return nil
	})

	page := dial(t, srv)
	defer page.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	client := NewClient("ws" + strings.TrimPrefix(srv.URL, "http"))
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, UpdateSettings(ctx, client, store.Settings{AutoFillEnabled: true, PaymentMethod: "cod"}))
	require.NoError(t, TriggerAutoFill(ctx, client, store.Profile{Name: "Budi", Phone: "08123"}))

	page.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Message
	require.NoError(t, page.ReadJSON(&got))
	assert.Equal(t, ActionUpdateSettings, got.Action)
	var settings store.Settings
	require.NoError(t, got.Decode(&settings))
	assert.True(t, settings.AutoFillEnabled)

	require.NoError(t, page.ReadJSON(&got))
	assert.Equal(t, ActionTriggerAutoFill, got.Action)

	select {
	case msg := <-handled:
		var profile store.Profile
		require.NoError(t, msg.Decode(&profile))
		assert.Equal(t, "Budi", profile.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("relayed action did not reach its handler")
	}

	require.NoError(t, client.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestClient_NoEcho(t *testing.T) {
	hub, srv, cancel := startHub(t, nil)
	defer srv.Close()
	defer cancel()
	hub.Relay(ActionUpdateSettings)

	sender := dial(t, srv)
	defer sender.Close()
	other := dial(t, srv)
	defer other.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, sender.WriteJSON(map[string]string{"action": "updateSettings"}))

	other.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Message
	require.NoError(t, other.ReadJSON(&got))
	assert.Equal(t, ActionUpdateSettings, got.Action)

	sender.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := sender.ReadMessage()
	var netErr interface{ Timeout() bool }
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestClient_HubNotRunning(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	client := NewClient(url)
	defer client.Close()

	msg, err := NewMessage(ActionTriggerAutoFill, store.Profile{Name: "Budi"})
	require.NoError(t, err)
	err = client.PostMessage(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

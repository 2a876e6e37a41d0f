package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakePush struct {
	mu     sync.Mutex
	tokens []string
	alerts []string
	err    error
}

func (p *fakePush) Push(_ context.Context, deviceToken, alert string, _ map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = append(p.tokens, deviceToken)
	p.alerts = append(p.alerts, alert)
	return p.err
}

// dialHub registers a live websocket connection for accountID and returns
// the client end
func dialHub(t *testing.T, hub *WSHub, accountID string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		hub.Register(accountID, conn)
		close(registered)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("connection never registered")
	}
	return client
}

func TestRealtimeNotifier_OnlineUsesWebsocket(t *testing.T) {
	store := newMemStore()
	tok := "device"
	a := member("r", "female", testToday.AddDate(-30, 0, 0))
	a.PushToken = &tok
	store.addAccount(a)

	hub := NewWSHub()
	push := &fakePush{}
	n := NewRealtimeNotifier(hub, push, memAccounts{store})
	client := dialHub(t, hub, "r")

	n.Notify(context.Background(), "r", WSMessage{Type: EventLiked, Message: "hi"})

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got WSMessage
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != EventLiked {
		t.Fatalf("type = %q", got.Type)
	}
	if len(push.tokens) != 0 {
		t.Fatal("push must not be used for online accounts")
	}
}

func TestRealtimeNotifier_OfflineFallsBackToPush(t *testing.T) {
	store := newMemStore()
	tok := "device"
	withToken := member("r", "female", testToday.AddDate(-30, 0, 0))
	withToken.PushToken = &tok
	store.addAccount(withToken)
	store.addAccount(member("quiet", "male", testToday.AddDate(-30, 0, 0)))

	push := &fakePush{}
	n := NewRealtimeNotifier(NewWSHub(), push, memAccounts{store})

	n.Notify(context.Background(), "r", WSMessage{Type: EventMessageReceived, Message: "Bob: hi"})
	n.Notify(context.Background(), "quiet", WSMessage{Type: EventMessageReceived, Message: "Bob: hi"})
	n.Notify(context.Background(), "ghost", WSMessage{Type: EventMessageReceived, Message: "Bob: hi"})

	if len(push.tokens) != 1 || push.tokens[0] != "device" || push.alerts[0] != "Bob: hi" {
		t.Fatalf("pushes = %v %v", push.tokens, push.alerts)
	}
}

func TestRealtimeNotifier_PushFailureIsSwallowed(t *testing.T) {
	store := newMemStore()
	tok := "device"
	a := member("r", "female", testToday.AddDate(-30, 0, 0))
	a.PushToken = &tok
	store.addAccount(a)

	n := NewRealtimeNotifier(NewWSHub(), &fakePush{err: errors.New("apns down")}, memAccounts{store})
	n.Notify(context.Background(), "r", WSMessage{Type: EventLiked, Message: "hi"})
}

func TestWSHub_RegisterReplacesAndUnregisterIgnoresStale(t *testing.T) {
	hub := NewWSHub()
	dialHub(t, hub, "u")

	hub.mu.RLock()
	first := hub.connections["u"].conn
	hub.mu.RUnlock()

	dialHub(t, hub, "u")
	hub.Unregister("u", first)
	if !hub.IsOnline("u") {
		t.Fatal("stale unregister must not drop the newer connection")
	}

	hub.Close()
	if hub.IsOnline("u") {
		t.Fatal("Close should drop every connection")
	}
	if err := hub.SendToUser("u", WSMessage{Type: EventPong}); err == nil {
		t.Fatal("expected error for offline account")
	}
}

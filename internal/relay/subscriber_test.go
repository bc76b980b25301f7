package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"nostr-notify/internal/types"
)

// dropServer accepts a websocket connection, forwards the first client
// message to reqs, then hangs up.
func dropServer(t *testing.T, reqs chan<- []byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if reqs != nil {
			select {
			case reqs <- data:
			default:
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHandleMessageDecodesEvent(t *testing.T) {
	var received *types.Event
	s := NewSubscriber("wss://example", nil, func(ctx context.Context, evt *types.Event) {
		received = evt
	})

	evt := types.Event{ID: "ab", Kind: 1059, Content: "cipher", Tags: [][]string{{"p", "cd"}}}
	payload, _ := json.Marshal(evt)
	msg := []byte(`["EVENT","wraps",` + string(payload) + `]`)

	s.handleMessage(context.Background(), msg)
	if received == nil {
		t.Fatal("handler not invoked")
	}
	if received.ID != "ab" || received.Kind != 1059 {
		t.Errorf("decoded event = %+v", received)
	}
}

func TestHandleMessageIgnoresNonEvents(t *testing.T) {
	called := false
	s := NewSubscriber("wss://example", nil, func(ctx context.Context, evt *types.Event) {
		called = true
	})

	for _, msg := range []string{
		`["EOSE","wraps"]`,
		`["NOTICE","slow down"]`,
		`not json`,
		`["EVENT"]`,
	} {
		s.handleMessage(context.Background(), []byte(msg))
	}
	if called {
		t.Error("handler invoked for a non-event message")
	}
}

func TestRunOnceSendsWrapFilter(t *testing.T) {
	reqs := make(chan []byte, 1)
	srv := dropServer(t, reqs)

	s := NewSubscriber(wsURL(srv), []string{"ab", "cd"}, func(context.Context, *types.Event) {})
	if err := s.runOnce(context.Background()); err == nil {
		t.Fatal("expected read error after server hangup")
	}

	var raw []byte
	select {
	case raw = <-reqs:
	case <-time.After(2 * time.Second):
		t.Fatal("no REQ received")
	}

	var msg []json.RawMessage
	if err := json.Unmarshal(raw, &msg); err != nil || len(msg) != 3 {
		t.Fatalf("malformed REQ %s: %v", raw, err)
	}
	var filter types.Filter
	if err := json.Unmarshal(msg[2], &filter); err != nil {
		t.Fatalf("filter did not decode: %v", err)
	}
	if len(filter.Kinds) != 1 || filter.Kinds[0] != 1059 {
		t.Errorf("kinds = %v, want [1059]", filter.Kinds)
	}
	if len(filter.PTags) != 2 || filter.PTags[0] != "ab" {
		t.Errorf("#p = %v, want recipients", filter.PTags)
	}
	if !strings.Contains(string(msg[2]), `"#p"`) {
		t.Errorf("filter lost the #p wire key: %s", msg[2])
	}
}

// A flaky relay must not accumulate one socket-watcher goroutine per
// reconnect; the watcher is scoped to its connection and exits with it.
func TestRunOnceReleasesWatcherGoroutine(t *testing.T) {
	srv := dropServer(t, nil)
	s := NewSubscriber(wsURL(srv), []string{"ab"}, func(context.Context, *types.Event) {})

	ctx := context.Background()
	before := runtime.NumGoroutine()

	for i := 0; i < 3; i++ {
		if err := s.runOnce(ctx); err == nil {
			t.Fatal("expected read error after server hangup")
		}
	}

	after := runtime.NumGoroutine()
	deadline := time.Now().Add(2 * time.Second)
	for after > before && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		after = runtime.NumGoroutine()
	}
	if after > before {
		t.Errorf("goroutines grew across reconnects: %d -> %d", before, after)
	}
}

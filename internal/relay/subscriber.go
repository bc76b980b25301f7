// Package relay is thin transport glue: it subscribes to gift wraps
// addressed to the local identities and feeds them into the fan-out
// consumer. Connectivity concerns stop here; the pipeline never sees them.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"nostr-notify/internal/nostr"
	"nostr-notify/internal/types"
)

const (
	dialTimeout      = 10 * time.Second
	readLimit        = 1 << 20
	reconnectMin     = time.Second
	reconnectMax     = time.Minute
	subscriptionName = "wraps"
)

// Handler receives every wrap event decoded off the wire.
type Handler func(ctx context.Context, evt *types.Event)

// Subscriber maintains one relay connection with reconnect backoff.
type Subscriber struct {
	url        string
	recipients []string
	handler    Handler
}

func NewSubscriber(url string, recipients []string, handler Handler) *Subscriber {
	return &Subscriber{url: url, recipients: recipients, handler: handler}
}

// Run connects and consumes until ctx is done, reconnecting with
// exponential backoff on any failure.
func (s *Subscriber) Run(ctx context.Context) {
	backoff := reconnectMin
	for ctx.Err() == nil {
		if err := s.runOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("relay connection lost", "relay", s.url, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, reconnectMax)
	}
}

func (s *Subscriber) runOnce(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetReadLimit(readLimit)

	// Close the socket when ctx ends so ReadMessage unblocks. The watcher is
	// scoped to this connection so it exits when runOnce returns, rather than
	// piling up one stale goroutine per reconnect.
	connCtx, connCancel := context.WithCancel(ctx)
	defer connCancel()
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	req := types.NostrMessage{"REQ", subscriptionName, types.Filter{
		Kinds: []int{nostr.KindGiftWrap},
		PTags: s.recipients,
	}}
	if err := conn.WriteJSON(req); err != nil {
		return err
	}
	slog.Info("subscribed to wraps", "relay", s.url, "recipients", len(s.recipients))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handleMessage(ctx, data)
	}
}

func (s *Subscriber) handleMessage(ctx context.Context, data []byte) {
	var msg []json.RawMessage
	if err := json.Unmarshal(data, &msg); err != nil || len(msg) < 2 {
		return
	}

	var kind string
	if err := json.Unmarshal(msg[0], &kind); err != nil {
		return
	}
	if kind != "EVENT" || len(msg) < 3 {
		return
	}

	evt, err := nostr.ParseEvent(msg[2])
	if err != nil {
		slog.Debug("dropping undecodable event", "relay", s.url, "error", err)
		return
	}
	s.handler(ctx, evt)
}

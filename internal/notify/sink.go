// Package notify drives the per-identity fan-out: unwrap, store, match,
// and dispatch to the presentation sink exactly once per confirmed match.
package notify

import (
	"context"
	"log/slog"

	"nostr-notify/internal/nostr"
	"nostr-notify/internal/rules"
)

// Notification is the display payload handed to the sink.
type Notification struct {
	Type        rules.Type
	Title       string
	Body        string
	IconRef     string
	Route       string
	IdentityPub string
	EventID     string
}

// Sink is the presentation collaborator. Dispatch is fire-and-forget: the
// pipeline neither retries nor treats sink failures as its own.
type Sink interface {
	Dispatch(ctx context.Context, n Notification)
}

// SlogSink logs dispatches, the daemon default when no platform sink is
// wired.
type SlogSink struct{}

func (SlogSink) Dispatch(ctx context.Context, n Notification) {
	slog.Info("notification",
		"type", string(n.Type),
		"identity", nostr.ShortID(n.IdentityPub),
		"event_id", nostr.ShortID(n.EventID),
		"title", n.Title,
	)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, n Notification)

func (f SinkFunc) Dispatch(ctx context.Context, n Notification) {
	f(ctx, n)
}

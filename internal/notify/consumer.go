package notify

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"nostr-notify/internal/cache"
	"nostr-notify/internal/keys"
	"nostr-notify/internal/nostr"
	"nostr-notify/internal/rules"
	"nostr-notify/internal/store"
	"nostr-notify/internal/types"
	"nostr-notify/internal/unwrap"
)

const defaultMaxParallel = 4

// Consumer fans an inbound gift wrap out to every locally usable identity
// and runs the unwrap -> match -> dispatch pipeline for each independently.
type Consumer struct {
	keyring keys.Keyring
	engine  *unwrap.Engine
	store   store.Store
	cache   cache.Backend
	sink    Sink

	seenTTL     time.Duration
	maxParallel int
	now         func() time.Time
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithClock overrides the consumer's time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Consumer) { c.now = now }
}

// WithMaxParallel bounds how many identity pipelines run concurrently.
func WithMaxParallel(n int) Option {
	return func(c *Consumer) {
		if n > 0 {
			c.maxParallel = n
		}
	}
}

func NewConsumer(keyring keys.Keyring, engine *unwrap.Engine, st store.Store, backend cache.Backend, cfg cache.Config, sink Sink, opts ...Option) *Consumer {
	c := &Consumer{
		keyring:     keyring,
		engine:      engine,
		store:       st,
		cache:       backend,
		sink:        sink,
		seenTTL:     cfg.DispatchSeenTTL,
		maxParallel: defaultMaxParallel,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Consume runs one inbound wrap through every usable identity. Identity
// pipelines are independent: a wrap may match zero, one, or several local
// identities, and one identity's failure never short-circuits the others.
// A ctx deadline abandons not-yet-processed identities without corrupting
// state; the wrap is safe to re-consume later.
func (c *Consumer) Consume(ctx context.Context, wrap *types.Event) error {
	if !nostr.Verify(wrap) {
		wrapsRejected.Add(1)
		slog.Warn("rejected unverifiable wrap", "event_id", nostr.ShortID(wrap.ID))
		return nil
	}
	wrapsConsumed.Add(1)
	c.store.Consume(wrap, true)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxParallel)
	for _, id := range c.keyring.UsableIdentities() {
		id := id
		g.Go(func() error {
			c.consumeForIdentity(gctx, wrap, id)
			return nil
		})
	}
	return g.Wait()
}

func (c *Consumer) consumeForIdentity(ctx context.Context, wrap *types.Event, id *keys.Identity) {
	if ctx.Err() != nil {
		return
	}

	result, err := c.engine.Unwrap(ctx, wrap, id)
	if err != nil {
		slog.Warn("unwrap failed", "event_id", nostr.ShortID(wrap.ID), "identity", nostr.ShortID(id.PubKey), "error", err)
		return
	}
	if result == nil {
		// Not addressed to this identity. The common case.
		slog.Debug("unwrap miss", "event_id", nostr.ShortID(wrap.ID), "identity", nostr.ShortID(id.PubKey))
		return
	}

	c.store.Consume(result.Event, result.AuthorVerified)

	rule, ok := rules.For(result.Event.Kind)
	if !ok {
		unmatchedTotal.Add(1)
		return
	}

	deps := rules.Deps{
		Store: c.store,
		Graph: c.keyring.GraphFor(id.PubKey),
		Now:   c.now,
	}
	match, ok := rule.Matches(result.Event, id, deps)
	if !ok {
		unmatchedTotal.Add(1)
		return
	}
	matchesTotal.Add(1)

	// First writer wins: a match dispatches at most once per identity even
	// when the same wrap arrives from several relays.
	seenKey := "seen:" + match.EventID + ":" + id.PubKey
	wrote, err := c.cache.SetNX(ctx, seenKey, []byte{1}, c.seenTTL)
	if err != nil || !wrote {
		return
	}

	c.dispatch(ctx, c.render(match, id))
}

// dispatch hands a notification to the sink, swallowing sink panics at the
// boundary: presentation failures are not pipeline failures.
func (c *Consumer) dispatch(ctx context.Context, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			sinkFailures.Add(1)
			slog.Warn("sink panic", "type", string(n.Type), "panic", r)
		}
	}()
	c.sink.Dispatch(ctx, n)
	dispatchedTotal.Add(1)
}

// Package unwrap implements the recursive gift-wrap decryption engine:
// Wrap -> Seal -> Rumor, one identity at a time, memoized per
// (wrap id, identity pubkey) so a wrap is decrypted at most once per identity.
package unwrap

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"nostr-notify/internal/cache"
	"nostr-notify/internal/keys"
	"nostr-notify/internal/nostr"
	"nostr-notify/internal/types"
)

// MaxDepth caps layer recursion; a well-formed wrap uses at most two layers,
// anything deeper is a hostile producer.
const MaxDepth = 4

// ErrDepthExceeded is reported when nesting exceeds MaxDepth.
var ErrDepthExceeded = errors.New("unwrap depth exceeded")

// negativeMarker is the cached value for a legitimate decryption miss.
var negativeMarker = []byte{0x00}

// Result is a fully unwrapped terminal event. AuthorVerified is true only
// when the terminal event carried its own valid signature; rumors that came
// out of a seal are advisory and must be corroborated before their claimed
// authorship is treated as authoritative.
type Result struct {
	Event          *types.Event `json:"event"`
	AuthorVerified bool         `json:"author_verified"`
}

// Engine decrypts layered events for one identity at a time, backed by a
// shared concurrent cache keyed by (wrap id, identity pubkey).
type Engine struct {
	cache cache.Backend
	ttl   time.Duration

	decryptions atomic.Int64
}

func NewEngine(backend cache.Backend, cfg cache.Config) *Engine {
	return &Engine{cache: backend, ttl: cfg.UnwrapTTL}
}

// Decryptions returns how many decryption attempts the engine has performed.
func (e *Engine) Decryptions() int64 {
	return e.decryptions.Load()
}

func unwrapKey(wrapID, identityPub string) string {
	return "unwrap:" + wrapID + ":" + identityPub
}

// Unwrap decrypts a wrap for one identity. A nil Result with nil error is
// the expected outcome for every identity that is not the intended
// recipient; the miss is cached so it is never recomputed. Forged or
// malformed wraps are rejected before any decryption and never cached.
func (e *Engine) Unwrap(ctx context.Context, evt *types.Event, id *keys.Identity) (*Result, error) {
	if !nostr.Verify(evt) {
		return nil, nil
	}
	if !id.CanDecrypt() {
		return nil, nil
	}

	key := unwrapKey(evt.ID, id.PubKey)
	if cached, found, err := e.cache.Get(ctx, key); err != nil {
		return nil, err
	} else if found {
		return decodeCached(cached)
	}

	result, err := e.unwrapLayer(evt, id, 0, false)
	if err != nil && !errors.Is(err, ErrDepthExceeded) {
		return nil, err
	}
	if errors.Is(err, ErrDepthExceeded) {
		slog.Warn("unwrap depth exceeded", "event_id", nostr.ShortID(evt.ID))
		result = nil
	}

	encoded := negativeMarker
	if result != nil {
		encoded, err = json.Marshal(result)
		if err != nil {
			return nil, err
		}
	}

	wrote, err := e.cache.SetNX(ctx, key, encoded, e.ttl)
	if err != nil {
		return nil, err
	}
	if !wrote {
		// Lost the insert race; the first writer's value is authoritative.
		if cached, found, err := e.cache.Get(ctx, key); err == nil && found {
			return decodeCached(cached)
		}
	}
	return result, nil
}

// unwrapLayer peels one encryption layer and recurses on nested wraps and
// seals. A wrap layer is only decrypted once verified; a seal's own id and
// signature are not independently verifiable and are skipped (skipVerify),
// which taints the final result as advisory unless the terminal event is
// signed in its own right.
func (e *Engine) unwrapLayer(evt *types.Event, id *keys.Identity, depth int, skipVerify bool) (*Result, error) {
	if depth >= MaxDepth {
		return nil, ErrDepthExceeded
	}
	if depth > 0 && !skipVerify && !nostr.Verify(evt) {
		return nil, nil
	}
	if evt.Content == "" {
		return nil, nil
	}

	e.decryptions.Add(1)
	plaintext, err := id.DecryptNIP44(evt.Content, evt.PubKey)
	if err != nil {
		// Wrong recipient or corrupt ciphertext: expected, non-fatal.
		return nil, nil
	}

	inner, err := nostr.ParseEvent([]byte(plaintext))
	if err != nil {
		return nil, nil
	}

	if nostr.IsWrapper(inner.Kind) {
		// Seals skip verification; a wrap inside a wrap (malformed nesting)
		// still goes through the full gate.
		return e.unwrapLayer(inner, id, depth+1, inner.Kind == nostr.KindSeal)
	}
	return finishTerminal(inner)
}

// finishTerminal validates a decrypted terminal event. Signed events must
// verify; unsigned rumors are accepted but flagged advisory, with their id
// recomputed so they stay addressable in the store.
func finishTerminal(inner *types.Event) (*Result, error) {
	if inner.Sig != "" {
		if !nostr.Verify(inner) {
			return nil, nil
		}
		return &Result{Event: inner, AuthorVerified: true}, nil
	}
	if inner.ID == "" {
		inner.ID = nostr.ComputeEventID(inner)
	}
	return &Result{Event: inner, AuthorVerified: false}, nil
}

func decodeCached(cached []byte) (*Result, error) {
	if len(cached) == 1 && cached[0] == 0x00 {
		return nil, nil
	}
	var result Result
	if err := json.Unmarshal(cached, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

package unwrap

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"nostr-notify/internal/cache"
	"nostr-notify/internal/nostr"
	"nostr-notify/internal/testkit"
	"nostr-notify/internal/types"
)

func newEngine(t *testing.T) (*Engine, *cache.MemoryBackend) {
	t.Helper()
	backend := cache.NewMemoryBackend(time.Minute)
	t.Cleanup(func() { backend.Close() })
	return NewEngine(backend, cache.DefaultConfig()), backend
}

func TestUnwrapChatMessageThroughSeal(t *testing.T) {
	engine, _ := newEngine(t)
	alice := testkit.NewIdentity(t)
	carol := testkit.NewIdentity(t)
	now := time.Now().Unix()

	wrap := testkit.WrapChatMessage(t, carol, alice.PubKey, "hi alice", now)

	result, err := engine.Unwrap(context.Background(), wrap, alice)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if result == nil {
		t.Fatal("expected a terminal event for the intended recipient")
	}
	if result.Event.Kind != nostr.KindChatMessage {
		t.Errorf("kind = %d, want %d", result.Event.Kind, nostr.KindChatMessage)
	}
	if result.Event.Content != "hi alice" {
		t.Errorf("content = %q", result.Event.Content)
	}
	if result.Event.PubKey != carol.PubKey {
		t.Errorf("claimed author = %s, want carol", nostr.ShortID(result.Event.PubKey))
	}
	if result.AuthorVerified {
		t.Error("seal-derived rumor must not be author-verified")
	}
}

func TestUnwrapDirectTerminalShortcut(t *testing.T) {
	// A wrap whose content is directly a signed terminal event, no seal.
	engine, _ := newEngine(t)
	alice := testkit.NewIdentity(t)
	zapper := testkit.NewIdentity(t)
	now := time.Now().Unix()

	receipt := testkit.SignedEvent(t, zapper, nostr.KindZapReceipt, "", [][]string{{"p", alice.PubKey}}, now)
	wrap := testkit.GiftWrap(t, alice.PubKey, receipt, now)

	result, err := engine.Unwrap(context.Background(), wrap, alice)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if result == nil {
		t.Fatal("expected terminal event from single-layer wrap")
	}
	if !result.AuthorVerified {
		t.Error("independently signed terminal event should be author-verified")
	}
	if result.Event.ID != receipt.ID {
		t.Errorf("terminal id = %s, want the receipt", nostr.ShortID(result.Event.ID))
	}
}

func TestUnwrapIdempotent(t *testing.T) {
	engine, _ := newEngine(t)
	alice := testkit.NewIdentity(t)
	carol := testkit.NewIdentity(t)
	wrap := testkit.WrapChatMessage(t, carol, alice.PubKey, "once only", time.Now().Unix())

	first, err := engine.Unwrap(context.Background(), wrap, alice)
	if err != nil || first == nil {
		t.Fatalf("first Unwrap = (%v, %v)", first, err)
	}
	decryptionsAfterFirst := engine.Decryptions()

	second, err := engine.Unwrap(context.Background(), wrap, alice)
	if err != nil || second == nil {
		t.Fatalf("second Unwrap = (%v, %v)", second, err)
	}
	if engine.Decryptions() != decryptionsAfterFirst {
		t.Errorf("second unwrap decrypted again: %d -> %d", decryptionsAfterFirst, engine.Decryptions())
	}

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if string(firstJSON) != string(secondJSON) {
		t.Error("cached result differs from the original")
	}
}

func TestUnwrapNoCrossIdentityLeakage(t *testing.T) {
	engine, backend := newEngine(t)
	alice := testkit.NewIdentity(t)
	bob := testkit.NewIdentity(t)
	carol := testkit.NewIdentity(t)
	wrap := testkit.WrapChatMessage(t, carol, alice.PubKey, "for alice", time.Now().Unix())

	ctx := context.Background()
	if result, _ := engine.Unwrap(ctx, wrap, alice); result == nil {
		t.Fatal("alice should unwrap her own wrap")
	}
	if result, _ := engine.Unwrap(ctx, wrap, bob); result != nil {
		t.Fatal("bob decrypted a wrap addressed to alice")
	}

	// Bob's miss is cached under his own key and stays a miss.
	cached, found, _ := backend.Get(ctx, unwrapKey(wrap.ID, bob.PubKey))
	if !found {
		t.Error("negative result for bob not cached")
	}
	if len(cached) != 1 || cached[0] != 0x00 {
		t.Errorf("bob's cache entry = %v, want negative marker", cached)
	}
}

func TestUnwrapRejectsForgedWrapWithoutCaching(t *testing.T) {
	engine, backend := newEngine(t)
	alice := testkit.NewIdentity(t)
	carol := testkit.NewIdentity(t)
	wrap := testkit.WrapChatMessage(t, carol, alice.PubKey, "forged", time.Now().Unix())
	wrap.Content = wrap.Content + "tampered"

	result, err := engine.Unwrap(context.Background(), wrap, alice)
	if err != nil || result != nil {
		t.Fatalf("Unwrap = (%v, %v), want rejection", result, err)
	}
	if engine.Decryptions() != 0 {
		t.Error("forged wrap was decrypted")
	}
	if _, found, _ := backend.Get(context.Background(), unwrapKey(wrap.ID, alice.PubKey)); found {
		t.Error("forged wrap left a cache entry")
	}
}

func TestUnwrapCachedNegativeIsReturned(t *testing.T) {
	engine, _ := newEngine(t)
	alice := testkit.NewIdentity(t)
	bob := testkit.NewIdentity(t)
	carol := testkit.NewIdentity(t)
	wrap := testkit.WrapChatMessage(t, carol, alice.PubKey, "nope", time.Now().Unix())

	ctx := context.Background()
	engine.Unwrap(ctx, wrap, bob)
	decryptions := engine.Decryptions()

	if result, err := engine.Unwrap(ctx, wrap, bob); result != nil || err != nil {
		t.Fatalf("cached negative came back as (%v, %v)", result, err)
	}
	if engine.Decryptions() != decryptions {
		t.Error("cached negative was recomputed")
	}
}

func TestUnwrapDepthCap(t *testing.T) {
	engine, _ := newEngine(t)
	alice := testkit.NewIdentity(t)
	carol := testkit.NewIdentity(t)
	now := time.Now().Unix()

	inner := testkit.Rumor(carol.PubKey, nostr.KindChatMessage, "deep", [][]string{{"p", alice.PubKey}}, now)
	var wrap *types.Event
	wrapped := inner
	for i := 0; i < MaxDepth+1; i++ {
		wrap = testkit.GiftWrap(t, alice.PubKey, wrapped, now)
		wrapped = wrap
	}

	result, err := engine.Unwrap(context.Background(), wrap, alice)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if result != nil {
		t.Error("pathologically nested wrap produced a result")
	}
}

func TestUnwrapRejectsForgedInnerSignature(t *testing.T) {
	engine, _ := newEngine(t)
	alice := testkit.NewIdentity(t)
	zapper := testkit.NewIdentity(t)
	now := time.Now().Unix()

	receipt := testkit.SignedEvent(t, zapper, nostr.KindZapReceipt, "", [][]string{{"p", alice.PubKey}}, now)
	receipt.Content = "altered after signing"
	wrap := testkit.GiftWrap(t, alice.PubKey, receipt, now)

	result, err := engine.Unwrap(context.Background(), wrap, alice)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if result != nil {
		t.Error("terminal event with an invalid signature was accepted")
	}
}

package rules

import (
	"testing"
	"time"

	"nostr-notify/internal/keys"
	"nostr-notify/internal/nostr"
	"nostr-notify/internal/store"
	"nostr-notify/internal/testkit"
	"nostr-notify/internal/types"
)

type fixture struct {
	identity *keys.Identity
	graph    *keys.MemoryGraph
	store    *store.MemoryStore
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		identity: testkit.NewIdentity(t),
		graph:    keys.NewMemoryGraph(),
		store:    store.NewMemoryStore(),
		now:      time.Now(),
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Store: f.store,
		Graph: f.graph,
		Now:   func() time.Time { return f.now },
	}
}

func TestFreshnessGuard(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name      string
		createdAt int64
		want      bool
	}{
		{"current", now.Unix(), true},
		{"four minutes old", now.Add(-4 * time.Minute).Unix(), true},
		{"ten minutes old", now.Add(-10 * time.Minute).Unix(), false},
		{"one hour old", now.Add(-time.Hour).Unix(), false},
		{"thirty seconds ahead", now.Add(30 * time.Second).Unix(), true},
		{"five minutes ahead", now.Add(5 * time.Minute).Unix(), false},
	}
	for _, tc := range cases {
		if got := fresh(tc.createdAt, now); got != tc.want {
			t.Errorf("%s: fresh = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestChatRuleMatchesKnownRoom(t *testing.T) {
	f := newFixture(t)
	carol := testkit.NewIdentity(t)
	f.graph.AddFollow(carol.PubKey)

	ev := testkit.Rumor(carol.PubKey, nostr.KindChatMessage, "hello",
		[][]string{{"p", f.identity.PubKey}}, f.now.Unix())

	match, ok := ChatRule{}.Matches(ev, f.identity, f.deps())
	if !ok {
		t.Fatal("chat from a followed sender did not match")
	}
	if match.Type != TypeChat || match.SenderPub != carol.PubKey || match.Body != "hello" {
		t.Errorf("unexpected match: %+v", match)
	}
}

func TestChatRuleRejectsUnknownSender(t *testing.T) {
	f := newFixture(t)
	stranger := testkit.NewIdentity(t)

	ev := testkit.Rumor(stranger.PubKey, nostr.KindChatMessage, "hi",
		[][]string{{"p", f.identity.PubKey}}, f.now.Unix())

	if _, ok := (ChatRule{}).Matches(ev, f.identity, f.deps()); ok {
		t.Error("chat from unknown sender matched")
	}
}

func TestChatRuleMatchesPriorParticipation(t *testing.T) {
	f := newFixture(t)
	stranger := testkit.NewIdentity(t)
	f.graph.MarkSentTo(keys.NewRoomKey(stranger.PubKey))

	ev := testkit.Rumor(stranger.PubKey, nostr.KindChatMessage, "hi again",
		[][]string{{"p", f.identity.PubKey}}, f.now.Unix())

	if _, ok := (ChatRule{}).Matches(ev, f.identity, f.deps()); !ok {
		t.Error("chat in a room we previously sent into did not match")
	}
}

func TestChatRuleRejectsStale(t *testing.T) {
	f := newFixture(t)
	carol := testkit.NewIdentity(t)
	f.graph.AddFollow(carol.PubKey)

	ev := testkit.Rumor(carol.PubKey, nostr.KindChatMessage, "old",
		[][]string{{"p", f.identity.PubKey}}, f.now.Add(-10*time.Minute).Unix())

	if _, ok := (ChatRule{}).Matches(ev, f.identity, f.deps()); ok {
		t.Error("stale chat matched despite graph membership")
	}
}

func TestChatRuleRejectsSelf(t *testing.T) {
	f := newFixture(t)
	f.graph.AddFollow(f.identity.PubKey)

	ev := testkit.Rumor(f.identity.PubKey, nostr.KindChatMessage, "echo",
		[][]string{{"p", f.identity.PubKey}}, f.now.Unix())

	if _, ok := (ChatRule{}).Matches(ev, f.identity, f.deps()); ok {
		t.Error("self-authored chat matched")
	}
}

func TestChatRuleRejectsAllHiddenRoom(t *testing.T) {
	f := newFixture(t)
	carol := testkit.NewIdentity(t)
	f.graph.AddFollow(carol.PubKey)
	f.graph.Hide(carol.PubKey)

	ev := testkit.Rumor(carol.PubKey, nostr.KindChatMessage, "muted",
		[][]string{{"p", f.identity.PubKey}}, f.now.Unix())

	if _, ok := (ChatRule{}).Matches(ev, f.identity, f.deps()); ok {
		t.Error("chat from a fully hidden room matched")
	}
}

func TestDMRuleMatchesAndDecrypts(t *testing.T) {
	f := newFixture(t)
	carol := testkit.NewIdentity(t)
	f.graph.AddFollow(carol.PubKey)

	body := testkit.EncryptNIP04(t, carol, f.identity.PubKey, "legacy hello")
	ev := testkit.SignedEvent(t, carol, nostr.KindEncryptedDM, body,
		[][]string{{"p", f.identity.PubKey}}, f.now.Unix())

	match, ok := DMRule{}.Matches(ev, f.identity, f.deps())
	if !ok {
		t.Fatal("DM from followed sender did not match")
	}
	if match.Body != "legacy hello" {
		t.Errorf("decrypted body = %q", match.Body)
	}
}

func TestDMRuleRejectsWrongRecipient(t *testing.T) {
	f := newFixture(t)
	carol := testkit.NewIdentity(t)
	other := testkit.NewIdentity(t)
	f.graph.AddFollow(carol.PubKey)

	body := testkit.EncryptNIP04(t, carol, other.PubKey, "not for us")
	ev := testkit.SignedEvent(t, carol, nostr.KindEncryptedDM, body,
		[][]string{{"p", other.PubKey}}, f.now.Unix())

	if _, ok := (DMRule{}).Matches(ev, f.identity, f.deps()); ok {
		t.Error("DM addressed to someone else matched")
	}
}

func TestDMRuleStalenessBeatsGraph(t *testing.T) {
	f := newFixture(t)
	carol := testkit.NewIdentity(t)
	f.graph.AddFollow(carol.PubKey)

	body := testkit.EncryptNIP04(t, carol, f.identity.PubKey, "old news")
	ev := testkit.SignedEvent(t, carol, nostr.KindEncryptedDM, body,
		[][]string{{"p", f.identity.PubKey}}, f.now.Add(-10*time.Minute).Unix())

	if _, ok := (DMRule{}).Matches(ev, f.identity, f.deps()); ok {
		t.Error("ten minute old DM matched regardless of graph membership")
	}
}

func zapFixture(t *testing.T, f *fixture, amountMsats string) *types.Event {
	t.Helper()
	sender := testkit.NewIdentity(t)

	target := testkit.SignedEvent(t, f.identity, 1, "zapped post\nsecond line", nil, f.now.Add(-time.Hour).Unix())
	f.store.Consume(target, true)

	request := testkit.ZapRequest(t, sender, f.identity.PubKey, target.ID, amountMsats, "great post", f.now.Unix())
	zapper := testkit.NewIdentity(t)
	receipt := testkit.ZapReceipt(t, zapper, request, f.identity.PubKey, target.ID, f.now.Unix())
	f.store.Consume(receipt, true)
	return receipt
}

func TestZapRuleMatchesAtThreshold(t *testing.T) {
	f := newFixture(t)
	receipt := zapFixture(t, f, "10000") // 10 sats

	match, ok := ZapRule{}.Matches(receipt, f.identity, f.deps())
	if !ok {
		t.Fatal("zap at the 10 sat threshold did not match")
	}
	if match.AmountSats != 10 {
		t.Errorf("amount = %d sats, want 10", match.AmountSats)
	}
	if match.TargetExcerpt != "zapped post" {
		t.Errorf("excerpt = %q, want first line only", match.TargetExcerpt)
	}
	if match.Body != "great post" {
		t.Errorf("message = %q", match.Body)
	}
}

func TestZapRuleRejectsBelowThreshold(t *testing.T) {
	f := newFixture(t)
	receipt := zapFixture(t, f, "9000") // 9 sats

	if _, ok := (ZapRule{}).Matches(receipt, f.identity, f.deps()); ok {
		t.Error("9 sat zap matched")
	}
}

func TestZapRuleFailsClosedOnMissingTarget(t *testing.T) {
	f := newFixture(t)
	sender := testkit.NewIdentity(t)
	zapper := testkit.NewIdentity(t)

	request := testkit.ZapRequest(t, sender, f.identity.PubKey, "unresolved-target", "50000", "", f.now.Unix())
	receipt := testkit.ZapReceipt(t, zapper, request, f.identity.PubKey, "unresolved-target", f.now.Unix())
	f.store.Consume(receipt, true)

	if _, ok := (ZapRule{}).Matches(receipt, f.identity, f.deps()); ok {
		t.Error("zap with unresolved target matched")
	}
}

func TestZapRuleRejectsOtherRecipient(t *testing.T) {
	f := newFixture(t)
	other := testkit.NewIdentity(t)
	sender := testkit.NewIdentity(t)
	zapper := testkit.NewIdentity(t)

	target := testkit.SignedEvent(t, other, 1, "someone else's post", nil, f.now.Add(-time.Hour).Unix())
	f.store.Consume(target, true)
	request := testkit.ZapRequest(t, sender, other.PubKey, target.ID, "50000", "", f.now.Unix())
	receipt := testkit.ZapReceipt(t, zapper, request, other.PubKey, target.ID, f.now.Unix())
	f.store.Consume(receipt, true)

	if _, ok := (ZapRule{}).Matches(receipt, f.identity, f.deps()); ok {
		t.Error("zap paying someone else matched")
	}
}

func TestZapRuleRejectsUnsignedRequest(t *testing.T) {
	f := newFixture(t)
	sender := testkit.NewIdentity(t)
	zapper := testkit.NewIdentity(t)

	target := testkit.SignedEvent(t, f.identity, 1, "post", nil, f.now.Add(-time.Hour).Unix())
	f.store.Consume(target, true)
	request := testkit.ZapRequest(t, sender, f.identity.PubKey, target.ID, "50000", "", f.now.Unix())
	request.Sig = "" // strip the signature
	receipt := testkit.ZapReceipt(t, zapper, request, f.identity.PubKey, target.ID, f.now.Unix())
	f.store.Consume(receipt, true)

	if _, ok := (ZapRule{}).Matches(receipt, f.identity, f.deps()); ok {
		t.Error("zap with an unsigned request matched")
	}
}

func TestRegistryCoversNotifiableKinds(t *testing.T) {
	for _, kind := range []int{nostr.KindEncryptedDM, nostr.KindChatMessage, nostr.KindZapReceipt} {
		if _, ok := For(kind); !ok {
			t.Errorf("no rule registered for kind %d", kind)
		}
	}
	if _, ok := For(1); ok {
		t.Error("plain notes must not have a rule")
	}
}

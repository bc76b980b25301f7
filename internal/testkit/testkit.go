// Package testkit builds signed events, seals and gift wraps for tests.
package testkit

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"nostr-notify/internal/keys"
	"nostr-notify/internal/nip44"
	"nostr-notify/internal/nostr"
	"nostr-notify/internal/types"
)

// NewIdentity generates a fresh identity or fails the test.
func NewIdentity(t *testing.T) *keys.Identity {
	t.Helper()
	id, err := keys.Generate()
	if err != nil {
		t.Fatalf("generate identity: %v", err)
	}
	return id
}

// SignedEvent builds and signs an event authored by the given identity.
func SignedEvent(t *testing.T, author *keys.Identity, kind int, content string, tags [][]string, createdAt int64) *types.Event {
	t.Helper()
	if tags == nil {
		tags = [][]string{}
	}
	evt := &types.Event{
		PubKey:    author.PubKey,
		CreatedAt: createdAt,
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}
	if err := nostr.SignEvent(author.PrivateKey(), evt); err != nil {
		t.Fatalf("sign event: %v", err)
	}
	return evt
}

// Rumor builds an unsigned event (id computed, sig empty).
func Rumor(authorPub string, kind int, content string, tags [][]string, createdAt int64) *types.Event {
	if tags == nil {
		tags = [][]string{}
	}
	evt := &types.Event{
		PubKey:    authorPub,
		CreatedAt: createdAt,
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}
	evt.ID = nostr.ComputeEventID(evt)
	return evt
}

// Seal encrypts an inner event into a kind 13 seal signed by the sender.
func Seal(t *testing.T, sender *keys.Identity, recipientPub string, inner *types.Event, createdAt int64) *types.Event {
	t.Helper()
	payload, err := json.Marshal(inner)
	if err != nil {
		t.Fatalf("marshal inner event: %v", err)
	}
	ciphertext, err := sender.EncryptNIP44(string(payload), recipientPub)
	if err != nil {
		t.Fatalf("encrypt seal: %v", err)
	}
	return SignedEvent(t, sender, nostr.KindSeal, ciphertext, [][]string{}, createdAt)
}

// GiftWrap encrypts an inner event into a kind 1059 wrap addressed to the
// recipient, signed by a throwaway key as the protocol requires.
func GiftWrap(t *testing.T, recipientPub string, inner *types.Event, createdAt int64) *types.Event {
	t.Helper()
	wrapKey := NewIdentity(t)
	payload, err := json.Marshal(inner)
	if err != nil {
		t.Fatalf("marshal inner event: %v", err)
	}
	ciphertext, err := wrapKey.EncryptNIP44(string(payload), recipientPub)
	if err != nil {
		t.Fatalf("encrypt wrap: %v", err)
	}
	tags := [][]string{{"p", recipientPub}}
	return SignedEvent(t, wrapKey, nostr.KindGiftWrap, ciphertext, tags, createdAt)
}

// WrapChatMessage builds the full Wrap(Seal(Rumor)) stack for a kind 14
// chat message from sender to recipient.
func WrapChatMessage(t *testing.T, sender *keys.Identity, recipientPub, content string, createdAt int64) *types.Event {
	t.Helper()
	rumor := Rumor(sender.PubKey, nostr.KindChatMessage, content, [][]string{{"p", recipientPub}}, createdAt)
	seal := Seal(t, sender, recipientPub, rumor, createdAt)
	return GiftWrap(t, recipientPub, seal, createdAt)
}

// EncryptNIP04 encrypts a legacy kind 4 body from sender to recipient.
func EncryptNIP04(t *testing.T, sender *keys.Identity, recipientPub, plaintext string) string {
	t.Helper()
	pubBytes, err := hex.DecodeString(recipientPub)
	if err != nil {
		t.Fatalf("decode recipient pubkey: %v", err)
	}
	secret, err := nip44.Nip04SharedSecret(sender.PrivateKey(), pubBytes)
	if err != nil {
		t.Fatalf("nip04 shared secret: %v", err)
	}
	ciphertext, err := nip44.Nip04Encrypt(plaintext, secret)
	if err != nil {
		t.Fatalf("nip04 encrypt: %v", err)
	}
	return ciphertext
}

// ZapRequest builds a signed kind 9734 request declaring the amount in
// millisats.
func ZapRequest(t *testing.T, sender *keys.Identity, recipientPub, targetID, amountMsats, message string, createdAt int64) *types.Event {
	t.Helper()
	tags := [][]string{
		{"p", recipientPub},
		{"e", targetID},
		{"amount", amountMsats},
	}
	return SignedEvent(t, sender, nostr.KindZapRequest, message, tags, createdAt)
}

// ZapReceipt builds a signed kind 9735 receipt embedding the request.
func ZapReceipt(t *testing.T, zapper *keys.Identity, request *types.Event, recipientPub, targetID string, createdAt int64) *types.Event {
	t.Helper()
	description, err := json.Marshal(request)
	if err != nil {
		t.Fatalf("marshal zap request: %v", err)
	}
	tags := [][]string{
		{"p", recipientPub},
		{"e", targetID},
		{"description", string(description)},
	}
	return SignedEvent(t, zapper, nostr.KindZapReceipt, "", tags, createdAt)
}

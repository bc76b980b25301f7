// Package keys holds local identities (keypairs able to decrypt wrapped
// events), the keyring that enumerates them, and the per-identity social
// graph views the match rules read from.
package keys

import (
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"nostr-notify/internal/nip44"
)

// Identity is one locally usable keypair. Only identities holding private
// key material participate in the unwrap fan-out; watch-only identities
// are enumerable but skipped.
type Identity struct {
	PubKey string // x-only hex

	privKey []byte

	mu       sync.Mutex
	convKeys map[string][]byte // NIP-44 conversation key per counterparty
}

// NewIdentity builds an identity from a hex private key.
func NewIdentity(privKeyHex string) (*Identity, error) {
	privKey, err := hex.DecodeString(privKeyHex)
	if err != nil || len(privKey) != 32 {
		return nil, errors.New("invalid private key hex")
	}
	pubKey, err := nip44.GetPublicKey(privKey)
	if err != nil {
		return nil, err
	}
	return &Identity{
		PubKey:   hex.EncodeToString(pubKey),
		privKey:  privKey,
		convKeys: make(map[string][]byte),
	}, nil
}

// Generate creates a fresh random identity.
func Generate() (*Identity, error) {
	privKey, err := nip44.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return NewIdentity(hex.EncodeToString(privKey))
}

// WatchOnly builds an identity without private material. It can never decrypt.
func WatchOnly(pubKeyHex string) *Identity {
	return &Identity{PubKey: pubKeyHex}
}

// CanDecrypt reports whether the identity holds private key material.
func (id *Identity) CanDecrypt() bool {
	return len(id.privKey) == 32
}

// CanSign mirrors CanDecrypt for this implementation; external-signer
// identities would differ.
func (id *Identity) CanSign() bool {
	return id.CanDecrypt()
}

// PrivateKey exposes the raw key for signing helpers. Nil for watch-only.
func (id *Identity) PrivateKey() []byte {
	return id.privKey
}

// conversationKey memoizes the NIP-44 conversation key per counterparty.
func (id *Identity) conversationKey(counterpartyPub string) ([]byte, error) {
	id.mu.Lock()
	defer id.mu.Unlock()

	if key, ok := id.convKeys[counterpartyPub]; ok {
		return key, nil
	}

	pubBytes, err := hex.DecodeString(counterpartyPub)
	if err != nil || len(pubBytes) != 32 {
		return nil, errors.New("invalid counterparty pubkey")
	}
	key, err := nip44.GetConversationKey(id.privKey, pubBytes)
	if err != nil {
		return nil, err
	}
	id.convKeys[counterpartyPub] = key
	return key, nil
}

// Decrypt decrypts a payload addressed to this identity, selecting NIP-04
// or NIP-44 by payload shape. Failure is the expected outcome whenever
// this identity is not the intended recipient.
func (id *Identity) Decrypt(payload, counterpartyPub string) (string, error) {
	if !id.CanDecrypt() {
		return "", errors.New("identity cannot decrypt")
	}
	if strings.Contains(payload, "?iv=") {
		return id.DecryptNIP04(payload, counterpartyPub)
	}
	return id.DecryptNIP44(payload, counterpartyPub)
}

// DecryptNIP44 decrypts a NIP-44 v2 payload from the given counterparty.
func (id *Identity) DecryptNIP44(payload, counterpartyPub string) (string, error) {
	if !id.CanDecrypt() {
		return "", errors.New("identity cannot decrypt")
	}
	key, err := id.conversationKey(counterpartyPub)
	if err != nil {
		return "", err
	}
	return nip44.Decrypt(payload, key)
}

// DecryptNIP04 decrypts a legacy NIP-04 payload from the given counterparty.
func (id *Identity) DecryptNIP04(payload, counterpartyPub string) (string, error) {
	if !id.CanDecrypt() {
		return "", errors.New("identity cannot decrypt")
	}
	pubBytes, err := hex.DecodeString(counterpartyPub)
	if err != nil || len(pubBytes) != 32 {
		return "", errors.New("invalid counterparty pubkey")
	}
	secret, err := nip44.Nip04SharedSecret(id.privKey, pubBytes)
	if err != nil {
		return "", err
	}
	return nip44.Nip04Decrypt(payload, secret)
}

// EncryptNIP44 encrypts a payload for the given counterparty. Used by tests
// and by local rumor construction.
func (id *Identity) EncryptNIP44(plaintext, counterpartyPub string) (string, error) {
	key, err := id.conversationKey(counterpartyPub)
	if err != nil {
		return "", err
	}
	return nip44.Encrypt(plaintext, key)
}

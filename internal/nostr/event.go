// Package nostr implements event serialization, identifier computation and
// Schnorr signature verification for Nostr events, plus tag accessors used
// by the unwrap and matching pipeline.
package nostr

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"nostr-notify/internal/types"
)

// SerializeEvent produces the canonical NIP-01 serialization
// [0, pubkey, created_at, kind, tags, content] used for ID computation.
func SerializeEvent(evt *types.Event) string {
	return fmt.Sprintf(`[0,"%s",%d,%d,%s,%s]`,
		evt.PubKey,
		evt.CreatedAt,
		evt.Kind,
		mustJSON(evt.Tags),
		mustJSON(evt.Content),
	)
}

// ComputeEventID returns the sha256 of the canonical serialization, hex-encoded.
func ComputeEventID(evt *types.Event) string {
	hash := sha256.Sum256([]byte(SerializeEvent(evt)))
	return hex.EncodeToString(hash[:])
}

// ValidateEventSignature verifies the Schnorr signature for a Nostr event
func ValidateEventSignature(evt *types.Event) bool {
	if len(evt.Sig) != 128 || len(evt.PubKey) != 64 {
		return false
	}

	sigBytes, err := hex.DecodeString(evt.Sig)
	if err != nil {
		return false
	}
	pubKeyBytes, err := hex.DecodeString(evt.PubKey)
	if err != nil {
		return false
	}
	idBytes, err := hex.DecodeString(evt.ID)
	if err != nil {
		return false
	}

	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return false
	}
	pubKey, err := schnorr.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false
	}

	return sig.Verify(idBytes, pubKey)
}

// Verify is the gate every event passes before it is trusted, cached or
// matched: the declared ID must equal the recomputed one and the signature
// must verify against it. Returns false on any structural failure and
// never panics. An unsigned rumor never passes.
func Verify(evt *types.Event) bool {
	if evt == nil || evt.ID == "" {
		return false
	}
	if ComputeEventID(evt) != evt.ID {
		return false
	}
	return ValidateEventSignature(evt)
}

// SignEvent fills in ID and Sig for an event authored by the given private key.
// The PubKey field must already be set to the matching x-only key.
func SignEvent(privKeyBytes []byte, evt *types.Event) error {
	if len(privKeyBytes) == 0 {
		return fmt.Errorf("empty private key")
	}
	privKey, _ := btcec.PrivKeyFromBytes(privKeyBytes)
	if privKey == nil {
		return fmt.Errorf("invalid private key")
	}

	evt.ID = ComputeEventID(evt)
	idBytes, err := hex.DecodeString(evt.ID)
	if err != nil {
		return fmt.Errorf("invalid event id hex: %w", err)
	}

	sig, err := schnorr.Sign(privKey, idBytes)
	if err != nil {
		return fmt.Errorf("schnorr sign: %w", err)
	}
	evt.Sig = hex.EncodeToString(sig.Serialize())
	return nil
}

// ParseEvent decodes a JSON event, used for decrypted wrap/seal plaintexts.
func ParseEvent(data []byte) (*types.Event, error) {
	var evt types.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	if evt.Tags == nil {
		evt.Tags = [][]string{}
	}
	return &evt, nil
}

// ShortID truncates ID/pubkey to 12 chars for logging
func ShortID(id string) string {
	if len(id) >= 12 {
		return id[:12]
	}
	return id
}

func mustJSON(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}

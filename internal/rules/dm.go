package rules

import (
	"nostr-notify/internal/keys"
	"nostr-notify/internal/nostr"
	"nostr-notify/internal/types"
)

// DMRule matches NIP-04 direct messages (kind 4). The event must name the
// identity as recipient, and the sender must form a known conversation.
type DMRule struct{}

func (DMRule) Matches(ev *types.Event, id *keys.Identity, deps Deps) (*Match, bool) {
	if !fresh(ev.CreatedAt, deps.now()) {
		return nil, false
	}
	if nostr.RecipientPubKey(ev) != id.PubKey {
		return nil, false
	}
	if ev.PubKey == id.PubKey {
		return nil, false
	}

	room := keys.NewRoomKey(ev.PubKey)
	if !knownRoom(deps.Graph, room) {
		return nil, false
	}

	// Body is for display only; an undecryptable DM addressed to us is
	// dropped rather than surfaced empty.
	body, err := id.Decrypt(ev.Content, ev.PubKey)
	if err != nil {
		return nil, false
	}

	return &Match{
		Type:      TypeDM,
		EventID:   ev.ID,
		SenderPub: ev.PubKey,
		Body:      body,
		Room:      room,
	}, true
}

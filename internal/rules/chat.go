package rules

import (
	"nostr-notify/internal/keys"
	"nostr-notify/internal/nostr"
	"nostr-notify/internal/types"
)

// ChatRule matches NIP-17 chat rumors (kind 14). These arrive only through
// a seal, so the claimed author is advisory; the rule still refuses
// self-notifications and requires a known room.
type ChatRule struct{}

func (ChatRule) Matches(ev *types.Event, id *keys.Identity, deps Deps) (*Match, bool) {
	if !fresh(ev.CreatedAt, deps.now()) {
		return nil, false
	}
	if ev.PubKey == id.PubKey {
		return nil, false
	}

	room := roomFor(ev, id.PubKey)
	if !knownRoom(deps.Graph, room) {
		return nil, false
	}

	return &Match{
		Type:      TypeChat,
		EventID:   ev.ID,
		SenderPub: ev.PubKey,
		Body:      ev.Content,
		Room:      room,
	}, true
}

// roomFor derives the chat room key: every tagged participant plus the
// author, minus the identity itself.
func roomFor(ev *types.Event, selfPub string) keys.RoomKey {
	participants := append(nostr.TaggedPubKeys(ev), ev.PubKey)
	others := participants[:0]
	for _, p := range participants {
		if p != selfPub {
			others = append(others, p)
		}
	}
	return keys.NewRoomKey(others...)
}

// Package rules decides, per terminal event kind, whether an unwrapped
// event is relevant enough to notify a given identity. Rules read only the
// identity's social graph and the event store; they never mutate state.
package rules

import (
	"time"

	"nostr-notify/internal/keys"
	"nostr-notify/internal/nostr"
	"nostr-notify/internal/store"
	"nostr-notify/internal/types"
)

// Type tags the class of a confirmed match.
type Type string

const (
	TypeDM   Type = "dm"
	TypeChat Type = "chat"
	TypeZap  Type = "zap"
)

// Match carries the raw display data of a confirmed match; the dispatcher
// turns it into notification text.
type Match struct {
	Type      Type
	EventID   string
	SenderPub string // advisory for seal-derived events
	Body      string
	Room      keys.RoomKey

	// Zap only.
	AmountSats    int64
	TargetExcerpt string
}

// Deps are the external reads a rule is allowed.
type Deps struct {
	Store store.Store
	Graph keys.SocialGraph
	Now   func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Rule reports whether a terminal event matches for an identity.
type Rule interface {
	Matches(ev *types.Event, id *keys.Identity, deps Deps) (*Match, bool)
}

// Registry maps terminal event kinds to their rule. Kinds absent here
// never notify.
var Registry = map[int]Rule{
	nostr.KindEncryptedDM: DMRule{},
	nostr.KindChatMessage: ChatRule{},
	nostr.KindZapReceipt:  ZapRule{},
}

// For returns the rule for a kind, if any.
func For(kind int) (Rule, bool) {
	rule, ok := Registry[kind]
	return rule, ok
}

// knownRoom is the shared graph-membership test: the counterparties
// intersect the follow set, or the identity has previously sent into the
// room, and the room is not fully composed of hidden users.
func knownRoom(g keys.SocialGraph, room keys.RoomKey) bool {
	users := room.Users()
	if len(users) == 0 {
		return false
	}
	known := keys.SendersIntersectFollows(g, users) || g.HasSentTo(room)
	return known && !keys.AllHidden(g, users)
}

package keys

import (
	"sort"
	"strings"
	"sync"
)

// RoomKey identifies a private conversation by its counterparty set.
// Construction is order-insensitive so the same participants always
// produce the same key.
type RoomKey string

// NewRoomKey builds a RoomKey from the counterparty pubkeys, deduplicated
// and sorted.
func NewRoomKey(pubkeys ...string) RoomKey {
	seen := make(map[string]struct{}, len(pubkeys))
	unique := make([]string, 0, len(pubkeys))
	for _, pk := range pubkeys {
		if pk == "" {
			continue
		}
		if _, ok := seen[pk]; ok {
			continue
		}
		seen[pk] = struct{}{}
		unique = append(unique, pk)
	}
	sort.Strings(unique)
	return RoomKey(strings.Join(unique, ","))
}

// Users returns the participant pubkeys of the room.
func (r RoomKey) Users() []string {
	if r == "" {
		return nil
	}
	return strings.Split(string(r), ",")
}

// SocialGraph is a read-only view of one identity's relationships, provided
// by the external identity store.
type SocialGraph interface {
	// Follows reports whether the identity follows the given pubkey.
	Follows(pubkey string) bool
	// HasSentTo reports whether the identity previously sent a message
	// into the given room.
	HasSentTo(room RoomKey) bool
	// IsHidden reports whether the identity has hidden or muted the pubkey.
	IsHidden(pubkey string) bool
}

// AllHidden reports whether every user in the set is hidden for the graph.
// An empty set is not considered hidden.
func AllHidden(g SocialGraph, users []string) bool {
	if len(users) == 0 {
		return false
	}
	for _, u := range users {
		if !g.IsHidden(u) {
			return false
		}
	}
	return true
}

// SendersIntersectFollows reports whether any of the given senders is in
// the identity's follow set.
func SendersIntersectFollows(g SocialGraph, senders []string) bool {
	for _, s := range senders {
		if g.Follows(s) {
			return true
		}
	}
	return false
}

// MemoryGraph is an in-memory SocialGraph used by tests and by the daemon
// when graphs are loaded from configuration.
type MemoryGraph struct {
	mu      sync.RWMutex
	follows map[string]struct{}
	hidden  map[string]struct{}
	sentTo  map[RoomKey]struct{}
}

func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		follows: make(map[string]struct{}),
		hidden:  make(map[string]struct{}),
		sentTo:  make(map[RoomKey]struct{}),
	}
}

func (g *MemoryGraph) Follows(pubkey string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.follows[pubkey]
	return ok
}

func (g *MemoryGraph) HasSentTo(room RoomKey) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.sentTo[room]
	return ok
}

func (g *MemoryGraph) IsHidden(pubkey string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.hidden[pubkey]
	return ok
}

func (g *MemoryGraph) AddFollow(pubkey string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.follows[pubkey] = struct{}{}
}

func (g *MemoryGraph) MarkSentTo(room RoomKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sentTo[room] = struct{}{}
}

func (g *MemoryGraph) Hide(pubkey string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hidden[pubkey] = struct{}{}
}

package keys

import "sync"

// Keyring enumerates the locally usable identities and exposes each
// identity's social graph. It stands in for the on-device encrypted key
// storage; the pipeline only reads from it.
type Keyring interface {
	// UsableIdentities returns identities able to decrypt, independent of
	// which one is the active session. The slice is a snapshot; callers
	// must not mutate it.
	UsableIdentities() []*Identity
	// GraphFor returns the social graph view for an identity's pubkey.
	GraphFor(pubkey string) SocialGraph
}

// MemoryKeyring is an in-memory Keyring for tests and config-driven wiring.
type MemoryKeyring struct {
	mu     sync.RWMutex
	ids    []*Identity
	graphs map[string]*MemoryGraph
}

func NewMemoryKeyring() *MemoryKeyring {
	return &MemoryKeyring{graphs: make(map[string]*MemoryGraph)}
}

// Add registers an identity and returns its mutable graph.
func (k *MemoryKeyring) Add(id *Identity) *MemoryGraph {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ids = append(k.ids, id)
	g := NewMemoryGraph()
	k.graphs[id.PubKey] = g
	return g
}

func (k *MemoryKeyring) UsableIdentities() []*Identity {
	k.mu.RLock()
	defer k.mu.RUnlock()
	usable := make([]*Identity, 0, len(k.ids))
	for _, id := range k.ids {
		if id.CanDecrypt() {
			usable = append(usable, id)
		}
	}
	return usable
}

func (k *MemoryKeyring) GraphFor(pubkey string) SocialGraph {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if g, ok := k.graphs[pubkey]; ok {
		return g
	}
	return NewMemoryGraph()
}

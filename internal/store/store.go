// Package store defines the external event/profile store the pipeline
// collaborates with (get-or-create semantics, resolve-if-present) and an
// in-memory implementation used by tests and the daemon.
package store

import (
	"sync"

	"nostr-notify/internal/types"
)

// StoredEvent is an addressable slot in the store. Event is nil until the
// event body is known. AuthorVerified is false for seal outputs, whose
// claimed authorship is advisory only; match rules re-check such events
// against corroborating signed data before trusting them.
type StoredEvent struct {
	ID             string
	Event          *types.Event
	AuthorVerified bool
}

// Store is the persistent event/profile cache collaborator.
type Store interface {
	// Consume inserts an event body, recording whether its authorship was
	// independently signature-verified. Insertion is idempotent.
	Consume(evt *types.Event, authorVerified bool)
	// GetOrCreateEvent returns the slot for an id, creating an empty one.
	GetOrCreateEvent(id string) *StoredEvent
	// GetOrCreateProfile returns the profile for a pubkey, creating an
	// empty one.
	GetOrCreateProfile(pubkey string) *types.ProfileInfo
	// ResolveIfPresent returns the event body only if already known.
	ResolveIfPresent(id string) (*types.Event, bool)
}

// MemoryStore implements Store with plain maps under an RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	events   map[string]*StoredEvent
	profiles map[string]*types.ProfileInfo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:   make(map[string]*StoredEvent),
		profiles: make(map[string]*types.ProfileInfo),
	}
}

func (s *MemoryStore) Consume(evt *types.Event, authorVerified bool) {
	if evt == nil || evt.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.events[evt.ID]
	if !ok {
		slot = &StoredEvent{ID: evt.ID}
		s.events[evt.ID] = slot
	}
	if slot.Event == nil {
		slot.Event = evt
		slot.AuthorVerified = authorVerified
	}
}

func (s *MemoryStore) GetOrCreateEvent(id string) *StoredEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.events[id]
	if !ok {
		slot = &StoredEvent{ID: id}
		s.events[id] = slot
	}
	return slot
}

func (s *MemoryStore) GetOrCreateProfile(pubkey string) *types.ProfileInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[pubkey]
	if !ok {
		profile = &types.ProfileInfo{}
		s.profiles[pubkey] = profile
	}
	return profile
}

// SetProfile replaces a profile, used when metadata events arrive.
func (s *MemoryStore) SetProfile(pubkey string, profile *types.ProfileInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[pubkey] = profile
}

func (s *MemoryStore) ResolveIfPresent(id string) (*types.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.events[id]
	if !ok || slot.Event == nil {
		return nil, false
	}
	return slot.Event, true
}

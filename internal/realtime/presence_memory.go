package realtime

import (
	"context"
	"sync"
)

// MemoryPresenceStore keeps membership in process memory.
type MemoryPresenceStore struct {
	mu    sync.Mutex
	rooms map[string]map[string][]Meta
}

func NewMemoryPresenceStore() *MemoryPresenceStore {
	return &MemoryPresenceStore{rooms: make(map[string]map[string][]Meta)}
}

func (s *MemoryPresenceStore) Join(ctx context.Context, room, key string, meta Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room]; !ok {
		s.rooms[room] = make(map[string][]Meta)
	}
	s.rooms[room][key] = append(s.rooms[room][key], meta)
	return nil
}

func (s *MemoryPresenceStore) Leave(ctx context.Context, room, key, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, ok := s.rooms[room]
	if !ok {
		return nil
	}
	metas := keys[key]
	for i, m := range metas {
		if m.Ref == ref {
			metas = append(metas[:i], metas[i+1:]...)
			break
		}
	}
	if len(metas) == 0 {
		delete(keys, key)
	} else {
		keys[key] = metas
	}
	if len(keys) == 0 {
		delete(s.rooms, room)
	}
	return nil
}

// Refresh is a no-op; memory entries live until they leave.
func (s *MemoryPresenceStore) Refresh(ctx context.Context, room, key string, meta Meta) error {
	return nil
}

func (s *MemoryPresenceStore) State(ctx context.Context, room string) (map[string][]Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := make(map[string][]Meta, len(s.rooms[room]))
	for key, metas := range s.rooms[room] {
		state[key] = append([]Meta(nil), metas...)
	}
	return state, nil
}

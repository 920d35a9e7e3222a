package bulk

import (
	"sync"

	"github.com/google/uuid"
)

// Selection is the caller-held set of appointment ids picked for a batch
// operation. The processor snapshots and clears it before the first store
// call, so a slow operation can never read ids from a list that has been
// refreshed underneath it.
type Selection struct {
	mu  sync.Mutex
	ids map[uuid.UUID]struct{}
}

func NewSelection(ids ...uuid.UUID) *Selection {
	s := &Selection{ids: make(map[uuid.UUID]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s *Selection) Add(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

func (s *Selection) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

func (s *Selection) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Snapshot copies the current ids into an immutable slice.
func (s *Selection) Snapshot() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]uuid.UUID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[uuid.UUID]struct{})
}

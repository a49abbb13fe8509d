package store

import (
	"context"
	"sort"
	"sync"

	"startingline/internal/participant/models"
	id "startingline/pkg/domain"
	"startingline/pkg/platform/tx"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	byKey map[models.Key]*models.SavedParticipant
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{byKey: make(map[models.Key]*models.SavedParticipant)}
}

// InsertIfAbsent stores p unless a row with the same key exists. It returns
// the row on record and whether this call created it.
func (s *InMemoryStore) InsertIfAbsent(ctx context.Context, p *models.SavedParticipant) (*models.SavedParticipant, bool, error) {
	key := p.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byKey[key]; ok {
		found := *existing
		return &found, false, nil
	}
	stored := *p
	s.byKey[key] = &stored
	tx.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.byKey, key)
	})

	created := stored
	return &created, true, nil
}

func (s *InMemoryStore) ListByProfile(_ context.Context, profileID id.ProfileID) ([]*models.SavedParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.SavedParticipant
	for key, p := range s.byKey {
		if key.ProfileID == profileID {
			found := *p
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Re-Local/Backend/models"
)

// MemoryStore keeps plays in process. It has the same merge-on-write
// semantics as PostgresStore and is used for dry runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	plays  map[string]models.Play
	order  []string
	nextID int64
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plays: make(map[string]models.Play), now: time.Now}
}

func (m *MemoryStore) Upsert(_ context.Context, p models.Play) error {
	if p.DetailURL == "" {
		return errors.New("memory: upsert: empty detail url")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if p.Location.Lat == nil || p.Location.Lng == nil {
		p.Location.Lat, p.Location.Lng = nil, nil
	}

	now := m.now()
	p.UpdatedAt = now
	existing, ok := m.plays[p.DetailURL]
	if !ok {
		m.nextID++
		p.ID = m.nextID
		p.CreatedAt = now
		m.plays[p.DetailURL] = p
		m.order = append(m.order, p.DetailURL)
		return nil
	}

	merged := models.MergePlay(existing, p)
	merged.ID = existing.ID
	m.plays[p.DetailURL] = merged
	return nil
}

func (m *MemoryStore) FindByURL(_ context.Context, detailURL string) (*models.Play, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plays[detailURL]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) FetchAll(_ context.Context) ([]models.Play, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plays := make([]models.Play, 0, len(m.order))
	for _, u := range m.order {
		plays = append(plays, m.plays[u])
	}
	return plays, nil
}

func (m *MemoryStore) Search(_ context.Context, query string, limit int) ([]models.Play, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	plays := []models.Play{}
	if needle == "" || limit <= 0 {
		return plays, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.order {
		p := m.plays[u]
		for _, field := range []string{p.Title, p.Category, p.Location.VenueName, p.Location.Address} {
			if strings.Contains(strings.ToLower(field), needle) {
				plays = append(plays, p)
				break
			}
		}
		if len(plays) == limit {
			break
		}
	}
	return plays, nil
}

func (m *MemoryStore) Close() error { return nil }

package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/domain"
)

// memrepo is an in-memory repository used when STORE_DRIVER=memory and in tests.
type memrepo struct {
	mu sync.RWMutex

	nextID   int64
	sessions map[int64]*domain.Session

	now func() time.Time
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() Repository {
	return &memrepo{
		sessions: make(map[int64]*domain.Session),
		now:      time.Now,
	}
}

func (m *memrepo) Create(ctx context.Context, whitePlayer, blackPlayer int64) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := m.now().UTC()
	s := NewSession(whitePlayer, blackPlayer, now)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	s.ID = m.nextID
	created := now
	updated := now
	s.Created = &created
	s.Updated = &updated
	m.sessions[s.ID] = s
	return s.Clone(), nil
}

func (m *memrepo) List(ctx context.Context, limit int) ([]*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = NormalizeLimit(limit)

	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int64, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*domain.Session, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.sessions[id].Clone())
	}
	return out, nil
}

func (m *memrepo) FindByID(ctx context.Context, id int64) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (m *memrepo) ConditionalUpdate(ctx context.Context, upd Update) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[upd.ID]
	if !ok || s.Version != upd.ExpectedVersion {
		return 0, nil
	}
	updated := m.now().UTC()
	s.State = upd.State
	s.FEN = upd.FEN
	s.PGN = upd.PGN
	s.Version++
	s.Updated = &updated
	return 1, nil
}

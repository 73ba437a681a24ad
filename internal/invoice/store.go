package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound indicates the invoice does not exist or has another kind.
	ErrNotFound = errors.New("invoice not found")
	// ErrItemNotFound indicates the line item id is not on the invoice.
	ErrItemNotFound = errors.New("line item not found")
	// ErrInvalidInput wraps validation failures raised by the service.
	ErrInvalidInput = errors.New("invalid input")
)

// Record is the persisted snapshot of one invoice.
type Record struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Number    string          `json:"number"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store persists whole invoice snapshots.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, kind Kind, limit, offset int) ([]Record, int, error)
}

// MemoryStore keeps snapshots in process. It backs STORE=memory and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]Record
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record)}
}

func (m *MemoryStore) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.recs[rec.ID]; ok {
		rec.CreatedAt = existing.CreatedAt
	}
	rec.Payload = append(json.RawMessage(nil), rec.Payload...)
	m.recs[rec.ID] = rec
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[id]; !ok {
		return ErrNotFound
	}
	delete(m.recs, id)
	return nil
}

func (m *MemoryStore) List(_ context.Context, kind Kind, limit, offset int) ([]Record, int, error) {
	m.mu.RLock()
	matched := make([]Record, 0, len(m.recs))
	for _, rec := range m.recs {
		if rec.Kind == kind {
			matched = append(matched, rec)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Record{}, total, nil
	}
	end := total
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

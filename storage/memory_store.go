package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"repairer-discovery/models"
)

// ErrStoreClosed is returned by a MemoryStore after Close.
var ErrStoreClosed = errors.New("store closed")

// MemoryStore is an in-process SuggestionStore used for dry runs and tests.
// It is safe for concurrent use.
type MemoryStore struct {
	mu          sync.Mutex
	suggestions map[string]*models.Suggestion
	registry    []models.RegistryRecord
	closed      bool

	// FailRegistryInsert, when set, makes the registry insert of an approval fail.
	FailRegistryInsert error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{suggestions: make(map[string]*models.Suggestion)}
}

func (m *MemoryStore) InsertSuggestions(_ context.Context, batch []*models.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return persistence("insert suggestions", ErrStoreClosed)
	}
	for _, s := range batch {
		m.suggestions[s.ID] = cloneSuggestion(s)
	}
	return nil
}

func (m *MemoryStore) ListSuggestions(_ context.Context, status models.SuggestionStatus) ([]*models.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, persistence("list suggestions", ErrStoreClosed)
	}
	out := make([]*models.Suggestion, 0, len(m.suggestions))
	for _, s := range m.suggestions {
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, cloneSuggestion(s))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) GetSuggestion(_ context.Context, id string) (*models.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suggestions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSuggestion(s), nil
}

func (m *MemoryStore) ApproveSuggestion(_ context.Context, id string, rec *models.RegistryRecord, d Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.pending(id)
	if err != nil {
		return err
	}
	if m.FailRegistryInsert != nil {
		return persistence("insert registry record", m.FailRegistryInsert)
	}
	m.registry = append(m.registry, cloneRecord(*rec))
	at := d.ReviewedAt
	s.Status = models.StatusApproved
	s.ReviewedAt = &at
	s.ReviewedBy = d.ReviewedBy
	return nil
}

func (m *MemoryStore) RejectSuggestion(_ context.Context, id string, d Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.pending(id)
	if err != nil {
		return err
	}
	at := d.ReviewedAt
	s.Status = models.StatusRejected
	s.ReviewedAt = &at
	s.ReviewedBy = d.ReviewedBy
	s.RejectionReason = d.RejectionReason
	return nil
}

// pending must be called with mu held.
func (m *MemoryStore) pending(id string) (*models.Suggestion, error) {
	if m.closed {
		return nil, persistence("update suggestion", ErrStoreClosed)
	}
	s, ok := m.suggestions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Status != models.StatusPending {
		return nil, ErrNotPending
	}
	return s, nil
}

// Registry returns a copy of the registry records inserted so far.
func (m *MemoryStore) Registry() []models.RegistryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.RegistryRecord, len(m.registry))
	for i, r := range m.registry {
		out[i] = cloneRecord(r)
	}
	return out
}

// cloneSuggestion copies s so no slice or pointer is shared with the store.
func cloneSuggestion(s *models.Suggestion) *models.Suggestion {
	cp := *s
	cp.ScrapedData.Services = cloneStrings(s.ScrapedData.Services)
	cp.ScrapedData.Specialties = cloneStrings(s.ScrapedData.Specialties)
	if s.ReviewedAt != nil {
		at := *s.ReviewedAt
		cp.ReviewedAt = &at
	}
	return &cp
}

func cloneRecord(r models.RegistryRecord) models.RegistryRecord {
	r.Services = cloneStrings(r.Services)
	r.Specialties = cloneStrings(r.Specialties)
	return r
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return persistence("ping", ErrStoreClosed)
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

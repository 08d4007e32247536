package storage

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"sync"
)

// MemoryStorage is an in-process vector store using brute-force cosine similarity.
type MemoryStorage struct {
	mu      sync.RWMutex
	indexes map[string]*memIndex
}

type memIndex struct {
	dimension  int
	namespaces map[string]map[string]Record
}

// NewMemoryStorage creates an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{indexes: make(map[string]*memIndex)}
}

func (s *MemoryStorage) ListIndexes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.indexes)), nil
}

func (s *MemoryStorage) DescribeIndex(_ context.Context, name string) (IndexDescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[name]
	if !ok {
		return IndexDescription{}, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	return IndexDescription{Name: name, Dimension: idx.dimension}, nil
}

func (s *MemoryStorage) CreateIndex(_ context.Context, spec IndexSpec) error {
	if spec.Dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", spec.Dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[spec.Name]; ok {
		return fmt.Errorf("index %s already exists", spec.Name)
	}
	s.indexes[spec.Name] = &memIndex{
		dimension:  spec.Dimension,
		namespaces: make(map[string]map[string]Record),
	}
	return nil
}

func (s *MemoryStorage) DeleteNamespace(_ context.Context, index, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.index(index)
	if err != nil {
		return err
	}
	if len(idx.namespaces[namespace]) == 0 {
		return fmt.Errorf("%w: %s", ErrNamespaceNotFound, namespace)
	}
	delete(idx.namespaces, namespace)
	return nil
}

func (s *MemoryStorage) Upsert(_ context.Context, index, namespace string, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.index(index)
	if err != nil {
		return err
	}
	for _, r := range records {
		if len(r.Values) != idx.dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, index has %d",
				ErrDimensionMismatch, r.ID, len(r.Values), idx.dimension)
		}
	}

	ns := idx.namespaces[namespace]
	if ns == nil {
		ns = make(map[string]Record)
		idx.namespaces[namespace] = ns
	}
	for _, r := range records {
		ns[r.ID] = Record{
			ID:       r.ID,
			Values:   slices.Clone(r.Values),
			Metadata: maps.Clone(r.Metadata),
		}
	}
	return nil
}

func (s *MemoryStorage) Query(_ context.Context, index, namespace string, vector []float32, topK int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, err := s.index(index)
	if err != nil {
		return nil, err
	}
	if len(vector) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			ErrDimensionMismatch, len(vector), idx.dimension)
	}

	records := idx.namespaces[namespace]
	matches := make([]Match, 0, len(records))
	for _, r := range records {
		matches = append(matches, Match{
			ID:       r.ID,
			Score:    cosine(vector, r.Values),
			Metadata: maps.Clone(r.Metadata),
		})
	}

	// Ties are broken by id so results are deterministic.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *MemoryStorage) Count(_ context.Context, index, namespace string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, err := s.index(index)
	if err != nil {
		return 0, err
	}
	return len(idx.namespaces[namespace]), nil
}

// Health always succeeds.
func (s *MemoryStorage) Health(_ context.Context) error { return nil }

// index must be called with s.mu held.
func (s *MemoryStorage) index(name string) (*memIndex, error) {
	idx, ok := s.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	return idx, nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

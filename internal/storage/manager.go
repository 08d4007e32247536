package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// Backend is a vector database holding named indexes split into namespaces.
type Backend interface {
	ListIndexes(ctx context.Context) ([]string, error)
	// DescribeIndex returns ErrIndexNotFound for unknown names.
	DescribeIndex(ctx context.Context, name string) (IndexDescription, error)
	CreateIndex(ctx context.Context, spec IndexSpec) error
	// DeleteNamespace returns ErrNamespaceNotFound when the namespace holds no records.
	DeleteNamespace(ctx context.Context, index, namespace string) error
	Upsert(ctx context.Context, index, namespace string, records []Record) error
	Query(ctx context.Context, index, namespace string, vector []float32, topK int) ([]Match, error)
	Count(ctx context.Context, index, namespace string) (int, error)
}

// HealthChecker is implemented by backends that can report liveness.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ManagerConfig configures an IndexManager.
type ManagerConfig struct {
	Cloud     string
	Region    string
	MinScore  float32 // matches below are dropped; 0 keeps everything
	BatchSize int     // records per upsert call, DefaultUpsertBatchSize when 0
	Logger    *slog.Logger
}

// IndexManager resolves indexes and applies namespace-level operations on a Backend.
type IndexManager struct {
	backend   Backend
	cloud     string
	region    string
	minScore  float32
	batchSize int
	logger    *slog.Logger
}

// NewIndexManager creates a manager over backend.
func NewIndexManager(backend Backend, cfg ManagerConfig) *IndexManager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultUpsertBatchSize
	}
	return &IndexManager{
		backend:   backend,
		cloud:     cfg.Cloud,
		region:    cfg.Region,
		minScore:  cfg.MinScore,
		batchSize: batchSize,
		logger:    logger,
	}
}

// EnsureIndex resolves the index for dimension, creating it when needed, and
// verifies that the resolved index really has that dimension.
func (m *IndexManager) EnsureIndex(ctx context.Context, base string, dimension int) (Index, error) {
	if dimension <= 0 {
		return Index{}, fmt.Errorf("%w: invalid dimension %d", ErrDimensionMismatch, dimension)
	}

	names, err := m.backend.ListIndexes(ctx)
	if err != nil {
		return Index{}, fmt.Errorf("list indexes: %w", err)
	}

	var existing []IndexDescription
	for _, name := range []string{base, SuffixedName(base, dimension)} {
		if !slices.Contains(names, name) {
			continue
		}
		desc, err := m.backend.DescribeIndex(ctx, name)
		if err != nil {
			return Index{}, fmt.Errorf("describe index %s: %w", name, err)
		}
		existing = append(existing, desc)
	}

	res := ResolveIndexName(base, dimension, existing)
	m.logger.Debug("resolved index", "base", base, "index", res.Name, "create", res.Create, "reason", res.Reason)

	if res.Create {
		m.logger.Info("creating index",
			"index", res.Name,
			"dimension", dimension,
			"cloud", m.cloud,
			"region", m.region,
		)
		err := m.backend.CreateIndex(ctx, IndexSpec{
			Name:      res.Name,
			Dimension: dimension,
			Metric:    MetricCosine,
			Cloud:     m.cloud,
			Region:    m.region,
		})
		if err != nil {
			return Index{}, fmt.Errorf("create index %s: %w", res.Name, err)
		}
	}

	desc, err := m.backend.DescribeIndex(ctx, res.Name)
	if err != nil {
		return Index{}, fmt.Errorf("describe index %s: %w", res.Name, err)
	}
	if desc.Dimension != 0 && desc.Dimension != dimension {
		return Index{}, fmt.Errorf("%w: index %s has dimension %d, embeddings have %d",
			ErrDimensionMismatch, res.Name, desc.Dimension, dimension)
	}

	return Index{Name: res.Name, Dimension: dimension}, nil
}

// ReplaceNamespace removes every record in namespace. A namespace that does
// not exist yet is not an error.
func (m *IndexManager) ReplaceNamespace(ctx context.Context, idx Index, namespace string) error {
	err := m.backend.DeleteNamespace(ctx, idx.Name, namespace)
	if errors.Is(err, ErrNamespaceNotFound) {
		m.logger.Debug("namespace empty, nothing to delete", "index", idx.Name, "namespace", namespace)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete namespace %s: %w", namespace, err)
	}
	return nil
}

// Upsert writes records in batches. Duplicate ids within the call and
// vectors of the wrong length are rejected before anything is written.
func (m *IndexManager) Upsert(ctx context.Context, idx Index, namespace string, records []Record) error {
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateRecordID, r.ID)
		}
		seen[r.ID] = struct{}{}
		if len(r.Values) != idx.Dimension {
			return fmt.Errorf("%w: record %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(r.Values), idx.Dimension)
		}
	}

	for i := 0; i < len(records); i += m.batchSize {
		end := min(i+m.batchSize, len(records))
		if err := m.backend.Upsert(ctx, idx.Name, namespace, records[i:end]); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// Query returns up to topK matches from namespace, best first.
func (m *IndexManager) Query(ctx context.Context, idx Index, namespace string, vector []float32, topK int) ([]Match, error) {
	if len(vector) != idx.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), idx.Dimension)
	}
	if topK <= 0 {
		return nil, nil
	}

	matches, err := m.backend.Query(ctx, idx.Name, namespace, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("query %s/%s: %w", idx.Name, namespace, err)
	}

	if m.minScore > 0 {
		matches = slices.DeleteFunc(matches, func(match Match) bool {
			return match.Score < m.minScore
		})
	}
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count returns the number of records in namespace.
func (m *IndexManager) Count(ctx context.Context, idx Index, namespace string) (int, error) {
	n, err := m.backend.Count(ctx, idx.Name, namespace)
	if err != nil {
		return 0, fmt.Errorf("count %s/%s: %w", idx.Name, namespace, err)
	}
	return n, nil
}

// Health reports backend liveness when the backend supports it.
func (m *IndexManager) Health(ctx context.Context) error {
	if hc, ok := m.backend.(HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}

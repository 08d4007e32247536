package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// vectorName is the named vector every collection is created with.
	vectorName = "content"

	payloadNamespace = "namespace"
	payloadRecordID  = "record_id"
)

// pointNamespace seeds the UUIDv5 point ids derived from record ids.
var pointNamespace = uuid.MustParse("8c5b1a2e-4f5d-4b7e-9a53-6f2d0c1e7b44")

// Compile-time checks.
var (
	_ Backend       = (*QdrantStorage)(nil)
	_ HealthChecker = (*QdrantStorage)(nil)
	_ Backend       = (*MemoryStorage)(nil)
)

// QdrantConfig holds connection settings.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// QdrantStorage maps indexes to Qdrant collections and namespaces to a
// keyword payload field.
type QdrantStorage struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(ctx context.Context, cfg QdrantConfig) (*QdrantStorage, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client: client,
		host:   cfg.Host,
		port:   cfg.Port,
	}

	if err := storage.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s:%d: %v", ErrQdrantUnreachable, cfg.Host, cfg.Port, err)
	}

	return storage, nil
}

func newRetryBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// healthCheckWithRetry performs health check with exponential backoff.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(newRetryBackOff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStorage) ListIndexes(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}

// DescribeIndex reads the size of the "content" vector. Collections created
// with a single unnamed vector report that vector's size instead.
func (s *QdrantStorage) DescribeIndex(ctx context.Context, name string) (IndexDescription, error) {
	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return IndexDescription{}, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
		}
		return IndexDescription{}, fmt.Errorf("failed to get collection: %w", err)
	}

	desc := IndexDescription{Name: name}
	vectors := info.GetConfig().GetParams().GetVectorsConfig()
	if params, ok := vectors.GetParamsMap().GetMap()[vectorName]; ok {
		desc.Dimension = int(params.GetSize())
	} else if params := vectors.GetParams(); params != nil {
		desc.Dimension = int(params.GetSize())
	}
	return desc, nil
}

// CreateIndex creates a cosine collection and the namespace payload index.
// Cloud and region are not applicable to Qdrant.
func (s *QdrantStorage) CreateIndex(ctx context.Context, spec IndexSpec) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: spec.Name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(spec.Dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Without the payload index every namespace filter is a full scan.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: spec.Name,
		FieldName:      payloadNamespace,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field %s: %w", payloadNamespace, err)
	}
	return nil
}

// DeleteNamespace deletes every point whose namespace payload matches.
func (s *QdrantStorage) DeleteNamespace(ctx context.Context, index, namespace string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: index,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(namespaceFilter(namespace)),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNamespaceNotFound, namespace)
		}
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

// Upsert writes one batch of records with exponential backoff retry.
func (s *QdrantStorage) Upsert(ctx context.Context, index, namespace string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		payload := make(map[string]any, len(r.Metadata)+2)
		for k, v := range r.Metadata {
			payload[k] = v
		}
		payload[payloadNamespace] = namespace
		payload[payloadRecordID] = r.ID

		points[i] = &qdrant.PointStruct{
			Id: qdrant.NewIDUUID(PointID(r.ID)),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				vectorName: qdrant.NewVector(r.Values...),
			}),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: index,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if err != nil && isNotFound(err) {
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrIndexNotFound, index))
		}
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(newRetryBackOff(), ctx))
}

// Query performs a namespace-filtered similarity search on the named vector.
func (s *QdrantStorage) Query(ctx context.Context, index, namespace string, vector []float32, topK int) ([]Match, error) {
	using := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: index,
		Query:          qdrant.NewQuery(vector...),
		Using:          &using,
		Filter:         namespaceFilter(namespace),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, index)
		}
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		matches = append(matches, matchFromPayload(result.GetId(), result.GetScore(), result.GetPayload()))
	}
	return matches, nil
}

func (s *QdrantStorage) Count(ctx context.Context, index, namespace string) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: index,
		Filter:         namespaceFilter(namespace),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("%w: %s", ErrIndexNotFound, index)
		}
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(n), nil
}

// PointID maps a record id onto the UUID Qdrant requires as point id.
func PointID(recordID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(recordID)).String()
}

func namespaceFilter(namespace string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(payloadNamespace, namespace),
		},
	}
}

// matchFromPayload rebuilds a Match. String payload values become metadata;
// the bookkeeping fields are stripped.
func matchFromPayload(id *qdrant.PointId, score float32, payload map[string]*qdrant.Value) Match {
	m := Match{
		ID:       id.GetUuid(),
		Score:    score,
		Metadata: make(map[string]string, len(payload)),
	}
	for k, v := range payload {
		switch k {
		case payloadNamespace:
		case payloadRecordID:
			m.ID = v.GetStringValue()
		default:
			if sv, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
				m.Metadata[k] = sv.StringValue
			}
		}
	}
	return m
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

package storage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointID(t *testing.T) {
	id := PointID("latest-0f8e-3")
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	assert.Equal(t, id, PointID("latest-0f8e-3"), "deterministic")
	assert.NotEqual(t, id, PointID("latest-0f8e-4"))
}

func TestMatchFromPayload(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		payloadNamespace: "latest",
		payloadRecordID:  "latest-abc-0",
		MetadataText:     "The sky is blue.",
		"page":           int64(3),
	})

	m := matchFromPayload(qdrant.NewIDUUID(PointID("latest-abc-0")), 0.87, payload)

	assert.Equal(t, "latest-abc-0", m.ID)
	assert.InDelta(t, 0.87, m.Score, 1e-6)
	assert.Equal(t, map[string]string{MetadataText: "The sky is blue."}, m.Metadata)
}

func TestMatchFromPayload_WithoutRecordID(t *testing.T) {
	point := PointID("x")
	m := matchFromPayload(qdrant.NewIDUUID(point), 0.5, nil)
	assert.Equal(t, point, m.ID)
	_, ok := m.Text()
	assert.False(t, ok)
}

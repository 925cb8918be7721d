package database

import (
	"context"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/model"
)

func insertTestEmbedding(t *testing.T, vectors *VectorsDBHandler, entityID string, entityType model.EntityType, userID string, embedding []float32) {
	t.Helper()
	_, err := vectors.db.Instance.ExecContext(context.Background(),
		`INSERT INTO entity_embeddings (entity_id, entity_type, user_id, embedding)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (entity_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
		entityID, string(entityType), userID, pgvector.NewVector(embedding),
	)
	require.NoError(t, err)
}

func TestNewVectorsDBHandler(t *testing.T) {
	t.Run("creates the embedding table and extension", func(t *testing.T) {
		_, vectors := initVectorsHandler(t)

		var exists bool
		err := vectors.db.Instance.QueryRow(
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'entity_embeddings')`,
		).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "Expected table entity_embeddings to exist")
	})

	t.Run("rejects a nil database", func(t *testing.T) {
		_, err := NewVectorsDBHandler(nil, 3)
		assert.Error(t, err)
	})
}

func TestSelectBySimilarity(t *testing.T) {
	ctx := context.Background()

	t.Run("orders matches by similarity descending", func(t *testing.T) {
		_, vectors := initVectorsHandler(t)
		insertTestEmbedding(t, vectors, "sim-exact", model.EntityTypeConcept, "sim-user-1", []float32{1, 0, 0})
		insertTestEmbedding(t, vectors, "sim-close", model.EntityTypeMemoryUnit, "sim-user-1", []float32{0.9, 0.1, 0})
		insertTestEmbedding(t, vectors, "sim-far", model.EntityTypeConcept, "sim-user-1", []float32{0, 0, 1})

		matches, err := vectors.SelectBySimilarity(ctx, []float32{1, 0, 0}, "sim-user-1", 10, 0.5)
		require.NoError(t, err)
		require.Len(t, matches, 2, "Expected the orthogonal vector to fall below the threshold")

		assert.Equal(t, "sim-exact", matches[0].EntityID)
		assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
		assert.Equal(t, "sim-close", matches[1].EntityID)
		assert.Greater(t, matches[0].Similarity, matches[1].Similarity)
	})

	t.Run("respects the result limit", func(t *testing.T) {
		_, vectors := initVectorsHandler(t)
		insertTestEmbedding(t, vectors, "lim-a", model.EntityTypeConcept, "lim-user-1", []float32{1, 0, 0})
		insertTestEmbedding(t, vectors, "lim-b", model.EntityTypeConcept, "lim-user-1", []float32{0.9, 0.1, 0})
		insertTestEmbedding(t, vectors, "lim-c", model.EntityTypeConcept, "lim-user-1", []float32{0.8, 0.2, 0})

		matches, err := vectors.SelectBySimilarity(ctx, []float32{1, 0, 0}, "lim-user-1", 2, 0.0)
		require.NoError(t, err)
		assert.Len(t, matches, 2)
	})

	t.Run("never returns another user's entities", func(t *testing.T) {
		_, vectors := initVectorsHandler(t)
		insertTestEmbedding(t, vectors, "visi-a", model.EntityTypeConcept, "visi-user-a", []float32{1, 0, 0})

		matches, err := vectors.SelectBySimilarity(ctx, []float32{1, 0, 0}, "visi-user-b", 10, 0.0)
		require.NoError(t, err)
		for _, match := range matches {
			assert.NotEqual(t, "visi-a", match.EntityID)
		}
	})

	t.Run("carries the entity type through", func(t *testing.T) {
		_, vectors := initVectorsHandler(t)
		insertTestEmbedding(t, vectors, "typ-mu", model.EntityTypeMemoryUnit, "typ-user-1", []float32{1, 0, 0})

		matches, err := vectors.SelectBySimilarity(ctx, []float32{1, 0, 0}, "typ-user-1", 1, 0.9)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, model.EntityTypeMemoryUnit, matches[0].EntityType)
	})
}

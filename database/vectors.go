package database

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/mnemo-ai/mnemo/helper"
	"github.com/mnemo-ai/mnemo/model"
)

// SimilarityMatch is one vector search hit.
type SimilarityMatch struct {
	EntityID   string
	EntityType model.EntityType
	Similarity float64
}

// VectorsDBHandlerFunctions defines the interface for vector index reads.
type VectorsDBHandlerFunctions interface {
	SelectBySimilarity(ctx context.Context, embedding []float32, userID string, limit int, threshold float64) ([]SimilarityMatch, error)
}

// VectorsDBHandler performs cosine similarity search over the entity
// embedding index maintained by the ingestion subsystem.
type VectorsDBHandler struct {
	db *helper.Database
}

// NewVectorsDBHandler creates a vectors handler for embeddings of the
// given dimension.
func NewVectorsDBHandler(db *helper.Database, embeddingDim int) (*VectorsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	handler := &VectorsDBHandler{db: db}

	if err := handler.CreateTable(embeddingDim); err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized VectorsDBHandler")

	return handler, nil
}

// CreateTable creates the embedding table and the pgvector extension when
// they do not exist yet.
func (h *VectorsDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS entity_embeddings (
			entity_id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			user_id TEXT NOT NULL,
			embedding vector(%v) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_entity_embeddings_user_id ON entity_embeddings (user_id);
	`, embeddingDim))
	if err != nil {
		return helper.NewError("create table entity_embeddings", err)
	}

	h.db.Logger.Info("Checked/created table entity_embeddings")

	return nil
}

// SelectBySimilarity returns the entities most similar to the query
// embedding, scoped to one user and bounded by limit and a minimum cosine
// similarity.
func (h *VectorsDBHandler) SelectBySimilarity(ctx context.Context, embedding []float32, userID string, limit int, threshold float64) ([]SimilarityMatch, error) {
	embeddingVector := pgvector.NewVector(embedding)

	rows, err := h.db.Instance.QueryContext(ctx, `
		SELECT entity_id, entity_type, 1 - (embedding <=> $1) AS similarity
		FROM entity_embeddings
		WHERE user_id = $2 AND 1 - (embedding <=> $1) >= $3
		ORDER BY embedding <=> $1
		LIMIT $4
	`, embeddingVector, userID, threshold, limit)
	if err != nil {
		return nil, helper.NewError("select entities by similarity", err)
	}
	defer rows.Close()

	matches := make([]SimilarityMatch, 0, limit)
	for rows.Next() {
		var match SimilarityMatch
		if err := rows.Scan(&match.EntityID, &match.EntityType, &match.Similarity); err != nil {
			return nil, helper.NewError("scan similarity match", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("iterate similarity matches", err)
	}

	return matches, nil
}

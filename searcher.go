package mnemo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mnemo-ai/mnemo/core/pipeline"
	"github.com/mnemo-ai/mnemo/database"
	"github.com/mnemo-ai/mnemo/model"
)

// vectorSearcher adapts the pgvector handler to the retrieval engine's
// vector search contract. The embedder is created on first use because
// loading the sentence transformer is expensive.
type vectorSearcher struct {
	vectors database.VectorsDBHandlerFunctions

	embedOnce sync.Once
	embed     pipeline.EmbedFunc
	embedErr  error
}

func (s *vectorSearcher) embedder() (pipeline.EmbedFunc, error) {
	s.embedOnce.Do(func() {
		s.embed, s.embedErr = pipeline.DefaultEmbedder()
	})
	return s.embed, s.embedErr
}

func (s *vectorSearcher) SimilaritySearch(ctx context.Context, phrase, userID string, limit int, threshold float64, timeout time.Duration) ([]model.SeedEntity, error) {
	embed, err := s.embedder()
	if err != nil {
		return nil, &model.StoreUnavailableError{Store: "vector", Err: err}
	}
	embedding, err := embed(phrase)
	if err != nil {
		return nil, &model.StoreUnavailableError{Store: "vector", Err: err}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	matches, err := s.vectors.SelectBySimilarity(ctx, embedding, userID, limit, threshold)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &model.StoreTimeoutError{Store: "vector", Err: err}
		}
		return nil, &model.StoreUnavailableError{Store: "vector", Err: err}
	}

	seeds := make([]model.SeedEntity, 0, len(matches))
	for _, match := range matches {
		if !match.EntityType.Valid() {
			continue
		}
		seeds = append(seeds, model.SeedEntity{
			ID:              match.EntityID,
			Type:            match.EntityType,
			SimilarityScore: match.Similarity,
		})
	}
	return seeds, nil
}

package retrieval

import (
	"math"
	"testing"
	"time"

	"github.com/mnemo-ai/mnemo/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScorer(t *testing.T, weights model.RetrievalWeights, decayRate float64, now time.Time) *Scorer {
	t.Helper()
	scorer, err := NewScorer(weights, decayRate)
	require.NoError(t, err)
	scorer.now = func() time.Time { return now }
	return scorer
}

func floatPointer(v float64) *float64 { return &v }

func intPointer(v int) *int { return &v }

func TestNewScorer(t *testing.T) {
	t.Run("rejects weights that do not sum to one", func(t *testing.T) {
		_, err := NewScorer(model.RetrievalWeights{Alpha: 0.5, Beta: 0.5, Gamma: 0.5}, 0.1)
		assert.Error(t, err)
	})

	t.Run("rejects negative weights", func(t *testing.T) {
		_, err := NewScorer(model.RetrievalWeights{Alpha: 1.2, Beta: -0.1, Gamma: -0.1}, 0.1)
		assert.Error(t, err)
	})

	t.Run("falls back to default decay rate", func(t *testing.T) {
		scorer, err := NewScorer(model.RetrievalWeights{Alpha: 0.5, Beta: 0.3, Gamma: 0.2}, 0)
		require.NoError(t, err)
		assert.Equal(t, model.DefaultUserParameters().Scoring.RecencyDecayRate, scorer.decayRate)
	})
}

func TestScorerRank(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	weights := model.RetrievalWeights{Alpha: 0.5, Beta: 0.3, Gamma: 0.2}

	t.Run("blends semantic recency and importance for seed and hop candidates", func(t *testing.T) {
		scorer := newTestScorer(t, weights, 0.1, now)
		monthAgo := now.Add(-30 * 24 * time.Hour)

		candidates := []model.CandidateEntity{
			{ID: "c1", Type: model.EntityTypeConcept, WasSeedEntity: true},
			{ID: "mu7", Type: model.EntityTypeMemoryUnit, HopDistance: intPointer(1)},
		}
		scoringContext := model.ScoringContext{
			SeedEntities: []model.SeedEntity{
				{ID: "c1", Type: model.EntityTypeConcept, SimilarityScore: 0.82},
			},
			Metadata: map[string]model.EntityMetadata{
				"c1":  {EntityID: "c1", ImportanceScore: floatPointer(8), LastModified: &now},
				"mu7": {EntityID: "mu7", ImportanceScore: floatPointer(4), LastModified: &monthAgo},
			},
		}

		scored := scorer.Rank(candidates, scoringContext, 10)
		require.Len(t, scored, 2)

		assert.Equal(t, "c1", scored[0].ID)
		assert.InDelta(t, 0.87, scored[0].FinalScore, 1e-9)
		assert.InDelta(t, 0.82, scored[0].ScoreBreakdown.Semantic, 1e-9)
		assert.InDelta(t, 1.0, scored[0].ScoreBreakdown.Recency, 1e-9)
		assert.InDelta(t, 0.8, scored[0].ScoreBreakdown.Importance, 1e-9)

		assert.Equal(t, "mu7", scored[1].ID)
		assert.InDelta(t, 0.4, scored[1].ScoreBreakdown.Semantic, 1e-9)
		assert.InDelta(t, math.Exp(-3), scored[1].ScoreBreakdown.Recency, 1e-9)
		assert.InDelta(t, 0.4, scored[1].ScoreBreakdown.Importance, 1e-9)
		assert.InDelta(t, 0.2+0.3*math.Exp(-3)+0.08, scored[1].FinalScore, 1e-9)
	})

	t.Run("semantic score decays with hop distance", func(t *testing.T) {
		scorer := newTestScorer(t, weights, 0.1, now)
		scoringContext := model.ScoringContext{Metadata: map[string]model.EntityMetadata{
			"hop1": {EntityID: "hop1"},
			"hop2": {EntityID: "hop2"},
			"hop3": {EntityID: "hop3"},
		}}
		scored := scorer.Rank([]model.CandidateEntity{
			{ID: "hop3", Type: model.EntityTypeConcept, HopDistance: intPointer(3)},
			{ID: "hop1", Type: model.EntityTypeConcept, HopDistance: intPointer(1)},
			{ID: "hop2", Type: model.EntityTypeConcept, HopDistance: intPointer(2)},
		}, scoringContext, 0)

		require.Len(t, scored, 3)
		assert.Equal(t, []string{"hop1", "hop2", "hop3"}, []string{scored[0].ID, scored[1].ID, scored[2].ID})
		assert.InDelta(t, 0.4, scored[0].ScoreBreakdown.Semantic, 1e-9)
		assert.InDelta(t, 0.32, scored[1].ScoreBreakdown.Semantic, 1e-9)
		assert.InDelta(t, 0.256, scored[2].ScoreBreakdown.Semantic, 1e-9)
	})

	t.Run("missing metadata fields fall back to neutral scores", func(t *testing.T) {
		scorer := newTestScorer(t, weights, 0.1, now)
		scoringContext := model.ScoringContext{Metadata: map[string]model.EntityMetadata{
			"bare": {EntityID: "bare"},
		}}
		scored := scorer.Rank([]model.CandidateEntity{
			{ID: "bare", Type: model.EntityTypeMemoryUnit, HopDistance: intPointer(1)},
		}, scoringContext, 0)

		require.Len(t, scored, 1)
		assert.InDelta(t, 0.5, scored[0].ScoreBreakdown.Recency, 1e-9)
		assert.InDelta(t, 0.5, scored[0].ScoreBreakdown.Importance, 1e-9)
	})

	t.Run("importance is capped at one", func(t *testing.T) {
		scorer := newTestScorer(t, weights, 0.1, now)
		scoringContext := model.ScoringContext{Metadata: map[string]model.EntityMetadata{
			"vip": {EntityID: "vip", ImportanceScore: floatPointer(25)},
		}}
		scored := scorer.Rank([]model.CandidateEntity{
			{ID: "vip", Type: model.EntityTypeConcept, HopDistance: intPointer(1)},
		}, scoringContext, 0)

		require.Len(t, scored, 1)
		assert.InDelta(t, 1.0, scored[0].ScoreBreakdown.Importance, 1e-9)
	})

	t.Run("drops candidates without metadata", func(t *testing.T) {
		scorer := newTestScorer(t, weights, 0.1, now)
		scored := scorer.Rank([]model.CandidateEntity{
			{ID: "ghost", Type: model.EntityTypeConcept, HopDistance: intPointer(1)},
		}, model.ScoringContext{Metadata: map[string]model.EntityMetadata{}}, 0)
		assert.Empty(t, scored)
	})

	t.Run("truncates to topN after sorting", func(t *testing.T) {
		scorer := newTestScorer(t, weights, 0.1, now)
		metadata := map[string]model.EntityMetadata{}
		candidates := make([]model.CandidateEntity, 0, 5)
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			metadata[id] = model.EntityMetadata{EntityID: id}
			candidates = append(candidates, model.CandidateEntity{
				ID: id, Type: model.EntityTypeConcept, HopDistance: intPointer(1),
			})
		}
		scored := scorer.Rank(candidates, model.ScoringContext{Metadata: metadata}, 2)
		assert.Len(t, scored, 2)
	})

	t.Run("equal scores keep input order", func(t *testing.T) {
		scorer := newTestScorer(t, weights, 0.1, now)
		metadata := map[string]model.EntityMetadata{
			"first":  {EntityID: "first"},
			"second": {EntityID: "second"},
		}
		scored := scorer.Rank([]model.CandidateEntity{
			{ID: "first", Type: model.EntityTypeConcept, HopDistance: intPointer(2)},
			{ID: "second", Type: model.EntityTypeConcept, HopDistance: intPointer(2)},
		}, model.ScoringContext{Metadata: metadata}, 0)

		require.Len(t, scored, 2)
		assert.Equal(t, "first", scored[0].ID)
		assert.Equal(t, "second", scored[1].ID)
	})

	t.Run("raising alpha never demotes the semantically closer candidate", func(t *testing.T) {
		candidates := []model.CandidateEntity{
			{ID: "far", Type: model.EntityTypeConcept, WasSeedEntity: true},
			{ID: "near", Type: model.EntityTypeConcept, WasSeedEntity: true},
		}
		scoringContext := model.ScoringContext{
			SeedEntities: []model.SeedEntity{
				{ID: "near", Type: model.EntityTypeConcept, SimilarityScore: 0.9},
				{ID: "far", Type: model.EntityTypeConcept, SimilarityScore: 0.5},
			},
			Metadata: map[string]model.EntityMetadata{
				"near": {EntityID: "near", ImportanceScore: floatPointer(6), LastModified: &now},
				"far":  {EntityID: "far", ImportanceScore: floatPointer(6), LastModified: &now},
			},
		}

		previousLead := 0.0
		for _, alpha := range []float64{0.2, 0.5, 0.8} {
			rest := (1 - alpha) / 2
			scorer := newTestScorer(t, model.RetrievalWeights{Alpha: alpha, Beta: rest, Gamma: rest}, 0.1, now)
			scored := scorer.Rank(candidates, scoringContext, 0)

			require.Len(t, scored, 2)
			assert.Equal(t, "near", scored[0].ID, "alpha %.1f", alpha)
			lead := scored[0].FinalScore - scored[1].FinalScore
			assert.Greater(t, lead, previousLead, "alpha %.1f", alpha)
			previousLead = lead
		}
	})
}

func TestScorerUpdateWeights(t *testing.T) {
	t.Run("replaces the weight set", func(t *testing.T) {
		scorer, err := NewScorer(model.RetrievalWeights{Alpha: 0.5, Beta: 0.3, Gamma: 0.2}, 0.1)
		require.NoError(t, err)

		newWeights := model.RetrievalWeights{Alpha: 0.8, Beta: 0.1, Gamma: 0.1}
		require.NoError(t, scorer.UpdateWeights(newWeights))
		assert.Equal(t, newWeights, scorer.Weights())
	})

	t.Run("keeps the previous weights on invalid input", func(t *testing.T) {
		initial := model.RetrievalWeights{Alpha: 0.5, Beta: 0.3, Gamma: 0.2}
		scorer, err := NewScorer(initial, 0.1)
		require.NoError(t, err)

		assert.Error(t, scorer.UpdateWeights(model.RetrievalWeights{Alpha: 0.9, Beta: 0.9, Gamma: 0.9}))
		assert.Equal(t, initial, scorer.Weights())
	})
}

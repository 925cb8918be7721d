package retrieval

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/mnemo-ai/mnemo/model"
)

const (
	seedlessSemanticBase  = 0.5
	hopDecayFactor        = 0.8
	defaultRecencyScore   = 0.5
	defaultImportance     = 0.5
	importanceScoreCeilng = 10.0
)

// Scorer ranks candidate entities by a weighted blend of semantic closeness,
// recency and importance. Weights can be swapped atomically while rankings
// are in flight.
type Scorer struct {
	mu        sync.RWMutex
	weights   model.RetrievalWeights
	decayRate float64
	now       func() time.Time
}

// NewScorer returns a Scorer with validated weights. A non-positive decayRate
// falls back to the default recency decay.
func NewScorer(weights model.RetrievalWeights, decayRate float64) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if decayRate <= 0 {
		decayRate = model.DefaultUserParameters().Scoring.RecencyDecayRate
	}
	return &Scorer{weights: weights, decayRate: decayRate, now: time.Now}, nil
}

// UpdateWeights replaces the weight set as one unit. Invalid weights are
// rejected and the previous set stays in effect.
func (s *Scorer) UpdateWeights(weights model.RetrievalWeights) error {
	if err := weights.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.weights = weights
	s.mu.Unlock()
	return nil
}

// Weights returns the weight set currently in effect.
func (s *Scorer) Weights() model.RetrievalWeights {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weights
}

// Rank scores every candidate that has metadata, sorts the result by final
// score descending with ties kept in input order, and truncates to topN.
// Candidates without a metadata entry are dropped. topN <= 0 keeps all.
func (s *Scorer) Rank(candidates []model.CandidateEntity, scoringContext model.ScoringContext, topN int) []model.ScoredEntity {
	s.mu.RLock()
	weights := s.weights
	decayRate := s.decayRate
	s.mu.RUnlock()
	now := s.now()

	scored := make([]model.ScoredEntity, 0, len(candidates))
	for _, candidate := range candidates {
		metadata, ok := scoringContext.Metadata[candidate.ID]
		if !ok {
			continue
		}
		breakdown := model.ScoreBreakdown{
			Semantic:   semanticScore(candidate, scoringContext),
			Recency:    recencyScore(metadata.LastModified, decayRate, now),
			Importance: importanceScore(metadata.ImportanceScore),
		}
		finalScore := weights.Alpha*breakdown.Semantic +
			weights.Beta*breakdown.Recency +
			weights.Gamma*breakdown.Importance
		scored = append(scored, model.ScoredEntity{
			ID:              candidate.ID,
			Type:            candidate.Type,
			FinalScore:      finalScore,
			ScoreBreakdown:  breakdown,
			WasSeedEntity:   candidate.WasSeedEntity,
			HopDistance:     candidate.HopDistance,
			SimilarityScore: candidate.SimilarityScore,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})
	if topN > 0 && len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}

func semanticScore(candidate model.CandidateEntity, scoringContext model.ScoringContext) float64 {
	if candidate.WasSeedEntity {
		if similarity, ok := scoringContext.SeedSimilarity(candidate.ID); ok {
			return similarity
		}
		if candidate.SimilarityScore != nil {
			return *candidate.SimilarityScore
		}
		return seedlessSemanticBase
	}
	hop := 1
	if candidate.HopDistance != nil {
		hop = *candidate.HopDistance
	}
	return seedlessSemanticBase * math.Pow(hopDecayFactor, float64(hop))
}

func recencyScore(lastModified *time.Time, decayRate float64, now time.Time) float64 {
	if lastModified == nil {
		return defaultRecencyScore
	}
	ageDays := now.Sub(*lastModified).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-decayRate * ageDays)
}

func importanceScore(raw *float64) float64 {
	if raw == nil {
		return defaultImportance
	}
	return math.Min(*raw/importanceScoreCeilng, 1.0)
}

package model

import (
	"fmt"
	"math"
	"time"
)

// EntityMetadata is the lightweight snapshot fetched before scoring. It
// carries everything the scorer needs without requiring full content.
type EntityMetadata struct {
	EntityID        string     `json:"entityId"`
	EntityType      EntityType `json:"entityType"`
	ImportanceScore *float64   `json:"importanceScore,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastModified    *time.Time `json:"lastModified,omitempty"`
}

// ScoringContext is the read-only input bundle the scorer consumes,
// constructed once per request.
type ScoringContext struct {
	SeedEntities []SeedEntity
	Metadata     map[string]EntityMetadata
}

// SeedSimilarity returns the highest similarity score observed for id
// across the seed set, or false when id was never a seed.
func (c ScoringContext) SeedSimilarity(id string) (float64, bool) {
	best := 0.0
	found := false
	for _, seed := range c.SeedEntities {
		if seed.ID == id && (!found || seed.SimilarityScore > best) {
			best = seed.SimilarityScore
			found = true
		}
	}
	return best, found
}

// RetrievalWeights are the multi-factor scoring weights. They must sum to
// 1.0 within a tolerance of 0.01.
type RetrievalWeights struct {
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`
	Gamma float64 `json:"gamma" yaml:"gamma"`
}

// Validate checks the weight-sum invariant.
func (w RetrievalWeights) Validate() error {
	sum := w.Alpha + w.Beta + w.Gamma
	if math.Abs(sum-1.0) > 0.01 {
		return &ConfigValidationError{
			Field:  "weights",
			Reason: fmt.Sprintf("alpha+beta+gamma must sum to 1.0 (±0.01), got %.4f", sum),
		}
	}
	if w.Alpha < 0 || w.Beta < 0 || w.Gamma < 0 {
		return &ConfigValidationError{Field: "weights", Reason: "weights must be non-negative"}
	}
	return nil
}

// ScoreBreakdown retains the per-factor scores for explainability.
type ScoreBreakdown struct {
	Semantic   float64 `json:"semantic"`
	Recency    float64 `json:"recency"`
	Importance float64 `json:"importance"`
}

// ScoredEntity is the scorer output, ordered descending by FinalScore.
type ScoredEntity struct {
	ID              string         `json:"id"`
	Type            EntityType     `json:"type"`
	FinalScore      float64        `json:"finalScore"`
	ScoreBreakdown  ScoreBreakdown `json:"scoreBreakdown"`
	WasSeedEntity   bool           `json:"wasSeedEntity"`
	HopDistance     *int           `json:"hopDistance,omitempty"`
	SimilarityScore *float64       `json:"similarityScore,omitempty"`
}

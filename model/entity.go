package model

// EntityType identifies which system-of-record table an entity lives in.
type EntityType string

const (
	EntityTypeMemoryUnit      EntityType = "MemoryUnit"
	EntityTypeConcept         EntityType = "Concept"
	EntityTypeDerivedArtifact EntityType = "DerivedArtifact"
)

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeMemoryUnit, EntityTypeConcept, EntityTypeDerivedArtifact:
		return true
	}
	return false
}

// SeedEntity is an entity returned directly by vector search for one key
// phrase. Seeds are created per request and discarded after scoring.
type SeedEntity struct {
	ID              string     `json:"id"`
	Type            EntityType `json:"type"`
	SimilarityScore float64    `json:"similarityScore"`
}

// CandidateEntity is the union of seeds and graph traversal results under
// consideration for the final ranked result.
type CandidateEntity struct {
	ID              string     `json:"id"`
	Type            EntityType `json:"type"`
	WasSeedEntity   bool       `json:"wasSeedEntity"`
	HopDistance     *int       `json:"hopDistance,omitempty"`
	SimilarityScore *float64   `json:"similarityScore,omitempty"`
}

// CandidateFromSeed converts a seed into a candidate at hop distance zero.
func CandidateFromSeed(seed SeedEntity) CandidateEntity {
	hop := 0
	score := seed.SimilarityScore
	return CandidateEntity{
		ID:              seed.ID,
		Type:            seed.Type,
		WasSeedEntity:   true,
		HopDistance:     &hop,
		SimilarityScore: &score,
	}
}

// MergeCandidates merges candidate lists by entity id while preserving
// first-seen order. When the same id appears more than once the merged
// candidate keeps WasSeedEntity if any occurrence was a seed, the minimum
// observed hop distance, and the similarity score of the first occurrence
// that carries one.
func MergeCandidates(lists ...[]CandidateEntity) []CandidateEntity {
	merged := make([]CandidateEntity, 0)
	index := make(map[string]int)

	for _, list := range lists {
		for _, candidate := range list {
			pos, seen := index[candidate.ID]
			if !seen {
				index[candidate.ID] = len(merged)
				merged = append(merged, candidate)
				continue
			}

			existing := &merged[pos]
			if candidate.WasSeedEntity {
				existing.WasSeedEntity = true
			}
			if candidate.HopDistance != nil {
				if existing.HopDistance == nil || *candidate.HopDistance < *existing.HopDistance {
					existing.HopDistance = candidate.HopDistance
				}
			}
			if existing.SimilarityScore == nil && candidate.SimilarityScore != nil {
				existing.SimilarityScore = candidate.SimilarityScore
			}
		}
	}

	return merged
}

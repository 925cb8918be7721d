package model

import "fmt"

// VectorSearchParams bound the per-phrase similarity queries.
type VectorSearchParams struct {
	ResultsPerPhrase    int     `json:"resultsPerPhrase" yaml:"results_per_phrase"`
	SimilarityThreshold float64 `json:"similarityThreshold" yaml:"similarity_threshold"`
	TimeoutMs           int     `json:"timeoutMs" yaml:"timeout_ms"`
}

// GraphQueryParams bound the traversal queries sent to the graph store.
type GraphQueryParams struct {
	MaxHops         int `json:"maxHops" yaml:"max_hops"`
	MaxResultLimit  int `json:"maxResultLimit" yaml:"max_result_limit"`
	MaxSeedEntities int `json:"maxSeedEntities" yaml:"max_seed_entities"`
	TimeoutMs       int `json:"timeoutMs" yaml:"timeout_ms"`
}

// ScoringParams control ranking and truncation.
type ScoringParams struct {
	TopNForHydration int              `json:"topNForHydration" yaml:"top_n_for_hydration"`
	RecencyDecayRate float64          `json:"recencyDecayRate" yaml:"recency_decay_rate"`
	Weights          RetrievalWeights `json:"weights" yaml:"weights"`
}

// PerformanceParams bound concurrency and the request wall clock.
type PerformanceParams struct {
	MaxConcurrentPhrases int `json:"maxConcurrentPhrases" yaml:"max_concurrent_phrases"`
	MaxRetrievalTimeMs   int `json:"maxRetrievalTimeMs" yaml:"max_retrieval_time_ms"`
	HydrationTimeoutMs   int `json:"hydrationTimeoutMs" yaml:"hydration_timeout_ms"`
}

// QualityParams filter low-value results out of the final set.
type QualityParams struct {
	MinFinalScore       float64      `json:"minFinalScore" yaml:"min_final_score"`
	ExcludedEntityTypes []EntityType `json:"excludedEntityTypes,omitempty" yaml:"excluded_entity_types,omitempty"`
}

// UserParameters is the effective tuning configuration for one retrieval
// request. Instances are loaded fresh per request and never mutated in
// place.
type UserParameters struct {
	VectorSearch VectorSearchParams `json:"vectorSearch" yaml:"vector_search"`
	GraphQuery   GraphQueryParams   `json:"graphQuery" yaml:"graph_query"`
	Scoring      ScoringParams      `json:"scoring" yaml:"scoring"`
	Performance  PerformanceParams  `json:"performance" yaml:"performance"`
	Quality      QualityParams      `json:"quality" yaml:"quality"`
}

// DefaultUserParameters returns the hard-coded system defaults used when no
// configuration source is reachable.
func DefaultUserParameters() UserParameters {
	return UserParameters{
		VectorSearch: VectorSearchParams{
			ResultsPerPhrase:    5,
			SimilarityThreshold: 0.6,
			TimeoutMs:           3000,
		},
		GraphQuery: GraphQueryParams{
			MaxHops:         2,
			MaxResultLimit:  50,
			MaxSeedEntities: 100,
			TimeoutMs:       5000,
		},
		Scoring: ScoringParams{
			TopNForHydration: 10,
			RecencyDecayRate: 0.1,
			Weights:          RetrievalWeights{Alpha: 0.5, Beta: 0.3, Gamma: 0.2},
		},
		Performance: PerformanceParams{
			MaxConcurrentPhrases: 3,
			MaxRetrievalTimeMs:   10000,
			HydrationTimeoutMs:   5000,
		},
		Quality: QualityParams{
			MinFinalScore: 0.0,
		},
	}
}

// Validate checks per-field ranges and the weight-sum invariant.
func (p UserParameters) Validate() error {
	if p.VectorSearch.ResultsPerPhrase < 1 || p.VectorSearch.ResultsPerPhrase > 20 {
		return rangeError("vectorSearch.resultsPerPhrase", p.VectorSearch.ResultsPerPhrase, 1, 20)
	}
	if p.VectorSearch.SimilarityThreshold < 0 || p.VectorSearch.SimilarityThreshold > 1 {
		return &ConfigValidationError{Field: "vectorSearch.similarityThreshold", Reason: "must be in [0,1]"}
	}
	if p.VectorSearch.TimeoutMs < 1 {
		return &ConfigValidationError{Field: "vectorSearch.timeoutMs", Reason: "must be positive"}
	}
	if p.GraphQuery.MaxHops < 1 || p.GraphQuery.MaxHops > 10 {
		return rangeError("graphQuery.maxHops", p.GraphQuery.MaxHops, 1, 10)
	}
	if p.GraphQuery.MaxResultLimit < 1 || p.GraphQuery.MaxResultLimit > 500 {
		return rangeError("graphQuery.maxResultLimit", p.GraphQuery.MaxResultLimit, 1, 500)
	}
	if p.GraphQuery.MaxSeedEntities < 1 || p.GraphQuery.MaxSeedEntities > 300 {
		return rangeError("graphQuery.maxSeedEntities", p.GraphQuery.MaxSeedEntities, 1, 300)
	}
	if p.GraphQuery.TimeoutMs < 1 {
		return &ConfigValidationError{Field: "graphQuery.timeoutMs", Reason: "must be positive"}
	}
	if p.Scoring.TopNForHydration < 1 || p.Scoring.TopNForHydration > 100 {
		return rangeError("scoring.topNForHydration", p.Scoring.TopNForHydration, 1, 100)
	}
	if p.Scoring.RecencyDecayRate < 0 {
		return &ConfigValidationError{Field: "scoring.recencyDecayRate", Reason: "must be non-negative"}
	}
	if err := p.Scoring.Weights.Validate(); err != nil {
		return err
	}
	if p.Performance.MaxConcurrentPhrases < 1 || p.Performance.MaxConcurrentPhrases > 10 {
		return rangeError("performance.maxConcurrentPhrases", p.Performance.MaxConcurrentPhrases, 1, 10)
	}
	if p.Performance.MaxRetrievalTimeMs < 1 {
		return &ConfigValidationError{Field: "performance.maxRetrievalTimeMs", Reason: "must be positive"}
	}
	if p.Performance.HydrationTimeoutMs < 1 {
		return &ConfigValidationError{Field: "performance.hydrationTimeoutMs", Reason: "must be positive"}
	}
	if p.Quality.MinFinalScore < 0 || p.Quality.MinFinalScore > 1 {
		return &ConfigValidationError{Field: "quality.minFinalScore", Reason: "must be in [0,1]"}
	}
	for _, entityType := range p.Quality.ExcludedEntityTypes {
		if !entityType.Valid() {
			return &ConfigValidationError{Field: "quality.excludedEntityTypes", Reason: fmt.Sprintf("unknown entity type %q", entityType)}
		}
	}
	return nil
}

func rangeError(field string, value, min, max int) error {
	return &ConfigValidationError{
		Field:  field,
		Reason: fmt.Sprintf("must be in [%v,%v], got %v", min, max, value),
	}
}

// VectorSearchOverrides is a partial VectorSearchParams; nil fields keep
// the defaults.
type VectorSearchOverrides struct {
	ResultsPerPhrase    *int     `json:"resultsPerPhrase,omitempty" yaml:"results_per_phrase,omitempty"`
	SimilarityThreshold *float64 `json:"similarityThreshold,omitempty" yaml:"similarity_threshold,omitempty"`
	TimeoutMs           *int     `json:"timeoutMs,omitempty" yaml:"timeout_ms,omitempty"`
}

// GraphQueryOverrides is a partial GraphQueryParams.
type GraphQueryOverrides struct {
	MaxHops         *int `json:"maxHops,omitempty" yaml:"max_hops,omitempty"`
	MaxResultLimit  *int `json:"maxResultLimit,omitempty" yaml:"max_result_limit,omitempty"`
	MaxSeedEntities *int `json:"maxSeedEntities,omitempty" yaml:"max_seed_entities,omitempty"`
	TimeoutMs       *int `json:"timeoutMs,omitempty" yaml:"timeout_ms,omitempty"`
}

// WeightOverrides replaces the whole weight set. Weights are never merged
// field by field; a partial weight set cannot satisfy the sum invariant.
type WeightOverrides struct {
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`
	Gamma float64 `json:"gamma" yaml:"gamma"`
}

// ScoringOverrides is a partial ScoringParams.
type ScoringOverrides struct {
	TopNForHydration *int             `json:"topNForHydration,omitempty" yaml:"top_n_for_hydration,omitempty"`
	RecencyDecayRate *float64         `json:"recencyDecayRate,omitempty" yaml:"recency_decay_rate,omitempty"`
	Weights          *WeightOverrides `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// PerformanceOverrides is a partial PerformanceParams.
type PerformanceOverrides struct {
	MaxConcurrentPhrases *int `json:"maxConcurrentPhrases,omitempty" yaml:"max_concurrent_phrases,omitempty"`
	MaxRetrievalTimeMs   *int `json:"maxRetrievalTimeMs,omitempty" yaml:"max_retrieval_time_ms,omitempty"`
	HydrationTimeoutMs   *int `json:"hydrationTimeoutMs,omitempty" yaml:"hydration_timeout_ms,omitempty"`
}

// QualityOverrides is a partial QualityParams.
type QualityOverrides struct {
	MinFinalScore       *float64      `json:"minFinalScore,omitempty" yaml:"min_final_score,omitempty"`
	ExcludedEntityTypes *[]EntityType `json:"excludedEntityTypes,omitempty" yaml:"excluded_entity_types,omitempty"`
}

// UserParameterOverrides is the per-user override document stored in the
// override cache (or supplied inline on a request). Only set fields win.
type UserParameterOverrides struct {
	VectorSearch *VectorSearchOverrides `json:"vectorSearch,omitempty" yaml:"vector_search,omitempty"`
	GraphQuery   *GraphQueryOverrides   `json:"graphQuery,omitempty" yaml:"graph_query,omitempty"`
	Scoring      *ScoringOverrides      `json:"scoring,omitempty" yaml:"scoring,omitempty"`
	Performance  *PerformanceOverrides  `json:"performance,omitempty" yaml:"performance,omitempty"`
	Quality      *QualityOverrides      `json:"quality,omitempty" yaml:"quality,omitempty"`
}

// MergeUserParameters applies overrides onto defaults subsection by
// subsection and returns a new value; defaults are never mutated.
func MergeUserParameters(defaults UserParameters, overrides *UserParameterOverrides) UserParameters {
	merged := defaults
	if overrides == nil {
		return merged
	}

	if o := overrides.VectorSearch; o != nil {
		if o.ResultsPerPhrase != nil {
			merged.VectorSearch.ResultsPerPhrase = *o.ResultsPerPhrase
		}
		if o.SimilarityThreshold != nil {
			merged.VectorSearch.SimilarityThreshold = *o.SimilarityThreshold
		}
		if o.TimeoutMs != nil {
			merged.VectorSearch.TimeoutMs = *o.TimeoutMs
		}
	}

	if o := overrides.GraphQuery; o != nil {
		if o.MaxHops != nil {
			merged.GraphQuery.MaxHops = *o.MaxHops
		}
		if o.MaxResultLimit != nil {
			merged.GraphQuery.MaxResultLimit = *o.MaxResultLimit
		}
		if o.MaxSeedEntities != nil {
			merged.GraphQuery.MaxSeedEntities = *o.MaxSeedEntities
		}
		if o.TimeoutMs != nil {
			merged.GraphQuery.TimeoutMs = *o.TimeoutMs
		}
	}

	if o := overrides.Scoring; o != nil {
		if o.TopNForHydration != nil {
			merged.Scoring.TopNForHydration = *o.TopNForHydration
		}
		if o.RecencyDecayRate != nil {
			merged.Scoring.RecencyDecayRate = *o.RecencyDecayRate
		}
		if o.Weights != nil {
			merged.Scoring.Weights = RetrievalWeights{
				Alpha: o.Weights.Alpha,
				Beta:  o.Weights.Beta,
				Gamma: o.Weights.Gamma,
			}
		}
	}

	if o := overrides.Performance; o != nil {
		if o.MaxConcurrentPhrases != nil {
			merged.Performance.MaxConcurrentPhrases = *o.MaxConcurrentPhrases
		}
		if o.MaxRetrievalTimeMs != nil {
			merged.Performance.MaxRetrievalTimeMs = *o.MaxRetrievalTimeMs
		}
		if o.HydrationTimeoutMs != nil {
			merged.Performance.HydrationTimeoutMs = *o.HydrationTimeoutMs
		}
	}

	if o := overrides.Quality; o != nil {
		if o.MinFinalScore != nil {
			merged.Quality.MinFinalScore = *o.MinFinalScore
		}
		if o.ExcludedEntityTypes != nil {
			merged.Quality.ExcludedEntityTypes = append([]EntityType(nil), (*o.ExcludedEntityTypes)...)
		}
	}

	return merged
}

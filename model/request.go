package model

// RetrievalRequest is the external entry contract of the pipeline.
type RetrievalRequest struct {
	KeyPhrases        []string                `json:"keyPhrasesForRetrieval"`
	UserID            string                  `json:"userId"`
	RetrievalScenario string                  `json:"retrievalScenario,omitempty"`
	MaxResults        *int                    `json:"maxResults,omitempty"`
	UserParameters    *UserParameterOverrides `json:"userParameters,omitempty"`
}

// ScoringDetails summarizes the scoring stage for the caller.
type ScoringDetails struct {
	TotalCandidatesEvaluated int              `json:"totalCandidatesEvaluated"`
	SeedEntitiesFound        int              `json:"seedEntitiesFound"`
	AverageScore             float64          `json:"averageScore"`
	ScoringWeights           RetrievalWeights `json:"scoringWeights"`
}

// PerformanceMetadata carries request-level timing diagnostics.
type PerformanceMetadata struct {
	TotalExecutionTimeMs int64            `json:"total_execution_time_ms"`
	StageTimings         map[string]int64 `json:"stage_timings"`
	ResultCounts         map[string]int   `json:"result_counts"`
}

// ExtendedContext is the response of one retrieval request. A non-empty
// Errors list means "usable but incomplete", never a hard failure by
// itself.
type ExtendedContext struct {
	RetrievedMemoryUnits []HydratedEntity    `json:"retrievedMemoryUnits"`
	RetrievedConcepts    []HydratedEntity    `json:"retrievedConcepts"`
	RetrievedArtifacts   []HydratedEntity    `json:"retrievedArtifacts"`
	RetrievalSummary     string              `json:"retrievalSummary"`
	ScoringDetails       ScoringDetails      `json:"scoringDetails"`
	SeedEntityIDs        []string            `json:"seedEntityIds"`
	UnmatchedKeyPhrases  []string            `json:"unmatched_key_phrases"`
	Errors               []StageError        `json:"errors"`
	Performance          PerformanceMetadata `json:"performance_metadata"`
	Status               Status              `json:"status"`
}

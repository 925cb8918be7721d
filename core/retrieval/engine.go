package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mnemo-ai/mnemo/core/query"
	"github.com/mnemo-ai/mnemo/model"
)

// Engine orchestrates the six stages of one retrieval request: key phrase
// processing, semantic grounding, graph traversal, metadata pre-hydration,
// scoring and hydration. It owns no state between requests.
type Engine struct {
	vectors VectorSearcher
	graph   GraphRunner
	records RecordFinder
	params  ParameterLoader
	log     *slog.Logger

	enrichRelationships bool
}

// EngineOption configures optional engine behavior.
type EngineOption func(*Engine)

// WithRelationshipEnrichment attaches graph neighbors to every hydrated
// entity. Off by default because it costs one graph query per result.
func WithRelationshipEnrichment() EngineOption {
	return func(e *Engine) { e.enrichRelationships = true }
}

func NewEngine(vectors VectorSearcher, graph GraphRunner, records RecordFinder, params ParameterLoader, logger *slog.Logger, options ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	engine := &Engine{
		vectors: vectors,
		graph:   graph,
		records: records,
		params:  params,
		log:     logger,
	}
	for _, option := range options {
		option(engine)
	}
	return engine
}

// Retrieve runs the full pipeline for one request. It returns an error only
// for invalid requests and for total vector store unavailability; every
// other failure degrades the response and is reported in its Errors list.
func (e *Engine) Retrieve(ctx context.Context, request model.RetrievalRequest) (*model.ExtendedContext, error) {
	execution := model.NewExecutionContext()
	requestLog := e.log.With("requestId", execution.RequestID, "userId", request.UserID)

	// Stage 1: request validation and key phrase normalization.
	stageStart := time.Now()
	if err := query.ValidateUserID(request.UserID); err != nil {
		execution.RecordError(model.StageKeyPhraseProcessing, err, model.ImpactFatal)
		return e.assemble(execution, nil, groundingResult{}, nil, model.UserParameters{}, &model.HydrationResult{}), err
	}
	phrases := normalizeKeyPhrases(request.KeyPhrases)
	if len(phrases) == 0 {
		err := &model.ValidationError{Field: "keyPhrasesForRetrieval", Reason: "no usable key phrases"}
		execution.RecordError(model.StageKeyPhraseProcessing, err, model.ImpactFatal)
		return e.assemble(execution, nil, groundingResult{}, nil, model.UserParameters{}, &model.HydrationResult{}), err
	}
	execution.RecordStage(model.StageKeyPhraseProcessing, true, len(phrases), time.Since(stageStart))

	params := e.effectiveParameters(ctx, request, execution, requestLog)
	deadline := execution.StartedAt.Add(time.Duration(params.Performance.MaxRetrievalTimeMs) * time.Millisecond)

	// Stage 2: semantic grounding.
	stageStart = time.Now()
	grounding := groundKeyPhrases(ctx, e.vectors, phrases, request.UserID, params)
	for _, phraseErr := range grounding.PhraseErrors {
		execution.RecordError(model.StageSemanticGrounding, phraseErr, phraseErrorImpact(phraseErr))
	}
	if len(grounding.Seeds) == 0 && storeUnreachable(grounding.PhraseErrors, len(phrases)) {
		err := grounding.PhraseErrors[0]
		execution.RecordError(model.StageSemanticGrounding, err, model.ImpactFatal)
		execution.RecordStage(model.StageSemanticGrounding, false, 0, time.Since(stageStart))
		return e.assemble(execution, phrases, grounding, nil, params, &model.HydrationResult{}), err
	}
	execution.RecordStage(model.StageSemanticGrounding, true, len(grounding.Seeds), time.Since(stageStart))
	if len(grounding.Seeds) == 0 {
		requestLog.Info("no seed entities found", "phrases", len(phrases))
		return e.assemble(execution, phrases, grounding, nil, params, &model.HydrationResult{}), nil
	}

	seedCandidates := make([]model.CandidateEntity, 0, len(grounding.Seeds))
	for _, seed := range grounding.Seeds {
		seedCandidates = append(seedCandidates, model.CandidateFromSeed(seed))
	}

	// Stage 3: graph traversal.
	var traversed []model.CandidateEntity
	stageStart = time.Now()
	if overBudget(deadline) {
		execution.RecordError(model.StageGraphTraversal, budgetError(model.StageGraphTraversal), model.ImpactDegraded)
		execution.RecordStage(model.StageGraphTraversal, false, 0, 0)
	} else {
		var err error
		traversed, err = expandNeighborhood(ctx, e.graph, grounding.Seeds, request.UserID, params)
		if err != nil {
			execution.RecordError(model.StageGraphTraversal, err, model.ImpactDegraded)
			execution.RecordStage(model.StageGraphTraversal, false, 0, time.Since(stageStart))
			traversed = nil
		} else {
			execution.RecordStage(model.StageGraphTraversal, true, len(traversed), time.Since(stageStart))
		}
	}

	candidates := filterExcludedTypes(
		model.MergeCandidates(seedCandidates, traversed),
		params.Quality.ExcludedEntityTypes,
	)

	// Stage 4: pre-hydration metadata fetch.
	scoringContext := model.ScoringContext{
		SeedEntities: grounding.Seeds,
		Metadata:     map[string]model.EntityMetadata{},
	}
	stageStart = time.Now()
	ids := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		ids = append(ids, candidate.ID)
	}
	metadataCtx, cancelMetadata := context.WithTimeout(ctx, time.Duration(params.Performance.HydrationTimeoutMs)*time.Millisecond)
	metadata, err := e.records.SelectEntityMetadataByIDs(metadataCtx, ids, request.UserID)
	cancelMetadata()
	if err != nil {
		execution.RecordError(model.StagePreHydration, err, model.ImpactDegraded)
		execution.RecordStage(model.StagePreHydration, false, 0, time.Since(stageStart))
	} else {
		scoringContext.Metadata = metadata
		execution.RecordStage(model.StagePreHydration, true, len(metadata), time.Since(stageStart))
	}

	// Stage 5: scoring.
	stageStart = time.Now()
	topN := params.Scoring.TopNForHydration
	if request.MaxResults != nil {
		topN = clampInt(*request.MaxResults, 1, query.MaxLimit)
	}
	scorer, err := NewScorer(params.Scoring.Weights, params.Scoring.RecencyDecayRate)
	if err != nil {
		execution.RecordError(model.StageScoring, err, model.ImpactDegraded)
		scorer, _ = NewScorer(model.DefaultUserParameters().Scoring.Weights, params.Scoring.RecencyDecayRate)
	}
	scored := scorer.Rank(candidates, scoringContext, topN)
	if params.Quality.MinFinalScore > 0 {
		scored = filterMinScore(scored, params.Quality.MinFinalScore)
	}
	execution.RecordStage(model.StageScoring, true, len(scored), time.Since(stageStart))

	// Stage 6: hydration.
	hydration := &model.HydrationResult{}
	stageStart = time.Now()
	if overBudget(deadline) {
		execution.RecordError(model.StageHydration, budgetError(model.StageHydration), model.ImpactDegraded)
		execution.RecordStage(model.StageHydration, false, 0, 0)
	} else {
		hydrator := NewHydrator(e.records, e.graph, e.log)
		hydrationTimeout := time.Duration(params.Performance.HydrationTimeoutMs) * time.Millisecond
		hydration = hydrator.HydrateTop(ctx, scored, request.UserID, hydrationTimeout)
		if len(hydration.Errors) > 0 {
			execution.RecordError(
				model.StageHydration,
				fmt.Errorf("%d of %d entities failed to hydrate", len(hydration.Errors), len(scored)),
				model.ImpactDegraded,
			)
		}
		if e.enrichRelationships && !overBudget(deadline) {
			hydration.Entities = hydrator.EnrichWithRelationships(ctx, hydration.Entities, request.UserID, hydrationTimeout)
		}
		attachMetadata(hydration.Entities, scoringContext.Metadata)
		execution.RecordStage(model.StageHydration, len(hydration.Errors) == 0, len(hydration.Entities), time.Since(stageStart))
	}

	response := e.assemble(execution, phrases, grounding, scored, params, hydration)
	response.ScoringDetails.TotalCandidatesEvaluated = len(candidates)
	requestLog.Info("retrieval finished",
		"status", response.Status,
		"seeds", len(grounding.Seeds),
		"candidates", len(candidates),
		"hydrated", len(hydration.Entities),
		"durationMs", response.Performance.TotalExecutionTimeMs,
	)
	return response, nil
}

// effectiveParameters resolves user parameters and applies per-request
// overrides. An invalid override set is reported and ignored.
func (e *Engine) effectiveParameters(ctx context.Context, request model.RetrievalRequest, execution *model.ExecutionContext, requestLog *slog.Logger) model.UserParameters {
	params := e.params.Load(ctx, request.UserID)
	if request.UserParameters == nil {
		return params
	}
	merged := model.MergeUserParameters(params, request.UserParameters)
	if err := merged.Validate(); err != nil {
		execution.RecordError(model.StageKeyPhraseProcessing, err, model.ImpactLogged)
		requestLog.Warn("request parameter overrides rejected", "error", err)
		return params
	}
	return merged
}

func (e *Engine) assemble(execution *model.ExecutionContext, phrases []string, grounding groundingResult, scored []model.ScoredEntity, params model.UserParameters, hydration *model.HydrationResult) *model.ExtendedContext {
	response := &model.ExtendedContext{
		RetrievedMemoryUnits: []model.HydratedEntity{},
		RetrievedConcepts:    []model.HydratedEntity{},
		RetrievedArtifacts:   []model.HydratedEntity{},
		UnmatchedKeyPhrases:  grounding.UnmatchedPhrases,
		Errors:               execution.Errors,
		Status:               execution.Status(),
	}
	for _, entity := range hydration.Entities {
		switch entity.Type {
		case model.EntityTypeMemoryUnit:
			response.RetrievedMemoryUnits = append(response.RetrievedMemoryUnits, entity)
		case model.EntityTypeConcept:
			response.RetrievedConcepts = append(response.RetrievedConcepts, entity)
		case model.EntityTypeDerivedArtifact:
			response.RetrievedArtifacts = append(response.RetrievedArtifacts, entity)
		}
	}

	response.SeedEntityIDs = make([]string, 0, len(grounding.Seeds))
	for _, seed := range grounding.Seeds {
		response.SeedEntityIDs = append(response.SeedEntityIDs, seed.ID)
	}

	response.ScoringDetails = model.ScoringDetails{
		SeedEntitiesFound: len(grounding.Seeds),
		AverageScore:      averageScore(scored),
		ScoringWeights:    params.Scoring.Weights,
	}

	response.Performance = model.PerformanceMetadata{
		TotalExecutionTimeMs: time.Since(execution.StartedAt).Milliseconds(),
		StageTimings:         execution.StageTimings(),
		ResultCounts: map[string]int{
			"memoryUnits": len(response.RetrievedMemoryUnits),
			"concepts":    len(response.RetrievedConcepts),
			"artifacts":   len(response.RetrievedArtifacts),
			"notFound":    len(hydration.NotFound),
		},
	}

	response.RetrievalSummary = fmt.Sprintf(
		"retrieved %d entities from %d key phrases (%d seeds, %d unmatched)",
		len(hydration.Entities), len(phrases), len(grounding.Seeds), len(grounding.UnmatchedPhrases),
	)
	return response
}

// phraseErrorImpact classifies a single-phrase grounding failure. A store
// timeout or outage has shrunk the seed set, so the result is degraded;
// anything else only drops that phrase.
func phraseErrorImpact(err error) model.Impact {
	var timeout *model.StoreTimeoutError
	var unavailable *model.StoreUnavailableError
	if errors.As(err, &timeout) || errors.As(err, &unavailable) {
		return model.ImpactDegraded
	}
	return model.ImpactLogged
}

// storeUnreachable reports whether grounding failed wholesale: every phrase
// errored and at least one failure was the store itself being unreachable.
func storeUnreachable(phraseErrors []error, phraseCount int) bool {
	if len(phraseErrors) < phraseCount {
		return false
	}
	for _, err := range phraseErrors {
		var unavailable *model.StoreUnavailableError
		if errors.As(err, &unavailable) {
			return true
		}
	}
	return false
}

func filterExcludedTypes(candidates []model.CandidateEntity, excluded []model.EntityType) []model.CandidateEntity {
	if len(excluded) == 0 {
		return candidates
	}
	excludedSet := make(map[model.EntityType]struct{}, len(excluded))
	for _, entityType := range excluded {
		excludedSet[entityType] = struct{}{}
	}
	kept := candidates[:0]
	for _, candidate := range candidates {
		if _, drop := excludedSet[candidate.Type]; !drop {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func filterMinScore(scored []model.ScoredEntity, minScore float64) []model.ScoredEntity {
	kept := scored[:0]
	for _, entity := range scored {
		if entity.FinalScore >= minScore {
			kept = append(kept, entity)
		}
	}
	return kept
}

func attachMetadata(entities []model.HydratedEntity, metadata map[string]model.EntityMetadata) {
	for index := range entities {
		if entry, ok := metadata[entities[index].ID]; ok {
			snapshot := entry
			entities[index].Metadata = &snapshot
		}
	}
}

func averageScore(scored []model.ScoredEntity) float64 {
	if len(scored) == 0 {
		return 0
	}
	sum := 0.0
	for _, entity := range scored {
		sum += entity.FinalScore
	}
	return sum / float64(len(scored))
}

func overBudget(deadline time.Time) bool {
	return time.Now().After(deadline)
}

func budgetError(stage model.Stage) error {
	return fmt.Errorf("retrieval time budget exhausted before %v", stage)
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

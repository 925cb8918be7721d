package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mnemo-ai/mnemo/core/query"
	"github.com/mnemo-ai/mnemo/model"
)

const relationshipsPerEntity = 5

// Hydrator loads the full records behind ranked entity references. Batches
// run per entity type so one slow or failing table never blocks the others.
type Hydrator struct {
	records RecordFinder
	graph   GraphRunner
	log     *slog.Logger
}

func NewHydrator(records RecordFinder, graph GraphRunner, logger *slog.Logger) *Hydrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hydrator{records: records, graph: graph, log: logger}
}

// HydrateTop hydrates the already ranked entities and returns them in rank
// order. Entities whose record is gone land in NotFound, a failed type batch
// produces one error per affected entity while the other types still hydrate.
func (h *Hydrator) HydrateTop(ctx context.Context, scored []model.ScoredEntity, userID string, timeout time.Duration) *model.HydrationResult {
	refs := make([]model.EntityRef, 0, len(scored))
	for _, entity := range scored {
		refs = append(refs, model.EntityRef{ID: entity.ID, Type: entity.Type})
	}
	return h.hydrateRefs(ctx, refs, userID, timeout)
}

// Hydrate loads the records for an explicit list of entity references.
func (h *Hydrator) Hydrate(ctx context.Context, request model.HydrationRequest, timeout time.Duration) *model.HydrationResult {
	return h.hydrateRefs(ctx, request.Entities, request.UserID, timeout)
}

func (h *Hydrator) hydrateRefs(ctx context.Context, refs []model.EntityRef, userID string, timeout time.Duration) *model.HydrationResult {
	result := &model.HydrationResult{}
	if len(refs) == 0 {
		return result
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	idsByType := make(map[model.EntityType][]string)
	for _, ref := range refs {
		if !ref.Type.Valid() {
			result.Errors = append(result.Errors, model.HydrationError{
				ID:    ref.ID,
				Type:  ref.Type,
				Error: fmt.Sprintf("unknown entity type %v", ref.Type),
			})
			continue
		}
		idsByType[ref.Type] = append(idsByType[ref.Type], ref.ID)
	}

	type batchOutcome struct {
		entityType model.EntityType
		records    map[string]model.Record
		err        error
	}
	outcomes := make(chan batchOutcome, len(idsByType))
	var waitGroup sync.WaitGroup
	for entityType, ids := range idsByType {
		waitGroup.Add(1)
		go func(entityType model.EntityType, ids []string) {
			defer waitGroup.Done()
			records, err := h.records.SelectRecordsByIDs(ctx, entityType, ids, userID)
			outcomes <- batchOutcome{entityType: entityType, records: records, err: err}
		}(entityType, ids)
	}
	waitGroup.Wait()
	close(outcomes)

	recordsByID := make(map[string]model.Record)
	failedTypes := make(map[model.EntityType]error)
	for outcome := range outcomes {
		if outcome.err != nil {
			failedTypes[outcome.entityType] = outcome.err
			h.log.Warn("hydration batch failed", "entityType", outcome.entityType, "error", outcome.err)
			continue
		}
		for id, record := range outcome.records {
			recordsByID[id] = record
		}
	}

	// Reassemble in the caller's order.
	for _, ref := range refs {
		if !ref.Type.Valid() {
			continue
		}
		if batchErr, failed := failedTypes[ref.Type]; failed {
			result.Errors = append(result.Errors, model.HydrationError{
				ID:    ref.ID,
				Type:  ref.Type,
				Error: batchErr.Error(),
			})
			continue
		}
		record, ok := recordsByID[ref.ID]
		if !ok {
			result.NotFound = append(result.NotFound, ref)
			continue
		}
		result.Entities = append(result.Entities, model.HydratedEntity{
			ID:   ref.ID,
			Type: ref.Type,
			Data: record,
		})
	}
	return result
}

// EnrichWithRelationships attaches the nearest graph neighbors to each
// hydrated entity. Enrichment is best effort, an entity whose neighbor query
// fails is returned without relationships.
func (h *Hydrator) EnrichWithRelationships(ctx context.Context, entities []model.HydratedEntity, userID string, timeout time.Duration) []model.HydratedEntity {
	if h.graph == nil || len(entities) == 0 {
		return entities
	}
	var waitGroup sync.WaitGroup
	for index := range entities {
		waitGroup.Add(1)
		go func(index int) {
			defer waitGroup.Done()
			entity := &entities[index]
			builtQuery, err := query.EntityNeighbors(entity.ID, userID, relationshipsPerEntity)
			if err != nil {
				h.log.Warn("relationship query rejected", "entityId", entity.ID, "error", err)
				return
			}
			rows, err := h.graph.Run(ctx, builtQuery.QueryBody, builtQuery.Params, timeout)
			if err != nil {
				h.log.Warn("relationship enrichment failed", "entityId", entity.ID, "error", err)
				return
			}
			for _, row := range rows {
				relationship, ok := relationshipFromRow(row)
				if !ok {
					continue
				}
				entity.Relationships = append(entity.Relationships, relationship)
			}
		}(index)
	}
	waitGroup.Wait()
	return entities
}

func relationshipFromRow(row map[string]interface{}) (model.Relationship, bool) {
	direction, _ := row["direction"].(string)
	relationType, _ := row["relType"].(string)
	id, _ := row["id"].(string)
	rawType, _ := row["entityType"].(string)
	if id == "" || relationType == "" {
		return model.Relationship{}, false
	}
	name, _ := row["name"].(string)
	return model.Relationship{
		Direction: model.RelationshipDirection(direction),
		Type:      relationType,
		RelatedEntity: model.RelatedEntityRef{
			ID:   id,
			Type: model.EntityType(rawType),
			Name: name,
		},
	}, true
}

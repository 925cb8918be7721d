package retrieval

import (
	"context"
	"time"

	"github.com/mnemo-ai/mnemo/core/query"
	"github.com/mnemo-ai/mnemo/graphdb"
	"github.com/mnemo-ai/mnemo/helper"
	"github.com/mnemo-ai/mnemo/model"
)

// expandNeighborhood runs a bounded neighborhood expansion from the given
// seeds and maps the rows to candidate entities. Seeds beyond the configured
// maximum are ignored, rows with an unknown entity type are skipped.
func expandNeighborhood(ctx context.Context, runner GraphRunner, seeds []model.SeedEntity, userID string, params model.UserParameters) ([]model.CandidateEntity, error) {
	if len(seeds) == 0 {
		return nil, nil
	}
	maxSeeds := params.GraphQuery.MaxSeedEntities
	if maxSeeds > 0 && len(seeds) > maxSeeds {
		seeds = seeds[:maxSeeds]
	}

	refs := make([]model.EntityRef, 0, len(seeds))
	for _, seed := range seeds {
		refs = append(refs, model.EntityRef{ID: seed.ID, Type: seed.Type})
	}
	builtQuery, err := query.Neighborhood(refs, userID, params.GraphQuery.MaxHops, params.GraphQuery.MaxResultLimit)
	if err != nil {
		return nil, helper.NewError("expandNeighborhood", err)
	}

	timeout := time.Duration(params.GraphQuery.TimeoutMs) * time.Millisecond
	rows, err := runner.Run(ctx, builtQuery.QueryBody, builtQuery.Params, timeout)
	if err != nil {
		return nil, err
	}
	return candidatesFromRows(rows), nil
}

func candidatesFromRows(rows []graphdb.Row) []model.CandidateEntity {
	candidates := make([]model.CandidateEntity, 0, len(rows))
	for _, row := range rows {
		id, ok := row["id"].(string)
		if !ok || id == "" {
			continue
		}
		rawType, ok := row["type"].(string)
		if !ok {
			continue
		}
		entityType := model.EntityType(rawType)
		if !entityType.Valid() {
			continue
		}
		hop, ok := rowInt(row["hop"])
		if !ok || hop < 0 {
			continue
		}
		candidates = append(candidates, model.CandidateEntity{
			ID:          id,
			Type:        entityType,
			HopDistance: &hop,
		})
	}
	return candidates
}

// rowInt normalizes the numeric types the graph driver hands back.
func rowInt(value interface{}) (int, bool) {
	switch typed := value.(type) {
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case float64:
		return int(typed), true
	default:
		return 0, false
	}
}

package query

import (
	"fmt"

	"github.com/mnemo-ai/mnemo/model"
)

// BuiltQuery is a governed, executable graph query.
type BuiltQuery struct {
	Key       string
	QueryBody string
	Params    map[string]interface{}
}

// Build looks up a named template, merges runtime parameters over the
// template defaults (runtime wins, never the reverse) and passes the final
// set through the governor. An unknown template key is a fatal error for
// the call.
func Build(templateKey string, runtimeParams map[string]interface{}) (*BuiltQuery, error) {
	template, ok := templates[templateKey]
	if !ok {
		return nil, &model.ValidationError{
			Field:  "templateKey",
			Reason: fmt.Sprintf("unknown query template %q", templateKey),
		}
	}

	final := make(map[string]interface{}, len(template.DefaultParams)+len(runtimeParams))
	for key, value := range template.DefaultParams {
		final[key] = value
	}
	for key, value := range runtimeParams {
		final[key] = value
	}

	if v, present := final["limit"]; present {
		n, ok := asNumber(v)
		if !ok {
			return nil, &model.ValidationError{Field: "limit", Reason: "must be a number"}
		}
		truncated := int(n)
		if truncated < 0 {
			return nil, &model.ValidationError{Field: "limit", Reason: "must not be negative"}
		}
		final["limit"] = truncated
	}

	if err := Validate(templateKey, final, template.AllowedParams); err != nil {
		return nil, err
	}

	return &BuiltQuery{
		Key:       templateKey,
		QueryBody: template.QueryBody,
		Params:    final,
	}, nil
}

// Neighborhood builds the bounded neighborhood expansion query for the
// pipeline. Caller-supplied hops and limit are clamped to the hard
// ceilings, never rejected.
func Neighborhood(seeds []model.EntityRef, userID string, hops, limit int) (*BuiltQuery, error) {
	return Build(TemplateNeighborhood, map[string]interface{}{
		"seedEntities": seedParams(seeds),
		"userId":       userID,
		"hops":         clamp(hops, 1, MaxHops),
		"limit":        clamp(limit, 1, MaxLimit),
	})
}

// Timeline builds the creation-time ordered expansion query.
func Timeline(seeds []model.EntityRef, userID string, limit int) (*BuiltQuery, error) {
	return Build(TemplateTimeline, map[string]interface{}{
		"seedEntities": seedParams(seeds),
		"userId":       userID,
		"limit":        clamp(limit, 1, MaxLimit),
	})
}

// ConceptRelations builds the concept/relationship expansion query.
func ConceptRelations(seeds []model.EntityRef, userID string, limit int) (*BuiltQuery, error) {
	return Build(TemplateConceptRelations, map[string]interface{}{
		"seedEntities": seedParams(seeds),
		"userId":       userID,
		"limit":        clamp(limit, 1, MaxLimit),
	})
}

// EntityNeighbors builds the immediate-neighbor query used for
// relationship enrichment.
func EntityNeighbors(entityID, userID string, limit int) (*BuiltQuery, error) {
	return Build(TemplateEntityNeighbors, map[string]interface{}{
		"entityId": entityID,
		"userId":   userID,
		"limit":    clamp(limit, 1, MaxLimit),
	})
}

func seedParams(seeds []model.EntityRef) []map[string]interface{} {
	params := make([]map[string]interface{}, 0, len(seeds))
	for _, seed := range seeds {
		params = append(params, map[string]interface{}{
			"id":   seed.ID,
			"type": string(seed.Type),
		})
	}
	return params
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

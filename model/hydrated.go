package model

// RelationshipDirection marks whether an edge points away from or toward
// the hydrated entity.
type RelationshipDirection string

const (
	DirectionOutgoing RelationshipDirection = "outgoing"
	DirectionIncoming RelationshipDirection = "incoming"
)

// RelatedEntityRef identifies the other end of a relationship.
type RelatedEntityRef struct {
	ID   string     `json:"id"`
	Type EntityType `json:"type"`
	Name string     `json:"name,omitempty"`
}

// Relationship is one normalized graph edge attached to a hydrated entity.
type Relationship struct {
	Direction     RelationshipDirection `json:"direction"`
	Type          string                `json:"type"`
	RelatedEntity RelatedEntityRef      `json:"relatedEntity"`
}

// HydratedEntity is the final externally visible unit: full record content
// plus optional relationship enrichment and the metadata snapshot. Its
// lifecycle ends when the response is returned; nothing is cached.
type HydratedEntity struct {
	ID            string          `json:"id"`
	Type          EntityType      `json:"type"`
	Data          Record          `json:"data"`
	Relationships []Relationship  `json:"relationships,omitempty"`
	Metadata      *EntityMetadata `json:"metadata,omitempty"`
}

// HydrationRequest asks for full content of arbitrary id/type pairs, for
// callers outside the main pipeline.
type HydrationRequest struct {
	UserID   string      `json:"userId"`
	Entities []EntityRef `json:"entities"`
}

// EntityRef is one id/type pair to hydrate.
type EntityRef struct {
	ID   string     `json:"id"`
	Type EntityType `json:"type"`
}

// HydrationError reports one entity that could not be hydrated.
type HydrationError struct {
	ID    string     `json:"id"`
	Type  EntityType `json:"type"`
	Error string     `json:"error"`
}

// HydrationResult is the structured outcome of a hydration call: partial
// success is always preferred to total failure, so a batch-level error is
// fanned out into one HydrationError per requested id.
type HydrationResult struct {
	Entities []HydratedEntity `json:"entities"`
	NotFound []EntityRef      `json:"notFound"`
	Errors   []HydrationError `json:"errors"`
}

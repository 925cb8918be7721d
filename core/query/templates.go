package query

// Template keys. These are the only queries this subsystem ever sends to
// the graph store.
const (
	TemplateNeighborhood     = "neighborhood_expansion"
	TemplateTimeline         = "timeline_expansion"
	TemplateConceptRelations = "concept_relations"
	TemplateEntityNeighbors  = "entity_neighbors"
)

const neighborhoodExpansionQuery = `
	UNWIND $seedEntities AS seed
	MATCH (start:Entity {id: seed.id, user_id: $userId})
	MATCH path = (start)-[:RELATED_TO*1..3]-(neighbor:Entity)
	WHERE neighbor.user_id = $userId
	  AND length(path) <= $hops
	  AND neighbor.id <> start.id
	WITH neighbor, min(length(path)) AS hop
	RETURN DISTINCT neighbor.id AS id, neighbor.entity_type AS type, hop
	ORDER BY hop ASC
	LIMIT $limit
`

const timelineExpansionQuery = `
	UNWIND $seedEntities AS seed
	MATCH (start:Entity {id: seed.id, user_id: $userId})
	MATCH (start)-[:RELATED_TO*1..2]-(neighbor:Entity)
	WHERE neighbor.user_id = $userId AND neighbor.id <> start.id
	WITH DISTINCT neighbor
	RETURN neighbor.id AS id, neighbor.entity_type AS type, neighbor.created_at AS createdAt, 1 AS hop
	ORDER BY neighbor.created_at DESC
	LIMIT $limit
`

const conceptRelationsQuery = `
	UNWIND $seedEntities AS seed
	MATCH (start:Entity {id: seed.id, user_id: $userId})-[r]-(related:Entity {entity_type: 'Concept'})
	WHERE related.user_id = $userId AND related.id <> start.id
	WITH DISTINCT related, type(r) AS relation
	RETURN related.id AS id, related.entity_type AS type, relation, 1 AS hop
	LIMIT $limit
`

const entityNeighborsQuery = `
	MATCH (n:Entity {id: $entityId, user_id: $userId})
	CALL {
		WITH n
		MATCH (n)-[r]->(m:Entity)
		RETURN 'outgoing' AS direction, type(r) AS relType, m.id AS id, m.entity_type AS entityType, m.name AS name
		UNION
		WITH n
		MATCH (m:Entity)-[r]->(n)
		RETURN 'incoming' AS direction, type(r) AS relType, m.id AS id, m.entity_type AS entityType, m.name AS name
	}
	RETURN direction, relType, id, entityType, name
	LIMIT $limit
`

// Template is one named, pre-approved graph query. Templates are versioned
// with the code; they are never constructed from user input.
type Template struct {
	Description   string
	QueryBody     string
	AllowedParams map[string]struct{}
	DefaultParams map[string]interface{}
}

var templates = map[string]Template{
	TemplateNeighborhood: {
		Description:   "Bounded neighborhood expansion from a set of seed entities.",
		QueryBody:     neighborhoodExpansionQuery,
		AllowedParams: allow("seedEntities", "userId", "hops", "limit"),
		DefaultParams: map[string]interface{}{"hops": 2, "limit": 25},
	},
	TemplateTimeline: {
		Description:   "Neighborhood expansion ordered by entity creation time.",
		QueryBody:     timelineExpansionQuery,
		AllowedParams: allow("seedEntities", "userId", "limit"),
		DefaultParams: map[string]interface{}{"limit": 20},
	},
	TemplateConceptRelations: {
		Description:   "Concepts directly related to the seed entities, with the relation type.",
		QueryBody:     conceptRelationsQuery,
		AllowedParams: allow("seedEntities", "userId", "limit"),
		DefaultParams: map[string]interface{}{"limit": 20},
	},
	TemplateEntityNeighbors: {
		Description:   "Immediate incoming and outgoing neighbors of one entity.",
		QueryBody:     entityNeighborsQuery,
		AllowedParams: allow("entityId", "userId", "limit"),
		DefaultParams: map[string]interface{}{"limit": 5},
	},
}

func allow(names ...string) map[string]struct{} {
	allowed := make(map[string]struct{}, len(names))
	for _, name := range names {
		allowed[name] = struct{}{}
	}
	return allowed
}

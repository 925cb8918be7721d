package retrieval

import (
	"context"
	"time"

	"github.com/mnemo-ai/mnemo/graphdb"
	"github.com/mnemo-ai/mnemo/model"
)

// VectorSearcher resolves a free-text phrase to the entities whose embeddings
// are closest to it, scoped to a single user.
type VectorSearcher interface {
	SimilaritySearch(ctx context.Context, phrase string, userID string, limit int, threshold float64, timeout time.Duration) ([]model.SeedEntity, error)
}

// GraphRunner executes a read query against the graph store.
type GraphRunner interface {
	Run(ctx context.Context, queryBody string, params map[string]interface{}, timeout time.Duration) ([]graphdb.Row, error)
}

// RecordFinder loads full records and scoring metadata from relational storage.
type RecordFinder interface {
	SelectRecordsByIDs(ctx context.Context, entityType model.EntityType, ids []string, userID string) (map[string]model.Record, error)
	SelectEntityMetadataByIDs(ctx context.Context, ids []string, userID string) (map[string]model.EntityMetadata, error)
}

// ParameterLoader resolves the effective parameters for a user.
type ParameterLoader interface {
	Load(ctx context.Context, userID string) model.UserParameters
}

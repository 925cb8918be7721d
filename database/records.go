package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mnemo-ai/mnemo/helper"
	"github.com/mnemo-ai/mnemo/model"
)

// RecordsDBHandlerFunctions defines the interface for system-of-record
// reads. All methods are batched: one round-trip per call, never one per
// entity.
type RecordsDBHandlerFunctions interface {
	SelectRecordsByIDs(ctx context.Context, entityType model.EntityType, ids []string, userID string) (map[string]model.Record, error)
	SelectEntityMetadataByIDs(ctx context.Context, ids []string, userID string) (map[string]model.EntityMetadata, error)
}

// RecordsDBHandler reads full entity content and metadata snapshots from
// the relational system-of-record. It performs no writes; the schema is
// owned by the ingestion subsystem.
type RecordsDBHandler struct {
	db *helper.Database
}

// NewRecordsDBHandler creates a records handler and makes sure the tables
// it reads exist.
func NewRecordsDBHandler(db *helper.Database) (*RecordsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	handler := &RecordsDBHandler{db: db}

	if err := handler.CreateTables(); err != nil {
		return nil, helper.NewError("create tables", err)
	}

	db.Logger.Info("Initialized RecordsDBHandler")

	return handler, nil
}

var recordTables = map[model.EntityType]string{
	model.EntityTypeMemoryUnit:      "memory_units",
	model.EntityTypeConcept:         "concepts",
	model.EntityTypeDerivedArtifact: "derived_artifacts",
}

// CreateTables creates the record tables when they do not exist yet. In
// production the ingestion subsystem owns this schema; this keeps fresh
// environments and tests bootstrapable.
func (h *RecordsDBHandler) CreateTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, table := range recordTables {
		_, err := h.db.Instance.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %v (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				data JSONB NOT NULL DEFAULT '{}'::jsonb,
				importance_score DOUBLE PRECISION,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				last_modified TIMESTAMPTZ
			);
			CREATE INDEX IF NOT EXISTS idx_%v_user_id ON %v (user_id);
		`, table, table, table))
		if err != nil {
			return helper.NewError(fmt.Sprintf("create table %v", table), err)
		}
	}

	h.db.Logger.Info("Checked/created record tables")

	return nil
}

// SelectRecordsByIDs fetches full content for the given ids of one entity
// type in a single batched query. Ids not present in the table are simply
// absent from the returned map.
func (h *RecordsDBHandler) SelectRecordsByIDs(ctx context.Context, entityType model.EntityType, ids []string, userID string) (map[string]model.Record, error) {
	table, ok := recordTables[entityType]
	if !ok {
		return nil, helper.NewError("select records", fmt.Errorf("unknown entity type %q", entityType))
	}
	if len(ids) == 0 {
		return map[string]model.Record{}, nil
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		fmt.Sprintf(`SELECT id, data FROM %v WHERE id = ANY($1) AND user_id = $2`, table),
		pq.Array(ids),
		userID,
	)
	if err != nil {
		return nil, helper.NewError(fmt.Sprintf("select %v by ids", table), err)
	}
	defer rows.Close()

	records := make(map[string]model.Record, len(ids))
	for rows.Next() {
		var id string
		var data model.Record
		if err := rows.Scan(&id, &data); err != nil {
			return nil, helper.NewError("scan record", err)
		}
		records[id] = data
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("iterate records", err)
	}

	return records, nil
}

// SelectEntityMetadataByIDs fetches the lightweight scoring snapshot for
// the given ids across all three record tables without touching the
// content column.
func (h *RecordsDBHandler) SelectEntityMetadataByIDs(ctx context.Context, ids []string, userID string) (map[string]model.EntityMetadata, error) {
	if len(ids) == 0 {
		return map[string]model.EntityMetadata{}, nil
	}

	rows, err := h.db.Instance.QueryContext(ctx, `
		SELECT id, 'MemoryUnit' AS entity_type, importance_score, created_at, last_modified
		FROM memory_units WHERE id = ANY($1) AND user_id = $2
		UNION ALL
		SELECT id, 'Concept', importance_score, created_at, last_modified
		FROM concepts WHERE id = ANY($1) AND user_id = $2
		UNION ALL
		SELECT id, 'DerivedArtifact', importance_score, created_at, last_modified
		FROM derived_artifacts WHERE id = ANY($1) AND user_id = $2
	`, pq.Array(ids), userID)
	if err != nil {
		return nil, helper.NewError("select entity metadata", err)
	}
	defer rows.Close()

	metadata := make(map[string]model.EntityMetadata, len(ids))
	for rows.Next() {
		var m model.EntityMetadata
		if err := rows.Scan(&m.EntityID, &m.EntityType, &m.ImportanceScore, &m.CreatedAt, &m.LastModified); err != nil {
			return nil, helper.NewError("scan entity metadata", err)
		}
		metadata[m.EntityID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("iterate entity metadata", err)
	}

	return metadata, nil
}

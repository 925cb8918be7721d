package mnemo

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/mnemo-ai/mnemo/cache"
	"github.com/mnemo-ai/mnemo/core/params"
	"github.com/mnemo-ai/mnemo/core/pipeline"
	"github.com/mnemo-ai/mnemo/core/retrieval"
	"github.com/mnemo-ai/mnemo/database"
	"github.com/mnemo-ai/mnemo/graphdb"
	"github.com/mnemo-ai/mnemo/helper"
	"github.com/mnemo-ai/mnemo/model"
)

// Configuration wires the three stores the retrieval pipeline reads from.
type Configuration struct {
	// Database is the Postgres system-of-record configuration. Nil loads
	// the configuration from the environment.
	Database *helper.DatabaseConfiguration

	// GraphURI, GraphUsername and GraphPassword configure the Neo4j
	// connection used for traversal and relationship enrichment.
	GraphURI      string
	GraphUsername string
	GraphPassword string

	// RedisURL points at the per-user parameter override cache. Empty
	// disables overrides; every user then gets the system defaults.
	RedisURL string

	// DefaultsPath optionally overrides the embedded parameter defaults
	// with a YAML file on disk.
	DefaultsPath string

	// EnrichRelationships attaches graph neighbors to every hydrated
	// entity at the cost of one extra graph query per result.
	EnrichRelationships bool
}

// Mnemo provides a unified interface to the hybrid retrieval pipeline and
// its underlying store handlers.
type Mnemo struct {
	DB        *helper.Database
	Records   *database.RecordsDBHandler
	Vectors   *database.VectorsDBHandler
	Graph     *graphdb.Client
	Overrides *cache.RedisOverrides
	Engine    *retrieval.Engine
	// Logging
	log *slog.Logger
}

// NewMnemo creates a Mnemo instance with all handlers initialized. The
// default embedder is loaded lazily on the first retrieval so that
// construction stays cheap in environments without the model files.
func NewMnemo(config *Configuration) (*Mnemo, error) {
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	dbConfig := config.Database
	if dbConfig == nil {
		loaded, err := helper.NewDatabaseConfiguration()
		if err != nil {
			return nil, helper.NewError("load database configuration", err)
		}
		dbConfig = loaded
	}
	db := helper.NewDatabase("mnemo", dbConfig, logger)

	records, err := database.NewRecordsDBHandler(db)
	if err != nil {
		return nil, helper.NewError("create records handler", err)
	}

	vectors, err := database.NewVectorsDBHandler(db, pipeline.EmbeddingDim)
	if err != nil {
		return nil, helper.NewError("create vectors handler", err)
	}

	graph, err := graphdb.NewClient(config.GraphURI, config.GraphUsername, config.GraphPassword, logger)
	if err != nil {
		return nil, helper.NewError("create graph client", err)
	}

	var overrides *cache.RedisOverrides
	var overrideGetter params.OverrideGetter
	if config.RedisURL != "" {
		overrides, err = cache.NewRedisOverrides(cache.Options{URL: config.RedisURL})
		if err != nil {
			return nil, helper.NewError("create override cache", err)
		}
		overrideGetter = overrides
	}

	loader := params.NewLoader(params.NewDefaultsCache(config.DefaultsPath, logger), overrideGetter, logger)

	searcher := &vectorSearcher{vectors: vectors}
	var engineOptions []retrieval.EngineOption
	if config.EnrichRelationships {
		engineOptions = append(engineOptions, retrieval.WithRelationshipEnrichment())
	}
	engine := retrieval.NewEngine(searcher, graph, records, loader, logger, engineOptions...)

	return &Mnemo{
		DB:        db,
		Records:   records,
		Vectors:   vectors,
		Graph:     graph,
		Overrides: overrides,
		Engine:    engine,
		log:       logger,
	}, nil
}

// Retrieve runs the full hybrid retrieval pipeline for one request.
func (m *Mnemo) Retrieve(ctx context.Context, request model.RetrievalRequest) (*model.ExtendedContext, error) {
	return m.Engine.Retrieve(ctx, request)
}

// Hydrate loads full record content for an explicit list of entities, for
// callers that already know what they want.
func (m *Mnemo) Hydrate(ctx context.Context, request model.HydrationRequest) *model.HydrationResult {
	hydrator := retrieval.NewHydrator(m.Records, m.Graph, m.log)
	timeout := time.Duration(model.DefaultUserParameters().Performance.HydrationTimeoutMs) * time.Millisecond
	return hydrator.Hydrate(ctx, request, timeout)
}

// Close closes the database, graph and cache connections.
func (m *Mnemo) Close(ctx context.Context) error {
	var errs []error
	if m.DB != nil && m.DB.Instance != nil {
		errs = append(errs, m.DB.Instance.Close())
	}
	if m.Graph != nil {
		errs = append(errs, m.Graph.Close(ctx))
	}
	if m.Overrides != nil {
		errs = append(errs, m.Overrides.Close())
	}
	return errors.Join(errs...)
}

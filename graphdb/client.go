// Package graphdb wraps the Neo4j bolt driver behind the narrow Run
// contract the retrieval pipeline consumes. Works against Neo4j and
// Memgraph.
package graphdb

import (
	"context"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mnemo-ai/mnemo/helper"
	"github.com/mnemo-ai/mnemo/model"
)

// Row is one result record as a column-name keyed map.
type Row map[string]interface{}

// Client executes governed queries against the graph store.
type Client struct {
	driver neo4j.DriverWithContext
	log    *slog.Logger
}

// NewClient connects to the graph store and verifies connectivity.
func NewClient(uri, username, password string, logger *slog.Logger) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, helper.NewError("create graph driver", err)
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, &model.StoreUnavailableError{Store: "graph", Err: err}
	}

	logger.Info("Connected to graph store", slog.String("uri", uri))

	return &Client{driver: driver, log: logger}, nil
}

// Run executes one query with a per-call timeout and returns the result
// rows. A deadline hit is reported as a StoreTimeoutError so the caller
// can classify it as degraded rather than fatal.
func (c *Client) Run(ctx context.Context, queryBody string, params map[string]interface{}, timeout time.Duration) ([]Row, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := neo4j.ExecuteQuery(runCtx, c.driver, queryBody, params, neo4j.EagerResultTransformer)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, &model.StoreTimeoutError{Store: "graph", Err: err}
		}
		return nil, helper.NewError("execute graph query", err)
	}

	rows := make([]Row, 0, len(result.Records))
	for _, record := range result.Records {
		row := make(Row, len(record.Keys))
		for _, key := range record.Keys {
			value, _ := record.Get(key)
			row[key] = value
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Close closes the underlying driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

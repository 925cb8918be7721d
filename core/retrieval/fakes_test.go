package retrieval

import (
	"context"
	"sync"
	"time"

	"github.com/mnemo-ai/mnemo/graphdb"
	"github.com/mnemo-ai/mnemo/model"
)

type fakeVectorSearcher struct {
	mu         sync.Mutex
	seedsByQry map[string][]model.SeedEntity
	err        error
	errByQry   map[string]error
	delay      time.Duration
	calls      []string
	inFlight   int
	maxFlight  int
}

func (f *fakeVectorSearcher) SimilaritySearch(ctx context.Context, phrase, userID string, limit int, threshold float64, timeout time.Duration) ([]model.SeedEntity, error) {
	f.mu.Lock()
	f.calls = append(f.calls, phrase)
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	delay := f.delay
	f.mu.Unlock()

	if delay == 0 {
		delay = time.Millisecond
	}
	time.Sleep(delay)

	f.mu.Lock()
	f.inFlight--
	seeds := f.seedsByQry[phrase]
	err := f.err
	if phraseErr, ok := f.errByQry[phrase]; ok {
		err = phraseErr
	}
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return seeds, nil
}

type fakeGraphRunner struct {
	mu      sync.Mutex
	rows    []graphdb.Row
	err     error
	queries []string
	params  []map[string]interface{}
}

func (f *fakeGraphRunner) Run(ctx context.Context, queryBody string, params map[string]interface{}, timeout time.Duration) ([]graphdb.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, queryBody)
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

type fakeRecordFinder struct {
	mu          sync.Mutex
	recsByType  map[model.EntityType]map[string]model.Record
	errByType   map[model.EntityType]error
	metadata    map[string]model.EntityMetadata
	metadataErr error
}

func (f *fakeRecordFinder) SelectRecordsByIDs(ctx context.Context, entityType model.EntityType, ids []string, userID string) (map[string]model.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errByType[entityType]; err != nil {
		return nil, err
	}
	records := make(map[string]model.Record)
	for _, id := range ids {
		if record, ok := f.recsByType[entityType][id]; ok {
			records[id] = record
		}
	}
	return records, nil
}

func (f *fakeRecordFinder) SelectEntityMetadataByIDs(ctx context.Context, ids []string, userID string) (map[string]model.EntityMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metadataErr != nil {
		return nil, f.metadataErr
	}
	metadata := make(map[string]model.EntityMetadata)
	for _, id := range ids {
		if entry, ok := f.metadata[id]; ok {
			metadata[id] = entry
		}
	}
	return metadata, nil
}

type fakeParameterLoader struct {
	params model.UserParameters
}

func (f *fakeParameterLoader) Load(ctx context.Context, userID string) model.UserParameters {
	return f.params
}

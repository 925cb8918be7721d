package database

import (
	"context"
	"log"
	"testing"

	"github.com/mnemo-ai/mnemo/helper"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

func initDB(t *testing.T) *helper.Database {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")
	return helper.NewTestDatabase(dbConfig)
}

func initRecordsHandler(t *testing.T) (*helper.Database, *RecordsDBHandler) {
	db := initDB(t)
	t.Cleanup(func() { db.Instance.Close() })

	records, err := NewRecordsDBHandler(db)
	require.NoError(t, err)
	return db, records
}

func initVectorsHandler(t *testing.T) (*helper.Database, *VectorsDBHandler) {
	db := initDB(t)
	t.Cleanup(func() { db.Instance.Close() })

	vectors, err := NewVectorsDBHandler(db, 3)
	require.NoError(t, err)
	return db, vectors
}

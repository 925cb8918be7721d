package main

import (
	"context"
	"fmt"
	"log"

	mnemo "github.com/mnemo-ai/mnemo"
	"github.com/mnemo-ai/mnemo/helper"
	"github.com/mnemo-ai/mnemo/model"
)

func main() {
	// Start a test PostgreSQL container for the system-of-record and the
	// vector index. The graph store is expected on localhost; traversal
	// degrades gracefully when it is unreachable.
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "mnemo_test",
		Username: "postgres",
		Password: "postgres",
		SSLMode:  "disable",
	}

	m, err := mnemo.NewMnemo(&mnemo.Configuration{
		Database:      dbConfig,
		GraphURI:      "bolt://localhost:7687",
		GraphUsername: "neo4j",
		GraphPassword: "password",
	})
	if err != nil {
		log.Fatalf("Failed to create mnemo: %v", err)
	}
	defer m.Close(context.Background())

	request := model.RetrievalRequest{
		KeyPhrases: []string{"ocean conservation", "beach cleanup"},
		UserID:     "dev-user-123",
	}

	fmt.Printf("Retrieving for phrases: %v\n", request.KeyPhrases)

	response, err := m.Retrieve(context.Background(), request)
	if err != nil {
		log.Fatalf("Failed to retrieve: %v", err)
	}

	fmt.Printf("\nStatus: %s\n", response.Status)
	fmt.Printf("Summary: %s\n", response.RetrievalSummary)
	fmt.Printf("Seed entities: %v\n", response.SeedEntityIDs)
	fmt.Printf("Unmatched phrases: %v\n", response.UnmatchedKeyPhrases)

	for i, unit := range response.RetrievedMemoryUnits {
		fmt.Printf("\n--- Memory unit %d ---\n", i+1)
		fmt.Printf("ID: %s\n", unit.ID)
		fmt.Printf("Data: %v\n", unit.Data)
	}
	for i, concept := range response.RetrievedConcepts {
		fmt.Printf("\n--- Concept %d ---\n", i+1)
		fmt.Printf("ID: %s\n", concept.ID)
		fmt.Printf("Data: %v\n", concept.Data)
	}

	fmt.Printf("\nTotal execution time: %dms\n", response.Performance.TotalExecutionTimeMs)
	for stage, ms := range response.Performance.StageTimings {
		fmt.Printf("  %s: %dms\n", stage, ms)
	}

	fmt.Println("\nBasic example completed!")
}

package retrieval

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mnemo-ai/mnemo/core/query"
	"github.com/mnemo-ai/mnemo/model"
)

type groundingResult struct {
	Seeds            []model.SeedEntity
	UnmatchedPhrases []string
	PhraseErrors     []error
}

type phraseOutcome struct {
	seeds []model.SeedEntity
	err   error
}

// normalizeKeyPhrases trims, sanitizes and de-duplicates key phrases while
// keeping their original order. Phrases that are empty after sanitization
// are dropped.
func normalizeKeyPhrases(phrases []string) []string {
	seen := make(map[string]struct{}, len(phrases))
	normalized := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		cleaned := query.SanitizeFreeText(strings.TrimSpace(phrase))
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		normalized = append(normalized, cleaned)
	}
	return normalized
}

// groundKeyPhrases runs one similarity search per phrase, at most
// maxConcurrentPhrases at a time, and assembles the seeds in phrase order so
// downstream ranking stays deterministic. Phrases that match nothing land in
// UnmatchedPhrases, phrases whose search failed land in PhraseErrors.
func groundKeyPhrases(ctx context.Context, searcher VectorSearcher, phrases []string, userID string, params model.UserParameters) groundingResult {
	concurrency := params.Performance.MaxConcurrentPhrases
	if concurrency < 1 {
		concurrency = 1
	}
	timeout := time.Duration(params.VectorSearch.TimeoutMs) * time.Millisecond

	outcomes := make([]phraseOutcome, len(phrases))
	semaphore := make(chan struct{}, concurrency)
	var waitGroup sync.WaitGroup
	for index, phrase := range phrases {
		waitGroup.Add(1)
		go func(index int, phrase string) {
			defer waitGroup.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			seeds, err := searcher.SimilaritySearch(
				ctx,
				phrase,
				userID,
				params.VectorSearch.ResultsPerPhrase,
				params.VectorSearch.SimilarityThreshold,
				timeout,
			)
			outcomes[index] = phraseOutcome{seeds: seeds, err: err}
		}(index, phrase)
	}
	waitGroup.Wait()

	result := groundingResult{}
	for index, outcome := range outcomes {
		if outcome.err != nil {
			result.PhraseErrors = append(result.PhraseErrors, outcome.err)
			continue
		}
		if len(outcome.seeds) == 0 {
			result.UnmatchedPhrases = append(result.UnmatchedPhrases, phrases[index])
			continue
		}
		result.Seeds = append(result.Seeds, outcome.seeds...)
	}
	result.Seeds = dedupeSeeds(result.Seeds)
	return result
}

// dedupeSeeds keeps the first occurrence of each entity and lifts its
// similarity to the maximum seen across phrases.
func dedupeSeeds(seeds []model.SeedEntity) []model.SeedEntity {
	indexByID := make(map[string]int, len(seeds))
	deduped := make([]model.SeedEntity, 0, len(seeds))
	for _, seed := range seeds {
		if existing, ok := indexByID[seed.ID]; ok {
			if seed.SimilarityScore > deduped[existing].SimilarityScore {
				deduped[existing].SimilarityScore = seed.SimilarityScore
			}
			continue
		}
		indexByID[seed.ID] = len(deduped)
		deduped = append(deduped, seed)
	}
	return deduped
}

// Package pipeline turns key phrases into query embeddings for the vector
// index.
package pipeline

import (
	"fmt"

	"github.com/knights-analytics/hugot"

	"github.com/mnemo-ai/mnemo/helper"
)

// EmbedFunc generates an embedding for a piece of text.
type EmbedFunc func(text string) ([]float32, error)

// EmbeddingDim is the output dimension of the default embedder.
const EmbeddingDim = 384

// DefaultEmbedder creates an embedder using the all-MiniLM-L6-v2 sentence
// transformer (384 dimensions), downloading the model on first use.
func DefaultEmbedder() (EmbedFunc, error) {
	modelPath, err := helper.PrepareModel("sentence-transformers/all-MiniLM-L6-v2", "onnx/model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "phrase-embedder",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	return func(text string) ([]float32, error) {
		result, err := sentencePipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}

		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}

		return result.Embeddings[0], nil
	}, nil
}

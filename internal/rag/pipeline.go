package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ttsoftware/ragline/internal/knowledge"
)

// Embedder converts text into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher returns the topK stored records most similar to the vector.
type Searcher interface {
	Search(ctx context.Context, queryVector []float32, topK int) ([]knowledge.Result, error)
}

// Completer answers a question given a grounding context.
type Completer interface {
	Complete(ctx context.Context, question, grounding string) (string, error)
}

// Pipeline answers questions by retrieving grounding passages and handing
// them to the completion model. It is the only entry point the messaging
// layer calls into.
type Pipeline struct {
	embedder  Embedder
	searcher  Searcher
	completer Completer
	topK      int
	logger    *slog.Logger
}

// New creates a Pipeline.
func New(embedder Embedder, searcher Searcher, completer Completer, topK int, logger *slog.Logger) (*Pipeline, error) {
	if embedder == nil || searcher == nil || completer == nil {
		return nil, errors.New("embedder, searcher and completer are required")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		embedder:  embedder,
		searcher:  searcher,
		completer: completer,
		topK:      topK,
		logger:    logger,
	}, nil
}

// Answer runs the full pipeline for one question:
// embed, search, assemble, complete.
//
// Any stage failure aborts the pipeline and surfaces that stage's error.
// There is no partial or degraded-context fallback.
func (p *Pipeline) Answer(ctx context.Context, question string) (string, error) {
	queryVector, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("embedding question: %w", err)
	}

	results, err := p.searcher.Search(ctx, queryVector, p.topK)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}

	grounding := BuildContext(results)
	p.logger.Debug("context assembled", "passages", len(results), "context_length", len(grounding))

	answer, err := p.completer.Complete(ctx, question, grounding)
	if err != nil {
		return "", fmt.Errorf("completing answer: %w", err)
	}

	return answer, nil
}

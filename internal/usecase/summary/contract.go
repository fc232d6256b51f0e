package summary

import (
	"context"

	"github.com/kailas-cloud/expatscout/internal/domain/knowledge"
)

// Generator produces free text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// KnowledgeSearcher retrieves supporting context snippets.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]knowledge.Snippet, error)
}

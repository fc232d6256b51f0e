package knowledge

import (
	"context"

	domknow "github.com/kailas-cloud/expatscout/internal/domain/knowledge"
)

// Repository stores and retrieves knowledge documents.
type Repository interface {
	AddDocuments(ctx context.Context, docs []domknow.Document) error
	Search(ctx context.Context, query, category string, topK int) ([]domknow.Snippet, error)
	Count(ctx context.Context) (int, error)
}

// Loader reads documents from an ingestion file.
type Loader func(path string) ([]domknow.Document, error)

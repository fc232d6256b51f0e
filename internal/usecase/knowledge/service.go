// Package knowledge ingests and searches the supporting-context store.
package knowledge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/expatscout/internal/domain"
	domknow "github.com/kailas-cloud/expatscout/internal/domain/knowledge"
	"github.com/kailas-cloud/expatscout/internal/logger"
)

const ingestBatchSize = 100

// Service wraps a knowledge repository. A nil repository means no store is configured.
type Service struct {
	repo Repository
	load Loader
}

// New creates a knowledge service.
func New(repo Repository, load Loader) *Service {
	return &Service{repo: repo, load: load}
}

// Search returns up to topK snippets relevant to query.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]domknow.Snippet, error) {
	return s.SearchCategory(ctx, query, "", topK)
}

// SearchCategory is Search restricted to one category. An empty category searches everything.
func (s *Service) SearchCategory(ctx context.Context, query, category string, topK int) ([]domknow.Snippet, error) {
	if s.repo == nil {
		return nil, domain.ErrKnowledgeUnavailable
	}
	snippets, err := s.repo.Search(ctx, query, category, topK)
	if err != nil {
		return nil, fmt.Errorf("knowledge search: %w", err)
	}
	return snippets, nil
}

// AddDocuments stores docs in batches.
func (s *Service) AddDocuments(ctx context.Context, docs []domknow.Document) error {
	if s.repo == nil {
		return domain.ErrKnowledgeUnavailable
	}
	for start := 0; start < len(docs); start += ingestBatchSize {
		end := min(start+ingestBatchSize, len(docs))
		if err := s.repo.AddDocuments(ctx, docs[start:end]); err != nil {
			return fmt.Errorf("add documents [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

// LoadFromFile ingests a .json or .parquet file and returns the number of documents stored.
func (s *Service) LoadFromFile(ctx context.Context, path string) (int, error) {
	if s.repo == nil {
		return 0, domain.ErrKnowledgeUnavailable
	}
	docs, err := s.load(path)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", path, err)
	}
	if err := s.AddDocuments(ctx, docs); err != nil {
		return 0, err
	}
	logger.FromContext(ctx).Info("Knowledge file ingested",
		zap.String("path", path),
		zap.Int("documents", len(docs)),
	)
	return len(docs), nil
}

// Count returns the number of stored documents.
func (s *Service) Count(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, domain.ErrKnowledgeUnavailable
	}
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("knowledge count: %w", err)
	}
	return n, nil
}

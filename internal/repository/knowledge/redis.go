// Package knowledge stores supporting-context documents for summaries.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/expatscout/internal/db"
	"github.com/kailas-cloud/expatscout/internal/domain"
	domknow "github.com/kailas-cloud/expatscout/internal/domain/knowledge"
)

// Hash field names.
const (
	fieldContent  = "content"
	fieldCategory = "category"
	fieldMetadata = "metadata"
	fieldVector   = "vector"
)

// store is the consumer interface for the vector knowledge store (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// RedisOptions configures key layout and the HNSW index.
type RedisOptions struct {
	KeyPrefix       string
	Collection      string
	Dimensions      int
	HNSWM           int
	HNSWEFConstruct int
}

// RedisRepo keeps documents as hashes under an FT vector index.
type RedisRepo struct {
	store    store
	embedder domain.Embedder
	opts     RedisOptions
}

// NewRedis creates a vector-backed knowledge repository.
func NewRedis(s store, emb domain.Embedder, opts RedisOptions) *RedisRepo {
	return &RedisRepo{store: s, embedder: emb, opts: opts}
}

func (r *RedisRepo) base() string { return r.opts.KeyPrefix + r.opts.Collection }

// IndexName is the FT index over the collection.
func (r *RedisRepo) IndexName() string { return r.base() + ":idx" }

func (r *RedisRepo) docPrefix() string { return r.base() + ":doc:" }

func (r *RedisRepo) docKey(id string) string { return r.docPrefix() + id }

// EnsureIndex creates the index if it does not exist yet.
func (r *RedisRepo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.IndexName())
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.IndexName(), err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(r.IndexName()).
		Prefix(r.docPrefix()).
		Text(fieldContent).
		Tag(fieldCategory).
		VectorHNSW(fieldVector, r.opts.Dimensions, db.DistanceCosine, r.opts.HNSWM, r.opts.HNSWEFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.IndexName(), err)
	}
	return nil
}

// AddDocuments embeds and stores docs in one pipeline.
func (r *RedisRepo) AddDocuments(ctx context.Context, docs []domknow.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	emb, err := domain.EmbedAll(ctx, r.embedder, texts)
	if err != nil {
		return fmt.Errorf("vectorize documents: %w", err)
	}
	if len(emb.Embeddings) != len(docs) {
		return fmt.Errorf("vectorize documents: got %d vectors for %d documents: %w",
			len(emb.Embeddings), len(docs), domain.ErrEmbeddingProviderError)
	}

	items := make([]db.HashSetItem, len(docs))
	for i, d := range docs {
		fields, err := buildHashFields(d, emb.Embeddings[i])
		if err != nil {
			return fmt.Errorf("document %s: %w", d.ID, err)
		}
		items[i] = db.HashSetItem{Key: r.docKey(d.ID), Fields: fields}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store documents: %w", err)
	}
	return nil
}

// Search returns the topK nearest documents to query, optionally within one category.
func (r *RedisRepo) Search(ctx context.Context, query, category string, topK int) ([]domknow.Snippet, error) {
	if topK <= 0 {
		return nil, nil
	}
	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	q := &db.KNNQuery{
		IndexName:    r.IndexName(),
		Vector:       emb.Embedding,
		K:            topK,
		ReturnFields: []string{fieldContent, fieldMetadata},
	}
	if c := strings.TrimSpace(category); c != "" {
		q.PreFilter = db.TagFilter(fieldCategory, c)
	}

	res, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	out := make([]domknow.Snippet, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, domknow.Snippet{
			Content:  e.Fields[fieldContent],
			Metadata: parseMetadata(e.Fields[fieldMetadata]),
			Score:    e.Score,
		})
	}
	return out, nil
}

// Count returns the number of indexed documents.
func (r *RedisRepo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.IndexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.IndexName(), err)
	}
	return n, nil
}

func buildHashFields(d domknow.Document, vector []float32) (map[string]string, error) {
	md, err := json.Marshal(d.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return map[string]string{
		fieldContent:  d.Content,
		fieldCategory: d.Category,
		fieldMetadata: string(md),
		fieldVector:   db.VectorToBytes(vector),
	}, nil
}

func parseMetadata(raw string) map[string]string {
	md := map[string]string{}
	if raw == "" {
		return md
	}
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return map[string]string{}
	}
	return md
}

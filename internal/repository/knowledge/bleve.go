package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	domknow "github.com/kailas-cloud/expatscout/internal/domain/knowledge"
)

const bleveDocType = "knowledge"

type bleveDoc struct {
	Content  string `json:"content"`
	Category string `json:"category"`
	Metadata string `json:"metadata"`
}

// BleveRepo is a local persistent full-text knowledge index.
type BleveRepo struct {
	index bleve.Index
}

// OpenBleve opens the index at path, creating it if missing.
// An empty path creates an in-memory index.
func OpenBleve(path string) (*BleveRepo, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &BleveRepo{index: idx}, nil
	}

	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open knowledge index %s: %w", path, err)
		}
		return &BleveRepo{index: idx}, nil
	}

	idx, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("create knowledge index %s: %w", path, err)
	}
	return &BleveRepo{index: idx}, nil
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()
	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	doc.AddFieldMappingsAt(fieldContent, content)

	doc.AddFieldMappingsAt(fieldCategory, bleve.NewKeywordFieldMapping())

	// Metadata is stored as JSON for display only.
	md := bleve.NewTextFieldMapping()
	md.Index = false
	md.IncludeInAll = false
	doc.AddFieldMappingsAt(fieldMetadata, md)

	im.AddDocumentMapping(bleveDocType, doc)
	im.DefaultType = bleveDocType
	im.DefaultMapping = doc
	return im
}

// AddDocuments indexes docs in a single batch.
func (b *BleveRepo) AddDocuments(_ context.Context, docs []domknow.Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := b.index.NewBatch()
	for _, d := range docs {
		md, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata %s: %w", d.ID, err)
		}
		doc := bleveDoc{Content: d.Content, Category: d.Category, Metadata: string(md)}
		if err := batch.Index(d.ID, doc); err != nil {
			return fmt.Errorf("index document %s: %w", d.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Search runs a match query over content, optionally within one category.
func (b *BleveRepo) Search(ctx context.Context, query, category string, topK int) ([]domknow.Snippet, error) {
	if topK <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	match := bleve.NewMatchQuery(query)
	match.SetField(fieldContent)
	var q blevequery.Query = match
	if c := strings.TrimSpace(category); c != "" {
		term := bleve.NewTermQuery(c)
		term.SetField(fieldCategory)
		q = bleve.NewConjunctionQuery(match, term)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = topK
	req.Fields = []string{"*"}
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("knowledge search: %w", err)
	}

	out := make([]domknow.Snippet, 0, len(res.Hits))
	for _, hit := range res.Hits {
		content, _ := hit.Fields[fieldContent].(string)
		md, _ := hit.Fields[fieldMetadata].(string)
		out = append(out, domknow.Snippet{
			Content:  content,
			Metadata: parseMetadata(md),
			Score:    hit.Score,
		})
	}
	return out, nil
}

// Count returns the number of indexed documents.
func (b *BleveRepo) Count(_ context.Context) (int, error) {
	n, err := b.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("doc count: %w", err)
	}
	return int(n), nil
}

// Ping reports whether the index is readable.
func (b *BleveRepo) Ping(ctx context.Context) error {
	_, err := b.Count(ctx)
	return err
}

// Close releases the index.
func (b *BleveRepo) Close() error {
	return b.index.Close()
}

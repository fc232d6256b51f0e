package chat

import (
	"context"

	"github.com/kailas-cloud/expatscout/internal/domain/intent"
	"github.com/kailas-cloud/expatscout/internal/domain/record"
	"github.com/kailas-cloud/expatscout/internal/usecase/summary"
)

// Provider fetches records for a topic at a location.
type Provider interface {
	Name() string
	Search(ctx context.Context, topic, location string) ([]record.Record, error)
}

// Extractor analyses the raw query.
type Extractor interface {
	Extract(query string) intent.Extraction
}

// Pipeline filters, deduplicates and orders records for an intent.
type Pipeline interface {
	Run(ctx context.Context, in intent.Intent, recs []record.Record) []record.Record
}

// Summarizer renders the answer text.
type Summarizer interface {
	Summarize(ctx context.Context, in summary.Input) summary.Summary
}

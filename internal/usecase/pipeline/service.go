// Package pipeline filters, deduplicates and orders provider records.
package pipeline

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/expatscout/internal/domain/intent"
	"github.com/kailas-cloud/expatscout/internal/domain/record"
	"github.com/kailas-cloud/expatscout/internal/logger"
	"github.com/kailas-cloud/expatscout/internal/metrics"
)

// Clock supplies today's date as YYYY-MM-DD.
type Clock interface {
	Today() string
}

// Service runs records through the per-intent policy.
type Service struct {
	clock    Clock
	policies map[intent.Intent]Policy
}

// New creates a pipeline service. Intents missing from policies get an empty policy.
func New(clock Clock, policies map[intent.Intent]Policy) *Service {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Service{clock: clock, policies: policies}
}

// Policy returns the policy applied to in.
func (s *Service) Policy(in intent.Intent) Policy {
	return s.policies[in]
}

// Run filters, deduplicates and sorts recs. The input slice is not modified.
func (s *Service) Run(ctx context.Context, in intent.Intent, recs []record.Record) []record.Record {
	p := s.policies[in]
	out := slices.Clone(recs)

	out, drops := Filter(out, p, s.clock.Today())
	if p.Dedupe {
		var n int
		out, n = Dedupe(out, p.DedupeByCompany)
		if n > 0 {
			drops[StageDuplicate] = n
		}
	}
	Sort(out)

	for stage, n := range drops {
		metrics.PipelineDroppedTotal.WithLabelValues(string(in), stage).Add(float64(n))
	}
	logger.FromContext(ctx).Debug("Pipeline done",
		zap.String("intent", string(in)),
		zap.Int("in", len(recs)),
		zap.Int("out", len(out)),
		zap.Any("dropped", drops),
	)
	return out
}

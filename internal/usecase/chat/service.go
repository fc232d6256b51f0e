// Package chat answers a free-text query with aggregated listings and a summary.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/expatscout/internal/domain"
	"github.com/kailas-cloud/expatscout/internal/domain/intent"
	"github.com/kailas-cloud/expatscout/internal/domain/provider"
	"github.com/kailas-cloud/expatscout/internal/domain/record"
	"github.com/kailas-cloud/expatscout/internal/logger"
	"github.com/kailas-cloud/expatscout/internal/metrics"
	"github.com/kailas-cloud/expatscout/internal/usecase/pipeline"
	"github.com/kailas-cloud/expatscout/internal/usecase/summary"
)

// Request is a chat query.
type Request struct {
	Message  string
	Page     int
	PageSize int
}

// Validate rejects blank messages.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("%w: message is required", domain.ErrInvalidRequest)
	}
	return nil
}

// Pagination describes the returned page.
type Pagination struct {
	Page       int
	PageSize   int
	TotalPages int
}

// Response is the answer to a chat query.
type Response struct {
	Intent       intent.Intent
	Query        string
	Location     string
	TotalResults int
	Results      []record.Record
	Summary      summary.Summary
	Pagination   Pagination
	Providers    []provider.Report
}

// Paging bounds page sizes.
type Paging struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Service orchestrates extraction, provider dispatch, the pipeline and the summary.
type Service struct {
	extractor Extractor
	routes    map[intent.Intent][]Provider
	pipeline  Pipeline
	summary   Summarizer
	paging    Paging
}

// New creates a chat service. routes lists the providers queried per intent, in merge order.
func New(
	extractor Extractor,
	routes map[intent.Intent][]Provider,
	pipe Pipeline,
	sum Summarizer,
	paging Paging,
) *Service {
	if paging.DefaultPageSize <= 0 {
		paging.DefaultPageSize = 10
	}
	if paging.MaxPageSize <= 0 {
		paging.MaxPageSize = 100
	}
	return &Service{
		extractor: extractor,
		routes:    routes,
		pipeline:  pipe,
		summary:   sum,
		paging:    paging,
	}
}

// Normalize applies page defaults and bounds.
func (s *Service) Normalize(req Request) Request {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = s.paging.DefaultPageSize
	}
	req.PageSize = min(req.PageSize, s.paging.MaxPageSize)
	return req
}

// Handle answers req. Provider and generation failures degrade the answer
// instead of failing it.
func (s *Service) Handle(ctx context.Context, req Request) Response {
	start := time.Now()
	req = s.Normalize(req)

	ex := s.extractor.Extract(req.Message)
	log := logger.FromContext(ctx).With(
		zap.String("intent", string(ex.Intent)),
		zap.String("location", ex.Location),
		zap.String("topic", ex.Topic),
	)
	ctx = logger.ContextWithLogger(ctx, log)

	recs, reports := s.dispatch(ctx, ex)
	recs = s.pipeline.Run(ctx, ex.Intent, recs)

	sum := s.summary.Summarize(ctx, summary.Input{
		Query:    req.Message,
		Location: ex.Location,
		Total:    len(recs),
		Results:  recs,
		Intent:   ex.Intent,
	})

	page := pipeline.Paginate(recs, req.Page, req.PageSize)

	metrics.ChatRequestsTotal.WithLabelValues(string(ex.Intent)).Inc()
	metrics.ChatDuration.Observe(time.Since(start).Seconds())
	log.Info("Chat handled",
		zap.Int("total", page.Total),
		zap.Int("page", page.Page),
		zap.Int("returned", len(page.Items)),
		zap.String("summary_source", string(sum.Source)),
		zap.Duration("duration", time.Since(start)),
	)

	return Response{
		Intent:       ex.Intent,
		Query:        req.Message,
		Location:     ex.Location,
		TotalResults: page.Total,
		Results:      page.Items,
		Summary:      sum,
		Pagination: Pagination{
			Page:       page.Page,
			PageSize:   page.PageSize,
			TotalPages: page.TotalPages,
		},
		Providers: reports,
	}
}

// dispatch queries the intent's providers concurrently and concatenates
// their records in route order.
func (s *Service) dispatch(ctx context.Context, ex intent.Extraction) ([]record.Record, []provider.Report) {
	providers := s.routes[ex.Intent]
	if len(providers) == 0 {
		return []record.Record{}, []provider.Report{}
	}

	results := make([][]record.Record, len(providers))
	reports := make([]provider.Report, len(providers))

	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			results[i], reports[i] = s.fetch(ctx, p, ex)
			return nil
		})
	}
	_ = g.Wait() // fetch never returns an error

	var total int
	for _, r := range results {
		total += len(r)
	}
	out := make([]record.Record, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, reports
}

func (s *Service) fetch(ctx context.Context, p Provider, ex intent.Extraction) ([]record.Record, provider.Report) {
	start := time.Now()
	recs, err := p.Search(ctx, ex.Topic, ex.Location)
	if err != nil {
		recs = nil
	}

	rep := provider.Report{
		Provider: p.Name(),
		Status:   provider.Classify(len(recs), err),
		Count:    len(recs),
		Duration: time.Since(start),
		Err:      err,
	}

	metrics.ProviderRequestsTotal.WithLabelValues(rep.Provider, string(rep.Status)).Inc()
	metrics.ProviderRequestDuration.WithLabelValues(rep.Provider).Observe(rep.Duration.Seconds())
	metrics.ProviderRecordsTotal.WithLabelValues(rep.Provider).Add(float64(rep.Count))

	log := logger.FromContext(ctx)
	fields := []zap.Field{
		zap.String("provider", rep.Provider),
		zap.String("status", string(rep.Status)),
		zap.Int("count", rep.Count),
		zap.Duration("duration", rep.Duration),
	}
	switch rep.Status {
	case provider.StatusError:
		log.Warn("Provider failed", append(fields, zap.Error(err))...)
	case provider.StatusUnconfigured:
		log.Debug("Provider skipped", fields...)
	default:
		log.Debug("Provider done", fields...)
	}
	return recs, rep
}

// Package app assembles the services shared by the expatscout server and scoutctl.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/expatscout/internal/config"
	dbRedis "github.com/kailas-cloud/expatscout/internal/db/redis"
	"github.com/kailas-cloud/expatscout/internal/domain"
	"github.com/kailas-cloud/expatscout/internal/domain/dates"
	"github.com/kailas-cloud/expatscout/internal/domain/intent"
	"github.com/kailas-cloud/expatscout/internal/metrics"
	"github.com/kailas-cloud/expatscout/internal/repository/embcache"
	knowrepo "github.com/kailas-cloud/expatscout/internal/repository/knowledge"
	"github.com/kailas-cloud/expatscout/internal/transport/eventbrite"
	openaiTransport "github.com/kailas-cloud/expatscout/internal/transport/openai"
	"github.com/kailas-cloud/expatscout/internal/transport/ratelimit"
	"github.com/kailas-cloud/expatscout/internal/transport/serpapi"
	chatuc "github.com/kailas-cloud/expatscout/internal/usecase/chat"
	embeddinguc "github.com/kailas-cloud/expatscout/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/expatscout/internal/usecase/health"
	knowledgeuc "github.com/kailas-cloud/expatscout/internal/usecase/knowledge"
	"github.com/kailas-cloud/expatscout/internal/usecase/pipeline"
	"github.com/kailas-cloud/expatscout/internal/usecase/summary"
)

// Knowledge is an opened knowledge backend. Repo is nil for the "none" driver.
type Knowledge struct {
	Driver    string
	Repo      knowledgeuc.Repository
	Pinger    healthuc.Pinger
	Embedding healthuc.BackendChecker
	closers   []func()
}

// Close releases the backend. Safe on a nil receiver.
func (k *Knowledge) Close() {
	if k == nil {
		return
	}
	for i := len(k.closers) - 1; i >= 0; i-- {
		k.closers[i]()
	}
	k.closers = nil
}

// Searcher returns the knowledge service as a summary context source,
// or a nil interface when no backend is configured.
func (k *Knowledge) Searcher() summary.KnowledgeSearcher {
	if k == nil || k.Repo == nil {
		return nil
	}
	return knowledgeuc.New(k.Repo, knowrepo.LoadDocuments)
}

// OpenKnowledge connects the configured knowledge driver.
func OpenKnowledge(ctx context.Context, cfg config.KnowledgeConfig, logger *zap.Logger) (*Knowledge, error) {
	switch cfg.Driver {
	case "none":
		return &Knowledge{Driver: cfg.Driver}, nil
	case "bleve":
		repo, err := knowrepo.OpenBleve(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open bleve index: %w", err)
		}
		logger.Info("Opened knowledge index", zap.String("driver", cfg.Driver), zap.String("path", cfg.Path))
		return &Knowledge{
			Driver: cfg.Driver,
			Repo:   repo,
			Pinger: repo,
			closers: []func(){func() {
				if err := repo.Close(); err != nil {
					logger.Warn("Failed to close knowledge index", zap.Error(err))
				}
			}},
		}, nil
	case "redis":
		return openRedis(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown knowledge driver %q", cfg.Driver)
	}
}

func openRedis(ctx context.Context, cfg config.KnowledgeConfig, logger *zap.Logger) (*Knowledge, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Database.Addrs,
		Username:   cfg.Database.Username,
		Password:   cfg.Database.Password,
		DB:         cfg.Database.DB,
		ClientName: cfg.Database.ClientName,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("knowledge store: %w", err)
	}
	logger.Info("Connected to knowledge database", zap.Strings("addrs", cfg.Database.Addrs))

	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cfg.Embedding.Cache {
		embedder = embcache.New(base, store, embcache.Options{
			KeyPrefix: cfg.KeyPrefix,
			Model:     cfg.Embedding.Model,
			TTL:       time.Duration(cfg.Embedding.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Model, cfg.Embedding.Dimensions, logger)

	repo := knowrepo.NewRedis(store, embedder, knowrepo.RedisOptions{
		KeyPrefix:       cfg.KeyPrefix,
		Collection:      cfg.Collection,
		Dimensions:      cfg.Embedding.Dimensions,
		HNSWM:           cfg.Index.HNSWM,
		HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
	})
	if err := repo.EnsureIndex(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure knowledge index: %w", err)
	}
	logger.Info("Knowledge index ready",
		zap.String("index", repo.IndexName()),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	return &Knowledge{
		Driver:    cfg.Driver,
		Repo:      repo,
		Pinger:    store,
		Embedding: base,
		closers:   []func(){store.Close},
	}, nil
}

// Generator is the summary backend plus its health probe.
type Generator struct {
	Gen    summary.Generator
	Health healthuc.BackendChecker
}

// NewGenerator builds the summary backend. Both fields are nil when no key is configured.
func NewGenerator(cfg config.GenerationConfig, logger *zap.Logger) Generator {
	gen, err := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Limiter:     ratelimit.New("generation", cfg.RequestsPerMinute),
		Logger:      logger,
	})
	if err != nil {
		// nil interfaces, not a typed nil *Generator
		return Generator{}
	}
	return Generator{Gen: gen, Health: gen}
}

// NewChat wires providers, the pipeline and the summary into the chat service.
func NewChat(cfg *config.Config, gen summary.Generator, ks summary.KnowledgeSearcher, logger *zap.Logger) *chatuc.Service {
	norm := dates.New(dates.WithMaxYear(cfg.Pipeline.ValidityWindow.MaxYear))

	eb := cfg.Providers.Eventbrite
	events := eventbrite.NewClient(eventbrite.Config{
		APIKey:     eb.APIKey,
		BaseURL:    eb.BaseURL,
		Timeout:    time.Duration(eb.TimeoutSec) * time.Second,
		MaxResults: eb.MaxResults,
		Within:     eb.Within,
		Limiter:    ratelimit.New("eventbrite", eb.RequestsPerMinute),
		Logger:     logger,
	}, norm)

	sp := cfg.Providers.SerpAPI
	serpCfg := serpapi.Config{
		APIKey:  sp.APIKey,
		BaseURL: sp.BaseURL,
		Timeout: time.Duration(sp.TimeoutSec) * time.Second,
		Locale:  sp.Locale,
		Limiter: ratelimit.New("serpapi", sp.RequestsPerMinute),
		Logger:  logger,
	}
	serpEvents := serpapi.NewClient(serpCfg, serpapi.ModeEvents, norm)
	serpJobs := serpapi.NewClient(serpCfg, serpapi.ModeJobs, norm)

	routes := map[intent.Intent][]chatuc.Provider{
		intent.Event: {events, serpEvents},
		intent.Job:   {serpJobs},
	}

	pipe := pipeline.New(norm, pipeline.Policies(policyOverrides(cfg.Pipeline.Policies)))
	sum := summary.New(gen, ks, summary.Config{
		Timeout:     time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		MaxChars:    cfg.Generation.MaxSummaryChars,
		ContextTopK: cfg.Generation.ContextTopK,
	})

	return chatuc.New(
		intent.NewExtractor(cfg.Intent.ExtraCities...),
		routes,
		pipe,
		sum,
		chatuc.Paging{
			DefaultPageSize: cfg.Pipeline.DefaultPageSize,
			MaxPageSize:     cfg.Pipeline.MaxPageSize,
		},
	)
}

func policyOverrides(in map[string]config.PolicyConfig) map[string]pipeline.Override {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]pipeline.Override, len(in))
	for name, p := range in {
		out[name] = pipeline.Override{
			ValidateLinks:   p.ValidateLinks,
			RequireDate:     p.RequireDate,
			DropPast:        p.DropPast,
			Dedupe:          p.Dedupe,
			DedupeByCompany: p.DedupeByCompany,
		}
	}
	return out
}

// ReportKeys logs which outbound integrations are usable. Missing keys degrade
// the answer but never stop startup.
func ReportKeys(cfg *config.Config, logger *zap.Logger) {
	keys := []struct {
		name string
		key  string
		lost string
	}{
		{"eventbrite", cfg.Providers.Eventbrite.APIKey, "Eventbrite events disabled"},
		{"serpapi", cfg.Providers.SerpAPI.APIKey, "Google events and jobs disabled"},
		{"generation", cfg.Generation.APIKey, "summaries use templates"},
	}
	for _, k := range keys {
		if domain.IsConfiguredKey(k.key) {
			logger.Info("API key configured", zap.String("integration", k.name))
			continue
		}
		logger.Warn("API key missing", zap.String("integration", k.name), zap.String("effect", k.lost))
	}
}

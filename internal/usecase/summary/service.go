// Package summary writes the short natural-language answer shown above results.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/expatscout/internal/domain/intent"
	"github.com/kailas-cloud/expatscout/internal/domain/record"
	"github.com/kailas-cloud/expatscout/internal/logger"
	"github.com/kailas-cloud/expatscout/internal/metrics"
)

// Source tells where a summary came from.
type Source string

const (
	// SourceGenerated is a model completion.
	SourceGenerated Source = "generated"
	// SourceFallbackUnavailable is the template used when no generator is configured.
	SourceFallbackUnavailable Source = "fallback_unavailable"
	// SourceFallbackError is the template used after a generation failure.
	SourceFallbackError Source = "fallback_error"
)

const truncationSuffix = "..."

var errEmptyCompletion = errors.New("empty completion")

// Input is everything a summary may refer to.
type Input struct {
	Query    string
	Location string
	Total    int
	Results  []record.Record
	Intent   intent.Intent
}

// Summary is the rendered answer.
type Summary struct {
	Text   string
	Source Source
}

// Config tunes the generation call.
type Config struct {
	Timeout     time.Duration
	MaxChars    int
	ContextTopK int
}

// Service renders summaries. Both collaborators are optional.
type Service struct {
	gen       Generator
	knowledge KnowledgeSearcher
	cfg       Config
}

// New creates a summary service. gen and ks may be nil.
func New(gen Generator, ks KnowledgeSearcher, cfg Config) *Service {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 500
	}
	if cfg.ContextTopK <= 0 {
		cfg.ContextTopK = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Service{gen: gen, knowledge: ks, cfg: cfg}
}

// Summarize never fails: any problem yields the intent template.
func (s *Service) Summarize(ctx context.Context, in Input) Summary {
	out := s.summarize(ctx, in)
	metrics.SummaryTotal.WithLabelValues(string(in.Intent), string(out.Source)).Inc()
	return out
}

func (s *Service) summarize(ctx context.Context, in Input) Summary {
	if s.gen == nil {
		return Summary{Text: Template(in.Intent, in.Total, in.Location), Source: SourceFallbackUnavailable}
	}

	prompt := BuildPrompt(in, s.lookupContext(ctx, in.Query))

	text, err := s.generate(ctx, prompt)
	if err != nil {
		logger.FromContext(ctx).Warn("Summary generation failed, using template",
			zap.String("intent", string(in.Intent)),
			zap.Error(err),
		)
		return Summary{Text: Template(in.Intent, in.Total, in.Location), Source: SourceFallbackError}
	}
	return Summary{Text: s.clip(text), Source: SourceGenerated}
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyCompletion
	}
	return text, nil
}

// lookupContext fetches knowledge snippets. Failures only cost the prompt its context.
func (s *Service) lookupContext(ctx context.Context, query string) []string {
	if s.knowledge == nil {
		return nil
	}
	snippets, err := s.knowledge.Search(ctx, query, s.cfg.ContextTopK)
	if err != nil {
		metrics.KnowledgeSearchTotal.WithLabelValues("error").Inc()
		logger.FromContext(ctx).Warn("Knowledge search failed", zap.Error(err))
		return nil
	}

	out := make([]string, 0, len(snippets))
	for _, sn := range snippets {
		if strings.TrimSpace(sn.Content) != "" {
			out = append(out, sn.Content)
		}
	}
	if len(out) == 0 {
		metrics.KnowledgeSearchTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.KnowledgeSearchTotal.WithLabelValues("hit").Inc()
	}
	return out
}

func (s *Service) clip(text string) string {
	r := []rune(text)
	if len(r) <= s.cfg.MaxChars {
		return text
	}
	keep := max(s.cfg.MaxChars-len(truncationSuffix), 0)
	return string(r[:keep]) + truncationSuffix
}

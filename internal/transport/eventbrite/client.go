// Package eventbrite searches public events through the Eventbrite v3 API.
package eventbrite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/expatscout/internal/domain"
	"github.com/kailas-cloud/expatscout/internal/domain/dates"
	"github.com/kailas-cloud/expatscout/internal/domain/provider"
	"github.com/kailas-cloud/expatscout/internal/domain/record"
	"github.com/kailas-cloud/expatscout/internal/transport/ratelimit"
)

const (
	sourceName     = "Eventbrite"
	descriptionMax = 200
)

// Config holds the Eventbrite connection settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxResults int
	Within     string
	Limiter    *ratelimit.Limiter // nil = unlimited
	Logger     *zap.Logger
}

// Client is the Eventbrite event search adapter.
type Client struct {
	apiKey     string
	baseURL    string
	maxResults int
	within     string
	http       *http.Client
	dates      *dates.Normalizer
	limiter    *ratelimit.Limiter
	logger     *zap.Logger
}

// NewClient creates an Eventbrite adapter. Dates are canonicalized with norm.
func NewClient(cfg Config, norm *dates.Normalizer) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}
	within := cfg.Within
	if within == "" {
		within = "50km"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxResults: maxResults,
		within:     within,
		http:       &http.Client{Timeout: timeout},
		dates:      norm,
		limiter:    cfg.Limiter,
		logger:     logger,
	}
}

// Name identifies the adapter in provider reports.
func (c *Client) Name() string { return provider.Eventbrite }

type searchResponse struct {
	Events []event `json:"events"`
}

type event struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Name  *text  `json:"name"`
	Start *struct {
		Local string `json:"local"`
	} `json:"start"`
	Logo *struct {
		URL string `json:"url"`
	} `json:"logo"`
	Venue *struct {
		Name    string `json:"name"`
		Address *struct {
			Display string `json:"localized_address_display"`
		} `json:"address"`
	} `json:"venue"`
	IsFree      bool  `json:"is_free"`
	Description *text `json:"description"`
}

type text struct {
	Text string `json:"text"`
}

// Search returns up to MaxResults events for topic near location.
func (c *Client) Search(ctx context.Context, topic, location string) ([]record.Record, error) {
	if !domain.IsConfiguredKey(c.apiKey) {
		return nil, fmt.Errorf("eventbrite: %w", domain.ErrProviderUnconfigured)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("eventbrite: %w: %w", err, domain.ErrProviderFailed)
	}

	q := url.Values{}
	q.Set("q", topic)
	q.Set("location.address", location)
	q.Set("location.within", c.within)
	q.Set("sort_by", "date")
	q.Set("expand", "venue")
	q.Set("page", "1")
	endpoint := c.baseURL + "/v3/events/search/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("eventbrite: create request: %w: %w", err, domain.ErrProviderFailed)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eventbrite: request: %w: %w", err, domain.ErrProviderFailed)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("Eventbrite rejected the API key; issue a new one in the Eventbrite account settings")
		return nil, fmt.Errorf("eventbrite: invalid api key (status 401): %w", domain.ErrProviderFailed)
	}
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("eventbrite: status %d: %s: %w", res.StatusCode, strings.TrimSpace(string(body)), domain.ErrProviderFailed)
	}

	var payload searchResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("eventbrite: decode response: %w: %w", err, domain.ErrProviderFailed)
	}

	events := payload.Events
	if len(events) > c.maxResults {
		events = events[:c.maxResults]
	}

	out := make([]record.Record, 0, len(events))
	for i := range events {
		if r, ok := c.toRecord(&events[i]); ok {
			out = append(out, r)
		}
	}
	c.logger.Debug("Eventbrite search done",
		zap.String("topic", topic),
		zap.String("location", location),
		zap.Int("raw", len(payload.Events)),
		zap.Int("mapped", len(out)),
	)
	return out, nil
}

func (c *Client) toRecord(e *event) (record.Record, bool) {
	if e.URL == "" || e.Name == nil || strings.TrimSpace(e.Name.Text) == "" {
		return record.Record{}, false
	}

	r := record.Record{
		ID:       "eb_" + e.ID,
		Type:     record.Events,
		Title:    e.Name.Text,
		Timezone: record.DefaultTimezone,
		Source:   sourceName,
		URL:      e.URL,
		Price:    "Paid",
	}
	if e.IsFree {
		r.Price = "Free"
	}
	if e.Start != nil {
		r.StartDate, r.StartTime = c.splitLocal(e.Start.Local)
	}
	if e.Logo != nil {
		r.Poster = e.Logo.URL
	}
	if e.Venue != nil {
		r.Venue = e.Venue.Name
		if e.Venue.Address != nil {
			r.Address = e.Venue.Address.Display
		}
	}
	if e.Description != nil {
		r.Description = record.Truncate(e.Description.Text, descriptionMax)
	}
	return r, true
}

// splitLocal turns "2026-03-14T19:30:00" into a canonical date and "19:30".
func (c *Client) splitLocal(local string) (date, clock string) {
	datePart, timePart, hasTime := strings.Cut(local, "T")
	if hasTime {
		clock = timePart
		if len(clock) > 5 {
			clock = clock[:5]
		}
	}
	if d, ok := c.dates.Parse(datePart); ok {
		date = d
	}
	return date, clock
}

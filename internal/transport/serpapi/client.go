// Package serpapi searches Google Events and Google Jobs through SerpAPI.
package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/expatscout/internal/domain"
	"github.com/kailas-cloud/expatscout/internal/domain/dates"
	"github.com/kailas-cloud/expatscout/internal/domain/provider"
	"github.com/kailas-cloud/expatscout/internal/domain/record"
	"github.com/kailas-cloud/expatscout/internal/transport/ratelimit"
)

// Mode selects the SerpAPI engine.
type Mode string

const (
	// ModeEvents queries the google_events engine.
	ModeEvents Mode = "events"
	// ModeJobs queries the google_jobs engine.
	ModeJobs Mode = "jobs"
)

const descriptionMax = 200

// Config holds the SerpAPI connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Locale  string
	Limiter *ratelimit.Limiter // shared by both modes; nil = unlimited
	Logger  *zap.Logger
}

// Client is a SerpAPI adapter bound to one mode.
type Client struct {
	mode    Mode
	apiKey  string
	baseURL string
	locale  string
	http    *http.Client
	dates   *dates.Normalizer
	limiter *ratelimit.Limiter
	logger  *zap.Logger
}

// NewClient creates a SerpAPI adapter for mode. Event dates are canonicalized with norm.
func NewClient(cfg Config, mode Mode, norm *dates.Normalizer) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	locale := cfg.Locale
	if locale == "" {
		locale = "en"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		mode:    mode,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		locale:  locale,
		http:    &http.Client{Timeout: timeout},
		dates:   norm,
		limiter: cfg.Limiter,
		logger:  logger,
	}
}

// Name identifies the adapter in provider reports.
func (c *Client) Name() string {
	if c.mode == ModeJobs {
		return provider.GoogleJobs
	}
	return provider.GoogleEvents
}

func (c *Client) engine() string {
	if c.mode == ModeJobs {
		return "google_jobs"
	}
	return "google_events"
}

func (c *Client) source() string {
	if c.mode == ModeJobs {
		return "Google Jobs"
	}
	return "Google Events"
}

type searchResponse struct {
	Events []item `json:"events_results"`
	Jobs   []item `json:"jobs_results"`
}

type item struct {
	Title              string          `json:"title"`
	Link               string          `json:"link"`
	TicketInfo         json.RawMessage `json:"ticket_info"`
	VenueLink          string          `json:"venue_link"`
	ShareLink          string          `json:"share_link"`
	ApplyLink          string          `json:"apply_link"`
	Date               json.RawMessage `json:"date"`
	Venue              json.RawMessage `json:"venue"`
	Address            json.RawMessage `json:"address"`
	Thumbnail          string          `json:"thumbnail"`
	CompanyName        string          `json:"company_name"`
	Description        string          `json:"description"`
	DetectedExtensions struct {
		PostedAt string `json:"posted_at"`
	} `json:"detected_extensions"`
}

// Search queries the engine for topic at location.
func (c *Client) Search(ctx context.Context, topic, location string) ([]record.Record, error) {
	if !domain.IsConfiguredKey(c.apiKey) {
		return nil, fmt.Errorf("serpapi: %w", domain.ErrProviderUnconfigured)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("serpapi: %w: %w", err, domain.ErrProviderFailed)
	}

	q := url.Values{}
	q.Set("engine", c.engine())
	q.Set("api_key", c.apiKey)
	q.Set("hl", c.locale)
	if c.mode == ModeJobs {
		q.Set("q", topic)
		q.Set("location", location)
	} else {
		q.Set("q", strings.TrimSpace(topic+" "+location))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("serpapi: create request: %w: %w", err, domain.ErrProviderFailed)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		// url.Error carries the full URL including api_key; keep only the cause.
		return nil, fmt.Errorf("serpapi %s: request: %w: %w", c.mode, unwrapURLError(err), domain.ErrProviderFailed)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("serpapi %s: status %d: %s: %w",
			c.mode, res.StatusCode, strings.TrimSpace(string(body)), domain.ErrProviderFailed)
	}

	var payload searchResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("serpapi %s: decode response: %w: %w", c.mode, err, domain.ErrProviderFailed)
	}

	items := payload.Events
	if c.mode == ModeJobs {
		items = payload.Jobs
	}

	out := make([]record.Record, 0, len(items))
	for i := range items {
		if r, ok := c.toRecord(&items[i]); ok {
			out = append(out, r)
		}
	}
	c.logger.Debug("SerpAPI search done",
		zap.String("mode", string(c.mode)),
		zap.String("topic", topic),
		zap.String("location", location),
		zap.Int("raw", len(items)),
		zap.Int("mapped", len(out)),
	)
	return out, nil
}

func (c *Client) toRecord(it *item) (record.Record, bool) {
	link := c.link(it)
	if strings.TrimSpace(it.Title) == "" || !record.IsDetailLink(link) {
		return record.Record{}, false
	}

	r := record.Record{
		ID:       RecordID(link),
		Type:     record.Events,
		Title:    it.Title,
		Poster:   it.Thumbnail,
		Timezone: record.DefaultTimezone,
		Venue:    decodeVenue(it.Venue),
		Address:  decodeAddress(it.Address),
		Source:   c.source(),
		URL:      link,
	}

	if c.mode == ModeJobs {
		r.Type = record.Jobs
		r.StartDate = it.DetectedExtensions.PostedAt
		r.Company = it.CompanyName
		r.Description = record.Truncate(it.Description, descriptionMax)
		return r, true
	}

	if raw := decodeDate(it.Date); raw != "" {
		if d, ok := c.dates.Parse(raw); ok {
			r.StartDate = d
		}
	}
	return r, true
}

func (c *Client) link(it *item) string {
	if c.mode == ModeJobs {
		return record.FirstNonEmpty(it.ShareLink, it.ApplyLink)
	}
	return record.FirstNonEmpty(it.Link, decodeTicketLink(it.TicketInfo), it.VenueLink)
}

// RecordID derives a stable id from the listing link.
func RecordID(link string) string {
	return "serp_" + strconv.FormatUint(xxhash.Sum64String(link), 16)
}

func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

package chi

import (
	"github.com/kailas-cloud/expatscout/internal/domain/record"
	chatuc "github.com/kailas-cloud/expatscout/internal/usecase/chat"
)

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest       ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed ErrorResponseCode = "validation_failed"
	ErrorResponseCodeInternalError    ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message  string `json:"message"`
	Page     *int   `json:"page,omitempty"`
	PageSize *int   `json:"page_size,omitempty"`
}

// ChatResponse is the answer to a chat query.
type ChatResponse struct {
	Intent        string           `json:"intent"`
	Query         string           `json:"query"`
	Location      string           `json:"location"`
	TotalResults  int              `json:"total_results"`
	Results       []ResultItem     `json:"results"`
	AISummary     string           `json:"ai_summary"`
	SummarySource string           `json:"ai_summary_source"`
	Pagination    Pagination       `json:"pagination"`
	Providers     []ProviderReport `json:"providers"`
}

// ResultItem is one listing. Fields the provider did not supply are null.
type ResultItem struct {
	ID          *string `json:"id"`
	Type        string  `json:"type"`
	Title       *string `json:"title"`
	Poster      *string `json:"poster"`
	StartDate   *string `json:"start_date"`
	StartTime   *string `json:"start_time"`
	Timezone    *string `json:"timezone"`
	Venue       *string `json:"venue"`
	Address     *string `json:"address"`
	Price       *string `json:"price"`
	Source      *string `json:"source"`
	URL         *string `json:"url"`
	Company     *string `json:"company,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Pagination describes the returned page.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// ProviderReport is a per-provider diagnostic.
type ProviderReport struct {
	Provider   string `json:"provider"`
	Status     string `json:"status"`
	Count      int    `json:"count"`
	DurationMs int64  `json:"duration_ms"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// MetricsResponse is the body of GET /api/metrics.
type MetricsResponse struct {
	AvgResponseMs float64 `json:"avg_response_ms"`
	Status        string  `json:"status"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// NewChatResponse converts a chat answer to its wire form.
func NewChatResponse(resp chatuc.Response) ChatResponse {
	items := make([]ResultItem, len(resp.Results))
	for i := range resp.Results {
		items[i] = resultToDTO(&resp.Results[i])
	}
	reports := make([]ProviderReport, len(resp.Providers))
	for i, p := range resp.Providers {
		reports[i] = ProviderReport{
			Provider:   p.Provider,
			Status:     string(p.Status),
			Count:      p.Count,
			DurationMs: p.Duration.Milliseconds(),
		}
	}
	return ChatResponse{
		Intent:        string(resp.Intent),
		Query:         resp.Query,
		Location:      resp.Location,
		TotalResults:  resp.TotalResults,
		Results:       items,
		AISummary:     resp.Summary.Text,
		SummarySource: string(resp.Summary.Source),
		Pagination: Pagination{
			Page:       resp.Pagination.Page,
			PageSize:   resp.Pagination.PageSize,
			TotalPages: resp.Pagination.TotalPages,
		},
		Providers: reports,
	}
}

func resultToDTO(r *record.Record) ResultItem {
	return ResultItem{
		ID:          nullable(r.ID),
		Type:        string(r.Type),
		Title:       nullable(r.Title),
		Poster:      nullable(r.Poster),
		StartDate:   nullable(r.StartDate),
		StartTime:   nullable(r.StartTime),
		Timezone:    nullable(r.Timezone),
		Venue:       nullable(r.Venue),
		Address:     nullable(r.Address),
		Price:       nullable(r.Price),
		Source:      nullable(r.Source),
		URL:         nullable(r.URL),
		Company:     nullable(r.Company),
		Description: nullable(r.Description),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

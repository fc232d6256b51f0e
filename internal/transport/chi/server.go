// Package chi exposes the chat API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/expatscout/internal/domain"
	"github.com/kailas-cloud/expatscout/internal/metrics"
	chatuc "github.com/kailas-cloud/expatscout/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/expatscout/internal/usecase/health"
	"github.com/kailas-cloud/expatscout/internal/version"
)

// providerErrorRatioDegraded is the share of failed provider calls at which
// /api/metrics reports "degraded".
const providerErrorRatioDegraded = 0.5

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements the HTTP API.
type Server struct {
	chat          *chatuc.Service
	health        *healthuc.Service
	serviceName   string
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	chat *chatuc.Service,
	health *healthuc.Service,
	serviceName string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		chat:        chat,
		health:      health,
		serviceName: serviceName,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r gochi.Router) {
	r.Post("/api/chat", s.Chat)
	r.Get("/api/search", s.Search)
	r.Get("/api/status", s.Status)
	r.Get("/api/metrics", s.ChatMetrics)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.answer(w, r, chatuc.Request{
		Message:  req.Message,
		Page:     derefInt(req.Page),
		PageSize: derefInt(req.PageSize),
	})
}

// Search handles GET /api/search?message=&page=&page_size=.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var message string
	if err := runtime.BindQueryParameter("form", true, true, "message", q, &message); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid format for parameter message: "+err.Error())
		return
	}
	var page, pageSize *int
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &page); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid format for parameter page: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "page_size", q, &pageSize); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest,
			"Invalid format for parameter page_size: "+err.Error())
		return
	}

	s.answer(w, r, chatuc.Request{Message: message, Page: derefInt(page), PageSize: derefInt(pageSize)})
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request, req chatuc.Request) {
	if err := req.Validate(); err != nil {
		s.handleDomainError(w, err)
		return
	}
	resp := s.chat.Handle(r.Context(), req)
	writeJSON(w, http.StatusOK, NewChatResponse(resp))
}

// Status handles GET /api/status.
func (s *Server) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:  "ok",
		Service: s.serviceName,
		Version: version.Version,
	})
}

// ChatMetrics handles GET /api/metrics.
func (s *Server) ChatMetrics(w http.ResponseWriter, _ *http.Request) {
	stats, err := metrics.SnapshotChat()
	if err != nil {
		s.logger.Error("read chat metrics", zap.Error(err))
		writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
		return
	}

	status := "healthy"
	if stats.ProviderCalls > 0 && stats.ProviderErrors/stats.ProviderCalls >= providerErrorRatioDegraded {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, MetricsResponse{
		AvgResponseMs: stats.AvgLatencyMs,
		Status:        status,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

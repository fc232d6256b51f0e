package domain

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidRequest signals a malformed chat request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrProviderUnconfigured signals a missing or placeholder provider API key.
	ErrProviderUnconfigured = errors.New("provider not configured")
	// ErrProviderFailed signals a provider transport, status, or decode failure.
	ErrProviderFailed = errors.New("provider request failed")
	// ErrGenerationUnavailable signals that no generation backend is configured.
	ErrGenerationUnavailable = errors.New("generation backend unavailable")
	// ErrGenerationFailed signals a generation backend failure.
	ErrGenerationFailed = errors.New("generation backend error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrKnowledgeUnavailable signals that no knowledge store is configured.
	ErrKnowledgeUnavailable = errors.New("knowledge store unavailable")
)

// placeholderMarker is the prefix shipped in sample .env files ("your_api_key_here").
const placeholderMarker = "your_"

// IsConfiguredKey reports whether an API key is present and not a sample placeholder.
func IsConfiguredKey(key string) bool {
	if strings.TrimSpace(key) == "" {
		return false
	}
	return !strings.Contains(strings.ToLower(key), placeholderMarker)
}

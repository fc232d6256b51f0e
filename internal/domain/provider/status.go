// Package provider describes the per-provider outcome of a fetch.
package provider

import (
	"errors"
	"time"

	"github.com/kailas-cloud/expatscout/internal/domain"
)

// Status is the outcome of a single provider call.
type Status string

const (
	// StatusSuccess means the provider returned at least one usable record.
	StatusSuccess Status = "success"
	// StatusEmpty means the call succeeded with no usable records.
	StatusEmpty Status = "empty"
	// StatusError means the call failed and its records were dropped.
	StatusError Status = "error"
	// StatusUnconfigured means the provider has no usable API key and was not called.
	StatusUnconfigured Status = "unconfigured"
)

// Report is the diagnostic record of one provider call. Callers never see
// provider errors, only the records that made it and these reports.
type Report struct {
	Provider string        `json:"provider"`
	Status   Status        `json:"status"`
	Count    int           `json:"count"`
	Duration time.Duration `json:"-"`
	Err      error         `json:"-"`
}

// Classify maps a fetch outcome to a Status.
func Classify(n int, err error) Status {
	switch {
	case errors.Is(err, domain.ErrProviderUnconfigured):
		return StatusUnconfigured
	case err != nil:
		return StatusError
	case n == 0:
		return StatusEmpty
	default:
		return StatusSuccess
	}
}

// Names of the built-in providers, used as metric and log labels.
const (
	Eventbrite   = "eventbrite"
	GoogleEvents = "serpapi_events"
	GoogleJobs   = "serpapi_jobs"
)

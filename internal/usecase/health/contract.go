package health

import "context"

// Pinger checks knowledge store availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendChecker checks a remote model backend.
type BackendChecker interface {
	HealthCheck(ctx context.Context) error
}

package core

import (
	"github.com/go-chi/chi/v5"
)

// Service is the interface that all emulated cloud services implement.
// New services are added by implementing this interface and handing the
// instance to the edge router; there is no process-wide registry, so two
// routers (or two tests) never see each other's services.
type Service interface {
	// Name returns the unique identifier for this service
	// (e.g. "storage", "query", "secrets"). It is used for routing
	// prefixes and enablement configuration.
	Name() string

	// RegisterRoutes sets up HTTP routes for this service on the provided
	// router, which is scoped to the service's path prefix.
	RegisterRoutes(router chi.Router)
}

// Package contributor tracks GitHub accounts, their identity history and the
// users they belong to.
package contributor

import (
	"log/slog"

	"contribution-metrics/internal/contributor/handler"
	"contribution-metrics/internal/contributor/service"
)

// Service exposes contributor management and GitHub reconciliation.
type Service = service.Service

// Handler wires HTTP endpoints to the contributor service.
type Handler = handler.Handler

// NewService constructs the contributor service. users resolves link targets.
func NewService(contributors service.Store, users service.UserFinder, opts ...service.Option) *Service {
	return service.New(contributors, users, opts...)
}

// NewHandler constructs the /api/github-contributors handler.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}

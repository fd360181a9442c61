// Package organization registers the GitHub organizations whose members are
// tracked, together with the access token used to query them.
package organization

import (
	"log/slog"

	"contribution-metrics/internal/organization/handler"
	"contribution-metrics/internal/organization/service"
)

// Service exposes organization registration and token management.
type Service = service.Service

// Handler wires HTTP endpoints to the organization service.
type Handler = handler.Handler

// NewService constructs the organization service over the given store.
func NewService(orgs service.Store, opts ...service.Option) *Service {
	return service.New(orgs, opts...)
}

// NewHandler constructs the /api/github-organizations handler.
func NewHandler(s *Service, logger *slog.Logger, opts ...handler.Option) *Handler {
	return handler.New(s, logger, opts...)
}

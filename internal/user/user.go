// Package user registers internal team members, their reporting lines and
// application access roles.
package user

import (
	"log/slog"

	"contribution-metrics/internal/user/handler"
	"contribution-metrics/internal/user/service"
)

// Service exposes user registration and profile management.
type Service = service.Service

// Handler wires HTTP endpoints to the user service.
type Handler = handler.Handler

// NewService constructs the user service over the given store.
func NewService(users service.Store, opts ...service.Option) *Service {
	return service.New(users, opts...)
}

// NewHandler constructs the /api/users handler.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}

// Package githubsync keeps contributors in step with the members of the
// registered GitHub organizations.
package githubsync

import (
	"log/slog"

	"contribution-metrics/internal/githubsync/gateway"
	"contribution-metrics/internal/githubsync/service"
	"contribution-metrics/internal/platform/config"
)

// Service runs organization syncs and token refreshes.
type Service = service.Service

// NewGateway builds the GitHub API gateway from configuration.
func NewGateway(cfg config.GitHubConfig, logger *slog.Logger) (*gateway.Gateway, error) {
	return gateway.New(cfg, gateway.WithLogger(logger))
}

func NewService(orgs service.Organizations, contributors service.Contributors, github service.GitHub, opts ...service.Option) *Service {
	return service.New(orgs, contributors, github, opts...)
}

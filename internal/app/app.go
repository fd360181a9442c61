// Package app builds the stores, services and handlers shared by the server
// and the admin CLI from a single Config.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"contribution-metrics/internal/contributor"
	contributormetrics "contribution-metrics/internal/contributor/metrics"
	contributorservice "contribution-metrics/internal/contributor/service"
	contributorstore "contribution-metrics/internal/contributor/store"
	"contribution-metrics/internal/githubsync"
	syncmetrics "contribution-metrics/internal/githubsync/metrics"
	syncservice "contribution-metrics/internal/githubsync/service"
	"contribution-metrics/internal/organization"
	orghandler "contribution-metrics/internal/organization/handler"
	orgmetrics "contribution-metrics/internal/organization/metrics"
	"contribution-metrics/internal/organization/secrets"
	orgservice "contribution-metrics/internal/organization/service"
	orgstore "contribution-metrics/internal/organization/store"
	"contribution-metrics/internal/platform/config"
	"contribution-metrics/internal/platform/events"
	"contribution-metrics/internal/platform/postgres"
	platformredis "contribution-metrics/internal/platform/redis"
	httptransport "contribution-metrics/internal/transport/http"
	"contribution-metrics/internal/user"
	usermetrics "contribution-metrics/internal/user/metrics"
	userservice "contribution-metrics/internal/user/service"
	userstore "contribution-metrics/internal/user/store"
)

const topicSetupTimeout = 10 * time.Second

// App holds the wired services and the resources that must be released on
// shutdown.
type App struct {
	Users         *user.Service
	Organizations *organization.Service
	Contributors  *contributor.Service
	Sync          *githubsync.Service
	Handlers      []httptransport.Registrar
	Checks        map[string]httptransport.Check

	closers []func()
}

type stores struct {
	users        userservice.Store
	orgs         orgservice.Store
	contributors contributorservice.Store
}

// Build connects to the configured backends and wires every module. Postgres
// is used when DB_HOST is set, otherwise everything lives in memory.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (_ *App, err error) {
	a := &App{Checks: make(map[string]httptransport.Check)}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	st, err := a.openStores(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	orgMetrics := orgmetrics.New(reg)
	orgs := st.orgs
	cache, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		a.closers = append(a.closers, func() { _ = cache.Close() })
		a.Checks["redis"] = cache.Health
		orgs = orgstore.NewCached(st.orgs, cache.Client,
			orgstore.WithCacheTTL(cfg.Redis.OrgCacheTTL),
			orgstore.WithCacheMetrics(orgMetrics),
			orgstore.WithCacheLogger(logger),
		)
		logger.Info("organization cache enabled", "ttl", cfg.Redis.OrgCacheTTL.String())
	}

	publisher, err := a.openPublisher(ctx, cfg.Kafka, logger)
	if err != nil {
		return nil, err
	}

	sealer, err := secrets.NewSealer(cfg.Security.TokenEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("token sealer: %w", err)
	}
	if sealer == nil {
		logger.Warn("TOKEN_ENCRYPTION_KEY not set, organization tokens are stored unencrypted")
	}

	a.Contributors = contributor.NewService(st.contributors, st.users,
		contributorservice.WithLogger(logger),
		contributorservice.WithMetrics(contributormetrics.New(reg)),
		contributorservice.WithPublisher(publisher),
	)
	a.Users = user.NewService(st.users,
		userservice.WithLogger(logger),
		userservice.WithMetrics(usermetrics.New(reg)),
		userservice.WithPublisher(publisher),
		userservice.WithContributorUnlinker(a.Contributors),
	)
	a.Organizations = organization.NewService(orgs,
		orgservice.WithLogger(logger),
		orgservice.WithMetrics(orgMetrics),
		orgservice.WithPublisher(publisher),
		orgservice.WithSealer(sealer),
	)

	gw, err := githubsync.NewGateway(cfg.GitHub, logger)
	if err != nil {
		return nil, fmt.Errorf("github gateway: %w", err)
	}
	a.Sync = githubsync.NewService(a.Organizations, a.Contributors, gw,
		syncservice.WithLogger(logger),
		syncservice.WithMetrics(syncmetrics.New(reg)),
		syncservice.WithConcurrency(cfg.Sync.Concurrency),
		syncservice.WithTimeout(cfg.Sync.Timeout),
	)

	a.Handlers = []httptransport.Registrar{
		user.NewHandler(a.Users, logger),
		organization.NewHandler(a.Organizations, logger,
			orghandler.WithAdminToken(cfg.Security.AdminAPIToken),
			orghandler.WithSyncer(a.Sync),
		),
		contributor.NewHandler(a.Contributors, logger),
	}

	a.refreshGauges(ctx, logger)
	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (stores, error) {
	if !cfg.Enabled() {
		logger.Warn("DB_HOST not set, using in-memory stores")
		return stores{
			users:        userstore.NewInMemory(),
			orgs:         orgstore.NewInMemory(),
			contributors: contributorstore.NewInMemory(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return stores{}, err
	}
	a.closers = append(a.closers, func() { _ = db.Close() })
	a.Checks["postgres"] = db.PingContext
	if err := postgres.Migrate(ctx, db); err != nil {
		return stores{}, err
	}
	logger.Info("connected to postgres", "host", cfg.Host, "database", cfg.Database)
	return postgresStores(db), nil
}

func postgresStores(db *sql.DB) stores {
	return stores{
		users:        userstore.NewPostgres(db),
		orgs:         orgstore.NewPostgres(db),
		contributors: contributorstore.NewPostgres(db),
	}
}

// openPublisher returns a nil Publisher when Kafka is not configured, which
// turns event emission off.
func (a *App) openPublisher(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (events.Publisher, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	kafka, err := events.NewKafkaPublisher(cfg.Brokers, cfg.Topic, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, kafka.Close)
	// Kafka is not a readiness dependency: events are best effort.
	topicCtx, cancel := context.WithTimeout(ctx, topicSetupTimeout)
	defer cancel()
	if err := kafka.EnsureTopic(topicCtx, 3, 1); err != nil {
		logger.Warn("could not ensure kafka topic", "topic", cfg.Topic, "error", err)
	}
	return kafka, nil
}

func (a *App) refreshGauges(ctx context.Context, logger *slog.Logger) {
	refreshers := map[string]func(context.Context) error{
		"users":         a.Users.RefreshMetrics,
		"organizations": a.Organizations.RefreshMetrics,
		"contributors":  a.Contributors.RefreshMetrics,
	}
	for name, refresh := range refreshers {
		if err := refresh(ctx); err != nil {
			logger.Warn("failed to initialise gauges", "module", name, "error", err)
		}
	}
}

// Close releases backends in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

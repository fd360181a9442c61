package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	contributormodels "contribution-metrics/internal/contributor/models"
	"contribution-metrics/internal/githubsync/models"
	orgmodels "contribution-metrics/internal/organization/models"
	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/platform/tracing"
	"contribution-metrics/pkg/requestcontext"
)

// SyncOrganization reconciles every member of the organization into a
// contributor. Member failures are recorded in the report and do not fail the
// sync. An expired token is refreshed first when a GitHub App is configured.
func (s *Service) SyncOrganization(ctx context.Context, orgID id.OrganizationID) (_ *models.Report, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "githubsync.SyncOrganization", attribute.String("organization.id", orgID.String()))
	defer tracing.End(span, &err)

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveSync(start)
			s.metrics.IncrementRun(runOutcome(err))
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	org, err := s.orgs.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	token, err := s.token(ctx, org)
	if err != nil {
		return nil, err
	}
	if err := s.github.VerifyOrganization(ctx, org.Name, token); err != nil {
		return nil, githubErr(err, org.Name)
	}
	members, err := s.github.ListMembers(ctx, org.Name, token)
	if err != nil {
		return nil, githubErr(err, org.Name)
	}

	startedAt := requestcontext.Now(ctx)
	report := &models.Report{
		OrganizationID: org.ID,
		Organization:   org.Name,
		MembersSeen:    len(members),
		StartedAt:      startedAt,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, member := range members {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, err := s.syncMember(gctx, member, token)
			if err != nil {
				s.logger.WarnContext(gctx, "failed to sync github member",
					"organization", org.Name,
					"login", member.Login,
					"error", err,
				)
			}
			mu.Lock()
			report.Record(member.Login, outcome, err)
			mu.Unlock()
			if s.metrics != nil {
				s.metrics.IncrementMember(string(outcome))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, githubErr(err, org.Name)
	}

	slices.SortFunc(report.Errors, func(a, b models.MemberError) int {
		return strings.Compare(a.Login, b.Login)
	})
	report.FinishedAt = startedAt.Add(time.Since(start))

	s.logger.InfoContext(ctx, "github organization synced",
		"organization", org.Name,
		"members", report.MembersSeen,
		"created", report.Created,
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"failed", report.Failed,
		"request_id", requestcontext.RequestID(ctx),
	)
	return report, nil
}

// SyncAll syncs every registered organization in turn. A failing organization
// is logged and skipped; the reports of the others are returned.
func (s *Service) SyncAll(ctx context.Context) (_ []*models.Report, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "githubsync.SyncAll")
	defer tracing.End(span, &err)

	orgs, err := s.orgs.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]*models.Report, 0, len(orgs))
	for _, org := range orgs {
		report, err := s.SyncOrganization(ctx, org.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "organization sync failed",
				"organization", org.Name,
				"error", err,
			)
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// RefreshToken replaces the organization's access token with a fresh GitHub
// App installation token.
func (s *Service) RefreshToken(ctx context.Context, orgID id.OrganizationID) (_ *orgmodels.Organization, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "githubsync.RefreshToken", attribute.String("organization.id", orgID.String()))
	defer tracing.End(span, &err)

	if !s.github.AppConfigured() {
		return nil, errAppNotConfigured()
	}
	org, err := s.orgs.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	updated, _, err := s.refresh(ctx, org)
	return updated, err
}

func (s *Service) refresh(ctx context.Context, org *orgmodels.Organization) (*orgmodels.Organization, string, error) {
	token, expiresAt, err := s.github.InstallationToken(ctx, org.Name)
	if err != nil {
		return nil, "", githubErr(err, org.Name)
	}
	updated, err := s.orgs.RotateToken(ctx, org.ID, token, expiresAt)
	if err != nil {
		return nil, "", err
	}
	return updated, token, nil
}

func (s *Service) token(ctx context.Context, org *orgmodels.Organization) (string, error) {
	if !org.IsTokenExpired(requestcontext.Now(ctx)) {
		return s.orgs.AccessToken(ctx, org.ID)
	}
	if !s.github.AppConfigured() {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("Access token for organization '%s' has expired", org.Name))
	}
	s.logger.InfoContext(ctx, "access token expired, refreshing before sync", "organization", org.Name)
	_, token, err := s.refresh(ctx, org)
	return token, err
}

func (s *Service) syncMember(ctx context.Context, member models.Member, token string) (models.Outcome, error) {
	lastActive := member.LastActiveAt
	if lastActive == nil {
		at, err := s.github.LastActivity(ctx, member.Login, token)
		if err != nil {
			s.logger.DebugContext(ctx, "could not fetch github activity", "login", member.Login, "error", err)
		} else {
			lastActive = at
		}
	}

	_, result, err := s.contributors.UpsertFromGitHub(ctx, contributormodels.GitHubIdentity{
		Login:        member.Login,
		Email:        member.Email,
		Name:         member.Name,
		LastActiveAt: lastActive,
	})
	if err != nil {
		return models.OutcomeFailed, err
	}
	switch result {
	case contributormodels.UpsertCreated:
		return models.OutcomeCreated, nil
	case contributormodels.UpsertUpdated:
		return models.OutcomeUpdated, nil
	default:
		return models.OutcomeUnchanged, nil
	}
}

func runOutcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

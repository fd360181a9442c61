// Package gateway talks to the GitHub REST and GraphQL APIs on behalf of a
// registered organization.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"contribution-metrics/internal/githubsync/models"
	"contribution-metrics/internal/platform/config"
)

var (
	ErrNotFound         = errors.New("github: not found")
	ErrUnauthorized     = errors.New("github: credentials rejected")
	ErrRateLimited      = errors.New("github: rate limited")
	ErrAppNotConfigured = errors.New("github: app credentials not configured")
)

const membersPageSize = 100

// Gateway issues GitHub calls with a caller-supplied token. All clients share
// one rate-limit aware transport.
type Gateway struct {
	transport  http.RoundTripper
	restURL    *url.URL
	graphqlURL string
	app        *appAuth
	logger     *slog.Logger
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithTransport replaces the base transport under the rate-limit waiter.
func WithTransport(rt http.RoundTripper) Option {
	return func(g *Gateway) {
		g.transport = rt
	}
}

func New(cfg config.GitHubConfig, opts ...Option) (*Gateway, error) {
	g := &Gateway{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(g)
	}

	waiter, err := github_ratelimit.NewRateLimitWaiter(g.transport, github_ratelimit.WithSingleSleepLimit(time.Minute, nil))
	if err != nil {
		return nil, fmt.Errorf("create rate limit waiter: %w", err)
	}
	g.transport = waiter

	if cfg.APIURL != "" {
		raw := cfg.APIURL
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse github api url: %w", err)
		}
		g.restURL = u
		g.graphqlURL = cfg.GraphQLURL
		if g.graphqlURL == "" {
			g.graphqlURL = strings.TrimSuffix(strings.TrimSuffix(raw, "/"), "/v3") + "/graphql"
		}
	}

	if cfg.AppConfigured() {
		app, err := newAppAuth(cfg.AppID, cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		g.app = app
	}
	return g, nil
}

// AppConfigured reports whether installation tokens can be issued.
func (g *Gateway) AppConfigured() bool {
	return g.app != nil
}

// VerifyOrganization checks that org exists and is visible to token.
func (g *Gateway) VerifyOrganization(ctx context.Context, org, token string) error {
	if _, _, err := g.rest(token).Organizations.Get(ctx, org); err != nil {
		return fmt.Errorf("get organization %s: %w", org, classify(err))
	}
	return nil
}

type membersQuery struct {
	Organization struct {
		MembersWithRole struct {
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
			Nodes []struct {
				Login string
				Name  string
				Email string
			}
		} `graphql:"membersWithRole(first: $first, after: $cursor)"`
	} `graphql:"organization(login: $login)"`
}

// ListMembers pages through the organization's members. Email and Name are
// empty when the member keeps them private.
func (g *Gateway) ListMembers(ctx context.Context, org, token string) ([]models.Member, error) {
	client := g.graphql(token)
	variables := map[string]any{
		"login":  githubv4.String(org),
		"first":  githubv4.Int(membersPageSize),
		"cursor": (*githubv4.String)(nil),
	}

	members := make([]models.Member, 0)
	for {
		var q membersQuery
		if err := client.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("list members of %s: %w", org, classifyGraphQL(err))
		}
		for _, node := range q.Organization.MembersWithRole.Nodes {
			members = append(members, models.Member{
				Login: node.Login,
				Name:  strings.TrimSpace(node.Name),
				Email: strings.TrimSpace(node.Email),
			})
		}
		if !q.Organization.MembersWithRole.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Organization.MembersWithRole.PageInfo.EndCursor)
		g.logger.DebugContext(ctx, "fetching next page of members", "organization", org, "fetched", len(members))
	}
	return members, nil
}

// LastActivity returns the time of the user's most recent public event, or
// nil when GitHub has none on record.
func (g *Gateway) LastActivity(ctx context.Context, login, token string) (*time.Time, error) {
	events, _, err := g.rest(token).Activity.ListEventsPerformedByUser(ctx, login, true, &github.ListOptions{PerPage: 1})
	if err != nil {
		return nil, fmt.Errorf("list events of %s: %w", login, classify(err))
	}
	if len(events) == 0 || events[0].CreatedAt == nil {
		return nil, nil
	}
	at := events[0].GetCreatedAt().UTC()
	return &at, nil
}

func (g *Gateway) httpClient(token string) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Base:   g.transport,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		},
	}
}

func (g *Gateway) rest(token string) *github.Client {
	client := github.NewClient(g.httpClient(token))
	if g.restURL != nil {
		client.BaseURL = g.restURL
	}
	return client
}

func (g *Gateway) graphql(token string) *githubv4.Client {
	if g.graphqlURL == "" {
		return githubv4.NewClient(g.httpClient(token))
	}
	return githubv4.NewEnterpriseClient(g.graphqlURL, g.httpClient(token))
}

func classify(err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
	}
	return err
}

// classifyGraphQL maps githubv4 errors, which only carry text.
func classifyGraphQL(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Could not resolve to an Organization"):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case strings.Contains(msg, "401 Unauthorized"):
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case strings.Contains(msg, "API rate limit"):
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return err
}

package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	syncmodels "contribution-metrics/internal/githubsync/models"
	"contribution-metrics/internal/organization/models"
	"contribution-metrics/internal/organization/service"
	"contribution-metrics/internal/organization/store"
	id "contribution-metrics/pkg/domain"
	"contribution-metrics/pkg/testutil"
)

const adminToken = "s3cret"

type stubSyncer struct {
	report  *syncmodels.Report
	rotated *models.Organization
	err     error
}

func (s *stubSyncer) SyncOrganization(_ context.Context, orgID id.OrganizationID) (*syncmodels.Report, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.report.OrganizationID = orgID
	return s.report, nil
}

func (s *stubSyncer) RefreshToken(_ context.Context, _ id.OrganizationID) (*models.Organization, error) {
	return s.rotated, s.err
}

type OrganizationHandlerSuite struct {
	suite.Suite
	now    time.Time
	syncer *stubSyncer
	router http.Handler
}

func TestOrganizationHandlerSuite(t *testing.T) {
	suite.Run(t, new(OrganizationHandlerSuite))
}

func (s *OrganizationHandlerSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.syncer = &stubSyncer{report: &syncmodels.Report{Organization: "ACME", MembersSeen: 3, Created: 2, Unchanged: 1}}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(service.New(store.NewInMemory()), logger, WithAdminToken(adminToken), WithSyncer(s.syncer))
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func (s *OrganizationHandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.WithRequestTime(req, s.now))
}

func (s *OrganizationHandlerSuite) admin(req *http.Request) *httptest.ResponseRecorder {
	return s.do(testutil.WithAdminToken(req, adminToken))
}

func (s *OrganizationHandlerSuite) createOrg(name string) *models.View {
	rr := s.admin(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/github-organizations", map[string]any{
		"name":           name,
		"accessToken":    "ghp_secret",
		"tokenExpiresAt": s.now.Add(24 * time.Hour).Format(time.RFC3339),
	}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	s.NotContains(rr.Body.String(), "ghp_secret")
	s.NotContains(rr.Body.String(), "accessToken")
	return testutil.UnmarshalResponse[models.View](s.T(), rr)
}

func (s *OrganizationHandlerSuite) TestCreateAndFetch() {
	created := s.createOrg("my-org")
	s.Equal("MY-ORG", created.Name)
	s.False(created.TokenExpired)

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/github-organizations/"+created.ID.String(), nil))
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"tokenExpired":false`)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/github-organizations/name/my-org", nil))
	s.Equal(http.StatusOK, rr.Code)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/github-organizations", nil))
	s.Equal(http.StatusOK, rr.Code)
	list := testutil.UnmarshalResponse[[]models.View](s.T(), rr)
	s.Len(*list, 1)
}

func (s *OrganizationHandlerSuite) TestDuplicateNameIsValidationError() {
	s.createOrg("my-org")
	rr := s.admin(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/github-organizations", map[string]any{
		"name":           "MY-ORG",
		"accessToken":    "t",
		"tokenExpiresAt": s.now.Add(time.Hour).Format(time.RFC3339),
	}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	testutil.AssertErrorDescription(s.T(), rr, "Organization 'MY-ORG' already exists")
}

func (s *OrganizationHandlerSuite) TestMutationsRequireAdminToken() {
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/github-organizations", map[string]any{"name": "x"}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")

	created := s.createOrg("acme")
	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodDelete, "/api/github-organizations/"+created.ID.String(), nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *OrganizationHandlerSuite) TestUpdateAndDelete() {
	created := s.createOrg("acme")
	path := "/api/github-organizations/" + created.ID.String()

	rr := s.admin(testutil.NewJSONRequest(s.T(), http.MethodPut, path, map[string]any{"name": "globex"}))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	updated := testutil.UnmarshalResponse[models.View](s.T(), rr)
	s.Equal("GLOBEX", updated.Name)

	rr = s.admin(testutil.NewJSONRequest(s.T(), http.MethodPut, path, map[string]any{
		"tokenExpiresAt": s.now.Add(-time.Hour).Format(time.RFC3339),
	}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")

	rr = s.admin(testutil.NewJSONRequest(s.T(), http.MethodDelete, path, nil))
	s.Equal(http.StatusNoContent, rr.Code)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, path, nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *OrganizationHandlerSuite) TestInvalidInput() {
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/github-organizations/not-a-uuid", nil))
	s.Equal(http.StatusBadRequest, rr.Code)

	rr = s.admin(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/github-organizations", `{"name":"x","tokenExpiresAt":"yesterday"}`))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *OrganizationHandlerSuite) TestSyncAndRefresh() {
	created := s.createOrg("acme")
	base := "/api/github-organizations/" + created.ID.String()

	rr := s.admin(testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/sync", nil))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	report := testutil.UnmarshalResponse[syncmodels.Report](s.T(), rr)
	s.Equal(created.ID, report.OrganizationID)
	s.Equal(2, report.Created)

	rotated := created.Organization
	rotated.TokenExpiresAt = s.now.Add(time.Hour)
	s.syncer.rotated = &rotated
	rr = s.admin(testutil.NewJSONRequest(s.T(), http.MethodPost, base+"/token/refresh", nil))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
}

func TestSyncRoutesWithoutIntegration(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(service.New(store.NewInMemory()), logger)
	r := chi.NewRouter()
	h.Register(r)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/api/github-organizations/"+id.NewOrganizationID().String()+"/sync", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusServiceUnavailable, "service_unavailable")
}

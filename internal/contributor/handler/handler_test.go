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

	"contribution-metrics/internal/contributor/models"
	"contribution-metrics/internal/contributor/service"
	"contribution-metrics/internal/contributor/store"
	usermodels "contribution-metrics/internal/user/models"
	userstore "contribution-metrics/internal/user/store"
	id "contribution-metrics/pkg/domain"
	"contribution-metrics/pkg/testutil"
)

type ContributorHandlerSuite struct {
	suite.Suite
	now    time.Time
	users  *userstore.InMemory
	router http.Handler
}

func TestContributorHandlerSuite(t *testing.T) {
	suite.Run(t, new(ContributorHandlerSuite))
}

func (s *ContributorHandlerSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.users = userstore.NewInMemory()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(service.New(store.NewInMemory(), s.users), logger)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func (s *ContributorHandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.WithRequestTime(req, s.now))
}

func (s *ContributorHandlerSuite) create(username string) *models.Contributor {
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/github-contributors", map[string]any{
		"currentUsername": username,
		"currentEmail":    username + "@example.com",
		"currentName":     "Dev " + username,
		"allKnownEmails":  []string{"OLD-" + username + "@example.com"},
	}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[models.Contributor](s.T(), rr)
}

func (s *ContributorHandlerSuite) TestCreateAndFetch() {
	created := s.create("octocat")
	s.Equal([]string{"old-octocat@example.com"}, created.AllKnownEmails)
	s.Equal(models.StatusActive, created.Status)

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/github-contributors/"+created.ID.String(), nil))
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"allKnownUsernames":[]`)
	s.Contains(rr.Body.String(), `"userId":null`)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/github-contributors/username/octocat", nil))
	s.Equal(http.StatusOK, rr.Code)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/github-contributors/username/nobody", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *ContributorHandlerSuite) TestListWithFilters() {
	s.create("a")
	s.create("b")

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/github-contributors?email=old-b@example.com", nil))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	page := testutil.UnmarshalResponse[models.Page](s.T(), rr)
	s.Equal(1, page.Total)
	s.Require().Len(page.Data, 1)
	s.Equal("b", page.Data[0].CurrentUsername)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/github-contributors?limit=1", nil))
	s.Require().Equal(http.StatusOK, rr.Code)
	page = testutil.UnmarshalResponse[models.Page](s.T(), rr)
	s.Equal(2, page.Total)
	s.Equal(1, page.Limit)
	s.Len(page.Data, 1)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/github-contributors?limit=500", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/github-contributors?offset=abc", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/github-contributors?userId=nope", nil))
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *ContributorHandlerSuite) TestUpdate() {
	created := s.create("octocat")
	path := "/api/github-contributors/" + created.ID.String()

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, path, map[string]any{
		"currentUsername": "octodog",
		"status":          "inactive",
	}))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	updated := testutil.UnmarshalResponse[models.Contributor](s.T(), rr)
	s.Equal("octodog", updated.CurrentUsername)
	s.Equal([]string{"octocat"}, updated.AllKnownUsernames)
	s.Equal(models.StatusInactive, updated.Status)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, path, map[string]any{"status": "retired"}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	testutil.AssertErrorDescription(s.T(), rr, "Invalid status: retired")
}

func (s *ContributorHandlerSuite) TestLinkAndUnlink() {
	created := s.create("octocat")
	path := "/api/github-contributors/" + created.ID.String() + "/user"

	u, err := usermodels.NewUser(id.NewUserID(), usermodels.NewUserParams{Email: "jane@example.com", Name: "Jane"}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(context.Background(), u))

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, path, map[string]any{"userId": u.ID.String()}))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	linked := testutil.UnmarshalResponse[models.Contributor](s.T(), rr)
	s.Require().NotNil(linked.UserID)
	s.Equal(u.ID, *linked.UserID)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, path, map[string]any{"userId": id.NewUserID().String()}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodDelete, path, nil))
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"userId":null`)
}

func (s *ContributorHandlerSuite) TestDelete() {
	created := s.create("octocat")
	path := "/api/github-contributors/" + created.ID.String()

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodDelete, path, nil))
	s.Equal(http.StatusNoContent, rr.Code)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodDelete, path, nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/github-contributors/not-a-uuid", nil))
	s.Equal(http.StatusBadRequest, rr.Code)
}

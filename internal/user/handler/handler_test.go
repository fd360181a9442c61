package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"contribution-metrics/internal/user/models"
	"contribution-metrics/internal/user/service"
	"contribution-metrics/internal/user/store"
	"contribution-metrics/pkg/platform/httputil"
	"contribution-metrics/pkg/testutil"
)

type UserHandlerSuite struct {
	suite.Suite
	router http.Handler
	now    time.Time
}

func TestUserHandlerSuite(t *testing.T) {
	suite.Run(t, new(UserHandlerSuite))
}

func (s *UserHandlerSuite) SetupTest() {
	s.now = time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(service.New(store.NewInMemory()), logger)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func (s *UserHandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.WithRequestTime(req, s.now))
}

func (s *UserHandlerSuite) createUser(body map[string]any) *models.User {
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/users", body))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[models.User](s.T(), rr)
}

func (s *UserHandlerSuite) TestCreateAndFetch() {
	created := s.createUser(map[string]any{"email": "JOHN@EX.COM", "name": "John", "company": "Acme"})
	s.Equal("john@ex.com", created.Email)
	s.Equal(models.RoleProductEngineer, created.Role)

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/users/"+created.ID.String(), nil))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/users/email/john@ex.com", nil))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	fetched := testutil.UnmarshalResponse[models.User](s.T(), rr)
	s.Equal(created.ID, fetched.ID)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/users", nil))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	list := testutil.UnmarshalResponse[[]models.User](s.T(), rr)
	s.Len(*list, 1)
}

func (s *UserHandlerSuite) TestResponseUsesCamelCase() {
	s.createUser(map[string]any{"email": "camel@ex.com", "name": "Camel"})
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/users/email/camel@ex.com", nil))
	body := rr.Body.String()
	s.Contains(body, `"roleType":"IC"`)
	s.Contains(body, `"appAccessRole":"IC"`)
	s.Contains(body, `"managerId":null`)
}

func (s *UserHandlerSuite) TestCreateValidation() {
	s.createUser(map[string]any{"email": "dup@ex.com", "name": "Dup"})

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"duplicate email", `{"email":"DUP@ex.com","name":"Again"}`, http.StatusBadRequest, "validation_error"},
		{"missing name", `{"email":"x@ex.com"}`, http.StatusBadRequest, "validation_error"},
		{"unknown field", `{"email":"x@ex.com","name":"X","salary":1}`, http.StatusBadRequest, "bad_request"},
		{"malformed manager id", `{"email":"x@ex.com","name":"X","managerId":"nope"}`, http.StatusBadRequest, "invalid_input"},
		{"unknown role", `{"email":"x@ex.com","name":"X","role":"Wizard"}`, http.StatusBadRequest, "validation_error"},
		{"empty body", ``, http.StatusBadRequest, "bad_request"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/users", tc.body))
			testutil.AssertStatusAndError(s.T(), rr, tc.status, tc.code)
		})
	}
}

func (s *UserHandlerSuite) TestUpdateProfileAndEmail() {
	manager := s.createUser(map[string]any{"email": "boss@ex.com", "name": "Boss"})
	u := s.createUser(map[string]any{"email": "dev@ex.com", "name": "Dev", "company": "Acme", "orgFunction": "Engineering"})
	path := "/api/users/" + u.ID.String()

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, path, map[string]any{
		"name":        "Developer",
		"managerId":   manager.ID.String(),
		"company":     nil,
		"orgFunction": nil,
	}))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	updated := testutil.UnmarshalResponse[models.User](s.T(), rr)
	s.Equal("Developer", updated.Name)
	s.Equal("dev@ex.com", updated.Email)
	s.Nil(updated.Company)
	s.Nil(updated.OrgFunction)
	s.True(updated.ReportsTo(manager.ID))

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/users/"+manager.ID.String()+"/reports", nil))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	reports := testutil.UnmarshalResponse[[]models.User](s.T(), rr)
	s.Len(*reports, 1)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, path+"/email", map[string]string{"email": "boss@ex.com"}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, path+"/email", map[string]string{"email": "Dev2@Ex.com"}))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Equal("dev2@ex.com", testutil.UnmarshalResponse[models.User](s.T(), rr).Email)
}

func (s *UserHandlerSuite) TestDeleteAndNotFound() {
	u := s.createUser(map[string]any{"email": "gone@ex.com", "name": "Gone"})
	path := "/api/users/" + u.ID.String()

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodDelete, path, nil))
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, path, nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/users/not-a-uuid", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
}

func TestUpdateRequestNullClearsManager(t *testing.T) {
	var req updateUserRequest
	r := testutil.NewRequestWithBody(t, http.MethodPut, "/", `{"managerId":null,"squad":null}`)
	require.NoError(t, httputil.DecodeJSON(r, &req))

	upd := req.toUpdate()
	assert.True(t, upd.ClearManager)
	assert.Nil(t, upd.ManagerID)
	require.NotNil(t, upd.Squad)
	assert.Equal(t, "", *upd.Squad)
	assert.Nil(t, upd.Tribe)
}

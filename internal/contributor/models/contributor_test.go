package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/testutil"
)

var now = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

func newContributor(t *testing.T, p NewContributorParams) *Contributor {
	t.Helper()
	c, err := NewContributor(id.NewContributorID(), p, now)
	require.NoError(t, err)
	return c
}

func assertInvariant(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	assert.Equal(t, msg, dErrors.MessageOf(err))
}

func TestNewContributor(t *testing.T) {
	testutil.Given(t, "a username with an uppercase email", func(t *testing.T) {
		c := newContributor(t, NewContributorParams{Username: "johndoe", Email: "JOHN@EX.COM", Name: "John Doe"})

		testutil.Then(t, "the email is lowercased and the contributor is active", func(t *testing.T) {
			assert.Equal(t, "john@ex.com", c.CurrentEmail)
			assert.Equal(t, StatusActive, c.Status)
			assert.Nil(t, c.UserID)
			assert.Nil(t, c.LastActiveDate)
			assert.Equal(t, now, c.CreatedAt)
		})
	})

	testutil.Given(t, "messy known aliases", func(t *testing.T) {
		c := newContributor(t, NewContributorParams{
			Username:       "  jd  ",
			Email:          " jd@ex.com ",
			Name:           " JD ",
			KnownUsernames: []string{" old ", "old", "", "  ", "older"},
			KnownEmails:    []string{"A@EX.COM", "a@ex.com ", ""},
			KnownNames:     []string{"Old Name", " Old Name"},
		})

		testutil.Then(t, "fields are trimmed and alias lists are deduplicated in order", func(t *testing.T) {
			assert.Equal(t, "jd", c.CurrentUsername)
			assert.Equal(t, "JD", c.CurrentName)
			assert.Equal(t, []string{"old", "older"}, c.AllKnownUsernames)
			assert.Equal(t, []string{"a@ex.com"}, c.AllKnownEmails)
			assert.Equal(t, []string{"Old Name"}, c.AllKnownNames)
		})
	})

	testutil.Given(t, "invalid input", func(t *testing.T) {
		cases := []struct {
			name   string
			params NewContributorParams
			msg    string
		}{
			{"blank username", NewContributorParams{Username: " ", Email: "a@ex.com", Name: "A"}, "Current username cannot be empty"},
			{"blank email", NewContributorParams{Username: "a", Email: "", Name: "A"}, "Current email cannot be empty"},
			{"malformed email", NewContributorParams{Username: "a", Email: "not-an-email", Name: "A"}, "Invalid email format"},
			{"blank name", NewContributorParams{Username: "a", Email: "a@ex.com", Name: "\t"}, "Current name cannot be empty"},
			{"malformed known email", NewContributorParams{Username: "a", Email: "a@ex.com", Name: "A", KnownEmails: []string{"bad"}}, "Invalid historical email format: bad"},
		}
		for _, tc := range cases {
			testutil.Then(t, tc.name+" is rejected", func(t *testing.T) {
				_, err := NewContributor(id.NewContributorID(), tc.params, now)
				assertInvariant(t, err, tc.msg)
			})
		}
	})
}

func TestUpdateCurrentInfo(t *testing.T) {
	base := newContributor(t, NewContributorParams{Username: "a", Email: "a@ex.com", Name: "Ann"})
	later := now.Add(time.Hour)

	testutil.When(t, "the username changes from a to b and back to a", func(t *testing.T) {
		toB, err := base.UpdateCurrentInfo("b", "a@ex.com", "Ann", later)
		require.NoError(t, err)
		backToA, err := toB.UpdateCurrentInfo("a", "a@ex.com", "Ann", later)
		require.NoError(t, err)

		testutil.Then(t, "both usernames are known exactly once", func(t *testing.T) {
			assert.Equal(t, "a", backToA.CurrentUsername)
			assert.Equal(t, []string{"a", "b"}, backToA.AllKnownUsernames)
			assert.Empty(t, backToA.AllKnownEmails)
			assert.Equal(t, later, backToA.UpdatedAt)
		})

		testutil.Then(t, "earlier values are untouched", func(t *testing.T) {
			assert.Equal(t, "a", base.CurrentUsername)
			assert.Empty(t, base.AllKnownUsernames)
			assert.Equal(t, []string{"a"}, toB.AllKnownUsernames)
		})
	})

	testutil.When(t, "the email changes only by case", func(t *testing.T) {
		next, err := base.UpdateCurrentInfo("a", " A@EX.COM ", "Ann", later)
		require.NoError(t, err)

		testutil.Then(t, "nothing is demoted", func(t *testing.T) {
			assert.Empty(t, next.AllKnownEmails)
		})
	})

	testutil.When(t, "every field changes", func(t *testing.T) {
		next, err := base.UpdateCurrentInfo("ann-gh", "ann@corp.com", "Ann Smith", later)
		require.NoError(t, err)

		testutil.Then(t, "every old value is demoted", func(t *testing.T) {
			assert.Equal(t, []string{"a"}, next.AllKnownUsernames)
			assert.Equal(t, []string{"a@ex.com"}, next.AllKnownEmails)
			assert.Equal(t, []string{"Ann"}, next.AllKnownNames)
		})
	})

	testutil.When(t, "the new values are invalid", func(t *testing.T) {
		_, err := base.UpdateCurrentInfo(" ", "a@ex.com", "Ann", later)
		assertInvariant(t, err, "Username cannot be empty")
		_, err = base.UpdateCurrentInfo("a", "", "Ann", later)
		assertInvariant(t, err, "Email cannot be empty")
		_, err = base.UpdateCurrentInfo("a", "nope", "Ann", later)
		assertInvariant(t, err, "Invalid email format")
		_, err = base.UpdateCurrentInfo("a", "a@ex.com", "", later)
		assertInvariant(t, err, "Name cannot be empty")
	})
}

func TestAddAllKnownData(t *testing.T) {
	base := newContributor(t, NewContributorParams{Username: "a", Email: "a@ex.com", Name: "Ann", KnownUsernames: []string{"x"}})

	next, err := base.AddAllKnownData([]string{"x", " y "}, []string{"B@EX.COM", ""}, []string{"Annie"}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, next.AllKnownUsernames)
	assert.Equal(t, []string{"b@ex.com"}, next.AllKnownEmails)
	assert.Equal(t, []string{"Annie"}, next.AllKnownNames)
	assert.Equal(t, "a", next.CurrentUsername)
	assert.Equal(t, []string{"x"}, base.AllKnownUsernames)

	_, err = base.AddAllKnownData(nil, []string{"broken"}, nil, now)
	assertInvariant(t, err, "Invalid email format: broken")
}

func TestQueries(t *testing.T) {
	c := newContributor(t, NewContributorParams{
		Username:       "current",
		Email:          "now@ex.com",
		Name:           "Now",
		KnownUsernames: []string{"old1", "old2"},
		KnownEmails:    []string{"then@ex.com"},
		KnownNames:     []string{"Then"},
	})

	assert.True(t, c.HasUsedEmail(" NOW@EX.COM"))
	assert.True(t, c.HasUsedEmail("Then@Ex.com"))
	assert.False(t, c.HasUsedEmail("other@ex.com"))
	assert.False(t, c.HasUsedEmail(""))
	assert.True(t, c.HasUsedUsername(" old2 "))
	assert.False(t, c.HasUsedUsername("OLD2"))
	assert.True(t, c.HasUsedName("Then"))

	assert.Equal(t, []string{"current", "old1", "old2"}, c.AllUsernames())
	assert.Equal(t, []string{"now@ex.com", "then@ex.com"}, c.AllEmails())
	assert.Equal(t, []string{"Now", "Then"}, c.AllNames())
}

func TestLinkStatusAndActivity(t *testing.T) {
	c := newContributor(t, NewContributorParams{Username: "a", Email: "a@ex.com", Name: "Ann"})
	userID := id.NewUserID()

	linked, err := c.LinkToUser(userID, now)
	require.NoError(t, err)
	require.NotNil(t, linked.UserID)
	assert.Equal(t, userID, *linked.UserID)
	assert.True(t, linked.IsLinked())
	assert.False(t, c.IsLinked())

	_, err = c.LinkToUser(id.UserID{}, now)
	assertInvariant(t, err, "User ID cannot be empty")

	assert.Nil(t, linked.UnlinkFromUser(now).UserID)

	inactive, err := c.UpdateStatus(StatusInactive, now)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, inactive.Status)

	_, err = c.UpdateStatus("gone", now)
	assertInvariant(t, err, "Invalid status: gone")

	seen := now.Add(-24 * time.Hour)
	active := c.UpdateLastActiveDate(seen, now)
	require.NotNil(t, active.LastActiveDate)
	assert.Equal(t, seen, *active.LastActiveDate)
	assert.Nil(t, c.LastActiveDate)
}

package contributor

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(ctx context.Context, path string, body any) error
	Status() int
	Body() []byte
	GetResponseField(field string) (any, error)
	Remember(name, value string)
	Expand(s string) string
}

// RegisterSteps registers fixture steps for users, organizations and contributors
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &contributorSteps{tc: tc}

	ctx.Step(`^a user "([^"]*)" with email "([^"]*)" exists as "([^"]*)"$`, steps.userExists)
	ctx.Step(`^a contributor "([^"]*)" with email "([^"]*)" exists as "([^"]*)"$`, steps.contributorExists)
	ctx.Step(`^an organization "([^"]*)" exists as "([^"]*)"$`, steps.organizationExists)
}

type contributorSteps struct {
	tc TestContext
}

func (s *contributorSteps) userExists(ctx context.Context, name, email, alias string) error {
	return s.create(ctx, "/api/users", alias, map[string]any{
		"email":         s.tc.Expand(email),
		"name":          name,
		"role":          "Product Engineer",
		"roleType":      "IC",
		"appAccessRole": "IC",
	})
}

func (s *contributorSteps) contributorExists(ctx context.Context, username, email, alias string) error {
	return s.create(ctx, "/api/github-contributors", alias, map[string]any{
		"currentUsername": s.tc.Expand(username),
		"currentEmail":    s.tc.Expand(email),
		"currentName":     s.tc.Expand(username),
	})
}

func (s *contributorSteps) organizationExists(ctx context.Context, name, alias string) error {
	return s.create(ctx, "/api/github-organizations", alias, map[string]any{
		"name":           s.tc.Expand(name),
		"accessToken":    "ghp_e2e",
		"tokenExpiresAt": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	})
}

// create posts body and remembers the new resource id under alias.
func (s *contributorSteps) create(ctx context.Context, path, alias string, body map[string]any) error {
	if err := s.tc.POST(ctx, path, body); err != nil {
		return err
	}
	if s.tc.Status() != 201 {
		return fmt.Errorf("POST %s: expected 201, got %d (body: %s)", path, s.tc.Status(), s.tc.Body())
	}
	v, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.Remember(alias, fmt.Sprint(v))
	return nil
}

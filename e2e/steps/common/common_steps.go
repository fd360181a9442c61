package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(ctx context.Context, path string) error
	POST(ctx context.Context, path string, body any) error
	PUT(ctx context.Context, path string, body any) error
	DELETE(ctx context.Context, path string) error
	Status() int
	Body() []byte
	GetResponseField(field string) (any, error)
	Remember(name, value string)
	Expand(s string) string
}

// RegisterSteps registers request and assertion steps shared by all features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the API is running$`, steps.apiIsRunning)

	// Requests
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I DELETE "([^"]*)"$`, steps.delete)
	ctx.Step(`^I POST to "([^"]*)" with body:$`, steps.postWithBody)
	ctx.Step(`^I PUT to "([^"]*)" with body:$`, steps.putWithBody)

	// Assertions
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be null$`, steps.fieldShouldBeNull)
	ctx.Step(`^the response should not have field "([^"]*)"$`, steps.shouldNotHaveField)
	ctx.Step(`^the response field "([^"]*)" should be (\d+)$`, steps.fieldShouldBeNumber)
	ctx.Step(`^the response field "([^"]*)" should contain "([^"]*)"$`, steps.fieldShouldContain)
	ctx.Step(`^the response field "([^"]*)" should have (\d+) items?$`, steps.fieldShouldHaveItems)
	ctx.Step(`^the error should be "([^"]*)" with description "([^"]*)"$`, steps.errorShouldBe)

	ctx.Step(`^I remember the response field "([^"]*)" as "([^"]*)"$`, steps.rememberField)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) apiIsRunning(ctx context.Context) error {
	if err := s.tc.GET(ctx, "/health"); err != nil {
		return err
	}
	return s.statusShouldBe(ctx, 200)
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(ctx, path)
}

func (s *commonSteps) delete(ctx context.Context, path string) error {
	return s.tc.DELETE(ctx, path)
}

func (s *commonSteps) postWithBody(ctx context.Context, path string, body *godog.DocString) error {
	return s.tc.POST(ctx, path, body.Content)
}

func (s *commonSteps) putWithBody(ctx context.Context, path string, body *godog.DocString) error {
	return s.tc.PUT(ctx, path, body.Content)
}

func (s *commonSteps) statusShouldBe(_ context.Context, want int) error {
	if got := s.tc.Status(); got != want {
		return fmt.Errorf("expected status %d, got %d (body: %s)", want, got, s.tc.Body())
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(_ context.Context, field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	want = s.tc.Expand(want)
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s to be %q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeNull(_ context.Context, field string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if v != nil {
		return fmt.Errorf("expected %s to be null, got %v", field, v)
	}
	return nil
}

func (s *commonSteps) shouldNotHaveField(_ context.Context, field string) error {
	if v, err := s.tc.GetResponseField(field); err == nil {
		return fmt.Errorf("expected no %s in response, got %v", field, v)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeNumber(_ context.Context, field string, want int) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	n, ok := v.(float64)
	if !ok || int(n) != want {
		return fmt.Errorf("expected %s to be %d, got %v", field, want, v)
	}
	return nil
}

func (s *commonSteps) fieldShouldContain(_ context.Context, field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	want = s.tc.Expand(want)
	items, ok := v.([]any)
	if !ok {
		if str, isStr := v.(string); isStr && strings.Contains(str, want) {
			return nil
		}
		return fmt.Errorf("expected %s to contain %q, got %v", field, want, v)
	}
	for _, item := range items {
		if fmt.Sprint(item) == want {
			return nil
		}
	}
	return fmt.Errorf("expected %s to contain %q, got %v", field, want, items)
}

func (s *commonSteps) fieldShouldHaveItems(_ context.Context, field string, want int) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("expected %s to be an array, got %T", field, v)
	}
	if len(items) != want {
		return fmt.Errorf("expected %s to have %d items, got %d", field, want, len(items))
	}
	return nil
}

func (s *commonSteps) errorShouldBe(ctx context.Context, code, description string) error {
	if err := s.fieldShouldBe(ctx, "error", code); err != nil {
		return err
	}
	return s.fieldShouldBe(ctx, "error_description", description)
}

func (s *commonSteps) rememberField(_ context.Context, field, name string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	s.tc.Remember(name, fmt.Sprint(v))
	return nil
}

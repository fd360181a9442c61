package e2e

import (
	"github.com/cucumber/godog"

	"contribution-metrics/e2e/steps/common"
	"contribution-metrics/e2e/steps/contributor"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Generic requests, assertions and remembered values
	common.RegisterSteps(ctx, tc)

	// Users, organizations and contributors
	contributor.RegisterSteps(ctx, tc)
}

package e2e

import (
	"github.com/cucumber/godog"

	"startingline/e2e/steps/checkout"
	"startingline/e2e/steps/common"
)

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	checkout.RegisterSteps(ctx, tc)
}

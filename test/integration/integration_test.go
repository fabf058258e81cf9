package integration

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures runs the Gherkin scenarios under features/ against a
// PostgreSQL container. GODOG_TAGS narrows the run, e.g. "@groups".
func TestFeatures(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("set INTEGRATION_TEST=1 to run the feature suite")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tc, err := NewTestContext(ctx)
	if err != nil {
		t.Fatalf("start test environment: %v", err)
	}
	defer tc.Close(ctx)

	opts := &godog.Options{
		Format:   "pretty",
		Paths:    []string{"features"},
		Tags:     os.Getenv("GODOG_TAGS"),
		Strict:   true,
		TestingT: t,
	}
	suite := godog.TestSuite{
		Name: "terraso",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			NewStepsContext(tc).RegisterSteps(sc)
		},
		Options: opts,
	}
	if status := suite.Run(); status != 0 {
		t.Fatalf("feature suite exited with status %d", status)
	}
}

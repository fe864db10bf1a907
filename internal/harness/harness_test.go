package harness

import (
	"context"
	"errors"
	"testing"

	"solfuzz/config"
	"solfuzz/internal/builder"
	"solfuzz/internal/contract"

	"go.uber.org/zap"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{Environment: config.EnvTest}
}

func TestSuiteRunsEachCaseOnFreshContract(t *testing.T) {
	suite := NewSuite(testConfig(), zap.NewNop())

	suite.RegisterTest("first_sets_value", func(c *Check) {
		c.Contract().SetValue(42)
		c.AssertEqual(c.Contract().Value(), 42)
	})
	suite.RegisterTest("second_sees_zero", func(c *Check) {
		// state must not leak from the previous case
		c.AssertEqual(c.Contract().Value(), 0)
	})

	results := suite.Run(context.Background())
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("case %q failed: %s", r.Name, r.Message)
		}
	}
}

func TestDefaultSuiteReportsFailingProperty(t *testing.T) {
	suite := DefaultSuite(testConfig(), zap.NewNop())

	results := suite.Run(context.Background())

	var roundTrip, property *Result
	for i := range results {
		switch results[i].Name {
		case "set_value_roundtrip":
			roundTrip = &results[i]
		case "value_is_greater_than_100":
			property = &results[i]
		}
	}

	if roundTrip == nil || property == nil {
		t.Fatalf("default suite missing expected cases, got %+v", results)
	}
	if !roundTrip.Passed {
		t.Errorf("set_value_roundtrip failed: %s", roundTrip.Message)
	}
	// 42 is not greater than 100: the property must be reported as a
	// failure, not silently passed and not escalated to an error
	if property.Passed {
		t.Error("value_is_greater_than_100 passed, want reported failure")
	}
	if property.Kind != PropertyKind {
		t.Errorf("property kind = %q, want %q", property.Kind, PropertyKind)
	}
}

func TestSuitePanicBecomesFailedResult(t *testing.T) {
	suite := NewSuite(testConfig(), zap.NewNop())
	suite.RegisterTest("panics", func(c *Check) {
		panic("boom")
	})

	results := suite.Run(context.Background())
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Passed {
		t.Error("panicking case reported as passed")
	}
}

func TestPropertyNamesCarryFuzzerPrefix(t *testing.T) {
	suite := NewSuite(testConfig(), zap.NewNop())
	suite.RegisterProperty("value_is_greater_than_100", func(c contract.Contract) bool {
		return c.Value() > 100
	})

	names := suite.PropertyNames()
	if len(names) != 1 || names[0] != "echidna_value_is_greater_than_100" {
		t.Errorf("PropertyNames() = %v, want [echidna_value_is_greater_than_100]", names)
	}
}

func TestFailedFiltersResults(t *testing.T) {
	results := []Result{
		{Name: "a", Passed: true},
		{Name: "b", Passed: false, Message: "nope"},
		{Name: "c", Passed: true},
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "b" {
		t.Errorf("Failed() = %+v, want only case b", failed)
	}
}

func TestBuildAndRunEmptySourceSkipsCampaign(t *testing.T) {
	cfg := testConfig()
	tb := &TestBuilder{
		cfg:      cfg,
		logger:   zap.NewNop(),
		compiler: builder.NewSolcCompiler(cfg, zap.NewNop()),
	}

	// must not reach the compiler or the queue, and must not crash
	results, err := tb.BuildAndRun(context.Background(), contract.NewSource(""))
	if !errors.Is(err, builder.ErrEmptySource) {
		t.Fatalf("BuildAndRun() error = %v, want builder.ErrEmptySource", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d suite results, want 2: the suite still runs for an empty source", len(results))
	}
}

func TestSuiteStopsOnCancelledContext(t *testing.T) {
	suite := NewSuite(testConfig(), zap.NewNop())
	suite.RegisterTest("never_runs", func(c *Check) {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := suite.Run(ctx)
	if len(results) != 0 {
		t.Errorf("got %d results on cancelled context, want 0", len(results))
	}
}

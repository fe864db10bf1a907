// Package harness holds the in-process test suite that runs before a fuzz
// campaign is launched. Example tests and properties register explicitly;
// there is no discovery mechanism.
package harness

import (
	"context"
	"fmt"

	"solfuzz/config"
	"solfuzz/internal/contract"
	"solfuzz/pkg/telemetry"

	"go.uber.org/zap"
)

const (
	ExampleKind  = "example"
	PropertyKind = "property"
)

// Result is the outcome of one registered case. A failed property is a
// reported failure, never an error out of Run.
type Result struct {
	Name    string
	Kind    string
	Passed  bool
	Message string
}

// Check carries assertion helpers into an example test body. A failed
// assertion marks the case failed; it does not panic across the harness.
type Check struct {
	contract contract.Contract

	failed  bool
	message string
}

func (c *Check) Contract() contract.Contract {
	return c.contract
}

func (c *Check) Assert(cond bool, msg string) {
	if cond || c.failed {
		return
	}
	c.failed = true
	c.message = msg
}

func (c *Check) AssertEqual(got, want int64) {
	c.Assert(got == want, fmt.Sprintf("got %d, want %d", got, want))
}

type testCase struct {
	name string
	kind string
	run  func(*Check)                 // example cases
	prop func(contract.Contract) bool // property cases
}

// Suite executes registered cases against fresh contract instances.
// Configuration is passed in explicitly; the suite holds no process-wide
// mutable state.
type Suite struct {
	cfg         *config.AppConfig
	logger      *zap.Logger
	newContract func() contract.Contract
	cases       []testCase
}

func NewSuite(cfg *config.AppConfig, logger *zap.Logger) *Suite {
	return &Suite{
		cfg:         cfg,
		logger:      logger.Named("harness"),
		newContract: func() contract.Contract { return contract.NewStubContract() },
	}
}

// WithContractFactory overrides the contract constructor, for running the
// suite against something other than the stub.
func (s *Suite) WithContractFactory(f func() contract.Contract) *Suite {
	s.newContract = f
	return s
}

func (s *Suite) RegisterTest(name string, fn func(*Check)) {
	s.cases = append(s.cases, testCase{name: name, kind: ExampleKind, run: fn})
}

func (s *Suite) RegisterProperty(name string, prop func(contract.Contract) bool) {
	s.cases = append(s.cases, testCase{name: name, kind: PropertyKind, prop: prop})
}

// PropertyNames returns registered property names in the naming convention
// the external fuzzer discovers, e.g. "echidna_value_is_greater_than_100".
func (s *Suite) PropertyNames() []string {
	var names []string
	for _, c := range s.cases {
		if c.kind == PropertyKind {
			names = append(names, "echidna_"+c.name)
		}
	}
	return names
}

// Run executes every registered case in registration order, each against a
// fresh contract instance. It returns one Result per case and stops early
// only when the context is done.
func (s *Suite) Run(ctx context.Context) []Result {
	tracer := telemetry.FromContext(ctx).Spawn("running contract suite")
	tracer.WithAttributes(telemetry.NewSpanAttributes(telemetry.PropertyChecking))
	tracer.Start()
	defer tracer.End()

	results := make([]Result, 0, len(s.cases))
	for _, tc := range s.cases {
		select {
		case <-ctx.Done():
			return results
		default:
		}
		result := s.runCase(tc)
		if result.Passed {
			s.logger.Debug("case passed", zap.String("name", result.Name), zap.String("kind", result.Kind))
		} else {
			s.logger.Warn("case failed",
				zap.String("name", result.Name),
				zap.String("kind", result.Kind),
				zap.String("message", result.Message))
		}
		results = append(results, result)
	}
	return results
}

func (s *Suite) runCase(tc testCase) (result Result) {
	result = Result{Name: tc.name, Kind: tc.kind, Passed: true}

	// a panicking case body is a failed case, not a crashed harness
	defer func() {
		if r := recover(); r != nil {
			result.Passed = false
			result.Message = fmt.Sprintf("panic: %v", r)
		}
	}()

	switch tc.kind {
	case ExampleKind:
		check := &Check{contract: s.newContract()}
		tc.run(check)
		if check.failed {
			result.Passed = false
			result.Message = check.message
		}
	case PropertyKind:
		if !tc.prop(s.newContract()) {
			result.Passed = false
			result.Message = "property does not hold"
		}
	}
	return result
}

// Failed filters results down to the failing ones.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

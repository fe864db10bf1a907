package harness

import (
	"context"
	"encoding/json"
	"fmt"

	"solfuzz/config"
	"solfuzz/internal/builder"
	"solfuzz/internal/contract"
	"solfuzz/pkg/mq"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// TestBuilder runs the in-process suite against a contract source and, when
// the source compiles, hands the contract off to the build queue so a fuzz
// campaign gets scheduled.
type TestBuilder struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	compiler *builder.SolcCompiler
	rabbitMQ mq.RabbitMQ
}

type TestBuilderParams struct {
	fx.In

	Config   *config.AppConfig
	Logger   *zap.Logger
	Compiler *builder.SolcCompiler
	RabbitMQ mq.RabbitMQ
}

func NewTestBuilder(params TestBuilderParams) *TestBuilder {
	return &TestBuilder{
		params.Config,
		params.Logger.Named("testbuilder"),
		params.Compiler,
		params.RabbitMQ,
	}
}

// DefaultSuite builds the suite with the stock example test and property.
//
// The property intentionally does not hold: the stub starts from zero and the
// example drives the value to 42, so value_is_greater_than_100 evaluates to
// false and shows up as a reported failure. That is the expected output, not
// a bug to fix here.
func DefaultSuite(cfg *config.AppConfig, logger *zap.Logger) *Suite {
	suite := NewSuite(cfg, logger)

	suite.RegisterTest("set_value_roundtrip", func(c *Check) {
		c.Contract().SetValue(42)
		c.AssertEqual(c.Contract().Value(), 42)
	})

	suite.RegisterProperty("value_is_greater_than_100", func(c contract.Contract) bool {
		c.SetValue(42)
		return c.Value() > 100
	})

	return suite
}

// BuildAndRun executes the in-process suite against the source, compiles it,
// and enqueues a build job for the fuzzing pipeline. An empty source runs the
// suite but skips the campaign; the returned error is builder.ErrEmptySource
// and callers must treat it as a skip, not a crash.
func (t *TestBuilder) BuildAndRun(ctx context.Context, src contract.Source) ([]Result, error) {
	suite := DefaultSuite(t.cfg, t.logger)
	results := suite.Run(ctx)

	for _, failure := range Failed(results) {
		t.logger.Warn("suite case failed before campaign launch",
			zap.String("name", failure.Name),
			zap.String("kind", failure.Kind),
			zap.String("message", failure.Message))
	}

	if src.Empty() {
		t.logger.Warn("contract source is empty, no campaign to launch",
			zap.String("source_hash", src.Hash()))
		return results, builder.ErrEmptySource
	}

	// compile once here so a broken source fails fast, before it occupies
	// the build queue
	artifact, err := t.compiler.CompileWithRetry(ctx, src)
	if err != nil {
		return results, err
	}
	t.logger.Info("contract compiles, submitting build job",
		zap.String("contract", artifact.Contract),
		zap.Strings("properties", artifact.Properties))

	if err := t.submitJob(src); err != nil {
		return results, fmt.Errorf("failed to submit build job: %w", err)
	}

	return results, nil
}

func (t *TestBuilder) submitJob(src contract.Source) error {
	job := builder.ContractJob{
		JobId:   src.Hash(),
		Project: t.cfg.ServiceName,
		Source:  src.Text(),
	}
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return t.rabbitMQ.PublishJSON(builder.BuildQueueName, jobBytes)
}

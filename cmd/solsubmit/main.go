package main

// submit a sample contract into the fuzzing pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"solfuzz/config"
	"solfuzz/internal/builder"
	"solfuzz/internal/contract"
	"solfuzz/internal/harness"
	"solfuzz/pkg/database"
	"solfuzz/pkg/logger"
	"solfuzz/pkg/mq"
	"solfuzz/pkg/telemetry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	MetadataKey    = "global:job_metadata:%s"
	JobTraceCtxKey = "global:trace_context:%s"
	JobStatusKey   = "global:job_status:%s"
)

const sampleContract = `// SPDX-License-Identifier: MIT
pragma solidity ^0.8.0;

contract SimpleStorage {
    int256 private value;

    function setValue(int256 v) public {
        value = v;
    }

    function getValue() public view returns (int256) {
        return value;
    }

    function echidna_value_is_greater_than_100() public view returns (bool) {
        return value > 100;
    }
}
`

type submitApp struct {
	redisClient  *redis.Client
	logger       *zap.Logger
	traceFactory *telemetry.TracerFactory
	testBuilder  *harness.TestBuilder
	shutdowner   fx.Shutdowner
}

type submitParams struct {
	fx.In
	RedisClient  *redis.Client
	Logger       *zap.Logger
	TraceFactory *telemetry.TracerFactory
	TestBuilder  *harness.TestBuilder
	Shutdowner   fx.Shutdowner
}

func newSubmitApp(p submitParams) *submitApp {
	return &submitApp{
		redisClient:  p.RedisClient,
		logger:       p.Logger,
		traceFactory: p.TraceFactory,
		testBuilder:  p.TestBuilder,
		shutdowner:   p.Shutdowner,
	}
}

func (s *submitApp) submit(ctx context.Context, sourceText string) error {
	defer s.shutdowner.Shutdown()

	src := contract.NewSource(sourceText)
	jobId := src.Hash()

	// register the job so the scheduler picks its campaigns up
	s.redisClient.Set(ctx, fmt.Sprintf(JobStatusKey, jobId), "processing", 0)

	metadata := struct {
		Project string `json:"project"`
		JobId   string `json:"job_id"`
	}{
		"solsubmit",
		jobId,
	}
	metadataJson, _ := json.Marshal(metadata)
	s.redisClient.Set(ctx, fmt.Sprintf(MetadataKey, jobId), metadataJson, 0)

	tracer := s.traceFactory.NewTracer(ctx, jobId)
	tracer.Start()
	defer tracer.End()
	s.redisClient.Set(ctx, fmt.Sprintf(JobTraceCtxKey, jobId), tracer.Export(), 0)

	runCtx := context.WithValue(ctx, telemetry.TracerKey{}, tracer)
	results, err := s.testBuilder.BuildAndRun(runCtx, src)

	for _, result := range results {
		if result.Passed {
			s.logger.Info("case passed", zap.String("name", result.Name), zap.String("kind", result.Kind))
		} else {
			s.logger.Warn("case failed",
				zap.String("name", result.Name),
				zap.String("kind", result.Kind),
				zap.String("message", result.Message))
		}
	}

	if errors.Is(err, builder.ErrEmptySource) {
		s.logger.Warn("empty contract source, campaign skipped", zap.String("job_id", jobId))
		return nil
	}
	if err != nil {
		s.logger.Error("failed to submit contract", zap.Error(err))
		return err
	}

	s.logger.Info("Successfully submitted contract job", zap.String("job_id", jobId))
	return nil
}

func NewAppContext(lc fx.Lifecycle) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
	return ctx
}

func main() {
	// Parse command line flags
	help := flag.Bool("help", false, "Show help message")
	empty := flag.Bool("empty", false, "Submit an empty contract source (skipped campaign)")
	sourceFile := flag.String("source", "", "Path to a contract source file (defaults to the built-in sample)")
	flag.Parse()

	if *help {
		fmt.Println("Usage: solsubmit [options]")
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	sourceText := sampleContract
	if *empty {
		sourceText = ""
	} else if *sourceFile != "" {
		content, err := os.ReadFile(*sourceFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read source file: %v\n", err)
			os.Exit(1)
		}
		sourceText = string(content)
	}

	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			telemetry.NewTelemetry,
			logger.NewLogger,
			telemetry.NewTracerFactory,
			mq.NewRabbitMQ,
			database.NewRedisClient,
			builder.NewSolcCompiler,
			harness.NewTestBuilder,
			NewAppContext,
			newSubmitApp,
		),
		fx.Invoke(func(submit *submitApp, ctx context.Context) error {
			return submit.submit(ctx, sourceText)
		}),
	)

	app.Run()
}

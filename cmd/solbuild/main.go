package main

import (
	"context"

	"solfuzz/config"
	"solfuzz/internal/builder"
	"solfuzz/pkg/database"
	"solfuzz/pkg/logger"
	"solfuzz/pkg/mq"
	"solfuzz/pkg/telemetry"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

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
	app := fx.New(
		fx.Provide(
			NewAppContext,              // inject app context
			config.LoadConfig,          // inject config
			logger.NewLogger,           // inject logger
			telemetry.NewTelemetry,     // inject telemetry
			telemetry.NewTracerFactory, // inject telemetry tracer factory
			database.NewRedisClient,    // inject redis client
			builder.NewSolcCompiler,    // inject solc compiler
			mq.NewRabbitMQ,             // inject rabbitmq service
			database.NewDBConnection,   // inject db connection
		),
		fx.Invoke(
			builder.StartJobBuilder,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)
	app.Run()
}

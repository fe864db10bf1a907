package main

import (
	"solfuzz/config"
	"solfuzz/internal/corpus"
	"solfuzz/internal/dict"
	"solfuzz/internal/findings"
	"solfuzz/internal/fuzz"
	"solfuzz/internal/fuzz/echidna"
	"solfuzz/internal/scheduler"
	"solfuzz/pkg/database"
	"solfuzz/pkg/logger"
	"solfuzz/pkg/mq"
	"solfuzz/pkg/telemetry"
	"solfuzz/pkg/watchdog"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,           // inject config
			database.NewDBConnection,    // inject db connection
			database.NewRedisClient,     // inject redis client
			logger.NewLogger,            // inject logger
			mq.NewRabbitMQ,              // inject rabbitmq service
			telemetry.NewTelemetry,      // inject telemetry
			telemetry.NewTracerFactory,  // inject telemetry tracer factory
			fuzz.NewCampaignRunner,      // inject campaign runner
			dict.NewDictGrabber,         // inject dict grabber
			findings.NewFindingManager,  // inject finding manager
			corpus.NewCorpusManager,     // inject corpus manager
			watchdog.NewWatchDogFactory, // inject watchdog factory
		),
		echidna.EchidnaModule,       // inject echidna fuzzer module
		fuzz.MedusaModule,           // inject medusa fuzzer placeholder
		corpus.CorpusGrabbersModule, // inject seed grabbers
		fx.Invoke(
			scheduler.NewScheduler,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			zlogger := fxevent.ZapLogger{Logger: log}
			zlogger.UseLogLevel(zap.DebugLevel)
			return &zlogger
		}),
	)
	app.Run()
}

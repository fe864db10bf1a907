package builder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"solfuzz/config"
	"solfuzz/internal/contract"
	"solfuzz/pkg/mq"
	"solfuzz/pkg/telemetry"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	BuildQueueName   = "contract_build_queue"
	MetadataKey      = "global:job_metadata:%s"
	JobTraceCtxKey   = "global:trace_context:%s"
	BuildTraceCtxKey = "artifacts:trace_context:%s"
	JobStatusKey     = "global:job_status:%s"
)

// received from RabbitMQ
type ContractJob struct {
	JobId      string   `json:"job_id"`
	Project    string   `json:"project"`
	SourcePath string   `json:"source_path"`      // path to a directory holding the contract source
	Source     string   `json:"source,omitempty"` // inline source, used when no path is shared
	Engines    []string `json:"engines,omitempty"`
}

type JobMetadata map[string]any // Metadata for the job, stored in Redis

type JobBuilder struct {
	logger        *zap.Logger
	rabbitMQ      mq.RabbitMQ // builder receives messages from message queue
	redisClient   *redis.Client
	compiler      *SolcCompiler
	tracerFactory *telemetry.TracerFactory
	shutdowner    fx.Shutdowner

	// state
	failedCount map[string]int // job_id -> failed count

	// settings
	localDir string
}

type JobBuilderParams struct {
	fx.In

	Logger        *zap.Logger
	RabbitMQ      mq.RabbitMQ
	RedisClient   *redis.Client
	Compiler      *SolcCompiler
	Config        *config.AppConfig
	TracerFactory *telemetry.TracerFactory
	Shutdowner    fx.Shutdowner
}

func StartJobBuilder(p JobBuilderParams, ctx context.Context /* app context */) *JobBuilder {
	// create local dir if not exists
	localDir := filepath.Join(os.TempDir(), "solfuzz")
	if err := os.MkdirAll(localDir, 0755); err != nil {
		p.Logger.Fatal("Failed to create local dir", zap.Error(err))
	}

	builder := &JobBuilder{
		p.Logger,
		p.RabbitMQ,
		p.RedisClient,
		p.Compiler,
		p.TracerFactory,
		p.Shutdowner,
		make(map[string]int),
		localDir,
	}

	go builder.start(ctx)
	return builder
}

func (b *JobBuilder) start(ctx context.Context) {
	const retryLimit = 3
	failCnt := 0

	for {
		errChan := make(chan error)

		// start listening in a separate goroutine
		go func() {
			errChan <- b.listen(ctx)
		}()

		select {
		case <-ctx.Done():
			// context canceled, exit the loop
			return
		case err := <-errChan:
			if err != nil {
				b.logger.Warn("Job builder failed to listen for messages", zap.Error(err))
				failCnt++

				if failCnt >= retryLimit {
					b.logger.Warn("Retry limit reached, shutting down...", zap.Error(err))
					b.shutdowner.Shutdown()
					return
				}
			}
			b.logger.Warn("retrying...")
		}
	}
}

// listen initializes the job builder and starts listening for messages
func (b *JobBuilder) listen(ctx context.Context) error {
	b.logger.Info("Starting job listener")

	channel := b.rabbitMQ.GetChannel()
	if channel == nil {
		b.logger.Error("failed to get RabbitMQ channel")
		return fmt.Errorf("failed to get RabbitMQ channel")
	}
	defer channel.Close()

	// Set QoS to limit the number of unacknowledged messages
	if err := channel.Qos(1, 0, false); err != nil {
		b.logger.Error("failed to set QoS", zap.Error(err))
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	// declare the queue (idempotent)
	// this is a no-op if the queue already exists
	q, err := channel.QueueDeclare(
		BuildQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		b.logger.Error("failed to declare queue", zap.Error(err))
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	// Create message consume channel
	b.logger.Info("Waiting for messages in queue", zap.String("queue", q.Name))
	msg, err := channel.Consume(
		q.Name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		b.logger.Error("failed to register consumer", zap.Error(err))
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	errChan := make(chan error)

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.logger.Info("Context done, stopping message consumer")
				return
			case message, ok := <-msg:
				if !ok {
					b.logger.Error("Channel closed, stopping message consumer")
					errChan <- fmt.Errorf("channel closed")
					return
				}
				if err := b.onMessage(ctx, message); err != nil {
					b.logger.Error("Failed to handle message", zap.Error(err))
					errChan <- err
				}
			}
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errChan:
		return err
	}
}

func (b *JobBuilder) onMessage(ctx context.Context, message amqp.Delivery) error {
	b.logger.Info("Received message", zap.String("message", string(message.Body)))

	// parse the message
	var job ContractJob
	if err := json.Unmarshal(message.Body, &job); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	// grab the job metadata from Redis
	jobMetadata := make(JobMetadata)
	metadataJsonStr, err := b.redisClient.Get(ctx, fmt.Sprintf(MetadataKey, job.JobId)).Result()
	if err != nil {
		b.logger.Error("Failed to get job metadata from Redis", zap.Error(err))
	} else {
		if err := json.Unmarshal([]byte(metadataJsonStr), &jobMetadata); err != nil {
			b.logger.Error("Failed to unmarshal job metadata", zap.Error(err))
		} else {
			b.logger.Info("Job metadata retrieved from Redis", zap.Any("metadata", jobMetadata))
		}
	}

	// a single contract build is cheap; 10 minutes covers retries
	buildCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	// create a new tracer for this job
	tracerJsonStr, err := b.redisClient.Get(buildCtx, fmt.Sprintf(JobTraceCtxKey, job.JobId)).Result()
	if err != nil {
		b.logger.Error("Failed to get trace context from Redis", zap.Error(err))
	}
	tracer := b.tracerFactory.NewTracerSpawnedFrom(buildCtx, tracerJsonStr, "building contract artifacts").
		WithAttributes(
			telemetry.NewSpanAttributes(telemetry.Compiling).
				WithExtraAttributes(jobMetadata),
		)
	tracer.Start()
	defer tracer.End()

	// and inject it into the context
	buildCtx = context.WithValue(buildCtx, telemetry.TracerKey{}, tracer)
	if err := b.redisClient.Set(buildCtx, fmt.Sprintf(BuildTraceCtxKey, job.JobId), tracer.Export(), 0).Err(); err != nil {
		b.logger.Error("Failed to set trace context in Redis", zap.Error(err))
	}

	if err := b.buildJob(buildCtx, job); err != nil {
		if errors.Is(err, ErrEmptySource) {
			// an empty contract is a degenerate job, not a failure:
			// ack it so the queue drains and nothing crashes downstream
			b.logger.Warn("Job has empty contract source, skipping", zap.String("jobID", job.JobId))
			if err := message.Ack(false); err != nil {
				b.logger.Error("Failed to ack message", zap.Error(err))
				return fmt.Errorf("failed to ack message: %w", err)
			}
			return nil
		}

		b.logger.Error("Failed to build job", zap.Error(err))

		// increase the failed count. If retried 3 times, we will not retry again
		b.failedCount[job.JobId] += 1
		isRequeue := b.failedCount[job.JobId] < 3
		if err := message.Nack(false, isRequeue); err != nil {
			b.logger.Error("Failed to nack message", zap.Error(err))
			b.shutdowner.Shutdown()
		}

		return fmt.Errorf("failed to build job: %w", err)
	}

	// ACK the message
	if err := message.Ack(false); err != nil {
		b.logger.Error("Failed to ack message", zap.Error(err))
		return fmt.Errorf("failed to ack message: %w", err)
	}

	return nil
}

func (b *JobBuilder) buildJob(ctx context.Context, job ContractJob) error {
	src, sourceDir, err := b.loadSource(job)
	if err != nil {
		return err
	}

	manifest, err := b.LoadManifest(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to load campaign manifest: %w", err)
	}

	artifact, err := b.compiler.CompileWithRetry(ctx, src)
	if err != nil {
		return err
	}
	artifact.CampaignId = job.JobId

	uploadPath, err := b.uploadArtifact(ctx, job.JobId, artifact)
	if err != nil {
		return fmt.Errorf("failed to upload artifact: %w", err)
	}

	if err := b.updateContractList(ctx, job.JobId, artifact.Contract); err != nil {
		b.logger.Error("Failed to update contract list in Redis",
			zap.String("jobID", job.JobId),
			zap.String("contract", artifact.Contract),
			zap.Error(err))
	}

	// dictionary from function signatures and mined source constants
	if _, err := b.uploadDict(ctx, job.JobId, artifact, src); err != nil {
		b.logger.Warn("Failed to upload dictionary, fuzzing proceeds without it",
			zap.String("jobID", job.JobId),
			zap.String("contract", artifact.Contract),
			zap.Error(err))
	}

	engines := job.Engines
	if len(engines) == 0 {
		engines = manifest.Engines
	}

	// one campaign per (check, engine) pair
	for _, check := range manifest.Checks {
		for _, engine := range engines {
			if err := b.addCampaign(ctx, job.JobId, artifact.Contract, check, engine, uploadPath); err != nil {
				b.logger.Error("Failed to add campaign to Redis",
					zap.String("jobID", job.JobId),
					zap.String("check", check),
					zap.String("engine", engine),
					zap.Error(err))
				continue
			}
		}
	}

	// mark the job as schedulable
	if err := b.redisClient.Set(ctx, fmt.Sprintf(JobStatusKey, job.JobId), "processing", 0).Err(); err != nil {
		b.logger.Error("Failed to set job status in Redis", zap.Error(err))
	}

	return nil
}

// loadSource resolves the contract source from the inline field or the shared
// source directory, and returns the directory holding campaign.yaml.
func (b *JobBuilder) loadSource(job ContractJob) (contract.Source, string, error) {
	if job.SourcePath == "" {
		return contract.NewSource(job.Source), b.localDir, nil
	}

	sourceFile := job.SourcePath
	info, err := os.Stat(job.SourcePath)
	if err != nil {
		return contract.Source{}, "", fmt.Errorf("failed to stat source path: %w", err)
	}
	sourceDir := filepath.Dir(job.SourcePath)
	if info.IsDir() {
		sourceDir = job.SourcePath
		sourceFile, err = findContractSource(job.SourcePath)
		if err != nil {
			return contract.Source{}, "", err
		}
	}

	content, err := os.ReadFile(sourceFile)
	if err != nil {
		return contract.Source{}, "", fmt.Errorf("failed to read contract source: %w", err)
	}
	return contract.NewSource(string(content)), sourceDir, nil
}

// findContractSource picks the single .sol file in a source directory.
func findContractSource(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.sol"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no .sol file found in %s", dir)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("expected one .sol file in %s, found %d", dir, len(matches))
	}
	return matches[0], nil
}

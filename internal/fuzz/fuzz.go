package fuzz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"solfuzz/internal/corpus"
	"solfuzz/internal/findings"
	"solfuzz/internal/types"
	"solfuzz/pkg/telemetry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	MetadataKey      = "global:job_metadata:%s"
	JobTraceCtxKey   = "global:trace_context:%s"
	BuildTraceCtxKey = "artifacts:trace_context:%s"
)

type JobMetadata map[string]any // Metadata for the job, stored in Redis

type CampaignRunner struct {
	logger         *zap.Logger
	findingManager *findings.FindingManager
	corpusManager  *corpus.CorpusManager
	fuzzerMap      map[string]Fuzzer
	tracerFactory  *telemetry.TracerFactory
	redisClient    *redis.Client
}

type CampaignRunnerParams struct {
	fx.In
	Logger         *zap.Logger
	FindingManager *findings.FindingManager
	CorpusManager  *corpus.CorpusManager
	Fuzzers        []Fuzzer `group:"fuzzers"`
	TracerFactory  *telemetry.TracerFactory
	RedisClient    *redis.Client
}

func NewCampaignRunner(params CampaignRunnerParams) *CampaignRunner {
	fuzzerMap := make(map[string]Fuzzer)
	for _, fuzzer := range params.Fuzzers {
		fuzzerV := reflect.ValueOf(fuzzer)
		if fuzzerV.Kind() == reflect.Ptr && fuzzerV.IsNil() {
			continue // skip nil fuzzer
		}
		for _, engine := range fuzzer.SupportedEngines() {
			fuzzerMap[engine] = fuzzer
			params.Logger.Debug("fuzzer registered", zap.String("engine", engine))
		}
	}

	return &CampaignRunner{
		params.Logger,
		params.FindingManager,
		params.CorpusManager,
		fuzzerMap,
		params.TracerFactory,
		params.RedisClient,
	}
}

// run the fuzzer with the given timeout. Fuzzing should stop after the timeout is reached.
func (f *CampaignRunner) RunFuzz(ctx context.Context, campaign *types.Campaign, timeout time.Duration) error {
	if campaign == nil {
		f.logger.Error("campaign is nil")
		return errors.New("campaign is nil")
	}

	f.logger.Info("running campaign",
		zap.String("campaign_id", campaign.CampaignId),
		zap.String("contract", campaign.Contract),
		zap.String("check", campaign.Check),
		zap.String("engine", campaign.FuzzEngine),
	)

	// grab the job metadata from Redis
	jobMetadata := make(JobMetadata)
	metadataJsonStr, err := f.redisClient.Get(ctx, fmt.Sprintf(MetadataKey, campaign.CampaignId)).Result()
	if err != nil {
		f.logger.Error("Failed to get job metadata from Redis", zap.Error(err))
	} else {
		if err := json.Unmarshal([]byte(metadataJsonStr), &jobMetadata); err != nil {
			f.logger.Error("Failed to unmarshal job metadata", zap.Error(err))
		}
	}

	// grab the trace context from Redis
	tracerJsonStr, err := f.redisClient.Get(ctx, fmt.Sprintf(JobTraceCtxKey, campaign.CampaignId)).Result()
	if err != nil {
		f.logger.Error("Failed to get trace context from Redis", zap.Error(err))
	}
	builderJsonStr, err := f.redisClient.Get(ctx, fmt.Sprintf(BuildTraceCtxKey, campaign.CampaignId)).Result()
	if err != nil {
		f.logger.Error("Failed to get build trace context from Redis", zap.Error(err))
	}

	// spawn from global job span, also link with build span
	span := fmt.Sprintf("solfuzz fuzzing %s", campaign.CampaignId)
	fuzzTracer := f.tracerFactory.NewTracerSpawnedWithLink(ctx, tracerJsonStr, []string{builderJsonStr}, span).
		WithAttributes(
			telemetry.NewSpanAttributes(telemetry.Fuzzing).
				WithExtraAttributes(jobMetadata).
				WithTargetContract(campaign.Contract).
				WithCampaignCheck(campaign.Check),
		)
	fuzzTracer.Start()
	defer fuzzTracer.End()

	fuzzCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	fuzzCtx = context.WithValue(fuzzCtx, telemetry.TracerKey{}, fuzzTracer)

	fuzzer, ok := f.fuzzerMap[campaign.FuzzEngine]
	if !ok {
		f.logger.Error("fuzzer not found", zap.String("fuzz_engine", campaign.FuzzEngine))
		return errors.New("fuzzer not found")
	}

	handler, err := fuzzer.RunFuzz(fuzzCtx, campaign, timeout)
	if err != nil {
		f.logger.Error("failed to run fuzzer", zap.Error(err))
		return err
	}

	// route findings to finding manager
	findingChan, err := handler.ConsumeFindings()
	if err != nil {
		f.logger.Error("failed to consume findings", zap.Error(err))
		return err
	}
	f.findingManager.RegisterFindingChan(fuzzCtx, findingChan)

	// route corpus seeds to corpus manager
	corpusChan, err := handler.ConsumeCorpus()
	if err != nil {
		f.logger.Error("failed to consume corpus", zap.Error(err))
		return err
	}
	f.corpusManager.RegisterCorpusChan(corpusChan)

	// wait until the fuzzer is finished
	handler.BlockUntilFinished()

	return nil
}

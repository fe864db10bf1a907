package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"

	"solfuzz/internal/utils"
	"solfuzz/pkg/telemetry"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type CorpusGrabber struct {
	grabbers []Grabber
	logger   *zap.Logger
}

type CorpusGrabberParams struct {
	fx.In

	Logger           *zap.Logger
	RedisSeedGrabber *RedisSeedGrabber
	DBSeedGrabber    *DBSeedGrabber
	MockSeedGrabber  *RandomSeedGrabber
}

func NewCorpusGrabber(params CorpusGrabberParams) *CorpusGrabber {
	return &CorpusGrabber{
		grabbers: []Grabber{
			params.RedisSeedGrabber,
			params.DBSeedGrabber,
			params.MockSeedGrabber,
		},
		logger: params.Logger,
	}
}

func (s *CorpusGrabber) getCorpusBlob(ctx context.Context, campaignId, contract string) (string, error) {
	for _, grabber := range s.grabbers {
		if grabber == nil || reflect.ValueOf(grabber).IsNil() {
			s.logger.Warn("one seed grabber is nil")
			continue // skip nil grabbers
		}
		corpusTar, err := s.getCorpusBlobFrom(ctx, campaignId, contract, grabber)
		if err == nil {
			return corpusTar, nil
		}
	}
	return "", errors.New("no corpus available")
}

func (s *CorpusGrabber) getCorpusBlobFrom(ctx context.Context, campaignId, contract string, grabber Grabber) (string, error) {
	tracer := telemetry.FromContext(ctx)
	grabberSpan := fmt.Sprintf("syncing corpus from %s", reflect.ValueOf(grabber).String())
	grabberTracer := tracer.Spawn(grabberSpan)
	grabberTracer.Start()
	defer grabberTracer.End()

	corpusTar, err := grabber.GrabCorpusBlob(campaignId, contract)
	if err != nil {
		s.logger.Warn("failed to grab corpus",
			zap.String("grabber", reflect.ValueOf(grabber).String()),
			zap.String("campaignId", campaignId),
			zap.String("contract", contract),
			zap.Error(err))
		grabberTracer.AddEvent("failed_to_grab_corpus", telemetry.EventAttributes{})
		return "", fmt.Errorf("failed to grab corpus: %w", err)
	}

	s.logger.Info("grabbed corpus",
		zap.String("grabber", reflect.ValueOf(grabber).String()),
		zap.String("campaignId", campaignId),
		zap.String("contract", contract))
	return corpusTar, nil
}

func (s *CorpusGrabber) CollectCorpusToDir(ctx context.Context, campaignId, contract, dir string) error {
	if _, err := os.Stat(dir); err != nil {
		s.logger.Error("failed to find corpus folder",
			zap.String("campaignId", campaignId),
			zap.String("contract", contract),
			zap.String("corpus_folder", dir),
			zap.Error(err))
		return err
	}

	tracer := telemetry.FromContext(ctx)
	corpusTracer := tracer.Spawn("syncing corpus")
	corpusTracer.Start()
	defer corpusTracer.End()
	collectorCtx := context.WithValue(ctx, telemetry.TracerKey{}, corpusTracer)

	corpusBlob, err := s.getCorpusBlob(collectorCtx, campaignId, contract)
	if err != nil {
		return err
	}

	// unpack corpus tar file to corpus folder (flat)
	if err := utils.UnpackTarGz(corpusBlob, dir); err != nil {
		s.logger.Error("failed to unpack corpus tar file",
			zap.String("campaignId", campaignId),
			zap.String("contract", contract),
			zap.String("corpus_folder", dir),
			zap.Error(err))
		return err
	}

	// how many seeds are there in the corpus?
	files, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Error("failed to read corpus folder",
			zap.String("campaignId", campaignId),
			zap.String("contract", contract),
			zap.String("corpus_folder", dir),
			zap.Error(err))
	}
	s.logger.Info("successfully get corpus for fuzzing",
		zap.String("campaignId", campaignId),
		zap.String("contract", contract),
		zap.String("corpus_folder", dir),
		zap.Int("seed_count", len(files)))

	corpusTracer.WithAttributes(
		telemetry.EmptySpanAttributes().WithCorpusSize(len(files)),
	)

	return nil
}

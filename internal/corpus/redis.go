package corpus

import (
	"context"
	"fmt"
	"os"

	"solfuzz/internal/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// MinimizedCorpusKey points at the latest minimized seed bundle for a
// (campaign, contract) pair, written back by the corpus minimizer.
const MinimizedCorpusKey = "corpus:%s:%s" // corpus:<campaign_id>:<contract>

type RedisSeedGrabber struct {
	redisClient    *redis.Client
	logger         *zap.Logger
	seedGrabberCtx context.Context
}

func NewRedisSeedGrabber(redisClient *redis.Client, logger *zap.Logger, lifeCycle fx.Lifecycle) *RedisSeedGrabber {
	// a context for the seed grabber. The context will be cancelled when the application stops
	seedGrabberCtx, cancel := context.WithCancel(context.Background())
	lifeCycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})

	return &RedisSeedGrabber{
		redisClient,
		logger,
		seedGrabberCtx,
	}
}

// GrabCorpusBlob retrieves the minimized seed bundle path from Redis
func (s *RedisSeedGrabber) GrabCorpusBlob(campaignId, contract string) (string, error) {
	key := fmt.Sprintf(MinimizedCorpusKey, campaignId, contract)

	// get the seed path from redis
	seedPath, err := s.redisClient.Get(s.seedGrabberCtx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("no seed found for contract %s in redis", contract)
	}
	if err != nil {
		return "", err
	}

	s.logger.Info("Got seed bundle from minimizer",
		zap.String("campaignId", campaignId),
		zap.String("contract", contract),
		zap.String("seedPath", seedPath))

	if err := validateSeedBlob(seedPath); err != nil {
		return "", err
	}

	return seedPath, nil
}

// validateSeedBlob rejects seed bundle paths that do not point at a non-empty
// tar.gz file. The path comes from Redis and may be stale or wrong in any
// way, so every stat failure is an error, not only a missing file.
func validateSeedBlob(seedPath string) error {
	fileInfo, err := os.Stat(seedPath)
	if err != nil {
		return fmt.Errorf("seed blob %s is not accessible: %w", seedPath, err)
	}
	if fileInfo.Size() == 0 {
		return fmt.Errorf("seed blob %s is empty", seedPath)
	}
	if !utils.IsTarGz(seedPath) {
		return fmt.Errorf("seed blob %s is not a valid tar.gz file", seedPath)
	}
	return nil
}

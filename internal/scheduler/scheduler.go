package scheduler

import (
	"context"
	"errors"
	"time"

	"solfuzz/config"
	"solfuzz/internal/fuzz"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Scheduler struct {
	redisClient    *redis.Client
	logger         *zap.Logger
	campaignRunner *fuzz.CampaignRunner
	picker         *picker

	done chan struct{}
}

type SchedulerParams struct {
	fx.In

	Lc             fx.Lifecycle
	RedisClient    *redis.Client
	Logger         *zap.Logger
	CampaignRunner *fuzz.CampaignRunner
	AppConfig      *config.AppConfig
}

func NewScheduler(params SchedulerParams) *Scheduler {
	scheduler := &Scheduler{
		params.RedisClient,
		params.Logger,
		params.CampaignRunner,
		NewPicker(params.AppConfig.CampaignConfig.SchedulingInterval),
		make(chan struct{}),
	}

	schedulerCtx, cancel := context.WithCancel(context.Background())

	params.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go scheduler.start(schedulerCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			<-scheduler.done
			return nil
		},
	})
	return scheduler
}

// starts a loop to step epochs
func (s *Scheduler) start(ctx context.Context) {
	defer close(s.done)
	var err error
	for {
		var delay time.Duration
		if err != nil {
			delay = 10 * time.Second
		}

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context done, stopping scheduler")
			return
		case <-time.After(delay):
			err = s.stepEpoch(ctx)
		}
	}
}

// run an epoch (blocking)
func (s *Scheduler) stepEpoch(ctx context.Context) error {
	campaigns, err := s.getCampaigns(ctx)
	if err != nil {
		s.logger.Warn("redis campaigns key not available, contracts are still building", zap.Error(err))
		return err
	}
	if len(campaigns) == 0 {
		s.logger.Warn("no campaigns available")
		return errors.New("no campaigns available")
	}

	campaign, timeout := s.picker.pick(campaigns)
	return s.campaignRunner.RunFuzz(ctx, campaign, timeout)
}

package corpus

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"solfuzz/internal/types"
	"solfuzz/internal/utils"
	"solfuzz/pkg/database"
	"solfuzz/pkg/mq"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CorpusManager struct {
	rabbitMQ mq.RabbitMQ
	db       *gorm.DB
	logger   *zap.Logger

	bundleFolder string
	corpusChan   chan types.CorpusMessage
	corpusChanWg sync.WaitGroup
}

const (
	CorpusMinQueueName = "corpus_min_queue"
)

func NewCorpusManager(rabbitMQ mq.RabbitMQ, db *gorm.DB, logger *zap.Logger, lifeCycle fx.Lifecycle) *CorpusManager {
	bundleFolder := filepath.Join("/var/lib/solfuzz/corpus")
	if err := os.MkdirAll(bundleFolder, 0755); err != nil {
		// if we can't create the bundle folder, there's no point in continueing
		logger.Fatal("failed to create corpus bundle folder", zap.Error(err))
		return nil
	}

	c := &CorpusManager{
		rabbitMQ,
		db,
		logger,
		bundleFolder,
		make(chan types.CorpusMessage, 1024),
		sync.WaitGroup{},
	}

	lifeCycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			c.logger.Debug("starting corpus manager")
			if err := c.declareCorpusMinQueue(); err != nil {
				c.logger.Fatal("failed to declare corpus min queue", zap.Error(err))
				return err
			}
			go c.start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			c.logger.Debug("stopping corpus manager")
			c.corpusChanWg.Wait() // wait until all corpus channels are properly closed
			close(c.corpusChan)
			return nil
		},
	})

	return c
}

func (c *CorpusManager) declareCorpusMinQueue() error {
	// declare the corpus min queue
	channel := c.rabbitMQ.GetChannel()
	defer channel.Close()
	_, err := channel.QueueDeclare(
		CorpusMinQueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}
	return nil
}

// Route the messages in a corpus message channel to the fan-in channel
func (c *CorpusManager) RegisterCorpusChan(rCh <-chan types.CorpusMessage) {
	c.corpusChanWg.Add(1)
	go func() {
		defer c.corpusChanWg.Done()
		for seed := range rCh {
			c.corpusChan <- seed
		}
	}()
}

func (c *CorpusManager) start() {
	const batchSize = 1024
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	batch := make([]types.CorpusMessage, 0, batchSize)

	for {
		select {
		case seed, ok := <-c.corpusChan:
			if !ok {
				// channel closed: flush any remaining seeds, then exit
				if len(batch) > 0 {
					c.processCorpusMessages(batch)
				}
				return
			}
			// accumulate
			batch = append(batch, seed)

			// threshold reached: flush immediately
			if len(batch) >= batchSize {
				c.processCorpusMessages(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			// timer fired: flush whatever we have
			if len(batch) > 0 {
				c.processCorpusMessages(batch)
				batch = batch[:0]
			}
		}
	}
}

type campaignContract struct {
	campaignID string
	contract   string
	check      string
}

func (c *CorpusManager) processCorpusMessages(msgs []types.CorpusMessage) error {
	// group the seeds by (campaign id, contract) pair
	contractSeeds := make(map[campaignContract][]string)
	for _, msg := range msgs {
		if msg.Campaign == nil {
			c.logger.Fatal("campaign in message is Nil")
		}
		key := campaignContract{msg.Campaign.CampaignId, msg.Campaign.Contract, msg.Campaign.Check}
		contractSeeds[key] = append(contractSeeds[key], msg.SeedFile)
	}

	wg := sync.WaitGroup{}

	// for each (campaign id, contract) pair, create a new seed bundle
	for key, seeds := range contractSeeds {
		wg.Add(1)

		go func(key campaignContract, seeds []string) {
			defer wg.Done()
			c.logger.Debug("processing corpus messages",
				zap.String("campaign_id", key.campaignID),
				zap.String("contract", key.contract),
				zap.Int("seeds_count", len(seeds)))
			// use a tmp folder to collect the seeds together
			tmpDir, err := os.MkdirTemp("", "seed-bundle-*")
			if err != nil {
				c.logger.Error("failed to create tmp dir for seed bundle", zap.Error(err))
				return
			}
			defer os.RemoveAll(tmpDir)

			// copy the seeds to the tmp dir, rename them using UUID
			for _, seed := range seeds {
				utils.CopyFile(seed, filepath.Join(tmpDir, uuid.New().String()))
			}

			bundleName := key.contract + "-" + uuid.New().String() + ".tar.gz"
			bundlePath := filepath.Join(c.bundleFolder, bundleName)
			if err := utils.CompressTarGz(tmpDir, bundlePath); err != nil {
				c.logger.Error("failed to create seed bundle", zap.Error(err))
				return
			}

			// craft a CorpusBundleMessage
			bundleMsg := types.CorpusBundleMessage{
				CampaignId:   key.campaignID,
				Contract:     key.contract,
				SeedBlobPath: bundlePath,
			}
			bundleMsgBytes, err := json.Marshal(bundleMsg)
			if err != nil {
				c.logger.Error("failed to marshal CorpusBundleMessage to JSON", zap.Error(err), zap.Any("bundleMsg", bundleMsg))
				return
			}

			// send the CorpusBundleMessage to the corpus min queue
			if err := c.rabbitMQ.PublishJSON(CorpusMinQueueName, bundleMsgBytes); err != nil {
				c.logger.Error("failed to publish corpus bundle message", zap.Error(err))
			}

			// send the seed blob to database
			hostname, _ := os.Hostname()
			corpusEntry := database.NewCorpusEntry(
				key.campaignID,
				bundlePath,
				key.contract,
				database.CheckTypeEnum(key.check),
				hostname,
				0,
				database.Metric{})
			if err := database.AddCorpusEntry(context.Background(), c.db, corpusEntry); err != nil {
				c.logger.Error("failed to save seeds to database", zap.Error(err), zap.Any("seeds", seeds))
				return
			}
		}(key, seeds)
	}

	wg.Wait()
	return nil
}

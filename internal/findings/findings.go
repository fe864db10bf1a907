package findings

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"solfuzz/internal/types"
	"solfuzz/pkg/database"
	"solfuzz/pkg/telemetry"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type FindingManager struct {
	db     *gorm.DB
	logger *zap.Logger

	findingFolder string
	findingChan   chan types.FindingMessage
	wg            sync.WaitGroup
	done          chan struct{}
}

func NewFindingManager(db *gorm.DB, logger *zap.Logger, lifeCycle fx.Lifecycle) *FindingManager {
	findingFolder := filepath.Join("/var/lib/solfuzz/findings")
	if err := os.MkdirAll(findingFolder, 0755); err != nil {
		// if we can't create the finding folder, there's no point in continueing
		logger.Fatal("failed to create finding folder", zap.Error(err))
		return nil
	}

	f := &FindingManager{
		db,
		logger,
		findingFolder,
		make(chan types.FindingMessage, 1024),
		sync.WaitGroup{},
		make(chan struct{}),
	}

	lifeCycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			f.logger.Debug("starting finding manager")
			go f.start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			f.logger.Info("stopping finding manager")
			f.wg.Wait() // wait until all finding channels are properly closed
			f.logger.Debug("closing finding channel")
			close(f.findingChan)
			f.logger.Debug("waiting for finding manager to finish processing")
			<-f.done // wait until all findings are processed
			return nil
		},
	})

	return f
}

func (f *FindingManager) RegisterFindingChan(ctx context.Context, rCh <-chan types.FindingMessage) {
	f.wg.Add(1)
	tracer := telemetry.FromContext(ctx)
	findingTracer := tracer.Spawn("finding manager")
	findingTracer.Start()
	go func() {
		defer f.wg.Done()
		defer findingTracer.End()

		findingCounter := 0
		for finding := range rCh {
			findingCounter++
			f.logger.Debug("new finding message received", zap.Any("finding", finding))
			f.findingChan <- finding
		}
		f.logger.Debug("finding channel closed")

		findingTracer.WithAttributes(telemetry.EmptySpanAttributes().WithExtraAttribute("findings_found", findingCounter))
	}()
	f.logger.Debug("new finding channel registered")
}

func (f *FindingManager) start() {
	defer close(f.done)
	for finding := range f.findingChan {
		err := f.processReproducerFile(finding)
		if err != nil {
			f.logger.Error("failed to process reproducer file", zap.Error(err))
			continue
		}
	}
}

// processReproducerFile stores a single reproducer under a content-addressed
// path and records the finding in the database.
func (f *FindingManager) processReproducerFile(msg types.FindingMessage) error {
	findingStore := filepath.Join(f.findingFolder, msg.Campaign.CampaignId, msg.Campaign.Contract, msg.Campaign.Check)
	if err := os.MkdirAll(findingStore, 0755); err != nil {
		return fmt.Errorf("failed to create finding store directory: %w", err)
	}

	// Read the reproducer and get the md5 hash
	reproData, err := os.ReadFile(msg.ReproducerFile)
	if err != nil {
		return fmt.Errorf("failed to read reproducer file: %w", err)
	}
	reproMd5 := md5.Sum(reproData)
	reproPath := filepath.Join(findingStore, hex.EncodeToString(reproMd5[:]))
	err = os.WriteFile(reproPath, reproData, 0644)
	if err != nil {
		return fmt.Errorf("failed to write reproducer file: %w", err)
	}

	// Create and submit the finding
	finding := database.NewFinding(
		msg.Campaign.CampaignId,
		reproPath,
		msg.Campaign.Contract,
		msg.Campaign.Check,
	)

	// Use the global context for database operations
	if err := database.AddFindings(context.Background(), f.db, []*database.Finding{finding}); err != nil {
		return fmt.Errorf("failed to add finding: %w", err)
	}

	return nil
}

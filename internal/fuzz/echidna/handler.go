package echidna

import (
	"context"
	"os"
	"path"
	"sync"
	"time"

	"solfuzz/internal/types"
	"solfuzz/pkg/watchdog"

	"go.uber.org/zap"
)

type EchidnaFuzzerHandler struct {
	findingChan      chan types.FindingMessage
	corpusChan       chan types.CorpusMessage
	findingWatchDog  *watchdog.WatchDog
	coverageWatchDog *watchdog.WatchDog

	corpusFolder string

	logger *zap.Logger

	wg *sync.WaitGroup
}

func (f *EchidnaFuzzerHandler) ConsumeFindings() (<-chan types.FindingMessage, error) {
	return f.findingChan, nil
}

func (f *EchidnaFuzzerHandler) ConsumeCorpus() (<-chan types.CorpusMessage, error) {
	return f.corpusChan, nil
}

func (f *EchidnaFuzzerHandler) BlockUntilFinished() {
	f.wg.Wait()
}

// startReproducerMonitor waits for echidna's reproducers directory to appear
// and adds it to the finding watchdog.
//
// Echidna creates the directory lazily on the first violated check, so this
// method polls every 10 seconds until it exists or the context is cancelled.
func (f *EchidnaFuzzerHandler) startReproducerMonitor(fuzzCtx context.Context) {
	reproducerFolder := path.Join(f.corpusFolder, "reproducers")

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-fuzzCtx.Done():
			return
		case <-ticker.C:
			if _, err := os.Stat(reproducerFolder); err == nil {
				f.findingWatchDog.AddDir(reproducerFolder)
				f.logger.Debug("added reproducer folder to watch dog", zap.String("reproducer_dir", reproducerFolder))
				return
			}
		}
	}
}

// startCoverageMonitor waits for echidna's coverage directory to become
// available and adds it to the coverage watchdog. The monitor stops if the
// context is cancelled.
func (f *EchidnaFuzzerHandler) startCoverageMonitor(fuzzCtx context.Context) {
	coverageFolder := path.Join(f.corpusFolder, "coverage")

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-fuzzCtx.Done():
			return
		case <-ticker.C:
			if _, err := os.Stat(coverageFolder); err == nil {
				f.coverageWatchDog.AddDir(coverageFolder)
				f.logger.Debug("added coverage folder to watch dog", zap.String("coverage_dir", coverageFolder))
				return
			}
		}
	}
}

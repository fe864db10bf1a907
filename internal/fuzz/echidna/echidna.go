package echidna

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"strings"
	"sync"
	"time"

	"solfuzz/config"
	"solfuzz/internal/corpus"
	"solfuzz/internal/dict"
	"solfuzz/internal/fuzz"
	"solfuzz/internal/types"
	"solfuzz/internal/utils"
	"solfuzz/pkg/telemetry"
	"solfuzz/pkg/watchdog"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	EchidnaTmpDir       = "/tmp/solfuzz/echidna"
	EchidnaArtifactsDir = "/tmp/solfuzz/echidna/artifacts" // artifacts/<campaign_id>/<contract>/<check>
)

type EchidnaFuzzer struct {
	logger        *zap.Logger
	watchDogFac   *watchdog.WatchDogFactory
	corpusGrabber *corpus.CorpusGrabber
	dictGrabber   *dict.DictGrabber
	appConfig     *config.AppConfig
}

type EchidnaFuzzerParams struct {
	fx.In

	Logger        *zap.Logger
	CorpusGrabber *corpus.CorpusGrabber
	DictGrabber   *dict.DictGrabber
	WatchDogFac   *watchdog.WatchDogFactory
	AppConfig     *config.AppConfig
}

func NewEchidnaFuzzer(params EchidnaFuzzerParams) *EchidnaFuzzer {
	// check if echidna is correctly installed
	if _, err := exec.LookPath(params.AppConfig.EchidnaPath); err != nil {
		params.Logger.Error("echidna not found", zap.Error(err))
		return nil
	}

	return &EchidnaFuzzer{
		params.Logger,
		params.WatchDogFac,
		params.CorpusGrabber,
		params.DictGrabber,
		params.AppConfig,
	}
}

func (f *EchidnaFuzzer) SupportedEngines() []string {
	return []string{"echidna"}
}

func (f *EchidnaFuzzer) RunFuzz(ctx context.Context, campaign *types.Campaign, timeout time.Duration) (fuzz.FuzzerHandler, error) {
	// Initialize tracer and logger
	tracer := telemetry.FromContext(ctx)
	logger := f.logger.With(
		zap.String("campaign_id", campaign.CampaignId),
		zap.String("contract", campaign.Contract),
		zap.String("fuzz_engine", campaign.FuzzEngine),
		zap.String("check", campaign.Check),
	)
	startTime := time.Now()

	// Minimize fuzzing I/O latency by copying the contract source to a local directory
	tracer.AddEvent("fuzzer.echidna.prepare_target", telemetry.EventAttributes{})
	localTargetPath, err := f.prepareLocalTarget(campaign)
	if err != nil {
		logger.Error("failed to prepare local target", zap.Error(err))
		return nil, err
	}

	// Create the corpus and workspace folders for echidna
	corpusFolder, workFolder, err := f.prepareDirs(campaign)
	if err != nil {
		logger.Error("failed to prepare directories", zap.Error(err))
		return nil, err
	}

	// Copy existing seeds to the corpus folder
	tracer.AddEvent("fuzzer.echidna.prepare_seeds", telemetry.EventAttributes{})
	if err := f.corpusGrabber.CollectCorpusToDir(ctx, campaign.CampaignId, campaign.Contract, corpusFolder); err != nil {
		logger.Error("failed to grab seeds", zap.Error(err))
	}

	// Merge constants mined from the source into single-call seeds. Echidna has
	// no dictionary flag, so interesting constants enter through the corpus.
	tracer.AddEvent("fuzzer.echidna.prepare_dicts", telemetry.EventAttributes{})
	if err := f.seedCorpusFromDict(ctx, campaign, corpusFolder); err != nil {
		logger.Warn("failed to seed corpus from dict, will fuzz without it", zap.Error(err))
	}

	echidnaWaitGroup := &sync.WaitGroup{}

	// Calculate the graceful shutdown timeout
	// This is the time we give echidna to finish processing before we kill it.
	deadline := startTime.Add(timeout)
	remaining := time.Until(deadline)
	gracefulTimeout := time.Duration(float64(remaining) * 0.9)

	tracer.AddEvent("fuzzer.echidna.start", telemetry.EventAttributes{})

	instance := &EchidnaInstance{
		campaign.Contract,
		campaign.Check,
		localTargetPath,
		corpusFolder,
		workFolder,
		f.appConfig.CampaignConfig.TestLimit,
		f.appConfig.CampaignConfig.SeqLen,
		f.appConfig.CoreCount,
		f.appConfig.EchidnaPath,
		logger,
	}

	echidnaWaitGroup.Add(1)
	go func() {
		defer echidnaWaitGroup.Done()
		instance.Fuzz(ctx, gracefulTimeout)
	}()

	findingFileNotifyChan := make(chan string, 1024)
	findingChan := make(chan types.FindingMessage, 1024)
	go f.findingProxy(ctx, campaign, findingFileNotifyChan, findingChan)

	coverageFileNotifyChan := make(chan string, 1024)
	corpusChan := make(chan types.CorpusMessage, 1024)
	go f.seedProxy(campaign, coverageFileNotifyChan, corpusChan)

	handler := &EchidnaFuzzerHandler{
		findingChan,
		corpusChan,
		f.watchDogFac.New(ctx, findingFileNotifyChan, filterReproducerFiles),
		f.watchDogFac.New(ctx, coverageFileNotifyChan, filterCoverageFiles),
		corpusFolder,
		logger,
		echidnaWaitGroup,
	}
	go handler.startReproducerMonitor(ctx)
	go handler.startCoverageMonitor(ctx)

	return handler, nil
}

// filterReproducerFiles filters out files that are not call sequences but live in the reproducers folder
func filterReproducerFiles(reproFileName string) bool {
	reproBaseName := path.Base(reproFileName)
	return !strings.HasPrefix(reproBaseName, ".")
}

// filterCoverageFiles filters out echidna's coverage report files, which are not seeds
func filterCoverageFiles(seedFileName string) bool {
	seedBaseName := path.Base(seedFileName)
	return !strings.HasPrefix(seedBaseName, "covered.")
}

// findingProxy listens for reproducer file notifications and forwards finding messages.
//
// It receives reproducer file paths from fileNotifyChan, constructs FindingMessage
// objects with the provided campaign, and sends them to findingChan. On the first
// finding, it emits a "first_finding" event using the provided telemetry tracer.
func (f *EchidnaFuzzer) findingProxy(ctx context.Context, campaign *types.Campaign, fileNotifyChan <-chan string, findingChan chan<- types.FindingMessage) {
	tracer := telemetry.FromContext(ctx)
	defer close(findingChan)

	ever_found := false
	for reproFile := range fileNotifyChan {
		findingMsg := types.FindingMessage{
			ReproducerFile: reproFile,
			Campaign:       campaign,
		}
		findingChan <- findingMsg
		if !ever_found {
			tracer.AddEvent("first_finding",
				telemetry.NewEventAttributes(map[string]string{
					"reproducer_name": path.Base(reproFile),
				}))
			ever_found = true
		}
	}
}

// seedProxy listens for new coverage corpus file notifications and forwards corpus messages.
func (f *EchidnaFuzzer) seedProxy(campaign *types.Campaign, fileNotifyChan <-chan string, corpusChan chan<- types.CorpusMessage) {
	defer close(corpusChan)
	for seedFile := range fileNotifyChan {
		corpusMsg := types.CorpusMessage{
			SeedFile: seedFile,
			Campaign: campaign,
		}
		corpusChan <- corpusMsg
	}
}

// prepareLocalTarget copies the compiled contract artifact from the shared path
// to a local temporary directory specific to the campaign. It ensures the
// destination directory exists and returns the local path to the copied target.
func (f *EchidnaFuzzer) prepareLocalTarget(campaign *types.Campaign) (string, error) {
	targetSharedPath := campaign.ArtifactPath
	targetName := path.Base(targetSharedPath)
	targetLocalPath := path.Join(EchidnaTmpDir, campaign.CampaignId, campaign.Contract, campaign.Check, targetName)
	if err := os.MkdirAll(path.Dir(targetLocalPath), 0755); err != nil {
		return "", err
	}
	if err := utils.CopyFile(targetSharedPath, targetLocalPath); err != nil {
		return "", err
	}
	return targetLocalPath, nil
}

// prepareDirs creates the corpus folder and the echidna workspace folder for a
// campaign. Returns both paths, or an error if directory creation fails.
func (f *EchidnaFuzzer) prepareDirs(campaign *types.Campaign) (corpusFolder, workFolder string, err error) {
	corpusFolder = path.Join(EchidnaTmpDir, campaign.CampaignId, campaign.Contract, "corpus")
	workFolder = path.Join(EchidnaTmpDir, campaign.CampaignId, campaign.Contract, campaign.Check, "work")
	for _, dir := range []string{corpusFolder, workFolder} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", "", err
		}
	}
	return corpusFolder, workFolder, nil
}

// seedCorpusFromDict turns each mined constant into a single setValue call
// sequence dropped into the corpus folder.
func (f *EchidnaFuzzer) seedCorpusFromDict(ctx context.Context, campaign *types.Campaign, corpusFolder string) error {
	dictPath, err := f.dictGrabber.GrabDict(ctx, campaign.CampaignId, campaign.Contract)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(dictPath)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		// signature entries are for the mutator, only bare constants make seeds
		if line == "" || strings.ContainsAny(line, "()") {
			continue
		}
		seedPath := path.Join(corpusFolder, "dict-"+uuid.New().String())
		seed := fmt.Sprintf("setValue(%s)\n", line)
		if err := os.WriteFile(seedPath, []byte(seed), 0644); err != nil {
			return err
		}
	}
	return nil
}

var EchidnaModule = fx.Options(
	fx.Provide(fx.Annotate(NewEchidnaFuzzer, fx.As(new(fuzz.Fuzzer)), fx.ResultTags(`group:"fuzzers"`))),
)

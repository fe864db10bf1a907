package echidna

import (
	"context"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"solfuzz/pkg/telemetry"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// --- EchidnaInstance ---
type EchidnaInstance struct {
	Contract  string // --contract <Contract>
	TestMode  string // assertion | property | overflow
	Target    string // path to the contract source or compiled artifact
	CorpusDir string // corpus directory shared across epochs
	WorkDir   string // workspace for the generated config file
	TestLimit int    // transactions to execute before stopping
	SeqLen    int    // transactions per call sequence
	Workers   int    // parallel fuzzing workers
	Binary    string // path to the echidna binary

	logger *zap.Logger // logger for the instance
}

// echidnaConfig mirrors the subset of echidna's YAML configuration we drive.
type echidnaConfig struct {
	TestMode  string `yaml:"testMode"`
	TestLimit int    `yaml:"testLimit"`
	SeqLen    int    `yaml:"seqLen"`
	CorpusDir string `yaml:"corpusDir"`
	Workers   int    `yaml:"workers"`
	Format    string `yaml:"format"`
}

// Fuzz launches the echidna process and blocks until it exits, the timeout is
// reached, or the context is cancelled. Behavior is as follows:
//
//  1. Writes the campaign config file and starts echidna with it.
//  2. If the process exits before `timeout`, returns immediately.
//  3. If the `timeout` elapses, sends a SIGINT so echidna flushes its corpus
//     and reproducers, then waits for the process to exit or for `ctx` to be done.
//  4. If `ctx` is cancelled at any time, the CommandContext ensures the
//     process is killed (SIGKILL).
//
// Guarantees that the process will not be left running once this method returns.
func (m EchidnaInstance) Fuzz(ctx context.Context, timeout time.Duration) {
	tracer := telemetry.FromContext(ctx)
	echidnaTracer := tracer.Spawn("running echidna")
	echidnaTracer.Start()
	defer echidnaTracer.End()

	m.fuzz(ctx, timeout)

	// count what the campaign epoch produced
	attrs, err := m.campaignStats()
	if err != nil {
		echidnaTracer.SetStatus(codes.Error, "failed to collect campaign stats")
		m.logger.Error("failed to collect campaign stats", zap.Error(err))
		return
	}
	echidnaTracer.WithAttributes(attrs)
}

// campaignStats counts reproducers and coverage entries in the corpus folder.
func (m EchidnaInstance) campaignStats() (*telemetry.SpanAttributes, error) {
	attrs := telemetry.EmptySpanAttributes()

	reproducers, err := filepath.Glob(path.Join(m.CorpusDir, "reproducers", "*"))
	if err != nil {
		return nil, err
	}
	coverage, err := filepath.Glob(path.Join(m.CorpusDir, "coverage", "*"))
	if err != nil {
		return nil, err
	}

	attrs = attrs.
		WithExtraAttribute("fuzzer.echidna.reproducers", len(reproducers)).
		WithCorpusSize(len(coverage))
	return attrs, nil
}

func (m EchidnaInstance) fuzz(ctx context.Context, timeout time.Duration) {
	configPath, err := m.writeConfig()
	if err != nil {
		m.logger.Error("failed to write echidna config", zap.Error(err))
		return
	}

	cmd := exec.CommandContext(ctx, m.Binary, m.buildArgs(configPath)...)
	cmd.Env = os.Environ()

	// Channel to observe when the process exits
	done := make(chan struct{})
	go func() {
		m.logger.Info("running echidna", zap.String("command", cmd.String()))
		_ = cmd.Run() // ignore error; process exit is signaled via channel
		close(done)
	}()

	// One-shot timer for the graceful-shutdown window. The window can already
	// be spent when corpus sync ate the whole epoch; a zero or negative
	// duration fires immediately instead of panicking.
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		// Process exited on its own
		return

	case <-timer.C:
		// Timeout reached → request graceful shutdown
		if cmd.Process != nil {
			// Best-effort send SIGINT
			_ = cmd.Process.Signal(syscall.SIGINT)
		}
		// After SIGINT, wait for exit or context cancellation
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		}

	case <-ctx.Done():
		// Context cancelled → process is killed by CommandContext
		return
	}
}

// writeConfig renders the campaign parameters into echidna's YAML config file.
func (m EchidnaInstance) writeConfig() (string, error) {
	cfg := echidnaConfig{
		TestMode:  m.TestMode,
		TestLimit: m.TestLimit,
		SeqLen:    m.SeqLen,
		CorpusDir: m.CorpusDir,
		Workers:   m.Workers,
		Format:    "text",
	}
	if cfg.TestLimit <= 0 {
		cfg.TestLimit = 50000
	}
	if cfg.SeqLen <= 0 {
		cfg.SeqLen = 100
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	configPath := path.Join(m.WorkDir, "echidna.yaml")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", err
	}
	return configPath, nil
}

// buildArgs builds the command line arguments for the echidna instance based on its configuration.
func (m EchidnaInstance) buildArgs(configPath string) []string {
	args := []string{m.Target}

	// Target contract
	if m.Contract != "" {
		args = append(args, "--contract", m.Contract)
	}

	// Campaign config
	args = append(args, "--config", configPath)

	return args
}

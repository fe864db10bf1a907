package echidna

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func TestBuildArgs(t *testing.T) {
	instance := EchidnaInstance{
		Contract: "SimpleStorage",
		TestMode: "property",
		Target:   "/tmp/solfuzz/combined.json",
		Binary:   "echidna",
	}

	got := instance.buildArgs("/tmp/work/echidna.yaml")
	want := []string{
		"/tmp/solfuzz/combined.json",
		"--contract", "SimpleStorage",
		"--config", "/tmp/work/echidna.yaml",
	}
	if len(got) != len(want) {
		t.Fatalf("buildArgs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("buildArgs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuildArgsSkipsEmptyContract(t *testing.T) {
	instance := EchidnaInstance{
		Target: "contract.sol",
	}
	for _, arg := range instance.buildArgs("cfg.yaml") {
		if arg == "--contract" {
			t.Error("buildArgs() emitted --contract for an unnamed contract")
		}
	}
}

func TestWriteConfigAppliesDefaults(t *testing.T) {
	workDir := t.TempDir()
	instance := EchidnaInstance{
		TestMode:  "assertion",
		CorpusDir: "/tmp/corpus",
		WorkDir:   workDir,
		Workers:   4,
		logger:    zap.NewNop(),
	}

	configPath, err := instance.writeConfig()
	if err != nil {
		t.Fatalf("writeConfig() error: %v", err)
	}
	if filepath.Dir(configPath) != workDir {
		t.Errorf("config written to %s, want inside %s", configPath, workDir)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	var cfg echidnaConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("config is not valid yaml: %v", err)
	}

	if cfg.TestMode != "assertion" {
		t.Errorf("testMode = %q, want assertion", cfg.TestMode)
	}
	if cfg.TestLimit != 50000 {
		t.Errorf("testLimit = %d, want default 50000", cfg.TestLimit)
	}
	if cfg.SeqLen != 100 {
		t.Errorf("seqLen = %d, want default 100", cfg.SeqLen)
	}
	if cfg.CorpusDir != "/tmp/corpus" {
		t.Errorf("corpusDir = %q, want /tmp/corpus", cfg.CorpusDir)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Workers)
	}
}

func TestFuzzReturnsWithSpentGracefulWindow(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true binary not available")
	}

	// corpus sync can consume the whole epoch before the process starts;
	// a spent window must fire immediately, not panic
	instance := EchidnaInstance{
		Target:  "contract.json",
		WorkDir: t.TempDir(),
		Binary:  "true",
		logger:  zap.NewNop(),
	}

	done := make(chan struct{})
	go func() {
		instance.fuzz(context.Background(), 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("fuzz did not return with a spent graceful window")
	}
}

func TestFilterCoverageFiles(t *testing.T) {
	tests := []struct {
		file string
		want bool
	}{
		{"/corpus/coverage/3851277342.txt", true},
		{"/corpus/coverage/covered.1699999999.txt", false},
	}
	for _, tt := range tests {
		if got := filterCoverageFiles(tt.file); got != tt.want {
			t.Errorf("filterCoverageFiles(%q) = %v, want %v", tt.file, got, tt.want)
		}
	}
}

func TestFilterReproducerFiles(t *testing.T) {
	if !filterReproducerFiles("/corpus/reproducers/seq-1.txt") {
		t.Error("reproducer file filtered out")
	}
	if filterReproducerFiles("/corpus/reproducers/.tmp-write") {
		t.Error("dotfile passed the reproducer filter")
	}
}

package builder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"solfuzz/config"
	"solfuzz/internal/contract"
	"solfuzz/pkg/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ErrEmptySource is returned when the contract source is empty. The compiler
// is never invoked for such a source; callers treat this as a skipped
// campaign, not a crash.
var ErrEmptySource = errors.New("contract source is empty")

const CompileWorkDir = "/tmp/solfuzz/build"

// Artifact is the output of one successful compile: the combined-json file
// plus what was discovered inside it.
type Artifact struct {
	CampaignId string
	Contract   string
	Path       string   // path to the combined.json artifact
	Properties []string // discovered echidna_ property names
	Signatures []string // function signatures, for the mutation dictionary
}

type SolcCompiler struct {
	logger *zap.Logger
	cfg    *config.AppConfig
}

func NewSolcCompiler(cfg *config.AppConfig, logger *zap.Logger) *SolcCompiler {
	return &SolcCompiler{
		logger: logger.Named("solc"),
		cfg:    cfg,
	}
}

func (c *SolcCompiler) CompileWithRetry(ctx context.Context, src contract.Source) (*Artifact, error) {
	var err error
	for i := range 3 { // Retry up to 3 times
		var artifact *Artifact
		artifact, err = c.Compile(ctx, src)
		if err == nil {
			return artifact, nil
		}
		if errors.Is(err, ErrEmptySource) {
			return nil, err // nothing to retry
		}
		c.logger.Warn("Compilation failed, retrying", zap.Int("attempt", i+1), zap.Error(err))
	}
	return nil, fmt.Errorf("failed to compile after retries: %w", err)
}

// Compile writes the source to a fresh workspace, runs solc over it, and
// parses the combined-json output into an Artifact.
func (c *SolcCompiler) Compile(ctx context.Context, src contract.Source) (*Artifact, error) {
	tracer := telemetry.FromContext(ctx)
	compileTracer := tracer.Spawn("compiling contract").WithAttributes(
		telemetry.NewSpanAttributes(telemetry.Compiling).WithSourceHash(src.Hash()),
	)
	compileTracer.Start()
	defer compileTracer.End()

	if src.Empty() {
		c.logger.Warn("empty contract source, compile skipped")
		compileTracer.SetStatus(codes.Error, "empty source")
		return nil, ErrEmptySource
	}

	workspace := filepath.Join(CompileWorkDir, uuid.New().String())
	if err := os.MkdirAll(workspace, 0755); err != nil {
		return nil, fmt.Errorf("create build workspace: %w", err)
	}

	sourceFile := filepath.Join(workspace, "contract.sol")
	if err := os.WriteFile(sourceFile, []byte(src.Text()), 0644); err != nil {
		return nil, fmt.Errorf("write contract source: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.cfg.CompilerPath,
		"--combined-json", "abi,bin",
		sourceFile,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("Running solc", zap.String("command", cmd.String()))
	if err := cmd.Run(); err != nil {
		c.logger.Error("solc failed",
			zap.String("stderr", stderr.String()),
			zap.Error(err))
		compileTracer.SetStatus(codes.Error, "compilation failed")
		return nil, fmt.Errorf("solc: %w", err)
	}

	artifactPath := filepath.Join(workspace, "combined.json")
	if err := os.WriteFile(artifactPath, stdout.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	artifact, err := parseCombinedJSON(stdout.Bytes(), src)
	if err != nil {
		compileTracer.SetStatus(codes.Error, "artifact parse failed")
		return nil, err
	}
	artifact.Path = artifactPath

	c.logger.Info("Contract compiled",
		zap.String("contract", artifact.Contract),
		zap.String("artifact", artifactPath),
		zap.Strings("properties", artifact.Properties))

	compileTracer.SetStatus(codes.Ok, "Compilation successful")
	return artifact, nil
}

// solc --combined-json output shape
type combinedJSON struct {
	Contracts map[string]struct {
		ABI json.RawMessage `json:"abi"`
		Bin string          `json:"bin"`
	} `json:"contracts"`
}

type abiParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type abiEntry struct {
	Type            string     `json:"type"`
	Name            string     `json:"name"`
	Inputs          []abiParam `json:"inputs"`
	Outputs         []abiParam `json:"outputs"`
	StateMutability string     `json:"stateMutability"`
}

// contractNameFromKey strips the source-file prefix off a combined-json key.
func contractNameFromKey(key string) string {
	if idx := strings.LastIndex(key, ":"); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

func parseCombinedJSON(data []byte, src contract.Source) (*Artifact, error) {
	var combined combinedJSON
	if err := json.Unmarshal(data, &combined); err != nil {
		return nil, fmt.Errorf("parse combined json: %w", err)
	}
	if len(combined.Contracts) == 0 {
		return nil, errors.New("no contracts in solc output")
	}

	// pick the contract matching the first source declaration, or fall back
	// to the lexicographically first entry so repeated builds of the same
	// source stay deterministic. solc keys look like "contract.sol:SimpleStorage".
	wantName := contract.NameFromSource(src)
	keys := make([]string, 0, len(combined.Contracts))
	for key := range combined.Contracts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	chosenKey := keys[0]
	for _, key := range keys {
		if wantName != "" && contractNameFromKey(key) == wantName {
			chosenKey = key
			break
		}
	}

	entry := combined.Contracts[chosenKey]
	var abi []abiEntry
	if err := json.Unmarshal(entry.ABI, &abi); err != nil {
		// solc versions before 0.8 encode the abi as a string
		var abiStr string
		if err2 := json.Unmarshal(entry.ABI, &abiStr); err2 != nil {
			return nil, fmt.Errorf("parse abi: %w", err)
		}
		if err2 := json.Unmarshal([]byte(abiStr), &abi); err2 != nil {
			return nil, fmt.Errorf("parse abi: %w", err2)
		}
	}

	name := wantName
	if name == "" {
		name = contractNameFromKey(chosenKey)
	}

	return &Artifact{
		CampaignId: src.Hash(),
		Contract:   name,
		Properties: discoverProperties(abi),
		Signatures: functionSignatures(abi),
	}, nil
}

package builder

import (
	"context"
	"errors"
	"testing"

	"solfuzz/config"
	"solfuzz/internal/contract"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

const simpleStorageSource = `
pragma solidity ^0.8.0;

contract SimpleStorage {
    int256 private value;

    function setValue(int256 v) public { value = v; }
    function getValue() public view returns (int256) { return value; }
    function echidna_value_is_greater_than_100() public view returns (bool) {
        return value > 100;
    }
}`

const combinedJSONFixture = `{
  "contracts": {
    "contract.sol:SimpleStorage": {
      "abi": [
        {"type":"function","name":"setValue","inputs":[{"name":"v","type":"int256"}],"outputs":[]},
        {"type":"function","name":"getValue","inputs":[],"outputs":[{"name":"","type":"int256"}]},
        {"type":"function","name":"echidna_value_is_greater_than_100","inputs":[],"outputs":[{"name":"","type":"bool"}]}
      ],
      "bin": "6080604052"
    }
  },
  "version": "0.8.24"
}`

func TestParseCombinedJSON(t *testing.T) {
	src := contract.NewSource(simpleStorageSource)

	artifact, err := parseCombinedJSON([]byte(combinedJSONFixture), src)
	if err != nil {
		t.Fatalf("parseCombinedJSON() error: %v", err)
	}

	if artifact.Contract != "SimpleStorage" {
		t.Errorf("Contract = %q, want SimpleStorage", artifact.Contract)
	}
	if diff := cmp.Diff([]string{"echidna_value_is_greater_than_100"}, artifact.Properties); diff != "" {
		t.Errorf("Properties mismatch (-want +got):\n%s", diff)
	}
	wantSigs := []string{
		"setValue(int256)",
		"getValue()",
		"echidna_value_is_greater_than_100()",
	}
	if diff := cmp.Diff(wantSigs, artifact.Signatures); diff != "" {
		t.Errorf("Signatures mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCombinedJSONStringEncodedABI(t *testing.T) {
	// solc before 0.8 encodes the abi as a JSON string
	legacy := `{
  "contracts": {
    "contract.sol:SimpleStorage": {
      "abi": "[{\"type\":\"function\",\"name\":\"setValue\",\"inputs\":[{\"name\":\"v\",\"type\":\"int256\"}],\"outputs\":[]}]",
      "bin": "6080"
    }
  }
}`
	artifact, err := parseCombinedJSON([]byte(legacy), contract.NewSource(simpleStorageSource))
	if err != nil {
		t.Fatalf("parseCombinedJSON() error: %v", err)
	}
	if diff := cmp.Diff([]string{"setValue(int256)"}, artifact.Signatures); diff != "" {
		t.Errorf("Signatures mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCombinedJSONPicksFirstKeyWithoutDeclaration(t *testing.T) {
	// no contract declaration in the source, two candidates in the output:
	// the choice must not depend on map iteration order
	multi := `{
  "contracts": {
    "multi.sol:Beta": {"abi": [], "bin": "6080"},
    "multi.sol:Alpha": {"abi": [], "bin": "6080"}
  }
}`
	src := contract.NewSource("library Helpers {}")

	for range 20 {
		artifact, err := parseCombinedJSON([]byte(multi), src)
		if err != nil {
			t.Fatalf("parseCombinedJSON() error: %v", err)
		}
		if artifact.Contract != "Alpha" {
			t.Fatalf("Contract = %q, want Alpha", artifact.Contract)
		}
	}
}

func TestParseCombinedJSONRejectsEmptyOutput(t *testing.T) {
	if _, err := parseCombinedJSON([]byte(`{"contracts":{}}`), contract.NewSource("contract C {}")); err == nil {
		t.Error("expected error for solc output with no contracts")
	}
}

func TestCompileRejectsEmptySource(t *testing.T) {
	compiler := NewSolcCompiler(&config.AppConfig{Environment: config.EnvTest}, zap.NewNop())

	tests := []string{"", "   ", "\n\t\n"}
	for _, text := range tests {
		if _, err := compiler.Compile(context.Background(), contract.NewSource(text)); !errors.Is(err, ErrEmptySource) {
			t.Errorf("Compile(%q) error = %v, want ErrEmptySource", text, err)
		}
	}
}

func TestCompileWithRetryDoesNotRetryEmptySource(t *testing.T) {
	compiler := NewSolcCompiler(&config.AppConfig{Environment: config.EnvTest}, zap.NewNop())

	_, err := compiler.CompileWithRetry(context.Background(), contract.NewSource(""))
	if !errors.Is(err, ErrEmptySource) {
		t.Errorf("CompileWithRetry() error = %v, want ErrEmptySource", err)
	}
}

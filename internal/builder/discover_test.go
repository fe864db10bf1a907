package builder

import (
	"testing"

	"solfuzz/internal/contract"

	"github.com/google/go-cmp/cmp"
)

func TestDiscoverProperties(t *testing.T) {
	abi := []abiEntry{
		{Type: "function", Name: "setValue", Inputs: []abiParam{{Name: "v", Type: "int256"}}},
		{Type: "function", Name: "getValue", Outputs: []abiParam{{Type: "int256"}}},
		{Type: "function", Name: "echidna_value_is_greater_than_100", Outputs: []abiParam{{Type: "bool"}}},
		// takes an argument, not a property
		{Type: "function", Name: "echidna_with_arg", Inputs: []abiParam{{Type: "uint256"}}, Outputs: []abiParam{{Type: "bool"}}},
		// wrong return type
		{Type: "function", Name: "echidna_returns_int", Outputs: []abiParam{{Type: "int256"}}},
		{Type: "event", Name: "echidna_not_a_function"},
	}

	got := discoverProperties(abi)
	want := []string{"echidna_value_is_greater_than_100"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("discoverProperties() mismatch (-want +got):\n%s", diff)
	}
}

func TestFunctionSignatures(t *testing.T) {
	abi := []abiEntry{
		{Type: "function", Name: "setValue", Inputs: []abiParam{{Name: "v", Type: "int256"}}},
		{Type: "function", Name: "transfer", Inputs: []abiParam{{Type: "address"}, {Type: "uint256"}}},
		{Type: "function", Name: "getValue"},
		{Type: "constructor"},
	}

	got := functionSignatures(abi)
	want := []string{"setValue(int256)", "transfer(address,uint256)", "getValue()"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("functionSignatures() mismatch (-want +got):\n%s", diff)
	}
}

func TestSourceConstants(t *testing.T) {
	src := contract.NewSource(`
contract C {
    uint constant LIMIT = 100;
    bytes4 constant MAGIC = 0xdeadbeef;
    uint zero = 0;
    uint one = 1;
    uint repeated = 100;
}`)

	got := sourceConstants(src)
	// 0 and 1 are skipped, 100 appears once, hex literals survive
	want := []string{"100", "0xdeadbeef"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sourceConstants() mismatch (-want +got):\n%s", diff)
	}
}

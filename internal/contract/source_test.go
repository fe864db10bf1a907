package contract

import (
	"testing"
)

func TestSourceEmpty(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty string", "", true},
		{"whitespace only", " \n\t ", true},
		{"real source", "contract C {}", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewSource(tt.text).Empty(); got != tt.want {
				t.Errorf("Empty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSourceHashIsStable(t *testing.T) {
	a := NewSource("contract C {}")
	b := NewSource("contract C {}")
	if a.Hash() != b.Hash() {
		t.Errorf("same source hashed differently: %s vs %s", a.Hash(), b.Hash())
	}
	if a.Hash() == NewSource("contract D {}").Hash() {
		t.Error("different sources share a hash")
	}
	if len(a.Hash()) != 16 {
		t.Errorf("hash length = %d, want 16", len(a.Hash()))
	}
}

func TestNameFromSource(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"simple contract", "contract SimpleStorage { int256 v; }", "SimpleStorage"},
		{"abstract contract", "abstract contract Base {}", "Base"},
		{"leading pragma", "pragma solidity ^0.8.0;\ncontract Token {}", "Token"},
		{"no declaration", "library Math {}", ""},
		{"empty source", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NameFromSource(NewSource(tt.text)); got != tt.want {
				t.Errorf("NameFromSource() = %q, want %q", got, tt.want)
			}
		})
	}
}

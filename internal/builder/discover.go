package builder

import (
	"fmt"
	"regexp"
	"strings"

	"solfuzz/internal/contract"
)

const propertyPrefix = "echidna_"

// discoverProperties finds the property functions the fuzzer will check:
// zero-argument view functions returning a single bool, named with the
// echidna_ prefix.
func discoverProperties(abi []abiEntry) []string {
	var properties []string
	for _, entry := range abi {
		if entry.Type != "function" {
			continue
		}
		if !strings.HasPrefix(entry.Name, propertyPrefix) {
			continue
		}
		if len(entry.Inputs) != 0 {
			continue
		}
		if len(entry.Outputs) != 1 || entry.Outputs[0].Type != "bool" {
			continue
		}
		properties = append(properties, entry.Name)
	}
	return properties
}

// functionSignatures renders the canonical signature of every external
// function, e.g. "setValue(int256)". These feed the mutation dictionary.
func functionSignatures(abi []abiEntry) []string {
	var signatures []string
	for _, entry := range abi {
		if entry.Type != "function" {
			continue
		}
		paramTypes := make([]string, len(entry.Inputs))
		for i, input := range entry.Inputs {
			paramTypes[i] = input.Type
		}
		signatures = append(signatures, fmt.Sprintf("%s(%s)", entry.Name, strings.Join(paramTypes, ",")))
	}
	return signatures
}

var literalRe = regexp.MustCompile(`\b(0x[0-9a-fA-F]+|\d+)\b`)

// sourceConstants extracts numeric literals from the source text. Interesting
// constants seed the fuzzer's mutation dictionary for magic-value
// comparisons.
func sourceConstants(src contract.Source) []string {
	seen := make(map[string]struct{})
	var constants []string
	for _, match := range literalRe.FindAllString(src.Text(), -1) {
		if match == "0" || match == "1" {
			continue // not worth a dictionary slot
		}
		if _, ok := seen[match]; ok {
			continue
		}
		seen[match] = struct{}{}
		constants = append(constants, match)
	}
	return constants
}

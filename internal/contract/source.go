package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Source is contract source text handed to the build pipeline. Any byte
// sequence is valid, including the empty one; empty sources are rejected
// later by the compiler, never by this type.
type Source struct {
	text string
}

func NewSource(text string) Source {
	return Source{text: text}
}

func (s Source) Text() string {
	return s.text
}

func (s Source) Empty() bool {
	return strings.TrimSpace(s.text) == ""
}

// Hash returns a short content id for the source, used as the campaign id
// prefix and for workspace naming.
func (s Source) Hash() string {
	sum := sha256.Sum256([]byte(s.text))
	return hex.EncodeToString(sum[:8])
}

var contractDeclRe = regexp.MustCompile(`(?m)^\s*(?:abstract\s+)?contract\s+([A-Za-z_][A-Za-z0-9_]*)`)

// NameFromSource extracts the first contract declaration from the source text.
// Returns "" when no declaration is found (an empty or malformed source).
func NameFromSource(s Source) string {
	match := contractDeclRe.FindStringSubmatch(s.text)
	if match == nil {
		return ""
	}
	return match[1]
}

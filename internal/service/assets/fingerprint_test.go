package assets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Grumpy Pirate", "grumpy pirate"},
		{"  grumpy   PIRATE!!  ", "grumpy pirate"},
		{"a-cowboy, riding", "acowboy riding"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("joy", "grumpy pirate")
	b := Fingerprint("joy", "grumpy pirate")
	assert.Equal(t, a, b)
}

func TestFingerprintNormalizesEquivalentSpellings(t *testing.T) {
	a := Fingerprint("Joy", "  Grumpy   Pirate ")
	b := Fingerprint("joy", "grumpy pirate!")
	assert.Equal(t, a, b)
}

func TestFingerprintDistinguishesPairs(t *testing.T) {
	base := Fingerprint("joy", "grumpy pirate")
	assert.NotEqual(t, base, Fingerprint("sadness", "grumpy pirate"))
	assert.NotEqual(t, base, Fingerprint("joy", "cheerful pirate"))
}

func TestFingerprintShape(t *testing.T) {
	fp := Fingerprint("neutral", "grumpy pirate")
	assert.True(t, strings.HasPrefix(fp, "grumpy-pirate-"), "got %q", fp)

	parts := strings.Split(fp, "-")
	digest := parts[len(parts)-1]
	assert.Len(t, digest, 12)
}

func TestFingerprintLongDescriptionTruncatesPrefix(t *testing.T) {
	fp := Fingerprint("joy", "a very long description of an elaborate character costume")
	dash := strings.LastIndex(fp, "-")
	assert.LessOrEqual(t, dash, 24)
}

func TestFingerprintEmptyDescriptionFallsBack(t *testing.T) {
	assert.True(t, strings.HasPrefix(Fingerprint("joy", ""), "joy-"))
	assert.True(t, strings.HasPrefix(Fingerprint("", ""), "asset-"))
}

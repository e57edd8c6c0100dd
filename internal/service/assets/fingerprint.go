package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// digestLen keeps enough of the hash for collision resistance while the
// prefix keeps the key human-legible.
const (
	digestLen = 12
	prefixLen = 24
)

// Normalize lowercases, strips non-alphanumerics and collapses whitespace
// so equivalent spellings land on the same fingerprint.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Fingerprint derives the content-addressable key for an (emotion,
// description) pair. Equal normalized inputs always yield equal keys.
func Fingerprint(emotion, description string) string {
	ne := Normalize(emotion)
	nd := Normalize(description)

	sum := sha256.Sum256([]byte(ne + "|" + nd))
	digest := hex.EncodeToString(sum[:])[:digestLen]

	prefix := strings.ReplaceAll(nd, " ", "-")
	if prefix == "" {
		prefix = ne
	}
	if prefix == "" {
		prefix = "asset"
	}
	if len(prefix) > prefixLen {
		prefix = strings.TrimRight(prefix[:prefixLen], "-")
	}

	return prefix + "-" + digest
}

package assets

import (
	"regexp"
	"strings"

	"github.com/naveenkul/pocket-soul/internal/analysis/emotion"
)

// ParsedPrompt is the outcome of running the trigger grammar over a user
// utterance. Description is the cleaned cache-key description; Emotion is
// the label stripped out of it, defaulting to neutral.
type ParsedPrompt struct {
	IsCharacterRequest bool   `json:"isCharacterRequest"`
	Emotion            string `json:"emotion"`
	Description        string `json:"description"`
}

// Directive patterns for custom character transformations. The first
// submatch captures the requested description.
var triggerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:be|become|turn into|act like|dress as)\s+(?:a\s+|an\s+|the\s+)?(.+)$`),
	regexp.MustCompile(`(?i)\b(?:change|switch|transform)\s+(?:in)?to\s+(?:a\s+|an\s+|the\s+)?(.+)$`),
	regexp.MustCompile(`(?i)\bshow me\s+(?:a\s+|an\s+|the\s+)?(.+?)\s+(?:version|character|avatar)\b`),
}

var resetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bgo back to normal\b`),
	regexp.MustCompile(`(?i)\bbe yourself\b`),
	regexp.MustCompile(`(?i)\bnormal mode\b`),
	regexp.MustCompile(`(?i)\breset (?:your )?character\b`),
}

var leadingArticles = regexp.MustCompile(`(?i)^(?:a|an|the|my|some)\s+`)

// IsResetPhrase reports whether the utterance asks to drop the active
// custom character.
func IsResetPhrase(text string) bool {
	for _, p := range resetPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// ParsePrompt runs the trigger grammar over a prompt. Emotion keywords in
// the captured description are matched against the fixed emotion table and
// stripped; the remainder loses leading articles and collapsed whitespace
// to become the cache-key description.
func ParsePrompt(text string) ParsedPrompt {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || IsResetPhrase(trimmed) {
		return ParsedPrompt{Emotion: string(emotion.Neutral)}
	}

	for _, p := range triggerPatterns {
		m := p.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		label, description := splitEmotion(m[1])
		if description == "" {
			continue
		}
		return ParsedPrompt{
			IsCharacterRequest: true,
			Emotion:            string(label),
			Description:        description,
		}
	}

	return ParsedPrompt{Emotion: string(emotion.Neutral)}
}

// splitEmotion pulls emotion keywords out of a captured description.
func splitEmotion(raw string) (emotion.Label, string) {
	cleaned := strings.TrimRight(strings.TrimSpace(raw), ".!?,;")
	cleaned = leadingArticles.ReplaceAllString(cleaned, "")

	label := emotion.Neutral
	words := strings.Fields(cleaned)
	kept := words[:0]
	for _, word := range words {
		token := strings.Trim(strings.ToLower(word), ".,!?;:")
		if found, ok := emotion.Canonical(token); ok && label == emotion.Neutral {
			label = found
			continue
		}
		kept = append(kept, word)
	}

	description := leadingArticles.ReplaceAllString(strings.Join(kept, " "), "")
	return label, strings.TrimSpace(description)
}

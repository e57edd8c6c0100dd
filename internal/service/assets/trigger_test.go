package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePromptDirectives(t *testing.T) {
	tests := []struct {
		name        string
		prompt      string
		emotion     string
		description string
	}{
		{"be directive", "be a grumpy pirate", "neutral", "grumpy pirate"},
		{"become directive", "become an astronaut", "neutral", "astronaut"},
		{"turn into", "turn into the wizard of the north", "neutral", "wizard of the north"},
		{"act like", "act like a detective", "neutral", "detective"},
		{"dress as", "dress as a knight", "neutral", "knight"},
		{"change to", "change to a robot", "neutral", "robot"},
		{"switch into", "switch into a ninja", "neutral", "ninja"},
		{"transform to", "transform to a dragon", "neutral", "dragon"},
		{"show me version", "show me a cowboy version", "neutral", "cowboy"},
		{"show me character", "show me the samurai character", "neutral", "samurai"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := ParsePrompt(tt.prompt)
			assert.True(t, parsed.IsCharacterRequest)
			assert.Equal(t, tt.emotion, parsed.Emotion)
			assert.Equal(t, tt.description, parsed.Description)
		})
	}
}

func TestParsePromptStripsEmotionKeyword(t *testing.T) {
	parsed := ParsePrompt("become a happy clown")
	assert.True(t, parsed.IsCharacterRequest)
	assert.Equal(t, "joy", parsed.Emotion)
	assert.Equal(t, "clown", parsed.Description)
}

func TestParsePromptKeepsUnknownAdjectives(t *testing.T) {
	// "grumpy" names no emotion in the fixed table, so it stays part of the
	// cache-key description.
	parsed := ParsePrompt("be a grumpy pirate")
	assert.True(t, parsed.IsCharacterRequest)
	assert.Equal(t, "neutral", parsed.Emotion)
	assert.Equal(t, "grumpy pirate", parsed.Description)
}

func TestParsePromptPlainUtterance(t *testing.T) {
	parsed := ParsePrompt("how was your day?")
	assert.False(t, parsed.IsCharacterRequest)
	assert.Equal(t, "neutral", parsed.Emotion)
	assert.Empty(t, parsed.Description)
}

func TestParsePromptResetPhraseIsNotARequest(t *testing.T) {
	parsed := ParsePrompt("please go back to normal")
	assert.False(t, parsed.IsCharacterRequest)
}

func TestParsePromptEmpty(t *testing.T) {
	parsed := ParsePrompt("   ")
	assert.False(t, parsed.IsCharacterRequest)
	assert.Equal(t, "neutral", parsed.Emotion)
}

func TestIsResetPhrase(t *testing.T) {
	assert.True(t, IsResetPhrase("go back to normal"))
	assert.True(t, IsResetPhrase("Okay, be yourself again"))
	assert.True(t, IsResetPhrase("switch to normal mode"))
	assert.True(t, IsResetPhrase("reset your character"))
	assert.True(t, IsResetPhrase("reset character"))
	assert.False(t, IsResetPhrase("be a pirate"))
	assert.False(t, IsResetPhrase("what is normal anyway"))
}

func TestParsePromptTrailingPunctuation(t *testing.T) {
	parsed := ParsePrompt("be a pirate!")
	assert.True(t, parsed.IsCharacterRequest)
	assert.Equal(t, "pirate", parsed.Description)
}

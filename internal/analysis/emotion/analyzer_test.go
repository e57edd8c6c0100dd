package emotion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyKeywordBuckets(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		reply    string
		expected Label
	}{
		{"joy keyword", "I'm so happy today", "That's wonderful to hear", Joy},
		{"sadness keyword", "I feel really lonely", "I'm here with you", Sadness},
		{"anger keyword", "I'm furious about this", "Take a breath with me", Anger},
		{"fear keyword", "I'm terrified of the dark", "It sounds frightening", Fear},
		{"disgust keyword", "that was gross", "Yuck indeed", Disgust},
		{"anxiety keyword", "I'm so worried about tomorrow", "Let's talk it through", Anxiety},
		{"calm keyword", "let's just breathe", "Nice and peaceful", Calm},
		{"reply carries the signal", "ok", "That is amazing news, I love it", Joy},
		{"no keywords at all", "tell me about rocks", "Rocks are minerals", Neutral},
		{"empty input", "", "", Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Classify(tt.user, tt.reply)
			assert.Equal(t, tt.expected, decision.Emotion)
		})
	}
}

func TestClassifyNeutralHasZeroScore(t *testing.T) {
	decision := Classify("tell me about rocks", "rocks are minerals")
	assert.Equal(t, Neutral, decision.Emotion)
	assert.Zero(t, decision.Score)
}

func TestClassifyExclamationsLeanExcited(t *testing.T) {
	decision := Classify("we won!!", "Let's celebrate!!")
	assert.Equal(t, Excited, decision.Emotion)
	assert.NotZero(t, decision.Score)
}

func TestClassifyPriorityBreaksTies(t *testing.T) {
	// One keyword hit each for joy and calm: equal scores, joy is declared
	// earlier in the priority order.
	decision := Classify("happy and relaxed", "")
	assert.Equal(t, Joy, decision.Emotion)
}

func TestAllIncludesEveryLabelOnce(t *testing.T) {
	labels := All()
	assert.Len(t, labels, 9)

	seen := make(map[Label]bool)
	for _, label := range labels {
		assert.False(t, seen[label], "duplicate label %s", label)
		seen[label] = true
	}
	assert.Equal(t, Neutral, labels[len(labels)-1])
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		token    string
		expected Label
		ok       bool
	}{
		{"happy", Joy, true},
		{"HAPPY", Joy, true},
		{" sad ", Sadness, true},
		{"peaceful", Calm, true},
		{"excitement", Excited, true},
		{"grumpy", "", false},
		{"pirate", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		label, ok := Canonical(tt.token)
		assert.Equal(t, tt.ok, ok, "token %q", tt.token)
		if tt.ok {
			assert.Equal(t, tt.expected, label, "token %q", tt.token)
		}
	}
}

func TestAdjustSoftensWhenNobodyWatches(t *testing.T) {
	now := time.Now()
	absent := Context{Known: true, UserPresent: false, Observed: now}

	assert.Equal(t, Calm, Adjust(Excited, absent, now))
	assert.Equal(t, Neutral, Adjust(Anger, absent, now))
	assert.Equal(t, Sadness, Adjust(Sadness, absent, now))
}

func TestAdjustNoOpWhenPresentOrStale(t *testing.T) {
	now := time.Now()

	present := Context{Known: true, UserPresent: true, Observed: now}
	assert.Equal(t, Excited, Adjust(Excited, present, now))

	stale := Context{Known: true, UserPresent: false, Observed: now.Add(-time.Minute)}
	assert.Equal(t, Excited, Adjust(Excited, stale, now))

	unknown := Context{}
	assert.Equal(t, Anger, Adjust(Anger, unknown, now))
}

func TestContextFresh(t *testing.T) {
	now := time.Now()

	assert.True(t, Context{Known: true, Observed: now.Add(-5 * time.Second)}.Fresh(now))
	assert.False(t, Context{Known: true, Observed: now.Add(-15 * time.Second)}.Fresh(now))
	assert.False(t, Context{Known: false, Observed: now}.Fresh(now))
}

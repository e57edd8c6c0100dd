package assets

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/naveenkul/pocket-soul/internal/analysis/emotion"
)

// StandardAsset is a pre-existing, non-custom video associated with a base
// emotion, discovered by filename convention.
type StandardAsset struct {
	Emotion   string `json:"emotion"`
	Filename  string `json:"filename"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// fallbackChains lists the substitute emotions consulted, in order, when no
// asset exists for the requested one. Chains are finite and end in labels
// that ship with the default asset pack.
var fallbackChains = map[emotion.Label][]emotion.Label{
	emotion.Joy:     {emotion.Excited, emotion.Calm, emotion.Neutral},
	emotion.Excited: {emotion.Joy, emotion.Neutral},
	emotion.Anger:   {emotion.Disgust, emotion.Fear, emotion.Neutral},
	emotion.Fear:    {emotion.Anxiety, emotion.Sadness, emotion.Neutral},
	emotion.Disgust: {emotion.Anger, emotion.Neutral},
	emotion.Anxiety: {emotion.Fear, emotion.Sadness, emotion.Neutral},
	emotion.Sadness: {emotion.Anxiety, emotion.Calm, emotion.Neutral},
	emotion.Calm:    {emotion.Neutral},
	emotion.Neutral: {emotion.Calm, emotion.Joy},
}

var videoExtensions = map[string]bool{".mp4": true, ".webm": true, ".mov": true}

var digitRun = regexp.MustCompile(`\d{6,}`)

// Resolver indexes standard assets by the emotion token embedded in their
// filenames and serves lookups with deterministic fallback.
type Resolver struct {
	dir string
	log zerolog.Logger

	mu    sync.RWMutex
	index map[emotion.Label][]StandardAsset
}

// NewResolver builds a resolver over the standard videos directory and
// performs the initial scan.
func NewResolver(dir string, log zerolog.Logger) *Resolver {
	r := &Resolver{
		dir:   dir,
		log:   log.With().Str("component", "resolver").Logger(),
		index: make(map[emotion.Label][]StandardAsset),
	}
	r.Refresh()
	return r
}

// Refresh rescans the videos directory. Filenames containing an emotion
// token (direct match or alias) are bucketed by that emotion; within a
// bucket the most recent embedded timestamp wins.
func (r *Resolver) Refresh() {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		r.log.Warn().Err(err).Str("dir", r.dir).Msg("standard asset scan failed")
		return
	}

	index := make(map[emotion.Label][]StandardAsset)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !videoExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		label, ok := emotionForFilename(name)
		if !ok {
			continue
		}
		index[label] = append(index[label], StandardAsset{
			Emotion:   string(label),
			Filename:  name,
			Timestamp: embeddedTimestamp(name),
		})
	}

	for label := range index {
		bucket := index[label]
		sort.Slice(bucket, func(i, j int) bool {
			if bucket[i].Timestamp != bucket[j].Timestamp {
				return bucket[i].Timestamp > bucket[j].Timestamp
			}
			return bucket[i].Filename < bucket[j].Filename
		})
	}

	r.mu.Lock()
	r.index = index
	r.mu.Unlock()
}

// Resolve returns the standard asset for an emotion, walking the fallback
// chain on a miss. When the chain is exhausted it returns any available
// asset best-effort, or nil when the index is empty.
func (r *Resolver) Resolve(label emotion.Label) *StandardAsset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a := r.pickLocked(label); a != nil {
		return a
	}
	for _, fallback := range fallbackChains[label] {
		if a := r.pickLocked(fallback); a != nil {
			r.log.Debug().
				Str("requested", string(label)).
				Str("fallback", string(fallback)).
				Msg("standard asset fallback")
			return a
		}
	}

	// Best effort: any emotion with at least one asset, stable order.
	for _, candidate := range emotion.All() {
		if a := r.pickLocked(candidate); a != nil {
			return a
		}
	}
	return nil
}

// Index returns a copy of the current emotion buckets.
func (r *Resolver) Index() map[string][]StandardAsset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]StandardAsset, len(r.index))
	for label, bucket := range r.index {
		out[string(label)] = append([]StandardAsset(nil), bucket...)
	}
	return out
}

func (r *Resolver) pickLocked(label emotion.Label) *StandardAsset {
	bucket := r.index[label]
	if len(bucket) == 0 {
		return nil
	}
	a := bucket[0]
	return &a
}

func emotionForFilename(name string) (emotion.Label, bool) {
	base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	for _, token := range strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	}) {
		if label, ok := emotion.Canonical(token); ok {
			return label, true
		}
	}
	return "", false
}

func embeddedTimestamp(name string) int64 {
	m := digitRun.FindString(name)
	if m == "" {
		return 0
	}
	ts, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

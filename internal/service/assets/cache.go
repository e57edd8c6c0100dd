package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/naveenkul/pocket-soul/internal/model/asset"
)

var ErrGenerationFailed = errors.New("character generation failed")

// DefaultGenerationTimeout bounds one generation attempt end to end.
const DefaultGenerationTimeout = 2 * time.Minute

// Generator produces a downloadable artifact for a character prompt. It is
// the seam to the external image + video synthesis collaborators.
type Generator interface {
	Generate(ctx context.Context, prompt string) (sourceURL string, err error)
}

// Cache provides generate-or-retrieve semantics over content-addressable
// character assets, backed by a file directory and a durable manifest.
type Cache struct {
	dir     string
	store   *manifestStore
	gen     Generator
	client  *http.Client
	timeout time.Duration
	flight  singleflight.Group
	log     zerolog.Logger
}

// NewCache opens the cache rooted at dir, creating it as needed. An
// unreadable manifest or uncreatable directory is a fatal startup error.
func NewCache(dir string, gen Generator, timeout time.Duration, log zerolog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	store, err := openManifest(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}

	return &Cache{
		dir:     dir,
		store:   store,
		gen:     gen,
		client:  &http.Client{},
		timeout: timeout,
		log:     log.With().Str("component", "asset-cache").Logger(),
	}, nil
}

// Dir returns the backing directory, for file serving.
func (c *Cache) Dir() string { return c.dir }

// Check reports whether an asset exists for the pair. A manifest entry
// whose backing file disappeared is evicted and reported as a miss.
func (c *Cache) Check(emotionLabel, description string) (asset.CacheEntry, bool) {
	return c.lookup(Fingerprint(emotionLabel, description))
}

func (c *Cache) lookup(fingerprint string) (asset.CacheEntry, bool) {
	entry, ok := c.store.Get(fingerprint)
	if !ok {
		return asset.CacheEntry{}, false
	}

	if _, err := os.Stat(filepath.Join(c.dir, entry.Filename)); err != nil {
		c.log.Warn().
			Str("fingerprint", fingerprint).
			Str("filename", entry.Filename).
			Msg("manifest entry lost its backing file, evicting")
		if delErr := c.store.Delete(fingerprint); delErr != nil {
			c.log.Error().Err(delErr).Str("fingerprint", fingerprint).Msg("stale entry eviction failed")
		}
		return asset.CacheEntry{}, false
	}
	return entry, true
}

type flightResult struct {
	entry  asset.CacheEntry
	cached bool
}

// GetOrCreate returns the cached asset for the pair or generates it. At
// most one generation per fingerprint is in flight system-wide; concurrent
// misses share the winner's result.
func (c *Cache) GetOrCreate(ctx context.Context, emotionLabel, description string) (asset.CacheEntry, bool, error) {
	fingerprint := Fingerprint(emotionLabel, description)

	if entry, ok := c.lookup(fingerprint); ok {
		return entry, true, nil
	}

	v, err, _ := c.flight.Do(fingerprint, func() (interface{}, error) {
		// The race window between the caller's miss and acquiring the
		// flight slot: a previous flight may have just completed.
		if entry, ok := c.lookup(fingerprint); ok {
			return flightResult{entry: entry, cached: true}, nil
		}
		entry, err := c.generate(ctx, fingerprint, emotionLabel, description)
		if err != nil {
			return nil, err
		}
		return flightResult{entry: entry}, nil
	})
	if err != nil {
		return asset.CacheEntry{}, false, err
	}

	result := v.(flightResult)
	return result.entry, result.cached, nil
}

func (c *Cache) generate(ctx context.Context, fingerprint, emotionLabel, description string) (asset.CacheEntry, error) {
	gctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := BuildPrompt(emotionLabel, description)
	started := time.Now()

	sourceURL, err := c.gen.Generate(gctx, prompt)
	if err != nil {
		return asset.CacheEntry{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	filename := fingerprint + artifactExt(sourceURL)
	if err := c.download(gctx, sourceURL, filename); err != nil {
		return asset.CacheEntry{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	entry := asset.CacheEntry{
		Fingerprint: fingerprint,
		Emotion:     Normalize(emotionLabel),
		Description: Normalize(description),
		Prompt:      prompt,
		Filename:    filename,
		GeneratedAt: time.Now().UTC(),
		SourceURL:   sourceURL,
	}
	if err := c.store.Put(entry); err != nil {
		return asset.CacheEntry{}, fmt.Errorf("persist manifest: %w", err)
	}

	c.log.Info().
		Str("fingerprint", fingerprint).
		Str("emotion", entry.Emotion).
		Dur("took", time.Since(started)).
		Msg("character asset generated")
	return entry, nil
}

func (c *Cache) download(ctx context.Context, sourceURL, filename string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("download artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download artifact: unexpected status %d", resp.StatusCode)
	}

	dst, err := os.Create(filepath.Join(c.dir, filename))
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}
	if _, err := io.Copy(dst, resp.Body); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return fmt.Errorf("store artifact: %w", err)
	}
	return dst.Close()
}

// List enumerates all cached entries, newest first.
func (c *Cache) List() []asset.CacheEntry {
	return c.store.List()
}

// Clear drops every entry and its backing file.
func (c *Cache) Clear() error {
	removed, err := c.store.Clear()
	if err != nil {
		return err
	}
	for _, entry := range removed {
		if err := os.Remove(filepath.Join(c.dir, entry.Filename)); err != nil && !os.IsNotExist(err) {
			c.log.Warn().Err(err).Str("filename", entry.Filename).Msg("cached file removal failed")
		}
	}
	return nil
}

// BuildPrompt composes the synthesis prompt for a custom character.
func BuildPrompt(emotionLabel, description string) string {
	desc := Normalize(description)
	emo := Normalize(emotionLabel)
	if emo == "" {
		emo = "neutral"
	}
	return fmt.Sprintf(
		"full body portrait of %s with a %s expression, stylized holographic companion character, centered on a plain dark background, soft rim lighting",
		desc, emo,
	)
}

func artifactExt(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ".mp4"
	}
	if ext := path.Ext(u.Path); videoExtensions[ext] {
		return ext
	}
	return ".mp4"
}

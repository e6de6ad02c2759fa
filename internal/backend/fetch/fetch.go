// Package fetch implements the Fetch audio backend (spec.md §4.2): a
// bounded prefetch cache keyed by (lang, text), HTTP clip retrieval via
// internal/proxyclient, and an oto-backed player, grounded on the
// teacher's tts/audio/buffer.go ring-buffer cache and pkg/tts/cache.go's
// two-tier Get-then-fetch pattern.
package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kestrelread/voxread/internal/article"
	"github.com/kestrelread/voxread/internal/engine"
)

// ClipFetcher retrieves an audio clip for (text, lang), used by Backend to
// decouple HTTP details from playback. internal/proxyclient.Client
// implements this.
type ClipFetcher interface {
	FetchClip(ctx context.Context, text string, lang article.Lang) ([]byte, error)
}

// ClipPlayer plays a decoded clip and reports completion.
// internal/audioplayer's oto-backed Player (also used by the Platform
// backend's subprocess speaker) implements this.
type ClipPlayer interface {
	Play(pcm []byte, onEnd func(), onError func(error))
	Pause()
	Resume()
	Stop()
	SetRate(rate float64)
}

type cacheKey struct {
	lang article.Lang
	text string
}

type cacheEntry struct {
	data    []byte
	err     error
	ready   chan struct{}
	created time.Time
}

// MaxCacheEntries bounds the prefetch cache, grounded on the teacher's
// tts/audio/buffer.go BufferConfig.Capacity idiom (a small bounded cache,
// not an unbounded map).
const MaxCacheEntries = 256

// FetchTimeout is the per-clip audio-fetch timeout (spec.md §5: 10s).
const FetchTimeout = 10 * time.Second

// Backend implements engine.Backend and engine.Prefetcher for the Fetch
// strategy.
type Backend struct {
	mu      sync.Mutex
	fetcher ClipFetcher
	player  ClipPlayer
	cache   map[cacheKey]*cacheEntry
	order   []cacheKey
	log     *log.Logger

	activeKey cacheKey
	activeGen uint64
	stats     Stats
}

// Stats mirrors the teacher's internal/cache/types.go CacheStats, exposed
// read-only for diagnostics/logging (SPEC_FULL.md supplemented feature).
type Stats struct {
	Hits      int
	Misses    int
	Evictions int
}

// New builds a Fetch backend.
func New(fetcher ClipFetcher, player ClipPlayer, logger *log.Logger) *Backend {
	if logger == nil {
		logger = log.Default()
	}
	return &Backend{
		fetcher: fetcher,
		player:  player,
		cache:   make(map[cacheKey]*cacheEntry),
		log:     logger,
	}
}

func (b *Backend) Name() string { return "fetch" }

// Speak looks up or creates the (lang, text) cache entry, binds it to the
// player, and wires completion to cb.OnEnd. Any failure (network, decode,
// play-start) yields cb.OnError(true) per spec.md §4.2.
func (b *Backend) Speak(text string, lang article.Lang, rate float64, _ *engine.Voice, cb Callbacks) {
	key := cacheKey{lang: lang, text: text}
	entry := b.getOrCreateEntry(key)

	b.mu.Lock()
	b.activeKey = key
	b.activeGen++
	gen := b.activeGen
	b.mu.Unlock()

	go func() {
		<-entry.ready
		b.mu.Lock()
		stale := gen != b.activeGen || key != b.activeKey
		b.mu.Unlock()
		if stale {
			return
		}
		if entry.err != nil {
			b.log.Warn("fetch backend: clip retrieval failed", "err", entry.err)
			cb.OnError(true)
			return
		}
		b.player.SetRate(rate)
		b.player.Play(entry.data, cb.OnEnd, func(err error) {
			b.log.Warn("fetch backend: playback failed", "err", err)
			cb.OnError(true)
		})
	}()
}

func (b *Backend) getOrCreateEntry(key cacheKey) *cacheEntry {
	b.mu.Lock()
	if e, ok := b.cache[key]; ok {
		b.stats.Hits++
		b.mu.Unlock()
		return e
	}
	b.stats.Misses++
	e := &cacheEntry{ready: make(chan struct{})}
	b.cache[key] = e
	b.order = append(b.order, key)
	b.evictIfNeededLocked()
	b.mu.Unlock()

	go b.populate(key, e)
	return e
}

func (b *Backend) populate(key cacheKey, e *cacheEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), FetchTimeout)
	defer cancel()
	data, err := b.fetcher.FetchClip(ctx, key.text, key.lang)
	e.data = data
	e.err = err
	e.created = time.Now()
	close(e.ready)
}

func (b *Backend) evictIfNeededLocked() {
	for len(b.order) > MaxCacheEntries {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.cache, oldest)
		b.stats.Evictions++
	}
}

// Prefetch implements engine.Prefetcher: populate the cache for the given
// texts without playing, deduplicating by (lang, text).
func (b *Backend) Prefetch(texts []string, lang article.Lang) {
	for _, text := range texts {
		key := cacheKey{lang: lang, text: text}
		b.mu.Lock()
		_, exists := b.cache[key]
		b.mu.Unlock()
		if !exists {
			b.getOrCreateEntry(key)
		}
	}
}

// Pause delegates to the player.
func (b *Backend) Pause() { b.player.Pause() }

// Resume delegates to the player. The Fetch backend resumes cleanly (the
// clip is already decoded locally), so onNeedsRespeak is never invoked.
func (b *Backend) Resume(onNeedsRespeak func()) { b.player.Resume() }

// Cancel stops current output and invalidates the active generation so
// no further completion fires for the in-flight utterance.
func (b *Backend) Cancel() {
	b.mu.Lock()
	b.activeGen++
	b.mu.Unlock()
	b.player.Stop()
}

// SetRate forwards to the player.
func (b *Backend) SetRate(rate float64) { b.player.SetRate(rate) }

// Dispose stops playback and drops the cache.
func (b *Backend) Dispose() {
	b.player.Stop()
	b.mu.Lock()
	b.cache = make(map[cacheKey]*cacheEntry)
	b.order = nil
	b.mu.Unlock()
}

// Stats returns a snapshot of cache statistics.
func (b *Backend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Callbacks aliases engine.Callbacks to avoid an import cycle comment
// burden at call sites; identical shape.
type Callbacks = engine.Callbacks

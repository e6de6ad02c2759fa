// Package engine implements the playback engine: the cursor state machine,
// generation counter, prefetch scheduler, dead-man watchdog, timeline
// estimator, and cooperative orchestration of the Fetch and Platform
// backends (spec.md §4.2-§4.7), grounded on the teacher's tts/controller.go
// and tts/state.go shape, generalised to the spec's per-sentence fallback
// semantics.
package engine

import "github.com/kestrelread/voxread/internal/article"

// Callbacks is the pair of completion notifications a Backend must invoke
// exactly one of (unless cancelled) after Speak. shouldFallback, when
// true on OnError, asks the Engine to retry the same sentence on the
// other backend.
type Callbacks struct {
	OnEnd   func()
	OnError func(shouldFallback bool)
}

// Voice names a preferred synthesis voice; empty ID means "no preference".
type Voice struct {
	ID       string
	Name     string
	Language string
	Gender   string
}

// Backend is the capability set {speak, pause, resume, cancel, setRate,
// dispose} spec.md §4.2 requires of both Fetch and Platform. The Engine
// stores a (primary, fallback) pair and inspects them only through this
// interface — no backend-specific fields leak into the Engine.
type Backend interface {
	// Speak begins producing audio for text. Exactly one of cb.OnEnd or
	// cb.OnError fires eventually, unless Cancel is called first.
	Speak(text string, lang article.Lang, rate float64, preferredVoice *Voice, cb Callbacks)
	// Pause best-effort suspends the current clip.
	Pause()
	// Resume best-effort resumes. If the backend cannot resume cleanly it
	// invokes onNeedsRespeak, asking the Engine to re-speak the current
	// sentence from the start.
	Resume(onNeedsRespeak func())
	// Cancel stops current output; no further OnEnd/OnError may fire for
	// the in-flight utterance after Cancel returns.
	Cancel()
	// SetRate updates playback rate for subsequent (or, if supported,
	// current) clips.
	SetRate(rate float64)
	// Dispose releases underlying resources.
	Dispose()
	// Name identifies the backend for logging and error-surface mapping.
	Name() string
}

// Prefetcher is implemented by backends that can populate a cache ahead
// of playback (the Fetch backend); Platform backends need not implement
// it, and the Engine checks for it via a type assertion.
type Prefetcher interface {
	Prefetch(texts []string, lang article.Lang)
}

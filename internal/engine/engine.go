package engine

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kestrelread/voxread/internal/article"
)

// MinRate and MaxRate clamp setRate per spec.md §4.3.
const (
	MinRate = 0.5
	MaxRate = 3.0

	// PrefetchAhead is N from spec.md §4.6.
	PrefetchAhead = 20
)

// Callbacks the Engine fires to external observers (UI, Queue Controller,
// Media-Session Bridge). All are optional; nil is a legal no-op.
type Hooks struct {
	OnParagraphChange func(p int)
	OnProgress        func(position, duration time.Duration)
	OnError           func(*ExternalError)
	OnStateChange     func(PlaybackState)
	OnArticleEnd      func()
}

// Engine is the single-threaded cooperative cursor state machine of
// spec.md §4.3: it owns (p, s), playback state, the generation counter,
// the two backends, the media-session bridge, a wake-lock flag, and the
// dead-man watchdog timer. External callers and backend completion callbacks are
// serialised through mu, the Go-idiomatic realisation of the spec's
// single mailbox (grounded on the teacher's tts/controller.go Controller,
// which serialises the same way with a plain sync.Mutex).
type Engine struct {
	mu sync.Mutex

	art      *article.Article
	cursor   article.Cursor
	state    PlaybackState
	gen      article.Generation
	rate     float64
	lang     article.Lang
	voice    *Voice
	timeline *Timeline

	fetch    Backend // primary; may be nil (§6.1: Engine must tolerate fetchBackend = none)
	platform Backend // fallback; always present
	active   Backend

	wakeLockWanted bool
	wakeLockHeld   bool
	wakeLock       WakeLock

	bridge  *MediaSessionBridge
	deadMan *deadManWatchdog

	hooks Hooks
	log   *log.Logger
}

// WakeLock is a scope-guarded OS resource acquired on play/resume and
// released on every terminal path, per spec.md §5/§9's resource-scoping
// design note. A nil WakeLock is a legal no-op implementation.
type WakeLock interface {
	Acquire()
	Release()
}

type noopWakeLock struct{}

func (noopWakeLock) Acquire() {}
func (noopWakeLock) Release() {}

// New builds an Engine. fetch may be nil (Platform-only configurations
// are legal per §6.1); platform must not be nil.
func New(fetch, platform Backend, bridge *MediaSessionBridge, wakeLock WakeLock, logger *log.Logger) *Engine {
	if wakeLock == nil {
		wakeLock = noopWakeLock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	e := &Engine{
		fetch:    fetch,
		platform: platform,
		rate:     1.0,
		lang:     article.LangEnglish,
		bridge:   bridge,
		wakeLock: wakeLock,
		log:      logger,
	}
	e.deadMan = newDeadManWatchdog(e.onStall)
	e.active = e.primaryBackend()
	return e
}

// SetHooks registers external observer callbacks.
func (e *Engine) SetHooks(h Hooks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = h
}

func (e *Engine) primaryBackend() Backend {
	if e.fetch != nil {
		return e.fetch
	}
	return e.platform
}

// State returns the current playback state.
func (e *Engine) State() PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Cursor returns the current (p, s) cursor.
func (e *Engine) Cursor() article.Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Load implements spec.md §4.3's load op: stop, rebuild the sentence
// decomposition (already done by article.New), reset (0,0), select voice,
// state=idle. The Fetch backend's prefetch cache is not cleared; clips
// cached for an earlier article stay until evicted.
func (e *Engine) Load(art *article.Article, preferredVoice *Voice) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	e.art = art
	e.lang = art.Lang
	e.voice = preferredVoice
	e.timeline = NewTimeline(art, e.rate)
	e.cursor = article.Zero
	e.setStateLocked(StateIdle)
	e.log.Debug("engine: loaded article", "title", art.Title, "paragraphs", art.ParagraphCount())
}

// Play implements spec.md §4.3's play op.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StatePaused {
		e.resumeLocked()
		return
	}
	if e.art == nil || e.art.ParagraphCount() == 0 {
		e.setStateLocked(StateDone)
		return
	}
	e.setStateLocked(StatePlaying)
	e.acquireWakeLockLocked()
	if e.bridge != nil {
		e.bridge.Activate(e.art.Title)
	}
	e.deadMan.Arm(time.Now())
	e.speakCurrentLocked()
}

// Pause implements spec.md §4.3/§4.4's pause op: suspends and surrenders
// the media session, does not advance the cursor.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePlaying {
		return
	}
	e.setStateLocked(StatePaused)
	e.active.Pause()
	e.releaseWakeLockLocked()
	if e.bridge != nil {
		e.bridge.Deactivate()
	}
}

// Resume implements spec.md §4.3/§4.4's resume op.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumeLocked()
}

func (e *Engine) resumeLocked() {
	if e.state != StatePaused {
		return
	}
	e.setStateLocked(StatePlaying)
	e.acquireWakeLockLocked()
	if e.bridge != nil {
		e.bridge.Activate(e.art.Title)
	}
	gen := e.gen
	e.active.Resume(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.gen || e.state != StatePlaying {
			return
		}
		e.respeakCurrentLocked()
	})
}

// Stop implements spec.md §4.3's stop op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	e.gen++
	if e.fetch != nil {
		e.fetch.Cancel()
	}
	if e.platform != nil {
		e.platform.Cancel()
	}
	e.releaseWakeLockLocked()
	if e.bridge != nil {
		e.bridge.Deactivate()
	}
	e.deadMan.Disarm()
	e.cursor = article.Zero
	e.setStateLocked(StateIdle)
}

// SkipForward implements spec.md §4.3's skipForward op.
func (e *Engine) SkipForward() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.art == nil || e.cursor.Paragraph >= e.art.ParagraphCount()-1 {
		return
	}
	e.gen++
	e.cancelBackendsLocked()
	e.cursor = article.Cursor{Paragraph: e.cursor.Paragraph + 1, Sentence: 0}
	e.reportProgressLocked()
	if e.state == StatePlaying {
		e.speakCurrentLocked()
	}
}

// SkipBackward implements spec.md §4.3's skipBackward op.
func (e *Engine) SkipBackward() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.art == nil || e.cursor.Paragraph <= 0 {
		return
	}
	e.gen++
	e.cancelBackendsLocked()
	e.cursor = article.Cursor{Paragraph: e.cursor.Paragraph - 1, Sentence: 0}
	e.reportProgressLocked()
	if e.state == StatePlaying {
		e.speakCurrentLocked()
	}
}

// SkipSentenceForward implements spec.md §4.3's skipSentenceForward op.
func (e *Engine) SkipSentenceForward() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.art == nil {
		return
	}
	p, s := e.cursor.Paragraph, e.cursor.Sentence
	if s+1 < e.art.SentenceCount(p) {
		s++
	} else if p+1 < e.art.ParagraphCount() {
		p++
		s = 0
	} else {
		return
	}
	e.gen++
	e.cancelBackendsLocked()
	e.cursor = article.Cursor{Paragraph: p, Sentence: s}
	e.reportProgressLocked()
	if e.state == StatePlaying {
		e.speakCurrentLocked()
	}
}

// SkipSentenceBackward implements spec.md §4.3's skipSentenceBackward op.
func (e *Engine) SkipSentenceBackward() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.art == nil {
		return
	}
	p, s := e.cursor.Paragraph, e.cursor.Sentence
	if s > 0 {
		s--
	} else if p > 0 {
		p--
		s = e.art.SentenceCount(p) - 1
	} else {
		return // (0,0) is a no-op per §8 boundary cases
	}
	e.gen++
	e.cancelBackendsLocked()
	e.cursor = article.Cursor{Paragraph: p, Sentence: s}
	e.reportProgressLocked()
	if e.state == StatePlaying {
		e.speakCurrentLocked()
	}
}

// JumpToParagraph implements spec.md §4.3's jumpToParagraph op.
func (e *Engine) JumpToParagraph(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.art == nil || i < 0 || i >= e.art.ParagraphCount() {
		return
	}
	e.gen++
	e.cancelBackendsLocked()
	e.cursor = article.Cursor{Paragraph: i, Sentence: 0}
	e.reportProgressLocked()
	if e.state == StatePlaying {
		e.speakCurrentLocked()
	}
}

// SeekToTime implements spec.md §4.3/§4.6's seekToTime op.
func (e *Engine) SeekToTime(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.art == nil || e.timeline == nil {
		return
	}
	e.gen++
	e.cancelBackendsLocked()
	e.cursor = e.timeline.SeekToTime(secondsToDuration(seconds))
	e.reportProgressLocked()
	if e.state == StatePlaying {
		e.speakCurrentLocked()
	}
}

// SetRate implements spec.md §4.3's setRate op: clamp to [0.5, 3.0],
// forward to the active backend.
func (e *Engine) SetRate(r float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r < MinRate {
		r = MinRate
	}
	if r > MaxRate {
		r = MaxRate
	}
	e.rate = r
	if e.timeline != nil {
		e.timeline.SetRate(r)
	}
	if e.active != nil {
		e.active.SetRate(r)
	}
}

// SetLang implements spec.md §4.3's setLang op.
func (e *Engine) SetLang(l article.Lang) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lang = l
}

// SetWakeLock implements spec.md §4.3's setWakeLock op.
func (e *Engine) SetWakeLock(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wakeLockWanted = enabled
	if enabled && e.state == StatePlaying {
		e.acquireWakeLockLocked()
	} else if !enabled {
		e.releaseWakeLockLocked()
	}
}

func (e *Engine) acquireWakeLockLocked() {
	e.wakeLockWanted = true
	if !e.wakeLockHeld {
		e.wakeLock.Acquire()
		e.wakeLockHeld = true
	}
}

func (e *Engine) releaseWakeLockLocked() {
	if e.wakeLockHeld {
		e.wakeLock.Release()
		e.wakeLockHeld = false
	}
}

func (e *Engine) cancelBackendsLocked() {
	if e.fetch != nil {
		e.fetch.Cancel()
	}
	if e.platform != nil {
		e.platform.Cancel()
	}
}

func (e *Engine) setStateLocked(s PlaybackState) {
	e.state = s
	if e.hooks.OnStateChange != nil {
		e.hooks.OnStateChange(s)
	}
}

func (e *Engine) onStall() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePlaying {
		return
	}
	e.log.Warn("engine: dead-man watchdog fired", "paragraph", e.cursor.Paragraph, "sentence", e.cursor.Sentence)
	e.stopLocked()
	if e.hooks.OnError != nil {
		e.hooks.OnError(NewStalledError())
	}
}

func (e *Engine) reportProgressLocked() {
	if e.timeline == nil {
		return
	}
	pos := e.timeline.Position(e.cursor)
	dur := e.timeline.Duration()
	if e.bridge != nil {
		e.bridge.UpdateTimeline(dur, pos, e.rate)
	}
	if e.hooks.OnProgress != nil {
		e.hooks.OnProgress(pos, dur)
	}
}

// respeakCurrentLocked re-speaks the current (p, s) from the start —
// used by the resume-watchdog's onNeedsRespeak path, per spec.md §4.4:
// the user hears the current sentence restart, not a jump.
func (e *Engine) respeakCurrentLocked() {
	e.gen++
	e.cancelBackendsLocked()
	e.speakCurrentLocked()
}

// speakCurrentLocked is the engine's heartbeat (spec.md §4.3's
// speakCurrent): advances past exhausted sentences/paragraphs, emits
// paragraph-change and progress notifications, triggers prefetch, and
// dispatches the active backend for the current sentence.
func (e *Engine) speakCurrentLocked() {
	if e.state.Stopped() {
		return
	}
	if e.art == nil || e.cursor.AtEnd(e.art) {
		e.transitionToDoneLocked()
		return
	}
	if e.cursor.Sentence >= e.art.SentenceCount(e.cursor.Paragraph) {
		e.cursor = article.Cursor{Paragraph: e.cursor.Paragraph + 1, Sentence: 0}
		e.speakCurrentLocked()
		return
	}
	if e.cursor.Sentence == 0 && e.hooks.OnParagraphChange != nil {
		e.hooks.OnParagraphChange(e.cursor.Paragraph)
	}

	e.prefetchUpcomingLocked()

	gen := e.gen
	text := e.art.Sentence(e.cursor.Paragraph, e.cursor.Sentence)
	backend := e.active
	cb := Callbacks{
		OnEnd: func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.state.Stopped() || gen != e.gen {
				return
			}
			e.deadMan.Progress(time.Now())
			e.cursor = article.Cursor{Paragraph: e.cursor.Paragraph, Sentence: e.cursor.Sentence + 1}
			e.reportProgressLocked()
			e.speakCurrentLocked()
		},
		OnError: func(shouldFallback bool) {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.state.Stopped() || gen != e.gen {
				return
			}
			if shouldFallback && backend != e.platform {
				e.log.Debug("engine: falling back to platform backend", "paragraph", e.cursor.Paragraph, "sentence", e.cursor.Sentence)
				e.active = e.platform
				e.platform.Speak(text, e.lang, e.rate, e.voice, cbFor(e, gen))
				return
			}
			e.log.Error("engine: backend error, holding on current sentence", "shouldFallback", shouldFallback)
			if e.hooks.OnError != nil {
				e.hooks.OnError(&ExternalError{Code: ErrFetchFailed, Message: "backend failure with no fallback"})
			}
		},
	}
	backend.Speak(text, e.lang, e.rate, e.voice, cb)
}

// cbFor rebuilds a Callbacks pair bound to a (possibly new) backend
// identity for the fallback re-dispatch inside speakCurrentLocked's
// OnError, keeping the *same* cb semantics spec.md §4.3 step 6 requires
// ("re-invoke Platform.speak(...) with the same cb").
func cbFor(e *Engine, gen article.Generation) Callbacks {
	return Callbacks{
		OnEnd: func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.state.Stopped() || gen != e.gen {
				return
			}
			e.deadMan.Progress(time.Now())
			e.cursor = article.Cursor{Paragraph: e.cursor.Paragraph, Sentence: e.cursor.Sentence + 1}
			e.reportProgressLocked()
			e.speakCurrentLocked()
		},
		OnError: func(shouldFallback bool) {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.state.Stopped() || gen != e.gen {
				return
			}
			e.log.Error("engine: both backends failed for current sentence")
			if e.hooks.OnError != nil {
				e.hooks.OnError(&ExternalError{Code: ErrFetchFailed, Message: ErrBothBackendsFailed.Error()})
			}
		},
	}
}

func (e *Engine) transitionToDoneLocked() {
	e.releaseWakeLockLocked()
	if e.bridge != nil {
		e.bridge.Deactivate()
	}
	e.deadMan.Disarm()
	e.cursor = article.Zero
	e.setStateLocked(StateDone)
	if e.hooks.OnArticleEnd != nil {
		e.hooks.OnArticleEnd()
	}
}

func (e *Engine) prefetchUpcomingLocked() {
	prefetcher, ok := e.fetch.(Prefetcher)
	if !ok {
		return
	}
	var texts []string
	p, s := e.cursor.Paragraph, e.cursor.Sentence+1
	for len(texts) < PrefetchAhead && p < e.art.ParagraphCount() {
		for s < e.art.SentenceCount(p) && len(texts) < PrefetchAhead {
			texts = append(texts, e.art.Sentence(p, s))
			s++
		}
		p++
		s = 0
	}
	if len(texts) > 0 {
		prefetcher.Prefetch(texts, e.lang)
	}
}

// OnVisible implements spec.md §4.4's visibility-visible handling: reset
// lastProgressTime, reacquire wake-lock/media-session if playing, and
// re-enter speakCurrent if the active backend reports no clip in flight.
func (e *Engine) OnVisible(activeBackendIdle bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePlaying {
		if e.bridge != nil {
			e.bridge.OnVisible()
		}
		return
	}
	e.deadMan.Progress(time.Now())
	e.acquireWakeLockLocked()
	if e.bridge != nil {
		e.bridge.Activate(e.art.Title)
	}
	if activeBackendIdle {
		e.respeakCurrentLocked()
	}
}

// OnHidden implements spec.md §4.4's visibility-hidden handling. The
// resume watchdog itself lives inside platform.Backend (armed by its
// Resume and cleared by its own Pause/Cancel/Dispose), so there is
// nothing left for the engine to clear here; this hook is kept as the
// named entry point spec.md §4.4 describes for symmetry with OnVisible.
func (e *Engine) OnHidden() {
	e.mu.Lock()
	defer e.mu.Unlock()
}

// Dispose releases all engine resources.
func (e *Engine) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	if e.fetch != nil {
		e.fetch.Dispose()
	}
	if e.platform != nil {
		e.platform.Dispose()
	}
	if e.bridge != nil {
		e.bridge.Dispose()
	}
}

// Package platform implements the Platform speech backend (spec.md §4.2):
// forwards text to a host speech facility, treats host "interrupted"/
// "canceled" errors as no-ops, and arms a 500ms resume watchdog that
// requests a respeak if the host doesn't confirm resumption. Grounded on
// the teacher's pkg/tts/engines/gtts.go subprocess-backed engine and
// tts/engines/fallback.go's failure-classification idiom.
package platform

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kestrelread/voxread/internal/article"
	"github.com/kestrelread/voxread/internal/engine"
)

// HostErrorKind classifies an error the host speech facility reports.
type HostErrorKind int

const (
	// HostErrorOther is any error other than interrupted/canceled.
	HostErrorOther HostErrorKind = iota
	HostErrorInterrupted
	HostErrorCanceled
)

// HostState is the host speaker's reported activity, consulted by the
// resume watchdog.
type HostState int

const (
	HostIdle HostState = iota
	HostSpeaking
	HostPending
	HostPaused
)

// HostSpeaker is the host speech facility the Platform backend forwards
// to. An implementation might shell out to a system TTS command (the
// teacher's pkg/tts/engines/gtts.go subprocess pattern) or drive a
// platform accessibility API; this package is facility-agnostic.
type HostSpeaker interface {
	Speak(text string, lang article.Lang, rate float64, voice *engine.Voice, onEnd func(), onError func(HostErrorKind))
	Pause()
	Resume()
	Cancel()
	SetRate(rate float64)
	State() HostState
	Dispose()
}

// ResumeWatchdogDelay is spec.md §4.2's 500ms one-shot resume check; the
// resume watchdog is backend-owned, not engine-owned.
const ResumeWatchdogDelay = 500 * time.Millisecond

// Backend implements engine.Backend for the Platform strategy.
type Backend struct {
	mu     sync.Mutex
	host   HostSpeaker
	log    *log.Logger
	timer  *time.Timer
}

// New builds a Platform backend.
func New(host HostSpeaker, logger *log.Logger) *Backend {
	if logger == nil {
		logger = log.Default()
	}
	return &Backend{host: host, log: logger}
}

func (b *Backend) Name() string { return "platform" }

// Speak forwards to the host. "interrupted"/"canceled" host errors are
// treated as normal (no-op, per spec.md §4.2); any other error is
// surfaced as cb.OnError(false).
func (b *Backend) Speak(text string, lang article.Lang, rate float64, voice *engine.Voice, cb engine.Callbacks) {
	b.host.Speak(text, lang, rate, voice, cb.OnEnd, func(kind HostErrorKind) {
		switch kind {
		case HostErrorInterrupted, HostErrorCanceled:
			return
		default:
			b.log.Error("platform backend: host speaker error")
			cb.OnError(false)
		}
	})
}

// Pause delegates to the host.
func (b *Backend) Pause() {
	b.cancelResumeWatchdog()
	b.host.Pause()
}

// Resume delegates to the host and arms the 500ms resume watchdog: if the
// host reports neither "speaking" nor "pending" once the delay elapses,
// onNeedsRespeak fires.
func (b *Backend) Resume(onNeedsRespeak func()) {
	b.host.Resume()
	b.armResumeWatchdog(onNeedsRespeak)
}

func (b *Backend) armResumeWatchdog(onNeedsRespeak func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(ResumeWatchdogDelay, func() {
		state := b.host.State()
		if state != HostSpeaking && state != HostPending {
			onNeedsRespeak()
		}
	})
}

func (b *Backend) cancelResumeWatchdog() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// Cancel stops the host and clears any pending resume watchdog.
func (b *Backend) Cancel() {
	b.cancelResumeWatchdog()
	b.host.Cancel()
}

// SetRate forwards to the host.
func (b *Backend) SetRate(rate float64) { b.host.SetRate(rate) }

// Dispose releases host resources.
func (b *Backend) Dispose() {
	b.cancelResumeWatchdog()
	b.host.Dispose()
}

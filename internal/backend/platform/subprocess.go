package platform

import (
	"bytes"
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kestrelread/voxread/internal/article"
	"github.com/kestrelread/voxread/internal/audioplayer"
	"github.com/kestrelread/voxread/internal/engine"
)

// SubprocessSpeaker implements HostSpeaker by shelling out to a
// configurable system TTS binary and playing the resulting PCM through
// audioplayer.Player, grounded on the teacher's pkg/tts/engines/gtts.go
// (gtts-cli + ffmpeg subprocess pipeline with a 10s timeout executor).
type SubprocessSpeaker struct {
	mu       sync.Mutex
	binary   string // e.g. "espeak-ng", "say"
	args     func(text, voice string, rate float64) []string
	player   *audioplayer.Player
	log      *log.Logger
	state    HostState
	timeout  time.Duration
}

// NewSubprocessSpeaker builds a speaker invoking binary with args built by
// argsFn. player must already be initialised (audioplayer.NewPlayer).
func NewSubprocessSpeaker(binary string, argsFn func(text, voice string, rate float64) []string, player *audioplayer.Player, logger *log.Logger) *SubprocessSpeaker {
	if logger == nil {
		logger = log.Default()
	}
	if argsFn == nil {
		argsFn = defaultArgs
	}
	return &SubprocessSpeaker{binary: binary, args: argsFn, player: player, log: logger, timeout: 10 * time.Second}
}

func defaultArgs(text, voice string, rate float64) []string {
	args := []string{"--stdout"}
	if voice != "" {
		args = append(args, "-v", voice)
	}
	args = append(args, text)
	return args
}

func (s *SubprocessSpeaker) Speak(text string, lang article.Lang, rate float64, voice *engine.Voice, onEnd func(), onError func(HostErrorKind)) {
	voiceID := ""
	if voice != nil {
		voiceID = voice.ID
	}
	s.mu.Lock()
	s.state = HostPending
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, s.binary, s.args(text, voiceID, rate)...)
		var stdout bytes.Buffer
		cmd.Stdout = &stdout
		err := cmd.Run()
		if ctx.Err() == context.DeadlineExceeded {
			onError(HostErrorOther)
			return
		}
		if err != nil {
			if cmd.ProcessState != nil && !cmd.ProcessState.Success() && ctx.Err() == context.Canceled {
				onError(HostErrorCanceled)
				return
			}
			s.log.Warn("platform subprocess: synthesis failed", "err", err)
			onError(HostErrorOther)
			return
		}

		s.mu.Lock()
		s.state = HostSpeaking
		s.mu.Unlock()

		s.player.SetRate(rate)
		s.player.Play(stdout.Bytes(), func() {
			s.mu.Lock()
			s.state = HostIdle
			s.mu.Unlock()
			onEnd()
		}, func(err error) {
			s.log.Warn("platform subprocess: playback failed", "err", err)
			onError(HostErrorOther)
		})
	}()
}

func (s *SubprocessSpeaker) Pause() {
	s.mu.Lock()
	s.state = HostPaused
	s.mu.Unlock()
	s.player.Pause()
}

func (s *SubprocessSpeaker) Resume() {
	s.mu.Lock()
	s.state = HostSpeaking
	s.mu.Unlock()
	s.player.Resume()
}

func (s *SubprocessSpeaker) Cancel() {
	s.mu.Lock()
	s.state = HostIdle
	s.mu.Unlock()
	s.player.Stop()
}

func (s *SubprocessSpeaker) SetRate(rate float64) { s.player.SetRate(rate) }

func (s *SubprocessSpeaker) State() HostState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SubprocessSpeaker) Dispose() {
	s.player.Stop()
}

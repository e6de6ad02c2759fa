// Command voxread is the CLI entrypoint adapted from the teacher's
// main.go cobra/viper/go-app-paths wiring: a small player front-end over
// the Playback Engine, the Normaliser, and the Queue Controller, trimmed
// to exclude the teacher's markdown pager TUI — the interactive UI shell
// is explicitly out of scope per spec.md §1.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/kestrelread/voxread/internal/article"
	"github.com/kestrelread/voxread/internal/backend/fetch"
	"github.com/kestrelread/voxread/internal/backend/platform"
	"github.com/kestrelread/voxread/internal/config"
	"github.com/kestrelread/voxread/internal/engine"
	"github.com/kestrelread/voxread/internal/loader"
	"github.com/kestrelread/voxread/internal/proxyclient"
	"github.com/kestrelread/voxread/internal/queue"
	"github.com/kestrelread/voxread/internal/store"
)

var (
	// Version as provided by goreleaser, matching the teacher's convention.
	Version   = ""
	CommitSHA = ""

	configFile string
	debug      bool
	rate       float64
	ttsBinary  string

	rootCmd = &cobra.Command{
		Use:               "voxread",
		Short:             "Play articles aloud: queue, skip, and seek through speech-rendered text.",
		SilenceErrors:     false,
		SilenceUsage:      true,
		TraverseChildren:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
	}
)

// app bundles the wiring every subcommand needs: the engine, the queue
// controller, the loader, and the settings/content store.
type app struct {
	cfg      *config.Config
	db       *store.Store
	eng      *engine.Engine
	qc       *queue.Controller
	ld       *loader.Loader
	logger   *log.Logger
	settings store.Settings
}

func buildApp() (*app, error) {
	logger := log.Default()

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := store.Open(cfg.StorePath(), logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	settings := db.LoadSettings()
	if rate > 0 {
		settings.Rate = rate
	}

	proxy := proxyclient.New(cfg.ProxyBaseURL, cfg.ProxyKey, nil)

	player, _, err := newAudioPlayer()
	if err != nil {
		logger.Warn("audio device unavailable, platform backend will error on speak", "err", err)
	}

	binary := ttsBinary
	if binary == "" {
		binary = "espeak-ng"
	}
	var platformBackend *platform.Backend
	if player != nil {
		speaker := platform.NewSubprocessSpeaker(binary, nil, player, logger)
		platformBackend = platform.New(speaker, logger)
	}

	var fetchBackend *fetch.Backend
	if cfg.ProxyBaseURL != "" && player != nil {
		fetchBackend = fetch.New(proxy, player, logger)
	}

	var eng *engine.Engine
	switch {
	case platformBackend != nil:
		eng = engine.New(fetchBackend, platformBackend, engine.NewMediaSessionBridge(nil), nil, logger)
	default:
		// No audio device: still construct an Engine so queue/settings
		// flows are exercisable, backed by a backend that always errors.
		eng = engine.New(nil, noSoundBackend{}, engine.NewMediaSessionBridge(nil), nil, logger)
	}
	eng.SetRate(settings.Rate)

	ld := loader.New(proxy)

	qc := queue.New(db, eng, ld.FromURL, logger)
	qc.SetHooks(queue.Hooks{
		OnUpNext: func(title string) {
			logger.Info("up next", "title", title)
		},
	})
	eng.SetHooks(engine.Hooks{
		OnArticleEnd: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			qc.HandleArticleEnd(ctx)
		},
		OnError: func(e *engine.ExternalError) {
			logger.Error("playback error", "code", e.Code, "message", e.Error())
		},
		OnProgress: func(position, duration time.Duration) {
			logger.Debug("progress", "position", position, "duration", duration)
		},
	})

	return &app{cfg: cfg, db: db, eng: eng, qc: qc, ld: ld, logger: logger, settings: settings}, nil
}

// noSoundBackend is the engine.Backend used when no audio device is
// available, so the CLI still degrades gracefully instead of panicking.
type noSoundBackend struct{}

func (noSoundBackend) Name() string { return "none" }
func (noSoundBackend) Speak(_ string, _ article.Lang, _ float64, _ *engine.Voice, cb engine.Callbacks) {
	// Fired from a goroutine, matching subprocess.go and fetch.go: Speak is
	// called with e.mu held, and OnError re-locks it.
	go cb.OnError(false)
}
func (noSoundBackend) Pause()           {}
func (noSoundBackend) Resume(_ func())  {}
func (noSoundBackend) Cancel()          {}
func (noSoundBackend) SetRate(_ float64) {}
func (noSoundBackend) Dispose()         {}

func waitForInterrupt() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable verbose logging")
	rootCmd.PersistentFlags().Float64Var(&rate, "rate", 0, "playback rate override (0.5-3.0, 0 = use saved setting)")
	rootCmd.PersistentFlags().StringVar(&ttsBinary, "tts-binary", "", "platform TTS binary to shell out to (default espeak-ng)")

	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version

	rootCmd.AddCommand(playCmd, queueCmd, settingsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

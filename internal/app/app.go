package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"go.uber.org/zap"

	"github.com/five82/podtail/internal/config"
	"github.com/five82/podtail/internal/docker"
	"github.com/five82/podtail/internal/highlight"
	"github.com/five82/podtail/internal/kubectl"
	"github.com/five82/podtail/internal/logging"
	"github.com/five82/podtail/internal/logtail"
	"github.com/five82/podtail/internal/mux"
	"github.com/five82/podtail/internal/persist"
	"github.com/five82/podtail/internal/prefs"
	"github.com/five82/podtail/internal/source"
	"github.com/five82/podtail/internal/state"
	"github.com/five82/podtail/internal/supervisor"
	"github.com/five82/podtail/internal/ui"
)

// Backend discovers and reads one kind of source.
type Backend interface {
	source.Discovery
	source.Reader
}

// Options configure one podtail run.
type Options struct {
	Config    config.Config
	PrefsPath string // empty uses default ~/.config/podtail/prefs.toml
	Stdout    io.Writer
	Stderr    io.Writer

	// Backend replaces the backend selected by Config.Kind.
	Backend Backend
}

// Run discovers sources and tails them until the run ends: when every stream
// has finished in bounded mode, or when ctx is cancelled (or the terminal
// view is closed) in follow mode. An interrupted run is not an error.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	applyColorMode(cfg.Color)

	logger, closeLog, err := logging.New(logging.Options{
		Debug:    cfg.Debug,
		File:     cfg.DebugLog,
		Disabled: cfg.TUI,
		Colors:   !color.NoColor,
		Stderr:   stderr,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = closeLog() }()
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	hl, err := highlight.New(cfg.Highlight, cfg.Pattern)
	if err != nil {
		return err
	}

	backend := opts.Backend
	if backend == nil {
		b, closeBackend, err := newBackend(cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = closeBackend() }()
		backend = b
	}

	sources, err := backend.List(ctx, source.Filter{
		Pattern:    cfg.Filter,
		Namespaces: cfg.Namespaces,
		Inverse:    cfg.Inverse,
	})
	if err != nil {
		return fmt.Errorf("discover %s sources: %w", cfg.Kind, err)
	}
	logger.Debug("discovered sources",
		zap.String("kind", cfg.Kind),
		zap.Int("count", len(sources)),
		zap.Bool("follow", cfg.Follow))

	store := &state.Store{}
	muxOpts := []mux.Option{
		mux.WithHighlighter(hl),
		mux.WithCounter(store),
		mux.WithLogger(logger.Named("mux")),
	}

	var writer *persist.Writer
	if cfg.Save {
		writer, err = persist.New(cfg.SaveDir)
		if err != nil {
			return fmt.Errorf("init save dir: %w", err)
		}
		muxOpts = append(muxOpts, mux.WithPersister(writer))
	}

	var (
		sink   mux.Sink = mux.WriterSink{W: stdout}
		uiSink *ui.Sink
	)
	if cfg.TUI {
		uiSink = ui.NewSink(0)
		sink = uiSink
	}
	m := mux.New(sink, muxOpts...)
	m.Start()

	report := func(src source.Source, err error) {
		if cfg.TUI {
			logger.Warn("source failed", zap.String("source", src.ID), zap.Error(err))
			return
		}
		var launchErr *source.LaunchError
		if !errors.As(err, &launchErr) {
			err = fmt.Errorf("%s: %w", src.ID, err)
		}
		ui.PrintError(stderr, err)
	}
	sup := supervisor.New(backend, m,
		supervisor.WithTracker(store),
		supervisor.WithReporter(report),
		supervisor.WithLogger(logger.Named("supervisor")),
		supervisor.WithSeed(cfg.Seed))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	StartStatusLogger(runCtx, store, logger.Named("status"), defaultStatusInterval)

	mode := supervisor.ModeFor(cfg.Follow)
	readOpts := source.ReadOptions{Tail: cfg.Tail, Follow: cfg.Follow, AllContainers: cfg.AllContainers}

	var runErr error
	if cfg.TUI {
		runErr = runWithUI(runCtx, cancel, sup, sources, mode, readOpts, ui.Options{
			Store:   store,
			Sink:    uiSink,
			Mode:    mode.String(),
			SaveDir: saveDirLabel(writer),
		}, opts.PrefsPath)
	} else {
		runErr = sup.Run(runCtx, sources, mode, readOpts)
	}

	// Drain the multiplexer before closing persisted files.
	err = errors.Join(runErr, m.Close())
	if writer != nil {
		err = errors.Join(err, writer.Close())
	}
	if err != nil {
		return err
	}
	logger.Debug("run finished", zap.Int("lines", store.Snapshot().TotalLines()))
	return nil
}

// runWithUI runs the supervisor behind the terminal view. Closing the view
// ends the run.
func runWithUI(
	ctx context.Context,
	cancel context.CancelFunc,
	sup *supervisor.Supervisor,
	sources []source.Source,
	mode supervisor.Mode,
	readOpts source.ReadOptions,
	uiOpts ui.Options,
	prefsPath string,
) error {
	userPrefs, _ := prefs.Load(prefsPath)
	uiOpts.ThemeName = userPrefs.Theme
	uiOpts.LastSearch = userPrefs.LastSearch
	uiOpts.PrefsPath = prefsPath

	done := make(chan error, 1)
	go func() {
		done <- sup.Run(ctx, sources, mode, readOpts)
	}()

	uiErr := ui.Run(ctx, uiOpts)
	cancel()
	return errors.Join(uiErr, <-done)
}

// newBackend builds the discovery and reader for cfg.Kind. The returned
// function releases the backend's resources.
func newBackend(cfg config.Config, logger *zap.Logger) (Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Kind {
	case config.KindKubectl:
		return kubectl.New(
			kubectl.WithPath(cfg.KubectlPath),
			kubectl.WithKubeContext(cfg.Context),
			kubectl.WithAllNamespaces(cfg.AllNamespaces),
			kubectl.WithLogger(logger.Named("kubectl")),
		), noop, nil
	case config.KindDocker:
		client, err := docker.New(docker.WithLogger(logger.Named("docker")))
		if err != nil {
			return nil, nil, fmt.Errorf("connect to docker: %w", err)
		}
		return client, client.Close, nil
	case config.KindFile:
		return logtail.New(logtail.WithLogger(logger.Named("files"))), noop, nil
	}
	return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
}

// applyColorMode forces terminal colors on or off. In auto mode the libraries
// decide from the terminal.
func applyColorMode(mode string) {
	switch mode {
	case config.ColorAlways:
		color.NoColor = false
		lipgloss.SetColorProfile(termenv.ANSI256)
	case config.ColorNever:
		color.NoColor = true
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

func saveDirLabel(w *persist.Writer) string {
	if w == nil {
		return ""
	}
	return w.Dir()
}

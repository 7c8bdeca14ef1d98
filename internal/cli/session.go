package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/tubelife"
	"github.com/aretw0/tubelife/internal/config"
	"github.com/aretw0/tubelife/internal/presentation/tui"
	"github.com/aretw0/tubelife/internal/watch"
	"github.com/aretw0/tubelife/pkg/domain"
)

// DefaultRefresh is the dashboard redraw period.
const DefaultRefresh = 200 * time.Millisecond

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	Config    *config.Config
	File      string // sequence document used instead of the library entry
	Watch     bool   // reload File when it changes
	Headless  bool   // no dashboard, no stdin; log lines only
	AutoStart bool
	Debug     bool
	Refresh   time.Duration

	In  io.Reader
	Out io.Writer
}

// RunSession drives the engine in real time until interrupted, the operator
// quits, or (headless) the engine returns to IDLE after running.
func RunSession(opts RunOptions) error {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Watch && opts.File == "" {
		return fmt.Errorf("--watch needs --file")
	}

	cfg := opts.Config
	logger := createLogger(cfg.Level(), opts.Debug || opts.Headless)

	if !opts.Headless {
		tui.PrintBanner(opts.Out, tubelife.Version)
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	lib, err := OpenLibrary(cfg, logger)
	if err != nil {
		return err
	}
	defer lib.Close()

	var extra []tubelife.Option
	if opts.File != "" {
		seq, err := SequenceFromFile(opts.File)
		if err != nil {
			return fmt.Errorf("error reading %s: %w", opts.File, err)
		}
		extra = append(extra, tubelife.WithSequence(seq))
	}

	engine, err := NewEngine(sigCtx, cfg, lib, logger, extra...)
	if err != nil {
		return err
	}

	r := engine.Runner()
	if err := r.Start(sigCtx); err != nil {
		return err
	}
	defer r.Stop()

	var reloads <-chan string
	if opts.Watch {
		reloads, err = watch.File(sigCtx, opts.File, watch.WithLogger(logger))
		if err != nil {
			return err
		}
	}

	var lines chan string
	if !opts.Headless {
		lines = make(chan string)
		go readLines(sigCtx, opts.In, lines)
	}

	if opts.AutoStart {
		engine.Start(sigCtx)
	}

	s := &session{
		engine:  engine,
		console: &Console{Engine: engine, Host: lib.Host},
		out:     opts.Out,
		logger:  logger,
	}
	if opts.Headless {
		s.view = &logView{out: opts.Out}
	} else {
		s.view = newDashboardView(opts.Out, cfg.Limits())
	}
	defer s.view.Close()

	err = s.loop(sigCtx, lines, reloads, opts)

	engine.Stop(context.Background())
	engine.WaitIO()
	snap := engine.Snapshot()
	s.view.Draw(snap, s.status)
	printSystemMessage("%s after %d/%d cycles.", describeSignal(sigCtx.Signal()), snap.Cycles.Current, snap.Cycles.Total)
	return err
}

type view interface {
	Draw(snap domain.Snapshot, status string)
	Close()
}

type session struct {
	engine  *tubelife.Engine
	console *Console
	view    view
	out     io.Writer
	logger  *slog.Logger

	status  string
	pending string // file waiting for the engine to unlock
	started bool
}

func (s *session) loop(ctx context.Context, lines <-chan string, reloads <-chan string, opts RunOptions) error {
	ticker := time.NewTicker(opts.Refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			msg, quit := s.console.Exec(ctx, line)
			if quit {
				return nil
			}
			s.status = msg

		case path, ok := <-reloads:
			if !ok {
				reloads = nil
				continue
			}
			s.logger.Info("Change detected, reloading", "path", path)
			s.pending = path
			s.reload(ctx)

		case <-ticker.C:
			if s.pending != "" {
				s.reload(ctx)
			}
			snap := s.engine.Snapshot()
			s.view.Draw(snap, s.status)

			if snap.State != domain.StateIdle {
				s.started = true
			} else if opts.Headless && s.started {
				return nil
			}
		}
	}
}

// reload applies the pending file once the engine is unlocked.
func (s *session) reload(ctx context.Context) {
	if s.engine.Locked() {
		s.status = "Change detected. Reload waits for Stop."
		return
	}
	path := s.pending
	s.pending = ""

	seq, err := SequenceFromFile(path)
	if err != nil {
		s.status = "Reload failed: " + err.Error()
		s.logger.Warn("Reload failed", "path", path, "err", err)
		return
	}
	if err := s.engine.LoadSequence(ctx, seq.Name, seq.Steps); err != nil {
		if errors.Is(err, domain.ErrLocked) {
			s.pending = path
			return
		}
		s.status = "Reload failed: " + err.Error()
		return
	}
	s.status = fmt.Sprintf("Reloaded %s.", path)
}

type dashboardView struct {
	live *tui.Live
	out  io.Writer
}

func newDashboardView(out io.Writer, limits domain.Limits) *dashboardView {
	return &dashboardView{live: tui.NewLive(out, tui.NewDashboard(limits)), out: out}
}

func (v *dashboardView) Draw(snap domain.Snapshot, status string) {
	v.live.Draw(snap)
	if status != "" {
		fmt.Fprintln(v.out, tui.InfoMsg("%s", status))
	}
	fmt.Fprintln(v.out, tui.MutedStyle.Render(ConsoleHelp))
}

func (v *dashboardView) Close() { v.live.Close() }

// logView prints event log entries as they appear, oldest first. Entries
// that scroll out of the bounded log between two draws are not printed.
type logView struct {
	out  io.Writer
	last uint64
}

func (v *logView) Draw(snap domain.Snapshot, _ string) {
	for i := len(snap.Log) - 1; i >= 0; i-- {
		e := snap.Log[i]
		if e.Seq <= v.last {
			continue
		}
		fmt.Fprintf(v.out, "%s [%s] %s\n", e.Timestamp.Format(time.RFC3339), e.Category, e.Message)
		v.last = e.Seq
	}
}

func (v *logView) Close() {}

package playback

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"al.essio.dev/pkg/shellescape"
	"github.com/spf13/afero"

	"github.com/oshokin/bell-scheduler/internal/logger"
)

var (
	// ErrNoPlayer is returned when no candidate program exists on the host.
	ErrNoPlayer = errors.New("no audio player available")
	// ErrSoundNotFound is returned when the sound path does not exist.
	ErrSoundNotFound = errors.New("sound file not found")
	// ErrStart is returned when the chosen player could not be started.
	ErrStart = errors.New("start audio player")
)

// LookPathFunc resolves a program name to an executable path.
type LookPathFunc func(program string) (string, error)

// StartFunc launches argv detached and returns its process id.
type StartFunc func(argv []string) (int, error)

// TerminateFunc kills running processes of an executable and returns how many were killed.
type TerminateFunc func(executable string) (int, error)

// Gateway plays sounds with the first available candidate.
type Gateway struct {
	// candidates are probed in order.
	candidates []Candidate
	// fs is used to check that the sound exists.
	fs afero.Fs
	// lookPath probes the host for a program.
	lookPath LookPathFunc
	// start launches the player.
	start StartFunc
	// terminate stops previous players when interruptPrevious is set.
	terminate TerminateFunc
	// interruptPrevious stops a still-playing bell before the next one starts.
	interruptPrevious bool
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithFs replaces the filesystem used for the existence check.
func WithFs(fs afero.Fs) Option {
	return func(g *Gateway) {
		if fs != nil {
			g.fs = fs
		}
	}
}

// WithLookPath replaces the program probe.
func WithLookPath(fn LookPathFunc) Option {
	return func(g *Gateway) {
		if fn != nil {
			g.lookPath = fn
		}
	}
}

// WithStart replaces the process launcher.
func WithStart(fn StartFunc) Option {
	return func(g *Gateway) {
		if fn != nil {
			g.start = fn
		}
	}
}

// WithTerminate replaces the process terminator.
func WithTerminate(fn TerminateFunc) Option {
	return func(g *Gateway) {
		if fn != nil {
			g.terminate = fn
		}
	}
}

// WithInterruptPrevious enables stopping running players before a new bell.
func WithInterruptPrevious(enabled bool) Option {
	return func(g *Gateway) {
		g.interruptPrevious = enabled
	}
}

// NewGateway parses the templates and wires the host implementations.
func NewGateway(templates []string, opts ...Option) (*Gateway, error) {
	candidates, err := ParseCandidates(templates)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		candidates: candidates,
		fs:         afero.NewOsFs(),
		lookPath:   exec.LookPath,
		start:      startDetached,
		terminate:  terminateByExecutable,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Candidates returns the configured candidates in priority order.
func (g *Gateway) Candidates() []Candidate {
	return append([]Candidate(nil), g.candidates...)
}

// Select returns the first candidate whose program exists and its resolved path.
func (g *Gateway) Select() (Candidate, string, error) {
	for _, candidate := range g.candidates {
		executable, err := g.lookPath(candidate.Program)
		if err != nil {
			continue
		}

		return candidate, executable, nil
	}

	return Candidate{}, "", ErrNoPlayer
}

// Available returns the programs of every candidate present on the host.
func (g *Gateway) Available() []string {
	var programs []string

	for _, candidate := range g.candidates {
		if _, err := g.lookPath(candidate.Program); err == nil {
			programs = append(programs, candidate.Program)
		}
	}

	return programs
}

// Play starts the first available player on path and returns without waiting.
// ErrSoundNotFound and ErrNoPlayer are degraded conditions: nothing is executed.
func (g *Gateway) Play(ctx context.Context, path string) error {
	info, err := g.fs.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrSoundNotFound, path)
	}

	candidate, executable, err := g.Select()
	if err != nil {
		return err
	}

	if g.interruptPrevious {
		g.interrupt(ctx, executable)
	}

	argv := candidate.Command(executable, path)

	pid, err := g.start(argv)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrStart, candidate.Program, err)
	}

	logger.InfoKV(ctx, "Playing sound",
		"player", candidate.Program,
		"command", shellescape.QuoteCommand(argv),
		"pid", pid,
	)

	return nil
}

// interrupt stops earlier instances of the player; failures only cost an overlap.
func (g *Gateway) interrupt(ctx context.Context, executable string) {
	killed, err := g.terminate(filepath.Base(executable))
	if err != nil {
		logger.WarnKV(ctx, "Failed to stop previous player", "player", executable, "error", err)
		return
	}

	if killed > 0 {
		logger.InfoKV(ctx, "Stopped previous player", "player", executable, "processes", killed)
	}
}

// startDetached launches argv in its own session with stdio on the null device
// and reaps it in the background.
func startDetached(argv []string) (int, error) {
	//nolint:gosec // argv comes from configured templates; the path is a single argument.
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid

	go func() {
		_ = cmd.Wait()
	}()

	return pid, nil
}

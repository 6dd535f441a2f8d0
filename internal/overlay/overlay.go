// Package overlay plays the celebratory loop shown while incense burns.
// A video asset is handed to an external player when one is installed;
// the terminal view always carries an animated fallback.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
)

// Player shows the overlay until stopped.
type Player interface {
	Start(ctx context.Context) error
	Stop()
}

// ErrNoPlayer is returned when the video player binary or asset is missing.
var ErrNoPlayer = errors.New("no video player available")

// DefaultPlayerArgs loop the asset forever, fullscreen, without a window
// border or terminal output.
var DefaultPlayerArgs = []string{"--loop=inf", "--fs", "--no-border", "--really-quiet", "--no-terminal"}

// ExecPlayer runs an external video player on an asset.
type ExecPlayer struct {
	Binary string
	Args   []string
	Asset  string
	Log    *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
}

// NewExecPlayer returns a player for asset using binary (mpv by default).
func NewExecPlayer(binary, asset string, log *slog.Logger) *ExecPlayer {
	if binary == "" {
		binary = "mpv"
	}
	if log == nil {
		log = slog.Default()
	}
	return &ExecPlayer{
		Binary: binary,
		Args:   DefaultPlayerArgs,
		Asset:  asset,
		Log:    log,
	}
}

// Available reports whether both the binary and the asset exist.
func (p *ExecPlayer) Available() error {
	if p.Asset == "" {
		return fmt.Errorf("%w: no asset configured", ErrNoPlayer)
	}
	if _, err := os.Stat(p.Asset); err != nil {
		return fmt.Errorf("%w: %v", ErrNoPlayer, err)
	}
	if path, err := exec.LookPath(p.Binary); err != nil || path == "" {
		return fmt.Errorf("%w: %s not found", ErrNoPlayer, p.Binary)
	}
	return nil
}

// Start launches the player. It is a no-op while already playing.
func (p *ExecPlayer) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return nil
	}
	if err := p.Available(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	args := append(append([]string{}, p.Args...), p.Asset)
	cmd := exec.CommandContext(ctx, p.Binary, args...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start %s: %w", p.Binary, err)
	}

	done := make(chan struct{})
	p.cmd, p.cancel, p.done = cmd, cancel, done
	p.Log.Info("overlay started", "player", p.Binary, "asset", p.Asset, "pid", cmd.Process.Pid)

	go func() {
		defer close(done)
		err := cmd.Wait()
		if err != nil && ctx.Err() == nil {
			p.Log.Warn("overlay player exited", "err", err)
		}
		p.mu.Lock()
		if p.cmd == cmd {
			p.cmd = nil
		}
		p.mu.Unlock()
	}()
	return nil
}

// Stop terminates the player and waits for it to exit.
func (p *ExecPlayer) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.Log.Info("overlay stopped")
}

// Playing reports whether the player process is running.
func (p *ExecPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}

// NopPlayer is used when only the terminal animation is wanted.
type NopPlayer struct{}

func (NopPlayer) Start(context.Context) error { return nil }
func (NopPlayer) Stop()                       {}

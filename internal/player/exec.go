package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// ErrUnsupported is returned by exec handles for controls the external
// player cannot receive after start.
var ErrUnsupported = errors.New("not supported by external player")

// ExecBackend plays streams by running an external player (mpv, ffplay,
// vlc). Volume and mute are passed as flags when the player is known.
type ExecBackend struct {
	Command string
	Args    []string
}

// NewExecBackend returns a backend running command with args before the URL.
func NewExecBackend(command string, args ...string) *ExecBackend {
	return &ExecBackend{Command: command, Args: args}
}

// Open starts the player process. It reports EventPlaying once the process
// is running, and EventEnded or EventError when it exits on its own.
func (b *ExecBackend) Open(_ context.Context, url string, opts OpenOptions, notify Notify) (Handle, error) {
	args := append([]string{}, b.Args...)
	args = append(args, volumeFlags(b.Command, opts)...)
	args = append(args, url)

	cmd := exec.Command(b.Command, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", b.Command, err)
	}

	h := &execHandle{cmd: cmd, done: make(chan struct{})}
	notify(EventPlaying, nil)

	go func() {
		err := cmd.Wait()
		h.mu.Lock()
		closing := h.closing
		h.mu.Unlock()
		close(h.done)
		if closing {
			return
		}
		if err != nil {
			notify(EventError, fmt.Errorf("%s exited: %w", b.Command, err))
			return
		}
		notify(EventEnded, nil)
	}()
	return h, nil
}

type execHandle struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu      sync.Mutex
	closing bool
}

func (h *execHandle) SetVolume(float64) error { return ErrUnsupported }
func (h *execHandle) SetMuted(bool) error     { return ErrUnsupported }
func (h *execHandle) Pause() error            { return ErrUnsupported }
func (h *execHandle) Resume() error           { return ErrUnsupported }

// Close kills the process and waits for it to exit.
func (h *execHandle) Close() error {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		<-h.done
		return nil
	}
	h.closing = true
	h.mu.Unlock()

	select {
	case <-h.done:
		return nil
	default:
	}
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill: %w", err)
	}
	<-h.done
	return nil
}

// volumeFlags renders OpenOptions for players whose flags we know.
func volumeFlags(command string, opts OpenOptions) []string {
	pct := int(math.Round(opts.Volume * 100))
	switch filepath.Base(command) {
	case "mpv":
		mute := "no"
		if opts.Muted {
			mute = "yes"
		}
		return []string{fmt.Sprintf("--volume=%d", pct), "--mute=" + mute}
	case "ffplay":
		if opts.Muted {
			pct = 0
		}
		return []string{"-volume", fmt.Sprint(pct)}
	default:
		return nil
	}
}

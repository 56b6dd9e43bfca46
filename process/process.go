// Package process runs short-lived external tools such as ffprobe.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// ErrNotInstalled is returned when the binary cannot be found on PATH.
var ErrNotInstalled = errors.New("process: binary not found")

// Command configures a subprocess.
type Command struct {
	// Binary is the executable path or name (resolved via PATH).
	Binary string
	// Args are the command-line arguments.
	Args []string
	// Timeout bounds the run; zero means only ctx applies.
	Timeout time.Duration
	// GracePeriod is how long to wait after SIGTERM before SIGKILL.
	// Defaults to 2 seconds.
	GracePeriod time.Duration
}

// Result holds the captured output of a finished subprocess.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Available reports whether binary resolves on PATH.
func Available(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

// Run executes cmd and waits for it. On cancellation or timeout the whole
// process group gets SIGTERM, then SIGKILL after the grace period. A non-zero
// exit is an error carrying the trimmed stderr.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}
	if _, err := exec.LookPath(cmd.Binary); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInstalled, cmd.Binary)
	}
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}
	grace := cmd.GracePeriod
	if grace == 0 {
		grace = 2 * time.Second
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // arguments are built by callers, not users
	var stdout, stderr bytes.Buffer
	c.Stdout, c.Stderr = &stdout, &stderr
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = grace

	start := time.Now()
	err := c.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}
	if err != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("process: %s stopped: %w", cmd.Binary, ctx.Err())
		}
		return res, fmt.Errorf("process: %s exit code %d: %s", cmd.Binary, res.ExitCode, bytes.TrimSpace(res.Stderr))
	}
	return res, nil
}

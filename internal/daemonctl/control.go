package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
	PID      int
}

// Launch starts a detached lightboxd process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	var args []string
	if cfgPath := strings.TrimSpace(opts.ConfigPath); cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForDaemon polls the daemon status endpoint until it responds or the
// timeout elapses.
func WaitForDaemon(ctx context.Context, client *Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		status, err := client.Status(ctx)
		if err == nil && status.Running {
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon if its API is unreachable and waits for
// it to come up.
func EnsureStarted(ctx context.Context, client *Client, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	status, err := client.Status(ctx)
	if err == nil && status.Running {
		return StartResult{State: StartStateAlreadyRunning, PID: status.PID}, nil
	}
	if err != nil && !errors.Is(err, ErrDaemonNotRunning) {
		return StartResult{}, err
	}

	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	if err := WaitForDaemon(ctx, client, waitTimeout); err != nil {
		return StartResult{}, err
	}
	status, err = client.Status(ctx)
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, Launched: true, PID: status.PID}, nil
}

// Stop asks the daemon process to shut down with SIGTERM and escalates to
// SIGKILL if it is still reachable after gracePeriod.
func Stop(ctx context.Context, client *Client, gracePeriod time.Duration) (int, error) {
	status, err := client.Status(ctx)
	if err != nil {
		if errors.Is(err, ErrDaemonNotRunning) {
			return 0, ErrDaemonNotRunning
		}
		return 0, err
	}
	pid := status.PID
	if pid <= 0 || pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to signal pid %d", pid)
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return 0, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	deadline := time.Now().Add(gracePeriod)
	for time.Now().Before(deadline) {
		if _, err := client.Status(ctx); errors.Is(err, ErrDaemonNotRunning) {
			return pid, nil
		}
		select {
		case <-ctx.Done():
			return pid, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}

	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		return pid, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	return pid, nil
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"lightbox/internal/daemonctl"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			status, err := client.Status(cmd.Context())
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(out, statusLine("Daemon", "not running (run `lightbox start`)", ansiYellow, colorize))
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(out, statusLine("Daemon", fmt.Sprintf("running (pid %d)", status.PID), ansiGreen, colorize))
			fmt.Fprintln(out, statusLine("Database", status.DatabasePath, "", colorize))
			fmt.Fprintln(out, statusLine("Lock file", status.LockFilePath, "", colorize))
			fmt.Fprintln(out, statusLine("Active batches", fmt.Sprintf("%d", status.ActiveBatches), "", colorize))
			if status.Drawer.Asset != nil {
				drawer := fmt.Sprintf("asset %s (polling: %s)", status.Drawer.Asset.AssetID, yesNo(status.Drawer.Polling))
				fmt.Fprintln(out, statusLine("Drawer", drawer, "", colorize))
			} else {
				fmt.Fprintln(out, statusLine("Drawer", "closed", "", colorize))
			}
			return nil
		},
	}
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	var waitTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon if it is not running",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			executable, err := findDaemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(cmd.Context(), client, executable, daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath(),
			}, waitTimeout)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(out, "Daemon already running (pid %d)\n", result.PID)
			default:
				fmt.Fprintf(out, "Daemon started (pid %d)\n", result.PID)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&waitTimeout, "wait", 10*time.Second, "How long to wait for the daemon to come up")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	var gracePeriod time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			pid, err := daemonctl.Stop(cmd.Context(), client, gracePeriod)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon not running")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon stopped (pid %d)\n", pid)
			return nil
		},
	}

	cmd.Flags().DurationVar(&gracePeriod, "grace", 5*time.Second, "How long to wait before force-killing")
	return cmd
}

// findDaemonExecutable prefers a lightboxd binary next to the CLI, then PATH.
func findDaemonExecutable() (string, error) {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), "lightboxd")
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := exec.LookPath("lightboxd")
	if err != nil {
		return "", fmt.Errorf("locate lightboxd executable: %w", err)
	}
	return path, nil
}

func statusLine(label, detail, color string, colorize bool) string {
	line := fmt.Sprintf("  %-16s %s", label+":", detail)
	if colorize && color != "" {
		return color + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

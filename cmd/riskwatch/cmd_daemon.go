package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/riskwatch/riskwatch/internal/scheduler"
)

var daemonForeground bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background scheduler daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		if c, err := scheduler.Dial(cmd.Context(), cfg.SocketPath); err == nil {
			c.Close()
			return fmt.Errorf("daemon already running on %s", cfg.SocketPath)
		}

		execPath, err := os.Executable()
		if err != nil {
			return err
		}
		daemonPath := filepath.Join(filepath.Dir(execPath), "riskwatch-daemon")

		var daemonArgs []string
		if cfgPath != "" {
			daemonArgs = append(daemonArgs, "--config", cfgPath)
		}

		proc := exec.Command(daemonPath, daemonArgs...)
		if daemonForeground {
			proc.Stdout = os.Stdout
			proc.Stderr = os.Stderr
			if err := proc.Run(); err != nil {
				return fmt.Errorf("daemon exited: %w", err)
			}
			return nil
		}

		proc.Stdout = os.Stderr
		proc.Stderr = os.Stderr
		if err := proc.Start(); err != nil {
			return fmt.Errorf("failed to start daemon: %w", err)
		}

		if err := waitForSocket(cfg.SocketPath, 5*time.Second); err != nil {
			return err
		}

		fmt.Printf("daemon started (pid %d)\n", proc.Process.Pid)
		return proc.Process.Release()
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon uptime, last run and guard state",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := scheduler.Dial(cmd.Context(), cfg.SocketPath)
		if err != nil {
			return err
		}
		defer c.Close()

		info, err := c.Status(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("uptime:    %s\n", info.Uptime)
		if info.LastRunID != "" {
			fmt.Printf("last run:  %s (%s)\n", info.LastRunAt.Format(time.RFC3339), info.LastRunID)
		} else {
			fmt.Println("last run:  none yet")
		}
		if info.LastError != "" {
			fmt.Printf("last err:  %s\n", info.LastError)
		}
		if !info.NextRunAt.IsZero() {
			fmt.Printf("next run:  %s\n", info.NextRunAt.Format(time.RFC3339))
		}
		fmt.Printf("guard:     locked=%v backup=%v unchanged=%v\n",
			info.Guard.Locked, info.Guard.BackupPresent, info.Guard.ChecksumMatch)
		if info.LastTamper != nil {
			fmt.Printf("tamper:    %s at %s\n", info.LastTamper.File, info.LastTamper.DetectedAt.Format(time.RFC3339))
		}
		return nil
	},
}

var daemonRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger an immediate pipeline cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := scheduler.Dial(cmd.Context(), cfg.SocketPath)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Run(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("cycle triggered")
		return nil
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the scheduler daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := scheduler.Dial(cmd.Context(), cfg.SocketPath)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Stop(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("daemon stopping")
		return nil
	},
}

func waitForSocket(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon socket not ready after %v", timeout)
}

func init() {
	daemonStartCmd.Flags().BoolVar(&daemonForeground, "foreground", false, "run the daemon in the foreground")
	daemonCmd.AddCommand(daemonStartCmd, daemonStatusCmd, daemonRunCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

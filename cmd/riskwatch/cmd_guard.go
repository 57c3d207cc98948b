package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riskwatch/riskwatch/internal/guard"
)

func newGuard() *guard.Guard {
	return guard.New(cfg.Guard.ProtectedFile, cfg.Guard.BackupsDir, cfg.Guard.StableTag, guard.NewGitRunner(""))
}

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the protected dashboard page",
	Long: `Back up the protected file, record its checksum, mark it read-only
and tell git to skip worktree changes. The lock is advisory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newGuard().Lock(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("locked %s\n", cfg.Guard.ProtectedFile)
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the protected dashboard page for editing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newGuard().Unlock(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("unlocked %s\n", cfg.Guard.ProtectedFile)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the protected page from backup and re-lock it",
	Long: `Overwrite the protected file with its locked backup, or with the
version tagged ` + "`stable-dashboard`" + ` when no backup exists, then lock
it again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newGuard().Restore(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("restored %s\n", cfg.Guard.ProtectedFile)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the protected page against its recorded checksum",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := newGuard()
		st := g.Status()

		fmt.Printf("file:      %s\n", st.File)
		fmt.Printf("locked:    %v\n", st.Locked)
		fmt.Printf("backup:    %v\n", st.BackupPresent)
		if st.Checksum != "" {
			fmt.Printf("checksum:  %s\n", st.Checksum)
			fmt.Printf("unchanged: %v\n", st.ChecksumMatch)
			if !st.ChecksumMatch {
				return fmt.Errorf("protected file differs from recorded checksum")
			}
		} else {
			fmt.Println("checksum:  none recorded (file not locked yet)")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lockCmd, unlockCmd, restoreCmd, verifyCmd)
}

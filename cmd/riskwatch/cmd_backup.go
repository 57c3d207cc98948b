package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riskwatch/riskwatch/internal/store"
)

var backupKeep int

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a dated snapshot of the event database and prune old ones",
	Long: `Snapshots are written with VACUUM INTO as backups/news-YYYY-MM-DD.db.
One snapshot per day; a snapshot that already exists for today is kept as-is.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		path, err := st.Backup(cfg.Store.BackupsDir)
		if err != nil {
			return err
		}
		fmt.Printf("backup: %s\n", path)

		keep := backupKeep
		if keep == 0 {
			keep = cfg.Store.BackupRetention
		}
		removed, err := store.PruneBackups(cfg.Store.BackupsDir, keep)
		if err != nil {
			return err
		}
		if removed > 0 {
			fmt.Printf("pruned %d old snapshot(s)\n", removed)
		}
		return nil
	},
}

func init() {
	backupCmd.Flags().IntVar(&backupKeep, "keep", 0, "snapshots to retain (default from config)")
	rootCmd.AddCommand(backupCmd)
}

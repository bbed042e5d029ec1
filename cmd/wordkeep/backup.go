package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skondo/wordkeep/internal/app"
	"github.com/skondo/wordkeep/internal/backup"
)

func newBackupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Backup and restore the study progress",
	}
	cmd.AddCommand(newBackupCreateCommand())
	cmd.AddCommand(newBackupRestoreCommand())
	return cmd
}

func newBackupCreateCommand() *cobra.Command {
	var output string
	var encrypt bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Export the full study progress into a snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			application, closeApp, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			result, err := application.BackupNow(ctx, output, encrypt)
			if errors.Is(err, app.ErrNoPassphrase) {
				return fmt.Errorf("--encrypt needs a passphrase: set WORDKEEP_PASSPHRASE or backup.passphrase in the config")
			}
			if err != nil {
				return fmt.Errorf("app.BackupNow() > %w", err)
			}

			state := "plain"
			if result.Encrypted {
				state = "encrypted"
			}
			fmt.Printf("Backed up %d item(s) to %s (%s, %d bytes)\n",
				result.ItemCount, result.Path, state, result.SizeBytes)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot file path (defaults to a dated file in the backup directory)")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "encrypt the snapshot with the configured passphrase")
	return cmd
}

func newBackupRestoreCommand() *cobra.Command {
	var strategyName string

	cmd := &cobra.Command{
		Use:   "restore <path>",
		Short: "Import a snapshot file into the local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			strategy, err := backup.ParseStrategy(strategyName)
			if err != nil {
				return err
			}

			application, closeApp, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			result, err := application.RestoreFromFile(ctx, args[0], strategy)
			if err != nil {
				return fmt.Errorf("app.RestoreFromFile(%s) > %w", args[0], err)
			}

			if len(result.Conflicts) > 0 {
				fmt.Printf("Restore aborted: %d record(s) conflict and neither side wins.\n", len(result.Conflicts))
				for _, conflict := range result.Conflicts {
					fmt.Printf("  - %s\n", conflict.ItemID)
				}
				fmt.Println("The local store was left untouched.")
				return nil
			}

			fmt.Printf("Restored from %s: %d added, %d updated, %d kept local.\n",
				args[0], result.Added, result.Updated, result.SkippedLocalWins)
			return nil
		},
	}
	cmd.Flags().StringVar(&strategyName, "strategy", string(backup.KeepLocal),
		fmt.Sprintf("merge strategy: %s or %s", backup.KeepLocal, backup.MergePreferRemote))
	return cmd
}

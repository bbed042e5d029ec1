package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skondo/wordkeep/internal/remote"
	"github.com/skondo/wordkeep/internal/syncer"
)

func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the study progress with the configured remote slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			application, closeApp, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			result, err := application.SyncNow(ctx)
			if err != nil {
				switch {
				case errors.Is(err, remote.ErrNotAuthenticated):
					return fmt.Errorf("not signed in: set WORDKEEP_SESSION_TOKEN and try again")
				default:
					var unresolved *syncer.ConflictUnresolvedError
					if errors.As(err, &unresolved) {
						return fmt.Errorf("sync gave up after %d attempts: another device keeps writing the slot", unresolved.Attempts)
					}
					return fmt.Errorf("app.SyncNow() > %w", err)
				}
			}

			switch result.Outcome {
			case syncer.OutcomeUploaded:
				fmt.Printf("Uploaded local progress (%d record(s)) in %d attempt(s).\n",
					result.Local.ItemCount, result.Attempts)
			case syncer.OutcomeDownloaded:
				fmt.Printf("Downloaded newer cloud progress: %d added, %d updated, %d kept local.\n",
					result.Restore.Added, result.Restore.Updated, result.Restore.SkippedLocalWins)
			case syncer.OutcomeAlreadySynced:
				fmt.Println("Already in sync.")
			}
			return nil
		},
	}
}

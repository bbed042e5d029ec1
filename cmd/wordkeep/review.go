package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skondo/wordkeep/internal/cli"
)

func newReviewCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Start an interactive review session over the due queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			application, closeApp, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			session, err := cli.NewReviewSessionCLI(ctx, application, limit)
			if err != nil {
				return err
			}
			if session.QueueLength() == 0 {
				fmt.Println("Nothing is due. Come back later.")
				return nil
			}

			fmt.Printf("Review session started with %d item(s). Type 'q' to stop.\n\n", session.QueueLength())
			return session.Run(ctx, session)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of items to review (0 reviews all)")
	return cmd
}

package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/skondo/wordkeep/internal/progress"
)

func newAddCommand() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "add <expression> [meaning]",
		Short: "Add a vocabulary item to the study queue",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			application, closeApp, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			item := progress.Item{ID: id, Expression: args[0]}
			if len(args) > 1 {
				item.Meaning = args[1]
			}

			added, err := application.AddItem(ctx, item)
			if err != nil {
				return fmt.Errorf("app.AddItem(%s) > %w", item.Expression, err)
			}

			fmt.Printf("Added %s (id: %s). It is due for review now.\n", added.Expression, added.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "explicit item id (defaults to a slug of the expression)")
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all vocabulary items with their review state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			application, closeApp, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			items, err := application.ListItems(ctx)
			if err != nil {
				return fmt.Errorf("app.ListItems() > %w", err)
			}
			if len(items) == 0 {
				fmt.Println("No items yet. Add one with: wordkeep add <expression>")
				return nil
			}

			bold := color.New(color.Bold)
			for _, entry := range items {
				line := bold.Sprintf("%s", entry.Item.Expression)
				if entry.Item.Meaning != "" {
					line += fmt.Sprintf(": %s", entry.Item.Meaning)
				}
				details := []string{
					fmt.Sprintf("reps %d", entry.Record.Repetitions),
					fmt.Sprintf("due %s", entry.Record.NextDueAt.Format("2006-01-02")),
				}
				if entry.Record.Mastered() {
					details = append(details, "mastered")
				}
				fmt.Printf("%s (%s)\n", line, strings.Join(details, ", "))
			}
			return nil
		},
	}
}

func newDueCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "due",
		Short: "Show items that are due for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			application, closeApp, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			due, err := application.DueItems(ctx, limit)
			if err != nil {
				return fmt.Errorf("app.DueItems() > %w", err)
			}
			if len(due) == 0 {
				fmt.Println("Nothing is due. Come back later.")
				return nil
			}

			for _, entry := range due {
				fmt.Printf("%s (due %s)\n", entry.Item.Expression, entry.Record.NextDueAt.Format("2006-01-02"))
			}
			fmt.Printf("\n%d item(s) due. Start with: wordkeep review\n", len(due))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of items to show (0 shows all)")
	return cmd
}

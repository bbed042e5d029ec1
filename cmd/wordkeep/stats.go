package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate study statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			application, closeApp, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			summary, err := application.Summary(ctx)
			if err != nil {
				return fmt.Errorf("app.Summary() > %w", err)
			}

			bold := color.New(color.Bold)
			fmt.Printf("%s\n", bold.Sprintf("Study statistics"))
			fmt.Printf("  Items:     %d (%d mastered)\n", summary.TotalItems, summary.Mastered)
			fmt.Printf("  Due now:   %d\n", summary.DueNow)
			fmt.Printf("  Accuracy:  %.1f%%\n", summary.AverageAccuracy*100)
			fmt.Printf("  Streak:    %d day(s)\n", summary.StreakDays)

			goalLine := fmt.Sprintf("  Today:     %d / %d reviews", summary.ReviewsToday, summary.DailyGoal)
			if summary.GoalMet {
				color.Green("%s (goal met)", goalLine)
			} else {
				fmt.Println(goalLine)
			}

			fmt.Println("  Stages:")
			for _, stage := range summary.Stages {
				fmt.Printf("    %-9s %d\n", stage.Stage, stage.Count)
			}
			return nil
		},
	}
	cmd.AddCommand(newStatsReportCommand())
	return cmd
}

func newStatsReportCommand() *cobra.Command {
	var pdf bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a study report into the report directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			application, closeApp, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			path, err := application.WriteReport(ctx, pdf)
			if err != nil {
				return fmt.Errorf("app.WriteReport() > %w", err)
			}
			fmt.Printf("Report written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pdf, "pdf", false, "also convert the report to PDF")
	return cmd
}

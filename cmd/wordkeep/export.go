package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newExportCommand() *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the study progress as plain YAML or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			application, closeApp, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp()

			payload, err := application.SnapshotPayload(ctx, true)
			if err != nil {
				return fmt.Errorf("app.SnapshotPayload() > %w", err)
			}

			var data []byte
			switch format {
			case "yaml":
				data, err = yaml.Marshal(payload)
				if err != nil {
					return fmt.Errorf("yaml.Marshal() > %w", err)
				}
			case "json":
				data, err = json.MarshalIndent(payload, "", "  ")
				if err != nil {
					return fmt.Errorf("json.MarshalIndent() > %w", err)
				}
				data = append(data, '\n')
			default:
				return fmt.Errorf("unsupported format %q (yaml or json)", format)
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("os.WriteFile(%s) > %w", output, err)
			}
			fmt.Printf("Exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (defaults to stdout)")
	return cmd
}

package main

import (
	"context"
	"os"

	"github.com/JonMunkholm/reviews/internal/core"
	"github.com/spf13/cobra"
)

func importCommand(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import_csv [path]",
		Short: "import clients, customers, products and orders from a CSV file",
		Long: "Validates every row of the file first. If any row is invalid nothing is written;\n" +
			"otherwise all rows are saved in a single transaction.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Import.DefaultPath
			if len(args) == 1 {
				path = args[0]
			}

			ctx, stop := a.runContext()
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, a.cfg.Import.Timeout)
			defer cancel()

			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			report, runErr := core.NewImporter(store).Import(ctx, core.ImportOptions{
				Path:             path,
				DryRun:           dryRun,
				MaxFileSize:      a.cfg.Import.MaxFileSize,
				ProgressInterval: a.cfg.Import.ProgressInterval,
			})
			if err := core.WriteReport(os.Stdout, report, runErr, a.cfg.Import.MaxReportedErrors); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and run the import, then roll it back")
	return cmd
}

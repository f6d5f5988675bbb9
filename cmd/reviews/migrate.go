package main

import (
	"fmt"

	"github.com/JonMunkholm/reviews/internal/database/migrations"
	"github.com/spf13/cobra"
)

func migrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "apply or revert the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}

			switch direction {
			case "up":
				return migrations.Up(a.cfg.Database.URL)
			case "down":
				return migrations.Down(a.cfg.Database.URL)
			default:
				return fmt.Errorf("unknown direction %q", direction)
			}
		},
	}
}

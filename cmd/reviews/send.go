package main

import (
	"fmt"
	"math"
	"os"

	"github.com/JonMunkholm/reviews/internal/mailer"
	"github.com/JonMunkholm/reviews/internal/review"
	"github.com/spf13/cobra"
)

func sendReviewsCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "send_review_emails",
		Short: "email a review request for every order not yet notified",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 || limit > math.MaxInt32 {
				return fmt.Errorf("--limit must be between 0 and %d", math.MaxInt32)
			}

			ctx, stop := a.runContext()
			defer stop()

			sender, err := mailer.New(a.cfg.Mail, os.Stdout)
			if err != nil {
				return err
			}

			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := review.NewService(store, sender, a.cfg.Mail.From, a.cfg.Mail.Subject)
			res, runErr := svc.SendPending(ctx, limit)
			if res != nil {
				if err := res.WriteSummary(os.Stdout); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "send at most this many emails (0 sends all)")
	return cmd
}

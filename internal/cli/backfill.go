package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ecocal/internal/app"
)

var (
	backfillFrom    string
	backfillTo      string
	backfillWindow  int
	backfillDetails bool
	backfillDryRun  bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Store calendar snapshots for a past date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backfillFrom == "" || backfillTo == "" {
			return fmt.Errorf("--from and --to must be provided")
		}

		from, err := time.Parse(time.DateOnly, backfillFrom)
		if err != nil {
			return fmt.Errorf("invalid --from value: %w", err)
		}

		to, err := time.Parse(time.DateOnly, backfillTo)
		if err != nil {
			return fmt.Errorf("invalid --to value: %w", err)
		}

		if to.Before(from) {
			return fmt.Errorf("--from must not be after --to")
		}

		opts := app.BackfillOptions{
			From:        from,
			To:          to,
			WindowDays:  backfillWindow,
			WithDetails: backfillDetails,
			DryRun:      backfillDryRun,
		}

		return getApp().Backfill(cmd.Context(), opts)
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "First day (YYYY-MM-DD, inclusive)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "Last day (YYYY-MM-DD, inclusive)")
	backfillCmd.Flags().IntVar(&backfillWindow, "window-days", 7, "Days fetched per calendar request")
	backfillCmd.Flags().BoolVar(&backfillDetails, "details", false, "Merge per-event details before storing")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "Fetch without writing to storage")
}

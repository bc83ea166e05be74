package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ecocal/internal/app"
)

var (
	fetchFrom    string
	fetchTo      string
	fetchDetails bool
	fetchLimit   int
)

var fetchCmd = &cobra.Command{
	Use:     "fetch",
	Aliases: []string{"show"},
	Short:   "Fetch the calendar for a date range and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if fetchLimit < 0 {
			return fmt.Errorf("--limit cannot be negative")
		}

		opts := app.FetchOptions{
			From:        fetchFrom,
			To:          fetchTo,
			WithDetails: fetchDetails,
			Limit:       fetchLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "First day (YYYY-MM-DD, inclusive)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "Last day (YYYY-MM-DD, inclusive); defaults to --from")
	fetchCmd.Flags().BoolVar(&fetchDetails, "details", false, "Merge per-event details into the table")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 0, "Maximum rows to print (0 prints all)")
}

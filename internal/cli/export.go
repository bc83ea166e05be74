package cli

import (
	"github.com/spf13/cobra"

	"ecocal/internal/app"
)

var (
	exportFrom    string
	exportTo      string
	exportDetails bool
	exportDir     string
	exportPNGPath string
	exportDB      bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the calendar as CSV, with optional PNG chart and database snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			From:        exportFrom,
			To:          exportTo,
			WithDetails: exportDetails,
			Dir:         exportDir,
			PNGPath:     exportPNGPath,
			Persist:     exportDB,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "First day (YYYY-MM-DD, inclusive)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Last day (YYYY-MM-DD, inclusive); defaults to --from")
	exportCmd.Flags().BoolVar(&exportDetails, "details", false, "Export the calendar merged with per-event details")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Directory for the CSV file (defaults to config)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write an impact bar chart")
	exportCmd.Flags().BoolVar(&exportDB, "db", false, "Also upsert the rows into PostgreSQL")
}

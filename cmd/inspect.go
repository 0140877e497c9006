package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brensch/qcewpanel/internal/inspector"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <csv>...",
	Short: "Summarize consolidated or cleaned CSVs using DuckDB",
	Long:  `Loads each CSV into an in-memory DuckDB and reports row count, distinct counties, year range, host rows (cleaned files) and rows per year.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := getLogger()
		var inspectErr error
		for _, path := range args {
			s, err := inspector.InspectCSV(context.Background(), path, logger)
			if err != nil {
				inspectErr = errors.Join(inspectErr, err)
				if s == nil {
					continue
				}
			}
			s.Print(logger)
		}
		if inspectErr != nil {
			return fmt.Errorf("inspection failed: %w", inspectErr)
		}
		return nil
	},
}

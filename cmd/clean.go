package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brensch/qcewpanel/internal/cleaner"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Union consolidated CSVs, tag host counties and filter rows",
	Long: `Loads every --input file (all must share one column set), adds host_year
from the host county table, then filters in order: title contains county or
parish, all value columns non-zero, optionally year >= 2000, optionally host or
control counties only. Inputs are never modified.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		logger := getLogger()
		m := newMetrics()
		defer func() {
			err = errors.Join(err, m.WriteTextfile(appConfig.MetricsPath))
		}()

		res, err := cleaner.Run(appConfig.Clean, logger, m)
		if err != nil {
			return fmt.Errorf("clean failed: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), res.Report.Render())
		return nil
	},
}

func init() {
	addCleanFlags(cleanCmd, &appConfig.Clean)
}

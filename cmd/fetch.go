package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brensch/qcewpanel/internal/orchestrator"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download yearly SIC archives and keep county total rows",
	Long: `Downloads <base-url>/<year>/sic/csv/sic_<year>_qtrly_by_area.zip for each year
in the range, keeps rows with own_code 0 and agglvl_code 26 from every CSV in
the archive, and writes them to one CSV. Years whose archive is missing or
corrupt are skipped with a warning. Any other failure aborts without output.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		logger := getLogger()
		m := newMetrics()
		defer func() {
			err = errors.Join(err, m.WriteTextfile(appConfig.MetricsPath))
		}()

		res, size, err := orchestrator.RunFetch(context.Background(), appConfig.Fetch, nil, logger, m)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nSaved %s with %.1f MB of data and %d rows.\n",
			appConfig.Fetch.OutputPath, float64(size)/1_048_576, res.Table.Len())
		return nil
	},
}

func init() {
	addFetchFlags(fetchCmd, &appConfig.Fetch)
}

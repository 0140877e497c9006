package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brensch/qcewpanel/internal/orchestrator"
)

// runCmd represents the combined fetch and clean command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the fetch stage and then the clean stage",
	Long: `Performs the complete pipeline:
1. Fetches every year in range and writes the consolidated CSV.
2. Cleans the --input files (which should include the fetch output) and writes the cleaned CSV.
The clean stage does not start if the fetch stage fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := getLogger()

		summary, err := orchestrator.RunCombinedWorkflow(context.Background(), appConfig, nil, logger, newMetrics())
		if err != nil {
			logger.Error("Combined workflow completed with errors", "error", err)
			return fmt.Errorf("run workflow failed: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), summary.Clean.Report.Render())
		return nil
	},
}

func init() {
	addFetchFlags(runCmd, &appConfig.Fetch)
	addCleanFlags(runCmd, &appConfig.Clean)
}

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brensch/qcewpanel/internal/saver"
)

var saveOutput string

// saveCmd represents the save command
var saveCmd = &cobra.Command{
	Use:   "save <csv>",
	Short: "Convert a pipeline CSV to Parquet using DuckDB",
	Long:  `Copies the CSV into a Parquet file next to it (or at --output), keeping every column as text.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := getLogger()
		csvPath := args[0]
		out := saveOutput
		if out == "" {
			out = strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".parquet"
		}
		if err := saver.SaveParquet(context.Background(), csvPath, out, logger); err != nil {
			return fmt.Errorf("save failed: %w", err)
		}
		return nil
	},
}

func init() {
	saveCmd.Flags().StringVarP(&saveOutput, "output", "o", "", "Parquet output path (default: CSV path with .parquet extension)")
}

// Package saver converts pipeline CSVs to Parquet through DuckDB.
package saver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/brensch/qcewpanel/internal/inspector"
)

// SaveParquet copies the CSV at csvPath to a Parquet file at parquetPath.
// Columns are stored as text; analysis tools cast as needed.
func SaveParquet(ctx context.Context, csvPath, parquetPath string, logger *slog.Logger) error {
	if _, err := os.Stat(csvPath); err != nil {
		return fmt.Errorf("stat %s: %w", csvPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(parquetPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", parquetPath, err)
	}

	db, err := inspector.Open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	duckdbPath := strings.ReplaceAll(parquetPath, `\`, `/`)
	copySQL := fmt.Sprintf(`COPY (SELECT * FROM %s) TO '%s' (FORMAT PARQUET);`,
		inspector.CSVSource(csvPath),
		strings.ReplaceAll(duckdbPath, "'", "''"),
	)
	logger.Debug("Executing COPY TO command.", slog.String("csv", csvPath), slog.String("output_path", parquetPath))
	if _, err := db.ExecContext(ctx, copySQL); err != nil {
		return fmt.Errorf("save %s to parquet: %w", csvPath, err)
	}
	logger.Info("Saved Parquet file.", slog.String("csv", csvPath), slog.String("output_path", parquetPath))
	return nil
}

// Package inspector summarizes a pipeline CSV with an in-memory DuckDB.
package inspector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/brensch/qcewpanel/internal/qcew"
)

// YearCount is the number of rows for one year value.
type YearCount struct {
	Year string
	Rows int64
}

// Summary describes a consolidated or cleaned CSV.
type Summary struct {
	Path        string
	Rows        int64
	Counties    int64
	MinYear     sql.NullInt64
	MaxYear     sql.NullInt64
	HostRows    sql.NullInt64 // only valid when the file has a host_year column
	RowsPerYear []YearCount
}

// Open returns an in-memory DuckDB handle.
func Open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}
	return db, nil
}

// CSVSource returns a read_csv expression for path with every column read as
// text so FIPS codes keep their leading zeros.
func CSVSource(path string) string {
	duckdbPath := strings.ReplaceAll(path, `\`, `/`)
	return fmt.Sprintf("read_csv('%s', header=true, all_varchar=true)", strings.ReplaceAll(duckdbPath, "'", "''"))
}

// InspectCSV computes a Summary for the CSV at path.
func InspectCSV(ctx context.Context, path string, logger *slog.Logger) (*Summary, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	header, err := readHeader(path)
	if err != nil {
		return nil, err
	}
	if _, err := qcew.Locate(header, []string{qcew.ColAreaFIPS, qcew.ColYear}); err != nil {
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	}
	hasHost := false
	for _, h := range header {
		if h == qcew.ColHostYear {
			hasHost = true
		}
	}

	db, err := Open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	src := CSVSource(path)
	s := &Summary{Path: path}
	hostExpr := "NULL"
	if hasHost {
		hostExpr = "COUNT(host_year)"
	}
	summarySQL := fmt.Sprintf(`
		SELECT COUNT(*), COUNT(DISTINCT area_fips),
		       MIN(TRY_CAST(year AS INTEGER)), MAX(TRY_CAST(year AS INTEGER)), %s
		FROM %s;`, hostExpr, src)
	logger.Debug("Running summary query.", slog.String("path", path))
	if err := db.QueryRowContext(ctx, summarySQL).Scan(&s.Rows, &s.Counties, &s.MinYear, &s.MaxYear, &s.HostRows); err != nil {
		return nil, fmt.Errorf("summary query for %s: %w", path, err)
	}

	yearSQL := fmt.Sprintf(`SELECT year, COUNT(*) FROM %s GROUP BY year ORDER BY year;`, src)
	rows, err := db.QueryContext(ctx, yearSQL)
	if err != nil {
		return nil, fmt.Errorf("year query for %s: %w", path, err)
	}
	defer rows.Close()
	var scanErrs error
	for rows.Next() {
		var yc YearCount
		var year sql.NullString
		if err := rows.Scan(&year, &yc.Rows); err != nil {
			scanErrs = errors.Join(scanErrs, fmt.Errorf("scan year row: %w", err))
			continue
		}
		yc.Year = year.String
		s.RowsPerYear = append(s.RowsPerYear, yc)
	}
	if err := rows.Err(); err != nil {
		scanErrs = errors.Join(scanErrs, fmt.Errorf("iterate year rows: %w", err))
	}
	return s, scanErrs
}

func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	t, err := qcew.ReadHeader(f)
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	return t, nil
}

// Print writes a summary to the logger in the same layout for every file.
func (s *Summary) Print(logger *slog.Logger) {
	attrs := []any{
		slog.String("path", s.Path),
		slog.Int64("rows", s.Rows),
		slog.Int64("counties", s.Counties),
	}
	if s.MinYear.Valid {
		attrs = append(attrs, slog.Int64("min_year", s.MinYear.Int64), slog.Int64("max_year", s.MaxYear.Int64))
	}
	if s.HostRows.Valid {
		attrs = append(attrs, slog.Int64("host_rows", s.HostRows.Int64))
	}
	logger.Info("File summary.", attrs...)
	for _, yc := range s.RowsPerYear {
		logger.Info("Rows per year.", slog.String("year", yc.Year), slog.Int64("rows", yc.Rows))
	}
}

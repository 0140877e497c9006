package saver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/qcewpanel/internal/inspector"
)

func TestSaveParquet(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "clean.csv")
	body := "area_fips,area_title,year\n01001,Autauga County,2001\n06037,Los Angeles County,2002\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(body), 0o644))

	out := filepath.Join(dir, "nested", "clean.parquet")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, SaveParquet(context.Background(), csvPath, out, logger))

	db, err := inspector.Open(context.Background())
	require.NoError(t, err)
	defer db.Close()

	var n int64
	var fips string
	q := fmt.Sprintf("SELECT COUNT(*), MIN(area_fips) FROM read_parquet('%s');", out)
	require.NoError(t, db.QueryRow(q).Scan(&n, &fips))
	assert.EqualValues(t, 2, n)
	assert.Equal(t, "01001", fips)
}

func TestSaveParquetMissingInput(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := SaveParquet(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), filepath.Join(t.TempDir(), "x.parquet"), logger)
	require.Error(t, err)
}

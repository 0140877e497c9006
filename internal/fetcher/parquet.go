package fetcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/brensch/qcewpanel/internal/qcew"
)

// WriteParquet writes t to path with every column stored as optional UTF8 text.
// Empty values are written as nulls. The file appears only once complete.
func WriteParquet(path string, t *qcew.Table) error {
	tmp, err := writeParquetTemp(path, t)
	if err != nil {
		return err
	}
	return commitTemp(tmp, path)
}

// writeParquetTemp writes t next to path and returns the temporary file name.
// Nothing is left behind on error.
func writeParquetTemp(path string, t *qcew.Table) (tmp string, err error) {
	meta := make([]string, len(t.Header))
	for i, h := range t.Header {
		meta[i] = fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", h)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	tmp = path + ".tmp"
	fw, err := local.NewLocalFileWriter(tmp)
	if err != nil {
		return "", fmt.Errorf("create parquet %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	pw, err := writer.NewCSVWriter(meta, fw, 4)
	if err != nil {
		return "", errors.Join(fmt.Errorf("init writer: %w", err), fw.Close())
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, row := range t.Rows {
		rec := make([]*string, len(t.Header))
		for j := range rec {
			if j < len(row) && row[j] != "" {
				v := row[j]
				rec[j] = &v
			}
		}
		if err := pw.WriteString(rec); err != nil {
			return "", errors.Join(fmt.Errorf("write row %d: %w", i+1, err), pw.WriteStop(), fw.Close())
		}
	}
	if err := pw.WriteStop(); err != nil {
		return "", errors.Join(fmt.Errorf("stop writer: %w", err), fw.Close())
	}
	if err := fw.Close(); err != nil {
		return "", fmt.Errorf("close parquet %s: %w", tmp, err)
	}
	return tmp, nil
}

func commitTemp(tmp, path string) error {
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s to %s: %w", tmp, path, err)
	}
	return nil
}

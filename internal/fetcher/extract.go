package fetcher

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/brensch/qcewpanel/internal/qcew"
)

// requiredColumns are the output fields followed by the two classification codes.
var requiredColumns = append(append([]string(nil), qcew.Fields...), qcew.ColOwnCode, qcew.ColAggLvlCode)

func filterEntry(entry *zip.File, dst *qcew.Table) (int, error) {
	rc, err := entry.Open()
	if err != nil {
		return 0, fmt.Errorf("open entry: %w", err)
	}
	n, err := FilterCSV(rc, dst)
	if closeErr := rc.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("close entry: %w", closeErr))
	}
	return n, err
}

// FilterCSV reads a QCEW area CSV and appends the all-ownership county total
// rows to dst, projected to qcew.Fields. Values are kept as text. It returns
// the number of rows appended. A missing required column is an error.
func FilterCSV(r io.Reader, dst *qcew.Table) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, errors.New("empty csv: no header row")
		}
		return 0, fmt.Errorf("read header: %w", err)
	}
	pos, err := qcew.Locate(header, requiredColumns)
	if err != nil {
		return 0, err
	}
	outPos := pos[:len(qcew.Fields)]
	ownPos, aggPos := pos[len(qcew.Fields)], pos[len(qcew.Fields)+1]

	kept := 0
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return kept, fmt.Errorf("line %d: %w", line, err)
		}
		if !isCountyTotal(field(rec, ownPos), field(rec, aggPos)) {
			continue
		}
		row := make([]string, len(outPos))
		for i, p := range outPos {
			row[i] = field(rec, p)
		}
		dst.Rows = append(dst.Rows, row)
		kept++
	}
	return kept, nil
}

// isCountyTotal is the row predicate: all ownerships, county total all industries.
func isCountyTotal(ownCode, aggLevel string) bool {
	return ownCode == qcew.OwnCodeAll && aggLevel == qcew.AggLevelCountyTotal
}

// field returns rec[i], or "" for a short row.
func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

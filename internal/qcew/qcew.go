package qcew

import (
	"errors"
	"fmt"
	"strings"
)

// Classification sentinels from the QCEW SIC file layout.
const (
	// OwnCodeAll marks the "total, all ownerships" rows.
	OwnCodeAll = "0"
	// AggLevelCountyTotal marks the "county, total all industries" rows.
	AggLevelCountyTotal = "26"
)

// Column names used across both stages.
const (
	ColAreaFIPS        = "area_fips"
	ColAreaTitle       = "area_title"
	ColYear            = "year"
	ColQtr             = "qtr"
	ColMonth1Emplvl    = "month1_emplvl"
	ColMonth2Emplvl    = "month2_emplvl"
	ColMonth3Emplvl    = "month3_emplvl"
	ColTotalQtrlyWages = "total_qtrly_wages"
	ColOwnCode         = "own_code"
	ColAggLvlCode      = "agglvl_code"
	ColHostYear        = "host_year"
)

// Fields is the consolidated record layout, in output order.
var Fields = []string{
	ColAreaFIPS,
	ColAreaTitle,
	ColYear,
	ColQtr,
	ColMonth1Emplvl,
	ColMonth2Emplvl,
	ColMonth3Emplvl,
	ColTotalQtrlyWages,
}

// ValueFields are the columns that must be numeric and non-zero after cleaning.
var ValueFields = []string{
	ColMonth1Emplvl,
	ColMonth2Emplvl,
	ColMonth3Emplvl,
	ColTotalQtrlyWages,
}

// ErrMissingColumn is returned when a required column is absent from a header.
var ErrMissingColumn = errors.New("missing required column")

// Table is an in-memory, text-valued table.
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable returns an empty table with a copy of header.
func NewTable(header []string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index maps each header name to its position. The first occurrence wins.
func Index(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := NormalizeColumn(h)
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	return idx
}

// NormalizeColumn strips a leading byte order mark and surrounding spaces.
func NormalizeColumn(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}

// Locate returns the positions of cols in header, failing on the first one absent.
func Locate(header []string, cols []string) ([]int, error) {
	idx := Index(header)
	pos := make([]int, len(cols))
	for i, c := range cols {
		p, ok := idx[c]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
		pos[i] = p
	}
	return pos, nil
}

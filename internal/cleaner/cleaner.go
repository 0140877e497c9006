// Package cleaner unions consolidated QCEW tables, tags host counties and
// applies the row filters used to build the analysis panel.
//
// Stages run in a fixed order, each on the output of the previous one:
//
//	title  -> area_title contains "county" or "parish"
//	values -> every value column parses as a non-zero number
//	year   -> year >= 2000 (optional)
//	subset -> host county or control county (optional)
package cleaner

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/brensch/qcewpanel/internal/qcew"
)

// Stage names, in execution order.
const (
	StageTitle  = "title"
	StageValues = "values"
	StageYear   = "year"
	StageSubset = "subset"
)

// MinYear is the floor applied when Options.DropPre2000 is set.
const MinYear = 2000

// ErrSchemaMismatch is returned when input tables do not share a column set.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Options toggles the optional stages.
type Options struct {
	// DropPre2000 drops rows with year < 2000. Rows whose year is not an integer are dropped too.
	DropPre2000 bool
	// SubsetControls keeps only rows for host counties and control counties.
	SubsetControls bool
}

// Lookup is the fixed county configuration. It is read, never modified.
type Lookup struct {
	HostYears map[string]int
	Controls  map[string]struct{}
}

// NewLookup copies hosts and controls into a Lookup.
func NewLookup(hosts map[string]int, controls []string) Lookup {
	l := Lookup{
		HostYears: make(map[string]int, len(hosts)),
		Controls:  make(map[string]struct{}, len(controls)),
	}
	for k, v := range hosts {
		l.HostYears[k] = v
	}
	for _, c := range controls {
		l.Controls[c] = struct{}{}
	}
	return l
}

// HostYear returns the event year for fips, if it is a host county.
func (l Lookup) HostYear(fips string) (int, bool) {
	y, ok := l.HostYears[fips]
	return y, ok
}

// IsControl reports whether fips is on the control list.
func (l Lookup) IsControl(fips string) bool {
	_, ok := l.Controls[fips]
	return ok
}

// Result is the cleaned table and the report describing how it was built.
type Result struct {
	Table  *qcew.Table
	Report *Report
}

// row is a working record carried between stages.
type row struct {
	values   []string
	hostYear int
	isHost   bool
	numbers  []float64
	texts    []string // canonical form of numbers
}

// Clean unions tables and runs every stage. Inputs are not modified.
func Clean(tables []*qcew.Table, lookup Lookup, opts Options) (*Result, error) {
	header, rows, err := union(tables)
	if err != nil {
		return nil, err
	}
	pos, err := qcew.Locate(header, qcew.Fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}
	fipsCol, titleCol, yearCol := pos[0], pos[1], pos[2]
	valueCols, err := qcew.Locate(header, qcew.ValueFields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}

	report := &Report{Total: len(rows)}

	// host_year depends on area_fips only.
	for i := range rows {
		rows[i].hostYear, rows[i].isHost = lookup.HostYear(rows[i].values[fipsCol])
	}

	rows = report.run(StageTitle, true, rows, func(r *row) bool {
		return titleMatches(r.values[titleCol])
	})

	rows = report.run(StageValues, true, rows, func(r *row) bool {
		nums, texts, ok := coerceNonZero(r.values, valueCols)
		r.numbers, r.texts = nums, texts
		return ok
	})

	rows = report.run(StageYear, opts.DropPre2000, rows, func(r *row) bool {
		y, err := strconv.Atoi(strings.TrimSpace(r.values[yearCol]))
		return err == nil && y >= MinYear
	})

	rows = report.run(StageSubset, opts.SubsetControls, rows, func(r *row) bool {
		return r.isHost || lookup.IsControl(r.values[fipsCol])
	})

	report.Remaining = len(rows)
	report.HostCounts = hostCounts(rows, fipsCol, titleCol)
	report.ValueStats = valueStats(rows)

	out := qcew.NewTable(append(append([]string(nil), header...), qcew.ColHostYear))
	out.Rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		rec := make([]string, 0, len(header)+1)
		rec = append(rec, r.values...)
		for j, c := range valueCols {
			rec[c] = r.texts[j]
		}
		if r.isHost {
			rec = append(rec, strconv.Itoa(r.hostYear))
		} else {
			rec = append(rec, "")
		}
		out.Rows = append(out.Rows, rec)
	}
	return &Result{Table: out, Report: report}, nil
}

// union concatenates tables in order. All tables must share the same column
// set; later tables are aligned to the first table's column order.
func union(tables []*qcew.Table) ([]string, []row, error) {
	if len(tables) == 0 {
		return nil, nil, errors.New("no input tables")
	}
	header := tables[0].Header
	total := 0
	for _, t := range tables {
		total += t.Len()
	}
	rows := make([]row, 0, total)
	for ti, t := range tables {
		order, err := align(header, t.Header)
		if err != nil {
			return nil, nil, fmt.Errorf("input %d: %w", ti+1, err)
		}
		for ri, rec := range t.Rows {
			if len(rec) != len(t.Header) {
				return nil, nil, fmt.Errorf("input %d row %d: %w: %d fields, header has %d", ti+1, ri+1, ErrSchemaMismatch, len(rec), len(t.Header))
			}
			vals := make([]string, len(header))
			for i, src := range order {
				vals[i] = rec[src]
			}
			rows = append(rows, row{values: vals})
		}
	}
	return header, rows, nil
}

// align returns, for each column of want, its index in got.
func align(want, got []string) ([]int, error) {
	if len(want) != len(got) {
		return nil, fmt.Errorf("%w: %d columns %v vs %d columns %v", ErrSchemaMismatch, len(want), want, len(got), got)
	}
	idx := qcew.Index(got)
	if len(idx) != len(got) {
		return nil, fmt.Errorf("%w: duplicate column names in %v", ErrSchemaMismatch, got)
	}
	order := make([]int, len(want))
	for i, c := range want {
		p, ok := idx[c]
		if !ok {
			return nil, fmt.Errorf("%w: column %q absent from %v", ErrSchemaMismatch, c, got)
		}
		order[i] = p
	}
	return order, nil
}

// titleMatches is the geography rule. An empty title never matches.
func titleMatches(title string) bool {
	t := strings.ToLower(title)
	return strings.Contains(t, "county") || strings.Contains(t, "parish")
}

// coerceNonZero parses the value columns. Any value that does not parse as a
// finite number fails the row exactly like a zero does (coercionFailureDrops).
func coerceNonZero(values []string, cols []int) ([]float64, []string, bool) {
	nums := make([]float64, len(cols))
	texts := make([]string, len(cols))
	for i, c := range cols {
		v, text, ok := coerceNumber(values[c])
		if !ok || v == 0 {
			return nil, nil, false
		}
		nums[i], texts[i] = v, text
	}
	return nums, texts, true
}

// coerceNumber returns the value and its canonical text. Integers that fit in
// int64 are kept exact; anything else goes through float64.
func coerceNumber(s string) (float64, string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "", false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(n), strconv.FormatInt(n, 10), true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, "", false
	}
	return v, formatNumber(v), true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func hostCounts(rows []row, fipsCol, titleCol int) []HostCount {
	type key struct{ fips, title string }
	counts := make(map[key]int)
	for _, r := range rows {
		if !r.isHost {
			continue
		}
		counts[key{r.values[fipsCol], r.values[titleCol]}]++
	}
	out := make([]HostCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, HostCount{AreaFIPS: k.fips, AreaTitle: k.title, Rows: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rows != out[j].Rows {
			return out[i].Rows > out[j].Rows
		}
		if out[i].AreaFIPS != out[j].AreaFIPS {
			return out[i].AreaFIPS < out[j].AreaFIPS
		}
		return out[i].AreaTitle < out[j].AreaTitle
	})
	return out
}

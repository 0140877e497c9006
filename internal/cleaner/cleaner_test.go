package cleaner

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/qcewpanel/internal/config"
	"github.com/brensch/qcewpanel/internal/metrics"
	"github.com/brensch/qcewpanel/internal/qcew"
)

func rec(fips, title, year, qtr, m1, m2, m3, wages string) []string {
	return []string{fips, title, year, qtr, m1, m2, m3, wages}
}

func tableOf(rows ...[]string) *qcew.Table {
	t := qcew.NewTable(qcew.Fields)
	t.Rows = rows
	return t
}

func testLookup() Lookup {
	return NewLookup(map[string]int{"12086": 2020, "22071": 2013}, []string{"24510"})
}

var defaults = Options{DropPre2000: true}

func TestHostCountyBefore2000IsDropped(t *testing.T) {
	res, err := Clean([]*qcew.Table{tableOf(
		rec("12086", "Miami-Dade County", "1999", "1", "100", "100", "100", "5000"),
		rec("01001", "Autauga County", "19xx", "1", "100", "100", "100", "5000"),
		rec("01003", "Baldwin County", "", "1", "100", "100", "100", "5000"),
		rec("01005", "Barbour County", " 2005 ", "1", "100", "100", "100", "5000"),
	)}, testLookup(), defaults)
	require.NoError(t, err)
	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, "01005", res.Table.Rows[0][0])

	st, ok := res.Report.Stage(StageYear)
	require.True(t, ok)
	assert.Equal(t, 3, st.Removed)
}

func TestNonHostCountyKept(t *testing.T) {
	res, err := Clean([]*qcew.Table{tableOf(
		rec("34029", "Ocean County", "2005", "2", "10", "11", "12", "3400"),
	)}, testLookup(), defaults)
	require.NoError(t, err)
	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, append(append([]string(nil), qcew.Fields...), qcew.ColHostYear), res.Table.Header)
	assert.Equal(t, []string{"34029", "Ocean County", "2005", "2", "10", "11", "12", "3400", ""}, res.Table.Rows[0])
}

func TestZeroAndNonNumericValuesDropped(t *testing.T) {
	res, err := Clean([]*qcew.Table{tableOf(
		rec("01001", "Autauga County", "2005", "1", "10", "10", "10", "0"),
		rec("01003", "Baldwin County", "2005", "1", "10", "x", "10", "100"),
		rec("01005", "Barbour County", "2005", "1", "10", "", "10", "100"),
		rec("01007", "Bibb County", "2005", "1", "10.0", "1e2", "-3", "100.50"),
	)}, testLookup(), defaults)
	require.NoError(t, err)
	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, []string{"01007", "Bibb County", "2005", "1", "10", "100", "-3", "100.5", ""}, res.Table.Rows[0])

	st, _ := res.Report.Stage(StageValues)
	assert.Equal(t, 3, st.Removed)
}

func TestLargeIntegersKeptExact(t *testing.T) {
	res, err := Clean([]*qcew.Table{tableOf(
		rec("06037", "Los Angeles County", "2020", "1", "4500000", "4500001", "+4500002", "12345678901234567"),
	)}, testLookup(), defaults)
	require.NoError(t, err)
	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, []string{"4500000", "4500001", "4500002", "12345678901234567"}, res.Table.Rows[0][4:8])
}

func TestValueStatsSingleRow(t *testing.T) {
	res, err := Clean([]*qcew.Table{tableOf(
		rec("01001", "A County", "2001", "1", "7", "1", "1", "10"),
	)}, testLookup(), defaults)
	require.NoError(t, err)
	require.Len(t, res.Report.ValueStats, len(qcew.ValueFields))
	assert.Equal(t, 7.0, res.Report.ValueStats[0].Mean)
	assert.Equal(t, 0.0, res.Report.ValueStats[0].StdDev)
	assert.NotContains(t, res.Report.Render(), "NaN")
}

func TestTitleFilter(t *testing.T) {
	res, err := Clean([]*qcew.Table{tableOf(
		rec("22071", "Orleans PARISH, Louisiana", "2010", "1", "1", "1", "1", "1"),
		rec("01000", "Alabama -- Statewide", "2010", "1", "1", "1", "1", "1"),
		rec("01999", "", "2010", "1", "1", "1", "1", "1"),
		rec("US000", "U.S. TOTAL", "2010", "1", "1", "1", "1", "1"),
	)}, testLookup(), defaults)
	require.NoError(t, err)
	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, "2013", res.Table.Rows[0][8])
}

func TestStagesRunInOrderAndShrink(t *testing.T) {
	res, err := Clean([]*qcew.Table{tableOf(
		rec("12086", "Miami-Dade County", "2001", "1", "1", "1", "1", "1"),
		rec("12086", "Miami-Dade County", "1998", "1", "1", "1", "1", "1"),
		rec("24510", "Baltimore City", "2001", "1", "1", "1", "1", "1"),
		rec("24033", "Prince George's County", "2001", "1", "1", "1", "1", "1"),
		rec("24033", "Prince George's County", "2001", "2", "0", "1", "1", "1"),
		rec("06037", "Los Angeles County", "2001", "1", "1", "1", "1", "1"),
	)}, NewLookup(map[string]int{"12086": 2020}, []string{"24033"}), Options{DropPre2000: true, SubsetControls: true})
	require.NoError(t, err)

	names := make([]string, 0, len(res.Report.Stages))
	prev := res.Report.Total
	for _, s := range res.Report.Stages {
		names = append(names, s.Name)
		assert.Equal(t, prev, s.Before)
		assert.LessOrEqual(t, s.After(), s.Before)
		prev = s.After()
	}
	assert.Equal(t, []string{StageTitle, StageValues, StageYear, StageSubset}, names)
	assert.Equal(t, prev, res.Report.Remaining)
	assert.Equal(t, 6, res.Report.Total)
	assert.Equal(t, 2, res.Table.Len())
	assert.Equal(t, "12086", res.Table.Rows[0][0])
	assert.Equal(t, "24033", res.Table.Rows[1][0])
}

func TestDisabledStagesRemoveNothing(t *testing.T) {
	res, err := Clean([]*qcew.Table{tableOf(
		rec("01001", "Autauga County", "1975", "1", "1", "1", "1", "1"),
	)}, testLookup(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Table.Len())
	for _, name := range []string{StageYear, StageSubset} {
		st, ok := res.Report.Stage(name)
		require.True(t, ok)
		assert.False(t, st.Enabled)
		assert.Equal(t, 0, st.Removed)
	}
}

func TestHostYearDependsOnFIPSOnly(t *testing.T) {
	var rows [][]string
	for _, y := range []string{"2000", "2010", "2020"} {
		for _, q := range []string{"1", "4"} {
			rows = append(rows, rec("22071", "Orleans Parish", y, q, "1", "2", "3", "4"))
		}
	}
	res, err := Clean([]*qcew.Table{tableOf(rows...)}, testLookup(), defaults)
	require.NoError(t, err)
	require.Equal(t, 6, res.Table.Len())
	for _, r := range res.Table.Rows {
		assert.Equal(t, "2013", r[len(r)-1])
	}
	require.Len(t, res.Report.HostCounts, 1)
	assert.Equal(t, HostCount{AreaFIPS: "22071", AreaTitle: "Orleans Parish", Rows: 6}, res.Report.HostCounts[0])
}

func TestHostCountsSorted(t *testing.T) {
	res, err := Clean([]*qcew.Table{tableOf(
		rec("12086", "Miami-Dade County", "2001", "1", "1", "1", "1", "1"),
		rec("22071", "Orleans Parish", "2001", "1", "1", "1", "1", "1"),
		rec("22071", "Orleans Parish", "2001", "2", "1", "1", "1", "1"),
		rec("01001", "Autauga County", "2001", "1", "1", "1", "1", "1"),
	)}, testLookup(), defaults)
	require.NoError(t, err)
	require.Len(t, res.Report.HostCounts, 2)
	assert.Equal(t, "22071", res.Report.HostCounts[0].AreaFIPS)
	assert.Equal(t, 2, res.Report.HostCounts[0].Rows)
	assert.Equal(t, "12086", res.Report.HostCounts[1].AreaFIPS)
}

func TestUnionAlignsColumns(t *testing.T) {
	first := tableOf(rec("01001", "Autauga County", "2001", "1", "1", "2", "3", "4"))
	second := &qcew.Table{
		Header: []string{"year", "area_fips", "area_title", "qtr", "month1_emplvl", "month2_emplvl", "month3_emplvl", "total_qtrly_wages"},
		Rows:   [][]string{{"2002", "01003", "Baldwin County", "2", "5", "6", "7", "8"}},
	}
	res, err := Clean([]*qcew.Table{first, second}, testLookup(), defaults)
	require.NoError(t, err)
	require.Equal(t, 2, res.Table.Len())
	assert.Equal(t, []string{"01003", "Baldwin County", "2002", "2", "5", "6", "7", "8", ""}, res.Table.Rows[1])
}

func TestSchemaMismatch(t *testing.T) {
	other := &qcew.Table{Header: []string{"area_fips", "area_title"}, Rows: [][]string{{"1", "x"}}}
	_, err := Clean([]*qcew.Table{tableOf(), other}, testLookup(), defaults)
	require.ErrorIs(t, err, ErrSchemaMismatch)

	missing := &qcew.Table{Header: []string{"area_fips", "area_title", "year"}}
	_, err = Clean([]*qcew.Table{missing}, testLookup(), defaults)
	require.ErrorIs(t, err, ErrSchemaMismatch)
	require.ErrorIs(t, err, qcew.ErrMissingColumn)

	_, err = Clean(nil, testLookup(), defaults)
	require.Error(t, err)
}

func TestValueStats(t *testing.T) {
	res, err := Clean([]*qcew.Table{tableOf(
		rec("01001", "A County", "2001", "1", "2", "1", "1", "10"),
		rec("01003", "B County", "2001", "1", "4", "1", "1", "30"),
	)}, testLookup(), defaults)
	require.NoError(t, err)
	require.Len(t, res.Report.ValueStats, len(qcew.ValueFields))
	assert.Equal(t, qcew.ColMonth1Emplvl, res.Report.ValueStats[0].Column)
	assert.InDelta(t, 3.0, res.Report.ValueStats[0].Mean, 1e-9)
	assert.InDelta(t, 20.0, res.Report.ValueStats[3].Mean, 1e-9)
	assert.Greater(t, res.Report.ValueStats[3].StdDev, 0.0)
}

func TestRenderMentionsStagesAndHosts(t *testing.T) {
	res, err := Clean([]*qcew.Table{tableOf(
		rec("22071", "Orleans Parish", "2001", "1", "1", "1", "1", "1"),
	)}, testLookup(), defaults)
	require.NoError(t, err)
	out := res.Report.Render()
	assert.Contains(t, out, StageTitle)
	assert.Contains(t, out, "Orleans Parish")
	assert.Contains(t, out, "1 rows remain out of 1")
	assert.NotContains(t, out, StageSubset)
}

func writeInput(t *testing.T, dir, name string, tbl *qcew.Table) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, qcew.WriteCSV(&buf, tbl))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func runConfig(t *testing.T) config.CleanConfig {
	dir := t.TempDir()
	early := writeInput(t, dir, "75_89.csv", tableOf(
		rec("12086", "Miami-Dade County", "1985", "1", "1", "1", "1", "1"),
	))
	late := writeInput(t, dir, "90_25.csv", tableOf(
		rec("12086", "Miami-Dade County", "2021", "1", "1", "1", "1", "1"),
		rec("34029", "Ocean County", "2005", "2", "10", "11", "12", "3400"),
		rec("34029", "Ocean County", "2005", "3", "10", "11", "12", "0"),
	))
	cfg := config.Default().Clean
	cfg.InputPaths = []string{early, late}
	cfg.OutputPath = filepath.Join(dir, "clean.csv")
	return cfg
}

func TestRunWritesOutputIdempotently(t *testing.T) {
	cfg := runConfig(t)
	before, err := os.ReadFile(cfg.InputPaths[1])
	require.NoError(t, err)

	m := metrics.New()
	res, err := Run(cfg, discard(), m)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Table.Len())

	first, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t,
		"area_fips,area_title,year,qtr,month1_emplvl,month2_emplvl,month3_emplvl,total_qtrly_wages,host_year\n"+
			"12086,Miami-Dade County,2021,1,1,1,1,1,2020\n"+
			"34029,Ocean County,2005,2,10,11,12,3400,\n",
		string(first))

	_, err = Run(cfg, discard(), nil)
	require.NoError(t, err)
	second, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	after, err := os.ReadFile(cfg.InputPaths[1])
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRunRefusesToOverwriteInput(t *testing.T) {
	cfg := runConfig(t)
	cfg.OutputPath = cfg.InputPaths[0]
	_, err := Run(cfg, discard(), nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "would overwrite input"))
}

func TestRunMissingInput(t *testing.T) {
	cfg := runConfig(t)
	cfg.InputPaths = append(cfg.InputPaths, filepath.Join(t.TempDir(), "missing.csv"))
	_, err := Run(cfg, discard(), nil)
	require.Error(t, err)
	_, statErr := os.Stat(cfg.OutputPath)
	assert.True(t, os.IsNotExist(statErr))
}

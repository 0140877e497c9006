package cleaner

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gonum.org/v1/gonum/stat"

	"github.com/brensch/qcewpanel/internal/qcew"
)

// Stage records what one filter did. Removed is relative to Before, the row
// count entering the stage, not to the input total.
type Stage struct {
	Name    string
	Enabled bool
	Before  int
	Removed int
}

// After is the row count leaving the stage.
func (s Stage) After() int { return s.Before - s.Removed }

// HostCount is the number of surviving rows for one host county.
type HostCount struct {
	AreaFIPS  string
	AreaTitle string
	Rows      int
}

// ValueStat summarizes one value column over the surviving rows. StdDev is the
// sample deviation, and 0 when fewer than two rows survive.
type ValueStat struct {
	Column string
	Mean   float64
	StdDev float64
}

// Report describes a Clean run.
type Report struct {
	Total      int
	Stages     []Stage
	Remaining  int
	HostCounts []HostCount
	ValueStats []ValueStat
}

// Stage returns the named stage, if it ran.
func (r *Report) Stage(name string) (Stage, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// run applies keep to rows when enabled and records the stage either way.
func (r *Report) run(name string, enabled bool, rows []row, keep func(*row) bool) []row {
	st := Stage{Name: name, Enabled: enabled, Before: len(rows)}
	if enabled {
		kept := rows[:0]
		for i := range rows {
			if keep(&rows[i]) {
				kept = append(kept, rows[i])
			}
		}
		st.Removed = len(rows) - len(kept)
		rows = kept
	}
	r.Stages = append(r.Stages, st)
	return rows
}

func valueStats(rows []row) []ValueStat {
	out := make([]ValueStat, len(qcew.ValueFields))
	col := make([]float64, len(rows))
	for j, name := range qcew.ValueFields {
		for i, r := range rows {
			col[i] = r.numbers[j]
		}
		out[j] = ValueStat{Column: name}
		switch {
		case len(rows) == 1:
			out[j].Mean = col[0]
		case len(rows) > 1:
			out[j].Mean, out[j].StdDev = stat.MeanStdDev(col, nil)
		}
	}
	return out
}

var stageMessages = map[string]string{
	StageTitle:  "rows without 'county' or 'parish' in title",
	StageValues: "rows with zero or non-numeric value columns",
	StageYear:   fmt.Sprintf("rows before year %d", MinYear),
	StageSubset: "rows not host or in control list",
}

// Log writes one line per enabled stage and the remaining count.
func (r *Report) Log(logger *slog.Logger) {
	for _, s := range r.Stages {
		if !s.Enabled {
			continue
		}
		logger.Info("Stage removed rows.",
			slog.String("stage", s.Name),
			slog.Int("removed", s.Removed),
			slog.Int("before", s.Before),
			slog.String("reason", stageMessages[s.Name]))
	}
	logger.Info("Cleaning complete.", slog.Int("remaining", r.Remaining), slog.Int("total", r.Total))
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// Render formats the report for the console.
func (r *Report) Render() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Cleaning stages"))
	sb.WriteString("\n")
	stages := newTable("stage", "before", "removed", "after")
	for _, s := range r.Stages {
		if !s.Enabled {
			continue
		}
		stages.Row(s.Name, strconv.Itoa(s.Before), strconv.Itoa(s.Removed), strconv.Itoa(s.After()))
	}
	sb.WriteString(stages.String())
	sb.WriteString(fmt.Sprintf("\n%d rows remain out of %d\n\n", r.Remaining, r.Total))

	sb.WriteString(titleStyle.Render("Host county rows"))
	sb.WriteString("\n")
	hosts := newTable("area_fips", "area_title", "n_rows")
	for _, h := range r.HostCounts {
		hosts.Row(h.AreaFIPS, h.AreaTitle, strconv.Itoa(h.Rows))
	}
	sb.WriteString(hosts.String())
	sb.WriteString("\n\n")

	sb.WriteString(titleStyle.Render("Value columns"))
	sb.WriteString("\n")
	values := newTable("column", "mean", "std_dev")
	for _, v := range r.ValueStats {
		values.Row(v.Column, strconv.FormatFloat(v.Mean, 'f', 2, 64), strconv.FormatFloat(v.StdDev, 'f', 2, 64))
	}
	sb.WriteString(values.String())
	sb.WriteString("\n")
	return sb.String()
}

package cleaner

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/brensch/qcewpanel/internal/config"
	"github.com/brensch/qcewpanel/internal/metrics"
	"github.com/brensch/qcewpanel/internal/qcew"
	"github.com/brensch/qcewpanel/internal/util"
)

// Run loads the configured inputs, cleans them and writes the output file.
// The output path may not be one of the inputs.
func Run(cfg config.CleanConfig, logger *slog.Logger, m *metrics.Metrics) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid clean config: %w", err)
	}
	for _, in := range cfg.InputPaths {
		if util.SamePath(in, cfg.OutputPath) {
			return nil, fmt.Errorf("output %s would overwrite input %s", cfg.OutputPath, in)
		}
	}

	tables := make([]*qcew.Table, 0, len(cfg.InputPaths))
	for _, path := range cfg.InputPaths {
		t, err := qcew.LoadCSV(path)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded input.", slog.String("path", path), slog.Int("rows", t.Len()))
		tables = append(tables, t)
	}

	opts := Options{DropPre2000: cfg.DropPre2000, SubsetControls: cfg.SubsetControls}
	res, err := Clean(tables, NewLookup(cfg.HostYears, cfg.ControlFIPS), opts)
	if err != nil {
		return nil, err
	}
	res.Report.Log(logger)
	for _, s := range res.Report.Stages {
		if s.Enabled {
			m.StageRemoved(s.Name, s.Removed)
		}
	}
	m.Remaining(res.Report.Remaining)

	if err := util.WriteFileAtomic(cfg.OutputPath, func(w io.Writer) error {
		return qcew.WriteCSV(w, res.Table)
	}); err != nil {
		return nil, err
	}
	logger.Info("Saved cleaned table.", slog.String("path", cfg.OutputPath), slog.Int("rows", res.Table.Len()))
	return res, nil
}

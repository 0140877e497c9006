package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brensch/qcewpanel/internal/cleaner"
	"github.com/brensch/qcewpanel/internal/config"
	"github.com/brensch/qcewpanel/internal/fetcher"
	"github.com/brensch/qcewpanel/internal/metrics"
)

// Summary is what a full pipeline run produced.
type Summary struct {
	Fetch      *fetcher.Result
	FetchBytes int64
	Clean      *cleaner.Result
}

// RunFetch runs the download stage and writes its output.
func RunFetch(ctx context.Context, cfg config.FetchConfig, client *http.Client, logger *slog.Logger, m *metrics.Metrics) (*fetcher.Result, int64, error) {
	f := fetcher.New(cfg, client, logger, m)
	res, err := f.Run(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch: %w", err)
	}
	size, err := f.Write(res)
	if err != nil {
		return res, 0, fmt.Errorf("write fetch output: %w", err)
	}
	return res, size, nil
}

// RunCombinedWorkflow runs fetch then clean. The clean stage starts only after
// the fetch output is on disk. Metrics are written whether or not a stage failed.
func RunCombinedWorkflow(ctx context.Context, cfg config.Config, client *http.Client, logger *slog.Logger, m *metrics.Metrics) (summary *Summary, err error) {
	start := time.Now()
	logger.Info("Starting combined workflow...")
	defer func() {
		if werr := m.WriteTextfile(cfg.MetricsPath); werr != nil {
			err = errors.Join(err, werr)
		}
	}()

	summary = &Summary{}

	logger.Info("Phase 1: Fetching archives.")
	summary.Fetch, summary.FetchBytes, err = RunFetch(ctx, cfg.Fetch, client, logger.With(slog.String("stage", "fetch")), m)
	if err != nil {
		return summary, err
	}

	if ctx.Err() != nil {
		logger.Warn("Workflow cancelled after fetch phase.")
		return summary, ctx.Err()
	}

	logger.Info("Phase 2: Cleaning consolidated tables.")
	summary.Clean, err = cleaner.Run(cfg.Clean, logger.With(slog.String("stage", "clean")), m)
	if err != nil {
		return summary, fmt.Errorf("clean: %w", err)
	}

	logger.Info("Combined workflow finished.", slog.Duration("duration", time.Since(start).Round(time.Millisecond)))
	return summary, nil
}

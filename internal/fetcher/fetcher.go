// Package fetcher downloads the yearly QCEW SIC archives and consolidates the
// county total rows of every CSV inside them into one table.
package fetcher

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/brensch/qcewpanel/internal/config"
	"github.com/brensch/qcewpanel/internal/metrics"
	"github.com/brensch/qcewpanel/internal/qcew"
	"github.com/brensch/qcewpanel/internal/util"
)

// UserAgent identifies the fetcher to the BLS file server.
const UserAgent = "qcewpanel/0.1 (Go-client)"

var (
	// ErrTransport wraps failures where no HTTP response was received.
	ErrTransport = errors.New("transport error")
	// ErrBadArchive marks a response body that is not a readable zip archive.
	ErrBadArchive = errors.New("not a valid zip archive")
)

// YearResult summarizes one year of the fetch loop.
type YearResult struct {
	Year       int
	URL        string
	Status     string
	Bytes      int
	CSVEntries int
	Rows       int
	Skipped    bool
	SkipReason string
}

// Result is the consolidated table plus per-year bookkeeping.
type Result struct {
	Table *qcew.Table
	Years []YearResult
}

// Fetcher runs the download stage.
type Fetcher struct {
	cfg     config.FetchConfig
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New returns a Fetcher. A nil client gets the default 60s timeout client.
func New(cfg config.FetchConfig, client *http.Client, logger *slog.Logger, m *metrics.Metrics) *Fetcher {
	if client == nil {
		client = util.DefaultHTTPClient()
		if cfg.Timeout > 0 {
			client.Timeout = cfg.Timeout
		}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fetcher{cfg: cfg, client: client, logger: logger, metrics: m}
}

// ArchiveURL builds the SIC quarterly-by-area archive URL for year.
func ArchiveURL(base string, year int) string {
	return fmt.Sprintf("%s/%d/sic/csv/sic_%d_qtrly_by_area.zip", strings.TrimRight(base, "/"), year, year)
}

// Run fetches every configured year in ascending order. Rows are appended in
// year order, then archive entry order, then source row order.
func (f *Fetcher) Run(ctx context.Context) (*Result, error) {
	if err := f.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fetch config: %w", err)
	}
	res := &Result{Table: qcew.NewTable(qcew.Fields)}
	total := f.cfg.EndYear - f.cfg.StartYear + 1
	f.logger.Info("Starting fetch.", slog.Int("start_year", f.cfg.StartYear), slog.Int("end_year", f.cfg.EndYear), slog.Int("years", total))

	for year := f.cfg.StartYear; year <= f.cfg.EndYear; year++ {
		select {
		case <-ctx.Done():
			f.logger.Warn("Fetch cancelled.")
			return nil, ctx.Err()
		default:
		}

		yr, err := f.fetchYear(ctx, year, res.Table)
		if err != nil {
			return nil, fmt.Errorf("year %d: %w", year, err)
		}
		res.Years = append(res.Years, yr)
	}

	skipped := 0
	for _, yr := range res.Years {
		if yr.Skipped {
			skipped++
		}
	}
	f.logger.Info("Fetch complete.", slog.Int("rows", res.Table.Len()), slog.Int("years_skipped", skipped))
	return res, nil
}

func (f *Fetcher) fetchYear(ctx context.Context, year int, dst *qcew.Table) (YearResult, error) {
	url := ArchiveURL(f.cfg.BaseURL, year)
	yr := YearResult{Year: year, URL: url}
	l := f.logger.With(slog.Int("year", year), slog.String("url", url))
	l.Info("Fetching archive.")
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return yr, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/zip,application/octet-stream,*/*")

	resp, err := util.DownloadFile(f.client, req)
	if err != nil {
		l.Error("Download failed.", "error", err)
		return yr, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	yr.Status = resp.Status
	yr.Bytes = len(resp.Body)

	zr, err := openArchive(resp.Body)
	if err != nil {
		yr.Skipped = true
		yr.SkipReason = err.Error()
		attrs := []any{"status", resp.Status, "bytes", len(resp.Body), "error", err}
		if title := util.PageTitle(resp.Body); title != "" {
			attrs = append(attrs, "page_title", title)
		}
		l.Warn("Archive not available, skipping year.", attrs...)
		f.metrics.YearDone(metrics.OutcomeSkipped, yr.Bytes, 0)
		return yr, nil
	}

	for _, entry := range zr.File {
		if !isCSVEntry(entry) {
			l.Debug("Ignoring non-CSV entry.", slog.String("entry", entry.Name))
			continue
		}
		n, err := filterEntry(entry, dst)
		if err != nil {
			l.Error("Failed reading archive entry.", slog.String("entry", entry.Name), "error", err)
			return yr, fmt.Errorf("entry %s: %w", entry.Name, err)
		}
		yr.CSVEntries++
		yr.Rows += n
		l.Debug("Entry filtered.", slog.String("entry", entry.Name), slog.Int("rows", n))
	}

	l.Info("Kept rows for year.",
		slog.Int("rows", yr.Rows),
		slog.Int("csv_entries", yr.CSVEntries),
		slog.Duration("duration", time.Since(start).Round(time.Millisecond)))
	f.metrics.YearDone(metrics.OutcomeFetched, yr.Bytes, yr.Rows)
	return yr, nil
}

// Write saves the consolidated table as CSV at the configured path, plus the
// optional Parquet copy, and returns the CSV size in bytes. Both files are
// staged first; neither is left in place if the other cannot be written.
func (f *Fetcher) Write(res *Result) (int64, error) {
	path := f.cfg.OutputPath

	var parquetTmp string
	if f.cfg.ParquetPath != "" {
		tmp, err := writeParquetTemp(f.cfg.ParquetPath, res.Table)
		if err != nil {
			return 0, err
		}
		parquetTmp = tmp
	}

	if err := util.WriteFileAtomic(path, func(w io.Writer) error {
		return qcew.WriteCSV(w, res.Table)
	}); err != nil {
		if parquetTmp != "" {
			os.Remove(parquetTmp)
		}
		return 0, err
	}

	if parquetTmp != "" {
		if err := commitTemp(parquetTmp, f.cfg.ParquetPath); err != nil {
			return 0, errors.Join(err, os.Remove(path))
		}
		f.logger.Info("Saved Parquet copy.", slog.String("path", f.cfg.ParquetPath), slog.Int("rows", res.Table.Len()))
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	f.logger.Info("Saved consolidated table.",
		slog.String("path", path),
		slog.String("size_mb", fmt.Sprintf("%.1f", float64(info.Size())/1_048_576)),
		slog.Int("rows", res.Table.Len()))
	return info.Size(), nil
}

func openArchive(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadArchive, err)
	}
	return zr, nil
}

func isCSVEntry(f *zip.File) bool {
	return !f.FileInfo().IsDir() && strings.HasSuffix(strings.ToLower(f.Name), ".csv")
}

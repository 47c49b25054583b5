// Package pipeline runs one fetch-extract-persist-aggregate-export cycle.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/restockwatch/dropstats/internal/aggregate"
	"github.com/restockwatch/dropstats/internal/extract"
	"github.com/restockwatch/dropstats/internal/logger"
	"github.com/restockwatch/dropstats/internal/models"
	"github.com/restockwatch/dropstats/internal/quality"
	"github.com/restockwatch/dropstats/internal/report"
	"github.com/restockwatch/dropstats/internal/storage"
)

// PostFetcher retrieves posts announcing drops, optionally restricted to
// those published at or after since.
type PostFetcher interface {
	FetchPosts(ctx context.Context, categories []string, since *time.Time) ([]models.Post, error)
}

// Exporter delivers the rendered report rows to their destination.
type Exporter interface {
	Export(ctx context.Context, rows [][]string) error
}

// Config carries the per-run knobs of the pipeline.
type Config struct {
	Categories        []string
	BadPostThreshold  float64
	BadEventThreshold float64

	// CSVPath, when set, mirrors every exported report to a local CSV file.
	CSVPath string
}

type Pipeline struct {
	cfg       Config
	store     *storage.Store
	fetcher   PostFetcher
	extractor *extract.Extractor
	exporter  Exporter
	reporter  *report.Builder
}

// New assembles a pipeline. A nil exporter turns runs into dry runs: the
// history is still updated but no report leaves the process.
func New(cfg Config, store *storage.Store, fetcher PostFetcher, extractor *extract.Extractor, exporter Exporter) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		exporter:  exporter,
		reporter:  report.New(report.Config{Categories: cfg.Categories}),
	}
}

// Run executes one full cycle and returns its summary. On failure the
// summary is nil; whether the history was updated depends on the phase that
// failed, as the history is saved before any export is attempted.
func (p *Pipeline) Run(ctx context.Context) (*models.RunSummary, error) {
	start := time.Now()
	summary := &models.RunSummary{RunID: uuid.NewString()}

	logger.Info("Starting run %s", summary.RunID)

	since, err := p.sinceTime()
	if err != nil {
		return nil, fmt.Errorf("failed to determine fetch window: %w", err)
	}
	if since != nil {
		logger.Debug("Fetching posts published at or after %s", since.Format(time.RFC3339))
	} else {
		logger.Debug("Empty history, fetching without a lower time bound")
	}

	posts, err := p.fetcher.FetchPosts(ctx, p.cfg.Categories, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}
	summary.PostsFetched = len(posts)
	logger.Info("Fetched %d posts", len(posts))

	gate := quality.NewGate(p.cfg.BadPostThreshold, p.cfg.BadEventThreshold)

	batch := make([]models.DropEvent, 0, len(posts))
	for _, post := range posts {
		event, disposition, reason := p.extractor.Extract(ctx, post)
		gate.RecordPost(disposition == extract.Invalid)

		switch disposition {
		case extract.Accepted:
			batch = append(batch, event)
		case extract.Skipped:
			summary.PostsSkipped++
			logger.Debug("Skipped post: %s", reason)
		case extract.Invalid:
			summary.PostsInvalid++
			logger.Warn("Anomalous post: %s", reason)
		}
	}
	logger.Info("Extracted %d drop events (%d posts skipped, %d anomalous)",
		len(batch), summary.PostsSkipped, summary.PostsInvalid)

	// A batch that fails the post gate is discarded wholesale; nothing from
	// it reaches the history.
	if err := gate.CheckPosts(); err != nil {
		return nil, err
	}

	added, err := p.store.Merge(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to merge drop events: %w", err)
	}
	summary.NewEvents = added

	history, err := p.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	summary.HistorySize = len(history)
	logger.Info("History holds %d events (%d new this run)", len(history), added)

	records, inconsistent := aggregate.Build(history)
	summary.Products = len(records)
	summary.InconsistentEvents = inconsistent
	logger.Debug("Aggregated %d products, %d events fell outside their product's majority category",
		len(records), inconsistent)

	// The merge above is already durable; failing here blocks the export but
	// keeps the history intact.
	gate.RecordEvents(len(history), inconsistent)
	if err := gate.CheckEvents(); err != nil {
		return nil, err
	}

	rows := p.reporter.Build(records, time.Now().UTC())

	if p.cfg.CSVPath != "" {
		if err := p.writeCSV(rows); err != nil {
			logger.Warn("Failed to write CSV copy to %s: %v", p.cfg.CSVPath, err)
		}
	}

	if p.exporter == nil {
		logger.Info("Export disabled, keeping report local (%d rows)", len(rows))
	} else {
		if err := p.exporter.Export(ctx, rows); err != nil {
			return nil, fmt.Errorf("failed to export report: %w", err)
		}
		summary.Exported = true
		logger.Info("Exported report with %d rows", len(rows))
	}

	summary.Duration = time.Since(start)
	logger.Info("Run %s completed in %v", summary.RunID, summary.Duration)

	return summary, nil
}

// sinceTime derives the fetch lower bound from the newest persisted event.
// Events land on whole seconds, so one second past the latest excludes
// everything already seen without missing anything new.
func (p *Pipeline) sinceTime() (*time.Time, error) {
	latest, ok, err := p.store.LatestTime()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	since := latest.Add(time.Second)
	return &since, nil
}

func (p *Pipeline) writeCSV(rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(p.cfg.CSVPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(p.cfg.CSVPath)
	if err != nil {
		return err
	}
	if err := report.WriteCSV(f, rows); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return f.Close()
}

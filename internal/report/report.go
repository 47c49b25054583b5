// Package report formats aggregated product statistics as a row-oriented
// document for the export sink.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/restockwatch/dropstats/internal/models"
)

// DefaultTimeFormat renders timestamps in report cells.
const DefaultTimeFormat = "2006-01-02 15:04:05 MST"

// Config carries the rendering rules.
type Config struct {
	// Categories fixes the group order. Record categories missing from the
	// list render as trailing groups rather than being dropped.
	Categories []string
	TimeFormat string
}

// Builder renders product records as a complete tabular document.
type Builder struct {
	cfg Config
}

// New returns a builder with the given rendering rules.
func New(cfg Config) *Builder {
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = DefaultTimeFormat
	}
	return &Builder{cfg: cfg}
}

// Build renders the document: a header block naming the generation time and
// the globally earliest drop, a column header, then one group per category in
// configured order. Within a group rows sort by drop count descending, ties
// keeping their aggregation order. Blank rows separate the blocks.
func (b *Builder) Build(records []models.ProductRecord, generatedAt time.Time) [][]string {
	rows := [][]string{
		{"Report Generated", generatedAt.UTC().Format(b.cfg.TimeFormat)},
		{"Earliest Drop", b.earliestCell(records)},
		{},
		{"Category", "Product Name", "Product ID", "Drops", "First Seen", "Last Seen", "Mean Interval"},
		{},
	}

	for _, g := range groupByCategory(records, b.cfg.Categories) {
		sort.SliceStable(g.records, func(i, j int) bool {
			return g.records[i].Count > g.records[j].Count
		})
		for _, rec := range g.records {
			rows = append(rows, b.recordRow(rec))
		}
		rows = append(rows, []string{})
	}

	return rows
}

func (b *Builder) earliestCell(records []models.ProductRecord) string {
	var earliest time.Time
	for _, rec := range records {
		if earliest.IsZero() || rec.Earliest.Before(earliest) {
			earliest = rec.Earliest
		}
	}
	if earliest.IsZero() {
		return "n/a"
	}
	return earliest.UTC().Format(b.cfg.TimeFormat)
}

func (b *Builder) recordRow(rec models.ProductRecord) []string {
	meanInterval := ""
	if rec.Count >= 2 {
		meanInterval = rec.MeanInterval.String()
	}
	return []string{
		rec.Category,
		rec.DisplayName,
		rec.ProductID,
		strconv.Itoa(rec.Count),
		rec.Earliest.UTC().Format(b.cfg.TimeFormat),
		rec.Latest.UTC().Format(b.cfg.TimeFormat),
		meanInterval,
	}
}

type categoryGroup struct {
	category string
	records  []models.ProductRecord
}

// groupByCategory splits records into per-category groups: configured
// categories first, in order, then unconfigured ones as encountered. Empty
// groups are dropped.
func groupByCategory(records []models.ProductRecord, categories []string) []categoryGroup {
	order := append([]string{}, categories...)
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[c] = true
	}

	byCategory := make(map[string][]models.ProductRecord)
	for _, rec := range records {
		if !known[rec.Category] {
			known[rec.Category] = true
			order = append(order, rec.Category)
		}
		byCategory[rec.Category] = append(byCategory[rec.Category], rec)
	}

	var groups []categoryGroup
	for _, c := range order {
		if len(byCategory[c]) == 0 {
			continue
		}
		groups = append(groups, categoryGroup{category: c, records: byCategory[c]})
	}
	return groups
}

// WriteCSV renders the document rows as CSV. Blank separator rows become
// blank lines.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

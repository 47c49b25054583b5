package models

import (
	"time"
)

// ProductRecord is the per-product aggregation result, recomputed from the
// full history on every run. Category and DisplayName are majority-vote
// values, for display only.
type ProductRecord struct {
	ProductID   string
	Category    string
	DisplayName string

	Count    int
	Earliest time.Time
	Latest   time.Time

	// MeanInterval is the average gap between chronologically consecutive
	// events, truncated to whole seconds. Meaningful only when Count >= 2.
	MeanInterval time.Duration
}

// RunSummary captures the outcome of one pipeline run for logging and
// operator notifications.
type RunSummary struct {
	RunID string

	PostsFetched int
	PostsSkipped int
	PostsInvalid int

	NewEvents          int
	HistorySize        int
	Products           int
	InconsistentEvents int

	Exported bool
	Duration time.Duration
}

// Package quality enforces anomaly-ratio thresholds over one run's input.
//
// A spike in structurally malformed input means the upstream post format
// changed; statistics computed from such a batch would be silently wrong, so
// the gate fails closed and the run aborts before anything reaches the export
// sink.
package quality

import (
	"fmt"
)

// ThresholdError reports that a phase exceeded its anomaly-ratio threshold.
type ThresholdError struct {
	Phase     string
	Bad       int
	Total     int
	Ratio     float64
	Threshold float64
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("data quality: %d of %d %s anomalous, ratio %.4f exceeds threshold %.4f",
		e.Bad, e.Total, e.Phase, e.Ratio, e.Threshold)
}

// Gate tallies two independent anomaly counters per run: structurally invalid
// posts seen by the extractor, and category-inconsistent events discarded by
// the aggregator.
type Gate struct {
	postThreshold  float64
	eventThreshold float64

	totalPosts int
	badPosts   int

	totalEvents int
	badEvents   int
}

// NewGate returns a gate with fresh counters. Thresholds are proportions in
// [0, 1]; a phase fails only when bad/max(total, 1) strictly exceeds its
// threshold, so a batch sitting exactly on the boundary passes.
func NewGate(postThreshold, eventThreshold float64) *Gate {
	return &Gate{postThreshold: postThreshold, eventThreshold: eventThreshold}
}

// RecordPost tallies one fetched post; invalid marks a structural anomaly.
func (g *Gate) RecordPost(invalid bool) {
	g.totalPosts++
	if invalid {
		g.badPosts++
	}
}

// RecordEvents tallies the aggregation phase: events considered and the
// category-inconsistent ones among them.
func (g *Gate) RecordEvents(total, bad int) {
	g.totalEvents += total
	g.badEvents += bad
}

// CheckPosts returns a *ThresholdError when the post phase exceeded its
// threshold, nil otherwise.
func (g *Gate) CheckPosts() error {
	return check("posts", g.badPosts, g.totalPosts, g.postThreshold)
}

// CheckEvents returns a *ThresholdError when the aggregation phase exceeded
// its threshold, nil otherwise.
func (g *Gate) CheckEvents() error {
	return check("events", g.badEvents, g.totalEvents, g.eventThreshold)
}

// PostRatio returns the current bad-post proportion, for logging.
func (g *Gate) PostRatio() float64 {
	return ratio(g.badPosts, g.totalPosts)
}

// EventRatio returns the current bad-event proportion, for logging.
func (g *Gate) EventRatio() float64 {
	return ratio(g.badEvents, g.totalEvents)
}

func check(phase string, bad, total int, threshold float64) error {
	r := ratio(bad, total)
	if r > threshold {
		return &ThresholdError{Phase: phase, Bad: bad, Total: total, Ratio: r, Threshold: threshold}
	}
	return nil
}

func ratio(bad, total int) float64 {
	if total < 1 {
		total = 1
	}
	return float64(bad) / float64(total)
}

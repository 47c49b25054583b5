// Package aggregate derives per-product restock statistics from the full drop
// history. Everything here is pure recomputation from the input slice; no
// state survives between runs.
package aggregate

import (
	"sort"
	"time"

	"github.com/restockwatch/dropstats/internal/models"
)

// Build groups the history by product ID and produces one ProductRecord per
// distinct product, in first-encountered product order. The second return is
// the total number of category-inconsistent events excluded across all
// products, for the quality gate.
//
// Canonical category and display name are majority votes. Ties break toward
// the value seen first in history order, making the result deterministic for
// a fixed input order. The display name vote runs over included events only,
// independently of the category vote.
func Build(history []models.DropEvent) ([]models.ProductRecord, int) {
	var productOrder []string
	byProduct := make(map[string][]models.DropEvent)
	for _, e := range history {
		if _, ok := byProduct[e.ProductID]; !ok {
			productOrder = append(productOrder, e.ProductID)
		}
		byProduct[e.ProductID] = append(byProduct[e.ProductID], e)
	}

	records := make([]models.ProductRecord, 0, len(productOrder))
	inconsistent := 0

	for _, id := range productOrder {
		events := byProduct[id]

		categories := make([]string, len(events))
		for i, e := range events {
			categories[i] = e.Category
		}
		category := majorityVote(categories)

		included := make([]models.DropEvent, 0, len(events))
		for _, e := range events {
			if e.Category == category {
				included = append(included, e)
			} else {
				inconsistent++
			}
		}

		names := make([]string, len(included))
		for i, e := range included {
			names[i] = e.DisplayName
		}

		rec := models.ProductRecord{
			ProductID:   id,
			Category:    category,
			DisplayName: majorityVote(names),
			Count:       len(included),
		}
		rec.Earliest, rec.Latest, rec.MeanInterval = timeStats(included)
		records = append(records, rec)
	}

	return records, inconsistent
}

// majorityVote returns the most frequent value, ties broken toward the value
// encountered first.
func majorityVote(values []string) string {
	counts := make(map[string]int, len(values))
	var order []string
	for _, v := range values {
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}

	best := ""
	bestCount := 0
	for _, v := range order {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}

// timeStats returns the earliest and latest observation times and the mean
// gap between chronologically consecutive events, truncated to whole seconds.
// The mean is zero when fewer than two events exist.
func timeStats(events []models.DropEvent) (time.Time, time.Time, time.Duration) {
	if len(events) == 0 {
		return time.Time{}, time.Time{}, 0
	}

	times := make([]time.Time, len(events))
	for i, e := range events {
		times[i] = e.ObservedAt
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	earliest, latest := times[0], times[len(times)-1]
	if len(times) < 2 {
		return earliest, latest, 0
	}

	var sum time.Duration
	for i := 1; i < len(times); i++ {
		sum += times[i].Sub(times[i-1])
	}
	mean := sum / time.Duration(len(times)-1)
	return earliest, latest, mean.Truncate(time.Second)
}

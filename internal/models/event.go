// Package models defines the core domain entities: posts, drop events, and
// per-product aggregation results.
package models

import (
	"errors"
	"time"
)

// Post is one raw announcement as returned by the fetch collaborator.
type Post struct {
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"published_at"`
}

// DropEvent records a single observed restock of one product listing.
// Equality is defined over all four fields; a history never holds two equal
// events. ObservedAt is UTC, truncated to whole seconds at creation.
type DropEvent struct {
	ProductID   string    `json:"product_id"`
	DisplayName string    `json:"display_name"`
	Category    string    `json:"category"`
	ObservedAt  time.Time `json:"observed_at"`
}

// Validate checks drop event field constraints.
func (e *DropEvent) Validate() error {
	if e.ProductID == "" {
		return errors.New("product ID must not be empty")
	}
	if e.DisplayName == "" {
		return errors.New("display name must not be empty")
	}
	if e.Category == "" {
		return errors.New("category must not be empty")
	}
	if e.ObservedAt.IsZero() {
		return errors.New("observed at must not be zero")
	}
	return nil
}

// Equal reports whether two events are the same observation: all four fields
// match, timestamps compared at second precision on the wall clock.
func (e *DropEvent) Equal(other *DropEvent) bool {
	if other == nil {
		return false
	}
	return e.ProductID == other.ProductID &&
		e.DisplayName == other.DisplayName &&
		e.Category == other.Category &&
		e.ObservedAt.Unix() == other.ObservedAt.Unix()
}

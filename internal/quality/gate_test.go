package quality

import (
	"errors"
	"strings"
	"testing"
)

func recordPosts(g *Gate, total, bad int) {
	for i := 0; i < total; i++ {
		g.RecordPost(i < bad)
	}
}

func TestGate_CheckPostsBoundary(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		bad       int
		threshold float64
		wantErr   bool
	}{
		{"no posts", 0, 0, 0.05, false},
		{"all clean", 100, 0, 0.05, false},
		{"exactly at threshold passes", 20, 1, 0.05, false},
		{"one above threshold fails", 40, 3, 0.05, true},
		{"well above threshold fails", 10, 5, 0.05, true},
		{"zero threshold fails on single anomaly", 100, 1, 0.0, true},
		{"zero threshold passes clean batch", 100, 0, 0.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(tt.threshold, tt.threshold)
			recordPosts(g, tt.total, tt.bad)
			err := g.CheckPosts()
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckPosts() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGate_CheckEventsBoundary(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		bad     int
		wantErr bool
	}{
		{"no events", 0, 0, false},
		{"exactly at threshold passes", 40, 2, false},
		{"above threshold fails", 40, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(0.05, 0.05)
			g.RecordEvents(tt.total, tt.bad)
			err := g.CheckEvents()
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckEvents() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGate_CountersAreIndependent(t *testing.T) {
	g := NewGate(0.05, 0.05)

	// Post phase is well past its threshold, event phase is clean.
	recordPosts(g, 10, 5)
	g.RecordEvents(100, 0)

	if err := g.CheckPosts(); err == nil {
		t.Error("CheckPosts() = nil, want error")
	}
	if err := g.CheckEvents(); err != nil {
		t.Errorf("CheckEvents() = %v, want nil", err)
	}
}

func TestGate_ThresholdErrorDetails(t *testing.T) {
	g := NewGate(0.05, 0.05)
	recordPosts(g, 10, 3)

	err := g.CheckPosts()
	if err == nil {
		t.Fatal("CheckPosts() = nil, want error")
	}

	var terr *ThresholdError
	if !errors.As(err, &terr) {
		t.Fatalf("error %T is not a *ThresholdError", err)
	}
	if terr.Phase != "posts" {
		t.Errorf("phase = %q, want %q", terr.Phase, "posts")
	}
	if terr.Bad != 3 || terr.Total != 10 {
		t.Errorf("bad/total = %d/%d, want 3/10", terr.Bad, terr.Total)
	}
	if terr.Ratio != 0.3 {
		t.Errorf("ratio = %v, want 0.3", terr.Ratio)
	}
	if !strings.Contains(err.Error(), "data quality") {
		t.Errorf("error message %q missing %q", err.Error(), "data quality")
	}
}

func TestGate_Ratios(t *testing.T) {
	g := NewGate(0.05, 0.05)

	if r := g.PostRatio(); r != 0 {
		t.Errorf("PostRatio() on empty gate = %v, want 0", r)
	}

	recordPosts(g, 4, 1)
	g.RecordEvents(8, 2)

	if r := g.PostRatio(); r != 0.25 {
		t.Errorf("PostRatio() = %v, want 0.25", r)
	}
	if r := g.EventRatio(); r != 0.25 {
		t.Errorf("EventRatio() = %v, want 0.25", r)
	}
}

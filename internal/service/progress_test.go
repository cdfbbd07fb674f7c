package service

import (
	"testing"
	"time"
)

func TestEstimateProgressElapsedCurve(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		min     float64
		max     float64
	}{
		{"zero elapsed", 0, 0, 0},
		{"negative elapsed", -time.Second, 0, 0},
		{"one second", time.Second, 1, 5},
		{"one scale interval", 45 * time.Second, 55, 65},
		{"ten minutes", 10 * time.Minute, 94, 95},
		{"an hour", time.Hour, 94, 95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateProgress(tt.elapsed, -1)
			if got < tt.min || got > tt.max {
				t.Errorf("EstimateProgress(%v, -1) = %.2f, want within [%.2f, %.2f]", tt.elapsed, got, tt.min, tt.max)
			}
		})
	}
}

func TestEstimateProgressMonotonic(t *testing.T) {
	prev := -1.0
	for elapsed := time.Duration(0); elapsed <= 5*time.Minute; elapsed += time.Second {
		got := EstimateProgress(elapsed, -1)
		if got < prev {
			t.Fatalf("estimate decreased at %v: %.4f < %.4f", elapsed, got, prev)
		}
		if got >= 100 {
			t.Fatalf("estimate reached %v at %v, must stay below 100", got, elapsed)
		}
		prev = got
	}
}

func TestEstimateProgressNeverExceedsCap(t *testing.T) {
	for _, elapsed := range []time.Duration{time.Minute, time.Hour, 24 * time.Hour} {
		if got := EstimateProgress(elapsed, -1); got > maxAdvisoryProgress {
			t.Errorf("EstimateProgress(%v, -1) = %.2f, exceeds cap", elapsed, got)
		}
	}
}

func TestEstimateProgressReportedFraction(t *testing.T) {
	tests := []struct {
		name     string
		reported float64
		want     float64
	}{
		{"zero", 0, 0},
		{"quarter", 0.25, 25},
		{"half", 0.5, 50},
		{"near done capped", 0.99, maxAdvisoryProgress},
		{"full capped", 1, maxAdvisoryProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reported fraction beats any elapsed-based estimate.
			if got := EstimateProgress(time.Hour, tt.reported); got != tt.want {
				t.Errorf("EstimateProgress(1h, %v) = %.2f, want %.2f", tt.reported, got, tt.want)
			}
		})
	}
}

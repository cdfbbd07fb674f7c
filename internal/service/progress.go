package service

import (
	"math"
	"time"
)

// maxAdvisoryProgress caps estimator output. The last points up to 100
// belong to the actual transition into completed and are never produced
// here.
const maxAdvisoryProgress = 95.0

// progressTimeScale sets how fast the asymptotic curve approaches the
// cap; after one scale interval the estimate sits at ~63% of it.
const progressTimeScale = 45 * time.Second

// EstimateProgress returns an advisory completion percentage in
// [0, maxAdvisoryProgress] for a job still in flight. The estimate grows
// monotonically with elapsed wall-clock time on a decelerating curve. A
// genuine fraction reported by the processor (in [0, 1]) takes
// precedence; pass a negative reported value when none exists. The
// result is display-only and never gates a transition.
func EstimateProgress(elapsed time.Duration, reported float64) float64 {
	if reported >= 0 {
		pct := reported * 100
		if pct > maxAdvisoryProgress {
			return maxAdvisoryProgress
		}
		return pct
	}
	if elapsed <= 0 {
		return 0
	}
	t := elapsed.Seconds() / progressTimeScale.Seconds()
	return maxAdvisoryProgress * (1 - math.Exp(-t))
}

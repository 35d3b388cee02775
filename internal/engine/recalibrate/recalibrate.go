// Package recalibrate nudges the per-user fatigue weights from NASA-TLX
// feedback. A user who keeps reporting high mental demand and effort has a
// more sensitive fatigue response: the accumulation weights rise and the
// force-break threshold falls, so breaks arrive earlier.
package recalibrate

import "github.com/cogsched/cogsched/internal/domain"

const (
	// Every interval-th TLX entry triggers a recalibration pass.
	interval = 3

	// windowSize is how many recent entries the averages look at.
	windowSize = 6

	alpha    = 0.05
	beta     = 0.05
	baseline = 0.5

	weightMin = 0.05
	weightMax = 0.60
	forceMin  = 0.40
	forceMax  = 0.90
)

// Due reports whether the given entry count triggers a recalibration.
func Due(count int) bool {
	return count > 0 && count%interval == 0
}

// Apply recomputes the fatigue weights from the entry log. entries must be in
// chronological order and include the entry that made the count due; only the
// last windowSize entries are considered.
func Apply(entries []domain.TLXEntry, w domain.FatigueWeights) domain.FatigueWeights {
	if len(entries) == 0 {
		return w
	}
	window := entries
	if len(window) > windowSize {
		window = window[len(window)-windowSize:]
	}

	var md, ef float64
	for _, e := range window {
		md += normalize(e.MentalDemand)
		ef += normalize(e.Effort)
	}
	md /= float64(len(window))
	ef /= float64(len(window))

	return domain.FatigueWeights{
		ConsecWeight:   clamp(w.ConsecWeight+alpha*(md-baseline), weightMin, weightMax),
		TotalWeight:    clamp(w.TotalWeight+alpha*(ef-baseline), weightMin, weightMax),
		ForceThreshold: clamp(w.ForceThreshold-beta*((md+ef)/2-baseline), forceMin, forceMax),
	}
}

// normalize maps a 1..7 TLX response onto [0, 1].
func normalize(x int) float64 {
	return float64(x-1) / 6.0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

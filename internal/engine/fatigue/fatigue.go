// Package fatigue tracks mental fatigue across a day being scheduled.
//
// The accumulator is a stateful scan over the blocks placed so far: work
// quanta push fatigue up as a weighted blend of the consecutive deep-work run
// and the day's deep-work total, breaks pull it back down. The scheduler
// consults ForceBreak between quanta to decide when rest must be inserted.
package fatigue

import "github.com/cogsched/cogsched/internal/config"

// Accumulator holds the fatigue state during one placement pass.
// It is not safe for concurrent use; each scheduling call owns one.
type Accumulator struct {
	cfg config.Config

	consecDeepMin float64
	totalDeepMin  float64
	level         float64
}

// New creates an accumulator with zero fatigue.
func New(cfg config.Config) *Accumulator {
	return &Accumulator{cfg: cfg}
}

// OnWork records a placed work quantum of the given load and duration.
func (a *Accumulator) OnWork(load float64, minutes int) {
	if load >= a.cfg.DeepWorkLoadThreshold {
		a.consecDeepMin += float64(minutes)
		a.totalDeepMin += float64(minutes)
	} else {
		a.consecDeepMin = 0
	}
	a.recompute()
}

// OnBreak records a placed break of the given duration: the consecutive
// deep-work run resets and fatigue recovers proportionally to how close the
// break comes to a full long break.
func (a *Accumulator) OnBreak(minutes int) {
	a.consecDeepMin = 0
	frac := float64(minutes) / a.cfg.LongBreakDuration
	if frac > 1 {
		frac = 1
	}
	a.level *= 1 - a.cfg.BreakRecoveryFactor*frac
	if a.level < 0 {
		a.level = 0
	}
}

// ResetConsec clears the consecutive deep-work run and recomputes F from the
// day's deep-work total alone; the break recovery factor is not applied.
// Used for fixed commitments: the user is away from focused work but a
// lecture or meeting is not rest.
func (a *Accumulator) ResetConsec() {
	a.consecDeepMin = 0
	a.recompute()
}

func (a *Accumulator) recompute() {
	f := a.cfg.FatigueConsecWeight*(a.consecDeepMin/a.cfg.ConsecThresholdMin) +
		a.cfg.FatigueTotalWeight*(a.totalDeepMin/a.cfg.TotalDeepThresholdMin)
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	a.level = f
}

// Level returns F in [0, 1].
func (a *Accumulator) Level() float64 { return a.level }

// ConsecDeepMin returns the current consecutive deep-work minutes.
func (a *Accumulator) ConsecDeepMin() float64 { return a.consecDeepMin }

// TotalDeepMin returns the cumulative deep-work minutes for the day.
func (a *Accumulator) TotalDeepMin() float64 { return a.totalDeepMin }

// ForceBreak reports whether the engine must insert a break before the next
// quantum: fatigue crossed its threshold or the deep-work run got too long.
func (a *Accumulator) ForceBreak() bool {
	return a.level >= a.cfg.FatigueForceBreak || a.consecDeepMin >= a.cfg.ShortBreakTriggerMin
}

// MustBreakBefore reports whether a break is required before placing a deep
// quantum of the given duration. The run length is checked with lookahead so
// a consecutive deep-work run never exceeds the break trigger.
func (a *Accumulator) MustBreakBefore(quantumMin int, deep bool) bool {
	if a.level >= a.cfg.FatigueForceBreak {
		return true
	}
	if !deep {
		return a.consecDeepMin >= a.cfg.ShortBreakTriggerMin
	}
	return a.consecDeepMin+float64(quantumMin) > a.cfg.ShortBreakTriggerMin
}

// NeedsLongBreak reports whether enough deep work has accumulated that the
// next forced break should be a long one.
func (a *Accumulator) NeedsLongBreak() bool {
	return a.totalDeepMin >= a.cfg.TotalDeepThresholdMin
}

// Package energy models a user's cognitive energy over the day.
//
// The baseline is a circadian curve built from Gaussian bumps: one positive
// bump at the chronotype's peak hour, a negative bump at the universal 04:00
// trough, and for morning types a negative bump at the early-afternoon dip.
// The baseline lives in [0.4, 1.0]; sleep debt scales it and stress subtracts
// a small affine penalty, with the final value clamped to [0, 1].
package energy

import (
	"math"

	"github.com/cogsched/cogsched/internal/config"
	"github.com/cogsched/cogsched/internal/domain"
)

// Curve evaluates E(t) for one profile under one config snapshot.
// It is immutable and safe for concurrent use.
type Curve struct {
	peakHour   float64
	dipHour    float64 // 0 disables the afternoon dip
	sleepScale float64
	stressPen  float64
}

const (
	baselineFloor = 0.4
	baselineCeil  = 1.0

	peakWidthH   = 3.0
	troughHour   = 4.0
	troughWidthH = 2.5
	dipWidthH    = 1.5

	stressDecayPer = 0.03
)

// New builds the energy curve for a profile.
func New(p domain.Profile, cfg config.Config) *Curve {
	c := &Curve{}

	switch p.Chronotype {
	case domain.ChronoEarly:
		c.peakHour = 10
		c.dipHour = 14
	case domain.ChronoLate:
		c.peakHour = 15
	default:
		c.peakHour = 11
		c.dipHour = 14.5
	}

	baseline := cfg.SleepBaseline
	if baseline <= 0 {
		baseline = 7.5
	}
	c.sleepScale = clamp(p.SleepHours/baseline, 0.6, 1.1)
	c.stressPen = stressDecayPer * float64(p.StressLevel-1)
	return c
}

// At returns E(t) in [0, 1] for t in minutes since midnight.
func (c *Curve) At(t int) float64 {
	h := float64(t) / 60.0
	return clamp(c.sleepScale*c.circadian(h)-c.stressPen, 0, 1)
}

// circadian evaluates the baseline C(h) in [0.4, 1.0] for an hour of day.
func (c *Curve) circadian(h float64) float64 {
	v := 0.55 + 0.45*gauss(h, c.peakHour, peakWidthH) - 0.3*gauss(h, troughHour, troughWidthH)
	if c.dipHour > 0 {
		v -= 0.15 * gauss(h, c.dipHour, dipWidthH)
	}
	return clamp(v, baselineFloor, baselineCeil)
}

// Sample evaluates the curve every cadence minutes across [from, to].
func (c *Curve) Sample(from, to, cadence int) []domain.CurvePoint {
	if cadence <= 0 {
		cadence = 15
	}
	var points []domain.CurvePoint
	for t := from; t <= to; t += cadence {
		points = append(points, domain.CurvePoint{
			Time:  domain.FormatClock(t),
			Value: round3(c.At(t)),
		})
	}
	return points
}

func gauss(x, mean, width float64) float64 {
	d := (x - mean) / width
	return math.Exp(-0.5 * d * d)
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

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Package availability turns a profile's day into ordered free intervals.
//
// Commitments and preferred breaks are parsed, clamped to the scheduling
// window and merged; subtracting them from the window yields the free
// intervals work can be placed into. Commitments are carried forward as fixed
// blocks, preferred breaks as suggested break blocks the scheduler honors.
package availability

import (
	"fmt"

	"github.com/cogsched/cogsched/internal/domain"
)

// Day is the availability picture for one scheduling call.
type Day struct {
	Window      domain.Interval   // [available_from, available_to]
	Free        []domain.Interval // ordered, non-overlapping free time
	Commitments []domain.Interval // merged fixed commitments inside the window
	Breaks      []domain.Interval // honored preferred-break segments
}

// Build computes the day's availability.
//
// Malformed commitment or break strings fail the call naming the entry;
// entries strictly outside the window are ignored. Returns ErrInvalidWindow
// when from >= to and ErrNoFreeTime when nothing is left after subtraction.
func Build(availableFrom, availableTo string, p domain.Profile) (*Day, error) {
	from, err := domain.ParseClock(availableFrom)
	if err != nil {
		return nil, fmt.Errorf("available_from: %w", err)
	}
	to, err := domain.ParseClock(availableTo)
	if err != nil {
		return nil, fmt.Errorf("available_to: %w", err)
	}
	if from >= to {
		return nil, fmt.Errorf("available_from %s not before available_to %s: %w",
			availableFrom, availableTo, domain.ErrInvalidWindow)
	}
	window := domain.Interval{Start: from, End: to}

	commitments, err := parseAll("daily_commitments", p.DailyCommitments, window)
	if err != nil {
		return nil, err
	}
	commitments = domain.MergeIntervals(commitments)

	prefBreaks, err := parseAll("break_preferences", p.BreakPreferences, window)
	if err != nil {
		return nil, err
	}
	prefBreaks = domain.MergeIntervals(prefBreaks)

	// Commitments win where a preferred break overlaps one.
	var breaks []domain.Interval
	for _, b := range prefBreaks {
		breaks = append(breaks, domain.SubtractIntervals(b, commitments)...)
	}

	reserved := domain.MergeIntervals(append(append([]domain.Interval{}, commitments...), breaks...))
	free := domain.SubtractIntervals(window, reserved)
	if len(free) == 0 {
		return nil, fmt.Errorf("window %s-%s: %w", availableFrom, availableTo, domain.ErrNoFreeTime)
	}

	return &Day{
		Window:      window,
		Free:        free,
		Commitments: commitments,
		Breaks:      breaks,
	}, nil
}

// parseAll parses interval strings, clamps them to the window, and drops the
// ones entirely outside it.
func parseAll(field string, entries []string, window domain.Interval) ([]domain.Interval, error) {
	var out []domain.Interval
	for i, s := range entries {
		iv, err := domain.ParseInterval(s)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		if !iv.Overlaps(window) {
			continue
		}
		if iv.Start < window.Start {
			iv.Start = window.Start
		}
		if iv.End > window.End {
			iv.End = window.End
		}
		out = append(out, iv)
	}
	return out, nil
}

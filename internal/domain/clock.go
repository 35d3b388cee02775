package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ─── Clock Utilities ────────────────────────────────────────────────────────
// All engine arithmetic happens in minutes since midnight. Wall-clock strings
// only appear at the edges (input parsing, output formatting).

// ParseClock parses an "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	h, m, ok := splitClock(strings.TrimSpace(s))
	if !ok {
		return 0, fmt.Errorf("invalid time %q: %w", s, ErrInvalidWindow)
	}
	return h*60 + m, nil
}

func splitClock(s string) (h, m int, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	m, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// FormatClock formats minutes since midnight as "HH:MM".
// Minutes outside a single day wrap around midnight.
func FormatClock(min int) string {
	min %= 24 * 60
	if min < 0 {
		min += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// ─── Intervals ──────────────────────────────────────────────────────────────

// Interval is a half-open time range [Start, End) in minutes since midnight,
// optionally labeled (commitment intervals carry their display label).
type Interval struct {
	Start int
	End   int
	Label string
}

// Duration returns the interval length in minutes.
func (iv Interval) Duration() int { return iv.End - iv.Start }

// Contains reports whether t falls inside the interval.
func (iv Interval) Contains(t int) bool { return t >= iv.Start && t < iv.End }

// Overlaps reports whether two intervals share any minute.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// String formats the interval as "HH:MM-HH:MM".
func (iv Interval) String() string {
	return FormatClock(iv.Start) + "-" + FormatClock(iv.End)
}

// ParseInterval parses an "HH:MM-HH:MM" range with an optional trailing label,
// e.g. "10:00-11:00 Lecture".
func ParseInterval(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	rangePart := s
	label := ""
	if idx := strings.IndexByte(s, ' '); idx > 0 {
		rangePart = s[:idx]
		label = strings.TrimSpace(s[idx+1:])
	}
	parts := strings.SplitN(rangePart, "-", 2)
	if len(parts) != 2 {
		return Interval{}, fmt.Errorf("invalid interval %q: %w", s, ErrInvalidWindow)
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return Interval{}, fmt.Errorf("invalid interval %q: %w", s, ErrInvalidWindow)
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return Interval{}, fmt.Errorf("invalid interval %q: %w", s, ErrInvalidWindow)
	}
	if start >= end {
		return Interval{}, fmt.Errorf("invalid interval %q: start not before end: %w", s, ErrInvalidWindow)
	}
	return Interval{Start: start, End: end, Label: label}, nil
}

// MergeIntervals sorts intervals by start and merges overlapping or touching
// ones. When two intervals merge, the later interval's label wins.
func MergeIntervals(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return nil
	}
	sorted := make([]Interval, len(ivs))
	copy(sorted, ivs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			if iv.Label != "" {
				last.Label = iv.Label
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// SubtractIntervals removes every interval in cut from the window and returns
// the remaining free sub-intervals, ordered by start. cut must already be
// merged and sorted (see MergeIntervals).
func SubtractIntervals(window Interval, cut []Interval) []Interval {
	var free []Interval
	cursor := window.Start
	for _, c := range cut {
		if c.End <= window.Start || c.Start >= window.End {
			continue
		}
		start := c.Start
		if start < window.Start {
			start = window.Start
		}
		if start > cursor {
			free = append(free, Interval{Start: cursor, End: start})
		}
		if c.End > cursor {
			cursor = c.End
		}
	}
	if cursor < window.End {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

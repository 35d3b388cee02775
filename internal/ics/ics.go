// Package ics renders a stored plan as an iCalendar document.
// One VEVENT per non-break block; breaks and commitments are the user's own
// calendar's business.
package ics

import (
	"fmt"
	"strings"
	"time"

	"github.com/cogsched/cogsched/internal/domain"
)

const timestampLayout = "20060102T150405"

// Build renders the schedule as an ICS document in the given location.
// Event times combine the schedule's creation date with each block's
// wall-clock times.
func Build(s *domain.Schedule, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.Local
	}
	day := s.CreatedAt.In(loc)

	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//cogsched//cognitive-scheduler//EN\r\n")
	b.WriteString("CALSCALE:GREGORIAN\r\n")

	for i, block := range s.Plan.Blocks {
		if block.IsBreak {
			continue
		}
		start, err := blockTime(day, block.StartTime)
		if err != nil {
			return "", fmt.Errorf("block %d: %w", i, err)
		}
		end, err := blockTime(day, block.EndTime)
		if err != nil {
			return "", fmt.Errorf("block %d: %w", i, err)
		}

		b.WriteString("BEGIN:VEVENT\r\n")
		fmt.Fprintf(&b, "UID:%s-%d@cogsched\r\n", s.ID, i)
		fmt.Fprintf(&b, "DTSTAMP:%s\r\n", s.CreatedAt.UTC().Format(timestampLayout)+"Z")
		fmt.Fprintf(&b, "DTSTART:%s\r\n", start.Format(timestampLayout))
		fmt.Fprintf(&b, "DTEND:%s\r\n", end.Format(timestampLayout))
		fmt.Fprintf(&b, "SUMMARY:%s\r\n", escape(block.TaskTitle))
		fmt.Fprintf(&b, "DESCRIPTION:%s\r\n", escape(description(block)))
		b.WriteString("END:VEVENT\r\n")
	}

	b.WriteString("END:VCALENDAR\r\n")
	return b.String(), nil
}

func blockTime(day time.Time, clock string) (time.Time, error) {
	min, err := domain.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), min/60, min%60, 0, 0, day.Location()), nil
}

func description(b domain.Block) string {
	return fmt.Sprintf("%s (load %.1f, energy %.2f, fatigue %.2f)",
		b.Explanation, b.CognitiveLoad, b.EnergyAtStart, b.FatigueAtStart)
}

// escape applies RFC 5545 text escaping.
func escape(s string) string {
	r := strings.NewReplacer("\\", "\\\\", ";", "\\;", ",", "\\,", "\n", "\\n")
	return r.Replace(s)
}

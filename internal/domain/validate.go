package domain

import "fmt"

// Validate checks a task's fields against their allowed ranges.
func (t Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("task title is empty: %w", ErrMalformedTask)
	}
	if t.DurationMinutes <= 0 {
		return fmt.Errorf("task %q: duration_minutes %d must be positive: %w", t.Title, t.DurationMinutes, ErrMalformedTask)
	}
	if t.Difficulty < 1 || t.Difficulty > 10 {
		return fmt.Errorf("task %q: difficulty %.1f out of range [1,10]: %w", t.Title, t.Difficulty, ErrMalformedTask)
	}
	if t.CognitiveLoad != nil && (*t.CognitiveLoad < 0 || *t.CognitiveLoad > 10) {
		return fmt.Errorf("task %q: cognitive_load %.1f out of range [0,10]: %w", t.Title, *t.CognitiveLoad, ErrMalformedTask)
	}
	return nil
}

// Validate checks a profile's fields against their allowed ranges.
func (p Profile) Validate() error {
	if _, err := ParseClock(p.WakeTime); err != nil {
		return fmt.Errorf("wake_time: %w", err)
	}
	if _, err := ParseClock(p.SleepTime); err != nil {
		return fmt.Errorf("sleep_time: %w", err)
	}
	if p.SleepHours < 0 || p.SleepHours > 24 {
		return fmt.Errorf("sleep_hours %.1f out of range [0,24]: %w", p.SleepHours, ErrMalformedTask)
	}
	if p.StressLevel < 1 || p.StressLevel > 5 {
		return fmt.Errorf("stress_level %d out of range [1,5]: %w", p.StressLevel, ErrMalformedTask)
	}
	return nil
}

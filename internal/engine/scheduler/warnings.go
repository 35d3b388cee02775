package scheduler

import (
	"fmt"

	"github.com/cogsched/cogsched/internal/domain"
)

// maxWarnings caps the warning list; entries are appended in severity order
// and the tail is dropped.
const maxWarnings = 6

// buildWarnings derives the human-readable cautions for a produced plan,
// ordered by severity.
func (s *Scheduler) buildWarnings(req Request, res *Result, capWarnings []string) []string {
	var w []string

	if req.Profile.SleepHours < 5 {
		w = append(w, fmt.Sprintf(
			"only %.1f hours of sleep: burnout risk, consider a lighter day", req.Profile.SleepHours))
	}

	if req.Profile.StressLevel == 5 && res.Stats.DeepBlocks > 0 {
		w = append(w, "stress level 5 with deep work scheduled: consider deferring the hardest task")
	}

	if res.Truncated {
		w = append(w, "not enough time for remaining tasks: the plan was truncated to fit the window")
	}
	if res.DeadlineHit {
		w = append(w, "truncated_by_deadline: scheduling stopped at the soft deadline with a partial plan")
	}

	// Should never fire: the placement loop forces breaks with lookahead.
	if run := longestDeepRun(res.Blocks, s.cfg.DeepWorkLoadThreshold); run > s.cfg.ShortBreakTriggerMin {
		w = append(w, fmt.Sprintf(
			"internal: %.0f consecutive deep-work minutes exceed the break trigger of %.0f",
			run, s.cfg.ShortBreakTriggerMin))
	}

	w = append(w, capWarnings...)

	if len(req.Profile.BreakPreferences) == 0 && res.Stats.DeepMinutes > 120 {
		w = append(w, fmt.Sprintf(
			"%.0f minutes of deep work with no breaks requested: schedule some rest", res.Stats.DeepMinutes))
	}

	if len(w) > maxWarnings {
		w = w[:maxWarnings]
	}
	return w
}

// longestDeepRun returns the longest stretch of consecutive deep non-break
// minutes in the final block list.
func longestDeepRun(blocks []domain.Block, deepThreshold float64) float64 {
	var run, longest float64
	for _, b := range blocks {
		if b.IsBreak || b.CognitiveLoad < deepThreshold {
			run = 0
			continue
		}
		start, err1 := domain.ParseClock(b.StartTime)
		end, err2 := domain.ParseClock(b.EndTime)
		if err1 != nil || err2 != nil {
			continue
		}
		run += float64(end - start)
		if run > longest {
			longest = run
		}
	}
	return longest
}

// Package gamify derives the XP, level, streak, and badge snapshot from a
// produced plan. Everything here is deterministic: the only persisted input
// is the user's streak counter from the previous plan.
package gamify

import (
	"time"

	"github.com/cogsched/cogsched/internal/domain"
	"github.com/cogsched/cogsched/internal/engine/scheduler"
)

// XP rules per produced plan.
const (
	xpPerTaskBlock   = 5
	xpPerDeepBlock   = 10 // on top of the task-block award
	xpPerBreak       = 2
	xpTruncationCost = 5
)

// Level thresholds.
const (
	xpScholar    = 200
	xpGenius     = 600
	xpMastermind = 1200
)

// Input bundles everything Score needs about a plan.
type Input struct {
	Blocks        []domain.Block
	Stats         scheduler.Stats
	Truncated     bool
	StressLevel   int
	DeepThreshold float64
}

// Score computes the gamification snapshot for a plan and the streak state
// to persist for the next one. The day boundary uses now's local calendar day.
func Score(in Input, prior domain.StreakState, now time.Time) (domain.Gamification, domain.StreakState) {
	xp := in.Stats.TaskBlocks*xpPerTaskBlock +
		in.Stats.DeepBlocks*xpPerDeepBlock +
		in.Stats.BreakBlocks*xpPerBreak
	if in.Truncated {
		xp -= xpTruncationCost
	}
	if xp < 0 {
		xp = 0
	}

	hasDeep := in.Stats.DeepBlocks > 0
	streak := streakFor(prior, hasDeep, now)

	g := domain.Gamification{
		XP:     xp,
		Level:  levelFor(xp),
		Streak: streak,
		Badges: badgesFor(in),
	}
	next := domain.StreakState{
		Count:       streak,
		LastDate:    now.Format(time.DateOnly),
		LastHadDeep: hasDeep,
	}
	return g, next
}

func levelFor(xp int) domain.LevelName {
	switch {
	case xp >= xpMastermind:
		return domain.LevelMastermind
	case xp >= xpGenius:
		return domain.LevelGenius
	case xp >= xpScholar:
		return domain.LevelScholar
	default:
		return domain.LevelStudent
	}
}

// streakFor continues the streak when the prior plan had deep work and was
// created on the immediately preceding local calendar day.
func streakFor(prior domain.StreakState, hasDeep bool, now time.Time) int {
	yesterday := now.AddDate(0, 0, -1).Format(time.DateOnly)
	if prior.LastHadDeep && prior.LastDate == yesterday {
		return prior.Count + 1
	}
	if hasDeep {
		return 1
	}
	return 0
}

// ─── Badges ─────────────────────────────────────────────────────────────────

func badgesFor(in Input) []string {
	var badges []string
	if deepDiver(in.Blocks, in.DeepThreshold) {
		badges = append(badges, "Deep Diver")
	}
	if in.Stats.BreakBlocks >= 2 && distinctTasks(in.Blocks) >= 3 {
		badges = append(badges, "Balanced")
	}
	if in.StressLevel >= 4 && !in.Truncated {
		badges = append(badges, "Stress-Proof")
	}
	return badges
}

// deepDiver looks for three or more deep blocks in a row where the only
// interruptions are forced breaks.
func deepDiver(blocks []domain.Block, deepThreshold float64) bool {
	run := 0
	for _, b := range blocks {
		switch {
		case !b.IsBreak && b.CognitiveLoad >= deepThreshold:
			run++
			if run >= 3 {
				return true
			}
		case b.TaskTitle == scheduler.TitleShortBreak || b.TaskTitle == scheduler.TitleLongBreak:
			// Forced break keeps the dive going.
		default:
			run = 0
		}
	}
	return false
}

func distinctTasks(blocks []domain.Block) int {
	seen := make(map[string]struct{})
	for _, b := range blocks {
		if !b.IsBreak {
			seen[b.TaskTitle] = struct{}{}
		}
	}
	return len(seen)
}

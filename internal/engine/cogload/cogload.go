// Package cogload estimates the cognitive load of a task.
//
// Load is a scalar in [0, 10]. When the caller supplies one it is clamped and
// used as-is; otherwise it is derived from the task's difficulty, a per
// category weight, and a penalty for lectures already attended that day.
package cogload

import (
	"github.com/cogsched/cogsched/internal/config"
	"github.com/cogsched/cogsched/internal/domain"
)

// Estimate returns the cognitive load for a task.
//
//	load = clamp(0, 10, difficulty * category_weight + lectures * lecture_penalty_per)
func Estimate(t domain.Task, lecturesToday int, cfg config.Config) float64 {
	if t.CognitiveLoad != nil {
		return clamp(*t.CognitiveLoad, 0, 10)
	}
	load := t.Difficulty*cfg.CategoryWeight(t.Category) + float64(lecturesToday)*cfg.LecturePenaltyPer
	return clamp(load, 0, 10)
}

// Deep reports whether a load counts as deep work under the config.
func Deep(load float64, cfg config.Config) bool {
	return load >= cfg.DeepWorkLoadThreshold
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

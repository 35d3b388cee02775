package cogload

import (
	"testing"

	"github.com/cogsched/cogsched/internal/config"
	"github.com/cogsched/cogsched/internal/domain"
)

func TestEstimate_SuppliedLoadWins(t *testing.T) {
	cfg := config.Default()
	load := 8.2
	task := domain.Task{Title: "Graphs", Category: "math", Difficulty: 3, DurationMinutes: 50, CognitiveLoad: &load}
	if got := Estimate(task, 0, cfg); got != 8.2 {
		t.Errorf("Estimate = %v, want 8.2", got)
	}

	over := 12.0
	task.CognitiveLoad = &over
	if got := Estimate(task, 0, cfg); got != 10 {
		t.Errorf("supplied load must clamp to 10, got %v", got)
	}
}

func TestEstimate_DerivedFromDifficulty(t *testing.T) {
	cfg := config.Default()
	tests := []struct {
		name     string
		category string
		diff     float64
		lectures int
		want     float64
	}{
		{"math_weighted_up", "math", 5, 0, 6.0},
		{"review_weighted_down", "review", 5, 0, 4.0},
		{"unknown_category", "juggling", 5, 0, 5.0},
		{"lecture_penalty", "juggling", 5, 4, 5.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := domain.Task{Title: "T", Category: tt.category, Difficulty: tt.diff, DurationMinutes: 25}
			got := Estimate(task, tt.lectures, cfg)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Estimate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimate_ClampsAtTen(t *testing.T) {
	cfg := config.Default()
	task := domain.Task{Title: "T", Category: "math", Difficulty: 10, DurationMinutes: 25}
	if got := Estimate(task, 10, cfg); got != 10 {
		t.Errorf("Estimate = %v, want 10", got)
	}
}

func TestDeep(t *testing.T) {
	cfg := config.Default()
	if !Deep(6.0, cfg) {
		t.Error("load 6.0 should be deep at default threshold")
	}
	if Deep(5.9, cfg) {
		t.Error("load 5.9 should not be deep")
	}
}

// Package config holds the tunable engine configuration.
//
// The engine never reads process-wide state: every scheduling call receives a
// merged Config snapshot (base config + the user's recalibrated fatigue
// weights) as a value. The Manager owns the mutable base and hands out
// snapshots under a read lock.
package config

import (
	"fmt"
	"math"
	"sync"

	"github.com/cogsched/cogsched/internal/domain"
)

// ─── Engine Config ──────────────────────────────────────────────────────────

// Config carries every tunable knob of the scheduling engine.
type Config struct {
	SleepBaseline         float64 `json:"sleep_baseline"`
	FatigueConsecWeight   float64 `json:"fatigue_consec_weight"`
	FatigueTotalWeight    float64 `json:"fatigue_total_weight"`
	ConsecThresholdMin    float64 `json:"consec_threshold_min"`
	TotalDeepThresholdMin float64 `json:"total_deep_threshold_min"`
	ShortBreakTriggerMin  float64 `json:"short_break_trigger_min"`
	ShortBreakDuration    float64 `json:"short_break_duration"`
	LongBreakDuration     float64 `json:"long_break_duration"`
	FatigueForceBreak     float64 `json:"fatigue_force_break"`
	StressCapThreshold    int     `json:"stress_cap_threshold"`
	MaxLoadUnderStress    float64 `json:"max_load_under_stress"`
	LecturePenaltyPer     float64 `json:"lecture_penalty_per"`
	BreakRecoveryFactor   float64 `json:"break_recovery_factor"`
	QuantumMin            int     `json:"quantum_min"`
	DeepWorkLoadThreshold float64 `json:"deep_work_load_threshold"`

	// CategoryWeights scale difficulty into cognitive load per task category.
	// Unknown categories fall back to 1.0.
	CategoryWeights map[string]float64 `json:"category_weights"`
}

// Default returns the engine defaults.
func Default() Config {
	return Config{
		SleepBaseline:         7.5,
		FatigueConsecWeight:   0.4,
		FatigueTotalWeight:    0.3,
		ConsecThresholdMin:    90,
		TotalDeepThresholdMin: 180,
		ShortBreakTriggerMin:  90,
		ShortBreakDuration:    10,
		LongBreakDuration:     15,
		FatigueForceBreak:     0.75,
		StressCapThreshold:    4,
		MaxLoadUnderStress:    6.0,
		LecturePenaltyPer:     0.05,
		BreakRecoveryFactor:   0.4,
		QuantumMin:            25,
		DeepWorkLoadThreshold: 6.0,
		CategoryWeights: map[string]float64{
			"math":        1.2,
			"programming": 1.15,
			"science":     1.1,
			"writing":     1.0,
			"language":    0.95,
			"reading":     0.85,
			"review":      0.8,
		},
	}
}

// CategoryWeight returns the load multiplier for a free-form category name.
func (c Config) CategoryWeight(category string) float64 {
	if w, ok := c.CategoryWeights[category]; ok {
		return w
	}
	return 1.0
}

// WithWeights overlays a user's recalibrated fatigue weights onto a snapshot.
func (c Config) WithWeights(w domain.FatigueWeights) Config {
	c.FatigueConsecWeight = w.ConsecWeight
	c.FatigueTotalWeight = w.TotalWeight
	c.FatigueForceBreak = w.ForceThreshold
	return c
}

// Weights extracts the three recalibratable fatigue weights.
func (c Config) Weights() domain.FatigueWeights {
	return domain.FatigueWeights{
		ConsecWeight:   c.FatigueConsecWeight,
		TotalWeight:    c.FatigueTotalWeight,
		ForceThreshold: c.FatigueForceBreak,
	}
}

// ─── Validated Updates ──────────────────────────────────────────────────────

// Map flattens the scalar config keys into the wire representation served by
// GET /api/config.
func (c Config) Map() map[string]any {
	return map[string]any{
		"sleep_baseline":           c.SleepBaseline,
		"fatigue_consec_weight":    c.FatigueConsecWeight,
		"fatigue_total_weight":     c.FatigueTotalWeight,
		"consec_threshold_min":     c.ConsecThresholdMin,
		"total_deep_threshold_min": c.TotalDeepThresholdMin,
		"short_break_trigger_min":  c.ShortBreakTriggerMin,
		"short_break_duration":     c.ShortBreakDuration,
		"long_break_duration":      c.LongBreakDuration,
		"fatigue_force_break":      c.FatigueForceBreak,
		"stress_cap_threshold":     c.StressCapThreshold,
		"max_load_under_stress":    c.MaxLoadUnderStress,
		"lecture_penalty_per":      c.LecturePenaltyPer,
		"break_recovery_factor":    c.BreakRecoveryFactor,
		"quantum_min":              c.QuantumMin,
		"deep_work_load_threshold": c.DeepWorkLoadThreshold,
	}
}

// Apply sets the given keys on a copy of the config. An unknown key or a
// non-numeric value rejects the whole update and leaves the receiver's copy
// untouched.
func (c Config) Apply(updates map[string]any) (Config, error) {
	out := c
	for key, raw := range updates {
		val, ok := asFloat(raw)
		if !ok {
			return c, fmt.Errorf("config key %q: value %v is not numeric: %w", key, raw, domain.ErrUnknownConfigKey)
		}
		switch key {
		case "sleep_baseline":
			out.SleepBaseline = val
		case "fatigue_consec_weight":
			out.FatigueConsecWeight = val
		case "fatigue_total_weight":
			out.FatigueTotalWeight = val
		case "consec_threshold_min":
			out.ConsecThresholdMin = val
		case "total_deep_threshold_min":
			out.TotalDeepThresholdMin = val
		case "short_break_trigger_min":
			out.ShortBreakTriggerMin = val
		case "short_break_duration":
			out.ShortBreakDuration = val
		case "long_break_duration":
			out.LongBreakDuration = val
		case "fatigue_force_break":
			out.FatigueForceBreak = val
		case "stress_cap_threshold":
			out.StressCapThreshold = int(val)
		case "max_load_under_stress":
			out.MaxLoadUnderStress = val
		case "lecture_penalty_per":
			out.LecturePenaltyPer = val
		case "break_recovery_factor":
			out.BreakRecoveryFactor = val
		case "quantum_min":
			if val < 1 {
				return c, fmt.Errorf("config key %q: must be >= 1: %w", key, domain.ErrUnknownConfigKey)
			}
			out.QuantumMin = int(val)
		case "deep_work_load_threshold":
			out.DeepWorkLoadThreshold = val
		default:
			return c, fmt.Errorf("config key %q: %w", key, domain.ErrUnknownConfigKey)
		}
	}
	return out, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ─── Manager ────────────────────────────────────────────────────────────────

// Manager owns the mutable base config. Scheduling calls take a Snapshot at
// their start; updates replace the base atomically.
type Manager struct {
	mu   sync.RWMutex
	base Config
}

// NewManager creates a manager seeded with the given base config.
func NewManager(base Config) *Manager {
	if base.CategoryWeights == nil {
		base.CategoryWeights = Default().CategoryWeights
	}
	return &Manager{base: base}
}

// Snapshot returns a copy of the current base config.
func (m *Manager) Snapshot() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.base
}

// Update validates and applies a partial update to the base config.
func (m *Manager) Update(updates map[string]any) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := m.base.Apply(updates)
	if err != nil {
		return m.base, err
	}
	m.base = next
	return next, nil
}

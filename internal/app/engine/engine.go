// Package engine orchestrates one scheduling request end to end.
// Pipeline: parsed tasks (or free text through the task parser) -> merged
// config snapshot -> placement -> gamification -> persistence.
//
// The engine itself performs no I/O beyond the injected Store and TaskParser;
// a scheduling call is a pure function of (profile, config, tasks) plus the
// persisted streak counter.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cogsched/cogsched/internal/config"
	"github.com/cogsched/cogsched/internal/domain"
	"github.com/cogsched/cogsched/internal/engine/gamify"
	"github.com/cogsched/cogsched/internal/engine/recalibrate"
	"github.com/cogsched/cogsched/internal/engine/scheduler"
	"github.com/cogsched/cogsched/internal/infra/observability"
)

// Options tune the engine.
type Options struct {
	// Now is an injectable clock (default time.Now).
	Now func() time.Time

	// SoftDeadline bounds one scheduling call (default 2s).
	SoftDeadline time.Duration
}

// Engine is the application façade over the scheduling pipeline.
type Engine struct {
	cfg    *config.Manager
	store  domain.Store
	parser domain.TaskParser
	opt    Options

	// Per-user serialization for TLX submissions: the recalibration
	// read-modify-write must not interleave for one user.
	tlxMu sync.Mutex
	users map[string]*sync.Mutex
}

// New creates an engine.
func New(cfg *config.Manager, store domain.Store, parser domain.TaskParser, opt Options) *Engine {
	if opt.Now == nil {
		opt.Now = time.Now
	}
	return &Engine{
		cfg:    cfg,
		store:  store,
		parser: parser,
		opt:    opt,
		users:  make(map[string]*sync.Mutex),
	}
}

// ─── Scheduling ─────────────────────────────────────────────────────────────

// ScheduleRequest is the schedule operation's input.
type ScheduleRequest struct {
	Tasks         []domain.Task   `json:"tasks"`
	Profile       *domain.Profile `json:"profile,omitempty"` // overrides the stored profile
	AvailableFrom string          `json:"available_from"`
	AvailableTo   string          `json:"available_to"`
}

// ScheduleResult is the schedule operation's output.
type ScheduleResult struct {
	Plan      domain.Plan
	Persisted bool
}

// Schedule runs the engine on pre-parsed tasks and persists the plan.
// A storage failure after a successful run still returns the plan, with
// Persisted=false.
func (e *Engine) Schedule(ctx context.Context, userID string, req ScheduleRequest) (*ScheduleResult, error) {
	started := e.opt.Now()

	profile, err := e.resolveProfile(userID, req.Profile)
	if err != nil {
		return nil, err
	}
	snapshot, err := e.mergedConfig(userID)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(snapshot, scheduler.Options{Now: e.opt.Now, SoftDeadline: e.opt.SoftDeadline})
	res, err := sched.Build(ctx, scheduler.Request{
		Profile:       profile,
		Tasks:         req.Tasks,
		AvailableFrom: req.AvailableFrom,
		AvailableTo:   req.AvailableTo,
	})
	if err != nil {
		return nil, err
	}

	prior, err := e.store.GetStreak(userID)
	if err != nil {
		prior = &domain.StreakState{}
	}
	now := e.opt.Now()
	gam, nextStreak := gamify.Score(gamify.Input{
		Blocks:        res.Blocks,
		Stats:         res.Stats,
		Truncated:     res.Truncated,
		StressLevel:   profile.StressLevel,
		DeepThreshold: snapshot.DeepWorkLoadThreshold,
	}, *prior, now)

	plan := domain.Plan{
		Blocks:       res.Blocks,
		EnergyCurve:  res.EnergyCurve,
		FatigueCurve: res.FatigueCurve,
		Warnings:     res.Warnings,
		Gamification: gam,
		ParsedTasks:  req.Tasks,
		CreatedAt:    now,
	}

	persisted := true
	if err := e.store.SaveSchedule(domain.Schedule{
		ID:        uuid.NewString(),
		UserID:    userID,
		Plan:      plan,
		CreatedAt: now,
	}); err != nil {
		persisted = false
	}
	if persisted {
		// Streak advances only when the plan was durably recorded.
		if err := e.store.SaveStreak(userID, nextStreak); err != nil {
			persisted = false
		}
	}

	observability.PlansBuilt.Inc()
	observability.BlocksPerPlan.Observe(float64(len(res.Blocks)))
	observability.WarningsEmitted.Add(float64(len(res.Warnings)))
	if res.Truncated {
		observability.Truncations.WithLabelValues("window").Inc()
	}
	if res.DeadlineHit {
		observability.Truncations.WithLabelValues("deadline").Inc()
	}
	observability.ScheduleDuration.Observe(e.opt.Now().Sub(started).Seconds())

	return &ScheduleResult{Plan: plan, Persisted: persisted}, nil
}

// Converse parses a free-text message into tasks, then schedules them.
// Parse failures surface without invoking the engine.
func (e *Engine) Converse(ctx context.Context, userID, message string, req ScheduleRequest) (*ScheduleResult, error) {
	tasks, err := e.parser.Parse(ctx, message)
	if err != nil {
		observability.ParserRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	observability.ParserRequests.WithLabelValues("ok").Inc()
	req.Tasks = tasks
	return e.Schedule(ctx, userID, req)
}

// ─── TLX Feedback ───────────────────────────────────────────────────────────

// TLXResult reports a feedback submission's outcome.
type TLXResult struct {
	Entries int
	Weights domain.FatigueWeights
}

// SubmitTLX appends a feedback entry, recalibrating the user's fatigue
// weights on every third entry. Submissions for one user serialize.
func (e *Engine) SubmitTLX(ctx context.Context, userID string, entry domain.TLXEntry) (*TLXResult, error) {
	if entry.MentalDemand < 1 || entry.MentalDemand > 7 {
		return nil, fmt.Errorf("mental_demand %d out of range [1,7]: %w", entry.MentalDemand, domain.ErrMalformedTask)
	}
	if entry.Effort < 1 || entry.Effort > 7 {
		return nil, fmt.Errorf("effort %d out of range [1,7]: %w", entry.Effort, domain.ErrMalformedTask)
	}
	if entry.BlockIndex < 0 {
		return nil, fmt.Errorf("block_index %d must not be negative: %w", entry.BlockIndex, domain.ErrMalformedTask)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("tlx submit: %w", domain.ErrCancelled)
	}

	mu := e.userMutex(userID)
	mu.Lock()
	defer mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = e.opt.Now()
	}

	weights, err := e.currentWeights(userID)
	if err != nil {
		return nil, err
	}

	existing, err := e.store.ListTLX(userID, 0)
	if err != nil {
		return nil, err
	}
	log := append(existing, entry)
	if recalibrate.Due(len(log)) {
		weights = recalibrate.Apply(log, weights)
		observability.Recalibrations.Inc()
	}

	count, err := e.store.AppendTLX(userID, entry, weights)
	if err != nil {
		return nil, err
	}
	observability.TLXEntries.Inc()

	return &TLXResult{Entries: count, Weights: weights}, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// resolveProfile picks the override, the stored profile, or the default.
func (e *Engine) resolveProfile(userID string, override *domain.Profile) (domain.Profile, error) {
	if override != nil {
		return *override, override.Validate()
	}
	stored, err := e.store.GetProfile(userID)
	if err == nil {
		return *stored, nil
	}
	return domain.DefaultProfile(), nil
}

// mergedConfig snapshots the base config overlaid with the user's
// recalibrated weights.
func (e *Engine) mergedConfig(userID string) (config.Config, error) {
	snapshot := e.cfg.Snapshot()
	w, err := e.store.GetWeights(userID)
	if err != nil {
		return snapshot, err
	}
	if w != nil {
		snapshot = snapshot.WithWeights(*w)
	}
	return snapshot, nil
}

// currentWeights returns the user's weights, falling back to config defaults.
func (e *Engine) currentWeights(userID string) (domain.FatigueWeights, error) {
	w, err := e.store.GetWeights(userID)
	if err != nil {
		return domain.FatigueWeights{}, err
	}
	if w != nil {
		return *w, nil
	}
	return e.cfg.Snapshot().Weights(), nil
}

func (e *Engine) userMutex(userID string) *sync.Mutex {
	e.tlxMu.Lock()
	defer e.tlxMu.Unlock()
	mu, ok := e.users[userID]
	if !ok {
		mu = &sync.Mutex{}
		e.users[userID] = mu
	}
	return mu
}

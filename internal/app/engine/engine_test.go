package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cogsched/cogsched/internal/config"
	"github.com/cogsched/cogsched/internal/domain"
	"github.com/cogsched/cogsched/internal/infra/sqlite"
	"github.com/cogsched/cogsched/internal/parser"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func setupEngine(t *testing.T) (*Engine, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.UpsertUser(domain.User{ID: "alice", Name: "alice"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	e := New(config.NewManager(config.Default()), db, parser.Regex{}, Options{Now: fixedClock()})
	return e, db
}

func ptr(v float64) *float64 { return &v }

func scheduleRequest() ScheduleRequest {
	return ScheduleRequest{
		Tasks: []domain.Task{
			{Title: "Graph Theory", Category: "math", Difficulty: 8, DurationMinutes: 120, CognitiveLoad: ptr(8.2)},
			{Title: "Chem Review", Category: "science", Difficulty: 4, DurationMinutes: 45, CognitiveLoad: ptr(3.0)},
		},
		AvailableFrom: "09:00",
		AvailableTo:   "18:00",
	}
}

func TestSchedule_PersistsPlanAndStreak(t *testing.T) {
	e, db := setupEngine(t)

	res, err := e.Schedule(context.Background(), "alice", scheduleRequest())
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if !res.Persisted {
		t.Error("expected plan to persist")
	}
	if len(res.Plan.Blocks) == 0 {
		t.Fatal("expected blocks")
	}
	if res.Plan.Gamification.XP <= 0 {
		t.Errorf("XP = %d, want > 0", res.Plan.Gamification.XP)
	}
	if res.Plan.Gamification.Streak != 1 {
		t.Errorf("Streak = %d, want 1 (deep work today, no prior)", res.Plan.Gamification.Streak)
	}

	stored, err := db.LatestSchedule("alice")
	if err != nil {
		t.Fatalf("LatestSchedule: %v", err)
	}
	if len(stored.Plan.Blocks) != len(res.Plan.Blocks) {
		t.Errorf("stored %d blocks, returned %d", len(stored.Plan.Blocks), len(res.Plan.Blocks))
	}

	streak, err := db.GetStreak("alice")
	if err != nil || streak.Count != 1 || !streak.LastHadDeep {
		t.Errorf("streak = %+v, err %v", streak, err)
	}
}

func TestSchedule_UsesStoredProfile(t *testing.T) {
	e, db := setupEngine(t)

	p := domain.DefaultProfile()
	p.DailyCommitments = []string{"10:00-11:00 Lecture"}
	if err := db.UpsertProfile("alice", p); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}

	res, err := e.Schedule(context.Background(), "alice", scheduleRequest())
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	var sawLecture bool
	for _, b := range res.Plan.Blocks {
		if b.TaskTitle == "Lecture" {
			sawLecture = true
		}
	}
	if !sawLecture {
		t.Error("stored profile's commitment missing from the plan")
	}
}

func TestSchedule_InvalidWindow(t *testing.T) {
	e, _ := setupEngine(t)
	req := scheduleRequest()
	req.AvailableFrom, req.AvailableTo = "18:00", "09:00"
	if _, err := e.Schedule(context.Background(), "alice", req); !errors.Is(err, domain.ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestConverse_ParsesThenSchedules(t *testing.T) {
	e, _ := setupEngine(t)

	res, err := e.Converse(context.Background(), "alice",
		"study calculus for 2 hours and review notes for 30 min",
		ScheduleRequest{AvailableFrom: "09:00", AvailableTo: "17:00"})
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if len(res.Plan.ParsedTasks) != 2 {
		t.Errorf("parsed %d tasks, want 2", len(res.Plan.ParsedTasks))
	}
	if len(res.Plan.Blocks) == 0 {
		t.Error("expected blocks")
	}
}

func TestConverse_ParseFailureSkipsEngine(t *testing.T) {
	e, db := setupEngine(t)

	_, err := e.Converse(context.Background(), "alice", "hello!",
		ScheduleRequest{AvailableFrom: "09:00", AvailableTo: "17:00"})
	if !errors.Is(err, domain.ErrParseFailed) {
		t.Fatalf("expected ErrParseFailed, got %v", err)
	}
	if _, err := db.LatestSchedule("alice"); !errors.Is(err, domain.ErrScheduleNotFound) {
		t.Error("no schedule should be stored on parse failure")
	}
}

func TestSubmitTLX_RecalibratesEveryThird(t *testing.T) {
	e, _ := setupEngine(t)
	defaults := config.Default().Weights()

	var last *TLXResult
	for i := 0; i < 3; i++ {
		var err error
		last, err = e.SubmitTLX(context.Background(), "alice",
			domain.TLXEntry{BlockIndex: 0, MentalDemand: 5, Effort: 5})
		if err != nil {
			t.Fatalf("SubmitTLX %d: %v", i, err)
		}
	}
	if last.Entries != 3 {
		t.Errorf("Entries = %d, want 3", last.Entries)
	}

	// md = ef = (5-1)/6 = 0.667 > baseline: weights rise, threshold falls.
	if last.Weights.ConsecWeight <= defaults.ConsecWeight {
		t.Errorf("ConsecWeight = %v, want above %v", last.Weights.ConsecWeight, defaults.ConsecWeight)
	}
	if last.Weights.ForceThreshold >= defaults.ForceThreshold {
		t.Errorf("ForceThreshold = %v, want below %v", last.Weights.ForceThreshold, defaults.ForceThreshold)
	}
	if last.Weights.ConsecWeight < 0.05 || last.Weights.ConsecWeight > 0.60 ||
		last.Weights.ForceThreshold < 0.40 || last.Weights.ForceThreshold > 0.90 {
		t.Errorf("weights outside clamp ranges: %+v", last.Weights)
	}
}

func TestSubmitTLX_BeforeThirdKeepsDefaults(t *testing.T) {
	e, _ := setupEngine(t)
	defaults := config.Default().Weights()

	res, err := e.SubmitTLX(context.Background(), "alice",
		domain.TLXEntry{BlockIndex: 0, MentalDemand: 7, Effort: 7})
	if err != nil {
		t.Fatalf("SubmitTLX: %v", err)
	}
	if res.Entries != 1 {
		t.Errorf("Entries = %d, want 1", res.Entries)
	}
	if res.Weights != defaults {
		t.Errorf("weights moved before the third entry: %+v", res.Weights)
	}
}

func TestSubmitTLX_Validation(t *testing.T) {
	e, _ := setupEngine(t)
	bad := []domain.TLXEntry{
		{BlockIndex: 0, MentalDemand: 0, Effort: 5},
		{BlockIndex: 0, MentalDemand: 5, Effort: 8},
		{BlockIndex: -1, MentalDemand: 5, Effort: 5},
	}
	for _, entry := range bad {
		if _, err := e.SubmitTLX(context.Background(), "alice", entry); !errors.Is(err, domain.ErrMalformedTask) {
			t.Errorf("entry %+v: expected ErrMalformedTask, got %v", entry, err)
		}
	}
}

func TestSchedule_AppliesRecalibratedWeights(t *testing.T) {
	e, db := setupEngine(t)

	// Store aggressive weights: breaks trigger almost immediately.
	w := domain.FatigueWeights{ConsecWeight: 0.60, TotalWeight: 0.60, ForceThreshold: 0.40}
	if _, err := db.AppendTLX("alice", domain.TLXEntry{BlockIndex: 0, MentalDemand: 7, Effort: 7}, w); err != nil {
		t.Fatalf("seed weights: %v", err)
	}

	res, err := e.Schedule(context.Background(), "alice", scheduleRequest())
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	var breaks int
	for _, b := range res.Plan.Blocks {
		if b.IsBreak {
			breaks++
		}
	}
	if breaks == 0 {
		t.Error("aggressive weights should force at least one break")
	}
}

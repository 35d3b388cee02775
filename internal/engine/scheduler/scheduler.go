// Package scheduler places tasks into a day.
//
// The placement loop walks the free intervals left by commitments and
// preferred breaks, emitting work quanta in load order, forced breaks when
// the fatigue accumulator demands one, and the fixed blocks verbatim. The
// fatigue state and the growing block list travel together through the loop;
// energy is a pure function of time and never mutates.
package scheduler

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cogsched/cogsched/internal/config"
	"github.com/cogsched/cogsched/internal/domain"
	"github.com/cogsched/cogsched/internal/engine/availability"
	"github.com/cogsched/cogsched/internal/engine/cogload"
	"github.com/cogsched/cogsched/internal/engine/energy"
	"github.com/cogsched/cogsched/internal/engine/fatigue"
)

// Break block titles. Forced breaks are distinguishable from honored
// preferred breaks by title; gamification relies on this.
const (
	TitleShortBreak     = "Short Break"
	TitleLongBreak      = "Long Break"
	TitlePreferredBreak = "Break"
)

// ─── Request / Result ───────────────────────────────────────────────────────

// Request is one scheduling call's input.
type Request struct {
	Profile       domain.Profile
	Tasks         []domain.Task
	AvailableFrom string // "HH:MM"
	AvailableTo   string // "HH:MM"
}

// Stats summarizes a produced plan for warnings and gamification.
type Stats struct {
	TaskBlocks  int     // emitted work blocks (a merged pair counts once)
	DeepBlocks  int     // work blocks at or above the deep-work threshold
	BreakBlocks int     // forced plus preferred breaks (commitments excluded)
	DeepMinutes float64 // total deep-work minutes placed
}

// Result is one scheduling call's output.
type Result struct {
	Blocks       []domain.Block
	Warnings     []string
	EnergyCurve  []domain.CurvePoint
	FatigueCurve []domain.CurvePoint
	Truncated    bool // ran out of window before placing everything
	DeadlineHit  bool // soft deadline expired mid-placement
	Stats        Stats
}

// ─── Scheduler ──────────────────────────────────────────────────────────────

// Options tune the scheduler's non-model behavior.
type Options struct {
	// Now is an injectable clock for the soft deadline (default time.Now).
	Now func() time.Time

	// SoftDeadline bounds one call's wall time; on expiry the plan built so
	// far is returned with a truncated_by_deadline warning. Default 2s.
	SoftDeadline time.Duration

	// CurveCadenceMin is the sampling cadence for the output curves.
	// Default 15 minutes.
	CurveCadenceMin int
}

// Scheduler builds plans from one config snapshot. Safe for concurrent use;
// all mutable state lives in the per-call builder.
type Scheduler struct {
	cfg config.Config
	opt Options
}

// New creates a scheduler for one merged config snapshot.
func New(cfg config.Config, opt Options) *Scheduler {
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.SoftDeadline <= 0 {
		opt.SoftDeadline = 2 * time.Second
	}
	if opt.CurveCadenceMin <= 0 {
		opt.CurveCadenceMin = 15
	}
	return &Scheduler{cfg: cfg, opt: opt}
}

// ─── Quanta ─────────────────────────────────────────────────────────────────

// quantum is one indivisible slice of a task.
type quantum struct {
	title   string
	load    float64
	minutes int
	deep    bool
}

// expand validates, orders, and splits tasks into quanta.
//
// Ordering is descending by load, then difficulty, then input order (stable).
// Durations round up to whole quanta, never down. Tasks whose load exceeds
// the stress cap are tagged for a warning but always scheduled.
func (s *Scheduler) expand(p domain.Profile, tasks []domain.Task) ([]quantum, []string, error) {
	type scored struct {
		task domain.Task
		load float64
	}
	ordered := make([]scored, 0, len(tasks))
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return nil, nil, err
		}
		ordered = append(ordered, scored{task: t, load: cogload.Estimate(t, p.LecturesToday, s.cfg)})
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].load != ordered[j].load {
			return ordered[i].load > ordered[j].load
		}
		return ordered[i].task.Difficulty > ordered[j].task.Difficulty
	})

	stressCapped := p.StressLevel >= s.cfg.StressCapThreshold
	var quanta []quantum
	var capWarnings []string
	for _, sc := range ordered {
		if stressCapped && sc.load > s.cfg.MaxLoadUnderStress {
			capWarnings = append(capWarnings, fmt.Sprintf(
				"task %q (load %.1f) exceeds the stress-capped limit of %.1f; consider splitting or deferring it",
				sc.task.Title, sc.load, s.cfg.MaxLoadUnderStress))
		}
		n := (sc.task.DurationMinutes + s.cfg.QuantumMin - 1) / s.cfg.QuantumMin
		for i := 0; i < n; i++ {
			quanta = append(quanta, quantum{
				title:   sc.task.Title,
				load:    sc.load,
				minutes: s.cfg.QuantumMin,
				deep:    cogload.Deep(sc.load, s.cfg),
			})
		}
	}
	return quanta, capWarnings, nil
}

// ─── Placement ──────────────────────────────────────────────────────────────

type blockKind int

const (
	kindWork blockKind = iota
	kindForcedBreak
	kindPreferredBreak
	kindCommitment
)

type placedBlock struct {
	title    string
	start    int
	end      int
	load     float64
	energyAt float64
	fatAt    float64
	kind     blockKind
	expl     string
	merges   int
}

type fatPoint struct {
	min   int
	level float64
}

// builder bundles the fatigue accumulator and the growing block list, passed
// through the placement loop as one mutable value.
type builder struct {
	cfg    config.Config
	curve  *energy.Curve
	fat    *fatigue.Accumulator
	day    *availability.Day
	placed []placedBlock
	points []fatPoint

	reservedFixed     []domain.Interval
	reservedSuggested []domain.Interval
	fixedIdx          int
	suggestedIdx      int

	freeIdx   int
	t         int
	lastBreak blockKind // kind of the most recent break-like block, kindWork if none
}

// Build produces a plan for the request.
func (s *Scheduler) Build(ctx context.Context, req Request) (*Result, error) {
	if err := req.Profile.Validate(); err != nil {
		return nil, err
	}
	day, err := availability.Build(req.AvailableFrom, req.AvailableTo, req.Profile)
	if err != nil {
		return nil, err
	}
	curve := energy.New(req.Profile, s.cfg)

	res := &Result{
		EnergyCurve: curve.Sample(day.Window.Start, day.Window.End, s.opt.CurveCadenceMin),
	}

	// Zero tasks: curves only, no blocks, no warnings.
	if len(req.Tasks) == 0 {
		res.FatigueCurve = flatFatigueCurve(day.Window, s.opt.CurveCadenceMin)
		return res, nil
	}

	quanta, capWarnings, err := s.expand(req.Profile, req.Tasks)
	if err != nil {
		return nil, err
	}

	b := &builder{
		cfg:               s.cfg,
		curve:             curve,
		fat:               fatigue.New(s.cfg),
		day:               day,
		reservedFixed:     day.Commitments,
		reservedSuggested: day.Breaks,
		lastBreak:         kindWork,
	}
	b.points = append(b.points, fatPoint{min: day.Window.Start, level: 0})
	b.enterInterval(0)

	deadline := s.opt.Now().Add(s.opt.SoftDeadline)
	i := 0
	for i < len(quanta) {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("between quanta: %w", domain.ErrCancelled)
		}
		if s.opt.Now().After(deadline) {
			res.DeadlineHit = true
			break
		}

		q := quanta[i]
		iv := b.day.Free[b.freeIdx]
		if b.t+q.minutes > iv.End {
			if !b.nextInterval() {
				res.Truncated = true
				break
			}
			continue
		}

		if b.fat.MustBreakBefore(q.minutes, q.deep) {
			dur := int(s.cfg.ShortBreakDuration)
			title := TitleShortBreak
			if b.fat.NeedsLongBreak() {
				dur = int(s.cfg.LongBreakDuration)
				title = TitleLongBreak
			}
			if b.t+dur+q.minutes <= iv.End {
				b.emitForcedBreak(title, dur)
			} else if !b.nextInterval() {
				res.Truncated = true
				break
			}
			continue
		}

		b.emitWork(q)
		i++
	}

	b.flushReserved(day.Window.End)

	res.Blocks = b.blocks()
	res.FatigueCurve = b.fatigueCurve(day.Window, s.opt.CurveCadenceMin)
	res.Stats = b.stats()
	res.Warnings = s.buildWarnings(req, res, capWarnings)
	return res, nil
}

// enterInterval emits any reserved blocks before the interval and moves the
// cursor to its start.
func (b *builder) enterInterval(idx int) {
	b.freeIdx = idx
	start := b.day.Free[idx].Start
	b.flushReserved(start)
	b.t = start
}

// nextInterval advances to the following free interval, emitting the
// reserved blocks that sit in between. Returns false when none remain.
func (b *builder) nextInterval() bool {
	if b.freeIdx+1 >= len(b.day.Free) {
		return false
	}
	b.enterInterval(b.freeIdx + 1)
	return true
}

// flushReserved emits commitments and preferred breaks starting before upTo,
// interleaved in time order.
func (b *builder) flushReserved(upTo int) {
	for {
		var nextFixed, nextSuggested *domain.Interval
		if b.fixedIdx < len(b.reservedFixed) && b.reservedFixed[b.fixedIdx].Start < upTo {
			nextFixed = &b.reservedFixed[b.fixedIdx]
		}
		if b.suggestedIdx < len(b.reservedSuggested) && b.reservedSuggested[b.suggestedIdx].Start < upTo {
			nextSuggested = &b.reservedSuggested[b.suggestedIdx]
		}
		switch {
		case nextFixed == nil && nextSuggested == nil:
			return
		case nextSuggested == nil || (nextFixed != nil && nextFixed.Start <= nextSuggested.Start):
			b.emitCommitment(*nextFixed)
			b.fixedIdx++
		default:
			b.emitPreferredBreak(*nextSuggested)
			b.suggestedIdx++
		}
	}
}

// ─── Emission ───────────────────────────────────────────────────────────────

func (b *builder) checkpoint(min int) {
	b.points = append(b.points, fatPoint{min: min, level: b.fat.Level()})
}

func (b *builder) emitWork(q quantum) {
	energyAt := b.curve.At(b.t)
	fatAt := b.fat.Level()

	// Light quanta of the same task coalesce, at most two per block.
	// Fatigue accounting stays per-quantum.
	if n := len(b.placed); n > 0 && !q.deep {
		last := &b.placed[n-1]
		if last.kind == kindWork && last.title == q.title && last.end == b.t && last.merges < 1 &&
			last.load < b.cfg.DeepWorkLoadThreshold {
			last.end += q.minutes
			last.merges++
			b.t += q.minutes
			b.fat.OnWork(q.load, q.minutes)
			b.checkpoint(b.t)
			return
		}
	}

	b.placed = append(b.placed, placedBlock{
		title:    q.title,
		start:    b.t,
		end:      b.t + q.minutes,
		load:     q.load,
		energyAt: energyAt,
		fatAt:    fatAt,
		kind:     kindWork,
		expl:     b.explainWork(q, energyAt, fatAt),
	})
	b.t += q.minutes
	b.fat.OnWork(q.load, q.minutes)
	b.checkpoint(b.t)
	b.lastBreak = kindWork
}

func (b *builder) emitForcedBreak(title string, dur int) {
	b.placed = append(b.placed, placedBlock{
		title:    title,
		start:    b.t,
		end:      b.t + dur,
		energyAt: b.curve.At(b.t),
		fatAt:    b.fat.Level(),
		kind:     kindForcedBreak,
		expl:     explainForcedBreak(title),
	})
	b.t += dur
	b.fat.OnBreak(dur)
	b.checkpoint(b.t)
	b.lastBreak = kindForcedBreak
}

func (b *builder) emitPreferredBreak(iv domain.Interval) {
	b.placed = append(b.placed, placedBlock{
		title:    TitlePreferredBreak,
		start:    iv.Start,
		end:      iv.End,
		energyAt: b.curve.At(iv.Start),
		fatAt:    b.fat.Level(),
		kind:     kindPreferredBreak,
		expl:     "preferred break honored as requested",
	})
	b.fat.OnBreak(iv.Duration())
	b.checkpoint(iv.End)
	b.lastBreak = kindPreferredBreak
}

func (b *builder) emitCommitment(iv domain.Interval) {
	title := iv.Label
	if title == "" {
		title = "Commitment"
	}
	b.placed = append(b.placed, placedBlock{
		title:    title,
		start:    iv.Start,
		end:      iv.End,
		energyAt: b.curve.At(iv.Start),
		fatAt:    b.fat.Level(),
		kind:     kindCommitment,
		expl:     "fixed commitment, kept exactly as given",
	})
	// Time away from the desk ends the deep-work run, but a lecture or
	// meeting is not rest: no break recovery.
	b.fat.ResetConsec()
	b.checkpoint(iv.End)
	b.lastBreak = kindCommitment
}

// ─── Explanations ───────────────────────────────────────────────────────────

func (b *builder) explainWork(q quantum, energyAt, fatAt float64) string {
	switch {
	case b.lastBreak == kindForcedBreak:
		return "scheduled after a break for recovery"
	case q.deep && energyAt >= 0.7 && fatAt <= 0.3:
		return "high energy, low fatigue: ideal for deep focus"
	case !q.deep && energyAt < 0.55:
		return "lighter task placed during an energy dip"
	case fatAt >= 0.5:
		return "fatigue is building; pace yourself through this block"
	case q.deep:
		return "demanding task placed while energy holds up"
	default:
		return "steady focus block"
	}
}

func explainForcedBreak(title string) string {
	if title == TitleLongBreak {
		return "long break inserted to recover from sustained deep work"
	}
	return "short break inserted to keep fatigue in check"
}

// ─── Output Assembly ────────────────────────────────────────────────────────

func (b *builder) blocks() []domain.Block {
	out := make([]domain.Block, 0, len(b.placed))
	for _, p := range b.placed {
		out = append(out, domain.Block{
			TaskTitle:      p.title,
			StartTime:      domain.FormatClock(p.start),
			EndTime:        domain.FormatClock(p.end),
			CognitiveLoad:  p.load,
			EnergyAtStart:  round3(p.energyAt),
			FatigueAtStart: round3(p.fatAt),
			IsBreak:        p.kind != kindWork,
			Explanation:    p.expl,
		})
	}
	return out
}

func (b *builder) stats() Stats {
	var st Stats
	for _, p := range b.placed {
		switch p.kind {
		case kindWork:
			st.TaskBlocks++
			if p.load >= b.cfg.DeepWorkLoadThreshold {
				st.DeepBlocks++
			}
		case kindForcedBreak, kindPreferredBreak:
			st.BreakBlocks++
		}
	}
	st.DeepMinutes = b.fat.TotalDeepMin()
	return st
}

// fatigueCurve samples the recorded fatigue checkpoints at the cadence.
// Between checkpoints fatigue holds its last value.
func (b *builder) fatigueCurve(window domain.Interval, cadence int) []domain.CurvePoint {
	var out []domain.CurvePoint
	idx := 0
	level := 0.0
	for t := window.Start; t <= window.End; t += cadence {
		for idx < len(b.points) && b.points[idx].min <= t {
			level = b.points[idx].level
			idx++
		}
		out = append(out, domain.CurvePoint{Time: domain.FormatClock(t), Value: round3(level)})
	}
	return out
}

func flatFatigueCurve(window domain.Interval, cadence int) []domain.CurvePoint {
	var out []domain.CurvePoint
	for t := window.Start; t <= window.End; t += cadence {
		out = append(out, domain.CurvePoint{Time: domain.FormatClock(t), Value: 0})
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Package inertia implements the meaning-pressure learning model: each
// (villager, activity) pair carries a slowly decaying inertia scalar that
// grows by the alignment work of meaningful experiences.
package inertia

import (
	"math"
	"sort"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/tuning"
)

// Level classifies how significant an experience is.
type Level uint8

const (
	Trivial Level = iota
	Routine
	Meaningful
	Profound
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case Routine:
		return "routine"
	case Meaningful:
		return "meaningful"
	case Profound:
		return "profound"
	default:
		return "trivial"
	}
}

// Experience is one entry of the bounded per-pair history.
type Experience struct {
	Context  Context `json:"context"`
	Level    Level   `json:"level"`
	Pressure float64 `json:"pressure"`
	Work     float64 `json:"work"`
}

// Step reports everything one update computed.
type Step struct {
	Before    float64  `json:"before"`
	After     float64  `json:"after"`
	Level     Level    `json:"level"`
	Pressure  float64  `json:"pressure"`
	Work      float64  `json:"work"`
	Defaulted []string `json:"defaulted,omitempty"`
}

// Delta is the change in inertia.
func (s Step) Delta() float64 { return s.After - s.Before }

// Record is the persisted state of one (villager, activity) pair.
type Record struct {
	Agent       string          `db:"agent" json:"agent"`
	Activity    agents.Activity `db:"activity" json:"activity"`
	Inertia     float64         `db:"inertia" json:"inertia"`
	Repetitions int             `db:"repetitions" json:"repetitions"`
}

type key struct {
	agent    string
	activity agents.Activity
}

// Engine owns every inertia record, experience history and repetition counter.
// It is not safe for concurrent use; the simulation serializes access.
type Engine struct {
	cfg     tuning.Inertia
	inertia map[key]float64
	reps    map[key]int
	history map[key][]Experience
}

// NewEngine creates an empty inertia engine.
func NewEngine(cfg tuning.Inertia) *Engine {
	return &Engine{
		cfg:     cfg,
		inertia: make(map[key]float64),
		reps:    make(map[key]int),
		history: make(map[key][]Experience),
	}
}

// Inertia returns the current inertia, 0 if the pair has never been updated.
func (e *Engine) Inertia(agent string, a agents.Activity) float64 {
	return e.inertia[key{agent, a}]
}

// Repetitions returns how many pressure evaluations the pair has seen.
func (e *Engine) Repetitions(agent string, a agents.Activity) int {
	return e.reps[key{agent, a}]
}

// History returns a copy of the pair's experience history, oldest first.
func (e *Engine) History(agent string, a agents.Activity) []Experience {
	h := e.history[key{agent, a}]
	out := make([]Experience, len(h))
	copy(out, h)
	return out
}

// MeaningPressure evaluates an experience and increments the pair's
// repetition counter.
func (e *Engine) MeaningPressure(agent string, a agents.Activity, ctx Context) float64 {
	p, _ := e.pressure(agent, a, ctx.resolve(a))
	return p
}

// Update applies one experience with the configured time decay and returns
// the new inertia.
func (e *Engine) Update(agent string, a agents.Activity, ctx Context) float64 {
	return e.Apply(agent, a, ctx, e.cfg.TimeDecay).After
}

// UpdateWithDecay is Update with an explicit time decay factor.
func (e *Engine) UpdateWithDecay(agent string, a agents.Activity, ctx Context, timeDecay float64) float64 {
	return e.Apply(agent, a, ctx, timeDecay).After
}

// Apply runs the full update and reports the intermediate quantities.
func (e *Engine) Apply(agent string, a agents.Activity, ctx Context, timeDecay float64) Step {
	k := key{agent, a}
	r := ctx.resolve(a)
	coeffs := e.cfg.Coeffs(string(a))

	kappa := e.inertia[k]
	p, level := e.pressure(agent, a, r)

	flow := (coeffs.BaseAlignment + e.cfg.Coupling*kappa) * p
	work := p*flow - coeffs.Resistance*flow*flow

	lr := coeffs.LearningRate
	if ctx.MentorPresent {
		lr *= e.cfg.MentorBoost
	}
	if ctx.HighStakes {
		lr *= e.cfg.HighStakesBoost
	}

	next := kappa * timeDecay
	if work > 0 {
		next += lr * work
	} else {
		next += lr * work * e.cfg.NegativeWorkScale
	}
	next = tuning.Clamp(next, e.cfg.Min, e.cfg.Max)
	e.inertia[k] = next

	h := append(e.history[k], Experience{Context: ctx, Level: level, Pressure: p, Work: work})
	if len(h) > e.cfg.HistoryCap {
		h = append([]Experience(nil), h[len(h)-e.cfg.HistoryKeep:]...)
	}
	e.history[k] = h

	return Step{
		Before:    kappa,
		After:     next,
		Level:     level,
		Pressure:  p,
		Work:      work,
		Defaulted: r.defaulted,
	}
}

// pressure computes meaning pressure and post-increments the repetition counter.
func (e *Engine) pressure(agent string, a agents.Activity, r resolved) (float64, Level) {
	k := key{agent, a}
	count := e.reps[k]
	e.reps[k] = count + 1

	level := classify(a, r)
	base := e.base(level)

	decay := math.Max(e.cfg.RepetitionFloor, math.Exp(-float64(count)*e.cfg.Coeffs(string(a)).RepetitionDecay))
	complexity := math.Min(e.cfg.ComplexityCap, complexityFactor(a, r))
	social := math.Min(e.cfg.SocialCap, socialImpact(r))

	p := base * complexity * decay * social
	return math.Max(e.cfg.PressureFloor, p), level
}

func (e *Engine) base(l Level) float64 {
	switch l {
	case Profound:
		return e.cfg.Levels.Profound
	case Meaningful:
		return e.cfg.Levels.Meaningful
	case Routine:
		return e.cfg.Levels.Routine
	default:
		return e.cfg.Levels.Trivial
	}
}

// Records returns every inertia record sorted by agent then activity.
func (e *Engine) Records() []Record {
	out := make([]Record, 0, len(e.inertia))
	seen := make(map[key]bool, len(e.inertia))
	for k, v := range e.inertia {
		out = append(out, Record{Agent: k.agent, Activity: k.activity, Inertia: v, Repetitions: e.reps[k]})
		seen[k] = true
	}
	for k, n := range e.reps {
		if !seen[k] {
			out = append(out, Record{Agent: k.agent, Activity: k.activity, Repetitions: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Agent != out[j].Agent {
			return out[i].Agent < out[j].Agent
		}
		return out[i].Activity < out[j].Activity
	})
	return out
}

// Restore loads persisted records. History is not persisted and starts empty.
func (e *Engine) Restore(records []Record) {
	for _, r := range records {
		k := key{r.Agent, r.Activity}
		if r.Inertia > 0 {
			e.inertia[k] = tuning.Clamp(r.Inertia, e.cfg.Min, e.cfg.Max)
		}
		e.reps[k] = r.Repetitions
	}
}

// Average returns the mean non-zero inertia for an activity across agents.
func (e *Engine) Average(a agents.Activity) float64 {
	sum, n := 0.0, 0
	for k, v := range e.inertia {
		if k.activity == a && v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

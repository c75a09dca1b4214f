package inertia

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/tuning"
)

func newEngine() *Engine {
	return NewEngine(tuning.Default().Inertia)
}

func TestUnseenPairIsZero(t *testing.T) {
	e := newEngine()
	assert.Equal(t, 0.0, e.Inertia("A", agents.Hunting))
	assert.Empty(t, e.History("A", agents.Hunting))
}

func TestHuntingSuccessRaisesInertiaWithSaturation(t *testing.T) {
	e := newEngine()
	ctx := Context{Success: true, Effectiveness: Of(0.65), Difficulty: Of(0.4)}

	values := []float64{0}
	for i := 0; i < 5; i++ {
		values = append(values, e.Update("A", agents.Hunting, ctx))
	}

	for i := 1; i <= 3; i++ {
		assert.Greater(t, values[i], values[i-1], "call %d", i)
	}
	first := values[2] - values[1]
	last := values[5] - values[4]
	assert.Less(t, last, first, "growth slows as repetitions accumulate")
}

func TestEmergencySuccessIsProfoundForEveryActivity(t *testing.T) {
	for _, a := range agents.AllActivities {
		t.Run(string(a), func(t *testing.T) {
			routine := Context{Success: true, Effectiveness: Of(0.65), Build: BuildFlags{ProjectQuality: Of(0.65)}}
			crisis := routine
			crisis.Emergency = true

			e := newEngine()
			stepCrisis := e.Apply("crisis", a, crisis, 0.98)
			stepRoutine := e.Apply("calm", a, routine, 0.98)

			assert.Equal(t, Profound, stepCrisis.Level)
			assert.Equal(t, Routine, stepRoutine.Level)
			assert.Greater(t, stepCrisis.Delta(), stepRoutine.Delta())
		})
	}
}

func TestRepetitionDecayIsMonotoneAndFloored(t *testing.T) {
	e := newEngine()
	ctx := Context{Success: true, Effectiveness: Of(0.9)}
	base := tuning.Default().Inertia.Levels.Routine

	prev := math.Inf(1)
	for i := 0; i < 60; i++ {
		p := e.MeaningPressure("B", agents.Hunting, ctx)
		assert.LessOrEqual(t, p, prev)
		assert.GreaterOrEqual(t, p, base*0.3-1e-12)
		prev = p
	}
	assert.InDelta(t, base*0.3, prev, 1e-12)
	assert.Equal(t, 60, e.Repetitions("B", agents.Hunting))
}

func TestUpdateIncrementsCounterOnce(t *testing.T) {
	e := newEngine()
	e.Update("C", agents.Cooking, Context{Success: true})
	e.Update("C", agents.Cooking, Context{Success: true})
	assert.Equal(t, 2, e.Repetitions("C", agents.Cooking))
}

func TestInertiaStaysInBounds(t *testing.T) {
	e := newEngine()
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 2000; i++ {
		a := agents.AllActivities[rng.Intn(len(agents.AllActivities))]
		ctx := Context{
			Success:           rng.Float64() < 0.7,
			Effectiveness:     Of(rng.Float64()),
			Emergency:         rng.Float64() < 0.3,
			VillageWideImpact: rng.Float64() < 0.3,
			PeopleAffected:    rng.Intn(200),
			Collaboration:     rng.Float64() < 0.5,
			ResourceScarcity:  rng.Float64() < 0.5,
			MentorPresent:     rng.Float64() < 0.5,
			HighStakes:        rng.Float64() < 0.5,
			Care:              CareFlags{MultiplePatients: true, DiagnosisDifficulty: true},
		}
		v := e.UpdateWithDecay("D", a, ctx, 0.9+rng.Float64()*0.1)
		require.GreaterOrEqual(t, v, 0.05)
		require.LessOrEqual(t, v, 10.0)
	}
}

func TestNegativeWorkErodesMildly(t *testing.T) {
	e := newEngine()
	e.Restore([]Record{{Agent: "E", Activity: agents.Carpentry, Inertia: 9}})

	step := e.Apply("E", agents.Carpentry, Context{Success: true, Build: BuildFlags{ProjectQuality: Of(0.7)}}, 0.98)
	require.Less(t, step.Work, 0.0)
	want := 9*0.98 + 0.14*step.Work*0.2
	assert.InDelta(t, want, step.After, 1e-9)
}

func TestHistoryTrim(t *testing.T) {
	e := newEngine()
	for i := 0; i < 30; i++ {
		e.Update("F", agents.Caregiving, Context{Success: true})
	}
	assert.Len(t, e.History("F", agents.Caregiving), 30)

	e.Update("F", agents.Caregiving, Context{Success: true, Effectiveness: Of(0.99)})
	h := e.History("F", agents.Caregiving)
	require.Len(t, h, 20)
	assert.Equal(t, Of(0.99), h[len(h)-1].Context.Effectiveness)
}

func TestDefaultsAreReported(t *testing.T) {
	e := newEngine()
	step := e.Apply("G", agents.Hunting, Context{Success: true}, 0.98)
	assert.ElementsMatch(t, []string{"effectiveness", "danger_level"}, step.Defaulted)

	step = e.Apply("G", agents.Social, Context{Success: true, Effectiveness: Of(0.8), Difficulty: Of(0.7)}, 0.98)
	assert.Empty(t, step.Defaulted)
	assert.Equal(t, Meaningful, step.Level)
}

func TestClassifyThresholdsAreStrict(t *testing.T) {
	tests := []struct {
		activity agents.Activity
		ctx      Context
		want     Level
	}{
		{agents.Hunting, Context{Success: true, Effectiveness: Of(0.6)}, Trivial},
		{agents.Hunting, Context{Success: true, Effectiveness: Of(0.61)}, Routine},
		{agents.Hunting, Context{Success: true, Effectiveness: Of(0.9), Hunt: HuntFlags{LargePrey: true, DangerLevel: Of(0.7)}}, Routine},
		{agents.Hunting, Context{Success: true, Effectiveness: Of(0.9), Hunt: HuntFlags{LargePrey: true, DangerLevel: Of(0.71)}}, Meaningful},
		{agents.Caregiving, Context{Success: true, Effectiveness: Of(0.7)}, Routine},
		{agents.Caregiving, Context{Success: true, Effectiveness: Of(0.71)}, Meaningful},
		{agents.Cooking, Context{Success: true, Effectiveness: Of(0.6)}, Trivial},
		{agents.Cooking, Context{Success: true, Effectiveness: Of(0.61)}, Routine},
		{agents.Carpentry, Context{Success: true, Build: BuildFlags{ProjectQuality: Of(0.6)}}, Trivial},
		{agents.Carpentry, Context{Success: true, Build: BuildFlags{ProjectQuality: Of(0.61)}}, Routine},
		{agents.Carpentry, Context{Success: true, Build: BuildFlags{ComplexProject: true, ProjectQuality: Of(0.8)}}, Routine},
		{agents.Carpentry, Context{Success: true, Build: BuildFlags{ComplexProject: true, ProjectQuality: Of(0.81)}}, Profound},
		{agents.Social, Context{Success: true, Effectiveness: Of(0.7), Difficulty: Of(0.7)}, Routine},
		{agents.Social, Context{Success: true, Effectiveness: Of(0.71), Difficulty: Of(0.6)}, Routine},
		{agents.Social, Context{Success: true, Effectiveness: Of(0.71), Difficulty: Of(0.61)}, Meaningful},
	}
	for _, tt := range tests {
		r := tt.ctx.resolve(tt.activity)
		assert.Equal(t, tt.want, classify(tt.activity, r), "%s %+v", tt.activity, tt.ctx)
	}
}

func TestComplexityAndSocialCaps(t *testing.T) {
	r := Context{
		Collaboration: true, TimePressure: true, ResourceScarcity: true,
		Care: CareFlags{MultiplePatients: true, DiagnosisDifficulty: true},
	}.resolve(agents.Caregiving)
	assert.InDelta(t, 3.0, complexityFactor(agents.Caregiving, r), 1e-9)

	e := newEngine()
	p := e.MeaningPressure("H", agents.Caregiving, Context{
		Success: true, Emergency: true, VillageWideImpact: true, PeopleAffected: 50,
		Collaboration: true, TimePressure: true, ResourceScarcity: true,
		Care: CareFlags{MultiplePatients: true, DiagnosisDifficulty: true},
	})
	assert.InDelta(t, 2.0*2.5*3.0, p, 1e-9)
}

func TestFailureIsTrivialAndFloored(t *testing.T) {
	e := newEngine()
	step := e.Apply("I", agents.Cooking, Context{Success: false}, 0.98)
	assert.Equal(t, Trivial, step.Level)
	assert.GreaterOrEqual(t, step.Pressure, 0.05)
}

func TestRecordsRoundTrip(t *testing.T) {
	e := newEngine()
	e.Update("J", agents.Hunting, Context{Success: true})
	e.MeaningPressure("K", agents.Cooking, Context{})

	recs := e.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "J", recs[0].Agent)
	assert.Equal(t, 0.0, recs[1].Inertia)

	fresh := newEngine()
	fresh.Restore(recs)
	assert.Equal(t, e.Inertia("J", agents.Hunting), fresh.Inertia("J", agents.Hunting))
	assert.Equal(t, 1, fresh.Repetitions("K", agents.Cooking))
	assert.Greater(t, fresh.Average(agents.Hunting), 0.0)
}

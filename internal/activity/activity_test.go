package activity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/entropy"
	"github.com/talgya/hamlet/internal/inertia"
	"github.com/talgya/hamlet/internal/social"
	"github.com/talgya/hamlet/internal/tuning"
	"github.com/talgya/hamlet/internal/weather"
)

func newKit(rng entropy.Source, food, materials float64) *Kit {
	cfg := tuning.Default()
	return &Kit{
		Tuning:  cfg,
		Inertia: inertia.NewEngine(cfg.Inertia),
		Ledger:  social.NewLedger(cfg.Ledger),
		Stores:  economy.NewStores(food, materials),
		Rand:    rng,
		Day:     1,
	}
}

func TestInjuryRiskGrowsWithFatigue(t *testing.T) {
	cfg := tuning.Default().Injury
	for profile := range cfg.Profiles {
		for _, success := range []bool{true, false} {
			l0, s0 := InjuryRisk(cfg, profile, success, 0)
			l8, s8 := InjuryRisk(cfg, profile, success, 0.8)
			assert.Greater(t, l8, l0, "%s light success=%v", profile, success)
			assert.Greater(t, s8, s0, "%s severe success=%v", profile, success)
			assert.LessOrEqual(t, l8, cfg.LightCap)
			assert.LessOrEqual(t, s8, cfg.SevereCap)
		}
	}

	l, s := InjuryRisk(cfg, "knitting", false, 1)
	assert.Zero(t, l)
	assert.Zero(t, s)
}

func TestInjuryRollSevereFirst(t *testing.T) {
	cfg := tuning.Default().Injury

	v := agents.NewVillager("Ren", agents.Brave, nil)
	w, hurt := NewInjuries(cfg, entropy.NewSequence(0)).Roll(v, "construction", false, 1)
	require.True(t, hurt)
	assert.Equal(t, agents.InjurySevere, w.Severity)
	assert.Equal(t, cfg.SevereDaysMin, w.Days)
	assert.Equal(t, cfg.SevereDaysMin, v.RecoveryDays)
	assert.InDelta(t, 0.5, v.Health, 1e-9)

	v = agents.NewVillager("Aki", agents.Brave, nil)
	w, hurt = NewInjuries(cfg, entropy.NewSequence(0.5, 0)).Roll(v, "construction", false, 1)
	require.True(t, hurt)
	assert.Equal(t, agents.InjuryLight, w.Severity)

	v = agents.NewVillager("Mio", agents.Brave, nil)
	_, hurt = NewInjuries(cfg, entropy.NewSequence(0.99)).Roll(v, "construction", false, 1)
	assert.False(t, hurt)
	assert.False(t, v.Injured())
}

func TestLadderBands(t *testing.T) {
	tests := []struct {
		roll, rate float64
		want       HuntResult
	}{
		{0.03, 0.4, HuntCritical},
		{0.3, 0.4, HuntSuccess},
		{0.55, 0.4, HuntPartial},
		{0.65, 0.4, HuntFailure},
		{0.8, 0.4, HuntInjury},
		{0.95, 0.4, HuntDisaster},
		// A high rate swallows the failure and injury bands.
		{0.85, 0.8, HuntPartial},
		{0.95, 0.8, HuntPartial},
		{0.99, 0.75, HuntDisaster},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Ladder(tt.roll, tt.rate), "roll %.2f rate %.2f", tt.roll, tt.rate)
	}
	assert.True(t, HuntPartial.Succeeded())
	assert.False(t, HuntFailure.Succeeded())
	assert.Equal(t, "critical_success", HuntCritical.String())
}

func TestSuccessRateBounds(t *testing.T) {
	legend := PreyCatalog[len(PreyCatalog)-1]
	low := SuccessRate(0, 0, neutralTraits, legend, StyleCautious, false)
	high := SuccessRate(5, 50, TraitsFor(agents.Brave), SmallGame, StyleAggressive, true)
	assert.GreaterOrEqual(t, low, minHuntRate)
	assert.LessOrEqual(t, high, maxHuntRate)
	assert.Greater(t, high, low)
	assert.Zero(t, SuccessRate(3, 3, neutralTraits, SmallGame, StyleAvoid, true))

	// 0.5×(1-0.2×0.7) + (0.6+0.6-0.2×0.3)×0.3
	assert.InDelta(t, 0.772, SuccessRate(5, 0, neutralTraits, SmallGame, StyleCautious, false), 1e-9)
}

func TestPreferredPreyRaisesRate(t *testing.T) {
	deer := PreyCatalog[4]
	plain := SuccessRate(2, 1, neutralTraits, deer, StyleStrategic, false)
	knack := SuccessRate(2, 1, neutralTraits, deer, StyleStrategic, true)
	assert.InDelta(t, plain+0.2, knack, 1e-9)

	// Clamped at the top.
	assert.Equal(t, maxHuntRate, SuccessRate(9, 50, TraitsFor(agents.Brave), SmallGame, StyleAggressive, true))

	with := 0
	for i := 0; i < 1000; i++ {
		name := fmt.Sprintf("villager-%d", i)
		size, ok := PreferredPrey(name)
		again, okAgain := PreferredPrey(name)
		assert.Equal(t, ok, okAgain)
		assert.Equal(t, size, again)
		if ok {
			with++
			assert.LessOrEqual(t, int(size), int(Legendary))
		}
	}
	assert.InDelta(t, 300, with, 60)
}

func TestChooseStyle(t *testing.T) {
	rng := entropy.NewSequence(0)
	danger := Prey{Name: "cave bear", Size: Large, Difficulty: 0.8, Danger: 0.9}
	assert.Equal(t, StyleAvoid, ChooseStyle(rng, agents.Gentle, 5, danger))
	assert.Equal(t, StyleCooperative, ChooseStyle(rng, agents.Helpful, 0.5, danger))
	assert.Equal(t, StyleAvoid, ChooseStyle(rng, agents.Practical, 1, danger))
	assert.NotEqual(t, StyleAvoid, ChooseStyle(rng, agents.Brave, 1, danger))
}

func TestHuntCriticalSuccess(t *testing.T) {
	// style, ladder roll, meat roll, then the severe and light injury rolls.
	k := newKit(entropy.NewSequence(0.01, 0.01, 0.01, 0.9, 0.9), 1, 0)
	h := NewHunting(k)
	v := agents.NewVillager("Sora", agents.Brave, map[agents.Activity]float64{agents.Hunting: 1})

	o := h.ResolvePrey(HuntRequest{Hunters: []*agents.Villager{v}, Weather: weather.Conditions{}}, SmallGame)
	require.False(t, o.NoOp)
	assert.Equal(t, HuntCritical.String(), o.Result)
	assert.True(t, o.Success)
	assert.InDelta(t, SmallGame.Meat*1.203, o.FoodGained, 1e-9)
	assert.InDelta(t, 1+SmallGame.Meat*1.203, k.Stores.Quantity(economy.GoodFood), 1e-9)
	assert.Empty(t, o.Injuries)
	assert.Contains(t, o.Inertia, "Sora")
	assert.InDelta(t, 1-k.Tuning.Village.Cost("hunting"), v.Energy, 1e-9)
}

func TestHuntNobodyFit(t *testing.T) {
	k := newKit(entropy.NewSequence(0.5), 1, 0)
	v := agents.NewVillager("Sora", agents.Brave, nil)
	v.Injury = agents.InjuryLight
	o := NewHunting(k).Resolve(HuntRequest{Hunters: []*agents.Villager{v}})
	assert.True(t, o.NoOp)
	assert.InDelta(t, 1.0, k.Stores.Quantity(economy.GoodFood), 1e-9)
}

func TestHuntAllAvoid(t *testing.T) {
	k := newKit(entropy.NewSequence(0.5), 1, 0)
	v := agents.NewVillager("Yui", agents.Gentle, nil)
	o := NewHunting(k).ResolvePrey(HuntRequest{Hunters: []*agents.Villager{v}}, Prey{Name: "wolf pack", Size: Medium, Danger: 0.8})
	assert.Equal(t, "avoided", o.Result)
	assert.False(t, o.Success)
	assert.Less(t, v.Energy, 1.0, "turning back still costs the walk")
}

func TestSelectDish(t *testing.T) {
	rng := entropy.NewSeeded(7)
	for i := 0; i < 50; i++ {
		d := SelectDish(rng, 0, Celebration)
		assert.LessOrEqual(t, d.Difficulty, 0.4, "unskilled cooks fall back to easy dishes")

		d = SelectDish(rng, 1, Daily)
		assert.Contains(t, []CookStyle{Simple, Hearty}, d.Style)
	}
}

func TestCookingEmptyLarder(t *testing.T) {
	k := newKit(entropy.NewSequence(0.5), 0, 0)
	cook := agents.NewVillager("Emi", agents.Caring, map[agents.Activity]float64{agents.Cooking: 1})
	o := NewKitchen(k).Resolve(CookRequest{Cook: cook, Occasion: Daily})
	assert.True(t, o.NoOp)
	assert.Equal(t, 1.0, cook.Energy)
}

func TestTaste(t *testing.T) {
	stew := Dish{Name: "stew", Taste: 0.8}
	assert.InDelta(t, 0.8*0.5*1.2, Taste(0.5, stew, 0.4, true), 1e-9)
	assert.InDelta(t, 0.8*0.4*0.5, Taste(0.5, stew, 0.4, false), 1e-9)
	assert.Zero(t, Taste(0, stew, 1, true))
	assert.Equal(t, 1.0, Taste(1, Dish{Taste: 0.9}, 1, true))
	assert.Greater(t, Taste(0.7, stew, 0, true), Taste(0.7, stew, 0, false))
}

func TestCookingShortLarder(t *testing.T) {
	k := newKit(entropy.NewSequence(0.5), 0.1, 0)
	kt := NewKitchen(k)
	cook := agents.NewVillager("Emi", agents.Balanced, map[agents.Activity]float64{agents.Cooking: 1})
	diner := agents.NewVillager("Kai", agents.Balanced, nil)

	o := kt.Resolve(CookRequest{Cook: cook, Diners: []*agents.Villager{diner}, Occasion: Daily})
	require.False(t, o.NoOp)
	assert.True(t, o.Degraded)
	assert.InDelta(t, 0.1, o.FoodUsed, 1e-9)
	assert.Zero(t, k.Stores.Quantity(economy.GoodFood))

	r, ok := kt.Record("Emi")
	require.True(t, ok)
	assert.Equal(t, 1, r.Attempts)
}

func TestCaregivingClearsLightInjury(t *testing.T) {
	k := newKit(entropy.NewSequence(0.1), 1, 0)
	inf := NewInfirmary(k)
	carer := agents.NewVillager("Nao", agents.Caring, nil)
	patient := agents.NewVillager("Ito", agents.Balanced, nil)
	patient.Injury = agents.InjuryLight
	patient.Health = 0.5

	o := inf.Resolve(CareRequest{Caregiver: carer, Patient: patient})
	require.False(t, o.NoOp)
	assert.True(t, o.Success)
	assert.Equal(t, string(Visit), o.Result)
	assert.False(t, patient.Injured())
	assert.InDelta(t, 0.7, patient.Health, 1e-9)
	assert.Greater(t, k.Ledger.Strength("Ito", social.PersonID("Nao")), 0.0)
}

func TestChooseCaregiver(t *testing.T) {
	k := newKit(entropy.NewSequence(0.9), 1, 0)
	inf := NewInfirmary(k)
	patient := agents.NewVillager("Ito", agents.Balanced, nil)
	patient.Injury = agents.InjurySevere

	hurt := agents.NewVillager("Ren", agents.Caring, nil)
	hurt.Injury = agents.InjuryLight
	_, _, ok := inf.Choose(patient, []*agents.Villager{hurt, patient})
	assert.False(t, ok)

	carer := agents.NewVillager("Nao", agents.Caring, nil)
	got, w, ok := inf.Choose(patient, []*agents.Villager{hurt, carer})
	require.True(t, ok)
	assert.Equal(t, "Nao", got.Name)
	assert.Greater(t, w, minWillingness)
}

func TestSelectProject(t *testing.T) {
	rng := entropy.NewSeeded(3)
	for _, want := range []ConstructionType{Repair, Housing, Infrastructure, ToolMaking, Furniture, EmergencyRepair} {
		for i := 0; i < 20; i++ {
			p := SelectProject(rng, want, rng.Float64())
			assert.True(t, accepts(want, p.Type), "%s got %s", want, p.Type)
		}
	}

	p := SelectProject(entropy.NewSequence(0), Repair, 0.2)
	assert.Equal(t, "wall patch", p.Name)
	assert.Equal(t, FallbackProject, SelectProject(rng, ConstructionType("boat"), 0.5))
}

func TestMultiDayProjectCompletesOnLastDay(t *testing.T) {
	k := newKit(entropy.NewSequence(0.5), 0, 50)
	w := NewWorkshop(k)
	lead := agents.NewVillager("Jun", agents.Practical, map[agents.Activity]float64{agents.Carpentry: 1})
	cabin := Project{Name: "test cabin", Type: Housing, Difficulty: 0.5, BaseQuality: 0.8, Materials: 5, Benefit: 0.3, Innovation: 0.4, Days: 5}

	p := w.Begin(lead, cabin, BuildRequest{Type: Housing, Complexity: 0.5}, nil)
	require.NotEmpty(t, p.ID)

	var o Outcome
	for day := 1; day <= 5; day++ {
		lead.ResetDay(k.Tuning.Village)
		o = w.ContinueWork(p, lead, nil)
		require.False(t, o.NoOp, "day %d", day)
		if day < 5 {
			assert.False(t, o.Completed, "day %d", day)
			assert.Len(t, w.Ongoing(), 1)
		}
	}

	require.True(t, o.Completed)
	assert.Equal(t, 5, p.DaysWorked)
	// Efficiency is 1 for three days, then familiarity adds 0.15 and 0.2.
	sum := 0.8 * (1 + 1 + 1 + 1.15 + 1.2)
	assert.InDelta(t, sum, p.QualitySum, 1e-9)
	assert.InDelta(t, sum/5, p.FinalQuality, 1e-9)
	assert.InDelta(t, 45.0, k.Stores.Quantity(economy.GoodMaterials), 1e-9)
	assert.Empty(t, w.Ongoing())
	assert.Len(t, w.Completed(), 1)

	r, ok := w.Record("Jun")
	require.True(t, ok)
	assert.InDelta(t, 5*0.5+sum/5*2, r.Score, 1e-9)
	assert.Equal(t, "known carpenter", r.Title)
	assert.InDelta(t, 0.6+sum/5*0.2, w.Buildings()["dwellings"], 1e-9)

	again := w.ContinueWork(p, lead, nil)
	assert.True(t, again.NoOp)
}

func TestSingleDayBuildWithoutMaterials(t *testing.T) {
	k := newKit(entropy.NewSequence(0.5), 0, 0)
	w := NewWorkshop(k)
	c := agents.NewVillager("Jun", agents.Practical, map[agents.Activity]float64{agents.Carpentry: 1})
	o := w.ResolveSingleDay(c, BuildRequest{Requester: "Ito", Type: Repair, Complexity: 0.3})
	assert.True(t, o.NoOp)
	assert.Equal(t, 1.0, c.Energy)
}

func TestSingleDayBuild(t *testing.T) {
	k := newKit(entropy.NewSequence(0.1), 0, 5)
	w := NewWorkshop(k)
	c := agents.NewVillager("Jun", agents.Practical, map[agents.Activity]float64{agents.Carpentry: 2})
	o := w.ResolveSingleDay(c, BuildRequest{Requester: "Ito", Type: Repair, Complexity: 0.3})
	require.False(t, o.NoOp)
	assert.True(t, o.Success)
	assert.Equal(t, "built", o.Result)
	assert.Greater(t, o.MaterialsUsed, 0.0)

	r, ok := w.Record("Jun")
	require.True(t, ok)
	assert.Equal(t, 1, r.Successes)
	assert.Greater(t, k.Ledger.Strength("Ito", social.PersonID("Jun")), 0.0)
}

func TestRequestsDoubleInCrisis(t *testing.T) {
	// 0.5 clears the doubled emergency rate only.
	k := newKit(entropy.NewSequence(0.5), 0, 0)
	w := NewWorkshop(k)
	calm := w.Requests([]string{"Ito"}, 0.5, false)
	for _, r := range calm {
		assert.NotEqual(t, EmergencyRepair, r.Type)
	}
	crisis := w.Requests([]string{"Ito"}, 0.5, true)
	require.NotEmpty(t, crisis)
	assert.Equal(t, EmergencyRepair, crisis[0].Type)
	assert.Nil(t, w.Requests(nil, 1, true))
}

package social

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/entropy"
	"github.com/talgya/hamlet/internal/tuning"
)

func newLedger() *Ledger {
	return NewLedger(tuning.Default().Ledger)
}

func TestRecordClassification(t *testing.T) {
	l := newLedger()
	assert.Equal(t, 0.0, l.Strength("a", "b"))

	for i := 0; i < 40; i++ {
		v := math.Sin(float64(i)) * 3
		c := l.Record("a", "b", v)
		s := l.Strength("a", "b")
		require.GreaterOrEqual(t, s, -1.0)
		require.LessOrEqual(t, s, 1.0)
		switch {
		case s > 0.3:
			assert.Equal(t, Inner, c)
		case s < -0.3:
			assert.Equal(t, Outer, c)
		default:
			assert.Equal(t, Neutral, c)
		}
		assert.Equal(t, c, l.Classify("a", "b"))
	}
}

func TestRecordLearningRate(t *testing.T) {
	l := newLedger()
	l.Record("a", "b", 1.0)
	assert.InDelta(t, 0.15, l.Strength("a", "b"), 1e-9)
	for i := 0; i < 20; i++ {
		l.Record("a", "b", 1.0)
	}
	assert.Equal(t, 1.0, l.Strength("a", "b"))
	assert.Equal(t, []string{"b"}, l.Members("a", Inner))
}

func TestTrustRange(t *testing.T) {
	for _, s := range []float64{-1, -0.31, -0.3, 0, 0.3, 0.31, 1} {
		for _, domain := range []string{"cooperation", "resource_sharing", "general"} {
			l := newLedger()
			l.Restore([]Entry{{Agent: "e", Target: PersonID("t"), Strength: s}})
			tr := l.Trust("e", "t", domain)
			assert.GreaterOrEqual(t, tr, 0.0)
			assert.LessOrEqual(t, tr, 1.0)
		}
	}

	l := newLedger()
	l.Restore([]Entry{{Agent: "e", Target: PersonID("t"), Strength: 1}})
	assert.InDelta(t, 0.95, l.Trust("e", "t", ""), 1e-9)
	assert.Equal(t, 1.0, l.Trust("e", "t", "cooperation"))
	assert.InDelta(t, 0.855, l.Trust("e", "t", "resource_sharing"), 1e-9)
	assert.InDelta(t, 0.5, l.Trust("e", "stranger", ""), 1e-9)
}

func TestRecognitionStaysInSelfConfidence(t *testing.T) {
	l := newLedger()
	l.Recognize("ken", "hana", "hunting", 0.6)

	assert.InDelta(t, 0.09, l.Strength("ken", SocialConfidenceID("hunting")), 1e-9)
	assert.InDelta(t, 0.063, l.Strength("ken", TrustedByID("hana")), 1e-9)
	assert.Equal(t, 0.0, l.Strength("hana", PersonID("ken")))
	assert.Equal(t, 0.0, l.Strength("ken", ConfidenceID(agents.Hunting)))
}

func TestUpdateExperience(t *testing.T) {
	l := newLedger()
	l.UpdateExperience("yu", agents.Cooking, "kitchen", true, 0.8)
	assert.InDelta(t, 0.12, l.Strength("yu", ActivityID(agents.Cooking)), 1e-9)
	assert.InDelta(t, 0.084, l.Strength("yu", LocationID("kitchen")), 1e-9)
	assert.InDelta(t, 0.144, l.Strength("yu", ConfidenceID(agents.Cooking)), 1e-9)

	l.UpdateExperience("yu", agents.Hunting, "", false, 0.9)
	assert.InDelta(t, -0.03, l.Strength("yu", ActivityID(agents.Hunting)), 1e-9)
	assert.Equal(t, 0.0, l.Strength("yu", ConfidenceID(agents.Hunting)))
}

func TestUpdateRelationship(t *testing.T) {
	l := newLedger()
	assert.Equal(t, PositiveInteraction, ParseInteraction("helped_with_roof"))
	assert.Equal(t, NegativeInteraction, ParseInteraction("conflict over food"))
	assert.Equal(t, NeutralInteraction, ParseInteraction("chat"))

	l.UpdateRelationship("a", "b", ParseInteraction("praise"))
	assert.InDelta(t, 0.09, l.Strength("a", PersonID("b")), 1e-9)
	assert.InDelta(t, 0.072, l.Strength("b", PersonID("a")), 1e-9)
}

func TestSummary(t *testing.T) {
	l := newLedger()
	l.Restore([]Entry{
		{Agent: "a", Target: "x", Strength: 0.6},
		{Agent: "a", Target: "y", Strength: -0.7},
		{Agent: "a", Target: "z", Strength: 0.1},
	})
	s := l.Summary("a")
	assert.Equal(t, 1, s.Inner)
	assert.Equal(t, 1, s.Outer)
	assert.Equal(t, []string{"x"}, s.StrongBonds)
	assert.Equal(t, []string{"y"}, s.StrongAversions)
	assert.Equal(t, 3, s.Total)
	assert.InDelta(t, 0.0, s.Average, 1e-9)
	assert.Len(t, l.Entries(), 3)
}

func newMill(rng entropy.Source) (*RumorMill, *Ledger) {
	cfg := tuning.Default()
	l := NewLedger(cfg.Ledger)
	return NewRumorMill(cfg.Rumor, l, rng), l
}

func TestCautiousSpeakerRarelyGossips(t *testing.T) {
	m, _ := newMill(entropy.NewSeeded(99))
	m.Register("yu", agents.Cautious)

	made := 0
	for i := 0; i < 1000; i++ {
		if _, ok := m.FromInteraction(Interaction{
			Speaker: "yu", Listener: "ken", Subject: "hana",
			Category: HuntingSkill, Positive: true, Intensity: 0.5,
		}); ok {
			made++
		}
	}
	// 3 standard deviations of Binomial(1000, 0.1).
	assert.InDelta(t, 100, made, 3*math.Sqrt(1000*0.1*0.9))
}

func TestFromInteractionFields(t *testing.T) {
	// gate 0.0, confidence draw 0.5, template draw 0.0
	m, l := newMill(entropy.NewSequence(0.0, 0.5, 0.0))
	m.Register("hana", agents.SocialType)
	m.SetDay(4)

	r, ok := m.FromInteraction(Interaction{
		Speaker: "hana", Listener: "ken", Subject: "taro",
		Category: CraftingSkill, Positive: false, Intensity: 1.7, Origin: DirectExperience,
	})
	require.True(t, ok)
	assert.Equal(t, 1.0, r.Intensity)
	assert.InDelta(t, 0.85, r.Confidence, 1e-9)
	assert.Equal(t, []string{"ken"}, r.Witnesses)
	assert.Equal(t, 4, r.Day)
	assert.Equal(t, "builds crooked walls", r.Content)
	assert.NotEmpty(t, r.ID)
	assert.Len(t, m.Active(), 1)
	assert.Len(t, m.History(), 1)

	// Speaker's trust moves by intensity × confidence × 0.3 at learning rate 0.15.
	want := -0.15 * 1.0 * 0.85 * 0.3
	assert.InDelta(t, want, l.Strength("hana", PersonID("taro")), 1e-9)
	assert.InDelta(t, want, l.Strength("hana", DomainID("taro", "resource_creation")), 1e-9)
	assert.Equal(t, 0.0, l.Strength("ken", PersonID("taro")))
	assert.Equal(t, 0.0, l.Strength("ken", DomainID("taro", "resource_creation")))
	assert.Equal(t, 0.0, l.Strength("taro", PersonID("hana")))
}

func TestRumorTrustWeakerThanFirstHand(t *testing.T) {
	m, l := newMill(entropy.NewSequence(0.0, 0.99, 0.0))
	m.Register("hana", agents.SocialType)
	_, ok := m.FromInteraction(Interaction{
		Speaker: "hana", Listener: "ken", Subject: "taro",
		Category: HuntingSkill, Positive: true, Intensity: 1, Origin: DirectExperience,
	})
	require.True(t, ok)

	direct := newLedger()
	direct.UpdateTrustThroughInteraction("hana", "taro", "survival_competence", true, 1)
	assert.Greater(t, l.Strength("hana", PersonID("taro")), 0.0)
	assert.Less(t, l.Strength("hana", PersonID("taro")), direct.Strength("hana", PersonID("taro")))
}

func TestFromExperienceSkipsParties(t *testing.T) {
	m, _ := newMill(entropy.NewSequence(0.0))
	m.Register("patient", agents.SocialType)

	got := m.FromExperience("patient", "carer", CaregivingSkill, true, 0.8,
		[]string{"patient", "carer", "a", "b"})
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a"}, got[0].Witnesses)
	assert.Equal(t, []string{"b"}, got[1].Witnesses)
	for _, r := range got {
		assert.Equal(t, "carer", r.Target)
		assert.Equal(t, DirectExperience, r.Origin)
	}
}

func TestDecayAndRemoval(t *testing.T) {
	m, _ := newMill(entropy.NewSequence(0.0, 0.5, 0.0))
	m.Register("s", agents.SocialType)
	m.SetDay(0)
	r, ok := m.FromInteraction(Interaction{Speaker: "s", Listener: "l", Subject: "t", Category: Kindness, Positive: true, Intensity: 0.3})
	require.True(t, ok)

	for day := 1; day <= 7; day++ {
		assert.Equal(t, 0, m.Decay(day))
		assert.InDelta(t, 0.3, r.Intensity, 1e-12, "no decay until older than 7 days")
	}

	assert.Equal(t, 0, m.Decay(8))
	assert.InDelta(t, 0.27, r.Intensity, 1e-12)
	m.Decay(9)
	m.Decay(10)
	assert.InDelta(t, 0.3*0.9*0.9*0.9, r.Intensity, 1e-12)
	assert.Len(t, m.Active(), 1)

	// 0.2187 → 0.19683 falls under the floor.
	assert.Equal(t, 1, m.Decay(11))
	assert.Empty(t, m.Active())
	assert.Len(t, m.History(), 1, "history is never pruned")
}

func TestFaintYoungRumorSurvives(t *testing.T) {
	m, _ := newMill(entropy.NewSeeded(1))
	m.Restore([]*Rumor{{ID: "r", Target: "t", Source: "s", Intensity: 0.15, Day: 5}})

	assert.Equal(t, 0, m.Decay(6))
	assert.Equal(t, 0, m.Decay(12))
	require.Len(t, m.Active(), 1)
	assert.Equal(t, 0.15, m.Active()[0].Intensity)

	// Day 13 is past the decay age: 0.135 is under the floor.
	assert.Equal(t, 1, m.Decay(13))
	assert.Empty(t, m.Active())
}

func TestSpreadAttenuates(t *testing.T) {
	m, _ := newMill(entropy.NewSeeded(1))
	names := []string{"a", "b", "c", "d"}
	for _, n := range names {
		m.Register(n, agents.SocialType)
	}
	for i := 0; i < 50; i++ {
		m.FromInteraction(Interaction{Speaker: "a", Listener: "b", Subject: "c", Category: HuntingSkill, Positive: true, Intensity: 1})
	}

	weights := Weights{"a": {"d": 5, "b": 0.01}, "b": {"d": 5, "a": 0.01}}
	var spread []*Rumor
	for i := 0; i < 20; i++ {
		spread = append(spread, m.Spread(names, weights)...)
	}
	require.NotEmpty(t, spread)
	for _, r := range spread {
		assert.Equal(t, Spread, r.Origin)
		assert.Equal(t, "c", r.Target)
		assert.LessOrEqual(t, r.Intensity, 0.9+1e-12)
		assert.NotEqual(t, "c", r.Witnesses[0], "the target never hears about themselves")
		assert.NotEqual(t, r.Source, r.Witnesses[0])
	}
}

func TestSpreadFavoursCloseListeners(t *testing.T) {
	rng := entropy.NewSeeded(7)
	names := []string{"a", "b", "c", "d"}
	weights := Weights{"a": {"b": 8, "c": 1, "d": 1}}

	heard := map[string]int{}
	for i := 0; i < 2000; i++ {
		m, _ := newMill(rng)
		for _, n := range names {
			m.Register(n, agents.SocialType)
		}
		m.Restore([]*Rumor{{ID: "r", Target: "t", Category: HuntingSkill, Positive: true,
			Intensity: 1, Source: "a", Witnesses: []string{"a"}}})
		for _, r := range m.Spread(names, weights) {
			assert.Equal(t, "a", r.Source)
			heard[r.Witnesses[0]]++
		}
	}

	total := heard["b"] + heard["c"] + heard["d"]
	require.Greater(t, total, 500)
	assert.InDelta(t, 0.8, float64(heard["b"])/float64(total), 0.06)
	assert.Greater(t, heard["b"], 3*heard["c"])
	assert.Greater(t, heard["b"], 3*heard["d"])
}

func TestSpreadWithoutRumors(t *testing.T) {
	m, _ := newMill(entropy.NewSeeded(1))
	assert.Nil(t, m.Spread([]string{"a", "b"}, nil))
}

func TestAggregateReputationSmoothing(t *testing.T) {
	m, _ := newMill(entropy.NewSequence(0.0, 0.5, 0.0))
	m.Register("s", agents.SocialType)
	m.Register("t", agents.Gentle)

	m.FromInteraction(Interaction{Speaker: "s", Listener: "l", Subject: "t", Category: HuntingSkill, Positive: true, Intensity: 1})
	m.FromInteraction(Interaction{Speaker: "s", Listener: "l", Subject: "t", Category: HuntingSkill, Positive: false, Intensity: 1})
	m.FromInteraction(Interaction{Speaker: "s", Listener: "l", Subject: "t", Category: HuntingSkill, Positive: true, Intensity: 1})

	before := m.Reputation("t", HuntingSkill)
	m.AggregateReputation()
	after := m.Reputation("t", HuntingSkill)

	// Equal weights: (0.8+0.2+0.8)/3 = 0.6.
	target := 0.6
	assert.InDelta(t, before*0.7+target*0.3, after, 1e-9)
	assert.LessOrEqual(t, math.Abs(after-before), 0.3*math.Abs(target-before)+1e-12)
	assert.Equal(t, 0.5, m.Reputation("t", Kindness))

	for i := 0; i < 30; i++ {
		m.AggregateReputation()
	}
	assert.InDelta(t, 0.6, m.Reputation("t", HuntingSkill), 1e-3)
	assert.Contains(t, m.ReputationSummary("t"), HuntingSkill)
	assert.NotContains(t, m.ReputationSummary("t"), Kindness)
}

func TestStats(t *testing.T) {
	m, _ := newMill(entropy.NewSequence(0.0))
	m.Register("s", agents.SocialType)
	m.FromInteraction(Interaction{Speaker: "s", Listener: "l", Subject: "t", Category: Leadership, Positive: true, Intensity: 1})
	m.FromInteraction(Interaction{Speaker: "s", Listener: "l", Subject: "u", Category: Leadership, Positive: true, Intensity: 1})
	m.FromInteraction(Interaction{Speaker: "s", Listener: "l", Subject: "u", Category: Leadership, Positive: true, Intensity: 1})

	st := m.Stats()
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, "u", st.MostRumored)
	assert.Equal(t, "s", st.MostActiveVoice)
}

func TestUnknownPersonalityUsesDefault(t *testing.T) {
	m, _ := newMill(entropy.NewSeeded(1))
	m.Register("b", agents.Balanced)
	assert.Equal(t, 0.3, m.Propensity("b"))
	assert.Equal(t, 0.3, m.Propensity("nobody"))
	assert.Equal(t, "general_competence", TrustDomain("juggling"))
	assert.Equal(t, CraftingSkill, CategoryFor(agents.Carpentry))
}

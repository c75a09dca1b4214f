package activity

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/entropy"
	"github.com/talgya/hamlet/internal/inertia"
	"github.com/talgya/hamlet/internal/social"
	"github.com/talgya/hamlet/internal/tuning"
)

// CareAction is what a caregiver does at the bedside.
type CareAction string

const (
	Visit        CareAction = "visit_bedside"
	BringFood    CareAction = "bring_food"
	Medicine     CareAction = "bring_medicine"
	Emotional    CareAction = "emotional_support"
	PhysicalCare CareAction = "physical_care"
	Overnight    CareAction = "stay_overnight"
	Prayer       CareAction = "prayer_healing"
	Storytelling CareAction = "storytelling"
)

// careBase is the base effectiveness of each action.
var careBase = map[CareAction]float64{
	Visit:        0.3,
	BringFood:    0.5,
	Medicine:     0.6,
	Emotional:    0.4,
	PhysicalCare: 0.7,
	Overnight:    0.9,
	Prayer:       0.2,
	Storytelling: 0.3,
}

// careBonus is how readily each temperament tends the sick.
var careBonus = map[agents.Personality]float64{
	agents.Caring:      0.4,
	agents.Helpful:     0.35,
	agents.Gentle:      0.3,
	agents.Cooperative: 0.25,
	agents.SocialType:  0.2,
	agents.Brave:       0.15,
	agents.Cautious:    0.1,
	agents.Aggressive:  0.05,
	agents.Competitive: 0.0,
}

const (
	defaultCareBonus = 0.1
	minWillingness   = 0.2
	sympathyChance   = 0.3
	sympathyBonus    = 0.3
	careHeal         = 0.2
	careClearChance  = 0.6
	careSuccessAbove = 0.7
)

// Severity rates how badly a patient needs care, in [0, 1].
func Severity(p *agents.Villager) float64 {
	switch p.Injury {
	case agents.InjurySevere:
		return 1.0
	case agents.InjuryLight:
		return 0.5
	}
	return tuning.Unit(1 - p.Health)
}

// CareRequest asks a caregiver to tend a patient.
type CareRequest struct {
	Caregiver        *agents.Villager
	Patient          *agents.Villager
	MultiplePatients bool
}

// Infirmary resolves caregiving.
type Infirmary struct {
	kit *Kit
}

// NewInfirmary creates an infirmary.
func NewInfirmary(k *Kit) *Infirmary {
	return &Infirmary{kit: k}
}

// relationship is how close the caregiver feels to the patient, in [0, 1].
func (f *Infirmary) relationship(c, p *agents.Villager) float64 {
	return tuning.Unit(f.kit.Ledger.Strength(c.Name, social.PersonID(p.Name)))
}

// Willingness is how much the caregiver wants to help. It grows with closeness
// and with the patient's plight and shrinks when the caregiver is in poor
// shape. Strangers sometimes get help out of plain sympathy.
func (f *Infirmary) Willingness(c, p *agents.Villager) float64 {
	rel := f.relationship(c, p)
	bonus, ok := careBonus[c.Personality]
	if !ok {
		bonus = defaultCareBonus
	}
	w := rel*0.7 + bonus + Severity(p)*0.2
	w *= (c.Health + tuning.Unit(c.Energy)) / 2
	if rel < 0.2 && f.kit.Rand.Float64() < sympathyChance {
		w += sympathyBonus
	}
	return math.Min(1, w)
}

// Choose returns the most willing fit caregiver for a patient, if anyone
// clears the willingness bar.
func (f *Infirmary) Choose(p *agents.Villager, candidates []*agents.Villager) (*agents.Villager, float64, bool) {
	var best *agents.Villager
	bestW := minWillingness
	for _, c := range candidates {
		if c == p || !f.kit.canWork(c, agents.Caregiving, 1) {
			continue
		}
		if w := f.Willingness(c, p); w > bestW {
			best, bestW = c, w
		}
	}
	return best, bestW, best != nil
}

// ChooseAction picks a bedside action by how close the two are.
func ChooseAction(rng entropy.Source, rel float64) CareAction {
	var choices []CareAction
	switch {
	case rel > 0.8:
		choices = []CareAction{Overnight, PhysicalCare, Emotional}
	case rel > 0.5:
		choices = []CareAction{BringFood, Visit, Emotional, Storytelling}
	case rel > 0.2:
		choices = []CareAction{BringFood, Visit, Medicine}
	default:
		choices = []CareAction{Visit, Medicine, Prayer}
	}
	a, _ := entropy.Pick(rng, choices)
	return a
}

// CareEffectiveness scores an action given willingness and closeness.
func CareEffectiveness(a CareAction, willingness, rel float64) float64 {
	e := careBase[a] * (0.5 + willingness*0.5) * (0.7 + rel*0.3)
	return math.Min(1, e)
}

// Resolve tends one patient. The patient gains health and a light injury may
// clear; the visit counts as a success when it clears or is highly effective.
func (f *Infirmary) Resolve(req CareRequest) Outcome {
	k := f.kit
	c, p := req.Caregiver, req.Patient
	if c == nil || p == nil || c == p {
		return noOp(agents.Caregiving, nameOf(c), "no one to care for")
	}
	if !k.canWork(c, agents.Caregiving, 1) {
		return noOp(agents.Caregiving, []string{c.Name}, "caregiver unfit to work")
	}

	rel := f.relationship(c, p)
	willing := f.Willingness(c, p)
	action := ChooseAction(k.Rand, rel)
	eff := CareEffectiveness(action, willing, rel)

	o := Outcome{Activity: agents.Caregiving, Actors: []string{c.Name}, Target: p.Name, Result: string(action), Quality: eff}
	severe := p.Injury == agents.InjurySevere
	lifeThreatening := severe || p.Health < 0.3
	illness := !p.Injured()

	p.Heal(careHeal)
	cleared := false
	if p.Injury == agents.InjuryLight && k.Rand.Float64() < careClearChance {
		cleared = p.ClearInjury()
	}
	o.Success = cleared || eff > careSuccessAbove
	k.spend(c, agents.Caregiving, 1)

	k.learn(&o, c.Name, agents.Caregiving, inertia.Context{
		Success:        o.Success,
		Effectiveness:  inertia.Of(eff),
		Emergency:      severe,
		PeopleAffected: 1,
		HighStakes:     lifeThreatening,
		Care: inertia.CareFlags{
			LifeThreatening:     lifeThreatening,
			PatientRecovery:     cleared,
			MultiplePatients:    req.MultiplePatients,
			DiagnosisDifficulty: illness,
		},
	})
	k.Ledger.UpdateExperience(c.Name, agents.Caregiving, "sickbed", o.Success, eff)

	// The patient judges the care and warms to the carer either way.
	k.judge(p.Name, c.Name, social.TrustDomain(social.CaregivingSkill), o.Success, eff)
	kind := social.NeutralInteraction
	if o.Success {
		kind = social.PositiveInteraction
	}
	k.Ledger.UpdateRelationship(p.Name, c.Name, kind)

	k.roll(&o, []*agents.Villager{c}, "caregiving", o.Success, 1)

	category := social.CaregivingSkill
	if action == Overnight || action == Emotional {
		category = social.Kindness
	}
	k.tell(&o, p.Name, c.Name, category, o.Success, math.Max(eff, 0.3), k.Village)

	if cleared {
		agents.AddMemory(p, k.Day, c.Name+" nursed me back on my feet", 0.6)
	}
	o.Description = fmt.Sprintf("%s cared for %s (%s, effectiveness %.2f)", c.Name, p.Name, action, eff)
	slog.Debug("care resolved", "caregiver", c.Name, "patient", p.Name, "action", string(action), "effectiveness", eff, "cleared", cleared)
	return o
}

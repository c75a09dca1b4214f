// Package activity resolves the village's work: hunting, cooking, caregiving
// and carpentry. Every resolver follows the same sequence. It rolls success
// from skill and the task, scores the result, feeds the inertia engine,
// moves goods in and out of the stores, rolls for injuries, updates trust
// and lets witnesses start rumors. Resolvers never fail; an impossible task
// comes back as a no-op or degraded Outcome.
package activity

import (
	"slices"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/entropy"
	"github.com/talgya/hamlet/internal/inertia"
	"github.com/talgya/hamlet/internal/social"
	"github.com/talgya/hamlet/internal/tuning"
)

// Kit is the shared village state every resolver reads and mutates.
type Kit struct {
	Tuning  tuning.Tuning
	Inertia *inertia.Engine
	Ledger  *social.Ledger
	Rumors  *social.RumorMill
	Stores  *economy.Stores
	Rand    entropy.Source
	Day     int
	Village []string // everyone who may hear about what happens
}

// Outcome is the structured record of one resolved activity.
type Outcome struct {
	Activity agents.Activity `json:"activity"`
	Actors   []string        `json:"actors"`
	Target   string          `json:"target,omitempty"` // prey, dish, patient or project
	Success  bool            `json:"success"`
	Result   string          `json:"result"`
	Quality  float64         `json:"quality"`

	FoodGained    float64 `json:"food_gained,omitempty"`
	FoodUsed      float64 `json:"food_used,omitempty"`
	MaterialsUsed float64 `json:"materials_used,omitempty"`
	Happiness     float64 `json:"happiness,omitempty"` // village mood delta

	Inertia   map[string]float64 `json:"inertia,omitempty"`
	Injuries  []Wound            `json:"injuries,omitempty"`
	Degraded  bool               `json:"degraded,omitempty"`
	NoOp      bool               `json:"no_op,omitempty"`
	Completed bool               `json:"completed,omitempty"`
	Defaulted []string           `json:"defaulted,omitempty"`
	Rumors    int                `json:"rumors,omitempty"`

	Description string `json:"description"`
}

// Injured reports whether anyone was hurt.
func (o *Outcome) Injured() bool {
	return len(o.Injuries) > 0
}

func noOp(a agents.Activity, actors []string, why string) Outcome {
	return Outcome{Activity: a, Actors: actors, NoOp: true, Result: "no_op", Description: why}
}

// learn feeds one villager's experience to the inertia engine and records
// the new value on the outcome.
func (k *Kit) learn(o *Outcome, name string, a agents.Activity, ctx inertia.Context) {
	step := k.Inertia.Apply(name, a, ctx, k.Tuning.Inertia.TimeDecay)
	if o.Inertia == nil {
		o.Inertia = make(map[string]float64)
	}
	o.Inertia[name] = step.After
	for _, d := range step.Defaulted {
		if !slices.Contains(o.Defaulted, d) {
			o.Defaulted = append(o.Defaulted, d)
		}
	}
}

// EffectiveSkill is base skill plus a quarter of the built-up inertia.
func (k *Kit) EffectiveSkill(v *agents.Villager, a agents.Activity) float64 {
	return v.Skill(a) + 0.25*k.Inertia.Inertia(v.Name, a)
}

// spend books the session's energy on a villager.
func (k *Kit) spend(v *agents.Villager, a agents.Activity, share float64) {
	v.ConsumeEnergy(k.Tuning.Village, a, k.Tuning.Village.Cost(string(a))*share)
}

// canWork reports whether a villager can afford a session of a.
func (k *Kit) canWork(v *agents.Villager, a agents.Activity, share float64) bool {
	return v != nil && v.CanWork(k.Tuning.Village, k.Tuning.Village.Cost(string(a))*share)
}

// tell lets experiencer turn a first-hand impression of target into rumors
// told to the rest of the village.
func (k *Kit) tell(o *Outcome, experiencer, target string, c social.Category, positive bool, intensity float64, village []string) {
	if k.Rumors == nil || experiencer == "" {
		return
	}
	k.Rumors.SetDay(k.Day)
	o.Rumors += len(k.Rumors.FromExperience(experiencer, target, c, positive, intensity, village))
}

// judge applies the trust rule shared by every resolver. Only a clear success
// or a clear failure moves truster's trust in target.
func (k *Kit) judge(truster, target, domain string, success bool, effectiveness float64) {
	if truster == "" || truster == target {
		return
	}
	switch {
	case success && effectiveness > 0.6:
		k.Ledger.UpdateTrustThroughInteraction(truster, target, domain, true, effectiveness)
	case !success && effectiveness < 0.4:
		k.Ledger.UpdateTrustThroughInteraction(truster, target, domain, false, effectiveness)
	}
}

func names(vs []*agents.Villager) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Name)
	}
	return out
}

// others returns list without the excluded names.
func others(list []string, exclude ...string) []string {
	out := make([]string, 0, len(list))
	for _, x := range list {
		if !slices.Contains(exclude, x) {
			out = append(out, x)
		}
	}
	return out
}

package activity

import (
	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/entropy"
	"github.com/talgya/hamlet/internal/tuning"
)

// Wound is an injury handed out by a resolver.
type Wound struct {
	Name     string             `json:"name"`
	Severity agents.InjuryState `json:"severity"`
	Days     int                `json:"days,omitempty"`
}

// InjuryRisk returns the light and severe injury probabilities for one
// session of an activity profile. Risk grows linearly with fatigue and is
// capped per severity. Unknown profiles carry no risk.
func InjuryRisk(cfg tuning.Injury, profile string, success bool, fatigue float64) (light, severe float64) {
	p, ok := cfg.Profiles[profile]
	if !ok {
		return 0, 0
	}
	lr, sr := p.LightSuccess, p.SevereSuccess
	if !success {
		lr, sr = p.LightFailure, p.SevereFailure
	}
	f := tuning.Unit(fatigue)
	light = tuning.Clamp(lr.Base+f*lr.Fatigue, 0, cfg.LightCap)
	severe = tuning.Clamp(sr.Base+f*sr.Fatigue, 0, cfg.SevereCap)
	return light, severe
}

// Injuries rolls and applies post-activity injuries.
type Injuries struct {
	cfg tuning.Injury
	rng entropy.Source
}

// NewInjuries creates an injury roller.
func NewInjuries(cfg tuning.Injury, rng entropy.Source) *Injuries {
	return &Injuries{cfg: cfg, rng: rng}
}

// Roll draws the injury outcome for one villager after a session. mod scales
// both risks (bad weather raises it) before the caps apply. Severe is checked
// first.
func (in *Injuries) Roll(v *agents.Villager, profile string, success bool, mod float64) (Wound, bool) {
	light, severe := InjuryRisk(in.cfg, profile, success, v.Fatigue)
	if mod > 0 {
		light = tuning.Clamp(light*mod, 0, in.cfg.LightCap)
		severe = tuning.Clamp(severe*mod, 0, in.cfg.SevereCap)
	}
	switch {
	case in.rng.Float64() < severe:
		return in.Apply(v, true), true
	case in.rng.Float64() < light:
		return in.Apply(v, false), true
	}
	return Wound{}, false
}

// Apply injures v directly. Severe injuries last a random number of days.
func (in *Injuries) Apply(v *agents.Villager, severe bool) Wound {
	if !severe {
		v.Injure(in.cfg, false, 0)
		return Wound{Name: v.Name, Severity: v.Injury}
	}
	days := entropy.IntBetween(in.rng, in.cfg.SevereDaysMin, in.cfg.SevereDaysMax)
	v.Injure(in.cfg, true, days)
	return Wound{Name: v.Name, Severity: agents.InjurySevere, Days: days}
}

// injuries returns the kit's roller.
func (k *Kit) injuries() *Injuries {
	return NewInjuries(k.Tuning.Injury, k.Rand)
}

// roll rolls injuries for every worker and records them on the outcome.
func (k *Kit) roll(o *Outcome, workers []*agents.Villager, profile string, success bool, mod float64) {
	in := k.injuries()
	for _, v := range workers {
		if w, hurt := in.Roll(v, profile, success, mod); hurt {
			o.Injuries = append(o.Injuries, w)
			if w.Severity == agents.InjurySevere {
				agents.AddMemory(v, k.Day, "badly hurt while "+string(o.Activity), 0.8)
			}
		}
	}
}

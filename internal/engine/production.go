// Morning production: hunger, hunting, cooking and carpentry.
package engine

import (
	"sort"

	"github.com/talgya/hamlet/internal/activity"
	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/entropy"
)

// available returns the villagers who can afford a session of a.
func (s *Simulation) available(a agents.Activity) []*agents.Villager {
	cost := s.Tuning.Village.Cost(string(a))
	var out []*agents.Villager
	for _, v := range s.Villagers {
		if v.CanWork(s.Tuning.Village, cost) {
			out = append(out, v)
		}
	}
	return out
}

// bestAt orders villagers by effective skill, tired ones counting for less.
func (s *Simulation) bestAt(vs []*agents.Villager, a agents.Activity) []*agents.Villager {
	out := append([]*agents.Villager(nil), vs...)
	score := func(v *agents.Villager) float64 {
		return s.kit.EffectiveSkill(v, a) * (1 - v.Fatigue*0.3)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return score(out[i]) > score(out[j])
	})
	return out
}

// stepHunger makes everyone hungrier, the tired more so.
func (s *Simulation) stepHunger(_ string, _ *DayReport) {
	for _, v := range s.Villagers {
		v.GetHungry(s.Tuning.Village.MorningHunger + v.Fatigue*0.05)
	}
}

// stepHunting sends a random party of fit villagers out.
func (s *Simulation) stepHunting(phase string, r *DayReport) {
	fit := s.available(agents.Hunting)
	if len(fit) == 0 {
		return
	}
	n := min(s.Tuning.Village.MaxHunters, len(fit))
	party := make([]*agents.Villager, 0, n)
	for _, i := range entropy.Sample(s.rng, len(fit), n) {
		party = append(party, fit[i])
	}
	o := s.Hunting.Resolve(activity.HuntRequest{
		Hunters: party,
		Weather: s.Today,
		Crisis:  r.Crisis,
	})
	s.record(r, phase, o)
}

// stepCooking has the best available cook feed the whole village.
func (s *Simulation) stepCooking(phase string, r *DayReport) {
	if s.Stores.Quantity(economy.GoodFood) <= 0 {
		return
	}
	cooks := s.bestAt(s.available(agents.Cooking), agents.Cooking)
	if len(cooks) == 0 {
		return
	}

	occasion := activity.Daily
	switch {
	case s.anyInjured():
		occasion = activity.Recovery
	case s.Happiness > 0.75 && s.Day%7 == 0:
		occasion = activity.Celebration
	}
	o := s.Kitchen.Resolve(activity.CookRequest{
		Cook:     cooks[0],
		Diners:   s.Villagers,
		Occasion: occasion,
		Crisis:   s.Stores.Quantity(economy.GoodFood) < s.Tuning.Village.CrisisFood*2,
	})
	s.record(r, phase, o)
}

// stepCarpentry keeps ongoing projects moving and, on some days, takes on
// the most urgent new request.
func (s *Simulation) stepCarpentry(phase string, r *DayReport) {
	for _, p := range s.Workshop.Ongoing() {
		lead, helpers := s.crew(p)
		if lead == nil {
			continue
		}
		s.record(r, phase, s.Workshop.ContinueWork(p, lead, helpers))
	}

	if s.rng.Float64() >= s.Tuning.Village.CarpentryChance {
		return
	}
	reqs := s.Workshop.Requests(s.names(), s.Happiness, r.Crisis)
	if len(reqs) == 0 {
		return
	}
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].Urgency > reqs[j].Urgency })

	carpenters := s.bestAt(s.available(agents.Carpentry), agents.Carpentry)
	if len(carpenters) == 0 {
		return
	}
	lead := carpenters[0]
	var helpers []*agents.Villager
	for _, v := range carpenters[1:] {
		if len(helpers) == 2 {
			break
		}
		if v.Skill(agents.Carpentry) > 0.5 {
			helpers = append(helpers, v)
		}
	}
	s.record(r, phase, s.Workshop.Take(lead, reqs[0], helpers))
}

// crew finds who works on a project today. When the lead cannot work, the
// first fit helper takes over for the day.
func (s *Simulation) crew(p *activity.OngoingProject) (*agents.Villager, []*agents.Villager) {
	cost := s.Tuning.Village.Cost(string(agents.Carpentry))
	var fit []*agents.Villager
	for _, name := range append([]string{p.Lead}, p.Helpers...) {
		if v, ok := s.index[name]; ok && v.CanWork(s.Tuning.Village, cost) {
			fit = append(fit, v)
		}
	}
	if len(fit) == 0 {
		return nil, nil
	}
	return fit[0], fit[1:]
}

func (s *Simulation) anyInjured() bool {
	for _, v := range s.Villagers {
		if v.Injured() {
			return true
		}
	}
	return false
}

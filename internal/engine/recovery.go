// Evening: meals, nightly recovery, word-of-mouth and rest.
package engine

import (
	"fmt"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/entropy"
)

const (
	mealRelief       = 0.2
	shortageRelief   = 0.5
	nightlyHeal      = 0.1
	lightClearChance = 0.3
	lightClearHeal   = 0.2
	happinessDrift   = 0.05
)

// stepMeals feeds the village from the stores. When there is not enough,
// what there is gets shared out and everyone goes to bed hungrier.
func (s *Simulation) stepMeals(phase string, r *DayReport) {
	n := len(s.Villagers)
	if n == 0 {
		return
	}
	need := s.Tuning.Village.FoodPerVillager * float64(n)
	took, full := s.Stores.Withdraw(economy.GoodFood, need)
	if full {
		for _, v := range s.Villagers {
			v.Eat(mealRelief)
		}
		return
	}

	relief := took / float64(n) * shortageRelief
	for _, v := range s.Villagers {
		v.Eat(relief)
	}
	s.adjustHappiness(-0.05)
	s.emit(r, Event{
		Phase:       phase,
		Category:    CategoryShortage,
		Description: fmt.Sprintf("food ran short: %.1f of %.1f needed", took, need),
		Meta:        map[string]any{"needed": need, "available": took},
	})
}

// stepRecovery lets the healthy regain strength, counts down severe injuries
// and gives light injuries a chance to clear.
func (s *Simulation) stepRecovery(phase string, r *DayReport) {
	for _, v := range s.Villagers {
		switch v.Injury {
		case agents.InjuryNone:
			v.Heal(nightlyHeal)
		case agents.InjurySevere:
			if v.TickRecovery() {
				agents.AddMemory(v, s.Day, "recovered from a bad injury", 0.7)
				s.emit(r, Event{
					Phase:       phase,
					Category:    CategoryRecovery,
					Description: v.Name + " has recovered from a bad injury",
					Actors:      []string{v.Name},
				})
			}
		case agents.InjuryLight:
			if entropy.Chance(s.rng, lightClearChance) && v.ClearInjury() {
				v.Heal(lightClearHeal)
				s.emit(r, Event{
					Phase:       phase,
					Category:    CategoryRecovery,
					Description: v.Name + " is back on their feet",
					Actors:      []string{v.Name},
				})
			}
		}
	}
}

// stepRumors runs a round of word-of-mouth, ages old rumors and folds what
// is being said into reputations.
func (s *Simulation) stepRumors(phase string, r *DayReport) {
	spread := s.Rumors.Spread(s.names(), s.relationshipWeights())
	for _, rumor := range spread {
		s.emit(r, Event{
			Phase:       phase,
			Category:    CategoryRumor,
			Description: rumor.Text(),
			Actors:      append([]string{rumor.Source, rumor.Target}, rumor.Witnesses...),
		})
	}
	r.RumorsCreated += len(spread)
	r.RumorsDecayed = s.Rumors.Decay(s.Day)
	s.Rumors.AggregateReputation()
}

// stepRest closes the day. The village gathers a little wood, the mood
// settles back toward its baseline and everyone sleeps.
func (s *Simulation) stepRest(_ string, _ *DayReport) {
	s.Stores.Deposit(economy.GoodMaterials, s.Tuning.Village.MaterialsPerDay)
	s.adjustHappiness((s.Tuning.Village.StartHappiness - s.Happiness) * happinessDrift)
	for _, v := range s.Villagers {
		v.ResetDay(s.Tuning.Village)
	}
}

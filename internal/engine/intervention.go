package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/hamlet/internal/activity"
	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/entropy"
)

// Emergency kinds.
const (
	EmergencyAccident = "accident"
	EmergencyIllness  = "illness"
	EmergencyStorm    = "storm"
)

var emergencyKinds = []string{EmergencyAccident, EmergencyIllness, EmergencyStorm}

// stepEmergency occasionally strikes the village with an accident, an
// illness or a storm that spoils building materials.
func (s *Simulation) stepEmergency(phase string, r *DayReport) {
	if !entropy.Chance(s.rng, s.Tuning.Village.EmergencyChance) {
		return
	}
	kind, _ := entropy.Pick(s.rng, emergencyKinds)
	s.strike(phase, r, kind, "")
}

// strike applies one emergency. An empty victim picks one at random.
func (s *Simulation) strike(phase string, r *DayReport, kind, victim string) (string, error) {
	var v *agents.Villager
	if kind != EmergencyStorm {
		if victim == "" {
			var ok bool
			if v, ok = entropy.Pick(s.rng, s.Villagers); !ok {
				return "", fmt.Errorf("no villagers to strike")
			}
		} else if v = s.index[victim]; v == nil {
			return "", fmt.Errorf("villager %q not found", victim)
		}
	}

	var desc string
	switch kind {
	case EmergencyAccident:
		w := activity.NewInjuries(s.Tuning.Injury, s.rng).Apply(v, false)
		r.NewInjuries++
		agents.AddMemory(v, s.Day, "hurt in an accident", 0.6)
		desc = fmt.Sprintf("%s was hurt in an accident", w.Name)
	case EmergencyIllness:
		v.Health = max(0.2, v.Health-0.4)
		agents.AddMemory(v, s.Day, "fell ill", 0.6)
		desc = fmt.Sprintf("%s fell ill", v.Name)
	case EmergencyStorm:
		lost, _ := s.Stores.Withdraw(economy.GoodMaterials, 1)
		desc = fmt.Sprintf("a storm spoiled %.1f materials", lost)
	default:
		return "", fmt.Errorf("unknown emergency %q", kind)
	}

	s.adjustHappiness(-0.05)
	e := Event{
		Phase:       phase,
		Category:    CategoryEmergency,
		Description: desc,
		Meta:        map[string]any{"kind": kind},
	}
	if v != nil {
		e.Actors = []string{v.Name}
	}
	s.emit(r, e)
	slog.Info("emergency", "kind", kind, "description", desc)
	return desc, nil
}

// ProvisionVillage adds goods to the stores from outside the village.
func (s *Simulation) ProvisionVillage(goodName string, quantity float64) (string, error) {
	g, ok := GoodFromString(goodName)
	if !ok {
		return "", fmt.Errorf("unknown good %q", goodName)
	}
	if quantity <= 0 {
		return "", fmt.Errorf("quantity must be positive, got %g", quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Stores.Deposit(g, quantity)
	desc := fmt.Sprintf("traders arrive bearing %.1f %s", quantity, g)
	s.emit(nil, Event{
		Phase:       "admin",
		Category:    CategoryAdmin,
		Description: desc,
		Meta:        map[string]any{"good": g.String(), "quantity": quantity},
	})

	slog.Info("provision intervention", "good", g.String(), "quantity", quantity)
	return desc, nil
}

// ForceEmergency strikes the village with an emergency right away. victim
// may be empty for a random villager; storms have no victim.
func (s *Simulation) ForceEmergency(kind, victim string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var r DayReport
	desc, err := s.strike("admin", &r, kind, victim)
	if err != nil {
		return "", err
	}
	slog.Info("emergency intervention", "kind", kind, "victim", victim)
	return desc, nil
}

// HealVillager clears a villager's injuries and restores their health.
func (s *Simulation) HealVillager(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.index[name]
	if !ok {
		return "", fmt.Errorf("villager %q not found", name)
	}
	v.Injury = agents.InjuryNone
	v.RecoveryDays = 0
	v.Health = 1

	desc := fmt.Sprintf("a travelling healer tends to %s", name)
	s.emit(nil, Event{
		Phase:       "admin",
		Category:    CategoryAdmin,
		Description: desc,
		Actors:      []string{name},
	})
	slog.Info("heal intervention", "villager", name)
	return desc, nil
}

// GoodFromString maps a good name to economy.Good.
func GoodFromString(name string) (economy.Good, bool) {
	switch name {
	case "food":
		return economy.GoodFood, true
	case "materials":
		return economy.GoodMaterials, true
	}
	return 0, false
}

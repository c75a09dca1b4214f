package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/hamlet/internal/activity"
	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/inertia"
	"github.com/talgya/hamlet/internal/social"
)

// State is a complete copy of the village, detached from the running
// simulation. Inertia history, rumor history and day reports are not part
// of it.
type State struct {
	Day       int     `json:"day"`
	Happiness float64 `json:"happiness"`
	Food      float64 `json:"food"`
	Materials float64 `json:"materials"`

	Villagers  []agents.Villager                      `json:"villagers"`
	Inertia    []inertia.Record                       `json:"inertia"`
	Ledger     []social.Entry                         `json:"ledger"`
	Rumors     []social.Rumor                         `json:"rumors"`
	Reputation map[string]map[social.Category]float64 `json:"reputation"`

	Ongoing    []activity.OngoingProject  `json:"ongoing"`
	Completed  []activity.OngoingProject  `json:"completed"`
	Carpenters []activity.CarpenterRecord `json:"carpenters"`
	Buildings  map[string]float64         `json:"buildings"`

	Events []Event `json:"events"`
}

// Snapshot copies the current state.
func (s *Simulation) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Day:        s.Day,
		Happiness:  s.Happiness,
		Food:       s.Stores.Quantity(economy.GoodFood),
		Materials:  s.Stores.Quantity(economy.GoodMaterials),
		Inertia:    s.Inertia.Records(),
		Ledger:     s.Ledger.Entries(),
		Reputation: s.Rumors.Reputations(),
		Carpenters: s.Workshop.Records(),
		Buildings:  s.Workshop.Buildings(),
		Events:     append([]Event(nil), s.events...),
	}
	for _, v := range s.Villagers {
		st.Villagers = append(st.Villagers, copyVillager(v))
	}
	for _, r := range s.Rumors.Active() {
		cp := *r
		cp.Witnesses = append([]string(nil), r.Witnesses...)
		st.Rumors = append(st.Rumors, cp)
	}
	st.Ongoing = copyProjects(s.Workshop.Ongoing())
	st.Completed = copyProjects(s.Workshop.Completed())
	return st
}

// Restore loads a saved state into a freshly built simulation, replacing its
// roster and stores.
func (s *Simulation) Restore(st State) error {
	if len(st.Villagers) == 0 {
		return fmt.Errorf("restore: state has no villagers")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Villagers = make([]*agents.Villager, 0, len(st.Villagers))
	s.index = make(map[string]*agents.Villager, len(st.Villagers))
	for _, v := range st.Villagers {
		cp := copyVillager(&v)
		s.Villagers = append(s.Villagers, &cp)
		s.index[cp.Name] = &cp
		s.Rumors.Register(cp.Name, cp.Personality)
	}
	s.kit.Village = s.names()

	s.Day = st.Day
	s.kit.Day = st.Day
	s.Rumors.SetDay(st.Day)
	s.Happiness = st.Happiness
	s.Stores.Restore(economy.GoodFood, st.Food)
	s.Stores.Restore(economy.GoodMaterials, st.Materials)
	s.Today = s.Weather.Day(st.Day)

	s.Inertia.Restore(st.Inertia)
	s.Ledger.Restore(st.Ledger)

	rumors := make([]*social.Rumor, len(st.Rumors))
	for i := range st.Rumors {
		r := st.Rumors[i]
		rumors[i] = &r
	}
	s.Rumors.Restore(rumors)
	for name, row := range st.Reputation {
		for c, v := range row {
			s.Rumors.RestoreReputation(name, c, v)
		}
	}

	s.Workshop.Restore(projectPointers(st.Ongoing), projectPointers(st.Completed))
	s.Workshop.RestoreRecords(st.Carpenters)
	s.Workshop.RestoreBuildings(st.Buildings)

	s.events = append([]Event(nil), st.Events...)
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}

	slog.Info("village restored", "day", st.Day, "villagers", len(st.Villagers), "rumors", len(st.Rumors), "projects", len(st.Ongoing))
	return nil
}

func copyProjects(ps []*activity.OngoingProject) []activity.OngoingProject {
	out := make([]activity.OngoingProject, 0, len(ps))
	for _, p := range ps {
		cp := *p
		cp.Helpers = append([]string(nil), p.Helpers...)
		cp.DailyProgress = append([]float64(nil), p.DailyProgress...)
		out = append(out, cp)
	}
	return out
}

func projectPointers(ps []activity.OngoingProject) []*activity.OngoingProject {
	out := make([]*activity.OngoingProject, len(ps))
	for i := range ps {
		p := ps[i]
		out[i] = &p
	}
	return out
}

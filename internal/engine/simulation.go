// Simulation ties the village systems together and runs them one day at a time.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hamlet/internal/activity"
	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/entropy"
	"github.com/talgya/hamlet/internal/inertia"
	"github.com/talgya/hamlet/internal/social"
	"github.com/talgya/hamlet/internal/tuning"
	"github.com/talgya/hamlet/internal/weather"
)

// maxReports is how many day reports are kept in memory.
const maxReports = 30

// Options configure a new Simulation.
type Options struct {
	Population int
	Seed       int64
	Tuning     tuning.Tuning      // zero value means tuning.Default()
	Rand       entropy.Source     // overrides the seeded source
	Villagers  []*agents.Villager // explicit roster; overrides Population
	Activities []agents.Activity  // resolvers the scheduler composes; nil means all
}

// Observer is told about every finished day.
type Observer interface {
	ObserveDay(r DayReport)
}

// Simulation owns the complete village state. Every exported method is safe
// for concurrent use; days themselves run one at a time.
type Simulation struct {
	mu sync.RWMutex

	Tuning    tuning.Tuning
	Villagers []*agents.Villager
	index     map[string]*agents.Villager

	Stores  *economy.Stores
	Inertia *inertia.Engine
	Ledger  *social.Ledger
	Rumors  *social.RumorMill
	Weather *weather.Generator

	Hunting   *activity.Hunting
	Kitchen   *activity.Kitchen
	Infirmary *activity.Infirmary
	Workshop  *activity.Workshop

	Day       int
	Happiness float64
	Today     weather.Conditions

	kit       *activity.Kit
	rng       entropy.Source
	phases    []Phase
	events    []Event
	reports   []DayReport
	observers []Observer
}

// NewSimulation builds a village from options.
func NewSimulation(opts Options) *Simulation {
	cfg := opts.Tuning
	if cfg.Inertia.Max == 0 {
		cfg = tuning.Default()
	}
	rng := opts.Rand
	if rng == nil {
		rng = entropy.NewSeeded(opts.Seed)
	}
	weatherSeed := opts.Seed
	if weatherSeed == 0 {
		weatherSeed = int64(rng.Intn(1<<31-1)) + 1
	}

	roster := opts.Villagers
	if roster == nil {
		roster = agents.NewSpawner(rng).SpawnRoster(opts.Population)
	}

	ledger := social.NewLedger(cfg.Ledger)
	s := &Simulation{
		Tuning:    cfg,
		Villagers: roster,
		index:     make(map[string]*agents.Villager, len(roster)),
		Stores:    economy.NewStores(cfg.Village.StartFood, cfg.Village.StartMaterials),
		Inertia:   inertia.NewEngine(cfg.Inertia),
		Ledger:    ledger,
		Rumors:    social.NewRumorMill(cfg.Rumor, ledger, rng),
		Weather:   weather.NewGenerator(weatherSeed, cfg.Weather),
		Happiness: cfg.Village.StartHappiness,
		rng:       rng,
	}
	for _, v := range roster {
		s.index[v.Name] = v
		s.Rumors.Register(v.Name, v.Personality)
	}

	s.kit = &activity.Kit{
		Tuning:  cfg,
		Inertia: s.Inertia,
		Ledger:  s.Ledger,
		Rumors:  s.Rumors,
		Stores:  s.Stores,
		Rand:    rng,
		Village: s.names(),
	}
	s.Hunting = activity.NewHunting(s.kit)
	s.Kitchen = activity.NewKitchen(s.kit)
	s.Infirmary = activity.NewInfirmary(s.kit)
	s.Workshop = activity.NewWorkshop(s.kit)
	s.phases = Compose(opts.Activities)

	slog.Info("village founded", "villagers", len(roster), "food", cfg.Village.StartFood, "materials", cfg.Village.StartMaterials)
	return s
}

// Observe registers an observer for finished days.
func (s *Simulation) Observe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// SimulateDay runs one full day, morning through evening, and returns the
// report. A day always completes.
func (s *Simulation) SimulateDay() DayReport {
	s.mu.Lock()
	s.Day++
	s.kit.Day = s.Day
	s.kit.Village = s.names()
	s.Rumors.SetDay(s.Day)
	s.Stores.ResetDay()
	s.Today = s.Weather.Day(s.Day)
	s.Hunting.Spawn(weather.MapToSim(s.Today).PreyAbundance)

	r := DayReport{
		Day:       s.Day,
		Weather:   s.Today,
		Crisis:    s.crisis(),
		FoodStart: s.Stores.Quantity(economy.GoodFood),
	}
	for _, p := range s.phases {
		s.runPhase(p, &r)
	}
	s.fillStats(&r)

	s.reports = append(s.reports, r)
	if len(s.reports) > maxReports {
		s.reports = s.reports[len(s.reports)-maxReports:]
	}
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	s.logReport(r)
	for _, o := range observers {
		o.ObserveDay(r)
	}
	return r
}

// Run simulates n days in a row and returns their reports.
func (s *Simulation) Run(n int) []DayReport {
	out := make([]DayReport, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.SimulateDay())
	}
	return out
}

func (s *Simulation) runPhase(p Phase, r *DayReport) {
	crisis := p.CrisisAware && s.crisis()
	for _, st := range p.Steps {
		if crisis && !st.InCrisis {
			continue
		}
		st.Run(s, p.Name, r)
	}
}

// crisis reports whether the stores are below the crisis line.
func (s *Simulation) crisis() bool {
	return s.Stores.Quantity(economy.GoodFood) < s.Tuning.Village.CrisisFood
}

func (s *Simulation) adjustHappiness(delta float64) {
	s.Happiness = tuning.Unit(s.Happiness + delta)
}

func (s *Simulation) names() []string {
	out := make([]string, len(s.Villagers))
	for i, v := range s.Villagers {
		out[i] = v.Name
	}
	return out
}

// fillStats records the village's state at nightfall on the report.
func (s *Simulation) fillStats(r *DayReport) {
	r.Food = s.Stores.Quantity(economy.GoodFood)
	r.Materials = s.Stores.Quantity(economy.GoodMaterials)
	r.Happiness = s.Happiness
	r.RumorsActive = len(s.Rumors.Active())

	for _, v := range s.Villagers {
		switch v.Injury {
		case agents.InjurySevere:
			r.SevereInjured++
		case agents.InjuryLight:
			r.Injured++
		default:
			if v.Health > 0.7 {
				r.Healthy++
			}
		}
	}

	r.AvgInertia = make(map[agents.Activity]float64, len(agents.AllActivities))
	if n := len(s.Villagers); n > 0 {
		for _, a := range agents.AllActivities {
			sum := 0.0
			for _, v := range s.Villagers {
				sum += s.Inertia.Inertia(v.Name, a)
			}
			r.AvgInertia[a] = sum / float64(n)
		}
	}

	buildings := s.Workshop.Buildings()
	if len(buildings) > 0 {
		sum := 0.0
		for _, q := range buildings {
			sum += q
		}
		r.BuildingQuality = sum / float64(len(buildings))
	}
}

func (s *Simulation) logReport(r DayReport) {
	counts := r.CountByCategory()
	slog.Info("daily report",
		"day", humanize.Ordinal(r.Day),
		"weather", r.Weather.Description,
		"crisis", r.Crisis,
		"food", humanize.FtoaWithDigits(r.Food, 2),
		"materials", humanize.FtoaWithDigits(r.Materials, 2),
		"happiness", fmt.Sprintf("%.3f", r.Happiness),
		"healthy", r.Healthy,
		"injured", r.Injured,
		"severe", r.SevereInjured,
		"rumors_new", r.RumorsCreated,
		"rumors_active", r.RumorsActive,
		"events_hunting", counts[CategoryHunting],
		"events_carpentry", counts[CategoryCarpentry],
		"events_injury", counts[CategoryInjury],
	)
	for _, e := range r.Events {
		slog.Debug("event", "phase", e.Phase, "category", e.Category, "description", e.Description)
	}
}

// Villager returns a copy of a villager by name.
func (s *Simulation) Villager(name string) (agents.Villager, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.index[name]
	if !ok {
		return agents.Villager{}, false
	}
	return copyVillager(v), true
}

// Roster returns copies of every villager in roster order.
func (s *Simulation) Roster() []agents.Villager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]agents.Villager, len(s.Villagers))
	for i, v := range s.Villagers {
		out[i] = copyVillager(v)
	}
	return out
}

// RecentEvents returns up to n of the latest events, newest last.
func (s *Simulation) RecentEvents(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.events) {
		n = len(s.events)
	}
	return append([]Event(nil), s.events[len(s.events)-n:]...)
}

// LastReport returns the most recent day report.
func (s *Simulation) LastReport() (DayReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.reports) == 0 {
		return DayReport{}, false
	}
	return s.reports[len(s.reports)-1], true
}

// Reports returns the retained day reports, oldest first.
func (s *Simulation) Reports() []DayReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]DayReport(nil), s.reports...)
}

func copyVillager(v *agents.Villager) agents.Villager {
	out := *v
	out.Skills = make(map[agents.Activity]float64, len(v.Skills))
	for k, x := range v.Skills {
		out.Skills[k] = x
	}
	out.Memories = append([]agents.Memory(nil), v.Memories...)
	return out
}

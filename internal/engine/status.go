// Read-only views of the village for the API, the CLI report and the
// weekly summary.
package engine

import (
	"log/slog"
	"sort"

	"github.com/talgya/hamlet/internal/activity"
	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/social"
	"github.com/talgya/hamlet/internal/weather"
)

// CurrentDay returns the last simulated day, 0 before the first.
func (s *Simulation) CurrentDay() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Day
}

// Status is a point-in-time overview of the village.
type Status struct {
	Day        int                 `json:"day"`
	Date       string              `json:"date"`
	Population int                 `json:"population"`
	Food       float64             `json:"food"`
	Materials  float64             `json:"materials"`
	Happiness  float64             `json:"happiness"`
	Crisis     bool                `json:"crisis"`
	Weather    weather.Conditions  `json:"weather"`
	Injured    int                 `json:"injured"`
	Projects   int                 `json:"projects"`
	Buildings  map[string]float64  `json:"buildings"`
	Gossip     social.MillStats    `json:"gossip"`
	Schedule   map[string][]string `json:"schedule"`
}

// Status returns the village overview.
func (s *Simulation) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Day:        s.Day,
		Date:       SimTime(s.Day),
		Population: len(s.Villagers),
		Food:       s.Stores.Quantity(economy.GoodFood),
		Materials:  s.Stores.Quantity(economy.GoodMaterials),
		Happiness:  s.Happiness,
		Crisis:     s.crisis(),
		Weather:    s.Today,
		Projects:   len(s.Workshop.Ongoing()),
		Buildings:  s.Workshop.Buildings(),
		Gossip:     s.Rumors.Stats(),
		Schedule:   s.Schedule(),
	}
	for _, v := range s.Villagers {
		if v.Injured() {
			st.Injured++
		}
	}
	return st
}

// Profile is everything known about one villager.
type Profile struct {
	Villager   agents.Villager             `json:"villager"`
	Inertia    map[agents.Activity]float64 `json:"inertia"`
	Boundaries social.Summary              `json:"boundaries"`
	Reputation map[social.Category]float64 `json:"reputation"`
	Carpenter  *activity.CarpenterRecord   `json:"carpenter,omitempty"`
	Memories   []agents.Memory             `json:"memories"`
}

// Profile returns a villager's full profile.
func (s *Simulation) Profile(name string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.index[name]
	if !ok {
		return Profile{}, false
	}
	p := Profile{
		Villager:   copyVillager(v),
		Inertia:    make(map[agents.Activity]float64, len(agents.AllActivities)),
		Boundaries: s.Ledger.Summary(name),
		Reputation: s.Rumors.Reputations()[name],
		Memories:   agents.RecentMemories(v, 10),
	}
	for _, a := range agents.AllActivities {
		p.Inertia[a] = s.Inertia.Inertia(name, a)
	}
	if rec, ok := s.Workshop.Record(name); ok {
		p.Carpenter = &rec
	}
	return p, true
}

// ActiveRumors returns copies of the rumors currently circulating, most
// intense first.
func (s *Simulation) ActiveRumors() []social.Rumor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active := s.Rumors.Active()
	out := make([]social.Rumor, len(active))
	for i, r := range active {
		out[i] = *r
		out[i].Witnesses = append([]string(nil), r.Witnesses...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Intensity > out[j].Intensity })
	return out
}

// Projects returns copies of the ongoing and completed building projects.
func (s *Simulation) Projects() (ongoing, completed []activity.OngoingProject) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyProjects(s.Workshop.Ongoing()), copyProjects(s.Workshop.Completed())
}

// WeekSummary totals the last seven retained days.
type WeekSummary struct {
	FromDay       int     `json:"from_day"`
	ToDay         int     `json:"to_day"`
	Hunts         int     `json:"hunts"`
	HuntSuccesses int     `json:"hunt_successes"`
	FoodGained    float64 `json:"food_gained"`
	Meals         int     `json:"meals"`
	CareVisits    int     `json:"care_visits"`
	BuildDays     int     `json:"build_days"`
	Completions   int     `json:"completions"`
	Injuries      int     `json:"injuries"`
	Emergencies   int     `json:"emergencies"`
	Shortages     int     `json:"shortages"`
	Rumors        int     `json:"rumors"`
	Happiness     float64 `json:"happiness"`
}

// WeekSummary summarizes the most recent week of reports.
func (s *Simulation) WeekSummary() WeekSummary {
	reports := s.Reports()
	if len(reports) > DaysPerWeek {
		reports = reports[len(reports)-DaysPerWeek:]
	}
	var w WeekSummary
	if len(reports) == 0 {
		return w
	}
	w.FromDay = reports[0].Day
	w.ToDay = reports[len(reports)-1].Day
	w.Happiness = reports[len(reports)-1].Happiness

	for _, r := range reports {
		w.Injuries += r.NewInjuries
		w.Rumors += r.RumorsCreated
		for _, o := range r.Outcomes {
			if o.NoOp {
				continue
			}
			switch o.Activity {
			case agents.Hunting:
				w.Hunts++
				if o.Success {
					w.HuntSuccesses++
				}
				w.FoodGained += o.FoodGained
			case agents.Cooking:
				w.Meals++
			case agents.Caregiving:
				w.CareVisits++
			case agents.Carpentry:
				w.BuildDays++
				if o.Completed {
					w.Completions++
				}
			}
		}
		counts := r.CountByCategory()
		w.Emergencies += counts[CategoryEmergency]
		w.Shortages += counts[CategoryShortage]
	}
	return w
}

// LogWeek writes the week summary to the log.
func (w WeekSummary) LogWeek() {
	slog.Info("weekly summary",
		"days", []int{w.FromDay, w.ToDay},
		"hunts", w.Hunts,
		"hunt_successes", w.HuntSuccesses,
		"food_gained", w.FoodGained,
		"meals", w.Meals,
		"care_visits", w.CareVisits,
		"build_days", w.BuildDays,
		"completions", w.Completions,
		"injuries", w.Injuries,
		"emergencies", w.Emergencies,
		"shortages", w.Shortages,
		"rumors", w.Rumors,
		"happiness", w.Happiness,
	)
}

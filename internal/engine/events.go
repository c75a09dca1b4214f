package engine

import (
	"github.com/talgya/hamlet/internal/activity"
	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/weather"
)

// Event categories.
const (
	CategoryHunting    = "hunting"
	CategoryCooking    = "cooking"
	CategoryCaregiving = "caregiving"
	CategoryCarpentry  = "carpentry"
	CategoryInjury     = "injury"
	CategoryRecovery   = "recovery"
	CategoryEmergency  = "emergency"
	CategoryShortage   = "shortage"
	CategorySocial     = "social"
	CategoryRumor      = "rumor"
	CategoryAdmin      = "admin"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Event is a notable occurrence in the village.
type Event struct {
	Day         int            `db:"day" json:"day"`
	Phase       string         `db:"phase" json:"phase"`
	Category    string         `db:"category" json:"category"`
	Description string         `db:"description" json:"description"`
	Actors      []string       `db:"-" json:"actors,omitempty"`
	Meta        map[string]any `db:"-" json:"meta,omitempty"`
}

// DayReport is everything that happened on one simulated day, plus the
// village's state at nightfall.
type DayReport struct {
	Day      int                `json:"day"`
	Weather  weather.Conditions `json:"weather"`
	Crisis   bool               `json:"crisis"`
	Outcomes []activity.Outcome `json:"outcomes"`
	Events   []Event            `json:"events"`

	FoodStart float64 `json:"food_start"`
	Food      float64 `json:"food"`
	Materials float64 `json:"materials"`
	Happiness float64 `json:"happiness"`

	Healthy       int `json:"healthy"`
	Injured       int `json:"injured"`
	SevereInjured int `json:"severe_injured"`
	NewInjuries   int `json:"new_injuries"`

	RumorsCreated int `json:"rumors_created"`
	RumorsActive  int `json:"rumors_active"`
	RumorsDecayed int `json:"rumors_decayed"`

	AvgInertia      map[agents.Activity]float64 `json:"avg_inertia"`
	BuildingQuality float64                     `json:"building_quality"`
}

// CountByCategory tallies the report's events.
func (r *DayReport) CountByCategory() map[string]int {
	out := make(map[string]int)
	for _, e := range r.Events {
		out[e.Category]++
	}
	return out
}

// emit records an event on the report and in the simulation's log.
func (s *Simulation) emit(r *DayReport, e Event) {
	if e.Day == 0 {
		e.Day = s.Day
	}
	if r != nil {
		r.Events = append(r.Events, e)
	}
	s.events = append(s.events, e)
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
}

// record adds a resolver outcome to the report and turns it into an event.
// No-ops are kept on the report but not logged as events.
func (s *Simulation) record(r *DayReport, phase string, o activity.Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.RumorsCreated += o.Rumors
	r.NewInjuries += len(o.Injuries)
	if o.Happiness != 0 {
		s.adjustHappiness(o.Happiness)
	}
	if o.NoOp {
		return
	}
	s.emit(r, Event{
		Phase:       phase,
		Category:    string(o.Activity),
		Description: o.Description,
		Actors:      o.Actors,
		Meta: map[string]any{
			"success": o.Success,
			"result":  o.Result,
		},
	})
	for _, w := range o.Injuries {
		desc := w.Name + " was lightly hurt"
		if w.Severity == agents.InjurySevere {
			desc = w.Name + " was badly hurt"
		}
		s.emit(r, Event{
			Phase:       phase,
			Category:    CategoryInjury,
			Description: desc + " while " + string(o.Activity),
			Actors:      []string{w.Name},
			Meta:        map[string]any{"severity": w.Severity.String(), "days": w.Days},
		})
	}
}

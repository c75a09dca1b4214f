// Daily scheduler: a day is an ordered list of phases, each an ordered list
// of steps. Resolver steps are only composed in for enabled activities.
package engine

import (
	"slices"

	"github.com/talgya/hamlet/internal/agents"
)

// Phase names.
const (
	Morning   = "morning"
	Afternoon = "afternoon"
	Evening   = "evening"
)

// Step is one unit of scheduled work within a phase.
type Step struct {
	Name     string
	Activity agents.Activity // resolver it drives; empty for bookkeeping
	InCrisis bool            // still runs when the village is in a food crisis
	Run      func(s *Simulation, phase string, r *DayReport)
}

// Phase is a named part of the day. In a crisis-aware phase only crisis
// steps run while food is short.
type Phase struct {
	Name        string
	CrisisAware bool
	Steps       []Step
}

// Compose builds the day for a set of enabled activities. A nil set enables
// every resolver.
func Compose(enabled []agents.Activity) []Phase {
	on := func(a agents.Activity) bool {
		return enabled == nil || slices.Contains(enabled, a)
	}
	keep := func(steps ...Step) []Step {
		var out []Step
		for _, st := range steps {
			if st.Activity == "" || on(st.Activity) {
				out = append(out, st)
			}
		}
		return out
	}

	return []Phase{
		{
			Name:        Morning,
			CrisisAware: true,
			Steps: keep(
				Step{Name: "hunger", InCrisis: true, Run: (*Simulation).stepHunger},
				Step{Name: "hunting", Activity: agents.Hunting, InCrisis: true, Run: (*Simulation).stepHunting},
				Step{Name: "cooking", Activity: agents.Cooking, Run: (*Simulation).stepCooking},
				Step{Name: "carpentry", Activity: agents.Carpentry, Run: (*Simulation).stepCarpentry},
			),
		},
		{
			Name: Afternoon,
			Steps: keep(
				Step{Name: "caregiving", Activity: agents.Caregiving, Run: (*Simulation).stepCaregiving},
				Step{Name: "emergency", Run: (*Simulation).stepEmergency},
				Step{Name: "gathering", Activity: agents.Social, Run: (*Simulation).stepGathering},
			),
		},
		{
			Name: Evening,
			Steps: keep(
				Step{Name: "meals", Run: (*Simulation).stepMeals},
				Step{Name: "recovery", Run: (*Simulation).stepRecovery},
				Step{Name: "rumors", Run: (*Simulation).stepRumors},
				Step{Name: "rest", Run: (*Simulation).stepRest},
			),
		},
	}
}

// Schedule lists the composed phases and step names.
func (s *Simulation) Schedule() map[string][]string {
	out := make(map[string][]string, len(s.phases))
	for _, p := range s.phases {
		for _, st := range p.Steps {
			out[p.Name] = append(out[p.Name], st.Name)
		}
	}
	return out
}

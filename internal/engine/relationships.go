// Afternoon social life: tending the sick and the village gathering, where
// bonds shift and villagers talk about each other.
package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/talgya/hamlet/internal/activity"
	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/entropy"
	"github.com/talgya/hamlet/internal/inertia"
	"github.com/talgya/hamlet/internal/social"
	"github.com/talgya/hamlet/internal/tuning"
)

// stepCaregiving tends the worst-off patients, one caregiver each.
func (s *Simulation) stepCaregiving(phase string, r *DayReport) {
	var patients []*agents.Villager
	for _, v := range s.Villagers {
		if v.Injured() || v.Health < 0.7 {
			patients = append(patients, v)
		}
	}
	if len(patients) == 0 {
		return
	}
	sort.SliceStable(patients, func(i, j int) bool {
		return activity.Severity(patients[i]) > activity.Severity(patients[j])
	})
	if len(patients) > s.Tuning.Village.MaxPatients {
		patients = patients[:s.Tuning.Village.MaxPatients]
	}

	for _, p := range patients {
		carer, _, ok := s.Infirmary.Choose(p, s.Villagers)
		if !ok {
			s.emit(r, Event{
				Phase:       phase,
				Category:    CategoryCaregiving,
				Description: fmt.Sprintf("nobody could look after %s", p.Name),
				Actors:      []string{p.Name},
			})
			continue
		}
		o := s.Infirmary.Resolve(activity.CareRequest{
			Caregiver:        carer,
			Patient:          p,
			MultiplePatients: len(patients) > 1,
		})
		s.record(r, phase, o)
	}
}

// gatheringShare is how many villagers there are per conversation.
const gatheringShare = 3

// stepGathering pairs villagers up for conversation. Each pair's bond moves
// with how the talk went, the speaker gains social inertia, and the speaker
// may pass on what they think of a third villager.
func (s *Simulation) stepGathering(phase string, r *DayReport) {
	n := len(s.Villagers)
	if n < 2 {
		return
	}
	cost := s.Tuning.Village.Cost(string(agents.Social))
	talks := max(1, n/gatheringShare)
	for i := 0; i < talks; i++ {
		pair := entropy.Sample(s.rng, n, 2)
		a, b := s.Villagers[pair[0]], s.Villagers[pair[1]]
		if !a.CanWork(s.Tuning.Village, cost) {
			continue
		}

		kind := s.conversation(a, b)
		s.Ledger.UpdateRelationship(a.Name, b.Name, kind)
		a.ConsumeEnergy(s.Tuning.Village, agents.Social, cost)

		step := s.Inertia.Apply(a.Name, agents.Social, inertia.Context{
			Success:        kind == social.PositiveInteraction,
			Effectiveness:  inertia.Of(tuning.Unit(0.5 + kind.Valence()/2)),
			Difficulty:     inertia.Of(0.3),
			Collaboration:  true,
			PeopleAffected: 2,
		}, s.Tuning.Inertia.TimeDecay)

		desc := fmt.Sprintf("%s and %s talked", a.Name, b.Name)
		switch kind {
		case social.PositiveInteraction:
			desc = fmt.Sprintf("%s and %s enjoyed each other's company", a.Name, b.Name)
		case social.NegativeInteraction:
			desc = fmt.Sprintf("%s and %s quarrelled", a.Name, b.Name)
		}
		s.emit(r, Event{
			Phase:       phase,
			Category:    CategorySocial,
			Description: desc,
			Actors:      []string{a.Name, b.Name},
			Meta:        map[string]any{"inertia": step.After},
		})

		if rumor, ok := s.talkAbout(a, b); ok {
			r.RumorsCreated++
			s.emit(r, Event{
				Phase:       phase,
				Category:    CategoryRumor,
				Description: rumor.Text(),
				Actors:      []string{a.Name, b.Name, rumor.Target},
			})
		}
	}
}

// conversation decides how a talk between a and b goes. Friends mostly get
// on, people who dislike each other often argue.
func (s *Simulation) conversation(a, b *agents.Villager) social.InteractionKind {
	bond := s.Ledger.Strength(a.Name, social.PersonID(b.Name))
	roll := s.rng.Float64()
	switch {
	case bond < s.Tuning.Ledger.OuterThreshold && roll < 0.5:
		return social.NegativeInteraction
	case roll < 0.4+math.Max(0, bond)*0.5:
		return social.PositiveInteraction
	case roll > 0.95:
		return social.NegativeInteraction
	}
	return social.NeutralInteraction
}

// talkAbout lets a tell b what they think of a third villager, in the
// category where that villager's reputation stands out most.
func (s *Simulation) talkAbout(a, b *agents.Villager) (*social.Rumor, bool) {
	var subjects []string
	for _, v := range s.Villagers {
		if v != a && v != b {
			subjects = append(subjects, v.Name)
		}
	}
	subject, ok := entropy.Pick(s.rng, subjects)
	if !ok {
		return nil, false
	}

	summary := s.Rumors.ReputationSummary(subject)
	if len(summary) == 0 {
		return nil, false
	}
	neutral := s.Tuning.Rumor.NeutralReputation
	cats := make([]social.Category, 0, len(summary))
	for c := range summary {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		di, dj := math.Abs(summary[cats[i]]-neutral), math.Abs(summary[cats[j]]-neutral)
		if di != dj {
			return di > dj
		}
		return cats[i] < cats[j]
	})
	c := cats[0]
	rep := summary[c]

	return s.Rumors.FromInteraction(social.Interaction{
		Speaker:   a.Name,
		Listener:  b.Name,
		Subject:   subject,
		Category:  c,
		Positive:  rep > neutral,
		Intensity: tuning.Unit(math.Abs(rep-neutral) * 2),
		Origin:    social.Witnessed,
	})
}

// relationshipWeights turns the ledger's person-to-person strengths into
// rumor spreading weights. Close friends pass things on readily, people who
// avoid each other rarely talk.
func (s *Simulation) relationshipWeights() social.Weights {
	w := make(social.Weights, len(s.Villagers))
	for _, a := range s.Villagers {
		row := make(map[string]float64, len(s.Villagers))
		for _, b := range s.Villagers {
			if a == b {
				continue
			}
			bond := s.Ledger.Strength(a.Name, social.PersonID(b.Name))
			row[b.Name] = tuning.Clamp(s.Tuning.Rumor.DefaultWeight+bond, 0.05, 1)
		}
		w[a.Name] = row
	}
	return w
}

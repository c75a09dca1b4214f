// Package social tracks how villagers perceive each other: a signed boundary
// strength per (villager, entity) pair, the trust derived from it, and the
// rumors that carry secondhand reputation through the village.
package social

import (
	"sort"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/tuning"
)

// Entity ids live in separate namespaces so that skill, reputation and
// self-confidence never share an entry.
func PersonID(name string) string { return "person:" + name }
func ActivityID(a agents.Activity) string { return "activity:" + string(a) }
func LocationID(place string) string { return "location:" + place }
func ConfidenceID(a agents.Activity) string { return "confidence:" + string(a) }
func SocialConfidenceID(domain string) string { return "social_confidence:" + domain }
func TrustedByID(name string) string { return "trusted_by:" + name }
func DomainID(target, domain string) string { return "domain:" + target + ":" + domain }

// Classification is the derived membership of a boundary entry.
type Classification uint8

const (
	Neutral Classification = iota
	Inner
	Outer
)

// String returns the classification name.
func (c Classification) String() string {
	switch c {
	case Inner:
		return "inner"
	case Outer:
		return "outer"
	default:
		return "neutral"
	}
}

// Entry is one persisted boundary strength.
type Entry struct {
	Agent    string  `db:"agent" json:"agent"`
	Target   string  `db:"target" json:"target"`
	Strength float64 `db:"strength" json:"strength"`
}

// Ledger stores boundary strengths in [-1, 1]. Entries are created lazily on
// first write; unseen entries read as 0.
type Ledger struct {
	cfg      tuning.Ledger
	strength map[string]map[string]float64
}

// NewLedger creates an empty ledger.
func NewLedger(cfg tuning.Ledger) *Ledger {
	return &Ledger{cfg: cfg, strength: make(map[string]map[string]float64)}
}

// Strength returns the boundary strength of agent toward target.
func (l *Ledger) Strength(agent, target string) float64 {
	return l.strength[agent][target]
}

// Record moves a boundary strength by learning rate × valence and returns
// the resulting classification.
func (l *Ledger) Record(agent, target string, valence float64) Classification {
	row := l.strength[agent]
	if row == nil {
		row = make(map[string]float64)
		l.strength[agent] = row
	}
	next := tuning.Clamp(row[target]+l.cfg.LearningRate*valence, -1, 1)
	row[target] = next
	return l.classify(next)
}

// Classify returns the current classification of agent's view of target.
func (l *Ledger) Classify(agent, target string) Classification {
	return l.classify(l.Strength(agent, target))
}

func (l *Ledger) classify(s float64) Classification {
	switch {
	case s > l.cfg.InnerThreshold:
		return Inner
	case s < l.cfg.OuterThreshold:
		return Outer
	default:
		return Neutral
	}
}

// Trust maps evaluator's boundary strength toward the target villager onto
// [0, 1], scaled by a domain multiplier.
func (l *Ledger) Trust(evaluator, target, domain string) float64 {
	s := l.Strength(evaluator, PersonID(target))

	var base float64
	switch l.classify(s) {
	case Inner:
		base = 0.7 + s*0.25
	case Outer:
		base = 0.3 + max(0, (s+1.0)*0.2)
	default:
		base = 0.5 + s*0.3
	}

	mult, ok := l.cfg.DomainMultipliers[domain]
	if !ok {
		mult = 1.0
	}
	return tuning.Unit(base * mult)
}

// Recognize records a third party's public endorsement of target's skill in
// a domain. It feeds target's self-confidence, not anyone's interpersonal trust.
func (l *Ledger) Recognize(target, recognizer, domain string, strength float64) {
	l.Record(target, SocialConfidenceID(domain), strength)
	l.Record(target, TrustedByID(recognizer), strength*0.7)
}

// UpdateExperience records how an activity went for the villager: toward the
// activity itself, the place it happened, and, after a clear success, the
// villager's confidence in that activity.
func (l *Ledger) UpdateExperience(villager string, a agents.Activity, place string, success bool, intensity float64) {
	valence := intensity
	if !success {
		valence = -0.2
	}
	l.Record(villager, ActivityID(a), valence)
	if place != "" {
		l.Record(villager, LocationID(place), valence*0.7)
	}
	if success && intensity > 0.5 {
		l.Record(villager, ConfidenceID(a), valence*1.2)
	}
}

// UpdateTrustThroughInteraction records actor's first-hand experience of
// target in a domain. Failures count a fixed -0.3.
func (l *Ledger) UpdateTrustThroughInteraction(actor, target, domain string, success bool, effectiveness float64) {
	valence := effectiveness
	if !success {
		valence = -0.3
	}
	l.Record(actor, PersonID(target), valence)
	l.Record(actor, DomainID(target, domain), valence)
}

// UpdateRelationship applies a mutual interaction. The second party feels it
// at 80% strength.
func (l *Ledger) UpdateRelationship(a, b string, kind InteractionKind) {
	v := kind.Valence()
	l.Record(a, PersonID(b), v)
	l.Record(b, PersonID(a), v*0.8)
}

// Summary describes one villager's boundary structure.
type Summary struct {
	Inner           int      `json:"inner"`
	Outer           int      `json:"outer"`
	StrongBonds     []string `json:"strong_bonds"`
	StrongAversions []string `json:"strong_aversions"`
	Total           int      `json:"total"`
	Average         float64  `json:"average"`
}

// Summary returns agent's boundary summary with ids sorted.
func (l *Ledger) Summary(agent string) Summary {
	var s Summary
	sum := 0.0
	for target, v := range l.strength[agent] {
		switch l.classify(v) {
		case Inner:
			s.Inner++
		case Outer:
			s.Outer++
		}
		if v > 0.5 {
			s.StrongBonds = append(s.StrongBonds, target)
		}
		if v < -0.5 {
			s.StrongAversions = append(s.StrongAversions, target)
		}
		sum += v
		s.Total++
	}
	if s.Total > 0 {
		s.Average = sum / float64(s.Total)
	}
	sort.Strings(s.StrongBonds)
	sort.Strings(s.StrongAversions)
	return s
}

// Members returns the sorted target ids of agent in the given class.
func (l *Ledger) Members(agent string, c Classification) []string {
	var out []string
	for target, v := range l.strength[agent] {
		if l.classify(v) == c {
			out = append(out, target)
		}
	}
	sort.Strings(out)
	return out
}

// Entries returns every stored strength, sorted.
func (l *Ledger) Entries() []Entry {
	var out []Entry
	for agent, row := range l.strength {
		for target, v := range row {
			out = append(out, Entry{Agent: agent, Target: target, Strength: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Agent != out[j].Agent {
			return out[i].Agent < out[j].Agent
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// Restore loads persisted entries.
func (l *Ledger) Restore(entries []Entry) {
	for _, e := range entries {
		row := l.strength[e.Agent]
		if row == nil {
			row = make(map[string]float64)
			l.strength[e.Agent] = row
		}
		row[e.Target] = tuning.Clamp(e.Strength, -1, 1)
	}
}

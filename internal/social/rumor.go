package social

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/entropy"
	"github.com/talgya/hamlet/internal/tuning"
)

// Origin says how a speaker came to know what they are saying.
type Origin string

const (
	DirectExperience Origin = "direct_experience"
	Witnessed        Origin = "witnessed"
	Spread           Origin = "rumor_spread"
)

// Rumor is a secondhand claim about a villager. Only Intensity changes after
// creation, through decay.
type Rumor struct {
	ID         string   `db:"id" json:"id"`
	Target     string   `db:"target" json:"target"`
	Category   Category `db:"category" json:"category"`
	Content    string   `db:"content" json:"content"`
	Positive   bool     `db:"positive" json:"positive"`
	Intensity  float64  `db:"intensity" json:"intensity"`
	Source     string   `db:"source" json:"source"`
	Confidence float64  `db:"confidence" json:"confidence"`
	Witnesses  []string `db:"-" json:"witnesses"`
	Day        int      `db:"day" json:"day"`
	Origin     Origin   `db:"origin" json:"origin"`
}

// Text renders the rumor as a sentence.
func (r *Rumor) Text() string {
	return fmt.Sprintf("%s says %s %s", r.Source, r.Target, r.Content)
}

// Interaction is a speaker telling a listener something about a subject.
type Interaction struct {
	Speaker   string
	Listener  string
	Subject   string
	Category  Category
	Positive  bool
	Intensity float64
	Origin    Origin
}

// Weights are knower → listener relationship weights used to pick who hears
// a rumor next. Missing pairs use the configured default weight.
type Weights map[string]map[string]float64

// RumorMill creates, spreads and decays rumors and aggregates them into
// per-villager reputation.
type RumorMill struct {
	cfg    tuning.Rumor
	ledger *Ledger
	rng    entropy.Source

	personalities map[string]agents.Personality
	reputation    map[string]map[Category]float64

	day     int
	active  []*Rumor
	history []*Rumor
	created int
}

// NewRumorMill creates a rumor mill writing trust effects into ledger.
func NewRumorMill(cfg tuning.Rumor, ledger *Ledger, rng entropy.Source) *RumorMill {
	return &RumorMill{
		cfg:           cfg,
		ledger:        ledger,
		rng:           rng,
		personalities: make(map[string]agents.Personality),
		reputation:    make(map[string]map[Category]float64),
	}
}

// Register adds a villager with a neutral reputation in every category.
func (m *RumorMill) Register(name string, p agents.Personality) {
	m.personalities[name] = p
	if _, ok := m.reputation[name]; ok {
		return
	}
	rep := make(map[Category]float64, len(Categories))
	for _, c := range Categories {
		rep[c] = m.cfg.NeutralReputation
	}
	m.reputation[name] = rep
}

// SetDay sets the logical day stamped on new rumors.
func (m *RumorMill) SetDay(day int) { m.day = day }

// Propensity returns the gossip propensity of a villager. Unknown speakers
// are treated as gentle.
func (m *RumorMill) Propensity(name string) float64 {
	p, ok := m.personalities[name]
	if !ok {
		p = agents.Gentle
	}
	return GossipPropensity(p, m.cfg.DefaultPropensity)
}

// FromInteraction lets the speaker tell the listener a rumor. The speaker's
// temperament gates whether anything is said at all.
func (m *RumorMill) FromInteraction(in Interaction) (*Rumor, bool) {
	if m.rng.Float64() > m.Propensity(in.Speaker) {
		return nil, false
	}

	confidence := entropy.Uniform(m.rng, m.cfg.ConfidenceMin, m.cfg.ConfidenceMax)
	if in.Origin == DirectExperience {
		confidence += m.cfg.DirectBonus
	}
	content, _ := entropy.Pick(m.rng, templatesFor(in.Category, in.Positive))

	r := &Rumor{
		ID:         uuid.NewString(),
		Target:     in.Subject,
		Category:   in.Category,
		Content:    content,
		Positive:   in.Positive,
		Intensity:  tuning.Unit(in.Intensity),
		Source:     in.Speaker,
		Confidence: tuning.Unit(confidence),
		Witnesses:  []string{in.Listener},
		Day:        m.day,
		Origin:     in.Origin,
	}
	m.active = append(m.active, r)
	m.history = append(m.history, r)
	m.created++

	m.applyTrust(r)
	slog.Debug("rumor created", "speaker", in.Speaker, "listener", in.Listener, "text", r.Text())
	return r, true
}

// applyTrust moves the speaker's trust in the target by a fraction of what
// first-hand experience would have done.
func (m *RumorMill) applyTrust(r *Rumor) {
	strength := r.Intensity * r.Confidence * m.cfg.TrustScale
	if !r.Positive {
		strength = -strength
	}
	m.ledger.Record(r.Source, PersonID(r.Target), strength)
	m.ledger.Record(r.Source, DomainID(r.Target, TrustDomain(r.Category)), strength)
}

// FromExperience fans a first-hand experience out to every potential
// listener other than the experiencer and the target.
func (m *RumorMill) FromExperience(experiencer, target string, c Category, positive bool, intensity float64, listeners []string) []*Rumor {
	var out []*Rumor
	for _, l := range listeners {
		if l == experiencer || l == target {
			continue
		}
		r, ok := m.FromInteraction(Interaction{
			Speaker:   experiencer,
			Listener:  l,
			Subject:   target,
			Category:  c,
			Positive:  positive,
			Intensity: intensity,
			Origin:    DirectExperience,
		})
		if ok {
			out = append(out, r)
		}
	}
	return out
}

// Spread runs one round of word-of-mouth over up to SpreadSample active
// rumors and returns the rumors it produced.
func (m *RumorMill) Spread(names []string, weights Weights) []*Rumor {
	if len(m.active) == 0 {
		return nil
	}

	picked := entropy.Sample(m.rng, len(m.active), m.cfg.SpreadSample)
	sampled := make([]*Rumor, len(picked))
	for i, idx := range picked {
		sampled[i] = m.active[idx]
	}

	var out []*Rumor
	for _, r := range sampled {
		knowers := append([]string{r.Source}, r.Witnesses...)
		knower, _ := entropy.Pick(m.rng, knowers)

		var listeners []string
		var w []float64
		for _, n := range names {
			if n == knower || n == r.Target {
				continue
			}
			listeners = append(listeners, n)
			w = append(w, m.weight(weights, knower, n))
		}
		if len(listeners) == 0 {
			continue
		}
		listener := listeners[entropy.Weighted(m.rng, w)]

		if !entropy.Chance(m.rng, m.Propensity(knower)*r.Intensity) {
			continue
		}
		next, ok := m.FromInteraction(Interaction{
			Speaker:   knower,
			Listener:  listener,
			Subject:   r.Target,
			Category:  r.Category,
			Positive:  r.Positive,
			Intensity: r.Intensity * m.cfg.HopAttenuation,
			Origin:    Spread,
		})
		if ok {
			out = append(out, next)
		}
	}
	return out
}

func (m *RumorMill) weight(weights Weights, from, to string) float64 {
	if row, ok := weights[from]; ok {
		if v, ok := row[to]; ok {
			return v
		}
	}
	return m.cfg.DefaultWeight
}

// Decay ages active rumors as of day. Rumors older than DecayAge lose a fixed
// fraction of intensity per call and are dropped once that leaves them below
// RemoveBelow. Younger rumors are never dropped, however faint.
// Returns how many were removed.
func (m *RumorMill) Decay(day int) int {
	kept := m.active[:0]
	removed := 0
	for _, r := range m.active {
		if day-r.Day > m.cfg.DecayAge {
			r.Intensity *= m.cfg.DecayFactor
			if r.Intensity < m.cfg.RemoveBelow {
				removed++
				continue
			}
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(m.active); i++ {
		m.active[i] = nil
	}
	m.active = kept
	return removed
}

// Active returns the active rumors, oldest first.
func (m *RumorMill) Active() []*Rumor {
	out := make([]*Rumor, len(m.active))
	copy(out, m.active)
	return out
}

// History returns every rumor ever created, oldest first.
func (m *RumorMill) History() []*Rumor {
	out := make([]*Rumor, len(m.history))
	copy(out, m.history)
	return out
}

// Created returns how many rumors have been created.
func (m *RumorMill) Created() int { return m.created }

// Restore reloads persisted active rumors.
func (m *RumorMill) Restore(active []*Rumor) {
	m.active = append(m.active, active...)
	m.history = append(m.history, active...)
}

// MillStats summarizes gossip activity.
type MillStats struct {
	Active          int    `json:"active"`
	Total           int    `json:"total"`
	MostRumored     string `json:"most_rumored,omitempty"`
	MostActiveVoice string `json:"most_active_voice,omitempty"`
}

// Stats returns counts and the most talked-about and most talkative villagers.
func (m *RumorMill) Stats() MillStats {
	targets := map[string]int{}
	sources := map[string]int{}
	for _, r := range m.history {
		targets[r.Target]++
		sources[r.Source]++
	}
	return MillStats{
		Active:          len(m.active),
		Total:           len(m.history),
		MostRumored:     topKey(targets),
		MostActiveVoice: topKey(sources),
	}
}

func topKey(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best, bestN := "", 0
	for _, k := range keys {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best
}

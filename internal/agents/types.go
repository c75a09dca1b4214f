// Package agents provides the villager data model: identity, personality,
// physiology, injury state, per-activity skills and daily work counters.
package agents

// Activity is a kind of work a villager can perform.
type Activity string

const (
	Hunting    Activity = "hunting"
	Caregiving Activity = "caregiving"
	Cooking    Activity = "cooking"
	Carpentry  Activity = "carpentry"
	Social     Activity = "social"
)

// WorkActivities are the activities that have resolvers and skills.
var WorkActivities = []Activity{Hunting, Caregiving, Cooking, Carpentry}

// AllActivities includes social coordination, which only accrues inertia.
var AllActivities = []Activity{Hunting, Caregiving, Cooking, Carpentry, Social}

// InjuryState is a villager's current injury.
type InjuryState uint8

const (
	InjuryNone InjuryState = iota
	InjuryLight
	InjurySevere
)

// String returns the injury name.
func (s InjuryState) String() string {
	switch s {
	case InjuryLight:
		return "light"
	case InjurySevere:
		return "severe"
	default:
		return "none"
	}
}

// Villager is one member of the village.
type Villager struct {
	Name        string      `json:"name"`
	Personality Personality `json:"personality"`

	Health    float64 `json:"health"` // 0.0–1.0
	Hunger    float64 `json:"hunger"` // 0.0–1.0, higher is hungrier
	Energy    float64 `json:"energy"` // 0.0–EnergyCap
	EnergyCap float64 `json:"energy_cap"`
	Fatigue   float64 `json:"fatigue"` // 0.0–1.0

	Injury       InjuryState `json:"injury"`
	RecoveryDays int         `json:"recovery_days"` // remaining days of a severe injury

	Skills map[Activity]float64 `json:"skills"`

	SessionsToday   int      `json:"sessions_today"`
	EnergyUsedToday float64  `json:"energy_used_today"`
	LastActivity    Activity `json:"last_activity,omitempty"`

	Memories []Memory `json:"memories,omitempty"`
}

// NewVillager returns a healthy, rested villager with the given skills.
func NewVillager(name string, p Personality, skills map[Activity]float64) *Villager {
	if skills == nil {
		skills = make(map[Activity]float64)
	}
	return &Villager{
		Name:        name,
		Personality: p,
		Health:      1.0,
		Hunger:      0.3,
		Energy:      1.0,
		EnergyCap:   1.0,
		Skills:      skills,
	}
}

// Skill returns the base skill for an activity, 0 if untrained.
func (v *Villager) Skill(a Activity) float64 {
	return v.Skills[a]
}

// Injured reports whether the villager carries any injury.
func (v *Villager) Injured() bool {
	return v.Injury != InjuryNone
}

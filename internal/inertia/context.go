package inertia

import "github.com/talgya/hamlet/internal/agents"

// Value is an optional scalar in a Context. The zero Value is unset.
type Value struct {
	V   float64
	Set bool
}

// Of wraps v as a set Value.
func Of(v float64) Value {
	return Value{V: v, Set: true}
}

// Or returns the value, or def when unset.
func (o Value) Or(def float64) float64 {
	if !o.Set {
		return def
	}
	return o.V
}

// Context describes one activity instance for meaning-pressure evaluation.
// Shared flags apply to every activity; the embedded flag groups are read
// only for their own activity.
type Context struct {
	Success       bool  `json:"success"`
	Effectiveness Value `json:"effectiveness"`
	Difficulty    Value `json:"difficulty"`

	Emergency         bool `json:"emergency,omitempty"`
	VillageWideImpact bool `json:"village_wide_impact,omitempty"`
	PeopleAffected    int  `json:"people_affected,omitempty"` // <1 means 1
	Innovation        bool `json:"innovation,omitempty"`
	NewTechnique      bool `json:"new_technique,omitempty"`
	Collaboration     bool `json:"collaboration,omitempty"`
	TimePressure      bool `json:"time_pressure,omitempty"`
	ResourceScarcity  bool `json:"resource_scarcity,omitempty"`
	MentorPresent     bool `json:"mentor_present,omitempty"`
	HighStakes        bool `json:"high_stakes,omitempty"`

	Hunt  HuntFlags  `json:"hunt,omitempty"`
	Care  CareFlags  `json:"care,omitempty"`
	Cook  CookFlags  `json:"cook,omitempty"`
	Build BuildFlags `json:"build,omitempty"`
}

// HuntFlags are read for hunting.
type HuntFlags struct {
	LargePrey         bool  `json:"large_prey,omitempty"`
	DangerLevel       Value `json:"danger_level"`
	WeatherBad        bool  `json:"weather_bad,omitempty"`
	GroupCoordination bool  `json:"group_coordination,omitempty"`
}

// CareFlags are read for caregiving.
type CareFlags struct {
	LifeThreatening     bool `json:"life_threatening,omitempty"`
	PatientRecovery     bool `json:"patient_recovery,omitempty"`
	MultiplePatients    bool `json:"multiple_patients,omitempty"`
	DiagnosisDifficulty bool `json:"diagnosis_difficulty,omitempty"`
}

// CookFlags are read for cooking.
type CookFlags struct {
	FeastPreparation   bool `json:"feast_preparation,omitempty"`
	FoodCrisis         bool `json:"food_crisis,omitempty"`
	NewRecipe          bool `json:"new_recipe,omitempty"`
	LimitedIngredients bool `json:"limited_ingredients,omitempty"`
	LargeGroup         bool `json:"large_group,omitempty"`
}

// BuildFlags are read for carpentry.
type BuildFlags struct {
	ComplexProject         bool  `json:"complex_project,omitempty"`
	EmergencyConstruction  bool  `json:"emergency_construction,omitempty"`
	ProjectQuality         Value `json:"project_quality"`
	LimitedMaterials       bool  `json:"limited_materials,omitempty"`
	StructuralRequirements bool  `json:"structural_requirements,omitempty"`
	TeamCoordination       bool  `json:"team_coordination,omitempty"`
}

// Defaults for unset optional values.
const (
	DefaultEffectiveness  = 0.5
	DefaultDifficulty     = 0.5
	DefaultDangerLevel    = 0.0
	DefaultProjectQuality = 0.5
)

// resolved is a Context with every optional value substituted.
type resolved struct {
	Context
	effectiveness  float64
	difficulty     float64
	danger         float64
	projectQuality float64
	people         int
	defaulted      []string
}

// resolve substitutes defaults for the values the given activity reads and
// records which ones were substituted.
func (c Context) resolve(a agents.Activity) resolved {
	r := resolved{Context: c}
	take := func(v Value, def float64, name string) float64 {
		if !v.Set {
			r.defaulted = append(r.defaulted, name)
		}
		return v.Or(def)
	}

	r.effectiveness = take(c.Effectiveness, DefaultEffectiveness, "effectiveness")
	switch a {
	case agents.Hunting:
		r.danger = take(c.Hunt.DangerLevel, DefaultDangerLevel, "danger_level")
	case agents.Carpentry:
		r.projectQuality = take(c.Build.ProjectQuality, DefaultProjectQuality, "project_quality")
	case agents.Caregiving, agents.Cooking:
	default:
		r.difficulty = take(c.Difficulty, DefaultDifficulty, "difficulty")
	}
	r.people = c.PeopleAffected
	if r.people < 1 {
		r.people = 1
	}
	return r
}

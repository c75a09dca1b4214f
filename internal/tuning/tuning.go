// Package tuning holds every hand-tuned coefficient the village simulation uses.
// Defaults reproduce the calibrated values; a YAML file may override any subset.
package tuning

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/exp/constraints"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a tuning file whose values fall outside usable ranges.
var ErrInvalid = errors.New("invalid tuning")

// Tuning is the full set of simulation coefficients.
type Tuning struct {
	Inertia Inertia `yaml:"inertia"`
	Ledger  Ledger  `yaml:"ledger"`
	Rumor   Rumor   `yaml:"rumor"`
	Injury  Injury  `yaml:"injury"`
	Village Village `yaml:"village"`
	Weather Weather `yaml:"weather"`
}

// Table is a keyed set of coefficient groups. Decoding YAML into a Table
// overlays each entry on the value already held under its key, so a file
// may change one field of one entry.
type Table[V any] map[string]V

func (t *Table[V]) UnmarshalYAML(n *yaml.Node) error {
	var entries map[string]yaml.Node
	if err := n.Decode(&entries); err != nil {
		return err
	}
	if *t == nil {
		*t = make(Table[V], len(entries))
	}
	for key, node := range entries {
		v := (*t)[key]
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		(*t)[key] = v
	}
	return nil
}

// Levels are the base pressures of the four meaning levels.
type Levels struct {
	Trivial    float64 `yaml:"trivial"`
	Routine    float64 `yaml:"routine"`
	Meaningful float64 `yaml:"meaningful"`
	Profound   float64 `yaml:"profound"`
}

// ActivityCoeffs are the per-activity constants of the inertia update.
type ActivityCoeffs struct {
	BaseAlignment   float64 `yaml:"base_alignment"`   // G0
	Resistance      float64 `yaml:"resistance"`       // ρ
	LearningRate    float64 `yaml:"learning_rate"`
	RepetitionDecay float64 `yaml:"repetition_decay"`
}

// Inertia configures meaning pressure and the inertia update rule.
type Inertia struct {
	Min               float64               `yaml:"min"`
	Max               float64               `yaml:"max"`
	Coupling          float64               `yaml:"coupling"`
	TimeDecay         float64               `yaml:"time_decay"`
	NegativeWorkScale float64               `yaml:"negative_work_scale"`
	HistoryCap        int                   `yaml:"history_cap"`
	HistoryKeep       int                   `yaml:"history_keep"`
	PressureFloor     float64               `yaml:"pressure_floor"`
	RepetitionFloor   float64               `yaml:"repetition_floor"`
	ComplexityCap     float64               `yaml:"complexity_cap"`
	SocialCap         float64               `yaml:"social_cap"`
	MentorBoost       float64               `yaml:"mentor_boost"`
	HighStakesBoost   float64               `yaml:"high_stakes_boost"`
	Levels            Levels                `yaml:"levels"`
	Activities        Table[ActivityCoeffs] `yaml:"activities"`
	Fallback          ActivityCoeffs        `yaml:"fallback"`
}

// Coeffs returns the coefficients for an activity, or the fallback set.
func (in Inertia) Coeffs(activity string) ActivityCoeffs {
	if c, ok := in.Activities[activity]; ok {
		return c
	}
	return in.Fallback
}

// Ledger configures boundary strengths and trust mapping.
type Ledger struct {
	LearningRate      float64            `yaml:"learning_rate"`
	InnerThreshold    float64            `yaml:"inner_threshold"`
	OuterThreshold    float64            `yaml:"outer_threshold"`
	DomainMultipliers map[string]float64 `yaml:"domain_multipliers"`
}

// Rumor configures rumor creation, diffusion and decay.
type Rumor struct {
	DecayAge          int     `yaml:"decay_age"`
	DecayFactor       float64 `yaml:"decay_factor"`
	RemoveBelow       float64 `yaml:"remove_below"`
	SpreadSample      int     `yaml:"spread_sample"`
	HopAttenuation    float64 `yaml:"hop_attenuation"`
	TrustScale        float64 `yaml:"trust_scale"`
	Smoothing         float64 `yaml:"smoothing"`
	NeutralReputation float64 `yaml:"neutral_reputation"`
	DefaultWeight     float64 `yaml:"default_weight"`
	DefaultPropensity float64 `yaml:"default_propensity"`
	DirectBonus       float64 `yaml:"direct_bonus"`
	ConfidenceMin     float64 `yaml:"confidence_min"`
	ConfidenceMax     float64 `yaml:"confidence_max"`
}

// Risk is a base probability plus its per-unit-fatigue growth.
type Risk struct {
	Base    float64 `yaml:"base"`
	Fatigue float64 `yaml:"fatigue"`
}

// RiskProfile holds light and severe risks for both outcomes of one activity.
type RiskProfile struct {
	LightSuccess  Risk `yaml:"light_success"`
	LightFailure  Risk `yaml:"light_failure"`
	SevereSuccess Risk `yaml:"severe_success"`
	SevereFailure Risk `yaml:"severe_failure"`
}

// Injury configures the post-activity injury roll.
type Injury struct {
	LightCap      float64            `yaml:"light_cap"`
	SevereCap     float64            `yaml:"severe_cap"`
	SevereDaysMin int                `yaml:"severe_days_min"`
	SevereDaysMax int                `yaml:"severe_days_max"`
	SevereHealth  float64            `yaml:"severe_health"`
	LightHealth   float64            `yaml:"light_health"`
	HealthFloor   float64            `yaml:"health_floor"`
	Profiles      Table[RiskProfile] `yaml:"profiles"`
}

// Village configures the daily scheduler and villager physiology.
type Village struct {
	DailyEnergyCap  float64            `yaml:"daily_energy_cap"`
	MaxSessions     int                `yaml:"max_sessions"`
	MinWorkHealth   float64            `yaml:"min_work_health"`
	OvernightEnergy float64            `yaml:"overnight_energy"`
	FatigueSameTask float64            `yaml:"fatigue_same_task"`
	FatigueSwitch   float64            `yaml:"fatigue_switch"`
	FatigueRest     float64            `yaml:"fatigue_rest"`
	EnergyCost      map[string]float64 `yaml:"energy_cost"`
	StartFood       float64            `yaml:"start_food"`
	StartMaterials  float64            `yaml:"start_materials"`
	CrisisFood      float64            `yaml:"crisis_food"`
	FoodPerVillager float64            `yaml:"food_per_villager"`
	MorningHunger   float64            `yaml:"morning_hunger"`
	MaxHunters      int                `yaml:"max_hunters"`
	MaxPatients     int                `yaml:"max_patients"`
	CarpentryChance float64            `yaml:"carpentry_chance"`
	EmergencyChance float64            `yaml:"emergency_chance"`
	StartHappiness  float64            `yaml:"start_happiness"`
	MaterialsPerDay float64            `yaml:"materials_per_day"`
}

// Cost returns the energy one session of an activity costs.
func (v Village) Cost(activity string) float64 {
	if c, ok := v.EnergyCost[activity]; ok {
		return c
	}
	return 0.2
}

// Weather configures the noise-driven weather generator.
type Weather struct {
	Octaves     int     `yaml:"octaves"`
	Frequency   float64 `yaml:"frequency"`
	Persistence float64 `yaml:"persistence"`
	BadAbove    float64 `yaml:"bad_above"`
}

// Default returns the calibrated coefficient set.
func Default() Tuning {
	return Tuning{
		Inertia: Inertia{
			Min:               0.05,
			Max:               10.0,
			Coupling:          0.3,
			TimeDecay:         0.98,
			NegativeWorkScale: 0.2,
			HistoryCap:        30,
			HistoryKeep:       20,
			PressureFloor:     0.05,
			RepetitionFloor:   0.3,
			ComplexityCap:     2.5,
			SocialCap:         3.0,
			MentorBoost:       1.3,
			HighStakesBoost:   1.2,
			Levels: Levels{
				Trivial:    0.2,
				Routine:    0.5,
				Meaningful: 1.0,
				Profound:   2.0,
			},
			Activities: map[string]ActivityCoeffs{
				"hunting":    {BaseAlignment: 0.25, Resistance: 0.4, LearningRate: 0.12, RepetitionDecay: 0.05},
				"caregiving": {BaseAlignment: 0.30, Resistance: 0.2, LearningRate: 0.15, RepetitionDecay: 0.03},
				"cooking":    {BaseAlignment: 0.35, Resistance: 0.3, LearningRate: 0.18, RepetitionDecay: 0.04},
				"carpentry":  {BaseAlignment: 0.40, Resistance: 0.6, LearningRate: 0.14, RepetitionDecay: 0.02},
				"social":     {BaseAlignment: 0.20, Resistance: 0.5, LearningRate: 0.10, RepetitionDecay: 0.08},
			},
			Fallback: ActivityCoeffs{BaseAlignment: 0.20, Resistance: 0.5, LearningRate: 0.10, RepetitionDecay: 0.08},
		},
		Ledger: Ledger{
			LearningRate:   0.15,
			InnerThreshold: 0.3,
			OuterThreshold: -0.3,
			DomainMultipliers: map[string]float64{
				"cooperation":      1.1,
				"resource_sharing": 0.9,
			},
		},
		Rumor: Rumor{
			DecayAge:          7,
			DecayFactor:       0.9,
			RemoveBelow:       0.2,
			SpreadSample:      3,
			HopAttenuation:    0.9,
			TrustScale:        0.3,
			Smoothing:         0.3,
			NeutralReputation: 0.5,
			DefaultWeight:     0.5,
			DefaultPropensity: 0.3,
			DirectBonus:       0.2,
			ConfidenceMin:     0.4,
			ConfidenceMax:     0.9,
		},
		Injury: Injury{
			LightCap:      0.25,
			SevereCap:     0.10,
			SevereDaysMin: 3,
			SevereDaysMax: 7,
			SevereHealth:  0.5,
			LightHealth:   0.3,
			HealthFloor:   0.1,
			Profiles: map[string]RiskProfile{
				"hunting": {
					LightSuccess: Risk{0.03, 0.05}, LightFailure: Risk{0.08, 0.12},
					SevereSuccess: Risk{0.005, 0.01}, SevereFailure: Risk{0.02, 0.03},
				},
				"carpentry": {
					LightSuccess: Risk{0.05, 0.08}, LightFailure: Risk{0.12, 0.15},
					SevereSuccess: Risk{0.01, 0.02}, SevereFailure: Risk{0.04, 0.06},
				},
				"cooking": {
					LightSuccess: Risk{0.02, 0.03}, LightFailure: Risk{0.05, 0.07},
					SevereSuccess: Risk{0.001, 0.005}, SevereFailure: Risk{0.01, 0.02},
				},
				"caregiving": {
					LightSuccess: Risk{0.01, 0.02}, LightFailure: Risk{0.03, 0.04},
					SevereSuccess: Risk{0.0005, 0.001}, SevereFailure: Risk{0.002, 0.005},
				},
				"construction": {
					LightSuccess: Risk{0.06, 0.10}, LightFailure: Risk{0.15, 0.20},
					SevereSuccess: Risk{0.02, 0.03}, SevereFailure: Risk{0.06, 0.08},
				},
			},
		},
		Village: Village{
			DailyEnergyCap:  0.8,
			MaxSessions:     3,
			MinWorkHealth:   0.3,
			OvernightEnergy: 0.4,
			FatigueSameTask: 0.1,
			FatigueSwitch:   0.05,
			FatigueRest:     0.2,
			EnergyCost: map[string]float64{
				"hunting":    0.35,
				"caregiving": 0.2,
				"cooking":    0.2,
				"carpentry":  0.3,
				"social":     0.1,
			},
			StartFood:       5.0,
			StartMaterials:  5.0,
			CrisisFood:      2.0,
			FoodPerVillager: 0.3,
			MorningHunger:   0.15,
			MaxHunters:      2,
			MaxPatients:     2,
			CarpentryChance: 0.3,
			EmergencyChance: 0.05,
			StartHappiness:  0.5,
			MaterialsPerDay: 0.5,
		},
		Weather: Weather{
			Octaves:     3,
			Frequency:   0.15,
			Persistence: 0.5,
			BadAbove:    0.65,
		},
	}
}

// Load reads a YAML file and overlays it on the defaults.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("parse tuning %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// Validate checks the ranges every consumer relies on.
func (t Tuning) Validate() error {
	in := t.Inertia
	switch {
	case in.Min <= 0 || in.Max <= in.Min:
		return fmt.Errorf("%w: inertia bounds [%g, %g]", ErrInvalid, in.Min, in.Max)
	case in.HistoryKeep <= 0 || in.HistoryKeep > in.HistoryCap:
		return fmt.Errorf("%w: history keep %d of cap %d", ErrInvalid, in.HistoryKeep, in.HistoryCap)
	case in.TimeDecay <= 0 || in.TimeDecay > 1:
		return fmt.Errorf("%w: time decay %g", ErrInvalid, in.TimeDecay)
	case in.RepetitionFloor < 0 || in.RepetitionFloor > 1:
		return fmt.Errorf("%w: repetition floor %g", ErrInvalid, in.RepetitionFloor)
	}
	if t.Ledger.InnerThreshold <= t.Ledger.OuterThreshold {
		return fmt.Errorf("%w: inner threshold %g not above outer %g", ErrInvalid, t.Ledger.InnerThreshold, t.Ledger.OuterThreshold)
	}
	if t.Rumor.DecayFactor <= 0 || t.Rumor.DecayFactor >= 1 {
		return fmt.Errorf("%w: rumor decay factor %g", ErrInvalid, t.Rumor.DecayFactor)
	}
	if t.Rumor.Smoothing < 0 || t.Rumor.Smoothing > 1 {
		return fmt.Errorf("%w: reputation smoothing %g", ErrInvalid, t.Rumor.Smoothing)
	}
	if t.Injury.LightCap > 1 || t.Injury.SevereCap > 1 {
		return fmt.Errorf("%w: injury caps above 1", ErrInvalid)
	}
	if t.Injury.SevereDaysMin > t.Injury.SevereDaysMax {
		return fmt.Errorf("%w: severe recovery days %d..%d", ErrInvalid, t.Injury.SevereDaysMin, t.Injury.SevereDaysMax)
	}
	if t.Village.MaxSessions <= 0 {
		return fmt.Errorf("%w: max sessions %d", ErrInvalid, t.Village.MaxSessions)
	}
	return nil
}

// Clamp bounds v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Unit bounds v to [0, 1].
func Unit(v float64) float64 {
	return Clamp(v, 0, 1)
}

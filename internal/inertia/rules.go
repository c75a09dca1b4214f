package inertia

import (
	"math"

	"github.com/talgya/hamlet/internal/agents"
)

// classify maps an experience to a meaning level. An emergency handled
// successfully is always profound; below that each activity has its own rules.
// Thresholds are strict: a value exactly on one stays at the lower level.
func classify(a agents.Activity, r resolved) Level {
	if !r.Success {
		return Trivial
	}
	if r.Emergency {
		return Profound
	}

	switch a {
	case agents.Hunting:
		switch {
		case r.Hunt.LargePrey && r.danger > 0.7:
			return Meaningful
		case r.effectiveness > 0.6:
			return Routine
		}
	case agents.Caregiving:
		switch {
		case r.Care.LifeThreatening && r.Care.PatientRecovery:
			return Profound
		case r.effectiveness > 0.7:
			return Meaningful
		default:
			return Routine
		}
	case agents.Cooking:
		switch {
		case r.Cook.FeastPreparation || r.Cook.FoodCrisis:
			return Profound
		case r.Cook.NewRecipe:
			return Meaningful
		case r.effectiveness > 0.6:
			return Routine
		}
	case agents.Carpentry:
		switch {
		case (r.Build.ComplexProject || r.Build.EmergencyConstruction) && r.projectQuality > 0.8:
			return Profound
		case r.NewTechnique:
			return Meaningful
		case r.projectQuality > 0.6:
			return Routine
		}
	default:
		switch {
		case r.Innovation:
			return Profound
		case r.effectiveness > 0.7 && r.difficulty > 0.6:
			return Meaningful
		default:
			return Routine
		}
	}
	return Trivial
}

// complexityFactor starts at 1 and adds a bonus per situational flag.
func complexityFactor(a agents.Activity, r resolved) float64 {
	c := 1.0
	add := func(flag bool, bonus float64) {
		if flag {
			c += bonus
		}
	}

	add(r.Collaboration, 0.3)
	add(r.TimePressure, 0.2)
	add(r.ResourceScarcity, 0.4)

	switch a {
	case agents.Hunting:
		add(r.Hunt.WeatherBad, 0.3)
		add(r.Hunt.GroupCoordination, 0.4)
	case agents.Caregiving:
		add(r.Care.MultiplePatients, 0.5)
		add(r.Care.DiagnosisDifficulty, 0.6)
	case agents.Cooking:
		add(r.Cook.LimitedIngredients, 0.4)
		add(r.Cook.LargeGroup, 0.3)
	case agents.Carpentry:
		add(r.Build.LimitedMaterials, 0.5)
		add(r.Build.StructuralRequirements, 0.6)
		add(r.Build.TeamCoordination, 0.4)
	}
	return c
}

// socialImpact grows logarithmically with the number of people affected.
func socialImpact(r resolved) float64 {
	impact := 1.0 + math.Log(float64(r.people))*0.2
	if r.Emergency {
		impact *= 1.5
	}
	if r.VillageWideImpact {
		impact *= 1.8
	}
	return impact
}

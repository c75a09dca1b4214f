package activity

import (
	"github.com/talgya/hamlet/internal/entropy"
)

// ConstructionType is the kind of building work requested.
type ConstructionType string

const (
	Repair          ConstructionType = "repair"
	Housing         ConstructionType = "housing"
	Furniture       ConstructionType = "furniture"
	Infrastructure  ConstructionType = "infrastructure"
	ToolMaking      ConstructionType = "tool_making"
	EmergencyRepair ConstructionType = "emergency_repair"
)

// Project is a catalog entry. Days is the number of work days it takes.
type Project struct {
	Name          string           `json:"name"`
	Type          ConstructionType `json:"type"`
	Difficulty    float64          `json:"difficulty"`
	BaseQuality   float64          `json:"base_quality"`
	Materials     float64          `json:"materials"`
	Benefit       float64          `json:"benefit"`
	Innovation    float64          `json:"innovation"`
	Collaboration bool             `json:"collaboration"`
	Days          int              `json:"days"`
}

// Projects is the carpentry catalog.
var Projects = []Project{
	{"wall patch", Repair, 0.2, 0.5, 0.1, 0.1, 0.0, false, 1},
	{"roof repair", Repair, 0.3, 0.6, 0.2, 0.15, 0.1, false, 1},

	{"emergency roof repair", EmergencyRepair, 0.8, 0.7, 0.3, 0.4, 0.0, true, 1},
	{"disaster recovery", EmergencyRepair, 0.9, 0.8, 0.5, 0.6, 0.2, true, 2},

	{"innovative dwelling", Housing, 0.8, 0.9, 1.2, 0.5, 0.7, true, 5},
	{"multipurpose workshop", Housing, 0.7, 0.8, 1.0, 0.4, 0.6, true, 4},
	{"standard dwelling", Housing, 0.5, 0.7, 0.8, 0.3, 0.4, false, 3},

	{"great bridge", Infrastructure, 0.9, 0.9, 1.5, 0.8, 0.8, true, 14},
	{"common workshop", Infrastructure, 0.8, 0.8, 1.2, 0.7, 0.7, true, 10},
	{"village wall", Infrastructure, 1.0, 0.9, 2.0, 1.0, 0.9, true, 21},
	{"great granary", Infrastructure, 0.7, 0.8, 1.8, 0.9, 0.6, true, 12},

	{"wooden chair", Furniture, 0.3, 0.6, 0.2, 0.1, 0.1, false, 1},
	{"carved furniture", Furniture, 0.6, 0.8, 0.4, 0.3, 0.5, false, 2},

	{"precision hunting gear", ToolMaking, 0.7, 0.9, 0.3, 0.4, 0.6, false, 2},
	{"new farm tools", ToolMaking, 0.6, 0.8, 0.2, 0.3, 0.5, false, 3},
	{"craftsman's tool set", ToolMaking, 0.8, 0.9, 0.6, 0.5, 0.7, true, 5},
}

// FallbackProject is built when nothing in the catalog fits a request.
var FallbackProject = Projects[0]

// accepts reports whether a request of type want can be served by a
// project of type have. Repair requests also take emergency repairs.
func accepts(want, have ConstructionType) bool {
	if want == Repair {
		return have == Repair || have == EmergencyRepair
	}
	return want == have
}

// SelectProject picks a catalog project for a request. Complex requests
// prefer innovative projects; simple ones prefer plain work.
func SelectProject(rng entropy.Source, want ConstructionType, complexity float64) Project {
	var suitable []Project
	for _, p := range Projects {
		if accepts(want, p.Type) {
			suitable = append(suitable, p)
		}
	}
	if len(suitable) == 0 {
		return FallbackProject
	}

	var preferred []Project
	for _, p := range suitable {
		innovative := p.Innovation > 0.3
		if innovative == (complexity > 0.7) {
			preferred = append(preferred, p)
		}
	}
	if len(preferred) == 0 {
		preferred = suitable
	}
	p, _ := entropy.Pick(rng, preferred)
	return p
}

// Package weather generates the village's daily weather from smooth noise so
// that bad spells and good spells last several days.
package weather

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/hamlet/internal/tuning"
)

// Conditions is one day's weather.
type Conditions struct {
	Day         int     `json:"day"`
	Severity    float64 `json:"severity"`     // 0 calm … 1 storm
	Temperature float64 `json:"temperature"`  // 0 cold … 1 hot
	Bad         bool    `json:"bad"`
	Description string  `json:"description"`
}

// SimWeather holds simulation-mapped weather modifiers.
type SimWeather struct {
	PreyAbundance float64 // multiplier on prey spawn chance
	HuntPenalty   float64 // subtracted from hunting success
	InjuryMod     float64 // multiplier on outdoor injury risk
}

// Generator produces deterministic weather for a seed.
type Generator struct {
	cfg      tuning.Weather
	severity opensimplex.Noise
	temp     opensimplex.Noise
}

// NewGenerator creates a weather generator.
func NewGenerator(seed int64, cfg tuning.Weather) *Generator {
	return &Generator{
		cfg:      cfg,
		severity: opensimplex.NewNormalized(seed + 500),
		temp:     opensimplex.NewNormalized(seed + 501),
	}
}

// Day returns the weather for a simulated day.
func (g *Generator) Day(day int) Conditions {
	x := float64(day)
	sev := octaveNoise(g.severity, x, 0, g.cfg.Octaves, g.cfg.Frequency, g.cfg.Persistence)
	temp := octaveNoise(g.temp, x, 7.5, g.cfg.Octaves, g.cfg.Frequency*0.5, g.cfg.Persistence)

	c := Conditions{
		Day:         day,
		Severity:    tuning.Unit(sev),
		Temperature: tuning.Unit(temp),
	}
	c.Bad = c.Severity > g.cfg.BadAbove
	c.Description = describe(c)
	return c
}

// MapToSim converts conditions to activity modifiers.
func MapToSim(c Conditions) SimWeather {
	sw := SimWeather{PreyAbundance: 1.0, InjuryMod: 1.0}
	switch {
	case c.Severity > 0.8:
		sw.PreyAbundance = 0.5
		sw.HuntPenalty = 0.15
		sw.InjuryMod = 1.5
	case c.Bad:
		sw.PreyAbundance = 0.75
		sw.HuntPenalty = 0.08
		sw.InjuryMod = 1.2
	case c.Severity < 0.3:
		sw.PreyAbundance = 1.2
	}
	return sw
}

func describe(c Conditions) string {
	switch {
	case c.Severity > 0.8:
		return "storm"
	case c.Bad && c.Temperature < 0.35:
		return "sleet"
	case c.Bad:
		return "heavy rain"
	case c.Severity > 0.5:
		return "overcast"
	case c.Temperature > 0.65:
		return "hot and clear"
	default:
		return "fair"
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	if maxVal == 0 {
		return 0.5
	}
	return total / maxVal
}

package agents

import (
	"fmt"
	"strings"
)

// Personality is a closed set of temperaments. Behavioral coefficients are
// looked up from tables keyed by Personality in the packages that use them.
type Personality uint8

const (
	Balanced Personality = iota
	Aggressive
	Brave
	Competitive
	Cautious
	Caring
	Gentle
	Helpful
	SocialType
	Cooperative
	Strategic
	Analytical
	Creative
	Emotional
	Practical
	Independent
	Energetic
	Patient

	personalityCount
)

var personalityNames = [personalityCount]string{
	Balanced:    "balanced",
	Aggressive:  "aggressive",
	Brave:       "brave",
	Competitive: "competitive",
	Cautious:    "cautious",
	Caring:      "caring",
	Gentle:      "gentle",
	Helpful:     "helpful",
	SocialType:  "social",
	Cooperative: "cooperative",
	Strategic:   "strategic",
	Analytical:  "analytical",
	Creative:    "creative",
	Emotional:   "emotional",
	Practical:   "practical",
	Independent: "independent",
	Energetic:   "energetic",
	Patient:     "patient",
}

// Personalities lists every personality in declaration order.
func Personalities() []Personality {
	out := make([]Personality, 0, personalityCount)
	for p := Balanced; p < personalityCount; p++ {
		out = append(out, p)
	}
	return out
}

// String returns the lowercase personality name.
func (p Personality) String() string {
	if p >= personalityCount {
		return personalityNames[Balanced]
	}
	return personalityNames[p]
}

// ParsePersonality maps a name to a Personality. Unknown names are an error.
func ParsePersonality(s string) (Personality, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "neutral" {
		return Balanced, nil
	}
	for p, name := range personalityNames {
		if name == s {
			return Personality(p), nil
		}
	}
	return Balanced, fmt.Errorf("unknown personality %q", s)
}

// MarshalText encodes the personality by name.
func (p Personality) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a personality name.
func (p *Personality) UnmarshalText(b []byte) error {
	parsed, err := ParsePersonality(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

package social

import "strings"

// InteractionKind is the tone of a direct interaction between two villagers.
type InteractionKind uint8

const (
	NeutralInteraction InteractionKind = iota
	PositiveInteraction
	NegativeInteraction
)

var (
	positiveWords = []string{"positive", "help", "care", "cooperation", "success", "praise"}
	negativeWords = []string{"negative", "conflict", "fail", "criticism", "harm"}
)

// ParseInteraction classifies a free-form interaction label such as
// "helped_with_repair" or "conflict_over_food".
func ParseInteraction(label string) InteractionKind {
	label = strings.ToLower(label)
	for _, w := range positiveWords {
		if strings.Contains(label, w) {
			return PositiveInteraction
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(label, w) {
			return NegativeInteraction
		}
	}
	return NeutralInteraction
}

// Valence is the boundary valence of the interaction.
func (k InteractionKind) Valence() float64 {
	switch k {
	case PositiveInteraction:
		return 0.6
	case NegativeInteraction:
		return -0.4
	default:
		return 0.1
	}
}

package social

import "github.com/talgya/hamlet/internal/agents"

// Category is the skill domain a rumor talks about.
type Category string

const (
	HuntingSkill    Category = "hunting_skill"
	CaregivingSkill Category = "caregiving_skill"
	CookingSkill    Category = "cooking_skill"
	SocialSkill     Category = "social_skill"
	CraftingSkill   Category = "crafting_skill"
	Leadership      Category = "leadership"
	Kindness        Category = "kindness"
)

// Categories lists every rumor category.
var Categories = []Category{
	HuntingSkill, CaregivingSkill, CookingSkill, SocialSkill, CraftingSkill, Leadership, Kindness,
}

// CategoryFor maps an activity to the rumor category that covers it.
func CategoryFor(a agents.Activity) Category {
	switch a {
	case agents.Hunting:
		return HuntingSkill
	case agents.Caregiving:
		return CaregivingSkill
	case agents.Cooking:
		return CookingSkill
	case agents.Carpentry:
		return CraftingSkill
	default:
		return SocialSkill
	}
}

// trustDomain is the ledger domain a rumor category touches.
var trustDomain = map[Category]string{
	HuntingSkill:    "survival_competence",
	CaregivingSkill: "social_care",
	CookingSkill:    "food_provision",
	SocialSkill:     "social_coordination",
	CraftingSkill:   "resource_creation",
	Leadership:      "group_coordination",
	Kindness:        "social_care",
}

// TrustDomain returns the ledger domain for a category.
func TrustDomain(c Category) string {
	if d, ok := trustDomain[c]; ok {
		return d
	}
	return "general_competence"
}

// gossipPropensity is how readily each temperament repeats what it heard.
var gossipPropensity = map[agents.Personality]float64{
	agents.SocialType:  0.8,
	agents.Aggressive:  0.6,
	agents.Competitive: 0.7,
	agents.Brave:       0.4,
	agents.Cautious:    0.1,
	agents.Caring:      0.5,
	agents.Gentle:      0.3,
	agents.Helpful:     0.4,
	agents.Analytical:  0.2,
	agents.Creative:    0.6,
	agents.Emotional:   0.7,
	agents.Practical:   0.3,
}

// GossipPropensity returns p's chance of passing a rumor on, or def when
// the temperament has no entry.
func GossipPropensity(p agents.Personality, def float64) float64 {
	if v, ok := gossipPropensity[p]; ok {
		return v
	}
	return def
}

var rumorTemplates = map[Category]map[bool][]string{
	HuntingSkill: {
		true:  {"is a fine hunter", "never lets prey escape", "has a remarkable eye for tracks"},
		false: {"is a poor hunter", "keeps losing prey", "struggles on the hunt"},
	},
	CaregivingSkill: {
		true:  {"is a gifted carer", "nurses the sick back quickly", "knows how to treat wounds"},
		false: {"is careless with the sick", "botches treatments", "is no good at tending patients"},
	},
	CookingSkill: {
		true:  {"cooks wonderfully", "makes the best stew in the village", "can feed a crowd"},
		false: {"burns everything", "wastes good meat", "cooks bland food"},
	},
	CraftingSkill: {
		true:  {"builds things that last", "is a master with wood", "does careful joinery"},
		false: {"builds crooked walls", "wastes timber", "does sloppy repairs"},
	},
	SocialSkill: {
		true:  {"brings people together", "is easy to talk to"},
		false: {"stirs up trouble", "is hard to get along with"},
	},
	Leadership: {
		true:  {"keeps everyone organized", "is someone people follow"},
		false: {"cannot lead a group", "gives confusing orders"},
	},
	Kindness: {
		true:  {"is very kind", "always helps those in need"},
		false: {"is cold-hearted", "ignores people who need help"},
	},
}

func templatesFor(c Category, positive bool) []string {
	if t, ok := rumorTemplates[c][positive]; ok && len(t) > 0 {
		return t
	}
	if positive {
		return []string{"is skilled"}
	}
	return []string{"is clumsy"}
}

// Villager spawning: builds the starting roster with personalities and skills.
package agents

import (
	"fmt"

	"github.com/talgya/hamlet/internal/entropy"
)

var villagerNames = []string{"Akira", "Takeshi", "Yu", "Akane", "Hana", "Taro", "Sakura", "Ken"}

var rosterPersonalities = []Personality{
	Aggressive, Brave, Competitive, Caring, Gentle, Helpful, SocialType, Cooperative,
}

// skillRange is the starting range for each base skill.
var skillRange = map[Activity][2]float64{
	Hunting:    {0.5, 2.5},
	Caregiving: {0.2, 1.8},
	Cooking:    {0.3, 2.0},
	Carpentry:  {0.2, 1.5},
}

// Spawner creates villagers for the simulation.
type Spawner struct {
	rng entropy.Source
}

// NewSpawner creates a villager spawner drawing from rng.
func NewSpawner(rng entropy.Source) *Spawner {
	return &Spawner{rng: rng}
}

// SpawnRoster creates count villagers. Names cycle through the village name
// list and gain a generation suffix once it is exhausted.
func (s *Spawner) SpawnRoster(count int) []*Villager {
	out := make([]*Villager, 0, count)
	for i := 0; i < count; i++ {
		name := villagerNames[i%len(villagerNames)]
		if gen := i / len(villagerNames); gen > 0 {
			name = fmt.Sprintf("%s %d", name, gen+1)
		}
		out = append(out, s.SpawnOne(name, rosterPersonalities[i%len(rosterPersonalities)]))
	}
	return out
}

// SpawnOne creates a single villager with freshly rolled skills.
func (s *Spawner) SpawnOne(name string, p Personality) *Villager {
	skills := make(map[Activity]float64, len(skillRange))
	for _, a := range WorkActivities {
		r := skillRange[a]
		skills[a] = entropy.Uniform(s.rng, r[0], r[1])
	}
	return NewVillager(name, p, skills)
}

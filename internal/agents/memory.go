// Villager memory stream: notable experiences such as injuries, recoveries
// and finished projects, surfaced by the API and the daily report.
package agents

import "sort"

const MaxMemories = 50

// Memory records a notable experience in a villager's life.
type Memory struct {
	Day        int     `json:"day"`
	Content    string  `json:"content"`
	Importance float64 `json:"importance"` // 0.0–1.0
}

// AddMemory appends a memory to the villager's stream. When full, drops the
// lowest-importance memory to make room.
func AddMemory(v *Villager, day int, content string, importance float64) {
	m := Memory{Day: day, Content: content, Importance: importance}

	if len(v.Memories) < MaxMemories {
		v.Memories = append(v.Memories, m)
		return
	}

	minIdx := 0
	for i := 1; i < len(v.Memories); i++ {
		if v.Memories[i].Importance < v.Memories[minIdx].Importance {
			minIdx = i
		}
	}
	if m.Importance > v.Memories[minIdx].Importance {
		v.Memories[minIdx] = m
	}
}

// RecentMemories returns the most recent N memories, newest first.
func RecentMemories(v *Villager, count int) []Memory {
	if len(v.Memories) == 0 {
		return nil
	}

	sorted := make([]Memory, len(v.Memories))
	copy(sorted, v.Memories)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Day > sorted[j].Day
	})

	if count > len(sorted) {
		count = len(sorted)
	}
	return sorted[:count]
}

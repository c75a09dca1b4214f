package social

import "math"

// AggregateReputation folds the active rumors into each villager's stored
// reputation. The fresh estimate per (villager, category) is the
// intensity×confidence weighted mean of 0.8 for praise and 0.2 for criticism;
// the stored value moves only Smoothing of the way toward it.
func (m *RumorMill) AggregateReputation() {
	type acc struct{ sum, weight float64 }
	fresh := make(map[string]map[Category]*acc)

	for _, r := range m.active {
		if _, ok := m.reputation[r.Target]; !ok {
			continue
		}
		row := fresh[r.Target]
		if row == nil {
			row = make(map[Category]*acc)
			fresh[r.Target] = row
		}
		a := row[r.Category]
		if a == nil {
			a = &acc{}
			row[r.Category] = a
		}
		value := 0.2
		if r.Positive {
			value = 0.8
		}
		w := r.Intensity * r.Confidence
		a.sum += value * w
		a.weight += w
	}

	for name, row := range fresh {
		for c, a := range row {
			if a.weight <= 0 {
				continue
			}
			target := a.sum / a.weight
			old := m.Reputation(name, c)
			m.reputation[name][c] = old*(1-m.cfg.Smoothing) + target*m.cfg.Smoothing
		}
	}
}

// Reputation returns a villager's reputation in a category, neutral if unknown.
func (m *RumorMill) Reputation(name string, c Category) float64 {
	if row, ok := m.reputation[name]; ok {
		if v, ok := row[c]; ok {
			return v
		}
	}
	return m.cfg.NeutralReputation
}

// ReputationSummary returns the categories in which a villager is noticeably
// above or below neutral.
func (m *RumorMill) ReputationSummary(name string) map[Category]float64 {
	out := make(map[Category]float64)
	for c, v := range m.reputation[name] {
		if math.Abs(v-m.cfg.NeutralReputation) > 0.1 {
			out[c] = v
		}
	}
	return out
}

// Reputations returns a copy of every stored reputation.
func (m *RumorMill) Reputations() map[string]map[Category]float64 {
	out := make(map[string]map[Category]float64, len(m.reputation))
	for name, row := range m.reputation {
		cp := make(map[Category]float64, len(row))
		for c, v := range row {
			cp[c] = v
		}
		out[name] = cp
	}
	return out
}

// RestoreReputation overwrites stored reputation values.
func (m *RumorMill) RestoreReputation(name string, c Category, v float64) {
	row := m.reputation[name]
	if row == nil {
		row = make(map[Category]float64)
		m.reputation[name] = row
	}
	row[c] = v
}

// Package economy holds the village's shared stores of food and building
// materials. Resolvers deposit what they produce and withdraw what they use;
// a withdrawal larger than the stock is filled partially.
package economy

import "fmt"

// Good is a kind of stored resource.
type Good uint8

const (
	GoodFood Good = iota
	GoodMaterials
)

// String returns the good's name.
func (g Good) String() string {
	switch g {
	case GoodFood:
		return "food"
	case GoodMaterials:
		return "materials"
	default:
		return fmt.Sprintf("good(%d)", g)
	}
}

// Entry is the state of one good in storage.
type Entry struct {
	Good          Good    `json:"good"`
	Quantity      float64 `json:"quantity"`
	ProducedToday float64 `json:"produced_today"`
	ConsumedToday float64 `json:"consumed_today"`
	ShortToday    float64 `json:"short_today"` // requested but unavailable
}

// Stores is the village storehouse.
type Stores struct {
	Entries map[Good]*Entry `json:"entries"`
}

// NewStores creates a storehouse with starting quantities.
func NewStores(food, materials float64) *Stores {
	return &Stores{Entries: map[Good]*Entry{
		GoodFood:      {Good: GoodFood, Quantity: food},
		GoodMaterials: {Good: GoodMaterials, Quantity: materials},
	}}
}

func (s *Stores) entry(g Good) *Entry {
	e, ok := s.Entries[g]
	if !ok {
		e = &Entry{Good: g}
		s.Entries[g] = e
	}
	return e
}

// Quantity returns the stock of a good.
func (s *Stores) Quantity(g Good) float64 {
	return s.entry(g).Quantity
}

// Deposit adds a non-negative amount to storage.
func (s *Stores) Deposit(g Good, qty float64) {
	if qty <= 0 {
		return
	}
	e := s.entry(g)
	e.Quantity += qty
	e.ProducedToday += qty
}

// Withdraw takes up to qty from storage and returns what was taken and
// whether the full amount was available.
func (s *Stores) Withdraw(g Good, qty float64) (float64, bool) {
	if qty <= 0 {
		return 0, true
	}
	e := s.entry(g)
	took := qty
	if e.Quantity < qty {
		took = e.Quantity
		e.ShortToday += qty - took
	}
	e.Quantity -= took
	e.ConsumedToday += took
	return took, took >= qty
}

// ResetDay clears the daily flow counters.
func (s *Stores) ResetDay() {
	for _, e := range s.Entries {
		e.ProducedToday = 0
		e.ConsumedToday = 0
		e.ShortToday = 0
	}
}

// Restore sets a quantity directly, used when loading saved state.
func (s *Stores) Restore(g Good, qty float64) {
	s.entry(g).Quantity = qty
}

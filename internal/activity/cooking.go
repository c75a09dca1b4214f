package activity

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/entropy"
	"github.com/talgya/hamlet/internal/inertia"
	"github.com/talgya/hamlet/internal/social"
	"github.com/talgya/hamlet/internal/tuning"
)

// CookStyle is the character of a dish.
type CookStyle string

const (
	Simple  CookStyle = "simple"
	Hearty  CookStyle = "hearty"
	Refined CookStyle = "refined"
	Comfort CookStyle = "comfort"
	Festive CookStyle = "festive"
)

// Dish is a recipe. Food is what one batch takes from the stores.
type Dish struct {
	Name       string    `json:"name"`
	Style      CookStyle `json:"style"`
	Difficulty float64   `json:"difficulty"`
	Taste      float64   `json:"taste"`
	Food       float64   `json:"food"`
	Happiness  float64   `json:"happiness"`
}

// Dishes is the village cookbook.
var Dishes = []Dish{
	{"roast meat", Simple, 0.2, 0.6, 0.5, 0.1},
	{"meat soup", Simple, 0.3, 0.7, 0.3, 0.15},
	{"meatballs", Hearty, 0.4, 0.7, 0.8, 0.2},
	{"slow stew", Hearty, 0.5, 0.8, 0.6, 0.25},
	{"herb roast", Refined, 0.6, 0.9, 0.4, 0.3},
	{"thin-sliced venison", Refined, 0.7, 0.85, 0.2, 0.35},
	{"porridge", Comfort, 0.3, 0.6, 0.2, 0.4},
	{"warm broth", Comfort, 0.4, 0.75, 0.3, 0.35},
	{"feast platter", Festive, 0.5, 0.8, 2.0, 0.4},
	{"house stew", Festive, 0.8, 0.95, 1.5, 0.5},
}

// Occasion is why a meal is cooked.
type Occasion string

const (
	Daily       Occasion = "daily"
	Celebration Occasion = "celebration"
	Recovery    Occasion = "recovery"
)

var occasionStyles = map[Occasion][]CookStyle{
	Daily:       {Simple, Hearty},
	Celebration: {Festive, Refined},
	Recovery:    {Comfort, Simple},
}

// styleAffinity is how well a temperament suits a cooking style.
var styleAffinity = map[agents.Personality]map[CookStyle]float64{
	agents.Creative:   {Refined: 0.3, Festive: 0.2},
	agents.Caring:     {Comfort: 0.3, Simple: 0.2},
	agents.SocialType: {Festive: 0.3, Hearty: 0.2},
	agents.Patient:    {Refined: 0.2, Comfort: 0.2},
	agents.Helpful:    {Hearty: 0.2, Simple: 0.2},
}

// occasionAffinity is how well a temperament suits an occasion.
var occasionAffinity = map[agents.Personality]map[Occasion]float64{
	agents.Caring:     {Recovery: 0.3, Daily: 0.2},
	agents.SocialType: {Celebration: 0.3, Daily: 0.1},
	agents.Helpful:    {Daily: 0.3, Recovery: 0.2},
	agents.Creative:   {Celebration: 0.2, Daily: 0.1},
}

// StyleBonus returns a temperament's affinity for a style.
func StyleBonus(p agents.Personality, s CookStyle) float64 {
	return styleAffinity[p][s]
}

// OccasionBonus returns a temperament's affinity for an occasion.
func OccasionBonus(p agents.Personality, o Occasion) float64 {
	return occasionAffinity[p][o]
}

// CookLevel maps an effective cooking skill onto [0, 1].
func CookLevel(skill float64) float64 {
	return tuning.Unit(0.3 + skill*0.35)
}

// SelectDish picks a dish suited to the occasion that the cook can nearly
// manage. Without one, any easy dish will do.
func SelectDish(rng entropy.Source, level float64, occ Occasion) Dish {
	styles, ok := occasionStyles[occ]
	if !ok {
		styles = occasionStyles[Daily]
	}
	var suitable []Dish
	for _, d := range Dishes {
		if slices.Contains(styles, d.Style) && d.Difficulty <= level+0.3 {
			suitable = append(suitable, d)
		}
	}
	if len(suitable) == 0 {
		for _, d := range Dishes {
			if d.Difficulty <= 0.4 {
				suitable = append(suitable, d)
			}
		}
	}
	d, ok := entropy.Pick(rng, suitable)
	if !ok {
		return Dishes[0]
	}
	return d
}

// CookSuccessRate is the chance a cook at level pulls off a dish.
func CookSuccessRate(level float64, d Dish, bonus float64) float64 {
	return math.Min(0.95, level*0.6+(1-d.Difficulty)*0.3+bonus*0.1)
}

// Taste scores a finished dish: its base taste scaled by the cook's level,
// lifted by a style bonus when it comes off.
func Taste(level float64, d Dish, bonus float64, success bool) float64 {
	if success {
		return math.Min(1, d.Taste*level*(1+bonus*0.5))
	}
	return d.Taste * 0.4 * level
}

// CookRecord is a cook's standing in the village.
type CookRecord struct {
	Name       string   `json:"name"`
	Attempts   int      `json:"attempts"`
	Successes  int      `json:"successes"`
	TasteSum   float64  `json:"taste_sum"`
	Signatures []string `json:"signatures,omitempty"`
	Score      float64  `json:"score"`
	Known      bool     `json:"known"`
}

const knownCookAfter = 5

// CookRequest asks a cook to feed some diners.
type CookRequest struct {
	Cook     *agents.Villager
	Diners   []*agents.Villager
	Occasion Occasion
	Crisis   bool
}

// Kitchen resolves cooking and keeps cook reputations.
type Kitchen struct {
	kit     *Kit
	records map[string]*CookRecord
	tried   map[string]map[string]bool
}

// NewKitchen creates a kitchen.
func NewKitchen(k *Kit) *Kitchen {
	return &Kitchen{kit: k, records: make(map[string]*CookRecord), tried: make(map[string]map[string]bool)}
}

// Record returns a copy of a cook's record.
func (kt *Kitchen) Record(name string) (CookRecord, bool) {
	r, ok := kt.records[name]
	if !ok {
		return CookRecord{}, false
	}
	out := *r
	out.Signatures = append([]string(nil), r.Signatures...)
	return out, true
}

// Resolve cooks one meal. An empty larder is a no-op; a short one is cooked
// with what there is at reduced taste.
func (kt *Kitchen) Resolve(req CookRequest) Outcome {
	k := kt.kit
	cook := req.Cook
	if !k.canWork(cook, agents.Cooking, 1) {
		return noOp(agents.Cooking, nameOf(cook), "cook unfit to work")
	}
	if k.Stores.Quantity(economy.GoodFood) <= 0 {
		return noOp(agents.Cooking, []string{cook.Name}, "nothing in the larder")
	}

	level := CookLevel(k.EffectiveSkill(cook, agents.Cooking))
	dish := SelectDish(k.Rand, level, req.Occasion)
	bonus := StyleBonus(cook.Personality, dish.Style) + OccasionBonus(cook.Personality, req.Occasion)*0.2

	o := Outcome{Activity: agents.Cooking, Actors: []string{cook.Name}, Target: dish.Name}
	took, full := k.Stores.Withdraw(economy.GoodFood, dish.Food)
	o.FoodUsed = took
	o.Degraded = !full

	o.Success = k.Rand.Float64() < CookSuccessRate(level, dish, bonus)
	taste := Taste(level, dish, bonus, o.Success)
	if o.Degraded {
		taste *= 0.6
	}
	o.Quality = taste
	o.Result = "failed"
	if o.Success {
		o.Result = "served"
	}
	k.spend(cook, agents.Cooking, 1)

	fill := 1.0
	if dish.Food > 0 {
		fill = took / dish.Food
	}
	mood := dish.Happiness * taste
	if o.Success {
		mood *= 1.5
	}
	o.Happiness = mood * 0.2

	domain := social.TrustDomain(social.CookingSkill)
	for _, d := range req.Diners {
		d.Eat(math.Min(0.3, taste*0.4) * fill)
		if req.Occasion == Recovery && d.Injured() {
			d.Heal(taste * 0.15)
		}
		k.judge(d.Name, cook.Name, domain, o.Success, taste)
	}

	newRecipe := !kt.tried[cook.Name][dish.Name]
	if kt.tried[cook.Name] == nil {
		kt.tried[cook.Name] = make(map[string]bool)
	}
	kt.tried[cook.Name][dish.Name] = true

	k.learn(&o, cook.Name, agents.Cooking, inertia.Context{
		Success:          o.Success,
		Effectiveness:    inertia.Of(taste),
		Difficulty:       inertia.Of(dish.Difficulty),
		Emergency:        req.Crisis && o.Success,
		PeopleAffected:   len(req.Diners),
		ResourceScarcity: o.Degraded,
		HighStakes:       req.Occasion == Celebration,
		Cook: inertia.CookFlags{
			FeastPreparation:   req.Occasion == Celebration,
			FoodCrisis:         req.Crisis,
			NewRecipe:          newRecipe,
			LimitedIngredients: o.Degraded,
			LargeGroup:         len(req.Diners) > 5,
		},
	})
	k.Ledger.UpdateExperience(cook.Name, agents.Cooking, "hearth", o.Success, taste)
	k.roll(&o, []*agents.Villager{cook}, "cooking", o.Success, 1)

	kt.remember(cook, dish, taste, o.Success, req.Diners)

	// One diner talks about the meal.
	var eaters []string
	for _, d := range req.Diners {
		if d.Name != cook.Name {
			eaters = append(eaters, d.Name)
		}
	}
	if eater, ok := entropy.Pick(k.Rand, eaters); ok {
		intensity := math.Min(1, taste+entropy.Uniform(k.Rand, 0.1, 0.3))
		k.tell(&o, eater, cook.Name, social.CookingSkill, o.Success && taste > 0.5, intensity, k.Village)
	}

	o.Description = fmt.Sprintf("%s cooked %s for %d (taste %.2f)", cook.Name, dish.Name, len(req.Diners), taste)
	if o.Degraded {
		o.Description += ", short on food"
	}
	slog.Debug("meal resolved", "cook", cook.Name, "dish", dish.Name, "success", o.Success, "taste", taste)
	return o
}

// remember updates the cook's record. A cook becomes known after enough
// successes, and the first diner to notice says so publicly.
func (kt *Kitchen) remember(cook *agents.Villager, d Dish, taste float64, success bool, diners []*agents.Villager) {
	r, ok := kt.records[cook.Name]
	if !ok {
		r = &CookRecord{Name: cook.Name}
		kt.records[cook.Name] = r
	}
	r.Attempts++
	r.TasteSum += taste
	if success {
		r.Successes++
		if taste > 0.8 && !slices.Contains(r.Signatures, d.Name) {
			r.Signatures = append(r.Signatures, d.Name)
		}
	}
	avg := r.TasteSum / float64(r.Attempts)
	rate := float64(r.Successes) / float64(r.Attempts)
	r.Score = avg * rate * math.Min(1.5, 1+float64(r.Attempts)*0.02)

	if r.Known || r.Successes < knownCookAfter {
		return
	}
	r.Known = true
	agents.AddMemory(cook, kt.kit.Day, "became known as a cook", 0.7)
	for _, d := range diners {
		if d.Name != cook.Name {
			kt.kit.Ledger.Recognize(cook.Name, d.Name, string(agents.Cooking), 0.5)
			break
		}
	}
	slog.Info("cook recognized", "cook", cook.Name, "successes", r.Successes)
}

func nameOf(v *agents.Villager) []string {
	if v == nil {
		return nil
	}
	return []string{v.Name}
}

package activity

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"slices"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/entropy"
	"github.com/talgya/hamlet/internal/inertia"
	"github.com/talgya/hamlet/internal/social"
	"github.com/talgya/hamlet/internal/tuning"
	"github.com/talgya/hamlet/internal/weather"
)

// PreySize groups prey by how hard and rewarding they are.
type PreySize uint8

const (
	Small PreySize = iota
	Medium
	Large
	Legendary
)

var preySizeNames = [...]string{"small", "medium", "large", "legendary"}

func (s PreySize) String() string {
	if int(s) < len(preySizeNames) {
		return preySizeNames[s]
	}
	return fmt.Sprintf("size(%d)", s)
}

// Prey is a huntable animal.
type Prey struct {
	Name       string   `json:"name"`
	Size       PreySize `json:"size"`
	Difficulty float64  `json:"difficulty"`
	Meat       float64  `json:"meat"`
	Danger     float64  `json:"danger"`
	Rarity     float64  `json:"rarity"`
}

// PreyCatalog lists every animal that can appear in the woods.
var PreyCatalog = []Prey{
	{"rabbit", Small, 0.1, 1.0, 0.0, 0.8},
	{"fox", Small, 0.2, 1.2, 0.1, 0.6},
	{"wild bird", Small, 0.3, 0.8, 0.0, 0.7},
	{"squirrel", Small, 0.15, 0.6, 0.0, 0.9},

	{"deer", Medium, 0.4, 3.0, 0.1, 0.5},
	{"boar", Medium, 0.6, 4.0, 0.4, 0.3},
	{"wolf", Medium, 0.7, 2.5, 0.6, 0.2},
	{"wild ox", Medium, 0.5, 5.0, 0.3, 0.25},

	{"bear", Large, 0.8, 8.0, 0.8, 0.1},
	{"elk", Large, 0.6, 6.0, 0.2, 0.15},
	{"giant boar", Large, 0.9, 10.0, 0.7, 0.08},
	{"mountain king", Large, 0.85, 12.0, 0.6, 0.05},

	{"old forest guardian", Legendary, 0.95, 20.0, 0.9, 0.01},
	{"silver wolf king", Legendary, 0.9, 15.0, 0.95, 0.005},
	{"white phantom stag", Legendary, 0.8, 18.0, 0.3, 0.008},
	{"thunder bear", Legendary, 1.0, 25.0, 1.0, 0.003},
}

// SmallGame is what hunters bring back when nothing bigger is about.
var SmallGame = Prey{Name: "small game", Size: Small, Difficulty: 0.2, Meat: 2.5, Danger: 0.05, Rarity: 1}

// FoodPerMeat converts meat to stored food.
const FoodPerMeat = 1.0

const (
	escapeChance    = 0.3
	largeSpawn      = 0.1
	legendarySpawn  = 0.02
	coopBonus       = 0.15
	groupBonusEach  = 0.05
	groupBonusLimit = 0.2
	maxHuntRate     = 0.95
	minHuntRate     = 0.05
	preferredBonus  = 0.2
)

// Style is how a hunter approaches prey.
type Style uint8

const (
	StyleCautious Style = iota
	StyleAggressive
	StyleStrategic
	StyleCooperative
	StyleSolo
	StyleAvoid
)

var styleNames = [...]string{"cautious", "aggressive", "strategic", "cooperative", "solo", "avoid"}

func (s Style) String() string {
	if int(s) < len(styleNames) {
		return styleNames[s]
	}
	return fmt.Sprintf("style(%d)", s)
}

// huntingStyles are the two approaches each temperament leans toward.
var huntingStyles = map[agents.Personality][]Style{
	agents.Aggressive:  {StyleAggressive, StyleSolo},
	agents.Cautious:    {StyleCautious, StyleAvoid},
	agents.Brave:       {StyleAggressive, StyleStrategic},
	agents.Strategic:   {StyleStrategic, StyleCautious},
	agents.Cooperative: {StyleCooperative, StyleStrategic},
	agents.Competitive: {StyleSolo, StyleAggressive},
	agents.Gentle:      {StyleAvoid, StyleCautious},
	agents.Helpful:     {StyleCooperative, StyleStrategic},
	agents.Caring:      {StyleCooperative, StyleCautious},
	agents.Independent: {StyleSolo, StyleStrategic},
	agents.SocialType:  {StyleCooperative, StyleStrategic},
	agents.Creative:    {StyleStrategic, StyleCooperative},
	agents.Practical:   {StyleCautious, StyleStrategic},
	agents.Energetic:   {StyleAggressive, StyleCooperative},
}

// Traits are a hunter's physical and mental aptitudes, each in [0, 1].
type Traits struct {
	Accuracy float64 `json:"accuracy"`
	Stealth  float64 `json:"stealth"`
	Strength float64 `json:"strength"`
	Courage  float64 `json:"courage"`
}

var neutralTraits = Traits{0.6, 0.6, 0.6, 0.6}

var huntingTraits = map[agents.Personality]Traits{
	agents.Aggressive:  {0.6, 0.4, 0.8, 0.9},
	agents.Cautious:    {0.8, 0.9, 0.5, 0.4},
	agents.Brave:       {0.7, 0.5, 0.7, 0.9},
	agents.Strategic:   {0.9, 0.8, 0.6, 0.6},
	agents.Cooperative: {0.7, 0.7, 0.7, 0.7},
	agents.Competitive: {0.8, 0.6, 0.8, 0.8},
	agents.Gentle:      {0.5, 0.6, 0.4, 0.3},
}

// TraitsFor returns the hunting traits of a temperament, neutral if unlisted.
func TraitsFor(p agents.Personality) Traits {
	if t, ok := huntingTraits[p]; ok {
		return t
	}
	return neutralTraits
}

// ChooseStyle picks a hunter's approach to prey. Very dangerous prey sends
// the timid home. Big prey pulls team players into a group effort and scares
// off unskilled hunters who are not bold by temperament.
func ChooseStyle(rng entropy.Source, p agents.Personality, skill float64, prey Prey) Style {
	styles, ok := huntingStyles[p]
	if !ok {
		styles = []Style{StyleCautious}
	}
	styles = append([]Style(nil), styles...)

	bold := p == agents.Aggressive || p == agents.Brave
	if prey.Danger > 0.7 {
		if p == agents.Gentle || p == agents.Cautious {
			return StyleAvoid
		}
		if !bold && !slices.Contains(styles, StyleCautious) {
			styles = append(styles, StyleCautious)
		}
	}

	big := prey.Size >= Large
	if big && (p == agents.Cooperative || p == agents.Helpful || p == agents.SocialType) {
		return StyleCooperative
	}
	if big && skill < 2.0 && !bold && p != agents.Competitive {
		return StyleAvoid
	}

	s, _ := entropy.Pick(rng, styles)
	return s
}

// PreferredPrey returns the prey size a hunter has a knack for. About three
// villagers in ten have one. It is fixed by name so it survives a restart.
func PreferredPrey(name string) (PreySize, bool) {
	h := fnv.New32a()
	h.Write([]byte(name))
	sum := h.Sum32()
	if sum%10 >= 3 {
		return 0, false
	}
	return PreySize(sum / 10 % uint32(len(preySizeNames))), true
}

// SuccessRate is one hunter's chance against prey using a style. skill is
// the effective hunting skill, experience the hunter's inertia and preferred
// whether the prey is the size the hunter has a knack for.
func SuccessRate(skill, experience float64, t Traits, prey Prey, s Style, preferred bool) float64 {
	base := math.Min(0.9, skill/10)
	diffMod := 1 - prey.Difficulty*0.7

	var mod float64
	switch s {
	case StyleAggressive:
		mod = t.Courage + t.Strength - prey.Danger*0.5
	case StyleCautious:
		mod = t.Stealth + t.Accuracy - prey.Difficulty*0.3
	case StyleStrategic:
		mod = (t.Accuracy+t.Stealth)/2 + skill*0.05
	case StyleCooperative:
		mod = skill*0.1 + 0.2
	case StyleSolo:
		mod = (t.Strength + t.Courage) / 2
	case StyleAvoid:
		return 0
	}

	var bonus float64
	if preferred {
		bonus = preferredBonus
	}
	exp := math.Min(0.15, experience*0.03)
	return tuning.Clamp(base*diffMod+mod*0.3+bonus+exp, minHuntRate, maxHuntRate)
}

// HuntResult is a rung of the hunting outcome ladder.
type HuntResult uint8

const (
	HuntCritical HuntResult = iota
	HuntSuccess
	HuntPartial
	HuntFailure
	HuntInjury
	HuntDisaster
)

var huntResultNames = [...]string{"critical_success", "success", "partial_success", "failure", "injury", "disaster"}

func (r HuntResult) String() string {
	if int(r) < len(huntResultNames) {
		return huntResultNames[r]
	}
	return fmt.Sprintf("result(%d)", r)
}

// Succeeded reports whether the hunt brought meat home.
func (r HuntResult) Succeeded() bool {
	return r <= HuntPartial
}

// Ladder maps one uniform roll onto the outcome ladder for success rate s.
// Bands are cumulative; a band whose upper bound lies below the previous one
// is empty.
func Ladder(roll, s float64) HuntResult {
	switch {
	case roll <= s*0.1:
		return HuntCritical
	case roll <= s:
		return HuntSuccess
	case roll <= s+0.2:
		return HuntPartial
	case roll <= 0.7:
		return HuntFailure
	case roll <= 0.9:
		return HuntInjury
	default:
		return HuntDisaster
	}
}

// HuntRequest describes one hunting party.
type HuntRequest struct {
	Hunters []*agents.Villager
	Weather weather.Conditions
	Crisis  bool // stores below the crisis line
}

// Hunting tracks the prey currently roaming and resolves hunts.
type Hunting struct {
	kit    *Kit
	active []Prey
}

// NewHunting creates a hunting ground with no prey about.
func NewHunting(k *Kit) *Hunting {
	return &Hunting{kit: k}
}

// Available returns a copy of the prey currently roaming.
func (h *Hunting) Available() []Prey {
	return append([]Prey(nil), h.active...)
}

// Spawn runs one day of prey movement. Roaming prey may leave, and new prey
// arrives by rarity scaled with abundance.
func (h *Hunting) Spawn(abundance float64) {
	rng := h.kit.Rand
	kept := h.active[:0]
	for _, p := range h.active {
		if rng.Float64() > escapeChance {
			kept = append(kept, p)
		}
	}
	h.active = kept

	var large, legendary []Prey
	for _, p := range PreyCatalog {
		switch p.Size {
		case Small, Medium:
			if rng.Float64() < p.Rarity*2*abundance {
				h.add(p)
			}
		case Large:
			large = append(large, p)
		case Legendary:
			legendary = append(legendary, p)
		}
	}
	if rng.Float64() < largeSpawn*abundance {
		if p, ok := entropy.Pick(rng, large); ok {
			h.add(p)
		}
	}
	if rng.Float64() < legendarySpawn*abundance {
		if p, ok := entropy.Pick(rng, legendary); ok {
			h.add(p)
		}
	}
}

func (h *Hunting) add(p Prey) {
	for _, x := range h.active {
		if x.Name == p.Name {
			return
		}
	}
	h.active = append(h.active, p)
}

func (h *Hunting) remove(name string) {
	for i, x := range h.active {
		if x.Name == name {
			h.active = append(h.active[:i], h.active[i+1:]...)
			return
		}
	}
}

// pick chooses what the party goes after. Safer prey is favoured.
func (h *Hunting) pick() Prey {
	if len(h.active) == 0 {
		return SmallGame
	}
	weights := make([]float64, len(h.active))
	for i, p := range h.active {
		weights[i] = 1.1 - p.Danger
	}
	return h.active[entropy.Weighted(h.kit.Rand, weights)]
}

// Resolve sends a party after whatever is roaming, or small game when the
// woods are empty.
func (h *Hunting) Resolve(req HuntRequest) Outcome {
	return h.ResolvePrey(req, h.pick())
}

// ResolvePrey hunts a specific animal. Hunters who cannot afford the session
// stay home; with nobody left the outcome is a no-op.
func (h *Hunting) ResolvePrey(req HuntRequest, prey Prey) Outcome {
	var party []*agents.Villager
	for _, v := range req.Hunters {
		if h.kit.canWork(v, agents.Hunting, 1) {
			party = append(party, v)
		}
	}
	if len(party) == 0 {
		return noOp(agents.Hunting, names(req.Hunters), "nobody was fit to hunt")
	}
	return h.hunt(party, prey, req)
}

func (h *Hunting) hunt(party []*agents.Villager, prey Prey, req HuntRequest) Outcome {
	k := h.kit
	sim := weather.MapToSim(req.Weather)
	o := Outcome{Activity: agents.Hunting, Actors: names(party), Target: prey.Name}

	var hunters []*agents.Villager
	rates := make(map[string]float64)
	coop := 0
	for _, v := range party {
		skill := k.EffectiveSkill(v, agents.Hunting)
		style := ChooseStyle(k.Rand, v.Personality, skill, prey)
		k.spend(v, agents.Hunting, 1)
		if style == StyleAvoid {
			continue
		}
		if style == StyleCooperative {
			coop++
		}
		hunters = append(hunters, v)
		size, ok := PreferredPrey(v.Name)
		rates[v.Name] = SuccessRate(skill, k.Inertia.Inertia(v.Name, agents.Hunting), TraitsFor(v.Personality), prey, style, ok && size == prey.Size)
	}

	if len(hunters) == 0 {
		o.Result = "avoided"
		o.Description = fmt.Sprintf("%s turned back from the %s", joinNames(o.Actors), prey.Name)
		return o
	}

	group := len(hunters) > 1
	rate := 0.0
	for _, v := range hunters {
		rate += rates[v.Name]
	}
	rate /= float64(len(hunters))
	if group {
		rate += coopBonus*float64(coop) + math.Min(groupBonusLimit, groupBonusEach*float64(len(hunters)))
	}
	rate = tuning.Clamp(rate-sim.HuntPenalty, minHuntRate, maxHuntRate)

	result := Ladder(k.Rand.Float64(), rate)
	o.Result = result.String()
	o.Success = result.Succeeded()

	var meat float64
	switch result {
	case HuntCritical:
		meat = prey.Meat * entropy.Uniform(k.Rand, 1.2, 1.5)
	case HuntSuccess:
		meat = prey.Meat * entropy.Uniform(k.Rand, 0.8, 1.2)
	case HuntPartial:
		meat = prey.Meat * entropy.Uniform(k.Rand, 0.3, 0.7)
	}
	o.Quality = tuning.Unit(meat / prey.Meat)
	o.FoodGained = meat * FoodPerMeat
	k.Stores.Deposit(economy.GoodFood, o.FoodGained)
	if result == HuntCritical || result == HuntSuccess {
		h.remove(prey.Name)
	}

	in := k.injuries()
	switch result {
	case HuntInjury:
		v, _ := entropy.Pick(k.Rand, hunters)
		o.Injuries = append(o.Injuries, in.Apply(v, false))
	case HuntDisaster:
		n := entropy.IntBetween(k.Rand, 1, len(hunters))
		for _, i := range entropy.Sample(k.Rand, len(hunters), n) {
			w := in.Apply(hunters[i], true)
			o.Injuries = append(o.Injuries, w)
			agents.AddMemory(hunters[i], k.Day, "mauled hunting "+prey.Name, 0.9)
		}
	default:
		k.roll(&o, hunters, "hunting", o.Success, sim.InjuryMod)
	}

	for _, v := range hunters {
		ctx := inertia.Context{
			Success:          o.Success,
			Effectiveness:    inertia.Of(o.Quality),
			Difficulty:       inertia.Of(prey.Difficulty),
			Emergency:        req.Crisis,
			PeopleAffected:   len(h.kit.Village),
			Collaboration:    group,
			ResourceScarcity: req.Crisis,
			HighStakes:       prey.Size >= Large,
			Hunt: inertia.HuntFlags{
				LargePrey:         prey.Size >= Large,
				DangerLevel:       inertia.Of(prey.Danger),
				WeatherBad:        req.Weather.Bad,
				GroupCoordination: group && coop > 0,
			},
		}
		if o.FoodGained == 0 {
			ctx.PeopleAffected = 1
		}
		k.learn(&o, v.Name, agents.Hunting, ctx)
		k.Ledger.UpdateExperience(v.Name, agents.Hunting, "forest", o.Success, o.Quality)
		if prey.Size == Legendary && o.Success {
			agents.AddMemory(v, k.Day, "brought down the "+prey.Name, 1.0)
		}
	}

	domain := social.TrustDomain(social.HuntingSkill)
	if group {
		for _, a := range hunters {
			for _, b := range hunters {
				if a != b {
					k.judge(a.Name, b.Name, domain, o.Success, o.Quality)
				}
			}
		}
	}

	h.gossip(&o, hunters, prey, result, h.kit.Village)

	o.Description = fmt.Sprintf("%s hunted %s: %s, %.1f food", joinNames(names(hunters)), prey.Name, result, o.FoodGained)
	slog.Debug("hunt resolved", "hunters", len(hunters), "prey", prey.Name, "rate", rate, "result", result.String(), "food", o.FoodGained)
	return o
}

// gossip lets a witness talk about a notable hunt. In a group the partner
// saw it; alone, whoever helped carry the meat in tells it.
func (h *Hunting) gossip(o *Outcome, hunters []*agents.Villager, prey Prey, result HuntResult, village []string) {
	var intensity float64
	positive := true
	switch {
	case result == HuntCritical:
		intensity = 0.8
	case result.Succeeded() && prey.Size == Legendary:
		intensity = 1.0
	case result.Succeeded() && prey.Size == Large:
		intensity = 0.9
	case result == HuntDisaster:
		intensity, positive = 0.6, false
	case result == HuntInjury:
		intensity, positive = 0.4, false
	default:
		return
	}

	k := h.kit
	hunterNames := names(hunters)
	for _, v := range hunters {
		witnesses := others(hunterNames, v.Name)
		if len(witnesses) == 0 {
			witnesses = others(village, v.Name)
		}
		w, ok := entropy.Pick(k.Rand, witnesses)
		if !ok {
			continue
		}
		k.tell(o, w, v.Name, social.HuntingSkill, positive, intensity, village)
	}
}

func joinNames(ns []string) string {
	switch len(ns) {
	case 0:
		return "nobody"
	case 1:
		return ns[0]
	}
	out := ns[0]
	for _, n := range ns[1 : len(ns)-1] {
		out += ", " + n
	}
	return out + " and " + ns[len(ns)-1]
}

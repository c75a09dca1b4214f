package activity

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/entropy"
	"github.com/talgya/hamlet/internal/inertia"
	"github.com/talgya/hamlet/internal/social"
	"github.com/talgya/hamlet/internal/tuning"
)

// BuildRequest is a villager asking for construction work.
type BuildRequest struct {
	Requester   string           `json:"requester"`
	Type        ConstructionType `json:"type"`
	Urgency     float64          `json:"urgency"`
	Complexity  float64          `json:"complexity"`
	VillageWide bool             `json:"village_wide"`
}

// OngoingProject is a multi-day build. It moves from the ongoing list to the
// completed list once DaysWorked reaches the project's Days.
type OngoingProject struct {
	ID            string       `db:"id" json:"id"`
	Project       Project      `db:"-" json:"project"`
	Request       BuildRequest `db:"-" json:"request"`
	Lead          string       `db:"lead" json:"lead"`
	Helpers       []string     `db:"-" json:"helpers,omitempty"`
	StartDay      int          `db:"start_day" json:"start_day"`
	DaysWorked    int          `db:"days_worked" json:"days_worked"`
	Progress      float64      `db:"progress" json:"progress"`
	DailyProgress []float64    `db:"-" json:"daily_progress,omitempty"`
	QualitySum    float64      `db:"quality_sum" json:"quality_sum"`
	MaterialsUsed float64      `db:"materials_used" json:"materials_used"`
	Completed     bool         `db:"completed" json:"completed"`
	FinalQuality  float64      `db:"final_quality" json:"final_quality"`
}

// Done reports whether every required work day has been put in.
func (p *OngoingProject) Done() bool {
	return p.DaysWorked >= p.Project.Days
}

// Percent is progress toward completion, capped at 100.
func (p *OngoingProject) Percent() float64 {
	if p.Project.Days <= 0 {
		return 100
	}
	return math.Min(100, p.Progress/float64(p.Project.Days)*100)
}

// CarpenterRecord is a carpenter's standing in the village.
type CarpenterRecord struct {
	Name       string   `json:"name"`
	Attempts   int      `json:"attempts"`
	Successes  int      `json:"successes"`
	QualitySum float64  `json:"quality_sum"`
	Score      float64  `json:"score"`
	Title      string   `json:"title,omitempty"`
	Works      []string `json:"works,omitempty"`
}

// Reputation thresholds for carpenter titles.
const (
	knownCarpenter   = 3.0
	skilledCarpenter = 10.0
	masterCarpenter  = 20.0
)

func (r *CarpenterRecord) retitle() {
	switch {
	case r.Score > masterCarpenter:
		r.Title = "master craftsman"
	case r.Score > skilledCarpenter:
		r.Title = "skilled carpenter"
	case r.Score > knownCarpenter:
		r.Title = "known carpenter"
	}
}

// Daily request rates.
const (
	urgentRepairRate  = 0.3
	innovationRate    = 0.1
	maintenanceRate   = 0.4
	newHousingRate    = 0.2
	helperEnergyShare = 0.7
	helperLearnShare  = 0.7
)

// Workshop resolves carpentry and tracks projects, carpenter reputations and
// the quality of the village's buildings.
type Workshop struct {
	kit       *Kit
	ongoing   []*OngoingProject
	completed []*OngoingProject
	records   map[string]*CarpenterRecord
	buildings map[string]float64
}

// NewWorkshop creates a workshop with the village's starting buildings.
func NewWorkshop(k *Kit) *Workshop {
	return &Workshop{
		kit:     k,
		records: make(map[string]*CarpenterRecord),
		buildings: map[string]float64{
			"dwellings":    0.6,
			"workshop":     0.4,
			"storehouse":   0.3,
			"meeting hall": 0.2,
		},
	}
}

// Ongoing returns the projects under way.
func (w *Workshop) Ongoing() []*OngoingProject {
	return append([]*OngoingProject(nil), w.ongoing...)
}

// Completed returns finished projects in completion order.
func (w *Workshop) Completed() []*OngoingProject {
	return append([]*OngoingProject(nil), w.completed...)
}

// Buildings returns a copy of building quality by name.
func (w *Workshop) Buildings() map[string]float64 {
	out := make(map[string]float64, len(w.buildings))
	for k, v := range w.buildings {
		out[k] = v
	}
	return out
}

// Record returns a copy of a carpenter's record.
func (w *Workshop) Record(name string) (CarpenterRecord, bool) {
	r, ok := w.records[name]
	if !ok {
		return CarpenterRecord{}, false
	}
	out := *r
	out.Works = append([]string(nil), r.Works...)
	return out, true
}

func (w *Workshop) record(name string) *CarpenterRecord {
	r, ok := w.records[name]
	if !ok {
		r = &CarpenterRecord{Name: name}
		w.records[name] = r
	}
	return r
}

// Skilled returns carpenters with a skilled reputation, best first.
func (w *Workshop) Skilled() []string {
	var out []string
	for name, r := range w.records {
		if r.Score > skilledCarpenter {
			out = append(out, name)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return w.records[out[i]].Score > w.records[out[j]].Score
	})
	return out
}

// Requests draws the day's construction requests. Emergencies are twice as
// likely in a food crisis, and a content village asks for new housing and
// ambitious infrastructure.
func (w *Workshop) Requests(village []string, happiness float64, crisis bool) []BuildRequest {
	rng := w.kit.Rand
	if len(village) == 0 {
		return nil
	}
	requester := func() string {
		n, _ := entropy.Pick(rng, village)
		return n
	}

	var out []BuildRequest
	urgent := urgentRepairRate
	if crisis {
		urgent *= 2
	}
	if rng.Float64() < urgent {
		out = append(out, BuildRequest{
			Requester:   requester(),
			Type:        EmergencyRepair,
			Urgency:     entropy.Uniform(rng, 0.8, 1.0),
			Complexity:  entropy.Uniform(rng, 0.6, 0.9),
			VillageWide: rng.Float64() < 0.4,
		})
	}
	if happiness > 0.7 && len(w.Skilled()) > 0 && rng.Float64() < innovationRate {
		out = append(out, BuildRequest{
			Requester:   requester(),
			Type:        Infrastructure,
			Urgency:     entropy.Uniform(rng, 0.5, 0.8),
			Complexity:  entropy.Uniform(rng, 0.7, 1.0),
			VillageWide: true,
		})
	}
	if rng.Float64() < maintenanceRate {
		out = append(out, BuildRequest{
			Requester:  requester(),
			Type:       Repair,
			Urgency:    entropy.Uniform(rng, 0.2, 0.5),
			Complexity: entropy.Uniform(rng, 0.2, 0.4),
		})
	}
	if happiness > 0.6 && rng.Float64() < newHousingRate {
		out = append(out, BuildRequest{
			Requester:   requester(),
			Type:        Housing,
			Urgency:     entropy.Uniform(rng, 0.4, 0.7),
			Complexity:  entropy.Uniform(rng, 0.5, 0.8),
			VillageWide: rng.Float64() < 0.3,
		})
	}
	return out
}

// Take serves a request: single-day projects are resolved at once, longer
// ones are started and worked for their first day.
func (w *Workshop) Take(lead *agents.Villager, req BuildRequest, helpers []*agents.Villager) Outcome {
	project := SelectProject(w.kit.Rand, req.Type, req.Complexity)
	if project.Days <= 1 {
		return w.resolveSingleDay(lead, req, project)
	}
	if !w.kit.canWork(lead, agents.Carpentry, 1) {
		return noOp(agents.Carpentry, nameOf(lead), "carpenter unfit to work")
	}
	p := w.Begin(lead, project, req, helpers)
	return w.ContinueWork(p, lead, helpers)
}

// Start selects a project for the request and opens it.
func (w *Workshop) Start(lead *agents.Villager, req BuildRequest, helpers []*agents.Villager) *OngoingProject {
	return w.Begin(lead, SelectProject(w.kit.Rand, req.Type, req.Complexity), req, helpers)
}

// Begin opens a specific project.
func (w *Workshop) Begin(lead *agents.Villager, project Project, req BuildRequest, helpers []*agents.Villager) *OngoingProject {
	p := &OngoingProject{
		ID:       uuid.NewString(),
		Project:  project,
		Request:  req,
		Lead:     lead.Name,
		Helpers:  names(helpers),
		StartDay: w.kit.Day,
	}
	w.ongoing = append(w.ongoing, p)
	slog.Info("project started", "project", project.Name, "lead", lead.Name, "days", project.Days, "helpers", len(helpers))
	return p
}

// Restore reinstates saved projects.
func (w *Workshop) Restore(ongoing, completed []*OngoingProject) {
	w.ongoing = append([]*OngoingProject(nil), ongoing...)
	w.completed = append([]*OngoingProject(nil), completed...)
}

// Records returns every carpenter record, sorted by name.
func (w *Workshop) Records() []CarpenterRecord {
	out := make([]CarpenterRecord, 0, len(w.records))
	for name := range w.records {
		r, _ := w.Record(name)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RestoreRecords reinstates saved carpenter records.
func (w *Workshop) RestoreRecords(records []CarpenterRecord) {
	for _, r := range records {
		cp := r
		cp.Works = append([]string(nil), r.Works...)
		w.records[r.Name] = &cp
	}
}

// RestoreBuildings overwrites building qualities.
func (w *Workshop) RestoreBuildings(b map[string]float64) {
	for k, v := range b {
		w.buildings[k] = tuning.Unit(v)
	}
}

// ContinueWork puts in one day on an ongoing project. Helpers raise the
// day's efficiency, as does familiarity once the work is past its second
// day. The project completes on the call that brings DaysWorked to the
// project's Days, and final quality is the accumulated quality divided by
// those days.
func (w *Workshop) ContinueWork(p *OngoingProject, lead *agents.Villager, helpers []*agents.Villager) Outcome {
	k := w.kit
	if p == nil || p.Completed {
		return noOp(agents.Carpentry, nameOf(lead), "no project to work on")
	}
	if !k.canWork(lead, agents.Carpentry, 1) {
		return noOp(agents.Carpentry, nameOf(lead), "carpenter unfit to work")
	}
	var crew []*agents.Villager
	for _, h := range helpers {
		if h != lead && k.canWork(h, agents.Carpentry, helperEnergyShare) {
			crew = append(crew, h)
		}
	}

	project := p.Project
	o := Outcome{Activity: agents.Carpentry, Actors: append([]string{lead.Name}, names(crew)...), Target: project.Name}

	eff := 1.0
	if len(crew) > 0 {
		eff += math.Min(0.5, float64(len(crew))*0.15)
	}
	if p.DaysWorked > 2 {
		eff += math.Min(0.3, float64(p.DaysWorked)*0.05)
	}

	o.Success = k.Rand.Float64() < math.Min(0.9, 0.5+eff*0.3)
	var progress, gain float64
	if o.Success {
		progress = eff * entropy.Uniform(k.Rand, 0.8, 1.2)
		gain = project.BaseQuality * progress * entropy.Uniform(k.Rand, 0.9, 1.1)
	} else {
		progress = eff * entropy.Uniform(k.Rand, 0.3, 0.6)
		gain = project.BaseQuality * progress * 0.7
	}

	need := project.Materials / float64(max(1, project.Days))
	took, full := k.Stores.Withdraw(economy.GoodMaterials, need)
	o.MaterialsUsed = took
	if !full {
		o.Degraded = true
		progress *= 0.5
		gain *= 0.5
	}

	p.DaysWorked++
	p.Progress += progress
	p.DailyProgress = append(p.DailyProgress, progress)
	p.QualitySum += gain
	p.MaterialsUsed += took
	o.Quality = tuning.Unit(gain / math.Max(progress, 0.01))

	k.spend(lead, agents.Carpentry, 1)
	for _, h := range crew {
		k.spend(h, agents.Carpentry, helperEnergyShare)
	}

	village := k.Village
	people := 1
	if project.Benefit > 0.5 {
		people = max(1, len(village))
	}
	sofar := p.QualitySum / float64(p.DaysWorked)
	ctx := inertia.Context{
		Success:           o.Success,
		Effectiveness:     inertia.Of(tuning.Unit(progress)),
		Difficulty:        inertia.Of(project.Difficulty),
		Innovation:        project.Innovation > 0.3,
		NewTechnique:      project.Innovation > 0.6 && o.Success && p.DaysWorked == 1,
		Collaboration:     len(crew) > 0,
		Emergency:         project.Type == EmergencyRepair,
		VillageWideImpact: project.Benefit > 0.5,
		PeopleAffected:    people,
		ResourceScarcity:  o.Degraded,
		HighStakes:        project.Days >= 7,
		Build: inertia.BuildFlags{
			ComplexProject:         project.Difficulty > 0.7,
			EmergencyConstruction:  project.Type == EmergencyRepair,
			ProjectQuality:         inertia.Of(tuning.Unit(sofar)),
			LimitedMaterials:       o.Degraded,
			StructuralRequirements: project.Type == Housing || project.Type == Infrastructure,
			TeamCoordination:       len(crew) > 0,
		},
	}
	k.learn(&o, lead.Name, agents.Carpentry, ctx)
	for _, h := range crew {
		hctx := ctx
		hctx.Effectiveness = inertia.Of(tuning.Unit(progress) * helperLearnShare)
		k.learn(&o, h.Name, agents.Carpentry, hctx)
	}
	k.Ledger.UpdateExperience(lead.Name, agents.Carpentry, "building site", o.Success, tuning.Unit(progress))
	k.roll(&o, append([]*agents.Villager{lead}, crew...), "construction", o.Success, 1)

	o.Result = "worked"
	o.Description = fmt.Sprintf("%s worked day %d/%d on %s (progress %.2f)", lead.Name, p.DaysWorked, project.Days, project.Name, progress)
	if p.Done() {
		w.complete(p, lead, &o)
	}
	return o
}

// complete closes a project: final quality, reputation, buildings, trust and
// word of mouth.
func (w *Workshop) complete(p *OngoingProject, lead *agents.Villager, o *Outcome) {
	k := w.kit
	project := p.Project
	p.Completed = true
	p.FinalQuality = p.QualitySum / float64(project.Days)

	r := w.record(p.Lead)
	r.Attempts++
	r.Successes++
	r.QualitySum += p.FinalQuality
	r.Score += float64(project.Days)*0.5 + p.FinalQuality*2
	r.Works = append(r.Works, project.Name)
	r.retitle()
	if project.Days >= 7 && r.Title == "" {
		r.Title = "known carpenter"
	}

	switch project.Type {
	case Infrastructure:
		key := "storehouse"
		if strings.Contains(project.Name, "workshop") {
			key = "meeting hall"
		}
		w.buildings[key] = tuning.Unit(w.buildings[key] + p.FinalQuality*0.3)
	case Housing:
		w.buildings["dwellings"] = tuning.Unit(w.buildings["dwellings"] + p.FinalQuality*0.2)
	}

	for i, x := range w.ongoing {
		if x == p {
			w.ongoing = append(w.ongoing[:i], w.ongoing[i+1:]...)
			break
		}
	}
	w.completed = append(w.completed, p)

	quality := tuning.Unit(p.FinalQuality)
	o.Completed = true
	o.Result = "completed"
	o.Quality = quality
	o.Happiness = project.Benefit * quality * 0.2
	o.Description = fmt.Sprintf("%s finished %s after %d days (quality %.2f)", p.Lead, project.Name, p.DaysWorked, p.FinalQuality)

	domain := carpentryDomain(project.Type)
	requester := p.Request.Requester
	k.judge(requester, p.Lead, domain, quality >= 0.5, quality)
	if requester != "" && requester != p.Lead {
		k.tell(o, requester, p.Lead, social.CraftingSkill, quality >= 0.5, math.Max(quality, 0.4), k.Village)
	}
	agents.AddMemory(lead, k.Day, "finished building the "+project.Name, 0.7)
	slog.Info("project completed", "project", project.Name, "lead", p.Lead, "quality", p.FinalQuality, "title", r.Title)
}

// ResolveSingleDay builds a one-day project for a request.
func (w *Workshop) ResolveSingleDay(c *agents.Villager, req BuildRequest) Outcome {
	return w.resolveSingleDay(c, req, SelectProject(w.kit.Rand, req.Type, req.Complexity))
}

func (w *Workshop) resolveSingleDay(c *agents.Villager, req BuildRequest, project Project) Outcome {
	k := w.kit
	if !k.canWork(c, agents.Carpentry, 1) {
		return noOp(agents.Carpentry, nameOf(c), "carpenter unfit to work")
	}
	if k.Stores.Quantity(economy.GoodMaterials) <= 0 {
		return noOp(agents.Carpentry, []string{c.Name}, "no materials")
	}

	o := Outcome{Activity: agents.Carpentry, Actors: []string{c.Name}, Target: project.Name}
	mod := math.Min(k.EffectiveSkill(c, agents.Carpentry)*0.3, 1)
	rate := math.Max(0.1, 0.4+mod-req.Complexity*0.3)
	o.Success = k.Rand.Float64() < rate

	var quality, eff float64
	if o.Success {
		quality = math.Min(1, project.BaseQuality+mod+entropy.Uniform(k.Rand, 0, 0.2))
		eff = quality
	} else {
		quality = math.Max(0.1, project.BaseQuality-entropy.Uniform(k.Rand, 0.2, 0.5))
		eff = quality * 0.5
	}

	need := project.Materials
	if !o.Success {
		need *= 1.2
	}
	took, full := k.Stores.Withdraw(economy.GoodMaterials, need)
	o.MaterialsUsed = took
	if !full {
		o.Degraded = true
		quality *= 0.6
		eff *= 0.6
	}
	o.Quality = quality
	o.Result = "failed"
	if o.Success {
		o.Result = "built"
		o.Happiness = project.Benefit * quality * 0.1
	}
	k.spend(c, agents.Carpentry, 1)

	r := w.record(c.Name)
	r.Attempts++
	if o.Success {
		r.Successes++
		r.QualitySum += quality
	}
	r.Score = float64(r.Successes)*2 + r.QualitySum/float64(r.Attempts)*3
	r.retitle()

	people := 1
	if req.VillageWide {
		people = entropy.IntBetween(k.Rand, 3, 8)
	}
	k.learn(&o, c.Name, agents.Carpentry, inertia.Context{
		Success:           o.Success,
		Effectiveness:     inertia.Of(eff),
		Difficulty:        inertia.Of(req.Complexity),
		Innovation:        project.Innovation > 0.3,
		Collaboration:     project.Collaboration,
		Emergency:         req.Type == EmergencyRepair,
		VillageWideImpact: req.VillageWide,
		PeopleAffected:    people,
		TimePressure:      req.Urgency > 0.7,
		ResourceScarcity:  k.Stores.Quantity(economy.GoodMaterials) < 2,
		NewTechnique:      project.Innovation > 0.6 && o.Success,
		HighStakes:        req.Urgency > 0.8 || req.VillageWide,
		Build: inertia.BuildFlags{
			ComplexProject:        req.Complexity > 0.7,
			EmergencyConstruction: req.Type == EmergencyRepair,
			ProjectQuality:        inertia.Of(quality),
			LimitedMaterials:      o.Degraded,
		},
	})
	k.Ledger.UpdateExperience(c.Name, agents.Carpentry, "building site", o.Success, eff)

	domain := carpentryDomain(project.Type)
	effect := eff * 0.7
	if o.Success {
		effect = math.Min(1, eff*1.5)
	}
	k.judge(req.Requester, c.Name, domain, o.Success, effect)
	k.roll(&o, []*agents.Villager{c}, "carpentry", o.Success, 1)

	if req.Requester != "" && req.Requester != c.Name && (quality > 0.8 || !o.Success) {
		k.tell(&o, req.Requester, c.Name, social.CraftingSkill, o.Success, math.Max(quality, 0.4), k.Village)
	}

	o.Description = fmt.Sprintf("%s built %s for %s (quality %.2f)", c.Name, project.Name, req.Requester, quality)
	if !o.Success {
		o.Description = fmt.Sprintf("%s botched %s for %s", c.Name, project.Name, req.Requester)
	}
	slog.Debug("carpentry resolved", "carpenter", c.Name, "project", project.Name, "rate", rate, "success", o.Success)
	return o
}

// carpentryDomain is the trust domain a kind of work earns.
func carpentryDomain(t ConstructionType) string {
	switch t {
	case Infrastructure:
		return "infrastructure_creation"
	case Housing:
		return "housing_construction"
	case Repair, EmergencyRepair:
		return "repair_expertise"
	default:
		return "crafting_skill"
	}
}

// Villager physiology: energy budget, fatigue, injuries and nightly recovery.
package agents

import (
	"github.com/talgya/hamlet/internal/tuning"
)

// CanWork reports whether the villager may start a session costing energy.
func (v *Villager) CanWork(cfg tuning.Village, energy float64) bool {
	switch {
	case v.Injured():
		return false
	case v.Health < cfg.MinWorkHealth:
		return false
	case v.Energy < energy:
		return false
	case v.SessionsToday >= cfg.MaxSessions:
		return false
	case v.EnergyUsedToday+energy > cfg.DailyEnergyCap:
		return false
	}
	return true
}

// ConsumeEnergy books one work session. Repeating the previous activity adds
// fatigue, switching relieves it, and heavy fatigue drains extra energy.
func (v *Villager) ConsumeEnergy(cfg tuning.Village, a Activity, amount float64) {
	v.Energy = tuning.Clamp(v.Energy-amount, 0, v.EnergyCap)
	v.EnergyUsedToday += amount
	v.SessionsToday++

	if v.LastActivity == a {
		v.Fatigue = tuning.Unit(v.Fatigue + cfg.FatigueSameTask)
	} else {
		v.Fatigue = tuning.Unit(v.Fatigue - cfg.FatigueSwitch)
	}
	v.LastActivity = a

	if v.Fatigue > 0.5 {
		v.Energy = tuning.Clamp(v.Energy-0.1, 0, v.EnergyCap)
	}
}

// ResetDay clears daily counters and applies overnight rest.
func (v *Villager) ResetDay(cfg tuning.Village) {
	v.EnergyUsedToday = 0
	v.SessionsToday = 0
	v.Energy = tuning.Clamp(v.Energy+cfg.OvernightEnergy, 0, v.EnergyCap)
	v.Fatigue = tuning.Unit(v.Fatigue - cfg.FatigueRest)
}

// Injure applies an injury. A severe injury overrides a light one and sets
// the recovery countdown; a light injury never downgrades a severe one.
func (v *Villager) Injure(cfg tuning.Injury, severe bool, days int) {
	if severe {
		v.Injury = InjurySevere
		v.RecoveryDays = days
		v.Health = max(cfg.HealthFloor, v.Health-cfg.SevereHealth)
		return
	}
	if v.Injury == InjuryNone {
		v.Injury = InjuryLight
	}
	v.Health = max(cfg.HealthFloor, v.Health-cfg.LightHealth)
}

// Heal raises health, capped at 1.
func (v *Villager) Heal(amount float64) {
	v.Health = tuning.Unit(v.Health + amount)
}

// ClearInjury removes a light injury. Severe injuries only end by countdown.
func (v *Villager) ClearInjury() bool {
	if v.Injury != InjuryLight {
		return false
	}
	v.Injury = InjuryNone
	return true
}

// TickRecovery advances a severe injury by one night. Returns true when the
// villager has just recovered.
func (v *Villager) TickRecovery() bool {
	if v.Injury != InjurySevere {
		return false
	}
	v.RecoveryDays--
	if v.RecoveryDays > 0 {
		return false
	}
	v.RecoveryDays = 0
	v.Injury = InjuryNone
	v.Heal(0.3)
	return true
}

// Eat lowers hunger.
func (v *Villager) Eat(relief float64) {
	v.Hunger = tuning.Unit(v.Hunger - relief)
}

// GetHungry raises hunger.
func (v *Villager) GetHungry(amount float64) {
	v.Hunger = tuning.Unit(v.Hunger + amount)
}

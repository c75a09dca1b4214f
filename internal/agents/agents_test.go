package agents

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hamlet/internal/entropy"
	"github.com/talgya/hamlet/internal/tuning"
)

func TestPersonalityRoundTrip(t *testing.T) {
	for _, p := range Personalities() {
		got, err := ParsePersonality(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	p, err := ParsePersonality("Neutral")
	require.NoError(t, err)
	assert.Equal(t, Balanced, p)

	_, err = ParsePersonality("grumpy")
	assert.Error(t, err)
}

func TestPersonalityJSON(t *testing.T) {
	v := NewVillager("Hana", Gentle, nil)
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"personality":"gentle"`)

	var back Villager
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, Gentle, back.Personality)
}

func TestCanWork(t *testing.T) {
	cfg := tuning.Default().Village
	v := NewVillager("Ken", Brave, nil)
	assert.True(t, v.CanWork(cfg, 0.3))

	v.EnergyUsedToday = 0.6
	assert.False(t, v.CanWork(cfg, 0.3), "daily cap")
	assert.True(t, v.CanWork(cfg, 0.2))

	v.EnergyUsedToday = 0
	v.SessionsToday = cfg.MaxSessions
	assert.False(t, v.CanWork(cfg, 0.1), "session limit")

	v.SessionsToday = 0
	v.Injury = InjuryLight
	assert.False(t, v.CanWork(cfg, 0.1), "injured")

	v.Injury = InjuryNone
	v.Health = 0.2
	assert.False(t, v.CanWork(cfg, 0.1), "too weak")
}

func TestConsumeEnergyFatigue(t *testing.T) {
	cfg := tuning.Default().Village
	v := NewVillager("Taro", Practical, nil)

	v.ConsumeEnergy(cfg, Hunting, 0.3)
	assert.InDelta(t, 0.7, v.Energy, 1e-9)
	assert.Equal(t, 1, v.SessionsToday)
	assert.Equal(t, 0.0, v.Fatigue, "switching from nothing relieves fatigue")

	v.ConsumeEnergy(cfg, Hunting, 0.2)
	assert.InDelta(t, 0.1, v.Fatigue, 1e-9)

	v.Fatigue = 0.5
	v.ConsumeEnergy(cfg, Hunting, 0.1)
	// 0.6 fatigue drains an extra 0.1.
	assert.InDelta(t, 0.3, v.Energy, 1e-9)
	assert.InDelta(t, 0.6, v.EnergyUsedToday, 1e-9)

	v.ResetDay(cfg)
	assert.Equal(t, 0, v.SessionsToday)
	assert.Equal(t, 0.0, v.EnergyUsedToday)
	assert.InDelta(t, 0.7, v.Energy, 1e-9)
	assert.InDelta(t, 0.4, v.Fatigue, 1e-9)
}

func TestInjuryLifecycle(t *testing.T) {
	cfg := tuning.Default().Injury
	v := NewVillager("Yu", Cautious, nil)

	v.Injure(cfg, false, 0)
	assert.Equal(t, InjuryLight, v.Injury)
	assert.InDelta(t, 0.7, v.Health, 1e-9)
	assert.True(t, v.ClearInjury())

	v.Injure(cfg, true, 2)
	assert.Equal(t, InjurySevere, v.Injury)
	assert.InDelta(t, 0.2, v.Health, 1e-9)

	v.Injure(cfg, false, 0)
	assert.Equal(t, InjurySevere, v.Injury, "light never downgrades severe")
	assert.InDelta(t, cfg.HealthFloor, v.Health, 1e-9)
	assert.False(t, v.ClearInjury())

	assert.False(t, v.TickRecovery())
	assert.True(t, v.TickRecovery())
	assert.Equal(t, InjuryNone, v.Injury)
	assert.InDelta(t, 0.4, v.Health, 1e-9)
}

func TestMemoryEviction(t *testing.T) {
	v := NewVillager("Akane", Caring, nil)
	for i := 0; i < MaxMemories; i++ {
		AddMemory(v, i, "ordinary day", 0.5)
	}
	AddMemory(v, 99, "trivial", 0.1)
	assert.Len(t, v.Memories, MaxMemories)
	AddMemory(v, 100, "built the bridge", 0.9)
	assert.Len(t, v.Memories, MaxMemories)

	recent := RecentMemories(v, 1)
	require.Len(t, recent, 1)
	assert.Equal(t, "built the bridge", recent[0].Content)
}

func TestSpawnRoster(t *testing.T) {
	roster := NewSpawner(entropy.NewSeeded(11)).SpawnRoster(10)
	require.Len(t, roster, 10)
	assert.Equal(t, "Akira", roster[0].Name)
	assert.Equal(t, Aggressive, roster[0].Personality)
	assert.Equal(t, "Akira 2", roster[8].Name)

	for _, v := range roster {
		for a, r := range skillRange {
			assert.GreaterOrEqual(t, v.Skill(a), r[0])
			assert.Less(t, v.Skill(a), r[1])
		}
	}
}

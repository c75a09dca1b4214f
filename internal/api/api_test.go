package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/metrics"
	"github.com/talgya/hamlet/internal/persistence"
	"github.com/talgya/hamlet/internal/social"
	"github.com/talgya/hamlet/internal/tuning"
)

const testKey = "secret"

func newServer(t *testing.T) *Server {
	t.Helper()
	cfg := tuning.Default()
	cfg.Village.EmergencyChance = 0
	sim := engine.NewSimulation(engine.Options{Population: 6, Seed: 11, Tuning: cfg})
	m := metrics.New()
	sim.Observe(m)
	sim.Run(3)

	db, err := persistence.Open(filepath.Join(t.TempDir(), "village.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Server{
		Sim:      sim,
		Eng:      engine.NewEngine(sim),
		DB:       db,
		Metrics:  m,
		AdminKey: testKey,
	}
}

func do(t *testing.T, h http.Handler, method, path, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestStatus(t *testing.T) {
	s := newServer(t)
	var got struct {
		Name    string        `json:"name"`
		Village engine.Status `json:"village"`
		Speed   float64       `json:"speed"`
		Running bool          `json:"running"`
	}
	decode(t, do(t, s.Handler(), http.MethodGet, "/api/v1/status", "", false), &got)
	assert.Equal(t, "Hamlet", got.Name)
	assert.Equal(t, 3, got.Village.Day)
	assert.Equal(t, "Spring Day 3, Year 1", got.Village.Date)
	assert.Equal(t, 6, got.Village.Population)
	assert.Equal(t, 1.0, got.Speed)
	assert.False(t, got.Running)
}

func TestVillagers(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	var roster []agents.Villager
	decode(t, do(t, h, http.MethodGet, "/api/v1/villagers", "", false), &roster)
	require.Len(t, roster, 6)

	var p engine.Profile
	decode(t, do(t, h, http.MethodGet, "/api/v1/villager/"+roster[0].Name, "", false), &p)
	assert.Equal(t, roster[0].Name, p.Villager.Name)
	assert.Len(t, p.Inertia, len(agents.AllActivities))

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/villager/Nobody", "", false).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/villager/", "", false).Code)
}

func TestEvents(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	var all []engine.Event
	decode(t, do(t, h, http.MethodGet, "/api/v1/events?limit=500", "", false), &all)
	assert.Equal(t, len(s.Sim.RecentEvents(0)), len(all))

	var two []engine.Event
	decode(t, do(t, h, http.MethodGet, "/api/v1/events?limit=2", "", false), &two)
	assert.LessOrEqual(t, len(two), 2)

	var none []engine.Event
	decode(t, do(t, h, http.MethodGet, "/api/v1/events?category=nothing", "", false), &none)
	assert.Empty(t, none)
	assert.Equal(t, "[]\n", do(t, h, http.MethodGet, "/api/v1/events?category=nothing", "", false).Body.String())
}

func TestReadOnlyViews(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	var rumors []social.Rumor
	decode(t, do(t, h, http.MethodGet, "/api/v1/rumors", "", false), &rumors)
	assert.Len(t, rumors, len(s.Sim.ActiveRumors()))

	var projects map[string]json.RawMessage
	decode(t, do(t, h, http.MethodGet, "/api/v1/projects", "", false), &projects)
	assert.Contains(t, projects, "ongoing")
	assert.Contains(t, projects, "completed")

	var week engine.WeekSummary
	decode(t, do(t, h, http.MethodGet, "/api/v1/week", "", false), &week)
	assert.Equal(t, 1, week.FromDay)
	assert.Equal(t, 3, week.ToDay)

	rec := do(t, h, http.MethodGet, "/metrics", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hamlet_days_total 3")
}

func TestAdminAuth(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/v1/speed", `{"speed":2}`, false).Code)

	s.AdminKey = ""
	assert.Equal(t, http.StatusForbidden, do(t, s.Handler(), http.MethodPost, "/api/v1/speed", `{"speed":2}`, true).Code)

	// GET passes through on combined endpoints.
	var got map[string]float64
	decode(t, do(t, h, http.MethodGet, "/api/v1/speed", "", false), &got)
	assert.Equal(t, 1.0, got["speed"])
}

func TestSpeed(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	var got map[string]float64
	decode(t, do(t, h, http.MethodPost, "/api/v1/speed", `{"speed":0}`, true), &got)
	assert.Equal(t, 0.0, got["speed"])
	assert.Equal(t, 0.0, s.Eng.Speed())

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/speed", `{"speed":5000}`, true).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/speed", `nope`, true).Code)
}

func TestAdvance(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	var got struct {
		Days   int              `json:"days"`
		Day    int              `json:"day"`
		Report engine.DayReport `json:"report"`
	}
	decode(t, do(t, h, http.MethodPost, "/api/v1/advance", `{"days":4}`, true), &got)
	assert.Equal(t, 4, got.Days)
	assert.Equal(t, 7, got.Day)
	assert.Equal(t, 7, got.Report.Day)
	assert.Equal(t, 7, s.Sim.CurrentDay())

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/advance", `{"days":0}`, true).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/v1/advance", "", true).Code)
}

func TestIntervention(t *testing.T) {
	s := newServer(t)
	h := s.Handler()
	name := s.Sim.Roster()[0].Name

	var got map[string]any
	decode(t, do(t, h, http.MethodPost, "/api/v1/intervention", `{"type":"provision","good":"food","quantity":10}`, true), &got)
	assert.Equal(t, true, got["success"])
	assert.Contains(t, got["details"], "food")

	decode(t, do(t, h, http.MethodPost, "/api/v1/intervention",
		`{"type":"emergency","kind":"`+engine.EmergencyIllness+`","villager":"`+name+`"}`, true), &got)
	assert.Contains(t, got["details"], name)

	decode(t, do(t, h, http.MethodPost, "/api/v1/intervention", `{"type":"heal","villager":"`+name+`"}`, true), &got)
	v, ok := s.Sim.Villager(name)
	require.True(t, ok)
	assert.Equal(t, 1.0, v.Health)

	for _, body := range []string{
		`{"type":"provision","good":"gold","quantity":1}`,
		`{"type":"provision","good":"food","quantity":1000}`,
		`{"type":"provision","good":"food"}`,
		`{"type":"emergency"}`,
		`{"type":"emergency","kind":"flood"}`,
		`{"type":"heal","villager":"Nobody"}`,
		`{"type":"banquet"}`,
	} {
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/intervention", body, true).Code, body)
	}
}

func TestSnapshot(t *testing.T) {
	s := newServer(t)
	h := s.Handler()

	var got map[string]any
	decode(t, do(t, h, http.MethodPost, "/api/v1/snapshot", "", true), &got)
	assert.Equal(t, "snapshot saved", got["message"])

	st, err := s.DB.LoadState()
	require.NoError(t, err)
	assert.Equal(t, 3, st.Day)

	s.DB = nil
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s.Handler(), http.MethodPost, "/api/v1/snapshot", "", true).Code)
}

func TestCORS(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://village.example.com")
	s := newServer(t)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	req.Header.Set("Origin", "https://village.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://village.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 61, rl.RetryAfter("a"))

	clock = clock.Add(time.Minute)
	assert.True(t, rl.Allow("a"))

	clock = clock.Add(3 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.buckets)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	h := RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different forwarded client has its own bucket.
	req.Header.Set("X-Forwarded-For", "10.0.0.9, 10.0.0.1")
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10.0.0.9", clientAddr(req))
}

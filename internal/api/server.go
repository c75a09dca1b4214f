// Package api provides the HTTP API for watching the village.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/metrics"
	"github.com/talgya/hamlet/internal/persistence"
)

// Limits on admin requests.
const (
	maxSpeed       = 1000
	maxAdvanceDays = 365
	maxProvision   = 200
)

// Server serves the village state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB  // nil disables /snapshot
	Metrics  *metrics.Metrics // nil disables /metrics
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Handler builds the routed handler, CORS included.
func (s *Server) Handler() http.Handler {
	// Advancing runs whole days synchronously, so keep it rare.
	advanceLimiter := NewRateLimiter(60, time.Hour)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/villagers", s.handleVillagers)
	mux.HandleFunc("/api/v1/villager/", s.handleVillager)
	mux.HandleFunc("/api/v1/rumors", s.handleRumors)
	mux.HandleFunc("/api/v1/projects", s.handleProjects)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/week", s.handleWeek)
	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics.Handler())
	}

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/advance", s.adminOnly(RateLimitMiddleware(advanceLimiter, s.handleAdvance)))
	mux.HandleFunc("/api/v1/intervention", s.adminOnly(s.handleIntervention))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "metrics", s.Metrics != nil)

	handler := s.Handler()
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no VILLAGESIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"name":    "Hamlet",
		"village": s.Sim.Status(),
		"speed":   s.Eng.Speed(),
		"running": s.Eng.Running(),
	})
}

func (s *Server) handleVillagers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Roster())
}

// handleVillager serves GET /api/v1/villager/{name}.
func (s *Server) handleVillager(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/v1/villager/")
	if name == "" {
		http.Error(w, "villager name required", http.StatusBadRequest)
		return
	}
	p, ok := s.Sim.Profile(name)
	if !ok {
		http.Error(w, "villager not found", http.StatusNotFound)
		return
	}
	writeJSON(w, p)
}

func (s *Server) handleRumors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.ActiveRumors())
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	ongoing, completed := s.Sim.Projects()
	writeJSON(w, map[string]any{
		"ongoing":   ongoing,
		"completed": completed,
	})
}

// handleEvents returns the latest events, newest last. ?category= filters.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Sim.RecentEvents(0)
	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	out := events[start:]
	if out == nil {
		out = []engine.Event{}
	}
	writeJSON(w, out)
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.WeekSummary())
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > maxSpeed {
			http.Error(w, fmt.Sprintf("speed must be 0-%d", maxSpeed), http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// handleAdvance runs days immediately, regardless of speed.
func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Days int `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Days <= 0 || req.Days > maxAdvanceDays {
		http.Error(w, fmt.Sprintf("days must be 1-%d", maxAdvanceDays), http.StatusBadRequest)
		return
	}

	reports := s.Eng.Advance(req.Days)
	last := reports[len(reports)-1]
	slog.Info("advanced", "days", req.Days, "day", last.Day)
	writeJSON(w, map[string]any{
		"days":   req.Days,
		"day":    last.Day,
		"report": last,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	if err := s.DB.SaveState(s.Sim.Snapshot()); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"day":     s.Sim.CurrentDay(),
		"message": "snapshot saved",
	})
}

func (s *Server) handleIntervention(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Type     string  `json:"type"`
		Good     string  `json:"good,omitempty"`
		Quantity float64 `json:"quantity,omitempty"`
		Kind     string  `json:"kind,omitempty"`
		Villager string  `json:"villager,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var (
		desc string
		err  error
	)
	switch req.Type {
	case "provision":
		if req.Good == "" || req.Quantity <= 0 {
			http.Error(w, "good and quantity required for provision type", http.StatusBadRequest)
			return
		}
		if req.Quantity > maxProvision {
			http.Error(w, fmt.Sprintf("max %d units per provision", maxProvision), http.StatusBadRequest)
			return
		}
		desc, err = s.Sim.ProvisionVillage(req.Good, req.Quantity)

	case "emergency":
		if req.Kind == "" {
			http.Error(w, "kind required for emergency type", http.StatusBadRequest)
			return
		}
		desc, err = s.Sim.ForceEmergency(req.Kind, req.Villager)

	case "heal":
		if req.Villager == "" {
			http.Error(w, "villager required for heal type", http.StatusBadRequest)
			return
		}
		desc, err = s.Sim.HealVillager(req.Villager)

	default:
		http.Error(w, "unknown intervention type (use: provision, emergency, heal)", http.StatusBadRequest)
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"success": true, "details": desc})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

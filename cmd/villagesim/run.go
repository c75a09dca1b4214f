package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/hamlet/internal/api"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/entropy"
	"github.com/talgya/hamlet/internal/metrics"
	"github.com/talgya/hamlet/internal/persistence"
	"github.com/talgya/hamlet/internal/tuning"
)

// run flags
var (
	days       int
	seed       int64
	population int
	tuningPath string
	apiPort    int
	speed      float64
	dayLength  time.Duration
	saveEvery  int
	trueRandom bool
)

// runCmd runs the village in real time
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the village, resuming from the database if it holds one",
	Long: `Runs the simulation one day per --day-length divided by --speed.

A fresh village is founded from --seed and --population when the database
is empty. Otherwise the saved village resumes where it stopped.

Admin POST endpoints are enabled by setting VILLAGESIM_ADMIN_KEY.
With --true-random, draws come from random.org using RANDOM_ORG_API_KEY
(crypto/rand when the key is unset or the API fails).`,
	RunE: runVillage,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&days, "days", 0, "days to simulate before stopping (0 = until interrupted)")
	f.Int64Var(&seed, "seed", 42, "random seed for a fresh village")
	f.IntVar(&population, "population", 12, "villagers in a fresh village")
	f.StringVar(&tuningPath, "tuning", "", "YAML file overriding the default tuning")
	f.IntVar(&apiPort, "port", 8080, "HTTP API port (0 = no API)")
	f.Float64Var(&speed, "speed", 1, "speed multiplier (0 = paused)")
	f.DurationVar(&dayLength, "day-length", time.Second, "real time per simulated day at speed 1")
	f.IntVar(&saveEvery, "save-every", 1, "save to the database every n days")
	f.BoolVar(&trueRandom, "true-random", false, "draw from random.org instead of the seed")
}

func runVillage(cmd *cobra.Command, args []string) error {
	cfg := tuning.Default()
	if tuningPath != "" {
		var err error
		if cfg, err = tuning.Load(tuningPath); err != nil {
			return err
		}
		slog.Info("tuning loaded", "path", tuningPath)
	}

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	// ── Simulation ────────────────────────────────────────────────────
	sim, resumed, err := openVillage(cmd, db, cfg)
	if err != nil {
		return err
	}

	m := metrics.New()
	sim.Observe(m)

	eng := engine.NewEngine(sim)
	eng.SetSpeed(speed)
	eng.SetInterval(dayLength)

	save := func() {
		if err := db.SaveState(sim.Snapshot()); err != nil {
			slog.Error("save failed", "day", sim.CurrentDay(), "error", err)
		}
	}
	eng.OnDay = func(r engine.DayReport) {
		if saveEvery > 0 && r.Day%saveEvery == 0 {
			save()
		}
	}
	eng.OnWeek = func(day int) {
		sim.WeekSummary().LogWeek()
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if apiPort > 0 {
		adminKey := os.Getenv("VILLAGESIM_ADMIN_KEY")
		if adminKey == "" {
			slog.Warn("VILLAGESIM_ADMIN_KEY not set, admin POST endpoints will be disabled")
		}
		apiServer := &api.Server{
			Sim:      sim,
			Eng:      eng,
			DB:       db,
			Metrics:  m,
			Port:     apiPort,
			AdminKey: adminKey,
		}
		apiServer.Start()
	}

	// ── Start ─────────────────────────────────────────────────────────
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	st := sim.Status()
	fmt.Fprintf(out, "\nThe village is alive: %d villagers, %.1f food, %.1f materials.\n",
		st.Population, st.Food, st.Materials)
	if apiPort > 0 {
		fmt.Fprintf(out, "API: http://localhost:%d/api/v1/status\n", apiPort)
	}
	if resumed {
		fmt.Fprintf(out, "Resuming from day %d (%s)\n", st.Day, st.Date)
	}
	fmt.Fprintln(out, "Starting simulation... (Ctrl+C to stop)")

	if err := eng.Run(ctx, days); err != nil {
		return fmt.Errorf("run engine: %w", err)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveState(sim.Snapshot()); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	fmt.Fprintf(out, "Simulation stopped on day %d. Village saved.\n", sim.CurrentDay())
	return nil
}

// openVillage restores the saved village or founds a new one. The seed a
// village was founded with is kept in the database and reused on resume
// unless --seed is given.
func openVillage(cmd *cobra.Command, db *persistence.DB, cfg tuning.Tuning) (*engine.Simulation, bool, error) {
	ok, err := db.HasState()
	if err != nil {
		return nil, false, err
	}

	var rng entropy.Source
	if trueRandom {
		key := os.Getenv("RANDOM_ORG_API_KEY")
		if key == "" {
			slog.Warn("RANDOM_ORG_API_KEY not set, drawing from crypto/rand")
		}
		// A nil *Client falls back to crypto/rand.
		rng = entropy.NewClient(key)
	}

	if !ok {
		slog.Info("no saved village found, founding a new one", "seed", seed, "population", population)
		sim := engine.NewSimulation(engine.Options{Population: population, Seed: seed, Tuning: cfg, Rand: rng})
		if err := db.SaveMeta("seed", strconv.FormatInt(seed, 10)); err != nil {
			return nil, false, err
		}
		if err := db.SaveState(sim.Snapshot()); err != nil {
			return nil, false, fmt.Errorf("initial save: %w", err)
		}
		return sim, false, nil
	}

	s := seed
	if !cmd.Flags().Changed("seed") {
		if v, err := db.GetMeta("seed"); err == nil {
			if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
				s = parsed
			}
		}
	}

	slog.Info("found saved village, loading...")
	st, err := db.LoadState()
	if err != nil {
		return nil, false, err
	}
	sim := engine.NewSimulation(engine.Options{Seed: s, Tuning: cfg, Rand: rng})
	if err := sim.Restore(st); err != nil {
		return nil, false, fmt.Errorf("restore village: %w", err)
	}
	slog.Info("village restored",
		"villagers", len(st.Villagers),
		"day", st.Day,
		"date", engine.SimTime(st.Day),
	)
	return sim, true, nil
}

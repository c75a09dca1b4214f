// Package persistence provides SQLite-based village state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hamlet/internal/activity"
	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/inertia"
	"github.com/talgya/hamlet/internal/social"
)

// DB wraps a SQLite connection for village state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS villagers (
		seq INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		personality TEXT NOT NULL,
		health REAL NOT NULL,
		hunger REAL NOT NULL,
		energy REAL NOT NULL,
		energy_cap REAL NOT NULL,
		fatigue REAL NOT NULL,
		injury INTEGER NOT NULL,
		recovery_days INTEGER NOT NULL,
		sessions_today INTEGER NOT NULL,
		energy_used_today REAL NOT NULL,
		last_activity TEXT NOT NULL,
		skills_json TEXT NOT NULL,
		memories_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS inertia (
		agent TEXT NOT NULL,
		activity TEXT NOT NULL,
		inertia REAL NOT NULL,
		repetitions INTEGER NOT NULL,
		PRIMARY KEY (agent, activity)
	);

	CREATE TABLE IF NOT EXISTS boundaries (
		agent TEXT NOT NULL,
		target TEXT NOT NULL,
		strength REAL NOT NULL,
		PRIMARY KEY (agent, target)
	);

	CREATE TABLE IF NOT EXISTS rumors (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		target TEXT NOT NULL,
		category TEXT NOT NULL,
		content TEXT NOT NULL,
		positive INTEGER NOT NULL,
		intensity REAL NOT NULL,
		source TEXT NOT NULL,
		confidence REAL NOT NULL,
		day INTEGER NOT NULL,
		origin TEXT NOT NULL,
		witnesses_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reputation (
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (name, category)
	);

	CREATE TABLE IF NOT EXISTS projects (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		lead TEXT NOT NULL,
		start_day INTEGER NOT NULL,
		days_worked INTEGER NOT NULL,
		progress REAL NOT NULL,
		quality_sum REAL NOT NULL,
		materials_used REAL NOT NULL,
		completed INTEGER NOT NULL,
		final_quality REAL NOT NULL,
		project_json TEXT NOT NULL,
		request_json TEXT NOT NULL,
		helpers_json TEXT NOT NULL,
		daily_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS carpenters (
		name TEXT PRIMARY KEY,
		record_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS buildings (
		name TEXT PRIMARY KEY,
		quality REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		day INTEGER NOT NULL,
		phase TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		actors_json TEXT NOT NULL,
		meta_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_day ON events(day);
	CREATE INDEX IF NOT EXISTS idx_rumors_target ON rumors(target);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Row types for columns that do not map one to one onto domain structs.

type villagerRow struct {
	Seq             int     `db:"seq"`
	Name            string  `db:"name"`
	Personality     string  `db:"personality"`
	Health          float64 `db:"health"`
	Hunger          float64 `db:"hunger"`
	Energy          float64 `db:"energy"`
	EnergyCap       float64 `db:"energy_cap"`
	Fatigue         float64 `db:"fatigue"`
	Injury          int     `db:"injury"`
	RecoveryDays    int     `db:"recovery_days"`
	SessionsToday   int     `db:"sessions_today"`
	EnergyUsedToday float64 `db:"energy_used_today"`
	LastActivity    string  `db:"last_activity"`
	SkillsJSON      string  `db:"skills_json"`
	MemoriesJSON    string  `db:"memories_json"`
}

type rumorRow struct {
	social.Rumor
	Seq           int    `db:"seq"`
	WitnessesJSON string `db:"witnesses_json"`
}

type projectRow struct {
	activity.OngoingProject
	Seq         int    `db:"seq"`
	ProjectJSON string `db:"project_json"`
	RequestJSON string `db:"request_json"`
	HelpersJSON string `db:"helpers_json"`
	DailyJSON   string `db:"daily_json"`
}

type eventRow struct {
	engine.Event
	ID         int64  `db:"id"`
	ActorsJSON string `db:"actors_json"`
	MetaJSON   string `db:"meta_json"`
}

func marshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// saveVillagers writes the roster to the database (full replace).
func saveVillagers(tx *sqlx.Tx, villagers []agents.Villager) error {
	if _, err := tx.Exec("DELETE FROM villagers"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO villagers
		(seq, name, personality, health, hunger, energy, energy_cap, fatigue,
		 injury, recovery_days, sessions_today, energy_used_today, last_activity,
		 skills_json, memories_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, v := range villagers {
		_, err := stmt.Exec(
			i, v.Name, v.Personality.String(), v.Health, v.Hunger, v.Energy,
			v.EnergyCap, v.Fatigue, int(v.Injury), v.RecoveryDays,
			v.SessionsToday, v.EnergyUsedToday, string(v.LastActivity),
			marshal(v.Skills), marshal(v.Memories),
		)
		if err != nil {
			return fmt.Errorf("insert villager %s: %w", v.Name, err)
		}
	}
	return nil
}

// saveInertia writes every inertia record (full replace).
func saveInertia(tx *sqlx.Tx, records []inertia.Record) error {
	if _, err := tx.Exec("DELETE FROM inertia"); err != nil {
		return err
	}
	for _, r := range records {
		_, err := tx.NamedExec(`INSERT INTO inertia (agent, activity, inertia, repetitions)
			VALUES (:agent, :activity, :inertia, :repetitions)`, r)
		if err != nil {
			return fmt.Errorf("insert inertia %s/%s: %w", r.Agent, r.Activity, err)
		}
	}
	return nil
}

// saveBoundaries writes the trust ledger (full replace).
func saveBoundaries(tx *sqlx.Tx, entries []social.Entry) error {
	if _, err := tx.Exec("DELETE FROM boundaries"); err != nil {
		return err
	}
	for _, e := range entries {
		_, err := tx.NamedExec(`INSERT INTO boundaries (agent, target, strength)
			VALUES (:agent, :target, :strength)`, e)
		if err != nil {
			return fmt.Errorf("insert boundary %s/%s: %w", e.Agent, e.Target, err)
		}
	}
	return nil
}

// saveRumors writes the active rumors and reputations (full replace).
func saveRumors(tx *sqlx.Tx, rumors []social.Rumor, reputation map[string]map[social.Category]float64) error {
	if _, err := tx.Exec("DELETE FROM rumors"); err != nil {
		return err
	}
	for i, r := range rumors {
		_, err := tx.Exec(`INSERT INTO rumors
			(seq, id, target, category, content, positive, intensity, source,
			 confidence, day, origin, witnesses_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, r.ID, r.Target, string(r.Category), r.Content, r.Positive,
			r.Intensity, r.Source, r.Confidence, r.Day, string(r.Origin),
			marshal(r.Witnesses),
		)
		if err != nil {
			return fmt.Errorf("insert rumor %s: %w", r.ID, err)
		}
	}

	if _, err := tx.Exec("DELETE FROM reputation"); err != nil {
		return err
	}
	for name, row := range reputation {
		for c, v := range row {
			_, err := tx.Exec("INSERT INTO reputation (name, category, value) VALUES (?, ?, ?)",
				name, string(c), v)
			if err != nil {
				return fmt.Errorf("insert reputation %s/%s: %w", name, c, err)
			}
		}
	}
	return nil
}

// saveWorkshop writes projects, carpenter records and buildings (full replace).
func saveWorkshop(tx *sqlx.Tx, ongoing, completed []activity.OngoingProject, carpenters []activity.CarpenterRecord, buildings map[string]float64) error {
	if _, err := tx.Exec("DELETE FROM projects"); err != nil {
		return err
	}
	all := append(append([]activity.OngoingProject(nil), ongoing...), completed...)
	for i, p := range all {
		_, err := tx.Exec(`INSERT INTO projects
			(seq, id, lead, start_day, days_worked, progress, quality_sum,
			 materials_used, completed, final_quality, project_json,
			 request_json, helpers_json, daily_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, p.ID, p.Lead, p.StartDay, p.DaysWorked, p.Progress, p.QualitySum,
			p.MaterialsUsed, p.Completed, p.FinalQuality, marshal(p.Project),
			marshal(p.Request), marshal(p.Helpers), marshal(p.DailyProgress),
		)
		if err != nil {
			return fmt.Errorf("insert project %s: %w", p.ID, err)
		}
	}

	if _, err := tx.Exec("DELETE FROM carpenters"); err != nil {
		return err
	}
	for _, r := range carpenters {
		if _, err := tx.Exec("INSERT INTO carpenters (name, record_json) VALUES (?, ?)", r.Name, marshal(r)); err != nil {
			return fmt.Errorf("insert carpenter %s: %w", r.Name, err)
		}
	}

	if _, err := tx.Exec("DELETE FROM buildings"); err != nil {
		return err
	}
	for name, q := range buildings {
		if _, err := tx.Exec("INSERT INTO buildings (name, quality) VALUES (?, ?)", name, q); err != nil {
			return fmt.Errorf("insert building %s: %w", name, err)
		}
	}
	return nil
}

// saveEvents replaces the stored event log.
func saveEvents(tx *sqlx.Tx, events []engine.Event) error {
	if _, err := tx.Exec("DELETE FROM events"); err != nil {
		return err
	}
	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (day, phase, category, description, actors_json, meta_json) VALUES (?, ?, ?, ?, ?, ?)",
			e.Day, e.Phase, e.Category, e.Description, marshal(e.Actors), marshal(e.Meta),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// HasState reports whether a village has been saved.
func (db *DB) HasState() (bool, error) {
	_, err := db.GetMeta("day")
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// SaveState performs a full save of the village in one transaction.
func (db *DB) SaveState(st engine.State) error {
	slog.Info("saving village state", "day", st.Day, "villagers", len(st.Villagers), "rumors", len(st.Rumors))

	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := saveVillagers(tx, st.Villagers); err != nil {
		return fmt.Errorf("save villagers: %w", err)
	}
	if err := saveInertia(tx, st.Inertia); err != nil {
		return fmt.Errorf("save inertia: %w", err)
	}
	if err := saveBoundaries(tx, st.Ledger); err != nil {
		return fmt.Errorf("save boundaries: %w", err)
	}
	if err := saveRumors(tx, st.Rumors, st.Reputation); err != nil {
		return fmt.Errorf("save rumors: %w", err)
	}
	if err := saveWorkshop(tx, st.Ongoing, st.Completed, st.Carpenters, st.Buildings); err != nil {
		return fmt.Errorf("save workshop: %w", err)
	}
	if err := saveEvents(tx, st.Events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	meta := map[string]string{
		"day":       strconv.Itoa(st.Day),
		"happiness": formatFloat(st.Happiness),
		"food":      formatFloat(st.Food),
		"materials": formatFloat(st.Materials),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Info("village state saved")
	return nil
}

// LoadState reads back everything SaveState wrote.
func (db *DB) LoadState() (engine.State, error) {
	var st engine.State
	var err error

	if st.Villagers, err = db.LoadVillagers(); err != nil {
		return st, fmt.Errorf("load villagers: %w", err)
	}
	if err = db.conn.Select(&st.Inertia, "SELECT agent, activity, inertia, repetitions FROM inertia ORDER BY agent, activity"); err != nil {
		return st, fmt.Errorf("load inertia: %w", err)
	}
	if err = db.conn.Select(&st.Ledger, "SELECT agent, target, strength FROM boundaries ORDER BY agent, target"); err != nil {
		return st, fmt.Errorf("load boundaries: %w", err)
	}
	if st.Rumors, st.Reputation, err = db.loadRumors(); err != nil {
		return st, fmt.Errorf("load rumors: %w", err)
	}
	if err = db.loadWorkshop(&st); err != nil {
		return st, fmt.Errorf("load workshop: %w", err)
	}
	if st.Events, err = db.events("SELECT * FROM events ORDER BY id"); err != nil {
		return st, fmt.Errorf("load events: %w", err)
	}

	day, err := db.GetMeta("day")
	if err != nil {
		return st, fmt.Errorf("load meta day: %w", err)
	}
	if st.Day, err = strconv.Atoi(day); err != nil {
		return st, fmt.Errorf("parse day: %w", err)
	}
	for key, dst := range map[string]*float64{
		"happiness": &st.Happiness,
		"food":      &st.Food,
		"materials": &st.Materials,
	} {
		raw, err := db.GetMeta(key)
		if err != nil {
			return st, fmt.Errorf("load meta %s: %w", key, err)
		}
		if *dst, err = strconv.ParseFloat(raw, 64); err != nil {
			return st, fmt.Errorf("parse %s: %w", key, err)
		}
	}
	return st, nil
}

// LoadVillagers reads the roster in saved order.
func (db *DB) LoadVillagers() ([]agents.Villager, error) {
	var rows []villagerRow
	if err := db.conn.Select(&rows, "SELECT * FROM villagers ORDER BY seq"); err != nil {
		return nil, err
	}
	out := make([]agents.Villager, 0, len(rows))
	for _, r := range rows {
		p, err := agents.ParsePersonality(r.Personality)
		if err != nil {
			return nil, fmt.Errorf("villager %s: %w", r.Name, err)
		}
		v := agents.Villager{
			Name:            r.Name,
			Personality:     p,
			Health:          r.Health,
			Hunger:          r.Hunger,
			Energy:          r.Energy,
			EnergyCap:       r.EnergyCap,
			Fatigue:         r.Fatigue,
			Injury:          agents.InjuryState(r.Injury),
			RecoveryDays:    r.RecoveryDays,
			SessionsToday:   r.SessionsToday,
			EnergyUsedToday: r.EnergyUsedToday,
			LastActivity:    agents.Activity(r.LastActivity),
		}
		if err := json.Unmarshal([]byte(r.SkillsJSON), &v.Skills); err != nil {
			return nil, fmt.Errorf("villager %s skills: %w", r.Name, err)
		}
		if err := json.Unmarshal([]byte(r.MemoriesJSON), &v.Memories); err != nil {
			return nil, fmt.Errorf("villager %s memories: %w", r.Name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (db *DB) loadRumors() ([]social.Rumor, map[string]map[social.Category]float64, error) {
	var rows []rumorRow
	if err := db.conn.Select(&rows, "SELECT * FROM rumors ORDER BY seq"); err != nil {
		return nil, nil, err
	}
	rumors := make([]social.Rumor, 0, len(rows))
	for _, r := range rows {
		if err := json.Unmarshal([]byte(r.WitnessesJSON), &r.Witnesses); err != nil {
			return nil, nil, fmt.Errorf("rumor %s witnesses: %w", r.ID, err)
		}
		rumors = append(rumors, r.Rumor)
	}

	var reps []struct {
		Name     string          `db:"name"`
		Category social.Category `db:"category"`
		Value    float64         `db:"value"`
	}
	if err := db.conn.Select(&reps, "SELECT name, category, value FROM reputation"); err != nil {
		return nil, nil, err
	}
	reputation := make(map[string]map[social.Category]float64)
	for _, r := range reps {
		if reputation[r.Name] == nil {
			reputation[r.Name] = make(map[social.Category]float64)
		}
		reputation[r.Name][r.Category] = r.Value
	}
	return rumors, reputation, nil
}

func (db *DB) loadWorkshop(st *engine.State) error {
	var rows []projectRow
	if err := db.conn.Select(&rows, "SELECT * FROM projects ORDER BY seq"); err != nil {
		return err
	}
	for _, r := range rows {
		p := r.OngoingProject
		for _, f := range []struct {
			raw string
			dst any
		}{
			{r.ProjectJSON, &p.Project},
			{r.RequestJSON, &p.Request},
			{r.HelpersJSON, &p.Helpers},
			{r.DailyJSON, &p.DailyProgress},
		} {
			if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
				return fmt.Errorf("project %s: %w", p.ID, err)
			}
		}
		if p.Completed {
			st.Completed = append(st.Completed, p)
		} else {
			st.Ongoing = append(st.Ongoing, p)
		}
	}

	var records []string
	if err := db.conn.Select(&records, "SELECT record_json FROM carpenters ORDER BY name"); err != nil {
		return err
	}
	for _, raw := range records {
		var r activity.CarpenterRecord
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return fmt.Errorf("carpenter record: %w", err)
		}
		st.Carpenters = append(st.Carpenters, r)
	}

	var buildings []struct {
		Name    string  `db:"name"`
		Quality float64 `db:"quality"`
	}
	if err := db.conn.Select(&buildings, "SELECT name, quality FROM buildings"); err != nil {
		return err
	}
	st.Buildings = make(map[string]float64, len(buildings))
	for _, b := range buildings {
		st.Buildings[b.Name] = b.Quality
	}
	return nil
}

func (db *DB) events(query string, args ...any) ([]engine.Event, error) {
	var rows []eventRow
	if err := db.conn.Select(&rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]engine.Event, 0, len(rows))
	for _, r := range rows {
		e := r.Event
		if err := json.Unmarshal([]byte(r.ActorsJSON), &e.Actors); err != nil {
			return nil, fmt.Errorf("event %d actors: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.MetaJSON), &e.Meta); err != nil {
			return nil, fmt.Errorf("event %d meta: %w", r.ID, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	return db.events("SELECT * FROM events ORDER BY id DESC LIMIT ?", limit)
}

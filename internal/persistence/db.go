// Package persistence records simulation runs, their census samples and
// their notable events in SQLite. It is a write-mostly log for later
// inspection; world state itself is never reloaded from it.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/contagion/internal/config"
	"github.com/talgya/contagion/internal/engine"
)

// DB wraps a SQLite connection for the run log.
type DB struct {
	conn *sqlx.DB
}

// Run describes one recorded simulation run.
type Run struct {
	ID               string `db:"id" json:"id"`
	Seed             int64  `db:"seed" json:"seed"`
	Population       int    `db:"population" json:"population"`
	HospitalCapacity int    `db:"hospital_capacity" json:"hospital_capacity"`
	ConfigYAML       string `db:"config_yaml" json:"-"`
	StartedAt        string `db:"started_at" json:"started_at"`
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
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		population INTEGER NOT NULL,
		hospital_capacity INTEGER NOT NULL,
		config_yaml TEXT NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS samples (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		day INTEGER NOT NULL,
		time INTEGER NOT NULL,
		susceptible INTEGER NOT NULL,
		infected INTEGER NOT NULL,
		hospitalized INTEGER NOT NULL,
		immune INTEGER NOT NULL,
		dead INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		day INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CreateRun registers a new run and returns its ID.
func (db *DB) CreateRun(cfg config.Config) (string, error) {
	raw, err := config.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}

	id := uuid.NewString()
	_, err = db.conn.Exec(`INSERT INTO runs
		(id, seed, population, hospital_capacity, config_yaml, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, cfg.Seed, cfg.Population, cfg.HospitalCapacity, string(raw),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	slog.Info("run registered", "run", id, "seed", cfg.Seed, "population", cfg.Population)
	return id, nil
}

// Runs lists every recorded run, newest first.
func (db *DB) Runs() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT id, seed, population, hospital_capacity, config_yaml, started_at FROM runs ORDER BY started_at DESC, rowid DESC")
	return runs, err
}

// RunConfig reloads the configuration a run was started with.
func (db *DB) RunConfig(runID string) (config.Config, error) {
	var raw string
	if err := db.conn.Get(&raw, "SELECT config_yaml FROM runs WHERE id = ?", runID); err != nil {
		return config.Config{}, fmt.Errorf("run %s: %w", runID, err)
	}
	return config.Parse([]byte(raw))
}

// SaveSamples appends census samples to a run.
func (db *DB) SaveSamples(runID string, samples []engine.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO samples
		(run_id, tick, day, time, susceptible, infected, hospitalized, immune, dead)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		_, err := stmt.Exec(runID, s.Tick, s.Day, s.Time,
			s.Susceptible, s.Infected, s.Hospitalized, s.Immune, s.Dead)
		if err != nil {
			return fmt.Errorf("insert sample at tick %d: %w", s.Tick, err)
		}
	}

	return tx.Commit()
}

// Samples returns every sample of a run in tick order.
func (db *DB) Samples(runID string) ([]engine.Sample, error) {
	var samples []engine.Sample
	err := db.conn.Select(&samples,
		`SELECT tick, day, time, susceptible, infected, hospitalized, immune, dead
		 FROM samples WHERE run_id = ? ORDER BY tick`,
		runID,
	)
	return samples, err
}

// SaveEvents appends events to a run.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, tick, day, description, category) VALUES (?, ?, ?, ?, ?)",
			runID, e.Tick, e.Day, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events of a run, newest first.
// An empty category matches every event.
func (db *DB) RecentEvents(runID, category string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		`SELECT tick, day, description, category FROM events
		 WHERE run_id = ? AND (? = '' OR category = ?)
		 ORDER BY id DESC LIMIT ?`,
		runID, category, category, limit,
	)
	return events, err
}

// Package localstore is a SQLite session gateway for offline play.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/models"
	"github.com/meltforce/repcircle/internal/player"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a workout does not exist for the user.
var ErrNotFound = errors.New("not found")

var _ player.Gateway = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS exercises (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS workout_participants (
	planned_workout_id TEXT NOT NULL,
	user_id            TEXT NOT NULL,
	status             TEXT NOT NULL,
	PRIMARY KEY (planned_workout_id, user_id)
);
CREATE TABLE IF NOT EXISTS completed_workouts (
	id                 TEXT PRIMARY KEY,
	group_id           TEXT NOT NULL,
	user_id            TEXT NOT NULL,
	planned_workout_id TEXT,
	name               TEXT NOT NULL,
	started_at         TEXT NOT NULL,
	completed_at       TEXT,
	duration_seconds   INTEGER
);
CREATE INDEX IF NOT EXISTS idx_cw_planned ON completed_workouts (planned_workout_id, user_id);
CREATE TABLE IF NOT EXISTS completed_sets (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	completed_workout_id TEXT NOT NULL REFERENCES completed_workouts(id) ON DELETE CASCADE,
	exercise_id          TEXT NOT NULL,
	set_number           INTEGER NOT NULL,
	reps                 INTEGER,
	weight               REAL,
	duration_seconds     INTEGER,
	completed_at         TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_cs_workout ON completed_sets (completed_workout_id, exercise_id, set_number);
`

// upgrades are applied in order on top of schema; PRAGMA user_version
// records how many have run.
var upgrades = []string{
	`ALTER TABLE completed_sets ADD COLUMN planned_exercise_id TEXT;
	 CREATE INDEX IF NOT EXISTS idx_cs_slot ON completed_sets (completed_workout_id, planned_exercise_id, set_number);`,
}

// Store keeps completed workouts in a local SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path. ":memory:" is allowed.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating local schema: %w", err)
	}
	if err := upgrade(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func upgrade(db *sql.DB) error {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	for i := version; i < len(upgrades); i++ {
		if _, err := db.Exec(upgrades[i]); err != nil {
			return fmt.Errorf("upgrading local schema to %d: %w", i+1, err)
		}
		if _, err := db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			return fmt.Errorf("recording schema version: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RememberExercises stores exercise names so history can show them.
func (s *Store) RememberExercises(ctx context.Context, exercises []models.PlannedExercise) error {
	for _, ex := range exercises {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO exercises (id, name) VALUES (?, ?)
			 ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
			ex.ExerciseID.String(), ex.ExerciseName); err != nil {
			return fmt.Errorf("saving exercise %s: %w", ex.ExerciseName, err)
		}
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, w models.CompletedWorkout) (uuid.UUID, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO completed_workouts (id, group_id, user_id, planned_workout_id, name, started_at, completed_at, duration_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID.String(), w.GroupID.String(), w.UserID.String(), nullID(w.PlannedWorkoutID), w.Name,
		formatTime(w.StartedAt), nullTime(w.CompletedAt), w.DurationSeconds)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting completed workout: %w", err)
	}
	return w.ID, nil
}

func (s *Store) RecordSet(ctx context.Context, set models.CompletedSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if set.PlannedExerciseID != uuid.Nil {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM completed_sets WHERE completed_workout_id = ? AND planned_exercise_id = ? AND set_number = ?`,
			set.CompletedWorkoutID.String(), set.PlannedExerciseID.String(), set.SetNumber); err != nil {
			return fmt.Errorf("recording set %d: %w", set.SetNumber, err)
		}
	}
	if err := insertSet(ctx, tx, set); err != nil {
		return fmt.Errorf("recording set %d: %w", set.SetNumber, err)
	}
	return tx.Commit()
}

func (s *Store) FinishSession(ctx context.Context, sessionID uuid.UUID, finishedAt time.Time, durationSeconds int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE completed_workouts SET completed_at = ?, duration_seconds = ? WHERE id = ?`,
		formatTime(finishedAt), durationSeconds, sessionID.String())
	if err != nil {
		return fmt.Errorf("finishing workout %s: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing workout %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteSets(ctx context.Context, sessionID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM completed_sets WHERE completed_workout_id = ?`, sessionID.String()); err != nil {
		return fmt.Errorf("deleting sets of %s: %w", sessionID, err)
	}
	return nil
}

func (s *Store) InsertSets(ctx context.Context, sets []models.CompletedSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, set := range sets {
		if err := insertSet(ctx, tx, set); err != nil {
			return fmt.Errorf("inserting sets: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) FindExistingSession(ctx context.Context, plannedWorkoutID, userID uuid.UUID) (uuid.UUID, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM completed_workouts
		 WHERE planned_workout_id = ? AND user_id = ?
		 ORDER BY started_at DESC LIMIT 1`,
		plannedWorkoutID.String(), userID.String()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("finding existing workout: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("parsing workout id: %w", err)
	}
	return parsed, true, nil
}

func (s *Store) RegisterParticipant(ctx context.Context, plannedWorkoutID, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workout_participants (planned_workout_id, user_id, status) VALUES (?, ?, ?)
		 ON CONFLICT (planned_workout_id, user_id) DO UPDATE SET status = excluded.status`,
		plannedWorkoutID.String(), userID.String(), string(models.ParticipantConfirmed))
	if err != nil {
		return fmt.Errorf("registering participant: %w", err)
	}
	return nil
}

// FindUnfinishedSession returns the user's unfinished workout for a plan with
// its sets, or nil.
func (s *Store) FindUnfinishedSession(ctx context.Context, plannedWorkoutID, userID uuid.UUID) (*models.CompletedWorkout, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+workoutColumns+` FROM completed_workouts
		 WHERE planned_workout_id = ? AND user_id = ? AND completed_at IS NULL
		 ORDER BY started_at DESC LIMIT 1`,
		plannedWorkoutID.String(), userID.String())
	w, err := scanWorkout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding unfinished workout: %w", err)
	}
	if w.Sets, err = s.querySets(ctx, w.ID); err != nil {
		return nil, err
	}
	return &w, nil
}

// History lists the user's finished workouts, newest first.
func (s *Store) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.CompletedWorkout, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+workoutColumns+` FROM completed_workouts
		 WHERE user_id = ? AND completed_at IS NOT NULL
		 ORDER BY started_at DESC LIMIT ?`,
		userID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var result []models.CompletedWorkout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		if result[i].Sets, err = s.querySets(ctx, result[i].ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

const workoutColumns = `id, group_id, user_id, planned_workout_id, name, started_at, completed_at, duration_seconds`

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkout(row scanner) (models.CompletedWorkout, error) {
	var (
		w                  models.CompletedWorkout
		planned, completed sql.NullString
		started            string
		duration           sql.NullInt64
	)
	if err := row.Scan(&w.ID, &w.GroupID, &w.UserID, &planned, &w.Name, &started, &completed, &duration); err != nil {
		return w, err
	}

	var err error
	if planned.Valid {
		if w.PlannedWorkoutID, err = uuid.Parse(planned.String); err != nil {
			return w, fmt.Errorf("parsing planned workout id: %w", err)
		}
	}
	if w.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return w, fmt.Errorf("parsing started_at: %w", err)
	}
	if completed.Valid {
		t, err := time.Parse(time.RFC3339Nano, completed.String)
		if err != nil {
			return w, fmt.Errorf("parsing completed_at: %w", err)
		}
		w.CompletedAt = &t
	}
	if duration.Valid {
		d := int(duration.Int64)
		w.DurationSeconds = &d
	}
	return w, nil
}

func (s *Store) querySets(ctx context.Context, workoutID uuid.UUID) ([]models.CompletedSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.completed_workout_id, COALESCE(s.planned_exercise_id, ''), s.exercise_id, COALESCE(e.name, ''), s.set_number, s.reps, s.weight, s.duration_seconds
		 FROM completed_sets s
		 LEFT JOIN exercises e ON e.id = s.exercise_id
		 WHERE s.completed_workout_id = ?
		 ORDER BY s.id`,
		workoutID.String())
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer rows.Close()

	var result []models.CompletedSet
	for rows.Next() {
		var (
			cs             models.CompletedSet
			entry          string
			reps, duration sql.NullInt64
			weight         sql.NullFloat64
		)
		if err := rows.Scan(&cs.CompletedWorkoutID, &entry, &cs.ExerciseID, &cs.ExerciseName, &cs.SetNumber,
			&reps, &weight, &duration); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		if entry != "" {
			id, err := uuid.Parse(entry)
			if err != nil {
				return nil, fmt.Errorf("parsing planned exercise id: %w", err)
			}
			cs.PlannedExerciseID = id
		}
		if reps.Valid {
			cs.Reps = models.IntPtr(int(reps.Int64))
		}
		if weight.Valid {
			cs.Weight = models.FloatPtr(weight.Float64)
		}
		if duration.Valid {
			cs.DurationSeconds = models.IntPtr(int(duration.Int64))
		}
		result = append(result, cs)
	}
	return result, rows.Err()
}

func insertSet(ctx context.Context, tx *sql.Tx, set models.CompletedSet) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO completed_sets (completed_workout_id, planned_exercise_id, exercise_id, set_number, reps, weight, duration_seconds, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		set.CompletedWorkoutID.String(), nullID(set.PlannedExerciseID), set.ExerciseID.String(), set.SetNumber,
		set.Reps, set.Weight, set.DurationSeconds, formatTime(time.Now()))
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id.String()
}

// Describe renders a one-line summary of a workout for terminal output.
func Describe(w models.CompletedWorkout) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s", w.StartedAt.Local().Format("2006-01-02 15:04"), w.Name)
	if w.DurationSeconds != nil {
		fmt.Fprintf(&b, "  %s", player.FormatClock(*w.DurationSeconds))
	}
	fmt.Fprintf(&b, "  %d sets", len(w.Sets))
	return b.String()
}

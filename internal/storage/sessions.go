package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meltforce/repcircle/internal/models"
)

// CreateSession inserts an unfinished completed_workouts row and returns its id.
func (db *DB) CreateSession(ctx context.Context, w models.CompletedWorkout) (uuid.UUID, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO completed_workouts (id, group_id, user_id, planned_workout_id, name,
		 started_at, completed_at, duration_seconds)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		w.ID, w.GroupID, w.UserID, nullUUID(w.PlannedWorkoutID), w.Name,
		w.StartedAt, w.CompletedAt, w.DurationSeconds)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting completed workout: %w", err)
	}
	return w.ID, nil
}

// RecordSet stores one set, replacing an earlier row for the same slot. A
// slot is the plan entry plus set number; rows without an entry are plain
// inserts.
func (db *DB) RecordSet(ctx context.Context, set models.CompletedSet) error {
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		if set.PlannedExerciseID != uuid.Nil {
			if _, err := tx.Exec(ctx,
				`DELETE FROM completed_sets
				 WHERE completed_workout_id = $1 AND planned_exercise_id = $2 AND set_number = $3`,
				set.CompletedWorkoutID, set.PlannedExerciseID, set.SetNumber); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO completed_sets (completed_workout_id, planned_exercise_id, exercise_id, set_number, reps, weight, duration_seconds)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			set.CompletedWorkoutID, nullID(set.PlannedExerciseID), set.ExerciseID, set.SetNumber,
			set.Reps, set.Weight, set.DurationSeconds)
		return err
	})
	if err != nil {
		return fmt.Errorf("recording set %d: %w", set.SetNumber, err)
	}
	return nil
}

// FinishSession stamps the completion time and duration.
func (db *DB) FinishSession(ctx context.Context, sessionID uuid.UUID, finishedAt time.Time, durationSeconds int) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE completed_workouts SET completed_at = $2, duration_seconds = $3 WHERE id = $1`,
		sessionID, finishedAt, durationSeconds)
	if err != nil {
		return fmt.Errorf("finishing workout %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finishing workout %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// DeleteSets removes every set of a workout.
func (db *DB) DeleteSets(ctx context.Context, sessionID uuid.UUID) error {
	if _, err := db.Pool.Exec(ctx,
		`DELETE FROM completed_sets WHERE completed_workout_id = $1`, sessionID); err != nil {
		return fmt.Errorf("deleting sets of %s: %w", sessionID, err)
	}
	return nil
}

// InsertSets batch-inserts set rows.
func (db *DB) InsertSets(ctx context.Context, sets []models.CompletedSet) error {
	if len(sets) == 0 {
		return nil
	}

	query := `INSERT INTO completed_sets (completed_workout_id, planned_exercise_id, exercise_id, set_number, reps, weight, duration_seconds) VALUES `
	args := make([]any, 0, len(sets)*7)
	valueStrings := make([]string, 0, len(sets))

	for i, s := range sets {
		base := i * 7
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args, s.CompletedWorkoutID, nullID(s.PlannedExerciseID), s.ExerciseID, s.SetNumber,
			s.Reps, s.Weight, s.DurationSeconds)
	}

	query += strings.Join(valueStrings, ",")

	if _, err := db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting sets: %w", err)
	}
	return nil
}

// FindExistingSession returns the most recent workout a user logged against
// a planned workout, finished or not.
func (db *DB) FindExistingSession(ctx context.Context, plannedWorkoutID, userID uuid.UUID) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := db.Pool.QueryRow(ctx,
		`SELECT id FROM completed_workouts
		 WHERE planned_workout_id = $1 AND user_id = $2
		 ORDER BY started_at DESC
		 LIMIT 1`,
		plannedWorkoutID, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("finding existing workout: %w", err)
	}
	return id, true, nil
}

// FindUnfinishedSession loads the user's unfinished workout for a plan along
// with its recorded sets, or nil when there is none.
func (db *DB) FindUnfinishedSession(ctx context.Context, plannedWorkoutID, userID uuid.UUID) (*models.CompletedWorkout, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, group_id, user_id, planned_workout_id, name, started_at, completed_at, duration_seconds
		 FROM completed_workouts
		 WHERE planned_workout_id = $1 AND user_id = $2 AND completed_at IS NULL
		 ORDER BY started_at DESC
		 LIMIT 1`,
		plannedWorkoutID, userID)

	w, err := scanCompletedWorkout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding unfinished workout: %w", err)
	}

	w.Sets, err = db.querySets(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// RegisterParticipant marks the user as a confirmed participant, inserting
// the membership row when missing.
func (db *DB) RegisterParticipant(ctx context.Context, plannedWorkoutID, userID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workout_participants (planned_workout_id, user_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (planned_workout_id, user_id) DO UPDATE SET status = EXCLUDED.status`,
		plannedWorkoutID, userID, string(models.ParticipantConfirmed))
	if err != nil {
		return fmt.Errorf("registering participant: %w", err)
	}
	return nil
}

func nullUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// nullID maps uuid.Nil to SQL NULL.
func nullID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

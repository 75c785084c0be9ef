package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meltforce/repcircle/internal/models"
)

// HistoryQuery filters completed workouts for a user.
type HistoryQuery struct {
	UserID uuid.UUID
	Start  time.Time
	End    time.Time
	// IncludeUnfinished also returns workouts without a completion time.
	IncludeUnfinished bool
	Limit             int
}

// QueryCompletedWorkouts lists a user's workouts started in [Start, End),
// newest first. Sets are not loaded.
func (db *DB) QueryCompletedWorkouts(ctx context.Context, q HistoryQuery) ([]models.CompletedWorkout, error) {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	if q.End.IsZero() {
		q.End = time.Now().Add(24 * time.Hour)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT id, group_id, user_id, planned_workout_id, name, started_at, completed_at, duration_seconds
		 FROM completed_workouts
		 WHERE user_id = $1 AND started_at >= $2 AND started_at < $3
		   AND ($4 OR completed_at IS NOT NULL)
		 ORDER BY started_at DESC
		 LIMIT $5`,
		q.UserID, q.Start, q.End, q.IncludeUnfinished, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("querying completed workouts: %w", err)
	}
	defer rows.Close()

	var result []models.CompletedWorkout
	for rows.Next() {
		w, err := scanCompletedWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning completed workout: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// GetCompletedWorkout retrieves one of the user's workouts with its sets.
func (db *DB) GetCompletedWorkout(ctx context.Context, id, userID uuid.UUID) (*models.CompletedWorkout, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, group_id, user_id, planned_workout_id, name, started_at, completed_at, duration_seconds
		 FROM completed_workouts
		 WHERE id = $1 AND user_id = $2`,
		id, userID)

	w, err := scanCompletedWorkout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("completed workout %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting completed workout: %w", err)
	}

	w.Sets, err = db.querySets(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (db *DB) querySets(ctx context.Context, workoutID uuid.UUID) ([]models.CompletedSet, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT s.completed_workout_id, s.planned_exercise_id, s.exercise_id, e.name, s.set_number, s.reps, s.weight, s.duration_seconds
		 FROM completed_sets s
		 JOIN exercises e ON e.id = s.exercise_id
		 WHERE s.completed_workout_id = $1
		 ORDER BY s.completed_at, s.exercise_id, s.set_number`,
		workoutID)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer rows.Close()

	var result []models.CompletedSet
	for rows.Next() {
		var (
			s     models.CompletedSet
			entry *uuid.UUID
		)
		if err := rows.Scan(&s.CompletedWorkoutID, &entry, &s.ExerciseID, &s.ExerciseName, &s.SetNumber,
			&s.Reps, &s.Weight, &s.DurationSeconds); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		if entry != nil {
			s.PlannedExerciseID = *entry
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func scanCompletedWorkout(row pgx.Row) (models.CompletedWorkout, error) {
	var (
		w       models.CompletedWorkout
		planned *uuid.UUID
	)
	err := row.Scan(&w.ID, &w.GroupID, &w.UserID, &planned, &w.Name,
		&w.StartedAt, &w.CompletedAt, &w.DurationSeconds)
	if planned != nil {
		w.PlannedWorkoutID = *planned
	}
	return w, err
}

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meltforce/repcircle/internal/models"
)

// GetPlannedWorkout loads a planned workout with its ordered exercises and
// participant list.
func (db *DB) GetPlannedWorkout(ctx context.Context, id uuid.UUID) (*models.PlannedWorkout, error) {
	var w models.PlannedWorkout
	err := db.Pool.QueryRow(ctx,
		`SELECT id, group_id, user_id, name, scheduled_date, is_group_workout
		 FROM planned_workouts WHERE id = $1`, id).
		Scan(&w.ID, &w.GroupID, &w.OwnerID, &w.Name, &w.ScheduledDate, &w.IsGroupWorkout)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("planned workout %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting planned workout: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT pe.id, pe.exercise_id, e.name, pe.target_sets, pe.target_reps,
		 pe.target_duration_seconds, pe.rest_seconds, pe.order_index
		 FROM planned_workout_exercises pe
		 JOIN exercises e ON e.id = pe.exercise_id
		 WHERE pe.planned_workout_id = $1
		 ORDER BY pe.order_index`, id)
	if err != nil {
		return nil, fmt.Errorf("querying planned exercises: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ex   models.PlannedExercise
			sets *int
		)
		if err := rows.Scan(&ex.ID, &ex.ExerciseID, &ex.ExerciseName, &sets, &ex.TargetReps,
			&ex.TargetDurationSeconds, &ex.RestSeconds, &ex.OrderIndex); err != nil {
			return nil, fmt.Errorf("scanning planned exercise: %w", err)
		}
		if sets != nil {
			ex.TargetSets = *sets
		}
		w.Exercises = append(w.Exercises, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating planned exercises: %w", err)
	}

	w.Participants, err = db.queryParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (db *DB) queryParticipants(ctx context.Context, plannedWorkoutID uuid.UUID) ([]models.Participant, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, COALESCE(display_name, ''), status
		 FROM workout_participants
		 WHERE planned_workout_id = $1
		 ORDER BY created_at`, plannedWorkoutID)
	if err != nil {
		return nil, fmt.Errorf("querying participants: %w", err)
	}
	defer rows.Close()

	var result []models.Participant
	for rows.Next() {
		var (
			p      models.Participant
			status string
		)
		if err := rows.Scan(&p.UserID, &p.DisplayName, &status); err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		p.Status = models.ParticipantStatus(status)
		result = append(result, p)
	}
	return result, rows.Err()
}

package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultTargetSets is used when a planned exercise has no set count.
const DefaultTargetSets = 3

// ParticipantStatus is the membership state of a group workout participant.
type ParticipantStatus string

const (
	ParticipantInvited   ParticipantStatus = "invited"
	ParticipantConfirmed ParticipantStatus = "confirmed"
	ParticipantDeclined  ParticipantStatus = "declined"
)

// PlannedExercise is one ordered entry of a planned workout.
type PlannedExercise struct {
	ID                    uuid.UUID `json:"id" yaml:"id"`
	ExerciseID            uuid.UUID `json:"exercise_id" yaml:"exercise_id"`
	ExerciseName          string    `json:"exercise_name" yaml:"name"`
	TargetSets            int       `json:"target_sets" yaml:"sets"`
	TargetReps            *int      `json:"target_reps,omitempty" yaml:"reps"`
	TargetDurationSeconds *int      `json:"target_duration_seconds,omitempty" yaml:"duration_seconds"`
	RestSeconds           *int      `json:"rest_seconds,omitempty" yaml:"rest_seconds"`
	OrderIndex            int       `json:"order_index" yaml:"order_index"`
}

// Sets returns the number of set slots for the entry.
func (e PlannedExercise) Sets() int {
	if e.TargetSets <= 0 {
		return DefaultTargetSets
	}
	return e.TargetSets
}

// Rest returns the configured rest in seconds, or 0 when unset.
func (e PlannedExercise) Rest() int {
	if e.RestSeconds == nil || *e.RestSeconds < 0 {
		return 0
	}
	return *e.RestSeconds
}

// Participant is a group member invited to a planned workout.
type Participant struct {
	UserID      uuid.UUID         `json:"user_id" yaml:"user_id"`
	DisplayName string            `json:"display_name,omitempty" yaml:"display_name"`
	Status      ParticipantStatus `json:"status" yaml:"status"`
}

// PlannedWorkout is a scheduled, not-yet-executed workout definition.
type PlannedWorkout struct {
	ID             uuid.UUID         `json:"id" yaml:"id"`
	GroupID        uuid.UUID         `json:"group_id" yaml:"group_id"`
	OwnerID        uuid.UUID         `json:"owner_id" yaml:"owner_id"`
	Name           string            `json:"name" yaml:"name"`
	ScheduledDate  time.Time         `json:"scheduled_date" yaml:"scheduled_date"`
	IsGroupWorkout bool              `json:"is_group_workout" yaml:"group_workout"`
	Exercises      []PlannedExercise `json:"exercises" yaml:"exercises"`
	Participants   []Participant     `json:"participants,omitempty" yaml:"participants"`
}

// SortedExercises returns the exercises ordered by OrderIndex. The receiver is not modified.
func (w PlannedWorkout) SortedExercises() []PlannedExercise {
	out := make([]PlannedExercise, len(w.Exercises))
	copy(out, w.Exercises)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out
}

// Participant looks up a participant by user id.
func (w PlannedWorkout) Participant(userID uuid.UUID) (Participant, bool) {
	for _, p := range w.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// SetValues is the recorded performance of one set. Nil means "not provided".
type SetValues struct {
	Reps            *int     `json:"reps"`
	Weight          *float64 `json:"weight"`
	DurationSeconds *int     `json:"duration_seconds"`
}

// Captured reports whether reps or duration were provided.
func (v SetValues) Captured() bool {
	return v.Reps != nil || v.DurationSeconds != nil
}

// Clone returns a deep copy so callers cannot alias the pointers.
func (v SetValues) Clone() SetValues {
	return SetValues{
		Reps:            cloneInt(v.Reps),
		Weight:          cloneFloat(v.Weight),
		DurationSeconds: cloneInt(v.DurationSeconds),
	}
}

// CompletedWorkout is a row of the completed_workouts table.
type CompletedWorkout struct {
	ID               uuid.UUID      `json:"id"`
	GroupID          uuid.UUID      `json:"group_id"`
	UserID           uuid.UUID      `json:"user_id"`
	PlannedWorkoutID uuid.UUID      `json:"planned_workout_id"`
	Name             string         `json:"name"`
	StartedAt        time.Time      `json:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at"`
	DurationSeconds  *int           `json:"duration_seconds"`
	Sets             []CompletedSet `json:"sets,omitempty"`
}

// CompletedSet is a row of the completed_sets table. PlannedExerciseID
// names the plan entry the set belongs to, so an exercise listed twice in a
// plan keeps separate slots. It is nil for rows written before it existed.
type CompletedSet struct {
	CompletedWorkoutID uuid.UUID `json:"completed_workout_id"`
	PlannedExerciseID  uuid.UUID `json:"planned_exercise_id"`
	ExerciseID         uuid.UUID `json:"exercise_id"`
	SetNumber          int       `json:"set_number"`
	ExerciseName       string    `json:"exercise_name,omitempty"` // set by history reads
	SetValues
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

package player

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle phase of a session.
type Status int

const (
	NotStarted Status = iota
	InProgress
	Finished
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for _, v := range []Status{NotStarted, InProgress, Finished} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown session status %q", b)
}

// State is an immutable snapshot of a session, safe to hand to view layers.
type State struct {
	SessionID            uuid.UUID          `json:"session_id"`
	PlannedWorkoutID     uuid.UUID          `json:"planned_workout_id"`
	UserID               uuid.UUID          `json:"user_id"`
	Status               Status             `json:"status"`
	CurrentExerciseIndex int                `json:"current_exercise_index"`
	CurrentSetIndex      int                `json:"current_set_index"`
	CurrentEntryID       uuid.UUID          `json:"current_entry_id"`
	StartedAt            time.Time          `json:"started_at"`
	FinishedAt           *time.Time         `json:"finished_at,omitempty"`
	ElapsedSeconds       int                `json:"elapsed_seconds"`
	Exercises            []ExerciseProgress `json:"exercises"`
	Rest                 RestState          `json:"rest"`
	CompletedSets        int                `json:"completed_sets"`
	TotalSets            int                `json:"total_sets"`
	Progress             float64            `json:"progress"`
	ReadyToFinish        bool               `json:"ready_to_finish"`
}

// HasSession reports whether the session record has been persisted.
func (s State) HasSession() bool {
	return s.SessionID != uuid.Nil
}

// Current returns the progress of the active exercise.
func (s State) Current() ExerciseProgress {
	return s.Exercises[s.CurrentExerciseIndex]
}

// ProgressRatio returns completed/total, or 0 when there is nothing to do.
func ProgressRatio(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total)
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

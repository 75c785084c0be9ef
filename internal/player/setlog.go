package player

import (
	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/models"
)

// SetLog is the recorded performance for one set slot.
type SetLog struct {
	models.SetValues
	Completed bool `json:"completed"`
}

// ExerciseProgress holds the set slots of one planned exercise entry.
type ExerciseProgress struct {
	Entry models.PlannedExercise `json:"entry"`
	Sets  []SetLog               `json:"sets"`
}

func newExerciseProgress(entry models.PlannedExercise) *ExerciseProgress {
	sets := make([]SetLog, entry.Sets())
	for i := range sets {
		sets[i] = SetLog{SetValues: targetValues(entry)}
	}
	return &ExerciseProgress{Entry: entry, Sets: sets}
}

// targetValues pre-fills reps and duration from the plan. Weight stays nil.
func targetValues(entry models.PlannedExercise) models.SetValues {
	return models.SetValues{
		Reps:            entry.TargetReps,
		DurationSeconds: entry.TargetDurationSeconds,
	}.Clone()
}

// CompletedCount returns how many sets are done.
func (p *ExerciseProgress) CompletedCount() int {
	n := 0
	for _, s := range p.Sets {
		if s.Completed {
			n++
		}
	}
	return n
}

// firstIncomplete returns the 1-based index of the first open set, or 0 when all are done.
func (p *ExerciseProgress) firstIncomplete() int {
	for i, s := range p.Sets {
		if !s.Completed {
			return i + 1
		}
	}
	return 0
}

func (p *ExerciseProgress) clone() ExerciseProgress {
	out := ExerciseProgress{Entry: p.Entry, Sets: make([]SetLog, len(p.Sets))}
	for i, s := range p.Sets {
		out.Sets[i] = SetLog{SetValues: s.SetValues.Clone(), Completed: s.Completed}
	}
	return out
}

// restore marks slots completed from persisted sets of an unfinished session.
// Rows carry the plan entry they were recorded for. Rows without one are
// matched by exercise to the first entry whose slot is still open, so an
// exercise listed twice fills both entries. Sets whose number falls outside
// the slot range are ignored.
func restore(progress map[uuid.UUID]*ExerciseProgress, order []uuid.UUID, sets []models.CompletedSet) {
	byExercise := make(map[uuid.UUID][]uuid.UUID, len(order))
	for _, entryID := range order {
		exID := progress[entryID].Entry.ExerciseID
		byExercise[exID] = append(byExercise[exID], entryID)
	}
	for _, cs := range sets {
		idx := cs.SetNumber - 1
		if p, ok := progress[cs.PlannedExerciseID]; ok {
			if idx >= 0 && idx < len(p.Sets) {
				p.Sets[idx] = SetLog{SetValues: cs.SetValues.Clone(), Completed: true}
			}
			continue
		}
		for _, entryID := range byExercise[cs.ExerciseID] {
			p := progress[entryID]
			if idx < 0 || idx >= len(p.Sets) || p.Sets[idx].Completed {
				continue
			}
			p.Sets[idx] = SetLog{SetValues: cs.SetValues.Clone(), Completed: true}
			break
		}
	}
}

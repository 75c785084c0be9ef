// Package reconcile records group participants' performance after the owner
// finishes a group workout and commits it as their own workout history.
package reconcile

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/models"
	"github.com/meltforce/repcircle/internal/player"
)

// ErrNotParticipant is returned for users that are not confirmed members of
// the workout. The owner records through the player, not here.
var ErrNotParticipant = errors.New("not a confirmed participant")

// Slot is one participant set slot. Captured fields are nil until the
// recorder receives a value; Target mirrors the plan.
type Slot struct {
	SetNumber int              `json:"set_number"`
	Target    models.SetValues `json:"target"`
	Captured  models.SetValues `json:"captured"`
}

// Display returns the captured values, falling back to the target per field.
func (s Slot) Display() models.SetValues {
	v := s.Captured.Clone()
	if v.Reps == nil && s.Target.Reps != nil {
		v.Reps = models.IntPtr(*s.Target.Reps)
	}
	if v.DurationSeconds == nil && s.Target.DurationSeconds != nil {
		v.DurationSeconds = models.IntPtr(*s.Target.DurationSeconds)
	}
	return v
}

// Recorder holds a shadow copy of every confirmed participant's sets, seeded
// lazily from the plan's targets. It is independent from the owner's session.
type Recorder struct {
	mu      sync.Mutex
	plan    models.PlannedWorkout
	entries map[uuid.UUID]models.PlannedExercise
	perf    map[uuid.UUID]map[uuid.UUID][]models.SetValues
}

// NewRecorder creates an empty recorder for a group workout.
func NewRecorder(plan models.PlannedWorkout) (*Recorder, error) {
	if !plan.IsGroupWorkout {
		return nil, &player.ValidationError{Op: "new recorder", Err: player.ErrNotGroupWorkout}
	}
	r := &Recorder{
		plan:    plan,
		entries: make(map[uuid.UUID]models.PlannedExercise, len(plan.Exercises)),
		perf:    make(map[uuid.UUID]map[uuid.UUID][]models.SetValues),
	}
	for _, ex := range plan.Exercises {
		r.entries[ex.ID] = ex
	}
	return r, nil
}

// Participants returns the confirmed non-owner participants.
func (r *Recorder) Participants() []models.Participant {
	return confirmed(r.plan)
}

// Open returns the participant's slots for an entry, seeding them on first use.
func (r *Recorder) Open(participant, entryID uuid.UUID) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, sets, err := r.slotsLocked("open", participant, entryID)
	if err != nil {
		return nil, err
	}
	return slots(entry, sets), nil
}

// Set overwrites the captured values of one slot.
func (r *Recorder) Set(participant, entryID uuid.UUID, setIndex int, values models.SetValues) (Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	const op = "set participant values"
	entry, sets, err := r.slotsLocked(op, participant, entryID)
	if err != nil {
		return Slot{}, err
	}
	if setIndex < 1 || setIndex > len(sets) {
		return Slot{}, &player.ValidationError{Op: op, Err: player.ErrSetOutOfRange}
	}
	if (values.Reps != nil && *values.Reps < 0) ||
		(values.Weight != nil && *values.Weight < 0) ||
		(values.DurationSeconds != nil && *values.DurationSeconds < 0) {
		return Slot{}, &player.ValidationError{Op: op, Err: player.ErrNegativeValue}
	}
	sets[setIndex-1] = values.Clone()
	return slot(entry, setIndex, sets[setIndex-1]), nil
}

// Adjust nudges the reps of one slot by delta, starting from the captured
// value or the target when nothing was captured. Reps never drop below zero.
func (r *Recorder) Adjust(participant, entryID uuid.UUID, setIndex, delta int) (Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	const op = "adjust participant reps"
	entry, sets, err := r.slotsLocked(op, participant, entryID)
	if err != nil {
		return Slot{}, err
	}
	if setIndex < 1 || setIndex > len(sets) {
		return Slot{}, &player.ValidationError{Op: op, Err: player.ErrSetOutOfRange}
	}

	base := 0
	switch cur := sets[setIndex-1]; {
	case cur.Reps != nil:
		base = *cur.Reps
	case entry.TargetReps != nil:
		base = *entry.TargetReps
	}
	sets[setIndex-1].Reps = models.IntPtr(max(0, base+delta))
	return slot(entry, setIndex, sets[setIndex-1]), nil
}

// Diff returns captured minus target reps for one slot. ok is false when
// either side is missing.
func (r *Recorder) Diff(participant, entryID uuid.UUID, setIndex int) (diff int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, known := r.entries[entryID]
	if !known || entry.TargetReps == nil {
		return 0, false
	}
	sets := r.perf[participant][entryID]
	if setIndex < 1 || setIndex > len(sets) || sets[setIndex-1].Reps == nil {
		return 0, false
	}
	return *sets[setIndex-1].Reps - *entry.TargetReps, true
}

// Performance returns the captured sets of a participant as rows ready to
// insert, mapped from planned entry to exercise id. Slots without reps or
// duration are left out. CompletedWorkoutID is not set.
func (r *Recorder) Performance(participant uuid.UUID) []models.CompletedSet {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.CompletedSet
	for _, entry := range r.plan.SortedExercises() {
		for i, v := range r.perf[participant][entry.ID] {
			if !v.Captured() {
				continue
			}
			out = append(out, models.CompletedSet{
				PlannedExerciseID: entry.ID,
				ExerciseID:        entry.ExerciseID,
				SetNumber:         i + 1,
				SetValues:         v.Clone(),
			})
		}
	}
	return out
}

func (r *Recorder) slotsLocked(op string, participant, entryID uuid.UUID) (models.PlannedExercise, []models.SetValues, error) {
	if !isConfirmed(r.plan, participant) {
		return models.PlannedExercise{}, nil, &player.ValidationError{Op: op, Err: ErrNotParticipant}
	}
	entry, ok := r.entries[entryID]
	if !ok {
		return models.PlannedExercise{}, nil, &player.ValidationError{Op: op, Err: player.ErrUnknownExercise}
	}

	byEntry, ok := r.perf[participant]
	if !ok {
		byEntry = make(map[uuid.UUID][]models.SetValues)
		r.perf[participant] = byEntry
	}
	sets, ok := byEntry[entryID]
	if !ok {
		sets = make([]models.SetValues, entry.Sets())
		byEntry[entryID] = sets
	}
	return entry, sets, nil
}

func slots(entry models.PlannedExercise, sets []models.SetValues) []Slot {
	out := make([]Slot, len(sets))
	for i, v := range sets {
		out[i] = slot(entry, i+1, v)
	}
	return out
}

func slot(entry models.PlannedExercise, setNumber int, v models.SetValues) Slot {
	return Slot{
		SetNumber: setNumber,
		Target: models.SetValues{
			Reps:            entry.TargetReps,
			DurationSeconds: entry.TargetDurationSeconds,
		}.Clone(),
		Captured: v.Clone(),
	}
}

func isConfirmed(plan models.PlannedWorkout, userID uuid.UUID) bool {
	if userID == plan.OwnerID {
		return false
	}
	p, ok := plan.Participant(userID)
	return ok && p.Status == models.ParticipantConfirmed
}

// confirmed lists non-owner participants with confirmed status, sorted by id
// for a stable processing order.
func confirmed(plan models.PlannedWorkout) []models.Participant {
	var out []models.Participant
	for _, p := range plan.Participants {
		if p.UserID != plan.OwnerID && p.Status == models.ParticipantConfirmed {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out
}

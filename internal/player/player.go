// Package player drives a single live training session through its planned
// exercises and sets, persisting each completed set through a Gateway.
package player

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/models"
)

// Session is the workout execution state machine for one user.
// All methods are safe for concurrent use; persistence calls are
// serialized so at most one write is in flight per session.
type Session struct {
	mu sync.Mutex

	plan      models.PlannedWorkout
	exercises []models.PlannedExercise
	progress  map[uuid.UUID]*ExerciseProgress
	userID    uuid.UUID
	gw        Gateway
	timer     *RestTimer
	now       func() time.Time
	log       *slog.Logger
	resume    *models.CompletedWorkout

	sessionID  uuid.UUID
	status     Status
	exIdx      int
	setIdx     int
	startedAt  time.Time
	finishedAt time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithRestTimer replaces the default one-second rest timer.
func WithRestTimer(t *RestTimer) Option {
	return func(s *Session) { s.timer = t }
}

// WithLogger sets the session logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithResume restores an unfinished session record and its completed sets.
// Finished records are ignored.
func WithResume(existing *models.CompletedWorkout) Option {
	return func(s *Session) { s.resume = existing }
}

// New creates a session for userID over the given plan. The session starts
// in NotStarted; call Start or Join to begin.
func New(plan models.PlannedWorkout, userID uuid.UUID, gw Gateway, opts ...Option) (*Session, error) {
	exercises := plan.SortedExercises()
	if len(exercises) == 0 {
		return nil, invalid("new session", ErrEmptyPlan)
	}
	plan.Participants = append([]models.Participant(nil), plan.Participants...)

	s := &Session{
		plan:      plan,
		exercises: exercises,
		progress:  make(map[uuid.UUID]*ExerciseProgress, len(exercises)),
		userID:    userID,
		gw:        gw,
		now:       time.Now,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		setIdx:    1,
	}
	for _, o := range opts {
		o(s)
	}
	if s.timer == nil {
		s.timer = NewRestTimer()
	}

	order := make([]uuid.UUID, 0, len(exercises))
	for _, ex := range exercises {
		if _, dup := s.progress[ex.ID]; dup {
			return nil, invalid("new session", ErrDuplicateEntry)
		}
		s.progress[ex.ID] = newExerciseProgress(ex)
		order = append(order, ex.ID)
	}

	if r := s.resume; r != nil && r.CompletedAt == nil && r.ID != uuid.Nil {
		s.sessionID = r.ID
		s.startedAt = r.StartedAt
		restore(s.progress, order, r.Sets)
		s.exIdx, s.setIdx = s.firstOpenSlot()
	}

	return s, nil
}

// ID returns the persisted session id, or uuid.Nil before the first write.
func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Plan returns the planned workout the session executes.
func (s *Session) Plan() models.PlannedWorkout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// UserID returns the user executing the session.
func (s *Session) UserID() uuid.UUID {
	return s.userID
}

// Resumed reports whether the session reuses an unfinished record.
func (s *Session) Resumed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resume != nil && s.sessionID == s.resume.ID
}

// Start persists a new session record and enters InProgress. A restored
// unfinished record is reused instead of creating a duplicate.
func (s *Session) Start(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.startLocked(ctx); err != nil {
		return s.snapshotLocked(), err
	}
	return s.snapshotLocked(), nil
}

// Join registers the caller as a confirmed participant of a group workout
// and then starts the session. Registration failure aborts before any
// session record is created. The local participant list only changes once
// the session has started; registering again on retry is harmless.
func (s *Session) Join(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const op = "join"
	if s.status != NotStarted {
		return s.snapshotLocked(), invalid(op, ErrAlreadyStarted)
	}
	if !s.plan.IsGroupWorkout {
		return s.snapshotLocked(), invalid(op, ErrNotGroupWorkout)
	}
	if s.userID == s.plan.OwnerID {
		return s.snapshotLocked(), invalid(op, ErrOwnerCannotJoin)
	}
	if p, ok := s.plan.Participant(s.userID); ok && p.Status != models.ParticipantDeclined {
		return s.snapshotLocked(), invalid(op, ErrAlreadyJoined)
	}

	if err := s.gw.RegisterParticipant(ctx, s.plan.ID, s.userID); err != nil {
		return s.snapshotLocked(), persistence(op, err)
	}
	if err := s.startLocked(ctx); err != nil {
		return s.snapshotLocked(), err
	}
	s.markConfirmed(s.userID)
	return s.snapshotLocked(), nil
}

func (s *Session) startLocked(ctx context.Context) error {
	const op = "start"
	if s.status != NotStarted {
		return invalid(op, ErrAlreadyStarted)
	}

	if s.sessionID != uuid.Nil {
		s.status = InProgress
		s.log.Info("session resumed", "session_id", s.sessionID, "planned_workout_id", s.plan.ID)
		return nil
	}

	startedAt := s.now()
	id, err := s.gw.CreateSession(ctx, models.CompletedWorkout{
		GroupID:          s.plan.GroupID,
		UserID:           s.userID,
		PlannedWorkoutID: s.plan.ID,
		Name:             s.plan.Name,
		StartedAt:        startedAt,
	})
	if err != nil {
		return persistence(op, err)
	}

	s.sessionID = id
	s.startedAt = startedAt
	s.exIdx, s.setIdx = 0, 1
	s.status = InProgress
	s.log.Info("session started", "session_id", id, "planned_workout_id", s.plan.ID)
	return nil
}

func (s *Session) markConfirmed(userID uuid.UUID) {
	for i, p := range s.plan.Participants {
		if p.UserID == userID {
			s.plan.Participants[i].Status = models.ParticipantConfirmed
			return
		}
	}
	s.plan.Participants = append(s.plan.Participants, models.Participant{
		UserID: userID,
		Status: models.ParticipantConfirmed,
	})
}

// RecordSet persists the values for one set slot and, once the write
// succeeds, marks the slot completed. Any slot may be recorded, not only the
// active one. On failure local state is unchanged.
func (s *Session) RecordSet(ctx context.Context, entryID uuid.UUID, setIndex int, values models.SetValues) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.recordLocked(ctx, entryID, setIndex, values); err != nil {
		return s.snapshotLocked(), err
	}
	return s.snapshotLocked(), nil
}

func (s *Session) recordLocked(ctx context.Context, entryID uuid.UUID, setIndex int, values models.SetValues) error {
	const op = "record set"
	if s.status != InProgress {
		return invalid(op, ErrNotInProgress)
	}
	p, ok := s.progress[entryID]
	if !ok {
		return invalid(op, ErrUnknownExercise)
	}
	if setIndex < 1 || setIndex > len(p.Sets) {
		return invalid(op, ErrSetOutOfRange)
	}
	if negative(values) {
		return invalid(op, ErrNegativeValue)
	}

	err := s.gw.RecordSet(ctx, models.CompletedSet{
		CompletedWorkoutID: s.sessionID,
		PlannedExerciseID:  entryID,
		ExerciseID:         p.Entry.ExerciseID,
		SetNumber:          setIndex,
		SetValues:          values.Clone(),
	})
	if err != nil {
		return persistence(op, err)
	}

	p.Sets[setIndex-1] = SetLog{SetValues: values.Clone(), Completed: true}
	return nil
}

// Advance moves the cursor past the active set. It is only valid once the
// active set has been recorded. Crossing a set or exercise boundary starts
// the rest timer with the rest of the exercise just completed. At the last
// set of the last exercise it does nothing.
func (s *Session) Advance() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != InProgress {
		return s.snapshotLocked(), invalid("advance", ErrNotInProgress)
	}
	if !s.activeSlotLocked().Completed {
		return s.snapshotLocked(), invalid("advance", ErrSetNotRecorded)
	}
	s.advanceLocked()
	return s.snapshotLocked(), nil
}

func (s *Session) advanceLocked() {
	ex := s.exercises[s.exIdx]
	p := s.progress[ex.ID]

	switch {
	case s.setIdx < len(p.Sets):
		s.setIdx++
	case s.exIdx < len(s.exercises)-1:
		s.exIdx++
		s.setIdx = 1
	default:
		return
	}

	// Rest follows the exercise just completed, not the upcoming one.
	if rest := ex.Rest(); rest > 0 {
		s.timer.Start(rest)
	}
}

// CompleteSet records the active set with the given values and advances
// once the write has succeeded.
func (s *Session) CompleteSet(ctx context.Context, values models.SetValues) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID := s.exercises[s.exIdx].ID
	if err := s.recordLocked(ctx, entryID, s.setIdx, values); err != nil {
		return s.snapshotLocked(), err
	}
	s.advanceLocked()
	return s.snapshotLocked(), nil
}

// CompleteActive completes the active set with its current draft values.
func (s *Session) CompleteActive(ctx context.Context) (State, error) {
	s.mu.Lock()
	values := s.activeSlotLocked().SetValues.Clone()
	s.mu.Unlock()
	return s.CompleteSet(ctx, values)
}

// Draft edits the values of an open set slot locally. Nothing is persisted
// until the slot is recorded.
func (s *Session) Draft(entryID uuid.UUID, setIndex int, values models.SetValues) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const op = "draft set"
	if s.status == Finished {
		return s.snapshotLocked(), invalid(op, ErrNotInProgress)
	}
	p, ok := s.progress[entryID]
	if !ok {
		return s.snapshotLocked(), invalid(op, ErrUnknownExercise)
	}
	if setIndex < 1 || setIndex > len(p.Sets) {
		return s.snapshotLocked(), invalid(op, ErrSetOutOfRange)
	}
	if p.Sets[setIndex-1].Completed {
		return s.snapshotLocked(), invalid(op, ErrSetCompleted)
	}
	if negative(values) {
		return s.snapshotLocked(), invalid(op, ErrNegativeValue)
	}
	p.Sets[setIndex-1].SetValues = values.Clone()
	return s.snapshotLocked(), nil
}

// SkipToExercise jumps to any exercise and resets the set cursor.
func (s *Session) SkipToExercise(index int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != InProgress {
		return s.snapshotLocked(), invalid("skip to exercise", ErrNotInProgress)
	}
	if index < 0 || index >= len(s.exercises) {
		return s.snapshotLocked(), invalid("skip to exercise", ErrExerciseRange)
	}
	s.exIdx, s.setIdx = index, 1
	return s.snapshotLocked(), nil
}

// SkipRest cuts the current rest short.
func (s *Session) SkipRest() State {
	s.timer.Skip()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// FinishResult is returned by Finish.
type FinishResult struct {
	State State `json:"state"`
	// NeedsParticipantCapture tells the caller that confirmed participants'
	// performance should be recorded and reconciled next.
	NeedsParticipantCapture bool `json:"needs_participant_capture"`
}

// Finish persists the completion time and duration and enters Finished.
// Participant reconciliation is left to the caller.
func (s *Session) Finish(ctx context.Context) (FinishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const op = "finish"
	if s.status != InProgress {
		return FinishResult{State: s.snapshotLocked()}, invalid(op, ErrNotInProgress)
	}

	finishedAt := s.now()
	duration := elapsed(s.startedAt, finishedAt)
	if err := s.gw.FinishSession(ctx, s.sessionID, finishedAt, duration); err != nil {
		return FinishResult{State: s.snapshotLocked()}, persistence(op, err)
	}

	s.finishedAt = finishedAt
	s.status = Finished
	s.timer.Stop()
	s.log.Info("session finished", "session_id", s.sessionID, "duration_seconds", duration)

	return FinishResult{
		State:                   s.snapshotLocked(),
		NeedsParticipantCapture: s.needsCaptureLocked(),
	}, nil
}

func (s *Session) needsCaptureLocked() bool {
	if !s.plan.IsGroupWorkout || s.userID != s.plan.OwnerID {
		return false
	}
	for _, p := range s.plan.Participants {
		if p.UserID != s.plan.OwnerID && p.Status == models.ParticipantConfirmed {
			return true
		}
	}
	return false
}

// Abandon stops the rest timer. The persisted record stays unfinished and
// can be resumed later.
func (s *Session) Abandon() State {
	s.timer.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Info("session abandoned", "session_id", s.sessionID, "status", s.status)
	return s.snapshotLocked()
}

// Snapshot returns the current state with elapsed time recomputed from the
// start timestamp.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Timer exposes the rest countdown so view layers can poll it.
func (s *Session) Timer() *RestTimer {
	return s.timer
}

func (s *Session) snapshotLocked() State {
	st := State{
		SessionID:            s.sessionID,
		PlannedWorkoutID:     s.plan.ID,
		UserID:               s.userID,
		Status:               s.status,
		CurrentExerciseIndex: s.exIdx,
		CurrentSetIndex:      s.setIdx,
		CurrentEntryID:       s.exercises[s.exIdx].ID,
		StartedAt:            s.startedAt,
		Exercises:            make([]ExerciseProgress, 0, len(s.exercises)),
		Rest:                 s.timer.State(),
	}

	for _, ex := range s.exercises {
		p := s.progress[ex.ID]
		st.Exercises = append(st.Exercises, p.clone())
		st.CompletedSets += p.CompletedCount()
		st.TotalSets += len(p.Sets)
	}
	st.Progress = ProgressRatio(st.CompletedSets, st.TotalSets)

	switch s.status {
	case InProgress:
		st.ElapsedSeconds = elapsed(s.startedAt, s.now())
	case Finished:
		finishedAt := s.finishedAt
		st.FinishedAt = &finishedAt
		st.ElapsedSeconds = elapsed(s.startedAt, finishedAt)
	}

	last := s.progress[s.exercises[len(s.exercises)-1].ID]
	st.ReadyToFinish = s.exIdx == len(s.exercises)-1 &&
		s.setIdx == len(last.Sets) &&
		last.Sets[len(last.Sets)-1].Completed

	return st
}

func (s *Session) activeSlotLocked() SetLog {
	p := s.progress[s.exercises[s.exIdx].ID]
	return p.Sets[s.setIdx-1]
}

// firstOpenSlot returns the cursor of the first incomplete set, or the last
// slot of the last exercise when everything is done.
func (s *Session) firstOpenSlot() (int, int) {
	for i, ex := range s.exercises {
		if n := s.progress[ex.ID].firstIncomplete(); n > 0 {
			return i, n
		}
	}
	lastIdx := len(s.exercises) - 1
	return lastIdx, len(s.progress[s.exercises[lastIdx].ID].Sets)
}

func elapsed(from, to time.Time) int {
	if from.IsZero() || to.Before(from) {
		return 0
	}
	return int(to.Sub(from) / time.Second)
}

func negative(v models.SetValues) bool {
	return (v.Reps != nil && *v.Reps < 0) ||
		(v.Weight != nil && *v.Weight < 0) ||
		(v.DurationSeconds != nil && *v.DurationSeconds < 0)
}

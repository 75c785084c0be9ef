// Package live keeps the in-memory registry of sessions being played over
// the API, together with the participant recorder of group workouts.
package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/events"
	"github.com/meltforce/repcircle/internal/models"
	"github.com/meltforce/repcircle/internal/observability"
	"github.com/meltforce/repcircle/internal/player"
	"github.com/meltforce/repcircle/internal/reconcile"
	"golang.org/x/sync/singleflight"
)

var (
	ErrSessionNotFound = errors.New("live session not found")
	ErrForbidden       = errors.New("session belongs to another user")
	ErrNoAccess        = errors.New("not the owner or an invited participant")
	ErrCaptureClosed   = errors.New("participant capture is not open")
)

// PlanStore loads plans and unfinished sessions. *storage.DB satisfies it.
type PlanStore interface {
	player.Gateway
	GetPlannedWorkout(ctx context.Context, id uuid.UUID) (*models.PlannedWorkout, error)
	FindUnfinishedSession(ctx context.Context, plannedWorkoutID, userID uuid.UUID) (*models.CompletedWorkout, error)
}

type entry struct {
	sess *player.Session
	key  string

	mu  sync.Mutex
	rec *reconcile.Recorder
}

func (e *entry) recorder() *reconcile.Recorder {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec
}

// Service owns live sessions keyed by session id.
type Service struct {
	store      PlanStore
	publisher  events.Publisher
	reconciler *reconcile.Reconciler
	log        *slog.Logger
	now        func() time.Time
	timerOpts  []player.TimerOption

	starts singleflight.Group

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
	byUser   map[string]uuid.UUID
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the event publisher. Defaults to events.Nop.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithClock overrides time.Now for sessions and events.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRestTick sets the rest countdown cadence of new sessions.
func WithRestTick(d time.Duration) Option {
	return func(s *Service) { s.timerOpts = append(s.timerOpts, player.WithTickInterval(d)) }
}

// WithTimerOptions passes options to every session's rest timer.
func WithTimerOptions(opts ...player.TimerOption) Option {
	return func(s *Service) { s.timerOpts = append(s.timerOpts, opts...) }
}

// NewService creates an empty registry backed by store.
func NewService(store PlanStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: events.Nop{},
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		sessions:  make(map[uuid.UUID]*entry),
		byUser:    make(map[string]uuid.UUID),
	}
	for _, o := range opts {
		o(s)
	}
	s.reconciler = reconcile.New(store, s.log)
	return s
}

func userKey(planID, userID uuid.UUID) string {
	return planID.String() + "/" + userID.String()
}

// Start begins or resumes the caller's session for a planned workout. The
// owner and invited or confirmed participants may start; an unfinished record left by
// an earlier run is resumed. Calling Start again while the session is live
// returns the live session.
func (s *Service) Start(ctx context.Context, userID, plannedWorkoutID uuid.UUID) (player.State, error) {
	key := userKey(plannedWorkoutID, userID)
	v, err, _ := s.starts.Do(key, func() (any, error) {
		if e := s.lookupKey(key); e != nil {
			return e.sess.Snapshot(), nil
		}

		plan, err := s.store.GetPlannedWorkout(ctx, plannedWorkoutID)
		if err != nil {
			return nil, fmt.Errorf("loading planned workout: %w", err)
		}
		if !mayStart(*plan, userID) {
			return nil, ErrNoAccess
		}
		unfinished, err := s.store.FindUnfinishedSession(ctx, plannedWorkoutID, userID)
		if err != nil {
			return nil, fmt.Errorf("finding unfinished session: %w", err)
		}

		sess, err := s.newSession(*plan, userID, player.WithResume(unfinished))
		if err != nil {
			return nil, err
		}
		st, err := sess.Start(ctx)
		if err != nil {
			sess.Abandon()
			return nil, err
		}

		mode := "start"
		if sess.Resumed() {
			mode = "resume"
		}
		s.register(key, sess, mode)
		s.publish(ctx, events.SessionStarted, st, nil)
		return st, nil
	})
	if err != nil {
		s.observe("start", err)
		return player.State{}, err
	}
	return v.(player.State), nil
}

// Join registers the caller as a confirmed participant of a group workout
// and starts their session.
func (s *Service) Join(ctx context.Context, userID, plannedWorkoutID uuid.UUID) (player.State, error) {
	key := userKey(plannedWorkoutID, userID)
	v, err, _ := s.starts.Do("join/"+key, func() (any, error) {
		plan, err := s.store.GetPlannedWorkout(ctx, plannedWorkoutID)
		if err != nil {
			return nil, fmt.Errorf("loading planned workout: %w", err)
		}
		sess, err := s.newSession(*plan, userID)
		if err != nil {
			return nil, err
		}
		st, err := sess.Join(ctx)
		if err != nil {
			sess.Abandon()
			return nil, err
		}
		s.register(key, sess, "join")
		s.publish(ctx, events.ParticipantJoined, st, nil)
		return st, nil
	})
	if err != nil {
		s.observe("join", err)
		return player.State{}, err
	}
	return v.(player.State), nil
}

func (s *Service) newSession(plan models.PlannedWorkout, userID uuid.UUID, opts ...player.Option) (*player.Session, error) {
	opts = append(opts,
		player.WithClock(s.now),
		player.WithLogger(s.log),
		player.WithRestTimer(player.NewRestTimer(s.timerOpts...)),
	)
	return player.New(plan, userID, s.store, opts...)
}

// mayStart reports whether userID may play the plan: the owner or any
// participant that has not declined. Uninvited users join instead.
func mayStart(plan models.PlannedWorkout, userID uuid.UUID) bool {
	if plan.OwnerID == userID {
		return true
	}
	p, ok := plan.Participant(userID)
	return ok && p.Status != models.ParticipantDeclined
}

func (s *Service) register(key string, sess *player.Session, mode string) {
	s.mu.Lock()
	s.sessions[sess.ID()] = &entry{sess: sess, key: key}
	s.byUser[key] = sess.ID()
	n := len(s.sessions)
	s.mu.Unlock()

	observability.SessionsStarted.WithLabelValues(mode).Inc()
	observability.SessionsActive.Set(float64(n))
}

func (s *Service) drop(id uuid.UUID) {
	s.mu.Lock()
	if e, ok := s.sessions[id]; ok {
		delete(s.byUser, e.key)
		delete(s.sessions, id)
	}
	n := len(s.sessions)
	s.mu.Unlock()
	observability.SessionsActive.Set(float64(n))
}

func (s *Service) lookupKey(key string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byUser[key]; ok {
		return s.sessions[id]
	}
	return nil
}

// lookup returns the live entry if it belongs to userID.
func (s *Service) lookup(userID, sessionID uuid.UUID) (*entry, error) {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if e.sess.UserID() != userID {
		return nil, ErrForbidden
	}
	return e, nil
}

// Get returns a snapshot of a live session.
func (s *Service) Get(userID, sessionID uuid.UUID) (player.State, error) {
	e, err := s.lookup(userID, sessionID)
	if err != nil {
		return player.State{}, err
	}
	return e.sess.Snapshot(), nil
}

// Active lists the caller's live sessions.
func (s *Service) Active(userID uuid.UUID) []player.State {
	s.mu.Lock()
	var mine []*player.Session
	for _, e := range s.sessions {
		if e.sess.UserID() == userID {
			mine = append(mine, e.sess)
		}
	}
	s.mu.Unlock()

	out := make([]player.State, 0, len(mine))
	for _, sess := range mine {
		out = append(out, sess.Snapshot())
	}
	return out
}

// CompleteSet records the active set and advances. Nil values complete the
// active set with its draft values.
func (s *Service) CompleteSet(ctx context.Context, userID, sessionID uuid.UUID, values *models.SetValues) (player.State, error) {
	e, err := s.lookup(userID, sessionID)
	if err != nil {
		return player.State{}, err
	}
	var st player.State
	if values == nil {
		st, err = e.sess.CompleteActive(ctx)
	} else {
		st, err = e.sess.CompleteSet(ctx, *values)
	}
	if err != nil {
		s.observe("complete set", err)
		return st, err
	}
	observability.SetsRecorded.Inc()
	return st, nil
}

// RecordSet records any set slot without moving the cursor.
func (s *Service) RecordSet(ctx context.Context, userID, sessionID, entryID uuid.UUID, setIndex int, values models.SetValues) (player.State, error) {
	e, err := s.lookup(userID, sessionID)
	if err != nil {
		return player.State{}, err
	}
	st, err := e.sess.RecordSet(ctx, entryID, setIndex, values)
	if err != nil {
		s.observe("record set", err)
		return st, err
	}
	observability.SetsRecorded.Inc()
	return st, nil
}

func (s *Service) Draft(userID, sessionID, entryID uuid.UUID, setIndex int, values models.SetValues) (player.State, error) {
	e, err := s.lookup(userID, sessionID)
	if err != nil {
		return player.State{}, err
	}
	st, err := e.sess.Draft(entryID, setIndex, values)
	s.observe("draft set", err)
	return st, err
}

func (s *Service) SkipToExercise(userID, sessionID uuid.UUID, index int) (player.State, error) {
	e, err := s.lookup(userID, sessionID)
	if err != nil {
		return player.State{}, err
	}
	st, err := e.sess.SkipToExercise(index)
	s.observe("skip to exercise", err)
	return st, err
}

func (s *Service) SkipRest(userID, sessionID uuid.UUID) (player.State, error) {
	e, err := s.lookup(userID, sessionID)
	if err != nil {
		return player.State{}, err
	}
	return e.sess.SkipRest(), nil
}

// Finish completes the session. When confirmed participants still need
// their performance captured the session stays registered with an open
// recorder; otherwise it is dropped.
func (s *Service) Finish(ctx context.Context, userID, sessionID uuid.UUID) (player.FinishResult, error) {
	e, err := s.lookup(userID, sessionID)
	if err != nil {
		return player.FinishResult{}, err
	}
	res, err := e.sess.Finish(ctx)
	if err != nil {
		s.observe("finish", err)
		return res, err
	}

	observability.SessionsFinished.Inc()
	observability.SessionDuration.Observe(float64(res.State.ElapsedSeconds))
	s.publish(ctx, events.SessionFinished, res.State, nil)

	if !res.NeedsParticipantCapture {
		s.drop(sessionID)
		return res, nil
	}
	rec, err := reconcile.NewRecorder(e.sess.Plan())
	if err != nil {
		return res, fmt.Errorf("opening participant capture: %w", err)
	}
	e.mu.Lock()
	e.rec = rec
	e.mu.Unlock()
	return res, nil
}

// Participants lists who can be captured for a finished group session.
func (s *Service) Participants(userID, sessionID uuid.UUID) ([]models.Participant, error) {
	rec, err := s.openRecorder(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return rec.Participants(), nil
}

// ParticipantSlots returns a participant's slots for one exercise entry.
func (s *Service) ParticipantSlots(userID, sessionID, participant, entryID uuid.UUID) ([]reconcile.Slot, error) {
	rec, err := s.openRecorder(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return rec.Open(participant, entryID)
}

// CaptureParticipantSet stores a participant's values for one slot.
func (s *Service) CaptureParticipantSet(userID, sessionID, participant, entryID uuid.UUID, setIndex int, values models.SetValues) (reconcile.Slot, error) {
	rec, err := s.openRecorder(userID, sessionID)
	if err != nil {
		return reconcile.Slot{}, err
	}
	slot, err := rec.Set(participant, entryID, setIndex, values)
	s.observe("capture participant set", err)
	return slot, err
}

// AdjustParticipantSet moves a participant's reps by delta, clamped at zero.
func (s *Service) AdjustParticipantSet(userID, sessionID, participant, entryID uuid.UUID, setIndex, delta int) (reconcile.Slot, error) {
	rec, err := s.openRecorder(userID, sessionID)
	if err != nil {
		return reconcile.Slot{}, err
	}
	slot, err := rec.Adjust(participant, entryID, setIndex, delta)
	s.observe("adjust participant set", err)
	return slot, err
}

func (s *Service) openRecorder(userID, sessionID uuid.UUID) (*reconcile.Recorder, error) {
	e, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	rec := e.recorder()
	if rec == nil {
		return nil, &player.ValidationError{Op: "participant capture", Err: ErrCaptureClosed}
	}
	return rec, nil
}

// Reconcile writes the captured participant performance. The session is
// dropped once every participant succeeded; after a partial failure it stays
// so the failed participants can be retried with only.
func (s *Service) Reconcile(ctx context.Context, userID, sessionID uuid.UUID, only []uuid.UUID) (reconcile.Report, error) {
	e, err := s.lookup(userID, sessionID)
	if err != nil {
		return reconcile.Report{}, err
	}
	rec := e.recorder()
	if rec == nil {
		return reconcile.Report{}, &player.ValidationError{Op: "reconcile", Err: ErrCaptureClosed}
	}

	st := e.sess.Snapshot()
	in := reconcile.Input{
		Plan:     e.sess.Plan(),
		Recorder: rec,
		Only:     only,
		Owner: reconcile.OwnerTiming{
			StartedAt:       st.StartedAt,
			FinishedAt:      *st.FinishedAt,
			DurationSeconds: st.ElapsedSeconds,
		},
	}
	report, err := s.reconciler.Reconcile(ctx, in)

	observability.ParticipantsReconciled.WithLabelValues("reconciled").Add(float64(len(report.Reconciled)))
	observability.ParticipantsReconciled.WithLabelValues("skipped").Add(float64(len(report.Skipped)))
	observability.ParticipantsReconciled.WithLabelValues("failed").Add(float64(len(report.Failed)))

	ids := make([]uuid.UUID, 0, len(report.Reconciled))
	for _, o := range report.Reconciled {
		ids = append(ids, o.UserID)
	}
	s.publish(ctx, events.GroupReconciled, st, func(ev *events.Event) {
		ev.Reconciled = ids
		ev.Failed = report.Failed
	})

	if err != nil {
		s.observe("reconcile", err)
		return report, err
	}
	s.drop(sessionID)
	return report, nil
}

// Abandon stops a live session and forgets it. The persisted record stays
// unfinished and is resumed by the next Start.
func (s *Service) Abandon(ctx context.Context, userID, sessionID uuid.UUID) (player.State, error) {
	e, err := s.lookup(userID, sessionID)
	if err != nil {
		return player.State{}, err
	}
	st := e.sess.Abandon()
	s.drop(sessionID)
	if st.Status != player.Finished {
		s.publish(ctx, events.SessionAbandoned, st, nil)
	}
	return st, nil
}

// Close stops every live session's rest timer.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[uuid.UUID]*entry)
	s.byUser = make(map[string]uuid.UUID)
	s.mu.Unlock()

	for _, e := range sessions {
		e.sess.Abandon()
	}
	observability.SessionsActive.Set(0)
}

func (s *Service) publish(ctx context.Context, typ events.Type, st player.State, fill func(*events.Event)) {
	ev := events.Event{
		Type:             typ,
		SessionID:        st.SessionID,
		PlannedWorkoutID: st.PlannedWorkoutID,
		UserID:           st.UserID,
		OccurredAt:       s.now().UTC(),
		CompletedSets:    st.CompletedSets,
		TotalSets:        st.TotalSets,
		DurationSeconds:  st.ElapsedSeconds,
	}
	if fill != nil {
		fill(&ev)
	}

	result := "ok"
	if err := s.publisher.Publish(ctx, ev); err != nil {
		result = "error"
		s.log.Warn("publishing session event", "type", typ, "session_id", st.SessionID, "error", err)
	}
	observability.EventsPublished.WithLabelValues(string(typ), result).Inc()
}

func (s *Service) observe(op string, err error) {
	if err == nil {
		return
	}
	class := "other"
	switch {
	case player.IsValidation(err):
		class = "validation"
	case player.IsPersistence(err):
		class = "persistence"
	}
	var partial *reconcile.PartialGroupFailure
	if errors.As(err, &partial) {
		class = "partial"
	}
	observability.Errors.WithLabelValues(op, class).Inc()
	s.log.Debug("session operation failed", "op", op, "class", class, "error", err)
}

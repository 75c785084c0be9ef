package localstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/models"
	"github.com/meltforce/repcircle/internal/player"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "local.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPlan() models.PlannedWorkout {
	return models.PlannedWorkout{
		ID:      uuid.New(),
		GroupID: uuid.New(),
		OwnerID: uuid.New(),
		Name:    "Morning pull",
		Exercises: []models.PlannedExercise{
			{ID: uuid.New(), ExerciseID: uuid.New(), ExerciseName: "Pull-ups", TargetSets: 2, TargetReps: models.IntPtr(6)},
			{ID: uuid.New(), ExerciseID: uuid.New(), ExerciseName: "Hollow hold", TargetSets: 1, TargetDurationSeconds: models.IntPtr(20), OrderIndex: 1},
		},
	}
}

// TestStore_PlayerRoundTrip verifies a full session played against SQLite
// shows up in history with exercise names and timing.
func TestStore_PlayerRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	plan := testPlan()
	if err := s.RememberExercises(ctx, plan.Exercises); err != nil {
		t.Fatalf("RememberExercises: %v", err)
	}

	now := time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	sess, err := player.New(plan, plan.OwnerID, s,
		player.WithClock(clock),
		player.WithRestTimer(player.NewRestTimer(player.WithManualTicks())))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := sess.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := sess.CompleteActive(ctx); err != nil {
			t.Fatalf("CompleteActive %d: %v", i, err)
		}
	}
	now = now.Add(12 * time.Minute)
	if _, err := sess.Finish(ctx); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	history, err := s.History(ctx, plan.OwnerID, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("got %d workouts, want 1", len(history))
	}
	w := history[0]
	if w.DurationSeconds == nil || *w.DurationSeconds != 720 {
		t.Errorf("duration = %v, want 720", w.DurationSeconds)
	}
	if !w.StartedAt.Equal(time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC)) {
		t.Errorf("started_at = %v", w.StartedAt)
	}
	if w.PlannedWorkoutID != plan.ID {
		t.Errorf("planned_workout_id = %v, want %v", w.PlannedWorkoutID, plan.ID)
	}
	if len(w.Sets) != 3 {
		t.Fatalf("got %d sets, want 3", len(w.Sets))
	}
	if w.Sets[0].ExerciseName != "Pull-ups" || *w.Sets[0].Reps != 6 {
		t.Errorf("first set = %+v", w.Sets[0])
	}
	if w.Sets[2].DurationSeconds == nil || *w.Sets[2].DurationSeconds != 20 {
		t.Errorf("hold duration = %v, want 20", w.Sets[2].DurationSeconds)
	}
	if w.Sets[0].Weight != nil {
		t.Errorf("weight = %v, want nil", *w.Sets[0].Weight)
	}

	if line := Describe(w); !strings.Contains(line, "Morning pull") || !strings.Contains(line, "12:00") {
		t.Errorf("Describe = %q", line)
	}
}

// TestStore_ResumeUnfinished verifies an abandoned session is found again
// with its recorded sets and that re-recording replaces the row.
func TestStore_ResumeUnfinished(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	plan := testPlan()

	sess, err := player.New(plan, plan.OwnerID, s, player.WithRestTimer(player.NewRestTimer(player.WithManualTicks())))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := sess.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := sess.CompleteSet(ctx, models.SetValues{Reps: models.IntPtr(5), Weight: models.FloatPtr(7.5)}); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	if _, err := sess.RecordSet(ctx, plan.Exercises[0].ID, 1, models.SetValues{Reps: models.IntPtr(4)}); err != nil {
		t.Fatalf("RecordSet: %v", err)
	}
	sess.Abandon()

	unfinished, err := s.FindUnfinishedSession(ctx, plan.ID, plan.OwnerID)
	if err != nil {
		t.Fatalf("FindUnfinishedSession: %v", err)
	}
	if unfinished == nil {
		t.Fatal("expected an unfinished session")
	}
	if len(unfinished.Sets) != 1 || *unfinished.Sets[0].Reps != 4 {
		t.Fatalf("sets = %+v, want one row with 4 reps", unfinished.Sets)
	}

	id, found, err := s.FindExistingSession(ctx, plan.ID, plan.OwnerID)
	if err != nil || !found || id != unfinished.ID {
		t.Fatalf("FindExistingSession = %v %v %v", id, found, err)
	}

	other, err := s.FindUnfinishedSession(ctx, plan.ID, uuid.New())
	if err != nil || other != nil {
		t.Fatalf("other user: %v %v", other, err)
	}
}

// TestStore_ParticipantSets verifies reconciliation-style delete and batch insert.
func TestStore_ParticipantSets(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	plan := testPlan()
	user := uuid.New()

	if err := s.RegisterParticipant(ctx, plan.ID, user); err != nil {
		t.Fatalf("RegisterParticipant: %v", err)
	}
	if err := s.RegisterParticipant(ctx, plan.ID, user); err != nil {
		t.Fatalf("RegisterParticipant twice: %v", err)
	}

	done := time.Now()
	id, err := s.CreateSession(ctx, models.CompletedWorkout{
		GroupID: plan.GroupID, UserID: user, PlannedWorkoutID: plan.ID, Name: plan.Name,
		StartedAt: done.Add(-time.Hour), CompletedAt: &done, DurationSeconds: models.IntPtr(3600),
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	rows := []models.CompletedSet{
		{CompletedWorkoutID: id, ExerciseID: plan.Exercises[0].ExerciseID, SetNumber: 1, SetValues: models.SetValues{Reps: models.IntPtr(8)}},
		{CompletedWorkoutID: id, ExerciseID: plan.Exercises[0].ExerciseID, SetNumber: 2, SetValues: models.SetValues{Reps: models.IntPtr(7)}},
	}
	for i := 0; i < 2; i++ {
		if err := s.DeleteSets(ctx, id); err != nil {
			t.Fatalf("DeleteSets: %v", err)
		}
		if err := s.InsertSets(ctx, rows); err != nil {
			t.Fatalf("InsertSets: %v", err)
		}
	}

	history, err := s.History(ctx, user, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || len(history[0].Sets) != 2 {
		t.Fatalf("history = %+v, want one workout with 2 sets", history)
	}
}

// TestStore_FinishUnknown verifies finishing a missing workout reports ErrNotFound.
func TestStore_FinishUnknown(t *testing.T) {
	s := openTestStore(t)
	err := s.FinishSession(context.Background(), uuid.New(), time.Now(), 10)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestOpen_Memory verifies an in-memory store works with a single connection.
func TestOpen_Memory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if _, found, err := s.FindExistingSession(context.Background(), uuid.New(), uuid.New()); err != nil || found {
		t.Errorf("FindExistingSession = %v %v", found, err)
	}
}

// TestStore_RepeatedExercise verifies an exercise listed twice keeps one row
// per plan entry, and that resuming restores every completed slot.
func TestStore_RepeatedExercise(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	pushID := uuid.New()
	plan := models.PlannedWorkout{
		ID: uuid.New(), GroupID: uuid.New(), OwnerID: uuid.New(), Name: "Ladder",
		Exercises: []models.PlannedExercise{
			{ID: uuid.New(), ExerciseID: pushID, ExerciseName: "Push-ups", TargetSets: 1, TargetReps: models.IntPtr(10)},
			{ID: uuid.New(), ExerciseID: uuid.New(), ExerciseName: "Plank", TargetSets: 1, TargetDurationSeconds: models.IntPtr(30), OrderIndex: 1},
			{ID: uuid.New(), ExerciseID: pushID, ExerciseName: "Push-ups", TargetSets: 1, TargetReps: models.IntPtr(8), OrderIndex: 2},
			{ID: uuid.New(), ExerciseID: uuid.New(), ExerciseName: "Squats", TargetSets: 1, TargetReps: models.IntPtr(15), OrderIndex: 3},
		},
	}
	timer := func() player.Option { return player.WithRestTimer(player.NewRestTimer(player.WithManualTicks())) }

	sess, err := player.New(plan, plan.OwnerID, s, timer())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := sess.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := sess.CompleteActive(ctx); err != nil {
			t.Fatalf("CompleteActive %d: %v", i, err)
		}
	}
	// Re-recording the second push-up entry replaces only its own row.
	if _, err := sess.RecordSet(ctx, plan.Exercises[2].ID, 1, models.SetValues{Reps: models.IntPtr(7)}); err != nil {
		t.Fatalf("RecordSet: %v", err)
	}
	sess.Abandon()

	unfinished, err := s.FindUnfinishedSession(ctx, plan.ID, plan.OwnerID)
	if err != nil || unfinished == nil {
		t.Fatalf("FindUnfinishedSession = %v, %v", unfinished, err)
	}
	if len(unfinished.Sets) != 3 {
		t.Fatalf("got %d set rows, want 3", len(unfinished.Sets))
	}

	resumed, err := player.New(plan, plan.OwnerID, s, player.WithResume(unfinished), timer())
	if err != nil {
		t.Fatalf("New resumed: %v", err)
	}
	st, err := resumed.Start(ctx)
	if err != nil {
		t.Fatalf("Start resumed: %v", err)
	}
	if st.CompletedSets != 3 {
		t.Errorf("completed = %d/%d, want 3", st.CompletedSets, st.TotalSets)
	}
	if st.CurrentExerciseIndex != 3 || st.CurrentSetIndex != 1 {
		t.Errorf("cursor = (%d,%d), want (3,1)", st.CurrentExerciseIndex, st.CurrentSetIndex)
	}
	if got := *st.Exercises[0].Sets[0].Reps; got != 10 {
		t.Errorf("first push-ups = %d, want 10", got)
	}
	if got := *st.Exercises[2].Sets[0].Reps; got != 7 {
		t.Errorf("second push-ups = %d, want 7", got)
	}
}

// TestOpen_Upgrade verifies reopening an existing file keeps its data and
// does not rerun schema upgrades.
func TestOpen_Upgrade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	user := uuid.New()
	if _, err := s.CreateSession(context.Background(), models.CompletedWorkout{
		GroupID: user, UserID: user, Name: "Kept", StartedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	var version int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil || version != len(upgrades) {
		t.Errorf("user_version = %d, %v; want %d", version, err, len(upgrades))
	}
}

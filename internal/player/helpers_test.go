package player_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/models"
	"github.com/meltforce/repcircle/internal/player"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errStoreDown = errors.New("store unavailable")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// pushPlankPlan is a two-exercise plan: Push-ups 3x10 then Plank 2x30s.
func pushPlankPlan(pushRest, plankRest *int) models.PlannedWorkout {
	return models.PlannedWorkout{
		ID:      uuid.New(),
		GroupID: uuid.New(),
		OwnerID: uuid.New(),
		Name:    "Evening calisthenics",
		Exercises: []models.PlannedExercise{
			{
				ID:                    uuid.New(),
				ExerciseID:            uuid.New(),
				ExerciseName:          "Plank",
				TargetSets:            2,
				TargetDurationSeconds: models.IntPtr(30),
				RestSeconds:           plankRest,
				OrderIndex:            1,
			},
			{
				ID:           uuid.New(),
				ExerciseID:   uuid.New(),
				ExerciseName: "Push-ups",
				TargetSets:   3,
				TargetReps:   models.IntPtr(10),
				RestSeconds:  pushRest,
				OrderIndex:   0,
			},
		},
	}
}

func manualTimer() player.Option {
	return player.WithRestTimer(player.NewRestTimer(player.WithManualTicks()))
}

// memGateway is an in-memory Gateway. RecordSet replaces an existing row for
// the same set slot, like the SQL stores.
type memGateway struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]models.CompletedWorkout
	sets     []models.CompletedSet
	failNext bool
}

var _ player.Gateway = (*memGateway)(nil)

func newMemGateway() *memGateway {
	return &memGateway{sessions: make(map[uuid.UUID]models.CompletedWorkout)}
}

func (g *memGateway) fail() error {
	if g.failNext {
		g.failNext = false
		return errStoreDown
	}
	return nil
}

func (g *memGateway) CreateSession(_ context.Context, w models.CompletedWorkout) (uuid.UUID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail(); err != nil {
		return uuid.Nil, err
	}
	w.ID = uuid.New()
	g.sessions[w.ID] = w
	return w.ID, nil
}

func (g *memGateway) RecordSet(_ context.Context, set models.CompletedSet) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail(); err != nil {
		return err
	}
	for i, s := range g.sets {
		if s.CompletedWorkoutID == set.CompletedWorkoutID && s.ExerciseID == set.ExerciseID && s.SetNumber == set.SetNumber {
			g.sets[i] = set
			return nil
		}
	}
	g.sets = append(g.sets, set)
	return nil
}

func (g *memGateway) FinishSession(_ context.Context, id uuid.UUID, finishedAt time.Time, duration int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail(); err != nil {
		return err
	}
	w := g.sessions[id]
	w.CompletedAt = &finishedAt
	w.DurationSeconds = &duration
	g.sessions[id] = w
	return nil
}

func (g *memGateway) DeleteSets(_ context.Context, id uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.sets[:0]
	for _, s := range g.sets {
		if s.CompletedWorkoutID != id {
			kept = append(kept, s)
		}
	}
	g.sets = kept
	return nil
}

func (g *memGateway) InsertSets(_ context.Context, sets []models.CompletedSet) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sets = append(g.sets, sets...)
	return nil
}

func (g *memGateway) FindExistingSession(_ context.Context, plannedWorkoutID, userID uuid.UUID) (uuid.UUID, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, w := range g.sessions {
		if w.PlannedWorkoutID == plannedWorkoutID && w.UserID == userID {
			return id, true, nil
		}
	}
	return uuid.Nil, false, nil
}

func (g *memGateway) RegisterParticipant(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func (g *memGateway) setCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sets)
}

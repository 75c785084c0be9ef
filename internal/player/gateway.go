package player

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/models"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=player_test

// Gateway is the remote store the player reads from and writes to.
// *storage.DB (Postgres) and *localstore.Store (SQLite) both satisfy it.
type Gateway interface {
	CreateSession(ctx context.Context, w models.CompletedWorkout) (uuid.UUID, error)
	RecordSet(ctx context.Context, set models.CompletedSet) error
	FinishSession(ctx context.Context, sessionID uuid.UUID, finishedAt time.Time, durationSeconds int) error
	DeleteSets(ctx context.Context, sessionID uuid.UUID) error
	InsertSets(ctx context.Context, sets []models.CompletedSet) error
	FindExistingSession(ctx context.Context, plannedWorkoutID, userID uuid.UUID) (uuid.UUID, bool, error)
	RegisterParticipant(ctx context.Context, plannedWorkoutID, userID uuid.UUID) error
}

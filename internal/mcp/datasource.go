package mcp

import (
	"context"

	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/live"
	"github.com/meltforce/repcircle/internal/models"
	"github.com/meltforce/repcircle/internal/player"
	"github.com/meltforce/repcircle/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. LocalSource (in-process)
// and HTTPClient (remote via REST API) both satisfy it.
type DataSource interface {
	QueryCompletedWorkouts(ctx context.Context, q storage.HistoryQuery) ([]models.CompletedWorkout, error)
	GetCompletedWorkout(ctx context.Context, id, userID uuid.UUID) (*models.CompletedWorkout, error)
	ActiveSessions(ctx context.Context, userID uuid.UUID) ([]player.State, error)
	GetSession(ctx context.Context, userID, sessionID uuid.UUID) (player.State, error)
	StartSession(ctx context.Context, userID, plannedWorkoutID uuid.UUID) (player.State, error)
	CompleteSet(ctx context.Context, userID, sessionID uuid.UUID, values *models.SetValues) (player.State, error)
	FinishSession(ctx context.Context, userID, sessionID uuid.UUID) (player.FinishResult, error)
}

// HistoryReader is the history half of *storage.DB.
type HistoryReader interface {
	QueryCompletedWorkouts(ctx context.Context, q storage.HistoryQuery) ([]models.CompletedWorkout, error)
	GetCompletedWorkout(ctx context.Context, id, userID uuid.UUID) (*models.CompletedWorkout, error)
}

// LocalSource serves MCP tools from the server's own store and live sessions.
type LocalSource struct {
	HistoryReader
	Sessions *live.Service
}

// Compile-time checks.
var (
	_ DataSource    = (*LocalSource)(nil)
	_ HistoryReader = (*storage.DB)(nil)
)

func (l *LocalSource) ActiveSessions(_ context.Context, userID uuid.UUID) ([]player.State, error) {
	return l.Sessions.Active(userID), nil
}

func (l *LocalSource) GetSession(_ context.Context, userID, sessionID uuid.UUID) (player.State, error) {
	return l.Sessions.Get(userID, sessionID)
}

func (l *LocalSource) StartSession(ctx context.Context, userID, plannedWorkoutID uuid.UUID) (player.State, error) {
	return l.Sessions.Start(ctx, userID, plannedWorkoutID)
}

func (l *LocalSource) CompleteSet(ctx context.Context, userID, sessionID uuid.UUID, values *models.SetValues) (player.State, error) {
	return l.Sessions.CompleteSet(ctx, userID, sessionID, values)
}

func (l *LocalSource) FinishSession(ctx context.Context, userID, sessionID uuid.UUID) (player.FinishResult, error) {
	return l.Sessions.Finish(ctx, userID, sessionID)
}

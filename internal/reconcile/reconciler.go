package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/models"
	"github.com/meltforce/repcircle/internal/player"
	"go.uber.org/multierr"
)

// Gateway is the subset of the session store reconciliation writes through.
type Gateway interface {
	CreateSession(ctx context.Context, w models.CompletedWorkout) (uuid.UUID, error)
	DeleteSets(ctx context.Context, sessionID uuid.UUID) error
	InsertSets(ctx context.Context, sets []models.CompletedSet) error
	FindExistingSession(ctx context.Context, plannedWorkoutID, userID uuid.UUID) (uuid.UUID, bool, error)
}

var _ Gateway = player.Gateway(nil)

// OwnerTiming is the finished owner session whose timing every participant
// record shares.
type OwnerTiming struct {
	StartedAt       time.Time
	FinishedAt      time.Time
	DurationSeconds int
}

// Input describes one reconciliation run.
type Input struct {
	Plan     models.PlannedWorkout
	Owner    OwnerTiming
	Recorder *Recorder
	// Only restricts the run to these participants, for retrying failures.
	Only []uuid.UUID
}

// Outcome is the result for one reconciled participant.
type Outcome struct {
	UserID    uuid.UUID `json:"user_id"`
	SessionID uuid.UUID `json:"session_id"`
	Created   bool      `json:"created"`
	Sets      int       `json:"sets"`
}

// Report summarizes a reconciliation run.
type Report struct {
	Reconciled []Outcome   `json:"reconciled"`
	Skipped    []uuid.UUID `json:"skipped,omitempty"`
	Failed     []uuid.UUID `json:"failed,omitempty"`
}

// PartialGroupFailure lists the participants whose writes failed while the
// rest of the group was reconciled. Each can be retried with Input.Only.
type PartialGroupFailure struct {
	Failures map[uuid.UUID]error
}

func (e *PartialGroupFailure) Error() string {
	users := e.Users()
	parts := make([]string, 0, len(users))
	for _, u := range users {
		parts = append(parts, fmt.Sprintf("%s: %v", u, e.Failures[u]))
	}
	return fmt.Sprintf("reconcile: %d participant(s) failed: %s", len(users), strings.Join(parts, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *PartialGroupFailure) Unwrap() []error {
	var combined error
	for _, u := range e.Users() {
		combined = multierr.Append(combined, e.Failures[u])
	}
	return multierr.Errors(combined)
}

// Users returns the failed participant ids in a stable order.
func (e *PartialGroupFailure) Users() []uuid.UUID {
	users := make([]uuid.UUID, 0, len(e.Failures))
	for u := range e.Failures {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].String() < users[j].String() })
	return users
}

// Reconciler commits recorded participant performance as completed workouts.
type Reconciler struct {
	gw  Gateway
	log *slog.Logger
}

// New creates a Reconciler.
func New(gw Gateway, log *slog.Logger) *Reconciler {
	return &Reconciler{gw: gw, log: log}
}

// Reconcile writes every confirmed participant's captured sets. Existing
// participant records for the planned workout are reused and their sets are
// replaced, so re-running with the same input converges on the same rows.
// Participants with nothing captured are skipped. A failing participant does
// not stop the others; failures are returned as *PartialGroupFailure.
//
// Delete and insert are separate writes: two concurrent runs for the same
// participant may interleave, and a crash between them leaves the
// participant without sets until the next run.
func (r *Reconciler) Reconcile(ctx context.Context, in Input) (Report, error) {
	if !in.Plan.IsGroupWorkout {
		return Report{}, &player.ValidationError{Op: "reconcile", Err: player.ErrNotGroupWorkout}
	}
	if in.Recorder == nil {
		return Report{}, nil
	}

	only := make(map[uuid.UUID]bool, len(in.Only))
	for _, u := range in.Only {
		only[u] = true
	}

	var report Report
	failures := make(map[uuid.UUID]error)
	for _, p := range confirmed(in.Plan) {
		if len(only) > 0 && !only[p.UserID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			failures[p.UserID] = err
			report.Failed = append(report.Failed, p.UserID)
			continue
		}

		sets := in.Recorder.Performance(p.UserID)
		if len(sets) == 0 {
			report.Skipped = append(report.Skipped, p.UserID)
			continue
		}

		out, err := r.participant(ctx, in, p.UserID, sets)
		if err != nil {
			r.log.Warn("participant reconcile failed", "planned_workout_id", in.Plan.ID, "user_id", p.UserID, "error", err)
			failures[p.UserID] = err
			report.Failed = append(report.Failed, p.UserID)
			continue
		}
		report.Reconciled = append(report.Reconciled, out)
	}

	r.log.Info("group workout reconciled",
		"planned_workout_id", in.Plan.ID,
		"reconciled", len(report.Reconciled),
		"skipped", len(report.Skipped),
		"failed", len(report.Failed),
	)
	if len(failures) > 0 {
		return report, &PartialGroupFailure{Failures: failures}
	}
	return report, nil
}

func (r *Reconciler) participant(ctx context.Context, in Input, userID uuid.UUID, sets []models.CompletedSet) (Outcome, error) {
	out := Outcome{UserID: userID}

	id, found, err := r.gw.FindExistingSession(ctx, in.Plan.ID, userID)
	if err != nil {
		return out, &player.PersistenceError{Op: "find participant session", Err: err}
	}
	if !found {
		finishedAt := in.Owner.FinishedAt
		duration := in.Owner.DurationSeconds
		id, err = r.gw.CreateSession(ctx, models.CompletedWorkout{
			GroupID:          in.Plan.GroupID,
			UserID:           userID,
			PlannedWorkoutID: in.Plan.ID,
			Name:             in.Plan.Name,
			StartedAt:        in.Owner.StartedAt,
			CompletedAt:      &finishedAt,
			DurationSeconds:  &duration,
		})
		if err != nil {
			return out, &player.PersistenceError{Op: "create participant session", Err: err}
		}
		out.Created = true
	}
	out.SessionID = id

	if err := r.gw.DeleteSets(ctx, id); err != nil {
		return out, &player.PersistenceError{Op: "delete participant sets", Err: err}
	}
	for i := range sets {
		sets[i].CompletedWorkoutID = id
	}
	if err := r.gw.InsertSets(ctx, sets); err != nil {
		return out, &player.PersistenceError{Op: "insert participant sets", Err: err}
	}
	out.Sets = len(sets)
	return out, nil
}

package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/repcircle/internal/models"
	"github.com/meltforce/repcircle/internal/storage"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List completed workouts, newest first. Returns name, start time, completion time and duration. Use get_workout for the individual sets."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of workouts. Defaults to 50.")),
	mcp.WithBoolean("include_unfinished", mcp.Description("Also return sessions that were started but never finished.")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one completed workout with every recorded set (exercise, set number, reps, weight, duration)."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Completed workout ID")),
)

var toolListActiveSessions = mcp.NewTool("list_active_sessions",
	mcp.WithDescription("List live sessions in progress with the current exercise, current set, rest countdown and progress."),
)

var toolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription("Get the full state of a live session."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Live session ID")),
)

var toolStartSession = mcp.NewTool("start_session",
	mcp.WithDescription("Start (or resume) a live session for a planned workout."),
	mcp.WithString("planned_workout_id", mcp.Required(), mcp.Description("Planned workout ID")),
)

var toolCompleteSet = mcp.NewTool("complete_set",
	mcp.WithDescription("Record the active set of a live session and move to the next one. Omitted values fall back to the planned targets."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Live session ID")),
	mcp.WithNumber("reps", mcp.Description("Repetitions performed")),
	mcp.WithNumber("weight", mcp.Description("Added weight")),
	mcp.WithNumber("duration_seconds", mcp.Description("Hold duration for timed exercises")),
)

var toolFinishSession = mcp.NewTool("finish_session",
	mcp.WithDescription("Finish a live session. Reports whether group participants still need their performance captured."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Live session ID")),
)

// --- Tool handlers ---

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	workouts, err := h.ds.QueryCompletedWorkouts(ctx, storage.HistoryQuery{
		UserID:            UserIDFromContext(ctx),
		Start:             start,
		End:               end,
		IncludeUnfinished: req.GetBool("include_unfinished", false),
		Limit:             req.GetInt("limit", 50),
	})
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(workouts)
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := requireUUID(req, "id")
	if errResult != nil {
		return errResult, nil
	}

	workout, err := h.ds.GetCompletedWorkout(ctx, id, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(workout)
}

func (h *handlers) listActiveSessions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := h.ds.ActiveSessions(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp list_active_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(sessions)
}

func (h *handlers) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid, errResult := requireUUID(req, "session_id")
	if errResult != nil {
		return errResult, nil
	}
	st, err := h.ds.GetSession(ctx, UserIDFromContext(ctx), sid)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st)
}

func (h *handlers) startSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	planID, errResult := requireUUID(req, "planned_workout_id")
	if errResult != nil {
		return errResult, nil
	}
	st, err := h.ds.StartSession(ctx, UserIDFromContext(ctx), planID)
	if err != nil {
		h.log.Warn("mcp start_session", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st)
}

func (h *handlers) completeSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid, errResult := requireUUID(req, "session_id")
	if errResult != nil {
		return errResult, nil
	}

	var values *models.SetValues
	args := req.GetArguments()
	if _, ok := args["reps"]; ok {
		values = ensure(values)
		values.Reps = models.IntPtr(req.GetInt("reps", 0))
	}
	if _, ok := args["weight"]; ok {
		values = ensure(values)
		values.Weight = models.FloatPtr(req.GetFloat("weight", 0))
	}
	if _, ok := args["duration_seconds"]; ok {
		values = ensure(values)
		values.DurationSeconds = models.IntPtr(req.GetInt("duration_seconds", 0))
	}

	st, err := h.ds.CompleteSet(ctx, UserIDFromContext(ctx), sid, values)
	if err != nil {
		h.log.Warn("mcp complete_set", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st)
}

func (h *handlers) finishSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sid, errResult := requireUUID(req, "session_id")
	if errResult != nil {
		return errResult, nil
	}
	res, err := h.ds.FinishSession(ctx, UserIDFromContext(ctx), sid)
	if err != nil {
		h.log.Warn("mcp finish_session", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func requireUUID(req mcp.CallToolRequest, name string) (uuid.UUID, *mcp.CallToolResult) {
	raw, err := req.RequireString(name)
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError(name + " parameter is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError("invalid " + name + ": " + err.Error())
	}
	return id, nil
}

func ensure(v *models.SetValues) *models.SetValues {
	if v == nil {
		return &models.SetValues{}
	}
	return v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

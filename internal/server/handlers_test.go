package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/live"
	"github.com/meltforce/repcircle/internal/localstore"
	"github.com/meltforce/repcircle/internal/models"
	"github.com/meltforce/repcircle/internal/player"
	"github.com/meltforce/repcircle/internal/reconcile"
	"github.com/meltforce/repcircle/internal/storage"
)

const testAPIKey = "test-key"

type testStore struct {
	*localstore.Store
	plan models.PlannedWorkout
}

func (s *testStore) GetPlannedWorkout(_ context.Context, id uuid.UUID) (*models.PlannedWorkout, error) {
	if id != s.plan.ID {
		return nil, fmt.Errorf("planned workout %s: %w", id, storage.ErrNotFound)
	}
	p := s.plan
	return &p, nil
}

type fakeHistory struct {
	workouts []models.CompletedWorkout
	lastQ    storage.HistoryQuery
}

func (f *fakeHistory) QueryCompletedWorkouts(_ context.Context, q storage.HistoryQuery) ([]models.CompletedWorkout, error) {
	f.lastQ = q
	return f.workouts, nil
}

func (f *fakeHistory) GetCompletedWorkout(_ context.Context, id, userID uuid.UUID) (*models.CompletedWorkout, error) {
	for _, w := range f.workouts {
		if w.ID == id && w.UserID == userID {
			return &w, nil
		}
	}
	return nil, storage.ErrNotFound
}

type harness struct {
	t       *testing.T
	srv     *Server
	history *fakeHistory
	plan    models.PlannedWorkout
	owner   uuid.UUID
	alice   uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := localstore.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := &harness{t: t, owner: uuid.New(), alice: uuid.New(), history: &fakeHistory{}}
	h.plan = models.PlannedWorkout{
		ID:             uuid.New(),
		GroupID:        uuid.New(),
		OwnerID:        h.owner,
		Name:           "Rings",
		IsGroupWorkout: true,
		Exercises: []models.PlannedExercise{
			{ID: uuid.New(), ExerciseID: uuid.New(), ExerciseName: "Ring rows", TargetSets: 1, TargetReps: models.IntPtr(12)},
		},
		Participants: []models.Participant{{UserID: h.alice, Status: models.ParticipantConfirmed}},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := live.NewService(&testStore{Store: db, plan: h.plan},
		live.WithLogger(log),
		live.WithTimerOptions(player.WithManualTicks()))
	t.Cleanup(sessions.Close)

	h.srv = New(sessions, h.history, Options{APIKey: testAPIKey, MetricsPath: "/metrics"}, log)
	return h
}

func (h *harness) do(method, path string, user uuid.UUID, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != uuid.Nil {
		req.Header.Set("X-User-ID", user.String())
	}
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v (body %q)", err, rec.Body.String())
	}
	return v
}

type stateBody struct {
	SessionID     uuid.UUID `json:"session_id"`
	Status        string    `json:"status"`
	CompletedSets int       `json:"completed_sets"`
	ReadyToFinish bool      `json:"ready_to_finish"`
}

// TestHandleMe verifies /api/v1/me echoes the caller identity.
func TestHandleMe(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/v1/me", h.owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	info := decode[UserInfo](t, rec)
	if info.UserID != h.owner {
		t.Errorf("user_id = %v, want %v", info.UserID, h.owner)
	}
}

// TestGroupSessionFlow drives a group workout through start, set, finish,
// participant capture and reconcile over HTTP.
func TestGroupSessionFlow(t *testing.T) {
	h := newHarness(t)
	entry := h.plan.Exercises[0].ID

	rec := h.do(http.MethodPost, "/api/v1/planned-workouts/"+h.plan.ID.String()+"/start", h.owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body)
	}
	st := decode[stateBody](t, rec)
	if st.Status != "in_progress" {
		t.Fatalf("status = %q, want in_progress", st.Status)
	}
	base := "/api/v1/sessions/" + st.SessionID.String()

	rec = h.do(http.MethodPost, base+"/sets", h.owner, slotRequest{Values: &models.SetValues{Reps: models.IntPtr(11)}})
	if rec.Code != http.StatusOK {
		t.Fatalf("set status = %d: %s", rec.Code, rec.Body)
	}
	if st = decode[stateBody](t, rec); st.CompletedSets != 1 || !st.ReadyToFinish {
		t.Errorf("after set: %+v", st)
	}

	// Capture is closed until the owner finishes.
	rec = h.do(http.MethodPut, base+"/participants/"+h.alice.String()+"/sets", h.owner,
		slotRequest{EntryID: &entry, SetNumber: 1, Values: &models.SetValues{Reps: models.IntPtr(9)}})
	if rec.Code != http.StatusConflict {
		t.Errorf("early capture status = %d, want 409", rec.Code)
	}

	rec = h.do(http.MethodPost, base+"/finish", h.owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("finish status = %d: %s", rec.Code, rec.Body)
	}
	if res := decode[player.FinishResult](t, rec); !res.NeedsParticipantCapture {
		t.Error("expected participant capture to be needed")
	}

	rec = h.do(http.MethodPut, base+"/participants/"+h.alice.String()+"/sets", h.owner,
		slotRequest{EntryID: &entry, SetNumber: 1, Values: &models.SetValues{Reps: models.IntPtr(9)}})
	if rec.Code != http.StatusOK {
		t.Fatalf("capture status = %d: %s", rec.Code, rec.Body)
	}

	rec = h.do(http.MethodPost, base+"/participants/"+h.alice.String()+"/sets/adjust", h.owner,
		adjustRequest{EntryID: entry, SetNumber: 1, Delta: -20})
	if rec.Code != http.StatusOK {
		t.Fatalf("adjust status = %d: %s", rec.Code, rec.Body)
	}
	if slot := decode[reconcile.Slot](t, rec); *slot.Captured.Reps != 0 {
		t.Errorf("adjusted reps = %d, want 0", *slot.Captured.Reps)
	}

	rec = h.do(http.MethodGet, base+"/participants/"+h.alice.String()+"/entries/"+entry.String(), h.owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("slots status = %d", rec.Code)
	}
	if slots := decode[[]reconcile.Slot](t, rec); len(slots) != 1 {
		t.Errorf("got %d slots, want 1", len(slots))
	}

	rec = h.do(http.MethodPost, base+"/reconcile", h.owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reconcile status = %d: %s", rec.Code, rec.Body)
	}
	if report := decode[reconcile.Report](t, rec); len(report.Reconciled) != 1 {
		t.Errorf("reconciled = %+v", report.Reconciled)
	}

	if rec = h.do(http.MethodGet, base, h.owner, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after reconcile status = %d, want 404", rec.Code)
	}
}

// TestSessionErrors verifies error classes map to HTTP status codes.
func TestSessionErrors(t *testing.T) {
	h := newHarness(t)
	start := "/api/v1/planned-workouts/" + h.plan.ID.String() + "/start"

	if rec := h.do(http.MethodPost, "/api/v1/planned-workouts/"+uuid.NewString()+"/start", h.owner, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown plan status = %d, want 404", rec.Code)
	}
	if rec := h.do(http.MethodPost, start, uuid.New(), nil); rec.Code != http.StatusForbidden {
		t.Errorf("stranger start status = %d, want 403", rec.Code)
	}
	if rec := h.do(http.MethodPost, start, uuid.Nil, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous start status = %d, want 401", rec.Code)
	}

	st := decode[stateBody](t, h.do(http.MethodPost, start, h.owner, nil))
	base := "/api/v1/sessions/" + st.SessionID.String()

	if rec := h.do(http.MethodGet, base, h.alice, nil); rec.Code != http.StatusForbidden {
		t.Errorf("other user get status = %d, want 403", rec.Code)
	}
	if rec := h.do(http.MethodPost, base+"/skip-to", h.owner, map[string]int{"exercise_index": 3}); rec.Code != http.StatusBadRequest {
		t.Errorf("skip-to status = %d, want 400", rec.Code)
	}
	if rec := h.do(http.MethodPost, base+"/sets", h.owner, slotRequest{Values: &models.SetValues{Reps: models.IntPtr(-1)}}); rec.Code != http.StatusBadRequest {
		t.Errorf("negative reps status = %d, want 400", rec.Code)
	}
	if rec := h.do(http.MethodPost, base+"/rest/skip", h.owner, nil); rec.Code != http.StatusOK {
		t.Errorf("rest skip status = %d, want 200", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/api/v1/sessions/not-a-uuid", h.owner, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}

	if rec := h.do(http.MethodDelete, base, h.owner, nil); rec.Code != http.StatusOK {
		t.Errorf("abandon status = %d, want 200", rec.Code)
	}
	if rec := h.do(http.MethodGet, base, h.owner, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after abandon status = %d, want 404", rec.Code)
	}
}

// TestEmptyStreamedBody verifies a body of unknown length that turns out to
// be empty is treated like no body, while malformed JSON is still rejected.
func TestEmptyStreamedBody(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/api/v1/planned-workouts/"+h.plan.ID.String()+"/start", h.owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body)
	}
	base := "/api/v1/sessions/" + decode[stateBody](t, rec).SessionID.String()

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, base+"/sets", io.NopCloser(bytes.NewBufferString(body)))
		req.ContentLength = -1
		req.Header.Set("X-User-ID", h.owner.String())
		req.Header.Set("X-API-Key", testAPIKey)
		rec := httptest.NewRecorder()
		h.srv.ServeHTTP(rec, req)
		return rec
	}

	rec = send("{")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed status = %d, want 400", rec.Code)
	}
	rec = send("")
	if rec.Code != http.StatusOK {
		t.Fatalf("empty status = %d: %s", rec.Code, rec.Body)
	}
	if st := decode[stateBody](t, rec); st.CompletedSets != 1 {
		t.Errorf("completed = %d, want 1", st.CompletedSets)
	}
}

// TestWritesRequireAPIKey verifies write routes sit behind APIKeyAuth.
func TestWritesRequireAPIKey(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/planned-workouts/"+h.plan.ID.String()+"/start", nil)
	req.Header.Set("X-User-ID", h.owner.String())
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestHistoryEndpoints verifies history queries are scoped to the caller.
func TestHistoryEndpoints(t *testing.T) {
	h := newHarness(t)
	w := models.CompletedWorkout{ID: uuid.New(), UserID: h.owner, Name: "Rings"}
	h.history.workouts = []models.CompletedWorkout{w}

	rec := h.do(http.MethodGet, "/api/v1/history?start=2026-01-01&end=2026-01-31&limit=5&unfinished=true", h.owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	q := h.history.lastQ
	if q.UserID != h.owner || q.Limit != 5 || !q.IncludeUnfinished {
		t.Errorf("query = %+v", q)
	}
	if q.End.Day() != 1 || q.End.Month() != 2 {
		t.Errorf("date-only end should cover the whole day, got %v", q.End)
	}

	if rec = h.do(http.MethodGet, "/api/v1/history?start=yesterday", h.owner, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad start status = %d, want 400", rec.Code)
	}
	if rec = h.do(http.MethodGet, "/api/v1/history/"+w.ID.String(), h.owner, nil); rec.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", rec.Code)
	}
	if rec = h.do(http.MethodGet, "/api/v1/history/"+w.ID.String(), h.alice, nil); rec.Code != http.StatusNotFound {
		t.Errorf("other user get status = %d, want 404", rec.Code)
	}
}

// TestMetricsEndpoint verifies Prometheus metrics are exposed.
func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/metrics", uuid.Nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("go_goroutines")) {
		t.Error("expected default Go collector metrics")
	}
}

// TestStatusFor verifies the error class mapping.
func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{live.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("x: %w", storage.ErrNotFound), http.StatusNotFound},
		{live.ErrForbidden, http.StatusForbidden},
		{&player.ValidationError{Op: "finish", Err: player.ErrNotInProgress}, http.StatusConflict},
		{&player.ValidationError{Op: "record set", Err: player.ErrSetOutOfRange}, http.StatusBadRequest},
		{&player.PersistenceError{Op: "finish", Err: errors.New("down")}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

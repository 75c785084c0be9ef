package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/models"
	"github.com/meltforce/repcircle/internal/player"
	"github.com/meltforce/repcircle/internal/reconcile"
)

// slotRequest addresses one set slot. For POST /sets an absent entry_id
// completes the active set; absent values complete it with its draft.
type slotRequest struct {
	EntryID   *uuid.UUID        `json:"entry_id"`
	SetNumber int               `json:"set_number"`
	Values    *models.SetValues `json:"values"`
}

func (req slotRequest) values() models.SetValues {
	if req.Values == nil {
		return models.SetValues{}
	}
	return *req.Values
}

type adjustRequest struct {
	EntryID   uuid.UUID `json:"entry_id"`
	SetNumber int       `json:"set_number"`
	Delta     int       `json:"delta"`
}

type sessionParams struct {
	user    uuid.UUID
	session uuid.UUID
}

func sessionRequest(w http.ResponseWriter, r *http.Request) (sessionParams, bool) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return sessionParams{}, false
	}
	sid, ok := pathUUID(w, r, "sid")
	if !ok {
		return sessionParams{}, false
	}
	return sessionParams{user: uid, session: sid}, true
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	planID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	st, err := s.sessions.Start(r.Context(), uid, planID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	planID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	st, err := s.sessions.Join(r.Context(), uid, planID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleActiveSessions(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.Active(uid))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	p, ok := sessionRequest(w, r)
	if !ok {
		return
	}
	st, err := s.sessions.Get(p.user, p.session)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	p, ok := sessionRequest(w, r)
	if !ok {
		return
	}
	var req slotRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		st  player.State
		err error
	)
	if req.EntryID == nil {
		st, err = s.sessions.CompleteSet(r.Context(), p.user, p.session, req.Values)
	} else {
		st, err = s.sessions.RecordSet(r.Context(), p.user, p.session, *req.EntryID, req.SetNumber, req.values())
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	p, ok := sessionRequest(w, r)
	if !ok {
		return
	}
	var req slotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.EntryID == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "entry_id required"})
		return
	}
	st, err := s.sessions.Draft(p.user, p.session, *req.EntryID, req.SetNumber, req.values())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSkipTo(w http.ResponseWriter, r *http.Request) {
	p, ok := sessionRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		ExerciseIndex int `json:"exercise_index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := s.sessions.SkipToExercise(p.user, p.session, req.ExerciseIndex)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSkipRest(w http.ResponseWriter, r *http.Request) {
	p, ok := sessionRequest(w, r)
	if !ok {
		return
	}
	st, err := s.sessions.SkipRest(p.user, p.session)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	p, ok := sessionRequest(w, r)
	if !ok {
		return
	}
	res, err := s.sessions.Finish(r.Context(), p.user, p.session)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	p, ok := sessionRequest(w, r)
	if !ok {
		return
	}
	st, err := s.sessions.Abandon(r.Context(), p.user, p.session)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleParticipants(w http.ResponseWriter, r *http.Request) {
	p, ok := sessionRequest(w, r)
	if !ok {
		return
	}
	people, err := s.sessions.Participants(p.user, p.session)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

func (s *Server) handleParticipantSlots(w http.ResponseWriter, r *http.Request) {
	p, ok := sessionRequest(w, r)
	if !ok {
		return
	}
	participant, ok := pathUUID(w, r, "uid")
	if !ok {
		return
	}
	entryID, ok := pathUUID(w, r, "eid")
	if !ok {
		return
	}
	slots, err := s.sessions.ParticipantSlots(p.user, p.session, participant, entryID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (s *Server) handleCaptureParticipant(w http.ResponseWriter, r *http.Request) {
	p, ok := sessionRequest(w, r)
	if !ok {
		return
	}
	participant, ok := pathUUID(w, r, "uid")
	if !ok {
		return
	}
	var req slotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.EntryID == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "entry_id required"})
		return
	}
	slot, err := s.sessions.CaptureParticipantSet(p.user, p.session, participant, *req.EntryID, req.SetNumber, req.values())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (s *Server) handleAdjustParticipant(w http.ResponseWriter, r *http.Request) {
	p, ok := sessionRequest(w, r)
	if !ok {
		return
	}
	participant, ok := pathUUID(w, r, "uid")
	if !ok {
		return
	}
	var req adjustRequest
	if !decodeBody(w, r, &req) {
		return
	}
	slot, err := s.sessions.AdjustParticipantSet(p.user, p.session, participant, req.EntryID, req.SetNumber, req.Delta)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	p, ok := sessionRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		Only []uuid.UUID `json:"only"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	report, err := s.sessions.Reconcile(r.Context(), p.user, p.session, req.Only)
	var partial *reconcile.PartialGroupFailure
	switch {
	case errors.As(err, &partial):
		s.log.Warn("partial reconcile", "session_id", p.session, "failed", len(partial.Failures))
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":  err.Error(),
			"report": report,
		})
	case err != nil:
		s.writeError(w, err)
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

package server

import (
	"errors"
	"net/http"

	"github.com/meltforce/repcircle/internal/live"
	"github.com/meltforce/repcircle/internal/player"
	"github.com/meltforce/repcircle/internal/reconcile"
	"github.com/meltforce/repcircle/internal/storage"
)

// conflicts are validation errors caused by session state rather than by
// the request itself.
var conflicts = []error{
	player.ErrNotInProgress,
	player.ErrAlreadyStarted,
	player.ErrSetNotRecorded,
	player.ErrSetCompleted,
	player.ErrAlreadyJoined,
	live.ErrCaptureClosed,
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, live.ErrSessionNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, live.ErrForbidden), errors.Is(err, live.ErrNoAccess):
		return http.StatusForbidden
	case player.IsValidation(err):
		for _, c := range conflicts {
			if errors.Is(err, c) {
				return http.StatusConflict
			}
		}
		return http.StatusBadRequest
	case player.IsPersistence(err):
		return http.StatusBadGateway
	}
	var partial *reconcile.PartialGroupFailure
	if errors.As(err, &partial) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"goserveph/pkg/types"
)

func (s *Service) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("failed to write response")
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, types.ErrorResponse{Success: false, Message: message})
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	s.writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

// writeDomainError maps the error taxonomy onto status codes. Anything
// unrecognised is logged and reported as a generic failure.
func (s *Service) writeDomainError(w http.ResponseWriter, err error) {
	var verr *types.ValidationError

	switch {
	case errors.As(err, &verr):
		s.writeJSON(w, http.StatusUnprocessableEntity, types.SubmitResult{
			Success: false,
			Message: "Please correct the highlighted fields.",
			Step:    verr.Step,
			Errors:  verr.Fields,
		})
	case errors.Is(err, types.ErrUnknownPermitType):
		s.writeError(w, http.StatusNotFound, "Unknown permit type.")
	case errors.Is(err, types.ErrApplicationNotFound):
		s.writeError(w, http.StatusNotFound, "Application not found.")
	case errors.Is(err, types.ErrInvalidStatus):
		s.writeError(w, http.StatusBadRequest, "Invalid status.")
	case errors.Is(err, types.ErrTODANotApplicable):
		s.writeError(w, http.StatusBadRequest, "TODA classification applies to franchise applications only.")
	case errors.Is(err, types.ErrSubmissionFailed):
		s.logger.WithError(err).Error("submission failed")
		s.writeError(w, http.StatusInternalServerError, "Submission failed. Please try again.")
	default:
		s.logger.WithError(err).Error("request failed")
		s.internalServerError(w)
	}
}

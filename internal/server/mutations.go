package server

import (
	"net/http"
	"strings"

	"goserveph/internal/metrics"
	"goserveph/internal/utils"
	"goserveph/pkg/types"
)

func (s *Service) decodePost(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := r.ParseForm()
	if err == nil {
		err = decoder.Decode(dst, r.PostForm)
	}
	if err != nil {
		s.logger.WithError(err).Warn("failed to decode form")
		s.writeError(w, http.StatusBadRequest, "Invalid form submission.")
		return false
	}
	return true
}

func (s *Service) handlePostOfficer(w http.ResponseWriter, r *http.Request) {
	var req = new(types.OfficerRequest)
	if !s.decodePost(w, r, req) {
		return
	}

	app, err := s.workflow.AssignOfficer(r.Context(), r.PathValue("id"), req.AssignedOfficer, s.actorFromContext(r.Context()))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, app)
}

func (s *Service) handlePostStatus(w http.ResponseWriter, r *http.Request) {
	var req = new(types.TransitionRequest)
	if !s.decodePost(w, r, req) {
		return
	}

	status, err := types.ParseApplicationStatus(req.Status)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	app, err := s.workflow.Transition(r.Context(), r.PathValue("id"), status, req.Comment, s.actorFromContext(r.Context()))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	metrics.Transitions.WithLabelValues(string(app.PermitType), string(status)).Inc()

	s.writeJSON(w, http.StatusOK, app)
}

func (s *Service) handlePostTODAOverride(w http.ResponseWriter, r *http.Request) {
	var req = new(types.TODAOverrideRequest)
	if !s.decodePost(w, r, req) {
		return
	}

	var override *bool
	switch strings.ToLower(strings.TrimSpace(req.Override)) {
	case "true", "1", "yes":
		override = utils.BoolPtr(true)
	case "false", "0", "no":
		override = utils.BoolPtr(false)
	case "clear", "":
	default:
		s.writeError(w, http.StatusBadRequest, "Override must be true, false or clear.")
		return
	}

	status, err := s.workflow.SetTODAOverride(r.Context(), r.PathValue("id"), override, s.actorFromContext(r.Context()))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, status)
}

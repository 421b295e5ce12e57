package server

import (
	"errors"
	"net/http"

	"goserveph/internal/metrics"
	"goserveph/pkg/types"

	"github.com/sirupsen/logrus"
)

func (s *Service) handlePostApplication(w http.ResponseWriter, r *http.Request) {
	pt, ok := s.permitType(w, r)
	if !ok {
		return
	}

	schema, err := s.registry.Schema(pt)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	values, uploads, err := s.parseSubmission(w, r)
	if err != nil {
		s.writeParseError(w, err)
		return
	}
	defer s.cleanupMultipart(r)

	app, err := s.intake.Submit(r.Context(), pt, values, uploads)
	if err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			s.logger.WithFields(logrus.Fields{
				"permit_type": pt,
				"step":        verr.Step,
				"errors":      verr.Fields,
			}).Info("submission rejected")
			metrics.Submissions.WithLabelValues(string(pt), metrics.ResultInvalid).Inc()
		} else {
			metrics.Submissions.WithLabelValues(string(pt), metrics.ResultFailed).Inc()
		}
		s.writeDomainError(w, err)
		return
	}

	metrics.Submissions.WithLabelValues(string(pt), metrics.ResultAccepted).Inc()

	message := schema.SuccessMessage
	if message == "" {
		message = "Application submitted successfully."
	}

	s.writeJSON(w, http.StatusCreated, types.SubmitResult{
		Success:       true,
		ApplicationID: app.ID,
		Message:       message,
	})
}

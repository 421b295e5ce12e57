package server

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"goserveph/internal/review"
	"goserveph/pkg/types"
)

func (s *Service) decodeFilter(w http.ResponseWriter, r *http.Request) (*types.ListFilter, bool) {
	var filter = new(types.ListFilter)
	err := decoder.Decode(filter, r.URL.Query())
	if err != nil {
		s.logger.WithError(err).Warn("failed to decode list filter")
		s.writeError(w, http.StatusBadRequest, "Invalid filter.")
		return nil, false
	}
	return filter, true
}

func (s *Service) handleListApplications(w http.ResponseWriter, r *http.Request) {
	pt, ok := s.permitType(w, r)
	if !ok {
		return
	}

	filter, ok := s.decodeFilter(w, r)
	if !ok {
		return
	}

	seq, err := s.workflow.List(r.Context(), pt, *filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	summaries := make([]types.ApplicationSummary, 0)
	for summary := range seq {
		summaries = append(summaries, summary)
	}

	s.writeJSON(w, http.StatusOK, types.ApplicationList{
		PermitType:   pt,
		Applications: summaries,
		Counts:       review.Aggregate(slices.Values(summaries)),
	})
}

func (s *Service) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	pt, ok := s.permitType(w, r)
	if !ok {
		return
	}

	filter, ok := s.decodeFilter(w, r)
	if !ok {
		return
	}

	seq, err := s.workflow.List(r.Context(), pt, *filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, review.Aggregate(seq))
}

func (s *Service) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	app, err := s.workflow.Detail(ctx, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	detail := types.ApplicationDetail{
		Application: app,
		Attachments: s.attachmentLinks(ctx, app),
	}

	toda, err := s.workflow.TODA(ctx, app)
	if err != nil && !errors.Is(err, types.ErrTODANotApplicable) {
		s.writeDomainError(w, err)
		return
	}
	detail.TODA = toda

	s.writeJSON(w, http.StatusOK, detail)
}

// a link that cannot be signed is left blank so the rest of the record
// still renders
func (s *Service) attachmentLinks(ctx context.Context, app *types.Application) map[string][]types.AttachmentLink {
	out := make(map[string][]types.AttachmentLink, len(app.Attachments))
	for field, keys := range app.Attachments {
		for _, key := range keys {
			link := types.AttachmentLink{Key: key}
			if s.files != nil {
				url, err := s.files.URL(ctx, key)
				if err != nil {
					s.logger.WithError(err).WithField("key", key).Warn("failed to resolve attachment url")
				}
				link.URL = url
			}
			out[field] = append(out[field], link)
		}
	}
	return out
}

func (s *Service) handleGetApplicationEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.workflow.Events(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, events)
}

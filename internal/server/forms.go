package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"goserveph/internal/forms"
)

const multipartMemory = 8 << 20

type permitTypeInfo struct {
	PermitType string   `json:"permit_type"`
	Title      string   `json:"title"`
	Steps      int      `json:"steps"`
	Types      []string `json:"application_types"`
}

func (s *Service) handleGetPermitTypes(w http.ResponseWriter, r *http.Request) {
	out := make([]permitTypeInfo, 0)
	for _, pt := range s.registry.PermitTypes() {
		schema, _ := s.registry.Schema(pt)
		out = append(out, permitTypeInfo{
			PermitType: string(pt),
			Title:      schema.Title,
			Steps:      schema.StepCount(),
			Types:      schema.ApplicationTypes(),
		})
	}

	s.writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	pt, ok := s.permitType(w, r)
	if !ok {
		return
	}

	schema, err := s.registry.Schema(pt)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, schema)
}

// handlePostValidateStep lets a wizard check one step server side before
// moving on. An invalid step is still a 200; the body carries the errors.
func (s *Service) handlePostValidateStep(w http.ResponseWriter, r *http.Request) {
	pt, ok := s.permitType(w, r)
	if !ok {
		return
	}

	step, err := strconv.Atoi(r.PathValue("step"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid step.")
		return
	}

	engine, err := s.registry.Engine(pt)
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

	values = forms.MergeValues(values, engine.CollectAttachments(uploads).Names())

	s.writeJSON(w, http.StatusOK, engine.ValidateStep(step, values))
}

// parseSubmission accepts url-encoded or multipart bodies.
func (s *Service) parseSubmission(w http.ResponseWriter, r *http.Request) (forms.Values, []forms.Upload, error) {
	limit := s.config.MaxUploadMB
	if limit <= 0 {
		limit = 32
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit<<20)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, nil, err
		}
		return forms.ValuesFromForm(r.MultipartForm.Value), forms.UploadsFromMultipart(r.MultipartForm), nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, nil, err
	}
	return forms.ValuesFromForm(r.PostForm), nil, nil
}

func (s *Service) writeParseError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeError(w, http.StatusRequestEntityTooLarge, "Attachments are too large.")
		return
	}

	s.logger.WithError(err).Warn("failed to parse form")
	s.writeError(w, http.StatusBadRequest, "Invalid form submission.")
}

func (s *Service) cleanupMultipart(r *http.Request) {
	if r.MultipartForm == nil {
		return
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		s.logger.WithError(err).Warn("failed to remove multipart temp files")
	}
}

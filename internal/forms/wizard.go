package forms

import (
	"context"
	"maps"

	"goserveph/pkg/types"
)

// Submitter sends a completed wizard across the submission boundary.
type Submitter interface {
	Submit(ctx context.Context, pt types.PermitType, values Values, uploads []Upload) (*types.SubmitResult, error)
}

// Wizard is the per-applicant state of a form in progress. Values are never
// discarded by a failed submission so the applicant can retry without
// re-entering them.
type Wizard struct {
	engine  *Engine
	step    int
	values  Values
	uploads Attachments
	errors  map[string]string
}

func NewWizard(engine *Engine) *Wizard {
	return &Wizard{
		engine:  engine,
		step:    1,
		values:  make(Values),
		uploads: make(Attachments),
		errors:  make(map[string]string),
	}
}

func (w *Wizard) Step() int {
	return w.step
}

func (w *Wizard) Steps() int {
	return w.engine.Schema().StepCount()
}

func (w *Wizard) CurrentStep() Step {
	return w.engine.Schema().Steps[w.step-1]
}

func (w *Wizard) Set(name, value string) {
	w.values[name] = value
}

func (w *Wizard) SetValues(values Values) {
	maps.Copy(w.values, values)
}

// Attach binds a file to its field, replacing the file in a single slot.
// It reports false when the field is not a file field.
func (w *Wizard) Attach(u Upload) bool {
	f, ok := w.engine.Schema().Field(u.Field)
	if !ok || !f.IsFile() || u.FileName == "" {
		return false
	}

	if f.Kind == KindFile {
		w.uploads[f.Name] = []Upload{u}
	} else {
		w.uploads[f.Name] = append(w.uploads[f.Name], u)
	}
	return true
}

func (w *Wizard) Detach(field string) {
	delete(w.uploads, field)
}

// Values returns entered text merged with attached file names.
func (w *Wizard) Values() Values {
	return MergeValues(w.values, w.uploads.Names())
}

func (w *Wizard) Errors() map[string]string {
	return maps.Clone(w.errors)
}

func (w *Wizard) CanAdvance() bool {
	return w.engine.CanAdvance(w.step, w.Values())
}

// Next validates the current step and advances when it passes.
func (w *Wizard) Next() bool {
	next, result := w.engine.Advance(w.step, w.Values())
	w.errors = result.Errors
	moved := next != w.step
	w.step = next
	return moved
}

func (w *Wizard) Previous() bool {
	prev := w.engine.Retreat(w.step)
	moved := prev != w.step
	w.step = prev
	return moved
}

// Review assembles the record as it would be stored, using file names in
// place of stored references.
func (w *Wizard) Review() *Payload {
	names := make(map[string][]string, len(w.uploads))
	for field, uploads := range w.uploads {
		for _, u := range uploads {
			names[field] = append(names[field], u.FileName)
		}
	}
	return w.engine.Assemble(w.Values(), names)
}

// Submit re-validates every step before sending. An invalid wizard jumps to
// the first failing step and never reaches the submitter.
func (w *Wizard) Submit(ctx context.Context, s Submitter) (*types.SubmitResult, error) {
	if step, errs := w.engine.ValidateAll(w.Values()); len(errs) > 0 {
		w.step = step
		w.errors = errs
		return nil, &types.ValidationError{Step: step, Fields: maps.Clone(errs)}
	}

	var uploads []Upload
	for _, f := range w.engine.Schema().Fields() {
		uploads = append(uploads, w.uploads[f.Name]...)
	}

	result, err := s.Submit(ctx, w.engine.PermitType(), w.values.Clone(), uploads)
	if result != nil && len(result.Errors) > 0 {
		w.errors = maps.Clone(result.Errors)
		if result.Step > 0 {
			w.step = result.Step
		}
	}
	if err == nil {
		w.errors = make(map[string]string)
	}

	return result, err
}

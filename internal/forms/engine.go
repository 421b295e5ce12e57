package forms

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"goserveph/pkg/types"
)

const dateLayout = "2006-01-02"

type EngineOption func(*Engine)

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine drives one permit type's step sequence. It holds no per-applicant
// state and is safe for concurrent use.
type Engine struct {
	schema *Schema
	now    func() time.Time
}

func NewEngine(schema *Schema, opts ...EngineOption) *Engine {
	e := &Engine{schema: schema, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Schema() *Schema {
	return e.schema
}

func (e *Engine) PermitType() types.PermitType {
	return e.schema.PermitType
}

// ValidateStep checks the fields declared on a 1-based step. File fields
// are satisfied by any non-blank value, normally the uploaded file name.
// Only required fields decide validity; a malformed optional value is
// reported as a warning and left blank on assembly.
func (e *Engine) ValidateStep(step int, values Values) types.StepValidation {
	result := types.StepValidation{Step: step, Valid: true, Errors: map[string]string{}}

	if step < 1 || step > e.schema.StepCount() {
		result.Valid = false
		result.Errors["step"] = fmt.Sprintf("Step %d does not exist.", step)
		return result
	}

	for i := range e.schema.Steps[step-1].Fields {
		f := &e.schema.Steps[step-1].Fields[i]
		msg := validateField(f, values[f.Name])
		switch {
		case msg == "":
		case f.Required:
			result.Errors[f.Name] = msg
		default:
			if result.Warnings == nil {
				result.Warnings = map[string]string{}
			}
			result.Warnings[f.Name] = msg
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func validateField(f *Field, raw string) string {
	value := strings.TrimSpace(raw)

	if f.Kind == KindPhone && value != "" {
		if !phoneCharsAllowed(value) || DigitsOnly(value) == "" {
			return fmt.Sprintf("%s must contain digits only.", f.Label)
		}
		value = DigitsOnly(value)
	}

	if value == "" {
		if f.Required {
			return fmt.Sprintf("%s is required.", f.Label)
		}
		return ""
	}

	switch f.Kind {
	case KindNumber:
		if _, ok := parseNumber(value); !ok {
			return fmt.Sprintf("%s must be a number.", f.Label)
		}
	case KindDate:
		if _, err := time.Parse(dateLayout, value); err != nil {
			return fmt.Sprintf("%s must be a valid date (YYYY-MM-DD).", f.Label)
		}
	case KindEmail:
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value {
			return fmt.Sprintf("%s must be a valid email address.", f.Label)
		}
	case KindChoice:
		if _, ok := matchOption(f.Options, value); !ok {
			return fmt.Sprintf("%s must be one of: %s.", f.Label, strings.Join(f.Options, ", "))
		}
	case KindBool:
		checked, ok := parseBool(value)
		if !ok {
			return fmt.Sprintf("%s must be yes or no.", f.Label)
		}
		// a required checkbox has to be ticked
		if f.Required && !checked {
			return fmt.Sprintf("%s must be checked.", f.Label)
		}
	}

	return ""
}

func (e *Engine) CanAdvance(step int, values Values) bool {
	return e.ValidateStep(step, values).Valid
}

// Advance moves to step+1 when the current step validates. The last step
// has no next, so it stays put.
func (e *Engine) Advance(step int, values Values) (int, types.StepValidation) {
	result := e.ValidateStep(step, values)
	if !result.Valid || step >= e.schema.StepCount() {
		return step, result
	}
	return step + 1, result
}

// Retreat moves to step-1; step 1 has no previous.
func (e *Engine) Retreat(step int) int {
	if step <= 1 || step > e.schema.StepCount() {
		return step
	}
	return step - 1
}

// ValidateAll re-runs every step. It returns the first failing step (0 when
// all pass) and the merged error map.
func (e *Engine) ValidateAll(values Values) (int, map[string]string) {
	first := 0
	errs := make(map[string]string)
	for step := 1; step <= e.schema.StepCount(); step++ {
		result := e.ValidateStep(step, values)
		if result.Valid {
			continue
		}
		if first == 0 {
			first = step
		}
		for k, v := range result.Errors {
			errs[k] = v
		}
	}
	return first, errs
}

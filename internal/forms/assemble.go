package forms

import (
	"maps"
	"strings"

	"goserveph/pkg/types"
)

// Payload is the flat record produced by a completed wizard.
type Payload struct {
	PermitType      types.PermitType    `json:"permit_type"`
	ApplicationType string              `json:"application_type"`
	Fields          map[string]any      `json:"fields"`
	Attachments     map[string][]string `json:"file_attachments"`
}

// Assemble converts validated values into the stored record shape. Every
// declared non-file field is present; blank or malformed optional ones
// are nil.
// stored maps file fields to stored file references.
func (e *Engine) Assemble(values Values, stored map[string][]string) *Payload {
	payload := &Payload{
		PermitType:  e.schema.PermitType,
		Fields:      make(map[string]any),
		Attachments: make(map[string][]string),
	}

	today := e.now().Format(dateLayout)

	for _, f := range e.schema.Fields() {
		if f.IsFile() {
			if refs := stored[f.Name]; len(refs) > 0 {
				payload.Attachments[f.Name] = append([]string(nil), refs...)
			}
			continue
		}

		raw := strings.TrimSpace(values[f.Name])
		if raw != "" && !f.Required && validateField(f, raw) != "" {
			raw = ""
		}
		if raw == "" {
			if f.Default == DefaultToday {
				payload.Fields[f.Name] = today
			} else {
				payload.Fields[f.Name] = nil
			}
			continue
		}

		value := normalizeValue(f, raw)

		if f.JoinWith != "" {
			companion, _ := e.schema.Field(f.JoinWith)
			if c := strings.TrimSpace(values[f.JoinWith]); c != "" && validateField(companion, c) == "" {
				value = raw + " " + toString(normalizeValue(companion, c))
			}
		}

		payload.Fields[f.Name] = value
	}

	if at, ok := payload.Fields[applicationTypeField].(string); ok {
		payload.ApplicationType = at
	}

	return payload
}

func normalizeValue(f *Field, raw string) any {
	switch f.Kind {
	case KindNumber:
		if n, ok := parseNumber(raw); ok {
			return n
		}
	case KindPhone:
		return DigitsOnly(raw)
	case KindBool:
		if b, ok := parseBool(raw); ok {
			return b
		}
	case KindChoice:
		if o, ok := matchOption(f.Options, raw); ok {
			return o
		}
	}
	return raw
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Record flattens the payload into one map with the attachment directory
// under "file_attachments".
func (p *Payload) Record() map[string]any {
	out := maps.Clone(p.Fields)
	if out == nil {
		out = make(map[string]any)
	}
	out["file_attachments"] = p.Attachments
	return out
}

func (p *Payload) Application() *types.Application {
	return &types.Application{
		PermitType:      p.PermitType,
		ApplicationType: p.ApplicationType,
		Fields:          maps.Clone(p.Fields),
		Attachments:     maps.Clone(p.Attachments),
	}
}

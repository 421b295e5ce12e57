package forms

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	"goserveph/pkg/types"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.yaml schemas/meta.json
var schemaFS embed.FS

type FieldKind string

const (
	KindText   FieldKind = "text"
	KindNumber FieldKind = "number"
	KindDate   FieldKind = "date"
	KindEmail  FieldKind = "email"
	KindPhone  FieldKind = "phone"
	KindChoice FieldKind = "choice"
	KindBool   FieldKind = "bool"
	KindFile   FieldKind = "file"
	KindFiles  FieldKind = "files"
)

// DefaultToday fills a blank date field with the submission date.
const DefaultToday = "today"

const applicationTypeField = "application_type"

type Field struct {
	Name     string    `yaml:"name" json:"name"`
	Label    string    `yaml:"label" json:"label"`
	Kind     FieldKind `yaml:"kind" json:"kind"`
	Required bool      `yaml:"required" json:"required"`
	Options  []string  `yaml:"options" json:"options,omitempty"`
	Default  string    `yaml:"default" json:"default,omitempty"`
	// JoinWith names a companion field whose value is appended on assembly,
	// e.g. "08:00" + "AM".
	JoinWith string `yaml:"join_with" json:"join_with,omitempty"`
}

func (f *Field) IsFile() bool {
	return f.Kind == KindFile || f.Kind == KindFiles
}

type Step struct {
	Title       string  `yaml:"title" json:"title"`
	Description string  `yaml:"description" json:"description,omitempty"`
	Fields      []Field `yaml:"fields" json:"fields"`
}

type Schema struct {
	PermitType     types.PermitType `yaml:"permit_type" json:"permit_type"`
	Title          string           `yaml:"title" json:"title"`
	SuccessMessage string           `yaml:"success_message" json:"success_message,omitempty"`
	Steps          []Step           `yaml:"steps" json:"steps"`

	index map[string]*Field
}

func (s *Schema) StepCount() int {
	return len(s.Steps)
}

func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.index[name]
	return f, ok
}

// Fields returns every declared field in step order.
func (s *Schema) Fields() []*Field {
	out := make([]*Field, 0, len(s.index))
	for i := range s.Steps {
		for j := range s.Steps[i].Fields {
			out = append(out, &s.Steps[i].Fields[j])
		}
	}
	return out
}

func (s *Schema) ApplicationTypes() []string {
	f, ok := s.index[applicationTypeField]
	if !ok {
		return nil
	}
	return f.Options
}

// StepOf returns the 1-based step declaring the field, or 0.
func (s *Schema) StepOf(name string) int {
	for i, step := range s.Steps {
		for _, f := range step.Fields {
			if f.Name == name {
				return i + 1
			}
		}
	}
	return 0
}

func (s *Schema) compile() error {
	s.index = make(map[string]*Field)
	for i := range s.Steps {
		for j := range s.Steps[i].Fields {
			f := &s.Steps[i].Fields[j]
			if _, ok := s.index[f.Name]; ok {
				return fmt.Errorf("%s: field %q declared more than once", s.PermitType, f.Name)
			}
			s.index[f.Name] = f
		}
	}

	for _, f := range s.index {
		if f.JoinWith == "" {
			continue
		}
		companion, ok := s.index[f.JoinWith]
		if !ok {
			return fmt.Errorf("%s: field %q joins unknown field %q", s.PermitType, f.Name, f.JoinWith)
		}
		if companion.IsFile() {
			return fmt.Errorf("%s: field %q cannot join file field %q", s.PermitType, f.Name, f.JoinWith)
		}
	}

	at, ok := s.index[applicationTypeField]
	if !ok || at.Kind != KindChoice {
		return fmt.Errorf("%s: schema must declare a choice field %q", s.PermitType, applicationTypeField)
	}

	return nil
}

var loadMetaSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	data, err := schemaFS.ReadFile("schemas/meta.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read meta schema: %w", err)
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to compile meta schema: %w", err)
	}

	return compiled, nil
})

// ParseSchema decodes a YAML permit schema, checks its shape against the
// embedded meta schema and indexes its fields.
func ParseSchema(data []byte) (*Schema, error) {
	meta, err := loadMetaSchema()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode schema yaml: %w", err)
	}

	result, err := meta.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to validate schema: %w", err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, fmt.Errorf("invalid schema: %s", strings.Join(problems, "; "))
	}

	var schema = new(Schema)
	if err := yaml.Unmarshal(data, schema); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}

	if err := schema.compile(); err != nil {
		return nil, err
	}

	return schema, nil
}

type Registry struct {
	schemas map[types.PermitType]*Schema
}

func NewRegistry(schemas ...*Schema) *Registry {
	r := &Registry{schemas: make(map[types.PermitType]*Schema, len(schemas))}
	for _, s := range schemas {
		r.schemas[s.PermitType] = s
	}
	return r
}

// LoadRegistry parses the embedded schema for every permit type.
func LoadRegistry() (*Registry, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}

	var schemas []*Schema
	for _, entry := range entries {
		if path.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", entry.Name(), err)
		}

		schema, err := ParseSchema(data)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", entry.Name(), err)
		}

		schemas = append(schemas, schema)
	}

	registry := NewRegistry(schemas...)
	for _, pt := range types.PermitTypes {
		if _, ok := registry.schemas[pt]; !ok {
			return nil, fmt.Errorf("no schema declared for permit type %s", pt)
		}
	}

	return registry, nil
}

func (r *Registry) Schema(pt types.PermitType) (*Schema, error) {
	s, ok := r.schemas[pt]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownPermitType, pt)
	}
	return s, nil
}

func (r *Registry) Engine(pt types.PermitType, opts ...EngineOption) (*Engine, error) {
	s, err := r.Schema(pt)
	if err != nil {
		return nil, err
	}
	return NewEngine(s, opts...), nil
}

func (r *Registry) PermitTypes() []types.PermitType {
	out := make([]types.PermitType, 0, len(r.schemas))
	for _, pt := range types.PermitTypes {
		if _, ok := r.schemas[pt]; ok {
			out = append(out, pt)
		}
	}
	return out
}

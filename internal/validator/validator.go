// Package validator decides whether a decoded event is eligible for
// enrichment and indexing.
package validator

import (
	"fmt"
	"time"

	"github.com/skilltrace-systems/skilltrace-indexer/internal/config"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/models"
)

// Schema validates events against a field definition, a top-level key
// ceiling, and a content exclusion rule.
type Schema struct {
	def          Definition
	maxKeys      int
	excludedType string
}

// New builds a Schema from configuration. The field definition is read from
// cfg.File when set, otherwise the built-in default is used.
func New(cfg config.SchemaConfig) (*Schema, error) {
	def := DefaultDefinition()
	if cfg.File != "" {
		loaded, err := LoadDefinition(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("load schema definition: %w", err)
		}
		def = loaded
	}
	return &Schema{
		def:          def,
		maxKeys:      cfg.MaxKeys,
		excludedType: cfg.ExcludedType,
	}, nil
}

// IsIndexable reports whether the event should be processed. Structurally
// invalid events and events matching the exclusion rule are both rejected;
// callers see no distinction.
func (s *Schema) IsIndexable(ev models.Event) bool {
	if err := s.check(ev); err != nil {
		return false
	}
	return !s.excluded(ev)
}

// check performs structural validation: shape, key ceiling, required fields
// and their types. Checks short-circuit on the first failure.
func (s *Schema) check(ev models.Event) error {
	if ev == nil {
		return fmt.Errorf("not a keyed record")
	}
	if len(ev) > s.maxKeys {
		return fmt.Errorf("too many keys: %d > %d", len(ev), s.maxKeys)
	}
	for _, name := range s.def.StringFields {
		if _, ok := ev[name].(string); !ok {
			return fmt.Errorf("missing or non-string field %q", name)
		}
	}
	for _, name := range s.def.NumberFields {
		if !isNumber(ev[name]) {
			return fmt.Errorf("missing or non-numeric field %q", name)
		}
	}
	for _, name := range s.def.DateTimeFields {
		v, ok := ev[name].(string)
		if !ok {
			return fmt.Errorf("missing or non-string field %q", name)
		}
		if _, err := time.Parse(time.RFC3339, v); err != nil {
			return fmt.Errorf("field %q is not a date-time: %w", name, err)
		}
	}
	return nil
}

// excluded applies the content-based filter: events whose type matches the
// configured sentinel are not indexed. Layered after structural validation so
// it stays overridable independently of the schema.
func (s *Schema) excluded(ev models.Event) bool {
	return s.excludedType != "" && ev.StringField(models.FieldType) == s.excludedType
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64:
		return true
	default:
		return false
	}
}

package validator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/skilltrace-systems/skilltrace-indexer/internal/models"
)

// Definition names the required event fields per type class.
type Definition struct {
	StringFields   []string `yaml:"string_fields"`
	NumberFields   []string `yaml:"number_fields"`
	DateTimeFields []string `yaml:"datetime_fields"`
}

// DefaultDefinition returns the built-in progress event schema.
func DefaultDefinition() Definition {
	return Definition{
		StringFields: []string{
			models.FieldID,
			models.FieldAttemptID,
			models.FieldUserID,
			models.FieldType,
		},
		NumberFields: []string{
			models.FieldProgress,
			models.FieldScore,
		},
		DateTimeFields: []string{
			models.FieldTimestamp,
		},
	}
}

// LoadDefinition reads a schema definition from a YAML file.
func LoadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read %s: %w", path, err)
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return def, nil
}

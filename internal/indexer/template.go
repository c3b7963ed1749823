package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/skilltrace-systems/skilltrace-indexer/internal/config"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/models"
)

// TemplateManager installs the index template covering the date-partitioned
// event indices so new partitions get consistent mappings.
type TemplateManager struct {
	client *opensearch.Client
	config config.OpenSearchConfig
}

// NewTemplateManager creates a TemplateManager.
func NewTemplateManager(client *opensearch.Client, cfg config.OpenSearchConfig) *TemplateManager {
	return &TemplateManager{client: client, config: cfg}
}

// TemplateName returns the name the template is installed under, derived
// from the index prefix and the configured document type label.
func (m *TemplateManager) TemplateName() string {
	return strings.TrimSuffix(m.config.IndexPrefix, "-") + "-" + m.config.DocumentType + "-template"
}

// EnsureTemplate creates or updates the index template.
func (m *TemplateManager) EnsureTemplate(ctx context.Context) error {
	template := map[string]any{
		"index_patterns": []string{m.config.IndexPrefix + "*"},
		"template": map[string]any{
			"settings": map[string]any{
				"number_of_shards":   m.config.ShardCount,
				"number_of_replicas": m.config.ReplicaCount,
			},
			"mappings": eventMappings(),
		},
		"priority": 100,
	}

	body, err := json.Marshal(template)
	if err != nil {
		return err
	}

	res, err := m.client.Indices.PutIndexTemplate(
		m.TemplateName(),
		bytes.NewReader(body),
		m.client.Indices.PutIndexTemplate.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("put index template: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		detail, _ := io.ReadAll(res.Body)
		return fmt.Errorf("put index template: %s - %s", res.Status(), string(detail))
	}

	return nil
}

func eventMappings() map[string]any {
	keyword := map[string]any{"type": "keyword"}
	float := map[string]any{"type": "float"}
	record := map[string]any{"type": "object", "enabled": true}

	return map[string]any{
		"properties": map[string]any{
			models.FieldID:        keyword,
			models.FieldAttemptID: keyword,
			models.FieldCourseID:  keyword,
			models.FieldTraineeID: keyword,
			models.FieldUserID:    keyword,
			models.FieldType:      keyword,
			models.FieldProgress:  float,
			models.FieldScore:     float,
			models.FieldTimestamp: map[string]any{"type": "date"},
			models.EntityAttempt:  record,
			models.EntityCourse:   record,
			models.EntityTrainee:  record,
			models.EntityUser:     record,
		},
	}
}

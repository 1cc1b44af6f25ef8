package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate/entities/models"
)

// SchemaClient defines the Weaviate schema operations the index needs.
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
	DeleteClass(ctx context.Context, className string) error
}

const (
	tokenKeyword = "field"
	tokenText    = "word"
)

func keyword(name string) *models.Property {
	return &models.Property{Name: name, DataType: []string{"text"}, Tokenization: tokenKeyword}
}

func analyzed(name string) *models.Property {
	return &models.Property{Name: name, DataType: []string{"text"}, Tokenization: tokenText}
}

func typed(name, dataType string) *models.Property {
	return &models.Property{Name: name, DataType: []string{dataType}}
}

// Properties is the field mapping of an indexed document. Identifiers are
// matched exactly; prose fields are tokenized into words.
func Properties() []*models.Property {
	noFilter := false
	return []*models.Property{
		keyword("source_filename"),
		keyword("document_kind"),
		keyword("case_number"),
		keyword("diagnosis_code"),
		keyword("outcome"),
		keyword("classification"),
		keyword("attachment_locator"),
		keyword("content_sha256"),
		analyzed("note_number"),
		analyzed("subject"),
		analyzed("full_text"),
		analyzed("object_of_request"),
		analyzed("classifier_tags"),
		analyzed("complementary_info"),
		analyzed("medication_and_supply_list"),
		typed("submission_date", "date"),
		typed("extracted_at", "date"),
		typed("outcome_inferred", "boolean"),
		typed("text_partial", "boolean"),
		typed("is_legacy", "boolean"),
		typed("page_count", "int"),
		typed("pages_read", "int"),
		{Name: "attachment", DataType: []string{"blob"}, IndexFilterable: &noFilter},
	}
}

// Ensure makes sure className exists with every property. With recreate the
// class is dropped first, losing all indexed objects.
func Ensure(ctx context.Context, client SchemaClient, className string, recreate bool) error {
	exists, err := client.ClassExists(ctx, className)
	if err != nil {
		return fmt.Errorf("check class %s: %w", className, err)
	}

	if exists && recreate {
		slog.WarnContext(ctx, "recreating index class", "class", className)
		if err := client.DeleteClass(ctx, className); err != nil {
			return fmt.Errorf("delete class %s: %w", className, err)
		}
		exists = false
	}

	properties := Properties()

	if !exists {
		class := &models.Class{
			Class:       className,
			Description: "Metadata and text of a legal technical opinion",
			Vectorizer:  "none",
			Properties:  properties,
		}
		if err := client.CreateClass(ctx, class); err != nil {
			return fmt.Errorf("create class %s: %w", className, err)
		}
		return nil
	}

	class, err := client.GetClass(ctx, className)
	if err != nil {
		return fmt.Errorf("get class %s: %w", className, err)
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, className, p); err != nil {
				return fmt.Errorf("add property %s: %w", p.Name, err)
			}
		}
	}

	return nil
}

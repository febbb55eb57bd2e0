package blueprint

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// ErrInvalidStructure is returned when a blueprint is missing required keys.
var ErrInvalidStructure = errors.New("blueprint: invalid structure")

// StructureError locates a structural problem inside the payload.
type StructureError struct {
	Pointer string
	Reason  string
}

func (e *StructureError) Error() string {
	if e.Pointer == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidStructure, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidStructure, e.Pointer, e.Reason)
}

func (e *StructureError) Unwrap() error {
	return ErrInvalidStructure
}

var (
	structureOnce   sync.Once
	structureSchema *openapi3.Schema
)

// StructureSchema returns the schema every blueprint payload must satisfy.
// Only the envelope is constrained; config_json content is interpreted
// leniently by DecodeConfig.
func StructureSchema() *openapi3.Schema {
	structureOnce.Do(func() {
		scalar := openapi3.NewSchema().WithNullable()

		template := openapi3.NewObjectSchema().
			WithProperty("template_id", openapi3.NewSchema()).
			WithProperty("template_name", scalar)
		template.Required = []string{"template_id"}

		item := openapi3.NewObjectSchema().
			WithProperty("item_id", openapi3.NewSchema()).
			WithProperty("display_order", scalar).
			WithProperty("config_json", openapi3.NewSchema().WithNullable()).
			WithProperty("is_active", scalar)
		item.Required = []string{"item_id", "config_json"}

		root := openapi3.NewObjectSchema().
			WithProperty("template", template).
			WithProperty("items", openapi3.NewArraySchema().WithItems(item))
		root.Required = []string{"template", "items"}

		structureSchema = root
	})
	return structureSchema
}

// CheckStructure validates a JSON-shaped tree against StructureSchema.
func CheckStructure(tree any) error {
	err := StructureSchema().VisitJSON(tree)
	if err == nil {
		return nil
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		return &StructureError{
			Pointer: pointer(schemaErr.JSONPointer()),
			Reason:  schemaErr.Reason,
		}
	}
	return &StructureError{Reason: err.Error()}
}

func pointer(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	escaped := make([]string, len(segments))
	for i, segment := range segments {
		segment = strings.ReplaceAll(segment, "~", "~0")
		escaped[i] = strings.ReplaceAll(segment, "/", "~1")
	}
	return "/" + strings.Join(escaped, "/")
}

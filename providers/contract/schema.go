package contract

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/heymumford/skidbladnir/apierrors"
	"github.com/heymumford/skidbladnir/canonical"
)

// ValidateCustom checks a FieldType CUSTOM value against def.Schema, a
// draft-07 JSON Schema document. A FieldDefinition without a Schema
// accepts any value unchanged — CUSTOM's coercion table otherwise
// leaves it unconstrained, per spec.md §4.1.
func ValidateCustom(provider string, def canonical.FieldDefinition, value interface{}) error {
	if def.Schema == "" {
		return nil
	}

	schemaLoader := gojsonschema.NewStringLoader(def.Schema)
	encoded, err := json.Marshal(value)
	if err != nil {
		return apierrors.New(provider, apierrors.Validation, fmt.Sprintf("custom field %q: cannot encode value for schema check: %v", def.Name, err))
	}
	documentLoader := gojsonschema.NewBytesLoader(encoded)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return apierrors.New(provider, apierrors.Validation, fmt.Sprintf("custom field %q: invalid schema: %v", def.Name, err))
	}
	if result.Valid() {
		return nil
	}

	fieldErrors := make(map[string]string, len(result.Errors()))
	for _, e := range result.Errors() {
		fieldErrors[e.Field()] = e.Description()
	}
	return apierrors.NewWithFields(provider, apierrors.Validation, fmt.Sprintf("custom field %q failed schema validation", def.Name), fieldErrors)
}

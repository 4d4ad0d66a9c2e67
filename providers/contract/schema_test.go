package contract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heymumford/skidbladnir/apierrors"
	"github.com/heymumford/skidbladnir/canonical"
)

const sampleSchema = `{
	"type": "object",
	"required": ["severity"],
	"properties": {
		"severity": {"type": "string", "enum": ["low", "medium", "high"]}
	}
}`

func customFieldDef() canonical.FieldDefinition {
	return canonical.FieldDefinition{
		ID:     "cf-1",
		Name:   "incidentDetails",
		Type:   canonical.FieldTypeCustom,
		Entity: canonical.EntityTestCase,
		Schema: sampleSchema,
	}
}

func TestValidateCustomAcceptsMatchingValue(t *testing.T) {
	err := ValidateCustom("zephyr", customFieldDef(), map[string]interface{}{"severity": "high"})
	require.NoError(t, err)
}

func TestValidateCustomRejectsValueFailingSchema(t *testing.T) {
	err := ValidateCustom("zephyr", customFieldDef(), map[string]interface{}{"severity": "catastrophic"})
	require.Error(t, err)

	ae, ok := apierrors.As(err)
	require.True(t, ok)
	require.Equal(t, apierrors.Validation, ae.Category)
	require.NotEmpty(t, ae.FieldErrors)
}

func TestValidateCustomRejectsMissingRequiredField(t *testing.T) {
	err := ValidateCustom("zephyr", customFieldDef(), map[string]interface{}{})
	require.Error(t, err)
}

func TestValidateCustomSkipsFieldsWithNoSchema(t *testing.T) {
	def := canonical.FieldDefinition{ID: "cf-2", Name: "freeform", Type: canonical.FieldTypeCustom}
	err := ValidateCustom("zephyr", def, "anything at all")
	require.NoError(t, err)
}

package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed sequence.schema.json
var sequenceSchemaText string

const sequenceSchemaURL = "sequence.schema.json"

var sequenceSchema = jsonschema.MustCompileString(sequenceSchemaURL, sequenceSchemaText)

// DocumentError wraps a payload that could not be parsed or does not match
// the JSON Schema.
type DocumentError struct {
	Err error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("invalid sequence document: %v", e.Err)
}

func (e *DocumentError) Unwrap() []error { return []error{domain.ErrValidation, e.Err} }

// ValidateDocument checks raw JSON against the embedded sequence schema.
func ValidateDocument(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &DocumentError{Err: err}
	}
	if err := sequenceSchema.Validate(doc); err != nil {
		return &DocumentError{Err: err}
	}
	return nil
}

// SchemaText returns the JSON Schema the payload is validated against.
func SchemaText() string {
	return sequenceSchemaText
}

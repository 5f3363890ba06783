package fields

import (
	"encoding/json"
	"fmt"
)

// Kind tags which field schema an extraction result was validated
// against. Unrecognized document types use the generic fallback.
type Kind string

const (
	KindNDA              Kind = "nda"
	KindServiceAgreement Kind = "service_agreement"
	KindEmployment       Kind = "employment_contract"
	KindGeneric          Kind = "generic"
)

// FieldValue is one extracted field: the raw value as the model reported
// it plus the model's own confidence.
type FieldValue struct {
	Value      interface{} `json:"value"`
	Confidence float64     `json:"confidence"`
}

// Set is a validated field-extraction result. The Kind records which
// schema variant the payload satisfied; Fields holds the per-field
// values keyed by field name.
type Set struct {
	Kind   Kind
	Fields map[string]FieldValue
}

// KindFor maps a classified document type onto a schema variant.
func KindFor(docType string) Kind {
	switch docType {
	case "nda":
		return KindNDA
	case "service_agreement":
		return KindServiceAgreement
	case "employment_contract":
		return KindEmployment
	default:
		return KindGeneric
	}
}

// Parse validates a raw inference result against the schema for the
// given document type and decodes it into a Set. Validation happens
// here, at the boundary where the model output enters the pipeline, so
// nothing downstream handles untyped maps.
func Parse(docType string, raw map[string]interface{}) (*Set, error) {
	kind := KindFor(docType)

	schema, ok := schemaFor(kind)
	if !ok {
		return nil, fmt.Errorf("no field schema registered for kind %q", kind)
	}

	if err := schema.Validate(normalize(raw)); err != nil {
		return nil, fmt.Errorf("field payload failed %s schema: %w", kind, err)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encode field payload: %w", err)
	}

	var fieldMap map[string]FieldValue
	if err := json.Unmarshal(encoded, &fieldMap); err != nil {
		return nil, fmt.Errorf("decode field payload: %w", err)
	}

	return &Set{Kind: kind, Fields: fieldMap}, nil
}

// MarshalJSON writes the field map in the persisted wire shape, without
// the kind tag; the document's doc_type column already carries it.
func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Fields)
}

// Len returns the number of extracted fields.
func (s *Set) Len() int {
	return len(s.Fields)
}

// normalize re-decodes through encoding/json so the validator sees plain
// map[string]interface{} / float64 values regardless of the source types.
func normalize(raw map[string]interface{}) interface{} {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return raw
	}
	var v interface{}
	if err := json.Unmarshal(encoded, &v); err != nil {
		return raw
	}
	return v
}

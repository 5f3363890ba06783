package fields

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Field payloads are objects of {"field_name": {"value": ..., "confidence": ...}}.
// The specialized schemas pin the known field names for their contract
// type; the generic schema accepts any field name. Values stay untyped
// (string, bool, null - whatever the model reported); confidence must be
// a number in [0,1] when present.

const fieldValueDef = `{
  "type": "object",
  "properties": {
    "value": {},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  },
  "required": ["value"]
}`

func objectSchema(fieldNames []string) string {
	if len(fieldNames) == 0 {
		return fmt.Sprintf(`{
  "type": "object",
  "additionalProperties": %s
}`, fieldValueDef)
	}

	var props []string
	for _, name := range fieldNames {
		props = append(props, fmt.Sprintf("%q: %s", name, fieldValueDef))
	}
	return fmt.Sprintf(`{
  "type": "object",
  "properties": {%s},
  "additionalProperties": %s
}`, strings.Join(props, ","), fieldValueDef)
}

var schemaSources = map[Kind]string{
	KindNDA: objectSchema([]string{
		"disclosing_party", "receiving_party", "effective_date",
		"expiration_date", "confidentiality_period", "permitted_disclosures",
		"governing_law", "non_solicitation", "return_of_materials",
	}),
	KindServiceAgreement: objectSchema([]string{
		"client", "vendor", "effective_date", "termination_date",
		"payment_terms", "payment_amount", "auto_renewal", "sla_terms",
		"governing_law", "liability_cap", "indemnification",
	}),
	KindEmployment: objectSchema([]string{
		"employer", "employee", "job_title", "start_date", "compensation",
		"benefits", "termination_clause", "non_compete", "non_solicitation",
		"intellectual_property", "governing_law",
	}),
	KindGeneric: objectSchema(nil),
}

var compiledSchemas = compileSchemas()

func compileSchemas() map[Kind]*jsonschema.Schema {
	compiled := make(map[Kind]*jsonschema.Schema, len(schemaSources))
	for kind, src := range schemaSources {
		compiler := jsonschema.NewCompiler()
		name := string(kind) + ".json"
		if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
			panic(fmt.Sprintf("fields: bad %s schema: %v", kind, err))
		}
		compiled[kind] = compiler.MustCompile(name)
	}
	return compiled
}

func schemaFor(kind Kind) (*jsonschema.Schema, bool) {
	s, ok := compiledSchemas[kind]
	return s, ok
}

package fields

import (
	"encoding/json"
	"testing"
)

func TestParseValidNDAPayload(t *testing.T) {
	raw := map[string]interface{}{
		"disclosing_party": map[string]interface{}{"value": "Acme Corp", "confidence": 0.95},
		"receiving_party":  map[string]interface{}{"value": "Beta LLC", "confidence": 0.9},
		"governing_law":    map[string]interface{}{"value": "Delaware", "confidence": 0.85},
		"expiration_date":  map[string]interface{}{"value": nil, "confidence": 0.0},
	}

	set, err := Parse("nda", raw)
	if err != nil {
		t.Fatalf("expected valid payload to parse, got %v", err)
	}
	if set.Kind != KindNDA {
		t.Errorf("kind = %s, want %s", set.Kind, KindNDA)
	}
	if set.Len() != 4 {
		t.Errorf("field count = %d, want 4", set.Len())
	}
	if set.Fields["disclosing_party"].Value != "Acme Corp" {
		t.Errorf("disclosing_party = %v", set.Fields["disclosing_party"].Value)
	}
}

func TestParseRejectsBadConfidence(t *testing.T) {
	raw := map[string]interface{}{
		"disclosing_party": map[string]interface{}{"value": "Acme", "confidence": "very high"},
	}

	if _, err := Parse("nda", raw); err == nil {
		t.Fatal("expected schema violation for non-numeric confidence")
	}
}

func TestParseRejectsNonObjectField(t *testing.T) {
	raw := map[string]interface{}{
		"governing_law": "Delaware",
	}

	if _, err := Parse("service_agreement", raw); err == nil {
		t.Fatal("expected schema violation for bare string field")
	}
}

func TestParseGenericAcceptsUnknownFields(t *testing.T) {
	raw := map[string]interface{}{
		"some_novel_field": map[string]interface{}{"value": "x", "confidence": 0.5},
		"parties":          map[string]interface{}{"value": "A and B", "confidence": 0.9},
	}

	set, err := Parse("lease", raw)
	if err != nil {
		t.Fatalf("generic fallback should accept unknown field names, got %v", err)
	}
	if set.Kind != KindGeneric {
		t.Errorf("kind = %s, want %s", set.Kind, KindGeneric)
	}
}

func TestKindFor(t *testing.T) {
	tests := []struct {
		docType string
		want    Kind
	}{
		{"nda", KindNDA},
		{"service_agreement", KindServiceAgreement},
		{"employment_contract", KindEmployment},
		{"lease", KindGeneric},
		{"saas_terms", KindGeneric},
		{"other", KindGeneric},
		{"", KindGeneric},
	}
	for _, tt := range tests {
		if got := KindFor(tt.docType); got != tt.want {
			t.Errorf("KindFor(%q) = %s, want %s", tt.docType, got, tt.want)
		}
	}
}

func TestSetMarshalDropsKindTag(t *testing.T) {
	set := &Set{
		Kind: KindGeneric,
		Fields: map[string]FieldValue{
			"parties": {Value: "A and B", Confidence: 0.9},
		},
	}

	encoded, err := json.Marshal(set)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]map[string]interface{}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, hasKind := decoded["Kind"]; hasKind {
		t.Error("persisted shape must not include the kind tag")
	}
	if decoded["parties"]["value"] != "A and B" {
		t.Errorf("persisted payload = %s", encoded)
	}
}

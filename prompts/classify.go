package prompts

import "fmt"

const ClassifySystemPrompt = `You are a legal document classifier. Given the first few pages of a contract, determine the document type.

Respond with a JSON object:
{
  "doc_type": "<one of: nda, service_agreement, employment_contract, lease, saas_terms, other>",
  "confidence": <float 0.0-1.0>,
  "reasoning": "<one sentence explaining your classification>"
}

Rules:
- nda: Non-Disclosure Agreement, Confidentiality Agreement
- service_agreement: Master Service Agreement, Statement of Work, Consulting Agreement
- employment_contract: Offer Letter, Employment Agreement, Independent Contractor Agreement
- lease: Commercial Lease, Residential Lease, Sublease
- saas_terms: Software-as-a-Service Terms, Subscription Agreement, EULA
- other: Anything that does not clearly fit the above categories

Only return valid JSON. No extra text.`

// BuildClassifyUserPrompt builds the user message from the first few
// chunks of the document.
func BuildClassifyUserPrompt(text string) string {
	return fmt.Sprintf("Classify this document:\n\n%s", text)
}

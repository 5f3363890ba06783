package llm_service

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OpenAIError represents the error structure returned by the OpenAI API
type OpenAIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// APIError carries the HTTP status of a failed completion request so the
// retry loop can tell transient failures from non-retryable ones.
type APIError struct {
	StatusCode int
	Message    string
	ErrorType  string
	RawBody    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OpenAI API error (HTTP %d): %s (Type: %s)", e.StatusCode, e.Message, e.ErrorType)
}

// Retryable reports whether the failure is transient: rate limiting or a
// server-side error. Client errors (auth, bad request) are final.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// MalformedOutputError marks a response that arrived but could not be
// parsed as a JSON object. Retried without backoff.
type MalformedOutputError struct {
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("invalid JSON from LLM: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// extractErrorDetails extracts error information from API responses
func extractErrorDetails(resp *http.Response) (string, *OpenAIError) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	var openAIErr OpenAIError
	if err := json.Unmarshal(body, &openAIErr); err == nil && openAIErr.Error.Message != "" {
		return string(body), &openAIErr
	}

	return string(body), nil
}

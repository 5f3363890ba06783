package llm_service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const DefaultMaxRetries = 3

// OpenAIService calls the chat-completions endpoint in JSON-object mode.
// Transient failures (429, 5xx) are retried with exponential backoff of
// 2^attempt seconds; malformed JSON output is retried immediately; client
// errors fail fast.
type OpenAIService struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiURL     string
	apiKey     string
	model      string
	maxRetries int

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

func NewOpenAIService(logger *slog.Logger, apiURL, apiKey, model string) *OpenAIService {
	return &OpenAIService{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
		apiURL:     apiURL,
		apiKey:     apiKey,
		model:      model,
		maxRetries: DefaultMaxRetries,
		sleep:      time.Sleep,
	}
}

// WithMaxRetries overrides the attempt budget.
func (s *OpenAIService) WithMaxRetries(n int) *OpenAIService {
	if n > 0 {
		s.maxRetries = n
	}
	return s
}

// Model returns the configured model identifier.
func (s *OpenAIService) Model() string {
	return s.model
}

func (s *OpenAIService) CallJSON(ctx context.Context, systemPrompt, userPrompt string) (map[string]interface{}, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		result, err := s.callOpenAI(ctx, systemPrompt, userPrompt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if !apiErr.Retryable() {
				s.logger.Error("Non-retryable OpenAI API error",
					slog.Int("status_code", apiErr.StatusCode),
					slog.String("error_type", apiErr.ErrorType),
					slog.String("error_message", apiErr.Message),
					slog.String("model", s.model))
				return nil, err
			}

			if attempt == s.maxRetries {
				break
			}

			wait := time.Duration(1<<uint(attempt)) * time.Second
			s.logger.Warn("Transient OpenAI API error, backing off",
				slog.Int("attempt", attempt),
				slog.Int("status_code", apiErr.StatusCode),
				slog.Duration("wait", wait),
				slog.String("error", err.Error()))
			s.sleep(wait)
			continue
		}

		var malformed *MalformedOutputError
		if errors.As(err, &malformed) {
			// The endpoint answered; asking again costs nothing extra.
			s.logger.Warn("Malformed JSON from model, retrying",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			continue
		}

		// Network-level failure: treat like a transient server problem.
		if attempt == s.maxRetries {
			break
		}
		wait := time.Duration(1<<uint(attempt)) * time.Second
		s.logger.Warn("Request failed, backing off",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()))
		s.sleep(wait)
	}

	s.logger.Error("OpenAI API call failed after all attempts",
		slog.Int("attempts", s.maxRetries),
		slog.String("model", s.model),
		slog.String("error", lastErr.Error()))
	return nil, fmt.Errorf("failed to call OpenAI API after %d attempts: %w", s.maxRetries, lastErr)
}

func (s *OpenAIService) callOpenAI(ctx context.Context, systemPrompt, userPrompt string) (map[string]interface{}, error) {
	messages := []map[string]string{
		{"role": "system", "content": systemPrompt},
		{"role": "user", "content": userPrompt},
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":           s.model,
		"messages":        messages,
		"temperature":     0.1,
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rawBody, openAIErr := extractErrorDetails(resp)
		httpErr := &APIError{
			StatusCode: resp.StatusCode,
			RawBody:    rawBody,
		}

		if openAIErr != nil {
			httpErr.Message = openAIErr.Error.Message
			httpErr.ErrorType = openAIErr.Error.Type
		} else {
			httpErr.Message = "Unknown error"
			httpErr.ErrorType = "unknown"
		}

		return nil, httpErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}

	choices, ok := result["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return nil, fmt.Errorf("unexpected response format from OpenAI API")
	}

	firstChoice, ok := choices[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected choice format in OpenAI API response")
	}

	message, ok := firstChoice["message"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("message not found in OpenAI API response")
	}

	content, ok := message["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content not found in OpenAI API response")
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, &MalformedOutputError{Err: err}
	}

	return parsed, nil
}

package llm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoCandidates is returned when the model produced no candidates.
var ErrNoCandidates = errors.New("No candidates in response")

// APIError is a non-200 answer from the model endpoint.
type APIError struct {
	// Service names the endpoint in the message, "Vertex AI" when empty.
	Service    string
	StatusCode int
	Body       string

	// RetryAfter is parsed from the Retry-After header, zero when absent.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	service := e.Service
	if service == "" {
		service = "Vertex AI"
	}
	return fmt.Sprintf("%s API call failed: %d - %s", service, e.StatusCode, e.Body)
}

// EmptyContentError is returned when the first candidate has no parts,
// typically because generation stopped for safety or token limits.
type EmptyContentError struct {
	FinishReason string
}

func (e *EmptyContentError) Error() string {
	return "No content parts in response. Finish reason: " + e.FinishReason
}

// Validate checks a decoded response and extracts the first candidate's text.
func Validate(resp *Response) (*Result, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w (prompt blocked: %s)", ErrNoCandidates, resp.PromptFeedback.BlockReason)
		}
		return nil, ErrNoCandidates
	}

	first := resp.Candidates[0]
	if len(first.Content.Parts) == 0 {
		return nil, &EmptyContentError{FinishReason: first.FinishReason}
	}

	var b strings.Builder
	for _, p := range first.Content.Parts {
		b.WriteString(p.Text)
	}

	result := &Result{
		Text:         strings.TrimSpace(b.String()),
		FinishReason: first.FinishReason,
	}
	if resp.UsageMetadata != nil {
		result.Usage = *resp.UsageMetadata
	}
	return result, nil
}

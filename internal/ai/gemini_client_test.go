package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	genai "github.com/google/generative-ai-go/genai"
)

func TestGenerationErrorMessageStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"bad request", &googleapi.Error{Code: 400}, "Error: Invalid API request. Check your Gemini API key."},
		{"forbidden", &googleapi.Error{Code: 403}, "Error: Gemini API access denied. Check API key permissions."},
		{"rate limited", &googleapi.Error{Code: 429}, "Error: Gemini API rate limit exceeded. Please try again later."},
		{"wrapped", errors.Join(errors.New("ctx"), &googleapi.Error{Code: 429}), "Error: Gemini API rate limit exceeded. Please try again later."},
		{"other status", &googleapi.Error{Code: 500, Message: "internal"}, "Error generating answer: googleapi: Error 500: internal"},
		{"plain error", errors.New("dial tcp: timeout"), "Error generating answer: dial tcp: timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerationErrorMessage(tt.err))
		})
	}
}

func TestResponseTextConcatenatesTextParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello"), genai.Text(", world")}}},
		},
	}
	assert.Equal(t, "Hello, world", ResponseText(resp))
}

func TestResponseTextSkipsEmptyShapes(t *testing.T) {
	assert.Equal(t, "", ResponseText(nil))
	assert.Equal(t, "", ResponseText(&genai.GenerateContentResponse{}))
	assert.Equal(t, "", ResponseText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: nil}},
	}))
}

func TestTokenCounterEnforcesRequestLimit(t *testing.T) {
	tc := &TokenCounter{limits: RateLimits{RPM: 2, TPM: 1000}}

	assert.True(t, tc.CanConsume(10, 1))
	tc.RecordUsage(10, 1)
	assert.True(t, tc.CanConsume(10, 1))
	tc.RecordUsage(10, 1)
	assert.False(t, tc.CanConsume(10, 1))
}

func TestTokenCounterEnforcesTokenLimit(t *testing.T) {
	tc := &TokenCounter{limits: RateLimits{RPM: 100, TPM: 100}}

	assert.True(t, tc.CanConsume(90, 1))
	tc.RecordUsage(90, 1)
	assert.False(t, tc.CanConsume(20, 1))
	assert.True(t, tc.CanConsume(10, 1))
}

func TestGetRateLimitsTiers(t *testing.T) {
	assert.Equal(t, RateLimits{RPM: 10, TPM: 250000}, getRateLimits("free"))
	assert.Equal(t, RateLimits{RPM: 1000, TPM: 1000000}, getRateLimits("tier1"))
	assert.Equal(t, RateLimits{RPM: 2000, TPM: 4000000}, getRateLimits("tier2"))
	assert.Equal(t, RateLimits{RPM: 10, TPM: 250000}, getRateLimits("unknown"))
}

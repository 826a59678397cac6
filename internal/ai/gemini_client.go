package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"studysync-backend/internal/logger"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

type GeminiClient struct {
	apiKey       string
	breaker      *gobreaker.CircuitBreaker
	rateLimiter  *rate.Limiter
	tokenCounter *TokenCounter
	client       *genai.Client
	defaultModel string
	tier         string
}

type TokenCounter struct {
	mu              sync.Mutex
	minuteTokens    int
	minuteRequests  int
	lastMinuteReset time.Time
	limits          RateLimits
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
}

func NewGeminiClient(apiKey, defaultModel, tier string) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	limits := getRateLimits(tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10+1)

	return &GeminiClient{
		apiKey:       apiKey,
		breaker:      breaker,
		rateLimiter:  rateLimiter,
		tokenCounter: &TokenCounter{limits: limits},
		client:       client,
		defaultModel: defaultModel,
		tier:         tier,
	}, nil
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 10, TPM: 250000}
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000}
	default:
		return RateLimits{RPM: 10, TPM: 250000}
	}
}

// resolveModel maps an optional client-requested model name onto a generative
// model handle, falling back to the configured default.
func (gc *GeminiClient) resolveModel(name string) *genai.GenerativeModel {
	if name == "" {
		name = gc.defaultModel
	}
	model := gc.client.GenerativeModel(name)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(2048)
	return model
}

// AnswerQuestion runs a single batch generation call for one extracted
// question, with retrieved lecture context prepended when available. Failures
// never propagate as errors: the return value is either the model's answer or
// a human-readable error string, so a bad question cannot abort the pipeline.
func (gc *GeminiClient) AnswerQuestion(ctx context.Context, modelName, question, contextText string) string {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.answer_question")
	defer span.End()

	prompt := BuildAnswerPrompt(question, contextText)
	estimatedTokens := len(prompt) / 4
	span.SetAttributes(
		attribute.Int("gemini.estimated_tokens", estimatedTokens),
		attribute.Bool("gemini.has_context", contextText != ""),
	)

	if !gc.tokenCounter.CanConsume(estimatedTokens, 1) {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "Error: Gemini API rate limit exceeded. Please try again later."
	}

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "Error: Gemini API rate limit exceeded. Please try again later."
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.resolveModel(modelName)
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}
		gc.tokenCounter.RecordUsage(extractTokenUsage(resp), 1)
		return resp, nil
	})

	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		span.SetAttributes(attribute.String("gemini.error_message", err.Error()))
		if errors.Is(err, gobreaker.ErrOpenState) {
			return "Error: Gemini API is temporarily unavailable. Please try again in a moment."
		}
		return GenerationErrorMessage(err)
	}

	answer := ResponseText(result.(*genai.GenerateContentResponse))
	if answer == "" {
		return "No answer generated from Gemini"
	}

	span.SetAttributes(attribute.Int("gemini.answer_length", len(answer)))
	return answer
}

// StreamAnswer opens a streaming generation call and forwards every text
// fragment to emit as it arrives. The accumulated full text is returned for
// persistence. An emit error (client gone) stops the stream.
func (gc *GeminiClient) StreamAnswer(ctx context.Context, modelName, fullPrompt string, emit func(chunk string) error) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.stream_answer")
	defer span.End()

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	model := gc.resolveModel(modelName)
	iter := model.GenerateContentStream(ctx, genai.Text(fullPrompt))

	var complete string
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			span.SetAttributes(attribute.Bool("gemini.error", true))
			return complete, err
		}

		chunk := ResponseText(resp)
		if chunk == "" {
			continue
		}

		complete += chunk
		if err := emit(chunk); err != nil {
			return complete, err
		}
	}

	gc.tokenCounter.RecordUsage(len(complete)/4, 1)
	span.SetAttributes(attribute.Int("gemini.answer_length", len(complete)))
	return complete, nil
}

// ResponseText normalizes a generation response into plain text. Providers
// ship heterogeneous part shapes across SDK versions; anything that is not
// text is skipped rather than stringified into the answer.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var out string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			switch v := part.(type) {
			case genai.Text:
				out += string(v)
			case fmt.Stringer:
				out += v.String()
			}
		}
	}
	return out
}

// GenerationErrorMessage converts an upstream generation failure into the
// user-facing string embedded in the answer field. Invalid key, access denied
// and rate limiting get distinct messages.
func GenerationErrorMessage(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 400:
			return "Error: Invalid API request. Check your Gemini API key."
		case 403:
			return "Error: Gemini API access denied. Check API key permissions."
		case 429:
			return "Error: Gemini API rate limit exceeded. Please try again later."
		}
	}
	return fmt.Sprintf("Error generating answer: %v", err)
}

func (tc *TokenCounter) CanConsume(tokens, requests int) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	now := time.Now()
	if now.Sub(tc.lastMinuteReset) >= time.Minute {
		tc.minuteTokens = 0
		tc.minuteRequests = 0
		tc.lastMinuteReset = now
	}

	if tc.minuteRequests+requests > tc.limits.RPM {
		return false
	}
	if tc.minuteTokens+tokens > tc.limits.TPM {
		return false
	}

	return true
}

func (tc *TokenCounter) RecordUsage(tokens, requests int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.minuteTokens += tokens
	tc.minuteRequests += requests
}

// Extract token usage from Gemini response
func extractTokenUsage(resp *genai.GenerateContentResponse) int {
	if resp.UsageMetadata != nil {
		return int(resp.UsageMetadata.TotalTokenCount)
	}

	// Fallback: ~4 characters per token
	estimated := len(ResponseText(resp)) / 4
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}

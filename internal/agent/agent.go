package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Agent wraps the Gemini client and model used for criteria extraction,
// rule generation and transaction risk assessment.
type Agent struct {
	client *genai.Client
	model  *genai.GenerativeModel

	// maxRetries bounds model invocations; backoff doubles per attempt.
	maxRetries int
}

const defaultModel = "gemini-2.5-flash"

// NewAgent initializes the Gemini client. If the API key is empty, the
// caller receives a nil Agent and no error so that commands can decide how
// to handle missing configuration.
func NewAgent(ctx context.Context, apiKey string) (*Agent, error) {
	if apiKey == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := client.GenerativeModel(defaultModel)
	model.SafetySettings = []*genai.SafetySetting{
		{
			Category:  genai.HarmCategoryHarassment,
			Threshold: genai.HarmBlockNone,
		},
		{
			Category:  genai.HarmCategoryHateSpeech,
			Threshold: genai.HarmBlockNone,
		},
		{
			Category:  genai.HarmCategorySexuallyExplicit,
			Threshold: genai.HarmBlockNone,
		},
		{
			Category:  genai.HarmCategoryDangerousContent,
			Threshold: genai.HarmBlockNone,
		},
	}

	return &Agent{
		client:     client,
		model:      model,
		maxRetries: 3,
	}, nil
}

// Close releases underlying resources.
func (a *Agent) Close() {
	if a == nil || a.client == nil {
		return
	}
	if err := a.client.Close(); err != nil {
		log.Printf("warning: failed to close Gemini client: %v", err)
	}
}

// generate invokes the model with a system prompt and user payload,
// retrying transient failures with exponential backoff (1s, 2s, 4s).
// The shared model is copied per call so that concurrent callers with
// different system prompts do not interfere with each other.
func (a *Agent) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if a == nil || a.model == nil {
		return "", fmt.Errorf("ai agent is not initialized")
	}

	model := *a.model
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	var lastErr error
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<(attempt-1)) * time.Second
			log.Printf("model error (attempt %d/%d): %v, retrying in %s", attempt, a.maxRetries, lastErr, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
		if err != nil {
			lastErr = err
			continue
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = fmt.Errorf("empty response from model")
			continue
		}

		part := resp.Candidates[0].Content.Parts[0]
		textPart, ok := part.(genai.Text)
		if !ok {
			lastErr = fmt.Errorf("unexpected response type from model: %T", part)
			continue
		}
		return string(textPart), nil
	}

	return "", fmt.Errorf("model failed after %d attempts: %w", a.maxRetries, lastErr)
}

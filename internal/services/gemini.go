package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/models"
	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Gemini text generator — alternative chat provider
// Selected with CHAT_PROVIDER=gemini; produces the same message envelope as
// the OpenAI provider.
// ---------------------------------------------------------------------------

const geminiDefaultModel = "gemini-2.0-flash"

type GeminiService struct {
	apiKey string
	model  string
}

// Ensure GeminiService implements ChatService at compile time.
var _ ChatService = (*GeminiService)(nil)

func NewGeminiService(apiKey, model string) *GeminiService {
	if model == "" {
		model = geminiDefaultModel
	}
	return &GeminiService{
		apiKey: apiKey,
		model:  model,
	}
}

// GenerateMessages answers the user's question as the avatar persona using
// Gemini with a JSON response MIME type.
func (s *GeminiService) GenerateMessages(ctx context.Context, question string) ([]models.Message, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(chatSystemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0.2),
	}

	resp, err := client.Models.GenerateContent(ctx, s.model, genai.Text(question), config)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	rawContent := resp.Text()
	if rawContent == "" {
		return nil, fmt.Errorf("no response from gemini")
	}

	var envelope chatEnvelope
	if err := json.Unmarshal([]byte(rawContent), &envelope); err != nil {
		log.Printf("[Gemini chat] parse failed: %v (raw: %s)", err, truncateString(rawContent, 500))
		return nil, fmt.Errorf("failed to parse chat response: %w", err)
	}

	messages, err := normalizeMessages(envelope.Messages)
	if err != nil {
		log.Printf("[Gemini chat] invalid answer: %v (raw: %s)", err, truncateString(rawContent, 500))
		return nil, err
	}

	log.Printf("[Gemini chat] generated %d message(s)", len(messages))
	return messages, nil
}

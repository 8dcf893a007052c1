package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

type OpenAIService struct {
	client *openai.Client
	model  string
}

// Ensure OpenAIService implements ChatService at compile time.
var _ ChatService = (*OpenAIService)(nil)

func NewOpenAIService(apiKey, model string) *OpenAIService {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIService{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// GenerateMessages answers the user's question as the avatar persona using
// OpenAI JSON-mode chat completion.
func (s *OpenAIService) GenerateMessages(ctx context.Context, question string) ([]models.Message, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: chatSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: question,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	rawContent := resp.Choices[0].Message.Content

	var envelope chatEnvelope
	if err := json.Unmarshal([]byte(rawContent), &envelope); err != nil {
		log.Printf("[OpenAI chat] parse failed: %v (raw: %s)", err, truncateString(rawContent, 500))
		return nil, fmt.Errorf("failed to parse chat response: %w", err)
	}

	messages, err := normalizeMessages(envelope.Messages)
	if err != nil {
		log.Printf("[OpenAI chat] invalid answer: %v (raw: %s)", err, truncateString(rawContent, 500))
		return nil, err
	}

	log.Printf("[OpenAI chat] generated %d message(s)", len(messages))
	return messages, nil
}

// TranscribeAudio sends recorded user audio to Whisper and returns the
// transcribed text for the speech-to-speech flow.
func (s *OpenAIService) TranscribeAudio(ctx context.Context, audioData []byte) (string, error) {
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(audioData),
		FilePath: "recording.webm", // Filename hint for the API (required by the library)
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("whisper returned an empty transcription")
	}

	log.Printf("[Whisper] Transcribed user audio (%d bytes -> %q)", len(audioData), truncateString(text, 80))
	return text, nil
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

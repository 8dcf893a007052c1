package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/files"
)

// ---------------------------------------------------------------------------
// ElevenLabs Text-to-Speech Service
// Uses the ElevenLabs REST API to render message text into speech audio and
// writes the result into the audio store.
// Model: eleven_multilingual_v2 (the avatar speaks Spanish)
// ---------------------------------------------------------------------------

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsDefaultModel = "eleven_multilingual_v2"
	elevenLabsDefaultVoice = "EXAVITQu4vr4xnSDxMaL" // Clara - Spanish
	elevenLabsAudioExt     = ".mp3"
)

// ElevenLabsService handles text-to-speech via the ElevenLabs API.
type ElevenLabsService struct {
	apiKey  string
	voiceID string
	modelID string
	store   *files.Store
	client  *http.Client
	baseURL string
}

// Ensure ElevenLabsService implements TTSService at compile time.
var _ TTSService = (*ElevenLabsService)(nil)

// NewElevenLabsService creates an ElevenLabs TTS service. Empty voiceID or
// modelID fall back to the defaults.
func NewElevenLabsService(apiKey, voiceID, modelID string, store *files.Store) *ElevenLabsService {
	if voiceID == "" {
		voiceID = elevenLabsDefaultVoice
	}
	if modelID == "" {
		modelID = elevenLabsDefaultModel
	}
	return &ElevenLabsService{
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: modelID,
		store:   store,
		client:  &http.Client{Timeout: 90 * time.Second},
		baseURL: elevenLabsBaseURL,
	}
}

// VoiceKey identifies the voice/model pair this service renders with. Used
// as the cache scope so cached audio is never replayed for a different voice.
func (s *ElevenLabsService) VoiceKey() string {
	return s.voiceID + "/" + s.modelID
}

// ---------------------------------------------------------------------------
// Request types
// ---------------------------------------------------------------------------

type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// SynthesizeToFile converts text to speech and writes the audio into the
// store. Implements the TTSService interface. A 429 from the provider comes
// back as a rate-limited ProviderError so the caller's retry policy can act
// on it; any other non-200 status is fatal.
func (s *ElevenLabsService) SynthesizeToFile(ctx context.Context, text, fileName string) (*SpeechResult, error) {
	if fileName == "" {
		fileName = uuid.NewString() + elevenLabsAudioExt
	}

	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: s.modelID,
		VoiceSettings: &elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.7,
			Style:           0.2,
			UseSpeakerBoost: true,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ElevenLabs request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", s.baseURL, s.voiceID)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create ElevenLabs request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	log.Printf("[ElevenLabs] Generating speech (voiceID=%s, model=%s, textLen=%d) -> %s",
		s.voiceID, s.modelID, len(text), fileName)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ElevenLabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{
			Provider:   "ElevenLabs",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	// The response body IS the audio file
	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ElevenLabs audio response: %w", err)
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("ElevenLabs returned empty audio")
	}

	filePath, err := s.store.WriteAudio(fileName, audioData)
	if err != nil {
		return nil, err
	}

	log.Printf("[ElevenLabs] Speech generated (%d bytes) -> %s", len(audioData), filePath)

	return &SpeechResult{FileName: fileName, FilePath: filePath}, nil
}

// Voice is one entry from the provider's voice catalogue.
type Voice struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

type elevenLabsVoicesResponse struct {
	Voices []Voice `json:"voices"`
}

// ListVoices returns the voices available to the configured API key.
func (s *ElevenLabsService) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ElevenLabs voices request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{
			Provider:   "ElevenLabs",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var parsed elevenLabsVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse voices response: %w", err)
	}

	return parsed.Voices, nil
}

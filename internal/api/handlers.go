package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/files"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/models"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/services"
)

// ChatGenerator produces the avatar's answer to a question.
type ChatGenerator interface {
	GenerateMessages(ctx context.Context, question string) ([]models.Message, error)
}

// Transcriber turns recorded user audio into text.
type Transcriber interface {
	TranscribeAudio(ctx context.Context, audioData []byte) (string, error)
}

// MessagePipeline attaches speech audio and lipsync to a message batch.
type MessagePipeline interface {
	Run(ctx context.Context, messages []models.Message, hostBase string) ([]models.Message, error)
}

// VoiceLister exposes the TTS provider's voice catalogue.
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]services.Voice, error)
}

type Handler struct {
	chat           ChatGenerator
	transcriber    Transcriber
	pipeline       MessagePipeline
	voices         VoiceLister
	files          *files.Store
	publicHostURL  string
	keysConfigured bool
}

func NewHandler(chat ChatGenerator, transcriber Transcriber, pipeline MessagePipeline, voices VoiceLister, store *files.Store, publicHostURL string, keysConfigured bool) *Handler {
	return &Handler{
		chat:           chat,
		transcriber:    transcriber,
		pipeline:       pipeline,
		voices:         voices,
		files:          store,
		publicHostURL:  publicHostURL,
		keysConfigured: keysConfigured,
	}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListVoices handles GET /voices
func (h *Handler) ListVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := h.voices.ListVoices(r.Context())
	if err != nil {
		log.Printf("[Voices] Failed to list voices: %v", err)
		respondError(w, http.StatusBadGateway, "Could not fetch voices")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"voices": voices})
}

// Chat handles POST /tts: a typed user message in, talking messages out.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// No question yet: greet with the pre-rendered intro
	if strings.TrimSpace(req.Message) == "" {
		respondJSON(w, http.StatusOK, models.MessagesResponse{Messages: h.loadPreRendered(introSet)})
		return
	}

	if !h.keysConfigured {
		respondJSON(w, http.StatusOK, models.MessagesResponse{Messages: h.loadPreRendered(missingKeysSet)})
		return
	}

	h.respondGenerated(w, r, req.Message)
}

// SpeechToSpeech handles POST /sts: recorded user audio in, talking
// messages out.
func (h *Handler) SpeechToSpeech(w http.ResponseWriter, r *http.Request) {
	var req models.SpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	audioData, err := decodeAudioPayload(req.Audio)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid base64 audio payload")
		return
	}

	if !h.keysConfigured {
		respondJSON(w, http.StatusOK, models.MessagesResponse{Messages: h.loadPreRendered(missingKeysSet)})
		return
	}

	question, err := h.transcriber.TranscribeAudio(r.Context(), audioData)
	if err != nil {
		log.Printf("[STS] Transcription failed, answering with fallback: %v", err)
		respondJSON(w, http.StatusOK, models.MessagesResponse{Messages: copyMessages(fallbackMessages)})
		return
	}

	h.respondGenerated(w, r, question)
}

// respondGenerated runs the full turn: text generation, then the
// message-to-media pipeline. Both failure modes end in the safe fallback
// set with HTTP 200 — the user always gets a playable response.
func (h *Handler) respondGenerated(w http.ResponseWriter, r *http.Request, question string) {
	messages, err := h.chat.GenerateMessages(r.Context(), question)
	if err != nil {
		log.Printf("[Chat] Text generation failed, using fallback messages: %v", err)
		messages = copyMessages(fallbackMessages)
	}

	hostBase := h.resolveHostBase(r)

	processed, err := h.pipeline.Run(r.Context(), messages, hostBase)
	if err != nil {
		log.Printf("[Pipeline] Batch failed, answering with fallback: %v", err)
		respondJSON(w, http.StatusOK, models.MessagesResponse{Messages: copyMessages(fallbackMessages)})
		return
	}

	respondJSON(w, http.StatusOK, models.MessagesResponse{Messages: processed})
}

// resolveHostBase picks the base URL audio links are built against: the
// configured public URL when set, otherwise the URL the client used.
func (h *Handler) resolveHostBase(r *http.Request) string {
	if h.publicHostURL != "" {
		return strings.TrimSuffix(h.publicHostURL, "/")
	}
	if r.Host == "" {
		return ""
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// decodeAudioPayload decodes the base64 recording, tolerating a data-URL
// prefix some browsers include.
func decodeAudioPayload(payload string) ([]byte, error) {
	if idx := strings.Index(payload, ","); idx != -1 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

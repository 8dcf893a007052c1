package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/api"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/cache"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/config"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/files"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/pipeline"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/services"
)

func main() {
	log.Println("Starting avatar API...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Audio store — every synthesized file and transcript lives here
	store := files.NewStore(cfg.AudioDir)
	if err := store.EnsureDir(); err != nil {
		log.Fatalf("Failed to prepare audio directory: %v", err)
	}
	log.Printf("[Audio] Directory ready at %s", store.Dir)

	// Speech synthesis, optionally fronted by the Redis audio cache
	elevenlabs := services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID, cfg.ElevenLabsModelID, store)

	var tts services.TTSService = elevenlabs
	if cfg.RedisURL != "" {
		audioCache, err := cache.New(cfg.RedisURL)
		if err != nil {
			log.Printf("WARNING: audio cache disabled, Redis unreachable: %v", err)
		} else {
			defer audioCache.Close()
			tts = &cache.TTS{
				Inner: elevenlabs,
				Store: store,
				Cache: audioCache,
				Scope: elevenlabs.VoiceKey(),
			}
			log.Println("Synthesized-audio cache enabled")
		}
	}

	// Text generator — OpenAI preferred, Gemini as the alternative
	openaiSvc := services.NewOpenAIService(cfg.OpenAIKey, cfg.OpenAIModel)

	var chat services.ChatService = openaiSvc
	if cfg.ChatProvider == "gemini" {
		chat = services.NewGeminiService(cfg.GeminiKey, cfg.GeminiModel)
		log.Printf("Chat provider: Gemini")
	} else {
		log.Printf("Chat provider: OpenAI")
	}

	// Phoneme extraction (ffmpeg + rhubarb external processes)
	rhubarb := services.NewRhubarbService(cfg.FFmpegPath, cfg.RhubarbPath)

	retry := pipeline.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.TTSMaxRetries
	if cfg.TTSRetryDelayMs > 0 {
		retry.Backoff = pipeline.ConstantBackoff(time.Duration(cfg.TTSRetryDelayMs) * time.Millisecond)
	}

	pipe := pipeline.New(tts, rhubarb, store, retry, cfg.MaxConcurrentSynthesis)

	if !cfg.KeysConfigured() {
		log.Println("WARNING: provider API keys missing — serving pre-rendered fallback messages")
	}

	handler := api.NewHandler(chat, openaiSvc, pipe, elevenlabs, store, cfg.PublicHostURL, cfg.KeysConfigured())
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
		AudioDir:           cfg.AudioDir,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("API server listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

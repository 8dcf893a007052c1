// introgen pre-renders the static intro and missing-keys message sets:
// speech audio plus phoneme transcripts, written into the audio store so the
// API can answer without touching any provider.
package main

import (
	"context"
	"log"
	"time"

	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/config"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/files"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/services"
)

type introMessage struct {
	baseName string
	text     string
}

var introMessages = []introMessage{
	{"intro_0", "¡Hola! Qué alegría verte."},
	{"intro_1", "Soy Liz, tu asistente virtual en salud y bienestar pélvica. Estoy aquí para acompañarte paso a paso, con empatía y claridad, en todo lo que necesites aprender sobre tu salud íntima."},
	{"api_0", "Please my friend, don't forget to add your API keys!"},
	{"api_1", "You don't want to ruin Jack with a crazy ChatGPT and ElevenLabs bill, right?"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.ElevenLabsKey == "" {
		log.Fatal("ELEVEN_LABS_API_KEY is required to pre-render intro audio")
	}

	store := files.NewStore(cfg.AudioDir)
	if err := store.EnsureDir(); err != nil {
		log.Fatalf("Failed to prepare audio directory: %v", err)
	}

	tts := services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID, cfg.ElevenLabsModelID, store)
	rhubarb := services.NewRhubarbService(cfg.FFmpegPath, cfg.RhubarbPath)

	ctx := context.Background()

	for _, msg := range introMessages {
		log.Printf("Rendering %s: %q", msg.baseName, msg.text)

		synthCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		result, err := tts.SynthesizeToFile(synthCtx, msg.text, msg.baseName+".mp3")
		cancel()
		if err != nil {
			log.Fatalf("Synthesis failed for %s: %v", msg.baseName, err)
		}

		extractCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		transcriptPath, err := rhubarb.ExtractPhonemes(extractCtx, result.FilePath)
		cancel()
		if err != nil {
			log.Fatalf("Phoneme extraction failed for %s: %v", msg.baseName, err)
		}

		log.Printf("Rendered %s -> %s, %s", msg.baseName, result.FilePath, transcriptPath)
	}

	log.Printf("All %d intro messages rendered into %s", len(introMessages), store.Dir)
}

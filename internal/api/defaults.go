package api

import (
	"log"

	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/models"
)

// fallbackMessages is the safe answer when the text generator or the media
// pipeline fails. It has no audio; the client falls back to text.
var fallbackMessages = []models.Message{
	{
		Text:             "I'm sorry, there seems to be an error with my brain, or I didn't understand. Could you please repeat your question?",
		FacialExpression: models.ExpressionSad,
		Animation:        models.AnimationIdle,
	},
}

// preRendered is one message whose audio and transcript were produced ahead
// of time (see cmd/introgen) and live in the audio store under baseName.
type preRendered struct {
	baseName   string
	text       string
	expression models.FacialExpression
	animation  models.Animation
}

// introSet greets a visitor who hasn't asked anything yet.
var introSet = []preRendered{
	{
		baseName:   "intro_0",
		text:       "¡Hola! Qué alegría verte.",
		expression: models.ExpressionSmile,
		animation:  models.AnimationTalkingOne,
	},
	{
		baseName:   "intro_1",
		text:       "Soy Liz, tu asistente virtual en salud y bienestar pélvica. Estoy aquí para acompañarte paso a paso, con empatía y claridad, en todo lo que necesites aprender sobre tu salud íntima.",
		expression: models.ExpressionSmile,
		animation:  models.AnimationTalkingTwo,
	},
}

// missingKeysSet answers every question while provider credentials are absent.
var missingKeysSet = []preRendered{
	{
		baseName:   "api_0",
		text:       "Please my friend, don't forget to add your API keys!",
		expression: models.ExpressionAngry,
		animation:  models.AnimationTalkingThree,
	},
	{
		baseName:   "api_1",
		text:       "You don't want to ruin Jack with a crazy ChatGPT and ElevenLabs bill, right?",
		expression: models.ExpressionSmile,
		animation:  models.AnimationAngry,
	},
}

// loadPreRendered assembles a pre-rendered set, attaching inline audio and
// lipsync from the store. Missing asset files only log; the text still plays.
func (h *Handler) loadPreRendered(set []preRendered) []models.Message {
	messages := make([]models.Message, 0, len(set))
	for _, pr := range set {
		m := models.Message{
			Text:             pr.text,
			FacialExpression: pr.expression,
			Animation:        pr.animation,
		}

		if audio, err := h.files.ReadAudioBase64(pr.baseName + ".mp3"); err != nil {
			log.Printf("[Defaults] Missing pre-rendered audio %s: %v", pr.baseName, err)
		} else {
			m.Audio = audio
		}

		if transcript, err := h.files.ReadTranscript(pr.baseName + ".json"); err != nil {
			log.Printf("[Defaults] Missing pre-rendered transcript %s: %v", pr.baseName, err)
		} else {
			m.Lipsync = transcript
		}

		messages = append(messages, m)
	}
	return messages
}

// copyMessages returns a fresh slice so the pipeline's in-place mutation
// never touches a shared default set.
func copyMessages(src []models.Message) []models.Message {
	out := make([]models.Message, len(src))
	copy(out, src)
	return out
}

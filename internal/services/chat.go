package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/models"
)

// ---------------------------------------------------------------------------
// ChatService — common interface for text generators
// Both OpenAI and Gemini implement this interface so the API layer can use
// whichever provider is configured without knowing the underlying model.
// ---------------------------------------------------------------------------

// maxChatMessages caps a single turn; the playback client animates at most
// three messages per answer.
const maxChatMessages = 3

// ChatService is the interface that any text generator must implement.
type ChatService interface {
	// GenerateMessages answers the user's question with up to three messages,
	// each tagged with a facial expression and an animation clip.
	GenerateMessages(ctx context.Context, question string) ([]models.Message, error)
}

// chatSystemPrompt is the avatar persona shared by every chat provider.
const chatSystemPrompt = `Eres Liz, una fisioterapeuta experta en rehabilitación del piso pélvico.
Hablas español, con tono cálido, empático y humano.
Escuchas con respeto, validas emociones y ofreces orientación clara y segura.
No das diagnósticos médicos; enseñas ejercicios básicos y cuidados preventivos.
Tu meta es generar confianza y bienestar en cada conversación.
Responde siempre en español, manteniendo un estilo cercano y humano.
Debes responder exclusivamente con un objeto JSON con una propiedad "messages":
un arreglo de hasta 3 mensajes. Cada mensaje debe incluir las propiedades
text, facialExpression y animation.
Las expresiones válidas son: smile, sad, angry, surprised, funnyFace y default.
Las animaciones válidas son: Idle, TalkingOne, TalkingTwo, TalkingThree, SadIdle,
Defeated, Angry, Surprised, DismissingGesture y ThoughtfulHeadShake.`

// chatEnvelope is the JSON shape both providers are instructed to emit.
type chatEnvelope struct {
	Messages []models.Message `json:"messages"`
}

// normalizeMessages validates and repairs a provider answer: empty-text
// messages are rejected, unknown tags fall back to safe defaults, and the
// batch is clamped to the message cap.
func normalizeMessages(messages []models.Message) ([]models.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("text generator returned no messages")
	}
	if len(messages) > maxChatMessages {
		messages = messages[:maxChatMessages]
	}

	for i := range messages {
		messages[i].Text = strings.TrimSpace(messages[i].Text)
		if messages[i].Text == "" {
			return nil, fmt.Errorf("text generator returned an empty message at index %d", i)
		}
		if !models.ValidExpression(messages[i].FacialExpression) {
			messages[i].FacialExpression = models.ExpressionDefault
		}
		if !models.ValidAnimation(messages[i].Animation) {
			messages[i].Animation = models.AnimationIdle
		}
	}

	return messages, nil
}

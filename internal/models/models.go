package models

// Enums
type FacialExpression string

const (
	ExpressionSmile     FacialExpression = "smile"
	ExpressionSad       FacialExpression = "sad"
	ExpressionAngry     FacialExpression = "angry"
	ExpressionSurprised FacialExpression = "surprised"
	ExpressionFunnyFace FacialExpression = "funnyFace"
	ExpressionDefault   FacialExpression = "default"
)

type Animation string

const (
	AnimationIdle                Animation = "Idle"
	AnimationTalkingOne          Animation = "TalkingOne"
	AnimationTalkingTwo          Animation = "TalkingTwo"
	AnimationTalkingThree        Animation = "TalkingThree"
	AnimationSadIdle             Animation = "SadIdle"
	AnimationDefeated            Animation = "Defeated"
	AnimationAngry               Animation = "Angry"
	AnimationSurprised           Animation = "Surprised"
	AnimationDismissingGesture   Animation = "DismissingGesture"
	AnimationThoughtfulHeadShake Animation = "ThoughtfulHeadShake"
)

// ValidExpression reports whether e is one of the expression tags the
// playback client understands.
func ValidExpression(e FacialExpression) bool {
	switch e {
	case ExpressionSmile, ExpressionSad, ExpressionAngry,
		ExpressionSurprised, ExpressionFunnyFace, ExpressionDefault:
		return true
	}
	return false
}

// ValidAnimation reports whether a is one of the animation clips the
// playback client can play.
func ValidAnimation(a Animation) bool {
	switch a {
	case AnimationIdle, AnimationTalkingOne, AnimationTalkingTwo,
		AnimationTalkingThree, AnimationSadIdle, AnimationDefeated,
		AnimationAngry, AnimationSurprised, AnimationDismissingGesture,
		AnimationThoughtfulHeadShake:
		return true
	}
	return false
}

// Message is one conversational turn as delivered to the playback client.
// Text, FacialExpression and Animation come from the text generator; the
// pipeline fills in AudioFileName, AudioURL and Lipsync as synthesis and
// phoneme extraction complete. Audio carries inline base64 audio and is only
// set on the pre-rendered intro/fallback message sets.
type Message struct {
	Text             string           `json:"text"`
	FacialExpression FacialExpression `json:"facialExpression"`
	Animation        Animation        `json:"animation"`
	Audio            string           `json:"audio,omitempty"`
	AudioFileName    string           `json:"-"`
	AudioURL         *string          `json:"audioUrl,omitempty"`
	Lipsync          *Transcript      `json:"lipsync,omitempty"`
}

// Transcript is the timed viseme track produced by the phoneme analyzer for
// one audio asset. MouthCues are ordered and non-overlapping by construction
// of the analyzer.
type Transcript struct {
	Metadata  TranscriptMetadata `json:"metadata"`
	MouthCues []MouthCue         `json:"mouthCues"`
}

type TranscriptMetadata struct {
	SoundFile string  `json:"soundFile"`
	Duration  float64 `json:"duration"`
}

// MouthCue asserts that a viseme is active between Start and End (seconds).
type MouthCue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Value string  `json:"value"`
}

// API request/response envelopes

type ChatRequest struct {
	Message string `json:"message"`
}

// SpeechRequest carries a base64-encoded user audio recording for the
// speech-to-speech endpoint.
type SpeechRequest struct {
	Audio string `json:"audio"`
}

type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

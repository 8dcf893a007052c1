package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ---------------------------------------------------------------------------
// TTSService — common interface for text-to-speech providers
// The pipeline only depends on this interface, so tests can substitute a
// fake provider and a different provider can be wired in without touching
// the orchestrator.
// ---------------------------------------------------------------------------

// SpeechResult describes a completed synthesis: the file identifier inside
// the audio store and the resolved path it was written to. Both are only
// valid after the synthesis call returned without error.
type SpeechResult struct {
	FileName string
	FilePath string
}

// TTSService is the interface that any TTS provider must implement.
type TTSService interface {
	// SynthesizeToFile renders text to speech and writes the audio bytes to
	// fileName inside the audio store. An empty fileName makes the provider
	// generate a collision-resistant name, so repeated identical text never
	// collides.
	SynthesizeToFile(ctx context.Context, text, fileName string) (*SpeechResult, error)
}

// ProviderError is a non-2xx answer from a remote provider. Keeping the
// status code lets callers distinguish rate limiting (retryable) from every
// other failure (fatal).
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// IsRateLimited reports whether err is a provider rate-limit rejection.
// This is the only failure class the synthesis retry policy retries.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.StatusCode == http.StatusTooManyRequests
}

package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/files"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/models"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/services"
	"golang.org/x/sync/errgroup"
)

// PhonemeExtractor produces a timed transcript file for a synthesized audio
// file. Implemented by services.RhubarbService; faked in tests.
type PhonemeExtractor interface {
	ExtractPhonemes(ctx context.Context, sourcePath string) (string, error)
}

// RetryPolicy governs how synthesis failures are retried. Only errors the
// Retryable predicate accepts are retried; everything else aborts the batch.
type RetryPolicy struct {
	MaxAttempts int
	// Backoff returns the wait before retry attempt n (1-based). Nil means
	// retry immediately.
	Backoff func(attempt int) time.Duration
	// Retryable classifies an error as transient. Nil means nothing is.
	Retryable func(err error) bool
}

// DefaultRetryPolicy retries provider rate limiting up to 10 times with no
// delay, matching the provider's own burst accounting.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 10,
		Retryable:   services.IsRateLimited,
	}
}

// ConstantBackoff returns a Backoff that always waits d.
func ConstantBackoff(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// Pipeline turns a batch of text messages into talking messages: speech
// audio under a public URL plus a timed viseme track per message.
type Pipeline struct {
	tts           services.TTSService
	extractor     PhonemeExtractor
	store         *files.Store
	retry         RetryPolicy
	maxConcurrent int // 0 = bounded only by batch size
}

func New(tts services.TTSService, extractor PhonemeExtractor, store *files.Store, retry RetryPolicy, maxConcurrent int) *Pipeline {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Pipeline{
		tts:           tts,
		extractor:     extractor,
		store:         store,
		retry:         retry,
		maxConcurrent: maxConcurrent,
	}
}

// Run synthesizes speech and extracts phonemes for every message in the
// batch and returns the batch in its original order.
//
// Two strictly sequenced phases, each fanned out per message:
//
//  1. Synthesis. Every message is rendered concurrently under the retry
//     policy. Any non-retryable failure (or retry exhaustion) fails the
//     whole batch — partial speech for a multi-message turn is worse than a
//     clean fallback.
//  2. Extraction. Only after every audio file is fully written, phonemes are
//     extracted concurrently and transcripts attached. A failure here only
//     degrades its own message to "no lipsync".
//
// The phase boundary is what keeps the converter from ever reading an audio
// file that is still being written.
func (p *Pipeline) Run(ctx context.Context, messages []models.Message, hostBase string) ([]models.Message, error) {
	if len(messages) == 0 {
		return messages, nil
	}

	if err := p.store.EnsureDir(); err != nil {
		return nil, err
	}

	// File names carry a batch stamp so concurrent batches never collide and
	// stale client caches never replay an older answer's audio.
	stamp := time.Now().UnixMilli()

	// ── Phase 1: synthesize all messages ───────────────────────────────
	results := make([]*services.SpeechResult, len(messages))

	g, gctx := errgroup.WithContext(ctx)
	if p.maxConcurrent > 0 {
		g.SetLimit(p.maxConcurrent)
	}

	for i := range messages {
		i := i
		g.Go(func() error {
			fileName := fmt.Sprintf("message_%d_%d.mp3", stamp, i)
			log.Printf("[Audio] Generating speech for message %d -> %s", i, fileName)

			result, err := p.synthesizeWithRetry(gctx, messages[i].Text, fileName)
			if err != nil {
				return fmt.Errorf("failed to synthesize audio for message %d: %w", i, err)
			}

			results[i] = result
			log.Printf("[Audio] Speech synthesis completed for message %d", i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// ── Phase 2: extract phonemes, attach URLs and transcripts ─────────
	g, gctx = errgroup.WithContext(ctx)
	if p.maxConcurrent > 0 {
		g.SetLimit(p.maxConcurrent)
	}

	for i := range messages {
		i := i
		g.Go(func() error {
			result := results[i]
			if result == nil {
				// Cannot happen after a clean phase 1; degrade rather than trust it
				log.Printf("[LipSync] No synthesized audio for message %d", i)
				return nil
			}

			messages[i].AudioFileName = result.FileName
			if url := p.store.BuildPublicURL(result.FileName, hostBase); url != "" {
				versioned := fmt.Sprintf("%s?v=%d", url, stamp)
				messages[i].AudioURL = &versioned
			} else {
				log.Printf("[Audio] Missing audio URL for message %d", i)
			}

			transcriptPath, err := p.extractor.ExtractPhonemes(gctx, result.FilePath)
			if err != nil {
				// Degraded outcome: the message still plays, mouth stays idle
				log.Printf("[LipSync] Phoneme extraction failed for message %d, continuing without lip sync: %v", i, err)
				return nil
			}

			transcript, err := p.store.ReadTranscript(transcriptPath)
			if err != nil {
				log.Printf("[LipSync] Transcript read failed for message %d, continuing without lip sync: %v", i, err)
				return nil
			}

			messages[i].Lipsync = transcript
			return nil
		})
	}

	// Extraction goroutines never return errors; Wait only joins them
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return messages, nil
}

// synthesizeWithRetry applies the retry policy around one synthesis call.
// After the attempts are exhausted the last error is returned.
func (p *Pipeline) synthesizeWithRetry(ctx context.Context, text, fileName string) (*services.SpeechResult, error) {
	var lastErr error

	for attempt := 1; attempt <= p.retry.MaxAttempts; attempt++ {
		if attempt > 1 && p.retry.Backoff != nil {
			if wait := p.retry.Backoff(attempt - 1); wait > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(wait):
				}
			}
		}

		result, err := p.tts.SynthesizeToFile(ctx, text, fileName)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if p.retry.Retryable == nil || !p.retry.Retryable(err) {
			return nil, err
		}
		log.Printf("[Audio] Rate limited (attempt %d/%d) for %s", attempt, p.retry.MaxAttempts, fileName)
	}

	return nil, lastErr
}

package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/files"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/models"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/services"
)

// fakeTTS writes a stub audio file and counts calls per message text.
// fail is consulted with the 1-based call number for that text.
type fakeTTS struct {
	store *files.Store
	fail  func(text string, call int) error

	mu    sync.Mutex
	calls map[string]int
}

func newFakeTTS(store *files.Store) *fakeTTS {
	return &fakeTTS{store: store, calls: map[string]int{}}
}

func (f *fakeTTS) callCount(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[text]
}

func (f *fakeTTS) SynthesizeToFile(ctx context.Context, text, fileName string) (*services.SpeechResult, error) {
	f.mu.Lock()
	f.calls[text]++
	call := f.calls[text]
	f.mu.Unlock()

	if f.fail != nil {
		if err := f.fail(text, call); err != nil {
			return nil, err
		}
	}

	path, err := f.store.WriteAudio(fileName, []byte("fake audio"))
	if err != nil {
		return nil, err
	}
	return &services.SpeechResult{FileName: fileName, FilePath: path}, nil
}

// fakeExtractor writes a two-cue transcript next to the source file.
type fakeExtractor struct {
	fail func(sourcePath string) error
}

func (f *fakeExtractor) ExtractPhonemes(ctx context.Context, sourcePath string) (string, error) {
	if f.fail != nil {
		if err := f.fail(sourcePath); err != nil {
			return "", err
		}
	}

	jsonPath := strings.TrimSuffix(sourcePath, ".mp3") + ".json"
	transcript := `{"metadata":{"soundFile":"fake.wav","duration":1.0},` +
		`"mouthCues":[{"start":0,"end":0.5,"value":"X"},{"start":0.5,"end":1.0,"value":"A"}]}`
	if err := os.WriteFile(jsonPath, []byte(transcript), 0644); err != nil {
		return "", err
	}
	return jsonPath, nil
}

func rateLimitErr() error {
	return &services.ProviderError{Provider: "fake", StatusCode: 429, Body: "rate limited"}
}

func batch(texts ...string) []models.Message {
	messages := make([]models.Message, len(texts))
	for i, text := range texts {
		messages[i] = models.Message{
			Text:             text,
			FacialExpression: models.ExpressionSmile,
			Animation:        models.AnimationTalkingOne,
		}
	}
	return messages
}

func newTestPipeline(t *testing.T, tts services.TTSService, extractor PhonemeExtractor) (*Pipeline, *files.Store) {
	t.Helper()
	store := files.NewStore(t.TempDir())
	if tts == nil {
		tts = newFakeTTS(store)
	}
	if extractor == nil {
		extractor = &fakeExtractor{}
	}
	return New(tts, extractor, store, DefaultRetryPolicy(), 0), store
}

func TestRunPreservesOrder(t *testing.T) {
	store := files.NewStore(t.TempDir())
	tts := newFakeTTS(store)
	// Later messages finish first, so completion order is roughly reversed
	tts.fail = func(text string, call int) error {
		if text == "first" {
			time.Sleep(30 * time.Millisecond)
		} else if text == "second" {
			time.Sleep(15 * time.Millisecond)
		}
		return nil
	}

	p := New(tts, &fakeExtractor{}, store, DefaultRetryPolicy(), 0)

	in := batch("first", "second", "third", "fourth")
	out, err := p.Run(context.Background(), in, "http://localhost:3000")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(out) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(out))
	}
	for i, want := range []string{"first", "second", "third", "fourth"} {
		if out[i].Text != want {
			t.Errorf("message %d: got %q, want %q", i, out[i].Text, want)
		}
	}
}

func TestFatalSynthesisFailureFailsBatch(t *testing.T) {
	store := files.NewStore(t.TempDir())
	tts := newFakeTTS(store)
	tts.fail = func(text string, call int) error {
		if text == "broken" {
			return &services.ProviderError{Provider: "fake", StatusCode: 500, Body: "boom"}
		}
		return nil
	}

	p := New(tts, &fakeExtractor{}, store, DefaultRetryPolicy(), 0)

	_, err := p.Run(context.Background(), batch("ok", "broken", "also ok"), "http://localhost:3000")
	if err == nil {
		t.Fatal("expected batch failure on non-retryable synthesis error")
	}
	if tts.callCount("broken") != 1 {
		t.Errorf("non-retryable error was retried: %d calls", tts.callCount("broken"))
	}
}

func TestRateLimitRetriedThenSucceeds(t *testing.T) {
	store := files.NewStore(t.TempDir())
	tts := newFakeTTS(store)
	tts.fail = func(text string, call int) error {
		if text == "limited" && call == 1 {
			return rateLimitErr()
		}
		return nil
	}

	p := New(tts, &fakeExtractor{}, store, DefaultRetryPolicy(), 0)

	out, err := p.Run(context.Background(), batch("limited", "plain"), "http://localhost:3000")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if out[0].AudioURL == nil {
		t.Error("retried message has no audio URL")
	}
	if got := tts.callCount("limited"); got != 2 {
		t.Errorf("expected exactly 2 provider calls, got %d", got)
	}
}

func TestRateLimitExhaustionFailsBatch(t *testing.T) {
	store := files.NewStore(t.TempDir())
	tts := newFakeTTS(store)
	tts.fail = func(text string, call int) error {
		return rateLimitErr()
	}

	p := New(tts, &fakeExtractor{}, store, DefaultRetryPolicy(), 0)

	_, err := p.Run(context.Background(), batch("hopeless"), "http://localhost:3000")
	if err == nil {
		t.Fatal("expected batch failure after retry exhaustion")
	}
	if !services.IsRateLimited(err) {
		t.Errorf("expected last rate-limit error to surface, got: %v", err)
	}
	if got := tts.callCount("hopeless"); got != 10 {
		t.Errorf("expected 10 attempts, got %d", got)
	}
}

func TestExtractionFailureDegradesSingleMessage(t *testing.T) {
	store := files.NewStore(t.TempDir())
	tts := newFakeTTS(store)
	extractor := &fakeExtractor{
		fail: func(sourcePath string) error {
			if strings.Contains(sourcePath, "_1.mp3") {
				return fmt.Errorf("analyzer crashed")
			}
			return nil
		},
	}

	p := New(tts, extractor, store, DefaultRetryPolicy(), 0)

	out, err := p.Run(context.Background(), batch("fine", "degraded", "also fine"), "http://localhost:3000")
	if err != nil {
		t.Fatalf("extraction failure must not fail the batch: %v", err)
	}

	if out[1].AudioURL == nil {
		t.Error("degraded message lost its audio URL")
	}
	if out[1].Lipsync != nil {
		t.Error("degraded message should have no lipsync")
	}
	for _, i := range []int{0, 2} {
		if out[i].Lipsync == nil {
			t.Errorf("message %d unexpectedly degraded", i)
		}
	}
}

func TestGeneratedFileNamesAreUnique(t *testing.T) {
	p, _ := newTestPipeline(t, nil, nil)

	out, err := p.Run(context.Background(), batch("a", "b", "c", "d"), "http://localhost:3000")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	seen := map[string]bool{}
	for i, m := range out {
		if m.AudioFileName == "" {
			t.Fatalf("message %d has no file name", i)
		}
		if seen[m.AudioFileName] {
			t.Errorf("duplicate file name %q", m.AudioFileName)
		}
		seen[m.AudioFileName] = true
	}
}

func TestEndToEnd(t *testing.T) {
	p, _ := newTestPipeline(t, nil, nil)

	out, err := p.Run(context.Background(), batch("Hola", "Adiós"), "http://localhost:3000")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out))
	}
	for i, m := range out {
		if m.AudioURL == nil {
			t.Errorf("message %d: nil audio URL", i)
			continue
		}
		if !strings.Contains(*m.AudioURL, "/audios/") {
			t.Errorf("message %d: URL missing public route: %s", i, *m.AudioURL)
		}
		if m.Lipsync == nil || len(m.Lipsync.MouthCues) == 0 {
			t.Errorf("message %d: empty cue sequence", i)
			continue
		}
		cues := m.Lipsync.MouthCues
		for j := 1; j < len(cues); j++ {
			if cues[j].Start < cues[j-1].Start {
				t.Errorf("message %d: cue timestamps decrease at %d", i, j)
			}
		}
	}
}

func TestEmptyBatch(t *testing.T) {
	p, _ := newTestPipeline(t, nil, nil)

	out, err := p.Run(context.Background(), nil, "http://localhost:3000")
	if err != nil {
		t.Fatalf("Run failed on empty batch: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty result, got %d messages", len(out))
	}
}

func TestConcurrencyCapIsHonored(t *testing.T) {
	store := files.NewStore(t.TempDir())
	tts := newFakeTTS(store)

	var mu sync.Mutex
	inFlight, peak := 0, 0
	tts.fail = func(text string, call int) error {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	}

	p := New(tts, &fakeExtractor{}, store, DefaultRetryPolicy(), 2)

	if _, err := p.Run(context.Background(), batch("a", "b", "c", "d", "e", "f"), ""); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if peak > 2 {
		t.Errorf("concurrency cap exceeded: peak %d", peak)
	}
}

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/files"
	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/services"
)

// ---------------------------------------------------------------------------
// Synthesized-audio cache
// The intro and fallback message sets recur on almost every conversation, so
// caching provider output by voice+text hash skips the remote call entirely
// and with it the rate limits the retry policy exists for. Entirely optional:
// the pipeline runs the same without it.
// ---------------------------------------------------------------------------

const (
	keyPrefix  = "ttscache:"
	defaultTTL = 7 * 24 * time.Hour
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client, ttl: defaultTTL}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Key derives the cache key for one synthesis: the voice/model scope plus
// the exact message text.
func Key(scope, text string) string {
	sum := sha256.Sum256([]byte(scope + "\x00" + text))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// GetAudio returns the cached audio bytes for key, or nil on a miss.
func (c *Cache) GetAudio(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	return data, nil
}

// SetAudio stores audio bytes under key with the cache TTL.
func (c *Cache) SetAudio(ctx context.Context, key string, data []byte) error {
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// ---------------------------------------------------------------------------
// Caching TTS decorator
// ---------------------------------------------------------------------------

// TTS wraps a TTSService with the audio cache. Scope must identify the
// inner provider's voice and model so a voice change invalidates nothing by
// accident but never replays the wrong voice.
type TTS struct {
	Inner services.TTSService
	Store *files.Store
	Cache *Cache
	Scope string
}

var _ services.TTSService = (*TTS)(nil)

// SynthesizeToFile serves the audio from cache when possible, otherwise
// delegates to the inner provider and stores its output. Cache errors only
// log; synthesis never fails because Redis did.
func (t *TTS) SynthesizeToFile(ctx context.Context, text, fileName string) (*services.SpeechResult, error) {
	key := Key(t.Scope, text)

	if data, err := t.Cache.GetAudio(ctx, key); err != nil {
		log.Printf("[TTSCache] lookup failed, synthesizing instead: %v", err)
	} else if data != nil {
		if fileName == "" {
			// Mirror the provider's collision-resistant naming for unnamed requests
			fileName = uuid.NewString() + ".mp3"
		}
		filePath, err := t.Store.WriteAudio(fileName, data)
		if err != nil {
			return nil, err
		}
		log.Printf("[TTSCache] hit (%d bytes) -> %s", len(data), filePath)
		return &services.SpeechResult{FileName: fileName, FilePath: filePath}, nil
	}

	result, err := t.Inner.SynthesizeToFile(ctx, text, fileName)
	if err != nil {
		return nil, err
	}

	if data, err := os.ReadFile(result.FilePath); err != nil {
		log.Printf("[TTSCache] could not read synthesized audio for caching: %v", err)
	} else if err := t.Cache.SetAudio(ctx, key, data); err != nil {
		log.Printf("[TTSCache] store failed: %v", err)
	}

	return result, nil
}

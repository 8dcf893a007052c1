package files

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ingenieriaxigma-prog/mypelvic-avatar-ai/internal/models"
)

// PublicRoute is the fixed URL prefix under which stored audio files are
// served. URLs are built as hostBase + PublicRoute + "/" + fileName.
const PublicRoute = "/audios"

// Store maps logical audio file names to paths inside a single flat storage
// directory and to public URLs. Files are only ever added, never deleted;
// retention is an external concern.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	if dir == "" {
		dir = "audios"
	}
	return &Store{Dir: dir}
}

// EnsureDir creates the storage directory tree if missing. Idempotent.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create audio directory %s: %w", s.Dir, err)
	}
	return nil
}

// ResolvePath returns the absolute storage path for fileName. Absolute paths
// pass through unchanged; an empty name resolves to the directory itself.
func (s *Store) ResolvePath(fileName string) string {
	if fileName == "" {
		return s.Dir
	}
	if filepath.IsAbs(fileName) {
		return fileName
	}
	return filepath.Join(s.Dir, fileName)
}

// BuildPublicURL returns the public URL for fileName under hostBase, or ""
// when fileName is empty. A fileName already carrying the route's leading
// slash is used as-is so the prefix is never duplicated.
func (s *Store) BuildPublicURL(fileName, hostBase string) string {
	if fileName == "" {
		return ""
	}
	base := strings.TrimSuffix(hostBase, "/")
	route := fileName
	if !strings.HasPrefix(fileName, "/") {
		route = PublicRoute + "/" + fileName
	}
	return base + route
}

// ReadTranscript parses a phoneme-analyzer transcript file into a timed cue
// sequence. fileName may be a bare name or an absolute path.
func (s *Store) ReadTranscript(fileName string) (*models.Transcript, error) {
	data, err := os.ReadFile(s.ResolvePath(fileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	var transcript models.Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("failed to parse transcript %s: %w", fileName, err)
	}

	return &transcript, nil
}

// ReadAudioBase64 returns the base64 encoding of a stored audio file. Used
// for the pre-rendered message sets that inline their audio.
func (s *Store) ReadAudioBase64(fileName string) (string, error) {
	data, err := os.ReadFile(s.ResolvePath(fileName))
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// WriteAudio writes audio bytes for fileName into the storage directory and
// returns the resolved path. The file only appears under its final name once
// fully written.
func (s *Store) WriteAudio(fileName string, data []byte) (string, error) {
	path := s.ResolvePath(fileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write audio file %s: %w", path, err)
	}
	return path, nil
}

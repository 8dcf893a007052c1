package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Rhubarb phoneme extraction
// Converts a synthesized audio file to wav with ffmpeg, then runs the
// rhubarb lip-sync analyzer against it to produce a timed viseme transcript.
// Both tools run as external processes; a stage fails on non-zero exit or
// when the expected output file is missing.
// ---------------------------------------------------------------------------

// RhubarbService drives the two external process stages of phoneme
// extraction. Binary paths are injectable so tests can point at stubs.
type RhubarbService struct {
	ffmpegPath  string
	rhubarbPath string
}

func NewRhubarbService(ffmpegPath, rhubarbPath string) *RhubarbService {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if rhubarbPath == "" {
		rhubarbPath = filepath.Join("bin", "rhubarb")
	}
	return &RhubarbService{
		ffmpegPath:  ffmpegPath,
		rhubarbPath: rhubarbPath,
	}
}

// ExtractPhonemes converts the audio at sourcePath to a sibling wav file and
// runs the phoneme analyzer on it, producing a transcript at a sibling path
// with a .json extension. Returns the transcript path. Any failure comes
// back as an error; the pipeline decides whether that degrades the message
// or aborts anything.
func (s *RhubarbService) ExtractPhonemes(ctx context.Context, sourcePath string) (string, error) {
	if sourcePath == "" {
		return "", fmt.Errorf("no source file for phoneme extraction")
	}

	directory := filepath.Dir(sourcePath)
	baseName := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	wavPath := filepath.Join(directory, baseName+".wav")
	jsonPath := filepath.Join(directory, baseName+".json")

	start := time.Now()
	log.Printf("[LipSync] Starting phoneme extraction for %s", sourcePath)

	if err := runStage(ctx, "convert", s.ffmpegPath, "-y", "-i", sourcePath, wavPath); err != nil {
		return "", err
	}
	log.Printf("[LipSync] Audio converted to wav in %v (%s)", time.Since(start).Round(time.Millisecond), wavPath)

	if err := runStage(ctx, "analyze", s.rhubarbPath, "-f", "json", "-o", jsonPath, wavPath, "-r", "phonetic"); err != nil {
		return "", err
	}

	if _, err := os.Stat(jsonPath); err != nil {
		return "", fmt.Errorf("analyzer produced no transcript at %s: %w", jsonPath, err)
	}

	log.Printf("[LipSync] Phoneme extraction completed in %v (%s)", time.Since(start).Round(time.Millisecond), jsonPath)
	return jsonPath, nil
}

// runStage runs one external process stage, capturing stderr so a failure
// carries the tool's own diagnostics instead of a bare exit status.
func runStage(ctx context.Context, stage, binary string, args ...string) error {
	cmd := exec.CommandContext(ctx, binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 400 {
			detail = detail[len(detail)-400:]
		}
		if detail != "" {
			return fmt.Errorf("%s stage failed (%s): %w: %s", stage, binary, err, detail)
		}
		return fmt.Errorf("%s stage failed (%s): %w", stage, binary, err)
	}

	return nil
}

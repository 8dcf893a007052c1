package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeStub creates an executable shell script standing in for an external
// tool binary.
func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractPhonemes(t *testing.T) {
	dir := t.TempDir()

	// ffmpeg stub: ffmpeg -y -i <src> <wav> — copy source to wav path
	ffmpeg := writeStub(t, dir, "ffmpeg", `cp "$3" "$4"`)
	// rhubarb stub: rhubarb -f json -o <json> <wav> -r phonetic
	rhubarb := writeStub(t, dir, "rhubarb",
		`echo '{"metadata":{"soundFile":"x.wav","duration":0.5},"mouthCues":[{"start":0,"end":0.5,"value":"X"}]}' > "$4"`)

	source := filepath.Join(dir, "message_0.mp3")
	if err := os.WriteFile(source, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}

	svc := NewRhubarbService(ffmpeg, rhubarb)

	transcriptPath, err := svc.ExtractPhonemes(context.Background(), source)
	if err != nil {
		t.Fatalf("ExtractPhonemes failed: %v", err)
	}

	want := filepath.Join(dir, "message_0.json")
	if transcriptPath != want {
		t.Errorf("transcript path: got %q, want %q", transcriptPath, want)
	}
	if _, err := os.Stat(transcriptPath); err != nil {
		t.Errorf("transcript file missing: %v", err)
	}
	// Intermediate wav shares the source base name
	if _, err := os.Stat(filepath.Join(dir, "message_0.wav")); err != nil {
		t.Errorf("intermediate wav missing: %v", err)
	}
}

func TestExtractPhonemesConvertFailure(t *testing.T) {
	dir := t.TempDir()

	ffmpeg := writeStub(t, dir, "ffmpeg", `echo "unsupported codec" >&2; exit 1`)
	rhubarb := writeStub(t, dir, "rhubarb", `exit 0`)

	source := filepath.Join(dir, "message_0.mp3")
	if err := os.WriteFile(source, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}

	svc := NewRhubarbService(ffmpeg, rhubarb)

	_, err := svc.ExtractPhonemes(context.Background(), source)
	if err == nil {
		t.Fatal("expected error from failing converter")
	}
	if !strings.Contains(err.Error(), "convert stage failed") {
		t.Errorf("error does not name the stage: %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported codec") {
		t.Errorf("error does not carry stderr: %v", err)
	}
}

func TestExtractPhonemesAnalyzerProducesNothing(t *testing.T) {
	dir := t.TempDir()

	ffmpeg := writeStub(t, dir, "ffmpeg", `cp "$3" "$4"`)
	// Exits cleanly but never writes the transcript
	rhubarb := writeStub(t, dir, "rhubarb", `exit 0`)

	source := filepath.Join(dir, "message_0.mp3")
	if err := os.WriteFile(source, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}

	svc := NewRhubarbService(ffmpeg, rhubarb)

	if _, err := svc.ExtractPhonemes(context.Background(), source); err == nil {
		t.Fatal("expected error when transcript file is missing")
	}
}

func TestExtractPhonemesEmptySource(t *testing.T) {
	svc := NewRhubarbService("ffmpeg", "rhubarb")

	if _, err := svc.ExtractPhonemes(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty source path")
	}
}

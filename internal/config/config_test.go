package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestApplyOverrides(t *testing.T) {
	dir := t.TempDir()
	content := "image_model: gemini-2.5-flash-image\n" +
		"image_style: anime\n" +
		"video_model: runway\n" +
		"poll_interval: 10s\n"
	if err := os.WriteFile(filepath.Join(dir, OverrideFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	base := Load()
	got, err := base.ApplyOverrides(dir)
	if err != nil {
		t.Fatalf("ApplyOverrides: %v", err)
	}
	if got.ImageModel != "gemini-2.5-flash-image" {
		t.Errorf("ImageModel = %q", got.ImageModel)
	}
	if got.ImageStyle != "anime" {
		t.Errorf("ImageStyle = %q", got.ImageStyle)
	}
	if got.VideoModel != "runway" {
		t.Errorf("VideoModel = %q", got.VideoModel)
	}
	if got.PollInterval != 10*time.Second {
		t.Errorf("PollInterval = %v", got.PollInterval)
	}
	// Untouched fields keep their values.
	if got.ImageQuality != base.ImageQuality {
		t.Errorf("ImageQuality changed: %q", got.ImageQuality)
	}
}

func TestApplyOverridesMissingFile(t *testing.T) {
	base := Load()
	got, err := base.ApplyOverrides(t.TempDir())
	if err != nil {
		t.Fatalf("ApplyOverrides: %v", err)
	}
	if got != base {
		t.Error("config changed without an override file")
	}
}

func TestApplyOverridesMalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, OverrideFile), []byte(":\n\t-bad"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load().ApplyOverrides(dir); err == nil {
		t.Error("malformed override file should fail")
	}
}

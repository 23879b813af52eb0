package project

import (
	"path/filepath"
	"testing"
)

func TestNewLayout(t *testing.T) {
	l := NewLayout("/data", "goblin")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"root", l.Root, "/data/goblin"},
		{"entity list", l.EntityListPath, "/data/goblin/reference/entity_list.txt"},
		{"images", l.ImagesDir, "/data/goblin/reference/images"},
		{"analyzer", l.AnalyzerDir, "/data/goblin/reference/analyzer"},
		{"scenes", l.ScenePath, "/data/goblin/story/scene.txt"},
		{"cuts", l.CutPath, "/data/goblin/story/cut.txt"},
		{"cut images", l.CutImageDir, "/data/goblin/video/cut-images"},
		{"clips", l.ClipDir, "/data/goblin/video/output"},
		{"clip list", l.ClipListPath, "/data/goblin/video/clip_file_list.txt"},
		{"final", l.FinalPath, "/data/goblin/video/goblin_concat_video.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != filepath.FromSlash(tt.want) {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestNewLayoutWithoutProject(t *testing.T) {
	l := NewLayout("/data", "")
	if l.Root != filepath.FromSlash("/data") {
		t.Errorf("root = %q, want /data", l.Root)
	}
	if filepath.Base(l.FinalPath) != "final_concat_video.mp4" {
		t.Errorf("final = %q, want final_concat_video.mp4 basename", l.FinalPath)
	}
}

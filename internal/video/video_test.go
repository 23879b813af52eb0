package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/castvid/castvid-go/internal/backend"
	"github.com/castvid/castvid-go/internal/entity"
	"github.com/castvid/castvid-go/internal/story"
)

func TestFormatKey(t *testing.T) {
	tests := []struct {
		scene, cut int
		want       string
	}{
		{1, 1, "S0001-C0001"},
		{2, 15, "S0002-C0015"},
		{123, 4, "S0123-C0004"},
		{10000, 1, "S10000-C0001"},
	}
	for _, tt := range tests {
		if got := FormatKey(tt.scene, tt.cut); got != tt.want {
			t.Errorf("FormatKey(%d, %d) = %q, want %q", tt.scene, tt.cut, got, tt.want)
		}
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		key        string
		scene, cut int
		wantErr    bool
	}{
		{"S0001-C0001", 1, 1, false},
		{"S0002-C0015", 2, 15, false},
		{"S10000-C0001", 10000, 1, false},
		{"S2-C15", 2, 15, false},
		{"S0000-C0001", 0, 0, true},
		{"S0001-C0000", 0, 0, true},
		{"s0001-c0001", 0, 0, true},
		{"S0001C0001", 0, 0, true},
		{"S0001-C0001.png", 0, 0, true},
		{"thumbnail", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			scene, cut, err := ParseKey(tt.key)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseKey(%q) = %d,%d, want error", tt.key, scene, cut)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKey(%q): %v", tt.key, err)
			}
			if scene != tt.scene || cut != tt.cut {
				t.Errorf("ParseKey(%q) = %d,%d, want %d,%d", tt.key, scene, cut, tt.scene, tt.cut)
			}
		})
	}
}

func TestKeyRoundTrip(t *testing.T) {
	for _, pair := range [][2]int{{1, 1}, {2, 15}, {42, 3}, {9999, 9999}} {
		scene, cut, err := ParseKey(FormatKey(pair[0], pair[1]))
		if err != nil {
			t.Fatalf("round trip %v: %v", pair, err)
		}
		if scene != pair[0] || cut != pair[1] {
			t.Errorf("round trip %v = %d,%d", pair, scene, cut)
		}
	}
}

// testRegistry returns a registry whose reference images live under the
// returned directory, with bare filenames in the records.
func testRegistry(t *testing.T) ([]entity.Record, string) {
	t.Helper()
	dir := t.TempDir()
	reg := []entity.Record{
		{Kind: entity.KindCharacter, Name: "Mira", Description: `{"hair-color":"black"}`},
		{Kind: entity.KindCharacter, Name: "Detective Han", Description: `{"build":"broad"}`},
		{Kind: entity.KindCharacter, Name: entity.OtherName, Description: "minor folk"},
		{Kind: entity.KindLocation, Name: "night market", Description: `{"indoor-outdoor":"outdoor"}`},
		{Kind: entity.KindLocation, Name: "harbor", Description: `{"indoor-outdoor":"outdoor"}`},
		{Kind: entity.KindObject, Name: "sketchbook", Description: `{"size":"A5"}`},
	}
	for i := range reg {
		if reg[i].IsSentinel() {
			continue
		}
		name := fmt.Sprintf("ref%d.png", i)
		if err := os.WriteFile(filepath.Join(dir, name), []byte("ref"), 0644); err != nil {
			t.Fatal(err)
		}
		reg[i].Image = name
	}
	return reg, dir
}

func TestSelectEntities(t *testing.T) {
	registry, _ := testRegistry(t)

	tests := []struct {
		name string
		cut  story.Cut
		want []string
	}{
		{
			"characters and location",
			story.Cut{Character: []string{"Mira", "Detective Han"}, Location: []string{"night market"}},
			[]string{"Mira", "Detective Han", "night market"},
		},
		{
			"exact location equality",
			story.Cut{Location: []string{"harbor"}},
			[]string{"harbor"},
		},
		{
			"unknown names skipped",
			story.Cut{Character: []string{"Mira", "The Stranger"}, Object: []string{"revolver"}},
			[]string{"Mira"},
		},
		{
			"sentinel never selected",
			story.Cut{Character: []string{entity.OtherName}},
			nil,
		},
		{
			"kind mismatch is no match",
			story.Cut{Character: []string{"harbor"}, Location: []string{"Mira"}},
			nil,
		},
		{
			"objects",
			story.Cut{Object: []string{"sketchbook"}},
			[]string{"sketchbook"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected := selectEntities(tt.cut, registry)
			var names []string
			for _, r := range selected {
				names = append(names, r.Name)
			}
			if len(names) != len(tt.want) {
				t.Fatalf("selected %v, want %v", names, tt.want)
			}
			for i := range names {
				if names[i] != tt.want[i] {
					t.Errorf("selected %v, want %v", names, tt.want)
					break
				}
			}
		})
	}
}

type stubImage struct {
	caps     backend.ImageCapabilities
	lastRefs [][]byte
	prompts  []string
	failOn   string
	err      error
}

func (s *stubImage) Name() string                            { return "stub" }
func (s *stubImage) Capabilities() backend.ImageCapabilities { return s.caps }

func (s *stubImage) Generate(ctx context.Context, prompt string) ([]byte, error) {
	s.prompts = append(s.prompts, prompt)
	if s.failOn != "" && strings.Contains(prompt, s.failOn) {
		return nil, s.err
	}
	return []byte("still"), nil
}

func (s *stubImage) Edit(ctx context.Context, prompt string, refs [][]byte) ([]byte, error) {
	s.prompts = append(s.prompts, prompt)
	s.lastRefs = refs
	if s.failOn != "" && strings.Contains(prompt, s.failOn) {
		return nil, s.err
	}
	return []byte("still"), nil
}

func testCuts() [][]story.Cut {
	return [][]story.Cut{
		{
			{CutID: 1, Description: "Mira browses a stall.", Character: []string{"Mira"}, Location: []string{"night market"}},
			{CutID: 2, Description: "Close-up of the sketchbook.", Object: []string{"sketchbook"}},
		},
		{
			{CutID: 1, Description: "Han waits at the harbor.", Character: []string{"Detective Han"}, Location: []string{"harbor"}},
		},
	}
}

func TestImagerGenerateOne(t *testing.T) {
	stub := &stubImage{caps: backend.ImageCapabilities{Edit: true}}
	registry, refDir := testRegistry(t)
	g := NewImager(stub, registry, refDir, t.TempDir(), "realistic", false)
	cut := testCuts()[0][0]

	path, err := g.GenerateOne(context.Background(), 1, 1, cut)
	if err != nil {
		t.Fatalf("GenerateOne: %v", err)
	}
	if filepath.Base(path) != "S0001-C0001.png" {
		t.Errorf("image path = %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("image not on disk: %v", err)
	}

	prompt := stub.prompts[0]
	if !strings.Contains(prompt, promptSeparator) {
		t.Error("prompt missing separator")
	}
	if !strings.HasPrefix(prompt, "Mira browses a stall.") {
		t.Error("prompt does not start with the shot description")
	}
	if !strings.Contains(prompt, `(character, Mira, {"hair-color":"black"})`) {
		t.Errorf("prompt missing entity triple:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Style:") {
		t.Error("prompt missing style")
	}
	// Mira and the night market both carry reference images.
	if len(stub.lastRefs) != 2 {
		t.Errorf("edit got %d references, want 2", len(stub.lastRefs))
	}
}

func TestImagerSkipExisting(t *testing.T) {
	stub := &stubImage{}
	registry, refDir := testRegistry(t)
	g := NewImager(stub, registry, refDir, t.TempDir(), "realistic", true)

	existing := g.ImagePath(1, 1)
	if err := os.WriteFile(existing, []byte("done"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := g.GenerateOne(context.Background(), 1, 1, testCuts()[0][0]); err != nil {
		t.Fatalf("GenerateOne: %v", err)
	}
	if len(stub.prompts) != 0 {
		t.Error("existing image was regenerated")
	}
	data, _ := os.ReadFile(existing)
	if string(data) != "done" {
		t.Error("existing image was overwritten")
	}
}

func TestImagerGenerateAllIsolatesFailures(t *testing.T) {
	stub := &stubImage{caps: backend.ImageCapabilities{Edit: true}, failOn: "sketchbook", err: errors.New("hiccup")}
	registry, refDir := testRegistry(t)
	g := NewImager(stub, registry, refDir, t.TempDir(), "realistic", false)

	err := g.GenerateAll(context.Background(), testCuts())
	if err == nil {
		t.Fatal("GenerateAll swallowed the failure")
	}
	if !strings.Contains(err.Error(), "S0001-C0002") {
		t.Errorf("error does not name the failed cut: %v", err)
	}
	// The cut after the failure must still have been rendered.
	if _, statErr := os.Stat(g.ImagePath(2, 1)); statErr != nil {
		t.Errorf("cut after failure missing: %v", statErr)
	}
}

func TestImagerGenerateAllAbortsOnFatal(t *testing.T) {
	stub := &stubImage{caps: backend.ImageCapabilities{Edit: true}, failOn: "sketchbook", err: errors.New("invalid api key")}
	registry, refDir := testRegistry(t)
	g := NewImager(stub, registry, refDir, t.TempDir(), "realistic", false)

	err := g.GenerateAll(context.Background(), testCuts())
	if !errors.Is(err, backend.ErrFatalAPI) {
		t.Fatalf("error = %v, want ErrFatalAPI", err)
	}
	if _, statErr := os.Stat(g.ImagePath(2, 1)); statErr == nil {
		t.Error("batch continued past a fatal API error")
	}
}

type stubVideo struct {
	prompts []string
	failOn  string
	err     error
}

func (s *stubVideo) Name() string { return "stub" }

func (s *stubVideo) Animate(ctx context.Context, image []byte, prompt string) ([]byte, error) {
	s.prompts = append(s.prompts, prompt)
	if s.failOn != "" && strings.Contains(prompt, s.failOn) {
		return nil, s.err
	}
	return []byte("clip"), nil
}

func writeCutImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("still"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestClipGeneratorGenerateAll(t *testing.T) {
	imageDir, clipDir := t.TempDir(), t.TempDir()
	writeCutImages(t, imageDir, "S0001-C0001.png", "S0001-C0002.png", "S0002-C0001.png")
	stub := &stubVideo{}
	g := NewClipGenerator(stub, imageDir, clipDir, false)

	if err := g.GenerateAll(context.Background(), testCuts()); err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}

	for _, pair := range [][2]int{{1, 1}, {1, 2}, {2, 1}} {
		if _, err := os.Stat(g.ClipPath(pair[0], pair[1])); err != nil {
			t.Errorf("clip %v missing: %v", pair, err)
		}
	}
	if len(stub.prompts) != 3 {
		t.Fatalf("animated %d stills, want 3", len(stub.prompts))
	}
	if !strings.HasSuffix(stub.prompts[0], clipInstruction) {
		t.Errorf("prompt missing animation instruction: %q", stub.prompts[0])
	}
	if !strings.HasPrefix(stub.prompts[0], "Mira browses a stall.") {
		t.Errorf("prompt not built from the addressed cut: %q", stub.prompts[0])
	}
}

func TestClipGeneratorRejectsUnparsableFilename(t *testing.T) {
	imageDir := t.TempDir()
	writeCutImages(t, imageDir, "S0001-C0001.png", "thumbnail.png")
	g := NewClipGenerator(&stubVideo{}, imageDir, t.TempDir(), false)

	err := g.GenerateAll(context.Background(), testCuts())
	if err == nil {
		t.Fatal("unparsable filename was silently skipped")
	}
	if !strings.Contains(err.Error(), "thumbnail") {
		t.Errorf("error does not name the bad file: %v", err)
	}
	// The well-addressed still must still have been animated.
	if _, statErr := os.Stat(g.ClipPath(1, 1)); statErr != nil {
		t.Errorf("valid clip missing: %v", statErr)
	}
}

func TestClipGeneratorRejectsOutOfRangeAddress(t *testing.T) {
	imageDir := t.TempDir()
	writeCutImages(t, imageDir, "S0009-C0001.png")
	g := NewClipGenerator(&stubVideo{}, imageDir, t.TempDir(), false)

	err := g.GenerateAll(context.Background(), testCuts())
	if err == nil || !strings.Contains(err.Error(), "outside the storyboard") {
		t.Errorf("error = %v, want out-of-storyboard failure", err)
	}
}

func TestClipGeneratorSkipExisting(t *testing.T) {
	imageDir, clipDir := t.TempDir(), t.TempDir()
	writeCutImages(t, imageDir, "S0001-C0001.png")
	stub := &stubVideo{}
	g := NewClipGenerator(stub, imageDir, clipDir, true)

	if err := os.WriteFile(g.ClipPath(1, 1), []byte("done"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := g.GenerateAll(context.Background(), testCuts()); err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if len(stub.prompts) != 0 {
		t.Error("existing clip was regenerated")
	}
}

func TestClipGeneratorUnwritableClipDir(t *testing.T) {
	imageDir := t.TempDir()
	writeCutImages(t, imageDir, "S0001-C0001.png")
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	stub := &stubVideo{}
	g := NewClipGenerator(stub, imageDir, filepath.Join(blocker, "clips"), false)

	if err := g.GenerateAll(context.Background(), testCuts()); err == nil {
		t.Fatal("GenerateAll succeeded with an unwritable clip dir")
	}
	if len(stub.prompts) != 0 {
		t.Error("stills were animated before the clip dir failure surfaced")
	}
}

func TestWriteManifestOrdersClips(t *testing.T) {
	clipDir := t.TempDir()
	// Created out of order on purpose.
	for _, name := range []string{"S0002-C0001_video.mp4", "S0001-C0002_video.mp4", "S0001-C0001_video.mp4", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(clipDir, name), []byte("clip"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	listPath := filepath.Join(t.TempDir(), "clip_file_list.txt")

	clips, err := WriteManifest(clipDir, listPath)
	if err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	if len(clips) != 3 {
		t.Fatalf("manifest has %d clips, want 3", len(clips))
	}
	for i := 1; i < len(clips); i++ {
		if clips[i-1] >= clips[i] {
			t.Errorf("clips out of order: %q before %q", clips[i-1], clips[i])
		}
	}

	data, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("manifest has %d lines, want 3", len(lines))
	}
	for i, line := range lines {
		if !strings.HasPrefix(line, "file '") || !strings.HasSuffix(line, "'") {
			t.Errorf("line %d not in concat demuxer form: %q", i, line)
		}
		if !filepath.IsAbs(strings.TrimSuffix(strings.TrimPrefix(line, "file '"), "'")) {
			t.Errorf("line %d is not an absolute path: %q", i, line)
		}
	}
}

func TestWriteManifestEmptyDir(t *testing.T) {
	if _, err := WriteManifest(t.TempDir(), filepath.Join(t.TempDir(), "list.txt")); err == nil {
		t.Error("WriteManifest succeeded on an empty dir")
	}
}

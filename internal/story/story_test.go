package story

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/castvid/castvid-go/internal/backend"
	"github.com/castvid/castvid-go/internal/entity"
)

type stubText struct {
	response   string
	err        error
	lastSystem string
	lastPrompt string
}

func (s *stubText) Complete(ctx context.Context, prompt string, opts backend.CompleteOptions) (string, error) {
	s.lastPrompt = prompt
	return s.response, s.err
}

func (s *stubText) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string, opts backend.CompleteOptions) (string, error) {
	s.lastSystem = systemPrompt
	s.lastPrompt = userPrompt
	return s.response, s.err
}

func (s *stubText) CompleteWithImage(ctx context.Context, image []byte, contextText string) (string, error) {
	return s.response, s.err
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare array", `[{"a":1}]`, `[{"a":1}]`, false},
		{"fenced json", "Here:\n```json\n[1,2,3]\n```\ndone", "[1,2,3]", false},
		{"fenced plain", "```\n[1,2]\n```", "[1,2]", false},
		{"prose wrapped", `The scenes are [1,2,3] as requested.`, "[1,2,3]", false},
		{"nested arrays", `[[1,2],[3]]`, `[[1,2],[3]]`, false},
		{"no array", "I cannot split this story.", "", true},
		{"broken json", `[{"a": }]`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONArray(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrNoJSONArray) {
					t.Fatalf("error = %v, want ErrNoJSONArray", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractJSONArray: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateScenesRenumbers(t *testing.T) {
	stub := &stubText{response: `[
		{"scene_id": 7, "title": "Opening", "description": "Mira finds the sketchbook."},
		{"scene_id": 7, "title": "Chase", "description": "Han follows her through the market."}
	]`}
	g := NewGenerator(stub, 0.7)

	scenes, err := g.GenerateScenes(context.Background(), "a detective story")
	if err != nil {
		t.Fatalf("GenerateScenes: %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("got %d scenes, want 2", len(scenes))
	}
	for i, s := range scenes {
		if s.SceneID != i+1 {
			t.Errorf("scene %d has id %d, want %d", i, s.SceneID, i+1)
		}
	}
	if scenes[1].Title != "Chase" {
		t.Errorf("scene 2 title = %q", scenes[1].Title)
	}
}

func TestGenerateScenesHardErrors(t *testing.T) {
	tests := []struct {
		name string
		stub *stubText
	}{
		{"backend failure", &stubText{err: errors.New("model down")}},
		{"no array", &stubText{response: "Sorry, I can't do that."}},
		{"empty array", &stubText{response: "[]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGenerator(tt.stub, 0.7).GenerateScenes(context.Background(), "story"); err == nil {
				t.Error("GenerateScenes succeeded, want error")
			}
		})
	}
}

func sampleRegistry() []entity.Record {
	return []entity.Record{
		{Kind: entity.KindCharacter, Name: "Mira"},
		{Kind: entity.KindCharacter, Name: entity.OtherName},
		{Kind: entity.KindLocation, Name: "night market"},
		{Kind: entity.KindObject, Name: "sketchbook"},
	}
}

func TestGenerateCutsIncludesStoryAndCast(t *testing.T) {
	stub := &stubText{response: `[
		{"cut_id": 1, "description": "Mira walks in.", "character": ["Mira"], "location": ["night market"], "object": []},
		{"cut_id": 9, "description": "Close-up of the sketchbook.", "character": [], "location": [], "object": ["sketchbook"]},
		{"cut_id": 3, "description": "Mira looks up.", "character": ["Mira"], "location": ["night market"], "object": []}
	]`}
	g := NewGenerator(stub, 0.7)
	scene := Scene{SceneID: 2, Title: "Chase", Description: "Han follows Mira."}

	cuts, err := g.GenerateCuts(context.Background(), "the full story text", scene, sampleRegistry())
	if err != nil {
		t.Fatalf("GenerateCuts: %v", err)
	}
	if len(cuts) != 3 {
		t.Fatalf("got %d cuts, want 3", len(cuts))
	}
	for i, c := range cuts {
		if c.CutID != i+1 {
			t.Errorf("cut %d has id %d, want positional %d", i, c.CutID, i+1)
		}
	}

	if !strings.Contains(stub.lastPrompt, "the full story text") {
		t.Error("prompt missing full story context")
	}
	if !strings.Contains(stub.lastPrompt, "Mira") || !strings.Contains(stub.lastPrompt, "night market") {
		t.Error("prompt missing cast names")
	}
	if strings.Contains(stub.lastPrompt, "characters: Mira, other") {
		t.Error("cast list leaked the catch-all sentinel")
	}
}

func TestCastListGroupsByKind(t *testing.T) {
	got := castList(sampleRegistry())
	want := "characters: Mira\nlocations: night market\nobjects: sketchbook\n"
	if got != want {
		t.Errorf("castList = %q, want %q", got, want)
	}
}

func TestSceneRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.txt")
	scenes := []Scene{
		{SceneID: 1, Title: "Opening", Description: "Mira finds the sketchbook."},
		{SceneID: 2, Title: "Chase", Description: "Han follows her.\nThrough the market."},
	}

	if err := SaveScenes(path, scenes); err != nil {
		t.Fatalf("SaveScenes: %v", err)
	}
	got, err := LoadScenes(path)
	if err != nil {
		t.Fatalf("LoadScenes: %v", err)
	}
	if !reflect.DeepEqual(got, scenes) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, scenes)
	}
}

func TestCutRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cut.txt")
	cuts := [][]Cut{
		{
			{CutID: 1, Description: "Mira walks in.", Character: []string{"Mira"}, Location: []string{"night market"}, Object: []string{}},
			{CutID: 2, Description: "Close-up.", Character: []string{}, Location: []string{}, Object: []string{"sketchbook"}},
		},
		{
			{CutID: 1, Description: "Han waits.", Character: []string{"Detective Han"}, Location: []string{"harbor"}, Object: []string{}},
		},
	}

	if err := SaveCuts(path, cuts); err != nil {
		t.Fatalf("SaveCuts: %v", err)
	}
	got, err := LoadCuts(path)
	if err != nil {
		t.Fatalf("LoadCuts: %v", err)
	}
	if !reflect.DeepEqual(got, cuts) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, cuts)
	}
}

func TestLoadCutsRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cut.txt")
	if err := SaveCuts(path, [][]Cut{{{CutID: 1, Description: "ok"}}}); err != nil {
		t.Fatal(err)
	}
	if err := appendLine(path, "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCuts(path); err == nil {
		t.Error("LoadCuts accepted a malformed line")
	}
}

func appendLine(path, line string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, []byte(line+"\n")...), 0644)
}

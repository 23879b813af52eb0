package story

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/castvid/castvid-go/internal/backend"
	"github.com/castvid/castvid-go/internal/entity"
)

const scenesSystemPrompt = `You are a storyboard writer. Split the given story into scenes.

Respond with a JSON array only, no prose. Each element:
{"scene_id": <number starting at 1>, "title": "<short title>", "description": "<2-4 sentences of what happens>"}

Scenes must cover the whole story in order, with no gaps or overlaps.`

const cutsSystemPrompt = `You are a storyboard artist. Break the given scene into cuts (individual shots).

Respond with a JSON array only, no prose. Each element:
{"cut_id": <number starting at 1>, "description": "<one visual moment, 1-2 sentences>", "character": [...], "location": [...], "object": [...]}

Rules:
- Produce between 3 and 5 cuts.
- The character, location and object lists may only contain names from the cast list given below, spelled exactly as given. Use an empty list when none apply.
- Each cut has at most one location.`

// Generator produces scenes and cuts via the text backend.
type Generator struct {
	text        backend.TextBackend
	temperature float64
}

func NewGenerator(text backend.TextBackend, temperature float64) *Generator {
	return &Generator{text: text, temperature: temperature}
}

// GenerateScenes splits the story into ordered scenes. The response must
// contain a JSON array; anything else is a hard error.
func (g *Generator) GenerateScenes(ctx context.Context, synopsis string) ([]Scene, error) {
	response, err := g.text.CompleteWithSystem(ctx, scenesSystemPrompt, synopsis, backend.CompleteOptions{Temperature: g.temperature})
	if err != nil {
		return nil, fmt.Errorf("generate scenes: %w", err)
	}

	raw, err := extractJSONArray(response)
	if err != nil {
		return nil, fmt.Errorf("generate scenes: %w", err)
	}
	var scenes []Scene
	if err := json.Unmarshal([]byte(raw), &scenes); err != nil {
		return nil, fmt.Errorf("generate scenes: %w: %w", ErrNoJSONArray, err)
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("generate scenes: empty scene list")
	}

	// Scene identity is positional; renumber whatever the model sent.
	for i := range scenes {
		scenes[i].SceneID = i + 1
	}
	slog.Info("generated scenes", "count", len(scenes))
	return scenes, nil
}

// GenerateCuts breaks one scene into cuts. The full story is included so
// shots stay coherent with what happens outside the scene, and the registry
// is rendered as a cast list the model must reference by exact name.
func (g *Generator) GenerateCuts(ctx context.Context, synopsis string, scene Scene, registry []entity.Record) ([]Cut, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Full story:\n%s\n\n", synopsis)
	fmt.Fprintf(&b, "Cast list:\n%s\n", castList(registry))
	fmt.Fprintf(&b, "\nScene %d (%s):\n%s\n", scene.SceneID, scene.Title, scene.Description)

	response, err := g.text.CompleteWithSystem(ctx, cutsSystemPrompt, b.String(), backend.CompleteOptions{Temperature: g.temperature})
	if err != nil {
		return nil, fmt.Errorf("generate cuts for scene %d: %w", scene.SceneID, err)
	}

	raw, err := extractJSONArray(response)
	if err != nil {
		return nil, fmt.Errorf("generate cuts for scene %d: %w", scene.SceneID, err)
	}
	var cuts []Cut
	if err := json.Unmarshal([]byte(raw), &cuts); err != nil {
		return nil, fmt.Errorf("generate cuts for scene %d: %w: %w", scene.SceneID, ErrNoJSONArray, err)
	}
	if len(cuts) == 0 {
		return nil, fmt.Errorf("generate cuts for scene %d: empty cut list", scene.SceneID)
	}

	for i := range cuts {
		cuts[i].CutID = i + 1
	}
	slog.Info("generated cuts", "scene", scene.SceneID, "count", len(cuts))
	return cuts, nil
}

// castList renders the registry grouped by kind, names only. Catch-all
// entries are omitted: they can never be selected for a cut.
func castList(registry []entity.Record) string {
	byKind := map[entity.Kind][]string{}
	for _, r := range registry {
		if r.IsSentinel() {
			continue
		}
		byKind[r.Kind] = append(byKind[r.Kind], r.Name)
	}

	var b strings.Builder
	for _, kind := range []entity.Kind{entity.KindCharacter, entity.KindLocation, entity.KindObject} {
		fmt.Fprintf(&b, "%ss: %s\n", kind, strings.Join(byKind[kind], ", "))
	}
	return b.String()
}

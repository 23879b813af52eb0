// Package multimodal edits the entity registry from mixed text and image
// input: a user instruction plus optional uploaded photos are distilled into
// a fresh structured description and a regenerated reference image.
package multimodal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/castvid/castvid-go/internal/backend"
	"github.com/castvid/castvid-go/internal/entity"
	"github.com/castvid/castvid-go/internal/reference"
)

// Options carries the user's input for one edit or add operation.
type Options struct {
	// Instruction is the free-text change request.
	Instruction string
	// Name renames the entity during an edit; empty keeps the current name.
	Name string
	// Images are uploaded photos to condition the edit on.
	Images [][]byte
}

// Attribute schemas per kind. The synthesizer is told to emit exactly these
// keys so edited entries keep the same shape as analyzer output.
var kindSchemas = map[entity.Kind][]string{
	entity.KindCharacter: {"name", "age-range", "ethnicity", "gender", "hair-style", "hair-color", "height", "weight", "build", "fashion-style", "additional-traits"},
	entity.KindLocation:  {"name", "indoor-outdoor", "spatial-features", "additional-notes"},
	entity.KindObject:    {"name", "size", "color", "shape", "category", "tags"},
}

const imageAnalysisPrompt = "Describe the visual appearance shown in this image in concrete, reusable detail: colors, shapes, materials, clothing, distinguishing features. Respond with plain prose only."

// Editor applies multimodal edits to registry records.
type Editor struct {
	text    backend.TextBackend
	creator *reference.Creator
}

func NewEditor(text backend.TextBackend, creator *reference.Creator) *Editor {
	return &Editor{text: text, creator: creator}
}

// Edit rewrites the record at index from the instruction and any uploaded
// images, then regenerates its reference image conditioned on the old image
// and the uploads. A non-empty opts.Name renames the entity; the new name
// flows into the synthesized description, the regenerated image and the
// returned record. On image regeneration failure the original record is
// returned untouched alongside the error, so the registry is never left
// pointing at an image that does not exist.
func (e *Editor) Edit(ctx context.Context, records []entity.Record, index int, opts Options) (entity.Record, error) {
	if index < 0 || index >= len(records) {
		return entity.Record{}, fmt.Errorf("entity index %d out of range (registry has %d entries)", index, len(records))
	}
	original := records[index]

	name := original.Name
	if opts.Name != "" {
		if opts.Name == entity.OtherName {
			return entity.Record{}, fmt.Errorf("cannot rename entity to %q", opts.Name)
		}
		name = opts.Name
	}

	observations := e.analyzeImages(ctx, opts.Images)
	description := e.synthesize(ctx, original.Kind, name, original.Description, opts.Instruction, observations)

	refs := append([][]byte(nil), opts.Images...)
	if original.HasImage() {
		imagePath := e.creator.Path(original.Image)
		if data, err := os.ReadFile(imagePath); err == nil {
			refs = append(refs, data)
		} else {
			slog.Warn("existing reference image unreadable, regenerating without it", "path", imagePath, "error", err)
		}
	}

	filename, err := e.creator.CreateImage(ctx, original.Kind, name, description, refs)
	if err != nil {
		return original, fmt.Errorf("regenerate reference image for %q: %w", name, err)
	}

	return entity.Record{Kind: original.Kind, Name: name, Description: description, Image: filename}, nil
}

// Add builds a brand-new record of the given kind and name from the
// instruction and uploads. On image generation failure the described record
// is returned with an empty image path alongside the error; the caller
// decides whether to register it anyway.
func (e *Editor) Add(ctx context.Context, kind entity.Kind, name string, opts Options) (entity.Record, error) {
	if !entity.ValidKind(kind) || kind == entity.KindOther {
		return entity.Record{}, fmt.Errorf("cannot add entity of kind %q", kind)
	}
	if name == "" || name == entity.OtherName {
		return entity.Record{}, fmt.Errorf("invalid entity name %q", name)
	}

	observations := e.analyzeImages(ctx, opts.Images)
	description := e.synthesize(ctx, kind, name, "", opts.Instruction, observations)
	rec := entity.Record{Kind: kind, Name: name, Description: description}

	filename, err := e.creator.CreateImage(ctx, kind, name, description, opts.Images)
	if err != nil {
		return rec, fmt.Errorf("generate reference image for %q: %w", name, err)
	}
	rec.Image = filename
	return rec, nil
}

// analyzeImages runs vision analysis over each upload and collects the
// observations. A failed analysis is logged and skipped.
func (e *Editor) analyzeImages(ctx context.Context, images [][]byte) []string {
	var observations []string
	for i, img := range images {
		obs, err := e.text.CompleteWithImage(ctx, img, imageAnalysisPrompt)
		if err != nil {
			slog.Warn("image analysis failed", "image", i, "error", err)
			continue
		}
		if obs = strings.TrimSpace(obs); obs != "" {
			observations = append(observations, obs)
		}
	}
	return observations
}

// synthesize asks the text backend for an updated attribute object and
// normalizes it through a JSON round trip. A response that is not a JSON
// object is used as raw text; an empty response keeps the original
// description.
func (e *Editor) synthesize(ctx context.Context, kind entity.Kind, name, original, instruction string, observations []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rewrite the attribute description of the %s named %q.\n", kind, name)
	fmt.Fprintf(&b, "Respond with a single JSON object using exactly these keys: %s.\n", strings.Join(kindSchemas[kind], ", "))
	b.WriteString("No prose, no code fences, just the object.\n")
	if original != "" {
		fmt.Fprintf(&b, "\nCurrent description:\n%s\n", original)
	}
	if instruction != "" {
		fmt.Fprintf(&b, "\nRequested change:\n%s\n", instruction)
	}
	for _, obs := range observations {
		fmt.Fprintf(&b, "\nObserved in an uploaded image:\n%s\n", obs)
	}

	response, err := e.text.Complete(ctx, b.String(), backend.CompleteOptions{Temperature: 0.3})
	if err != nil {
		slog.Warn("description synthesis failed, keeping original", "name", name, "error", err)
		return original
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return original
	}

	if normalized, ok := normalizeObject(response); ok {
		return normalized
	}
	slog.Warn("synthesized description is not a JSON object, using raw text", "name", name)
	return response
}

// normalizeObject extracts the first JSON object from text and re-marshals
// it, which both validates the structure and canonicalizes key order.
func normalizeObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}

	var attrs map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &attrs); err != nil {
		return "", false
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", false
	}
	return string(data), true
}

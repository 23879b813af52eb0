// Package analyze extracts typed entity drafts (characters, locations,
// objects) from a free-form synopsis.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/castvid/castvid-go/internal/backend"
	"github.com/castvid/castvid-go/internal/entity"
)

// Draft is an entity before its reference image has been synthesized.
type Draft struct {
	Kind        entity.Kind `json:"kind"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
}

// IsSentinel reports whether the draft is a catch-all entry rather than a
// named entity. Sentinels never get reference images.
func (d Draft) IsSentinel() bool { return d.Name == entity.OtherName }

// Artifact filenames written into the analyzer directory.
const (
	RawDraftFile  = "entity_draft.txt"
	DraftJSONFile = "entity_dict_draft.json"
)

const sectionCharacters = "a. Characters"
const sectionLocations = "b. Locations"
const sectionObjects = "c. Objects"

// systemPrompt pins the response to the three-section key: value format the
// parsers below understand. Unimportant entities are collapsed into an
// "other:" catch-all per section.
const systemPrompt = `Extract the characters, locations and objects from the given story.
If a detail is missing, invent a plausible value; every key must have a value.

Respond with exactly three sections and no other text:

a. Characters
1. <display name>
name: <display name>
age-range: ...
ethnicity: ...
gender: ...
hair-style: ...
hair-color: ...
height: ...
weight: ...
build: ...
fashion-style: ...
additional-traits: ...

(continue numbering 2., 3., ... for each major character, blank line between entries)

other:
<one line per minor character: name and a short trait list>

b. Locations
location 1
name: <location name>
indoor-outdoor: <indoor or outdoor>
spatial-features: ...
additional-notes: ...

(continue with "location 2", "location 3", ...)

other:
<comma-separated minor locations, each with (indoor) or (outdoor)>

c. Objects
1. <object name>
size: ...
color: ...
shape: ...
category: ...
tags: ...

other:
<one line per minor object: name and a short trait list>

Only characters, locations and objects that matter to the story get a
numbered entry; collect everything else under "other:".`

// Analyzer turns synopsis text into entity drafts via the text backend.
type Analyzer struct {
	text    backend.TextBackend
	saveDir string
}

// NewAnalyzer creates an analyzer. Raw responses and parsed drafts are
// persisted into saveDir so a failed downstream stage can be debugged
// against what the backend actually said.
func NewAnalyzer(text backend.TextBackend, saveDir string) *Analyzer {
	return &Analyzer{text: text, saveDir: saveDir}
}

// Analyze extracts entity drafts from the synopsis. Extraction failures
// degrade to an empty draft list: a response that cannot be split into the
// three sections, or that yields no parseable entries, is logged and an
// empty list returned so the caller can retry. Only artifact persistence
// problems surface as errors.
func (a *Analyzer) Analyze(ctx context.Context, synopsis string) ([]Draft, error) {
	response, err := a.text.CompleteWithSystem(ctx, systemPrompt, synopsis, backend.CompleteOptions{Temperature: 0.3})
	if err != nil {
		slog.Error("synopsis analysis failed", "error", err)
		return nil, nil
	}

	if a.saveDir != "" {
		if err := os.MkdirAll(a.saveDir, 0755); err != nil {
			return nil, fmt.Errorf("create analyzer dir: %w", err)
		}
		rawPath := filepath.Join(a.saveDir, RawDraftFile)
		if err := os.WriteFile(rawPath, []byte(response), 0644); err != nil {
			return nil, fmt.Errorf("save raw draft: %w", err)
		}
		slog.Info("saved raw synopsis analysis", "path", rawPath)
	}

	drafts := parseResponse(response)
	if len(drafts) == 0 {
		slog.Warn("synopsis analysis yielded no entities")
		return nil, nil
	}

	if a.saveDir != "" {
		data, err := json.MarshalIndent(drafts, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal drafts: %w", err)
		}
		jsonPath := filepath.Join(a.saveDir, DraftJSONFile)
		if err := os.WriteFile(jsonPath, data, 0644); err != nil {
			return nil, fmt.Errorf("save drafts: %w", err)
		}
		slog.Info("saved entity drafts", "path", jsonPath, "count", len(drafts))
	}

	return drafts, nil
}

// LoadDrafts reads a previously saved draft JSON artifact.
func LoadDrafts(path string) ([]Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drafts: %w", err)
	}
	var drafts []Draft
	if err := json.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("parse drafts: %w", err)
	}
	return drafts, nil
}

// parseResponse splits the response into its three sections and parses each
// independently. A missing section boundary yields no drafts.
func parseResponse(response string) []Draft {
	charIdx := strings.Index(response, sectionCharacters)
	locIdx := strings.Index(response, sectionLocations)
	objIdx := strings.Index(response, sectionObjects)
	if charIdx < 0 || locIdx < 0 || objIdx < 0 || charIdx > locIdx || locIdx > objIdx {
		return nil
	}

	characterBlock := strings.TrimSpace(response[charIdx+len(sectionCharacters) : locIdx])
	locationBlock := strings.TrimSpace(response[locIdx+len(sectionLocations) : objIdx])
	objectBlock := strings.TrimSpace(response[objIdx+len(sectionObjects):])

	var drafts []Draft
	drafts = append(drafts, parseCharacters(characterBlock)...)
	drafts = append(drafts, parseLocations(locationBlock)...)
	drafts = append(drafts, parseObjects(objectBlock)...)
	return drafts
}

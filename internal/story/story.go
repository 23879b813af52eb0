// Package story expands a synopsis into scenes and each scene into cuts,
// the shot-level units the video pipeline renders.
package story

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoJSONArray is returned when a backend response contains no parseable
// JSON array. Scene and cut generation cannot degrade: without structured
// output there is nothing for the rest of the pipeline to address.
var ErrNoJSONArray = errors.New("response contains no JSON array")

// Scene is one narrative beat of the story.
type Scene struct {
	SceneID     int    `json:"scene_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Cut is a single shot within a scene. The entity name lists reference
// registry entries by exact name; a cut's position in its scene, not CutID,
// is authoritative for addressing.
type Cut struct {
	CutID       int      `json:"cut_id"`
	Description string   `json:"description"`
	Character   []string `json:"character"`
	Location    []string `json:"location"`
	Object      []string `json:"object"`
}

// extractJSONArray pulls a JSON array out of a model response: a fenced
// ```json block when present, otherwise the outermost bracketed span.
func extractJSONArray(text string) (string, error) {
	if fenced, ok := fencedBlock(text); ok {
		text = fenced
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return "", ErrNoJSONArray
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", fmt.Errorf("%w: bracketed span is not valid JSON", ErrNoJSONArray)
	}
	return candidate, nil
}

func fencedBlock(text string) (string, bool) {
	for _, marker := range []string{"```json", "```"} {
		start := strings.Index(text, marker)
		if start < 0 {
			continue
		}
		rest := text[start+len(marker):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		return rest[:end], true
	}
	return "", false
}

// SaveScenes writes one JSON object per line, line order being scene order.
func SaveScenes(path string, scenes []Scene) error {
	return saveLines(path, len(scenes), func(i int) (any, error) { return scenes[i], nil })
}

// LoadScenes reads a scene file written by SaveScenes.
func LoadScenes(path string) ([]Scene, error) {
	var scenes []Scene
	err := loadLines(path, func(line []byte) error {
		var s Scene
		if err := json.Unmarshal(line, &s); err != nil {
			return err
		}
		scenes = append(scenes, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scenes, nil
}

// SaveCuts writes one JSON array per line; line N holds the cuts of scene N.
func SaveCuts(path string, cuts [][]Cut) error {
	return saveLines(path, len(cuts), func(i int) (any, error) { return cuts[i], nil })
}

// LoadCuts reads a cut file written by SaveCuts.
func LoadCuts(path string) ([][]Cut, error) {
	var cuts [][]Cut
	err := loadLines(path, func(line []byte) error {
		var sceneCuts []Cut
		if err := json.Unmarshal(line, &sceneCuts); err != nil {
			return err
		}
		cuts = append(cuts, sceneCuts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cuts, nil
}

func saveLines(path string, n int, item func(int) (any, error)) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create story dir: %w", err)
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		v, err := item(i)
		if err != nil {
			return err
		}
		line, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal line %d: %w", i+1, err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func loadLines(path string, parse func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := parse([]byte(line)); err != nil {
			return fmt.Errorf("%s line %d: %w", filepath.Base(path), lineNo, err)
		}
	}
	return scanner.Err()
}

package analyze

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/castvid/castvid-go/internal/entity"
)

const otherMarker = "other:"

var (
	numberedEntry = regexp.MustCompile(`(?m)^\s*\d+\.\s*`)
	locationEntry = regexp.MustCompile(`(?mi)^\s*location\s+\d+\s*$`)
	keyValueLine  = regexp.MustCompile(`^([\w-]+)\s*:\s*(.*)$`)
)

// splitCatchAll cuts a section block at its "other:" marker. Everything
// before the marker holds the numbered entries, everything after is the
// catch-all body for the sentinel entry.
func splitCatchAll(block string) (main, rest string) {
	idx := strings.Index(strings.ToLower(block), otherMarker)
	if idx < 0 {
		return block, ""
	}
	return block[:idx], strings.TrimSpace(block[idx+len(otherMarker):])
}

// parseEntry reads "key: value" lines into an attribute map. Lines that
// don't match the shape are ignored so stray prose from the model doesn't
// poison the entry.
func parseEntry(text string) map[string]any {
	attrs := make(map[string]any)
	for _, line := range strings.Split(text, "\n") {
		m := keyValueLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		attrs[strings.ToLower(m[1])] = m[2]
	}
	return attrs
}

// attrsJSON renders an attribute map as compact JSON. Go sorts map keys
// during marshalling, so the output is deterministic for a given map.
func attrsJSON(attrs map[string]any) string {
	data, err := json.Marshal(attrs)
	if err != nil {
		slog.Warn("failed to encode entity attributes", "error", err)
		return "{}"
	}
	return string(data)
}

// entryName pulls the display name from an entry: the "name" attribute when
// present, otherwise the entry's first non-blank line.
func entryName(text string, attrs map[string]any) string {
	if name, ok := attrs["name"].(string); ok && name != "" {
		return name
	}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// catchAllLines returns the non-blank lines of a catch-all body.
func catchAllLines(rest string) []string {
	var lines []string
	for _, line := range strings.Split(rest, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func parseCharacters(block string) []Draft {
	main, rest := splitCatchAll(block)

	var drafts []Draft
	for _, text := range numberedEntry.Split(main, -1) {
		if strings.TrimSpace(text) == "" {
			continue
		}
		attrs := parseEntry(text)
		name := entryName(text, attrs)
		if name == "" || len(attrs) == 0 {
			slog.Warn("skipping unparseable character entry", "entry", strings.TrimSpace(text))
			continue
		}
		drafts = append(drafts, Draft{Kind: entity.KindCharacter, Name: name, Description: attrsJSON(attrs)})
	}

	if lines := catchAllLines(rest); len(lines) > 0 {
		drafts = append(drafts, Draft{
			Kind:        entity.KindCharacter,
			Name:        entity.OtherName,
			Description: attrsJSON(map[string]any{"minor-characters": lines}),
		})
	}
	return drafts
}

func parseLocations(block string) []Draft {
	main, rest := splitCatchAll(block)

	var drafts []Draft
	for _, text := range locationEntry.Split(main, -1) {
		if strings.TrimSpace(text) == "" {
			continue
		}
		attrs := parseEntry(text)
		name, ok := attrs["name"].(string)
		if !ok || name == "" {
			slog.Warn("skipping location entry without a name", "entry", strings.TrimSpace(text))
			continue
		}
		drafts = append(drafts, Draft{Kind: entity.KindLocation, Name: name, Description: attrsJSON(attrs)})
	}

	// Minor locations arrive comma-separated on a single line.
	var minor []string
	for _, part := range strings.Split(rest, ",") {
		if part = strings.TrimSpace(part); part != "" {
			minor = append(minor, part)
		}
	}
	if len(minor) > 0 {
		drafts = append(drafts, Draft{
			Kind:        entity.KindLocation,
			Name:        entity.OtherName,
			Description: attrsJSON(map[string]any{"minor-locations": minor}),
		})
	}
	return drafts
}

func parseObjects(block string) []Draft {
	main, rest := splitCatchAll(block)

	var drafts []Draft
	for _, text := range numberedEntry.Split(main, -1) {
		if strings.TrimSpace(text) == "" {
			continue
		}
		attrs := parseEntry(text)
		name := entryName(text, attrs)
		if name == "" || len(attrs) == 0 {
			slog.Warn("skipping unparseable object entry", "entry", strings.TrimSpace(text))
			continue
		}
		if _, ok := attrs["name"]; !ok {
			attrs["name"] = name
		}
		drafts = append(drafts, Draft{Kind: entity.KindObject, Name: name, Description: attrsJSON(attrs)})
	}

	if lines := catchAllLines(rest); len(lines) > 0 {
		drafts = append(drafts, Draft{
			Kind:        entity.KindObject,
			Name:        entity.OtherName,
			Description: attrsJSON(map[string]any{"minor-objects": lines}),
		})
	}
	return drafts
}

package entity

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Load reads the registry file at path. Each non-empty line is expected to be
// a 4-tuple literal (kind, name, description, image-or-None). Lines that fail
// to parse are skipped with a warning so a partially corrupted registry still
// yields every intact record.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open entity list: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := ParseLine(line)
		if err != nil {
			slog.Warn("skipping malformed entity line", "path", path, "line", lineNo, "error", err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read entity list: %w", err)
	}
	return records, nil
}

// Save overwrites the registry file with one record per line, preserving list
// order. The parent directory is created if needed. This text form is the only
// persistence format so the registry stays hand-editable between runs.
func Save(path string, records []Record) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create registry dir: %w", err)
		}
	}

	var b strings.Builder
	for _, rec := range records {
		b.WriteString(FormatLine(rec))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write entity list: %w", err)
	}
	return nil
}

// ParseLine parses one registry line into a Record.
func ParseLine(line string) (Record, error) {
	v, err := parseLiteral(line)
	if err != nil {
		return Record{}, err
	}
	t, ok := v.(tuple)
	if !ok {
		return Record{}, fmt.Errorf("line is not a tuple")
	}
	if len(t) != 4 {
		return Record{}, fmt.Errorf("expected 4 fields, got %d", len(t))
	}

	kind, ok := t[0].(string)
	if !ok {
		return Record{}, fmt.Errorf("kind is not a string")
	}
	name, ok := t[1].(string)
	if !ok {
		return Record{}, fmt.Errorf("name is not a string")
	}
	desc, ok := t[2].(string)
	if !ok {
		return Record{}, fmt.Errorf("description is not a string")
	}

	var image string
	switch img := t[3].(type) {
	case nil:
		image = ""
	case string:
		image = img
	default:
		return Record{}, fmt.Errorf("image is neither a string nor None")
	}

	return Record{Kind: Kind(kind), Name: name, Description: desc, Image: image}, nil
}

// FormatLine renders a Record in the 4-tuple text form ParseLine reads back.
func FormatLine(r Record) string {
	image := "None"
	if r.Image != "" {
		image = quoteString(r.Image)
	}
	return fmt.Sprintf("(%s, %s, %s, %s)",
		quoteString(string(r.Kind)), quoteString(r.Name), quoteString(r.Description), image)
}

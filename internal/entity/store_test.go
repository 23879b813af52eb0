package entity

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sampleRecords() []Record {
	return []Record{
		{
			Kind:        KindCharacter,
			Name:        "Kim Shin",
			Description: `{"age-range": "30-40s", "gender": "male", "additional-traits": "immortal, sword in chest"}`,
			Image:       "kim_shin_character.png",
		},
		{
			Kind:        KindLocation,
			Name:        "buckwheat field",
			Description: `{"indoor-outdoor": "outdoor", "spatial-features": "vast field under moonlight"}`,
			Image:       "buckwheat_field_location.png",
		},
		{
			Kind:        KindObject,
			Name:        "jade ring",
			Description: `{"size": "one knuckle", "color": "pale green", "category": "accessory"}`,
			Image:       "",
		},
		{
			Kind:        KindCharacter,
			Name:        OtherName,
			Description: "adopted boy, king, treacherous minister",
			Image:       "",
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entity_list.txt")
	want := sampleRecords()

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entity_list.txt")
	content := "('character', 'A', '{}', 'a.png')\n" +
		"this line is not a tuple at all\n" +
		"('object', 'B', '{}', None)\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []Record{
		{Kind: KindCharacter, Name: "A", Description: "{}", Image: "a.png"},
		{Kind: KindObject, Name: "B", Description: "{}", Image: ""},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %#v, want %#v", got, want)
	}
}

func TestLoadSkipsBlankLinesAndWrongShapes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entity_list.txt")
	content := "\n" +
		"('character', 'A', '{}')\n" + // 3 fields
		"['character', 'B', '{}', None]\n" + // list, not tuple
		"('character', 'C', '{}', None)\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].Name != "C" {
		t.Errorf("Load = %#v, want only record C", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Error("Load of missing file should fail")
	}
}

func TestFormatLineUsesNoneForMissingImage(t *testing.T) {
	line := FormatLine(Record{Kind: KindObject, Name: "ring", Description: "{}"})
	want := `('object', 'ring', '{}', None)`
	if line != want {
		t.Errorf("FormatLine = %q, want %q", line, want)
	}
}

func TestSentinelHelpers(t *testing.T) {
	r := Record{Kind: KindCharacter, Name: OtherName}
	if !r.IsSentinel() {
		t.Error("expected sentinel")
	}
	if r.HasImage() {
		t.Error("sentinel must not report an image")
	}
}

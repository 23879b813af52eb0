// Package entity defines the entity registry: the cast of characters,
// locations and objects kept visually consistent across a project, and the
// line-oriented text store it lives in.
package entity

// Kind classifies a registry entry.
type Kind string

const (
	KindCharacter Kind = "character"
	KindLocation  Kind = "location"
	KindObject    Kind = "object"
	KindOther     Kind = "other"
)

// OtherName is the catch-all sentinel. An entry with this name never carries
// a reference image and is never selected for a cut.
const OtherName = "other"

// Record is one row in the registry.
//
// Description is a structured attribute set serialized as a single string: a
// JSON object for character/location/object entries, free text for the
// catch-all. Image is the reference image filename relative to the project's
// entity image directory, empty when generation failed or was skipped.
type Record struct {
	Kind        Kind
	Name        string
	Description string
	Image       string
}

// HasImage reports whether a reference image was attached to the record.
func (r Record) HasImage() bool { return r.Image != "" }

// IsSentinel reports whether the record is a catch-all entry.
func (r Record) IsSentinel() bool { return r.Name == OtherName }

// IndexOf returns the position of the record matching kind and exact name,
// or -1 when no such record exists.
func IndexOf(records []Record, kind Kind, name string) int {
	for i, r := range records {
		if r.Kind == kind && r.Name == name {
			return i
		}
	}
	return -1
}

// ValidKind reports whether k is one of the known kinds.
func ValidKind(k Kind) bool {
	switch k {
	case KindCharacter, KindLocation, KindObject, KindOther:
		return true
	}
	return false
}

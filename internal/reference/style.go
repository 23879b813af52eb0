// Package reference synthesizes per-entity reference images that anchor
// visual consistency across every downstream cut.
package reference

import "sort"

// DefaultStyle is used when an unknown style name is configured.
const DefaultStyle = "realistic"

var stylePresets = map[string]string{
	"realistic":    "photorealistic, natural lighting, high detail, true-to-life colors",
	"illustration": "digital illustration, clean lines, flat shading, vibrant palette",
	"anime":        "anime style, cel shading, expressive eyes, bold outlines",
	"watercolor":   "watercolor painting, soft washes, visible paper texture, gentle color bleeding",
	"oil_painting": "oil painting, thick brushstrokes, rich impasto texture, classical palette",
	"comic":        "comic book style, heavy ink outlines, halftone shading, dynamic composition",
	"storybook":    "children's storybook illustration, soft edges, warm colors, whimsical tone",
	"sketch":       "pencil sketch, loose hatching, monochrome, visible construction lines",
	"pixel_art":    "pixel art, limited palette, crisp 1px outlines, retro game aesthetic",
	"lowpoly":      "low poly 3D render, faceted geometry, flat shaded polygons, minimalist palette",
}

// StyleDescription resolves a style name to its prompt fragment. Unknown
// names fall back to the realistic preset so a typo in configuration
// degrades instead of failing a whole batch.
func StyleDescription(name string) string {
	if desc, ok := stylePresets[name]; ok {
		return desc
	}
	return stylePresets[DefaultStyle]
}

// KnownStyle reports whether name maps to a preset.
func KnownStyle(name string) bool {
	_, ok := stylePresets[name]
	return ok
}

// StyleNames lists the available presets in sorted order.
func StyleNames() []string {
	names := make([]string, 0, len(stylePresets))
	for name := range stylePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package video renders cuts into still images, animates them into clips
// and concatenates the clips into the final video.
package video

import (
	"fmt"
	"regexp"
	"strconv"
)

// Artifacts are addressed by scene and cut position, both 1-based. The
// zero-padded form sorts lexically in playback order, which is what the
// concatenation stage relies on.
var keyPattern = regexp.MustCompile(`^S(\d+)-C(\d+)$`)

// FormatKey renders the canonical address of a cut, e.g. "S0002-C0015".
func FormatKey(scene, cut int) string {
	return fmt.Sprintf("S%04d-C%04d", scene, cut)
}

// ParseKey inverts FormatKey. It accepts any digit width so hand-named
// files with wider padding still resolve.
func ParseKey(key string) (scene, cut int, err error) {
	m := keyPattern.FindStringSubmatch(key)
	if m == nil {
		return 0, 0, fmt.Errorf("malformed cut address %q", key)
	}
	scene, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed cut address %q: %w", key, err)
	}
	cut, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed cut address %q: %w", key, err)
	}
	if scene < 1 || cut < 1 {
		return 0, 0, fmt.Errorf("cut address %q is not 1-based", key)
	}
	return scene, cut, nil
}

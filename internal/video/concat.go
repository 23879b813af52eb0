package video

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// WriteManifest scans clipDir for .mp4 clips, orders them lexically (which
// is playback order for zero-padded addresses) and writes an ffmpeg concat
// demuxer manifest to listPath. The clip paths are returned in manifest
// order.
func WriteManifest(clipDir, listPath string) ([]string, error) {
	entries, err := os.ReadDir(clipDir)
	if err != nil {
		return nil, fmt.Errorf("read clip dir: %w", err)
	}

	var clips []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".mp4") {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(clipDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("resolve clip path: %w", err)
		}
		clips = append(clips, abs)
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("no clips in %s", clipDir)
	}
	sort.Strings(clips)

	var b strings.Builder
	for _, clip := range clips {
		fmt.Fprintf(&b, "file '%s'\n", clip)
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0644); err != nil {
		return nil, fmt.Errorf("write clip manifest: %w", err)
	}
	return clips, nil
}

// Concat stitches the clips in clipDir into one video at outPath using
// ffmpeg's concat demuxer with stream copy. ffmpeg is resolved via PATH
// lookup first; when lookup fails the bare command is still attempted, so
// shells that resolve commands differently get a second chance.
func Concat(ctx context.Context, clipDir, listPath, outPath string) error {
	clips, err := WriteManifest(clipDir, listPath)
	if err != nil {
		return err
	}
	slog.Info("concatenating clips", "count", len(clips), "out", outPath)

	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", outPath}

	ffmpeg, lookErr := exec.LookPath("ffmpeg")
	if lookErr == nil {
		if err := runFFmpeg(ctx, ffmpeg, args); err == nil {
			return nil
		} else {
			slog.Warn("ffmpeg via PATH lookup failed, retrying bare invocation", "error", err)
		}
	}

	if err := runFFmpeg(ctx, "ffmpeg", args); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w", err)
	}
	return nil
}

func runFFmpeg(ctx context.Context, bin string, args []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

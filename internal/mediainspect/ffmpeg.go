package mediainspect

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FFmpegInspector shells out to ffprobe/ffmpeg binaries.
type FFmpegInspector struct {
	ffmpegPath  string
	ffprobePath string
	tempDir     string
}

// NewFFmpegInspector creates an inspector using the given binary paths.
// Empty paths fall back to "ffmpeg"/"ffprobe" on PATH. tempDir may be
// empty to use the system default.
func NewFFmpegInspector(ffmpegPath, ffprobePath, tempDir string) *FFmpegInspector {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegInspector{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		tempDir:     tempDir,
	}
}

// Probe returns the container duration reported by ffprobe.
func (i *FFmpegInspector) Probe(ctx context.Context, path string) (time.Duration, error) {
	out, err := exec.CommandContext(ctx, i.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparseable duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// ExtractFrame grabs one frame at offset into a fresh temporary PNG.
func (i *FFmpegInspector) ExtractFrame(ctx context.Context, path string, offset time.Duration) (string, error) {
	tmp, err := os.CreateTemp(i.tempDir, "thumb-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	err = exec.CommandContext(ctx, i.ffmpegPath,
		"-y",
		"-ss", fmt.Sprintf("%.3f", offset.Seconds()),
		"-i", path,
		"-frames:v", "1",
		tmpPath,
	).Run()
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("ffmpeg frame extraction failed for %s: %w", path, err)
	}

	return tmpPath, nil
}

package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"reviewcap/internal/domain"
)

// FrameExtractor pulls still frames out of a recorded video.
type FrameExtractor struct {
	ffmpeg     string
	ffprobe    string
	thumbWidth int
}

func NewFrameExtractor(ffmpeg, ffprobe string, thumbWidth int) *FrameExtractor {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	if thumbWidth <= 0 {
		thumbWidth = 320
	}
	return &FrameExtractor{ffmpeg: ffmpeg, ffprobe: ffprobe, thumbWidth: thumbWidth}
}

// Duration returns the container duration in seconds.
func (f *FrameExtractor) Duration(ctx context.Context, videoPath string) (float64, error) {
	out, err := runTool(ctx, f.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath)
	if err != nil {
		return 0, err
	}
	value := strings.TrimSpace(string(out))
	duration, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration %q: %w", value, err)
	}
	return duration, nil
}

// Extract writes the frame at offset seconds to imagePath, and a scaled copy
// to thumbPath when it is set.
func (f *FrameExtractor) Extract(ctx context.Context, videoPath string, offset float64, imagePath, thumbPath string) error {
	if err := os.MkdirAll(filepath.Dir(imagePath), 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	_, err := runTool(ctx, f.ffmpeg,
		"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		imagePath)
	if err != nil {
		return err
	}
	// ffmpeg exits cleanly when seeking past the last frame.
	if info, statErr := os.Stat(imagePath); statErr != nil || info.Size() == 0 {
		return fmt.Errorf("%w: no frame at %.3fs", domain.ErrNoFrames, offset)
	}

	if thumbPath == "" {
		return nil
	}
	_, err = runTool(ctx, f.ffmpeg,
		"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
		"-i", imagePath,
		"-vf", fmt.Sprintf("scale=%d:-1", f.thumbWidth),
		thumbPath)
	return err
}

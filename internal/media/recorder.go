package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"reviewcap/internal/domain"
	"reviewcap/internal/ports"
)

// ScreenConfig selects the ffmpeg screen grabber.
type ScreenConfig struct {
	InputFormat string
	Device      string
	FrameRate   int
}

// MicrophoneConfig selects the ffmpeg audio input.
type MicrophoneConfig struct {
	InputFormat string
	Device      string
	SampleRate  int
	Channels    int
}

// Recorder captures one input through ffmpeg. Every start or resume writes a
// new segment; Finish joins the segments into <BaseName>.<ext>.
type Recorder struct {
	command     string
	input       []string
	encode      []string
	ext         string
	settle      time.Duration
	stopTimeout time.Duration
}

func NewScreenRecorder(command string, cfg ScreenConfig) *Recorder {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 30
	}
	input := []string{"-f", cfg.InputFormat, "-framerate", strconv.Itoa(cfg.FrameRate)}
	if cfg.InputFormat == "avfoundation" {
		input = append(input, "-capture_cursor", "1")
	}
	input = append(input, "-i", cfg.Device)

	return newRecorder(command, input,
		[]string{"-c:v", "libx264", "-preset", "ultrafast", "-pix_fmt", "yuv420p"}, "mp4")
}

func NewMicrophoneRecorder(command string, cfg MicrophoneConfig) *Recorder {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	input := []string{"-f", cfg.InputFormat, "-i", cfg.Device}

	return newRecorder(command, input, []string{
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", "aac", "-b:a", "128k",
	}, "m4a")
}

func newRecorder(command string, input, encode []string, ext string) *Recorder {
	if command == "" {
		command = "ffmpeg"
	}
	return &Recorder{
		command:     command,
		input:       input,
		encode:      encode,
		ext:         ext,
		settle:      defaultSettle,
		stopTimeout: defaultStopTimeout,
	}
}

func (r *Recorder) Start(ctx context.Context, cfg ports.CaptureConfig) (ports.MediaSession, error) {
	if cfg.Dir == "" || cfg.BaseName == "" {
		return nil, errors.New("capture directory and base name are required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating capture directory: %v", domain.ErrIO, err)
	}

	s := &segmentedSession{recorder: r, ctx: ctx, dir: cfg.Dir, base: cfg.BaseName}
	if err := s.startSegment(); err != nil {
		return nil, err
	}
	return s, nil
}

type segmentedSession struct {
	recorder *Recorder
	ctx      context.Context
	dir      string
	base     string

	mu       sync.Mutex
	current  *process
	segments []string
	done     bool
}

func (s *segmentedSession) segmentPath(n int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-segment-%03d.%s", s.base, n, s.recorder.ext))
}

// startSegment must be called with mu held or before the session is shared.
func (s *segmentedSession) startSegment() error {
	path := s.segmentPath(len(s.segments))
	args := []string{"-nostdin", "-hide_banner", "-loglevel", "warning", "-y"}
	args = append(args, s.recorder.input...)
	args = append(args, s.recorder.encode...)
	args = append(args, path)

	proc, err := startProcess(s.ctx, s.recorder.command, args, s.recorder.settle)
	if err != nil {
		return err
	}
	s.current = proc
	s.segments = append(s.segments, path)
	return nil
}

// stopSegment must be called with mu held.
func (s *segmentedSession) stopSegment() error {
	if s.current == nil {
		return nil
	}
	err := s.current.stop(s.recorder.stopTimeout)
	s.current = nil
	return err
}

func (s *segmentedSession) Pause(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return errors.New("capture session already finished")
	}
	return s.stopSegment()
}

func (s *segmentedSession) Resume(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return errors.New("capture session already finished")
	}
	if s.current != nil {
		return nil
	}
	return s.startSegment()
}

func (s *segmentedSession) Finish(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return "", errors.New("capture session already finished")
	}
	s.done = true

	if err := s.stopSegment(); err != nil {
		return "", err
	}

	written := make([]string, 0, len(s.segments))
	for _, seg := range s.segments {
		if info, err := os.Stat(seg); err == nil && info.Size() > 0 {
			written = append(written, seg)
		}
	}
	if len(written) == 0 {
		return "", fmt.Errorf("%w: no %s data was written", domain.ErrIO, s.base)
	}

	output := filepath.Join(s.dir, s.base+"."+s.recorder.ext)
	if len(written) == 1 {
		if err := os.Rename(written[0], output); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrIO, err)
		}
		return output, nil
	}

	if err := s.concat(ctx, written, output); err != nil {
		return "", err
	}
	for _, seg := range written {
		_ = os.Remove(seg)
	}
	return output, nil
}

// concat joins segments with ffmpeg's concat demuxer without re-encoding.
func (s *segmentedSession) concat(ctx context.Context, segments []string, output string) error {
	var list strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(seg, "'", `'\''`))
	}
	listPath := filepath.Join(s.dir, s.base+"-segments.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	defer os.Remove(listPath)

	_, err := runTool(ctx, s.recorder.command,
		"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy", output)
	if err != nil {
		return fmt.Errorf("joining %s segments: %w", s.base, err)
	}
	return nil
}

// Close stops capture without producing the final file.
func (s *segmentedSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	return s.stopSegment()
}

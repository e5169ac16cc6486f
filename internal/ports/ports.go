package ports

import (
	"context"
	"io"

	"reviewcap/internal/domain"
)

// CaptureConfig describes where a capture session writes its output.
type CaptureConfig struct {
	// Dir receives the segment files and the finalized media file.
	Dir string
	// BaseName is the finalized file name without extension.
	BaseName string
}

// MediaSession is a live capture writing to disk.
type MediaSession interface {
	// Pause stops writing samples until Resume.
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	// Finish stops capture and returns the path of the finalized media file.
	Finish(ctx context.Context) (string, error)
	// Close releases the session without finalizing output.
	Close() error
}

// MediaCapture creates screen or microphone capture sessions.
type MediaCapture interface {
	Start(ctx context.Context, cfg CaptureConfig) (MediaSession, error)
}

// FrameExtractor pulls still frames out of a recorded video.
type FrameExtractor interface {
	Duration(ctx context.Context, videoPath string) (float64, error)
	// Extract writes the frame at offset seconds to imagePath and, when
	// thumbPath is non-empty, a scaled copy to thumbPath.
	Extract(ctx context.Context, videoPath string, offset float64, imagePath, thumbPath string) error
}

// PCMDecoder turns an audio file into raw PCM suitable for streaming recognition.
type PCMDecoder interface {
	Decode(ctx context.Context, audioPath string, sampleRate, channels int) (io.ReadCloser, error)
}

// SpeechRecognizer transcribes an audio file into timed segments.
type SpeechRecognizer interface {
	Recognize(ctx context.Context, audioPath string) ([]domain.SpeechSegment, error)
}

// Summarizer condenses commentary text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SessionRepository persists sessions.
type SessionRepository interface {
	Create(name string) (domain.Session, error)
	Get(id string) (domain.Session, error)
	List() ([]domain.Session, error)
	Save(session domain.Session) error
	Delete(id string) error
	MediaDir(id string) string
	ScreenshotsDir(id string) string
}

// RecordingHandler receives finalized recordings.
type RecordingHandler interface {
	RecordingFinished(ctx context.Context, result domain.RecordingResult) error
	// RecordingInterrupted stores media from a recording cut short by
	// application exit. No analysis runs.
	RecordingInterrupted(ctx context.Context, result domain.RecordingResult) error
}

// Exporter renders a session into a document.
type Exporter interface {
	Export(session domain.Session, destDir string) (string, error)
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	RecordingStateChanged(state domain.RecordingState, reason domain.StateReason)
	ElapsedChanged(seconds int)
	AnalysisProgress(sessionID string, stage domain.AnalysisStage)
	SessionError(code domain.ErrorCode, detail string)
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"reviewcap/internal/domain"
	"reviewcap/internal/observe"
	"reviewcap/internal/ports"
	"reviewcap/internal/timeline"
)

// AnalysisConfig controls frame extraction and transcript post-processing.
type AnalysisConfig struct {
	// FrameInterval is the spacing between extracted frames, in seconds.
	FrameInterval float64
	// MergeGap is the largest silence bridged when merging speech segments.
	MergeGap   float64
	Thumbnails bool
	// Workers bounds concurrent frame extractions and summaries.
	Workers int
}

// Analyzer turns a finished recording into screenshots and commentary and
// stores them on the session.
type Analyzer struct {
	sessions   ports.SessionRepository
	frames     ports.FrameExtractor
	speech     ports.SpeechRecognizer
	summarizer ports.Summarizer
	events     ports.EventSink
	logger     *slog.Logger
	metrics    *observe.Metrics
	cfg        AnalysisConfig
	newID      func() string
}

// NewAnalyzer wires an analyzer. summarizer may be nil.
func NewAnalyzer(
	sessions ports.SessionRepository,
	frames ports.FrameExtractor,
	speech ports.SpeechRecognizer,
	summarizer ports.Summarizer,
	events ports.EventSink,
	logger *slog.Logger,
	metrics *observe.Metrics,
	cfg AnalysisConfig,
) *Analyzer {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = 5
	}
	if cfg.MergeGap <= 0 {
		cfg.MergeGap = timeline.DefaultMergeGap
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if logger == nil {
		logger = observe.Discard()
	}
	return &Analyzer{
		sessions:   sessions,
		frames:     frames,
		speech:     speech,
		summarizer: summarizer,
		events:     events,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
		newID:      uuid.NewString,
	}
}

// RecordingFinished attaches the finalized media to its session and analyzes it.
func (a *Analyzer) RecordingFinished(ctx context.Context, result domain.RecordingResult) error {
	session, err := a.attach(result)
	if err != nil {
		return err
	}
	_, err = a.analyze(ctx, session)
	return err
}

// RecordingInterrupted attaches the media only; Reanalyze picks it up later.
func (a *Analyzer) RecordingInterrupted(_ context.Context, result domain.RecordingResult) error {
	_, err := a.attach(result)
	return err
}

func (a *Analyzer) attach(result domain.RecordingResult) (domain.Session, error) {
	session, err := a.sessions.Get(result.SessionID)
	if err != nil {
		return domain.Session{}, err
	}

	session.VideoPath = result.VideoPath
	session.AudioPath = result.AudioPath
	session.Duration = result.Duration
	if err := a.sessions.Save(session); err != nil {
		return domain.Session{}, fmt.Errorf("attach media to session %s: %w", session.ID, err)
	}
	return session, nil
}

// Reanalyze repeats analysis for a session that already has media attached.
func (a *Analyzer) Reanalyze(ctx context.Context, sessionID string) (domain.Session, error) {
	session, err := a.sessions.Get(sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if !session.HasMedia() {
		return domain.Session{}, fmt.Errorf("%w: session %s", domain.ErrNoMedia, sessionID)
	}
	return a.analyze(ctx, session)
}

func (a *Analyzer) analyze(ctx context.Context, session domain.Session) (domain.Session, error) {
	shots, err := a.extractFrames(ctx, session)
	if err != nil {
		return domain.Session{}, err
	}

	a.events.AnalysisProgress(session.ID, domain.StageTranscribe)
	started := time.Now()
	segments, err := a.speech.Recognize(ctx, session.AudioPath)
	if err != nil {
		return domain.Session{}, fmt.Errorf("recognize speech: %w", err)
	}
	a.metrics.ObserveStage(ctx, string(domain.StageTranscribe), started)
	transcriptions := timeline.MergeSegments(segments, a.cfg.MergeGap, a.newID)

	if a.summarizer != nil && len(transcriptions) > 0 {
		a.events.AnalysisProgress(session.ID, domain.StageSummarize)
		a.summarize(ctx, transcriptions)
	}

	session.Screenshots = shots
	session.Transcriptions = transcriptions
	if err := a.sessions.Save(session); err != nil {
		return domain.Session{}, fmt.Errorf("save analysis for session %s: %w", session.ID, err)
	}

	a.logger.Info("analysis complete",
		"session", session.ID, "screenshots", len(shots), "transcriptions", len(transcriptions))
	a.events.AnalysisProgress(session.ID, domain.StageSaved)
	return session, nil
}

// extractFrames pulls one frame per interval. Individual failures are logged
// and skipped; it only fails when no frame could be produced at all.
func (a *Analyzer) extractFrames(ctx context.Context, session domain.Session) ([]domain.Screenshot, error) {
	a.events.AnalysisProgress(session.ID, domain.StageFrames)
	started := time.Now()

	duration, err := a.frames.Duration(ctx, session.VideoPath)
	if err != nil || duration <= 0 {
		if session.Duration <= 0 {
			return nil, fmt.Errorf("%w: cannot determine video duration: %v", domain.ErrNoFrames, err)
		}
		a.logger.Warn("probing video duration failed, using recorded duration",
			"session", session.ID, "err", err, "duration", session.Duration)
		duration = session.Duration
	}

	offsets := frameOffsets(duration, a.cfg.FrameInterval)
	dir := a.sessions.ScreenshotsDir(session.ID)
	extracted := make([]*domain.Screenshot, len(offsets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	for i, offset := range offsets {
		i, offset := i, offset
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name := fmt.Sprintf("frame-%07d", int64(offset*1000))
			shot := domain.Screenshot{Timestamp: offset, ImagePath: filepath.Join(dir, name+".png")}
			if a.cfg.Thumbnails {
				shot.ThumbnailPath = filepath.Join(dir, name+"-thumb.jpg")
			}
			if err := a.frames.Extract(gctx, session.VideoPath, offset, shot.ImagePath, shot.ThumbnailPath); err != nil {
				a.logger.Warn("skipping frame", "session", session.ID, "offset", offset, "err", err)
				a.metrics.FrameSkipped(ctx)
				return nil
			}
			a.metrics.FrameExtracted(ctx)
			extracted[i] = &shot
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	shots := lo.FilterMap(extracted, func(shot *domain.Screenshot, _ int) (domain.Screenshot, bool) {
		if shot == nil {
			return domain.Screenshot{}, false
		}
		out := *shot
		out.ID = a.newID()
		return out, true
	})
	if len(shots) == 0 {
		return nil, fmt.Errorf("%w: %d offsets attempted", domain.ErrNoFrames, len(offsets))
	}

	a.metrics.ObserveStage(ctx, string(domain.StageFrames), started)
	return shots, nil
}

// summarize fills Summary in place. Failures leave the summary empty.
func (a *Analyzer) summarize(ctx context.Context, transcriptions []domain.Transcription) {
	started := time.Now()
	var g errgroup.Group
	g.SetLimit(a.cfg.Workers)
	for i := range transcriptions {
		i := i
		g.Go(func() error {
			summary, err := a.summarizer.Summarize(ctx, transcriptions[i].Text)
			if err != nil {
				a.logger.Warn("summary failed", "transcription", transcriptions[i].ID, "err", err)
				return nil
			}
			transcriptions[i].Summary = summary
			return nil
		})
	}
	_ = g.Wait()
	a.metrics.ObserveStage(ctx, string(domain.StageSummarize), started)
}

func frameOffsets(duration, interval float64) []float64 {
	var offsets []float64
	for i := 0; float64(i)*interval < duration; i++ {
		offsets = append(offsets, float64(i)*interval)
	}
	return offsets
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"reviewcap/internal/domain"
	"reviewcap/internal/observe"
	"reviewcap/internal/ports"
)

// Config controls recording behavior.
type Config struct {
	// TickInterval is the elapsed counter period. Defaults to one second.
	TickInterval time.Duration
	// VideoBaseName and AudioBaseName name the finalized media files.
	VideoBaseName string
	AudioBaseName string
}

// RecordingController sequences screen and microphone capture through the
// idle, preparing, recording, paused, processing and error states.
type RecordingController struct {
	screen  ports.MediaCapture
	audio   ports.MediaCapture
	handler ports.RecordingHandler
	events  ports.EventSink
	logger  *slog.Logger
	metrics *observe.Metrics
	cfg     Config
	now     func() time.Time

	// opMu serializes lifecycle operations across collaborator calls.
	opMu sync.Mutex

	// mu guards state, elapsed and current; the ticker only takes mu.
	mu      sync.Mutex
	state   domain.RecordingState
	elapsed int
	current *activeRecording
}

func NewRecordingController(
	screen ports.MediaCapture,
	audio ports.MediaCapture,
	handler ports.RecordingHandler,
	events ports.EventSink,
	logger *slog.Logger,
	metrics *observe.Metrics,
	cfg Config,
) *RecordingController {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.VideoBaseName == "" {
		cfg.VideoBaseName = "screen"
	}
	if cfg.AudioBaseName == "" {
		cfg.AudioBaseName = "narration"
	}
	if logger == nil {
		logger = observe.Discard()
	}
	return &RecordingController{
		screen:  screen,
		audio:   audio,
		handler: handler,
		events:  events,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
		now:     time.Now,
		state:   domain.Idle(),
	}
}

// Start begins capturing into target. Valid from idle, or from error after a
// failed run. Capture outlives cancellation of ctx; it ends through Stop,
// Shutdown or a failure.
func (c *RecordingController) Start(ctx context.Context, target domain.RecordingTarget) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if !c.state.Is(domain.PhaseIdle) && !c.state.Is(domain.PhaseError) {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot start while %s", domain.ErrInvalidTransition, state)
	}
	c.state = domain.Preparing()
	c.elapsed = 0
	c.mu.Unlock()
	c.events.RecordingStateChanged(domain.Preparing(), domain.ReasonPreparing)
	c.events.ElapsedChanged(0)

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	screen, audio, err := c.startCaptures(sessionCtx, target)
	if err != nil {
		cancel()
		c.fail(ctx, nil, domain.ErrorCodeCapture, domain.ReasonCaptureFailed, err)
		return err
	}

	active := newActiveRecording(target, cancel, screen, audio, c.now())

	c.mu.Lock()
	c.current = active
	c.state = domain.Recording()
	c.elapsed = 0
	c.mu.Unlock()

	go c.runTicker(active)

	c.logger.Info("recording started", "session", target.SessionID)
	c.events.RecordingStateChanged(domain.Recording(), domain.ReasonRecordingStarted)
	return nil
}

// startCaptures opens screen and microphone capture concurrently so both
// files begin at the same instant. On failure no session is left open.
func (c *RecordingController) startCaptures(ctx context.Context, target domain.RecordingTarget) (ports.MediaSession, ports.MediaSession, error) {
	var screen, audio ports.MediaSession
	var g errgroup.Group
	g.Go(func() error {
		s, err := c.screen.Start(ctx, ports.CaptureConfig{Dir: target.MediaDir, BaseName: c.cfg.VideoBaseName})
		if err != nil {
			return fmt.Errorf("start screen capture: %w", err)
		}
		screen = s
		return nil
	})
	g.Go(func() error {
		s, err := c.audio.Start(ctx, ports.CaptureConfig{Dir: target.MediaDir, BaseName: c.cfg.AudioBaseName})
		if err != nil {
			return fmt.Errorf("start audio capture: %w", err)
		}
		audio = s
		return nil
	})
	if err := g.Wait(); err != nil {
		for _, session := range []ports.MediaSession{screen, audio} {
			if session == nil {
				continue
			}
			if closeErr := session.Close(); closeErr != nil {
				c.logger.Warn("release capture session", "err", closeErr)
			}
		}
		return nil, nil, err
	}
	return screen, audio, nil
}

// onBoth runs op on the screen and audio sessions concurrently.
func onBoth(active *activeRecording, verb string, op func(ports.MediaSession) error) error {
	var g errgroup.Group
	g.Go(func() error {
		if err := op(active.screen); err != nil {
			return fmt.Errorf("%s screen capture: %w", verb, err)
		}
		return nil
	})
	g.Go(func() error {
		if err := op(active.audio); err != nil {
			return fmt.Errorf("%s audio capture: %w", verb, err)
		}
		return nil
	})
	return g.Wait()
}

// Pause stops writing media samples. Only valid while recording.
func (c *RecordingController) Pause(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if !c.state.Is(domain.PhaseRecording) {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot pause while %s", domain.ErrInvalidTransition, state)
	}
	active := c.current
	c.state = domain.Paused()
	active.closeSpan(c.now())
	c.mu.Unlock()

	err := onBoth(active, "pause", func(s ports.MediaSession) error { return s.Pause(ctx) })
	if err != nil {
		c.fail(ctx, active, domain.ErrorCodeCapture, domain.ReasonCaptureFailed, err)
		return err
	}

	c.events.RecordingStateChanged(domain.Paused(), domain.ReasonRecordingPaused)
	return nil
}

// Resume continues writing media samples. Only valid while paused.
func (c *RecordingController) Resume(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if !c.state.Is(domain.PhasePaused) {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot resume while %s", domain.ErrInvalidTransition, state)
	}
	active := c.current
	c.mu.Unlock()

	err := onBoth(active, "resume", func(s ports.MediaSession) error { return s.Resume(ctx) })
	if err != nil {
		c.fail(ctx, active, domain.ErrorCodeCapture, domain.ReasonCaptureFailed, err)
		return err
	}

	c.mu.Lock()
	c.state = domain.Recording()
	active.spanStart = c.now()
	c.mu.Unlock()

	c.events.RecordingStateChanged(domain.Recording(), domain.ReasonRecordingResumed)
	return nil
}

// Stop finalizes both media files and hands them to the completion handler.
// The controller stays in processing until the handler returns, then goes
// idle. Only valid while recording or paused.
func (c *RecordingController) Stop(ctx context.Context) (domain.RecordingResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	active, err := c.beginProcessing("stop")
	if err != nil {
		return domain.RecordingResult{}, err
	}
	c.events.RecordingStateChanged(domain.Processing(), domain.ReasonFinalizing)

	result, err := c.finalize(ctx, active)
	if err != nil {
		c.fail(ctx, active, domain.ErrorCodeFinalize, domain.ReasonFinalizeFailed, err)
		return domain.RecordingResult{}, err
	}

	if c.handler != nil {
		if err := c.handler.RecordingFinished(ctx, result); err != nil {
			c.fail(ctx, nil, domain.ErrorCodeAnalysis, domain.ReasonAnalysisFailed, err)
			return result, err
		}
	}

	c.toIdle(domain.ReasonAnalysisComplete)
	return result, nil
}

// Shutdown ends an in-flight recording when the application exits. Media
// captured so far is finalized and passed to the handler's
// RecordingInterrupted, without analysis. The controller ends idle even when
// finalizing fails. From any other state it does nothing.
func (c *RecordingController) Shutdown(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	active, err := c.beginProcessing("shut down")
	if err != nil {
		return nil
	}

	result, err := c.finalize(ctx, active)
	if err != nil {
		for _, releaseErr := range active.release() {
			c.logger.Warn("release capture session", "err", releaseErr)
		}
	} else if c.handler != nil {
		err = c.handler.RecordingInterrupted(ctx, result)
	}
	if err != nil {
		c.logger.Error("recording interrupted by shutdown", "session", active.target.SessionID, "err", err)
	} else {
		c.logger.Info("recording saved on shutdown", "session", result.SessionID, "duration", result.Duration)
	}

	c.toIdle(domain.ReasonInterrupted)
	return err
}

// beginProcessing moves a recording or paused controller to processing and
// stops the elapsed ticker.
func (c *RecordingController) beginProcessing(verb string) (*activeRecording, error) {
	c.mu.Lock()
	if !c.state.Is(domain.PhaseRecording) && !c.state.Is(domain.PhasePaused) {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot %s while %s", domain.ErrInvalidTransition, verb, state)
	}
	active := c.current
	c.state = domain.Processing()
	active.closeSpan(c.now())
	c.mu.Unlock()

	active.stopTicker()
	return active, nil
}

// finalize finishes both media files. On error the caller releases active.
func (c *RecordingController) finalize(ctx context.Context, active *activeRecording) (domain.RecordingResult, error) {
	videoPath, err := active.screen.Finish(ctx)
	if err != nil {
		return domain.RecordingResult{}, fmt.Errorf("finalize screen recording: %w", err)
	}
	audioPath, err := active.audio.Finish(ctx)
	if err != nil {
		return domain.RecordingResult{}, fmt.Errorf("finalize audio recording: %w", err)
	}
	active.cancel()

	result := domain.RecordingResult{
		SessionID: active.target.SessionID,
		VideoPath: videoPath,
		AudioPath: audioPath,
		Duration:  active.recorded.Seconds(),
	}
	c.metrics.RecordingCompleted(ctx)
	c.logger.Info("recording finalized",
		"session", result.SessionID, "video", videoPath, "audio", audioPath, "duration", result.Duration)
	return result, nil
}

func (c *RecordingController) toIdle(reason domain.StateReason) {
	c.mu.Lock()
	c.state = domain.Idle()
	c.elapsed = 0
	c.current = nil
	c.mu.Unlock()

	c.events.RecordingStateChanged(domain.Idle(), reason)
	c.events.ElapsedChanged(0)
}

// Reset clears an error state back to idle.
func (c *RecordingController) Reset() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if !c.state.Is(domain.PhaseError) {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot reset while %s", domain.ErrInvalidTransition, state)
	}
	c.mu.Unlock()

	c.toIdle(domain.ReasonReset)
	return nil
}

// Status returns the current backend status.
func (c *RecordingController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := domain.Status{State: c.state, Elapsed: c.elapsed, Active: c.state.Active()}
	if c.current != nil {
		status.SessionID = c.current.target.SessionID
	}
	return status
}

func (c *RecordingController) runTicker(active *activeRecording) {
	defer close(active.tickerDone)

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.tick()
		case <-active.tickerStop:
			return
		}
	}
}

// tick advances the elapsed counter. It only counts while recording, and
// reads state under the same mutex that transitions write it.
func (c *RecordingController) tick() {
	c.mu.Lock()
	if !c.state.Is(domain.PhaseRecording) {
		c.mu.Unlock()
		return
	}
	c.elapsed++
	elapsed := c.elapsed
	c.mu.Unlock()

	c.events.ElapsedChanged(elapsed)
}

// fail releases any held collaborators before moving to the error state and
// signaling it.
func (c *RecordingController) fail(ctx context.Context, active *activeRecording, code domain.ErrorCode, reason domain.StateReason, err error) {
	if active != nil {
		for _, releaseErr := range active.release() {
			c.logger.Warn("release capture session", "err", releaseErr)
		}
	}

	state := domain.Failed(err.Error())
	c.mu.Lock()
	c.state = state
	c.current = nil
	c.mu.Unlock()

	c.metrics.RecordingFailed(ctx, string(code))
	c.logger.Error("recording failed", "code", code, "err", err)
	c.events.SessionError(code, err.Error())
	c.events.RecordingStateChanged(state, reason)
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"reviewcap/internal/domain"
	"reviewcap/internal/ports"
)

var testTarget = domain.RecordingTarget{SessionID: "sess-1", MediaDir: "/tmp/sess-1/media"}

func newTestController(screen, audio *fakeCapture, handler ports.RecordingHandler, events *fakeEventSink) *RecordingController {
	return NewRecordingController(screen, audio, handler, events, nil, nil, Config{TickInterval: time.Hour})
}

func TestRecordingControllerFullLifecycle(t *testing.T) {
	t.Parallel()

	screenSession := &fakeMediaSession{path: "/tmp/sess-1/media/screen.mp4"}
	audioSession := &fakeMediaSession{path: "/tmp/sess-1/media/narration.m4a"}
	screen := &fakeCapture{sessions: []*fakeMediaSession{screenSession}}
	audio := &fakeCapture{sessions: []*fakeMediaSession{audioSession}}
	handler := &fakeHandler{}
	events := &fakeEventSink{}

	controller := newTestController(screen, audio, handler, events)
	ctx := context.Background()

	if err := controller.Start(ctx, testTarget); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := controller.Pause(ctx); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if err := controller.Resume(ctx); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	result, err := controller.Stop(ctx)
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	if result.SessionID != "sess-1" || result.VideoPath != screenSession.path || result.AudioPath != audioSession.path {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(handler.results) != 1 || handler.results[0] != result {
		t.Fatalf("expected completion handler to receive result, got %+v", handler.results)
	}
	if screen.configs[0].Dir != testTarget.MediaDir || screen.configs[0].BaseName != "screen" {
		t.Fatalf("unexpected screen capture config: %+v", screen.configs[0])
	}
	if audio.configs[0].BaseName != "narration" {
		t.Fatalf("unexpected audio capture config: %+v", audio.configs[0])
	}
	if screenSession.pauseCalls != 1 || screenSession.resumeCalls != 1 || screenSession.finishCalls != 1 {
		t.Fatalf("unexpected screen session calls: %+v", screenSession)
	}

	want := []domain.Phase{
		domain.PhasePreparing,
		domain.PhaseRecording,
		domain.PhasePaused,
		domain.PhaseRecording,
		domain.PhaseProcessing,
		domain.PhaseIdle,
	}
	states := events.snapshotStates()
	if len(states) != len(want) {
		t.Fatalf("expected %d transitions, got %+v", len(want), states)
	}
	for i, phase := range want {
		if states[i].state.Phase != phase {
			t.Fatalf("transition %d: expected %s, got %s", i, phase, states[i].state.Phase)
		}
	}
	if states[len(states)-1].reason != domain.ReasonAnalysisComplete {
		t.Fatalf("unexpected final reason: %s", states[len(states)-1].reason)
	}

	status := controller.Status()
	if !status.State.Equal(domain.Idle()) || status.Active || status.Elapsed != 0 || status.SessionID != "" {
		t.Fatalf("unexpected final status: %+v", status)
	}
}

func TestRecordingControllerInvalidTransitionsAreNoOps(t *testing.T) {
	t.Parallel()

	screen := &fakeCapture{sessions: []*fakeMediaSession{{}}}
	audio := &fakeCapture{sessions: []*fakeMediaSession{{}}}
	events := &fakeEventSink{}
	controller := newTestController(screen, audio, nil, events)
	ctx := context.Background()

	if err := controller.Pause(ctx); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on pause from idle, got %v", err)
	}
	if err := controller.Resume(ctx); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on resume from idle, got %v", err)
	}
	if _, err := controller.Stop(ctx); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on stop from idle, got %v", err)
	}
	if !controller.Status().State.Equal(domain.Idle()) {
		t.Fatalf("expected idle state to be unchanged")
	}
	if len(events.snapshotStates()) != 0 {
		t.Fatalf("no-op calls must not emit transitions")
	}

	if err := controller.Start(ctx, testTarget); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := controller.Resume(ctx); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on resume while recording, got %v", err)
	}
	if err := controller.Start(ctx, testTarget); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on second start, got %v", err)
	}
	if !controller.Status().State.Equal(domain.Recording()) {
		t.Fatalf("expected recording state to be unchanged, got %v", controller.Status().State)
	}

	if err := controller.Pause(ctx); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if err := controller.Pause(ctx); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on pause while paused, got %v", err)
	}
	if !controller.Status().State.Equal(domain.Paused()) {
		t.Fatalf("expected paused state to be unchanged")
	}
	if screen.sessions[0].pauseCalls != 1 {
		t.Fatalf("expected one pause call on collaborator, got %d", screen.sessions[0].pauseCalls)
	}
}

func TestRecordingControllerElapsedOnlyCountsWhileRecording(t *testing.T) {
	t.Parallel()

	screen := &fakeCapture{sessions: []*fakeMediaSession{{}}}
	audio := &fakeCapture{sessions: []*fakeMediaSession{{}}}
	events := &fakeEventSink{}
	controller := newTestController(screen, audio, nil, events)
	ctx := context.Background()

	controller.tick()
	if got := controller.Status().Elapsed; got != 0 {
		t.Fatalf("elapsed advanced while idle: %d", got)
	}

	if err := controller.Start(ctx, testTarget); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	controller.tick()
	controller.tick()
	if got := controller.Status().Elapsed; got != 2 {
		t.Fatalf("expected elapsed 2, got %d", got)
	}

	if err := controller.Pause(ctx); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	controller.tick()
	if got := controller.Status().Elapsed; got != 2 {
		t.Fatalf("elapsed advanced while paused: %d", got)
	}

	if err := controller.Resume(ctx); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	controller.tick()
	if got := controller.Status().Elapsed; got != 3 {
		t.Fatalf("expected elapsed 3 after resume, got %d", got)
	}

	if _, err := controller.Stop(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if got := controller.Status().Elapsed; got != 0 {
		t.Fatalf("expected elapsed reset on idle, got %d", got)
	}
	controller.tick()
	if got := controller.Status().Elapsed; got != 0 {
		t.Fatalf("elapsed advanced after stop: %d", got)
	}

	// Start and the move to idle both publish a zeroed counter.
	ticks := events.snapshotElapsed()
	if fmt.Sprint(ticks) != "[0 1 2 3 0]" {
		t.Fatalf("unexpected elapsed events: %v", ticks)
	}
}

func TestRecordingControllerTickerDrivesElapsed(t *testing.T) {
	t.Parallel()

	screen := &fakeCapture{sessions: []*fakeMediaSession{{}}}
	audio := &fakeCapture{sessions: []*fakeMediaSession{{}}}
	controller := NewRecordingController(screen, audio, nil, &fakeEventSink{}, nil, nil, Config{TickInterval: 5 * time.Millisecond})
	ctx := context.Background()

	if err := controller.Start(ctx, testTarget); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for controller.Status().Elapsed < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("ticker did not advance elapsed counter")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := controller.Stop(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if got := controller.Status().Elapsed; got != 0 {
		t.Fatalf("ticker advanced elapsed after stop: %d", got)
	}
}

func TestRecordingControllerStopRacingTicks(t *testing.T) {
	t.Parallel()

	screen := &fakeCapture{sessions: []*fakeMediaSession{{}}}
	audio := &fakeCapture{sessions: []*fakeMediaSession{{}}}
	controller := newTestController(screen, audio, nil, &fakeEventSink{})
	ctx := context.Background()

	if err := controller.Start(ctx, testTarget); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					controller.tick()
				}
			}
		}()
	}

	if _, err := controller.Stop(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	status := controller.Status()
	close(stop)
	wg.Wait()

	if !status.State.Equal(domain.Idle()) || status.Elapsed != 0 {
		t.Fatalf("inconsistent status after stop: %+v", status)
	}
	if got := controller.Status().Elapsed; got != 0 {
		t.Fatalf("elapsed advanced after stop: %d", got)
	}
}

func TestRecordingControllerDurationExcludesPauses(t *testing.T) {
	t.Parallel()

	screen := &fakeCapture{sessions: []*fakeMediaSession{{}}}
	audio := &fakeCapture{sessions: []*fakeMediaSession{{}}}
	controller := newTestController(screen, audio, nil, &fakeEventSink{})
	clock := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	controller.now = func() time.Time { return clock }
	ctx := context.Background()

	if err := controller.Start(ctx, testTarget); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	clock = clock.Add(3 * time.Second)
	if err := controller.Pause(ctx); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	clock = clock.Add(7 * time.Second)
	if err := controller.Resume(ctx); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	clock = clock.Add(2 * time.Second)
	result, err := controller.Stop(ctx)
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if result.Duration != 5 {
		t.Fatalf("expected 5s of recorded time, got %v", result.Duration)
	}
}

func TestRecordingControllerScreenStartFailure(t *testing.T) {
	t.Parallel()

	screen := &fakeCapture{err: domain.ErrDeviceUnavailable}
	audio := &fakeCapture{sessions: []*fakeMediaSession{{}}}
	events := &fakeEventSink{}
	controller := newTestController(screen, audio, nil, events)

	err := controller.Start(context.Background(), testTarget)
	if !errors.Is(err, domain.ErrDeviceUnavailable) {
		t.Fatalf("expected device unavailable, got %v", err)
	}
	if audio.calls == 1 && !audio.sessions[0].closed() {
		t.Fatalf("audio capture must be released after screen failure")
	}

	status := controller.Status()
	if status.State.Phase != domain.PhaseError || status.Active {
		t.Fatalf("unexpected status: %+v", status)
	}
	if !status.State.Equal(domain.Failed(err.Error())) {
		t.Fatalf("expected error message %q, got %q", err.Error(), status.State.Message)
	}

	errs := events.snapshotErrors()
	if len(errs) != 1 || errs[0].code != domain.ErrorCodeCapture {
		t.Fatalf("expected capture error event, got %+v", errs)
	}
}

func TestRecordingControllerAudioStartFailureReleasesScreen(t *testing.T) {
	t.Parallel()

	screenSession := &fakeMediaSession{}
	screen := &fakeCapture{sessions: []*fakeMediaSession{screenSession}}
	audio := &fakeCapture{err: errors.New("microphone busy")}
	events := &fakeEventSink{}
	controller := newTestController(screen, audio, nil, events)

	if err := controller.Start(context.Background(), testTarget); err == nil {
		t.Fatalf("expected audio start failure")
	}
	if screenSession.closeCalls != 1 {
		t.Fatalf("expected screen session released, close calls = %d", screenSession.closeCalls)
	}

	states := events.snapshotStates()
	last := states[len(states)-1]
	if last.state.Phase != domain.PhaseError || last.reason != domain.ReasonCaptureFailed {
		t.Fatalf("unexpected final transition: %+v", last)
	}
}

func TestRecordingControllerPauseFailureReleasesCollaborators(t *testing.T) {
	t.Parallel()

	screenSession := &fakeMediaSession{}
	audioSession := &fakeMediaSession{pauseErr: errors.New("write failed")}
	screen := &fakeCapture{sessions: []*fakeMediaSession{screenSession}}
	audio := &fakeCapture{sessions: []*fakeMediaSession{audioSession}}
	events := &fakeEventSink{watch: []*fakeMediaSession{screenSession, audioSession}}
	controller := newTestController(screen, audio, nil, events)
	ctx := context.Background()

	if err := controller.Start(ctx, testTarget); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := controller.Pause(ctx); err == nil {
		t.Fatalf("expected pause failure")
	}

	if screenSession.closeCalls != 1 || audioSession.closeCalls != 1 {
		t.Fatalf("expected both sessions released: screen=%d audio=%d", screenSession.closeCalls, audioSession.closeCalls)
	}
	if got := controller.Status().State; got.Phase != domain.PhaseError {
		t.Fatalf("expected error state, got %v", got)
	}

	// Release happens before the error is signaled.
	if events.closedBeforeError == nil || !*events.closedBeforeError {
		t.Fatalf("expected collaborators released before error signal")
	}
}

func TestRecordingControllerFinalizeFailure(t *testing.T) {
	t.Parallel()

	screenSession := &fakeMediaSession{finishErr: errors.New("moov atom missing")}
	audioSession := &fakeMediaSession{}
	handler := &fakeHandler{}
	events := &fakeEventSink{}
	controller := newTestController(
		&fakeCapture{sessions: []*fakeMediaSession{screenSession}},
		&fakeCapture{sessions: []*fakeMediaSession{audioSession}},
		handler,
		events,
	)
	ctx := context.Background()

	if err := controller.Start(ctx, testTarget); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := controller.Stop(ctx); err == nil {
		t.Fatalf("expected finalize failure")
	}
	if len(handler.results) != 0 {
		t.Fatalf("handler must not run after finalize failure")
	}
	if audioSession.closeCalls != 1 {
		t.Fatalf("expected audio session released")
	}
	errs := events.snapshotErrors()
	if len(errs) != 1 || errs[0].code != domain.ErrorCodeFinalize {
		t.Fatalf("expected finalize error event, got %+v", errs)
	}
}

func TestRecordingControllerHandlerFailureThenReset(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	controller := newTestController(
		&fakeCapture{sessions: []*fakeMediaSession{{}, {}}},
		&fakeCapture{sessions: []*fakeMediaSession{{}, {}}},
		&fakeHandler{err: domain.ErrNoFrames},
		events,
	)
	ctx := context.Background()

	if err := controller.Start(ctx, testTarget); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := controller.Stop(ctx); !errors.Is(err, domain.ErrNoFrames) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if got := controller.Status().State; !got.Equal(domain.Failed(domain.ErrNoFrames.Error())) {
		t.Fatalf("unexpected state: %v", got)
	}

	if err := controller.Reset(); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if got := controller.Status().State; !got.Equal(domain.Idle()) {
		t.Fatalf("expected idle after reset, got %v", got)
	}
	if err := controller.Reset(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on reset from idle, got %v", err)
	}
}

func TestRecordingControllerStartFromErrorState(t *testing.T) {
	t.Parallel()

	screen := &fakeCapture{sessions: []*fakeMediaSession{{}}}
	audio := &fakeCapture{sessions: []*fakeMediaSession{{}}}
	controller := newTestController(screen, audio, nil, &fakeEventSink{})
	controller.state = domain.Failed("previous run")

	if err := controller.Start(context.Background(), testTarget); err != nil {
		t.Fatalf("start from error failed: %v", err)
	}
	status := controller.Status()
	if !status.State.Equal(domain.Recording()) || status.SessionID != testTarget.SessionID {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestRecordingControllerStartsCapturesTogether(t *testing.T) {
	t.Parallel()

	var barrier sync.WaitGroup
	barrier.Add(2)
	screen := &fakeCapture{sessions: []*fakeMediaSession{{}}, barrier: &barrier}
	audio := &fakeCapture{sessions: []*fakeMediaSession{{}}, barrier: &barrier}
	controller := newTestController(screen, audio, nil, &fakeEventSink{})

	if err := controller.Start(context.Background(), testTarget); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !controller.Status().State.Equal(domain.Recording()) {
		t.Fatalf("expected recording, got %v", controller.Status().State)
	}
}

func TestRecordingControllerResumesCapturesTogether(t *testing.T) {
	t.Parallel()

	var barrier sync.WaitGroup
	barrier.Add(2)
	screenSession := &fakeMediaSession{resumeWait: &barrier}
	audioSession := &fakeMediaSession{resumeWait: &barrier}
	controller := newTestController(
		&fakeCapture{sessions: []*fakeMediaSession{screenSession}},
		&fakeCapture{sessions: []*fakeMediaSession{audioSession}},
		nil, &fakeEventSink{},
	)

	ctx := context.Background()
	if err := controller.Start(ctx, testTarget); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := controller.Pause(ctx); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if err := controller.Resume(ctx); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if !controller.Status().State.Equal(domain.Recording()) {
		t.Fatalf("expected recording, got %v", controller.Status().State)
	}
}

func TestRecordingControllerStartIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	screen := &fakeCapture{sessions: []*fakeMediaSession{{}}}
	audio := &fakeCapture{sessions: []*fakeMediaSession{{}}}
	controller := newTestController(screen, audio, nil, &fakeEventSink{})

	ctx, cancel := context.WithCancel(context.Background())
	if err := controller.Start(ctx, testTarget); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	cancel()

	if err := screen.startCtx.Err(); err != nil {
		t.Fatalf("capture context must survive caller cancellation: %v", err)
	}
	if _, err := controller.Stop(context.Background()); err != nil {
		t.Fatalf("stop after caller cancellation failed: %v", err)
	}
	if screen.startCtx.Err() == nil {
		t.Fatalf("capture context must end with the recording")
	}
}

func TestRecordingControllerShutdown(t *testing.T) {
	t.Parallel()

	for _, paused := range []bool{false, true} {
		paused := paused
		t.Run(fmt.Sprintf("paused=%v", paused), func(t *testing.T) {
			t.Parallel()

			screenSession := &fakeMediaSession{path: "/tmp/sess-1/media/screen.mp4"}
			audioSession := &fakeMediaSession{path: "/tmp/sess-1/media/narration.m4a"}
			handler := &fakeHandler{}
			events := &fakeEventSink{}
			controller := newTestController(
				&fakeCapture{sessions: []*fakeMediaSession{screenSession}},
				&fakeCapture{sessions: []*fakeMediaSession{audioSession}},
				handler,
				events,
			)
			ctx := context.Background()

			if err := controller.Start(ctx, testTarget); err != nil {
				t.Fatalf("start failed: %v", err)
			}
			controller.tick()
			if paused {
				if err := controller.Pause(ctx); err != nil {
					t.Fatalf("pause failed: %v", err)
				}
			}

			if err := controller.Shutdown(ctx); err != nil {
				t.Fatalf("shutdown failed: %v", err)
			}

			if screenSession.finishCalls != 1 || audioSession.finishCalls != 1 {
				t.Fatalf("expected both captures finalized: screen=%d audio=%d", screenSession.finishCalls, audioSession.finishCalls)
			}
			if len(handler.results) != 0 {
				t.Fatalf("shutdown must not run analysis")
			}
			if len(handler.interrupted) != 1 || handler.interrupted[0].VideoPath != screenSession.path {
				t.Fatalf("expected interrupted recording handed over, got %+v", handler.interrupted)
			}

			status := controller.Status()
			if !status.State.Equal(domain.Idle()) || status.Active || status.Elapsed != 0 {
				t.Fatalf("unexpected status after shutdown: %+v", status)
			}
			states := events.snapshotStates()
			if last := states[len(states)-1]; last.reason != domain.ReasonInterrupted {
				t.Fatalf("unexpected final transition: %+v", last)
			}
			ticks := events.snapshotElapsed()
			if ticks[len(ticks)-1] != 0 {
				t.Fatalf("expected zeroed counter after shutdown, got %v", ticks)
			}
		})
	}
}

func TestRecordingControllerShutdownReleasesOnFinalizeFailure(t *testing.T) {
	t.Parallel()

	screenSession := &fakeMediaSession{finishErr: errors.New("moov atom missing")}
	audioSession := &fakeMediaSession{}
	handler := &fakeHandler{}
	controller := newTestController(
		&fakeCapture{sessions: []*fakeMediaSession{screenSession}},
		&fakeCapture{sessions: []*fakeMediaSession{audioSession}},
		handler,
		&fakeEventSink{},
	)
	ctx := context.Background()

	if err := controller.Start(ctx, testTarget); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := controller.Shutdown(ctx); err == nil {
		t.Fatalf("expected finalize error from shutdown")
	}
	if !screenSession.closed() || !audioSession.closed() {
		t.Fatalf("expected both captures released")
	}
	if len(handler.interrupted) != 0 {
		t.Fatalf("handler must not receive a failed recording")
	}
	if got := controller.Status().State; !got.Equal(domain.Idle()) {
		t.Fatalf("expected idle after shutdown, got %v", got)
	}
}

func TestRecordingControllerShutdownWhileIdle(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	controller := newTestController(&fakeCapture{}, &fakeCapture{}, &fakeHandler{}, events)

	if err := controller.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown while idle failed: %v", err)
	}
	if len(events.snapshotStates()) != 0 {
		t.Fatalf("idle shutdown must not emit transitions")
	}
}

type fakeCapture struct {
	mu       sync.Mutex
	sessions []*fakeMediaSession
	configs  []ports.CaptureConfig
	err      error
	calls    int
	startCtx context.Context

	// barrier, when set, makes Start wait until every capture sharing it
	// has entered Start.
	barrier *sync.WaitGroup
}

func (f *fakeCapture) Start(ctx context.Context, cfg ports.CaptureConfig) (ports.MediaSession, error) {
	if err := meet(f.barrier); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.startCtx = ctx
	if f.err != nil {
		return nil, f.err
	}
	if len(f.configs) >= len(f.sessions) {
		return nil, errors.New("no capture session configured")
	}
	session := f.sessions[len(f.configs)]
	f.configs = append(f.configs, cfg)
	return session, nil
}

// meet blocks until every caller sharing barrier has arrived. A nil barrier
// returns at once.
func meet(barrier *sync.WaitGroup) error {
	if barrier == nil {
		return nil
	}
	barrier.Done()
	arrived := make(chan struct{})
	go func() {
		barrier.Wait()
		close(arrived)
	}()
	select {
	case <-arrived:
		return nil
	case <-time.After(time.Second):
		return errors.New("captures were driven one after the other")
	}
}

type fakeMediaSession struct {
	mu          sync.Mutex
	path        string
	resumeWait  *sync.WaitGroup
	pauseErr    error
	resumeErr   error
	finishErr   error
	pauseCalls  int
	resumeCalls int
	finishCalls int
	closeCalls  int
}

func (f *fakeMediaSession) Pause(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseCalls++
	return f.pauseErr
}

func (f *fakeMediaSession) Resume(_ context.Context) error {
	if err := meet(f.resumeWait); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumeCalls++
	return f.resumeErr
}

func (f *fakeMediaSession) Finish(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishCalls++
	return f.path, f.finishErr
}

func (f *fakeMediaSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}

func (f *fakeMediaSession) closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls > 0
}

type fakeHandler struct {
	results     []domain.RecordingResult
	interrupted []domain.RecordingResult
	err         error
}

func (f *fakeHandler) RecordingFinished(_ context.Context, result domain.RecordingResult) error {
	f.results = append(f.results, result)
	return f.err
}

func (f *fakeHandler) RecordingInterrupted(_ context.Context, result domain.RecordingResult) error {
	f.interrupted = append(f.interrupted, result)
	return f.err
}

type fakeEventSink struct {
	mu sync.Mutex

	states   []stateEvent
	elapsed  []int
	progress []progressEvent
	errors   []errEvent

	// watch is checked when the first error arrives.
	watch             []*fakeMediaSession
	closedBeforeError *bool
}

type stateEvent struct {
	state  domain.RecordingState
	reason domain.StateReason
}

type progressEvent struct {
	sessionID string
	stage     domain.AnalysisStage
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) RecordingStateChanged(state domain.RecordingState, reason domain.StateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) ElapsedChanged(seconds int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elapsed = append(f.elapsed, seconds)
}

func (f *fakeEventSink) AnalysisProgress(sessionID string, stage domain.AnalysisStage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, progressEvent{sessionID: sessionID, stage: stage})
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closedBeforeError == nil {
		closed := true
		for _, s := range f.watch {
			closed = closed && s.closed()
		}
		f.closedBeforeError = &closed
	}
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotElapsed() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.elapsed))
	copy(out, f.elapsed)
	return out
}

func (f *fakeEventSink) snapshotProgress() []progressEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]progressEvent, len(f.progress))
	copy(out, f.progress)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

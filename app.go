package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"reviewcap/internal/bootstrap"
	"reviewcap/internal/config"
	"reviewcap/internal/domain"
	"reviewcap/internal/timeline"
	"reviewcap/internal/usecase"
)

const (
	eventState    = "reviewcap:state"
	eventElapsed  = "reviewcap:elapsed"
	eventProgress = "reviewcap:progress"
	eventError    = "reviewcap:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.RecordingController
	analyzer   *usecase.Analyzer
	sessions   *usecase.Sessions
	cfg        config.Config
	bootErr    error

	logger       *slog.Logger
	closeMetrics func(context.Context) error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.analyzer = services.Analyzer
	a.sessions = services.Sessions
	a.logger = services.Logger
	a.closeMetrics = services.Shutdown
	a.RecordingStateChanged(domain.Idle(), domain.ReasonReady)
}

// shutdown finalizes an open recording before the window closes so its
// media is kept, then flushes metrics.
func (a *App) shutdown(ctx context.Context) {
	if a.controller != nil {
		if err := a.controller.Shutdown(ctx); err != nil {
			a.logger.Error("finalize recording on exit", "err", err)
		}
	}
	if a.closeMetrics != nil {
		if err := a.closeMetrics(ctx); err != nil {
			a.logger.Warn("metrics shutdown", "err", err)
		}
	}
}

// NewSession creates a session and selects it.
func (a *App) NewSession(name string) (domain.Session, error) {
	if err := a.requireReady(); err != nil {
		return domain.Session{}, err
	}
	return a.sessions.Create(name)
}

// ListSessions returns all sessions, newest first.
func (a *App) ListSessions() ([]domain.Session, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.sessions.List()
}

// SelectSession makes id the target of the next recording.
func (a *App) SelectSession(id string) (domain.Session, error) {
	if err := a.requireReady(); err != nil {
		return domain.Session{}, err
	}
	return a.sessions.Select(id)
}

// DeleteSession removes a session and its files. The session being recorded
// cannot be deleted.
func (a *App) DeleteSession(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	status := a.controller.Status()
	if status.Active && status.SessionID == id {
		return fmt.Errorf("session %s is being recorded", id)
	}
	return a.sessions.Delete(id)
}

// StartRecording begins capture into the selected session.
func (a *App) StartRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	target, err := a.sessions.RecordingTarget(a.sessions.SelectedID())
	if err != nil {
		return domain.Status{}, fmt.Errorf("select a session before recording: %w", err)
	}
	if err := a.controller.Start(a.callCtx(), target); err != nil {
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

func (a *App) PauseRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	err := a.controller.Pause(a.callCtx())
	return a.controller.Status(), err
}

func (a *App) ResumeRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	err := a.controller.Resume(a.callCtx())
	return a.controller.Status(), err
}

// StopRecording finalizes capture, runs analysis and returns the updated
// session.
func (a *App) StopRecording() (domain.Session, error) {
	if err := a.requireReady(); err != nil {
		return domain.Session{}, err
	}
	result, err := a.controller.Stop(a.callCtx())
	if err != nil {
		return domain.Session{}, err
	}
	return a.sessions.Get(result.SessionID)
}

// ResetRecording clears an error state.
func (a *App) ResetRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	err := a.controller.Reset()
	return a.controller.Status(), err
}

// RetryAnalysis re-runs analysis for a session with recorded media.
func (a *App) RetryAnalysis(id string) (domain.Session, error) {
	if err := a.requireReady(); err != nil {
		return domain.Session{}, err
	}
	if a.controller.Status().Active {
		return domain.Session{}, fmt.Errorf("%w: recording in progress", domain.ErrInvalidTransition)
	}
	session, err := a.analyzer.Reanalyze(a.callCtx(), id)
	if err != nil {
		a.SessionError(domain.ErrorCodeAnalysis, err.Error())
		return domain.Session{}, err
	}
	return session, nil
}

// GetStatus returns the current recorder status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.Failed(a.bootErr.Error())}
		}
		return domain.Status{State: domain.Idle()}
	}
	return a.controller.Status()
}

// GetTimeline returns screenshots of id paired with their commentary.
func (a *App) GetTimeline(id string) ([]timeline.Entry, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.sessions.Timeline(id)
}

// ExportSession writes id in format and returns the document path.
func (a *App) ExportSession(id string, format string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	path, err := a.sessions.Export(id, format)
	if err != nil {
		a.SessionError(domain.ErrorCodeExport, err.Error())
		return "", err
	}
	return path, nil
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"provider":      "Deepgram",
		"model":         a.cfg.Deepgram.Model,
		"language":      a.cfg.Deepgram.Language,
		"sessionsDir":   a.cfg.Storage.SessionsDir,
		"exportDir":     a.cfg.Storage.ExportDir,
		"screenInput":   a.cfg.Capture.ScreenDevice,
		"audioInput":    a.cfg.Capture.AudioInputDevice,
		"frameInterval": strconv.FormatFloat(a.cfg.Analysis.FrameInterval, 'f', -1, 64),
		"summaries":     strconv.FormatBool(a.cfg.SummariesEnabled()),
	}
}

// callCtx returns the Wails context, or a background context before startup.
func (a *App) callCtx() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// RecordingStateChanged emits recorder lifecycle updates to the frontend.
func (a *App) RecordingStateChanged(state domain.RecordingState, reason domain.StateReason) {
	if a.ctx == nil {
		return
	}
	message := stateReasonMessage(reason)
	if state.Is(domain.PhaseError) && state.Message != "" {
		message = state.Message
	}
	runtime.EventsEmit(a.ctx, eventState, map[string]string{
		"state":   string(state.Phase),
		"reason":  string(reason),
		"message": message,
	})
}

// ElapsedChanged emits the recorded seconds counter.
func (a *App) ElapsedChanged(seconds int) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventElapsed, map[string]any{
		"seconds": seconds,
		"clock":   formatElapsed(seconds),
	})
}

// AnalysisProgress emits post-recording analysis stages.
func (a *App) AnalysisProgress(sessionID string, stage domain.AnalysisStage) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventProgress, map[string]string{
		"sessionId": sessionID,
		"stage":     string(stage),
		"message":   stageMessage(stage),
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func stateReasonMessage(reason domain.StateReason) string {
	switch reason {
	case domain.ReasonReady:
		return "Ready to record"
	case domain.ReasonPreparing:
		return "Starting capture..."
	case domain.ReasonRecordingStarted:
		return "Recording"
	case domain.ReasonRecordingPaused:
		return "Paused"
	case domain.ReasonRecordingResumed:
		return "Recording resumed"
	case domain.ReasonFinalizing:
		return "Recording stopped. Processing..."
	case domain.ReasonAnalysisComplete:
		return "Review ready"
	case domain.ReasonCaptureFailed:
		return "Capture failed"
	case domain.ReasonFinalizeFailed:
		return "Could not save recording"
	case domain.ReasonAnalysisFailed:
		return "Analysis failed"
	case domain.ReasonReset:
		return "Ready to record"
	case domain.ReasonInterrupted:
		return "Recording saved on exit"
	default:
		return ""
	}
}

func stageMessage(stage domain.AnalysisStage) string {
	switch stage {
	case domain.StageFrames:
		return "Extracting screenshots..."
	case domain.StageTranscribe:
		return "Transcribing commentary..."
	case domain.StageSummarize:
		return "Summarizing commentary..."
	case domain.StageSaved:
		return "Session saved"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeCapture:
		return "Screen or microphone capture failed"
	case domain.ErrorCodeFinalize:
		return "Could not finalize recording"
	case domain.ErrorCodeAnalysis:
		return "Analysis failed"
	case domain.ErrorCodeExport:
		return "Export failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

func formatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

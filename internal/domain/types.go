package domain

// Phase identifies the recording lifecycle stage.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhasePreparing  Phase = "preparing"
	PhaseRecording  Phase = "recording"
	PhasePaused     Phase = "paused"
	PhaseProcessing Phase = "processing"
	PhaseError      Phase = "error"
)

// RecordingState is the controller state. Message is only meaningful for PhaseError.
type RecordingState struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message,omitempty"`
}

func Idle() RecordingState       { return RecordingState{Phase: PhaseIdle} }
func Preparing() RecordingState  { return RecordingState{Phase: PhasePreparing} }
func Recording() RecordingState  { return RecordingState{Phase: PhaseRecording} }
func Paused() RecordingState     { return RecordingState{Phase: PhasePaused} }
func Processing() RecordingState { return RecordingState{Phase: PhaseProcessing} }

// Failed returns the error state carrying msg.
func Failed(msg string) RecordingState {
	return RecordingState{Phase: PhaseError, Message: msg}
}

// Equal reports whether two states are the same variant. Error states are
// equal only when their messages match.
func (s RecordingState) Equal(other RecordingState) bool {
	if s.Phase != other.Phase {
		return false
	}
	if s.Phase == PhaseError {
		return s.Message == other.Message
	}
	return true
}

// Is reports whether the state is in phase p.
func (s RecordingState) Is(p Phase) bool {
	return s.Phase == p
}

// Active reports whether capture collaborators may be held in this state.
func (s RecordingState) Active() bool {
	switch s.Phase {
	case PhasePreparing, PhaseRecording, PhasePaused, PhaseProcessing:
		return true
	default:
		return false
	}
}

func (s RecordingState) String() string {
	if s.Phase == PhaseError && s.Message != "" {
		return string(s.Phase) + ": " + s.Message
	}
	return string(s.Phase)
}

// StateReason provides a structured reason for state transitions.
type StateReason string

const (
	ReasonReady            StateReason = "ready"
	ReasonPreparing        StateReason = "preparing"
	ReasonRecordingStarted StateReason = "recording_started"
	ReasonRecordingPaused  StateReason = "recording_paused"
	ReasonRecordingResumed StateReason = "recording_resumed"
	ReasonFinalizing       StateReason = "finalizing"
	ReasonAnalysisComplete StateReason = "analysis_complete"
	ReasonCaptureFailed    StateReason = "capture_failed"
	ReasonFinalizeFailed   StateReason = "finalize_failed"
	ReasonAnalysisFailed   StateReason = "analysis_failed"
	ReasonReset            StateReason = "reset"
	ReasonInterrupted      StateReason = "recording_interrupted"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup  ErrorCode = "startup"
	ErrorCodeCapture  ErrorCode = "capture"
	ErrorCodeFinalize ErrorCode = "finalize"
	ErrorCodeAnalysis ErrorCode = "analysis"
	ErrorCodeExport   ErrorCode = "export"
)

// AnalysisStage names a step of post-recording analysis.
type AnalysisStage string

const (
	StageFrames     AnalysisStage = "frames"
	StageTranscribe AnalysisStage = "transcribe"
	StageSummarize  AnalysisStage = "summarize"
	StageSaved      AnalysisStage = "saved"
)

// RecordingTarget tells the controller where a recording belongs.
type RecordingTarget struct {
	SessionID string
	MediaDir  string
}

// RecordingResult is handed to the completion handler once media is finalized.
type RecordingResult struct {
	SessionID string  `json:"sessionId"`
	VideoPath string  `json:"videoPath"`
	AudioPath string  `json:"audioPath"`
	Duration  float64 `json:"duration"`
}

// Status summarizes the current runtime status.
type Status struct {
	State     RecordingState `json:"state"`
	Elapsed   int            `json:"elapsed"`
	Active    bool           `json:"active"`
	SessionID string         `json:"sessionId,omitempty"`
}

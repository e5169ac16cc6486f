package cli

import (
	"sync"

	"reviewcap/internal/domain"
	"reviewcap/internal/output"
)

// EventSink prints recorder and analysis events to a terminal.
type EventSink struct {
	mu sync.Mutex
	f  *output.Formatter
}

func NewEventSink(f *output.Formatter) *EventSink {
	return &EventSink{f: f}
}

func (s *EventSink) RecordingStateChanged(state domain.RecordingState, reason domain.StateReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.f.State(state, reason)
}

func (s *EventSink) ElapsedChanged(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.f.Elapsed(seconds)
}

func (s *EventSink) AnalysisProgress(_ string, stage domain.AnalysisStage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.f.Stage(stage)
}

// SessionError is a no-op; failures also arrive as an error state.
func (s *EventSink) SessionError(domain.ErrorCode, string) {}

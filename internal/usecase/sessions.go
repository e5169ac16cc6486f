package usecase

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"reviewcap/internal/domain"
	"reviewcap/internal/ports"
	"reviewcap/internal/timeline"
)

// Sessions manages the session library and which session the user has selected.
// The selection lives here, and callers pass the selected session on to the
// recorder and exporters explicitly.
type Sessions struct {
	repo      ports.SessionRepository
	exporters map[string]ports.Exporter
	exportDir string
	tolerance float64

	mu       sync.Mutex
	selected string
}

func NewSessions(repo ports.SessionRepository, exporters map[string]ports.Exporter, exportDir string, tolerance float64) *Sessions {
	if tolerance < 0 {
		tolerance = timeline.DefaultTolerance
	}
	return &Sessions{
		repo:      repo,
		exporters: exporters,
		exportDir: exportDir,
		tolerance: tolerance,
	}
}

// Create makes a new session and selects it.
func (s *Sessions) Create(name string) (domain.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled review"
	}
	session, err := s.repo.Create(name)
	if err != nil {
		return domain.Session{}, err
	}

	s.mu.Lock()
	s.selected = session.ID
	s.mu.Unlock()
	return session, nil
}

func (s *Sessions) List() ([]domain.Session, error) {
	return s.repo.List()
}

func (s *Sessions) Get(id string) (domain.Session, error) {
	return s.repo.Get(id)
}

// Select marks id as the selected session. It must exist.
func (s *Sessions) Select(id string) (domain.Session, error) {
	session, err := s.repo.Get(id)
	if err != nil {
		return domain.Session{}, err
	}

	s.mu.Lock()
	s.selected = session.ID
	s.mu.Unlock()
	return session, nil
}

// SelectedID returns the selected session id, or "" when nothing is selected.
func (s *Sessions) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Selected loads the selected session.
func (s *Sessions) Selected() (domain.Session, error) {
	id := s.SelectedID()
	if id == "" {
		return domain.Session{}, fmt.Errorf("%w: no session selected", domain.ErrSessionNotFound)
	}
	return s.repo.Get(id)
}

// Delete removes the session directory and clears the selection if it
// pointed at the deleted session.
func (s *Sessions) Delete(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.mu.Lock()
	if s.selected == id {
		s.selected = ""
	}
	s.mu.Unlock()
	return nil
}

// RecordingTarget resolves where a recording for id is written.
func (s *Sessions) RecordingTarget(id string) (domain.RecordingTarget, error) {
	session, err := s.repo.Get(id)
	if err != nil {
		return domain.RecordingTarget{}, err
	}
	return domain.RecordingTarget{SessionID: session.ID, MediaDir: s.repo.MediaDir(session.ID)}, nil
}

// Timeline aligns a session's screenshots with its commentary.
func (s *Sessions) Timeline(id string) ([]timeline.Entry, error) {
	session, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	return timeline.Align(session.Screenshots, session.Transcriptions, s.tolerance), nil
}

// Formats lists the registered export formats.
func (s *Sessions) Formats() []string {
	formats := make([]string, 0, len(s.exporters))
	for name := range s.exporters {
		formats = append(formats, name)
	}
	sort.Strings(formats)
	return formats
}

// Export writes id in the named format and returns the document path.
func (s *Sessions) Export(id, format string) (string, error) {
	exporter, ok := s.exporters[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return "", fmt.Errorf("unknown export format %q (available: %s)", format, strings.Join(s.Formats(), ", "))
	}
	session, err := s.repo.Get(id)
	if err != nil {
		return "", err
	}
	return exporter.Export(session, s.exportDir)
}

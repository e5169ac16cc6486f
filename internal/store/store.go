// Package store persists review sessions as one directory per session.
//
// Layout:
//
//	<root>/<id>/metadata.json
//	<root>/<id>/screenshots/
//	<root>/<id>/media/
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"reviewcap/internal/domain"
)

const (
	metadataFile   = "metadata.json"
	screenshotsDir = "screenshots"
	mediaDir       = "media"
)

// Store is a filesystem-backed session repository.
type Store struct {
	root string
	now  func() time.Time

	// mu serializes metadata writes.
	mu sync.Mutex
}

// New creates the root directory if needed.
func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating sessions directory: %w", err)
	}
	return &Store{root: root, now: time.Now}, nil
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) Create(name string) (domain.Session, error) {
	session := domain.Session{
		ID:             uuid.NewString(),
		Name:           name,
		CreatedAt:      s.now().UTC(),
		Screenshots:    []domain.Screenshot{},
		Transcriptions: []domain.Transcription{},
	}

	for _, dir := range []string{s.ScreenshotsDir(session.ID), s.MediaDir(session.ID)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.Session{}, fmt.Errorf("creating session directory: %w", err)
		}
	}
	if err := s.write(session); err != nil {
		_ = os.RemoveAll(s.dir(session.ID))
		return domain.Session{}, err
	}
	return session, nil
}

func (s *Store) Get(id string) (domain.Session, error) {
	if !validID(id) {
		return domain.Session{}, fmt.Errorf("%w: %q", domain.ErrSessionNotFound, id)
	}
	data, err := os.ReadFile(filepath.Join(s.dir(id), metadataFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		return domain.Session{}, fmt.Errorf("%w: reading session %s: %v", domain.ErrIO, id, err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.Session{}, fmt.Errorf("%w: decoding session %s: %v", domain.ErrIO, id, err)
	}
	if session.Screenshots == nil {
		session.Screenshots = []domain.Screenshot{}
	}
	if session.Transcriptions == nil {
		session.Transcriptions = []domain.Transcription{}
	}
	return session, nil
}

// List returns all readable sessions, newest first. Directories without
// readable metadata are skipped.
func (s *Store) List() ([]domain.Session, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Session{}, nil
		}
		return nil, fmt.Errorf("%w: listing sessions: %v", domain.ErrIO, err)
	}

	sessions := make([]domain.Session, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		session, err := s.Get(e.Name())
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// Save overwrites the metadata of an existing session.
func (s *Store) Save(session domain.Session) error {
	if !validID(session.ID) {
		return fmt.Errorf("%w: %q", domain.ErrSessionNotFound, session.ID)
	}
	if _, err := os.Stat(s.dir(session.ID)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, session.ID)
		}
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	return s.write(session)
}

// Delete removes the session directory and everything in it.
func (s *Store) Delete(id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: %q", domain.ErrSessionNotFound, id)
	}
	dir := s.dir(id)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: deleting session %s: %v", domain.ErrIO, id, err)
	}
	return nil
}

func (s *Store) MediaDir(id string) string {
	return filepath.Join(s.dir(id), mediaDir)
}

func (s *Store) ScreenshotsDir(id string) string {
	return filepath.Join(s.dir(id), screenshotsDir)
}

func (s *Store) dir(id string) string {
	return filepath.Join(s.root, id)
}

// write replaces metadata.json via a temp file in the same directory.
func (s *Store) write(session domain.Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.dir(session.ID)
	tmp, err := os.CreateTemp(dir, metadataFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: writing session %s: %v", domain.ErrIO, session.ID, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: syncing session %s: %v", domain.ErrIO, session.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, metadataFile)); err != nil {
		return fmt.Errorf("%w: replacing session %s: %v", domain.ErrIO, session.ID, err)
	}
	return nil
}

// validID rejects ids that could escape the root directory.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

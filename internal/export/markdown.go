package export

import (
	"fmt"
	"os"
	"path/filepath"

	"reviewcap/internal/domain"
)

// Markdown writes <slug>-<id8>.md.
type Markdown struct {
	b builder
}

// NewMarkdown returns a Markdown exporter. A negative tolerance uses the
// timeline default.
func NewMarkdown(tolerance float64) *Markdown {
	return &Markdown{b: newBuilder(tolerance)}
}

func (m *Markdown) Export(session domain.Session, destDir string) (string, error) {
	if err := checkReady(session); err != nil {
		return "", err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating export directory: %v", domain.ErrIO, err)
	}

	refs, err := copyImages(session, destDir)
	if err != nil {
		return "", err
	}

	path := filepath.Join(destDir, baseName(session)+".md")
	if err := writeDocument(path, m.b.markdown(session, refs)); err != nil {
		return "", err
	}
	return path, nil
}

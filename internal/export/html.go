package export

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"

	"reviewcap/internal/domain"
)

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font: 16px/1.5 -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; color: #1d1d1f; max-width: 960px; margin: 2rem auto; padding: 0 1rem; }
h1 { border-bottom: 1px solid #d2d2d7; padding-bottom: .5rem; }
h3 { color: #6e6e73; font-variant-numeric: tabular-nums; margin-top: 2.5rem; }
img { max-width: 100%; border: 1px solid #d2d2d7; border-radius: 8px; box-shadow: 0 2px 8px rgba(0,0,0,.08); }
blockquote { margin: 1rem 0; padding: .5rem 1rem; background: #f5f5f7; border-left: 4px solid #0071e3; border-radius: 4px; }
blockquote p { margin: .25rem 0; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

type pageData struct {
	Title string
	Body  template.HTML
}

// HTML writes <slug>-<id8>.html, rendered from the same Markdown body.
type HTML struct {
	b  builder
	md goldmark.Markdown
}

// NewHTML returns an HTML exporter. A negative tolerance uses the timeline
// default.
func NewHTML(tolerance float64) *HTML {
	return &HTML{b: newBuilder(tolerance), md: goldmark.New()}
}

func (h *HTML) Export(session domain.Session, destDir string) (string, error) {
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

	var body bytes.Buffer
	if err := h.md.Convert(h.b.markdown(session, refs), &body); err != nil {
		return "", fmt.Errorf("rendering html: %w", err)
	}

	var out bytes.Buffer
	if err := page.Execute(&out, pageData{Title: session.Name, Body: template.HTML(body.String())}); err != nil {
		return "", fmt.Errorf("rendering html page: %w", err)
	}

	path := filepath.Join(destDir, baseName(session)+".html")
	if err := writeDocument(path, out.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

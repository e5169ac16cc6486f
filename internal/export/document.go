// Package export renders a session timeline as a standalone document with
// its images copied alongside.
package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"reviewcap/internal/domain"
	"reviewcap/internal/timeline"
)

const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"

	mediaDir = "media"
)

// builder holds what both formats share: naming, image copying and the
// Markdown body.
type builder struct {
	tolerance float64
}

func newBuilder(tolerance float64) builder {
	if tolerance < 0 {
		tolerance = timeline.DefaultTolerance
	}
	return builder{tolerance: tolerance}
}

// baseName is <slug(name)>-<first 8 of id>.
func baseName(session domain.Session) string {
	slug := slugify(session.Name)
	if slug == "" {
		slug = "session"
	}
	return slug + "-" + shortID(session.ID)
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func checkReady(session domain.Session) error {
	if len(session.Screenshots) == 0 || len(session.Transcriptions) == 0 {
		return fmt.Errorf("%w: session %s has %d screenshots and %d transcriptions",
			domain.ErrSessionEmpty, session.ID, len(session.Screenshots), len(session.Transcriptions))
	}
	return nil
}

// copyImages copies every screenshot into <destDir>/media and returns the
// document-relative path per screenshot id.
func copyImages(session domain.Session, destDir string) (map[string]string, error) {
	dir := filepath.Join(destDir, mediaDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating export media directory: %v", domain.ErrIO, err)
	}

	prefix := shortID(session.ID)
	refs := make(map[string]string, len(session.Screenshots))
	for _, shot := range session.Screenshots {
		name := prefix + "-" + filepath.Base(shot.ImagePath)
		if err := copyFile(shot.ImagePath, filepath.Join(dir, name)); err != nil {
			return nil, fmt.Errorf("%w: copying screenshot %s: %v", domain.ErrIO, shot.ImagePath, err)
		}
		refs[shot.ID] = mediaDir + "/" + name
	}
	return refs, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// markdown renders the session as Markdown with images referenced through refs.
func (b builder) markdown(session domain.Session, refs map[string]string) []byte {
	entries := timeline.Align(session.Screenshots, session.Transcriptions, b.tolerance)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", oneLine(session.Name))
	fmt.Fprintf(&buf, "_Recorded %s", session.CreatedAt.Local().Format("2006-01-02 15:04"))
	if session.Duration > 0 {
		fmt.Fprintf(&buf, " · %s", clock(session.Duration))
	}
	fmt.Fprintf(&buf, " · %d screenshots · %d comments_\n\n", len(session.Screenshots), len(session.Transcriptions))

	buf.WriteString("## Timeline\n\n")
	for _, entry := range entries {
		ts := clock(entry.Screenshot.Timestamp)
		fmt.Fprintf(&buf, "### %s\n\n", ts)
		fmt.Fprintf(&buf, "![Screenshot at %s](%s)\n\n", ts, refs[entry.Screenshot.ID])
		if len(entry.Transcriptions) == 0 {
			buf.WriteString("_No commentary._\n\n")
			continue
		}
		for _, t := range entry.Transcriptions {
			writeComment(&buf, t)
		}
	}

	if rest := timeline.Unattached(entries, session.Transcriptions); len(rest) > 0 {
		buf.WriteString("## Other commentary\n\n")
		for _, t := range rest {
			writeComment(&buf, t)
		}
	}
	return buf.Bytes()
}

func writeComment(buf *bytes.Buffer, t domain.Transcription) {
	fmt.Fprintf(buf, "> **%s–%s** %s\n", clock(t.StartTime), clock(t.EndTime), oneLine(t.Text))
	if t.Summary != "" {
		fmt.Fprintf(buf, ">\n> _Summary:_ %s\n", oneLine(t.Summary))
	}
	buf.WriteString("\n")
}

// mdEscaper backslash-escapes characters that would otherwise start Markdown
// emphasis, links, code, raw HTML or entities.
var mdEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
	"&", `\&`,
	"!", `\!`,
	"|", `\|`,
	"~", `\~`,
)

// oneLine collapses whitespace, newlines included, and escapes s for use as
// Markdown inline text.
func oneLine(s string) string {
	return mdEscaper.Replace(strings.Join(strings.Fields(s), " "))
}

// clock formats seconds as m:ss, or h:mm:ss past an hour.
func clock(seconds float64) string {
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func writeDocument(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", domain.ErrIO, path, err)
	}
	return nil
}

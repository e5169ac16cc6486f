package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"reviewcap/internal/domain"
	"reviewcap/internal/timeline"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) SessionCreated(session domain.Session) {
	fmt.Fprintf(f.w, "🆕 Session created: %s (%s)\n", session.Name, session.ID)
}

func (f *Formatter) SessionDeleted(id string) {
	fmt.Fprintf(f.w, "🗑️  Session deleted: %s\n", id)
}

func (f *Formatter) SessionListHeader() {
	fmt.Fprintf(f.w, "📁 Sessions:\n\n")
}

func (f *Formatter) SessionListItem(session domain.Session) {
	status := ""
	switch {
	case session.HasAnalysis():
		status = fmt.Sprintf(" ✅ %d screenshots, %d comments", len(session.Screenshots), len(session.Transcriptions))
	case session.HasMedia():
		status = " 🎞️  recorded"
	}
	fmt.Fprintf(f.w, "  %s  %s  %s%s\n",
		session.ID, session.CreatedAt.Local().Format("2006-01-02 15:04"), session.Name, status)
}

func (f *Formatter) RecordingHelp() {
	fmt.Fprintf(f.w, "⏺️  Recording. Type p + Enter to pause, r to resume, s to stop (Ctrl+C also stops).\n")
}

func (f *Formatter) State(state domain.RecordingState, reason domain.StateReason) {
	switch state.Phase {
	case domain.PhaseRecording:
		fmt.Fprintf(f.w, "⏺️  %s\n", reasonText(reason))
	case domain.PhasePaused:
		fmt.Fprintf(f.w, "⏸️  Paused\n")
	case domain.PhaseProcessing:
		fmt.Fprintf(f.w, "⏹️  Recording stopped. Processing...\n")
	case domain.PhaseError:
		fmt.Fprintf(f.w, "❌ %s\n", state.Message)
	}
}

// Elapsed rewrites the current terminal line.
func (f *Formatter) Elapsed(seconds int) {
	fmt.Fprintf(f.w, "\r   %s ", formatDuration(time.Duration(seconds)*time.Second))
}

func (f *Formatter) Stage(stage domain.AnalysisStage) {
	switch stage {
	case domain.StageFrames:
		fmt.Fprintf(f.w, "🖼️  Extracting screenshots...\n")
	case domain.StageTranscribe:
		fmt.Fprintf(f.w, "📝 Transcribing commentary...\n")
	case domain.StageSummarize:
		fmt.Fprintf(f.w, "🤖 Summarizing commentary...\n")
	case domain.StageSaved:
		fmt.Fprintf(f.w, "💾 Analysis saved\n")
	}
}

func (f *Formatter) SessionAnalyzed(session domain.Session) {
	fmt.Fprintf(f.w, "\n✅ %s: %d screenshots, %d comments (%s recorded)\n",
		session.Name, len(session.Screenshots), len(session.Transcriptions),
		formatDuration(time.Duration(session.Duration*float64(time.Second))))
}

func (f *Formatter) Timeline(entries []timeline.Entry) {
	if len(entries) == 0 {
		f.Info("No screenshots yet")
		return
	}
	for _, entry := range entries {
		fmt.Fprintf(f.w, "🖼️  %s  %s\n", Timestamp(entry.Screenshot.Timestamp), entry.Screenshot.ImagePath)
		if len(entry.Transcriptions) == 0 {
			fmt.Fprintf(f.w, "     (no commentary)\n")
		}
		for _, t := range entry.Transcriptions {
			fmt.Fprintf(f.w, "     %s-%s  %s\n", Timestamp(t.StartTime), Timestamp(t.EndTime), strings.TrimSpace(t.Text))
			if t.Summary != "" {
				fmt.Fprintf(f.w, "     ↳ %s\n", t.Summary)
			}
		}
	}
}

func (f *Formatter) Exported(format string, path string) {
	fmt.Fprintf(f.w, "📄 Exported %s: %s\n", format, path)
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠️  %s\n", msg)
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(f.w, "  ✅ %s: %s\n", name, detail)
	} else {
		fmt.Fprintf(f.w, "  ❌ %s: %s\n", name, detail)
	}
}

// Timestamp renders seconds from recording start as m:ss.
func Timestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func reasonText(reason domain.StateReason) string {
	if reason == domain.ReasonRecordingResumed {
		return "Recording resumed"
	}
	return "Recording"
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

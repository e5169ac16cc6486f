package timeline

import (
	"strings"

	"reviewcap/internal/domain"
)

// DefaultMergeGap is the largest silence, in seconds, bridged by MergeSegments.
const DefaultMergeGap = 1.0

// MergeSegments folds recognizer output into transcriptions in one pass.
// A segment is merged with the segment immediately after it when the gap
// between them is below maxGap; the merged record is emitted as is and not
// compared against the following segment. newID supplies record identities.
// Segments with blank text are dropped.
func MergeSegments(segments []domain.SpeechSegment, maxGap float64, newID func() string) []domain.Transcription {
	cleaned := make([]domain.SpeechSegment, 0, len(segments))
	for _, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		cleaned = append(cleaned, seg)
	}

	out := make([]domain.Transcription, 0, len(cleaned))
	for i := 0; i < len(cleaned); i++ {
		cur := cleaned[i]
		record := domain.Transcription{
			ID:        newID(),
			StartTime: cur.Start,
			EndTime:   cur.End,
			Text:      cur.Text,
		}
		if i+1 < len(cleaned) {
			next := cleaned[i+1]
			if next.Start-cur.End < maxGap {
				record.EndTime = max(cur.End, next.End)
				record.Text = cur.Text + " " + next.Text
				i++
			}
		}
		out = append(out, record)
	}
	return out
}

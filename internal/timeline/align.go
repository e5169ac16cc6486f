// Package timeline associates extracted screenshots with spoken commentary.
// Screenshot timestamps and transcription ranges must share the same origin:
// seconds since recording start.
package timeline

import (
	"sort"

	"github.com/samber/lo"

	"reviewcap/internal/domain"
)

// DefaultTolerance widens every transcription interval on both sides when
// attaching commentary in the review UI and exports.
const DefaultTolerance = 2.5

// Entry is one screenshot with the commentary that overlaps it.
type Entry struct {
	Screenshot     domain.Screenshot      `json:"screenshot"`
	Transcriptions []domain.Transcription `json:"transcriptions"`
}

// Align returns one entry per screenshot, in screenshot order. A transcription
// belongs to a screenshot when the screenshot timestamp lies in
// [StartTime-tolerance, EndTime+tolerance]. Transcriptions within an entry are
// ordered by start time. Inputs are not modified.
func Align(screenshots []domain.Screenshot, transcriptions []domain.Transcription, tolerance float64) []Entry {
	if tolerance < 0 {
		tolerance = 0
	}

	ordered := sortedByStart(transcriptions)
	entries := make([]Entry, 0, len(screenshots))
	for _, shot := range screenshots {
		matched := lo.Filter(ordered, func(t domain.Transcription, _ int) bool {
			return t.Contains(shot.Timestamp, tolerance)
		})
		entries = append(entries, Entry{Screenshot: shot, Transcriptions: matched})
	}
	return entries
}

// Unattached returns the transcriptions that appear in no entry, ordered by
// start time.
func Unattached(entries []Entry, transcriptions []domain.Transcription) []domain.Transcription {
	seen := make(map[string]struct{})
	for _, entry := range entries {
		for _, t := range entry.Transcriptions {
			seen[t.ID] = struct{}{}
		}
	}
	return lo.Filter(sortedByStart(transcriptions), func(t domain.Transcription, _ int) bool {
		_, ok := seen[t.ID]
		return !ok
	})
}

func sortedByStart(transcriptions []domain.Transcription) []domain.Transcription {
	out := make([]domain.Transcription, len(transcriptions))
	copy(out, transcriptions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

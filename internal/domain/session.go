package domain

import "time"

// Session is one recording-review-export unit of work.
type Session struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	CreatedAt      time.Time       `json:"createdAt"`
	VideoPath      string          `json:"videoPath,omitempty"`
	AudioPath      string          `json:"audioPath,omitempty"`
	Duration       float64         `json:"duration,omitempty"`
	Screenshots    []Screenshot    `json:"screenshots"`
	Transcriptions []Transcription `json:"transcriptions"`
}

// HasMedia reports whether recorded media has been attached.
func (s Session) HasMedia() bool {
	return s.VideoPath != "" && s.AudioPath != ""
}

// HasAnalysis reports whether the session has both screenshots and commentary.
func (s Session) HasAnalysis() bool {
	return len(s.Screenshots) > 0 && len(s.Transcriptions) > 0
}

// Screenshot is an extracted video frame. Timestamp is seconds from recording start.
type Screenshot struct {
	ID            string  `json:"id"`
	Timestamp     float64 `json:"timestamp"`
	ImagePath     string  `json:"imagePath"`
	ThumbnailPath string  `json:"thumbnailPath,omitempty"`
}

// Transcription is a timed commentary segment, possibly merged from several
// recognizer segments.
type Transcription struct {
	ID        string  `json:"id"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
	Summary   string  `json:"summary,omitempty"`
}

// Contains reports whether t lies in [StartTime-tolerance, EndTime+tolerance].
func (t Transcription) Contains(ts, tolerance float64) bool {
	return ts >= t.StartTime-tolerance && ts <= t.EndTime+tolerance
}

// SpeechSegment is raw recognizer output before merging.
type SpeechSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

package usecase

import (
	"sync"
	"time"

	"reviewcap/internal/domain"
	"reviewcap/internal/ports"
)

type activeRecording struct {
	target domain.RecordingTarget
	cancel func()
	screen ports.MediaSession
	audio  ports.MediaSession

	// recorded accumulates time spent in completed recording spans;
	// spanStart marks the open span while recording.
	recorded  time.Duration
	spanStart time.Time

	tickerStop chan struct{}
	tickerDone chan struct{}
	stopOnce   sync.Once
}

func newActiveRecording(target domain.RecordingTarget, cancel func(), screen, audio ports.MediaSession, now time.Time) *activeRecording {
	return &activeRecording{
		target:     target,
		cancel:     cancel,
		screen:     screen,
		audio:      audio,
		spanStart:  now,
		tickerStop: make(chan struct{}),
		tickerDone: make(chan struct{}),
	}
}

func (a *activeRecording) closeSpan(now time.Time) {
	if a.spanStart.IsZero() {
		return
	}
	a.recorded += now.Sub(a.spanStart)
	a.spanStart = time.Time{}
}

// stopTicker must not be called while holding the controller state mutex.
func (a *activeRecording) stopTicker() {
	a.stopOnce.Do(func() {
		close(a.tickerStop)
	})
	<-a.tickerDone
}

// release stops the ticker and tears down both capture sessions without
// finalizing output.
func (a *activeRecording) release() []error {
	a.stopTicker()
	var errs []error
	if a.screen != nil {
		if err := a.screen.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.audio != nil {
		if err := a.audio.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.cancel()
	return errs
}

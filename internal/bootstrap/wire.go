package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"reviewcap/internal/config"
	"reviewcap/internal/export"
	"reviewcap/internal/media"
	"reviewcap/internal/observe"
	"reviewcap/internal/ports"
	"reviewcap/internal/providers/deepgram"
	"reviewcap/internal/providers/openai"
	"reviewcap/internal/store"
	"reviewcap/internal/usecase"
	"reviewcap/internal/version"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.RecordingController
	Analyzer   *usecase.Analyzer
	Sessions   *usecase.Sessions
	Config     config.Config
	Logger     *slog.Logger

	// Shutdown flushes and closes the meter provider.
	Shutdown func(context.Context) error
}

// Build loads configuration and wires all backend dependencies. Logs go to
// stderr.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	return BuildWith(cfg, eventSink, os.Stderr)
}

// BuildWith wires the runtime graph from an already loaded configuration.
func BuildWith(cfg config.Config, eventSink ports.EventSink, logOut io.Writer) (Services, error) {
	return buildWith(cfg, eventSink, logOut, nil)
}

func buildWith(cfg config.Config, eventSink ports.EventSink, logOut io.Writer, reader sdkmetric.Reader) (Services, error) {
	logger := observe.NewLogger(logOut, cfg.Log.Level)

	repo, err := store.New(cfg.Storage.SessionsDir)
	if err != nil {
		return Services{}, err
	}

	metrics, shutdown, err := observe.InitProvider(context.Background(), observe.ProviderConfig{
		ServiceVersion: version.Version,
		Reader:         reader,
		Logger:         logger.With("component", "metrics"),
	})
	if err != nil {
		return Services{}, err
	}

	var summarizer ports.Summarizer
	if cfg.SummariesEnabled() {
		s, err := openai.NewSummarizer(openai.Config{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.Model,
			Timeout:    cfg.OpenAI.Timeout,
			MaxRetries: 2,
		})
		if err != nil {
			logger.Warn("summaries disabled", "err", err)
		} else {
			summarizer = s
		}
	}

	ffmpeg := cfg.Capture.FFmpegCommand
	analyzer := usecase.NewAnalyzer(
		repo,
		media.NewFrameExtractor(ffmpeg, cfg.Capture.FFprobeCommand, cfg.Analysis.ThumbnailWidth),
		deepgram.NewRecognizer(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
		}, media.NewPCMDecoder(ffmpeg)),
		summarizer,
		eventSink,
		logger.With("component", "analysis"),
		metrics,
		usecase.AnalysisConfig{
			FrameInterval: cfg.Analysis.FrameInterval,
			MergeGap:      cfg.Analysis.MergeGap,
			Thumbnails:    cfg.Analysis.Thumbnails,
			Workers:       cfg.Analysis.Workers,
		},
	)

	controller := usecase.NewRecordingController(
		media.NewScreenRecorder(ffmpeg, media.ScreenConfig{
			InputFormat: cfg.Capture.ScreenInputFormat,
			Device:      cfg.Capture.ScreenDevice,
			FrameRate:   cfg.Capture.FrameRate,
		}),
		media.NewMicrophoneRecorder(ffmpeg, media.MicrophoneConfig{
			InputFormat: cfg.Capture.AudioInputFormat,
			Device:      cfg.Capture.AudioInputDevice,
			SampleRate:  cfg.Capture.SampleRate,
			Channels:    cfg.Capture.Channels,
		}),
		analyzer,
		eventSink,
		logger.With("component", "recorder"),
		metrics,
		usecase.Config{TickInterval: cfg.Session.TickInterval},
	)

	sessions := usecase.NewSessions(repo, map[string]ports.Exporter{
		export.FormatMarkdown: export.NewMarkdown(cfg.Analysis.Tolerance),
		export.FormatHTML:     export.NewHTML(cfg.Analysis.Tolerance),
	}, cfg.Storage.ExportDir, cfg.Analysis.Tolerance)

	return Services{
		Controller: controller,
		Analyzer:   analyzer,
		Sessions:   sessions,
		Config:     cfg,
		Logger:     logger,
		Shutdown:   shutdown,
	}, nil
}

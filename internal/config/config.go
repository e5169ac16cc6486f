package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config stores runtime configuration for the recorder, the analysis
// pipeline and the speech and summary providers.
type Config struct {
	Storage  StorageConfig
	Capture  CaptureConfig
	Analysis AnalysisConfig
	Deepgram DeepgramConfig
	OpenAI   OpenAIConfig
	Session  SessionConfig
	Log      LogConfig

	// File is the config file that was read, or "".
	File string
}

type StorageConfig struct {
	SessionsDir string
	ExportDir   string
}

type CaptureConfig struct {
	FFmpegCommand     string
	FFprobeCommand    string
	ScreenInputFormat string
	ScreenDevice      string
	FrameRate         int
	AudioInputFormat  string
	AudioInputDevice  string
	SampleRate        int
	Channels          int
}

type AnalysisConfig struct {
	FrameInterval  float64
	MergeGap       float64
	Tolerance      float64
	Thumbnails     bool
	ThumbnailWidth int
	Workers        int
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Summaries bool
	Timeout   time.Duration
}

type SessionConfig struct {
	TickInterval time.Duration
}

type LogConfig struct {
	Level string
}

// SummariesEnabled reports whether transcriptions should be summarized.
func (c Config) SummariesEnabled() bool {
	return c.OpenAI.Summaries && c.OpenAI.APIKey != ""
}

type fileConfig struct {
	Storage struct {
		SessionsDir string `toml:"sessions_dir"`
		ExportDir   string `toml:"export_dir"`
	} `toml:"storage"`
	Capture struct {
		FFmpegCommand     string `toml:"ffmpeg_command"`
		FFprobeCommand    string `toml:"ffprobe_command"`
		ScreenInputFormat string `toml:"screen_input_format"`
		ScreenDevice      string `toml:"screen_device"`
		FrameRate         int    `toml:"frame_rate"`
		AudioInputFormat  string `toml:"audio_input_format"`
		AudioInputDevice  string `toml:"audio_input_device"`
		SampleRate        int    `toml:"sample_rate"`
		Channels          int    `toml:"channels"`
	} `toml:"capture"`
	Analysis struct {
		FrameInterval  float64  `toml:"frame_interval"`
		MergeGap       float64  `toml:"merge_gap"`
		Tolerance      *float64 `toml:"tolerance"`
		Thumbnails     *bool    `toml:"thumbnails"`
		ThumbnailWidth int      `toml:"thumbnail_width"`
		Workers        int      `toml:"workers"`
	} `toml:"analysis"`
	Deepgram struct {
		APIKey      string `toml:"api_key"`
		APIBaseURL  string `toml:"api_base"`
		Model       string `toml:"model"`
		Language    string `toml:"language"`
		SmartFormat *bool  `toml:"smart_format"`
	} `toml:"deepgram"`
	OpenAI struct {
		APIKey    string `toml:"api_key"`
		BaseURL   string `toml:"base_url"`
		Model     string `toml:"model"`
		Summaries *bool  `toml:"summaries"`
		TimeoutMS int    `toml:"timeout_ms"`
	} `toml:"openai"`
	Session struct {
		TickMS int `toml:"tick_ms"`
	} `toml:"session"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// Load resolves configuration from defaults, then the optional config file
// at $XDG_CONFIG_HOME/reviewcap/config.toml, then environment variables.
func Load() (Config, error) {
	return LoadFile(configFilePath())
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file.
func LoadFile(path string) (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	cfg := defaults(home)
	if path != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
		applyFile(&cfg, fc, home)
		cfg.File = path
	}
	applyEnv(&cfg, home)
	normalize(&cfg)
	return cfg, nil
}

func defaults(home string) Config {
	screenFormat, screenDevice, audioFormat, audioDevice := platformInputs()
	dataDir := filepath.Join(home, "ReviewCapture")
	return Config{
		Storage: StorageConfig{
			SessionsDir: filepath.Join(dataDir, "sessions"),
			ExportDir:   filepath.Join(dataDir, "exports"),
		},
		Capture: CaptureConfig{
			FFmpegCommand:     "ffmpeg",
			FFprobeCommand:    "ffprobe",
			ScreenInputFormat: screenFormat,
			ScreenDevice:      screenDevice,
			FrameRate:         30,
			AudioInputFormat:  audioFormat,
			AudioInputDevice:  audioDevice,
			SampleRate:        48000,
			Channels:          1,
		},
		Analysis: AnalysisConfig{
			FrameInterval:  5,
			MergeGap:       1,
			Tolerance:      2.5,
			Thumbnails:     true,
			ThumbnailWidth: 320,
			Workers:        4,
		},
		Deepgram: DeepgramConfig{
			APIBaseURL:  "https://api.deepgram.com/v1",
			Model:       "nova-2",
			SmartFormat: true,
		},
		OpenAI: OpenAIConfig{
			Model:     "gpt-4o-mini",
			Summaries: true,
			Timeout:   30 * time.Second,
		},
		Session: SessionConfig{TickInterval: time.Second},
		Log:     LogConfig{Level: "info"},
	}
}

func platformInputs() (screenFormat, screenDevice, audioFormat, audioDevice string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", "1:none", "avfoundation", ":default"
	case "windows":
		return "gdigrab", "desktop", "dshow", "audio=default"
	default:
		display := firstNonEmpty(os.Getenv("DISPLAY"), ":0")
		return "x11grab", display, "pulse", "default"
	}
}

func applyFile(cfg *Config, fc fileConfig, home string) {
	cfg.Storage.SessionsDir = expandTilde(firstNonEmpty(fc.Storage.SessionsDir, cfg.Storage.SessionsDir), home)
	cfg.Storage.ExportDir = expandTilde(firstNonEmpty(fc.Storage.ExportDir, cfg.Storage.ExportDir), home)

	cfg.Capture.FFmpegCommand = firstNonEmpty(fc.Capture.FFmpegCommand, cfg.Capture.FFmpegCommand)
	cfg.Capture.FFprobeCommand = firstNonEmpty(fc.Capture.FFprobeCommand, cfg.Capture.FFprobeCommand)
	cfg.Capture.ScreenInputFormat = firstNonEmpty(fc.Capture.ScreenInputFormat, cfg.Capture.ScreenInputFormat)
	cfg.Capture.ScreenDevice = firstNonEmpty(fc.Capture.ScreenDevice, cfg.Capture.ScreenDevice)
	cfg.Capture.AudioInputFormat = firstNonEmpty(fc.Capture.AudioInputFormat, cfg.Capture.AudioInputFormat)
	cfg.Capture.AudioInputDevice = firstNonEmpty(fc.Capture.AudioInputDevice, cfg.Capture.AudioInputDevice)
	cfg.Capture.FrameRate = firstPositive(fc.Capture.FrameRate, cfg.Capture.FrameRate)
	cfg.Capture.SampleRate = firstPositive(fc.Capture.SampleRate, cfg.Capture.SampleRate)
	cfg.Capture.Channels = firstPositive(fc.Capture.Channels, cfg.Capture.Channels)

	if fc.Analysis.FrameInterval > 0 {
		cfg.Analysis.FrameInterval = fc.Analysis.FrameInterval
	}
	if fc.Analysis.MergeGap > 0 {
		cfg.Analysis.MergeGap = fc.Analysis.MergeGap
	}
	if fc.Analysis.Tolerance != nil {
		cfg.Analysis.Tolerance = *fc.Analysis.Tolerance
	}
	if fc.Analysis.Thumbnails != nil {
		cfg.Analysis.Thumbnails = *fc.Analysis.Thumbnails
	}
	cfg.Analysis.ThumbnailWidth = firstPositive(fc.Analysis.ThumbnailWidth, cfg.Analysis.ThumbnailWidth)
	cfg.Analysis.Workers = firstPositive(fc.Analysis.Workers, cfg.Analysis.Workers)

	cfg.Deepgram.APIKey = firstNonEmpty(fc.Deepgram.APIKey, cfg.Deepgram.APIKey)
	cfg.Deepgram.APIBaseURL = firstNonEmpty(fc.Deepgram.APIBaseURL, cfg.Deepgram.APIBaseURL)
	cfg.Deepgram.Model = firstNonEmpty(fc.Deepgram.Model, cfg.Deepgram.Model)
	cfg.Deepgram.Language = firstNonEmpty(fc.Deepgram.Language, cfg.Deepgram.Language)
	if fc.Deepgram.SmartFormat != nil {
		cfg.Deepgram.SmartFormat = *fc.Deepgram.SmartFormat
	}

	cfg.OpenAI.APIKey = firstNonEmpty(fc.OpenAI.APIKey, cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = firstNonEmpty(fc.OpenAI.BaseURL, cfg.OpenAI.BaseURL)
	cfg.OpenAI.Model = firstNonEmpty(fc.OpenAI.Model, cfg.OpenAI.Model)
	if fc.OpenAI.Summaries != nil {
		cfg.OpenAI.Summaries = *fc.OpenAI.Summaries
	}
	if fc.OpenAI.TimeoutMS > 0 {
		cfg.OpenAI.Timeout = time.Duration(fc.OpenAI.TimeoutMS) * time.Millisecond
	}

	if fc.Session.TickMS > 0 {
		cfg.Session.TickInterval = time.Duration(fc.Session.TickMS) * time.Millisecond
	}
	cfg.Log.Level = firstNonEmpty(fc.Log.Level, cfg.Log.Level)
}

func applyEnv(cfg *Config, home string) {
	cfg.Storage.SessionsDir = expandTilde(envOrDefault("REVIEWCAP_SESSIONS_DIR", cfg.Storage.SessionsDir), home)
	cfg.Storage.ExportDir = expandTilde(envOrDefault("REVIEWCAP_EXPORT_DIR", cfg.Storage.ExportDir), home)

	cfg.Capture.FFmpegCommand = envOrDefault("REVIEWCAP_FFMPEG_COMMAND", cfg.Capture.FFmpegCommand)
	cfg.Capture.FFprobeCommand = envOrDefault("REVIEWCAP_FFPROBE_COMMAND", cfg.Capture.FFprobeCommand)
	cfg.Capture.ScreenInputFormat = envOrDefault("REVIEWCAP_SCREEN_INPUT_FORMAT", cfg.Capture.ScreenInputFormat)
	cfg.Capture.ScreenDevice = envOrDefault("REVIEWCAP_SCREEN_DEVICE", cfg.Capture.ScreenDevice)
	cfg.Capture.FrameRate = envOrDefaultInt("REVIEWCAP_FRAME_RATE", cfg.Capture.FrameRate)
	cfg.Capture.AudioInputFormat = envOrDefault("REVIEWCAP_AUDIO_INPUT_FORMAT", cfg.Capture.AudioInputFormat)
	cfg.Capture.AudioInputDevice = envOrDefault("REVIEWCAP_AUDIO_INPUT_DEVICE", cfg.Capture.AudioInputDevice)
	cfg.Capture.SampleRate = envOrDefaultInt("REVIEWCAP_SAMPLE_RATE", cfg.Capture.SampleRate)
	cfg.Capture.Channels = envOrDefaultInt("REVIEWCAP_CHANNELS", cfg.Capture.Channels)

	cfg.Analysis.FrameInterval = envOrDefaultFloat("REVIEWCAP_FRAME_INTERVAL", cfg.Analysis.FrameInterval)
	cfg.Analysis.MergeGap = envOrDefaultFloat("REVIEWCAP_MERGE_GAP", cfg.Analysis.MergeGap)
	cfg.Analysis.Tolerance = envOrDefaultFloat("REVIEWCAP_ALIGN_TOLERANCE", cfg.Analysis.Tolerance)
	cfg.Analysis.Thumbnails = envOrDefaultBool("REVIEWCAP_THUMBNAILS", cfg.Analysis.Thumbnails)
	cfg.Analysis.ThumbnailWidth = envOrDefaultInt("REVIEWCAP_THUMBNAIL_WIDTH", cfg.Analysis.ThumbnailWidth)
	cfg.Analysis.Workers = envOrDefaultInt("REVIEWCAP_ANALYSIS_WORKERS", cfg.Analysis.Workers)

	cfg.Deepgram.APIKey = envOrDefault("DEEPGRAM_API_KEY", cfg.Deepgram.APIKey)
	cfg.Deepgram.APIBaseURL = envOrDefault("DEEPGRAM_API_BASE", cfg.Deepgram.APIBaseURL)
	cfg.Deepgram.Model = envOrDefault("DEEPGRAM_MODEL", cfg.Deepgram.Model)
	cfg.Deepgram.Language = envOrDefault("DEEPGRAM_LANGUAGE", cfg.Deepgram.Language)
	cfg.Deepgram.SmartFormat = envOrDefaultBool("DEEPGRAM_SMART_FORMAT", cfg.Deepgram.SmartFormat)

	cfg.OpenAI.APIKey = envOrDefault("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = envOrDefault("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.Model = envOrDefault("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.OpenAI.Summaries = envOrDefaultBool("REVIEWCAP_SUMMARIES", cfg.OpenAI.Summaries)

	if ms := envOrDefaultInt("REVIEWCAP_TICK_MS", 0); ms > 0 {
		cfg.Session.TickInterval = time.Duration(ms) * time.Millisecond
	}
	cfg.Log.Level = envOrDefault("REVIEWCAP_LOG_LEVEL", cfg.Log.Level)
}

// normalize restores defaults for values that cannot be used.
func normalize(cfg *Config) {
	if cfg.Capture.FrameRate <= 0 {
		cfg.Capture.FrameRate = 30
	}
	if cfg.Capture.SampleRate <= 0 {
		cfg.Capture.SampleRate = 48000
	}
	if cfg.Capture.Channels <= 0 {
		cfg.Capture.Channels = 1
	}
	if cfg.Analysis.FrameInterval <= 0 {
		cfg.Analysis.FrameInterval = 5
	}
	if cfg.Analysis.MergeGap <= 0 {
		cfg.Analysis.MergeGap = 1
	}
	if cfg.Analysis.Tolerance < 0 {
		cfg.Analysis.Tolerance = 2.5
	}
	if cfg.Analysis.ThumbnailWidth <= 0 {
		cfg.Analysis.ThumbnailWidth = 320
	}
	if cfg.Analysis.Workers <= 0 {
		cfg.Analysis.Workers = 4
	}
}

func configFilePath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "reviewcap")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "reviewcap")
	} else {
		return ""
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func expandTilde(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, value := range values {
		if value > 0 {
			return value
		}
	}
	return 0
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

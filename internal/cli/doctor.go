package cli

import (
	"os"

	"github.com/spf13/cobra"

	"reviewcap/internal/media"
	"reviewcap/internal/output"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(cmd.OutOrStdout())
			cfg := deps.Services.Config
			ok := true

			for _, tool := range []string{cfg.Capture.FFmpegCommand, cfg.Capture.FFprobeCommand} {
				if path, err := media.CheckTool(tool); err != nil {
					f.SetupCheck(tool, false, "not found. Install ffmpeg or set REVIEWCAP_FFMPEG_COMMAND / REVIEWCAP_FFPROBE_COMMAND")
					ok = false
				} else {
					f.SetupCheck(tool, true, path)
				}
			}

			f.SetupCheck("Screen input", true, cfg.Capture.ScreenInputFormat+" "+cfg.Capture.ScreenDevice)
			f.SetupCheck("Microphone input", true, cfg.Capture.AudioInputFormat+" "+cfg.Capture.AudioInputDevice)

			if cfg.Deepgram.APIKey != "" {
				f.SetupCheck("Deepgram API key", true, "configured")
			} else {
				f.SetupCheck("Deepgram API key", false, "not set. Set DEEPGRAM_API_KEY or add it to the config file")
				ok = false
			}

			if cfg.SummariesEnabled() {
				f.SetupCheck("Summaries", true, "enabled with "+cfg.OpenAI.Model)
			} else {
				f.SetupCheck("Summaries", true, "disabled. Set OPENAI_API_KEY to enable")
			}

			if info, err := os.Stat(cfg.Storage.SessionsDir); err == nil && info.IsDir() {
				f.SetupCheck("Sessions directory", true, cfg.Storage.SessionsDir)
			} else {
				f.SetupCheck("Sessions directory", false, cfg.Storage.SessionsDir+" is not a directory")
				ok = false
			}
			f.SetupCheck("Export directory", true, cfg.Storage.ExportDir)
			if cfg.File != "" {
				f.SetupCheck("Config file", true, cfg.File)
			}

			if ok {
				f.Success("\nAll prerequisites met. Ready to record!")
			} else {
				f.Warning("\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}

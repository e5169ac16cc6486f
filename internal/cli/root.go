package cli

import (
	"github.com/spf13/cobra"

	"reviewcap/internal/bootstrap"
	"reviewcap/internal/version"
)

type Dependencies struct {
	Services bootstrap.Services
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "reviewcap",
		Short:         "Record narrated screen reviews and export them as documents",
		Long:          "Records the screen and microphone, pairs periodic screenshots with transcribed commentary, and exports the result as Markdown or HTML.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.AddCommand(NewNewCmd(deps))
	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewAnalyzeCmd(deps))
	rootCmd.AddCommand(NewTimelineCmd(deps))
	rootCmd.AddCommand(NewExportCmd(deps))
	rootCmd.AddCommand(NewDeleteCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}

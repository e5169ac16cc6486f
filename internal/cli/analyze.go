package cli

import (
	"context"

	"github.com/spf13/cobra"

	"reviewcap/internal/output"
)

func NewAnalyzeCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <session-id>",
		Short: "Re-run screenshot extraction, transcription and summaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			session, err := deps.Services.Analyzer.Reanalyze(ctx, args[0])
			if err != nil {
				return err
			}
			output.NewFormatter(cmd.OutOrStdout()).SessionAnalyzed(session)
			return nil
		},
	}
}

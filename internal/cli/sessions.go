package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"reviewcap/internal/output"
)

func NewNewCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "new [name]",
		Short: "Create a review session",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			session, err := deps.Services.Sessions.Create(strings.Join(args, " "))
			if err != nil {
				return err
			}
			formatter.SessionCreated(session)
			return nil
		},
	}
}

func NewListCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List review sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			sessions, err := deps.Services.Sessions.List()
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				formatter.Info("No sessions found")
				return nil
			}

			formatter.SessionListHeader()
			for _, session := range sessions {
				formatter.SessionListItem(session)
			}
			return nil
		},
	}
}

func NewTimelineCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <session-id>",
		Short: "Show screenshots with their commentary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := deps.Services.Sessions.Timeline(args[0])
			if err != nil {
				return err
			}
			output.NewFormatter(cmd.OutOrStdout()).Timeline(entries)
			return nil
		},
	}
}

func NewExportCmd(deps *Dependencies) *cobra.Command {
	var formats []string

	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session as Markdown or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			for _, format := range formats {
				path, err := deps.Services.Sessions.Export(args[0], format)
				if err != nil {
					return err
				}
				formatter.Exported(format, path)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&formats, "format", "f", []string{"markdown"}, "Export formats (markdown, html)")
	return cmd
}

func NewDeleteCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Services.Sessions.Delete(args[0]); err != nil {
				return err
			}
			output.NewFormatter(cmd.OutOrStdout()).SessionDeleted(args[0])
			return nil
		},
	}
}

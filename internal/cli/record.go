package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"reviewcap/internal/domain"
	"reviewcap/internal/output"
)

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "record [session-id]",
		Short: "Record the screen and microphone into a session",
		Long:  "Record into an existing session, or into a new one when no id is given.\nType p to pause, r to resume and s to stop. Ctrl+C also stops. Analysis runs once recording stops.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())
			sessions := deps.Services.Sessions

			var id string
			if len(args) == 1 {
				id = args[0]
			} else {
				session, err := sessions.Create(name)
				if err != nil {
					return err
				}
				formatter.SessionCreated(session)
				id = session.ID
			}

			target, err := sessions.RecordingTarget(id)
			if err != nil {
				return err
			}
			return runRecording(deps, target, cmd.InOrStdin(), formatter)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name for the new session")
	return cmd
}

// runRecording drives the controller from stdin commands until stop, EOF
// followed by an interrupt, or an interrupt.
func runRecording(deps *Dependencies, target domain.RecordingTarget, in io.Reader, formatter *output.Formatter) error {
	controller := deps.Services.Controller

	// Capture processes must outlive the interrupt that stops them.
	ctx := context.Background()
	if err := controller.Start(ctx, target); err != nil {
		return err
	}
	formatter.RecordingHelp()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	done := make(chan struct{})
	defer close(done)
	commands := readCommands(in, done)

	for {
		select {
		case <-interrupts:
			return stopRecording(ctx, deps, formatter)
		case line, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}

			var err error
			switch line {
			case "p", "pause":
				err = controller.Pause(ctx)
			case "r", "resume":
				err = controller.Resume(ctx)
			case "s", "stop", "q":
				return stopRecording(ctx, deps, formatter)
			case "":
				continue
			default:
				formatter.Warning("unknown command " + line)
				continue
			}
			if errors.Is(err, domain.ErrInvalidTransition) {
				formatter.Warning(err.Error())
				continue
			}
			if err != nil {
				return err
			}
		}
	}
}

func stopRecording(ctx context.Context, deps *Dependencies, formatter *output.Formatter) error {
	result, err := deps.Services.Controller.Stop(ctx)
	if err != nil {
		return err
	}
	session, err := deps.Services.Sessions.Get(result.SessionID)
	if err != nil {
		return err
	}
	formatter.SessionAnalyzed(session)
	return nil
}

func readCommands(in io.Reader, done <-chan struct{}) <-chan string {
	commands := make(chan string)
	go func() {
		defer close(commands)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case commands <- strings.ToLower(strings.TrimSpace(scanner.Text())):
			case <-done:
				return
			}
		}
	}()
	return commands
}

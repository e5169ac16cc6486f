package main

import (
	"context"
	"fmt"
	"os"

	"reviewcap/internal/bootstrap"
	"reviewcap/internal/cli"
	"reviewcap/internal/output"
)

func main() {
	if err := run(); err != nil {
		output.NewFormatter(os.Stderr).Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	sink := cli.NewEventSink(output.NewFormatter(os.Stderr))

	services, err := bootstrap.Build(sink)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	defer func() {
		if err := services.Shutdown(context.Background()); err != nil {
			services.Logger.Warn("metrics shutdown", "err", err)
		}
	}()

	return cli.NewRootCmd(&cli.Dependencies{Services: services}).Execute()
}

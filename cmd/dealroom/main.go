package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alexanderramin/dealroom/internal/app"
	"github.com/alexanderramin/dealroom/internal/cli"
	"github.com/alexanderramin/dealroom/internal/config"
	"github.com/alexanderramin/dealroom/internal/telemetry"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	stderrTTY := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	logger := app.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel, stderrTTY)

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: "dealroom",
		Endpoint:    cfg.OTelEndpoint,
		Enabled:     cfg.OTelEnabled,
	})
	if err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	root := cli.NewRootCmd(&cli.App{
		Negotiations: a.Negotiations,
		Messages:     a.Messages,
		Access:       a.Access,
		Reports:      a.Reports,
		Catalog:      a.Catalog,
		Wallet:       a.Wallet,
		Serve:        a.Serve,
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
	})
	return root.ExecuteContext(ctx)
}

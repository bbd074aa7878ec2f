package cli

import (
	"context"
	"deskpilot/pkg/api"
	"deskpilot/pkg/channels"
	_ "deskpilot/pkg/channels/autoload"
	"deskpilot/pkg/channels/console"
	"deskpilot/pkg/channels/tui"
	"deskpilot/pkg/command"
	"deskpilot/pkg/dispatcher"
	"deskpilot/pkg/gateway"
	"deskpilot/pkg/handler"
	"deskpilot/pkg/monitor"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Type commands in the terminal, one per line",
	Args:  cobra.NoArgs,
	RunE:  runConsole,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the chat window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		ch := tui.NewTUIChannel("Hello! " + handler.HelpText(command.Default()))
		if err := serveUntilDone(cmd.Context(), a, ch, ch.Done(), nil); err != nil {
			return err
		}
		return ch.Err()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the channels configured in config.json (web, telegram)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		monitor.PrintBanner(os.Stdout)
		list := channels.LoadFromConfig(a.cfg.Channels, a.sys)
		if len(list) == 0 {
			return fmt.Errorf("no channels to serve; add one of %v under \"channels\" in %s", channels.Registered(), configPath)
		}
		return serveUntilDone(cmd.Context(), a, nil, nil, monitor.NewCLIMonitor(os.Stdout), list...)
	},
}

var runCmd = &cobra.Command{
	Use:   "run <command text>",
	Short: "Execute a single command and print the result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		outcome := a.dispatcher.Handle(cmd.Context(), strings.Join(args, " "))
		fmt.Fprintln(cmd.OutOrStdout(), dispatcher.Render(outcome))
		if !outcome.OK {
			return fmt.Errorf("command failed")
		}
		return nil
	},
}

func runConsole(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	ch := console.NewConsoleChannel(cmd.InOrStdin(), cmd.OutOrStdout())
	return serveUntilDone(cmd.Context(), a, ch, ch.Done(), nil)
}

// serveUntilDone starts a gateway over the given channels and blocks until
// done is closed or the process is interrupted.
func serveUntilDone(parent context.Context, a *app, primary api.Channel, done <-chan struct{}, mon monitor.Monitor, extra ...api.Channel) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.watch(ctx)

	builder := gateway.NewGatewayBuilder().WithHandler(a.handler)
	if primary != nil {
		builder.WithChannel(primary)
	}
	builder.WithChannel(extra...)
	if mon != nil {
		builder.WithMonitor(mon)
	}

	gw, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build gateway: %w", err)
	}

	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal, stopping")
	case <-done:
	}
	gw.StopAll()
	return nil
}
